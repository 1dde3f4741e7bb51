/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package states defines what a conversational state is and provides
// the usual kinds: free text, choices, menus, end states and
// paginated text.
//
// A State lives for (at most) one inbound message.  Only its
// descriptor (user.StateData) is persisted.  A state that wants the
// conversation to move on calls SetNext, which records the target in
// the user's descriptor; the machine switches to it before replying.
package states

import (
	"context"
	"errors"

	"github.com/praekeltfoundation/vumigo/events"
	"github.com/praekeltfoundation/vumigo/sandbox"
	"github.com/praekeltfoundation/vumigo/translate"
	"github.com/praekeltfoundation/vumigo/user"
)

// Event names emitted on a state's own bus.
const (
	EventSetup = "state:setup"
	EventEnter = "state:enter"
	EventExit  = "state:exit"
	EventInput = "state:input"

	EventSessionNew    = "session:new"
	EventSessionResume = "session:resume"
	EventSessionClose  = "session:close"
)

// Machine is what a State sees of the machine that owns it.
type Machine interface {
	User() *user.User
	I18n() *translate.Translator
	Msg() *sandbox.Message

	// SetNextState records the state the conversation should move
	// to.  The switch happens before the reply is produced.
	SetNextState(ctx context.Context, name string, opts map[string]interface{}) error

	// Log sends a message to the sandbox's logger.
	Log(ctx context.Context, level sandbox.Level, msg string)
}

// State is one step of a conversation.
type State interface {
	Name() string

	// Events returns the state's own bus.
	Events() *events.Emitter

	Metadata() map[string]interface{}
	SetMetadata(map[string]interface{})

	// Setup binds the machine and emits EventSetup.
	Setup(ctx context.Context, im Machine) error
	Enter(ctx context.Context) error

	// Exit emits EventExit and forgets the machine.
	Exit(ctx context.Context) error

	Input(ctx context.Context, content string) error
	Display(ctx context.Context) (string, error)
	Translate(i18n *translate.Translator) error

	ContinueSession() bool
	SendReply() bool
}

// ErrNoMachine is returned by operations that need the owning machine
// when the state isn't active.
var ErrNoMachine = errors.New("state has no machine")

// Event is a state lifecycle event.
type Event struct {
	Name  string
	State State
}

func (e *Event) EventName() string {
	return e.Name
}

// InputEvent carries the content given to a state.
type InputEvent struct {
	State   State
	Content string
}

func (e *InputEvent) EventName() string {
	return EventInput
}

// SessionEvent is emitted on the machine and then on the active
// state.
type SessionEvent struct {
	Name string

	// PossibleTimeout is true when the session was closed by the
	// transport rather than by the application.
	PossibleTimeout bool

	Machine Machine
}

func (e *SessionEvent) EventName() string {
	return e.Name
}

// Transition names a state to move to and the options to create it
// with.
type Transition struct {
	Name string
	Opts map[string]interface{}
}

// Next decides where to go after the given answer.  A nil Transition
// means "stay".
type Next func(ctx context.Context, answer string) (*Transition, error)

// To always goes to the named state.
func To(name string) Next {
	return func(ctx context.Context, answer string) (*Transition, error) {
		return &Transition{Name: name}, nil
	}
}

// Check validates an answer.  A non-empty string is the error text
// to show.
type Check func(ctx context.Context, answer string) (string, error)

// BaseState implements State with default behavior.  Concrete states
// embed it.
type BaseState struct {
	name     string
	bus      *events.Emitter
	metadata map[string]interface{}
	im       Machine

	continueSession bool
	sendReply       bool
}

// NewBaseState makes a BaseState that continues the session and sends
// a reply.
func NewBaseState(name string) *BaseState {
	return &BaseState{
		name:            name,
		bus:             events.NewEmitter(),
		metadata:        make(map[string]interface{}),
		continueSession: true,
		sendReply:       true,
	}
}

func (s *BaseState) Name() string {
	return s.name
}

func (s *BaseState) Events() *events.Emitter {
	return s.bus
}

func (s *BaseState) Metadata() map[string]interface{} {
	return s.metadata
}

func (s *BaseState) SetMetadata(m map[string]interface{}) {
	if m == nil {
		m = make(map[string]interface{})
	}
	s.metadata = m
}

// SetMeta writes one metadata value.
func (s *BaseState) SetMeta(key string, value interface{}) {
	s.metadata[key] = value
}

// Machine returns the owning machine (nil when not active).
func (s *BaseState) Machine() Machine {
	return s.im
}

func (s *BaseState) emit(ctx context.Context, name string, self State) error {
	return s.bus.Emit(ctx, &Event{
		Name:  name,
		State: self,
	})
}

func (s *BaseState) Setup(ctx context.Context, im Machine) error {
	s.im = im
	return s.emit(ctx, EventSetup, s)
}

func (s *BaseState) Enter(ctx context.Context) error {
	return s.emit(ctx, EventEnter, s)
}

func (s *BaseState) Exit(ctx context.Context) error {
	err := s.emit(ctx, EventExit, s)
	s.im = nil
	return err
}

// Input emits an InputEvent.
func (s *BaseState) Input(ctx context.Context, content string) error {
	return s.bus.Emit(ctx, &InputEvent{
		State:   s,
		Content: content,
	})
}

func (s *BaseState) Display(ctx context.Context) (string, error) {
	return "", nil
}

func (s *BaseState) Translate(i18n *translate.Translator) error {
	return nil
}

func (s *BaseState) ContinueSession() bool {
	return s.continueSession
}

func (s *BaseState) SetContinueSession(b bool) {
	s.continueSession = b
}

func (s *BaseState) SendReply() bool {
	return s.sendReply
}

func (s *BaseState) SetSendReply(b bool) {
	s.sendReply = b
}

// SaveResponse records value as the answer for this state.
func (s *BaseState) SaveResponse(value string) error {
	if s.im == nil {
		return ErrNoMachine
	}
	s.im.User().SetAnswer(s.name, value)
	return nil
}

// SetNext asks the machine to move to another state.
func (s *BaseState) SetNext(ctx context.Context, t *Transition) error {
	if t == nil {
		return nil
	}
	if s.im == nil {
		return ErrNoMachine
	}
	return s.im.SetNextState(ctx, t.Name, t.Opts)
}

// Advance evaluates next for the answer and moves accordingly.
func (s *BaseState) Advance(ctx context.Context, next Next, answer string) error {
	if next == nil {
		return nil
	}
	t, err := next(ctx, answer)
	if err != nil {
		return err
	}
	return s.SetNext(ctx, t)
}
