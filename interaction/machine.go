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

// Package interaction is the machine that drives one inbound command
// through an App.
//
// For an inbound message the machine reads the sandbox config, loads
// (or creates) the user, switches to the user's state (or the start
// state), dispatches the session event, replies at most once, saves
// the user, and finally tells the sandbox it's done.
//
// A Machine handles exactly one command.  Make a new one for the
// next command.
package interaction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/praekeltfoundation/vumigo/app"
	"github.com/praekeltfoundation/vumigo/events"
	"github.com/praekeltfoundation/vumigo/sandbox"
	"github.com/praekeltfoundation/vumigo/states"
	"github.com/praekeltfoundation/vumigo/translate"
	"github.com/praekeltfoundation/vumigo/user"
)

// RestartContent is message content that discards the user's
// session and starts over.
const RestartContent = "!restart"

// Machine drives one command through an App.
type Machine struct {
	*events.Emitter

	API sandbox.API
	App *app.App

	// Verbose turns on logging to the process log.
	Verbose bool

	config   *Config
	msg      *sandbox.Message
	user     *user.User
	state    states.State
	i18n     *translate.Translator
	i18nLang string

	// replied is set once a reply was produced (or deliberately
	// suppressed).
	replied bool

	// failing is set while replying after an application error.
	failing bool
}

// New makes a Machine for one command.
//
// The app's bus is available to listeners as the "app" member (for
// example "app app:error").
func New(api sandbox.API, a *app.App) *Machine {
	im := &Machine{
		Emitter: events.NewEmitter(),
		API:     api,
		App:     a,
		config:  &Config{},
	}
	im.Delegate("app", a.Emitter)
	return im
}

// Logf logs to the process log if Verbose.
func (im *Machine) Logf(format string, args ...interface{}) {
	if im.Verbose {
		log.Printf(format, args...)
	}
}

// Log sends a message to the sandbox's logger.  Failures to log are
// only reported locally.
func (im *Machine) Log(ctx context.Context, level sandbox.Level, msg string) {
	im.Logf("%s %s", level, msg)
	if err := im.API.Log(ctx, level, msg); err != nil {
		log.Printf("sandbox log failed: %s", err)
	}
}

func (im *Machine) User() *user.User {
	return im.user
}

func (im *Machine) I18n() *translate.Translator {
	return im.i18n
}

func (im *Machine) Msg() *sandbox.Message {
	return im.msg
}

// State returns the active state (or nil).
func (im *Machine) State() states.State {
	return im.state
}

func (im *Machine) Config() *Config {
	return im.config
}

// Dispatch handles the command and then calls the sandbox's Done
// exactly once, whatever happened.
//
// Application errors are absorbed (see OnInboundMessage).  The
// returned error, if any, is an infrastructure failure.
func (im *Machine) Dispatch(ctx context.Context, cmd *sandbox.Command) (err error) {
	defer func() {
		if derr := im.API.Done(ctx); derr != nil && err == nil {
			err = sandbox.Wrap("done", derr)
		}
	}()

	switch cmd.Cmd {
	case sandbox.CmdInboundMessage:
		return im.OnInboundMessage(ctx, cmd)
	case sandbox.CmdInboundEvent:
		return im.OnInboundEvent(ctx, cmd)
	default:
		return im.OnUnknownCommand(ctx, cmd)
	}
}

// OnInboundMessage processes a user message.
//
// An application error (including a panic) is logged and emitted as
// app:error.  If nothing has been sent yet, the user gets the error
// state's text.  Infrastructure errors are logged and returned.
func (im *Machine) OnInboundMessage(ctx context.Context, cmd *sandbox.Command) error {
	err := guard(func() error {
		return im.handleMessage(ctx, cmd.Msg)
	})
	return im.handleError(ctx, err)
}

func (im *Machine) handleMessage(ctx context.Context, msg *sandbox.Message) error {
	if msg == nil {
		return ErrNoMessage
	}
	if err := im.Setup(ctx, msg); err != nil {
		return err
	}

	switch msg.SessionEvent {
	case sandbox.SessionClose:
		return im.onSessionClose(ctx)
	case sandbox.SessionNew, "":
		return im.onSessionNew(ctx)
	default:
		return im.onSessionResume(ctx)
	}
}

// OnInboundEvent emits a transport:event.  There's no reply.
func (im *Machine) OnInboundEvent(ctx context.Context, cmd *sandbox.Command) error {
	err := guard(func() error {
		if err := im.setupConfig(ctx); err != nil {
			return err
		}
		return im.Emit(ctx, &TransportEvent{
			Machine: im,
			Event:   cmd.Event,
		})
	})
	return im.handleError(ctx, err)
}

// OnUnknownCommand only logs.
func (im *Machine) OnUnknownCommand(ctx context.Context, cmd *sandbox.Command) error {
	js := []byte(cmd.Raw)
	if len(js) == 0 {
		var err error
		if js, err = json.Marshal(cmd); err != nil {
			js = []byte(fmt.Sprintf("%#v", cmd))
		}
	}
	im.Log(ctx, sandbox.Info, "Unknown command: "+string(js))
	return nil
}

func (im *Machine) handleError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	if sandbox.IsRequestError(err) {
		im.Log(ctx, sandbox.Critical, im.describe(err))
		return err
	}

	im.Log(ctx, sandbox.Error, im.describe(err))
	im.appError(ctx, err)

	if rerr := guard(func() error { return im.replyWithError(ctx) }); rerr != nil {
		if sandbox.IsRequestError(rerr) {
			im.Log(ctx, sandbox.Critical, im.describe(rerr))
			return rerr
		}
		im.Log(ctx, sandbox.Error, im.describe(rerr))
	}
	return nil
}

func (im *Machine) describe(err error) string {
	var (
		addr  string
		state string
		msgID string
	)
	if im.user != nil {
		addr = im.user.Addr
	}
	if im.state != nil {
		state = im.state.Name()
	}
	if im.msg != nil {
		msgID = im.msg.MessageID
	}
	s := fmt.Sprintf("%s (user '%s', state '%s', message '%s')", err, addr, state, msgID)
	var (
		pe *PanicError
		lp *events.ListenerPanic
	)
	switch {
	case errors.As(err, &pe):
		s += "\n" + string(pe.Stack)
	case errors.As(err, &lp):
		s += "\n" + string(lp.Stack)
	}
	return s
}

// appError emits app:error on the machine and then on the app.
func (im *Machine) appError(ctx context.Context, err error) {
	e := &AppErrorEvent{
		Machine: im,
		Err:     err,
	}
	ferr := guard(func() error {
		return events.Fire(ctx, e, im.Emitter, im.App.Emitter)
	})
	if ferr != nil {
		im.Log(ctx, sandbox.Error, "app:error listener failed: "+ferr.Error())
	}
}

// replyWithError sends the error state's text if nothing has been
// sent for this message.
func (im *Machine) replyWithError(ctx context.Context) error {
	if im.replied || im.user == nil || im.msg == nil {
		return nil
	}
	if im.msg.SessionEvent == sandbox.SessionClose {
		return im.SaveUser(ctx)
	}

	im.failing = true
	st, _ := im.App.States.ErrorCreator()(ctx, app.ErrorStateName, nil)
	if err := guard(func() error { return im.install(ctx, st, nil) }); err != nil {
		im.Log(ctx, sandbox.Error, im.describe(err))
		if im.state != st {
			im.state = st
			im.user.State = user.NewStateData(st.Name(), st.Metadata(), nil)
			st.Setup(ctx, im)
			st.Translate(im.i18n)
		}
	}
	return im.Reply(ctx, true)
}

// Setup reads the config, loads the user and switches to the user's
// state.
//
// Content exactly equal to RestartContent resets the user and is
// replaced by the empty string.
func (im *Machine) Setup(ctx context.Context, msg *sandbox.Message) error {
	im.msg = msg

	if err := im.setupConfig(ctx); err != nil {
		return err
	}

	var opts []user.Option
	if im.config.UserStore != "" {
		opts = append(opts, user.WithStoreName(im.config.UserStore))
	}
	im.user = user.New(im.API, opts...)
	im.Delegate("user", im.user.Emitter)
	im.user.On(user.EventLang, func(ctx context.Context, e events.Event) error {
		return im.onLang(ctx)
	})

	if err := im.App.Setup(ctx, im); err != nil {
		return err
	}

	if err := im.user.LoadOrCreate(ctx, msg.FromAddr); err != nil {
		return err
	}

	if msg.HasContent() && msg.ContentString() == RestartContent {
		if err := im.user.Reset(ctx); err != nil {
			return err
		}
		msg.SetContent("")
	}

	name := im.user.State.Name
	if name == "" {
		name = im.App.StartStateName
	}
	return im.SwitchState(ctx, name)
}

func (im *Machine) setupConfig(ctx context.Context) error {
	js, found, err := im.API.GetConfig(ctx, ConfigKey)
	if err != nil {
		return sandbox.Wrap("config.get", err)
	}
	conf := &Config{}
	if found && 0 < len(js) {
		if err := json.Unmarshal(js, conf); err != nil {
			return fmt.Errorf("bad config: %w", err)
		}
	}
	im.config = conf
	return im.Emit(ctx, &ConfigReadEvent{
		Machine: im,
		Config:  conf,
	})
}

func (im *Machine) onSessionNew(ctx context.Context) error {
	im.user.InSession = true
	if err := im.fireSession(ctx, EventSessionNew, false); err != nil {
		return err
	}
	return im.Reply(ctx, true)
}

func (im *Machine) onSessionResume(ctx context.Context) error {
	im.user.InSession = true
	err := im.Emit(ctx, &states.SessionEvent{
		Name:    EventSessionResume,
		Machine: im,
	})
	if err != nil {
		return err
	}
	if im.msg.HasContent() {
		if err := im.state.Input(ctx, im.msg.ContentString()); err != nil {
			return err
		}
	}
	return im.Reply(ctx, true)
}

func (im *Machine) onSessionClose(ctx context.Context) error {
	im.user.InSession = false
	if err := im.fireSession(ctx, EventSessionClose, true); err != nil {
		return err
	}
	return im.SaveUser(ctx)
}

// fireSession emits a session event on the machine and then on the
// active state.
func (im *Machine) fireSession(ctx context.Context, name string, possibleTimeout bool) error {
	e := &states.SessionEvent{
		Name:            name,
		PossibleTimeout: possibleTimeout,
		Machine:         im,
	}
	ems := []*events.Emitter{im.Emitter}
	if im.state != nil {
		ems = append(ems, im.state.Events())
	}
	return im.tolerate(ctx, events.Fire(ctx, e, ems...))
}

// tolerate drops listener errors while replying with the error
// state.
func (im *Machine) tolerate(ctx context.Context, err error) error {
	if err != nil && im.failing && !sandbox.IsRequestError(err) {
		im.Log(ctx, sandbox.Error, im.describe(err))
		return nil
	}
	return err
}

// SetNextState records the state to move to.  The switch happens in
// Reply.
func (im *Machine) SetNextState(ctx context.Context, name string, opts map[string]interface{}) error {
	im.user.State.Reset(name, nil, opts)
	return nil
}

// SaveUser logs and saves the user.
func (im *Machine) SaveUser(ctx context.Context) error {
	var name string
	if im.state != nil {
		name = im.state.Name()
	}
	im.Log(ctx, sandbox.Info, "Saving user for state: "+name)
	if js, err := im.user.Serialize(); err == nil {
		im.Log(ctx, sandbox.Debug, string(js))
	}
	return im.user.Save(ctx)
}

// Reply switches to the user's current state, saves the user if
// asked, and sends the state's display unless the state doesn't want
// to send a reply.
//
// Reply can be called at most once per message.
func (im *Machine) Reply(ctx context.Context, saveUser bool) error {
	if im.replied {
		return ErrAlreadyReplied
	}

	name := im.user.State.Name
	if name == "" {
		name = im.App.StartStateName
	}
	if err := im.tolerate(ctx, im.SwitchState(ctx, name)); err != nil {
		return err
	}

	st := im.state
	if !st.ContinueSession() {
		im.user.InSession = false
		if err := im.fireSession(ctx, EventSessionClose, false); err != nil {
			return err
		}
	}

	if saveUser {
		if err := im.SaveUser(ctx); err != nil {
			return err
		}
	}

	content, err := st.Display(ctx)
	if err = im.tolerate(ctx, err); err != nil {
		return err
	}

	im.replied = true
	if !st.SendReply() {
		return nil
	}

	r := &sandbox.Reply{
		Content:         content,
		InReplyTo:       im.msg.MessageID,
		ContinueSession: st.ContinueSession(),
		ToAddr:          im.msg.FromAddr,
	}
	if err := im.API.ReplyTo(ctx, r); err != nil {
		return sandbox.Wrap("outbound.reply_to", err)
	}

	return im.tolerate(ctx, im.Emit(ctx, &RepliedEvent{
		Machine: im,
		Reply:   r,
	}))
}
