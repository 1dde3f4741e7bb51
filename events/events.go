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

// Package events is a small publish/subscribe mechanism.
//
// Every lifecycle transition of the interaction machine (state
// enter/exit, session new/resume/close, config read, errors) is
// expressed as an Event, so application code can observe and react
// without the machine knowing about application specifics.
//
// An Emitter can expose other Emitters as named members.  Subscribing
// to "user user:new" is the same as subscribing to "user:new" on the
// member named "user".  Member paths can be dotted: "im.user
// user:new".
package events

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
)

// Event is anything with a name.
type Event interface {
	EventName() string
}

// Named is the trivial Event.
type Named string

// EventName implements Event.
func (n Named) EventName() string {
	return string(n)
}

// Listener handles an Event.
//
// A Listener that needs to wait for something should just block.  The
// Emitter waits for every listener before Emit returns.
type Listener func(ctx context.Context, e Event) error

// UnknownMember occurs when a delegated subscription names a member
// that hasn't been Delegated.
type UnknownMember struct {
	Path string
}

func (e *UnknownMember) Error() string {
	return `unknown event member "` + e.Path + `"`
}

// ListenerPanic is a panic raised by a listener, recovered so that
// the remaining listeners still run.
type ListenerPanic struct {
	Event string
	Value interface{}
	Stack []byte
}

func (e *ListenerPanic) Error() string {
	return fmt.Sprintf("listener for %s panicked: %v", e.Event, e.Value)
}

// call runs the listener, turning a panic into a ListenerPanic.
func call(ctx context.Context, f Listener, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ListenerPanic{
				Event: e.EventName(),
				Value: r,
				Stack: debug.Stack(),
			}
		}
	}()
	return f(ctx, e)
}

type entry struct {
	f    Listener
	once bool
}

// Emitter holds listeners by event name.
//
// The zero value is not usable; use NewEmitter.
type Emitter struct {
	sync.Mutex

	listeners map[string][]*entry
	members   map[string]*Emitter
}

// NewEmitter makes an Emitter without listeners.
func NewEmitter() *Emitter {
	return &Emitter{
		listeners: make(map[string][]*entry, 8),
		members:   make(map[string]*Emitter, 2),
	}
}

// Delegate exposes the given Emitter as a named member.
func (em *Emitter) Delegate(member string, sub *Emitter) {
	em.Lock()
	em.members[member] = sub
	em.Unlock()
}

// resolve finds the Emitter and the event name for a possibly
// delegated name like "im.user user:new".
func (em *Emitter) resolve(name string) (*Emitter, string, error) {
	i := strings.LastIndex(name, " ")
	if i < 0 {
		return em, name, nil
	}
	path, event := name[:i], name[i+1:]
	target := em
	for _, member := range strings.Split(path, ".") {
		target.Lock()
		next, have := target.members[member]
		target.Unlock()
		if !have {
			return nil, "", &UnknownMember{Path: path}
		}
		target = next
	}
	return target, event, nil
}

func (em *Emitter) add(name string, f Listener, once bool) error {
	target, event, err := em.resolve(name)
	if err != nil {
		return err
	}
	target.Lock()
	target.listeners[event] = append(target.listeners[event], &entry{
		f:    f,
		once: once,
	})
	target.Unlock()
	return nil
}

// On registers a listener that stays until Off.
func (em *Emitter) On(name string, f Listener) error {
	return em.add(name, f, false)
}

// Once registers a listener that is removed before its first
// invocation.
func (em *Emitter) Once(name string, f Listener) error {
	return em.add(name, f, true)
}

// OnMany registers persistent listeners given as a map from event
// name to listener.
func (em *Emitter) OnMany(ls map[string]Listener) error {
	for name, f := range ls {
		if err := em.On(name, f); err != nil {
			return err
		}
	}
	return nil
}

// Off removes all listeners for the given event name.
func (em *Emitter) Off(name string) error {
	target, event, err := em.resolve(name)
	if err != nil {
		return err
	}
	target.Lock()
	delete(target.listeners, event)
	target.Unlock()
	return nil
}

// Listeners returns the number of listeners currently registered for
// the event name.
func (em *Emitter) Listeners(name string) int {
	target, event, err := em.resolve(name)
	if err != nil {
		return 0
	}
	target.Lock()
	n := len(target.listeners[event])
	target.Unlock()
	return n
}

// Emit invokes every listener for the event's name in registration
// order.
//
// A failing (or panicking) listener does not stop the others.  When
// listeners fail, Emit returns the first error.
func (em *Emitter) Emit(ctx context.Context, e Event) error {
	name := e.EventName()

	em.Lock()
	es := em.listeners[name]
	fs := make([]Listener, 0, len(es))
	keep := es[:0:0]
	for _, x := range es {
		fs = append(fs, x.f)
		if !x.once {
			keep = append(keep, x)
		}
	}
	if len(keep) != len(es) {
		em.listeners[name] = keep
	}
	em.Unlock()

	var first error
	for _, f := range fs {
		if err := call(ctx, f, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ErrNilEmitter is returned by Fire when given no Emitter.
var ErrNilEmitter = errors.New("nil emitter")

// Fire emits the event on each Emitter in order, waiting for each
// before moving to the next, and returns the first error.
func Fire(ctx context.Context, e Event, ems ...*Emitter) error {
	var first error
	for _, em := range ems {
		var err error
		if em == nil {
			err = ErrNilEmitter
		} else {
			err = em.Emit(ctx, e)
		}
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}
