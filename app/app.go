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

// Package app is what an application gives the machine: a start
// state name, a registry of state creators, and a bus that the
// application's own code can listen on.
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/praekeltfoundation/vumigo/events"
	"github.com/praekeltfoundation/vumigo/states"
)

// ErrorStateName is the name of the state the machine falls back to
// when nothing else works.
const ErrorStateName = "__error__"

// Creator makes the named state.  opts are the creator options
// recorded in the user's state descriptor.
type Creator func(ctx context.Context, name string, opts map[string]interface{}) (states.State, error)

// ErrDuplicateState is matched (via errors.Is) by *DuplicateState.
var ErrDuplicateState = errors.New("duplicate state")

// DuplicateState reports a second registration of a state name.
type DuplicateState struct {
	Name string
}

func (e *DuplicateState) Error() string {
	return fmt.Sprintf("Duplicate state '%s'", e.Name)
}

func (e *DuplicateState) Is(target error) bool {
	return target == ErrDuplicateState
}

// States maps state names to creators.
type States struct {
	app      *App
	creators map[string]Creator
}

// Add registers a creator.  Registering a name twice is an error.
func (ss *States) Add(name string, c Creator) error {
	if _, have := ss.creators[name]; have {
		return &DuplicateState{Name: name}
	}
	ss.creators[name] = c
	return nil
}

// AddState registers a creator that returns what mk returns.
func (ss *States) AddState(name string, mk func() states.State) error {
	return ss.Add(name, func(ctx context.Context, _ string, _ map[string]interface{}) (states.State, error) {
		return mk(), nil
	})
}

// Creator finds the creator for the name.
func (ss *States) Creator(name string) (Creator, bool) {
	c, have := ss.creators[name]
	return c, have
}

// Has reports whether the name is registered.
func (ss *States) Has(name string) bool {
	_, have := ss.creators[name]
	return have
}

// Names returns the registered names, sorted.
func (ss *States) Names() []string {
	acc := make([]string, 0, len(ss.creators))
	for name := range ss.creators {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc
}

// ErrorCreator makes the fallback error state.  It never fails.
func (ss *States) ErrorCreator() Creator {
	return func(ctx context.Context, name string, opts map[string]interface{}) (states.State, error) {
		return states.NewErrorState(name, ss.app.StartStateName), nil
	}
}

// App is an application.
type App struct {
	*events.Emitter

	StartStateName string
	States         *States

	// Init, if not nil, is called once the machine has read its
	// config and before the user is loaded.
	Init func(ctx context.Context, im states.Machine) error
}

// New makes an App with an empty registry.
func New(startStateName string) *App {
	a := &App{
		Emitter:        events.NewEmitter(),
		StartStateName: startStateName,
	}
	a.States = &States{
		app:      a,
		creators: make(map[string]Creator),
	}
	return a
}

// Setup runs the Init hook.
func (a *App) Setup(ctx context.Context, im states.Machine) error {
	if a.Init == nil {
		return nil
	}
	return a.Init(ctx, im)
}
