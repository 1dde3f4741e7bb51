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

package interaction

import (
	"github.com/praekeltfoundation/vumigo/sandbox"
	"github.com/praekeltfoundation/vumigo/states"
)

// Events emitted on the Machine.
const (
	EventConfigRead = "config:read"
	EventStateEnter = "state:enter"
	EventStateExit  = "state:exit"

	EventSessionNew    = states.EventSessionNew
	EventSessionResume = states.EventSessionResume
	EventSessionClose  = states.EventSessionClose

	EventAppError  = "app:error"
	EventTransport = "transport:event"
	EventReplied   = "im:replied"
)

// ConfigReadEvent is emitted once the sandbox config is known.
type ConfigReadEvent struct {
	Machine *Machine
	Config  *Config
}

func (e *ConfigReadEvent) EventName() string {
	return EventConfigRead
}

// StateEvent is emitted on the Machine when a state is entered or
// exited.
type StateEvent struct {
	Name    string
	Machine *Machine
	State   states.State
}

func (e *StateEvent) EventName() string {
	return e.Name
}

// AppErrorEvent reports an error from application code.
type AppErrorEvent struct {
	Machine *Machine
	Err     error
}

func (e *AppErrorEvent) EventName() string {
	return EventAppError
}

// TransportEvent wraps an inbound event (ack, nack, delivery report).
type TransportEvent struct {
	Machine *Machine
	Event   *sandbox.TransportEvent
}

func (e *TransportEvent) EventName() string {
	return EventTransport
}

// RepliedEvent is emitted after the reply was handed to the sandbox.
type RepliedEvent struct {
	Machine *Machine
	Reply   *sandbox.Reply
}

func (e *RepliedEvent) EventName() string {
	return EventReplied
}
