/* Copyright 2018 Comcast Cable Communications Management, LLC
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

// Package testutil has helpers for tests: JSON rendering and inbound
// command builders.
package testutil

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/praekeltfoundation/vumigo/sandbox"
)

// JS renders its argument as JSON or as a string indicating an error.
func JS(x interface{}) string {
	bs, err := json.Marshal(&x)
	if err != nil {
		log.Printf("warning: testutil.JS error %s for %#v", err, x)
		return fmt.Sprintf("%#v", x)
	}
	return string(bs)
}

// Dwimjs, when given a string or bytes that parse as JSON, returns
// the parsed value.  Otherwise just returns what's given.
//
// See https://en.wikipedia.org/wiki/DWIM.
func Dwimjs(x interface{}) interface{} {
	switch vv := x.(type) {
	case []byte:
		return Dwimjs(string(vv))
	case string:
		var v interface{}
		if err := json.Unmarshal([]byte(vv), &v); err != nil {
			return vv
		}
		return v
	default:
		return x
	}
}

// Content returns a pointer to s.
func Content(s string) *string {
	return &s
}

// Msg makes an inbound message with a fresh message id.
func Msg(from string, content *string, sessionEvent string) *sandbox.Message {
	return &sandbox.Message{
		MessageID:     uuid.NewString(),
		FromAddr:      from,
		ToAddr:        "*120#",
		Content:       content,
		SessionEvent:  sessionEvent,
		TransportName: "test",
		TransportType: "ussd",
	}
}

// Inbound wraps a message in an inbound-message command.
func Inbound(msg *sandbox.Message) *sandbox.Command {
	return &sandbox.Command{
		Cmd: sandbox.CmdInboundMessage,
		Msg: msg,
	}
}

// Start is a new session without content.
func Start(from string) *sandbox.Command {
	return Inbound(Msg(from, nil, sandbox.SessionNew))
}

// Resume is a continuing session with the given content.
func Resume(from, content string) *sandbox.Command {
	return Inbound(Msg(from, Content(content), sandbox.SessionResume))
}

// Close is a session closed by the transport.
func Close(from string) *sandbox.Command {
	return Inbound(Msg(from, nil, sandbox.SessionClose))
}
