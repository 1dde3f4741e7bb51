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

// Package dummy provides an in-memory sandbox.API.
//
// Everything the machine does through the API is recorded so tests
// can look at it afterwards.
package dummy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/praekeltfoundation/vumigo/sandbox"
)

// LogEntry is one recorded log call.
type LogEntry struct {
	Level sandbox.Level
	Msg   string
}

func (e LogEntry) String() string {
	return e.Level.String() + " " + e.Msg
}

// API is a sandbox.API that keeps everything in memory.
type API struct {
	sync.Mutex

	// KV holds the key-value store.
	KV map[string][]byte

	// Config holds raw config values.
	Config map[string][]byte

	// Replies are the replies sent so far.
	Replies []*sandbox.Reply

	// Logs are the log calls so far.
	Logs []LogEntry

	// DoneCalls counts calls to Done.
	DoneCalls int

	// Fixtures are canned HTTP responses keyed by URL.
	Fixtures map[string]*sandbox.HTTPResponse

	// Requests are the HTTP requests made so far.
	Requests []*sandbox.HTTPRequest

	// FailSet, FailGet and FailReply simulate broken
	// collaborators.
	FailSet   error
	FailGet   error
	FailReply error
}

// New makes an empty API.
func New() *API {
	return &API{
		KV:       make(map[string][]byte),
		Config:   make(map[string][]byte),
		Fixtures: make(map[string]*sandbox.HTTPResponse),
	}
}

// SetConfig stores x as JSON under the given key.
func (a *API) SetConfig(key string, x interface{}) error {
	js, err := json.Marshal(&x)
	if err != nil {
		return err
	}
	a.Lock()
	a.Config[key] = js
	a.Unlock()
	return nil
}

// SetKV stores x as JSON under the given key.
func (a *API) SetKV(key string, x interface{}) error {
	js, err := json.Marshal(&x)
	if err != nil {
		return err
	}
	a.Lock()
	a.KV[key] = js
	a.Unlock()
	return nil
}

func (a *API) Get(ctx context.Context, key string) ([]byte, bool, error) {
	a.Lock()
	defer a.Unlock()
	if a.FailGet != nil {
		return nil, false, a.FailGet
	}
	v, have := a.KV[key]
	return v, have, nil
}

func (a *API) Set(ctx context.Context, key string, value []byte) error {
	a.Lock()
	defer a.Unlock()
	if a.FailSet != nil {
		return a.FailSet
	}
	a.KV[key] = append([]byte(nil), value...)
	return nil
}

func (a *API) GetConfig(ctx context.Context, key string) ([]byte, bool, error) {
	a.Lock()
	defer a.Unlock()
	v, have := a.Config[key]
	return v, have, nil
}

func (a *API) ReplyTo(ctx context.Context, r *sandbox.Reply) error {
	a.Lock()
	defer a.Unlock()
	if a.FailReply != nil {
		return a.FailReply
	}
	a.Replies = append(a.Replies, r)
	return nil
}

func (a *API) Log(ctx context.Context, level sandbox.Level, msg string) error {
	a.Lock()
	a.Logs = append(a.Logs, LogEntry{
		Level: level,
		Msg:   msg,
	})
	a.Unlock()
	return nil
}

// ErrNoFixture is returned by Fetch for URLs without a fixture.
var ErrNoFixture = errors.New("no HTTP fixture")

func (a *API) Fetch(ctx context.Context, r *sandbox.HTTPRequest) (*sandbox.HTTPResponse, error) {
	a.Lock()
	defer a.Unlock()
	a.Requests = append(a.Requests, r)
	resp, have := a.Fixtures[r.URL]
	if !have {
		return nil, fmt.Errorf("%w for %s", ErrNoFixture, r.URL)
	}
	return resp, nil
}

func (a *API) Done(ctx context.Context) error {
	a.Lock()
	a.DoneCalls++
	a.Unlock()
	return nil
}

// LastReply returns the most recent reply (or nil).
func (a *API) LastReply() *sandbox.Reply {
	a.Lock()
	defer a.Unlock()
	if len(a.Replies) == 0 {
		return nil
	}
	return a.Replies[len(a.Replies)-1]
}

// Logged reports whether some log message contains the given
// substring.
func (a *API) Logged(substr string) bool {
	a.Lock()
	defer a.Unlock()
	for _, e := range a.Logs {
		if strings.Contains(e.Msg, substr) {
			return true
		}
	}
	return false
}

// Reset forgets replies, logs, requests and done calls but keeps the
// KV, config and fixtures.  Useful between messages in a test
// conversation.
func (a *API) Reset() {
	a.Lock()
	a.Replies = nil
	a.Logs = nil
	a.Requests = nil
	a.DoneCalls = 0
	a.Unlock()
}
