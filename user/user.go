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

// Package user holds the per-address session record: language,
// answers, the current state's descriptor, and whether a session is
// open.
//
// Records are stored as JSON in the sandbox key-value store under
// "users.<addr>" (or "users.<store>.<addr>").  Writes are
// last-writer-wins.
package user

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/praekeltfoundation/vumigo/events"
	"github.com/praekeltfoundation/vumigo/sandbox"
	"github.com/praekeltfoundation/vumigo/translate"
)

// ErrNotFound is returned by Load when there's no record for the
// address.  It's an expected outcome.
var ErrNotFound = errors.New("user not found")

// Event names.
const (
	EventNew   = "user:new"
	EventLoad  = "user:load"
	EventReset = "user:reset"
	EventSave  = "user:save"
	EventLang  = "user:lang"
)

// Event is emitted on the User's Emitter.
type Event struct {
	Name string
	User *User
}

func (e *Event) EventName() string {
	return e.Name
}

// User is one address's session record.
type User struct {
	*events.Emitter

	Addr      string
	Lang      string
	Answers   map[string]string
	State     StateData
	InSession bool

	kv        sandbox.KV
	storeName string
}

// Option configures a User.
type Option func(*User)

// WithStoreName namespaces the record's key.
func WithStoreName(name string) Option {
	return func(u *User) {
		u.storeName = name
	}
}

// New makes an empty User backed by the given store.
func New(kv sandbox.KV, opts ...Option) *User {
	u := &User{
		Emitter: events.NewEmitter(),
		kv:      kv,
	}
	for _, opt := range opts {
		opt(u)
	}
	u.init("")
	return u
}

func (u *User) init(addr string) {
	u.Addr = addr
	u.Lang = ""
	u.Answers = make(map[string]string)
	u.State = NewStateData("", nil, nil)
	u.InSession = false
}

func (u *User) emit(ctx context.Context, name string) error {
	return u.Emit(ctx, &Event{
		Name: name,
		User: u,
	})
}

// Key returns the key for the given address.
func (u *User) Key() string {
	if u.storeName == "" {
		return "users." + u.Addr
	}
	return "users." + u.storeName + "." + u.Addr
}

// Load reads the record for the address.
//
// Returns ErrNotFound if there isn't one.
func (u *User) Load(ctx context.Context, addr string) error {
	u.Addr = addr
	js, found, err := u.kv.Get(ctx, u.Key())
	if err != nil {
		return sandbox.Wrap("kv.get", err)
	}
	if !found || len(js) == 0 || string(js) == "null" {
		return ErrNotFound
	}
	if err = u.Deserialize(js); err != nil {
		return err
	}
	u.Addr = addr
	return u.emit(ctx, EventLoad)
}

// LoadOrCreate loads the record or creates a new one if there isn't
// one.
func (u *User) LoadOrCreate(ctx context.Context, addr string) error {
	err := u.Load(ctx, addr)
	if errors.Is(err, ErrNotFound) {
		return u.Create(ctx, addr)
	}
	return err
}

// Create initializes a fresh record.  Nothing is written until Save.
func (u *User) Create(ctx context.Context, addr string) error {
	u.init(addr)
	return u.emit(ctx, EventNew)
}

// Reset discards everything but the address.
func (u *User) Reset(ctx context.Context) error {
	u.init(u.Addr)
	return u.emit(ctx, EventReset)
}

// Save writes the record.
func (u *User) Save(ctx context.Context) error {
	js, err := u.Serialize()
	if err != nil {
		return err
	}
	if err = u.kv.Set(ctx, u.Key(), js); err != nil {
		return sandbox.Wrap("kv.set", err)
	}
	return u.emit(ctx, EventSave)
}

// SetLang changes the user's language.
//
// Listeners for EventLang (the machine refreshes its translator) have
// finished when SetLang returns.
func (u *User) SetLang(ctx context.Context, lang string) error {
	lang, err := translate.Normalize(lang)
	if err != nil {
		return err
	}
	u.Lang = lang
	return u.emit(ctx, EventLang)
}

// SetAnswer records the answer given in the named state.
func (u *User) SetAnswer(stateName, value string) {
	u.Answers[stateName] = value
}

// GetAnswer returns the answer given in the named state, if any.
func (u *User) GetAnswer(stateName string) (string, bool) {
	v, have := u.Answers[stateName]
	return v, have
}

// record is the stored form of a User.
type record struct {
	Addr      string            `json:"addr"`
	Lang      *string           `json:"lang"`
	Answers   map[string]string `json:"answers"`
	State     StateData         `json:"state"`
	InSession bool              `json:"in_session"`
}

// Serialize renders the record as JSON.
func (u *User) Serialize() ([]byte, error) {
	r := record{
		Addr:      u.Addr,
		Answers:   u.Answers,
		State:     u.State,
		InSession: u.InSession,
	}
	if r.Answers == nil {
		r.Answers = map[string]string{}
	}
	if u.Lang != "" {
		lang := u.Lang
		r.Lang = &lang
	}
	return json.Marshal(&r)
}

// Deserialize replaces the record with the given JSON.
func (u *User) Deserialize(js []byte) error {
	var r record
	if err := json.Unmarshal(js, &r); err != nil {
		return err
	}
	u.Addr = r.Addr
	u.Lang = ""
	if r.Lang != nil {
		u.Lang = *r.Lang
	}
	u.Answers = r.Answers
	if u.Answers == nil {
		u.Answers = make(map[string]string)
	}
	u.State = r.State
	if u.State.Metadata == nil || u.State.CreatorOpts == nil {
		u.State = NewStateData(u.State.Name, u.State.Metadata, u.State.CreatorOpts)
	}
	u.InSession = r.InSession
	return nil
}
