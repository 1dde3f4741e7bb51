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

package sio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/praekeltfoundation/vumigo/app"
	"github.com/praekeltfoundation/vumigo/interaction"
	"github.com/praekeltfoundation/vumigo/sandbox"
)

// LogEntry is a log line from an invocation.
type LogEntry struct {
	Level string `json:"level"`
	Msg   string `json:"msg"`
}

// Result represents all visible output from processing a command.
type Result struct {
	Cmd     *sandbox.Command `json:"-"`
	Replies []*sandbox.Reply `json:"replies"`
	Logs    []LogEntry       `json:"logs,omitempty"`

	// Err is the error (if any) returned by the machine.
	Err string `json:"err,omitempty"`
}

// Host runs a fresh interaction machine for every command.
type Host struct {
	Conf *HostConf

	// Store holds user records.
	Store sandbox.KV

	// NewApp makes the app for one invocation.
	NewApp func(ctx context.Context) (*app.App, error)

	// Verbose turns on logging.
	Verbose bool

	// KeepLogs copies invocation logs into each Result.
	KeepLogs bool

	config map[string][]byte
	jar    *Jar

	// Commands are processed one at a time so that a user's
	// record isn't written by two machines at once.
	sync.Mutex
}

// NewHost makes a Host.  The conf can be nil.
func NewHost(conf *HostConf, store sandbox.KV, newApp func(context.Context) (*app.App, error)) (*Host, error) {
	if conf == nil {
		conf = NewHostConf()
	}
	config, err := conf.SandboxConfig()
	if err != nil {
		return nil, err
	}
	jar, err := NewJar()
	if err != nil {
		return nil, err
	}
	return &Host{
		Conf:    conf,
		Store:   store,
		NewApp:  newApp,
		Verbose: conf.Verbose,
		config:  config,
		jar:     jar,
	}, nil
}

// Logf logs if h.Verbose.
func (h *Host) Logf(format string, args ...interface{}) {
	if !h.Verbose {
		return
	}
	log.Printf(format, args...)
}

// SetConfig sets a raw sandbox config value.
func (h *Host) SetConfig(key string, x interface{}) error {
	js, err := json.Marshal(stringKeys(x))
	if err != nil {
		return err
	}
	h.Lock()
	defer h.Unlock()
	if h.config == nil {
		h.config = make(map[string][]byte)
	}
	h.config[key] = js
	return nil
}

// ParseCommand reads a command.  A bare message (an object with a
// "from_addr" but no "cmd") is taken as an inbound message.
func ParseCommand(js []byte) (*sandbox.Command, error) {
	var probe map[string]interface{}
	if err := json.Unmarshal(js, &probe); err != nil {
		return nil, err
	}

	var cmd sandbox.Command
	if _, have := probe["cmd"]; !have {
		if _, have := probe["from_addr"]; !have {
			return nil, fmt.Errorf("not a command or message: %s", JShort(probe))
		}
		var msg sandbox.Message
		if err := json.Unmarshal(js, &msg); err != nil {
			return nil, err
		}
		cmd.Cmd = sandbox.CmdInboundMessage
		cmd.Msg = &msg
	} else if err := json.Unmarshal(js, &cmd); err != nil {
		return nil, err
	}
	cmd.Raw = append(json.RawMessage(nil), js...)
	return &cmd, nil
}

// ProcessCommand runs one invocation.
//
// A machine error is reported in Result.Err.  The returned error is
// for problems making the machine.
func (h *Host) ProcessCommand(ctx context.Context, cmd *sandbox.Command) (*Result, error) {
	if cmd == nil {
		return nil, errors.New("nil command")
	}
	if cmd.Msg != nil && cmd.Msg.MessageID == "" {
		cmd.Msg.MessageID = uuid.NewString()
	}
	h.Logf("Host.ProcessCommand %s", JS(cmd))

	h.Lock()
	defer h.Unlock()

	a, err := h.NewApp(ctx)
	if err != nil {
		return nil, err
	}

	inv := &Invocation{
		host: h,
		r: &Result{
			Cmd:     cmd,
			Replies: make([]*sandbox.Reply, 0, 1),
		},
	}

	im := interaction.New(inv, a)
	im.Verbose = h.Verbose
	if err := im.Dispatch(ctx, cmd); err != nil {
		h.Logf("Host.ProcessCommand error %s", err)
		inv.r.Err = err.Error()
	}
	if !inv.done {
		log.Printf("Host.ProcessCommand: invocation not done")
	}

	return inv.r, nil
}

// Loop processes commands from the couplings until the input is
// done (or the context is).
func (h *Host) Loop(ctx context.Context, couplings Couplings) error {
	in, out, done, err := couplings.IO(ctx)
	if err != nil {
		return err
	}
	h.Logf("Host.Loop starting")
LOOP:
	for {
		select {
		case <-ctx.Done():
			h.Logf("Host.Loop shutting down (ctx.Done)")
			break LOOP
		case <-done:
			h.Logf("Host.Loop shutting down (done)")
			break LOOP
		case cmd := <-in:
			if cmd == nil {
				break LOOP
			}
			r, err := h.ProcessCommand(ctx, cmd)
			if err != nil {
				log.Printf("ERROR Host.Loop ProcessCommand %s", err)
				r = &Result{
					Cmd: cmd,
					Err: err.Error(),
				}
			}
			select {
			case <-ctx.Done():
			case out <- r:
			}
		}
	}
	h.Logf("Host.Loop done")
	return nil
}

// Invocation is the sandbox.API for one command.
type Invocation struct {
	host *Host
	r    *Result
	done bool
}

func (i *Invocation) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return i.host.Store.Get(ctx, key)
}

func (i *Invocation) Set(ctx context.Context, key string, value []byte) error {
	return i.host.Store.Set(ctx, key, value)
}

func (i *Invocation) GetConfig(ctx context.Context, key string) ([]byte, bool, error) {
	bs, have := i.host.config[key]
	return bs, have, nil
}

func (i *Invocation) ReplyTo(ctx context.Context, r *sandbox.Reply) error {
	i.r.Replies = append(i.r.Replies, r)
	return nil
}

func (i *Invocation) Log(ctx context.Context, level sandbox.Level, msg string) error {
	if i.host.KeepLogs {
		i.r.Logs = append(i.r.Logs, LogEntry{
			Level: level.String(),
			Msg:   msg,
		})
	}
	if i.host.Verbose || sandbox.Warning <= level {
		log.Printf("%s %s", level, msg)
	}
	return nil
}

func (i *Invocation) Fetch(ctx context.Context, r *sandbox.HTTPRequest) (*sandbox.HTTPResponse, error) {
	req := &HTTPRequest{
		HTTPRequest: r,
		Timeout:     i.host.Conf.HTTPTimeout,
		CookieJar:   i.host.jar,
		Debug:       i.host.Verbose,
	}
	var resp *sandbox.HTTPResponse
	err := req.Do(ctx, func(ctx context.Context, r *sandbox.HTTPResponse) error {
		resp = r
		return nil
	})
	return resp, err
}

func (i *Invocation) Done(ctx context.Context) error {
	if i.done {
		return errors.New("invocation already done")
	}
	i.done = true
	return nil
}
