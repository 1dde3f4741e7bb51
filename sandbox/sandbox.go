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

// Package sandbox defines the boundary between the interaction
// machine and the host that runs it.
//
// The host delivers one Command per invocation and provides storage,
// configuration, outbound replies, HTTP and logging through an API.
// The machine calls API.Done exactly once per invocation.
package sandbox

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// Session events carried by an inbound Message.
const (
	SessionNew    = "new"
	SessionResume = "resume"
	SessionClose  = "close"
)

// Command types.
const (
	CmdInboundMessage = "inbound-message"
	CmdInboundEvent   = "inbound-event"
)

// Message is an inbound user message.
type Message struct {
	MessageID     string  `json:"message_id"`
	FromAddr      string  `json:"from_addr"`
	ToAddr        string  `json:"to_addr,omitempty"`
	Content       *string `json:"content"`
	SessionEvent  string  `json:"session_event,omitempty"`
	TransportName string  `json:"transport_name,omitempty"`
	TransportType string  `json:"transport_type,omitempty"`

	HelperMetadata map[string]interface{} `json:"helper_metadata,omitempty"`
}

// HasContent reports whether the message carries content (which
// might be the empty string).
func (m *Message) HasContent() bool {
	return m != nil && m.Content != nil
}

// ContentString returns the content or "" if there isn't any.
func (m *Message) ContentString() string {
	if !m.HasContent() {
		return ""
	}
	return *m.Content
}

// SetContent replaces the message content.
func (m *Message) SetContent(s string) {
	m.Content = &s
}

// TransportEvent is an acknowledgement or delivery report for a
// message sent earlier.
type TransportEvent struct {
	EventID        string `json:"event_id,omitempty"`
	EventType      string `json:"event_type"`
	UserMessageID  string `json:"user_message_id,omitempty"`
	SentMessageID  string `json:"sent_message_id,omitempty"`
	DeliveryStatus string `json:"delivery_status,omitempty"`
	NackReason     string `json:"nack_reason,omitempty"`
}

// Command is what the host hands the machine for one invocation.
type Command struct {
	Cmd   string          `json:"cmd"`
	Msg   *Message        `json:"msg,omitempty"`
	Event *TransportEvent `json:"event,omitempty"`

	// Raw is the command as the host received it, when available.
	Raw json.RawMessage `json:"-"`
}

// Reply is the single outbound message produced for an inbound
// message.
type Reply struct {
	Content         string `json:"content"`
	InReplyTo       string `json:"in_reply_to"`
	ContinueSession bool   `json:"continue_session"`

	// ToAddr is informational.  Hosts route replies by InReplyTo.
	ToAddr string `json:"to_addr,omitempty"`
}

// Level is a log level understood by the host.
type Level int

const (
	Debug Level = iota
	Info
	Warning
	Error
	Critical
)

var levelNames = []string{"debug", "info", "warning", "error", "critical"}

func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "unknown"
	}
	return levelNames[l]
}

// ParseLevel is the inverse of Level.String.  Unknown names give
// Info.
func ParseLevel(s string) Level {
	s = strings.ToLower(s)
	for i, name := range levelNames {
		if name == s {
			return Level(i)
		}
	}
	return Info
}

// KV is the key-value collaborator used to persist session records.
//
// Get returns found=false (and no error) when the key is absent.
type KV interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}

// Config is the configuration collaborator.
type Config interface {
	GetConfig(ctx context.Context, key string) (value []byte, found bool, err error)
}

// Outbound sends replies.
type Outbound interface {
	ReplyTo(ctx context.Context, r *Reply) error
}

// Logger accepts leveled log messages.
type Logger interface {
	Log(ctx context.Context, level Level, msg string) error
}

// HTTPRequest is an HTTP request made on behalf of the application.
type HTTPRequest struct {
	Method  string      `json:"method,omitempty"`
	URL     string      `json:"url"`
	Headers http.Header `json:"headers,omitempty"`
	Body    string      `json:"body,omitempty"`
}

// HTTPResponse is the response to an HTTPRequest.
type HTTPResponse struct {
	StatusCode int         `json:"code"`
	Headers    http.Header `json:"headers,omitempty"`
	Body       string      `json:"body,omitempty"`
}

// HTTP performs requests on behalf of the application.
type HTTP interface {
	Fetch(ctx context.Context, r *HTTPRequest) (*HTTPResponse, error)
}

// API is everything the host provides for one invocation.
type API interface {
	KV
	Config
	Outbound
	Logger
	HTTP

	// Done ends the invocation.
	Done(ctx context.Context) error
}
