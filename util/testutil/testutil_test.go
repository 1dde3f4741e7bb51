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


package testutil

import (
	"reflect"
	"testing"

	"github.com/praekeltfoundation/vumigo/sandbox"
)

func TestJS(t *testing.T) {
	r := &sandbox.Reply{Content: "Bye.", InReplyTo: "m1"}
	if got := JS(r); got != `{"content":"Bye.","in_reply_to":"m1","continue_session":false}` {
		t.Fatal(got)
	}
	if got := JS(func() {}); got == "" {
		t.Fatal("nothing rendered for a func")
	}
}

func TestDwimjs(t *testing.T) {
	for _, tc := range []struct {
		in   interface{}
		want interface{}
	}{
		{`{"cmd":"inbound-message"}`, map[string]interface{}{"cmd": "inbound-message"}},
		{[]byte(`["a",1]`), []interface{}{"a", float64(1)}},
		{"*120#", "*120#"},
		{42, 42},
	} {
		if got := Dwimjs(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%#v: %#v", tc.in, got)
		}
	}
}

func TestBuilders(t *testing.T) {
	c := Resume("+27123", "hi")
	if c.Cmd != "inbound-message" || c.Msg.ContentString() != "hi" || c.Msg.SessionEvent != "resume" {
		t.Fatal(JS(c))
	}
	if c.Msg.MessageID == "" || c.Msg.MessageID == Resume("+27123", "hi").Msg.MessageID {
		t.Fatal("message ids should be unique")
	}
	if Start("+27123").Msg.HasContent() {
		t.Fatal("start has content")
	}
	if c = Close("+27123"); c.Msg.SessionEvent != sandbox.SessionClose || c.Msg.HasContent() {
		t.Fatal(JS(c))
	}
	if !Resume("+27123", "").Msg.HasContent() {
		t.Fatal("empty content is still content")
	}
}
