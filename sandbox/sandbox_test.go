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


package sandbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestMessageContent(t *testing.T) {
	var m Message
	if err := json.Unmarshal([]byte(`{"from_addr":"+1","content":null}`), &m); err != nil {
		t.Fatal(err)
	}
	if m.HasContent() || m.ContentString() != "" {
		t.Fatal("null content")
	}

	if err := json.Unmarshal([]byte(`{"from_addr":"+1","content":""}`), &m); err != nil {
		t.Fatal(err)
	}
	if !m.HasContent() {
		t.Fatal("empty content should count")
	}

	m.SetContent("hi")
	if m.ContentString() != "hi" {
		t.Fatal(m.ContentString())
	}

	var nothing *Message
	if nothing.HasContent() {
		t.Fatal("nil message")
	}
}

func TestLevels(t *testing.T) {
	for l := Debug; l <= Critical; l++ {
		if ParseLevel(l.String()) != l {
			t.Fatal(l)
		}
	}
	if ParseLevel("WARNING") != Warning {
		t.Fatal("case")
	}
	if ParseLevel("tacos") != Info {
		t.Fatal("default")
	}
	if Level(42).String() != "unknown" {
		t.Fatal(Level(42).String())
	}
}

func TestWrap(t *testing.T) {
	if Wrap("kv.get", nil) != nil {
		t.Fatal("nil")
	}
	cause := fmt.Errorf("disk full")
	err := Wrap("kv.set", cause)
	if !IsRequestError(err) || !errors.Is(err, cause) {
		t.Fatal(err)
	}
	if again := Wrap("outbound", err); again != err {
		t.Fatal(again)
	}
	if IsRequestError(cause) {
		t.Fatal(cause)
	}
	if !IsRequestError(fmt.Errorf("context: %w", err)) {
		t.Fatal("wrapped")
	}
}
