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

package user

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/praekeltfoundation/vumigo/events"
	"github.com/praekeltfoundation/vumigo/sandbox"
	"github.com/praekeltfoundation/vumigo/sandbox/dummy"
)

func TestLoadNotFound(t *testing.T) {
	ctx := context.Background()
	u := New(dummy.New())
	if err := u.Load(ctx, "+27123"); !errors.Is(err, ErrNotFound) {
		t.Fatal(err)
	}
}

func TestLoadOrCreate(t *testing.T) {
	var (
		ctx     = context.Background()
		api     = dummy.New()
		u       = New(api)
		created = 0
	)
	u.On(EventNew, func(ctx context.Context, e events.Event) error {
		created++
		return nil
	})

	if err := u.LoadOrCreate(ctx, "+27123"); err != nil {
		t.Fatal(err)
	}
	if created != 1 {
		t.Fatal(created)
	}
	if u.State.Exists() {
		t.Fatal(u.State.Name)
	}

	u.SetAnswer("name", "Jane")
	u.State.Reset("question", map[string]interface{}{"page": 2.0}, nil)
	if err := u.Save(ctx); err != nil {
		t.Fatal(err)
	}
	if _, have := api.KV["users.+27123"]; !have {
		t.Fatal("not saved")
	}

	v := New(api)
	if err := v.LoadOrCreate(ctx, "+27123"); err != nil {
		t.Fatal(err)
	}
	if created != 1 {
		t.Fatal(created)
	}
	if a, have := v.GetAnswer("name"); !have || a != "Jane" {
		t.Fatal(a)
	}
	if !v.State.Is("question") {
		t.Fatal(v.State.Name)
	}
	if v.State.Metadata["page"] != 2.0 {
		t.Fatal(v.State.Metadata)
	}
}

func TestGetAnswerAbsent(t *testing.T) {
	u := New(dummy.New())
	if a, have := u.GetAnswer("nope"); have || a != "" {
		t.Fatal(a)
	}
}

func TestStoreName(t *testing.T) {
	u := New(dummy.New(), WithStoreName("quiz"))
	u.Addr = "+27123"
	if k := u.Key(); k != "users.quiz.+27123" {
		t.Fatal(k)
	}
}

func TestSaveFailure(t *testing.T) {
	api := dummy.New()
	api.FailSet = errors.New("disk full")
	u := New(api)
	err := u.Save(context.Background())
	if !sandbox.IsRequestError(err) {
		t.Fatal(err)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	u := New(dummy.New())
	u.Addr = "+27123"
	u.Lang = "af"
	u.InSession = true
	u.SetAnswer("a", "1")
	u.State.Reset("a", map[string]interface{}{"n": 1.0}, map[string]interface{}{"x": "y"})

	js, err := u.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	v := New(dummy.New())
	if err = v.Deserialize(js); err != nil {
		t.Fatal(err)
	}
	again, err := v.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	if string(js) != string(again) {
		t.Fatalf("%s != %s", js, again)
	}
}

func TestNullName(t *testing.T) {
	u := New(dummy.New())
	js, err := u.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	s := string(js)
	if !strings.Contains(s, `"name":null`) || !strings.Contains(s, `"lang":null`) {
		t.Fatal(s)
	}
}

func TestSetLang(t *testing.T) {
	var (
		ctx  = context.Background()
		u    = New(dummy.New())
		seen string
	)
	u.On(EventLang, func(ctx context.Context, e events.Event) error {
		seen = e.(*Event).User.Lang
		return nil
	})
	if err := u.SetLang(ctx, "AF"); err != nil {
		t.Fatal(err)
	}
	if seen != "af" || u.Lang != "af" {
		t.Fatal(seen)
	}
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	u := New(dummy.New())
	if err := u.Create(ctx, "+27123"); err != nil {
		t.Fatal(err)
	}
	u.SetAnswer("a", "b")
	u.Lang = "af"
	u.State.Reset("a", nil, nil)
	if err := u.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	if u.Addr != "+27123" || len(u.Answers) != 0 || u.State.Exists() || u.Lang != "" {
		t.Fatal(u)
	}
}
