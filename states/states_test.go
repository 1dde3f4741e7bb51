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

package states

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praekeltfoundation/vumigo/events"
	"github.com/praekeltfoundation/vumigo/sandbox"
	"github.com/praekeltfoundation/vumigo/sandbox/dummy"
	"github.com/praekeltfoundation/vumigo/translate"
	"github.com/praekeltfoundation/vumigo/user"
)

type fakeMachine struct {
	u    *user.User
	i18n *translate.Translator
	next *Transition
}

func newFakeMachine() *fakeMachine {
	return &fakeMachine{
		u:    user.New(dummy.New()),
		i18n: translate.Noop("en"),
	}
}

func (m *fakeMachine) User() *user.User { return m.u }
func (m *fakeMachine) I18n() *translate.Translator { return m.i18n }
func (m *fakeMachine) Msg() *sandbox.Message { return nil }
func (m *fakeMachine) Log(context.Context, sandbox.Level, string) {}

func (m *fakeMachine) SetNextState(ctx context.Context, name string, opts map[string]interface{}) error {
	m.next = &Transition{Name: name, Opts: opts}
	return nil
}

func activate(t *testing.T, s State, m *fakeMachine) {
	ctx := context.Background()
	require.NoError(t, s.Setup(ctx, m))
	require.NoError(t, s.Translate(m.i18n))
	require.NoError(t, s.Enter(ctx))
}

func display(t *testing.T, s State) string {
	x, err := s.Display(context.Background())
	require.NoError(t, err)
	return x
}

func TestBaseLifecycle(t *testing.T) {
	var (
		ctx  = context.Background()
		s    = NewBaseState("a")
		m    = newFakeMachine()
		seen []string
	)
	for _, name := range []string{EventSetup, EventEnter, EventExit, EventInput} {
		require.NoError(t, s.Events().On(name, func(ctx context.Context, e events.Event) error {
			seen = append(seen, e.EventName())
			return nil
		}))
	}
	activate(t, s, m)
	require.NoError(t, s.Input(ctx, "x"))
	require.NoError(t, s.Exit(ctx))

	assert.Equal(t, []string{EventSetup, EventEnter, EventInput, EventExit}, seen)
	assert.Nil(t, s.Machine())
	assert.Equal(t, ErrNoMachine, s.SaveResponse("x"))
	assert.True(t, s.ContinueSession())
	assert.True(t, s.SendReply())
}

func TestFreeText(t *testing.T) {
	ctx := context.Background()
	m := newFakeMachine()
	s := NewFreeText("name", "What is your name?", To("done"))
	s.Check = func(ctx context.Context, answer string) (string, error) {
		if answer == "" {
			return "Please tell us your name.", nil
		}
		return "", nil
	}
	activate(t, s, m)

	assert.Equal(t, "What is your name?", display(t, s))

	require.NoError(t, s.Input(ctx, ""))
	assert.Nil(t, m.next)
	assert.Equal(t, "Please tell us your name.", display(t, s))

	require.NoError(t, s.Input(ctx, "Jane"))
	require.NotNil(t, m.next)
	assert.Equal(t, "done", m.next.Name)
	a, have := m.u.GetAnswer("name")
	assert.True(t, have)
	assert.Equal(t, "Jane", a)
}

func TestFreeTextTranslated(t *testing.T) {
	m := newFakeMachine()
	tr, err := translate.New("af", []byte(`{"Hello?":"Hallo?"}`))
	require.NoError(t, err)
	m.i18n = tr
	s := NewFreeText("q", "Hello?", nil)
	activate(t, s, m)
	assert.Equal(t, "Hallo?", display(t, s))
}

func TestChoice(t *testing.T) {
	ctx := context.Background()
	m := newFakeMachine()
	s := NewChoice("colour", "Favourite colour?", []Option{
		{Value: "red", Label: "Red"},
		{Value: "blue", Label: "Blue"},
	}, To("thanks"))
	s.Error = "Not a colour. Favourite colour?"
	s.AcceptLabels = true
	activate(t, s, m)

	assert.Equal(t, "Favourite colour?\n1. Red\n2. Blue", display(t, s))

	require.NoError(t, s.Input(ctx, "7"))
	assert.Nil(t, m.next)
	assert.True(t, strings.HasPrefix(display(t, s), "Not a colour."))

	require.NoError(t, s.Input(ctx, "blue"))
	require.NotNil(t, m.next)
	assert.Equal(t, "thanks", m.next.Name)
	a, _ := m.u.GetAnswer("colour")
	assert.Equal(t, "blue", a)
}

func TestMenu(t *testing.T) {
	ctx := context.Background()
	m := newFakeMachine()
	s := NewMenu("main", "Main menu", []Option{
		{Value: "weather", Label: "Weather"},
		{Value: "news", Label: "News"},
	})
	activate(t, s, m)

	require.NoError(t, s.Input(ctx, "news"))
	assert.Nil(t, m.next, "labels aren't accepted by default")

	require.NoError(t, s.Input(ctx, " 2 "))
	require.NotNil(t, m.next)
	assert.Equal(t, "news", m.next.Name)
}

func TestEnd(t *testing.T) {
	ctx := context.Background()
	m := newFakeMachine()
	s := NewEnd("bye", "Goodbye.", "start")
	activate(t, s, m)

	assert.False(t, s.ContinueSession())
	assert.Equal(t, "Goodbye.", display(t, s))

	require.NoError(t, s.Events().Emit(ctx, &SessionEvent{Name: EventSessionClose}))
	require.NotNil(t, m.next)
	assert.Equal(t, "start", m.next.Name)

	m.next = nil
	require.NoError(t, s.Events().Emit(ctx, &SessionEvent{Name: EventSessionNew}))
	require.NotNil(t, m.next)
	assert.Equal(t, "start", m.next.Name)
}

func TestErrorState(t *testing.T) {
	m := newFakeMachine()
	s := NewErrorState("__error__", "start")
	activate(t, s, m)
	assert.Equal(t, "An error occurred. Please try again later.", display(t, s))
	assert.Equal(t, "start", s.Next)
}

func TestPaginated(t *testing.T) {
	ctx := context.Background()
	m := newFakeMachine()
	words := strings.Repeat("lorem ipsum ", 30)
	s := NewPaginated("story", words, To("done"))
	s.CharactersPerPage = 80
	activate(t, s, m)

	pages := s.Pages()
	require.True(t, 2 < len(pages), "%d pages", len(pages))

	first := display(t, s)
	assert.True(t, len(first) <= 80, first)
	assert.True(t, strings.HasSuffix(first, "1. More\n2. Exit"), first)

	require.NoError(t, s.Input(ctx, "1"))
	assert.Equal(t, 1, s.Page())
	assert.True(t, strings.HasSuffix(display(t, s), "1. More\n2. Back\n3. Exit"))

	require.NoError(t, s.Input(ctx, "2"))
	assert.Equal(t, 0, s.Page())

	require.NoError(t, s.Input(ctx, "nonsense"))
	assert.Equal(t, 0, s.Page())
	assert.Nil(t, m.next)

	require.NoError(t, s.Input(ctx, "2"))
	require.NotNil(t, m.next)
	assert.Equal(t, "done", m.next.Name)
}

func TestPaginatedRestoredPage(t *testing.T) {
	s := NewPaginated("story", strings.Repeat("abc ", 100), nil)
	s.SetMetadata(map[string]interface{}{"page": 2.0})
	assert.Equal(t, 2, s.Page())

	s.SetMetadata(map[string]interface{}{"page": -3.0})
	assert.Equal(t, 0, s.Page())
	activate(t, s, newFakeMachine())
	assert.True(t, strings.HasPrefix(display(t, s), "abc abc"))
}

func TestPaginatedMultibyte(t *testing.T) {
	for _, text := range []string{
		strings.Repeat("é", 400),
		strings.Repeat("日本語 ", 80),
		strings.Repeat("ünïcödé", 50),
	} {
		s := NewPaginated("story", text, nil)
		s.CharactersPerPage = 40
		activate(t, s, newFakeMachine())

		pages := s.Pages()
		require.True(t, 1 < len(pages))
		var total int
		for _, page := range pages {
			require.True(t, utf8.ValidString(page), "%q", page)
			n := utf8.RuneCountInString(page)
			assert.True(t, 0 < n && n <= 40, "%q", page)
			total += utf8.RuneCountInString(strings.Replace(page, " ", "", -1))
		}
		assert.Equal(t, utf8.RuneCountInString(strings.Replace(text, " ", "", -1)), total)

		first := display(t, s)
		assert.True(t, utf8.ValidString(first), first)
		assert.True(t, utf8.RuneCountInString(first) <= 40, first)
	}
}
