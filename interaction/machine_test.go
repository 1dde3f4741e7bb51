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
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praekeltfoundation/vumigo/app"
	"github.com/praekeltfoundation/vumigo/events"
	"github.com/praekeltfoundation/vumigo/sandbox"
	"github.com/praekeltfoundation/vumigo/sandbox/dummy"
	"github.com/praekeltfoundation/vumigo/states"
	"github.com/praekeltfoundation/vumigo/user"
	"github.com/praekeltfoundation/vumigo/util/testutil"
)

const addr = "+27123"

// abApp asks a question in A and says bye in B.
func abApp() *app.App {
	a := app.New("A")
	a.States.Add("A", func(ctx context.Context, name string, opts map[string]interface{}) (states.State, error) {
		return states.NewFreeText(name, "What's up?", states.To("B")), nil
	})
	a.States.Add("B", func(ctx context.Context, name string, opts map[string]interface{}) (states.State, error) {
		return states.NewEnd(name, "bye", "A"), nil
	})
	return a
}

func dispatch(t *testing.T, api *dummy.API, a *app.App, cmd *sandbox.Command) *Machine {
	im := New(api, a)
	require.NoError(t, im.Dispatch(context.Background(), cmd))
	return im
}

func saved(t *testing.T, api *dummy.API, key string) *user.User {
	js, have := api.KV[key]
	require.True(t, have, "no record at %s", key)
	u := user.New(api)
	require.NoError(t, u.Deserialize(js))
	return u
}

func TestConversation(t *testing.T) {
	var (
		api = dummy.New()
		a   = abApp()
	)

	first := testutil.Start(addr)
	dispatch(t, api, a, first)
	require.Len(t, api.Replies, 1)
	assert.Equal(t, "What's up?", api.Replies[0].Content)
	assert.Equal(t, first.Msg.MessageID, api.Replies[0].InReplyTo)
	assert.True(t, api.Replies[0].ContinueSession)

	second := testutil.Resume(addr, "hi")
	im := dispatch(t, api, a, second)
	require.Len(t, api.Replies, 2)
	assert.Equal(t, "bye", api.Replies[1].Content)
	assert.Equal(t, second.Msg.MessageID, api.Replies[1].InReplyTo)
	assert.False(t, api.Replies[1].ContinueSession)
	assert.Equal(t, "B", im.State().Name())

	u := saved(t, api, "users."+addr)
	assert.Equal(t, "A", u.State.Name)
	assert.False(t, u.InSession)
	answer, _ := u.GetAnswer("A")
	assert.Equal(t, "hi", answer)
	assert.Equal(t, 2, api.DoneCalls)

	dispatch(t, api, a, testutil.Start(addr))
	require.Len(t, api.Replies, 3)
	assert.Equal(t, "What's up?", api.Replies[2].Content)
}

func TestEndStateAdvancesOnNewSession(t *testing.T) {
	api := dummy.New()
	u := user.New(api)
	u.Addr = addr
	u.State.Reset("B", nil, nil)
	require.NoError(t, u.Save(context.Background()))

	im := dispatch(t, api, abApp(), testutil.Start(addr))
	require.Len(t, api.Replies, 1)
	assert.Equal(t, "What's up?", api.Replies[0].Content)
	assert.Equal(t, "A", im.State().Name())
}

func TestNoOpSwitch(t *testing.T) {
	var (
		ctx = context.Background()
		api = dummy.New()
		im  = New(api, abApp())
		n   = 0
	)
	require.NoError(t, im.Setup(ctx, testutil.Start(addr).Msg))
	require.Equal(t, "A", im.State().Name())

	count := func(ctx context.Context, e events.Event) error {
		n++
		return nil
	}
	im.On(EventStateEnter, count)
	im.On(EventStateExit, count)
	im.State().Events().On(states.EventExit, count)
	im.State().Events().On(states.EventEnter, count)

	before, err := im.User().Serialize()
	require.NoError(t, err)
	state := im.State()

	require.NoError(t, im.SwitchState(ctx, "A"))

	after, err := im.User().Serialize()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, string(before), string(after))
	assert.True(t, state == im.State())
}

func TestLifecycleOrder(t *testing.T) {
	var (
		ctx  = context.Background()
		api  = dummy.New()
		a    = app.New("A")
		seen []string
	)
	record := func(who string) events.Listener {
		return func(ctx context.Context, e events.Event) error {
			seen = append(seen, who+" "+e.EventName())
			return nil
		}
	}
	for _, name := range []string{"A", "B"} {
		a.States.Add(name, func(ctx context.Context, name string, opts map[string]interface{}) (states.State, error) {
			s := states.NewBaseState(name)
			s.Events().OnMany(map[string]events.Listener{
				states.EventSetup: record(name),
				states.EventEnter: record(name),
				states.EventExit:  record(name),
			})
			return s, nil
		})
	}

	im := New(api, a)
	im.On(EventStateEnter, func(ctx context.Context, e events.Event) error {
		seen = append(seen, "im state:enter "+e.(*StateEvent).State.Name())
		return nil
	})
	im.On(EventStateExit, func(ctx context.Context, e events.Event) error {
		seen = append(seen, "im state:exit "+e.(*StateEvent).State.Name())
		return nil
	})

	require.NoError(t, im.Setup(ctx, testutil.Start(addr).Msg))
	seen = nil
	require.NoError(t, im.SwitchState(ctx, "B"))

	assert.Equal(t, []string{
		"im state:exit A",
		"A state:exit",
		"im state:enter B",
		"B state:setup",
		"B state:enter",
	}, seen)
	assert.Equal(t, "B", im.User().State.Name)
}

func TestSuppressedReply(t *testing.T) {
	api := dummy.New()
	a := app.New("quiet")
	a.States.Add("quiet", func(ctx context.Context, name string, opts map[string]interface{}) (states.State, error) {
		s := states.NewBaseState(name)
		s.SetSendReply(false)
		return s, nil
	})

	im := dispatch(t, api, a, testutil.Start(addr))
	assert.Empty(t, api.Replies)
	assert.Equal(t, 1, api.DoneCalls)
	assert.Equal(t, "quiet", saved(t, api, "users."+addr).State.Name)
	assert.Equal(t, ErrAlreadyReplied, im.Reply(context.Background(), false))
}

func TestAlreadyReplied(t *testing.T) {
	api := dummy.New()
	im := dispatch(t, api, abApp(), testutil.Start(addr))
	assert.Equal(t, ErrAlreadyReplied, im.Reply(context.Background(), true))
	assert.Len(t, api.Replies, 1)
}

func TestUnknownState(t *testing.T) {
	api := dummy.New()
	u := user.New(api)
	u.Addr = addr
	u.State.Reset("does-not-exist", nil, nil)
	require.NoError(t, u.Save(context.Background()))

	im := dispatch(t, api, abApp(), testutil.Start(addr))
	assert.Equal(t, "A", im.State().Name())
	assert.True(t, api.Logged("Unknown state 'does-not-exist'. Switching to start state 'A'."))
	require.Len(t, api.Replies, 1)
	assert.Equal(t, "What's up?", api.Replies[0].Content)
}

func TestUnknownStartState(t *testing.T) {
	api := dummy.New()
	a := app.New("nowhere")

	im := dispatch(t, api, a, testutil.Start(addr))
	assert.Equal(t, app.ErrorStateName, im.State().Name())
	assert.True(t, api.Logged("Unknown start state 'nowhere'. Switching to error state."))
	require.Len(t, api.Replies, 1)
	assert.Equal(t, "An error occurred. Please try again later.", api.Replies[0].Content)
	assert.False(t, api.Replies[0].ContinueSession)
	assert.Equal(t, "nowhere", saved(t, api, "users."+addr).State.Name)
}

func TestRestart(t *testing.T) {
	var (
		api  = dummy.New()
		a    = app.New("A")
		seen []string
	)
	a.States.Add("A", func(ctx context.Context, name string, opts map[string]interface{}) (states.State, error) {
		s := states.NewFreeText(name, "Name?", states.To("B"))
		s.Check = func(ctx context.Context, answer string) (string, error) {
			if answer == "" {
				return "Name, please.", nil
			}
			return "", nil
		}
		s.Events().On(states.EventInput, func(ctx context.Context, e events.Event) error {
			seen = append(seen, e.(*states.InputEvent).Content)
			return nil
		})
		return s, nil
	})
	a.States.Add("B", func(ctx context.Context, name string, opts map[string]interface{}) (states.State, error) {
		return states.NewFreeText(name, "Age?", nil), nil
	})

	u := user.New(api)
	u.Addr = addr
	u.SetAnswer("A", "Jane")
	u.State.Reset("B", nil, nil)
	require.NoError(t, u.Save(context.Background()))

	im := dispatch(t, api, a, testutil.Resume(addr, RestartContent))
	assert.Equal(t, []string{""}, seen)
	assert.Equal(t, "", im.Msg().ContentString())
	require.Len(t, api.Replies, 1)
	assert.Equal(t, "Name, please.", api.Replies[0].Content)

	u = saved(t, api, "users."+addr)
	assert.Empty(t, u.Answers)
	assert.Equal(t, "A", u.State.Name)
}

func TestSessionClose(t *testing.T) {
	var (
		api     = dummy.New()
		a       = abApp()
		timeout *bool
	)
	u := user.New(api)
	u.Addr = addr
	u.InSession = true
	u.State.Reset("B", nil, nil)
	require.NoError(t, u.Save(context.Background()))

	im := New(api, a)
	im.On(EventSessionClose, func(ctx context.Context, e events.Event) error {
		pt := e.(*states.SessionEvent).PossibleTimeout
		timeout = &pt
		return nil
	})
	require.NoError(t, im.Dispatch(context.Background(), testutil.Close(addr)))

	assert.Empty(t, api.Replies)
	require.NotNil(t, timeout)
	assert.True(t, *timeout)
	u = saved(t, api, "users."+addr)
	assert.Equal(t, "A", u.State.Name)
	assert.False(t, u.InSession)
	assert.Equal(t, 1, api.DoneCalls)
}

func TestListenerError(t *testing.T) {
	var (
		api  = dummy.New()
		a    = app.New("A")
		errs []error
	)
	a.States.Add("A", func(ctx context.Context, name string, opts map[string]interface{}) (states.State, error) {
		s := states.NewFreeText(name, "Name?", states.To("A"))
		s.Events().On(states.EventInput, func(ctx context.Context, e events.Event) error {
			return errors.New("boom")
		})
		return s, nil
	})
	a.On(EventAppError, func(ctx context.Context, e events.Event) error {
		errs = append(errs, e.(*AppErrorEvent).Err)
		return nil
	})

	dispatch(t, api, a, testutil.Resume(addr, "hi"))

	require.Len(t, errs, 1)
	assert.EqualError(t, errs[0], "boom")
	require.Len(t, api.Replies, 1)
	assert.Equal(t, states.ErrorText, api.Replies[0].Content)
	assert.Equal(t, 1, api.DoneCalls)
	assert.True(t, api.Logged("boom"))
	assert.Equal(t, "A", saved(t, api, "users."+addr).State.Name)
}

func TestCreatorPanics(t *testing.T) {
	var (
		api  = dummy.New()
		a    = app.New("A")
		errs []error
	)
	a.States.Add("A", func(ctx context.Context, name string, opts map[string]interface{}) (states.State, error) {
		panic("tacos")
	})

	im := New(api, a)
	im.On(EventAppError, func(ctx context.Context, e events.Event) error {
		errs = append(errs, e.(*AppErrorEvent).Err)
		return nil
	})
	require.NoError(t, im.Dispatch(context.Background(), testutil.Start(addr)))

	require.NotEmpty(t, errs)
	var ce *CreationError
	require.True(t, errors.As(errs[0], &ce))
	var pe *PanicError
	require.True(t, errors.As(errs[0], &pe))
	assert.Equal(t, "tacos", pe.Value)

	require.Len(t, api.Replies, 1)
	assert.Equal(t, states.ErrorText, api.Replies[0].Content)
}

func TestBadCreators(t *testing.T) {
	for _, tc := range []struct {
		name    string
		creator app.Creator
		logged  string
	}{
		{
			name: "nil",
			creator: func(ctx context.Context, name string, opts map[string]interface{}) (states.State, error) {
				return nil, nil
			},
			logged: "State creator for 'A' did not produce a state.",
		},
		{
			name: "typed nil",
			creator: func(ctx context.Context, name string, opts map[string]interface{}) (states.State, error) {
				var s *states.End
				return s, nil
			},
			logged: "State creator for 'A' did not produce a state.",
		},
		{
			name: "misnamed",
			creator: func(ctx context.Context, name string, opts map[string]interface{}) (states.State, error) {
				return states.NewEnd("Z", "z", ""), nil
			},
			logged: "State creator for 'A' produced a state named 'Z'.",
		},
		{
			name: "failed",
			creator: func(ctx context.Context, name string, opts map[string]interface{}) (states.State, error) {
				return nil, fmt.Errorf("no backend")
			},
			logged: "no backend",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			api := dummy.New()
			a := app.New("A")
			require.NoError(t, a.States.Add("A", tc.creator))

			im := dispatch(t, api, a, testutil.Start(addr))
			assert.True(t, api.Logged(tc.logged), "%v", api.Logs)
			assert.Equal(t, app.ErrorStateName, im.State().Name())
			require.Len(t, api.Replies, 1)
			assert.Equal(t, states.ErrorText, api.Replies[0].Content)
		})
	}
}

func TestInfrastructureFailure(t *testing.T) {
	api := dummy.New()
	api.FailSet = errors.New("disk on fire")

	err := New(api, abApp()).Dispatch(context.Background(), testutil.Start(addr))
	require.Error(t, err)
	assert.True(t, sandbox.IsRequestError(err))
	assert.Empty(t, api.Replies)
	assert.Equal(t, 1, api.DoneCalls)

	critical := false
	for _, e := range api.Logs {
		if e.Level == sandbox.Critical && strings.Contains(e.Msg, "disk on fire") {
			critical = true
		}
	}
	assert.True(t, critical, "%v", api.Logs)
}

func TestReplyFailure(t *testing.T) {
	api := dummy.New()
	api.FailReply = errors.New("no route")

	err := New(api, abApp()).Dispatch(context.Background(), testutil.Start(addr))
	assert.True(t, sandbox.IsRequestError(err))
	assert.Equal(t, 1, api.DoneCalls)
}

func TestUnknownCommand(t *testing.T) {
	api := dummy.New()
	cmd := &sandbox.Command{
		Cmd: "bogus",
		Raw: []byte(`{"cmd":"bogus"}`),
	}
	require.NoError(t, New(api, abApp()).Dispatch(context.Background(), cmd))
	assert.True(t, api.Logged(`Unknown command: {"cmd":"bogus"}`))
	assert.Empty(t, api.Replies)
	assert.Empty(t, api.KV)
	assert.Equal(t, 1, api.DoneCalls)
}

func TestInboundEvent(t *testing.T) {
	var (
		api = dummy.New()
		im  = New(api, abApp())
		got *sandbox.TransportEvent
	)
	im.On(EventTransport, func(ctx context.Context, e events.Event) error {
		got = e.(*TransportEvent).Event
		return nil
	})
	cmd := &sandbox.Command{
		Cmd: sandbox.CmdInboundEvent,
		Event: &sandbox.TransportEvent{
			EventType:     "ack",
			UserMessageID: "m1",
		},
	}
	require.NoError(t, im.Dispatch(context.Background(), cmd))
	require.NotNil(t, got)
	assert.Equal(t, "ack", got.EventType)
	assert.Empty(t, api.Replies)
	assert.Equal(t, 1, api.DoneCalls)
}

func TestConfig(t *testing.T) {
	api := dummy.New()
	require.NoError(t, api.SetConfig(ConfigKey, map[string]interface{}{
		"name":       "quiz",
		"user_store": "quiz_users",
		"colour":     "blue",
	}))

	var read *Config
	a := abApp()
	im := New(api, a)
	im.On(EventConfigRead, func(ctx context.Context, e events.Event) error {
		read = e.(*ConfigReadEvent).Config
		return nil
	})
	require.NoError(t, im.Dispatch(context.Background(), testutil.Start(addr)))

	require.NotNil(t, read)
	assert.Equal(t, "quiz", read.Name)
	colour, _ := read.Get("colour")
	assert.Equal(t, "blue", colour)
	_ = saved(t, api, "users.quiz_users."+addr)
}

func TestTranslation(t *testing.T) {
	api := dummy.New()
	require.NoError(t, api.SetConfig(ConfigKey, map[string]interface{}{
		"default_lang": "af",
	}))
	require.NoError(t, api.SetConfig("translation.af", map[string]string{
		"What's up?": "Hoe gaan dit?",
	}))

	im := dispatch(t, api, abApp(), testutil.Start(addr))
	require.Len(t, api.Replies, 1)
	assert.Equal(t, "Hoe gaan dit?", api.Replies[0].Content)
	assert.Equal(t, "af", im.I18n().Lang())
}

func TestSetLang(t *testing.T) {
	api := dummy.New()
	require.NoError(t, api.SetConfig("translation.zu", map[string]string{
		"bye": "sala kahle",
	}))

	a := app.New("A")
	a.States.Add("A", func(ctx context.Context, name string, opts map[string]interface{}) (states.State, error) {
		s := states.NewFreeText(name, "Language?", states.To("B"))
		s.Events().On(states.EventInput, func(ctx context.Context, e events.Event) error {
			return s.Machine().User().SetLang(ctx, e.(*states.InputEvent).Content)
		})
		return s, nil
	})
	a.States.Add("B", func(ctx context.Context, name string, opts map[string]interface{}) (states.State, error) {
		return states.NewEnd(name, "bye", "A"), nil
	})

	im := dispatch(t, api, a, testutil.Resume(addr, "zu"))
	require.Len(t, api.Replies, 1)
	assert.Equal(t, "sala kahle", api.Replies[0].Content)
	assert.Equal(t, "zu", im.I18n().Lang())
	assert.Equal(t, "zu", saved(t, api, "users."+addr).Lang)
}

func TestMetadataRestored(t *testing.T) {
	api := dummy.New()
	words := make([]string, 100)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	a := app.New("story")
	a.States.Add("story", func(ctx context.Context, name string, opts map[string]interface{}) (states.State, error) {
		s := states.NewPaginated(name, strings.Join(words, " "), nil)
		s.CharactersPerPage = 80
		return s, nil
	})
	page := func() interface{} {
		return saved(t, api, "users."+addr).State.Metadata["page"]
	}

	dispatch(t, api, a, testutil.Start(addr))
	assert.Nil(t, page())

	dispatch(t, api, a, testutil.Resume(addr, "1"))
	assert.Equal(t, 1.0, page())

	dispatch(t, api, a, testutil.Resume(addr, "1"))
	assert.Equal(t, 2.0, page())

	require.Len(t, api.Replies, 3)
	assert.NotEqual(t, api.Replies[1].Content, api.Replies[2].Content)
}

func TestCreatorOpts(t *testing.T) {
	var (
		api  = dummy.New()
		a    = app.New("A")
		seen []interface{}
	)
	a.States.Add("A", func(ctx context.Context, name string, opts map[string]interface{}) (states.State, error) {
		s := states.NewFreeText(name, "Pick", func(ctx context.Context, answer string) (*states.Transition, error) {
			return &states.Transition{
				Name: "B",
				Opts: map[string]interface{}{"picked": answer},
			}, nil
		})
		return s, nil
	})
	a.States.Add("B", func(ctx context.Context, name string, opts map[string]interface{}) (states.State, error) {
		seen = append(seen, opts["picked"])
		return states.NewFreeText(name, fmt.Sprintf("You picked %v", opts["picked"]), nil), nil
	})

	dispatch(t, api, a, testutil.Resume(addr, "tacos"))
	require.Len(t, api.Replies, 1)
	assert.Equal(t, "You picked tacos", api.Replies[0].Content)

	// Recreated with the same options on the next message.
	dispatch(t, api, a, testutil.Resume(addr, "anything"))
	assert.Equal(t, []interface{}{"tacos", "tacos"}, seen)
}

func TestUserDelegation(t *testing.T) {
	var (
		api     = dummy.New()
		a       = abApp()
		created = 0
	)
	a.Init = func(ctx context.Context, im states.Machine) error {
		return im.(*Machine).On("user "+user.EventNew, func(ctx context.Context, e events.Event) error {
			created++
			return nil
		})
	}
	dispatch(t, api, a, testutil.Start(addr))
	dispatch(t, api, a, testutil.Resume(addr, "hi"))
	assert.Equal(t, 1, created)
}
