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
	"fmt"

	"github.com/praekeltfoundation/vumigo/app"
	"github.com/praekeltfoundation/vumigo/sandbox"
	"github.com/praekeltfoundation/vumigo/states"
	"github.com/praekeltfoundation/vumigo/translate"
	"github.com/praekeltfoundation/vumigo/user"
)

// SwitchState makes the named state the active one.
//
// Switching to the active state does nothing.  An unknown name falls
// back to the start state and then to the error state.  A creator
// that fails (or makes the wrong thing) also leads to the error
// state.
func (im *Machine) SwitchState(ctx context.Context, name string) error {
	if im.state != nil && im.state.Name() == name {
		return nil
	}

	if err := im.RefreshI18n(ctx); err != nil {
		return err
	}

	name, c := im.resolve(ctx, name)

	var opts map[string]interface{}
	if im.user.State.Is(name) {
		opts = im.user.State.CreatorOpts
	}

	st, err := im.create(ctx, name, c, opts)
	if err != nil {
		im.Log(ctx, sandbox.Error, err.Error())
		im.appError(ctx, err)
		name = app.ErrorStateName
		opts = nil
		if st, err = im.App.States.ErrorCreator()(ctx, name, nil); err != nil {
			return err
		}
	}

	return im.install(ctx, st, opts)
}

// resolve finds the creator for the name, falling back to the start
// state and then to the error state.
func (im *Machine) resolve(ctx context.Context, name string) (string, app.Creator) {
	ss := im.App.States
	if c, have := ss.Creator(name); have {
		return name, c
	}

	start := im.App.StartStateName
	im.Log(ctx, sandbox.Warning, fmt.Sprintf("Unknown state '%s'. Switching to start state '%s'.", name, start))
	if c, have := ss.Creator(start); have {
		return start, c
	}

	im.Log(ctx, sandbox.Error, fmt.Sprintf("Unknown start state '%s'. Switching to error state.", start))
	return app.ErrorStateName, ss.ErrorCreator()
}

func (im *Machine) create(ctx context.Context, name string, c app.Creator, opts map[string]interface{}) (states.State, error) {
	var st states.State
	err := guard(func() error {
		var err error
		st, err = c(ctx, name, opts)
		return err
	})
	if err != nil {
		return nil, &CreationError{
			Name:   name,
			Reason: "creator failed",
			Err:    err,
		}
	}
	if isNil(st) {
		return nil, &CreationError{
			Name:   name,
			Reason: fmt.Sprintf("State creator for '%s' did not produce a state.", name),
		}
	}
	if got := st.Name(); got != name {
		return nil, &CreationError{
			Name:   name,
			Reason: fmt.Sprintf("State creator for '%s' produced a state named '%s'.", name, got),
		}
	}
	return st, nil
}

// install exits the old state and enters the new one.
func (im *Machine) install(ctx context.Context, st states.State, opts map[string]interface{}) error {
	if old := im.state; old != nil {
		err := im.Emit(ctx, &StateEvent{
			Name:    EventStateExit,
			Machine: im,
			State:   old,
		})
		if err != nil {
			return err
		}
		if err = old.Exit(ctx); err != nil {
			return err
		}
	}

	if im.user.State.Is(st.Name()) {
		st.SetMetadata(im.user.State.Metadata)
	}
	im.state = st
	im.user.State = user.NewStateData(st.Name(), st.Metadata(), opts)

	err := im.Emit(ctx, &StateEvent{
		Name:    EventStateEnter,
		Machine: im,
		State:   st,
	})
	if err != nil {
		return err
	}
	if err = st.Setup(ctx, im); err != nil {
		return err
	}
	if err = st.Translate(im.i18n); err != nil {
		return err
	}
	return st.Enter(ctx)
}

// RefreshI18n makes sure the translator matches the user's language
// (or the configured default).
func (im *Machine) RefreshI18n(ctx context.Context) error {
	lang := im.config.DefaultLang
	if im.user != nil && im.user.Lang != "" {
		lang = im.user.Lang
	}
	if im.i18n != nil && im.i18nLang == lang {
		return nil
	}

	if lang == "" {
		im.i18n = translate.Noop("")
		im.i18nLang = ""
		return nil
	}

	js, _, err := im.API.GetConfig(ctx, translate.ConfigKey(lang))
	if err != nil {
		return sandbox.Wrap("config.get", err)
	}
	tr, err := translate.New(lang, js)
	if err != nil {
		return err
	}
	im.i18n = tr
	im.i18nLang = lang
	return nil
}

// onLang refreshes the translator and retranslates the active state.
func (im *Machine) onLang(ctx context.Context) error {
	if err := im.RefreshI18n(ctx); err != nil {
		return err
	}
	if im.state == nil {
		return nil
	}
	return im.state.Translate(im.i18n)
}
