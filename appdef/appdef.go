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

// Package appdef reads declarative app definitions and turns them
// into an app.App.
//
// A definition in YAML:
//
//	name: quiz
//	start: name
//	states:
//	  name:
//	    type: freetext
//	    question: What is your name?
//	    checkSource: 'return _.answer == "" ? "Please tell us." : "";'
//	    next: colour
//	  colour:
//	    type: choice
//	    question: Favourite colour?
//	    choices:
//	      - {value: red, label: Red}
//	      - {value: blue, label: Blue}
//	    nextSource: 'return _.answer == "red" ? "red" : "bye";'
//	  red:
//	    type: end
//	    text: Good choice.
//	    next: name
//	  bye:
//	    type: end
//	    text: Bye.
//	    next: name
//
// Scripted sources are run by interpreters/goja.  They see the
// answer at _.answer (see goja.Env).
package appdef

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"

	"github.com/dop251/goja"
	"github.com/jsccast/yaml"

	"github.com/praekeltfoundation/vumigo/app"
	"github.com/praekeltfoundation/vumigo/interaction"
	interp "github.com/praekeltfoundation/vumigo/interpreters/goja"
	"github.com/praekeltfoundation/vumigo/sandbox"
	"github.com/praekeltfoundation/vumigo/states"
	"github.com/praekeltfoundation/vumigo/translate"
)

// State types.
const (
	FreeText  = "freetext"
	Choice    = "choice"
	Menu      = "menu"
	End       = "end"
	Paginated = "paginated"
)

// ChoiceDef is one option of a choice or menu.
type ChoiceDef struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// StateDef defines one state.
type StateDef struct {
	Type string `json:"type" yaml:"type"`
	Doc  string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Question is used by freetext, choice and menu.
	Question string `json:"question,omitempty" yaml:"question,omitempty"`

	// Text is used by end and paginated.
	Text string `json:"text,omitempty" yaml:"text,omitempty"`

	// Next is the name of the next state.  For a menu, each
	// choice's value is the next state.
	Next string `json:"next,omitempty" yaml:"next,omitempty"`

	// NextSource computes the next state's name.  It's either a
	// string or a map with "code" and "requires".
	NextSource interface{} `json:"nextSource,omitempty" yaml:"nextSource,omitempty"`

	// CheckSource (freetext only) returns an error text or "".
	CheckSource interface{} `json:"checkSource,omitempty" yaml:"checkSource,omitempty"`

	Choices      []ChoiceDef `json:"choices,omitempty" yaml:"choices,omitempty"`
	Error        string      `json:"error,omitempty" yaml:"error,omitempty"`
	AcceptLabels bool        `json:"acceptLabels,omitempty" yaml:"acceptLabels,omitempty"`

	CharactersPerPage int `json:"charactersPerPage,omitempty" yaml:"charactersPerPage,omitempty"`

	next  *goja.Program
	check *goja.Program
}

// Def is an app definition.
type Def struct {
	Name   string               `json:"name,omitempty" yaml:"name,omitempty"`
	Doc    string               `json:"doc,omitempty" yaml:"doc,omitempty"`
	Start  string               `json:"start" yaml:"start"`
	States map[string]*StateDef `json:"states" yaml:"states"`

	interpreter *interp.Interpreter
}

// Parse reads a definition.  Input starting with "{" is JSON;
// anything else is YAML.
func Parse(bs []byte) (*Def, error) {
	var d Def
	var err error
	if trimmed := bytes.TrimSpace(bs); 0 < len(trimmed) && trimmed[0] == '{' {
		err = json.Unmarshal(bs, &d)
	} else {
		err = yaml.Unmarshal(bs, &d)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// StateNames returns the states' names, sorted.
func (d *Def) StateNames() []string {
	acc := make([]string, 0, len(d.States))
	for name := range d.States {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc
}

// Targets returns the static next states of the named state.
func (d *Def) Targets(name string) []string {
	s, have := d.States[name]
	if !have {
		return nil
	}
	var acc []string
	if s.Type == Menu {
		for _, c := range s.Choices {
			acc = append(acc, c.Value)
		}
	}
	if s.Next != "" {
		acc = append(acc, s.Next)
	}
	return acc
}

// Compile checks the definition and compiles its sources.
func (d *Def) Compile(ctx context.Context, i *interp.Interpreter) error {
	if i == nil {
		i = interp.NewInterpreter()
	}
	d.interpreter = i

	if d.Start == "" {
		return &MissingStart{Def: d}
	}
	if _, have := d.States[d.Start]; !have {
		return &UnknownState{Def: d, Name: d.Start}
	}

	for _, name := range d.StateNames() {
		s := d.States[name]
		if s == nil {
			return &BadState{Def: d, Name: name, Problem: "empty"}
		}
		switch s.Type {
		case FreeText, Choice, Paginated, End:
		case Menu:
			if s.NextSource != nil || s.Next != "" {
				return &BadState{Def: d, Name: name, Problem: "a menu's choices are its next states"}
			}
		default:
			return &BadState{Def: d, Name: name, Problem: "unknown type '" + s.Type + "'"}
		}
		if (s.Type == Choice || s.Type == Menu) && len(s.Choices) == 0 {
			return &BadState{Def: d, Name: name, Problem: "no choices"}
		}
		if s.CheckSource != nil && s.Type != FreeText {
			return &BadState{Def: d, Name: name, Problem: "only freetext states have a checkSource"}
		}
		if s.NextSource != nil && s.Type == End {
			return &BadState{Def: d, Name: name, Problem: "end states can't have a nextSource"}
		}
		for _, target := range d.Targets(name) {
			if _, have := d.States[target]; !have {
				return &UnknownState{Def: d, Name: target, From: name}
			}
		}

		var err error
		if s.NextSource != nil {
			if s.next, err = i.Compile(ctx, s.NextSource); err != nil {
				return &BadSource{Def: d, Name: name, Err: err}
			}
		}
		if s.CheckSource != nil {
			if s.check, err = i.Compile(ctx, s.CheckSource); err != nil {
				return &BadSource{Def: d, Name: name, Err: err}
			}
		}
	}

	return nil
}

// App makes an app.App from a compiled definition.
func (d *Def) App() (*app.App, error) {
	if d.interpreter == nil {
		return nil, &NotCompiled{Def: d}
	}
	a := app.New(d.Start)
	for _, name := range d.StateNames() {
		if err := a.States.Add(name, d.creator(d.States[name])); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// configured is implemented by interaction.Machine.
type configured interface {
	Config() *interaction.Config
}

func (d *Def) env(ctx context.Context, im states.Machine, meta map[string]interface{}, answer string) *interp.Env {
	env := &interp.Env{
		Answer:   answer,
		Metadata: meta,
	}
	if im == nil {
		return env
	}
	if u := im.User(); u != nil {
		env.Answers = u.Answers
		env.Lang = u.Lang
	}
	if c, is := im.(configured); is && c.Config() != nil {
		env.Config = c.Config().Extra
	}
	env.Log = func(s string) {
		im.Log(ctx, sandbox.Info, s)
	}
	return env
}

// next makes the states.Next for a state.  base gives access to the
// live state's machine.
func (d *Def) next(s *StateDef, base *states.BaseState) states.Next {
	if s.next == nil {
		if s.Next == "" {
			return nil
		}
		return states.To(s.Next)
	}
	return func(ctx context.Context, answer string) (*states.Transition, error) {
		env := d.env(ctx, base.Machine(), base.Metadata(), answer)
		name, err := d.interpreter.EvalString(ctx, s.next, env)
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, nil
		}
		return &states.Transition{Name: name}, nil
	}
}

func (d *Def) creator(s *StateDef) app.Creator {
	return func(ctx context.Context, name string, opts map[string]interface{}) (states.State, error) {
		switch s.Type {
		case FreeText:
			st := states.NewFreeText(name, s.Question, nil)
			st.Next = d.next(s, st.BaseState)
			if s.check != nil {
				st.Check = func(ctx context.Context, answer string) (string, error) {
					env := d.env(ctx, st.Machine(), st.Metadata(), answer)
					return d.interpreter.EvalString(ctx, s.check, env)
				}
			}
			return st, nil

		case Choice, Menu:
			options := make([]states.Option, len(s.Choices))
			for i, c := range s.Choices {
				options[i] = states.Option{
					Value: c.Value,
					Label: translate.Lazy(c.Label),
				}
			}
			var st *states.Choice
			if s.Type == Menu {
				st = states.NewMenu(name, s.Question, options)
			} else {
				st = states.NewChoice(name, s.Question, options, nil)
				st.Next = d.next(s, st.BaseState)
			}
			st.Error = translate.Lazy(s.Error)
			st.AcceptLabels = s.AcceptLabels
			return st, nil

		case End:
			return states.NewEnd(name, s.Text, s.Next), nil

		case Paginated:
			st := states.NewPaginated(name, s.Text, nil)
			st.Next = d.next(s, st.BaseState)
			if 0 < s.CharactersPerPage {
				st.CharactersPerPage = s.CharactersPerPage
			}
			return st, nil
		}
		return nil, &BadState{Def: d, Name: name, Problem: "unknown type '" + s.Type + "'"}
	}
}
