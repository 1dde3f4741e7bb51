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
	"fmt"
	"strconv"
	"strings"

	"github.com/praekeltfoundation/vumigo/translate"
)

// Option is one of the things a Choice offers.
type Option struct {
	// Value is saved as the answer.  For a Menu it's also the
	// next state's name.
	Value string
	Label translate.LazyText
}

// Choice asks the user to pick one of a numbered list.
type Choice struct {
	*BaseState

	Question translate.LazyText
	Options  []Option

	// Next is given the chosen option's value.
	Next Next

	// Error is shown (followed by the options) after invalid
	// input.  Defaults to the question.
	Error translate.LazyText

	// AcceptLabels allows answering with a label instead of a
	// number.
	AcceptLabels bool

	i18n    *translate.Translator
	invalid bool
}

// NewChoice makes a Choice state.
func NewChoice(name, question string, options []Option, next Next) *Choice {
	return &Choice{
		BaseState: NewBaseState(name),
		Question:  translate.Lazy(question),
		Options:   options,
		Next:      next,
	}
}

// NewMenu makes a Choice whose option values are state names.
// Choosing an option goes to that state.
func NewMenu(name, question string, options []Option) *Choice {
	next := func(ctx context.Context, value string) (*Transition, error) {
		return &Transition{Name: value}, nil
	}
	return NewChoice(name, question, options, next)
}

func (s *Choice) Translate(i18n *translate.Translator) error {
	s.i18n = i18n
	return nil
}

// Find returns the option the content names (or nil).
func (s *Choice) Find(content string) *Option {
	content = strings.TrimSpace(content)
	if n, err := strconv.Atoi(content); err == nil {
		if 1 <= n && n <= len(s.Options) {
			return &s.Options[n-1]
		}
		return nil
	}
	if !s.AcceptLabels {
		return nil
	}
	for i, o := range s.Options {
		if strings.EqualFold(content, o.Label.Translate(s.i18n)) {
			return &s.Options[i]
		}
	}
	return nil
}

func (s *Choice) Input(ctx context.Context, content string) error {
	if err := s.BaseState.Input(ctx, content); err != nil {
		return err
	}
	o := s.Find(content)
	if o == nil {
		s.invalid = true
		return nil
	}
	s.invalid = false
	if err := s.SaveResponse(o.Value); err != nil {
		return err
	}
	return s.Advance(ctx, s.Next, o.Value)
}

func (s *Choice) Display(ctx context.Context) (string, error) {
	head := s.Question
	if s.invalid && s.Error != "" {
		head = s.Error
	}
	lines := make([]string, 0, len(s.Options)+1)
	lines = append(lines, head.Translate(s.i18n))
	for i, o := range s.Options {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, o.Label.Translate(s.i18n)))
	}
	return strings.Join(lines, "\n"), nil
}
