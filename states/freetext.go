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

	"github.com/praekeltfoundation/vumigo/translate"
)

// FreeText asks a question and accepts any answer that passes Check.
type FreeText struct {
	*BaseState

	Question translate.LazyText
	Check    Check
	Next     Next

	question string
	invalid  string
	i18n     *translate.Translator
}

// NewFreeText makes a FreeText state.
func NewFreeText(name, question string, next Next) *FreeText {
	return &FreeText{
		BaseState: NewBaseState(name),
		Question:  translate.Lazy(question),
		Next:      next,
	}
}

func (s *FreeText) Translate(i18n *translate.Translator) error {
	s.i18n = i18n
	s.question = s.Question.Translate(i18n)
	return nil
}

func (s *FreeText) Input(ctx context.Context, content string) error {
	if err := s.BaseState.Input(ctx, content); err != nil {
		return err
	}
	s.invalid = ""
	if s.Check != nil {
		problem, err := s.Check(ctx, content)
		if err != nil {
			return err
		}
		if problem != "" {
			s.invalid = s.i18n.Gettext(problem)
			return nil
		}
	}
	if err := s.SaveResponse(content); err != nil {
		return err
	}
	return s.Advance(ctx, s.Next, content)
}

func (s *FreeText) Display(ctx context.Context) (string, error) {
	if s.invalid != "" {
		return s.invalid, nil
	}
	if s.question == "" {
		return string(s.Question), nil
	}
	return s.question, nil
}
