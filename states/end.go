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

	"github.com/praekeltfoundation/vumigo/events"
	"github.com/praekeltfoundation/vumigo/translate"
)

// ErrorText is what the error state says.
const ErrorText = "An error occurred. Please try again later."

// End says something and closes the session.
//
// When a session closes (or a new one starts) while an End is
// active, the conversation moves to Next.
type End struct {
	*BaseState

	Text translate.LazyText
	Next string

	text string
}

// NewEnd makes an End state.
func NewEnd(name, text, next string) *End {
	s := &End{
		BaseState: NewBaseState(name),
		Text:      translate.Lazy(text),
		Next:      next,
	}
	s.SetContinueSession(false)

	advance := func(ctx context.Context, e events.Event) error {
		if s.Next == "" {
			return nil
		}
		return s.SetNext(ctx, &Transition{Name: s.Next})
	}
	s.bus.On(EventSessionNew, advance)
	s.bus.On(EventSessionClose, advance)

	return s
}

// NewErrorState makes the state used when nothing else works.  It
// sends the user back to start next time.
func NewErrorState(name, start string) *End {
	return NewEnd(name, ErrorText, start)
}

func (s *End) Translate(i18n *translate.Translator) error {
	s.text = s.Text.Translate(i18n)
	return nil
}

func (s *End) Display(ctx context.Context) (string, error) {
	if s.text == "" {
		return string(s.Text), nil
	}
	return s.text, nil
}
