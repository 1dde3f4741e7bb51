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
	"unicode/utf8"

	"github.com/praekeltfoundation/vumigo/translate"
)

// DefaultCharactersPerPage fits a USSD screen.
const DefaultCharactersPerPage = 160

// Paginated shows long text one page at a time with More, Back and
// Exit options.  The current page is kept in the state's metadata so
// it survives between messages.
type Paginated struct {
	*BaseState

	Text                  translate.LazyText
	CharactersPerPage     int
	More, Back, ExitLabel translate.LazyText

	// Next is consulted when the user chooses Exit.  It's given
	// the empty string.
	Next Next

	i18n *translate.Translator
}

// NewPaginated makes a Paginated state.
func NewPaginated(name, text string, next Next) *Paginated {
	return &Paginated{
		BaseState:         NewBaseState(name),
		Text:              translate.Lazy(text),
		CharactersPerPage: DefaultCharactersPerPage,
		More:              translate.Lazy("More"),
		Back:              translate.Lazy("Back"),
		ExitLabel:         translate.Lazy("Exit"),
		Next:              next,
	}
}

func (s *Paginated) Translate(i18n *translate.Translator) error {
	s.i18n = i18n
	return nil
}

// Page returns the current page (from zero).  A restored page that
// is negative counts as the first.
func (s *Paginated) Page() int {
	var n int
	switch vv := s.Metadata()["page"].(type) {
	case int:
		n = vv
	case float64:
		n = int(vv)
	}
	if n < 0 {
		return 0
	}
	return n
}

func (s *Paginated) setPage(n int) {
	s.SetMeta("page", n)
}

type action int

const (
	actMore action = iota
	actBack
	actExit
)

func (s *Paginated) actions(page, pages int) []action {
	acc := make([]action, 0, 3)
	if page < pages-1 {
		acc = append(acc, actMore)
	}
	if 0 < page {
		acc = append(acc, actBack)
	}
	return append(acc, actExit)
}

func (s *Paginated) label(a action) string {
	switch a {
	case actMore:
		return s.More.Translate(s.i18n)
	case actBack:
		return s.Back.Translate(s.i18n)
	}
	return s.ExitLabel.Translate(s.i18n)
}

func (s *Paginated) footer(as []action) string {
	lines := make([]string, len(as))
	for i, a := range as {
		lines[i] = fmt.Sprintf("%d. %s", i+1, s.label(a))
	}
	return strings.Join(lines, "\n")
}

// Pages splits the text into pages that leave room for the footer.
func (s *Paginated) Pages() []string {
	text := s.Text.Translate(s.i18n)
	room := s.CharactersPerPage
	if room <= 0 {
		room = DefaultCharactersPerPage
	}
	// Leave room for the longest possible footer and its newline.
	room -= utf8.RuneCountInString(s.footer([]action{actMore, actBack, actExit})) + 1
	if room < 1 {
		room = 1
	}
	return paginate(text, room)
}

// paginate cuts the text into pages of at most room characters,
// preferring to cut at whitespace.
func paginate(text string, room int) []string {
	var (
		pages []string
		rs    = []rune(text)
	)
	for room < len(rs) {
		cut := room
		for i := room; 0 < i; i-- {
			if rs[i] == ' ' || rs[i] == '\n' {
				cut = i
				break
			}
		}
		pages = append(pages, strings.TrimSpace(string(rs[:cut])))
		rs = []rune(strings.TrimLeft(string(rs[cut:]), " \n"))
	}
	return append(pages, string(rs))
}

func (s *Paginated) Display(ctx context.Context) (string, error) {
	pages := s.Pages()
	page := s.Page()
	if len(pages) <= page {
		page = len(pages) - 1
	}
	return pages[page] + "\n" + s.footer(s.actions(page, len(pages))), nil
}

func (s *Paginated) Input(ctx context.Context, content string) error {
	if err := s.BaseState.Input(ctx, content); err != nil {
		return err
	}
	var (
		pages = s.Pages()
		page  = s.Page()
		as    = s.actions(page, len(pages))
	)
	n, err := strconv.Atoi(strings.TrimSpace(content))
	if err != nil || n < 1 || len(as) < n {
		// Show the same page again.
		return nil
	}
	switch as[n-1] {
	case actMore:
		s.setPage(page + 1)
	case actBack:
		s.setPage(page - 1)
	case actExit:
		return s.Advance(ctx, s.Next, "")
	}
	return nil
}
