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

// Package translate turns translation data into a Translator.
//
// Translation data is the Jed JSON format produced by po2json:
//
//	{"domain": "messages",
//	 "locale_data": {"messages": {
//	   "": {"domain": "messages", "lang": "af"},
//	   "Hello": [null, "Hallo"]}}}
//
// A flat object of strings is also accepted.
package translate

import (
	"encoding/json"
	"fmt"

	"golang.org/x/text/language"
)

// ConfigKey returns the config key holding translations for lang.
func ConfigKey(lang string) string {
	return "translation." + lang
}

// Normalize checks a language code and returns its canonical form.
func Normalize(lang string) (string, error) {
	tag, err := language.Parse(lang)
	if err != nil {
		return "", fmt.Errorf("bad language code %q: %w", lang, err)
	}
	return tag.String(), nil
}

// Translator looks up translated strings for one language.
//
// A nil *Translator translates nothing.
type Translator struct {
	lang     string
	messages map[string]string
}

// Noop makes a Translator that returns its input.
func Noop(lang string) *Translator {
	return &Translator{
		lang:     lang,
		messages: map[string]string{},
	}
}

type jed struct {
	Domain     string                                `json:"domain"`
	LocaleData map[string]map[string]json.RawMessage `json:"locale_data"`
}

// New parses translation data for the given language.
func New(lang string, data []byte) (*Translator, error) {
	t := Noop(lang)
	if len(data) == 0 {
		return t, nil
	}

	var j jed
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, err
	}

	if j.LocaleData == nil {
		var flat map[string]string
		if err := json.Unmarshal(data, &flat); err != nil {
			return nil, fmt.Errorf("translation data for %q is neither Jed nor flat: %w", lang, err)
		}
		t.messages = flat
		return t, nil
	}

	domain := j.Domain
	if domain == "" {
		domain = "messages"
	}
	for key, raw := range j.LocaleData[domain] {
		if key == "" {
			// Header.
			continue
		}
		var forms []*string
		if err := json.Unmarshal(raw, &forms); err != nil {
			return nil, fmt.Errorf("bad translation for %q: %w", key, err)
		}
		// Jed 0.x puts the plural key first.
		switch {
		case 2 <= len(forms) && forms[1] != nil:
			t.messages[key] = *forms[1]
		case len(forms) == 1 && forms[0] != nil:
			t.messages[key] = *forms[0]
		}
	}

	return t, nil
}

// Lang returns the language this Translator is for.
func (t *Translator) Lang() string {
	if t == nil {
		return ""
	}
	return t.lang
}

// Gettext returns the translation of s, or s if there isn't one.
func (t *Translator) Gettext(s string) string {
	if t == nil {
		return s
	}
	if x, have := t.messages[s]; have && x != "" {
		return x
	}
	return s
}

// Len returns the number of known translations.
func (t *Translator) Len() int {
	if t == nil {
		return 0
	}
	return len(t.messages)
}

// LazyText is a string that will be translated once a Translator is
// available.  States hold their static text as LazyText.
type LazyText string

// Lazy marks s for later translation.
func Lazy(s string) LazyText {
	return LazyText(s)
}

// Translate returns the translation of the text.
func (l LazyText) Translate(t *Translator) string {
	return t.Gettext(string(l))
}

func (l LazyText) String() string {
	return string(l)
}
