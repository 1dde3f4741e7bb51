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

package tools

import (
	"fmt"
	"html"
	"strings"

	"github.com/praekeltfoundation/vumigo/appdef"
	interp "github.com/praekeltfoundation/vumigo/interpreters/goja"
)

// order gives the start state first and then the rest by name.
func order(d *appdef.Def) []string {
	acc := make([]string, 0, len(d.States))
	if _, have := d.States[d.Start]; have {
		acc = append(acc, d.Start)
	}
	for _, name := range d.StateNames() {
		if name != d.Start {
			acc = append(acc, name)
		}
	}
	return acc
}

// prompt is the text a state shows.
func prompt(s *appdef.StateDef) string {
	if s.Question != "" {
		return s.Question
	}
	return s.Text
}

// source renders a scripted source's code.
func source(x interface{}) string {
	if x == nil {
		return ""
	}
	code, libs, err := interp.AsSource(x)
	if err != nil {
		return fmt.Sprintf("%#v", x)
	}
	for _, lib := range libs {
		code = "// requires " + lib + "\n" + code
	}
	return code
}

func firstSentence(doc string) string {
	if 40 < len(doc) {
		if period := strings.Index(doc, ". "); 0 < period {
			return doc[0 : period+1]
		}
	}
	return doc
}

func escape(s string) string {
	return html.EscapeString(s)
}

func lines(s string) string {
	return strings.Replace(s+"\n", "\n", `<BR ALIGN="LEFT"/>`, -1)
}
