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
	"io"
	"strings"

	"github.com/praekeltfoundation/vumigo/appdef"
)

type MermaidOpts struct {
	// ShowLabels puts menu and choice labels on edges.
	ShowLabels bool `json:"showLabels"`

	// ScriptFill is the fill color for states with a scripted
	// next state.  Does not apply if ScriptClass is set.
	ScriptFill string `json:"scriptFill,omitempty"`

	// ScriptClass will be the CSS class for states with a
	// scripted next state.
	ScriptClass string `json:"scriptClass,omitempty"`
}

// Mermaid makes a Mermaid (https://mermaidjs.github.io/) input file
// for the given app.
//
// A state with a nextSource gets a dotted edge to a "?" node since
// its targets are only known at run time.
func Mermaid(d *appdef.Def, w io.Writer, opts *MermaidOpts) error {
	if opts == nil {
		opts = &MermaidOpts{
			ShowLabels: true,
			ScriptFill: "#bcf2db",
		}
	}

	fmt.Fprintf(w, "graph TB\n")

	nids := make(map[string]string)
	for i, name := range order(d) {
		nid := fmt.Sprintf("n%d", i+1)
		nids[name] = nid

		s := d.States[name]
		switch s.Type {
		case appdef.End:
			fmt.Fprintf(w, "  %s([\"%s\"])\n", nid, quote(name))
		case appdef.Choice, appdef.Menu:
			fmt.Fprintf(w, "  %s{\"%s\"}\n", nid, quote(name))
		default:
			fmt.Fprintf(w, "  %s(\"%s\")\n", nid, quote(name))
		}
		if s.NextSource != nil {
			switch {
			case opts.ScriptClass != "":
				fmt.Fprintf(w, "  class %s %s\n", nid, opts.ScriptClass)
			case opts.ScriptFill != "":
				fmt.Fprintf(w, "  style %s fill:%s\n", nid, opts.ScriptFill)
			}
		}
	}

	scripted := false
	for _, name := range order(d) {
		s := d.States[name]
		nid := nids[name]
		for i, target := range d.Targets(name) {
			label := ""
			if opts.ShowLabels && s.Type == appdef.Menu {
				label = fmt.Sprintf(`-- "%s" `, quote(s.Choices[i].Label))
			}
			fmt.Fprintf(w, "  %s %s--> %s\n", nid, label, nids[target])
		}
		if s.NextSource != nil {
			scripted = true
			fmt.Fprintf(w, "  %s -.-> script\n", nid)
		}
	}
	if scripted {
		fmt.Fprintf(w, "  script((\"?\"))\n")
	}

	fmt.Fprintf(w, "\n")

	return nil
}

func quote(s string) string {
	return strings.Replace(s, `"`, `'`, -1)
}
