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

// dot -Tpng g.dot > g.png

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/praekeltfoundation/vumigo/appdef"
)

var fillcolors = map[string]string{
	appdef.FreeText:  "#99ddc8",
	appdef.Choice:    "#2d93ad",
	appdef.Menu:      "#2d93ad",
	appdef.Paginated: "#52aa5e",
	appdef.End:       "#f2c14e",
}

// Dot makes a Graphviz dot file for the given app.  A really ugly
// dot file.
//
// The optional fromState and toState can be names of states during a
// transition.  If non-zero, then the edge between them will be red
// and toState will be red.
func Dot(d *appdef.Def, w io.Writer, fromState, toState string) error {
	fmt.Fprintf(w, "digraph G {\n")
	fmt.Fprintf(w, `  graph [ordering=out,rankdir=TB,nodesep=0.3,ranksep=0.6]
  node [shape="record" style="rounded,filled"]
  edge [fontsize = "12"]
`)

	for _, name := range order(d) {
		s := d.States[name]
		label := escape(name)
		if s.Doc != "" {
			label += "<BR/><FONT POINT-SIZE='8'>" + escape(firstSentence(s.Doc)) + "</FONT>"
		}
		if text := prompt(s); text != "" {
			label += `<BR/><FONT POINT-SIZE="8"><I>` + escape(text) + `</I></FONT>`
		}

		var (
			shape     = "record"
			style     = "filled"
			color     = "black"
			fillcolor = fillcolors[s.Type]
		)
		if src := source(s.NextSource); src != "" {
			shape = "note"
			label += `<FONT POINT-SIZE="6"><BR/>` + lines(escape(src)) + `<BR/></FONT>`
		}
		if name == toState {
			color = "red"
			fillcolor = "#f98b8b"
		}
		if name == d.Start {
			style += ",bold"
		}
		if s.Type == appdef.End {
			style += ",dashed"
		}
		fmt.Fprintf(w, "  %q [shape=\"%s\", style=\"%s\", color=\"%s\", fillcolor=\"%s\", label=<%s> ]\n",
			name, shape, style, color, fillcolor, label)
	}

	for _, name := range order(d) {
		s := d.States[name]
		targets := d.Targets(name)
		for i, target := range targets {
			var label string
			switch {
			case s.Type == appdef.Menu:
				label = escape(s.Choices[i].Label)
			case s.Type == appdef.Choice:
				label = choicesLabel(s.Choices)
			case s.Type == appdef.End:
				label = "new session"
			}
			color := "black"
			if name == fromState && target == toState {
				color = "red"
			}
			fmt.Fprintf(w, "  %q -> %q [ color=\"%s\" label = <%d/%d %s> ]\n",
				name, target, color, i+1, len(targets), label)
		}
	}

	fmt.Fprintf(w, "}\n")
	return nil
}

// choicesLabel renders the choices as YAML.
func choicesLabel(cs []appdef.ChoiceDef) string {
	m := make(yaml.MapSlice, len(cs))
	for i, c := range cs {
		m[i] = yaml.MapItem{Key: c.Value, Value: c.Label}
	}
	bs, err := yaml.Marshal(m)
	if err != nil {
		return escape(err.Error())
	}
	return `<FONT POINT-SIZE="8">` + lines(escape(strings.TrimSpace(string(bs)))) + `</FONT>`
}

// PNG generates a PNG image based on output from Dot.
//
// This function with write two files: basename.dot and basename.png,
// where the basename is the given string.
func PNG(d *appdef.Def, basename string, fromState, toState string) (string, error) {
	dotname := basename + ".dot"
	pngname := basename + ".png"

	dotfile, err := os.Create(dotname)
	if err != nil {
		return pngname, err
	}
	if err := Dot(d, dotfile, fromState, toState); err != nil {
		dotfile.Close()
		return pngname, err
	}
	if err := dotfile.Close(); err != nil {
		return pngname, err
	}
	if err := exec.Command("dot", "-Tpng", "-Gstart=1", "-o", pngname, dotname).Run(); err != nil {
		return pngname, err
	}
	return pngname, nil
}
