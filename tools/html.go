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
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"os"

	md "github.com/russross/blackfriday/v2"

	"github.com/praekeltfoundation/vumigo/appdef"
)

// RenderHTML writes an HTML fragment that documents the app.  Docs
// are Markdown.
func RenderHTML(d *appdef.Def, out io.Writer) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}

	f(`<div class="appDoc doc">%s</div>`, md.Run([]byte(d.Doc)))

	f(`<div class="states"><table>`)
	for _, name := range order(d) {
		s := d.States[name]
		f(`<tr class="state"><td><span id="%s" class="stateName">%s</span></td><td>`,
			html.EscapeString(name), html.EscapeString(name))
		f(`<div>type: <span class="stateType">%s</span></div>`, html.EscapeString(s.Type))

		if s.Doc != "" {
			f(`<div class="stateDoc doc">%s</div>`, md.Run([]byte(s.Doc)))
		}
		if text := prompt(s); text != "" {
			f(`<div class="prompt"><q>%s</q></div>`, html.EscapeString(text))
		}
		if 0 < len(s.Choices) {
			f(`<div class="choices"><ol>`)
			for _, c := range s.Choices {
				f(`<li>%s <code>%s</code></li>`, html.EscapeString(c.Label), html.EscapeString(c.Value))
			}
			f(`</ol></div>`)
		}
		if src := source(s.CheckSource); src != "" {
			f(`<div>check</div><div class="code"><pre>%s</pre></div>`, html.EscapeString(src))
		}
		if src := source(s.NextSource); src != "" {
			f(`<div>next</div><div class="code"><pre>%s</pre></div>`, html.EscapeString(src))
		}
		if targets := d.Targets(name); 0 < len(targets) {
			f(`<div class="targets">`)
			for _, target := range targets {
				f(`<a href="#%s"><code>%s</code></a>`, html.EscapeString(target), html.EscapeString(target))
			}
			f(`</div>`)
		}
		f(`</td></tr>`)
	}
	f(`</table></div>`)

	return nil
}

// RenderPage writes a complete HTML page for the app.  With
// includeGraph, the page shows the app's Mermaid graph.
func RenderPage(d *appdef.Def, out io.Writer, cssFiles []string, includeGraph bool) error {
	if cssFiles == nil {
		cssFiles = []string{"/static/app-html.css"}
	}

	var graph bytes.Buffer
	if includeGraph {
		if err := Mermaid(d, &graph, nil); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, `<!DOCTYPE html>
<meta charset="utf-8">
<html>
  <head>
  <title>%s</title>
`, html.EscapeString(d.Name))

	if includeGraph {
		fmt.Fprintf(out, `  <script type="module">
  import mermaid from "https://cdn.jsdelivr.net/npm/mermaid@10/dist/mermaid.esm.min.mjs";
  mermaid.initialize({ startOnLoad: true });
  </script>
`)
	}

	for _, cssFile := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", cssFile)
	}

	fmt.Fprintf(out, `
  </head>
  <body>
    <h1>%s</h1>
`, html.EscapeString(d.Name))

	if includeGraph {
		fmt.Fprintf(out, "<pre class=\"mermaid\">\n%s</pre>\n", html.EscapeString(graph.String()))
	}

	if err := RenderHTML(d, out); err != nil {
		return err
	}

	fmt.Fprintf(out, `
  </body>
</html>
`)

	return nil
}

// ReadApp reads and compiles an app definition.
func ReadApp(ctx context.Context, filename string) (*appdef.Def, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	d, err := appdef.Parse(bs)
	if err != nil {
		return nil, err
	}
	if err = d.Compile(ctx, nil); err != nil {
		return nil, err
	}
	return d, nil
}

func ReadAndRenderPage(filename string, cssFiles []string, out io.Writer, includeGraph bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, err := ReadApp(ctx, filename)
	if err != nil {
		return err
	}
	return RenderPage(d, out, cssFiles, includeGraph)
}
