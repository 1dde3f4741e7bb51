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


// Package main is a command-line tool for checking and rendering app
// definitions.
package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/praekeltfoundation/vumigo/tools"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: apptool [flags] COMMAND FILE

Commands:

  check    parse and compile the app
  dot      write a Graphviz dot file
  png      write FILE.dot and FILE.png (needs Graphviz)
  mermaid  write a Mermaid graph
  html     write an HTML page

Flags:

`)
	flag.PrintDefaults()
}

func main() {
	var (
		css   = flag.StringSlice("css", nil, "CSS files for html")
		graph = flag.Bool("graph", true, "Include a graph in html")
		from  = flag.String("from", "", "Highlight the edge from this state (dot, png)")
		to    = flag.String("to", "", "Highlight this state (dot, png)")
		out   = flag.StringP("out", "o", "", "Output basename for png")
	)
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 2 {
		usage()
		os.Exit(1)
	}
	cmd, filename := flag.Arg(0), flag.Arg(1)

	if err := run(cmd, filename, *css, *graph, *from, *to, *out); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd, filename string, css []string, graph bool, from, to, out string) error {
	if cmd == "html" {
		return tools.ReadAndRenderPage(filename, css, os.Stdout, graph)
	}

	d, err := tools.ReadApp(context.Background(), filename)
	if err != nil {
		return err
	}

	switch cmd {
	case "check":
		fmt.Printf("%s: %d states, start '%s'\n", filename, len(d.States), d.Start)
		return nil
	case "dot":
		return tools.Dot(d, os.Stdout, from, to)
	case "png":
		if out == "" {
			out = filename
		}
		pngname, err := tools.PNG(d, out, from, to)
		if err != nil {
			return err
		}
		fmt.Println(pngname)
		return nil
	case "mermaid":
		return tools.Mermaid(d, os.Stdout, nil)
	default:
		return fmt.Errorf("unknown command '%s'", cmd)
	}
}
