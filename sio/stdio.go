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

package sio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/praekeltfoundation/vumigo/sandbox"
)

// Stdio is a fairly simple Couplings that reads a JSON command (or
// bare message) per line and writes a JSON reply per line.
type Stdio struct {
	// In is coupled to Host input.
	In io.Reader

	// Out is coupled to Host output.
	Out io.Writer

	// ShellExpand enables input to include inline shell commands
	// delimited by '<<' and '>>'.  Use at your own risk, of
	// course!
	ShellExpand bool

	// Timestamps prepends a timestamp to each output line.
	Timestamps bool

	// EchoInput writes input lines (prepended with "input") to
	// the output.
	EchoInput bool

	// Tags prefixes tags indicating type of output ("input",
	// "reply", "log", "error").
	Tags bool

	// PrintLogs writes each Result's logs.
	PrintLogs bool

	// InputEOF will be closed on EOF from stdin.
	InputEOF chan bool

	WG sync.WaitGroup

	out chan *Result
}

// NewStdio creates a new Stdio.
//
// In and Out are initialized with os.Stdin and os.Stdout
// respectively.
func NewStdio(shellExpand bool) *Stdio {
	return &Stdio{
		In:          os.Stdin,
		Out:         os.Stdout,
		ShellExpand: shellExpand,
		InputEOF:    make(chan bool),
	}
}

// Start does nothing.
func (s *Stdio) Start(ctx context.Context) error {
	return nil
}

// Stop ends output and waits until IO is complete or was terminated
// via its context.  Nothing should be sent to the output channel
// after Stop is called.
func (s *Stdio) Stop(ctx context.Context) error {
	if s.out != nil {
		close(s.out)
	}
	s.WG.Wait()
	return nil
}

func (s *Stdio) printf(tag, format string, args ...interface{}) {
	if s.Tags {
		format = fmt.Sprintf("%-6s", tag) + " " + format
	}
	if s.Timestamps {
		ts := fmt.Sprintf("%-31s", time.Now().UTC().Format(time.RFC3339Nano))
		format = ts + " " + format
	}
	fmt.Fprintf(s.Out, format, args...)
}

// IO returns channels for reading from In and writing to Out.
//
// The output channel is unbuffered, so a Result has been taken by
// the writer by the time the Host's send completes.
func (s *Stdio) IO(ctx context.Context) (chan *sandbox.Command, chan *Result, chan bool, error) {
	var (
		in   = make(chan *sandbox.Command)
		out  = make(chan *Result)
		done = make(chan bool)
	)
	s.out = out

	s.WG.Add(1)
	go func() {
		defer s.WG.Done()
		defer close(s.InputEOF)
		defer close(done)
		stdin := bufio.NewReader(s.In)
		for {
			line, err := stdin.ReadString('\n')
			if err != nil && err != io.EOF {
				log.Printf("stdin error %s", err)
				return
			}
			eof := err == io.EOF
			if strings.TrimSpace(line) == "quit" {
				return
			}
			if s.EchoInput && line != "" {
				s.printf("input", "%s", line)
			}
			if trimmed := strings.TrimSpace(line); trimmed != "" && !strings.HasPrefix(trimmed, "#") {
				if s.ShellExpand {
					if line, err = ShellExpand(line); err != nil {
						log.Printf("stdin error %s", err)
						return
					}
				}
				cmd, err := ParseCommand([]byte(line))
				if err != nil {
					fmt.Fprintf(os.Stderr, "bad input: %s\n", err)
				} else {
					select {
					case <-ctx.Done():
						return
					case in <- cmd:
					}
				}
			}
			if eof {
				return
			}
		}
	}()

	s.WG.Add(1)
	go func() {
		defer s.WG.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case r := <-out:
				if r == nil {
					return
				}
				s.write(r)
			}
		}
	}()

	return in, out, done, nil
}

func (s *Stdio) write(r *Result) {
	for _, reply := range r.Replies {
		s.printf("reply", "%s\n", JS(reply))
	}
	if s.PrintLogs {
		for _, e := range r.Logs {
			s.printf("log", "%s\n", JS(e))
		}
	}
	if r.Err != "" {
		s.printf("error", "%s\n", JS(map[string]interface{}{"error": r.Err}))
	}
}
