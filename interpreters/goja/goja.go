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

// Package goja evaluates the ECMAScript snippets in app definitions
// (a state's "nextSource" and "checkSource") using Goja.
//
// See https://github.com/dop251/goja.
package goja

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/google/uuid"
	"github.com/gorhill/cronexpr"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by Eval if the execution is
	// interrupted.
	Interrupted = errors.New(InterruptedMessage)
)

// Interpreter compiles and runs snippets.
type Interpreter struct {
	// Testing exposes sleep(ms).
	Testing bool

	// LibraryProvider resolves the names in a source's
	// "requires".  DefaultLibraryProvider is used when nil.
	LibraryProvider func(ctx context.Context, i *Interpreter, libraryName string) (string, error)
}

// NewInterpreter makes a new Interpreter.
func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

// ProvideLibrary resolves the library name into source.
func (i *Interpreter) ProvideLibrary(ctx context.Context, name string) (string, error) {
	if i.LibraryProvider != nil {
		return i.LibraryProvider(ctx, i, name)
	}
	return DefaultLibraryProvider(ctx, i, name)
}

var DefaultLibraryProvider = MakeFileLibraryProvider(".")

// MakeFileLibraryProvider makes a provider for names that are URLs
// with protocols "file", "http", and "https".  File names are
// relative to dir.
func MakeFileLibraryProvider(dir string) func(context.Context, *Interpreter, string) (string, error) {
	return func(ctx context.Context, i *Interpreter, name string) (string, error) {
		parts := strings.SplitN(name, "://", 2)
		if 2 != len(parts) {
			return "", fmt.Errorf("bad link '%s'", name)
		}
		switch parts[0] {
		case "file":
			filename := filepath.Clean("/" + parts[1])
			bs, err := os.ReadFile(filepath.Join(dir, filename))
			if err != nil {
				return "", err
			}
			return string(bs), nil
		case "http", "https":
			req, err := http.NewRequestWithContext(ctx, "GET", name, nil)
			if err != nil {
				return "", err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return "", err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return "", fmt.Errorf("library fetch status %s %d",
					resp.Status, resp.StatusCode)
			}
			bs, err := io.ReadAll(resp.Body)
			if err != nil {
				return "", err
			}
			return string(bs), nil
		default:
			return "", fmt.Errorf("unknown protocol '%s'", parts[0])
		}
	}
}

// MakeMapLibraryProvider serves libraries from a map.
func MakeMapLibraryProvider(srcs map[string]string) func(context.Context, *Interpreter, string) (string, error) {
	return func(ctx context.Context, i *Interpreter, name string) (string, error) {
		src, have := srcs[name]
		if !have {
			return "", fmt.Errorf("undefined library '%s'", name)
		}
		return src, nil
	}
}

func wrapSrc(src string) string {
	return fmt.Sprintf("(function() {\n%s\n}());\n", src)
}

// parseSource looks for "code" and "requires" properties.
func parseSource(vv map[string]interface{}) (code string, libs []string, err error) {
	x := vv["code"]
	s, is := x.(string)
	if !is {
		err = errors.New("bad Goja code")
		return
	}
	code = s

	switch vv := vv["requires"].(type) {
	case nil:
	case string:
		libs = []string{vv}
	case []string:
		libs = vv
	case []interface{}:
		libs = make([]string, 0, len(vv))
		for _, x := range vv {
			s, is := x.(string)
			if !is {
				err = errors.New("bad library")
				return
			}
			libs = append(libs, s)
		}
	default:
		err = fmt.Errorf("bad requires (%T)", vv)
	}

	return
}

// AsSource accepts either a plain string or a map with "code" and
// optional "requires".
func AsSource(src interface{}) (code string, libs []string, err error) {
	switch vv := src.(type) {
	case string:
		code = vv
		return
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(vv))
		for k, v := range vv {
			str, ok := k.(string)
			if !ok {
				err = fmt.Errorf("bad src key (%T)", k)
				return
			}
			m[str] = v
		}
		return parseSource(m)
	case map[string]interface{}:
		return parseSource(vv)
	default:
		err = fmt.Errorf("bad Goja source (%T)", src)
		return
	}
}

// Compile prepends the required libraries and compiles the result.
// The code is the body of a function, so it should "return" its
// result.
//
// This method can block if the interpreter's library provider
// blocks.
func (i *Interpreter) Compile(ctx context.Context, src interface{}) (*goja.Program, error) {
	code, libs, err := AsSource(src)
	if err != nil {
		return nil, err
	}

	var libsSrc string
	for _, lib := range libs {
		libSrc, err := i.ProvideLibrary(ctx, lib)
		if err != nil {
			return nil, err
		}
		libsSrc += libSrc + "\n"
	}

	code = libsSrc + wrapSrc(code)

	p, err := goja.Compile("", code, true)
	if err != nil {
		return nil, errors.New(err.Error() + ": " + code)
	}

	return p, nil
}

// Env is what a snippet sees at "_".
type Env struct {
	// Answer is the content given to the state.
	Answer string

	// Answers are the user's answers so far.
	Answers map[string]string

	// Metadata is the state's metadata.
	Metadata map[string]interface{}

	// Lang is the user's language.
	Lang string

	// Config is the app's config.
	Config map[string]interface{}

	// Log, if not nil, receives _.log() output.  Otherwise the
	// process log does.
	Log func(string)
}

func protest(o *goja.Runtime, x interface{}) {
	panic(o.ToValue(x))
}

func export(x interface{}) interface{} {
	if v, is := x.(goja.Value); is {
		return v.Export()
	}
	return x
}

// Eval runs the program and returns its exported result.
//
// The following properties are available at _:
//
//	answer, answers, metadata, lang, config: from the Env.
//	gensym(): a random string.
//	esc(s): URL query-escape the given string.
//	cronNext(expr): the next time (RFC3339) for the cron expression.
//	log(x): log x as JSON.
//
// With Testing, sleep(ms) is also available.
func (i *Interpreter) Eval(ctx context.Context, p *goja.Program, env *Env) (interface{}, error) {
	if env == nil {
		env = &Env{}
	}

	answers := make(map[string]interface{}, len(env.Answers))
	for k, v := range env.Answers {
		answers[k] = v
	}
	m := map[string]interface{}{
		"answer":   env.Answer,
		"answers":  answers,
		"metadata": copyMap(env.Metadata),
		"lang":     env.Lang,
		"config":   copyMap(env.Config),
	}

	o := goja.New()
	o.Set("_", m)

	if i.Testing {
		o.Set("sleep", func(ms int) {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		})
	}

	m["gensym"] = func() interface{} {
		return uuid.NewString()
	}

	m["esc"] = func(x interface{}) interface{} {
		s, is := export(x).(string)
		if !is {
			protest(o, "not a string")
		}
		return url.QueryEscape(s)
	}

	m["cronNext"] = func(x interface{}) interface{} {
		expr, is := export(x).(string)
		if !is {
			protest(o, "not a string")
		}
		c, err := cronexpr.Parse(expr)
		if err != nil {
			protest(o, err.Error())
		}
		return c.Next(time.Now()).UTC().Format(time.RFC3339Nano)
	}

	m["log"] = func(x interface{}) interface{} {
		x = export(x)
		var s string
		if js, err := json.Marshal(&x); err != nil {
			s = "goja.log (can't marshal: " + err.Error() + ")"
		} else {
			s = string(js)
		}
		if env.Log != nil {
			env.Log(s)
		} else {
			log.Println(s)
		}
		return x
	}

	ictx, cancel := context.WithCancel(ctx)
	go func() {
		<-ictx.Done()
		// If RunProgram already returned, cancel() got us
		// here, and this interrupt is harmless.
		o.Interrupt(InterruptedMessage)
	}()

	v, err := o.RunProgram(p)
	cancel()

	if err != nil {
		if _, is := err.(*goja.InterruptedError); is {
			return nil, Interrupted
		}
		return nil, err
	}

	if v == nil {
		return nil, nil
	}
	return v.Export(), nil
}

// EvalString runs the program and expects a string (or
// null/undefined, which gives "").
func (i *Interpreter) EvalString(ctx context.Context, p *goja.Program, env *Env) (string, error) {
	x, err := i.Eval(ctx, p, env)
	if err != nil {
		return "", err
	}
	switch vv := x.(type) {
	case nil:
		return "", nil
	case string:
		return vv, nil
	default:
		return "", fmt.Errorf("%#v (%T) isn't a string", x, x)
	}
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	acc := make(map[string]interface{}, len(m))
	for k, v := range m {
		acc[k] = v
	}
	return acc
}
