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

package appdef

// These errors are user errors, found by Compile.

// MissingStart occurs when a Def has no start state.
type MissingStart struct {
	Def *Def
}

func (e *MissingStart) Error() string {
	return `app "` + e.Def.Name + `" has no start state`
}

// UnknownState occurs when a state refers to a state that isn't
// defined.  From is empty for the start state.
type UnknownState struct {
	Def  *Def
	Name string
	From string
}

func (e *UnknownState) Error() string {
	if e.From == "" {
		return `start state "` + e.Name + `" not found in app "` + e.Def.Name + `"`
	}
	return `state "` + e.Name + `" (from "` + e.From + `") not found in app "` + e.Def.Name + `"`
}

// BadState occurs when a state's definition doesn't make sense.
type BadState struct {
	Def     *Def
	Name    string
	Problem string
}

func (e *BadState) Error() string {
	return `state "` + e.Name + `" in app "` + e.Def.Name + `": ` + e.Problem
}

// BadSource occurs when a state's script doesn't compile.
type BadSource struct {
	Def  *Def
	Name string
	Err  error
}

func (e *BadSource) Error() string {
	return `source at state "` + e.Name + `" in app "` + e.Def.Name + `": ` + e.Err.Error()
}

func (e *BadSource) Unwrap() error {
	return e.Err
}

// NotCompiled occurs when App is called before Compile.
type NotCompiled struct {
	Def *Def
}

func (e *NotCompiled) Error() string {
	return `app "` + e.Def.Name + `" not compiled`
}
