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


package main

import (
	"testing"
)

func TestRun(t *testing.T) {
	const quiz = "../../apps/quiz.yaml"
	for _, cmd := range []string{"check", "dot", "mermaid", "html"} {
		if err := run(cmd, quiz, nil, true, "", "", ""); err != nil {
			t.Fatal(cmd, err)
		}
	}
	if err := run("tacos", quiz, nil, true, "", "", ""); err == nil {
		t.Fatal("expected an error")
	}
	if err := run("check", "nope.yaml", nil, true, "", "", ""); err == nil {
		t.Fatal("expected an error")
	}
}
