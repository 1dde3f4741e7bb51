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
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// JS renders its argument as JSON or as '%#v'.
func JS(x interface{}) string {
	if x == nil {
		return "null"
	}
	js, err := json.Marshal(x)
	if err != nil {
		return fmt.Sprintf("%#v", x)
	}
	return string(js)
}

const shortLimit = 70

// JShort is JS truncated for log lines.
func JShort(x interface{}) string {
	s := JS(x)
	if len(s) <= shortLimit {
		return s
	}
	return s[:shortLimit] + "..."
}

var shellCmd = regexp.MustCompile(`<<(.*?)>>`)

// ShellExpand replaces each <<CMD>> in the line with the output of
// 'bash -c CMD'.  The first failing command stops the expansion.
//
// Handy for generating message ids or timestamps when typing
// commands by hand.
func ShellExpand(line string) (string, error) {
	var failed error
	expanded := shellCmd.ReplaceAllStringFunc(line, func(m string) string {
		if failed != nil {
			return m
		}
		sh := shellCmd.FindStringSubmatch(m)[1]
		out, err := exec.Command("bash", "-c", sh).Output()
		if err != nil {
			failed = fmt.Errorf("shell error %s on %s", err, sh)
			return m
		}
		return strings.TrimRight(string(out), "\n")
	})
	if failed != nil {
		return "", failed
	}
	return expanded, nil
}
