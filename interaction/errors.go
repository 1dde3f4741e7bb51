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

package interaction

import (
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"
)

// ErrAlreadyReplied is returned by Reply on the second attempt to
// reply to the same message.
var ErrAlreadyReplied = errors.New("already replied")

// ErrNoMessage is returned for an inbound-message command without a
// message.
var ErrNoMessage = errors.New("inbound-message command without a message")

// CreationError reports a state creator that failed or made the
// wrong thing.
type CreationError struct {
	Name   string
	Reason string
	Err    error
}

func (e *CreationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("creating state '%s': %s: %s", e.Name, e.Reason, e.Err)
	}
	return fmt.Sprintf("creating state '%s': %s", e.Name, e.Reason)
}

func (e *CreationError) Unwrap() error {
	return e.Err
}

// PanicError is a panic from application code, recovered.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// guard calls f and turns a panic into a PanicError.
func guard(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{
				Value: r,
				Stack: debug.Stack(),
			}
		}
	}()
	return f()
}

// isNil catches typed nils hiding in interfaces.
func isNil(x interface{}) bool {
	if x == nil {
		return true
	}
	v := reflect.ValueOf(x)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Func, reflect.Interface, reflect.Slice, reflect.Chan:
		return v.IsNil()
	}
	return false
}
