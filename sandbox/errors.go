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

package sandbox

import "errors"

// RequestError marks a failure of a host request (storage, outbound,
// config).  These failures are infrastructure errors: the machine
// logs them and stops mutating state.
type RequestError struct {
	Op  string
	Err error
}

func (e *RequestError) Error() string {
	return "sandbox request " + e.Op + " failed: " + e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Wrap returns a RequestError for the operation, or nil if err is nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *RequestError
	if errors.As(err, &re) {
		return err
	}
	return &RequestError{
		Op:  op,
		Err: err,
	}
}

// IsRequestError reports whether the error is (or wraps) a
// RequestError.
func IsRequestError(err error) bool {
	var re *RequestError
	return errors.As(err, &re)
}
