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
	"context"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/praekeltfoundation/vumigo/sandbox"
)

// Jar is a cookie jar shared by an app's HTTP requests.
type Jar struct {
	*cookiejar.Jar
}

func NewJar() (*Jar, error) {
	cookieJar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return &Jar{Jar: cookieJar}, nil
}

// HTTPRequest is an HTTP request made on behalf of an app.
type HTTPRequest struct {
	*sandbox.HTTPRequest

	Timeout   time.Duration
	CookieJar *Jar

	Debug bool

	// TestResponse, if there, will be returned instead of
	// attempting a real HTTP request.
	TestResponse *sandbox.HTTPResponse
}

func (r *HTTPRequest) logf(format string, args ...interface{}) {
	if r.Debug {
		log.Printf(format, args...)
	}
}

// Do makes the request and calls the handler with the result.
func (r *HTTPRequest) Do(ctx context.Context, handler func(context.Context, *sandbox.HTTPResponse) error) error {
	if r.TestResponse != nil {
		return handler(ctx, r.TestResponse)
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return err
	}

	if 0 < r.Timeout {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if r.Body != "" {
		body = strings.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	for k, vs := range r.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	// http.Client owns cookie jars, and we don't want a client
	// per request, so the jar is applied by hand.
	if r.CookieJar != nil {
		for i, cookie := range r.CookieJar.Cookies(u) {
			r.logf("adding cookie %d: %#v", i, cookie)
			req.AddCookie(cookie)
		}
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		r.logf("HTTPRequest.Do Do error %v", err)
		return err
	}
	defer resp.Body.Close()

	bs, err := io.ReadAll(resp.Body)
	if err != nil {
		r.logf("HTTPRequest.Do ReadAll error %v", err)
		return err
	}

	if r.CookieJar != nil {
		r.logf("HTTPRequest.Do updating cookies")
		r.CookieJar.SetCookies(u, resp.Cookies())
	}

	result := &sandbox.HTTPResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       string(bs),
	}
	r.logf("HTTPResponse %d %s", result.StatusCode, JShort(result.Body))

	return handler(ctx, result)
}
