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

import "encoding/json"

// ConfigKey is the sandbox config key holding the app's config.
const ConfigKey = "config"

// Config is the app's sandbox config.
type Config struct {
	Name        string `json:"name,omitempty"`
	DefaultLang string `json:"default_lang,omitempty"`

	// UserStore namespaces user records.
	UserStore string `json:"user_store,omitempty"`

	// Extra has every key, including the ones above.
	Extra map[string]interface{} `json:"-"`
}

func (c *Config) UnmarshalJSON(js []byte) error {
	type known Config
	var k known
	if err := json.Unmarshal(js, &k); err != nil {
		return err
	}
	var extra map[string]interface{}
	if err := json.Unmarshal(js, &extra); err != nil {
		return err
	}
	*c = Config(k)
	c.Extra = extra
	return nil
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (interface{}, bool) {
	if c == nil || c.Extra == nil {
		return nil, false
	}
	v, have := c.Extra[key]
	return v, have
}
