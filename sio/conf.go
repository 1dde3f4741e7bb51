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
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v2"

	"github.com/praekeltfoundation/vumigo/storage"
	"github.com/praekeltfoundation/vumigo/storage/bolt"
	"github.com/praekeltfoundation/vumigo/storage/sqlite"
)

// Store types.
const (
	StoreMemory = "memory"
	StoreJSON   = "json"
	StoreBolt   = "bolt"
	StoreSQLite = "sqlite"
)

// HostConf configures a Host.
//
// Values come from an optional YAML file, and then environment
// variables override them.
type HostConf struct {
	// App is the filename of the app definition.
	App string `yaml:"app" env:"VUMIGO_APP"`

	// Store is one of "memory", "json", "bolt" or "sqlite".
	Store string `yaml:"store" env:"VUMIGO_STORE"`

	// StorePath is the file for the json, bolt and sqlite stores.
	StorePath string `yaml:"store_path" env:"VUMIGO_STORE_PATH"`

	// Config is the sandbox config.  Each value is given to the
	// machine as JSON.  The "config" key holds the app's config.
	Config map[string]interface{} `yaml:"config"`

	// Translations maps a language to a file with its Jed-style
	// JSON translations.  Each file is served as the sandbox
	// config key "translation.<lang>".
	Translations map[string]string `yaml:"translations"`

	// HTTPTimeout bounds HTTP requests made for apps.
	HTTPTimeout time.Duration `yaml:"http_timeout" env:"VUMIGO_HTTP_TIMEOUT"`

	Verbose bool `yaml:"verbose" env:"VUMIGO_VERBOSE"`
}

// NewHostConf returns the defaults.
func NewHostConf() *HostConf {
	return &HostConf{
		Store:       StoreMemory,
		HTTPTimeout: 10 * time.Second,
	}
}

// ReadHostConf reads the YAML file (if filename isn't empty) and then
// applies environment overrides.
func ReadHostConf(filename string) (*HostConf, error) {
	c := NewHostConf()
	if filename != "" {
		bs, err := os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
		if err = yaml.Unmarshal(bs, c); err != nil {
			return nil, fmt.Errorf("host conf %s: %w", filename, err)
		}
	}
	if err := env.Parse(c); err != nil {
		return nil, err
	}
	return c, nil
}

// OpenStore makes and opens the configured store.
func (c *HostConf) OpenStore(ctx context.Context) (storage.Storage, error) {
	var s storage.Storage
	switch c.Store {
	case "", StoreMemory:
		s = storage.NewMemory()
	case StoreJSON:
		s = storage.NewJSONFile(c.path("users.json"))
	case StoreBolt:
		b, err := bolt.NewStorage(c.path("users.db"))
		if err != nil {
			return nil, err
		}
		b.Debug = c.Verbose
		s = b
	case StoreSQLite:
		q, err := sqlite.NewStorage(c.path("users.sqlite"))
		if err != nil {
			return nil, err
		}
		q.Debug = c.Verbose
		s = q
	default:
		return nil, fmt.Errorf("unknown store '%s'", c.Store)
	}
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (c *HostConf) path(def string) string {
	if c.StorePath == "" {
		return def
	}
	return c.StorePath
}

// SandboxConfig renders Config and Translations as raw sandbox config
// values.
func (c *HostConf) SandboxConfig() (map[string][]byte, error) {
	acc := make(map[string][]byte, len(c.Config)+len(c.Translations))
	for k, v := range c.Config {
		js, err := json.Marshal(stringKeys(v))
		if err != nil {
			return nil, fmt.Errorf("config %s: %w", k, err)
		}
		acc[k] = js
	}
	for lang, filename := range c.Translations {
		bs, err := os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
		if !json.Valid(bs) {
			return nil, fmt.Errorf("translation file %s isn't JSON", filename)
		}
		acc["translation."+lang] = bs
	}
	return acc, nil
}

// stringKeys converts the map[interface{}]interface{} values that
// yaml.v2 produces so that encoding/json can handle them.
func stringKeys(x interface{}) interface{} {
	switch vv := x.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(vv))
		for k, v := range vv {
			m[fmt.Sprintf("%v", k)] = stringKeys(v)
		}
		return m
	case map[string]interface{}:
		m := make(map[string]interface{}, len(vv))
		for k, v := range vv {
			m[k] = stringKeys(v)
		}
		return m
	case []interface{}:
		acc := make([]interface{}, len(vv))
		for i, v := range vv {
			acc[i] = stringKeys(v)
		}
		return acc
	}
	return x
}
