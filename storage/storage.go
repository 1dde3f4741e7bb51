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

// Package storage provides key-value stores for user records.
//
// Subpackages bolt and sqlite have persistent implementations.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"sort"
	"sync"

	"github.com/praekeltfoundation/vumigo/sandbox"
)

// Storage is a sandbox.KV that needs opening and closing.
type Storage interface {
	sandbox.KV

	Open(ctx context.Context) error
	Close(ctx context.Context) error
}

// ErrClosed is returned when a store is used before Open or after
// Close.
var ErrClosed = errors.New("storage not open")

// Memory is a Storage that keeps everything in a map.
type Memory struct {
	sync.Mutex
	Debug bool

	m map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{
		m: make(map[string][]byte),
	}
}

func (s *Memory) logf(format string, args ...interface{}) {
	if s.Debug {
		log.Printf("Memory Storage."+format, args...)
	}
}

// Open does nothing.
func (s *Memory) Open(ctx context.Context) error {
	return nil
}

// Close does nothing.
func (s *Memory) Close(ctx context.Context) error {
	return nil
}

func (s *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.Lock()
	defer s.Unlock()
	s.logf("Get %s", key)
	bs, have := s.m[key]
	if !have {
		return nil, false, nil
	}
	return append([]byte(nil), bs...), true, nil
}

func (s *Memory) Set(ctx context.Context, key string, value []byte) error {
	s.Lock()
	defer s.Unlock()
	s.logf("Set %s %s", key, value)
	if s.m == nil {
		s.m = make(map[string][]byte)
	}
	s.m[key] = append([]byte(nil), value...)
	return nil
}

// Keys returns the stored keys, sorted.
func (s *Memory) Keys() []string {
	s.Lock()
	defer s.Unlock()
	acc := make([]string, 0, len(s.m))
	for k := range s.m {
		acc = append(acc, k)
	}
	sort.Strings(acc)
	return acc
}

// JSONFile is a Memory that's read from a file when opened and
// written back to the file when closed.
//
// Not glamorous or efficient.
type JSONFile struct {
	*Memory

	Filename string
}

func NewJSONFile(filename string) *JSONFile {
	return &JSONFile{
		Memory:   NewMemory(),
		Filename: filename,
	}
}

// Open reads the file if it exists.
func (s *JSONFile) Open(ctx context.Context) error {
	js, err := os.ReadFile(s.Filename)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var m map[string]json.RawMessage
	if err = json.Unmarshal(js, &m); err != nil {
		return err
	}
	s.Lock()
	defer s.Unlock()
	for k, v := range m {
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err != nil {
			return err
		}
		s.m[k] = buf.Bytes()
	}
	return nil
}

// Close writes everything to the file.  Values that aren't JSON are
// written as JSON strings.
func (s *JSONFile) Close(ctx context.Context) error {
	s.Lock()
	m := make(map[string]json.RawMessage, len(s.m))
	for k, v := range s.m {
		if json.Valid(v) {
			m[k] = v
			continue
		}
		js, err := json.Marshal(string(v))
		if err != nil {
			s.Unlock()
			return err
		}
		m[k] = js
	}
	s.Unlock()

	js, err := json.MarshalIndent(&m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.Filename, js, 0644)
}
