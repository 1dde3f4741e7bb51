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

// Package storagetest checks storage.Storage implementations.
package storagetest

import (
	"context"
	"testing"

	"github.com/praekeltfoundation/vumigo/storage"
)

// Exercise checks the basic behavior of a Storage.  The store must
// be open.
func Exercise(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	if _, found, err := s.Get(ctx, "users.homer"); err != nil {
		t.Fatal(err)
	} else if found {
		t.Fatal("found a missing key")
	}

	if err := s.Set(ctx, "users.homer", []byte(`{"addr":"homer"}`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "users.homer", []byte(`{"addr":"homer","lang":"en"}`)); err != nil {
		t.Fatal(err)
	}

	bs, found, err := s.Get(ctx, "users.homer")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("didn't find users.homer")
	}
	if string(bs) != `{"addr":"homer","lang":"en"}` {
		t.Fatal(string(bs))
	}
}

