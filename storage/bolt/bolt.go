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

// Package bolt is a storage.Storage backed by a bbolt file.
package bolt

import (
	"context"
	"log"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/praekeltfoundation/vumigo/storage"
)

// DefaultBucket holds every key.
var DefaultBucket = "vumigo"

type Storage struct {
	Debug    bool
	Bucket   string
	filename string
	db       *bolt.DB
}

func NewStorage(filename string) (*Storage, error) {
	return &Storage{
		Bucket:   DefaultBucket,
		filename: filename,
	}, nil
}

// Open opens the file and makes sure the bucket exists.
func (s *Storage) Open(ctx context.Context) error {
	opts := &bolt.Options{
		Timeout: time.Second,
	}

	db, err := bolt.Open(s.filename, 0644, opts)
	if err != nil {
		return err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(s.Bucket))
		return err
	})
	if err != nil {
		db.Close()
		return err
	}
	s.db = db
	return nil
}

func (s *Storage) Close(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Storage) logf(format string, args ...interface{}) {
	if s.Debug {
		log.Printf("BoltDB Storage."+format, args...)
	}
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.logf("Get %s", key)
	if s.db == nil {
		return nil, false, storage.ErrClosed
	}
	var bs []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(s.Bucket)).Get([]byte(key)); v != nil {
			// v is only valid during the transaction.
			bs = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return bs, bs != nil, nil
}

func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	s.logf("Set %s %s", key, value)
	if s.db == nil {
		return storage.ErrClosed
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(s.Bucket)).Put([]byte(key), value)
	})
}
