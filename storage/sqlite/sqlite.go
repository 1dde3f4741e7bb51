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

// Package sqlite is a storage.Storage backed by a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite"

	"github.com/praekeltfoundation/vumigo/storage"
)

type Storage struct {
	Debug bool
	dsn   string
	db    *sql.DB
}

// NewStorage makes a Storage for the given data source name, which
// is typically a filename.  Use ":memory:" for a transient database.
func NewStorage(dsn string) (*Storage, error) {
	return &Storage{
		dsn: dsn,
	}, nil
}

func (s *Storage) logf(format string, args ...interface{}) {
	if s.Debug {
		log.Printf("SQLite Storage."+format, args...)
	}
}

// Open opens the database and creates the kv table if necessary.
func (s *Storage) Open(ctx context.Context) error {
	db, err := sql.Open("sqlite", s.dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	// A ":memory:" database is per connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS kv (
		k TEXT PRIMARY KEY,
		v BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	);`
	if _, err := db.ExecContext(ctx, query); err != nil {
		db.Close()
		return fmt.Errorf("create schema: %w", err)
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

func (s *Storage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.logf("Get %s", key)
	if s.db == nil {
		return nil, false, storage.ErrClosed
	}
	var bs []byte
	err := s.db.QueryRowContext(ctx, `SELECT v FROM kv WHERE k = ?`, key).Scan(&bs)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("scan kv row: %w", err)
	}
	return bs, true, nil
}

func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	s.logf("Set %s %s", key, value)
	if s.db == nil {
		return storage.ErrClosed
	}
	query := `
	INSERT INTO kv (k, v, updated_at) VALUES (?, ?, strftime('%s', 'now'))
	ON CONFLICT(k) DO UPDATE SET
		v = excluded.v,
		updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("upsert kv: %w", err)
	}
	return nil
}
