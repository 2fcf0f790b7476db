// Copyright 2025 agentfs authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package store owns the SQLite database underneath the filesystem: schema
// bootstrap, transaction scoping, and classification of constraint errors.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/mattn/go-sqlite3"

	"github.com/mulatta/agentfs-nix/internal/logger"
)

// DefaultChunkSize is the fs_config chunk_size value written when a database
// is created without an explicit override.
const DefaultChunkSize = 4096

type Config struct {
	// Path of the database file. Created if absent.
	Path string

	// ChunkSize to record in fs_config when bootstrapping a fresh database.
	// Ignored for databases that already carry a chunk_size row; changing the
	// chunk size of an existing filesystem is unsupported.
	ChunkSize int64
}

// Store is a handle to the backing database. It is safe for concurrent use;
// the underlying connection pool is restricted to a single connection so
// that write transactions never interleave.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at cfg.Path and runs the
// idempotent schema bootstrap.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	dsn := fmt.Sprintf(
		"file:%s?_busy_timeout=5000&_journal_mode=WAL", cfg.Path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	// A single connection serializes writers (and readers) at the pool,
	// making every transaction a total-order point.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.bootstrap(ctx, cfg.ChunkSize); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	logger.Debugf("store: opened %s", cfg.Path)
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw handle for read-only queries outside a transaction.
func (s *Store) DB() *sql.DB {
	return s.db
}

// WithTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise. The rollback also runs when fn panics.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			// Rollback on error or panic. The original error, if any, wins.
			if rbErr := tx.Rollback(); rbErr != nil && err == nil {
				err = fmt.Errorf("rollback: %w", rbErr)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// ChunkSize reads the filesystem chunk size from fs_config, falling back to
// DefaultChunkSize when the row is absent or unparseable.
func (s *Store) ChunkSize(ctx context.Context) (int64, error) {
	var value string
	err := s.db.QueryRowContext(
		ctx, "SELECT value FROM fs_config WHERE key = 'chunk_size'").Scan(&value)
	if err == sql.ErrNoRows {
		return DefaultChunkSize, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read chunk_size: %w", err)
	}

	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		return DefaultChunkSize, nil
	}
	return n, nil
}

// IsConstraintErr reports whether err is a primary-key or uniqueness
// violation, so callers can translate races on dentry names into "already
// exists" rather than surfacing a raw database error.
func IsConstraintErr(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code == sqlite3.ErrConstraint
	}
	return false
}
