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

package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type StoreTest struct {
	suite.Suite
	ctx   context.Context
	path  string
	store *Store
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTest))
}

func (t *StoreTest) SetupTest() {
	t.ctx = context.Background()
	t.path = filepath.Join(t.T().TempDir(), "fs.db")

	var err error
	t.store, err = Open(t.ctx, Config{Path: t.path})
	require.NoError(t.T(), err)
}

func (t *StoreTest) TearDownTest() {
	assert.NoError(t.T(), t.store.Close())
}

func (t *StoreTest) TestBootstrapWritesChunkSizeAndRoot() {
	var value string
	err := t.store.DB().QueryRowContext(t.ctx,
		"SELECT value FROM fs_config WHERE key = 'chunk_size'").Scan(&value)
	require.NoError(t.T(), err)
	assert.Equal(t.T(), "4096", value)

	var mode int64
	err = t.store.DB().QueryRowContext(t.ctx,
		"SELECT mode FROM fs_inode WHERE ino = ?", RootIno).Scan(&mode)
	require.NoError(t.T(), err)
	assert.Equal(t.T(), int64(0o040755), mode)
}

func (t *StoreTest) TestBootstrapIsIdempotent() {
	// Reopening the same file must not duplicate config or the root inode.
	second, err := Open(t.ctx, Config{Path: t.path})
	require.NoError(t.T(), err)
	defer second.Close()

	var n int64
	err = second.DB().QueryRowContext(t.ctx,
		"SELECT COUNT(*) FROM fs_inode").Scan(&n)
	require.NoError(t.T(), err)
	assert.Equal(t.T(), int64(1), n)

	err = second.DB().QueryRowContext(t.ctx,
		"SELECT COUNT(*) FROM fs_config").Scan(&n)
	require.NoError(t.T(), err)
	assert.Equal(t.T(), int64(1), n)
}

func (t *StoreTest) TestChunkSizeOverrideOnFreshDatabase() {
	path := filepath.Join(t.T().TempDir(), "small.db")
	s, err := Open(t.ctx, Config{Path: path, ChunkSize: 16})
	require.NoError(t.T(), err)
	defer s.Close()

	size, err := s.ChunkSize(t.ctx)
	require.NoError(t.T(), err)
	assert.Equal(t.T(), int64(16), size)

	// The override does not apply to an existing database.
	size, err = t.store.ChunkSize(t.ctx)
	require.NoError(t.T(), err)
	assert.Equal(t.T(), int64(DefaultChunkSize), size)
}

func (t *StoreTest) TestWithTxRollsBackOnError() {
	boom := errors.New("boom")
	err := t.store.WithTx(t.ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(t.ctx,
			"INSERT INTO fs_config (key, value) VALUES ('x', '1')")
		require.NoError(t.T(), err)
		return boom
	})
	assert.ErrorIs(t.T(), err, boom)

	var n int64
	err = t.store.DB().QueryRowContext(t.ctx,
		"SELECT COUNT(*) FROM fs_config WHERE key = 'x'").Scan(&n)
	require.NoError(t.T(), err)
	assert.Equal(t.T(), int64(0), n)
}

func (t *StoreTest) TestWithTxCommits() {
	err := t.store.WithTx(t.ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(t.ctx,
			"INSERT INTO fs_config (key, value) VALUES ('y', '2')")
		return err
	})
	require.NoError(t.T(), err)

	var value string
	err = t.store.DB().QueryRowContext(t.ctx,
		"SELECT value FROM fs_config WHERE key = 'y'").Scan(&value)
	require.NoError(t.T(), err)
	assert.Equal(t.T(), "2", value)
}

func (t *StoreTest) TestIsConstraintErr() {
	err := t.store.WithTx(t.ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(t.ctx,
			"INSERT INTO fs_dentry (name, parent_ino, ino) VALUES ('a', 1, 2)"); err != nil {
			return err
		}
		_, err := tx.ExecContext(t.ctx,
			"INSERT INTO fs_dentry (name, parent_ino, ino) VALUES ('a', 1, 3)")
		return err
	})
	require.Error(t.T(), err)
	assert.True(t.T(), IsConstraintErr(err))

	assert.False(t.T(), IsConstraintErr(errors.New("plain")))
	assert.False(t.T(), IsConstraintErr(nil))
}
