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
	"fmt"
	"strconv"
	"time"
)

// RootIno is the inode number of the filesystem root. Fixed by the schema;
// AUTOINCREMENT hands out 2 and up for everything else.
const RootIno int64 = 1

const rootDirMode = 0o040755

// No foreign keys: cascades are the filesystem layer's responsibility, which
// deletes child rows explicitly inside the owning transaction.
const schema = `
CREATE TABLE IF NOT EXISTS fs_config (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS fs_inode (
	ino INTEGER PRIMARY KEY AUTOINCREMENT,
	mode INTEGER NOT NULL,
	uid INTEGER NOT NULL DEFAULT 0,
	gid INTEGER NOT NULL DEFAULT 0,
	size INTEGER NOT NULL DEFAULT 0,
	atime INTEGER NOT NULL,
	mtime INTEGER NOT NULL,
	ctime INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS fs_dentry (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	parent_ino INTEGER NOT NULL,
	ino INTEGER NOT NULL,
	UNIQUE(parent_ino, name)
);

CREATE INDEX IF NOT EXISTS idx_fs_dentry_parent
	ON fs_dentry(parent_ino, name);

CREATE TABLE IF NOT EXISTS fs_data (
	ino INTEGER NOT NULL,
	chunk_index INTEGER NOT NULL,
	data BLOB NOT NULL,
	PRIMARY KEY (ino, chunk_index)
);

CREATE TABLE IF NOT EXISTS fs_symlink (
	ino INTEGER PRIMARY KEY,
	target TEXT NOT NULL
);
`

// bootstrap creates any missing tables, the chunk_size config row, and the
// root inode. Safe to run on every open.
func (s *Store) bootstrap(ctx context.Context, chunkSize int64) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}

		if chunkSize <= 0 {
			chunkSize = DefaultChunkSize
		}
		_, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO fs_config (key, value) VALUES ('chunk_size', ?)",
			strconv.FormatInt(chunkSize, 10))
		if err != nil {
			return fmt.Errorf("insert chunk_size: %w", err)
		}

		var ino int64
		err = tx.QueryRowContext(ctx,
			"SELECT ino FROM fs_inode WHERE ino = ?", RootIno).Scan(&ino)
		switch {
		case err == sql.ErrNoRows:
			now := time.Now().Unix()
			_, err = tx.ExecContext(ctx,
				`INSERT INTO fs_inode (ino, mode, uid, gid, size, atime, mtime, ctime)
				 VALUES (?, ?, 0, 0, 0, ?, ?, ?)`,
				RootIno, rootDirMode, now, now, now)
			if err != nil {
				return fmt.Errorf("insert root inode: %w", err)
			}
		case err != nil:
			return fmt.Errorf("look up root inode: %w", err)
		}

		return nil
	})
}
