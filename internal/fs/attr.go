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

package fs

import (
	"context"
	"database/sql"
	"fmt"
)

// Chmod replaces the permission bits (the low 12) of the object at path,
// preserving its type bits, and stamps ctime. Errors: ErrNotFound.
func (fs *Filesystem) Chmod(ctx context.Context, path string, mode uint32) error {
	return fs.store.WithTx(ctx, func(tx *sql.Tx) error {
		ino, s, err := fs.requireInode(ctx, tx, path)
		if err != nil {
			return err
		}

		newMode := (s.Mode &^ uint32(0o7777)) | (mode & 0o7777)
		if _, err := tx.ExecContext(ctx,
			"UPDATE fs_inode SET mode = ?, ctime = ? WHERE ino = ?",
			newMode, fs.now(), ino); err != nil {
			return fmt.Errorf("update mode of ino %d: %w", ino, err)
		}
		return nil
	})
}

// Chown replaces the provided ownership fields of the object at path; a nil
// field is left unchanged. Stamps ctime. Errors: ErrNotFound.
func (fs *Filesystem) Chown(ctx context.Context, path string, uid, gid *uint32) error {
	return fs.store.WithTx(ctx, func(tx *sql.Tx) error {
		ino, s, err := fs.requireInode(ctx, tx, path)
		if err != nil {
			return err
		}

		newUid := s.Uid
		if uid != nil {
			newUid = *uid
		}
		newGid := s.Gid
		if gid != nil {
			newGid = *gid
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE fs_inode SET uid = ?, gid = ?, ctime = ? WHERE ino = ?",
			newUid, newGid, fs.now(), ino); err != nil {
			return fmt.Errorf("update ownership of ino %d: %w", ino, err)
		}
		return nil
	})
}

// Synthetic headroom reported by Statfs. The store imposes no real limit;
// the values only need to be stable.
const (
	statfsFreeBlocks = int64(1) << 30
	statfsFreeFiles  = int64(1) << 30
	statfsNameMax    = 255
)

// Statfs derives filesystem totals from the inode and chunk counts.
func (fs *Filesystem) Statfs(ctx context.Context) (*FilesystemStats, error) {
	st := &FilesystemStats{
		BlockSize:   fs.chunkSize,
		BlocksFree:  statfsFreeBlocks,
		BlocksAvail: statfsFreeBlocks,
		FilesFree:   statfsFreeFiles,
		NameMax:     statfsNameMax,
	}

	err := fs.store.WithTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM fs_data").Scan(&st.Blocks); err != nil {
			return fmt.Errorf("count chunks: %w", err)
		}
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM fs_inode").Scan(&st.Files); err != nil {
			return fmt.Errorf("count inodes: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// requireInode resolves path and loads its inode, turning absence into
// ErrNotFound.
func (fs *Filesystem) requireInode(ctx context.Context, tx *sql.Tx, path string) (int64, *Stats, error) {
	ino, ok, err := fs.resolvePath(ctx, tx, path)
	if err != nil {
		return 0, nil, err
	}
	if !ok {
		return 0, nil, ErrNotFound
	}

	s, err := fs.readInode(ctx, tx, ino)
	if err != nil {
		return 0, nil, err
	}
	if s == nil {
		return 0, nil, ErrNotFound
	}
	return ino, s, nil
}
