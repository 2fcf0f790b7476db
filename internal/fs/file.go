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

// WriteFile replaces the whole contents of the file at path with data,
// creating a regular file (mode 0100644) when the path is absent. The old
// chunks are deleted and the new contents inserted as dense chunk_size
// chunks, all in one transaction. Errors: ErrNotFound/ErrNotDir for the
// parent, ErrIsDir when path exists as a directory.
func (fs *Filesystem) WriteFile(ctx context.Context, path string, data []byte) error {
	return fs.store.WithTx(ctx, func(tx *sql.Tx) error {
		parentIno, name, err := fs.resolveParent(ctx, tx, path)
		if err != nil {
			return err
		}

		ino, ok, err := fs.lookupDentry(ctx, tx, parentIno, name)
		if err != nil {
			return err
		}
		if ok {
			s, err := fs.readInode(ctx, tx, ino)
			if err != nil {
				return err
			}
			if s == nil {
				return ErrNotFound
			}
			if s.IsDir() {
				return ErrIsDir
			}
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM fs_data WHERE ino = ?", ino); err != nil {
				return fmt.Errorf("delete chunks of ino %d: %w", ino, err)
			}
		} else {
			ino, err = fs.createInode(ctx, tx, DefaultFileMode, 0, 0, int64(len(data)))
			if err != nil {
				return err
			}
			if err := fs.createDentry(ctx, tx, parentIno, name, ino); err != nil {
				return err
			}
		}

		if err := fs.writeChunks(ctx, tx, ino, data); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE fs_inode SET size = ?, mtime = ? WHERE ino = ?",
			int64(len(data)), fs.now(), ino); err != nil {
			return fmt.Errorf("update size of ino %d: %w", ino, err)
		}
		return nil
	})
}

// writeChunks splits data into dense chunks of chunkSize bytes (the last
// one may be shorter) with consecutive indices from 0.
func (fs *Filesystem) writeChunks(ctx context.Context, tx *sql.Tx, ino int64, data []byte) error {
	chunkSize := int(fs.chunkSize)
	for index := 0; index*chunkSize < len(data); index++ {
		end := (index + 1) * chunkSize
		if end > len(data) {
			end = len(data)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO fs_data (ino, chunk_index, data) VALUES (?, ?, ?)",
			ino, index, data[index*chunkSize:end]); err != nil {
			return fmt.Errorf("insert chunk %d of ino %d: %w", index, ino, err)
		}
	}
	return nil
}

// ReadFile returns the whole contents of the regular file at path. The
// chunks are concatenated in ascending chunk_index order, so the result
// length equals the inode's size. An absent path yields (nil, nil); an
// existing empty file yields a non-nil empty slice. Reading a non-file
// yields ErrNotFile. atime is refreshed in the same transaction.
func (fs *Filesystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := fs.store.WithTx(ctx, func(tx *sql.Tx) error {
		ino, ok, err := fs.resolvePath(ctx, tx, path)
		if err != nil || !ok {
			return err
		}

		s, err := fs.readInode(ctx, tx, ino)
		if err != nil {
			return err
		}
		if s == nil {
			return nil
		}
		if !s.IsFile() {
			return ErrNotFile
		}

		rows, err := tx.QueryContext(ctx,
			"SELECT data FROM fs_data WHERE ino = ? ORDER BY chunk_index", ino)
		if err != nil {
			return fmt.Errorf("read chunks of ino %d: %w", ino, err)
		}
		defer rows.Close()

		data = make([]byte, 0, s.Size)
		for rows.Next() {
			var chunk []byte
			if err := rows.Scan(&chunk); err != nil {
				return fmt.Errorf("scan chunk: %w", err)
			}
			data = append(data, chunk...)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		// Best-effort access-time update, seconds granularity.
		if _, err := tx.ExecContext(ctx,
			"UPDATE fs_inode SET atime = ? WHERE ino = ?", fs.now(), ino); err != nil {
			return fmt.Errorf("update atime of ino %d: %w", ino, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// CreateFile creates an empty regular file with the supplied permission
// bits and ownership and returns its attributes together with an open
// handle. Errors: ErrExist when path is present, plus the usual parent
// errors.
func (fs *Filesystem) CreateFile(ctx context.Context, path string, mode uint32, uid, gid uint32) (*Stats, *Handle, error) {
	var st *Stats
	err := fs.store.WithTx(ctx, func(tx *sql.Tx) error {
		parentIno, name, err := fs.resolveParent(ctx, tx, path)
		if err != nil {
			return err
		}

		if _, ok, err := fs.lookupDentry(ctx, tx, parentIno, name); err != nil {
			return err
		} else if ok {
			return ErrExist
		}

		ino, err := fs.createInode(ctx, tx, ModeRegular|(mode&0o7777), uid, gid, 0)
		if err != nil {
			return err
		}
		if err := fs.createDentry(ctx, tx, parentIno, name, ino); err != nil {
			return err
		}

		st, err = fs.readInode(ctx, tx, ino)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	return st, newHandle(fs, path, nil), nil
}

// Open returns a read/write handle over the regular file at path. The
// handle buffers mutations in memory and commits them with WriteFile
// semantics on Flush or Close. Errors: ErrNotFound, ErrNotFile.
func (fs *Filesystem) Open(ctx context.Context, path string) (*Handle, error) {
	data, err := fs.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrNotFound
	}
	return newHandle(fs, path, data), nil
}

// chunkCount reports the number of fs_data rows held by ino.
func (fs *Filesystem) chunkCount(ctx context.Context, ino int64) (int64, error) {
	var n int64
	err := fs.store.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM fs_data WHERE ino = ?", ino).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count chunks of ino %d: %w", ino, err)
	}
	return n, nil
}
