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

// Package fs implements the filesystem engine: a persistent inode-based
// namespace with chunked file data, symbolic links, hard links, and atomic
// path mutations over the SQLite store.
//
// Every operation runs inside one store transaction, so a caller either
// observes the whole effect of an operation or none of it. Lookups that miss
// return an absent result rather than an error; see each method for its
// exact contract.
package fs

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mulatta/agentfs-nix/internal/clock"
	"github.com/mulatta/agentfs-nix/internal/fspath"
	"github.com/mulatta/agentfs-nix/internal/store"
)

// RootIno is the inode number of "/".
const RootIno = store.RootIno

// Filesystem serves path-based operations over a store. It is safe for
// concurrent use; all mutual exclusion is delegated to the store's
// transaction serialization, and the struct itself is immutable after New.
type Filesystem struct {
	store     *store.Store
	clock     clock.Clock
	chunkSize int64
}

// New builds a Filesystem over an opened store. The chunk size is read from
// fs_config once, here; changing it after files exist is unsupported.
func New(ctx context.Context, s *store.Store, c clock.Clock) (*Filesystem, error) {
	chunkSize, err := s.ChunkSize(ctx)
	if err != nil {
		return nil, fmt.Errorf("read chunk size: %w", err)
	}

	return &Filesystem{
		store:     s,
		clock:     c,
		chunkSize: chunkSize,
	}, nil
}

// ChunkSize returns the configured chunk size.
func (fs *Filesystem) ChunkSize() int64 {
	return fs.chunkSize
}

func (fs *Filesystem) now() int64 {
	return fs.clock.Now().Unix()
}

////////////////////////////////////////////////////////////////////////
// Resolution helpers (all require a transaction)
////////////////////////////////////////////////////////////////////////

// lookupDentry finds the child ino of (parentIno, name). ok is false when no
// such entry exists.
func (fs *Filesystem) lookupDentry(ctx context.Context, tx *sql.Tx, parentIno int64, name string) (ino int64, ok bool, err error) {
	err = tx.QueryRowContext(ctx,
		"SELECT ino FROM fs_dentry WHERE parent_ino = ? AND name = ?",
		parentIno, name).Scan(&ino)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("look up dentry %q: %w", name, err)
	}
	return ino, true, nil
}

// resolvePath walks the normalized path from the root. A missing component
// yields ok == false, not an error. Symlinks encountered anywhere on the
// path are not followed; Stat layers terminal-symlink following on top.
func (fs *Filesystem) resolvePath(ctx context.Context, tx *sql.Tx, path string) (ino int64, ok bool, err error) {
	segments := fspath.Split(path)
	ino = RootIno
	for _, name := range segments {
		ino, ok, err = fs.lookupDentry(ctx, tx, ino, name)
		if err != nil || !ok {
			return 0, false, err
		}
	}
	return ino, true, nil
}

// resolveParent resolves the directory that must hold the path's leaf entry,
// and returns the leaf name. Errors: ErrIsRoot when path is "/", ErrNotFound
// when the parent is absent, ErrNotDir when it is not a directory.
func (fs *Filesystem) resolveParent(ctx context.Context, tx *sql.Tx, path string) (parentIno int64, name string, err error) {
	segments := fspath.Split(path)
	if len(segments) == 0 {
		return 0, "", ErrIsRoot
	}

	parentIno, ok, err := fs.resolvePath(ctx, tx, fspath.Dir(path))
	if err != nil {
		return 0, "", err
	}
	if !ok {
		return 0, "", ErrNotFound
	}

	parent, err := fs.readInode(ctx, tx, parentIno)
	if err != nil {
		return 0, "", err
	}
	if parent == nil {
		return 0, "", ErrNotFound
	}
	if !parent.IsDir() {
		return 0, "", ErrNotDir
	}

	return parentIno, segments[len(segments)-1], nil
}

////////////////////////////////////////////////////////////////////////
// Inode helpers
////////////////////////////////////////////////////////////////////////

// linkCount counts the dentries referencing ino. This is the filesystem's
// nlink; it is never stored.
func (fs *Filesystem) linkCount(ctx context.Context, tx *sql.Tx, ino int64) (uint32, error) {
	var n int64
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM fs_dentry WHERE ino = ?", ino).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count links of ino %d: %w", ino, err)
	}
	return uint32(n), nil
}

// readInode loads an inode row and attaches the derived nlink. A missing row
// yields nil, not an error.
func (fs *Filesystem) readInode(ctx context.Context, tx *sql.Tx, ino int64) (*Stats, error) {
	s := &Stats{}
	err := tx.QueryRowContext(ctx,
		`SELECT ino, mode, uid, gid, size, atime, mtime, ctime
		 FROM fs_inode WHERE ino = ?`, ino).
		Scan(&s.Ino, &s.Mode, &s.Uid, &s.Gid, &s.Size, &s.Atime, &s.Mtime, &s.Ctime)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read inode %d: %w", ino, err)
	}

	s.Nlink, err = fs.linkCount(ctx, tx, ino)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// createInode inserts a new inode row and returns its assigned ino.
func (fs *Filesystem) createInode(ctx context.Context, tx *sql.Tx, mode uint32, uid, gid uint32, size int64) (int64, error) {
	now := fs.now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO fs_inode (mode, uid, gid, size, atime, mtime, ctime)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		mode, uid, gid, size, now, now, now)
	if err != nil {
		return 0, fmt.Errorf("insert inode: %w", err)
	}

	ino, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return ino, nil
}

// createDentry inserts the (parentIno, name) -> ino edge. A uniqueness
// violation, lost race included, comes back as ErrExist.
func (fs *Filesystem) createDentry(ctx context.Context, tx *sql.Tx, parentIno int64, name string, ino int64) error {
	if !ValidName(name) {
		return ErrInvalidName
	}

	_, err := tx.ExecContext(ctx,
		"INSERT INTO fs_dentry (name, parent_ino, ino) VALUES (?, ?, ?)",
		name, parentIno, ino)
	if store.IsConstraintErr(err) {
		return ErrExist
	}
	if err != nil {
		return fmt.Errorf("insert dentry %q: %w", name, err)
	}
	return nil
}

// removeInodeIfOrphaned deletes the inode together with its chunks and
// symlink row once no dentry references it. Must run in the same transaction
// as the dentry removal that may have orphaned it.
func (fs *Filesystem) removeInodeIfOrphaned(ctx context.Context, tx *sql.Tx, ino int64) error {
	nlink, err := fs.linkCount(ctx, tx, ino)
	if err != nil {
		return err
	}
	if nlink > 0 {
		return nil
	}

	for _, q := range []string{
		"DELETE FROM fs_data WHERE ino = ?",
		"DELETE FROM fs_symlink WHERE ino = ?",
		"DELETE FROM fs_inode WHERE ino = ?",
	} {
		if _, err := tx.ExecContext(ctx, q, ino); err != nil {
			return fmt.Errorf("collect orphan inode %d: %w", ino, err)
		}
	}
	return nil
}

// touchCtime stamps a metadata change.
func (fs *Filesystem) touchCtime(ctx context.Context, tx *sql.Tx, ino int64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE fs_inode SET ctime = ? WHERE ino = ?", fs.now(), ino)
	if err != nil {
		return fmt.Errorf("update ctime of ino %d: %w", ino, err)
	}
	return nil
}

// ValidName reports whether name may appear in a dentry: non-empty, no
// slash, and neither "." nor "..".
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] == '/' {
			return false
		}
	}
	return true
}

////////////////////////////////////////////////////////////////////////
// Stat
////////////////////////////////////////////////////////////////////////

// Lstat returns the attributes of the object at path without following a
// terminal symlink. An absent path yields (nil, nil).
func (fs *Filesystem) Lstat(ctx context.Context, path string) (*Stats, error) {
	var st *Stats
	err := fs.store.WithTx(ctx, func(tx *sql.Tx) error {
		ino, ok, err := fs.resolvePath(ctx, tx, path)
		if err != nil || !ok {
			return err
		}
		st, err = fs.readInode(ctx, tx, ino)
		return err
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Stat returns the attributes of the object at path, following a terminal
// symlink chain of at most MaxSymlinkDepth hops. A relative target is
// composed against the symlink's directory. Symlinks in the middle of the
// path are not followed. An absent path (at any hop) yields (nil, nil);
// exceeding the hop budget yields ErrTooManySymlinks.
func (fs *Filesystem) Stat(ctx context.Context, path string) (*Stats, error) {
	var st *Stats
	err := fs.store.WithTx(ctx, func(tx *sql.Tx) error {
		current := fspath.Normalize(path)
		for hop := 0; hop < MaxSymlinkDepth; hop++ {
			ino, ok, err := fs.resolvePath(ctx, tx, current)
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

			if !s.IsSymlink() {
				st = s
				return nil
			}

			target, ok, err := fs.readSymlinkTarget(ctx, tx, ino)
			if err != nil || !ok {
				return err
			}
			current = fspath.Join(fspath.Dir(current), target)
		}
		return ErrTooManySymlinks
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (fs *Filesystem) readSymlinkTarget(ctx context.Context, tx *sql.Tx, ino int64) (target string, ok bool, err error) {
	err = tx.QueryRowContext(ctx,
		"SELECT target FROM fs_symlink WHERE ino = ?", ino).Scan(&target)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read symlink target of ino %d: %w", ino, err)
	}
	return target, true, nil
}
