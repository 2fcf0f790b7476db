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
	"strings"

	"github.com/mulatta/agentfs-nix/internal/fspath"
)

// Mkdir creates a directory with mode 040755. Errors: ErrIsRoot for "/",
// ErrNotFound when the parent is absent, ErrNotDir when the parent is not a
// directory, ErrExist when the leaf is present.
func (fs *Filesystem) Mkdir(ctx context.Context, path string) error {
	return fs.store.WithTx(ctx, func(tx *sql.Tx) error {
		parentIno, name, err := fs.resolveParent(ctx, tx, path)
		if err != nil {
			return err
		}

		if _, ok, err := fs.lookupDentry(ctx, tx, parentIno, name); err != nil {
			return err
		} else if ok {
			return ErrExist
		}

		ino, err := fs.createInode(ctx, tx, DefaultDirMode, 0, 0, 0)
		if err != nil {
			return err
		}
		return fs.createDentry(ctx, tx, parentIno, name, ino)
	})
}

// Readdir lists the names in the directory at path in lexicographic byte
// order. "." and ".." are not included. An absent path yields (nil, nil);
// an existing directory, possibly empty, yields a non-nil slice. A
// non-directory yields ErrNotDir.
func (fs *Filesystem) Readdir(ctx context.Context, path string) ([]string, error) {
	var names []string
	err := fs.store.WithTx(ctx, func(tx *sql.Tx) error {
		ino, s, err := fs.statDir(ctx, tx, path)
		if err != nil || s == nil {
			return err
		}

		rows, err := tx.QueryContext(ctx,
			"SELECT name FROM fs_dentry WHERE parent_ino = ? ORDER BY name", ino)
		if err != nil {
			return fmt.Errorf("list dentries of ino %d: %w", ino, err)
		}
		defer rows.Close()

		names = []string{}
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return fmt.Errorf("scan dentry name: %w", err)
			}
			names = append(names, name)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// ReaddirPlus lists (name, Stats) pairs, sorted like Readdir.
func (fs *Filesystem) ReaddirPlus(ctx context.Context, path string) ([]DirEntry, error) {
	var entries []DirEntry
	err := fs.store.WithTx(ctx, func(tx *sql.Tx) error {
		ino, s, err := fs.statDir(ctx, tx, path)
		if err != nil || s == nil {
			return err
		}

		rows, err := tx.QueryContext(ctx,
			"SELECT name, ino FROM fs_dentry WHERE parent_ino = ? ORDER BY name", ino)
		if err != nil {
			return fmt.Errorf("list dentries of ino %d: %w", ino, err)
		}

		type edge struct {
			name string
			ino  int64
		}
		var edges []edge
		for rows.Next() {
			var e edge
			if err := rows.Scan(&e.name, &e.ino); err != nil {
				rows.Close()
				return fmt.Errorf("scan dentry: %w", err)
			}
			edges = append(edges, e)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		entries = []DirEntry{}
		for _, e := range edges {
			child, err := fs.readInode(ctx, tx, e.ino)
			if err != nil {
				return err
			}
			if child == nil {
				// A dentry without an inode violates I2.
				return fmt.Errorf("dentry %q references missing inode %d", e.name, e.ino)
			}
			entries = append(entries, DirEntry{Name: e.name, Stats: *child})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// statDir resolves path and requires it to be a directory. An absent path
// yields a nil Stats with no error.
func (fs *Filesystem) statDir(ctx context.Context, tx *sql.Tx, path string) (int64, *Stats, error) {
	ino, ok, err := fs.resolvePath(ctx, tx, path)
	if err != nil || !ok {
		return 0, nil, err
	}
	s, err := fs.readInode(ctx, tx, ino)
	if err != nil || s == nil {
		return 0, nil, err
	}
	if !s.IsDir() {
		return 0, nil, ErrNotDir
	}
	return ino, s, nil
}

// Symlink creates a symbolic link at linkpath whose content is target. The
// target string is stored verbatim; it is neither validated nor resolved.
// Errors: ErrIsRoot, ErrNotFound/ErrNotDir for the parent, ErrExist when
// linkpath is present.
func (fs *Filesystem) Symlink(ctx context.Context, target, linkpath string) error {
	return fs.store.WithTx(ctx, func(tx *sql.Tx) error {
		parentIno, name, err := fs.resolveParent(ctx, tx, linkpath)
		if err != nil {
			return err
		}

		if _, ok, err := fs.lookupDentry(ctx, tx, parentIno, name); err != nil {
			return err
		} else if ok {
			return ErrExist
		}

		ino, err := fs.createInode(ctx, tx, symlinkMode, 0, 0, int64(len(target)))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO fs_symlink (ino, target) VALUES (?, ?)", ino, target); err != nil {
			return fmt.Errorf("insert symlink target: %w", err)
		}
		return fs.createDentry(ctx, tx, parentIno, name, ino)
	})
}

// Readlink returns the stored target of the symlink at path, verbatim.
// Errors: ErrNotFound when path is absent, ErrNotSymlink when it is not a
// symlink.
func (fs *Filesystem) Readlink(ctx context.Context, path string) (string, error) {
	var target string
	err := fs.store.WithTx(ctx, func(tx *sql.Tx) error {
		ino, ok, err := fs.resolvePath(ctx, tx, path)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}

		s, err := fs.readInode(ctx, tx, ino)
		if err != nil {
			return err
		}
		if s == nil {
			return ErrNotFound
		}
		if !s.IsSymlink() {
			return ErrNotSymlink
		}

		target, ok, err = fs.readSymlinkTarget(ctx, tx, ino)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return target, nil
}

// Remove deletes the entry at path. A directory must be empty. Only the
// specific (parent, name) dentry is removed, so other hard links survive;
// when the last link goes, the inode and its chunks and symlink row are
// collected in the same transaction. Errors: ErrIsRoot, ErrNotFound,
// ErrNotEmpty.
func (fs *Filesystem) Remove(ctx context.Context, path string) error {
	return fs.store.WithTx(ctx, func(tx *sql.Tx) error {
		parentIno, name, err := fs.resolveParent(ctx, tx, path)
		if err != nil {
			return err
		}

		ino, ok, err := fs.lookupDentry(ctx, tx, parentIno, name)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}

		s, err := fs.readInode(ctx, tx, ino)
		if err != nil {
			return err
		}
		if s != nil && s.IsDir() {
			var children int64
			err := tx.QueryRowContext(ctx,
				"SELECT COUNT(*) FROM fs_dentry WHERE parent_ino = ?", ino).Scan(&children)
			if err != nil {
				return fmt.Errorf("count children of ino %d: %w", ino, err)
			}
			if children > 0 {
				return ErrNotEmpty
			}
		}

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM fs_dentry WHERE parent_ino = ? AND name = ?",
			parentIno, name); err != nil {
			return fmt.Errorf("delete dentry %q: %w", name, err)
		}

		return fs.removeInodeIfOrphaned(ctx, tx, ino)
	})
}

// Rename atomically moves the entry at from to to.
//
// When to exists, a non-directory may replace a non-directory and a
// directory may replace only an empty directory; the replaced inode is
// orphan-collected in the same transaction. Renaming a directory into its
// own subtree yields ErrLoop. Renaming a path onto itself succeeds without
// effect.
func (fs *Filesystem) Rename(ctx context.Context, from, to string) error {
	return fs.store.WithTx(ctx, func(tx *sql.Tx) error {
		fromNorm := fspath.Normalize(from)
		toNorm := fspath.Normalize(to)

		fromParentIno, fromName, err := fs.resolveParent(ctx, tx, fromNorm)
		if err != nil {
			return err
		}
		fromIno, ok, err := fs.lookupDentry(ctx, tx, fromParentIno, fromName)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		fromStats, err := fs.readInode(ctx, tx, fromIno)
		if err != nil {
			return err
		}
		if fromStats == nil {
			return ErrNotFound
		}

		if toNorm == fromNorm {
			return nil
		}
		if fromStats.IsDir() && strings.HasPrefix(toNorm, fromNorm+"/") {
			return ErrLoop
		}

		toParentIno, toName, err := fs.resolveParent(ctx, tx, toNorm)
		if err != nil {
			return err
		}

		if toIno, ok, err := fs.lookupDentry(ctx, tx, toParentIno, toName); err != nil {
			return err
		} else if ok {
			toStats, err := fs.readInode(ctx, tx, toIno)
			if err != nil {
				return err
			}
			if toStats == nil {
				return ErrNotFound
			}

			switch {
			case fromStats.IsDir() && !toStats.IsDir():
				return ErrNotDir
			case !fromStats.IsDir() && toStats.IsDir():
				return ErrIsDir
			case toStats.IsDir():
				var children int64
				err := tx.QueryRowContext(ctx,
					"SELECT COUNT(*) FROM fs_dentry WHERE parent_ino = ?",
					toIno).Scan(&children)
				if err != nil {
					return fmt.Errorf("count children of ino %d: %w", toIno, err)
				}
				if children > 0 {
					return ErrNotEmpty
				}
			}

			if _, err := tx.ExecContext(ctx,
				"DELETE FROM fs_dentry WHERE parent_ino = ? AND name = ?",
				toParentIno, toName); err != nil {
				return fmt.Errorf("delete replaced dentry %q: %w", toName, err)
			}
			if err := fs.removeInodeIfOrphaned(ctx, tx, toIno); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE fs_dentry SET name = ?, parent_ino = ?
			 WHERE parent_ino = ? AND name = ?`,
			toName, toParentIno, fromParentIno, fromName); err != nil {
			return fmt.Errorf("move dentry %q: %w", fromName, err)
		}

		return fs.touchCtime(ctx, tx, fromIno)
	})
}

// Link creates a hard link at newPath to the inode at oldPath. Directories
// cannot be hard-linked. Errors: ErrNotFound when oldPath is absent,
// ErrIsDir when it is a directory, ErrExist when newPath is present,
// ErrNotFound/ErrNotDir for newPath's parent.
func (fs *Filesystem) Link(ctx context.Context, oldPath, newPath string) error {
	return fs.store.WithTx(ctx, func(tx *sql.Tx) error {
		oldIno, ok, err := fs.resolvePath(ctx, tx, oldPath)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}

		s, err := fs.readInode(ctx, tx, oldIno)
		if err != nil {
			return err
		}
		if s == nil {
			return ErrNotFound
		}
		if s.IsDir() {
			return ErrIsDir
		}

		parentIno, name, err := fs.resolveParent(ctx, tx, newPath)
		if err != nil {
			return err
		}
		if err := fs.createDentry(ctx, tx, parentIno, name, oldIno); err != nil {
			return err
		}

		return fs.touchCtime(ctx, tx, oldIno)
	})
}

// Mknod creates an inode with the supplied mode at path. A mode without
// type bits creates a regular file. rdev is accepted for interface
// compatibility; the filesystem does not persist device numbers. A symlink
// mode gets an empty target so that the symlink table stays consistent.
func (fs *Filesystem) Mknod(ctx context.Context, path string, mode uint32, rdev uint32, uid, gid uint32) error {
	_ = rdev
	return fs.store.WithTx(ctx, func(tx *sql.Tx) error {
		parentIno, name, err := fs.resolveParent(ctx, tx, path)
		if err != nil {
			return err
		}

		if _, ok, err := fs.lookupDentry(ctx, tx, parentIno, name); err != nil {
			return err
		} else if ok {
			return ErrExist
		}

		if mode&TypeMask == 0 {
			mode |= ModeRegular
		}

		ino, err := fs.createInode(ctx, tx, mode, uid, gid, 0)
		if err != nil {
			return err
		}
		if mode&TypeMask == ModeSymlink {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO fs_symlink (ino, target) VALUES (?, '')", ino); err != nil {
				return fmt.Errorf("insert symlink target: %w", err)
			}
		}
		return fs.createDentry(ctx, tx, parentIno, name, ino)
	})
}
