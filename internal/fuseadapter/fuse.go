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

// Package fuseadapter exposes the filesystem engine as a jacobsa/fuse
// server. It is deliberately thin: the kernel's inode-oriented protocol is
// bridged to the engine's path-based API with an inode-to-path table built
// up during lookups, and every error is translated to an errno.
//
// The kernel performs its own permission checks (the mount uses
// default_permissions semantics), so no credential gating happens here.
package fuseadapter

import (
	"context"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/jacobsa/syncutil"

	"github.com/mulatta/agentfs-nix/internal/fs"
	"github.com/mulatta/agentfs-nix/internal/fspath"
)

// Attribute TTL handed to the kernel. The engine is the only writer of its
// store in the common case, but another mount may exist; keep it short.
const attrTTL = time.Second

type ServerConfig struct {
	// The filesystem to serve.
	Filesystem *fs.Filesystem

	// Ownership stamped onto inodes created over this mount. A negative
	// value keeps the engine default of 0.
	Uid int64
	Gid int64
}

// NewServer wraps the filesystem in a fuse.Server.
func NewServer(cfg *ServerConfig) fuse.Server {
	adapter := &fileSystem{
		fs:      cfg.Filesystem,
		uid:     creationID(cfg.Uid),
		gid:     creationID(cfg.Gid),
		paths:   map[fuseops.InodeID]string{fuseops.RootInodeID: "/"},
		handles: map[fuseops.HandleID]*fs.Handle{},
	}
	adapter.mu = syncutil.NewInvariantMutex(adapter.checkInvariants)
	return fuseutil.NewFileSystemServer(adapter)
}

func creationID(v int64) uint32 {
	if v < 0 {
		return 0
	}
	return uint32(v)
}

type fileSystem struct {
	fuseutil.NotImplementedFileSystem

	fs  *fs.Filesystem
	uid uint32
	gid uint32

	mu syncutil.InvariantMutex

	// Inode to path, grown by lookups and pruned by forgets. For an inode
	// with several hard links the most recent lookup wins; that matches the
	// kernel's view, which addresses subsequent ops through that lookup.
	//
	// GUARDED_BY(mu)
	paths map[fuseops.InodeID]string

	// GUARDED_BY(mu)
	handles    map[fuseops.HandleID]*fs.Handle
	nextHandle fuseops.HandleID // GUARDED_BY(mu)
}

func (f *fileSystem) checkInvariants() {
	if f.paths[fuseops.RootInodeID] != "/" {
		panic("root inode lost its path mapping")
	}
}

////////////////////////////////////////////////////////////////////////
// Helpers
////////////////////////////////////////////////////////////////////////

// path returns the recorded path of an inode the kernel has looked up.
func (f *fileSystem) path(ino fuseops.InodeID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.paths[ino]
	if !ok {
		return "", syscall.ESTALE
	}
	return p, nil
}

func (f *fileSystem) childPath(parent fuseops.InodeID, name string) (string, error) {
	if !fs.ValidName(name) {
		return "", errno(fs.ErrInvalidName)
	}
	parentPath, err := f.path(parent)
	if err != nil {
		return "", err
	}
	return fspath.Join(parentPath, name), nil
}

func (f *fileSystem) rememberPath(ino fuseops.InodeID, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.paths[ino] = path
}

func (f *fileSystem) insertHandle(h *fs.Handle) fuseops.HandleID {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextHandle++
	id := f.nextHandle
	f.handles[id] = h
	return id
}

func (f *fileSystem) handle(id fuseops.HandleID) (*fs.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	h, ok := f.handles[id]
	if !ok {
		return nil, syscall.ESTALE
	}
	return h, nil
}

// attributes converts engine stats to kernel attributes.
func attributes(st *fs.Stats) fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Size:  uint64(st.Size),
		Nlink: st.Nlink,
		Mode:  goMode(st.Mode),
		Atime: time.Unix(st.Atime, 0),
		Mtime: time.Unix(st.Mtime, 0),
		Ctime: time.Unix(st.Ctime, 0),
		Uid:   st.Uid,
		Gid:   st.Gid,
	}
}

func goMode(mode uint32) os.FileMode {
	out := os.FileMode(mode & 0o777)
	switch mode & fs.TypeMask {
	case fs.ModeDir:
		out |= os.ModeDir
	case fs.ModeSymlink:
		out |= os.ModeSymlink
	}
	if mode&0o4000 != 0 {
		out |= os.ModeSetuid
	}
	if mode&0o2000 != 0 {
		out |= os.ModeSetgid
	}
	if mode&0o1000 != 0 {
		out |= os.ModeSticky
	}
	return out
}

func direntType(st *fs.Stats) fuseutil.DirentType {
	switch {
	case st.IsDir():
		return fuseutil.DT_Directory
	case st.IsSymlink():
		return fuseutil.DT_Link
	default:
		return fuseutil.DT_File
	}
}

// lookUp stats childPath with lstat semantics and fills a child entry,
// recording the inode-to-path mapping.
func (f *fileSystem) lookUp(ctx context.Context, childPath string, entry *fuseops.ChildInodeEntry) error {
	st, err := f.fs.Lstat(ctx, childPath)
	if err != nil {
		return errno(err)
	}
	if st == nil {
		return syscall.ENOENT
	}

	id := fuseops.InodeID(st.Ino)
	f.rememberPath(id, childPath)

	entry.Child = id
	entry.Attributes = attributes(st)
	entry.AttributesExpiration = time.Now().Add(attrTTL)
	entry.EntryExpiration = entry.AttributesExpiration
	return nil
}

////////////////////////////////////////////////////////////////////////
// Ops
////////////////////////////////////////////////////////////////////////

func (f *fileSystem) StatFS(ctx context.Context, op *fuseops.StatFSOp) error {
	st, err := f.fs.Statfs(ctx)
	if err != nil {
		return errno(err)
	}

	op.BlockSize = uint32(st.BlockSize)
	op.Blocks = uint64(st.Blocks + st.BlocksFree)
	op.BlocksFree = uint64(st.BlocksFree)
	op.BlocksAvailable = uint64(st.BlocksAvail)
	op.IoSize = uint32(st.BlockSize)
	op.Inodes = uint64(st.Files + st.FilesFree)
	op.InodesFree = uint64(st.FilesFree)
	return nil
}

func (f *fileSystem) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error {
	childPath, err := f.childPath(op.Parent, op.Name)
	if err != nil {
		return err
	}
	return f.lookUp(ctx, childPath, &op.Entry)
}

func (f *fileSystem) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) error {
	p, err := f.path(op.Inode)
	if err != nil {
		return err
	}

	st, err := f.fs.Lstat(ctx, p)
	if err != nil {
		return errno(err)
	}
	if st == nil {
		return syscall.ENOENT
	}

	op.Attributes = attributes(st)
	op.AttributesExpiration = time.Now().Add(attrTTL)
	return nil
}

func (f *fileSystem) SetInodeAttributes(ctx context.Context, op *fuseops.SetInodeAttributesOp) error {
	p, err := f.path(op.Inode)
	if err != nil {
		return err
	}

	if op.Mode != nil {
		if err := f.fs.Chmod(ctx, p, posixPerm(*op.Mode)); err != nil {
			return errno(err)
		}
	}

	if op.Size != nil {
		h, err := f.fs.Open(ctx, p)
		if err != nil {
			return errno(err)
		}
		h.Truncate(int64(*op.Size))
		if err := h.Flush(ctx); err != nil {
			return errno(err)
		}
	}

	// Explicit atime/mtime updates are dropped: the engine stamps times
	// itself at seconds granularity.

	st, err := f.fs.Lstat(ctx, p)
	if err != nil {
		return errno(err)
	}
	if st == nil {
		return syscall.ENOENT
	}
	op.Attributes = attributes(st)
	op.AttributesExpiration = time.Now().Add(attrTTL)
	return nil
}

func posixPerm(m os.FileMode) uint32 {
	perm := uint32(m.Perm())
	if m&os.ModeSetuid != 0 {
		perm |= 0o4000
	}
	if m&os.ModeSetgid != 0 {
		perm |= 0o2000
	}
	if m&os.ModeSticky != 0 {
		perm |= 0o1000
	}
	return perm
}

func (f *fileSystem) MkDir(ctx context.Context, op *fuseops.MkDirOp) error {
	childPath, err := f.childPath(op.Parent, op.Name)
	if err != nil {
		return err
	}

	if err := f.fs.Mkdir(ctx, childPath); err != nil {
		return errno(err)
	}
	if perm := posixPerm(op.Mode); perm != 0o755 {
		if err := f.fs.Chmod(ctx, childPath, perm); err != nil {
			return errno(err)
		}
	}
	if f.uid != 0 || f.gid != 0 {
		uid, gid := f.uid, f.gid
		if err := f.fs.Chown(ctx, childPath, &uid, &gid); err != nil {
			return errno(err)
		}
	}
	return f.lookUp(ctx, childPath, &op.Entry)
}

func (f *fileSystem) MkNode(ctx context.Context, op *fuseops.MkNodeOp) error {
	childPath, err := f.childPath(op.Parent, op.Name)
	if err != nil {
		return err
	}

	mode := posixPerm(op.Mode)
	if op.Mode.IsRegular() {
		mode |= fs.ModeRegular
	}
	if err := f.fs.Mknod(ctx, childPath, mode, 0, f.uid, f.gid); err != nil {
		return errno(err)
	}
	return f.lookUp(ctx, childPath, &op.Entry)
}

func (f *fileSystem) CreateFile(ctx context.Context, op *fuseops.CreateFileOp) error {
	childPath, err := f.childPath(op.Parent, op.Name)
	if err != nil {
		return err
	}

	_, h, err := f.fs.CreateFile(ctx, childPath, posixPerm(op.Mode), f.uid, f.gid)
	if err != nil {
		return errno(err)
	}

	if err := f.lookUp(ctx, childPath, &op.Entry); err != nil {
		return err
	}
	op.Handle = f.insertHandle(h)
	return nil
}

func (f *fileSystem) CreateSymlink(ctx context.Context, op *fuseops.CreateSymlinkOp) error {
	childPath, err := f.childPath(op.Parent, op.Name)
	if err != nil {
		return err
	}

	if err := f.fs.Symlink(ctx, op.Target, childPath); err != nil {
		return errno(err)
	}
	if f.uid != 0 || f.gid != 0 {
		uid, gid := f.uid, f.gid
		if err := f.fs.Chown(ctx, childPath, &uid, &gid); err != nil {
			return errno(err)
		}
	}
	return f.lookUp(ctx, childPath, &op.Entry)
}

func (f *fileSystem) CreateLink(ctx context.Context, op *fuseops.CreateLinkOp) error {
	childPath, err := f.childPath(op.Parent, op.Name)
	if err != nil {
		return err
	}
	targetPath, err := f.path(op.Target)
	if err != nil {
		return err
	}

	if err := f.fs.Link(ctx, targetPath, childPath); err != nil {
		return errno(err)
	}
	return f.lookUp(ctx, childPath, &op.Entry)
}

func (f *fileSystem) Rename(ctx context.Context, op *fuseops.RenameOp) error {
	oldPath, err := f.childPath(op.OldParent, op.OldName)
	if err != nil {
		return err
	}
	newPath, err := f.childPath(op.NewParent, op.NewName)
	if err != nil {
		return err
	}

	if err := f.fs.Rename(ctx, oldPath, newPath); err != nil {
		return errno(err)
	}

	// Re-point the moved inode at its new location.
	if st, err := f.fs.Lstat(ctx, newPath); err == nil && st != nil {
		f.rememberPath(fuseops.InodeID(st.Ino), newPath)
	}
	return nil
}

func (f *fileSystem) RmDir(ctx context.Context, op *fuseops.RmDirOp) error {
	childPath, err := f.childPath(op.Parent, op.Name)
	if err != nil {
		return err
	}
	return errno(f.fs.Remove(ctx, childPath))
}

func (f *fileSystem) Unlink(ctx context.Context, op *fuseops.UnlinkOp) error {
	childPath, err := f.childPath(op.Parent, op.Name)
	if err != nil {
		return err
	}
	return errno(f.fs.Remove(ctx, childPath))
}

func (f *fileSystem) OpenDir(ctx context.Context, op *fuseops.OpenDirOp) error {
	if _, err := f.path(op.Inode); err != nil {
		return err
	}
	return nil
}

func (f *fileSystem) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) error {
	p, err := f.path(op.Inode)
	if err != nil {
		return err
	}

	entries, err := f.fs.ReaddirPlus(ctx, p)
	if err != nil {
		return errno(err)
	}
	if entries == nil {
		return syscall.ENOENT
	}

	if int(op.Offset) > len(entries) {
		return nil
	}
	for i := int(op.Offset); i < len(entries); i++ {
		e := entries[i]
		n := fuseutil.WriteDirent(op.Dst[op.BytesRead:], fuseutil.Dirent{
			Offset: fuseops.DirOffset(i + 1),
			Inode:  fuseops.InodeID(e.Stats.Ino),
			Name:   e.Name,
			Type:   direntType(&e.Stats),
		})
		if n == 0 {
			break
		}
		op.BytesRead += n
	}
	return nil
}

func (f *fileSystem) ReleaseDirHandle(ctx context.Context, op *fuseops.ReleaseDirHandleOp) error {
	return nil
}

func (f *fileSystem) OpenFile(ctx context.Context, op *fuseops.OpenFileOp) error {
	p, err := f.path(op.Inode)
	if err != nil {
		return err
	}

	h, err := f.fs.Open(ctx, p)
	if err != nil {
		return errno(err)
	}
	op.Handle = f.insertHandle(h)
	return nil
}

func (f *fileSystem) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error {
	h, err := f.handle(op.Handle)
	if err != nil {
		return err
	}

	op.BytesRead, err = h.ReadAt(op.Dst, op.Offset)
	if err == io.EOF {
		err = nil
	}
	return err
}

func (f *fileSystem) WriteFile(ctx context.Context, op *fuseops.WriteFileOp) error {
	h, err := f.handle(op.Handle)
	if err != nil {
		return err
	}

	_, err = h.WriteAt(op.Data, op.Offset)
	return err
}

func (f *fileSystem) SyncFile(ctx context.Context, op *fuseops.SyncFileOp) error {
	h, err := f.handle(op.Handle)
	if err != nil {
		return err
	}
	return errno(h.Flush(ctx))
}

func (f *fileSystem) FlushFile(ctx context.Context, op *fuseops.FlushFileOp) error {
	h, err := f.handle(op.Handle)
	if err != nil {
		return err
	}
	return errno(h.Flush(ctx))
}

func (f *fileSystem) ReleaseFileHandle(ctx context.Context, op *fuseops.ReleaseFileHandleOp) error {
	f.mu.Lock()
	h, ok := f.handles[op.Handle]
	delete(f.handles, op.Handle)
	f.mu.Unlock()

	if !ok {
		return nil
	}
	return errno(h.Flush(ctx))
}

func (f *fileSystem) ReadSymlink(ctx context.Context, op *fuseops.ReadSymlinkOp) error {
	p, err := f.path(op.Inode)
	if err != nil {
		return err
	}

	op.Target, err = f.fs.Readlink(ctx, p)
	return errno(err)
}

func (f *fileSystem) ForgetInode(ctx context.Context, op *fuseops.ForgetInodeOp) error {
	if op.Inode == fuseops.RootInodeID {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.paths, op.Inode)
	return nil
}
