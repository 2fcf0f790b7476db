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

// File type bits within an inode mode, laid out the POSIX way.
const (
	TypeMask    uint32 = 0o170000
	ModeRegular uint32 = 0o100000
	ModeDir     uint32 = 0o040000
	ModeSymlink uint32 = 0o120000
)

// Modes assigned to inodes created without an explicit mode.
const (
	DefaultFileMode uint32 = ModeRegular | 0o644
	DefaultDirMode  uint32 = ModeDir | 0o755
	symlinkMode     uint32 = ModeSymlink | 0o777
)

// MaxSymlinkDepth bounds terminal-symlink following during Stat.
const MaxSymlinkDepth = 40

// Stats holds an inode's attributes. Nlink is derived from the dentry table
// at read time, never stored.
type Stats struct {
	Ino   int64
	Mode  uint32
	Nlink uint32
	Uid   uint32
	Gid   uint32
	Size  int64
	Atime int64
	Mtime int64
	Ctime int64
}

func (s *Stats) IsFile() bool {
	return s.Mode&TypeMask == ModeRegular
}

func (s *Stats) IsDir() bool {
	return s.Mode&TypeMask == ModeDir
}

func (s *Stats) IsSymlink() bool {
	return s.Mode&TypeMask == ModeSymlink
}

// DirEntry is one ReaddirPlus result.
type DirEntry struct {
	Name  string
	Stats Stats
}

// FilesystemStats are the synthetic totals reported by Statfs.
type FilesystemStats struct {
	// BlockSize is the chunk size of this filesystem.
	BlockSize int64

	// Blocks is the number of data chunks currently stored; BlocksFree and
	// BlocksAvail are fixed synthetic headroom.
	Blocks      int64
	BlocksFree  int64
	BlocksAvail int64

	// Files is the number of inodes currently stored; FilesFree is fixed
	// synthetic headroom.
	Files     int64
	FilesFree int64

	// NameMax is the longest permitted entry name.
	NameMax int64
}
