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

import "errors"

// Error kinds surfaced by filesystem operations. Adapters match on these
// with errors.Is and translate them to FUSE or NFS status codes. Anything
// else coming out of an operation is a store failure wrapped with its cause.
var (
	// ErrNotFound: a required path component is absent.
	ErrNotFound = errors.New("no such file or directory")

	// ErrExist: a target name already exists when it must not.
	ErrExist = errors.New("file exists")

	// ErrNotDir: the operation required a directory.
	ErrNotDir = errors.New("not a directory")

	// ErrIsDir: the operation forbids a directory.
	ErrIsDir = errors.New("is a directory")

	// ErrNotFile: the operation required a regular file.
	ErrNotFile = errors.New("not a regular file")

	// ErrNotSymlink: readlink on something that is not a symlink.
	ErrNotSymlink = errors.New("not a symbolic link")

	// ErrNotEmpty: directory removal blocked by children.
	ErrNotEmpty = errors.New("directory not empty")

	// ErrIsRoot: the operation is forbidden on the root directory.
	ErrIsRoot = errors.New("operation not permitted on root")

	// ErrTooManySymlinks: symlink resolution exceeded MaxSymlinkDepth.
	ErrTooManySymlinks = errors.New("too many levels of symbolic links")

	// ErrInvalidName: a name is empty, ".", "..", or contains a slash.
	ErrInvalidName = errors.New("invalid name")

	// ErrLoop: a rename would make a directory its own descendant.
	ErrLoop = errors.New("rename would create a directory loop")
)
