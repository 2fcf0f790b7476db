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

package fuseadapter

import (
	"errors"
	"syscall"

	"github.com/mulatta/agentfs-nix/internal/fs"
	"github.com/mulatta/agentfs-nix/internal/logger"
)

// errno maps filesystem error kinds to the errno the kernel expects. Store
// failures come out as EIO after being logged with their cause.
func errno(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, fs.ErrExist):
		return syscall.EEXIST
	case errors.Is(err, fs.ErrNotDir):
		return syscall.ENOTDIR
	case errors.Is(err, fs.ErrIsDir):
		return syscall.EISDIR
	case errors.Is(err, fs.ErrNotFile):
		return syscall.EINVAL
	case errors.Is(err, fs.ErrNotSymlink):
		return syscall.EINVAL
	case errors.Is(err, fs.ErrNotEmpty):
		return syscall.ENOTEMPTY
	case errors.Is(err, fs.ErrIsRoot):
		return syscall.EPERM
	case errors.Is(err, fs.ErrTooManySymlinks):
		return syscall.ELOOP
	case errors.Is(err, fs.ErrInvalidName):
		return syscall.EINVAL
	case errors.Is(err, fs.ErrLoop):
		return syscall.EINVAL
	default:
		logger.Errorf("fuse: store error: %v", err)
		return syscall.EIO
	}
}
