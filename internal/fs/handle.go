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
	"io"
	"sync"
)

// Handle is an open file: a mutable in-memory image of the file's contents.
// Mutations stay local until Flush (or Close) commits them through the
// whole-file WriteFile path, so a handle's visibility model is exactly the
// filesystem's transaction model.
type Handle struct {
	fs   *Filesystem
	path string

	mu    sync.Mutex
	data  []byte // GUARDED_BY(mu)
	dirty bool   // GUARDED_BY(mu)
}

func newHandle(fs *Filesystem, path string, data []byte) *Handle {
	return &Handle{
		fs:   fs,
		path: path,
		data: data,
	}
}

// Path returns the path the handle was opened at.
func (h *Handle) Path() string {
	return h.path
}

// Size returns the current (possibly uncommitted) content length.
func (h *Handle) Size() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	return int64(len(h.data))
}

// ReadAt copies content starting at off into p, returning io.EOF when fewer
// than len(p) bytes are available from off.
func (h *Handle) ReadAt(p []byte, off int64) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if off >= int64(len(h.data)) {
		return 0, io.EOF
	}
	n := copy(p, h.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt writes p at off, zero-filling any gap beyond the current length.
func (h *Handle) WriteAt(p []byte, off int64) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if end := off + int64(len(p)); end > int64(len(h.data)) {
		grown := make([]byte, end)
		copy(grown, h.data)
		h.data = grown
	}
	copy(h.data[off:], p)
	h.dirty = true
	return len(p), nil
}

// Truncate resizes the content to size, zero-filling when growing.
func (h *Handle) Truncate(size int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case size < int64(len(h.data)):
		h.data = h.data[:size]
	case size > int64(len(h.data)):
		grown := make([]byte, size)
		copy(grown, h.data)
		h.data = grown
	default:
		return
	}
	h.dirty = true
}

// Flush commits the buffered contents when dirty. Committing uses the
// whole-file write path, so concurrent writers to the same path last-write
// win at chunk granularity of the whole file.
func (h *Handle) Flush(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.dirty {
		return nil
	}
	if err := h.fs.WriteFile(ctx, h.path, h.data); err != nil {
		return err
	}
	h.dirty = false
	return nil
}

// Close flushes pending writes.
func (h *Handle) Close(ctx context.Context) error {
	return h.Flush(ctx)
}
