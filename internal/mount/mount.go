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

// Package mount owns the FUSE mount lifecycle: mount, serve until the mount
// is torn down or the process is told to stop, unmount.
package mount

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/jacobsa/fuse"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/mulatta/agentfs-nix/internal/logger"
)

// Mount attaches the server at mountPoint.
func Mount(ctx context.Context, mountPoint, fsName string, server fuse.Server) (*fuse.MountedFileSystem, error) {
	cfg := &fuse.MountConfig{
		FSName:  fsName,
		Subtype: "agentfs",
		// The adapter does no credential gating; the kernel checks modes.
		Options: map[string]string{"default_permissions": ""},
	}

	mfs, err := fuse.Mount(mountPoint, server, cfg)
	if err != nil {
		return nil, fmt.Errorf("mount %s: %w", mountPoint, err)
	}
	logger.Infof("mounted at %s", mountPoint)
	return mfs, nil
}

// Serve blocks until the mount is torn down, unmounting on SIGINT or
// SIGTERM. Returns the reason the mount ended, if abnormal.
func Serve(ctx context.Context, mfs *fuse.MountedFileSystem) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, unix.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := mfs.Join(context.Background()); err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		// Joined normally; stop the signal watcher.
		stop()
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		// Either a signal arrived or Join returned. Unmounting is idempotent
		// enough for both: a dead mount just errors, which we log and drop.
		if err := fuse.Unmount(mfs.Dir()); err != nil {
			logger.Debugf("unmount %s: %v", mfs.Dir(), err)
		}
		return nil
	})

	return group.Wait()
}
