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

package cmd

import (
	"context"
	"fmt"

	"github.com/mulatta/agentfs-nix/cfg"
	"github.com/mulatta/agentfs-nix/internal/clock"
	"github.com/mulatta/agentfs-nix/internal/fs"
	"github.com/mulatta/agentfs-nix/internal/fuseadapter"
	"github.com/mulatta/agentfs-nix/internal/logger"
	"github.com/mulatta/agentfs-nix/internal/mount"
	"github.com/mulatta/agentfs-nix/internal/store"
)

// runMount opens the database, builds the filesystem, and serves it at
// mountPoint until unmounted or interrupted.
func runMount(ctx context.Context, c *cfg.Config, dbPath, mountPoint string) error {
	err := logger.InitLogFile(
		c.Logging.FilePath, c.Logging.Format, c.Logging.Severity,
		c.Logging.MaxFileSizeMB, c.Logging.BackupCount)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	s, err := store.Open(ctx, store.Config{
		Path:      dbPath,
		ChunkSize: c.FileSystem.ChunkSize,
	})
	if err != nil {
		return err
	}
	defer s.Close()

	fsys, err := fs.New(ctx, s, clock.RealClock{})
	if err != nil {
		return err
	}

	fsName := c.AppName
	if fsName == "" {
		fsName = "agentfs"
	}

	server := fuseadapter.NewServer(&fuseadapter.ServerConfig{
		Filesystem: fsys,
		Uid:        c.FileSystem.Uid,
		Gid:        c.FileSystem.Gid,
	})

	mfs, err := mount.Mount(ctx, mountPoint, fsName, server)
	if err != nil {
		return err
	}

	err = mount.Serve(ctx, mfs)
	logger.Infof("unmounted %s", mountPoint)
	return err
}
