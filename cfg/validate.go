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

package cfg

import "fmt"

var validSeverities = map[string]bool{
	"TRACE":   true,
	"DEBUG":   true,
	"INFO":    true,
	"WARNING": true,
	"ERROR":   true,
	"OFF":     true,
}

var validFormats = map[string]bool{
	"text": true,
	"json": true,
}

// Validate rejects configurations the mount cannot honor.
func Validate(c *Config) error {
	if !validSeverities[c.Logging.Severity] {
		return fmt.Errorf("invalid log severity %q", c.Logging.Severity)
	}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format %q", c.Logging.Format)
	}
	if c.FileSystem.ChunkSize <= 0 {
		return fmt.Errorf("chunk-size must be positive, got %d", c.FileSystem.ChunkSize)
	}
	if c.FileSystem.FileMode &^ 0o7777 != 0 {
		return fmt.Errorf("file-mode %s has bits outside the permission mask", c.FileSystem.FileMode)
	}
	if c.FileSystem.DirMode &^ 0o7777 != 0 {
		return fmt.Errorf("dir-mode %s has bits outside the permission mask", c.FileSystem.DirMode)
	}
	return nil
}
