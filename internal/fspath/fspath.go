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

// Package fspath canonicalizes slash-delimited paths for the filesystem
// layer. The filesystem has no notion of a working directory, so every path
// is treated as absolute. Normalization is purely lexical: no I/O is
// performed and symlinks are not resolved.
package fspath

import "strings"

// Normalize returns the canonical form of path:
//
//   - trailing slashes are trimmed (except for "/" itself),
//   - a missing leading slash is supplied,
//   - empty segments and "." segments are dropped,
//   - ".." pops the previous segment when one exists and is otherwise
//     discarded, so paths never escape the root.
//
// Normalize is idempotent.
func Normalize(path string) string {
	segments := Split(path)
	if len(segments) == 0 {
		return "/"
	}
	return "/" + strings.Join(segments, "/")
}

// Split returns the component list of Normalize(path). The root path yields
// an empty slice.
func Split(path string) []string {
	var segments []string
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
			// Skip.
		case "..":
			if len(segments) > 0 {
				segments = segments[:len(segments)-1]
			}
		default:
			segments = append(segments, seg)
		}
	}
	return segments
}

// Dir returns the normalized parent path of path, or "/" when path has at
// most one component.
func Dir(path string) string {
	segments := Split(path)
	if len(segments) <= 1 {
		return "/"
	}
	return "/" + strings.Join(segments[:len(segments)-1], "/")
}

// Join composes a relative target against a base directory and normalizes
// the result. An absolute target ignores base.
func Join(base, target string) string {
	if strings.HasPrefix(target, "/") {
		return Normalize(target)
	}
	return Normalize(base + "/" + target)
}
