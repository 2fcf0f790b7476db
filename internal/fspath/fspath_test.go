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

package fspath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/", "/"},
		{"", "/"},
		{"//", "/"},
		{"/a", "/a"},
		{"/a/", "/a"},
		{"a", "/a"},
		{"a/b", "/a/b"},
		{"/a//b", "/a/b"},
		{"/a/./b/../c", "/a/c"},
		{"/../..", "/"},
		{"/..", "/"},
		{"/a/..", "/"},
		{"/a/b/../../c", "/c"},
		{"/.", "/"},
		{"./a", "/a"},
		{"/a/b/c///", "/a/b/c"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.in), "Normalize(%q)", tc.in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	paths := []string{"/", "", "a/b/../c", "/x/./y//z/", "/../../a"}
	for _, p := range paths {
		once := Normalize(p)
		assert.Equal(t, once, Normalize(once), "Normalize not idempotent for %q", p)
	}
}

func TestSplit(t *testing.T) {
	assert.Empty(t, Split("/"))
	assert.Empty(t, Split(""))
	assert.Equal(t, []string{"a"}, Split("/a/"))
	assert.Equal(t, []string{"a", "c"}, Split("/a/./b/../c"))
	assert.Equal(t, []string{"a", "b"}, Split("a//b"))
}

func TestDir(t *testing.T) {
	assert.Equal(t, "/", Dir("/"))
	assert.Equal(t, "/", Dir("/a"))
	assert.Equal(t, "/a", Dir("/a/b"))
	assert.Equal(t, "/a/b", Dir("/a/b/c/"))
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "/etc/passwd", Join("/tmp", "/etc/passwd"))
	assert.Equal(t, "/tmp/x", Join("/tmp", "x"))
	assert.Equal(t, "/x", Join("/tmp", "../x"))
	assert.Equal(t, "/", Join("/", ".."))
}
