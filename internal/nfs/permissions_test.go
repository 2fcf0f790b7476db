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

package nfs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mulatta/agentfs-nix/internal/fs"
)

func makeAuth(uid, gid uint32, aux ...uint32) *AuthUnix {
	return &AuthUnix{Uid: uid, Gid: gid, AuxGids: aux}
}

func fileAttr(perm, uid, gid uint32) *fs.Stats {
	return &fs.Stats{Mode: fs.ModeRegular | perm, Uid: uid, Gid: gid, Nlink: 1}
}

func dirAttr(perm, uid, gid uint32) *fs.Stats {
	return &fs.Stats{Mode: fs.ModeDir | perm, Uid: uid, Gid: gid, Nlink: 1}
}

func TestRootAlwaysAllowed(t *testing.T) {
	auth := makeAuth(0, 0)
	attr := fileAttr(0o000, 1000, 1000)

	assert.True(t, CanRead(auth, attr))
	assert.True(t, CanWrite(auth, attr))
	assert.True(t, CanExecute(auth, attr))
}

func TestOwnerPermissions(t *testing.T) {
	auth := makeAuth(1000, 1000)

	attr := fileAttr(0o400, 1000, 2000)
	assert.True(t, CanRead(auth, attr))
	assert.False(t, CanWrite(auth, attr))
	assert.False(t, CanExecute(auth, attr))

	attr = fileAttr(0o200, 1000, 2000)
	assert.False(t, CanRead(auth, attr))
	assert.True(t, CanWrite(auth, attr))
	assert.False(t, CanExecute(auth, attr))

	attr = fileAttr(0o100, 1000, 2000)
	assert.False(t, CanRead(auth, attr))
	assert.False(t, CanWrite(auth, attr))
	assert.True(t, CanExecute(auth, attr))
}

func TestOwnerClassShadowsGroupAndOther(t *testing.T) {
	// Owner class applies even when the group or other bits would be more
	// permissive.
	auth := makeAuth(1000, 2000)
	attr := fileAttr(0o077, 1000, 2000)

	assert.False(t, CanRead(auth, attr))
	assert.False(t, CanWrite(auth, attr))
	assert.False(t, CanExecute(auth, attr))
}

func TestGroupPermissions(t *testing.T) {
	auth := makeAuth(1000, 2000)

	attr := fileAttr(0o040, 3000, 2000)
	assert.True(t, CanRead(auth, attr))
	assert.False(t, CanWrite(auth, attr))

	attr = fileAttr(0o020, 3000, 2000)
	assert.False(t, CanRead(auth, attr))
	assert.True(t, CanWrite(auth, attr))
}

func TestAuxiliaryGroup(t *testing.T) {
	auth := makeAuth(1000, 1000, 2000, 3000)

	assert.True(t, CanRead(auth, fileAttr(0o040, 9999, 2000)))
	assert.True(t, CanRead(auth, fileAttr(0o040, 9999, 3000)))
	assert.False(t, CanRead(auth, fileAttr(0o040, 9999, 4000)))
}

func TestOtherPermissions(t *testing.T) {
	auth := makeAuth(1000, 1000)

	attr := fileAttr(0o004, 2000, 2000)
	assert.True(t, CanRead(auth, attr))
	assert.False(t, CanWrite(auth, attr))

	attr = fileAttr(0o002, 2000, 2000)
	assert.False(t, CanRead(auth, attr))
	assert.True(t, CanWrite(auth, attr))
}

func TestComputeAccessRegularFile(t *testing.T) {
	auth := makeAuth(1000, 1000)
	attr := fileAttr(0o700, 1000, 1000)

	access := ComputeAccess(auth, attr, 0x3f)

	assert.NotZero(t, access&Access3Read)
	assert.NotZero(t, access&Access3Modify)
	assert.NotZero(t, access&Access3Extend)
	assert.NotZero(t, access&Access3Execute)
	// LOOKUP and DELETE are directory-only.
	assert.Zero(t, access&Access3Lookup)
	assert.Zero(t, access&Access3Delete)
}

func TestComputeAccessDirectory(t *testing.T) {
	auth := makeAuth(1000, 1000)
	attr := dirAttr(0o700, 1000, 1000)

	access := ComputeAccess(auth, attr, 0x3f)

	assert.NotZero(t, access&Access3Read)
	assert.NotZero(t, access&Access3Lookup)
	assert.NotZero(t, access&Access3Modify)
	assert.NotZero(t, access&Access3Extend)
	assert.NotZero(t, access&Access3Delete)
	// EXECUTE is file-only.
	assert.Zero(t, access&Access3Execute)
}

func TestComputeAccessSubsetOfRequested(t *testing.T) {
	auth := makeAuth(0, 0)
	attr := dirAttr(0o777, 0, 0)

	for _, requested := range []uint32{0x00, 0x01, 0x03, 0x15, 0x3f} {
		access := ComputeAccess(auth, attr, requested)
		assert.Zero(t, access&^requested, "requested=%#x granted=%#x", requested, access)
	}
}

func TestCanModifyDirectory(t *testing.T) {
	auth := makeAuth(1000, 1000)

	assert.True(t, CanModifyDirectory(auth, dirAttr(0o300, 1000, 1000)))
	assert.False(t, CanModifyDirectory(auth, dirAttr(0o200, 1000, 1000)))
	assert.False(t, CanModifyDirectory(auth, dirAttr(0o100, 1000, 1000)))
}

func TestIsOwner(t *testing.T) {
	assert.True(t, IsOwner(makeAuth(0, 0), fileAttr(0o644, 1000, 1000)))
	assert.True(t, IsOwner(makeAuth(1000, 1), fileAttr(0o644, 1000, 1000)))
	assert.False(t, IsOwner(makeAuth(1001, 1), fileAttr(0o644, 1000, 1000)))
}

func TestWriteVerifierDiffersPerInstance(t *testing.T) {
	a := NewWriteVerifier()
	b := NewWriteVerifier()

	// Distinct instances should draw distinct cookies.
	assert.NotEqual(t, a, b)
}
