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

// Package nfs holds the credential model and RFC 1813 access computation
// consumed by the NFS front-end. The FUSE front-end never uses it; the
// kernel performs its own permission checks there.
package nfs

// AuthUnix is an AUTH_UNIX credential as carried by an NFS request.
type AuthUnix struct {
	Stamp       uint32
	MachineName string
	Uid         uint32
	Gid         uint32
	AuxGids     []uint32
}

// InGroup reports whether the credential's primary or any auxiliary gid
// matches gid.
func (a *AuthUnix) InGroup(gid uint32) bool {
	if a.Gid == gid {
		return true
	}
	for _, g := range a.AuxGids {
		if g == gid {
			return true
		}
	}
	return false
}
