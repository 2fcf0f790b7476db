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

import "github.com/google/uuid"

// WriteVerifier is the 8-byte cookie WRITE and COMMIT replies carry so
// clients can detect a server restart and resend uncommitted data.
type WriteVerifier [8]byte

// NewWriteVerifier draws a fresh verifier for this server instance.
func NewWriteVerifier() WriteVerifier {
	var v WriteVerifier
	id := uuid.New()
	copy(v[:], id[:8])
	return v
}
