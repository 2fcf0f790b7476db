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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		FileSystem: FileSystemConfig{
			ChunkSize: 4096,
			FileMode:  0o644,
			DirMode:   0o755,
		},
		Logging: LoggingConfig{
			Format:   "text",
			Severity: "INFO",
		},
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	c := validConfig()

	assert.NoError(t, Validate(&c))
}

func TestValidateRejectsBadSeverity(t *testing.T) {
	c := validConfig()
	c.Logging.Severity = "VERBOSE"

	assert.Error(t, Validate(&c))
}

func TestValidateRejectsBadFormat(t *testing.T) {
	c := validConfig()
	c.Logging.Format = "xml"

	assert.Error(t, Validate(&c))
}

func TestValidateRejectsNonPositiveChunkSize(t *testing.T) {
	c := validConfig()
	c.FileSystem.ChunkSize = 0

	assert.Error(t, Validate(&c))
}

func TestValidateRejectsTypeBitsInModes(t *testing.T) {
	c := validConfig()
	c.FileSystem.FileMode = 0o100644

	assert.Error(t, Validate(&c))
}

func TestOctalUnmarshalText(t *testing.T) {
	var o Octal
	require.NoError(t, o.UnmarshalText([]byte("755")))
	assert.Equal(t, Octal(0o755), o)
	assert.Equal(t, "755", o.String())

	assert.Error(t, o.UnmarshalText([]byte("9z")))
}
