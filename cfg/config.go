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

// Package cfg defines the mount configuration surface: the yaml config file
// schema and the matching command-line flags.
package cfg

import (
	"fmt"
	"strconv"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	AppName string `yaml:"app-name" mapstructure:"app-name"`

	Foreground bool `yaml:"foreground" mapstructure:"foreground"`

	FileSystem FileSystemConfig `yaml:"file-system" mapstructure:"file-system"`

	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

type FileSystemConfig struct {
	// ChunkSize applies only when the database is created by this mount.
	ChunkSize int64 `yaml:"chunk-size" mapstructure:"chunk-size"`

	Uid int64 `yaml:"uid" mapstructure:"uid"`

	Gid int64 `yaml:"gid" mapstructure:"gid"`

	FileMode Octal `yaml:"file-mode" mapstructure:"file-mode"`

	DirMode Octal `yaml:"dir-mode" mapstructure:"dir-mode"`
}

type LoggingConfig struct {
	FilePath string `yaml:"file-path" mapstructure:"file-path"`

	Format string `yaml:"format" mapstructure:"format"`

	Severity string `yaml:"severity" mapstructure:"severity"`

	MaxFileSizeMB int `yaml:"max-file-size-mb" mapstructure:"max-file-size-mb"`

	BackupCount int `yaml:"backup-count" mapstructure:"backup-count"`
}

// Octal is an integer flag/config value parsed in base 8.
type Octal int64

func (o *Octal) UnmarshalText(text []byte) error {
	v, err := strconv.ParseInt(string(text), 8, 64)
	if err != nil {
		return fmt.Errorf("parse octal %q: %w", text, err)
	}
	*o = Octal(v)
	return nil
}

func (o Octal) String() string {
	return strconv.FormatInt(int64(o), 8)
}

// BindFlags declares every flag and binds it to its viper key.
func BindFlags(flagSet *pflag.FlagSet) error {
	flagSet.String("app-name", "", "The application name of this mount.")
	flagSet.Bool("foreground", false, "Stay in the foreground after mounting.")
	flagSet.Int64("chunk-size", 4096, "Chunk size in bytes for newly created databases.")
	flagSet.Int64("uid", -1, "UID owning new inodes created over FUSE. -1 leaves them owned by uid 0.")
	flagSet.Int64("gid", -1, "GID owning new inodes created over FUSE. -1 leaves them owned by gid 0.")
	flagSet.String("file-mode", "644", "Permission bits for new files, in octal. Only validated; files created over FUSE take the mode the kernel requests.")
	flagSet.String("dir-mode", "755", "Permission bits for new directories, in octal. Only validated; directories created over FUSE take the mode the kernel requests.")
	flagSet.String("log-file", "", "File to log to. Logs to stderr when unset.")
	flagSet.String("log-format", "text", "Log format: text or json.")
	flagSet.String("log-severity", "INFO", "Lowest severity to log: TRACE, DEBUG, INFO, WARNING, ERROR, OFF.")
	flagSet.Int("log-rotate-max-file-size-mb", 512, "Maximum log file size in MB before rotation.")
	flagSet.Int("log-rotate-backup-count", 10, "Rotated log files to retain.")

	for key, flag := range map[string]string{
		"app-name":                  "app-name",
		"foreground":                "foreground",
		"file-system.chunk-size":    "chunk-size",
		"file-system.uid":           "uid",
		"file-system.gid":           "gid",
		"file-system.file-mode":     "file-mode",
		"file-system.dir-mode":      "dir-mode",
		"logging.file-path":         "log-file",
		"logging.format":            "log-format",
		"logging.severity":          "log-severity",
		"logging.max-file-size-mb":  "log-rotate-max-file-size-mb",
		"logging.backup-count":      "log-rotate-backup-count",
	} {
		if err := viper.BindPFlag(key, flagSet.Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %q: %w", flag, err)
		}
	}
	return nil
}

// Unmarshal decodes viper's merged view (config file + flags) into a Config.
func Unmarshal() (Config, error) {
	var c Config
	err := viper.Unmarshal(&c, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	)))
	if err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}
