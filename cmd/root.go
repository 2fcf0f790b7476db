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
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mulatta/agentfs-nix/cfg"
)

var (
	cfgFile     string
	bindErr     error
	mountConfig cfg.Config
)

var rootCmd = &cobra.Command{
	Use:   "agentfs [flags] db_path mount_point",
	Short: "Mount a SQLite-backed virtual filesystem",
	Long: `agentfs mounts a programmable virtual filesystem whose entire state
lives in a single SQLite database, for use as the synthetic tree served to
sandboxed processes.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("read config file: %w", err)
			}
		}

		var err error
		mountConfig, err = cfg.Unmarshal()
		if err != nil {
			return err
		}
		if err := cfg.Validate(&mountConfig); err != nil {
			return err
		}

		return runMount(cmd.Context(), &mountConfig, args[0], args[1])
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "",
		"Path to a yaml config file. Flags override its values.")
	bindErr = cfg.BindFlags(rootCmd.PersistentFlags())
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}
