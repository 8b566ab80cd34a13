/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"goscreenwriter/internal/config"
	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/telemetry"
)

var (
	appCfg  config.AppConfig
	metrics *telemetry.Recorder
)

var rootCmd = &cobra.Command{
	Use:           "screenwriter",
	Short:         "Structural editing core for screenplays",
	Long:          `Screenwriter edits screenplay documents as typed trees: dialogue blocks, rule-driven key handling and page breaks.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		var err error
		if path != "" {
			appCfg, err = config.LoadFile(path)
		} else {
			appCfg, err = config.Load()
		}
		applog.Init(applog.Options{
			Level:     appCfg.Logging.Level,
			Format:    appCfg.Logging.Format,
			AddSource: appCfg.Logging.Source,
			File:      appCfg.Logging.File,
		})
		l := applog.WithComponent("cli")
		if err != nil {
			// a broken config file is not fatal; defaults and env still apply
			l.Warn("config not loaded", slog.Any("err", err))
		}
		if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
			appCfg.Storage.Dir = dir
		}
		if rules, _ := cmd.Flags().GetString("rules"); rules != "" {
			appCfg.Editor.Rules = rules
		}
		metrics = telemetry.New(telemetry.FromEnv())
		l.Debug("start", slog.String("cmd", cmd.CommandPath()), slog.Int("args", len(args)))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if show, _ := cmd.Flags().GetBool("metrics"); show {
			return metrics.WriteText(os.Stderr)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default: user config, or $"+config.EnvConfigPath+")")
	rootCmd.PersistentFlags().String("dir", "", "Document storage directory (overrides storage.dir)")
	rootCmd.PersistentFlags().String("rules", "", "TOML rule table merged over the built-in rules")
	rootCmd.PersistentFlags().Bool("metrics", false, "Print collected metrics to stderr on exit")
}

func debounce() time.Duration {
	return time.Duration(appCfg.Editor.DebounceMs) * time.Millisecond
}
