/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"goscreenwriter/internal/screenplay"
	"goscreenwriter/internal/transitions"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type EditorConfig struct {
	DocType    string `yaml:"doc_type"`
	LayoutMode string `yaml:"layout_mode"`
	RetryLimit int    `yaml:"retry_limit"`
	DebounceMs int    `yaml:"debounce_ms"`
	// TabCycle is the element order for Tab/Shift-Tab, by type name.
	TabCycle []string `yaml:"tab_cycle"`
	// Rules is an optional TOML rule table merged over the built-in one.
	Rules string `yaml:"rules"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type StorageConfig struct {
	// Dir holds the document files and the SQLite revision index.
	Dir string `yaml:"dir"`
	// KeepRevisions caps stored revisions per document (0 keeps all).
	KeepRevisions int `yaml:"keep_revisions"`
	// PostgresDSN selects the Postgres store when set.
	PostgresDSN string `yaml:"postgres_dsn"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Editor        EditorConfig  `yaml:"editor"`
	Format        Format        `yaml:"format"`
	Logging       LoggingConfig `yaml:"logging"`
	Storage       StorageConfig `yaml:"storage"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Editor: EditorConfig{
			DocType:    transitions.DocScreenplay,
			LayoutMode: "page",
			RetryLimit: transitions.DefaultRetryLimit,
			DebounceMs: 16,
		},
		Format:  DefaultFormat(),
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
		Storage: StorageConfig{KeepRevisions: 50},
	}
}

// Env var names used as overrides.
const (
	EnvDocType     = "GSW_DOC_TYPE"
	EnvLayoutMode  = "GSW_LAYOUT_MODE"
	EnvRetryLimit  = "GSW_RETRY_LIMIT"
	EnvDebounceMs  = "GSW_DEBOUNCE_MS"
	EnvRules       = "GSW_RULES"
	EnvStorageDir  = "GSW_STORAGE_DIR"
	EnvPostgresDSN = "GSW_PG_DSN"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "GSW_LOG_LEVEL"
	EnvLogFormat = "GSW_LOG_FORMAT"
	EnvLogSource = "GSW_LOG_SOURCE"
	EnvLogFile   = "GSW_LOG_FILE"
	// EnvConfigPath points Load at a specific file instead of the user config.
	EnvConfigPath = "GSW_CONFIG"
)

// ConfigDir returns the per-user configuration directory.
func ConfigDir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "GoScreenwriter")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "GoScreenwriter")
	default: // linux and others
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "goscreenwriter")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "goscreenwriter")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path, or $GSW_CONFIG when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults and merges
// environment overrides. A missing file is not an error; a malformed one is.
func Load() (AppConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Defaults()
		applyEnvOverrides(&cfg)
		return cfg, err
	}
	return LoadFile(path)
}

// LoadFile is Load for an explicit path.
func LoadFile(path string) (AppConfig, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			applyEnvOverrides(&cfg)
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		applyEnvOverrides(&cfg)
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	if cfg.Storage.Dir == "" {
		if dir, err := ConfigDir(); err == nil {
			cfg.Storage.Dir = filepath.Join(dir, "documents")
		}
	}
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// TabCycleTypes parses the configured tab order. Unknown names are an error.
func (e EditorConfig) TabCycleTypes() ([]screenplay.NodeType, error) {
	out := make([]screenplay.NodeType, 0, len(e.TabCycle))
	for _, name := range e.TabCycle {
		t, err := screenplay.ParseNodeType(name)
		if err != nil {
			return nil, fmt.Errorf("editor.tab_cycle: %w", err)
		}
		if !t.IsLeaf() {
			return nil, fmt.Errorf("editor.tab_cycle: %q is not a text element", name)
		}
		out = append(out, t)
	}
	return out, nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// editor
	if v := strings.TrimSpace(src.Editor.DocType); v != "" {
		dst.Editor.DocType = v
	}
	if v := strings.TrimSpace(src.Editor.LayoutMode); v != "" {
		dst.Editor.LayoutMode = v
	}
	if src.Editor.RetryLimit > 0 {
		dst.Editor.RetryLimit = src.Editor.RetryLimit
	}
	if src.Editor.DebounceMs > 0 {
		dst.Editor.DebounceMs = src.Editor.DebounceMs
	}
	if len(src.Editor.TabCycle) > 0 {
		dst.Editor.TabCycle = append([]string(nil), src.Editor.TabCycle...)
	}
	if v := strings.TrimSpace(src.Editor.Rules); v != "" {
		dst.Editor.Rules = v
	}
	dst.Format.merge(src.Format)
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
	// storage
	if v := strings.TrimSpace(src.Storage.Dir); v != "" {
		dst.Storage.Dir = v
	}
	if src.Storage.KeepRevisions != 0 {
		dst.Storage.KeepRevisions = src.Storage.KeepRevisions
	}
	if v := strings.TrimSpace(src.Storage.PostgresDSN); v != "" {
		dst.Storage.PostgresDSN = v
	}
}

func envBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvDocType)); v != "" {
		cfg.Editor.DocType = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLayoutMode)); v != "" {
		cfg.Editor.LayoutMode = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRetryLimit)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Editor.RetryLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvDebounceMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Editor.DebounceMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvRules)); v != "" {
		cfg.Editor.Rules = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageDir)); v != "" {
		cfg.Storage.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPostgresDSN)); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = envBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	names := map[string]string{
		"editor.doc_type":      EnvDocType,
		"editor.layout_mode":   EnvLayoutMode,
		"editor.retry_limit":   EnvRetryLimit,
		"editor.debounce_ms":   EnvDebounceMs,
		"editor.rules":         EnvRules,
		"storage.dir":          EnvStorageDir,
		"storage.postgres_dsn": EnvPostgresDSN,
		"logging.level":        EnvLogLevel,
		"logging.format":       EnvLogFormat,
		"logging.source":       EnvLogSource,
		"logging.file":         EnvLogFile,
	}
	env, ok := names[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}
