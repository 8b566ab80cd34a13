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
	"os"
	"path/filepath"
	"testing"

	"goscreenwriter/internal/layout"
	"goscreenwriter/internal/pagination"
	"goscreenwriter/internal/screenplay"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "absent.yaml"))
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Editor.DocType != "screenplay" || cfg.Editor.DebounceMs != 16 || cfg.Editor.RetryLimit != 5 {
		t.Fatalf("unexpected editor defaults: %+v", cfg.Editor)
	}
	if cfg.Storage.Dir == "" {
		t.Fatalf("storage dir should default under the config dir")
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	p := writeFile(t, "config.yaml", `
editor:
  retry_limit: 9
  tab_cycle: [action, character, dialogue]
format:
  page_gap: 40
  policies:
    action: never_split
logging:
  level: DEBUG
`)
	t.Setenv(EnvConfigPath, p)
	t.Setenv(EnvDebounceMs, "33")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Editor.RetryLimit != 9 || cfg.Editor.DebounceMs != 33 {
		t.Fatalf("editor = %+v", cfg.Editor)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("logging level = %q", cfg.Logging.Level)
	}
	if cfg.Format.PageGap != 40 || cfg.Format.PageHeight != 792 {
		t.Fatalf("format merge lost defaults: %+v", cfg.Format)
	}
	pc, err := cfg.Format.Pagination()
	if err != nil {
		t.Fatalf("Pagination() error: %v", err)
	}
	if pc.PolicyFor(screenplay.Action) != pagination.NeverSplit || pc.PolicyFor(screenplay.Character) != pagination.BlockOnly {
		t.Fatalf("policies = %v", pc.Policies)
	}
	cycle, err := cfg.Editor.TabCycleTypes()
	if err != nil || len(cycle) != 3 || cycle[1] != screenplay.Character {
		t.Fatalf("tab cycle = %v, err=%v", cycle, err)
	}
	if env, ok := EnvOverrideFor("editor.debounce_ms"); !ok || env != EnvDebounceMs {
		t.Fatalf("EnvOverrideFor = %q %v", env, ok)
	}
	if _, ok := EnvOverrideFor("editor.retry_limit"); ok {
		t.Fatalf("retry_limit is not overridden")
	}
}

func TestLoadMalformedFile(t *testing.T) {
	p := writeFile(t, "config.yaml", "editor: [unclosed")
	if _, err := LoadFile(p); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestTabCycleRejectsContainers(t *testing.T) {
	e := EditorConfig{TabCycle: []string{"action", "dialogueBlock"}}
	if _, err := e.TabCycleTypes(); err == nil {
		t.Fatalf("expected error for container type")
	}
	e = EditorConfig{TabCycle: []string{"nope"}}
	if _, err := e.TabCycleTypes(); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := AppConfig{}
	src.Logging.Level = "debug"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "/tmp/gsw.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/gsw.log" {
		t.Fatalf("logging not merged: %+v", dst.Logging)
	}
	if dst.Editor.DocType != "screenplay" {
		t.Fatalf("empty editor section should keep defaults")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "sub", "config.yaml")
	t.Setenv(EnvConfigPath, p)
	cfg := Defaults()
	cfg.Editor.LayoutMode = "draft"
	cfg.Storage.KeepRevisions = 7
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.Editor.LayoutMode != "draft" || got.Storage.KeepRevisions != 7 {
		t.Fatalf("round trip lost values: %+v", got)
	}
}

func TestLoadFormatProfile(t *testing.T) {
	p := writeFile(t, "a4.yaml", `
name: a4
page_height: 842
page_width: 595
default_policy: line_split
elements:
  dialogue:
    indent: 80
    width: 240
`)
	f, err := LoadFormat(p)
	if err != nil {
		t.Fatalf("LoadFormat error: %v", err)
	}
	if f.Name != "a4" || f.PageHeight != 842 || f.MarginTop != 72 {
		t.Fatalf("format = %+v", f)
	}
	pc, err := f.Pagination()
	if err != nil || pc.DefaultPolicy != pagination.LineSplit {
		t.Fatalf("pagination = %+v err=%v", pc, err)
	}
	g, err := f.Geometry()
	if err != nil {
		t.Fatalf("Geometry error: %v", err)
	}
	if el := g.ElementFor(screenplay.Dialogue); el.Indent != 80 || el.Width != 240 {
		t.Fatalf("dialogue element = %+v", el)
	}
	if g.Top != 72 {
		t.Fatalf("geometry top = %v", g.Top)
	}
}

func TestLoadFormatRejectsBadPolicy(t *testing.T) {
	p := writeFile(t, "bad.yaml", "policies:\n  action: sometimes\n")
	if _, err := LoadFormat(p); err == nil {
		t.Fatalf("expected policy error")
	}
	p = writeFile(t, "bad2.yaml", "page_height: 100\nmargin_top: 60\nmargin_bottom: 60\n")
	if _, err := LoadFormat(p); err == nil {
		t.Fatalf("expected geometry error")
	}
}

func TestFormatMeasurer(t *testing.T) {
	f := DefaultFormat()
	m, err := f.Measurer()
	if err != nil {
		t.Fatalf("Measurer: %v", err)
	}
	if cm, ok := m.(layout.CellMeasurer); !ok || cm.CellWidth != 7.2 {
		t.Fatalf("expected cell measurer, got %#v", m)
	}
	f.FontFile = filepath.Join(t.TempDir(), "missing.ttf")
	if _, err := f.Measurer(); err == nil {
		t.Fatalf("expected error for a missing font file")
	}
	f.FontFile = writeFile(t, "junk.ttf", "not a font")
	if _, err := f.Measurer(); err == nil {
		t.Fatalf("expected error for an unparsable font file")
	}
}
