/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"goscreenwriter/internal/crash"
	"goscreenwriter/internal/screenplay"
	"goscreenwriter/internal/script"
	"goscreenwriter/internal/session"
	"goscreenwriter/internal/storage"
	"goscreenwriter/internal/transitions"
)

// isJSON reports whether path names a stored document rather than a script.
func isJSON(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".json")
}

// loadDocument reads a .screenplay.json document or a tagged script.
func loadDocument(path string) (*screenplay.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if isJSON(path) {
		d, err := storage.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return d, nil
	}
	d, err := script.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// writeDocument writes d to out, or to w when out is empty. The format
// follows the extension of out; stdout gets the script format.
func writeDocument(w io.Writer, out string, d *screenplay.Document) error {
	var data []byte
	if out != "" && isJSON(out) {
		b, err := storage.Encode(d)
		if err != nil {
			return err
		}
		data = b
	} else {
		data = []byte(script.Format(d))
	}
	if out == "" {
		_, err := w.Write(data)
		return err
	}
	return os.WriteFile(out, data, 0o644)
}

var unsafeID = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// docID derives a storage id from a file name.
func docID(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, storage.DocumentExt)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	id := strings.Trim(unsafeID.ReplaceAllString(base, "-"), "-.")
	if id == "" {
		return "untitled"
	}
	return id
}

func loadRules() ([]transitions.Rule, error) {
	base := transitions.DefaultRules()
	if appCfg.Editor.Rules == "" {
		return base, nil
	}
	return transitions.LoadRulesFile(appCfg.Editor.Rules, base)
}

// newSession opens an editing session configured from appCfg.
func newSession(d *screenplay.Document) (*session.Session, error) {
	rules, err := loadRules()
	if err != nil {
		return nil, err
	}
	tab, err := appCfg.Editor.TabCycleTypes()
	if err != nil {
		return nil, err
	}
	m, err := appCfg.Format.Measurer()
	if err != nil {
		return nil, err
	}
	g, err := appCfg.Format.Geometry()
	if err != nil {
		return nil, err
	}
	pc, err := appCfg.Format.Pagination()
	if err != nil {
		return nil, err
	}
	return session.New(d, session.Options{
		Rules:      rules,
		DocType:    appCfg.Editor.DocType,
		LayoutMode: appCfg.Editor.LayoutMode,
		RetryLimit: appCfg.Editor.RetryLimit,
		TabCycle:   tab,
		Normalize:  true,
		Measurer:   m,
		Geometry:   &g,
		Pagination: &pc,
		Debounce:   debounce(),
		Metrics:    metrics,
	})
}

// armCrashAutosave points the crash handler at the session's document.
// The crash report creates the storage directory, so nothing is written
// here. Without a storage directory a crash only writes the report.
func armCrashAutosave(id string, s *session.Session) {
	if appCfg.Storage.Dir == "" {
		return
	}
	crashTarget = crash.Target{
		Store: &storage.FileStore{Dir: appCfg.Storage.Dir},
		ID:    id,
		Doc:   s.Document,
	}
}
