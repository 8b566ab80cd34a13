/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	sp "goscreenwriter/internal/screenplay"
)

func countBackups(t *testing.T, dir, id string) int {
	t.Helper()
	ents, err := os.ReadDir(filepath.Join(dir, BackupsDirName))
	if err != nil {
		t.Fatalf("read backups dir: %v", err)
	}
	n := 0
	for _, e := range ents {
		if strings.HasPrefix(e.Name(), id+DocumentExt+".") && strings.HasSuffix(e.Name(), ".bak") {
			n++
		}
	}
	return n
}

func TestFileStorePutGet(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fs, err := NewFileStore(dir, 0)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	info, err := fs.Put(ctx, "pilot", sampleDoc())
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if info.ID != "pilot" || info.Title != "INT. KITCHEN - NIGHT" {
		t.Fatalf("unexpected info %+v", info)
	}
	if countBackups(t, dir, "pilot") != 0 {
		t.Fatalf("first save should not create a backup")
	}
	got, err := fs.Get(ctx, "pilot")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(got.Specs(), sampleDoc().Specs()) {
		t.Fatalf("document changed on round trip")
	}
}

func TestFileStoreSaveCreatesBackup(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fs, _ := NewFileStore(dir, 0)
	if _, err := fs.Put(ctx, "pilot", sampleDoc()); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := fs.Put(ctx, "pilot", sp.MustFromSpecs(sp.Leaf(sp.Action, "second"))); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if n := countBackups(t, dir, "pilot"); n != 1 {
		t.Fatalf("backups = %d, want 1", n)
	}
}

func TestFileStoreFallsBackToBackup(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fs, _ := NewFileStore(dir, 0)
	if _, err := fs.Put(ctx, "pilot", sampleDoc()); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := fs.Put(ctx, "pilot", sampleDoc()); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := os.WriteFile(fs.Path("pilot"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	got, err := fs.Get(ctx, "pilot")
	if err != nil {
		t.Fatalf("expected backup fallback, got %v", err)
	}
	if !reflect.DeepEqual(got.Specs(), sampleDoc().Specs()) {
		t.Fatalf("backup content mismatch")
	}
}

func TestFileStoreMissingAndCorrupt(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fs, _ := NewFileStore(dir, 0)
	if _, err := fs.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := os.WriteFile(fs.Path("bad"), []byte(`{"type":"doc","content":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := fs.Get(ctx, "bad")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestFileStoreRejectsInvalidDocument(t *testing.T) {
	fs, _ := NewFileStore(t.TempDir(), 0)
	if _, err := fs.Put(context.Background(), "empty", sp.NewEmpty()); err == nil {
		t.Fatalf("expected error for an empty document")
	}
	if _, err := fs.Put(context.Background(), "../x", sampleDoc()); err == nil {
		t.Fatalf("expected error for a bad id")
	}
}

func TestFileStorePrunesBackupsAndLists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fs, _ := NewFileStore(dir, 2)
	for i := 0; i < 5; i++ {
		if _, err := fs.Put(ctx, "b", sampleDoc()); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	if _, err := fs.Put(ctx, "a", sp.MustFromSpecs(sp.Leaf(sp.Action, "first"))); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if n := countBackups(t, dir, "b"); n != 2 {
		t.Fatalf("backups = %d, want 2", n)
	}
	list, err := fs.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != "a" || list[1].ID != "b" || list[0].Title != "first" {
		t.Fatalf("unexpected list %+v", list)
	}
}
