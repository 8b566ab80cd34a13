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
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	sp "goscreenwriter/internal/screenplay"

	_ "modernc.org/sqlite"
)

func openIndex(t *testing.T, keep int) *Index {
	t.Helper()
	x, err := InitOrOpenIndex(t.TempDir(), keep)
	if err != nil {
		t.Fatalf("InitOrOpenIndex: %v", err)
	}
	t.Cleanup(func() { _ = x.Close() })
	return x
}

func TestIndexInitCreatesWALAndTables(t *testing.T) {
	x := openIndex(t, 0)
	if _, err := os.Stat(x.Path()); err != nil {
		t.Fatalf("index file missing at %s: %v", x.Path(), err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var mode string
	if err := x.DB().QueryRowContext(ctx, "PRAGMA journal_mode;").Scan(&mode); err != nil {
		t.Fatalf("read journal_mode: %v", err)
	}
	if mode != "wal" && mode != "WAL" {
		t.Fatalf("expected WAL mode, got %s", mode)
	}
	var cnt int
	if err := x.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('meta','version','documents','revisions')").Scan(&cnt); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if cnt != 4 {
		t.Fatalf("expected 4 tables, got %d", cnt)
	}
	var schema int
	if err := x.DB().QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&schema); err != nil || schema != schemaVersion {
		t.Fatalf("schema = %d (%v), want %d", schema, err, schemaVersion)
	}
}

func TestIndexRevisions(t *testing.T) {
	ctx := context.Background()
	x := openIndex(t, 0)
	first := sampleDoc()
	second := sp.MustFromSpecs(sp.Leaf(sp.SceneHeading, "EXT. ROOF - DAWN"))
	if info, err := x.Put(ctx, "pilot", first); err != nil || info.Rev != 1 {
		t.Fatalf("Put 1: %+v %v", info, err)
	}
	info, err := x.Put(ctx, "pilot", second)
	if err != nil || info.Rev != 2 || info.Title != "EXT. ROOF - DAWN" {
		t.Fatalf("Put 2: %+v %v", info, err)
	}
	head, err := x.Get(ctx, "pilot")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(head.Specs(), second.Specs()) {
		t.Fatalf("head is not the latest revision")
	}
	old, err := x.GetRevision(ctx, "pilot", 1)
	if err != nil {
		t.Fatalf("GetRevision: %v", err)
	}
	if !reflect.DeepEqual(old.Specs(), first.Specs()) {
		t.Fatalf("revision 1 changed")
	}
	revs, err := x.Revisions(ctx, "pilot", 10)
	if err != nil {
		t.Fatalf("Revisions: %v", err)
	}
	if len(revs) != 2 || revs[0].Rev != 2 || revs[1].Rev != 1 || revs[1].Leaves != 5 {
		t.Fatalf("unexpected revisions %+v", revs)
	}
}

func TestIndexPrunesToKeep(t *testing.T) {
	ctx := context.Background()
	x := openIndex(t, 3)
	for i := 0; i < 7; i++ {
		d := sp.MustFromSpecs(sp.Leaf(sp.Action, fmt.Sprintf("take %d", i+1)))
		if _, err := x.Put(ctx, "d", d); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	revs, err := x.Revisions(ctx, "d", 0)
	if err != nil {
		t.Fatalf("Revisions: %v", err)
	}
	if len(revs) != 3 || revs[0].Rev != 7 || revs[2].Rev != 5 {
		t.Fatalf("unexpected revisions after prune %+v", revs)
	}
	if _, err := x.GetRevision(ctx, "d", 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("pruned revision still readable: %v", err)
	}
}

func TestIndexNotFoundAndList(t *testing.T) {
	ctx := context.Background()
	x := openIndex(t, 0)
	if _, err := x.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := x.Revisions(ctx, "missing", 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, _ = x.Put(ctx, "b", sampleDoc())
	_, _ = x.Put(ctx, "a", sampleDoc())
	_, _ = x.Put(ctx, "a", sampleDoc())
	list, err := x.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != "a" || list[0].Rev != 2 || list[1].Rev != 1 {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestIndexPutRejectsInvalid(t *testing.T) {
	x := openIndex(t, 0)
	if _, err := x.Put(context.Background(), "x", sp.NewEmpty()); err == nil {
		t.Fatalf("expected error for an empty document")
	}
	if _, err := x.Put(context.Background(), "a/b", sampleDoc()); err == nil {
		t.Fatalf("expected error for a bad id")
	}
}

// An older database (schema=1) is migrated to schemaVersion and gains the leaves column.
func TestMigrations_UpgradeV1ToV2(t *testing.T) {
	dir := t.TempDir()
	idx := IndexPath(dir)
	if err := os.MkdirAll(filepath.Dir(idx), 0o755); err != nil {
		t.Fatalf("mk index dir: %v", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(2000)", filepath.ToSlash(idx))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);`,
		`CREATE TABLE IF NOT EXISTS version (id INTEGER PRIMARY KEY CHECK(id=1), schema INTEGER NOT NULL, app TEXT, created_at TEXT NOT NULL, updated_at TEXT NOT NULL);`,
		`INSERT INTO version(id, schema, app, created_at, updated_at) VALUES(1, 1, 'test', '2020-01-01T00:00:00Z', '2020-01-01T00:00:00Z');`,
		`CREATE TABLE documents (id TEXT PRIMARY KEY, title TEXT NOT NULL DEFAULT '', head_rev INTEGER NOT NULL DEFAULT 0, updated_at TEXT NOT NULL);`,
		`CREATE TABLE revisions (id INTEGER PRIMARY KEY, doc_id TEXT NOT NULL, rev INTEGER NOT NULL, body TEXT NOT NULL, created_at TEXT NOT NULL, UNIQUE(doc_id, rev));`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			t.Fatalf("seed v1 schema: %v (q=%s)", err, q)
		}
	}
	_ = db.Close()

	x, err := InitOrOpenIndex(dir, 0)
	if err != nil {
		t.Fatalf("InitOrOpenIndex: %v", err)
	}
	defer x.Close()
	var schema int
	if err := x.DB().QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&schema); err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if schema != 2 {
		t.Fatalf("expected schema 2 after migration, got %d", schema)
	}
	if _, err := x.Put(ctx, "pilot", sampleDoc()); err != nil {
		t.Fatalf("Put after migration: %v", err)
	}
	revs, err := x.Revisions(ctx, "pilot", 1)
	if err != nil || revs[0].Leaves != 5 {
		t.Fatalf("leaves not recorded after migration: %+v %v", revs, err)
	}
}
