/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	sp "goscreenwriter/internal/screenplay"
	"goscreenwriter/internal/storage"
)

// openPGForTest connects to $GSW_PG_DSN (or DATABASE_URL) and skips when no server is reachable.
func openPGForTest(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("GSW_PG_DSN")
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		dsn = DefaultDSN
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("cannot open postgres: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		t.Skipf("postgres not available: %v", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

func uniqueID() string { return "t-" + uuid.NewString() }

func TestParseVersion(t *testing.T) {
	v, err := parseVersion("migrations/002_revision_leaves.sql")
	if err != nil || v != 2 {
		t.Fatalf("parseVersion = %d, %v", v, err)
	}
	for _, bad := range []string{"leaves.sql", "x_leaves.sql"} {
		if _, err := parseVersion(bad); err == nil {
			t.Fatalf("%q should not parse", bad)
		}
	}
}

func TestMigrationFilesAreEmbedded(t *testing.T) {
	ents, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(ents) < 2 {
		t.Fatalf("expected embedded migrations, got %d", len(ents))
	}
}

func TestPGStoreRevisions(t *testing.T) {
	db := openPGForTest(t)
	s := NewPGStore(db, 2)
	defer func() { _ = s.Close() }()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id := uniqueID()
	var last *sp.Document
	for i := 1; i <= 3; i++ {
		last = sp.MustFromSpecs(
			sp.Leaf(sp.SceneHeading, fmt.Sprintf("INT. HALL - TAKE %d", i)),
			sp.Block(sp.Name("ANN"), sp.Leaf(sp.Dialogue, "Again.")),
		)
		info, err := s.Put(ctx, id, last)
		if err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
		if info.Rev != int64(i) {
			t.Fatalf("rev = %d, want %d", info.Rev, i)
		}
	}
	head, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(head.Specs(), last.Specs()) {
		t.Fatalf("head mismatch")
	}
	revs, err := s.Revisions(ctx, id, 10)
	if err != nil {
		t.Fatalf("Revisions: %v", err)
	}
	if len(revs) != 2 || revs[0].Rev != 3 || revs[0].Leaves != 3 {
		t.Fatalf("unexpected revisions %+v", revs)
	}
	if _, err := s.GetRevision(ctx, id, 1); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("pruned revision readable: %v", err)
	}
	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	found := false
	for _, in := range list {
		if in.ID == id && in.Rev == 3 && in.Title == "INT. HALL - TAKE 3" {
			found = true
		}
	}
	if !found {
		t.Fatalf("document %s not listed", id)
	}
}

func TestPGStoreNotFound(t *testing.T) {
	db := openPGForTest(t)
	s := NewPGStore(db, 0)
	defer func() { _ = s.Close() }()
	if _, err := s.Get(context.Background(), uniqueID()); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
