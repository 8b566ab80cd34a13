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
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/screenplay"
	"goscreenwriter/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	IndexDirName  = ".gsw"
	IndexFileName = "index.sqlite"

	// schemaVersion is the highest key of sqliteMigrations.
	schemaVersion = 2
)

// IndexPath returns the full path to the revision database under dir.
func IndexPath(dir string) string {
	return filepath.Join(dir, IndexDirName, IndexFileName)
}

// Index is a RevisionStore backed by an embedded SQLite database.
type Index struct {
	db   *sql.DB
	path string
	// keep caps revisions per document (0 keeps all).
	keep int
	now  func() time.Time
}

// InitOrOpenIndex ensures that the SQLite database exists at <dir>/.gsw/index.sqlite,
// opens it, enables WAL mode and brings the schema up to date.
func InitOrOpenIndex(dir string, keepRevisions int) (*Index, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_init").With(
		slog.String("dir", dir),
	)
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("storage dir is required")
	}
	if err := os.MkdirAll(filepath.Join(dir, IndexDirName), 0o755); err != nil {
		l.Error("create index dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	path := IndexPath(dir)
	// Use a URI with shared cache and set busy timeout. Convert to forward slashes for SQLite URI.
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Info("index ready", slog.String("path", path))
	return &Index{db: db, path: path, keep: keepRevisions, now: time.Now}, nil
}

// DB exposes the underlying handle for maintenance commands and tests.
func (x *Index) DB() *sql.DB { return x.db }

// Path returns the database file.
func (x *Index) Path() string { return x.path }

func (x *Index) Close() error { return x.db.Close() }

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Fresh database: tables are created at the current schema
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// Keep existing schema for migrations
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// ensureIndexSchema creates the document and revision tables if they do not exist.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id         TEXT    PRIMARY KEY,
			title      TEXT    NOT NULL DEFAULT '',
			head_rev   INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT    NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS revisions (
			id         INTEGER PRIMARY KEY,
			doc_id     TEXT    NOT NULL,
			rev        INTEGER NOT NULL,
			body       TEXT    NOT NULL,
			leaves     INTEGER NOT NULL DEFAULT 0,
			created_at TEXT    NOT NULL,
			UNIQUE(doc_id, rev),
			FOREIGN KEY(doc_id) REFERENCES documents(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_updated ON documents(updated_at);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	return nil
}

// sqliteMigrations holds the statements that lift the schema from version
// n-1 to n. Version 1 is the base schema created by ensureIndexSchema.
var sqliteMigrations = map[int][]string{
	2: {
		`ALTER TABLE revisions ADD COLUMN leaves INTEGER NOT NULL DEFAULT 0;`,
		`CREATE INDEX IF NOT EXISTS idx_revisions_created ON revisions(doc_id, created_at);`,
	},
}

// runMigrations steps the schema up to schemaVersion, one transaction per
// version. A database newer than this binary is left alone.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for v := cur + 1; v <= schemaVersion; v++ {
		if err := migrateTo(ctx, db, v, sqliteMigrations[v]); err != nil {
			return fmt.Errorf("migration %d: %w", v, err)
		}
	}
	return nil
}

func migrateTo(ctx context.Context, db *sql.DB, v int, stmts []string) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, q := range stmts {
		if _, err = tx.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	stamp := time.Now().UTC().Format(time.RFC3339)
	if _, err = tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, v, stamp); err != nil {
		return err
	}
	return tx.Commit()
}

// language=SQL
// dialect=SQLite
const upsertDocumentSQL = `INSERT INTO documents(id, title, head_rev, updated_at) VALUES (?, ?, 1, ?)
ON CONFLICT(id) DO UPDATE SET title = excluded.title, head_rev = documents.head_rev + 1, updated_at = excluded.updated_at
RETURNING head_rev`

// language=SQL
// dialect=SQLite
const insertRevisionSQL = `INSERT INTO revisions(doc_id, rev, body, leaves, created_at) VALUES (?, ?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const pruneRevisionsSQL = `DELETE FROM revisions WHERE doc_id = ? AND rev <= ?`

// language=SQL
// dialect=SQLite
const selectHeadSQL = `SELECT r.body FROM revisions r JOIN documents d ON d.id = r.doc_id AND d.head_rev = r.rev WHERE d.id = ?`

// language=SQL
// dialect=SQLite
const selectRevisionSQL = `SELECT body FROM revisions WHERE doc_id = ? AND rev = ?`

// language=SQL
// dialect=SQLite
const listRevisionsSQL = `SELECT rev, leaves, created_at FROM revisions WHERE doc_id = ? ORDER BY rev DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const listDocumentsSQL = `SELECT id, title, head_rev, updated_at FROM documents ORDER BY id`

// Put stores d as the next revision of id and prunes revisions beyond the cap.
func (x *Index) Put(ctx context.Context, id string, d *screenplay.Document) (Info, error) {
	if err := ValidateID(id); err != nil {
		return Info{}, err
	}
	if err := screenplay.Validate(d); err != nil {
		return Info{}, err
	}
	body, err := Encode(d)
	if err != nil {
		return Info{}, err
	}
	now := x.now().UTC()
	ts := now.Format(time.RFC3339Nano)
	title := Title(d)

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return Info{}, fmt.Errorf("begin put: %w", err)
	}
	var rev int64
	if err := tx.QueryRowContext(ctx, upsertDocumentSQL, id, title, ts).Scan(&rev); err != nil {
		_ = tx.Rollback()
		return Info{}, fmt.Errorf("upsert document: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insertRevisionSQL, id, rev, string(body), len(d.Leaves()), ts); err != nil {
		_ = tx.Rollback()
		return Info{}, fmt.Errorf("insert revision: %w", err)
	}
	if x.keep > 0 && rev > int64(x.keep) {
		if _, err := tx.ExecContext(ctx, pruneRevisionsSQL, id, rev-int64(x.keep)); err != nil {
			_ = tx.Rollback()
			return Info{}, fmt.Errorf("prune revisions: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return Info{}, fmt.Errorf("commit put: %w", err)
	}
	return Info{ID: id, Title: title, Rev: rev, UpdatedAt: now}, nil
}

// Get returns the head revision of id.
func (x *Index) Get(ctx context.Context, id string) (*screenplay.Document, error) {
	return x.load(ctx, id, selectHeadSQL, id)
}

// GetRevision returns a specific revision of id.
func (x *Index) GetRevision(ctx context.Context, id string, rev int64) (*screenplay.Document, error) {
	return x.load(ctx, id, selectRevisionSQL, id, rev)
}

func (x *Index) load(ctx context.Context, id, query string, args ...any) (*screenplay.Document, error) {
	var body string
	err := x.db.QueryRowContext(ctx, query, args...).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", id, err)
	}
	return Decode([]byte(body))
}

// Revisions lists up to limit revisions of id, newest first.
func (x *Index) Revisions(ctx context.Context, id string, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := x.db.QueryContext(ctx, listRevisionsSQL, id, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Revision
	for rows.Next() {
		r := Revision{Doc: id}
		var ts string
		if err := rows.Scan(&r.Rev, &r.Leaves, &ts); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return out, nil
}

// List returns every document with its head revision.
func (x *Index) List(ctx context.Context) ([]Info, error) {
	rows, err := x.db.QueryContext(ctx, listDocumentsSQL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Info
	for rows.Next() {
		var in Info
		var ts string
		if err := rows.Scan(&in.ID, &in.Title, &in.Rev, &ts); err != nil {
			return nil, err
		}
		in.UpdatedAt, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, in)
	}
	return out, rows.Err()
}

var (
	_ RevisionStore = (*Index)(nil)
	_ DocumentStore = (*FileStore)(nil)
)
