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
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/screenplay"
)

const (
	DocumentExt    = ".screenplay.json"
	BackupsDirName = "backups"

	backupStamp = "20060102-150405.000000000"
)

// FileStore keeps each document as <Dir>/<id>.screenplay.json. Every save
// first copies the current file into <Dir>/backups with a timestamp; a file
// that fails to load falls back to its latest backup.
type FileStore struct {
	Dir string
	// KeepBackups caps backups per document (0 keeps all).
	KeepBackups int
}

// NewFileStore creates the directory layout under dir.
func NewFileStore(dir string, keepBackups int) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("storage dir is required")
	}
	if err := os.MkdirAll(filepath.Join(dir, BackupsDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{Dir: dir, KeepBackups: keepBackups}, nil
}

// Path returns the file for document id.
func (s *FileStore) Path(id string) string {
	return filepath.Join(s.Dir, id+DocumentExt)
}

// Put writes d with transactional semantics and a timestamped backup of the
// previous file (if present).
func (s *FileStore) Put(ctx context.Context, id string, d *screenplay.Document) (Info, error) {
	if err := ValidateID(id); err != nil {
		return Info{}, err
	}
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	if err := screenplay.Validate(d); err != nil {
		return Info{}, err
	}
	data, err := Encode(d)
	if err != nil {
		return Info{}, err
	}
	path := s.Path(id)
	bdir := filepath.Join(s.Dir, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return Info{}, fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		bpath := filepath.Join(bdir, fmt.Sprintf("%s%s.%s.bak", id, DocumentExt, time.Now().Format(backupStamp)))
		if cerr := copyFile(path, bpath); cerr != nil {
			return Info{}, fmt.Errorf("backup current document: %w", cerr)
		}
		s.pruneBackups(id)
	}

	// Transactional write: temp file in the same directory, then rename over target
	temp := filepath.Join(s.Dir, fmt.Sprintf(".%s.tmp-%d-%d", id, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		_ = os.Remove(temp)
		return Info{}, fmt.Errorf("write temp document: %w", werr)
	}
	if rerr := os.Rename(temp, path); rerr != nil {
		// Windows does not replace on rename
		_ = os.Remove(path)
		if rerr = os.Rename(temp, path); rerr != nil {
			_ = os.Remove(temp)
			return Info{}, fmt.Errorf("replace document: %w", rerr)
		}
	}
	return Info{ID: id, Title: Title(d), UpdatedAt: time.Now().UTC()}, nil
}

// Get loads document id. If the current file cannot be read or fails
// validation, the latest backup that loads is returned instead.
func (s *FileStore) Get(ctx context.Context, id string) (*screenplay.Document, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.Path(id))
	if err == nil {
		d, derr := Decode(b)
		if derr == nil {
			return d, nil
		}
		err = derr
	}
	d, berr := s.openFromLatestBackup(id)
	if berr != nil {
		if errors.Is(err, os.ErrNotExist) && errors.Is(berr, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("open document %s: %w; backup attempt: %v", id, err, berr)
	}
	applog.WithOperation(applog.WithComponent("storage"), "open").Warn("document restored from backup",
		slog.String("id", id), slog.Any("err", err))
	return d, nil
}

// List returns the stored documents sorted by id.
func (s *FileStore) List(ctx context.Context) ([]Info, error) {
	ents, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("read storage dir: %w", err)
	}
	var out []Info
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, DocumentExt) || strings.HasPrefix(name, ".") {
			continue
		}
		id := strings.TrimSuffix(name, DocumentExt)
		d, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		info := Info{ID: id, Title: Title(d)}
		if fi, err := e.Info(); err == nil {
			info.UpdatedAt = fi.ModTime().UTC()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) backups(id string) ([]string, error) {
	bdir := filepath.Join(s.Dir, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := id + DocumentExt + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out, nil
}

func (s *FileStore) pruneBackups(id string) {
	if s.KeepBackups <= 0 {
		return
	}
	list, err := s.backups(id)
	if err != nil {
		return
	}
	for len(list) > s.KeepBackups {
		_ = os.Remove(list[0])
		list = list[1:]
	}
}

// openFromLatestBackup walks the backups newest first and returns the first
// one that decodes.
func (s *FileStore) openFromLatestBackup(id string) (*screenplay.Document, error) {
	list, err := s.backups(id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no backups found: %w", os.ErrNotExist)
	}
	var lastErr error
	for i := len(list) - 1; i >= 0; i-- {
		b, err := os.ReadFile(list[i])
		if err != nil {
			lastErr = err
			continue
		}
		d, err := Decode(b)
		if err != nil {
			lastErr = fmt.Errorf("parse backup %s: %w", filepath.Base(list[i]), err)
			continue
		}
		return d, nil
	}
	return nil, lastErr
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
