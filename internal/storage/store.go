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
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"goscreenwriter/internal/screenplay"
)

// ErrNotFound is returned when a document or revision does not exist.
var ErrNotFound = errors.New("document not found")

// Info describes a stored document.
type Info struct {
	ID        string
	Title     string
	Rev       int64 // 0 for stores that do not number revisions
	UpdatedAt time.Time
}

// Revision is one saved state of a document.
type Revision struct {
	Doc       string
	Rev       int64
	Leaves    int
	CreatedAt time.Time
}

// DocumentStore persists screenplay documents by id.
type DocumentStore interface {
	Put(ctx context.Context, id string, d *screenplay.Document) (Info, error)
	Get(ctx context.Context, id string) (*screenplay.Document, error)
	List(ctx context.Context) ([]Info, error)
	Close() error
}

// RevisionStore is a DocumentStore that keeps history.
type RevisionStore interface {
	DocumentStore
	Revisions(ctx context.Context, id string, limit int) ([]Revision, error)
	GetRevision(ctx context.Context, id string, rev int64) (*screenplay.Document, error)
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateID rejects ids that cannot be used as file names or keys.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) || strings.Contains(id, "..") {
		return fmt.Errorf("invalid document id %q", id)
	}
	return nil
}

const maxTitle = 60

// Title derives a display title: the first scene heading, else the first
// non-empty text, else "untitled".
func Title(d *screenplay.Document) string {
	var first string
	for _, id := range d.Leaves() {
		text := strings.TrimSpace(d.Text(id))
		if text == "" {
			continue
		}
		if d.Type(id) == screenplay.SceneHeading {
			return clip(text)
		}
		if first == "" {
			first = text
		}
	}
	if first == "" {
		return "untitled"
	}
	return clip(first)
}

func clip(s string) string {
	if utf8.RuneCountInString(s) <= maxTitle {
		return s
	}
	r := []rune(s)
	return string(r[:maxTitle-1]) + "…"
}
