/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo keeps per-document undo/redo history as opaque state blobs.
package undo

import (
	"sync"
	"time"
)

// Snapshot is one restorable editing state of a document. State is opaque
// to the history; its size is estimated as len(State). Label names the edit
// that followed the snapshot (a rule id, "type", "convert") and drives
// coalescing.
type Snapshot struct {
	Doc   string
	State []byte
	Label string
	TS    time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap across all documents; the oldest entries are
	// pruned when exceeded.
	MaxBytes int
	// MaxDepth limits the undo entries kept per document (0 means unlimited).
	MaxDepth int
	// MinInterval merges consecutive edits with the same label into one undo
	// step when they arrive within the interval. The earlier state is kept.
	MinInterval time.Duration
}

// History is an undo/redo stack per document. Entries hold the state
// *before* an edit, so Undo trades the caller's current state for the one
// preceding it. It is safe for concurrent use.
type History struct {
	cfg Config
	mu  sync.Mutex

	undo map[string][]Snapshot
	redo map[string][]Snapshot
	// last edit time per document, for coalescing
	lastTS     map[string]time.Time
	totalBytes int
}

func NewHistory(cfg Config) *History {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 500 * time.Millisecond
	}
	return &History{
		cfg:    cfg,
		undo:   make(map[string][]Snapshot),
		redo:   make(map[string][]Snapshot),
		lastTS: make(map[string]time.Time),
	}
}

// Record stores the state preceding an edit. An edit with the same label as
// the previous one, arriving within MinInterval, is folded into it: nothing
// is pushed, so one Undo reverts the whole run. Any record clears redo.
func (h *History) Record(s Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropRedoLocked(s.Doc)
	stack := h.undo[s.Doc]
	last, seen := h.lastTS[s.Doc]
	h.lastTS[s.Doc] = s.TS
	if n := len(stack); n > 0 && seen && stack[n-1].Label == s.Label && s.TS.Sub(last) < h.cfg.MinInterval {
		return
	}
	h.undo[s.Doc] = append(stack, s)
	h.totalBytes += len(s.State)
	h.enforceCapsLocked(s.Doc)
}

// Undo pops the latest entry for doc and parks current on the redo stack.
func (h *History) Undo(doc string, current []byte) (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	stack := h.undo[doc]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	h.undo[doc] = stack[:len(stack)-1]
	h.totalBytes -= len(s.State)
	h.redo[doc] = append(h.redo[doc], Snapshot{Doc: doc, State: current, Label: s.Label, TS: s.TS})
	h.totalBytes += len(current)
	delete(h.lastTS, doc)
	return s, true
}

// Redo reverses the latest Undo, parking current back on the undo stack.
func (h *History) Redo(doc string, current []byte) (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.redo[doc]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	h.redo[doc] = r[:len(r)-1]
	h.totalBytes -= len(s.State)
	h.undo[doc] = append(h.undo[doc], Snapshot{Doc: doc, State: current, Label: s.Label, TS: s.TS})
	h.totalBytes += len(current)
	delete(h.lastTS, doc)
	h.enforceCapsLocked(doc)
	return s, true
}

// CanUndo and CanRedo report whether the stacks for doc are non-empty.
func (h *History) CanUndo(doc string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo[doc]) > 0
}

func (h *History) CanRedo(doc string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo[doc]) > 0
}

// Clear drops all history for doc.
func (h *History) Clear(doc string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.undo[doc] {
		h.totalBytes -= len(s.State)
	}
	h.dropRedoLocked(doc)
	delete(h.undo, doc)
	delete(h.redo, doc)
	delete(h.lastTS, doc)
	if h.totalBytes < 0 {
		h.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (h *History) Stats() (totalBytes int, docs int, undoEntries int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, v := range h.undo {
		if len(v) > 0 {
			docs++
		}
		undoEntries += len(v)
	}
	return h.totalBytes, docs, undoEntries
}

func (h *History) dropRedoLocked(doc string) {
	for _, s := range h.redo[doc] {
		h.totalBytes -= len(s.State)
	}
	h.redo[doc] = nil
}

func (h *History) enforceCapsLocked(doc string) {
	if h.cfg.MaxDepth > 0 {
		stack := h.undo[doc]
		if len(stack) > h.cfg.MaxDepth {
			toDrop := len(stack) - h.cfg.MaxDepth
			for i := 0; i < toDrop; i++ {
				h.totalBytes -= len(stack[i].State)
			}
			h.undo[doc] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// Global cap: prune the oldest undo entry across documents. The newest
	// entry of doc is never pruned.
	for h.totalBytes > h.cfg.MaxBytes {
		oldestDoc := ""
		var oldestTS time.Time
		found := false
		for d, stack := range h.undo {
			if len(stack) == 0 || (d == doc && len(stack) == 1) {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldestDoc, oldestTS, found = d, stack[0].TS, true
			}
		}
		if !found {
			break
		}
		stack := h.undo[oldestDoc]
		h.totalBytes -= len(stack[0].State)
		h.undo[oldestDoc] = stack[1:]
		if len(h.undo[oldestDoc]) == 0 {
			delete(h.undo, oldestDoc)
		}
	}
}
