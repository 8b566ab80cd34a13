/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"
	"time"
)

func TestUndoRedoBasic(t *testing.T) {
	h := NewHistory(Config{MaxBytes: 1024 * 1024, MaxDepth: 10, MinInterval: 10 * time.Millisecond})
	t0 := time.Now()
	h.Record(Snapshot{Doc: "a", State: []byte("s0"), Label: "enter", TS: t0})
	h.Record(Snapshot{Doc: "a", State: []byte("s1"), Label: "enter", TS: t0.Add(20 * time.Millisecond)})
	if _, docs, total := h.Stats(); docs != 1 || total != 2 {
		t.Fatalf("expected 1 doc and 2 entries, got docs=%d total=%d", docs, total)
	}
	s, ok := h.Undo("a", []byte("s2"))
	if !ok || string(s.State) != "s1" {
		t.Fatalf("undo expected 's1', got ok=%v state=%q", ok, s.State)
	}
	if !h.CanRedo("a") {
		t.Fatalf("undo should enable redo")
	}
	s, ok = h.Redo("a", []byte("s1"))
	if !ok || string(s.State) != "s2" {
		t.Fatalf("redo expected 's2', got ok=%v state=%q", ok, s.State)
	}
	s, _ = h.Undo("a", []byte("s2"))
	s, _ = h.Undo("a", s.State)
	if string(s.State) != "s0" || h.CanUndo("a") {
		t.Fatalf("expected to reach s0 with empty undo, got %q", s.State)
	}
}

func TestCoalesceKeepsEarliestState(t *testing.T) {
	h := NewHistory(Config{MinInterval: 50 * time.Millisecond})
	t0 := time.Now()
	h.Record(Snapshot{Doc: "a", State: []byte("1"), Label: "type", TS: t0})
	h.Record(Snapshot{Doc: "a", State: []byte("2"), Label: "type", TS: t0.Add(10 * time.Millisecond)})
	h.Record(Snapshot{Doc: "a", State: []byte("3"), Label: "type", TS: t0.Add(20 * time.Millisecond)})
	if _, _, total := h.Stats(); total != 1 {
		t.Fatalf("expected coalesced to 1 entry, got %d", total)
	}
	s, ok := h.Undo("a", []byte("4"))
	if !ok || string(s.State) != "1" {
		t.Fatalf("expected earliest state '1', got ok=%v state=%q", ok, s.State)
	}
}

func TestDifferentLabelsDoNotCoalesce(t *testing.T) {
	h := NewHistory(Config{MinInterval: time.Hour})
	t0 := time.Now()
	h.Record(Snapshot{Doc: "a", State: []byte("1"), Label: "type", TS: t0})
	h.Record(Snapshot{Doc: "a", State: []byte("2"), Label: "enter", TS: t0})
	if _, _, total := h.Stats(); total != 2 {
		t.Fatalf("expected 2 entries, got %d", total)
	}
}

func TestUndoBreaksCoalescing(t *testing.T) {
	h := NewHistory(Config{MinInterval: time.Hour})
	t0 := time.Now()
	h.Record(Snapshot{Doc: "a", State: []byte("1"), Label: "type", TS: t0})
	h.Undo("a", []byte("2"))
	h.Record(Snapshot{Doc: "a", State: []byte("1"), Label: "type", TS: t0})
	if h.CanRedo("a") {
		t.Fatalf("record should clear redo")
	}
	h.Record(Snapshot{Doc: "a", State: []byte("3"), Label: "type", TS: t0})
	if _, _, total := h.Stats(); total != 1 {
		t.Fatalf("expected 1 entry, got %d", total)
	}
}

func TestDepthCap(t *testing.T) {
	h := NewHistory(Config{MaxBytes: 1024, MaxDepth: 2, MinInterval: time.Millisecond})
	t0 := time.Now()
	for i := 0; i < 10; i++ {
		h.Record(Snapshot{Doc: "a", State: []byte("xxxxx"), Label: "enter", TS: t0.Add(time.Duration(i) * time.Second)})
	}
	tb, _, total := h.Stats()
	if total != 2 || tb != 10 {
		t.Fatalf("expected depth cap of 2 (10 bytes), got total=%d bytes=%d", total, tb)
	}
}

func TestGlobalPruneAcrossDocuments(t *testing.T) {
	h := NewHistory(Config{MaxBytes: 8, MinInterval: time.Millisecond})
	t0 := time.Now()
	h.Record(Snapshot{Doc: "one", State: []byte("xxxx"), Label: "x", TS: t0})
	h.Record(Snapshot{Doc: "two", State: []byte("yyyy"), Label: "x", TS: t0.Add(time.Second)})
	h.Record(Snapshot{Doc: "two", State: []byte("zzzz"), Label: "x", TS: t0.Add(2 * time.Second)})

	if _, ok := h.Undo("one", nil); ok {
		t.Fatalf("expected the oldest document entry to be pruned")
	}
	if _, ok := h.Undo("two", nil); !ok {
		t.Fatalf("expected doc two to keep entries")
	}
}

func TestClear(t *testing.T) {
	h := NewHistory(Config{})
	h.Record(Snapshot{Doc: "a", State: []byte("abcdef"), Label: "x", TS: time.Now()})
	h.Undo("a", []byte("ghi"))
	h.Clear("a")
	if tb, docs, total := h.Stats(); tb != 0 || docs != 0 || total != 0 {
		t.Fatalf("expected empty stats after clear, got tb=%d docs=%d total=%d", tb, docs, total)
	}
	if h.CanRedo("a") {
		t.Fatalf("clear should drop redo")
	}
}
