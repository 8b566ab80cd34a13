/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"path/filepath"
	"testing"
)

func TestWrapBreaksOnSpaces(t *testing.T) {
	// Face7x13 advances 7px per glyph.
	box := Wrap(BasicProvider{}, FontSpec{}, "Hello world from Go", 50)
	want := []string{"Hello", "world", "from Go"}
	if len(box.Lines) != len(want) {
		t.Fatalf("lines = %q, want %q", box.Lines, want)
	}
	for i := range want {
		if box.Lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, box.Lines[i], want[i])
		}
	}
	if box.Width != 49 {
		t.Fatalf("width = %v, want 49", box.Width)
	}
	if box.Height != 3*box.Metrics.LineHeight() {
		t.Fatalf("height = %v", box.Height)
	}
}

func TestWrapKeepsWordsThatFit(t *testing.T) {
	box := Wrap(nil, FontSpec{}, "ab cd ef", 35)
	if len(box.Lines) != 2 || box.Lines[0] != "ab cd" || box.Lines[1] != "ef" {
		t.Fatalf("lines = %q", box.Lines)
	}
}

func TestWrapNewlinesAndEmpty(t *testing.T) {
	box := Wrap(BasicProvider{}, FontSpec{}, "one\n\ntwo", 0)
	if len(box.Lines) != 3 || box.Lines[1] != "" {
		t.Fatalf("lines = %q", box.Lines)
	}
	empty := Wrap(BasicProvider{}, FontSpec{}, "", 100)
	if len(empty.Lines) != 1 || empty.Height <= 0 {
		t.Fatalf("empty text should occupy a line: %+v", empty)
	}
}

func TestWrapOverlongWordOverflows(t *testing.T) {
	box := Wrap(BasicProvider{}, FontSpec{}, "a supercalifragilistic b", 30)
	if len(box.Lines) != 3 || box.Lines[1] != "supercalifragilistic" {
		t.Fatalf("lines = %q", box.Lines)
	}
	if box.Width <= 30 {
		t.Fatalf("overlong word should overflow, width = %v", box.Width)
	}
}

func TestWidthDeterministic(t *testing.T) {
	if Width(BasicProvider{}, FontSpec{}, "ABC") != Width(nil, FontSpec{}, "A")+Width(nil, FontSpec{}, "BC") {
		t.Fatalf("fixed face width should be additive")
	}
}

func TestOTProviderFallsBack(t *testing.T) {
	lib := NewFontLibrary()
	if err := lib.Load("Courier", filepath.Join(t.TempDir(), "missing.ttf")); err == nil {
		t.Fatalf("expected error for missing font file")
	}
	if err := lib.Add("Broken", []byte("not a font")); err == nil {
		t.Fatalf("expected parse error")
	}
	p := OTProvider{Lib: lib}
	_, got := p.Resolve(FontSpec{Family: "Courier", SizePt: 12})
	_, want := BasicProvider{}.Resolve(FontSpec{})
	if got != want {
		t.Fatalf("unknown family should use fallback metrics: %+v vs %+v", got, want)
	}
}
