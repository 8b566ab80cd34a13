/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	sp "goscreenwriter/internal/screenplay"
)

func sampleDoc() *sp.Document {
	return sp.MustFromSpecs(
		sp.Leaf(sp.SceneHeading, "INT. KITCHEN - NIGHT"),
		sp.Leaf(sp.Action, "Rain on the window."),
		sp.Block(sp.Name("MARA"),
			sp.Leaf(sp.Dialogue, "You came back."),
			sp.Leaf(sp.Parenthetical, "(quietly)"),
		),
	)
}

func TestEncodeDecodeKeepsStructure(t *testing.T) {
	d := sampleDoc()
	data, err := Encode(d)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got.Specs(), d.Specs()) {
		t.Fatalf("structure changed:\n got %+v\nwant %+v", got.Specs(), d.Specs())
	}
}

func TestDecodeRejectsSchemaViolations(t *testing.T) {
	cases := map[string]string{
		"unknown type":  `{"type":"doc","content":[{"type":"montage","text":"x"}]}`,
		"extra field":   `{"type":"doc","content":[{"type":"action","text":"x","bold":true}]}`,
		"empty content": `{"type":"doc","content":[]}`,
		"wrong root":    `{"type":"action","content":[{"type":"action"}]}`,
		"text type":     `{"type":"doc","content":[{"type":"action","text":7}]}`,
	}
	for name, in := range cases {
		if _, err := Decode([]byte(in)); !errors.Is(err, ErrSchema) {
			t.Fatalf("%s: expected ErrSchema, got %v", name, err)
		}
	}
}

func TestDecodeRejectsGrammarViolations(t *testing.T) {
	// schema-valid but a dialogue block needs exactly one speech flow
	in := `{"type":"doc","content":[{"type":"dialogue_block","content":[{"type":"character","text":"ANN"}]}]}`
	_, err := Decode([]byte(in))
	if err == nil || errors.Is(err, ErrSchema) {
		t.Fatalf("expected grammar error, got %v", err)
	}
	if !errors.Is(err, sp.ErrInvariant) {
		t.Fatalf("expected ErrInvariant, got %v", err)
	}
}

func TestTitle(t *testing.T) {
	if got := Title(sampleDoc()); got != "INT. KITCHEN - NIGHT" {
		t.Fatalf("title = %q", got)
	}
	d := sp.MustFromSpecs(sp.Leaf(sp.Action, ""), sp.Leaf(sp.Action, "  Fade in on a field.  "))
	if got := Title(d); got != "Fade in on a field." {
		t.Fatalf("title = %q", got)
	}
	if got := Title(sp.MustFromSpecs(sp.Leaf(sp.Action, ""))); got != "untitled" {
		t.Fatalf("title = %q", got)
	}
	long := sp.MustFromSpecs(sp.Leaf(sp.Action, strings.Repeat("a", 100)))
	if got := []rune(Title(long)); len(got) != maxTitle {
		t.Fatalf("long title not clipped: %d runes", len(got))
	}
}

func TestValidateID(t *testing.T) {
	for _, ok := range []string{"pilot", "ep-01", "draft_2.final"} {
		if err := ValidateID(ok); err != nil {
			t.Fatalf("%q rejected: %v", ok, err)
		}
	}
	for _, bad := range []string{"", "../etc", "a/b", ".hidden", "a..b"} {
		if err := ValidateID(bad); err == nil {
			t.Fatalf("%q accepted", bad)
		}
	}
}
