/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package layout turns a screenplay document into measured blocks for the
// pagination engine and schedules re-pagination after edits.
package layout

import (
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"

	"goscreenwriter/internal/pagination"
	"goscreenwriter/internal/screenplay"
	"goscreenwriter/internal/textlayout"
)

// Measurer reports how many lines text needs at a given width in points.
type Measurer interface {
	Lines(text string, width float64) int
}

// CellMeasurer wraps on a fixed-pitch grid, counting East Asian wide runes
// as two cells.
type CellMeasurer struct {
	// CellWidth is the advance of one column in points; 7.2 (Courier 12pt)
	// when zero.
	CellWidth float64
}

func (m CellMeasurer) columns(width float64) int {
	cw := m.CellWidth
	if cw <= 0 {
		cw = 7.2
	}
	return int(width / cw)
}

// Lines word-wraps text into columns derived from width.
func (m CellMeasurer) Lines(text string, width float64) int {
	cols := m.columns(width)
	n := 0
	for _, para := range strings.Split(text, "\n") {
		n += wrapCells(para, cols)
	}
	return n
}

func wrapCells(para string, cols int) int {
	lines, cur := 1, 0
	for _, word := range strings.FieldsFunc(para, unicode.IsSpace) {
		w := runewidth.StringWidth(word)
		switch {
		case cur == 0:
			cur = w
		case cols > 0 && cur+1+w > cols:
			lines++
			cur = w
		default:
			cur += 1 + w
		}
		// A word wider than the column count hard-breaks across lines.
		for cols > 0 && cur > cols {
			lines++
			cur -= cols
		}
	}
	return lines
}

// FontMeasurer wraps with real glyph advances from a textlayout provider.
type FontMeasurer struct {
	Provider textlayout.Provider
	Font     textlayout.FontSpec
}

func (m FontMeasurer) Lines(text string, width float64) int {
	return len(textlayout.Wrap(m.Provider, m.Font, text, float32(width)).Lines)
}

// Element is the geometry of one element type, in points.
type Element struct {
	Indent      float64 `yaml:"indent" json:"indent"`
	Width       float64 `yaml:"width" json:"width"`
	SpaceBefore float64 `yaml:"space_before" json:"space_before"`
	Uppercase   bool    `yaml:"uppercase" json:"uppercase"`
}

// Geometry places elements on the canvas.
type Geometry struct {
	// Top is the canvas y of the first page's content area.
	Top        float64
	LineHeight float64
	Elements   map[screenplay.NodeType]Element
	Default    Element
}

// ElementFor returns the geometry of t, falling back to Default.
func (g Geometry) ElementFor(t screenplay.NodeType) Element {
	if e, ok := g.Elements[t]; ok {
		return e
	}
	return g.Default
}

// DefaultGeometry is the common US-letter layout in 12pt Courier: 72pt top
// margin, 6in action width.
func DefaultGeometry() Geometry {
	return Geometry{
		Top:        72,
		LineHeight: 12,
		Default:    Element{Width: 432, SpaceBefore: 12},
		Elements: map[screenplay.NodeType]Element{
			screenplay.SceneHeading:  {Width: 432, SpaceBefore: 24, Uppercase: true},
			screenplay.Action:        {Width: 432, SpaceBefore: 12},
			screenplay.Character:     {Indent: 158, Width: 274, SpaceBefore: 12, Uppercase: true},
			screenplay.Dialogue:      {Indent: 72, Width: 252},
			screenplay.Parenthetical: {Indent: 108, Width: 180},
			screenplay.Transition:    {Indent: 288, Width: 144, SpaceBefore: 12, Uppercase: true},
			screenplay.Paragraph:     {Width: 432, SpaceBefore: 12},
		},
	}
}

// Measure lays out every text node of d top to bottom and returns one block
// per node. The first block's space before is dropped so content starts at
// the top of the page.
func Measure(d *screenplay.Document, m Measurer, g Geometry) []pagination.Block {
	leaves := d.Leaves()
	out := make([]pagination.Block, 0, len(leaves))
	y := g.Top
	for i, id := range leaves {
		t := d.Type(id)
		el := g.ElementFor(t)
		text := d.Text(id)
		if el.Uppercase {
			text = strings.ToUpper(text)
		}
		space := el.SpaceBefore
		if i == 0 {
			space = 0
		}
		top := y + space
		h := float64(m.Lines(text, el.Width)) * g.LineHeight
		out = append(out, pagination.Block{
			Index:     i,
			Type:      t,
			Text:      text,
			Top:       top,
			Bottom:    top + h,
			Height:    h,
			MarginTop: space,
		})
		y = top + h
	}
	return out
}
