/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textlayout measures and word-wraps element text against a font
// face. All measurement goes through a Provider so tests can rely on the
// fixed 7x13 face while real documents use an OpenType face.
package textlayout

import (
	"strings"
	"unicode"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// FontSpec describes a requested font.
type FontSpec struct {
	Family string
	SizePt float32
	Weight int // 100..900
	Italic bool
}

// Metrics are the resolved face's vertical metrics in pixels.
type Metrics struct {
	Ascent, Descent, LineGap float32
}

// LineHeight is the baseline-to-baseline distance.
func (m Metrics) LineHeight() float32 { return m.Ascent + m.Descent + m.LineGap }

// Provider maps a FontSpec to a concrete face.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics)
}

// BasicProvider always resolves to basicfont.Face7x13.
type BasicProvider struct{}

func (BasicProvider) Resolve(FontSpec) (font.Face, Metrics) {
	f := basicfont.Face7x13
	return f, metricsOf(f)
}

func metricsOf(f font.Face) Metrics {
	m := f.Metrics()
	return Metrics{
		Ascent:  float32(m.Ascent.Round()),
		Descent: float32(m.Descent.Round()),
		LineGap: float32(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
	}
}

// Box is text wrapped into a maximum width.
type Box struct {
	Lines   []string
	Width   float32
	Height  float32
	Metrics Metrics
}

// Wrap breaks text into lines no wider than maxWidth, on spaces and at
// explicit newlines. A word wider than maxWidth gets a line of its own and
// overflows. Empty text still occupies one line. maxWidth <= 0 disables
// wrapping.
func Wrap(p Provider, spec FontSpec, text string, maxWidth float32) Box {
	if p == nil {
		p = BasicProvider{}
	}
	face, met := p.Resolve(spec)
	d := &font.Drawer{Face: face}
	space := advance(d, " ")
	box := Box{Metrics: met}

	emit := func(line string, w float32) {
		box.Lines = append(box.Lines, line)
		box.Width = max(box.Width, w)
	}
	for _, para := range strings.Split(text, "\n") {
		var cur strings.Builder
		var curW float32
		for _, word := range strings.FieldsFunc(para, unicode.IsSpace) {
			w := advance(d, word)
			if cur.Len() > 0 && maxWidth > 0 && curW+space+w > maxWidth {
				emit(cur.String(), curW)
				cur.Reset()
				curW = 0
			}
			if cur.Len() > 0 {
				cur.WriteByte(' ')
				curW += space
			}
			cur.WriteString(word)
			curW += w
		}
		emit(cur.String(), curW)
	}
	box.Height = float32(len(box.Lines)) * met.LineHeight()
	return box
}

// Width measures text on a single line.
func Width(p Provider, spec FontSpec, text string) float32 {
	if p == nil {
		p = BasicProvider{}
	}
	face, _ := p.Resolve(spec)
	return advance(&font.Drawer{Face: face}, text)
}

func advance(d *font.Drawer, s string) float32 {
	return float32(d.MeasureString(s)) / 64
}
