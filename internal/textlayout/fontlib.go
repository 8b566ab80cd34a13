/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// FontLibrary holds parsed OpenType fonts by family. Screenplays use one
// monospaced family, so there is no weight or style matching.
type FontLibrary struct {
	mu    sync.Mutex
	fonts map[string]*opentype.Font
	faces map[faceKey]font.Face
}

type faceKey struct {
	family string
	size   float32
	dpi    float64
}

func NewFontLibrary() *FontLibrary {
	return &FontLibrary{fonts: map[string]*opentype.Font{}, faces: map[faceKey]font.Face{}}
}

// Load parses a TTF/OTF file and registers it under family.
func (fl *FontLibrary) Load(family, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	return fl.Add(family, data)
}

// Add registers font bytes under family.
func (fl *FontLibrary) Add(family string, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", family, err)
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	fl.fonts[family] = f
	return nil
}

func (fl *FontLibrary) face(spec FontSpec, dpi float64) (font.Face, bool) {
	if fl == nil {
		return nil, false
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	k := faceKey{family: spec.Family, size: spec.SizePt, dpi: dpi}
	if f, ok := fl.faces[k]; ok {
		return f, true
	}
	otf, ok := fl.fonts[spec.Family]
	if !ok {
		return nil, false
	}
	f, err := opentype.NewFace(otf, &opentype.FaceOptions{Size: float64(spec.SizePt), DPI: dpi, Hinting: font.HintingFull})
	if err != nil {
		return nil, false
	}
	fl.faces[k] = f
	return f, true
}

// OTProvider resolves through a FontLibrary and falls back to Fallback
// (BasicProvider when nil) for unknown families.
type OTProvider struct {
	Lib      *FontLibrary
	DPI      float64 // 72 when zero
	Fallback Provider
}

func (p OTProvider) Resolve(spec FontSpec) (font.Face, Metrics) {
	if spec.SizePt <= 0 {
		spec.SizePt = 12
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 72
	}
	if f, ok := p.Lib.face(spec, dpi); ok {
		return f, metricsOf(f)
	}
	fb := p.Fallback
	if fb == nil {
		fb = BasicProvider{}
	}
	return fb.Resolve(spec)
}
