/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"goscreenwriter/internal/layout"
	"goscreenwriter/internal/pagination"
	"goscreenwriter/internal/screenplay"
	"goscreenwriter/internal/textlayout"
)

// Format is a page format profile. All lengths are in points.
type Format struct {
	Name         string  `yaml:"name"`
	PageWidth    float64 `yaml:"page_width"`
	PageHeight   float64 `yaml:"page_height"`
	MarginTop    float64 `yaml:"margin_top"`
	MarginBottom float64 `yaml:"margin_bottom"`
	MarginLeft   float64 `yaml:"margin_left"`
	PageGap      float64 `yaml:"page_gap"`
	LineHeight   float64 `yaml:"line_height"`
	// CellWidth is the fixed-pitch column advance used for measuring.
	CellWidth float64 `yaml:"cell_width"`
	// FontFile optionally points at a TTF/OTF used for proportional measuring.
	FontFile string  `yaml:"font_file"`
	FontSize float64 `yaml:"font_size"`

	DefaultPolicy string                    `yaml:"default_policy"`
	Policies      map[string]string         `yaml:"policies"`
	Elements      map[string]layout.Element `yaml:"elements"`
}

// DefaultFormat is US letter with the customary screenplay margins.
func DefaultFormat() Format {
	g := layout.DefaultGeometry()
	els := make(map[string]layout.Element, len(g.Elements))
	for t, e := range g.Elements {
		els[string(t)] = e
	}
	return Format{
		Name:          "us-letter",
		PageWidth:     612,
		PageHeight:    792,
		MarginTop:     72,
		MarginBottom:  72,
		MarginLeft:    108,
		PageGap:       24,
		LineHeight:    12,
		CellWidth:     7.2,
		FontSize:      12,
		DefaultPolicy: string(pagination.BlockOnly),
		Policies:      map[string]string{},
		Elements:      els,
	}
}

// LoadFormat reads a standalone format profile. Fields it leaves unset keep
// their DefaultFormat values.
func LoadFormat(path string) (Format, error) {
	f := DefaultFormat()
	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("read format %s: %w", path, err)
	}
	var src Format
	if err := yaml.Unmarshal(data, &src); err != nil {
		return f, fmt.Errorf("parse format %s: %w", path, err)
	}
	f.merge(src)
	if _, err := f.Pagination(); err != nil {
		return f, fmt.Errorf("format %s: %w", path, err)
	}
	return f, nil
}

func (f *Format) merge(src Format) {
	if v := strings.TrimSpace(src.Name); v != "" {
		f.Name = v
	}
	setPos := func(dst *float64, v float64) {
		if v > 0 {
			*dst = v
		}
	}
	setPos(&f.PageWidth, src.PageWidth)
	setPos(&f.PageHeight, src.PageHeight)
	setPos(&f.MarginTop, src.MarginTop)
	setPos(&f.MarginBottom, src.MarginBottom)
	setPos(&f.MarginLeft, src.MarginLeft)
	setPos(&f.PageGap, src.PageGap)
	setPos(&f.LineHeight, src.LineHeight)
	setPos(&f.CellWidth, src.CellWidth)
	setPos(&f.FontSize, src.FontSize)
	if v := strings.TrimSpace(src.FontFile); v != "" {
		f.FontFile = v
	}
	if v := strings.TrimSpace(src.DefaultPolicy); v != "" {
		f.DefaultPolicy = v
	}
	if len(src.Policies) > 0 {
		if f.Policies == nil {
			f.Policies = map[string]string{}
		}
		for k, v := range src.Policies {
			f.Policies[k] = v
		}
	}
	if len(src.Elements) > 0 {
		if f.Elements == nil {
			f.Elements = map[string]layout.Element{}
		}
		for k, v := range src.Elements {
			f.Elements[k] = v
		}
	}
}

// Pagination converts the profile into break-engine settings.
func (f Format) Pagination() (pagination.Config, error) {
	def, err := pagination.ParsePolicy(f.DefaultPolicy)
	if err != nil {
		return pagination.Config{}, err
	}
	cfg := pagination.Config{
		PageHeight:    f.PageHeight,
		MarginTop:     f.MarginTop,
		MarginBottom:  f.MarginBottom,
		PageGap:       f.PageGap,
		DefaultPolicy: def,
		Policies:      make(map[screenplay.NodeType]pagination.Policy, len(f.Policies)),
	}
	for name, p := range f.Policies {
		t, err := screenplay.ParseNodeType(name)
		if err != nil {
			return pagination.Config{}, fmt.Errorf("policies: %w", err)
		}
		pol, err := pagination.ParsePolicy(p)
		if err != nil {
			return pagination.Config{}, fmt.Errorf("policies.%s: %w", name, err)
		}
		cfg.Policies[t] = pol
	}
	return cfg, cfg.Validate()
}

// Geometry converts the profile into layout geometry. The first page's
// content starts at the top margin.
func (f Format) Geometry() (layout.Geometry, error) {
	g := layout.DefaultGeometry()
	g.Top = f.MarginTop
	if f.LineHeight > 0 {
		g.LineHeight = f.LineHeight
	}
	for name, e := range f.Elements {
		t, err := screenplay.ParseNodeType(name)
		if err != nil {
			return layout.Geometry{}, fmt.Errorf("elements: %w", err)
		}
		g.Elements[t] = e
	}
	return g, nil
}

// Measurer returns the line measurer for the profile: glyph advances from
// FontFile when set, otherwise the fixed-pitch grid.
func (f Format) Measurer() (layout.Measurer, error) {
	if strings.TrimSpace(f.FontFile) == "" {
		return layout.CellMeasurer{CellWidth: f.CellWidth}, nil
	}
	lib := textlayout.NewFontLibrary()
	if err := lib.Load("script", f.FontFile); err != nil {
		return nil, err
	}
	return layout.FontMeasurer{
		Provider: textlayout.OTProvider{Lib: lib},
		Font:     textlayout.FontSpec{Family: "script", SizePt: float32(f.FontSize)},
	}, nil
}
