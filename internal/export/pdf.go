/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders a paginated draft of a screenplay.
package export

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"goscreenwriter/internal/config"
	"goscreenwriter/internal/layout"
	"goscreenwriter/internal/pagination"
	"goscreenwriter/internal/screenplay"
)

// PDFOptions controls PDF export behavior. Units are points.
//
// Text uses the built-in Courier face so the output stays vector without
// embedding; its 7.2pt advance at 12pt matches the default cell measurer.
// Block positions come from the same measure and break pass the editor
// uses, so page boundaries in the PDF are the editor's boundaries.
type PDFOptions struct {
	Title  string
	Author string
	// PageNumbers prints "N." in the top right corner from page 2 on.
	PageNumbers bool
	// Guides draws the content area of every page as a hairline rectangle.
	Guides bool
}

// Placed is a block positioned on a page.
type Placed struct {
	Block pagination.Block
	Page  int     // 0-based
	Y     float64 // top of the block relative to its page
}

// Place applies the break markers to measured blocks and assigns pages.
func Place(blocks []pagination.Block, res pagination.Result, cfg pagination.Config) []Placed {
	stride := cfg.PageHeight + cfg.PageGap
	out := make([]Placed, 0, len(blocks))
	shift := 0.0
	mi := 0
	for _, b := range blocks {
		for mi < len(res.Markers) && res.Markers[mi].Index <= b.Index {
			shift += res.Markers[mi].Spacer
			mi++
		}
		y := b.Top + shift
		page := 0
		if stride > 0 {
			page = int(math.Floor(y / stride))
		}
		if page >= res.PageCount {
			page = res.PageCount - 1
		}
		out = append(out, Placed{Block: b, Page: page, Y: y - float64(page)*stride})
	}
	return out
}

// ExportPDF paginates d with the format profile and writes the PDF to outPath.
func ExportPDF(d *screenplay.Document, f config.Format, outPath string, opt PDFOptions) (pagination.Result, error) {
	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return pagination.Result{}, fmt.Errorf("ensure out dir: %w", err)
		}
	}
	out, err := os.Create(outPath)
	if err != nil {
		return pagination.Result{}, fmt.Errorf("create pdf: %w", err)
	}
	res, werr := WritePDF(out, d, f, opt)
	if cerr := out.Close(); werr == nil && cerr != nil {
		werr = fmt.Errorf("close pdf: %w", cerr)
	}
	if werr != nil {
		_ = os.Remove(outPath)
	}
	return res, werr
}

// WritePDF is ExportPDF for an arbitrary writer.
func WritePDF(w io.Writer, d *screenplay.Document, f config.Format, opt PDFOptions) (pagination.Result, error) {
	g, err := f.Geometry()
	if err != nil {
		return pagination.Result{}, err
	}
	pcfg, err := f.Pagination()
	if err != nil {
		return pagination.Result{}, err
	}
	m, err := f.Measurer()
	if err != nil {
		return pagination.Result{}, err
	}
	blocks := layout.Measure(d, m, g)
	res := pagination.ComputeBreaks(blocks, pcfg)

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: f.PageWidth, Ht: f.PageHeight},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(f.MarginLeft, f.MarginTop, f.MarginLeft)
	if opt.Title != "" {
		pdf.SetTitle(opt.Title, true)
	}
	if opt.Author != "" {
		pdf.SetAuthor(opt.Author, true)
	}
	fontSize := f.FontSize
	if fontSize <= 0 {
		fontSize = 12
	}
	pdf.SetFont("Courier", "", fontSize)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	page := -1
	addPage := func() {
		pdf.AddPage()
		page++
		if opt.Guides {
			pdf.SetDrawColor(200, 200, 200)
			pdf.SetLineWidth(0.2)
			pdf.Rect(f.MarginLeft, f.MarginTop, f.PageWidth-2*f.MarginLeft, f.PageHeight-f.MarginTop-f.MarginBottom, "D")
		}
		if opt.PageNumbers && page > 0 {
			num := fmt.Sprintf("%d.", page+1)
			pdf.Text(f.PageWidth-f.MarginLeft/2-pdf.GetStringWidth(num), f.MarginTop/2, num)
		}
	}

	// Baseline sits a little above the bottom of the line box.
	ascent := g.LineHeight * 0.8
	for _, p := range Place(blocks, res, pcfg) {
		for page < p.Page {
			addPage()
		}
		el := g.ElementFor(p.Block.Type)
		x := f.MarginLeft + el.Indent
		y := p.Y
		for _, line := range pdf.SplitLines([]byte(tr(p.Block.Text)), el.Width) {
			pdf.Text(x, y+ascent, strings.TrimRight(string(line), " "))
			y += g.LineHeight
		}
	}
	for page < res.PageCount-1 {
		addPage()
	}
	if err := pdf.Output(w); err != nil {
		return res, fmt.Errorf("write pdf: %w", err)
	}
	return res, nil
}
