/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pagination places page breaks between measured blocks.
//
// Blocks are laid out on one continuous canvas; coordinates are in points
// with the first page's top edge at 0, so the first block normally starts at
// MarginTop. ComputeBreaks never moves a block itself. It reports spacer
// heights the renderer inserts in front of the block it pushes.
package pagination

import (
	"errors"
	"fmt"
	"strings"

	"goscreenwriter/internal/screenplay"
)

// Policy controls how a block may be broken across pages.
type Policy string

const (
	// BlockOnly pushes a block that does not fit to the next page as a whole.
	BlockOnly Policy = "block_only"
	// LineSplit is reserved for intra-block splitting and currently pushes
	// like BlockOnly.
	LineSplit Policy = "line_split"
	// NeverSplit blocks never receive a marker and may overflow.
	NeverSplit Policy = "never_split"
)

// ParsePolicy accepts the policy names case-insensitively, with "-" for "_".
func ParsePolicy(s string) (Policy, error) {
	p := Policy(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	switch p {
	case BlockOnly, LineSplit, NeverSplit:
		return p, nil
	case "":
		return BlockOnly, nil
	}
	return "", fmt.Errorf("unknown break policy %q", s)
}

// Reason explains a break marker.
type Reason string

const (
	ReasonOverflow          Reason = "overflow"
	ReasonLineSplitFallback Reason = "line_split_fallback"
)

// Block is one measured block on the canvas.
type Block struct {
	Index     int                 `json:"index"`
	Type      screenplay.NodeType `json:"type"`
	Text      string              `json:"text,omitempty"`
	Top       float64             `json:"top"`
	Bottom    float64             `json:"bottom"`
	Height    float64             `json:"height"`
	MarginTop float64             `json:"marginTop"`
}

// Marker asks the renderer to insert Spacer points before block Index.
type Marker struct {
	Index  int                 `json:"index"`
	Spacer float64             `json:"spacer"`
	Reason Reason              `json:"reason"`
	Policy Policy              `json:"policy"`
	Type   screenplay.NodeType `json:"type"`
}

// Config describes the page geometry and break policies.
type Config struct {
	PageHeight   float64
	MarginTop    float64
	MarginBottom float64
	PageGap      float64
	// DefaultPolicy applies to types missing from Policies; BlockOnly when empty.
	DefaultPolicy Policy
	Policies      map[screenplay.NodeType]Policy
}

// ContentHeight is the usable height of one page.
func (c Config) ContentHeight() float64 { return c.PageHeight - c.MarginTop - c.MarginBottom }

// PolicyFor returns the break policy for a node type.
func (c Config) PolicyFor(t screenplay.NodeType) Policy {
	if p, ok := c.Policies[t]; ok && p != "" {
		return p
	}
	if c.DefaultPolicy != "" {
		return c.DefaultPolicy
	}
	return BlockOnly
}

// Validate rejects geometry without room for content.
func (c Config) Validate() error {
	var errs []error
	if c.PageHeight <= 0 {
		errs = append(errs, errors.New("page height must be positive"))
	}
	if c.MarginTop < 0 || c.MarginBottom < 0 || c.PageGap < 0 {
		errs = append(errs, errors.New("margins and gap must not be negative"))
	}
	if c.PageHeight > 0 && c.ContentHeight() <= 0 {
		errs = append(errs, fmt.Errorf("margins %.1f+%.1f leave no content height on a %.1f page", c.MarginTop, c.MarginBottom, c.PageHeight))
	}
	for t, p := range c.Policies {
		if _, err := ParsePolicy(string(p)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t, err))
		}
	}
	return errors.Join(errs...)
}

// Result is the outcome of one pagination pass.
type Result struct {
	PageCount    int      `json:"pageCount"`
	Markers      []Marker `json:"markers"`
	CanvasHeight float64  `json:"canvasHeight"`
}

// Reasons lists the marker reasons in order.
func (r Result) Reasons() []string {
	out := make([]string, len(r.Markers))
	for i, m := range r.Markers {
		out[i] = string(m.Reason)
	}
	return out
}

// Spacer returns the spacer height inserted before block index, or 0.
func (r Result) Spacer(index int) float64 {
	for _, m := range r.Markers {
		if m.Index == index {
			return m.Spacer
		}
	}
	return 0
}

// ComputeBreaks walks blocks in order and pushes every block whose shifted
// bottom crosses the current page's content end to the next page. A block
// taller than a page's content height, or one with the NeverSplit policy,
// is left in place and may overflow.
//
// A pushed block's own top margin travels with it: the spacer fills from
// the start of that margin to the page end, then covers the bottom margin,
// the page gap and the next page's top margin.
func ComputeBreaks(blocks []Block, cfg Config) Result {
	res := Result{PageCount: 1}
	content := cfg.ContentHeight()
	if content <= 0 {
		res.CanvasHeight = canvasHeight(1, cfg)
		return res
	}
	stride := cfg.PageHeight + cfg.PageGap
	pageEnd := cfg.MarginTop + content
	shift := 0.0
	lastBottom := 0.0

	for _, b := range blocks {
		top, bottom := b.Top+shift, b.Bottom+shift

		// A preceding overflow can leave the block beyond the current page.
		for top-b.MarginTop >= pageEnd+cfg.MarginBottom+cfg.PageGap {
			pageEnd += stride
			res.PageCount++
		}

		policy := cfg.PolicyFor(b.Type)
		if b.Height > content || policy == NeverSplit || bottom <= pageEnd {
			lastBottom = max(lastBottom, bottom)
			continue
		}

		spacer := pageEnd - (top - b.MarginTop) + cfg.MarginBottom + cfg.PageGap + cfg.MarginTop
		reason := ReasonOverflow
		if policy == LineSplit {
			reason = ReasonLineSplitFallback
		}
		res.Markers = append(res.Markers, Marker{Index: b.Index, Spacer: spacer, Reason: reason, Policy: policy, Type: b.Type})
		shift += spacer
		pageEnd += stride
		res.PageCount++
		lastBottom = max(lastBottom, bottom+spacer)
	}

	for lastBottom > pageEnd+cfg.MarginBottom+cfg.PageGap {
		pageEnd += stride
		res.PageCount++
	}
	res.CanvasHeight = canvasHeight(res.PageCount, cfg)
	return res
}

func canvasHeight(pages int, cfg Config) float64 {
	return float64(pages)*cfg.PageHeight + float64(pages-1)*cfg.PageGap
}
