/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pagination

import (
	"testing"

	"goscreenwriter/internal/screenplay"
)

// stack lays heights out back to back starting at top.
func stack(top float64, types []screenplay.NodeType, heights ...float64) []Block {
	out := make([]Block, len(heights))
	y := top
	for i, h := range heights {
		t := screenplay.Action
		if i < len(types) {
			t = types[i]
		}
		out[i] = Block{Index: i, Type: t, Top: y, Bottom: y + h, Height: h}
		y += h
	}
	return out
}

func testConfig() Config {
	return Config{PageHeight: 800, MarginTop: 50, MarginBottom: 50, PageGap: 20}
}

func TestComputeBreaksPushesThirdBlock(t *testing.T) {
	cfg := testConfig()
	if cfg.ContentHeight() != 700 {
		t.Fatalf("content height = %v", cfg.ContentHeight())
	}
	res := ComputeBreaks(stack(50, nil, 200, 300, 400), cfg)

	if res.PageCount != 2 {
		t.Fatalf("page count = %d, want 2", res.PageCount)
	}
	if len(res.Markers) != 1 {
		t.Fatalf("markers = %+v, want one", res.Markers)
	}
	m := res.Markers[0]
	if m.Index != 2 || m.Reason != ReasonOverflow || m.Policy != BlockOnly || m.Type != screenplay.Action {
		t.Fatalf("unexpected marker %+v", m)
	}
	// 200 left on page one, then bottom margin, gap and top margin.
	if m.Spacer != 200+50+20+50 {
		t.Fatalf("spacer = %v, want 320", m.Spacer)
	}
	if res.CanvasHeight != 2*800+20 {
		t.Fatalf("canvas height = %v", res.CanvasHeight)
	}
	if res.Spacer(2) != m.Spacer || res.Spacer(0) != 0 {
		t.Fatalf("Spacer lookup mismatch")
	}
}

func TestComputeBreaksExactFit(t *testing.T) {
	res := ComputeBreaks(stack(50, nil, 300, 400), testConfig())
	if res.PageCount != 1 || len(res.Markers) != 0 {
		t.Fatalf("exact fit should not break: %+v", res)
	}
	if res.CanvasHeight != 800 {
		t.Fatalf("canvas height = %v", res.CanvasHeight)
	}
}

func TestComputeBreaksEmpty(t *testing.T) {
	res := ComputeBreaks(nil, testConfig())
	if res.PageCount != 1 || len(res.Markers) != 0 || res.CanvasHeight != 800 {
		t.Fatalf("empty input: %+v", res)
	}
}

func TestComputeBreaksOversizeBlockNeverBreaks(t *testing.T) {
	res := ComputeBreaks(stack(50, nil, 100, 900), testConfig())
	if len(res.Markers) != 0 {
		t.Fatalf("oversize block got a marker: %+v", res.Markers)
	}
	if res.PageCount != 2 {
		t.Fatalf("overflowing block should still extend the canvas, pages = %d", res.PageCount)
	}
}

func TestComputeBreaksAfterOverflowKeepsSpacersPositive(t *testing.T) {
	res := ComputeBreaks(stack(50, nil, 100, 900, 100), testConfig())
	// the last block starts on page two, where it fits
	if len(res.Markers) != 0 {
		t.Fatalf("block after overflow got a marker: %+v", res.Markers)
	}
	if res.PageCount != 2 || res.CanvasHeight != 2*800+20 {
		t.Fatalf("pages = %d canvas = %v", res.PageCount, res.CanvasHeight)
	}

	res = ComputeBreaks(stack(50, nil, 100, 900, 700), testConfig())
	if len(res.Markers) != 1 || res.Markers[0].Index != 2 {
		t.Fatalf("markers = %+v, want one before block 2", res.Markers)
	}
	if res.Markers[0].Spacer < 0 {
		t.Fatalf("negative spacer %v", res.Markers[0].Spacer)
	}
}

func TestComputeBreaksNeverSplitPolicy(t *testing.T) {
	cfg := testConfig()
	cfg.Policies = map[screenplay.NodeType]Policy{screenplay.Transition: NeverSplit}
	types := []screenplay.NodeType{screenplay.Action, screenplay.Action, screenplay.Transition}
	res := ComputeBreaks(stack(50, types, 200, 300, 220), cfg)
	if len(res.Markers) != 0 {
		t.Fatalf("never_split block got a marker: %+v", res.Markers)
	}
	// 770 ends inside the bottom margin, so no page is added.
	if res.PageCount != 1 {
		t.Fatalf("pages = %d", res.PageCount)
	}
}

func TestComputeBreaksLineSplitFallback(t *testing.T) {
	cfg := testConfig()
	cfg.Policies = map[screenplay.NodeType]Policy{screenplay.Dialogue: LineSplit}
	types := []screenplay.NodeType{screenplay.Action, screenplay.Dialogue}
	res := ComputeBreaks(stack(50, types, 600, 200), cfg)
	if len(res.Markers) != 1 {
		t.Fatalf("markers = %+v", res.Markers)
	}
	if res.Markers[0].Reason != ReasonLineSplitFallback || res.Markers[0].Policy != LineSplit {
		t.Fatalf("line_split should push with fallback reason: %+v", res.Markers[0])
	}
	if got := res.Reasons(); len(got) != 1 || got[0] != "line_split_fallback" {
		t.Fatalf("reasons = %v", got)
	}
}

func TestComputeBreaksDefaultPolicy(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultPolicy = NeverSplit
	cfg.Policies = map[screenplay.NodeType]Policy{screenplay.SceneHeading: BlockOnly}
	types := []screenplay.NodeType{screenplay.Action, screenplay.SceneHeading}
	res := ComputeBreaks(stack(50, types, 650, 100), cfg)
	if len(res.Markers) != 1 || res.Markers[0].Index != 1 {
		t.Fatalf("explicit policy should override default: %+v", res.Markers)
	}
}

func TestComputeBreaksManyPages(t *testing.T) {
	heights := make([]float64, 10)
	for i := range heights {
		heights[i] = 300
	}
	res := ComputeBreaks(stack(50, nil, heights...), testConfig())
	// Two 300pt blocks fit per 700pt page.
	if res.PageCount != 5 {
		t.Fatalf("pages = %d, want 5", res.PageCount)
	}
	if len(res.Markers) != 4 {
		t.Fatalf("markers = %d, want 4", len(res.Markers))
	}
	for i, m := range res.Markers {
		if m.Index != 2*(i+1) {
			t.Fatalf("marker %d at block %d", i, m.Index)
		}
		if m.Spacer != 100+50+20+50 {
			t.Fatalf("marker %d spacer %v", i, m.Spacer)
		}
	}
	if want := 5*800.0 + 4*20; res.CanvasHeight != want {
		t.Fatalf("canvas height = %v, want %v", res.CanvasHeight, want)
	}
}

func TestComputeBreaksCarriesBlockMargin(t *testing.T) {
	blocks := []Block{
		{Index: 0, Type: screenplay.Action, Top: 50, Bottom: 650, Height: 600},
		{Index: 1, Type: screenplay.Action, Top: 674, Bottom: 774, Height: 100, MarginTop: 24},
	}
	res := ComputeBreaks(blocks, testConfig())
	if len(res.Markers) != 1 {
		t.Fatalf("markers = %+v", res.Markers)
	}
	// Fill from the margin start (650) to the page end (750).
	if res.Markers[0].Spacer != 100+50+20+50 {
		t.Fatalf("spacer = %v", res.Markers[0].Spacer)
	}
}

func TestComputeBreaksIdempotent(t *testing.T) {
	blocks := stack(50, nil, 120, 480, 330, 90, 640, 10)
	a := ComputeBreaks(blocks, testConfig())
	b := ComputeBreaks(blocks, testConfig())
	if a.PageCount != b.PageCount || len(a.Markers) != len(b.Markers) || a.CanvasHeight != b.CanvasHeight {
		t.Fatalf("repeated runs differ: %+v vs %+v", a, b)
	}
	for i := range a.Markers {
		if a.Markers[i] != b.Markers[i] {
			t.Fatalf("marker %d differs", i)
		}
	}
}

func TestParsePolicy(t *testing.T) {
	cases := map[string]Policy{"": BlockOnly, "block_only": BlockOnly, "Line-Split": LineSplit, " NEVER_SPLIT ": NeverSplit}
	for in, want := range cases {
		got, err := ParsePolicy(in)
		if err != nil || got != want {
			t.Fatalf("ParsePolicy(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParsePolicy("widow_control"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := testConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	bad := Config{PageHeight: 100, MarginTop: 60, MarginBottom: 60}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for margins exceeding page")
	}
	bad = testConfig()
	bad.Policies = map[screenplay.NodeType]Policy{screenplay.Action: "sometimes"}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
	res := ComputeBreaks(stack(0, nil, 10), Config{PageHeight: 100, MarginTop: 60, MarginBottom: 60})
	if res.PageCount != 1 || len(res.Markers) != 0 {
		t.Fatalf("degenerate geometry should yield one page: %+v", res)
	}
}
