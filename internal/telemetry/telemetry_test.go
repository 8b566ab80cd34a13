/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"bytes"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestFromEnv(t *testing.T) {
	t.Setenv("GSW_METRICS", "off")
	t.Setenv("GSW_METRICS_NAMESPACE", "sw")
	cfg := FromEnv()
	if cfg.Enabled || cfg.Namespace != "sw" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	t.Setenv("GSW_METRICS", "")
	if !FromEnv().Enabled {
		t.Fatalf("metrics should default to enabled")
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.RuleFired("x")
	r.Fallthrough("no_rule")
	r.ConfigError("missing")
	r.StaleRetry()
	r.Abandoned()
	r.Converted("action", "character")
	r.Merged(2)
	r.Paginated(3, []string{"overflow"})
	if r.Registry() != nil {
		t.Fatalf("nil recorder has a registry")
	}
	if err := r.WriteText(&bytes.Buffer{}); err != nil {
		t.Fatalf("WriteText on nil: %v", err)
	}
	if New(Config{Enabled: false}) != nil {
		t.Fatalf("disabled config should yield nil recorder")
	}
}

func TestCountersAndGauge(t *testing.T) {
	r := New(Config{Enabled: true})
	r.RuleFired("character-enter")
	r.RuleFired("character-enter")
	r.RuleFired("dialogue-paren")
	r.StaleRetry()
	r.Abandoned()
	r.Merged(1)
	r.Paginated(2, []string{"overflow", "line_split_fallback"})
	r.Paginated(4, nil)

	if got := testutil.ToFloat64(r.rulesFired.WithLabelValues("character-enter")); got != 2 {
		t.Fatalf("rules fired = %v", got)
	}
	if got := testutil.ToFloat64(r.staleRetries); got != 1 {
		t.Fatalf("stale retries = %v", got)
	}
	if got := testutil.ToFloat64(r.pages); got != 4 {
		t.Fatalf("pages gauge = %v", got)
	}
	if got := testutil.ToFloat64(r.paginationRuns); got != 2 {
		t.Fatalf("pagination runs = %v", got)
	}
	if got := testutil.CollectAndCount(r.breaks); got != 2 {
		t.Fatalf("break series = %d", got)
	}
}

func TestWriteText(t *testing.T) {
	r := New(Config{Enabled: true, Namespace: "sw"})
	r.Fallthrough("unknown_command")
	var buf bytes.Buffer
	if err := r.WriteText(&buf); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if !strings.Contains(buf.String(), `sw_key_fallthrough_total{reason="unknown_command"} 1`) {
		t.Fatalf("unexpected exposition:\n%s", buf.String())
	}
}
