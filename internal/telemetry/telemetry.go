/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry records in-process editing metrics (rule firings,
// fallthroughs, stale retries, pagination runs) on a Prometheus registry.
// Nothing leaves the process; hosts decide whether to expose the registry.
package telemetry

import (
	"io"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Config controls metric collection.
//
// Environment variables (read by FromEnv):
//   - GSW_METRICS: "0", "false", "no" or "off" disables collection
//   - GSW_METRICS_NAMESPACE: metric name prefix, default "screenwriter"
type Config struct {
	Enabled   bool
	Namespace string
}

// FromEnv reads Config from the environment. Collection is on by default.
func FromEnv() Config {
	cfg := Config{Enabled: true, Namespace: "screenwriter"}
	if v := strings.TrimSpace(os.Getenv("GSW_METRICS")); v != "" {
		cfg.Enabled = parseBool(v)
	}
	if ns := strings.TrimSpace(os.Getenv("GSW_METRICS_NAMESPACE")); ns != "" {
		cfg.Namespace = ns
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Recorder owns a private registry. A nil *Recorder is valid and records
// nothing, so callers never need to guard.
type Recorder struct {
	reg *prometheus.Registry

	rulesFired     *prometheus.CounterVec
	fallthroughs   *prometheus.CounterVec
	configErrors   *prometheus.CounterVec
	staleRetries   prometheus.Counter
	abandoned      prometheus.Counter
	conversions    *prometheus.CounterVec
	merges         prometheus.Counter
	paginationRuns prometheus.Counter
	pages          prometheus.Gauge
	breaks         *prometheus.CounterVec
}

// New builds a Recorder, or returns nil when cfg disables collection.
func New(cfg Config) *Recorder {
	if !cfg.Enabled {
		return nil
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = "screenwriter"
	}
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		rulesFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "rules_fired_total", Help: "Transition rules that fired, by rule id.",
		}, []string{"rule"}),
		fallthroughs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "key_fallthrough_total", Help: "Key events handed to default editing, by reason.",
		}, []string{"reason"}),
		configErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "config_errors_total", Help: "Rules referencing unknown commands, by command id.",
		}, []string{"command"}),
		staleRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "stale_retries_total", Help: "Transactions retried after a stale snapshot.",
		}),
		abandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "transactions_abandoned_total", Help: "Transactions abandoned after exhausting retries.",
		}),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "conversions_total", Help: "Node type conversions, by source and target type.",
		}, []string{"from", "to"}),
		merges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "normalization_merges_total", Help: "Dialogue blocks merged by normalization.",
		}),
		paginationRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "pagination_runs_total", Help: "Break computations performed.",
		}),
		pages: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Name: "pages", Help: "Page count of the last pagination run.",
		}),
		breaks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "page_breaks_total", Help: "Break markers emitted, by reason.",
		}, []string{"reason"}),
	}
	r.reg.MustRegister(r.rulesFired, r.fallthroughs, r.configErrors, r.staleRetries, r.abandoned,
		r.conversions, r.merges, r.paginationRuns, r.pages, r.breaks)
	return r
}

// Registry exposes the underlying registry, e.g. for promhttp.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

func (r *Recorder) RuleFired(id string) {
	if r != nil {
		r.rulesFired.WithLabelValues(id).Inc()
	}
}

func (r *Recorder) Fallthrough(reason string) {
	if r != nil {
		r.fallthroughs.WithLabelValues(reason).Inc()
	}
}

func (r *Recorder) ConfigError(command string) {
	if r != nil {
		r.configErrors.WithLabelValues(command).Inc()
	}
}

func (r *Recorder) StaleRetry() {
	if r != nil {
		r.staleRetries.Inc()
	}
}

func (r *Recorder) Abandoned() {
	if r != nil {
		r.abandoned.Inc()
	}
}

func (r *Recorder) Converted(from, to string) {
	if r != nil {
		r.conversions.WithLabelValues(from, to).Inc()
	}
}

func (r *Recorder) Merged(n int) {
	if r != nil && n > 0 {
		r.merges.Add(float64(n))
	}
}

// Paginated records one break computation.
func (r *Recorder) Paginated(pageCount int, reasons []string) {
	if r == nil {
		return
	}
	r.paginationRuns.Inc()
	r.pages.Set(float64(pageCount))
	for _, reason := range reasons {
		r.breaks.WithLabelValues(reason).Inc()
	}
}

// WriteText dumps all metrics in the Prometheus text exposition format.
func (r *Recorder) WriteText(w io.Writer) error {
	if r == nil {
		return nil
	}
	mfs, err := r.reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
