/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package transitions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/screenplay"
	"goscreenwriter/internal/telemetry"
)

// DefaultRetryLimit bounds stale-snapshot retries per key press.
const DefaultRetryLimit = 5

// Fallthrough reasons reported in Outcome.Reason.
const (
	ReasonNoRule         = "no_rule"
	ReasonDefault        = "allow_default"
	ReasonRefused        = "refused"
	ReasonUnknownCommand = "unknown_command"
	ReasonAbandoned      = "abandoned"
	ReasonCommandError   = "command_error"
	ReasonInvariant      = "invariant"
	ReasonPassThrough    = "pass_through"
)

// Engine runs the rule table against a session state. It holds no per-key
// state; one Engine may serve many sessions sequentially.
type Engine struct {
	Rules      []Rule
	Registry   *Registry
	DocType    string
	LayoutMode string
	RetryLimit int
	// After runs once a transaction succeeded, before validation. The
	// dialogue normalization pass is installed here.
	After   func(st *screenplay.State)
	Log     *slog.Logger
	Metrics *telemetry.Recorder
}

// Outcome describes what happened to one key press.
type Outcome struct {
	Rule     *Rule
	Consumed bool
	Changed  bool
	Attempts int
	Reason   string
	Err      error
}

func (e *Engine) logger() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return applog.WithComponent("transitions")
}

// Handle resolves key against the current state and applies the selected
// action as one transaction. On any failure the state is restored to the
// snapshot taken before the transaction, so callers only ever observe a
// consistent tree.
func (e *Engine) Handle(ctx context.Context, st *screenplay.State, key string) Outcome {
	l := applog.WithOperation(e.logger(), "handle_key")
	return e.transact(ctx, l, st, key, func(snap Context) (*Rule, bool) {
		return e.Registry.Resolve(key, snap, e.Rules)
	})
}

// Invoke runs a single registered command outside the rule table with the
// same snapshot, retry and rollback guarantees as Handle.
func (e *Engine) Invoke(ctx context.Context, st *screenplay.State, command string, args Args) Outcome {
	l := applog.WithOperation(e.logger(), "invoke")
	rule := &Rule{ID: command, Consume: true, Do: Run(command, args)}
	return e.transact(ctx, l, st, command, func(Context) (*Rule, bool) { return rule, true })
}

func (e *Engine) transact(ctx context.Context, l *slog.Logger, st *screenplay.State, key string, pick func(Context) (*Rule, bool)) Outcome {
	limit := e.RetryLimit
	if limit <= 0 {
		limit = DefaultRetryLimit
	}

	var out Outcome
	for attempt := 1; ; attempt++ {
		out = Outcome{Attempts: attempt}
		snap := BuildContext(st, e.DocType, e.LayoutMode)
		rule, ok := pick(snap)
		if !ok {
			out.Reason = ReasonNoRule
			break
		}
		out.Rule = rule
		switch rule.Do.Kind {
		case ActNoop:
			out.Consumed = rule.Consume
			if !out.Consumed {
				out.Reason = ReasonPassThrough
			}
			e.Metrics.RuleFired(rule.ID)
			return out
		case ActDefault:
			out.Reason = ReasonDefault
			e.Metrics.RuleFired(rule.ID)
			return out
		}

		calls := rule.Do.Calls()
		if err := e.checkCalls(rule, calls); err != nil {
			l.ErrorContext(ctx, "rule references unknown command", slog.String("rule", rule.ID), slog.String("key", key), slog.Any("err", err))
			out.Reason, out.Err = ReasonUnknownCommand, err
			break
		}

		before := st.Clone()
		handled, err := e.run(st, snap, calls)
		if err == nil && handled {
			if e.After != nil {
				e.After(st)
			}
			st.Sel = st.Doc.ClampSelection(st.Sel)
			if verr := screenplay.Validate(st.Doc); verr != nil {
				restore(st, before)
				l.ErrorContext(ctx, "transaction broke grammar, rolled back", slog.String("rule", rule.ID), slog.Any("err", verr))
				out.Reason, out.Err = ReasonInvariant, verr
				break
			}
			e.Metrics.RuleFired(rule.ID)
			out.Changed = true
			out.Consumed = rule.Consume
			if !out.Consumed {
				out.Reason = ReasonPassThrough
			}
			return out
		}

		restore(st, before)
		switch {
		case errors.Is(err, screenplay.ErrStale):
			if attempt < limit {
				e.Metrics.StaleRetry()
				l.DebugContext(ctx, "stale snapshot, retrying", slog.String("rule", rule.ID), slog.Int("attempt", attempt))
				continue
			}
			e.Metrics.Abandoned()
			l.ErrorContext(ctx, "transaction abandoned after retries", slog.String("rule", rule.ID), slog.Int("attempts", attempt), slog.Any("err", err))
			out.Reason, out.Err = ReasonAbandoned, err
		case err != nil:
			l.ErrorContext(ctx, "command failed", slog.String("rule", rule.ID), slog.Any("err", err))
			out.Reason, out.Err = ReasonCommandError, err
		default:
			l.DebugContext(ctx, "command refused", slog.String("rule", rule.ID))
			out.Reason = ReasonRefused
		}
		break
	}
	e.Metrics.Fallthrough(out.Reason)
	return out
}

func (e *Engine) checkCalls(rule *Rule, calls []Call) error {
	if len(calls) == 0 {
		return fmt.Errorf("rule %s: %w: empty %s action", rule.ID, ErrUnknownCommand, rule.Do.Kind)
	}
	for _, c := range calls {
		if _, err := e.Registry.Lookup(c.Command); err != nil {
			e.Metrics.ConfigError(c.Command)
			return fmt.Errorf("rule %s: %w", rule.ID, err)
		}
	}
	return nil
}

// run executes calls in order. Every step after the first sees a context
// rebuilt from the tree the previous step left behind.
func (e *Engine) run(st *screenplay.State, snap Context, calls []Call) (bool, error) {
	ctx := snap
	for i, c := range calls {
		cmd, err := e.Registry.Lookup(c.Command)
		if err != nil {
			return false, err
		}
		if i > 0 {
			ctx = BuildContext(st, e.DocType, e.LayoutMode)
		}
		ok, err := cmd(st, ctx, c.Args)
		if err != nil {
			return false, fmt.Errorf("%s: %w", c.Command, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func restore(st *screenplay.State, before *screenplay.State) {
	st.Doc.Restore(before.Doc)
	st.Sel = before.Sel
}
