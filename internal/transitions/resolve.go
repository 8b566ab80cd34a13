/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package transitions

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"goscreenwriter/internal/screenplay"
)

// Resolve returns the rule that fires for key in ctx. Custom predicates
// evaluate to false; use (*Registry).Resolve to supply them.
func Resolve(key string, ctx Context, rules []Rule) (*Rule, bool) {
	var r *Registry
	return r.Resolve(key, ctx, rules)
}

// Resolve filters rules by applicability, orders survivors by descending
// priority (ties keep table order) and returns the first whose predicates
// all hold.
func (r *Registry) Resolve(key string, ctx Context, rules []Rule) (*Rule, bool) {
	for _, i := range candidates(key, ctx, rules) {
		if r.holds(rules[i], ctx) {
			return &rules[i], true
		}
	}
	return nil, false
}

// Matches returns every applicable rule whose predicates hold, in resolution
// order. More than one entry means the table is ambiguous for ctx.
func (r *Registry) Matches(key string, ctx Context, rules []Rule) []*Rule {
	var out []*Rule
	for _, i := range candidates(key, ctx, rules) {
		if r.holds(rules[i], ctx) {
			out = append(out, &rules[i])
		}
	}
	return out
}

func candidates(key string, ctx Context, rules []Rule) []int {
	idx := make([]int, 0, 4)
	for i := range rules {
		if rules[i].When.applies(key, ctx) {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool { return rules[idx[a]].Priority > rules[idx[b]].Priority })
	return idx
}

func (r *Registry) holds(rule Rule, ctx Context) bool {
	for _, p := range rule.If {
		if !p.eval(ctx, r.custom) {
			return false
		}
	}
	return true
}

// Ambiguity is a synthetic context in which more than one rule matches.
type Ambiguity struct {
	Key          string
	Context      Context
	Rules        []string
	SamePriority bool
}

func (a Ambiguity) String() string {
	c := a.Context
	return fmt.Sprintf("doc=%s key=%s node=%s layout=%q pos=%s sel_empty=%t in_block=%t empty=%t: %s",
		c.DocType, a.Key, c.ParentType, c.LayoutMode, c.Position, c.SelectionEmpty,
		c.InDialogueBlock(), c.ParentEmpty(), strings.Join(a.Rules, ", "))
}

// Ambiguities enumerates every reachable combination of doc type, key, node
// type, layout mode and predicate-relevant context fields, and reports the
// combinations in which more than one rule matches. Custom predicates are
// assumed to hold, which over-reports rather than hides overlaps.
func Ambiguities(rules []Rule) []Ambiguity {
	reg := NewRegistry()
	var docTypes, keyNames, modes []string
	for _, rule := range rules {
		docTypes = appendNew(docTypes, rule.When.DocTypes...)
		keyNames = appendNew(keyNames, rule.When.Keys...)
		modes = appendNew(modes, rule.When.LayoutModes...)
		for _, p := range rule.If {
			if p.Kind == PredCustom {
				reg.RegisterPredicate(p.Name, func(Context) bool { return true })
			}
		}
	}
	// A mode no rule names stands for every unconstrained mode.
	modes = append(modes, "")

	var out []Ambiguity
	for _, dt := range docTypes {
		for _, key := range keyNames {
			for _, mode := range modes {
				for _, ctx := range syntheticContexts(dt, mode) {
					m := reg.Matches(key, ctx, rules)
					if len(m) < 2 {
						continue
					}
					a := Ambiguity{Key: key, Context: ctx}
					for _, r := range m {
						a.Rules = append(a.Rules, r.ID)
					}
					a.SamePriority = m[0].Priority == m[1].Priority
					out = append(out, a)
				}
			}
		}
	}
	return out
}

func appendNew(dst []string, vals ...string) []string {
	for _, v := range vals {
		if !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}

// syntheticContexts lists the distinguishable contexts for every leaf type.
// Ids are placeholders; only presence matters to predicates.
func syntheticContexts(docType, mode string) []Context {
	type shape struct {
		pos      Position
		selEmpty bool
		empty    bool
	}
	shapes := []shape{
		{PosAll, true, true},
		{PosStart, true, false},
		{PosMiddle, true, false},
		{PosEnd, true, false},
		{PosAll, false, false},
		{PosStart, false, false},
		{PosMiddle, false, false},
		{PosEnd, false, false},
	}
	var out []Context
	for _, t := range screenplay.LeafTypes {
		inBlock := []bool{false}
		if t == screenplay.Character || t.IsSegment() {
			inBlock = []bool{false, true}
		}
		for _, ib := range inBlock {
			for _, s := range shapes {
				ctx := Context{
					DocType:        docType,
					LayoutMode:     mode,
					Parent:         1,
					ParentType:     t,
					Position:       s.pos,
					SelectionEmpty: s.selEmpty,
				}
				if !s.empty {
					ctx.ParentText = "x"
				}
				if ib {
					ctx.DialogueBlock, ctx.SpeechFlow = 2, 3
					if t.IsSegment() {
						ctx.Segment = 1
					}
				}
				out = append(out, ctx)
			}
		}
	}
	return out
}
