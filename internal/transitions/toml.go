/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package transitions

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"goscreenwriter/internal/keys"
)

// RuleFile is the TOML shape of a rule table:
//
//	mode = "extend"            # or "replace"
//
//	[[rules]]
//	id = "character-enter"
//	priority = 100
//	when = { doc_types = ["screenplay"], keys = ["Enter"], node_types = ["character"] }
//	if = [{ kind = "selection_empty", value = true }]
//	do = { kind = "command", command = "focusFirstSpeechSegmentOrCreate" }
type RuleFile struct {
	Mode  string     `toml:"mode"`
	Rules []fileRule `toml:"rules"`
}

// fileRule mirrors Rule with an optional consume flag, which defaults to true.
type fileRule struct {
	ID       string      `toml:"id"`
	Priority int         `toml:"priority"`
	When     When        `toml:"when"`
	If       []Predicate `toml:"if"`
	Do       Action      `toml:"do"`
	Consume  *bool       `toml:"consume"`
}

// LoadRules decodes and validates a TOML rule table. In "extend" mode (the
// default) the table is merged over base; in "replace" mode base is ignored.
func LoadRules(r io.Reader, base []Rule) ([]Rule, error) {
	var f RuleFile
	md, err := toml.NewDecoder(r).Decode(&f)
	if err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return nil, fmt.Errorf("parse rules: unknown keys %v", undec)
	}
	rules := make([]Rule, 0, len(f.Rules))
	var errs []error
	for i, fr := range f.Rules {
		rule := Rule{ID: fr.ID, Priority: fr.Priority, When: fr.When, If: fr.If, Do: fr.Do, Consume: true}
		if fr.Consume != nil {
			rule.Consume = *fr.Consume
		}
		if err := normalizeRule(&rule); err != nil {
			errs = append(errs, fmt.Errorf("rules[%d] %s: %w", i, fr.ID, err))
			continue
		}
		rules = append(rules, rule)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	switch f.Mode {
	case "", "extend":
		return MergeRules(base, rules), nil
	case "replace":
		return rules, nil
	}
	return nil, fmt.Errorf("parse rules: unknown mode %q", f.Mode)
}

// LoadRulesFile reads a TOML rule table from disk.
func LoadRulesFile(path string, base []Rule) ([]Rule, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = fh.Close() }()
	return LoadRules(fh, base)
}

// MergeRules returns base with overlay applied: a rule whose id exists in
// base replaces it in place, other rules are appended.
func MergeRules(base, overlay []Rule) []Rule {
	out := append([]Rule(nil), base...)
	pos := make(map[string]int, len(out))
	for i, r := range out {
		pos[r.ID] = i
	}
	for _, r := range overlay {
		if i, ok := pos[r.ID]; ok {
			out[i] = r
			continue
		}
		pos[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}

func normalizeRule(r *Rule) error {
	if r.ID == "" {
		return errors.New("missing id")
	}
	if len(r.When.DocTypes) == 0 {
		return errors.New("when.doc_types is empty")
	}
	if len(r.When.Keys) == 0 {
		return errors.New("when.keys is empty")
	}
	for i, k := range r.When.Keys {
		c, err := keys.Canonical(k)
		if err != nil {
			return err
		}
		r.When.Keys[i] = c
	}
	for _, t := range r.When.NodeTypes {
		if !t.IsLeaf() {
			return fmt.Errorf("when.node_types: %q is not a text node type", t)
		}
	}
	for _, p := range r.If {
		switch p.Kind {
		case PredSelectionEmpty, PredInDialogueBlock, PredParentEmpty:
		case PredPositionIn:
			for _, pos := range p.Positions {
				switch pos {
				case PosStart, PosMiddle, PosEnd, PosAll:
				default:
					return fmt.Errorf("if: unknown position %q", pos)
				}
			}
		case PredParentTypeIn:
			for _, t := range p.Types {
				if !t.Valid() {
					return fmt.Errorf("if: unknown node type %q", t)
				}
			}
		case PredCustom:
			if p.Name == "" {
				return errors.New("if: custom predicate without name")
			}
		default:
			return fmt.Errorf("if: unknown predicate kind %q", p.Kind)
		}
	}
	switch r.Do.Kind {
	case ActNoop, ActDefault:
	case ActCommand, ActSequence:
		if len(r.Do.Calls()) == 0 {
			return fmt.Errorf("do: %s action without commands", r.Do.Kind)
		}
	default:
		return fmt.Errorf("do: unknown action kind %q", r.Do.Kind)
	}
	return nil
}
