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

	"github.com/mitchellh/mapstructure"

	"goscreenwriter/internal/screenplay"
)

// Rule maps a key in a context to an action. Rules are immutable
// configuration.
type Rule struct {
	ID       string      `toml:"id"`
	Priority int         `toml:"priority"`
	When     When        `toml:"when"`
	If       []Predicate `toml:"if"`
	Do       Action      `toml:"do"`
	// Consume stops the host's default handling once the action ran.
	Consume bool `toml:"consume"`
}

// When is the applicability filter. Empty NodeTypes or LayoutModes mean
// "any"; DocTypes and Keys must be set.
type When struct {
	DocTypes    []string              `toml:"doc_types"`
	Keys        []string              `toml:"keys"`
	NodeTypes   []screenplay.NodeType `toml:"node_types"`
	LayoutModes []string              `toml:"layout_modes"`
}

func (w When) applies(key string, ctx Context) bool {
	if !slices.Contains(w.DocTypes, ctx.DocType) || !slices.Contains(w.Keys, key) {
		return false
	}
	if len(w.NodeTypes) > 0 && !slices.Contains(w.NodeTypes, ctx.ParentType) {
		return false
	}
	if len(w.LayoutModes) > 0 && !slices.Contains(w.LayoutModes, ctx.LayoutMode) {
		return false
	}
	return true
}

// PredicateKind enumerates predicate checks.
type PredicateKind string

const (
	PredSelectionEmpty  PredicateKind = "selection_empty"
	PredPositionIn      PredicateKind = "position_in"
	PredInDialogueBlock PredicateKind = "in_dialogue_block"
	PredParentTypeIn    PredicateKind = "parent_type_in"
	PredParentEmpty     PredicateKind = "parent_empty"
	PredCustom          PredicateKind = "custom"
)

// Predicate is one AND-ed condition of a rule.
type Predicate struct {
	Kind      PredicateKind         `toml:"kind"`
	Value     bool                  `toml:"value"`
	Positions []Position            `toml:"positions"`
	Types     []screenplay.NodeType `toml:"types"`
	Name      string                `toml:"name"`
}

func SelectionEmpty(v bool) Predicate  { return Predicate{Kind: PredSelectionEmpty, Value: v} }
func InDialogueBlock(v bool) Predicate { return Predicate{Kind: PredInDialogueBlock, Value: v} }
func ParentEmpty(v bool) Predicate     { return Predicate{Kind: PredParentEmpty, Value: v} }
func Custom(name string) Predicate     { return Predicate{Kind: PredCustom, Name: name} }

func PositionIn(p ...Position) Predicate { return Predicate{Kind: PredPositionIn, Positions: p} }

func ParentTypeIn(t ...screenplay.NodeType) Predicate {
	return Predicate{Kind: PredParentTypeIn, Types: t}
}

// eval checks p against ctx. Custom predicates are looked up in custom; an
// unknown name evaluates to false.
func (p Predicate) eval(ctx Context, custom func(string, Context) (bool, bool)) bool {
	switch p.Kind {
	case PredSelectionEmpty:
		return ctx.SelectionEmpty == p.Value
	case PredPositionIn:
		return slices.Contains(p.Positions, ctx.Position)
	case PredInDialogueBlock:
		return ctx.InDialogueBlock() == p.Value
	case PredParentTypeIn:
		return slices.Contains(p.Types, ctx.ParentType)
	case PredParentEmpty:
		return ctx.ParentEmpty() == p.Value
	case PredCustom:
		if custom == nil {
			return false
		}
		v, ok := custom(p.Name, ctx)
		return ok && v
	}
	return false
}

// ActionKind enumerates what a rule does once selected.
type ActionKind string

const (
	// ActNoop consumes the key and changes nothing.
	ActNoop ActionKind = "noop"
	// ActDefault lets the host's default handling run.
	ActDefault ActionKind = "default"
	// ActCommand runs one command.
	ActCommand ActionKind = "command"
	// ActSequence runs commands in order and stops at the first that fails.
	ActSequence ActionKind = "sequence"
)

// Call names a registry command and its arguments.
type Call struct {
	Command string `toml:"command"`
	Args    Args   `toml:"args"`
}

// Action is a rule's effect.
type Action struct {
	Kind ActionKind `toml:"kind"`
	// Command and Args are the TOML shorthand for a single call.
	Command string `toml:"command"`
	Args    Args   `toml:"args"`
	Steps   []Call `toml:"steps"`
}

func Noop() Action         { return Action{Kind: ActNoop} }
func AllowDefault() Action { return Action{Kind: ActDefault} }

// Run builds a single-command action.
func Run(command string, args Args) Action {
	return Action{Kind: ActCommand, Command: command, Args: args}
}

// Sequence builds an ordered multi-command action.
func Sequence(steps ...Call) Action { return Action{Kind: ActSequence, Steps: steps} }

// Calls returns the commands the action runs, in order.
func (a Action) Calls() []Call {
	switch a.Kind {
	case ActCommand:
		if a.Command != "" {
			return []Call{{Command: a.Command, Args: a.Args}}
		}
		return a.Steps
	case ActSequence:
		return a.Steps
	}
	return nil
}

// Args carries command arguments as loosely typed values from rule tables.
type Args map[string]any

// Decode fills out (a pointer to a struct) from the args, accepting
// weakly typed values such as "1" for an int field.
func (a Args) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "arg",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]any(a)); err != nil {
		return fmt.Errorf("decode args: %w", err)
	}
	return nil
}
