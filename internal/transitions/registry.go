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
	"sort"

	"goscreenwriter/internal/screenplay"
)

// ErrUnknownCommand reports a rule that names a command the registry lacks.
var ErrUnknownCommand = errors.New("unknown command")

// Command mutates the state. It returns false when its preconditions do not
// hold; the engine then rolls back and lets default handling run. A command
// computed against an outdated ctx must return an error wrapping
// screenplay.ErrStale.
type Command func(st *screenplay.State, ctx Context, args Args) (bool, error)

// CustomPredicate backs a Predicate of kind "custom".
type CustomPredicate func(ctx Context) bool

// Registry resolves command ids and custom predicate names.
type Registry struct {
	commands   map[string]Command
	predicates map[string]CustomPredicate
}

func NewRegistry() *Registry {
	return &Registry{commands: map[string]Command{}, predicates: map[string]CustomPredicate{}}
}

// Register adds or replaces a command.
func (r *Registry) Register(id string, c Command) { r.commands[id] = c }

// RegisterPredicate adds or replaces a custom predicate.
func (r *Registry) RegisterPredicate(name string, p CustomPredicate) { r.predicates[name] = p }

// Lookup returns the command for id.
func (r *Registry) Lookup(id string) (Command, error) {
	if r != nil {
		if c, ok := r.commands[id]; ok {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownCommand, id)
}

// Commands lists registered command ids in sorted order.
func (r *Registry) Commands() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.commands))
	for id := range r.commands {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) custom(name string, ctx Context) (bool, bool) {
	if r == nil {
		return false, false
	}
	p, ok := r.predicates[name]
	if !ok {
		return false, false
	}
	return p(ctx), true
}

func (r *Registry) hasPredicate(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.predicates[name]
	return ok
}

// Check reports every rule that references an unknown command or custom
// predicate.
func (r *Registry) Check(rules []Rule) error {
	var errs []error
	for _, rule := range rules {
		for _, call := range rule.Do.Calls() {
			if _, err := r.Lookup(call.Command); err != nil {
				errs = append(errs, fmt.Errorf("rule %s: %w", rule.ID, err))
			}
		}
		if (rule.Do.Kind == ActCommand || rule.Do.Kind == ActSequence) && len(rule.Do.Calls()) == 0 {
			errs = append(errs, fmt.Errorf("rule %s: %s action without commands", rule.ID, rule.Do.Kind))
		}
		for _, p := range rule.If {
			if p.Kind != PredCustom {
				continue
			}
			if !r.hasPredicate(p.Name) {
				errs = append(errs, fmt.Errorf("rule %s: unknown predicate %q", rule.ID, p.Name))
			}
		}
	}
	return errors.Join(errs...)
}
