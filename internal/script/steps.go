/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"goscreenwriter/internal/keys"
	"goscreenwriter/internal/screenplay"
)

// ParseSteps reads one step per line. Blank lines and ";" comments are skipped.
func ParseSteps(input string) ([]Step, error) {
	var (
		out  []Step
		errs []error
	)
	scanner := bufio.NewScanner(strings.NewReader(input))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if t := strings.TrimSpace(line); t == "" || strings.HasPrefix(t, ";") {
			continue
		}
		st, err := ParseStep(strings.TrimLeft(line, " \t"))
		if err != nil {
			errs = append(errs, Error{Line: lineNo, Column: 1, Message: err.Error()})
			continue
		}
		st.LineNo = lineNo
		out = append(out, st)
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, Error{Line: lineNo, Column: 1, Message: err.Error()})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// ParseStep parses a single step such as "key Enter" or "type Hello".
func ParseStep(s string) (Step, error) {
	verb, rest, _ := strings.Cut(s, " ")
	switch strings.ToLower(verb) {
	case "key":
		k, mods, err := keys.Parse(strings.TrimSpace(rest))
		if err != nil {
			return Step{}, err
		}
		return Step{Kind: StepKey, Key: k, Mods: mods}, nil
	case "type":
		if rest == "" {
			return Step{}, errors.New("type needs text")
		}
		return Step{Kind: StepType, Text: unescape(rest)}, nil
	case "convert":
		t, err := screenplay.ParseNodeType(rest)
		if err != nil {
			return Step{}, err
		}
		return Step{Kind: StepConvert, Target: t}, nil
	case "undo":
		return Step{Kind: StepUndo}, nil
	case "redo":
		return Step{Kind: StepRedo}, nil
	case "place":
		f := strings.Fields(rest)
		if len(f) != 2 {
			return Step{}, errors.New("place needs a path and an offset")
		}
		path, err := ParsePath(f[0])
		if err != nil {
			return Step{}, err
		}
		off, err := strconv.Atoi(f[1])
		if err != nil || off < 0 {
			return Step{}, fmt.Errorf("bad offset %q", f[1])
		}
		return Step{Kind: StepPlace, Path: path, Offset: off}, nil
	}
	return Step{}, fmt.Errorf("unknown step %q", verb)
}

// ParsePath reads dot-separated child indices, e.g. "2.1.0".
func ParsePath(s string) ([]int, error) {
	parts := strings.Split(s, ".")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("bad path %q", s)
		}
		out = append(out, n)
	}
	return out, nil
}

func formatPath(p []int) string {
	parts := make([]string, len(p))
	for i, n := range p {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}
