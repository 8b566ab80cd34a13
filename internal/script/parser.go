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
	"regexp"
	"strings"

	"goscreenwriter/internal/screenplay"
)

var reTagged = regexp.MustCompile(`^(~?)([A-Za-z_\- ]{1,32}):\s?(.*)$`)

// Parse builds a document from tagged lines. All problems are reported,
// joined, as Error values; the document is nil when any exist.
func Parse(input string) (*screenplay.Document, error) {
	var (
		specs []screenplay.Spec
		errs  []error
		block = -1 // index into specs of the open dialogue block
	)
	fail := func(line, col int, format string, args ...any) {
		errs = append(errs, Error{Line: line, Column: col, Message: fmt.Sprintf(format, args...)})
	}

	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimRight(scanner.Text(), "\r")
		trim := strings.TrimSpace(raw)
		if trim == "" || strings.HasPrefix(trim, ";") {
			continue
		}
		indented := raw[0] == ' ' || raw[0] == '\t'
		col := len(raw) - len(strings.TrimLeft(raw, " \t")) + 1

		m := reTagged.FindStringSubmatch(trim)
		if m == nil {
			fail(lineNo, col, "expected TAG: text")
			continue
		}
		bare, tag, text := m[1] == "~", strings.ToUpper(strings.TrimSpace(m[2])), unescape(strings.TrimRight(m[3], " \t"))

		if tag == "BLOCK" {
			if indented || bare {
				fail(lineNo, col, "BLOCK must start a top-level line")
				continue
			}
			if text != "" {
				fail(lineNo, col, "BLOCK takes no text")
				continue
			}
			specs = append(specs, screenplay.Block(nil))
			block = len(specs) - 1
			continue
		}
		t, err := screenplay.ParseNodeType(tag)
		if err != nil || !t.IsLeaf() {
			fail(lineNo, col, "unknown tag %q", tag)
			continue
		}

		switch {
		case indented:
			if !t.IsSegment() || bare {
				fail(lineNo, col, "only DIALOGUE and PARENTHETICAL may be indented")
				continue
			}
			if block < 0 {
				fail(lineNo, col, "indented %s outside a CHARACTER or BLOCK", tag)
				continue
			}
			flow := &specs[block].Content[len(specs[block].Content)-1]
			flow.Content = append(flow.Content, screenplay.Leaf(t, text))
		case t == screenplay.Character && !bare:
			specs = append(specs, screenplay.Block(screenplay.Name(text)))
			block = len(specs) - 1
		default:
			if bare && !(t == screenplay.Character || t.IsSegment()) {
				fail(lineNo, col, "~ applies to CHARACTER, DIALOGUE and PARENTHETICAL only")
				continue
			}
			if !bare && t.IsSegment() {
				fail(lineNo, col, "%s must be indented under a CHARACTER or BLOCK, or marked ~", tag)
				continue
			}
			specs = append(specs, screenplay.Leaf(t, text))
			block = -1
		}
	}
	if err := scanner.Err(); err != nil {
		fail(lineNo, 1, "%v", err)
	}
	if len(errs) == 0 && len(specs) == 0 {
		fail(lineNo, 1, "script has no elements")
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return screenplay.FromSpecs(specs)
}

// Format writes d in the tagged line format. Parse(Format(d)) rebuilds the
// same structure.
func Format(d *screenplay.Document) string {
	var b strings.Builder
	for _, s := range d.Specs() {
		if s.Type == screenplay.DialogueBlock {
			formatBlock(&b, s)
			continue
		}
		if s.Type == screenplay.Character || s.Type.IsSegment() {
			b.WriteByte('~')
		}
		writeLine(&b, s.Type, s.Text)
	}
	return b.String()
}

func formatBlock(b *strings.Builder, s screenplay.Spec) {
	opened := false
	for _, c := range s.Content {
		switch c.Type {
		case screenplay.Character:
			writeLine(b, c.Type, c.Text)
			opened = true
		case screenplay.SpeechFlow:
			if !opened {
				b.WriteString("BLOCK:\n")
			}
			for _, seg := range c.Content {
				b.WriteString("  ")
				writeLine(b, seg.Type, seg.Text)
			}
		}
	}
}

func writeLine(b *strings.Builder, t screenplay.NodeType, text string) {
	b.WriteString(tagFor(t))
	b.WriteByte(':')
	if text != "" {
		b.WriteByte(' ')
		b.WriteString(escape(text))
	}
	b.WriteByte('\n')
}

func tagFor(t screenplay.NodeType) string {
	if t == screenplay.SceneHeading {
		return "SCENE"
	}
	return strings.ToUpper(string(t))
}

func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "\n", `\n`)
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
