/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


// Package script reads and writes screenplays as tagged text lines and
// parses replay step lists. It is a fixture format, not a prose parser:
//
//	; comment
//	SCENE: INT. KITCHEN - NIGHT
//	ACTION: Rain on the window.
//	CHARACTER: MARA
//	  DIALOGUE: You came back.
//	  PARENTHETICAL: (quietly)
//	BLOCK:
//	  DIALOGUE: A block without a cue.
//	~DIALOGUE: A bare top-level dialogue node.
//	TRANSITION: CUT TO:
//
// Indented lines are segments of the most recent CHARACTER or BLOCK line.
// A leading "~" keeps a Character, Dialogue or Parenthetical line at the
// top level instead of opening or joining a block. Text escapes: "\n" for a
// line break, "\\" for a backslash.
package script

import (
	"fmt"

	"goscreenwriter/internal/keys"
	"goscreenwriter/internal/screenplay"
)

// Error represents a parse error with position context.
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Message)
}

// StepKind names a replay action.
type StepKind int

const (
	StepKey StepKind = iota + 1
	StepType
	StepConvert
	StepUndo
	StepRedo
	StepPlace
)

// Step is one replay action.
//
//	key Mod-Alt-1     press a key through rules and default editing
//	type Hello world  type text rune by rune
//	convert action    run convertNodeType
//	undo / redo
//	place 2.1.0 4     move the caret to a node path and offset
type Step struct {
	Kind   StepKind
	Key    string
	Mods   keys.Modifiers
	Text   string
	Target screenplay.NodeType
	Path   []int
	Offset int
	LineNo int
}

func (s Step) String() string {
	switch s.Kind {
	case StepKey:
		return "key " + keys.Name(s.Key, s.Mods)
	case StepType:
		return "type " + escape(s.Text)
	case StepConvert:
		return "convert " + string(s.Target)
	case StepUndo:
		return "undo"
	case StepRedo:
		return "redo"
	case StepPlace:
		return fmt.Sprintf("place %s %d", formatPath(s.Path), s.Offset)
	}
	return "?"
}
