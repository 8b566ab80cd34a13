/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package transitions maps key presses to editing actions through a
// declarative rule table. A rule matches on document type, key, the type of
// the text node holding the cursor and the layout mode, then checks a list
// of predicates against a Context snapshot. Actions name commands that live
// in a caller-supplied Registry.
package transitions

import (
	"fmt"

	"goscreenwriter/internal/screenplay"
)

// Position classifies the cursor within its text node.
type Position string

const (
	PosStart  Position = "start"
	PosMiddle Position = "middle"
	PosEnd    Position = "end"
	// PosAll means the node is empty or the selection spans all of it.
	PosAll Position = "all"
)

// Positions lists every position kind.
var Positions = []Position{PosStart, PosMiddle, PosEnd, PosAll}

// Context is the snapshot a rule is resolved against. It is rebuilt for every
// key press and never stored.
type Context struct {
	DocType    string
	LayoutMode string
	Revision   uint64

	// Parent is the text node holding the selection head.
	Parent         screenplay.NodeID
	ParentType     screenplay.NodeType
	ParentText     string
	Offset         int
	Position       Position
	SelectionEmpty bool

	// Optional ancestor refs; screenplay.NoNode when absent.
	DialogueBlock screenplay.NodeID
	SpeechFlow    screenplay.NodeID
	Segment       screenplay.NodeID
	Character     screenplay.NodeID
}

// InDialogueBlock reports whether the cursor sits inside a DialogueBlock.
func (c Context) InDialogueBlock() bool { return c.DialogueBlock != screenplay.NoNode }

// ParentEmpty reports whether the cursor's text node has no text.
func (c Context) ParentEmpty() bool { return c.ParentText == "" }

// Fresh returns ErrStale when the state changed since the snapshot was taken.
func (c Context) Fresh(st *screenplay.State) error {
	if st.Doc.Revision() != c.Revision {
		return fmt.Errorf("context at revision %d, tree at %d: %w", c.Revision, st.Doc.Revision(), screenplay.ErrStale)
	}
	return nil
}

// BuildContext derives a snapshot from the live state.
func BuildContext(st *screenplay.State, docType, layoutMode string) Context {
	d := st.Doc
	head := d.ClampCursor(st.Sel.Head)
	ctx := Context{
		DocType:        docType,
		LayoutMode:     layoutMode,
		Revision:       d.Revision(),
		Parent:         head.Node,
		ParentType:     d.Type(head.Node),
		ParentText:     d.Text(head.Node),
		Offset:         head.Offset,
		SelectionEmpty: st.Sel.Empty(),
	}
	ctx.Position = positionOf(ctx.Offset, d.Len(head.Node), st.Sel.CoversNode(d, head.Node))

	if b := d.Ancestor(head.Node, screenplay.DialogueBlock); b != screenplay.NoNode {
		ctx.DialogueBlock = b
		ctx.SpeechFlow = d.ChildOfType(b, screenplay.SpeechFlow)
		ctx.Character = d.ChildOfType(b, screenplay.Character)
	}
	if ctx.ParentType.IsSegment() && d.Type(d.Parent(head.Node)) == screenplay.SpeechFlow {
		ctx.Segment = head.Node
	}
	return ctx
}

func positionOf(offset, length int, covered bool) Position {
	switch {
	case length == 0 || covered:
		return PosAll
	case offset <= 0:
		return PosStart
	case offset >= length:
		return PosEnd
	default:
		return PosMiddle
	}
}
