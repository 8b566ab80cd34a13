/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package screenplay

import "unicode/utf8"

// Cursor is a position inside a text-bearing node. Offset counts runes.
type Cursor struct {
	Node   NodeID
	Offset int
}

// At builds a cursor.
func At(id NodeID, offset int) Cursor { return Cursor{Node: id, Offset: offset} }

// Selection is an anchor/head pair. A collapsed selection is a caret.
type Selection struct {
	Anchor Cursor
	Head   Cursor
}

// Caret returns a collapsed selection.
func Caret(c Cursor) Selection { return Selection{Anchor: c, Head: c} }

// Empty reports whether the selection is collapsed.
func (s Selection) Empty() bool { return s.Anchor == s.Head }

// Cursor returns the head, which is where typing happens.
func (s Selection) Cursor() Cursor { return s.Head }

// State is the editable state of a session: the tree plus the selection.
type State struct {
	Doc *Document
	Sel Selection
}

// NewState returns a state with the caret at the start of the first leaf.
func NewState(d *Document) *State {
	st := &State{Doc: d}
	st.Sel = Caret(At(d.FirstLeaf(d.Root()), 0))
	return st
}

// Cursor returns the selection head.
func (st *State) Cursor() Cursor { return st.Sel.Head }

// Place collapses the selection at node/offset, clamping the offset.
func (st *State) Place(id NodeID, offset int) {
	st.Sel = Caret(st.Doc.ClampCursor(At(id, offset)))
}

// PlaceEnd collapses the selection at the end of id.
func (st *State) PlaceEnd(id NodeID) { st.Place(id, st.Doc.Len(id)) }

// Clone returns a deep copy of the state.
func (st *State) Clone() *State {
	return &State{Doc: st.Doc.Clone(), Sel: st.Sel}
}

// ClampCursor pulls a cursor into a valid leaf position. A cursor on a
// container moves to its first leaf; a dangling cursor moves to the first
// leaf of the document.
func (d *Document) ClampCursor(c Cursor) Cursor {
	if !d.Attached(c.Node) {
		c = At(d.FirstLeaf(d.Root()), 0)
	}
	if !d.Type(c.Node).IsLeaf() {
		c = At(d.FirstLeaf(c.Node), 0)
	}
	if c.Offset < 0 {
		c.Offset = 0
	}
	if n := d.Len(c.Node); c.Offset > n {
		c.Offset = n
	}
	return c
}

// ClampSelection clamps both ends of a selection.
func (d *Document) ClampSelection(s Selection) Selection {
	return Selection{Anchor: d.ClampCursor(s.Anchor), Head: d.ClampCursor(s.Head)}
}

// SplitText splits s at a rune offset.
func SplitText(s string, offset int) (before, after string) {
	if offset <= 0 {
		return "", s
	}
	i := 0
	for pos := range s {
		if i == offset {
			return s[:pos], s[pos:]
		}
		i++
	}
	return s, ""
}

// RuneLen is utf8.RuneCountInString.
func RuneLen(s string) int { return utf8.RuneCountInString(s) }

// CoversNode reports whether the selection spans all of id's text.
func (s Selection) CoversNode(d *Document, id NodeID) bool {
	if s.Empty() || s.Anchor.Node != id || s.Head.Node != id {
		return false
	}
	lo, hi := s.Anchor.Offset, s.Head.Offset
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo == 0 && hi == d.Len(id) && hi > 0
}
