/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"strings"
	"unicode/utf8"

	"goscreenwriter/internal/dialogue"
	"goscreenwriter/internal/keys"
	sp "goscreenwriter/internal/screenplay"
)

// Built-in editing for keys the rule table leaves to the host. It knows
// nothing about screenplay structure beyond keeping the grammar intact:
// text nodes are joined only with same-kind siblings.

// defaultEdit applies the fallback behavior for a key name. The bool
// reports whether anything (text or caret) changed; label names the edit
// for undo grouping, empty for caret-only moves.
func defaultEdit(st *sp.State, name string) (changed bool, label string) {
	switch name {
	case keys.Backspace:
		if deleteSelection(st) {
			return true, "delete"
		}
		return backspace(st)
	case keys.Delete:
		if deleteSelection(st) {
			return true, "delete"
		}
		return deleteForward(st)
	case keys.Enter:
		deleted := deleteSelection(st)
		if splitLeaf(st) {
			return true, "enter"
		}
		return deleted, "delete"
	case keys.Left:
		return moveHorizontal(st, -1), ""
	case keys.Right:
		return moveHorizontal(st, 1), ""
	case keys.Up:
		return moveVertical(st, -1), ""
	case keys.Down:
		return moveVertical(st, 1), ""
	case keys.Home:
		c := st.Cursor()
		st.Place(c.Node, 0)
		return true, ""
	case keys.End:
		st.PlaceEnd(st.Cursor().Node)
		return true, ""
	case keys.Escape:
		st.Sel = sp.Caret(st.Cursor())
		return true, ""
	case keys.Space:
		insertText(st, " ")
		return true, "type"
	case ")":
		if stepOverClose(st) {
			return true, ""
		}
	}
	if utf8.RuneCountInString(name) == 1 {
		insertText(st, name)
		return true, "type"
	}
	return false, ""
}

// ordered returns the selection ends in document order.
func ordered(d *sp.Document, s sp.Selection) (from, to sp.Cursor) {
	a, h := d.ClampCursor(s.Anchor), d.ClampCursor(s.Head)
	if a.Node == h.Node {
		if a.Offset <= h.Offset {
			return a, h
		}
		return h, a
	}
	for _, id := range d.Leaves() {
		switch id {
		case a.Node:
			return a, h
		case h.Node:
			return h, a
		}
	}
	return a, h
}

// deleteSelection removes the selected text and collapses the caret at the
// start. Across nodes only text is removed; structure stays.
func deleteSelection(st *sp.State) bool {
	if st.Sel.Empty() {
		return false
	}
	d := st.Doc
	from, to := ordered(d, st.Sel)
	if from.Node == to.Node {
		before, _ := sp.SplitText(d.Text(from.Node), from.Offset)
		_, after := sp.SplitText(d.Text(to.Node), to.Offset)
		d.SetText(from.Node, before+after)
		st.Place(from.Node, from.Offset)
		return true
	}
	inside := false
	for _, id := range d.Leaves() {
		switch {
		case id == from.Node:
			before, _ := sp.SplitText(d.Text(id), from.Offset)
			d.SetText(id, before)
			inside = true
		case id == to.Node:
			_, after := sp.SplitText(d.Text(id), to.Offset)
			d.SetText(id, after)
			inside = false
		case inside:
			d.SetText(id, "")
		}
	}
	st.Place(from.Node, from.Offset)
	return true
}

func insertText(st *sp.State, s string) {
	deleteSelection(st)
	c := st.Doc.ClampCursor(st.Cursor())
	before, after := sp.SplitText(st.Doc.Text(c.Node), c.Offset)
	st.Doc.SetText(c.Node, before+s+after)
	st.Place(c.Node, c.Offset+utf8.RuneCountInString(s))
}

// stepOverClose moves the caret past a closing paren that is already there,
// so typing out "(beat)" after the pair was inserted does not double it.
func stepOverClose(st *sp.State) bool {
	if !st.Sel.Empty() {
		return false
	}
	c := st.Doc.ClampCursor(st.Cursor())
	if st.Doc.Type(c.Node) != sp.Parenthetical {
		return false
	}
	_, after := sp.SplitText(st.Doc.Text(c.Node), c.Offset)
	if !strings.HasPrefix(after, ")") {
		return false
	}
	st.Place(c.Node, c.Offset+1)
	return true
}

// joinable reports whether b can be folded into a: plain top-level siblings
// or segments of the same flow.
func joinable(d *sp.Document, a, b sp.NodeID) bool {
	if a == sp.NoNode || b == sp.NoNode || d.Parent(a) != d.Parent(b) {
		return false
	}
	ta, tb := d.Type(a), d.Type(b)
	switch {
	case ta.IsPlain() && tb.IsPlain():
		return true
	case ta.IsSegment() && tb.IsSegment():
		return d.ChildCount(d.Parent(a)) > 1
	}
	return false
}

func prevLeaf(d *sp.Document, id sp.NodeID) sp.NodeID {
	leaves := d.Leaves()
	for i, l := range leaves {
		if l == id && i > 0 {
			return leaves[i-1]
		}
	}
	return sp.NoNode
}

func nextLeaf(d *sp.Document, id sp.NodeID) sp.NodeID {
	leaves := d.Leaves()
	for i, l := range leaves {
		if l == id && i+1 < len(leaves) {
			return leaves[i+1]
		}
	}
	return sp.NoNode
}

// join appends b's text to a and removes b. The caret lands at the seam.
func join(st *sp.State, a, b sp.NodeID) {
	d := st.Doc
	seam := d.Len(a)
	d.SetText(a, d.Text(a)+d.Text(b))
	d.Remove(b)
	st.Place(a, seam)
}

func backspace(st *sp.State) (bool, string) {
	d := st.Doc
	c := d.ClampCursor(st.Cursor())
	if c.Offset > 0 {
		before, after := sp.SplitText(d.Text(c.Node), c.Offset)
		_, last := utf8.DecodeLastRuneInString(before)
		d.SetText(c.Node, before[:len(before)-last]+after)
		st.Place(c.Node, c.Offset-1)
		return true, "delete"
	}
	prev := prevLeaf(d, c.Node)
	if prev == sp.NoNode {
		return false, ""
	}
	if joinable(d, prev, c.Node) {
		join(st, prev, c.Node)
		return true, "delete"
	}
	st.PlaceEnd(prev)
	return true, ""
}

func deleteForward(st *sp.State) (bool, string) {
	d := st.Doc
	c := d.ClampCursor(st.Cursor())
	if c.Offset < d.Len(c.Node) {
		before, after := sp.SplitText(d.Text(c.Node), c.Offset)
		_, first := utf8.DecodeRuneInString(after)
		d.SetText(c.Node, before+after[first:])
		st.Place(c.Node, c.Offset)
		return true, "delete"
	}
	next := nextLeaf(d, c.Node)
	if next != sp.NoNode && joinable(d, c.Node, next) {
		join(st, c.Node, next)
		return true, "delete"
	}
	return false, ""
}

// splitLeaf breaks the caret's text node in two. A cue line cannot be
// split; Enter on it moves into the speech.
func splitLeaf(st *sp.State) bool {
	d := st.Doc
	c := d.ClampCursor(st.Cursor())
	t := d.Type(c.Node)
	switch {
	case t.IsSegment():
		return dialogue.SplitSegment(st, c.Node, c.Offset, t)
	case t == sp.Character && d.Parent(c.Node) != d.Root():
		return dialogue.FocusFirstSpeechSegment(st, d.Parent(c.Node))
	}
	before, after := sp.SplitText(d.Text(c.Node), c.Offset)
	n := d.NewLeaf(t, after)
	d.SetText(c.Node, before)
	d.InsertAfter(c.Node, n)
	st.Place(n, 0)
	return true
}

func moveHorizontal(st *sp.State, dir int) bool {
	d := st.Doc
	if !st.Sel.Empty() {
		from, to := ordered(d, st.Sel)
		if dir < 0 {
			st.Sel = sp.Caret(from)
		} else {
			st.Sel = sp.Caret(to)
		}
		return true
	}
	c := d.ClampCursor(st.Cursor())
	switch {
	case dir < 0 && c.Offset > 0:
		st.Place(c.Node, c.Offset-1)
	case dir > 0 && c.Offset < d.Len(c.Node):
		st.Place(c.Node, c.Offset+1)
	case dir < 0:
		p := prevLeaf(d, c.Node)
		if p == sp.NoNode {
			return false
		}
		st.PlaceEnd(p)
	default:
		n := nextLeaf(d, c.Node)
		if n == sp.NoNode {
			return false
		}
		st.Place(n, 0)
	}
	return true
}

func moveVertical(st *sp.State, dir int) bool {
	d := st.Doc
	c := d.ClampCursor(st.Cursor())
	var target sp.NodeID
	if dir < 0 {
		target = prevLeaf(d, c.Node)
	} else {
		target = nextLeaf(d, c.Node)
	}
	if target == sp.NoNode {
		return false
	}
	st.Place(target, c.Offset)
	return true
}
