/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package dialogue implements the structural edits behind the screenplay
// rule table: splitting and merging speech segments, safe deletion of empty
// blocks and segments, node type conversion and the normalization pass that
// folds a lone character cue into the speech that follows it.
//
// Every exported edit takes the session state, mutates the tree through the
// screenplay primitives and leaves the caret on a text node. Edits report
// false when their preconditions do not hold and leave the tree untouched in
// that case.
package dialogue

import (
	sp "goscreenwriter/internal/screenplay"
)

func flowOf(d *sp.Document, block sp.NodeID) sp.NodeID {
	return d.ChildOfType(block, sp.SpeechFlow)
}

func characterText(d *sp.Document, block sp.NodeID) string {
	return d.Text(d.ChildOfType(block, sp.Character))
}

func isTopLevel(d *sp.Document, id sp.NodeID) bool { return d.Parent(id) == d.Root() }

// blockHollow reports a block with neither a character name nor any text in
// its speech flow.
func blockHollow(d *sp.Document, block sp.NodeID) bool {
	if characterText(d, block) != "" {
		return false
	}
	for _, s := range d.Children(flowOf(d, block)) {
		if d.Text(s) != "" {
			return false
		}
	}
	return true
}

// SplitSegment splits a Dialogue/Parenthetical at offset. The text before
// the cursor keeps the original kind and is dropped when empty; the text
// after it always becomes a node of kind, even when empty. The caret lands at
// the start of the after-node.
func SplitSegment(st *sp.State, seg sp.NodeID, offset int, kind sp.NodeType) bool {
	d := st.Doc
	if !d.Type(seg).IsSegment() || !kind.IsSegment() || d.Type(d.Parent(seg)) != sp.SpeechFlow {
		return false
	}
	before, after := sp.SplitText(d.Text(seg), offset)
	if before == "" {
		d.SetType(seg, kind)
		d.SetText(seg, after)
		st.Place(seg, 0)
		return true
	}
	d.SetText(seg, before)
	n := d.NewLeaf(kind, after)
	d.InsertAfter(seg, n)
	st.Place(n, 0)
	return true
}

// InsertParentheticalPair splits a Dialogue at offset into before, "()" and
// after. Empty before/after pieces are not created. The caret lands between
// the parentheses.
func InsertParentheticalPair(st *sp.State, seg sp.NodeID, offset int) bool {
	d := st.Doc
	if d.Type(seg) != sp.Dialogue || d.Type(d.Parent(seg)) != sp.SpeechFlow {
		return false
	}
	before, after := sp.SplitText(d.Text(seg), offset)
	paren := seg
	if before != "" {
		d.SetText(seg, before)
		paren = d.NewLeaf(sp.Parenthetical, "()")
		d.InsertAfter(seg, paren)
	} else {
		d.SetType(seg, sp.Parenthetical)
		d.SetText(seg, "()")
	}
	if after != "" {
		d.InsertAfter(paren, d.NewLeaf(sp.Dialogue, after))
	}
	st.Place(paren, 1)
	return true
}

// FocusFirstSpeechSegment moves the caret to the start of the block's first
// segment, creating an empty Dialogue when the speech flow is empty.
func FocusFirstSpeechSegment(st *sp.State, block sp.NodeID) bool {
	d := st.Doc
	flow := flowOf(d, block)
	if flow == sp.NoNode {
		return false
	}
	if d.ChildCount(flow) == 0 {
		d.Append(flow, d.NewLeaf(sp.Dialogue, ""))
	}
	st.Place(d.Children(flow)[0], 0)
	return true
}

// InsertActionAfterBlock inserts an empty Action after block and focuses it.
// With removeEmpty, an empty segment is dropped first; a block left without
// any text is then replaced by the Action.
func InsertActionAfterBlock(st *sp.State, block, emptySeg sp.NodeID, removeEmpty bool) bool {
	d := st.Doc
	if d.Type(block) != sp.DialogueBlock {
		return false
	}
	action := d.NewLeaf(sp.Action, "")
	if removeEmpty && emptySeg != sp.NoNode && d.Text(emptySeg) == "" && d.Ancestor(emptySeg, sp.DialogueBlock) == block {
		d.Remove(emptySeg)
		if blockHollow(d, block) && d.ChildCount(flowOf(d, block)) == 0 {
			d.Replace(block, action)
			st.Place(action, 0)
			return true
		}
	}
	d.InsertAfter(block, action)
	st.Place(action, 0)
	return true
}

// MoveToNextDialogue moves the caret to the next Dialogue in the same speech
// flow, or appends a new empty one when there is none.
func MoveToNextDialogue(st *sp.State, seg sp.NodeID) bool {
	d := st.Doc
	flow := d.Parent(seg)
	if !d.Type(seg).IsSegment() || d.Type(flow) != sp.SpeechFlow {
		return false
	}
	for n := d.Next(seg); n != sp.NoNode; n = d.Next(n) {
		if d.Type(n) == sp.Dialogue {
			st.Place(n, 0)
			return true
		}
	}
	n := d.NewLeaf(sp.Dialogue, "")
	d.Append(flow, n)
	st.Place(n, 0)
	return true
}

// DeleteEmptyBlock handles Backspace at the start of an empty character cue.
// The whole block goes, speech included, as long as another top-level node
// remains. The caret lands at the end of the preceding node, or at the start
// of the following one when the block was first.
func DeleteEmptyBlock(st *sp.State, block sp.NodeID) bool {
	d := st.Doc
	char := d.ChildOfType(block, sp.Character)
	if char == sp.NoNode || d.Text(char) != "" {
		return false
	}
	prev, next := d.Prev(block), d.Next(block)
	if prev == sp.NoNode && next == sp.NoNode {
		return false
	}
	d.Remove(block)
	if prev != sp.NoNode {
		st.PlaceEnd(d.LastLeaf(prev))
	} else {
		st.Place(d.FirstLeaf(next), 0)
	}
	return true
}

// DeleteEmptySegment handles Backspace in an empty segment. The only segment
// of a flow is never removed: a Parenthetical is retyped to Dialogue and an
// empty Dialogue hands the caret back to the character cue.
func DeleteEmptySegment(st *sp.State, seg sp.NodeID) bool {
	d := st.Doc
	flow := d.Parent(seg)
	if !d.Type(seg).IsSegment() || d.Type(flow) != sp.SpeechFlow || d.Text(seg) != "" {
		return false
	}
	char := d.ChildOfType(d.Parent(flow), sp.Character)
	if d.ChildCount(flow) == 1 {
		if d.Type(seg) == sp.Parenthetical {
			d.SetType(seg, sp.Dialogue)
			st.Place(seg, 0)
			return true
		}
		if char != sp.NoNode {
			st.PlaceEnd(char)
			return true
		}
		return false
	}
	prev := d.Prev(seg)
	d.Remove(seg)
	switch {
	case prev != sp.NoNode:
		st.PlaceEnd(prev)
	case char != sp.NoNode:
		st.PlaceEnd(char)
	default:
		st.Place(d.Children(flow)[0], 0)
	}
	return true
}

// wrapAsCharacter turns a top-level leaf into the Character of a new block
// with an empty speech flow. The leaf keeps its id.
func wrapAsCharacter(d *sp.Document, leaf sp.NodeID) sp.NodeID {
	idx := d.Index(leaf)
	d.Detach(leaf)
	d.SetType(leaf, sp.Character)
	block := d.NewDialogueBlock(false, "")
	d.Insert(block, 0, leaf)
	d.Insert(d.Root(), idx, block)
	return block
}

// PromoteToCharacter wraps a top-level plain node or bare Character into a
// new DialogueBlock whose Character carries the text. The caret stays put.
func PromoteToCharacter(st *sp.State, leaf sp.NodeID) (sp.NodeID, bool) {
	d := st.Doc
	t := d.Type(leaf)
	if !isTopLevel(d, leaf) || !t.IsLeaf() {
		return sp.NoNode, false
	}
	return wrapAsCharacter(d, leaf), true
}

// AppendSpeechSegment turns a top-level node into a segment of kind. It joins
// the preceding block (or bare Character cue) as a trailing segment, or
// starts a new block without a cue when nothing suitable precedes it.
func AppendSpeechSegment(st *sp.State, leaf sp.NodeID, kind sp.NodeType) bool {
	d := st.Doc
	if !isTopLevel(d, leaf) || !d.Type(leaf).IsLeaf() || !kind.IsSegment() {
		return false
	}
	prev := d.Prev(leaf)
	idx := d.Index(leaf)
	d.Detach(leaf)
	d.SetType(leaf, kind)
	switch d.Type(prev) {
	case sp.DialogueBlock:
		d.Append(flowOf(d, prev), leaf)
	case sp.Character:
		block := wrapAsCharacter(d, prev)
		d.Append(flowOf(d, block), leaf)
	default:
		block := d.NewDialogueBlock(false, "", leaf)
		d.Insert(d.Root(), idx, block)
	}
	return true
}

// InsertNodeAfter inserts an empty node of type t after the top-level node
// holding the caret and focuses it. A Character starts a new block; a
// segment type starts a block without a cue.
func InsertNodeAfter(st *sp.State, t sp.NodeType) bool {
	d := st.Doc
	top := d.TopLevel(st.Cursor().Node)
	if top == sp.NoNode {
		return false
	}
	var n, focus sp.NodeID
	switch {
	case t == sp.Character:
		n = d.NewDialogueBlock(true, "")
		focus = d.ChildOfType(n, sp.Character)
	case t.IsSegment():
		focus = d.NewLeaf(t, "")
		n = d.NewDialogueBlock(false, "", focus)
	case t.IsLeaf():
		n = d.NewLeaf(t, "")
		focus = n
	default:
		return false
	}
	d.InsertAfter(top, n)
	st.Place(focus, 0)
	return true
}
