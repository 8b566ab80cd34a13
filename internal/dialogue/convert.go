/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dialogue

import (
	sp "goscreenwriter/internal/screenplay"
)

// DefaultTabCycle is the order Tab walks through when cycling element types.
var DefaultTabCycle = []sp.NodeType{sp.SceneHeading, sp.Action, sp.Character, sp.Dialogue, sp.Parenthetical, sp.Transition}

// Convert retypes the text node holding the caret to target, restructuring
// dialogue blocks as needed. Converted nodes keep their id, so the caret
// keeps its offset. It reports the type the node had before.
//
//	plain     -> Character      wrap into a new block with an empty Dialogue
//	plain     -> segment        join the preceding block, else start one
//	plain     -> plain          retype in place
//	Character -> segment        becomes the first segment; an emptied cue
//	                            stays behind when other segments exist
//	Character -> plain          moves out in front of its block
//	segment   -> Character      replaces the block's cue
//	segment   -> plain          splits the block around the extracted node
//	segment   -> segment        retype in place
func Convert(st *sp.State, target sp.NodeType) (sp.NodeType, bool) {
	d := st.Doc
	if !target.IsLeaf() {
		return "", false
	}
	cur := d.ClampCursor(st.Sel.Head)
	st.Sel = sp.Caret(cur)
	leaf := cur.Node
	from := d.Type(leaf)

	block := d.Ancestor(leaf, sp.DialogueBlock)
	switch {
	case block == sp.NoNode:
		return from, convertTopLevel(st, leaf, target)
	case from == sp.Character:
		return from, convertCharacter(d, block, leaf, target)
	default:
		return from, convertSegment(d, block, leaf, target)
	}
}

func convertTopLevel(st *sp.State, leaf sp.NodeID, target sp.NodeType) bool {
	d := st.Doc
	switch {
	case target == sp.Character:
		block, ok := PromoteToCharacter(st, leaf)
		if !ok {
			return false
		}
		d.Append(flowOf(d, block), d.NewLeaf(sp.Dialogue, ""))
		return true
	case target.IsSegment():
		return AppendSpeechSegment(st, leaf, target)
	default:
		d.SetType(leaf, target)
		return true
	}
}

func convertCharacter(d *sp.Document, block, char sp.NodeID, target sp.NodeType) bool {
	flow := flowOf(d, block)
	switch {
	case target == sp.Character:
		return true
	case target.IsSegment():
		others := d.ChildCount(flow) > 0
		d.Detach(char)
		d.SetType(char, target)
		d.Insert(flow, 0, char)
		if others {
			d.Insert(block, 0, d.NewLeaf(sp.Character, ""))
		}
		return true
	default:
		d.Detach(char)
		d.SetType(char, target)
		d.InsertBefore(block, char)
		if blockHollow(d, block) {
			d.Remove(block)
		}
		return true
	}
}

func convertSegment(d *sp.Document, block, seg sp.NodeID, target sp.NodeType) bool {
	switch {
	case target.IsSegment():
		d.SetType(seg, target)
		return true
	case target == sp.Character:
		if old := d.ChildOfType(block, sp.Character); old != sp.NoNode {
			d.Remove(old)
		}
		d.Detach(seg)
		d.SetType(seg, sp.Character)
		d.Insert(block, 0, seg)
		return true
	}

	flow := flowOf(d, block)
	segs := d.Children(flow)
	var after []sp.NodeID
	for i, s := range segs {
		if s == seg {
			after = segs[i+1:]
			break
		}
	}
	for _, s := range after {
		d.Detach(s)
	}
	d.Detach(seg)
	d.SetType(seg, target)
	d.InsertAfter(block, seg)
	if len(after) > 0 {
		d.InsertAfter(seg, d.NewDialogueBlock(true, "", after...))
	}
	if d.ChildCount(flow) == 0 && characterText(d, block) == "" {
		d.Remove(block)
	}
	return true
}

// Cycle converts the caret's node to the type dir steps away in order.
// Types missing from order (Paragraph) enter the cycle at its first or last
// element.
func Cycle(st *sp.State, order []sp.NodeType, dir int) (sp.NodeType, sp.NodeType, bool) {
	if len(order) == 0 {
		order = DefaultTabCycle
	}
	cur := st.Doc.Type(st.Doc.ClampCursor(st.Sel.Head).Node)
	idx := -1
	for i, t := range order {
		if t == cur {
			idx = i
			break
		}
	}
	n := len(order)
	var target sp.NodeType
	switch {
	case idx >= 0:
		target = order[((idx+dir)%n+n)%n]
	case dir < 0:
		target = order[n-1]
	default:
		target = order[0]
	}
	from, ok := Convert(st, target)
	return from, target, ok
}
