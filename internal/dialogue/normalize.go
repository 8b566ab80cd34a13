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

// characterOnly reports a named cue with nothing spoken yet: a block whose
// Character has text and whose speech flow is empty, or a bare top-level
// Character with text.
func characterOnly(d *sp.Document, id sp.NodeID) bool {
	switch d.Type(id) {
	case sp.DialogueBlock:
		return characterText(d, id) != "" && d.ChildCount(flowOf(d, id)) == 0
	case sp.Character:
		return isTopLevel(d, id) && d.Text(id) != ""
	}
	return false
}

// speechOnly reports speech without a named cue: a bare top-level segment or
// a block with segments and no Character text.
func speechOnly(d *sp.Document, id sp.NodeID) bool {
	switch d.Type(id) {
	case sp.Dialogue, sp.Parenthetical:
		return isTopLevel(d, id)
	case sp.DialogueBlock:
		return characterText(d, id) == "" && d.ChildCount(flowOf(d, id)) > 0
	}
	return false
}

// merge folds the speech in b into the character-only node a. Segments keep
// their ids. When the caret was in either node and did not travel with a
// moved segment, it is re-anchored at the start of the first segment.
func merge(st *sp.State, a, b sp.NodeID) {
	d := st.Doc
	head := d.ClampCursor(st.Sel.Head)
	top := d.TopLevel(head.Node)
	involved := top == a || top == b

	block := a
	if d.Type(a) == sp.Character {
		block = wrapAsCharacter(d, a)
	}
	flow := flowOf(d, block)
	if d.Type(b) == sp.DialogueBlock {
		for _, s := range d.Children(flowOf(d, b)) {
			d.Detach(s)
			d.Append(flow, s)
		}
		d.Remove(b)
	} else {
		d.Detach(b)
		d.Append(flow, b)
	}

	if !involved {
		return
	}
	if d.Attached(head.Node) && d.Parent(head.Node) == flow {
		st.Sel = sp.Caret(head)
		return
	}
	st.Place(d.Children(flow)[0], 0)
}

// Normalize merges a character-only node with speech-only neighbours around
// the caret's top-level node. It returns the number of merges.
func Normalize(st *sp.State) int {
	d := st.Doc
	merges := 0
	for limit := len(d.Top()); merges < limit; {
		top := d.TopLevel(d.ClampCursor(st.Sel.Head).Node)
		if top == sp.NoNode {
			break
		}
		if p := d.Prev(top); p != sp.NoNode && characterOnly(d, p) && speechOnly(d, top) {
			merge(st, p, top)
			merges++
			continue
		}
		if n := d.Next(top); n != sp.NoNode && characterOnly(d, top) && speechOnly(d, n) {
			merge(st, top, n)
			merges++
			continue
		}
		break
	}
	return merges
}

// NormalizeDocument applies the merge to every adjacent pair in the
// document. Running it twice yields no further merges.
func NormalizeDocument(st *sp.State) int {
	d := st.Doc
	merges := 0
	for i := 0; ; {
		top := d.Top()
		if i+1 >= len(top) {
			break
		}
		if characterOnly(d, top[i]) && speechOnly(d, top[i+1]) {
			merge(st, top[i], top[i+1])
			merges++
			continue
		}
		i++
	}
	return merges
}
