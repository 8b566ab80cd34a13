/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package transitions

import (
	sp "goscreenwriter/internal/screenplay"
)

// DocScreenplay is the document type the built-in table applies to.
const DocScreenplay = "screenplay"

// Command ids understood by the dialogue command set.
const (
	CmdSplitSegmentAtCursor             = "splitSegmentAtCursor"
	CmdInsertParentheticalPair          = "insertParentheticalPairAtCursor"
	CmdFocusFirstSpeechSegmentOrCreate  = "focusFirstSpeechSegmentOrCreate"
	CmdInsertActionAfterDialogueBlock   = "insertActionAfterDialogueBlockAndFocus"
	CmdMoveToOrCreateNextDialogue       = "moveToOrCreateNextDialogueSegment"
	CmdDeleteEmptyDialogueBlock         = "deleteEmptyDialogueBlockSafely"
	CmdDeleteEmptySegment               = "deleteEmptySegmentSafely"
	CmdInsertDialogueBlockFromCharacter = "insertDialogueBlockFromCharacter"
	CmdAppendSpeechSegment              = "appendSpeechSegment"
	CmdConvertNodeType                  = "convertNodeType"
	CmdCycleNodeType                    = "cycleNodeType"
	CmdInsertNodeAfterAndFocus          = "insertNodeAfterAndFocus"
)

// ShortcutTypes maps the Mod-Alt-<n> element shortcuts to their targets.
var ShortcutTypes = []sp.NodeType{sp.SceneHeading, sp.Action, sp.Character, sp.Dialogue, sp.Parenthetical, sp.Transition}

// DefaultRules returns the built-in screenplay table. Predicates are chosen so
// that at most one rule matches any reachable context.
func DefaultRules() []Rule {
	screenplay := []string{DocScreenplay}
	segments := []sp.NodeType{sp.Dialogue, sp.Parenthetical}
	on := func(keys []string, types ...sp.NodeType) When {
		return When{DocTypes: screenplay, Keys: keys, NodeTypes: types}
	}
	enter := []string{"Enter"}

	rules := []Rule{
		{
			ID: "character-enter", Priority: 100, Consume: true,
			When: on(enter, sp.Character),
			If:   []Predicate{SelectionEmpty(true), InDialogueBlock(true)},
			Do:   Run(CmdFocusFirstSpeechSegmentOrCreate, nil),
		},
		{
			ID: "character-enter-bare", Priority: 100, Consume: true,
			When: on(enter, sp.Character),
			If:   []Predicate{SelectionEmpty(true), InDialogueBlock(false)},
			Do: Sequence(
				Call{Command: CmdInsertDialogueBlockFromCharacter},
				Call{Command: CmdFocusFirstSpeechSegmentOrCreate},
			),
		},
		{
			ID: "character-enter-selection", Priority: 90, Consume: true,
			When: on(enter, sp.Character),
			If:   []Predicate{SelectionEmpty(false)},
			Do:   Noop(),
		},
		{
			ID: "segment-enter-empty", Priority: 120, Consume: true,
			When: on(enter, segments...),
			If:   []Predicate{InDialogueBlock(true), ParentEmpty(true)},
			Do:   Run(CmdInsertActionAfterDialogueBlock, Args{"removeEmptySegment": true}),
		},
		{
			ID: "dialogue-enter-end", Priority: 110, Consume: true,
			When: on(enter, sp.Dialogue),
			If:   []Predicate{InDialogueBlock(true), SelectionEmpty(true), PositionIn(PosEnd), ParentEmpty(false)},
			Do:   Run(CmdMoveToOrCreateNextDialogue, nil),
		},
		{
			ID: "dialogue-enter-split", Priority: 100, Consume: true,
			When: on(enter, sp.Dialogue),
			If:   []Predicate{InDialogueBlock(true), SelectionEmpty(true), PositionIn(PosStart, PosMiddle)},
			Do:   Run(CmdSplitSegmentAtCursor, Args{"kind": string(sp.Dialogue)}),
		},
		{
			ID: "parenthetical-enter", Priority: 100, Consume: true,
			When: on(enter, sp.Parenthetical),
			If:   []Predicate{InDialogueBlock(true), SelectionEmpty(true), ParentEmpty(false)},
			Do:   Run(CmdSplitSegmentAtCursor, Args{"kind": string(sp.Dialogue)}),
		},
		{
			ID: "segment-shift-enter", Priority: 100, Consume: true,
			When: on([]string{"Shift-Enter"}, sp.Character, sp.Dialogue, sp.Parenthetical),
			If:   []Predicate{InDialogueBlock(true)},
			Do:   Run(CmdInsertActionAfterDialogueBlock, nil),
		},
		{
			ID: "dialogue-open-paren", Priority: 100, Consume: true,
			When: on([]string{"("}, sp.Dialogue),
			If:   []Predicate{InDialogueBlock(true), SelectionEmpty(true)},
			Do:   Run(CmdInsertParentheticalPair, nil),
		},
		{
			ID: "character-backspace-empty", Priority: 100, Consume: true,
			When: on([]string{"Backspace"}, sp.Character),
			If:   []Predicate{InDialogueBlock(true), ParentEmpty(true)},
			Do:   Run(CmdDeleteEmptyDialogueBlock, nil),
		},
		{
			ID: "segment-backspace-empty", Priority: 100, Consume: true,
			When: on([]string{"Backspace"}, segments...),
			If:   []Predicate{InDialogueBlock(true), ParentEmpty(true)},
			Do:   Run(CmdDeleteEmptySegment, nil),
		},
		{
			ID: "scene-heading-enter", Priority: 100, Consume: true,
			When: on(enter, sp.SceneHeading),
			If:   []Predicate{SelectionEmpty(true), PositionIn(PosEnd, PosAll)},
			Do:   Run(CmdInsertNodeAfterAndFocus, Args{"type": string(sp.Action)}),
		},
		{
			ID: "transition-enter", Priority: 100, Consume: true,
			When: on(enter, sp.Transition),
			If:   []Predicate{SelectionEmpty(true), PositionIn(PosEnd, PosAll)},
			Do:   Run(CmdInsertNodeAfterAndFocus, Args{"type": string(sp.SceneHeading)}),
		},
		{
			ID: "tab-cycle", Priority: 50, Consume: true,
			When: on([]string{"Tab"}, sp.LeafTypes...),
			Do:   Run(CmdCycleNodeType, Args{"direction": 1}),
		},
		{
			ID: "shift-tab-cycle", Priority: 50, Consume: true,
			When: on([]string{"Shift-Tab"}, sp.LeafTypes...),
			Do:   Run(CmdCycleNodeType, Args{"direction": -1}),
		},
	}
	for i, t := range ShortcutTypes {
		rules = append(rules, Rule{
			ID:       "shortcut-" + string(t),
			Priority: 50,
			Consume:  true,
			When:     on([]string{"Mod-Alt-" + string(rune('1'+i))}, sp.LeafTypes...),
			Do:       Run(CmdConvertNodeType, Args{"target": string(t)}),
		})
	}
	return rules
}
