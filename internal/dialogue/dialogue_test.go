/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dialogue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	sp "goscreenwriter/internal/screenplay"
	"goscreenwriter/internal/transitions"
)

func newEngine() *transitions.Engine {
	reg := transitions.NewRegistry()
	Register(reg, Options{})
	return &transitions.Engine{
		Rules:    transitions.DefaultRules(),
		Registry: reg,
		DocType:  transitions.DocScreenplay,
		After:    AfterTransaction(nil),
	}
}

// find returns the first leaf of type t with the given text.
func find(t *testing.T, d *sp.Document, typ sp.NodeType, text string) sp.NodeID {
	t.Helper()
	for _, id := range d.Leaves() {
		if d.Type(id) == typ && d.Text(id) == text {
			return id
		}
	}
	require.FailNowf(t, "node not found", "no %s %q in %+v", typ, text, d.Specs())
	return sp.NoNode
}

func stateAt(t *testing.T, d *sp.Document, typ sp.NodeType, text string, offset int) *sp.State {
	t.Helper()
	st := sp.NewState(d)
	st.Place(find(t, d, typ, text), offset)
	return st
}

func press(t *testing.T, e *transitions.Engine, st *sp.State, key string) transitions.Outcome {
	t.Helper()
	out := e.Handle(context.Background(), st, key)
	require.NoError(t, sp.Validate(st.Doc))
	return out
}

func dlg(s string) sp.Spec   { return sp.Leaf(sp.Dialogue, s) }
func paren(s string) sp.Spec { return sp.Leaf(sp.Parenthetical, s) }

func TestCharacterEnterCreatesDialogue(t *testing.T) {
	d := sp.MustFromSpecs(sp.Block(sp.Name("JOHN")))
	st := stateAt(t, d, sp.Character, "JOHN", 4)

	out := press(t, newEngine(), st, "Enter")
	require.True(t, out.Consumed)
	require.Equal(t, "character-enter", out.Rule.ID)
	require.Equal(t, []sp.Spec{sp.Block(sp.Name("JOHN"), dlg(""))}, d.Specs())
	require.Equal(t, sp.Dialogue, d.Type(st.Cursor().Node))
	require.Equal(t, 0, st.Cursor().Offset)
}

func TestCharacterEnterFocusesExistingSegment(t *testing.T) {
	d := sp.MustFromSpecs(sp.Block(sp.Name("JOHN"), paren("(quietly)"), dlg("Hi")))
	st := stateAt(t, d, sp.Character, "JOHN", 2)

	press(t, newEngine(), st, "Enter")
	require.Equal(t, find(t, d, sp.Parenthetical, "(quietly)"), st.Cursor().Node)
	require.Len(t, d.Leaves(), 3)
}

func TestBareCharacterEnterBuildsBlock(t *testing.T) {
	d := sp.MustFromSpecs(sp.Leaf(sp.Action, "Rain."), sp.Leaf(sp.Character, "MARY"))
	st := stateAt(t, d, sp.Character, "MARY", 4)

	out := press(t, newEngine(), st, "Enter")
	require.Equal(t, "character-enter-bare", out.Rule.ID)
	require.Equal(t, []sp.Spec{sp.Leaf(sp.Action, "Rain."), sp.Block(sp.Name("MARY"), dlg(""))}, d.Specs())
	require.Equal(t, sp.Dialogue, d.Type(st.Cursor().Node))
}

func TestOpenParenSplitsDialogue(t *testing.T) {
	d := sp.MustFromSpecs(sp.Block(sp.Name("JOHN"), dlg("Hello")))
	st := stateAt(t, d, sp.Dialogue, "Hello", 3)

	out := press(t, newEngine(), st, "(")
	require.True(t, out.Consumed)
	require.Equal(t, []sp.Spec{sp.Block(sp.Name("JOHN"), dlg("Hel"), paren("()"), dlg("lo"))}, d.Specs())
	require.Equal(t, find(t, d, sp.Parenthetical, "()"), st.Cursor().Node)
	require.Equal(t, 1, st.Cursor().Offset)
}

func TestOpenParenAtEdgesOmitsEmptyPieces(t *testing.T) {
	d := sp.MustFromSpecs(sp.Block(sp.Name("JOHN"), dlg("Hello")))
	st := stateAt(t, d, sp.Dialogue, "Hello", 5)
	press(t, newEngine(), st, "(")
	require.Equal(t, []sp.Spec{sp.Block(sp.Name("JOHN"), dlg("Hello"), paren("()"))}, d.Specs())

	d = sp.MustFromSpecs(sp.Block(sp.Name("JOHN"), dlg("Hello")))
	st = stateAt(t, d, sp.Dialogue, "Hello", 0)
	id := st.Cursor().Node
	press(t, newEngine(), st, "(")
	require.Equal(t, []sp.Spec{sp.Block(sp.Name("JOHN"), paren("()"), dlg("Hello"))}, d.Specs())
	require.Equal(t, id, st.Cursor().Node, "segment keeps its id when it becomes the parenthetical")
}

func TestEmptyCharacterBackspaceRemovesBlock(t *testing.T) {
	d := sp.MustFromSpecs(sp.Leaf(sp.Action, "Walk."), sp.Block(sp.Name("")))
	st := sp.NewState(d)
	st.Place(d.ChildOfType(d.Top()[1], sp.Character), 0)

	out := press(t, newEngine(), st, "Backspace")
	require.True(t, out.Consumed)
	require.Equal(t, []sp.Spec{sp.Leaf(sp.Action, "Walk.")}, d.Specs())
	require.Equal(t, sp.At(find(t, d, sp.Action, "Walk."), 5), st.Cursor())
}

func TestEmptyCharacterBackspaceKeepsLastBlock(t *testing.T) {
	d := sp.MustFromSpecs(sp.Block(sp.Name("")))
	st := sp.NewState(d)
	before := d.Specs()

	out := press(t, newEngine(), st, "Backspace")
	require.False(t, out.Consumed)
	require.Equal(t, transitions.ReasonRefused, out.Reason)
	require.Equal(t, before, d.Specs())
}

func TestEmptyCharacterBackspaceDropsSpokenBlock(t *testing.T) {
	d := sp.MustFromSpecs(sp.Leaf(sp.Action, "Walk."), sp.Block(sp.Name(""), dlg("Hi")))
	st := sp.NewState(d)
	st.Place(d.ChildOfType(d.Top()[1], sp.Character), 0)

	out := press(t, newEngine(), st, "Backspace")
	require.True(t, out.Consumed)
	require.Equal(t, []sp.Spec{sp.Leaf(sp.Action, "Walk.")}, d.Specs())
	require.Equal(t, sp.At(find(t, d, sp.Action, "Walk."), 5), st.Cursor())
}

func TestEmptyCharacterBackspaceFirstBlockMovesForward(t *testing.T) {
	d := sp.MustFromSpecs(sp.Block(sp.Name(""), dlg("Hi")), sp.Leaf(sp.Action, "Walk."))
	st := sp.NewState(d)
	st.Place(d.ChildOfType(d.Top()[0], sp.Character), 0)

	out := press(t, newEngine(), st, "Backspace")
	require.True(t, out.Consumed)
	require.Equal(t, []sp.Spec{sp.Leaf(sp.Action, "Walk.")}, d.Specs())
	require.Equal(t, sp.At(find(t, d, sp.Action, "Walk."), 0), st.Cursor())
}

func TestEmptySegmentBackspace(t *testing.T) {
	e := newEngine()

	d := sp.MustFromSpecs(sp.Block(sp.Name("JOHN"), dlg("Hi"), dlg("")))
	st := stateAt(t, d, sp.Dialogue, "", 0)
	press(t, e, st, "Backspace")
	require.Equal(t, []sp.Spec{sp.Block(sp.Name("JOHN"), dlg("Hi"))}, d.Specs())
	require.Equal(t, sp.At(find(t, d, sp.Dialogue, "Hi"), 2), st.Cursor())

	d = sp.MustFromSpecs(sp.Block(sp.Name("JOHN"), paren("")))
	st = stateAt(t, d, sp.Parenthetical, "", 0)
	press(t, e, st, "Backspace")
	require.Equal(t, []sp.Spec{sp.Block(sp.Name("JOHN"), dlg(""))}, d.Specs(), "only segment is retyped, not removed")

	press(t, e, st, "Backspace")
	require.Equal(t, []sp.Spec{sp.Block(sp.Name("JOHN"), dlg(""))}, d.Specs())
	require.Equal(t, sp.At(find(t, d, sp.Character, "JOHN"), 4), st.Cursor())
}

func TestDialogueEnterAtEndMovesOrCreates(t *testing.T) {
	e := newEngine()
	d := sp.MustFromSpecs(sp.Block(sp.Name("JOHN"), dlg("One"), paren("(beat)"), dlg("Two")))
	st := stateAt(t, d, sp.Dialogue, "One", 3)

	out := press(t, e, st, "Enter")
	require.Equal(t, "dialogue-enter-end", out.Rule.ID)
	require.Equal(t, sp.At(find(t, d, sp.Dialogue, "Two"), 0), st.Cursor())

	st.PlaceEnd(st.Cursor().Node)
	press(t, e, st, "Enter")
	require.Equal(t, []sp.Spec{sp.Block(sp.Name("JOHN"), dlg("One"), paren("(beat)"), dlg("Two"), dlg(""))}, d.Specs())
	require.Equal(t, sp.At(find(t, d, sp.Dialogue, ""), 0), st.Cursor())
}

func TestEnterOnEmptySegmentLeavesBlock(t *testing.T) {
	d := sp.MustFromSpecs(sp.Block(sp.Name("JOHN"), dlg("Hi"), dlg("")))
	st := stateAt(t, d, sp.Dialogue, "", 0)

	out := press(t, newEngine(), st, "Enter")
	require.Equal(t, "segment-enter-empty", out.Rule.ID)
	require.Equal(t, []sp.Spec{sp.Block(sp.Name("JOHN"), dlg("Hi")), sp.Leaf(sp.Action, "")}, d.Specs())
	require.Equal(t, sp.Action, d.Type(st.Cursor().Node))
}

func TestEnterOnEmptyOnlySegmentOfHollowBlock(t *testing.T) {
	d := sp.MustFromSpecs(sp.Leaf(sp.Action, "x"), sp.Block(nil, dlg("")))
	st := stateAt(t, d, sp.Dialogue, "", 0)

	press(t, newEngine(), st, "Enter")
	require.Equal(t, []sp.Spec{sp.Leaf(sp.Action, "x"), sp.Leaf(sp.Action, "")}, d.Specs())
}

func TestDialogueEnterSplits(t *testing.T) {
	d := sp.MustFromSpecs(sp.Block(sp.Name("JOHN"), dlg("Hello")))
	st := stateAt(t, d, sp.Dialogue, "Hello", 2)

	out := press(t, newEngine(), st, "Enter")
	require.Equal(t, "dialogue-enter-split", out.Rule.ID)
	require.Equal(t, []sp.Spec{sp.Block(sp.Name("JOHN"), dlg("He"), dlg("llo"))}, d.Specs())
	require.Equal(t, sp.At(find(t, d, sp.Dialogue, "llo"), 0), st.Cursor())
}

func TestParentheticalEnterSplitsIntoDialogue(t *testing.T) {
	d := sp.MustFromSpecs(sp.Block(sp.Name("JOHN"), paren("(beat)")))
	st := stateAt(t, d, sp.Parenthetical, "(beat)", 6)

	press(t, newEngine(), st, "Enter")
	require.Equal(t, []sp.Spec{sp.Block(sp.Name("JOHN"), paren("(beat)"), dlg(""))}, d.Specs())
	require.Equal(t, sp.Dialogue, d.Type(st.Cursor().Node))
}

func TestShiftEnterLeavesBlock(t *testing.T) {
	d := sp.MustFromSpecs(sp.Block(sp.Name("JOHN"), dlg("Hi")), sp.Leaf(sp.Transition, "CUT TO:"))
	st := stateAt(t, d, sp.Dialogue, "Hi", 1)

	press(t, newEngine(), st, "Shift-Enter")
	require.Equal(t, []sp.Spec{
		sp.Block(sp.Name("JOHN"), dlg("Hi")),
		sp.Leaf(sp.Action, ""),
		sp.Leaf(sp.Transition, "CUT TO:"),
	}, d.Specs())
}

func TestSceneHeadingEnterInsertsAction(t *testing.T) {
	d := sp.MustFromSpecs(sp.Leaf(sp.SceneHeading, "INT. ROOM - DAY"))
	st := stateAt(t, d, sp.SceneHeading, "INT. ROOM - DAY", 15)

	press(t, newEngine(), st, "Enter")
	require.Equal(t, []sp.Spec{sp.Leaf(sp.SceneHeading, "INT. ROOM - DAY"), sp.Leaf(sp.Action, "")}, d.Specs())

	st.Place(find(t, d, sp.SceneHeading, "INT. ROOM - DAY"), 4)
	out := press(t, newEngine(), st, "Enter")
	require.Equal(t, transitions.ReasonNoRule, out.Reason, "mid-text Enter is left to the editor")
}

func TestSelectionEnterOnCharacterIsSwallowed(t *testing.T) {
	d := sp.MustFromSpecs(sp.Block(sp.Name("JOHN")))
	char := find(t, d, sp.Character, "JOHN")
	st := sp.NewState(d)
	st.Sel = sp.Selection{Anchor: sp.At(char, 0), Head: sp.At(char, 2)}
	before := d.Specs()

	out := press(t, newEngine(), st, "Enter")
	require.True(t, out.Consumed)
	require.Equal(t, before, d.Specs())
}
