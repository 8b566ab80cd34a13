/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dialogue

import (
	"testing"

	"github.com/stretchr/testify/require"

	sp "goscreenwriter/internal/screenplay"
)

func TestNormalizeDocumentMergesCueAndSpeech(t *testing.T) {
	d := sp.MustFromSpecs(
		sp.Leaf(sp.Action, "Rain."),
		sp.Block(sp.Name("JANE")),
		sp.Leaf(sp.Dialogue, "Hi"),
		sp.Leaf(sp.Character, "BOB"),
		sp.Block(sp.Name(""), dlg("Yo"), paren("(grins)")),
	)
	hi := find(t, d, sp.Dialogue, "Hi")
	st := sp.NewState(d)

	require.Equal(t, 2, NormalizeDocument(st))
	require.NoError(t, sp.Validate(d))
	require.Equal(t, []sp.Spec{
		sp.Leaf(sp.Action, "Rain."),
		sp.Block(sp.Name("JANE"), dlg("Hi")),
		sp.Block(sp.Name("BOB"), dlg("Yo"), paren("(grins)")),
	}, d.Specs())
	require.Equal(t, hi, find(t, d, sp.Dialogue, "Hi"), "merged segments keep their ids")
	require.Equal(t, sp.At(find(t, d, sp.Action, "Rain."), 0), st.Cursor(), "caret outside the merge stays put")

	require.Zero(t, NormalizeDocument(st), "normalization is idempotent")
}

func TestNormalizeLeavesNonMatchingPairs(t *testing.T) {
	specs := []sp.Spec{
		sp.Block(sp.Name(""), dlg("x")),
		sp.Leaf(sp.Dialogue, "bare"),
		sp.Block(sp.Name("AL"), dlg("Hello")),
		sp.Leaf(sp.Dialogue, "after"),
		sp.Block(sp.Name("ZED")),
	}
	d := sp.MustFromSpecs(specs...)
	require.Zero(t, NormalizeDocument(sp.NewState(d)))
	require.Equal(t, specs, d.Specs())
}

func TestNormalizeLocalReanchorsCaret(t *testing.T) {
	d := sp.MustFromSpecs(sp.Block(sp.Name("JANE")), sp.Leaf(sp.Dialogue, "Hi"))
	st := stateAt(t, d, sp.Character, "JANE", 4)

	require.Equal(t, 1, Normalize(st))
	require.Equal(t, []sp.Spec{sp.Block(sp.Name("JANE"), dlg("Hi"))}, d.Specs())
	require.Equal(t, sp.At(find(t, d, sp.Dialogue, "Hi"), 0), st.Cursor())
	require.Zero(t, Normalize(st))
}

func TestNormalizeLocalKeepsCaretInMovedSegment(t *testing.T) {
	d := sp.MustFromSpecs(sp.Leaf(sp.Character, "JANE"), sp.Block(nil, dlg("Hi"), dlg("there")))
	st := stateAt(t, d, sp.Dialogue, "there", 3)

	require.Equal(t, 1, Normalize(st))
	require.Equal(t, []sp.Spec{sp.Block(sp.Name("JANE"), dlg("Hi"), dlg("there"))}, d.Specs())
	require.Equal(t, sp.At(find(t, d, sp.Dialogue, "there"), 3), st.Cursor())
}

func TestNormalizeLocalIgnoresDistantPairs(t *testing.T) {
	d := sp.MustFromSpecs(
		sp.Block(sp.Name("JANE")),
		sp.Leaf(sp.Dialogue, "Hi"),
		sp.Leaf(sp.Action, "far away"),
	)
	st := stateAt(t, d, sp.Action, "far away", 0)
	require.Zero(t, Normalize(st))
	require.Len(t, d.Top(), 3)
}

func TestEngineNormalizesAfterTransaction(t *testing.T) {
	// Dropping the empty cue leaves bare speech right after JANE's block.
	d := sp.MustFromSpecs(sp.Block(sp.Name("JANE")), sp.Block(sp.Name(""), dlg("Hi")))
	st := sp.NewState(d)
	st.Place(d.ChildOfType(d.Top()[1], sp.Character), 0)

	out := press(t, newEngine(), st, "Backspace")
	require.Equal(t, "character-backspace-empty", out.Rule.ID)
	require.Equal(t, []sp.Spec{sp.Block(sp.Name("JANE"), dlg("Hi"))}, d.Specs())
	require.Equal(t, sp.At(find(t, d, sp.Dialogue, "Hi"), 0), st.Cursor())
}
