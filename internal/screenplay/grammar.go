/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package screenplay

import (
	"fmt"
	"strings"
)

// NodeType names a screenplay element. The string values are the persisted
// form and the names used in rule tables and format profiles.
type NodeType string

const (
	Doc           NodeType = "doc"
	SceneHeading  NodeType = "scene_heading"
	Action        NodeType = "action"
	Character     NodeType = "character"
	Dialogue      NodeType = "dialogue"
	Parenthetical NodeType = "parenthetical"
	Transition    NodeType = "transition"
	Paragraph     NodeType = "paragraph"
	DialogueBlock NodeType = "dialogue_block"
	SpeechFlow    NodeType = "speech_flow"
)

// LeafTypes lists every text-bearing type in a stable order.
var LeafTypes = []NodeType{SceneHeading, Action, Character, Dialogue, Parenthetical, Transition, Paragraph}

// PlainTypes are the types that only ever live at the top level.
var PlainTypes = []NodeType{SceneHeading, Action, Transition, Paragraph}

// IsLeaf reports whether t carries inline text.
func (t NodeType) IsLeaf() bool {
	switch t {
	case SceneHeading, Action, Character, Dialogue, Parenthetical, Transition, Paragraph:
		return true
	}
	return false
}

// IsContainer reports whether t holds child nodes.
func (t NodeType) IsContainer() bool {
	return t == Doc || t == DialogueBlock || t == SpeechFlow
}

// IsSegment reports whether t may appear inside a SpeechFlow.
func (t NodeType) IsSegment() bool { return t == Dialogue || t == Parenthetical }

// IsPlain reports whether t is one of the plain top-level types.
func (t NodeType) IsPlain() bool {
	switch t {
	case SceneHeading, Action, Transition, Paragraph:
		return true
	}
	return false
}

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool { return t.IsLeaf() || t.IsContainer() }

// Label returns a display label, e.g. "Scene Heading".
func (t NodeType) Label() string {
	parts := strings.Split(string(t), "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

// ParseNodeType accepts the persisted names plus a few common aliases
// ("scene", "heading", "paren", "block").
func ParseNodeType(s string) (NodeType, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.ReplaceAll(v, "-", "_")
	v = strings.ReplaceAll(v, " ", "_")
	switch v {
	case "scene", "heading", "sceneheading":
		return SceneHeading, nil
	case "paren":
		return Parenthetical, nil
	case "block", "dialogueblock":
		return DialogueBlock, nil
	case "speechflow":
		return SpeechFlow, nil
	}
	t := NodeType(v)
	if !t.Valid() {
		return "", fmt.Errorf("unknown node type %q", s)
	}
	return t, nil
}

// allowedChild reports whether child may appear under parent. Ordering
// constraints inside a DialogueBlock are checked by Validate.
func allowedChild(parent, child NodeType) bool {
	switch parent {
	case Doc:
		return child.IsLeaf() || child == DialogueBlock
	case DialogueBlock:
		return child == Character || child == SpeechFlow
	case SpeechFlow:
		return child.IsSegment()
	}
	return false
}
