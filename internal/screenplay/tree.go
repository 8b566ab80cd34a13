/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package screenplay

import "fmt"

// Spec is a value form of a subtree, used to build nodes and as the
// persisted JSON shape.
type Spec struct {
	Type    NodeType `json:"type" yaml:"type"`
	Text    string   `json:"text,omitempty" yaml:"text,omitempty"`
	Content []Spec   `json:"content,omitempty" yaml:"content,omitempty"`
}

// Leaf returns a leaf spec.
func Leaf(t NodeType, text string) Spec { return Spec{Type: t, Text: text} }

// Block returns a DialogueBlock spec. A nil character omits the Character
// node; segments become the SpeechFlow children.
func Block(character *string, segments ...Spec) Spec {
	var content []Spec
	if character != nil {
		content = append(content, Leaf(Character, *character))
	}
	content = append(content, Spec{Type: SpeechFlow, Content: segments})
	return Spec{Type: DialogueBlock, Content: content}
}

// Name is a helper for Block's character argument.
func Name(s string) *string { return &s }

func (d *Document) alloc(t NodeType, text string) NodeID {
	d.nodes = append(d.nodes, node{typ: t, text: text, alive: true})
	return NodeID(len(d.nodes) - 1)
}

// NewLeaf allocates a detached leaf.
func (d *Document) NewLeaf(t NodeType, text string) NodeID {
	return d.alloc(t, text)
}

// Build allocates a detached subtree from a spec.
func (d *Document) Build(s Spec) NodeID {
	id := d.alloc(s.Type, s.Text)
	for _, c := range s.Content {
		cid := d.Build(c)
		d.nodes[cid].parent = id
		d.nodes[id].children = append(d.nodes[id].children, cid)
	}
	return id
}

// NewDialogueBlock allocates a detached DialogueBlock. An empty character
// name still creates a Character node when withCharacter is true; segment ids
// must be detached nodes.
func (d *Document) NewDialogueBlock(withCharacter bool, character string, segments ...NodeID) NodeID {
	block := d.alloc(DialogueBlock, "")
	if withCharacter {
		c := d.alloc(Character, character)
		d.link(block, len(d.nodes[block].children), c)
	}
	flow := d.alloc(SpeechFlow, "")
	d.link(block, len(d.nodes[block].children), flow)
	for _, s := range segments {
		d.link(flow, len(d.nodes[flow].children), s)
	}
	return block
}

func (d *Document) link(parent NodeID, index int, child NodeID) {
	p := &d.nodes[parent]
	if index < 0 || index > len(p.children) {
		index = len(p.children)
	}
	p.children = append(p.children, NoNode)
	copy(p.children[index+1:], p.children[index:])
	p.children[index] = child
	d.nodes[child].parent = parent
}

// Insert attaches a detached node under parent at index. An index past the
// end appends.
func (d *Document) Insert(parent NodeID, index int, child NodeID) {
	p, c := d.get(parent), d.get(child)
	if p == nil || c == nil {
		panic(fmt.Sprintf("screenplay: insert of missing node parent=%d child=%d", parent, child))
	}
	if c.parent != NoNode {
		panic(fmt.Sprintf("screenplay: insert of attached node %d", child))
	}
	d.link(parent, index, child)
	d.touch()
}

// InsertAfter attaches child as the next sibling of ref.
func (d *Document) InsertAfter(ref, child NodeID) {
	d.Insert(d.Parent(ref), d.Index(ref)+1, child)
}

// InsertBefore attaches child as the previous sibling of ref.
func (d *Document) InsertBefore(ref, child NodeID) {
	d.Insert(d.Parent(ref), d.Index(ref), child)
}

// Append attaches child as the last child of parent.
func (d *Document) Append(parent, child NodeID) {
	d.Insert(parent, d.ChildCount(parent), child)
}

// Detach unlinks id from its parent and keeps it alive for re-insertion.
func (d *Document) Detach(id NodeID) {
	n := d.get(id)
	if n == nil || n.parent == NoNode {
		return
	}
	p := &d.nodes[n.parent]
	for i, c := range p.children {
		if c == id {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	n.parent = NoNode
	d.touch()
}

// Remove detaches id and frees its subtree.
func (d *Document) Remove(id NodeID) {
	if d.get(id) == nil || id == rootID {
		return
	}
	d.Detach(id)
	d.kill(id)
	d.touch()
}

func (d *Document) kill(id NodeID) {
	n := d.get(id)
	if n == nil {
		return
	}
	for _, c := range n.children {
		d.kill(c)
	}
	n.alive = false
	n.children = nil
}

// Replace splices the detached nodes with into id's position and frees id's
// subtree. Nodes of id's subtree that were detached beforehand survive.
func (d *Document) Replace(id NodeID, with ...NodeID) {
	parent, idx := d.Parent(id), d.Index(id)
	if idx < 0 {
		return
	}
	d.Remove(id)
	for i, w := range with {
		d.Insert(parent, idx+i, w)
	}
}

// SetText replaces a leaf's text.
func (d *Document) SetText(id NodeID, text string) {
	n := d.get(id)
	if n == nil || !n.typ.IsLeaf() {
		return
	}
	if n.text != text {
		n.text = text
		d.touch()
	}
}

// SetType retypes a leaf in place. Containers cannot be retyped.
func (d *Document) SetType(id NodeID, t NodeType) {
	n := d.get(id)
	if n == nil || !n.typ.IsLeaf() || !t.IsLeaf() {
		return
	}
	if n.typ != t {
		n.typ = t
		d.touch()
	}
}

// Spec returns the value form of the subtree at id.
func (d *Document) Spec(id NodeID) Spec {
	n := d.get(id)
	if n == nil {
		return Spec{}
	}
	s := Spec{Type: n.typ, Text: n.text}
	for _, c := range n.children {
		s.Content = append(s.Content, d.Spec(c))
	}
	return s
}

// Specs returns the top-level sequence as values.
func (d *Document) Specs() []Spec {
	return d.Spec(rootID).Content
}

// FromSpecs builds and validates a document from top-level specs.
func FromSpecs(specs []Spec) (*Document, error) {
	d := NewEmpty()
	for _, s := range specs {
		d.Append(rootID, d.Build(s))
	}
	if err := Validate(d); err != nil {
		return nil, err
	}
	d.rev = 0
	return d, nil
}

// MustFromSpecs is FromSpecs for fixtures; it panics on invalid input.
func MustFromSpecs(specs ...Spec) *Document {
	d, err := FromSpecs(specs)
	if err != nil {
		panic(err)
	}
	return d
}

// Path returns the child indices leading from the root to id.
func (d *Document) Path(id NodeID) []int {
	var rev []int
	for cur := id; cur != rootID && cur != NoNode; cur = d.Parent(cur) {
		i := d.Index(cur)
		if i < 0 {
			return nil
		}
		rev = append(rev, i)
	}
	out := make([]int, len(rev))
	for i := range rev {
		out[i] = rev[len(rev)-1-i]
	}
	return out
}

// Resolve walks a path from the root.
func (d *Document) Resolve(path []int) (NodeID, bool) {
	cur := rootID
	for _, i := range path {
		n := d.get(cur)
		if n == nil || i < 0 || i >= len(n.children) {
			return NoNode, false
		}
		cur = n.children[i]
	}
	return cur, true
}
