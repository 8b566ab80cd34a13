/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package screenplay holds the typed screenplay tree: node types and their
// containment grammar, an arena-backed Document with splice-style mutation
// primitives, cursor/selection addressing and invariant validation.
//
// Nodes live in an indexed arena. A NodeID is stable for the lifetime of the
// node; moving a subtree (Detach + Insert) keeps its ids, so a cursor that
// points into a moved node stays valid.
package screenplay

import (
	"errors"
	"unicode/utf8"
)

// NodeID addresses a node in a Document arena. The zero value means "no node".
type NodeID int

const NoNode NodeID = 0

// rootID is the fixed id of the Doc node.
const rootID NodeID = 1

var (
	// ErrStale reports that a mutation was computed against a snapshot that no
	// longer matches the live tree.
	ErrStale = errors.New("stale snapshot")
	// ErrInvariant reports a grammar violation or a refused guard.
	ErrInvariant = errors.New("structural invariant violated")
)

type node struct {
	typ      NodeType
	text     string
	parent   NodeID
	children []NodeID
	alive    bool
}

// Document is the screenplay tree. It is owned by one editing session and is
// not safe for concurrent mutation.
type Document struct {
	nodes []node // index is the NodeID; slot 0 is unused
	rev   uint64
}

// NewEmpty returns a document with a root and no top-level nodes. Callers
// must insert at least one node before handing it to a session.
func NewEmpty() *Document {
	d := &Document{nodes: make([]node, 2, 16)}
	d.nodes[rootID] = node{typ: Doc, alive: true}
	return d
}

// NewDefault returns the default document: a single empty Paragraph.
func NewDefault() *Document {
	d := NewEmpty()
	d.Insert(rootID, 0, d.NewLeaf(Paragraph, ""))
	d.rev = 0
	return d
}

// Root returns the id of the Doc node.
func (d *Document) Root() NodeID { return rootID }

// Revision increments on every mutation.
func (d *Document) Revision() uint64 { return d.rev }

func (d *Document) touch() { d.rev++ }

func (d *Document) get(id NodeID) *node {
	if id <= NoNode || int(id) >= len(d.nodes) {
		return nil
	}
	n := &d.nodes[id]
	if !n.alive {
		return nil
	}
	return n
}

// Has reports whether id refers to a live node.
func (d *Document) Has(id NodeID) bool { return d.get(id) != nil }

// Attached reports whether id is live and reachable from the root.
func (d *Document) Attached(id NodeID) bool {
	for cur := id; cur != NoNode; {
		n := d.get(cur)
		if n == nil {
			return false
		}
		if cur == rootID {
			return true
		}
		cur = n.parent
	}
	return false
}

// Type returns the node type, or "" for a missing node.
func (d *Document) Type(id NodeID) NodeType {
	if n := d.get(id); n != nil {
		return n.typ
	}
	return ""
}

// Text returns the inline text of a leaf.
func (d *Document) Text(id NodeID) string {
	if n := d.get(id); n != nil {
		return n.text
	}
	return ""
}

// Len returns the text length of a leaf in runes.
func (d *Document) Len(id NodeID) int { return utf8.RuneCountInString(d.Text(id)) }

// Parent returns the parent id, NoNode for the root or detached nodes.
func (d *Document) Parent(id NodeID) NodeID {
	if n := d.get(id); n != nil {
		return n.parent
	}
	return NoNode
}

// Children returns a copy of the child list.
func (d *Document) Children(id NodeID) []NodeID {
	n := d.get(id)
	if n == nil {
		return nil
	}
	return append([]NodeID(nil), n.children...)
}

// ChildCount returns the number of children.
func (d *Document) ChildCount(id NodeID) int {
	if n := d.get(id); n != nil {
		return len(n.children)
	}
	return 0
}

// Top returns the top-level sequence.
func (d *Document) Top() []NodeID { return d.Children(rootID) }

// Index returns the position of id in its parent's child list, or -1.
func (d *Document) Index(id NodeID) int {
	p := d.get(d.Parent(id))
	if p == nil {
		return -1
	}
	for i, c := range p.children {
		if c == id {
			return i
		}
	}
	return -1
}

// Next returns the following sibling or NoNode.
func (d *Document) Next(id NodeID) NodeID {
	i := d.Index(id)
	if i < 0 {
		return NoNode
	}
	sibs := d.nodes[d.Parent(id)].children
	if i+1 < len(sibs) {
		return sibs[i+1]
	}
	return NoNode
}

// Prev returns the preceding sibling or NoNode.
func (d *Document) Prev(id NodeID) NodeID {
	i := d.Index(id)
	if i <= 0 {
		return NoNode
	}
	return d.nodes[d.Parent(id)].children[i-1]
}

// Ancestor walks up from id (inclusive) and returns the first node of type t.
func (d *Document) Ancestor(id NodeID, t NodeType) NodeID {
	for cur := id; cur != NoNode; cur = d.Parent(cur) {
		if d.Type(cur) == t {
			return cur
		}
	}
	return NoNode
}

// TopLevel returns the top-level node containing id (inclusive).
func (d *Document) TopLevel(id NodeID) NodeID {
	for cur := id; cur != NoNode; cur = d.Parent(cur) {
		if d.Parent(cur) == rootID {
			return cur
		}
	}
	return NoNode
}

// ChildOfType returns the first child of id with type t.
func (d *Document) ChildOfType(id NodeID, t NodeType) NodeID {
	n := d.get(id)
	if n == nil {
		return NoNode
	}
	for _, c := range n.children {
		if d.Type(c) == t {
			return c
		}
	}
	return NoNode
}

// Leaves returns every attached text-bearing node in document order.
func (d *Document) Leaves() []NodeID {
	var out []NodeID
	var walk func(NodeID)
	walk = func(id NodeID) {
		n := d.get(id)
		if n == nil {
			return
		}
		if n.typ.IsLeaf() {
			out = append(out, id)
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(rootID)
	return out
}

// FirstLeaf returns the first text-bearing node inside id (inclusive).
func (d *Document) FirstLeaf(id NodeID) NodeID {
	n := d.get(id)
	if n == nil {
		return NoNode
	}
	if n.typ.IsLeaf() {
		return id
	}
	for _, c := range n.children {
		if l := d.FirstLeaf(c); l != NoNode {
			return l
		}
	}
	return NoNode
}

// LastLeaf returns the last text-bearing node inside id (inclusive).
func (d *Document) LastLeaf(id NodeID) NodeID {
	n := d.get(id)
	if n == nil {
		return NoNode
	}
	if n.typ.IsLeaf() {
		return id
	}
	for i := len(n.children) - 1; i >= 0; i-- {
		if l := d.LastLeaf(n.children[i]); l != NoNode {
			return l
		}
	}
	return NoNode
}

// Clone returns a deep copy. Node ids are preserved.
func (d *Document) Clone() *Document {
	cp := &Document{nodes: make([]node, len(d.nodes)), rev: d.rev}
	for i, n := range d.nodes {
		n.children = append([]NodeID(nil), n.children...)
		cp.nodes[i] = n
	}
	return cp
}

// Restore replaces d's contents with src's, keeping the revision counter
// monotonic so snapshots taken before the restore are detected as stale.
func (d *Document) Restore(src *Document) {
	rev := d.rev
	c := src.Clone()
	d.nodes = c.nodes
	d.rev = rev + 1
}
