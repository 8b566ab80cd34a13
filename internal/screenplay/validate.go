/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package screenplay

import (
	"errors"
	"fmt"
)

// Validate checks the containment grammar of the attached tree. All
// violations are joined into one error wrapping ErrInvariant.
func Validate(d *Document) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvariant}, args...)...))
	}
	root := d.get(rootID)
	if root == nil || root.typ != Doc {
		return fmt.Errorf("%w: missing root", ErrInvariant)
	}
	if len(root.children) == 0 {
		add("document has no top-level nodes")
	}
	var walk func(id NodeID)
	walk = func(id NodeID) {
		n := d.get(id)
		for _, c := range n.children {
			cn := d.get(c)
			if cn == nil {
				add("node %d references missing child %d", id, c)
				continue
			}
			if cn.parent != id {
				add("node %d has parent %d, expected %d", c, cn.parent, id)
			}
			if !allowedChild(n.typ, cn.typ) {
				add("%s not allowed inside %s (path %v)", cn.typ, n.typ, d.Path(c))
			}
			if cn.typ.IsContainer() && cn.text != "" {
				add("container %s carries text (path %v)", cn.typ, d.Path(c))
			}
			if cn.typ.IsLeaf() && len(cn.children) > 0 {
				add("leaf %s has children (path %v)", cn.typ, d.Path(c))
			}
			walk(c)
		}
		if n.typ == DialogueBlock {
			validateBlock(d, id, n, add)
		}
	}
	walk(rootID)
	return errors.Join(errs...)
}

func validateBlock(d *Document, id NodeID, n *node, add func(string, ...any)) {
	chars, flows := 0, 0
	for i, c := range n.children {
		switch d.Type(c) {
		case Character:
			chars++
			if i != 0 {
				add("character must be the first child of its dialogue block (path %v)", d.Path(id))
			}
		case SpeechFlow:
			flows++
			if i != len(n.children)-1 {
				add("speech flow must be the last child of its dialogue block (path %v)", d.Path(id))
			}
		}
	}
	if chars > 1 {
		add("dialogue block has %d characters (path %v)", chars, d.Path(id))
	}
	if flows != 1 {
		add("dialogue block has %d speech flows (path %v)", flows, d.Path(id))
	}
}
