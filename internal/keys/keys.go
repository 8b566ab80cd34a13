/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package keys names key events the way rule tables spell them:
// "Enter", "Shift-Enter", "Mod-Alt-1", "(".
package keys

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// Modifiers is a bitmask of held modifier keys.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModAlt
	// Mod is the platform command key: Ctrl on Linux/Windows, Cmd on macOS.
	Mod
)

const (
	Enter     = "Enter"
	Backspace = "Backspace"
	Delete    = "Delete"
	Tab       = "Tab"
	Escape    = "Escape"
	Left      = "ArrowLeft"
	Right     = "ArrowRight"
	Up        = "ArrowUp"
	Down      = "ArrowDown"
	Home      = "Home"
	End       = "End"
	Space     = "Space"
)

// Has reports whether all bits of m2 are set.
func (m Modifiers) Has(m2 Modifiers) bool { return m&m2 == m2 }

// String renders the modifier prefix, e.g. "Mod-Alt-".
func (m Modifiers) String() string {
	var b strings.Builder
	if m.Has(Mod) {
		b.WriteString("Mod-")
	}
	if m.Has(ModAlt) {
		b.WriteString("Alt-")
	}
	if m.Has(ModShift) {
		b.WriteString("Shift-")
	}
	return b.String()
}

// Name combines a base key and modifiers into a rule-table name. Shift is
// dropped for printable single characters, whose shifted form is already
// the key itself ("(" rather than "Shift-(").
func Name(key string, mods Modifiers) string {
	if isPrintable(key) {
		mods &^= ModShift
	}
	return mods.String() + key
}

// Parse splits a rule-table name into base key and modifiers. The prefixes
// "Ctrl-", "Cmd-" and "Meta-" are accepted as aliases of "Mod-".
func Parse(name string) (string, Modifiers, error) {
	var mods Modifiers
	rest := name
	for {
		i := strings.IndexByte(rest, '-')
		if i <= 0 || i == len(rest)-1 {
			break
		}
		switch strings.ToLower(rest[:i]) {
		case "mod", "ctrl", "cmd", "meta":
			mods |= Mod
		case "alt", "option":
			mods |= ModAlt
		case "shift":
			mods |= ModShift
		default:
			return "", 0, fmt.Errorf("unknown modifier %q in key %q", rest[:i], name)
		}
		rest = rest[i+1:]
	}
	if rest == "" {
		return "", 0, fmt.Errorf("empty key name %q", name)
	}
	return canonical(rest), mods, nil
}

// Canonical normalizes a full key name, e.g. "ctrl-alt-1" to "Mod-Alt-1".
func Canonical(name string) (string, error) {
	k, m, err := Parse(name)
	if err != nil {
		return "", err
	}
	return Name(k, m), nil
}

func canonical(k string) string {
	switch strings.ToLower(k) {
	case "enter", "return":
		return Enter
	case "backspace":
		return Backspace
	case "delete", "del":
		return Delete
	case "tab":
		return Tab
	case "escape", "esc":
		return Escape
	case "arrowleft", "left":
		return Left
	case "arrowright", "right":
		return Right
	case "arrowup", "up":
		return Up
	case "arrowdown", "down":
		return Down
	case "home":
		return Home
	case "end":
		return End
	case "space":
		return Space
	}
	return k
}

func isPrintable(key string) bool {
	r := []rune(key)
	return len(r) == 1 && r[0] > ' '
}

// FromTcell maps a terminal key event to a base key and modifiers.
func FromTcell(ev *tcell.EventKey) (string, Modifiers) {
	var mods Modifiers
	tm := ev.Modifiers()
	if tm&tcell.ModShift != 0 {
		mods |= ModShift
	}
	if tm&tcell.ModAlt != 0 {
		mods |= ModAlt
	}
	if tm&(tcell.ModCtrl|tcell.ModMeta) != 0 {
		mods |= Mod
	}
	switch ev.Key() {
	case tcell.KeyRune:
		r := ev.Rune()
		if r == ' ' {
			return Space, mods
		}
		return string(r), mods
	case tcell.KeyEnter:
		return Enter, mods
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return Backspace, mods
	case tcell.KeyDelete:
		return Delete, mods
	case tcell.KeyTab:
		return Tab, mods
	case tcell.KeyBacktab:
		return Tab, mods | ModShift
	case tcell.KeyEscape:
		return Escape, mods
	case tcell.KeyLeft:
		return Left, mods
	case tcell.KeyRight:
		return Right, mods
	case tcell.KeyUp:
		return Up, mods
	case tcell.KeyDown:
		return Down, mods
	case tcell.KeyHome:
		return Home, mods
	case tcell.KeyEnd:
		return End, mods
	}
	return ev.Name(), mods
}
