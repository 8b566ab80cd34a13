/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"unicode"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"goscreenwriter/internal/keys"
	"goscreenwriter/internal/layout"
	applog "goscreenwriter/internal/log"
	sp "goscreenwriter/internal/screenplay"
	"goscreenwriter/internal/session"
)

var editCmd = &cobra.Command{
	Use:   "edit <file>",
	Short: "Edit a document in the terminal",
	Long: `Opens the document in a full-screen terminal editor. Keys go through the same rule table as replay.

  Ctrl-S  write the document back to <file>
  Ctrl-Q  quit`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		d, err := loadDocument(path)
		if err != nil {
			return err
		}
		s, err := newSession(d)
		if err != nil {
			return err
		}
		defer s.Close()
		armCrashAutosave(docID(path), s)

		g, err := appCfg.Format.Geometry()
		if err != nil {
			return err
		}
		scr, err := tcell.NewScreen()
		if err != nil {
			return err
		}
		if err := scr.Init(); err != nil {
			return err
		}
		defer scr.Fini()

		ed := newEditor(s, g, appCfg.Format.CellWidth)
		ed.title = path
		ed.save = func(doc *sp.Document) error {
			return writeDocument(io.Discard, path, doc)
		}
		ed.run(scr)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
}

// editor is a minimal terminal host: one screen row per text node, indented
// by the element's geometry.
type editor struct {
	s      *session.Session
	geo    layout.Geometry
	cell   float64
	title  string
	status string
	top    int
	save   func(*sp.Document) error
	log    *slog.Logger
}

func newEditor(s *session.Session, g layout.Geometry, cell float64) *editor {
	if cell <= 0 {
		cell = 7.2
	}
	return &editor{s: s, geo: g, cell: cell, log: applog.WithComponent("edit")}
}

func (e *editor) run(scr tcell.Screen) {
	e.render(scr)
	for {
		switch ev := scr.PollEvent().(type) {
		case nil:
			return
		case *tcell.EventKey:
			if e.handle(ev) {
				return
			}
		case *tcell.EventResize:
			scr.Sync()
		}
		e.render(scr)
	}
}

// ctrl reports a Ctrl-letter chord in either form tcell delivers it.
func ctrl(ev *tcell.EventKey, k tcell.Key, letter rune) bool {
	if ev.Key() == k {
		return true
	}
	return ev.Key() == tcell.KeyRune && ev.Modifiers()&tcell.ModCtrl != 0 && unicode.ToLower(ev.Rune()) == letter
}

// handle applies one key event and reports whether the editor should quit.
func (e *editor) handle(ev *tcell.EventKey) bool {
	switch {
	case ctrl(ev, tcell.KeyCtrlQ, 'q'):
		return true
	case ctrl(ev, tcell.KeyCtrlS, 's'):
		if e.save == nil {
			return false
		}
		if err := e.save(e.s.Document()); err != nil {
			e.status = "save failed: " + err.Error()
			e.log.Error("save failed", slog.Any("err", err))
		} else {
			e.status = "saved"
		}
		return false
	}
	name, mods := keys.FromTcell(ev)
	changed := e.s.Press(name, mods)
	e.status = ""
	e.log.Debug("key", slog.String("key", keys.Name(name, mods)), slog.Bool("changed", changed))
	return false
}

func (e *editor) column(t sp.NodeType) int {
	return int(math.Round(e.geo.ElementFor(t).Indent / e.cell))
}

func (e *editor) render(scr tcell.Screen) {
	scr.Clear()
	w, h := scr.Size()
	body := h - 1
	d := e.s.Document()
	sel := e.s.Selection()
	leaves := d.Leaves()

	caretRow, caretCol := 0, 0
	for i, id := range leaves {
		if id == sel.Head.Node {
			before, _ := sp.SplitText(d.Text(id), sel.Head.Offset)
			caretRow, caretCol = i, e.column(d.Type(id))+runewidth.StringWidth(before)
		}
	}
	if caretRow < e.top {
		e.top = caretRow
	}
	if body > 0 && caretRow >= e.top+body {
		e.top = caretRow - body + 1
	}

	for row := 0; row < body && e.top+row < len(leaves); row++ {
		id := leaves[e.top+row]
		drawText(scr, e.column(d.Type(id)), row, w, d.Text(id), tcell.StyleDefault)
	}
	status := fmt.Sprintf(" %s  %s  %s", e.title, d.Type(sel.Head.Node), e.status)
	drawText(scr, 0, h-1, w, status, tcell.StyleDefault.Reverse(true))
	scr.ShowCursor(caretCol, caretRow-e.top)
	scr.Show()
}

func drawText(scr tcell.Screen, x, y, w int, text string, style tcell.Style) {
	for _, r := range text {
		if x >= w {
			return
		}
		scr.SetContent(x, y, r, nil, style)
		x += runewidth.RuneWidth(r)
	}
}
