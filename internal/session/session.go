/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session ties one document to the editing machinery: the
// transition engine with the dialogue commands, undo history and debounced
// pagination. A Session is the object hosts talk to.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"goscreenwriter/internal/dialogue"
	"goscreenwriter/internal/keys"
	"goscreenwriter/internal/layout"
	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/pagination"
	sp "goscreenwriter/internal/screenplay"
	"goscreenwriter/internal/telemetry"
	"goscreenwriter/internal/transitions"
	"goscreenwriter/internal/undo"
)

// Options configures a Session. Zero values select the built-in defaults.
type Options struct {
	// ID tags log records; a random id is generated when empty.
	ID         string
	Rules      []transitions.Rule
	DocType    string
	LayoutMode string
	RetryLimit int
	TabCycle   []sp.NodeType
	// Normalize merges split cue/speech pairs across the whole document
	// before the first edit.
	Normalize bool

	Measurer   layout.Measurer
	Geometry   *layout.Geometry
	Pagination *pagination.Config
	// Debounce delays scheduled pagination; layout.DefaultDebounce when zero.
	Debounce time.Duration
	// OnPaginate receives every scheduled pagination result. It runs on the
	// scheduler's goroutine.
	OnPaginate func(pagination.Result)

	History *undo.History
	Metrics *telemetry.Recorder
	Log     *slog.Logger
}

// Session is the editing state of one open document. Its methods are safe
// to call from several goroutines; edits are serialized.
type Session struct {
	mu sync.Mutex

	id      string
	ctx     context.Context
	st      *sp.State
	engine  *transitions.Engine
	history *undo.History
	metrics *telemetry.Recorder
	log     *slog.Logger

	measurer   layout.Measurer
	geometry   layout.Geometry
	pcfg       pagination.Config
	onPaginate func(pagination.Result)
	sched      *layout.Scheduler
	breaks     pagination.Result
	breaksRev  uint64
	paginated  bool
}

// DefaultPagination is a US-letter page in points.
func DefaultPagination() pagination.Config {
	return pagination.Config{
		PageHeight:    792,
		MarginTop:     72,
		MarginBottom:  72,
		PageGap:       24,
		DefaultPolicy: pagination.BlockOnly,
	}
}

// New opens a session on doc. The document must satisfy the grammar; rules
// that reference unknown commands are logged and later fall through.
func New(doc *sp.Document, opts Options) (*Session, error) {
	if err := sp.Validate(doc); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	l := opts.Log
	if l == nil {
		l = applog.WithComponent("session")
	}
	l = l.With(slog.String("session", id))

	rules := opts.Rules
	if rules == nil {
		rules = transitions.DefaultRules()
	}
	docType := opts.DocType
	if docType == "" {
		docType = transitions.DocScreenplay
	}
	reg := transitions.NewRegistry()
	dialogue.Register(reg, dialogue.Options{TabCycle: opts.TabCycle, Metrics: opts.Metrics, Log: opts.Log})
	if err := reg.Check(rules); err != nil {
		l.Warn("rule table references unknown commands", slog.Any("err", err))
	}

	s := &Session{
		id:      id,
		ctx:     applog.WithSession(context.Background(), id),
		st:      sp.NewState(doc),
		history: opts.History,
		metrics: opts.Metrics,
		log:     l,
		engine: &transitions.Engine{
			Rules:      rules,
			Registry:   reg,
			DocType:    docType,
			LayoutMode: opts.LayoutMode,
			RetryLimit: opts.RetryLimit,
			After:      dialogue.AfterTransaction(opts.Metrics),
			Log:        opts.Log,
			Metrics:    opts.Metrics,
		},
		measurer:   opts.Measurer,
		geometry:   layout.DefaultGeometry(),
		pcfg:       DefaultPagination(),
		onPaginate: opts.OnPaginate,
	}
	if s.history == nil {
		s.history = undo.NewHistory(undo.Config{})
	}
	if s.measurer == nil {
		s.measurer = layout.CellMeasurer{}
	}
	if opts.Geometry != nil {
		s.geometry = *opts.Geometry
	}
	if opts.Pagination != nil {
		if err := opts.Pagination.Validate(); err != nil {
			return nil, fmt.Errorf("open session: %w", err)
		}
		s.pcfg = *opts.Pagination
	}
	if opts.Normalize {
		if n := dialogue.NormalizeDocument(s.st); n > 0 {
			opts.Metrics.Merged(n)
			l.Info("document normalized on open", slog.Int("merged", n))
		}
	}
	s.sched = layout.NewScheduler(opts.Debounce, s.scheduledPaginate)
	return s, nil
}

// ID returns the session id used in log records.
func (s *Session) ID() string { return s.id }

// Close stops scheduled pagination.
func (s *Session) Close() { s.sched.Stop() }

// Document returns a copy of the current tree.
func (s *Session) Document() *sp.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Doc.Clone()
}

// Selection returns the current selection.
func (s *Session) Selection() sp.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Sel
}

// Select sets the selection. Both ends are clamped into text nodes.
func (s *Session) Select(anchor, head sp.Cursor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.st.Doc
	s.st.Sel = sp.Selection{Anchor: d.ClampCursor(anchor), Head: d.ClampCursor(head)}
}

// PlaceAt collapses the caret at a node path (child indices from the root).
func (s *Session) PlaceAt(path []int, offset int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.st.Doc.Resolve(path)
	if !ok || !s.st.Doc.Type(id).IsLeaf() {
		return fmt.Errorf("no text node at path %v", path)
	}
	s.st.Place(id, offset)
	return nil
}

// HandleKey routes one key event through the rule table. It reports whether
// the event was consumed; false means the host should apply its default
// editing. The tree is never left in an invalid state.
func (s *Session) HandleKey(key string, mods keys.Modifiers) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.handleLocked(keys.Name(key, mods))
	return out.Consumed
}

func (s *Session) handleLocked(name string) transitions.Outcome {
	before, err := encodeState(s.st)
	if err != nil {
		s.log.ErrorContext(s.ctx, "snapshot for undo failed", slog.Any("err", err))
	}
	out := s.engine.Handle(s.ctx, s.st, name)
	if out.Changed {
		label := name
		if out.Rule != nil {
			label = out.Rule.ID
		}
		s.recordLocked(before, label)
	}
	return out
}

// ConvertNodeType retypes the caret's text node, restructuring dialogue
// blocks as needed. It reports whether the tree changed.
func (s *Session) ConvertNodeType(target sp.NodeType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	before, err := encodeState(s.st)
	if err != nil {
		s.log.ErrorContext(s.ctx, "snapshot for undo failed", slog.Any("err", err))
	}
	out := s.engine.Invoke(s.ctx, s.st, transitions.CmdConvertNodeType, transitions.Args{"target": string(target)})
	if !out.Changed {
		if out.Err != nil {
			s.log.WarnContext(s.ctx, "convert refused", slog.String("target", string(target)), slog.Any("err", out.Err))
		}
		return false
	}
	s.recordLocked(before, "convert")
	return true
}

// Press is HandleKey followed by the built-in editing when the rule table
// does not consume the key. It reports whether anything happened.
func (s *Session) Press(key string, mods keys.Modifiers) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pressLocked(keys.Name(key, mods))
}

func (s *Session) pressLocked(name string) bool {
	out := s.handleLocked(name)
	if out.Consumed {
		return true
	}
	// Modified chords have no built-in meaning.
	base, mods, err := keys.Parse(name)
	if err != nil || mods.Has(keys.Mod) || mods.Has(keys.ModAlt) {
		return out.Changed
	}
	before, _ := encodeState(s.st)
	snap := s.st.Clone()
	changed, label := defaultEdit(s.st, base)
	if !changed {
		return out.Changed
	}
	if err := sp.Validate(s.st.Doc); err != nil {
		s.st.Doc.Restore(snap.Doc)
		s.st.Sel = snap.Sel
		s.log.ErrorContext(s.ctx, "default edit broke grammar, rolled back", slog.String("key", name), slog.Any("err", err))
		return out.Changed
	}
	if label != "" {
		s.recordLocked(before, label)
	}
	return true
}

// TypeText presses each rune of text in turn, so typed characters go
// through the rule table like real keystrokes.
func (s *Session) TypeText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range text {
		name := string(r)
		switch r {
		case ' ':
			name = keys.Space
		case '\n':
			name = keys.Enter
		}
		s.pressLocked(name)
	}
}

// Edit applies a programmatic change as one undoable step. If fn fails or
// leaves the tree invalid, the change is rolled back.
func (s *Session) Edit(label string, fn func(st *sp.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	before, _ := encodeState(s.st)
	snap := s.st.Clone()
	err := fn(s.st)
	if err == nil {
		s.st.Sel = s.st.Doc.ClampSelection(s.st.Sel)
		err = sp.Validate(s.st.Doc)
	}
	if err != nil {
		s.st.Doc.Restore(snap.Doc)
		s.st.Sel = snap.Sel
		return fmt.Errorf("edit %s: %w", label, err)
	}
	if s.st.Doc.Revision() != snap.Doc.Revision() {
		s.recordLocked(before, label)
	}
	return nil
}

// Undo restores the state before the latest edit.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.travelLocked(s.history.Undo)
}

// Redo reapplies the latest undone edit.
func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.travelLocked(s.history.Redo)
}

func (s *Session) travelLocked(step func(doc string, current []byte) (undo.Snapshot, bool)) bool {
	cur, err := encodeState(s.st)
	if err != nil {
		s.log.ErrorContext(s.ctx, "snapshot for undo failed", slog.Any("err", err))
		return false
	}
	snap, ok := step(s.id, cur)
	if !ok {
		return false
	}
	if err := decodeState(snap.State, s.st); err != nil {
		s.log.ErrorContext(s.ctx, "history entry unreadable", slog.Any("err", err))
		return false
	}
	s.requestLocked()
	return true
}

func (s *Session) recordLocked(before []byte, label string) {
	if before != nil {
		s.history.Record(undo.Snapshot{Doc: s.id, State: before, Label: label, TS: time.Now()})
	}
	s.requestLocked()
}

// Replace swaps in a new document, e.g. after a reload. History is cleared.
func (s *Session) Replace(doc *sp.Document) error {
	if err := sp.Validate(doc); err != nil {
		return fmt.Errorf("replace document: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.Doc.Restore(doc)
	s.st.Sel = sp.Caret(sp.At(s.st.Doc.FirstLeaf(s.st.Doc.Root()), 0))
	s.history.Clear(s.id)
	s.requestLocked()
	return nil
}

// SetLayout changes measurement inputs, e.g. on a viewport or format
// change, and schedules pagination.
func (s *Session) SetLayout(m layout.Measurer, g layout.Geometry, cfg pagination.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if m != nil {
		s.measurer = m
	}
	s.geometry = g
	s.pcfg = cfg
	s.paginated = false
	s.requestLocked()
	return nil
}

func (s *Session) requestLocked() { s.sched.Request() }

// Paginate measures the document and computes page breaks now.
func (s *Session) Paginate() pagination.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paginateLocked()
}

func (s *Session) paginateLocked() pagination.Result {
	if s.paginated && s.breaksRev == s.st.Doc.Revision() {
		return s.breaks
	}
	blocks := layout.Measure(s.st.Doc, s.measurer, s.geometry)
	res := pagination.ComputeBreaks(blocks, s.pcfg)
	s.breaks, s.breaksRev, s.paginated = res, s.st.Doc.Revision(), true
	s.metrics.Paginated(res.PageCount, res.Reasons())
	s.log.DebugContext(s.ctx, "paginated", slog.Int("pages", res.PageCount), slog.Int("markers", len(res.Markers)))
	return res
}

func (s *Session) scheduledPaginate() {
	s.mu.Lock()
	res := s.paginateLocked()
	cb := s.onPaginate
	s.mu.Unlock()
	if cb != nil {
		cb(res)
	}
}

// Breaks returns the latest pagination result and whether it matches the
// current tree.
func (s *Session) Breaks() (pagination.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.breaks, s.paginated && s.breaksRev == s.st.Doc.Revision()
}

// FlushPagination runs a pending scheduled pagination immediately.
func (s *Session) FlushPagination() bool { return s.sched.Flush() }

// PaginationPending reports whether a scheduled run is waiting.
func (s *Session) PaginationPending() bool { return s.sched.Pending() }

type savedCursor struct {
	Path   []int `json:"path"`
	Offset int   `json:"offset"`
}

type savedState struct {
	Doc    *sp.Document `json:"doc"`
	Anchor savedCursor  `json:"anchor"`
	Head   savedCursor  `json:"head"`
}

// encodeState serializes the tree and selection. Cursors are stored as
// paths because node ids do not survive a JSON round trip.
func encodeState(st *sp.State) ([]byte, error) {
	d := st.Doc
	save := func(c sp.Cursor) savedCursor {
		c = d.ClampCursor(c)
		return savedCursor{Path: d.Path(c.Node), Offset: c.Offset}
	}
	return json.Marshal(savedState{Doc: d, Anchor: save(st.Sel.Anchor), Head: save(st.Sel.Head)})
}

func decodeState(b []byte, st *sp.State) error {
	var saved savedState
	if err := json.Unmarshal(b, &saved); err != nil {
		return err
	}
	if saved.Doc == nil {
		return fmt.Errorf("history entry without document")
	}
	st.Doc.Restore(saved.Doc)
	load := func(c savedCursor) sp.Cursor {
		id, ok := st.Doc.Resolve(c.Path)
		if !ok {
			id = st.Doc.FirstLeaf(st.Doc.Root())
		}
		return st.Doc.ClampCursor(sp.At(id, c.Offset))
	}
	st.Sel = sp.Selection{Anchor: load(saved.Anchor), Head: load(saved.Head)}
	return nil
}
