/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dialogue

import (
	"fmt"
	"log/slog"

	applog "goscreenwriter/internal/log"
	sp "goscreenwriter/internal/screenplay"
	"goscreenwriter/internal/telemetry"
	"goscreenwriter/internal/transitions"
)

// Options configures the command set.
type Options struct {
	// TabCycle is the element order for cycleNodeType; DefaultTabCycle when empty.
	TabCycle []sp.NodeType
	Metrics  *telemetry.Recorder
	Log      *slog.Logger
}

type commands struct {
	opts Options
	log  *slog.Logger
}

// Register installs the dialogue commands under the ids the built-in rule
// table refers to.
func Register(reg *transitions.Registry, opts Options) {
	c := &commands{opts: opts, log: opts.Log}
	if c.log == nil {
		c.log = applog.WithComponent("dialogue")
	}
	reg.Register(transitions.CmdSplitSegmentAtCursor, c.splitSegment)
	reg.Register(transitions.CmdInsertParentheticalPair, c.insertParentheticalPair)
	reg.Register(transitions.CmdFocusFirstSpeechSegmentOrCreate, c.focusFirstSegment)
	reg.Register(transitions.CmdInsertActionAfterDialogueBlock, c.insertActionAfterBlock)
	reg.Register(transitions.CmdMoveToOrCreateNextDialogue, c.moveToNextDialogue)
	reg.Register(transitions.CmdDeleteEmptyDialogueBlock, c.deleteEmptyBlock)
	reg.Register(transitions.CmdDeleteEmptySegment, c.deleteEmptySegment)
	reg.Register(transitions.CmdInsertDialogueBlockFromCharacter, c.blockFromCharacter)
	reg.Register(transitions.CmdAppendSpeechSegment, c.appendSpeechSegment)
	reg.Register(transitions.CmdConvertNodeType, c.convert)
	reg.Register(transitions.CmdCycleNodeType, c.cycle)
	reg.Register(transitions.CmdInsertNodeAfterAndFocus, c.insertNodeAfter)
}

// AfterTransaction returns the hook the engine runs after each successful
// transaction: local normalization around the caret.
func AfterTransaction(m *telemetry.Recorder) func(*sp.State) {
	return func(st *sp.State) {
		m.Merged(Normalize(st))
	}
}

func kindArg(args transitions.Args, key string, def sp.NodeType) (sp.NodeType, error) {
	var raw map[string]string
	if err := args.Decode(&raw); err != nil {
		return "", err
	}
	v, ok := raw[key]
	if !ok || v == "" {
		return def, nil
	}
	return sp.ParseNodeType(v)
}

func (c *commands) splitSegment(st *sp.State, ctx transitions.Context, args transitions.Args) (bool, error) {
	if err := ctx.Fresh(st); err != nil {
		return false, err
	}
	kind, err := kindArg(args, "kind", sp.Dialogue)
	if err != nil {
		return false, err
	}
	if ctx.Segment == sp.NoNode {
		return false, nil
	}
	return SplitSegment(st, ctx.Segment, ctx.Offset, kind), nil
}

func (c *commands) insertParentheticalPair(st *sp.State, ctx transitions.Context, _ transitions.Args) (bool, error) {
	if err := ctx.Fresh(st); err != nil {
		return false, err
	}
	if ctx.Segment == sp.NoNode {
		return false, nil
	}
	return InsertParentheticalPair(st, ctx.Segment, ctx.Offset), nil
}

func (c *commands) focusFirstSegment(st *sp.State, ctx transitions.Context, _ transitions.Args) (bool, error) {
	if err := ctx.Fresh(st); err != nil {
		return false, err
	}
	if !ctx.InDialogueBlock() {
		return false, nil
	}
	return FocusFirstSpeechSegment(st, ctx.DialogueBlock), nil
}

func (c *commands) insertActionAfterBlock(st *sp.State, ctx transitions.Context, args transitions.Args) (bool, error) {
	if err := ctx.Fresh(st); err != nil {
		return false, err
	}
	var a struct {
		RemoveEmptySegment bool `arg:"removeEmptySegment"`
	}
	if err := args.Decode(&a); err != nil {
		return false, err
	}
	if !ctx.InDialogueBlock() {
		return false, nil
	}
	return InsertActionAfterBlock(st, ctx.DialogueBlock, ctx.Segment, a.RemoveEmptySegment), nil
}

func (c *commands) moveToNextDialogue(st *sp.State, ctx transitions.Context, _ transitions.Args) (bool, error) {
	if err := ctx.Fresh(st); err != nil {
		return false, err
	}
	if ctx.Segment == sp.NoNode {
		return false, nil
	}
	return MoveToNextDialogue(st, ctx.Segment), nil
}

func (c *commands) deleteEmptyBlock(st *sp.State, ctx transitions.Context, _ transitions.Args) (bool, error) {
	if err := ctx.Fresh(st); err != nil {
		return false, err
	}
	if ctx.Parent != ctx.Character || ctx.Character == sp.NoNode || !ctx.ParentEmpty() || !ctx.SelectionEmpty {
		return false, nil
	}
	ok := DeleteEmptyBlock(st, ctx.DialogueBlock)
	if !ok {
		c.log.Debug("kept last dialogue block", slog.Int("block", int(ctx.DialogueBlock)))
	}
	return ok, nil
}

func (c *commands) deleteEmptySegment(st *sp.State, ctx transitions.Context, _ transitions.Args) (bool, error) {
	if err := ctx.Fresh(st); err != nil {
		return false, err
	}
	if ctx.Segment == sp.NoNode || !ctx.SelectionEmpty {
		return false, nil
	}
	return DeleteEmptySegment(st, ctx.Segment), nil
}

func (c *commands) blockFromCharacter(st *sp.State, ctx transitions.Context, _ transitions.Args) (bool, error) {
	if err := ctx.Fresh(st); err != nil {
		return false, err
	}
	if ctx.InDialogueBlock() {
		return false, nil
	}
	from := ctx.ParentType
	if _, ok := PromoteToCharacter(st, ctx.Parent); !ok {
		return false, nil
	}
	c.opts.Metrics.Converted(string(from), string(sp.Character))
	return true, nil
}

func (c *commands) appendSpeechSegment(st *sp.State, ctx transitions.Context, args transitions.Args) (bool, error) {
	if err := ctx.Fresh(st); err != nil {
		return false, err
	}
	kind, err := kindArg(args, "kind", sp.Dialogue)
	if err != nil {
		return false, err
	}
	if ctx.InDialogueBlock() || !kind.IsSegment() {
		return false, nil
	}
	if !AppendSpeechSegment(st, ctx.Parent, kind) {
		return false, nil
	}
	c.opts.Metrics.Converted(string(ctx.ParentType), string(kind))
	return true, nil
}

func (c *commands) convert(st *sp.State, ctx transitions.Context, args transitions.Args) (bool, error) {
	if err := ctx.Fresh(st); err != nil {
		return false, err
	}
	target, err := kindArg(args, "target", "")
	if err != nil {
		return false, err
	}
	if !target.IsLeaf() {
		return false, fmt.Errorf("convertNodeType: target %q is not a text node type", target)
	}
	from, ok := Convert(st, target)
	if ok && from != target {
		c.opts.Metrics.Converted(string(from), string(target))
	}
	return ok, nil
}

func (c *commands) cycle(st *sp.State, ctx transitions.Context, args transitions.Args) (bool, error) {
	if err := ctx.Fresh(st); err != nil {
		return false, err
	}
	var a struct {
		Direction int `arg:"direction"`
	}
	if err := args.Decode(&a); err != nil {
		return false, err
	}
	if a.Direction == 0 {
		a.Direction = 1
	}
	from, to, ok := Cycle(st, c.opts.TabCycle, a.Direction)
	if ok && from != to {
		c.opts.Metrics.Converted(string(from), string(to))
	}
	return ok, nil
}

func (c *commands) insertNodeAfter(st *sp.State, ctx transitions.Context, args transitions.Args) (bool, error) {
	if err := ctx.Fresh(st); err != nil {
		return false, err
	}
	t, err := kindArg(args, "type", sp.Action)
	if err != nil {
		return false, err
	}
	return InsertNodeAfter(st, t), nil
}
