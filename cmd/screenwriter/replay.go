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
	"os"

	"github.com/spf13/cobra"

	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/script"
	"goscreenwriter/internal/session"
)

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Replay keystrokes against a document",
	Long: `Opens a session on the document and applies steps in order, then prints the resulting document.

Steps come from --steps (one per line) and --step (repeatable):
  key Enter | key Shift-Enter | key Mod-Alt-3
  type Hello there
  convert dialogue
  place 1.1.0 4
  undo | redo`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, err := collectSteps(cmd)
		if err != nil {
			return err
		}
		d, err := loadDocument(args[0])
		if err != nil {
			return err
		}
		s, err := newSession(d)
		if err != nil {
			return err
		}
		defer s.Close()
		armCrashAutosave(docID(args[0]), s)

		verbose, _ := cmd.Flags().GetBool("verbose")
		if err := runSteps(cmd.ErrOrStderr(), s, steps, verbose); err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")
		if err := writeDocument(cmd.OutOrStdout(), out, s.Document()); err != nil {
			return err
		}
		if show, _ := cmd.Flags().GetBool("paginate"); show {
			res := s.Paginate()
			fmt.Fprintf(cmd.ErrOrStderr(), "pages: %d, breaks: %d\n", res.PageCount, len(res.Markers))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().String("steps", "", "File with one step per line")
	replayCmd.Flags().StringArray("step", nil, "A single step; may be repeated and runs after --steps")
	replayCmd.Flags().StringP("out", "o", "", "Write the result to a file (.json for the stored format)")
	replayCmd.Flags().BoolP("verbose", "v", false, "Report the outcome of every step")
	replayCmd.Flags().Bool("paginate", false, "Paginate the result and print the page count")
}

func collectSteps(cmd *cobra.Command) ([]script.Step, error) {
	var steps []script.Step
	if path, _ := cmd.Flags().GetString("steps"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		parsed, err := script.ParseSteps(string(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		steps = append(steps, parsed...)
	}
	inline, _ := cmd.Flags().GetStringArray("step")
	for _, line := range inline {
		st, err := script.ParseStep(line)
		if err != nil {
			return nil, fmt.Errorf("--step %q: %w", line, err)
		}
		steps = append(steps, st)
	}
	return steps, nil
}

// runSteps applies steps in order. A step that changes nothing is not an
// error; a place step naming no text node is.
func runSteps(w io.Writer, s *session.Session, steps []script.Step, verbose bool) error {
	l := applog.WithOperation(applog.WithComponent("replay"), "run")
	for i, st := range steps {
		var changed bool
		switch st.Kind {
		case script.StepKey:
			changed = s.Press(st.Key, st.Mods)
		case script.StepType:
			s.TypeText(st.Text)
			changed = st.Text != ""
		case script.StepConvert:
			changed = s.ConvertNodeType(st.Target)
		case script.StepUndo:
			changed = s.Undo()
		case script.StepRedo:
			changed = s.Redo()
		case script.StepPlace:
			if err := s.PlaceAt(st.Path, st.Offset); err != nil {
				return fmt.Errorf("step %d (%s): %w", i+1, st, err)
			}
			changed = true
		default:
			return fmt.Errorf("step %d: unknown kind %d", i+1, st.Kind)
		}
		l.Debug("step", slog.Int("n", i+1), slog.String("step", st.String()), slog.Bool("changed", changed))
		if verbose {
			mark := "·"
			if changed {
				mark = "✓"
			}
			fmt.Fprintf(w, "%s %3d  %s\n", mark, i+1, st)
		}
	}
	return nil
}
