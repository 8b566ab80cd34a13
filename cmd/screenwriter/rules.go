/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"goscreenwriter/internal/dialogue"
	"goscreenwriter/internal/transitions"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect the key transition rules",
}

var rulesLintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Check a rule table for unknown commands and overlapping rules",
	Long: `Loads the built-in rules merged with --rules (or editor.rules) and reports
rules that name unknown commands or predicates, and contexts in which more
than one rule matches. Overlaps at equal priority fail the lint.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, err := loadRules()
		if err != nil {
			return err
		}
		return lintRules(cmd.OutOrStdout(), rules)
	},
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the effective rule table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, err := loadRules()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tPRIORITY\tKEYS\tACTION")
		for _, r := range rules {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", r.ID, r.Priority, strings.Join(r.When.Keys, ","), describeAction(r.Do))
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesLintCmd)
	rulesCmd.AddCommand(rulesListCmd)
}

var errLint = errors.New("rule table has problems")

func lintRules(w io.Writer, rules []transitions.Rule) error {
	reg := transitions.NewRegistry()
	dialogue.Register(reg, dialogue.Options{Metrics: metrics})
	failed := false
	if err := reg.Check(rules); err != nil {
		failed = true
		for _, line := range strings.Split(err.Error(), "\n") {
			fmt.Fprintln(w, "error:", line)
		}
	}
	for _, a := range transitions.Ambiguities(rules) {
		level := "warning"
		if a.SamePriority {
			level = "error"
			failed = true
		}
		fmt.Fprintf(w, "%s: overlap %s\n", level, a)
	}
	if failed {
		return errLint
	}
	fmt.Fprintf(w, "%d rules ok\n", len(rules))
	return nil
}

func describeAction(a transitions.Action) string {
	calls := a.Calls()
	if len(calls) == 0 {
		return string(a.Kind)
	}
	names := make([]string, len(calls))
	for i, c := range calls {
		names[i] = c.Command
	}
	return string(a.Kind) + " " + strings.Join(names, " > ")
}
