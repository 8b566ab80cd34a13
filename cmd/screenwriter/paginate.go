/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"goscreenwriter/internal/layout"
	"goscreenwriter/internal/pagination"
	"goscreenwriter/internal/screenplay"
)

var paginateCmd = &cobra.Command{
	Use:   "paginate <file>",
	Short: "Compute page breaks for a document",
	Long:  `Measures every block with the configured format and prints the page count and the break markers a renderer would insert.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := loadDocument(args[0])
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		withBlocks, _ := cmd.Flags().GetBool("blocks")
		return runPaginate(cmd.OutOrStdout(), d, asJSON, withBlocks)
	},
}

func init() {
	rootCmd.AddCommand(paginateCmd)
	paginateCmd.Flags().Bool("json", false, "Print the result as JSON")
	paginateCmd.Flags().Bool("blocks", false, "Include the measured blocks")
}

type paginateReport struct {
	pagination.Result
	Blocks []pagination.Block `json:"blocks,omitempty"`
}

func runPaginate(w io.Writer, d *screenplay.Document, asJSON, withBlocks bool) error {
	m, err := appCfg.Format.Measurer()
	if err != nil {
		return err
	}
	g, err := appCfg.Format.Geometry()
	if err != nil {
		return err
	}
	pc, err := appCfg.Format.Pagination()
	if err != nil {
		return err
	}
	blocks := layout.Measure(d, m, g)
	res := pagination.ComputeBreaks(blocks, pc)
	metrics.Paginated(res.PageCount, res.Reasons())

	rep := paginateReport{Result: res}
	if withBlocks {
		rep.Blocks = blocks
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	fmt.Fprintf(w, "pages: %d\ncanvas height: %.1f\n", res.PageCount, res.CanvasHeight)
	if len(res.Markers) > 0 {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "BLOCK\tTYPE\tSPACER\tREASON\tPOLICY")
		for _, mk := range res.Markers {
			fmt.Fprintf(tw, "%d\t%s\t%.1f\t%s\t%s\n", mk.Index, mk.Type, mk.Spacer, mk.Reason, mk.Policy)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	if withBlocks {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "BLOCK\tTYPE\tTOP\tHEIGHT\tTEXT")
		for _, b := range blocks {
			fmt.Fprintf(tw, "%d\t%s\t%.1f\t%.1f\t%s\n", b.Index, b.Type, b.Top, b.Height, clip(b.Text, 40))
		}
		return tw.Flush()
	}
	return nil
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
