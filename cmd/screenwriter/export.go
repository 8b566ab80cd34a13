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
	"log/slog"

	"github.com/spf13/cobra"

	"goscreenwriter/internal/export"
	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/storage"
)

var exportPDFCmd = &cobra.Command{
	Use:   "export-pdf <file> <out.pdf>",
	Short: "Render a paginated draft PDF",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := loadDocument(args[0])
		if err != nil {
			return err
		}
		title, _ := cmd.Flags().GetString("title")
		if title == "" {
			title = storage.Title(d)
		}
		author, _ := cmd.Flags().GetString("author")
		noNumbers, _ := cmd.Flags().GetBool("no-page-numbers")
		guides, _ := cmd.Flags().GetBool("guides")
		res, err := export.ExportPDF(d, appCfg.Format, args[1], export.PDFOptions{
			Title:       title,
			Author:      author,
			PageNumbers: !noNumbers,
			Guides:      guides,
		})
		if err != nil {
			return err
		}
		metrics.Paginated(res.PageCount, res.Reasons())
		applog.WithComponent("export").Info("pdf written", slog.String("path", args[1]), slog.Int("pages", res.PageCount))
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d pages)\n", args[1], res.PageCount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportPDFCmd)
	exportPDFCmd.Flags().String("title", "", "Document title (default: first scene heading)")
	exportPDFCmd.Flags().String("author", "", "Author metadata")
	exportPDFCmd.Flags().Bool("no-page-numbers", false, "Omit page numbers")
	exportPDFCmd.Flags().Bool("guides", false, "Outline the content area of every page")
}
