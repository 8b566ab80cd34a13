/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"goscreenwriter/internal/backend"
	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/screenplay"
	"goscreenwriter/internal/storage"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Save and retrieve document revisions",
	Long: `Documents live in storage.dir as <id>.screenplay.json with backups, and every
save is recorded as a revision in the SQLite index under storage.dir/.gsw.
When storage.postgres_dsn is set, revisions go to Postgres instead.`,
}

var storePutCmd = &cobra.Command{
	Use:   "put <file> [id]",
	Short: "Store a document as a new revision",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := loadDocument(args[0])
		if err != nil {
			return err
		}
		id := docID(args[0])
		if len(args) > 1 {
			id = args[1]
		}
		ctx := cmd.Context()
		rs, fs, err := openStores(ctx)
		if err != nil {
			return err
		}
		defer rs.Close()
		if fs != nil {
			if _, err := fs.Put(ctx, id, d); err != nil {
				return err
			}
		}
		info, err := rs.Put(ctx, id, d)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s r%d %q\n", info.ID, info.Rev, info.Title)
		return nil
	},
}

var storeGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print a stored document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rs, _, err := openStores(ctx)
		if err != nil {
			return err
		}
		defer rs.Close()
		rev, _ := cmd.Flags().GetInt64("rev")
		var d *screenplay.Document
		if rev > 0 {
			d, err = rs.GetRevision(ctx, args[0], rev)
		} else {
			d, err = rs.Get(ctx, args[0])
		}
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")
		return writeDocument(cmd.OutOrStdout(), out, d)
	},
}

var storeLogCmd = &cobra.Command{
	Use:   "log <id>",
	Short: "List the revisions of a document, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rs, _, err := openStores(ctx)
		if err != nil {
			return err
		}
		defer rs.Close()
		limit, _ := cmd.Flags().GetInt("limit")
		revs, err := rs.Revisions(ctx, args[0], limit)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "REV\tLEAVES\tCREATED")
		for _, r := range revs {
			fmt.Fprintf(tw, "%d\t%d\t%s\n", r.Rev, r.Leaves, r.CreatedAt.Local().Format(time.DateTime))
		}
		return tw.Flush()
	},
}

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rs, _, err := openStores(ctx)
		if err != nil {
			return err
		}
		defer rs.Close()
		docs, err := rs.List(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tREV\tUPDATED\tTITLE")
		for _, d := range docs {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", d.ID, d.Rev, d.UpdatedAt.Local().Format(time.DateTime), d.Title)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storePutCmd, storeGetCmd, storeLogCmd, storeListCmd)
	storeGetCmd.Flags().Int64("rev", 0, "Revision number (default: head)")
	storeGetCmd.Flags().StringP("out", "o", "", "Write to a file (.json for the stored format)")
	storeLogCmd.Flags().Int("limit", 20, "Maximum number of revisions")
}

// openStores opens the revision store named by the config. The file store
// is returned only for the local backend; with Postgres it is nil.
func openStores(ctx context.Context) (storage.RevisionStore, *storage.FileStore, error) {
	l := applog.WithComponent("store")
	keep := appCfg.Storage.KeepRevisions
	if dsn := appCfg.Storage.PostgresDSN; dsn != "" {
		pg, err := backend.Open(ctx, dsn, keep)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		l.Debug("using postgres store")
		return pg, nil, nil
	}
	dir := appCfg.Storage.Dir
	fs, err := storage.NewFileStore(dir, keep)
	if err != nil {
		return nil, nil, err
	}
	idx, err := storage.InitOrOpenIndex(dir, keep)
	if err != nil {
		return nil, nil, err
	}
	l.Debug("using local store", slog.String("dir", dir), slog.String("index", idx.Path()))
	return idx, fs, nil
}
