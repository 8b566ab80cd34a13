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
	"strings"

	"github.com/spf13/cobra"

	"goscreenwriter/internal/screenplay"
	"goscreenwriter/internal/script"
)

var convertCmd = &cobra.Command{
	Use:   "convert <file>",
	Short: "Change the type of one element",
	Long:  `Places the caret in the text node at --path (dot-separated child indices from the root) and converts it to --to, restructuring dialogue blocks as needed.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pathFlag, _ := cmd.Flags().GetString("path")
		toFlag, _ := cmd.Flags().GetString("to")
		offset, _ := cmd.Flags().GetInt("offset")
		path, err := script.ParsePath(strings.TrimSpace(pathFlag))
		if err != nil {
			return err
		}
		target, err := screenplay.ParseNodeType(toFlag)
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

		if err := s.PlaceAt(path, offset); err != nil {
			return err
		}
		if !s.ConvertNodeType(target) {
			return fmt.Errorf("node at %s cannot become %s", pathFlag, target)
		}
		out, _ := cmd.Flags().GetString("out")
		return writeDocument(cmd.OutOrStdout(), out, s.Document())
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().String("path", "", "Node path, e.g. 2.1.0")
	convertCmd.Flags().String("to", "", "Target type (scene, action, character, dialogue, paren, transition, paragraph)")
	convertCmd.Flags().Int("offset", 0, "Caret offset inside the node")
	convertCmd.Flags().StringP("out", "o", "", "Write the result to a file (.json for the stored format)")
	_ = convertCmd.MarkFlagRequired("path")
	_ = convertCmd.MarkFlagRequired("to")
}
