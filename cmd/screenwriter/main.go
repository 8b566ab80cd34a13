/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Command screenwriter is the headless front end of the screenplay editor:
// it paginates, converts and replays keystrokes against documents, lints
// rule tables, exports PDF drafts and manages stored revisions.
package main

import (
	"fmt"
	"os"

	"goscreenwriter/internal/crash"
)

// crashTarget is filled in by commands that hold a live document, so a
// panic can autosave it.
var crashTarget crash.Target

func main() {
	defer crash.Recover(&crashTarget)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}
