/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package screenplay

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON writes the document as {"type":"doc","content":[...]}.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Spec(rootID))
}

// UnmarshalJSON replaces d with the decoded tree and validates it.
func (d *Document) UnmarshalJSON(b []byte) error {
	var s Spec
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s.Type != "" && s.Type != Doc {
		return fmt.Errorf("%w: root type %q", ErrInvariant, s.Type)
	}
	nd, err := FromSpecs(s.Content)
	if err != nil {
		return err
	}
	*d = *nd
	return nil
}
