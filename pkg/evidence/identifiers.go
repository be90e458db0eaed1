// Copyright 2026 The Authors (see AUTHORS file)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package evidence

import (
	"encoding/json"

	"github.com/abcxyz/ghillie/pkg/silver"
)

// identifierSets is the grouped-by-kind identifier extraction result from
// spec.md §4.6 step 3: commit SHAs, PR ids, issue ids, and documentation
// change (commit_sha, path) pairs, deduplicated.
type identifierSets struct {
	commitSHAs []string
	prIDs      []int64
	issueIDs   []int64
	docKeys    []silver.DocKey
}

// extractIdentifiers parses an EventFact's stored payload for the natural
// identifiers it touches, keyed on event type. Unrecognized event types
// contribute no identifiers (they still produced an EventFact via
// RecordOnlyHydrator, but carry no Silver entity to look up).
func extractIdentifiers(eventType string, payload []byte) identifierSets {
	switch eventType {
	case "push":
		var p struct {
			Commits []struct {
				ID       string   `json:"id"`
				Added    []string `json:"added"`
				Modified []string `json:"modified"`
			} `json:"commits"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return identifierSets{}
		}
		var sets identifierSets
		for _, c := range p.Commits {
			sets.commitSHAs = append(sets.commitSHAs, c.ID)
			for _, path := range append(append([]string{}, c.Added...), c.Modified...) {
				sets.docKeys = append(sets.docKeys, silver.DocKey{CommitSHA: c.ID, Path: path})
			}
		}
		return sets
	case "pull_request":
		var p struct {
			PullRequest struct {
				Number int64 `json:"number"`
			} `json:"pull_request"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return identifierSets{}
		}
		return identifierSets{prIDs: []int64{p.PullRequest.Number}}
	case "issues":
		var p struct {
			Issue struct {
				Number int64 `json:"number"`
			} `json:"issue"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return identifierSets{}
		}
		return identifierSets{issueIDs: []int64{p.Issue.Number}}
	default:
		return identifierSets{}
	}
}

func dedupStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func dedupInt64s(in []int64) []int64 {
	seen := make(map[int64]bool, len(in))
	out := make([]int64, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func dedupDocKeys(in []silver.DocKey) []silver.DocKey {
	seen := make(map[silver.DocKey]bool, len(in))
	out := make([]silver.DocKey, 0, len(in))
	for _, k := range in {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
