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
	"testing"

	"github.com/abcxyz/ghillie/pkg/silver"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name                 string
		labels               []string
		text                 string
		touchesDocumentation bool
		want                 silver.WorkType
	}{
		{name: "label_bug_wins_over_prefix", labels: []string{"bug"}, text: "feat: add thing", want: silver.WorkTypeBug},
		{name: "label_enhancement_maps_to_feature", labels: []string{"enhancement"}, want: silver.WorkTypeFeature},
		{name: "prefix_fix_colon", text: "fix: nil pointer in parser", want: silver.WorkTypeBug},
		{name: "prefix_feat_scoped", text: "feat(api): add endpoint", want: silver.WorkTypeFeature},
		{name: "prefix_docs_scoped", text: "docs(readme): clarify setup", want: silver.WorkTypeDocs},
		{name: "prefix_chore_colon", text: "chore: bump deps", want: silver.WorkTypeChore},
		{name: "path_heuristic_when_no_label_or_prefix", text: "update intro", touchesDocumentation: true, want: silver.WorkTypeDocs},
		{name: "other_when_nothing_matches", text: "misc change", want: silver.WorkTypeOther},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := classify(tc.labels, tc.text, tc.touchesDocumentation)
			if got != tc.want {
				t.Errorf("classify(%v, %q, %v) = %q, want %q", tc.labels, tc.text, tc.touchesDocumentation, got, tc.want)
			}
		})
	}
}

func TestExtractIdentifiers_Push(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"commits":[{"id":"sha1","added":["docs/a.md"],"modified":["README.md"]}]}`)
	sets := extractIdentifiers("push", payload)

	if len(sets.commitSHAs) != 1 || sets.commitSHAs[0] != "sha1" {
		t.Fatalf("commitSHAs = %v, want [sha1]", sets.commitSHAs)
	}
	if len(sets.docKeys) != 2 {
		t.Fatalf("docKeys = %v, want 2 entries", sets.docKeys)
	}
}

func TestExtractIdentifiers_UnknownEventType(t *testing.T) {
	t.Parallel()

	sets := extractIdentifiers("star", []byte(`{}`))
	if len(sets.commitSHAs) != 0 || len(sets.prIDs) != 0 || len(sets.issueIDs) != 0 || len(sets.docKeys) != 0 {
		t.Fatalf("expected empty identifier sets for unknown event type, got %+v", sets)
	}
}

func TestDedupStrings(t *testing.T) {
	t.Parallel()

	got := dedupStrings([]string{"a", "b", "a", "c", "b"})
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("dedupStrings = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("dedupStrings = %v, want %v", got, want)
		}
	}
}
