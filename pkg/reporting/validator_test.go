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

package reporting

import (
	"testing"

	"github.com/abcxyz/ghillie/pkg/gold"
	"github.com/abcxyz/ghillie/pkg/statusmodel"
)

type fakeSubject struct {
	empty      bool
	eventCount int
}

func (f fakeSubject) IsEmpty() bool        { return f.empty }
func (f fakeSubject) TotalEventCount() int { return f.eventCount }

func issueCodeSet(issues []gold.ValidationIssue) map[string]bool {
	set := make(map[string]bool, len(issues))
	for _, i := range issues {
		set[i.Code] = true
	}
	return set
}

func TestValidator_EmptySummary(t *testing.T) {
	t.Parallel()

	v := NewValidator()
	issues := v.Validate(fakeSubject{eventCount: 2}, statusmodel.Result{Summary: "   "})

	if !issueCodeSet(issues)[IssueEmptySummary] {
		t.Fatalf("issues = %+v, want %s", issues, IssueEmptySummary)
	}
}

func TestValidator_TruncatedSummary(t *testing.T) {
	t.Parallel()

	v := NewValidator()
	for _, marker := range truncationMarkers {
		marker := marker
		t.Run(marker, func(t *testing.T) {
			t.Parallel()
			result := statusmodel.Result{Summary: "work continued on the ingestion pipeline" + marker}
			issues := v.Validate(fakeSubject{eventCount: 2}, result)
			if !issueCodeSet(issues)[IssueTruncatedSummary] {
				t.Fatalf("issues = %+v, want %s for summary ending in %q", issues, IssueTruncatedSummary, marker)
			}
		})
	}
}

func TestValidator_ImplausibleHighlights_EmptyBundle(t *testing.T) {
	t.Parallel()

	v := NewValidator()
	result := statusmodel.Result{
		Summary:    "no activity this window",
		Highlights: []string{"shipped a feature nobody asked for"},
	}
	issues := v.Validate(fakeSubject{empty: true}, result)

	if !issueCodeSet(issues)[IssueImplausibleHighlights] {
		t.Fatalf("issues = %+v, want %s", issues, IssueImplausibleHighlights)
	}
}

func TestValidator_ImplausibleHighlights_ExceedsBound(t *testing.T) {
	t.Parallel()

	v := NewValidator()
	result := statusmodel.Result{
		Summary:    "a very busy window",
		Highlights: []string{"one", "two", "three", "four"},
	}
	// eventCount=1 means the bound floors to 3, and four highlights exceeds it.
	issues := v.Validate(fakeSubject{eventCount: 1}, result)

	if !issueCodeSet(issues)[IssueImplausibleHighlights] {
		t.Fatalf("issues = %+v, want %s", issues, IssueImplausibleHighlights)
	}
}

func TestValidator_HighlightsWithinEventDrivenBound(t *testing.T) {
	t.Parallel()

	v := NewValidator()
	result := statusmodel.Result{
		Summary:    "a very busy window",
		Highlights: []string{"one", "two", "three", "four", "five"},
	}
	// eventCount=5 raises the bound above the default floor of 3.
	issues := v.Validate(fakeSubject{eventCount: 5}, result)

	if len(issues) != 0 {
		t.Fatalf("issues = %+v, want none", issues)
	}
}

func TestValidator_ValidResultHasNoIssues(t *testing.T) {
	t.Parallel()

	v := NewValidator()
	result := statusmodel.Result{
		Summary:    "shipped the reporting pipeline end to end",
		Highlights: []string{"added validator", "added sink"},
	}
	issues := v.Validate(fakeSubject{eventCount: 4}, result)

	if len(issues) != 0 {
		t.Fatalf("issues = %+v, want none", issues)
	}
}
