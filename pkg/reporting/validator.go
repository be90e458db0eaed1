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
	"strings"

	"github.com/abcxyz/ghillie/pkg/gold"
	"github.com/abcxyz/ghillie/pkg/statusmodel"
)

// Stable validation issue codes, per spec.md §4.10. These never change
// shape or spelling across versions.
const (
	IssueEmptySummary          = "empty_summary"
	IssueTruncatedSummary      = "truncated_summary"
	IssueImplausibleHighlights = "implausible_highlights"
)

// evidenceSubject is the shape the Validator needs from either evidence
// bundle kind: whether it carried any activity, and how much.
type evidenceSubject interface {
	IsEmpty() bool
	TotalEventCount() int
}

// truncationMarkers end a summary in a way that indicates it was cut off
// mid-thought rather than concluded.
var truncationMarkers = []string{"...", "…", ",", ":", ";", "-"}

// Validator applies the three conservative checks of spec.md §4.10
// against a status model's Result and the evidence bundle it summarized.
type Validator struct{}

// NewValidator constructs a Validator.
func NewValidator() Validator { return Validator{} }

// Validate runs all three checks and returns every issue found; a nil or
// empty issue slice means the result is valid.
func (Validator) Validate(bundle evidenceSubject, result statusmodel.Result) []gold.ValidationIssue {
	var issues []gold.ValidationIssue

	summary := strings.TrimSpace(result.Summary)
	if summary == "" {
		issues = append(issues, gold.ValidationIssue{
			Code:    IssueEmptySummary,
			Message: "summary is empty after trimming whitespace",
		})
	} else if endsTruncated(summary) {
		issues = append(issues, gold.ValidationIssue{
			Code:    IssueTruncatedSummary,
			Message: "summary ends with an ellipsis marker or an unterminated clause indicator",
		})
	}

	maxHighlights := bundle.TotalEventCount()
	if maxHighlights < 3 {
		maxHighlights = 3
	}
	switch {
	case bundle.IsEmpty() && len(result.Highlights) > 0:
		issues = append(issues, gold.ValidationIssue{
			Code:    IssueImplausibleHighlights,
			Message: "empty bundle must not produce highlights",
		})
	case len(result.Highlights) > maxHighlights:
		issues = append(issues, gold.ValidationIssue{
			Code:    IssueImplausibleHighlights,
			Message: "highlight count exceeds the plausible bound for this window's activity",
		})
	}

	return issues
}

func endsTruncated(summary string) bool {
	for _, marker := range truncationMarkers {
		if strings.HasSuffix(summary, marker) {
			return true
		}
	}
	return false
}
