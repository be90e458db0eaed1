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

// Package heuristic implements the deterministic status-model adapter
// from spec.md §4.8: no LLM call, no network dependency, used both as
// the default adapter and as a fallback reference implementation.
package heuristic

import (
	"context"
	"strconv"

	"github.com/abcxyz/ghillie/pkg/evidence"
	"github.com/abcxyz/ghillie/pkg/gold"
	"github.com/abcxyz/ghillie/pkg/silver"
	"github.com/abcxyz/ghillie/pkg/statusmodel"
)

// Model is the deterministic status-model adapter.
type Model struct{}

// New creates a heuristic Model.
func New() *Model { return &Model{} }

// Name identifies this adapter for Report.model.
func (m *Model) Name() string { return "heuristic-v1" }

// SummarizeRepository applies the fixed priority order from spec.md §4.8:
// empty bundle → unknown; previous report carried risks → at_risk; bug
// count > feature count → at_risk; else → on_track.
func (m *Model) SummarizeRepository(_ context.Context, bundle evidence.RepositoryEvidenceBundle) (statusmodel.Result, error) {
	if bundle.IsEmpty() {
		return statusmodel.Result{
			Status:    gold.StatusUnknown,
			Summary:   "no new activity in this window",
			NextSteps: []string{"investigate activity"},
		}, nil
	}

	var bugCount, featureCount int
	var highlights []string
	for _, c := range bundle.Commits {
		if c.WorkType == silver.WorkTypeBug {
			bugCount++
		}
		if c.WorkType == silver.WorkTypeFeature {
			featureCount++
		}
	}
	var openPRs, openIssues int
	for _, p := range bundle.PullRequests {
		if p.WorkType == silver.WorkTypeBug {
			bugCount++
		}
		if p.WorkType == silver.WorkTypeFeature {
			featureCount++
		}
		if p.State == "open" {
			openPRs++
		}
	}
	for _, i := range bundle.Issues {
		if i.WorkType == silver.WorkTypeBug {
			bugCount++
		}
		if i.WorkType == silver.WorkTypeFeature {
			featureCount++
		}
		if i.State == "open" {
			openIssues++
		}
	}

	carriedRisk := bundle.PreviousReport != nil && len(bundle.PreviousReport.Risks) > 0

	status := gold.StatusOnTrack
	switch {
	case carriedRisk:
		status = gold.StatusAtRisk
	case bugCount > featureCount:
		status = gold.StatusAtRisk
	}

	var risks []string
	if bundle.PreviousReport != nil {
		risks = append(risks, bundle.PreviousReport.Risks...)
	}
	if bugCount > featureCount {
		risks = append(risks, "bug volume exceeds feature volume this window")
	}

	if bugCount > 0 {
		highlights = append(highlights, pluralCount(bugCount, "bug fix", "bug fixes"))
	}
	if featureCount > 0 {
		highlights = append(highlights, pluralCount(featureCount, "feature change", "feature changes"))
	}
	if len(bundle.DocumentationChanges) > 0 {
		highlights = append(highlights, pluralCount(len(bundle.DocumentationChanges), "documentation change", "documentation changes"))
	}

	var nextSteps []string
	if status == gold.StatusAtRisk {
		nextSteps = append(nextSteps, "address risks")
	}
	if openPRs > 0 {
		nextSteps = append(nextSteps, "review open PRs")
	}
	if openIssues > 0 {
		nextSteps = append(nextSteps, "triage open issues")
	}

	return statusmodel.Result{
		Status:     status,
		Summary:    summarize(bundle, bugCount, featureCount),
		Highlights: highlights,
		Risks:      risks,
		NextSteps:  nextSteps,
	}, nil
}

// SummarizeProject rolls up component statuses: blocked if any linked
// component reports blocked, at_risk if any reports at_risk, unknown if
// no component has a report yet, else on_track.
func (m *Model) SummarizeProject(_ context.Context, bundle evidence.ProjectEvidenceBundle) (statusmodel.Result, error) {
	if bundle.IsEmpty() {
		return statusmodel.Result{Status: gold.StatusUnknown, Summary: "project has no components"}, nil
	}

	seenReport := false
	worst := gold.StatusOnTrack
	var risks []string
	for _, c := range bundle.Components {
		if c.Repository == nil {
			continue
		}
		seenReport = true
		risks = append(risks, c.Repository.MachineSummary.Risks...)
		switch c.Repository.MachineSummary.Status {
		case gold.StatusBlocked:
			worst = gold.StatusBlocked
		case gold.StatusAtRisk:
			if worst != gold.StatusBlocked {
				worst = gold.StatusAtRisk
			}
		}
	}
	if !seenReport {
		worst = gold.StatusUnknown
	}

	return statusmodel.Result{
		Status:  worst,
		Summary: projectSummary(bundle, worst),
		Risks:   risks,
	}, nil
}

func summarize(bundle evidence.RepositoryEvidenceBundle, bugCount, featureCount int) string {
	return bundle.RepositorySlug + ": " + pluralCount(bundle.TotalEventCount(), "event", "events") +
		" in window (" + pluralCount(bugCount, "bug", "bugs") + ", " + pluralCount(featureCount, "feature", "features") + ")"
}

func projectSummary(bundle evidence.ProjectEvidenceBundle, status gold.Status) string {
	return bundle.Project.Name + ": " + pluralCount(len(bundle.Components), "component", "components") + ", status " + string(status)
}

func pluralCount(n int, singular, plural string) string {
	word := plural
	if n == 1 {
		word = singular
	}
	return strconv.Itoa(n) + " " + word
}
