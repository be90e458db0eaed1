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

// Package evidence assembles the evidence bundles a status model
// summarizes, following the selection algorithm in spec.md §4.6/§4.7.
package evidence

import (
	"context"
	"fmt"
	"time"

	"github.com/abcxyz/ghillie/pkg/gold"
	"github.com/abcxyz/ghillie/pkg/silver"
	"github.com/google/uuid"
)

// ClassifiedCommit is a Silver commit with its derived WorkType.
type ClassifiedCommit struct {
	silver.Commit
	WorkType silver.WorkType
}

// ClassifiedPullRequest is a Silver pull request with its derived WorkType.
type ClassifiedPullRequest struct {
	silver.PullRequest
	WorkType silver.WorkType
}

// ClassifiedIssue is a Silver issue with its derived WorkType.
type ClassifiedIssue struct {
	silver.Issue
	WorkType silver.WorkType
}

// RepositoryEvidenceBundle is the immutable evidence a status model
// summarizes for a single repository and window. It holds no pointers
// into store state.
type RepositoryEvidenceBundle struct {
	RepositoryID         uuid.UUID
	RepositorySlug       string
	WindowStart          time.Time
	WindowEnd            time.Time
	EventFactIDs         []uuid.UUID
	Commits              []ClassifiedCommit
	PullRequests         []ClassifiedPullRequest
	Issues               []ClassifiedIssue
	DocumentationChanges []silver.DocumentationChange
	PreviousReport       *gold.MachineSummary
}

// TotalEventCount is the number of distinct event facts considered.
func (b RepositoryEvidenceBundle) TotalEventCount() int {
	return len(b.EventFactIDs)
}

// IsEmpty reports whether the bundle carries no new activity at all.
func (b RepositoryEvidenceBundle) IsEmpty() bool {
	return len(b.EventFactIDs) == 0
}

// RepositoryService builds RepositoryEvidenceBundles.
type RepositoryService struct {
	silver *silver.Store
	gold   *gold.Store
}

// NewRepositoryService creates a RepositoryService.
func NewRepositoryService(silverStore *silver.Store, goldStore *gold.Store) *RepositoryService {
	return &RepositoryService{silver: silverStore, gold: goldStore}
}

// Build assembles a RepositoryEvidenceBundle for repoID over
// [windowStart, windowEnd), following the seven-step selection algorithm
// in spec.md §4.6.
func (s *RepositoryService) Build(ctx context.Context, repoID uuid.UUID, windowStart, windowEnd time.Time) (RepositoryEvidenceBundle, error) {
	repo, err := s.silver.GetRepository(ctx, repoID)
	if err != nil {
		return RepositoryEvidenceBundle{}, fmt.Errorf("evidence: get repository %s: %w", repoID, err)
	}

	// Step 1: fetch EventFacts in the window.
	facts, err := s.silver.EventFactsInWindow(ctx, repoID, windowStart, windowEnd)
	if err != nil {
		return RepositoryEvidenceBundle{}, fmt.Errorf("evidence: event facts in window: %w", err)
	}

	// Step 2: scope-specific coverage exclusion. Project/estate coverage
	// never excludes events from a repository-scoped build.
	allIDs := make([]uuid.UUID, len(facts))
	for i, f := range facts {
		allIDs[i] = f.ID
	}
	uncoveredIDs, err := s.gold.UncoveredEventFactIDs(ctx, gold.ScopeRepository, repoID, allIDs)
	if err != nil {
		return RepositoryEvidenceBundle{}, fmt.Errorf("evidence: uncovered event facts: %w", err)
	}
	uncovered := make(map[uuid.UUID]bool, len(uncoveredIDs))
	for _, id := range uncoveredIDs {
		uncovered[id] = true
	}

	// Step 3: group uncovered facts by kind and extract identifier sets.
	var sets identifierSets
	var eventFactIDs []uuid.UUID
	for _, f := range facts {
		if !uncovered[f.ID] {
			continue
		}
		eventFactIDs = append(eventFactIDs, f.ID)
		kindSets := extractIdentifiers(f.EventType, f.Payload)
		sets.commitSHAs = append(sets.commitSHAs, kindSets.commitSHAs...)
		sets.prIDs = append(sets.prIDs, kindSets.prIDs...)
		sets.issueIDs = append(sets.issueIDs, kindSets.issueIDs...)
		sets.docKeys = append(sets.docKeys, kindSets.docKeys...)
	}
	sets.commitSHAs = dedupStrings(sets.commitSHAs)
	sets.prIDs = dedupInt64s(sets.prIDs)
	sets.issueIDs = dedupInt64s(sets.issueIDs)
	sets.docKeys = dedupDocKeys(sets.docKeys)

	// Step 4: query Silver entities by identifier set, never by time.
	commits, err := s.silver.CommitsBySHAs(ctx, sets.commitSHAs)
	if err != nil {
		return RepositoryEvidenceBundle{}, fmt.Errorf("evidence: commits by sha: %w", err)
	}
	prs, err := s.silver.PullRequestsByIDs(ctx, repoID, sets.prIDs)
	if err != nil {
		return RepositoryEvidenceBundle{}, fmt.Errorf("evidence: pull requests by id: %w", err)
	}
	issues, err := s.silver.IssuesByIDs(ctx, repoID, sets.issueIDs)
	if err != nil {
		return RepositoryEvidenceBundle{}, fmt.Errorf("evidence: issues by id: %w", err)
	}
	docChanges, err := s.silver.DocumentationChangesByKeys(ctx, sets.docKeys)
	if err != nil {
		return RepositoryEvidenceBundle{}, fmt.Errorf("evidence: documentation changes by key: %w", err)
	}

	docTouchedSHA := make(map[string]bool, len(docChanges))
	for _, d := range docChanges {
		docTouchedSHA[d.CommitSHA] = true
	}

	// Step 5: classify each entity.
	classifiedCommits := make([]ClassifiedCommit, 0, len(commits))
	for _, c := range commits {
		classifiedCommits = append(classifiedCommits, ClassifiedCommit{
			Commit:   c,
			WorkType: classify(nil, c.Message, docTouchedSHA[c.SHA]),
		})
	}
	classifiedPRs := make([]ClassifiedPullRequest, 0, len(prs))
	for _, p := range prs {
		classifiedPRs = append(classifiedPRs, ClassifiedPullRequest{
			PullRequest: p,
			WorkType:    classify(p.Labels, p.Title, false),
		})
	}
	classifiedIssues := make([]ClassifiedIssue, 0, len(issues))
	for _, i := range issues {
		classifiedIssues = append(classifiedIssues, ClassifiedIssue{
			Issue:    i,
			WorkType: classify(i.Labels, i.Title, false),
		})
	}

	// Step 6: attach previous report context (repository-scoped only).
	var previous *gold.MachineSummary
	if last, ok, err := s.gold.LatestForRepository(ctx, repoID); err != nil {
		return RepositoryEvidenceBundle{}, fmt.Errorf("evidence: latest report: %w", err)
	} else if ok {
		summary := last.MachineSummary
		previous = &summary
	}

	// Step 7: deterministic order, (occurred_at, id). EventFactsInWindow
	// already returns rows ordered that way, and the filter above appends
	// in iteration order, so eventFactIDs is already correctly ordered —
	// no further sort is needed (sorting by id alone would scramble it).

	return RepositoryEvidenceBundle{
		RepositoryID:         repoID,
		RepositorySlug:       repo.Slug(),
		WindowStart:          windowStart,
		WindowEnd:            windowEnd,
		EventFactIDs:         eventFactIDs,
		Commits:              classifiedCommits,
		PullRequests:         classifiedPRs,
		Issues:               classifiedIssues,
		DocumentationChanges: docChanges,
		PreviousReport:       previous,
	}, nil
}
