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

package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/abcxyz/ghillie/pkg/bronze"
	"github.com/abcxyz/ghillie/pkg/silver"
	"github.com/google/uuid"
)

// repositoryRef is the common "repository" block shared by every GitHub
// webhook payload this package hydrates.
type repositoryRef struct {
	Owner struct {
		Login string `json:"login"`
	} `json:"owner"`
	Name string `json:"name"`
}

func newEventFact(ev bronze.RawEvent, repoID uuid.UUID) (silver.EventFact, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return silver.EventFact{}, fmt.Errorf("transform: generate event fact id: %w", err)
	}
	return silver.EventFact{
		ID:            id,
		RawEventID:    ev.ID,
		RepoID:        repoID,
		EventType:     ev.EventType,
		OccurredAt:    ev.OccurredAt,
		PayloadDigest: bronze.Digest(ev.Payload),
		Payload:       ev.Payload,
	}, nil
}

// RecordOnlyHydrator is the default hydrator for unregistered event types.
// It produces an EventFact with no Silver writes, per spec.md §4.2.
func RecordOnlyHydrator(ctx context.Context, resolver RepositoryResolver, ev bronze.RawEvent) (SilverWrites, silver.EventFact, error) {
	var ref struct {
		Repository repositoryRef `json:"repository"`
	}
	repoID := uuid.Nil
	if err := json.Unmarshal(ev.Payload, &ref); err == nil && ref.Repository.Name != "" {
		if repo, err := resolver.GetRepositoryBySlug(ctx, ref.Repository.Owner.Login, ref.Repository.Name); err == nil {
			repoID = repo.ID
		}
	}
	fact, err := newEventFact(ev, repoID)
	return SilverWrites{}, fact, err
}

// pushPayload models the subset of a GitHub "push" webhook this package
// needs: the repository and the list of pushed commits.
type pushPayload struct {
	Repository repositoryRef `json:"repository"`
	Commits []struct {
		ID        string `json:"id"`
		Message   string `json:"message"`
		Timestamp string `json:"timestamp"`
		Author    struct {
			Name string `json:"name"`
		} `json:"author"`
		Added    []string `json:"added"`
		Modified []string `json:"modified"`
	} `json:"commits"`
}

// PushHydrator turns a push event into commit and documentation-change
// writes. Documentation paths are the repository's configured
// documentation_paths intersected with each commit's added/modified
// paths, per spec.md §4.2.
var PushHydrator = Entry{EventType: "push", Hydrate: hydratePush}

func hydratePush(ctx context.Context, resolver RepositoryResolver, ev bronze.RawEvent) (SilverWrites, silver.EventFact, error) {
	var p pushPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return SilverWrites{}, silver.EventFact{}, fmt.Errorf("transform: decode push payload: %w", err)
	}
	repo, err := resolver.GetRepositoryBySlug(ctx, p.Repository.Owner.Login, p.Repository.Name)
	if err != nil {
		return SilverWrites{}, silver.EventFact{}, fmt.Errorf("transform: resolve repository for push: %w", err)
	}

	var writes SilverWrites
	for _, c := range p.Commits {
		createdAt, err := bronze.ParseOccurredAt(c.Timestamp)
		if err != nil {
			createdAt = ev.OccurredAt
		}
		writes.Commits = append(writes.Commits, silver.Commit{
			SHA:       c.ID,
			RepoID:    repo.ID,
			Message:   c.Message,
			Author:    c.Author.Name,
			CreatedAt: createdAt,
		})

		for _, path := range append(append([]string{}, c.Added...), c.Modified...) {
			if underAnyPrefix(path, repo.DocumentationPaths) {
				writes.DocumentationChanges = append(writes.DocumentationChanges, silver.DocumentationChange{
					CommitSHA: c.ID,
					Path:      path,
					RepoID:    repo.ID,
				})
			}
		}
	}

	fact, err := newEventFact(ev, repo.ID)
	return writes, fact, err
}

func underAnyPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// pullRequestPayload models a GitHub "pull_request" webhook.
type pullRequestPayload struct {
	Repository  repositoryRef `json:"repository"`
	PullRequest struct {
		Number int64  `json:"number"`
		Title  string `json:"title"`
		State  string `json:"state"`
		Labels []struct {
			Name string `json:"name"`
		} `json:"labels"`
		CreatedAt string `json:"created_at"`
		UpdatedAt string `json:"updated_at"`
		ClosedAt  string `json:"closed_at"`
	} `json:"pull_request"`
}

// PullRequestHydrator upserts a pull request by its number, always taking
// the latest state.
var PullRequestHydrator = Entry{EventType: "pull_request", Hydrate: hydratePullRequest}

func hydratePullRequest(ctx context.Context, resolver RepositoryResolver, ev bronze.RawEvent) (SilverWrites, silver.EventFact, error) {
	var p pullRequestPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return SilverWrites{}, silver.EventFact{}, fmt.Errorf("transform: decode pull_request payload: %w", err)
	}
	repo, err := resolver.GetRepositoryBySlug(ctx, p.Repository.Owner.Login, p.Repository.Name)
	if err != nil {
		return SilverWrites{}, silver.EventFact{}, fmt.Errorf("transform: resolve repository for pull_request: %w", err)
	}

	labels := make([]string, 0, len(p.PullRequest.Labels))
	for _, l := range p.PullRequest.Labels {
		labels = append(labels, l.Name)
	}

	createdAt, _ := bronze.ParseOccurredAt(p.PullRequest.CreatedAt)
	updatedAt, err := bronze.ParseOccurredAt(p.PullRequest.UpdatedAt)
	if err != nil {
		updatedAt = ev.OccurredAt
	}
	var closedAt *time.Time
	if p.PullRequest.ClosedAt != "" {
		if t, err := bronze.ParseOccurredAt(p.PullRequest.ClosedAt); err == nil {
			closedAt = &t
		}
	}

	writes := SilverWrites{
		PullRequests: []silver.PullRequest{{
			ID:        p.PullRequest.Number,
			RepoID:    repo.ID,
			Title:     p.PullRequest.Title,
			State:     p.PullRequest.State,
			Labels:    labels,
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
			ClosedAt:  closedAt,
		}},
	}
	fact, err := newEventFact(ev, repo.ID)
	return writes, fact, err
}

// issuesPayload models a GitHub "issues" webhook.
type issuesPayload struct {
	Repository repositoryRef `json:"repository"`
	Issue      struct {
		Number int64  `json:"number"`
		Title  string `json:"title"`
		State  string `json:"state"`
		Labels []struct {
			Name string `json:"name"`
		} `json:"labels"`
		CreatedAt string `json:"created_at"`
		UpdatedAt string `json:"updated_at"`
		ClosedAt  string `json:"closed_at"`
	} `json:"issue"`
}

// IssueHydrator upserts an issue by its number.
var IssueHydrator = Entry{EventType: "issues", Hydrate: hydrateIssue}

func hydrateIssue(ctx context.Context, resolver RepositoryResolver, ev bronze.RawEvent) (SilverWrites, silver.EventFact, error) {
	var p issuesPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return SilverWrites{}, silver.EventFact{}, fmt.Errorf("transform: decode issues payload: %w", err)
	}
	repo, err := resolver.GetRepositoryBySlug(ctx, p.Repository.Owner.Login, p.Repository.Name)
	if err != nil {
		return SilverWrites{}, silver.EventFact{}, fmt.Errorf("transform: resolve repository for issues: %w", err)
	}

	labels := make([]string, 0, len(p.Issue.Labels))
	for _, l := range p.Issue.Labels {
		labels = append(labels, l.Name)
	}

	createdAt, _ := bronze.ParseOccurredAt(p.Issue.CreatedAt)
	updatedAt, err := bronze.ParseOccurredAt(p.Issue.UpdatedAt)
	if err != nil {
		updatedAt = ev.OccurredAt
	}
	var closedAt *time.Time
	if p.Issue.ClosedAt != "" {
		if t, err := bronze.ParseOccurredAt(p.Issue.ClosedAt); err == nil {
			closedAt = &t
		}
	}

	writes := SilverWrites{
		Issues: []silver.Issue{{
			ID:        p.Issue.Number,
			RepoID:    repo.ID,
			Title:     p.Issue.Title,
			State:     p.Issue.State,
			Labels:    labels,
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
			ClosedAt:  closedAt,
		}},
	}
	fact, err := newEventFact(ev, repo.ID)
	return writes, fact, err
}

// CommitCommentHydrator and LabelHydrator both represent a metadata
// update against an entity that must already exist; the mapping layer has
// no standalone "commit comment" or "label" entity, so both are recorded
// via RecordOnlyHydrator until a later pass re-derives state from the
// owning pull_request/issues event, per spec.md §4.2's "update existing
// rows" rule.
var (
	CommitCommentHydrator = Entry{EventType: "commit_comment", Hydrate: RecordOnlyHydrator}
	LabelHydrator         = Entry{EventType: "label", Hydrate: RecordOnlyHydrator}
)
