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

package silver

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// InsertEventFact inserts the canonical EventFact for a successfully
// transformed RawEvent. Must be called within the same transaction that
// marks the RawEvent transformed and writes the entity rows below.
func InsertEventFact(ctx context.Context, tx *sql.Tx, f EventFact) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO silver_event_facts (id, raw_event_id, repo_id, event_type, occurred_at, payload_digest, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, f.ID, f.RawEventID, f.RepoID, f.EventType, f.OccurredAt, f.PayloadDigest, f.Payload); err != nil {
		return fmt.Errorf("silver: insert event fact: %w", err)
	}
	return nil
}

// EventFactByRawEventID returns the EventFact for a RawEvent, if one
// exists, for idempotence checks and the post-transform integrity pass.
func (s *Store) EventFactByRawEventID(ctx context.Context, rawEventID uuid.UUID) (EventFact, bool, error) {
	var f EventFact
	err := s.db.QueryRowContext(ctx, `
		SELECT id, raw_event_id, repo_id, event_type, occurred_at, payload_digest, payload
		FROM silver_event_facts
		WHERE raw_event_id = $1
	`, rawEventID).Scan(&f.ID, &f.RawEventID, &f.RepoID, &f.EventType, &f.OccurredAt, &f.PayloadDigest, &f.Payload)
	if err == sql.ErrNoRows {
		return EventFact{}, false, nil
	}
	if err != nil {
		return EventFact{}, false, fmt.Errorf("silver: lookup event fact for raw event %s: %w", rawEventID, err)
	}
	return f, true, nil
}

// EventFactsInWindow returns EventFacts for a repository whose occurred_at
// falls in [start, end), ordered by (occurred_at, id).
func (s *Store) EventFactsInWindow(ctx context.Context, repoID uuid.UUID, start, end time.Time) ([]EventFact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, raw_event_id, repo_id, event_type, occurred_at, payload_digest, payload
		FROM silver_event_facts
		WHERE repo_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		ORDER BY occurred_at, id
	`, repoID, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("silver: query event facts in window: %w", err)
	}
	defer rows.Close()

	var facts []EventFact
	for rows.Next() {
		var f EventFact
		if err := rows.Scan(&f.ID, &f.RawEventID, &f.RepoID, &f.EventType, &f.OccurredAt, &f.PayloadDigest, &f.Payload); err != nil {
			return nil, fmt.Errorf("silver: scan event fact row: %w", err)
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// UpsertCommit creates or updates a commit, keyed by its natural
// identifier (sha).
func UpsertCommit(ctx context.Context, tx *sql.Tx, c Commit) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO silver_commits (sha, repo_id, message, author, created_at, labels)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (sha) DO UPDATE
			SET message = EXCLUDED.message, author = EXCLUDED.author, labels = EXCLUDED.labels
	`, c.SHA, c.RepoID, c.Message, c.Author, c.CreatedAt, pq.Array(c.Labels)); err != nil {
		return fmt.Errorf("silver: upsert commit %s: %w", c.SHA, err)
	}
	return nil
}

// UpsertPullRequest creates or updates a pull request, keyed by the
// natural pair (repo_id, id) — p.ID is GitHub's repository-scoped pull
// request number, which restarts at 1 per repository, so the conflict
// target must include repo_id or two repositories' "PR #1" would
// overwrite each other.
func UpsertPullRequest(ctx context.Context, tx *sql.Tx, p PullRequest) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO silver_pull_requests (id, repo_id, title, state, labels, created_at, updated_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (repo_id, id) DO UPDATE
			SET title = EXCLUDED.title, state = EXCLUDED.state, labels = EXCLUDED.labels,
				updated_at = EXCLUDED.updated_at, closed_at = EXCLUDED.closed_at
	`, p.ID, p.RepoID, p.Title, p.State, pq.Array(p.Labels), p.CreatedAt, p.UpdatedAt, p.ClosedAt); err != nil {
		return fmt.Errorf("silver: upsert pull request %s/%d: %w", p.RepoID, p.ID, err)
	}
	return nil
}

// UpsertIssue creates or updates an issue, keyed by the natural pair
// (repo_id, id) — see UpsertPullRequest for why repo_id must be part of
// the conflict target.
func UpsertIssue(ctx context.Context, tx *sql.Tx, i Issue) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO silver_issues (id, repo_id, title, state, labels, created_at, updated_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (repo_id, id) DO UPDATE
			SET title = EXCLUDED.title, state = EXCLUDED.state, labels = EXCLUDED.labels,
				updated_at = EXCLUDED.updated_at, closed_at = EXCLUDED.closed_at
	`, i.ID, i.RepoID, i.Title, i.State, pq.Array(i.Labels), i.CreatedAt, i.UpdatedAt, i.ClosedAt); err != nil {
		return fmt.Errorf("silver: upsert issue %s/%d: %w", i.RepoID, i.ID, err)
	}
	return nil
}

// UpsertDocumentationChange creates a documentation change, keyed by the
// natural pair (commit_sha, path).
func UpsertDocumentationChange(ctx context.Context, tx *sql.Tx, d DocumentationChange) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO silver_documentation_changes (commit_sha, path, repo_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (commit_sha, path) DO NOTHING
	`, d.CommitSHA, d.Path, d.RepoID); err != nil {
		return fmt.Errorf("silver: upsert documentation change %s:%s: %w", d.CommitSHA, d.Path, err)
	}
	return nil
}

// CommitsBySHAs returns commits matching the given identifier set,
// regardless of when they were created — entities are looked up by
// identifier, never by time, per spec.md §4.6 step 4.
func (s *Store) CommitsBySHAs(ctx context.Context, shas []string) ([]Commit, error) {
	if len(shas) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT sha, repo_id, message, author, created_at, labels
		FROM silver_commits WHERE sha = ANY($1)
	`, pq.Array(shas))
	if err != nil {
		return nil, fmt.Errorf("silver: query commits by sha: %w", err)
	}
	defer rows.Close()

	var commits []Commit
	for rows.Next() {
		var c Commit
		var labels pq.StringArray
		if err := rows.Scan(&c.SHA, &c.RepoID, &c.Message, &c.Author, &c.CreatedAt, &labels); err != nil {
			return nil, fmt.Errorf("silver: scan commit row: %w", err)
		}
		c.Labels = labels
		commits = append(commits, c)
	}
	return commits, rows.Err()
}

// PullRequestsByIDs returns pull requests matching the given identifier
// set within repoID. PR numbers are only unique per repository, so the
// lookup is always scoped to the repository the evidence bundle is being
// built for — otherwise a colliding number in another repository could be
// attached to the wrong bundle.
func (s *Store) PullRequestsByIDs(ctx context.Context, repoID uuid.UUID, ids []int64) ([]PullRequest, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, repo_id, title, state, labels, created_at, updated_at, closed_at
		FROM silver_pull_requests WHERE repo_id = $1 AND id = ANY($2)
	`, repoID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("silver: query pull requests by id: %w", err)
	}
	defer rows.Close()

	var prs []PullRequest
	for rows.Next() {
		var p PullRequest
		var labels pq.StringArray
		if err := rows.Scan(&p.ID, &p.RepoID, &p.Title, &p.State, &labels, &p.CreatedAt, &p.UpdatedAt, &p.ClosedAt); err != nil {
			return nil, fmt.Errorf("silver: scan pull request row: %w", err)
		}
		p.Labels = labels
		prs = append(prs, p)
	}
	return prs, rows.Err()
}

// IssuesByIDs returns issues matching the given identifier set within
// repoID. Issue numbers are only unique per repository — see
// PullRequestsByIDs for why the lookup must be repository-scoped.
func (s *Store) IssuesByIDs(ctx context.Context, repoID uuid.UUID, ids []int64) ([]Issue, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, repo_id, title, state, labels, created_at, updated_at, closed_at
		FROM silver_issues WHERE repo_id = $1 AND id = ANY($2)
	`, repoID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("silver: query issues by id: %w", err)
	}
	defer rows.Close()

	var issues []Issue
	for rows.Next() {
		var i Issue
		var labels pq.StringArray
		if err := rows.Scan(&i.ID, &i.RepoID, &i.Title, &i.State, &labels, &i.CreatedAt, &i.UpdatedAt, &i.ClosedAt); err != nil {
			return nil, fmt.Errorf("silver: scan issue row: %w", err)
		}
		i.Labels = labels
		issues = append(issues, i)
	}
	return issues, rows.Err()
}

// DocKey is the natural identifier of a documentation change.
type DocKey struct {
	CommitSHA string
	Path      string
}

// DocumentationChangesByKeys returns documentation changes matching the
// given (commit_sha, path) identifier set.
func (s *Store) DocumentationChangesByKeys(ctx context.Context, keys []DocKey) ([]DocumentationChange, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	shas := make([]string, len(keys))
	paths := make([]string, len(keys))
	for i, k := range keys {
		shas[i] = k.CommitSHA
		paths[i] = k.Path
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT commit_sha, path, repo_id
		FROM silver_documentation_changes
		WHERE (commit_sha, path) IN (SELECT * FROM UNNEST($1::text[], $2::text[]))
	`, pq.Array(shas), pq.Array(paths))
	if err != nil {
		return nil, fmt.Errorf("silver: query documentation changes by key: %w", err)
	}
	defer rows.Close()

	var changes []DocumentationChange
	for rows.Next() {
		var d DocumentationChange
		if err := rows.Scan(&d.CommitSHA, &d.Path, &d.RepoID); err != nil {
			return nil, fmt.Errorf("silver: scan documentation change row: %w", err)
		}
		changes = append(changes, d)
	}
	return changes, rows.Err()
}
