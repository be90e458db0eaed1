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

package gold

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PersistReport writes a Report and its ReportCoverage rows in a single
// transaction, per spec.md §4.9 ("persistence of Report + ReportCoverage
// in one transaction on success").
func (s *Store) PersistReport(ctx context.Context, report Report, coveredEventFactIDs []uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("gold: begin persist tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort rollback after commit or error

	summary, err := json.Marshal(report.MachineSummary)
	if err != nil {
		return fmt.Errorf("gold: marshal machine summary: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO gold_reports
			(id, scope, repository_id, project_key, window_start, window_end, generated_at, model,
			 human_text, machine_summary, model_latency_ms, prompt_tokens, completion_tokens, total_tokens)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, report.ID, report.Scope, nullableUUID(report.RepositoryID), nullString(report.ProjectKey),
		report.WindowStart.UTC(), report.WindowEnd.UTC(), report.GeneratedAt.UTC(), report.Model,
		nullString(report.HumanText), summary,
		report.ModelLatencyMs, report.PromptTokens, report.CompletionTokens, report.TotalTokens); err != nil {
		return fmt.Errorf("gold: insert report: %w", err)
	}

	for _, id := range coveredEventFactIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO gold_report_coverage (report_id, event_fact_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, report.ID, id); err != nil {
			return fmt.Errorf("gold: insert report coverage: %w", err)
		}
	}

	return tx.Commit()
}

// LatestForRepository returns the most recent repository-scoped report for
// repoID, if one exists, for window computation and previous-report
// context attachment.
func (s *Store) LatestForRepository(ctx context.Context, repoID uuid.UUID) (Report, bool, error) {
	return s.latest(ctx, `
		SELECT id, scope, repository_id, project_key, window_start, window_end, generated_at, model,
			COALESCE(human_text, ''), machine_summary, model_latency_ms, prompt_tokens, completion_tokens, total_tokens
		FROM gold_reports
		WHERE scope = $1 AND repository_id = $2
		ORDER BY window_end DESC
		LIMIT 1
	`, ScopeRepository, repoID)
}

// LatestForProject returns the most recent project-scoped report for
// projectKey, if one exists.
func (s *Store) LatestForProject(ctx context.Context, projectKey string) (Report, bool, error) {
	return s.latest(ctx, `
		SELECT id, scope, repository_id, project_key, window_start, window_end, generated_at, model,
			COALESCE(human_text, ''), machine_summary, model_latency_ms, prompt_tokens, completion_tokens, total_tokens
		FROM gold_reports
		WHERE scope = $1 AND project_key = $2
		ORDER BY window_end DESC
		LIMIT 1
	`, ScopeProject, projectKey)
}

func (s *Store) latest(ctx context.Context, query string, args ...any) (Report, bool, error) {
	var r Report
	var repoID uuid.NullUUID
	var projectKey sql.NullString
	var summary []byte
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&r.ID, &r.Scope, &repoID, &projectKey, &r.WindowStart, &r.WindowEnd, &r.GeneratedAt, &r.Model,
		&r.HumanText, &summary, &r.ModelLatencyMs, &r.PromptTokens, &r.CompletionTokens, &r.TotalTokens)
	if err == sql.ErrNoRows {
		return Report{}, false, nil
	}
	if err != nil {
		return Report{}, false, fmt.Errorf("gold: query latest report: %w", err)
	}
	if repoID.Valid {
		r.RepositoryID = repoID.UUID
	}
	if projectKey.Valid {
		r.ProjectKey = projectKey.String
	}
	if err := json.Unmarshal(summary, &r.MachineSummary); err != nil {
		return Report{}, false, fmt.Errorf("gold: unmarshal machine summary: %w", err)
	}
	return r, true, nil
}

// UncoveredEventFactIDs filters ids down to those not already present in
// gold_report_coverage for a report of the given scope/repository, per the
// scope-specific exclusion rule in spec.md §4.6 step 2.
func (s *Store) UncoveredEventFactIDs(ctx context.Context, scope Scope, repoID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT rc.event_fact_id
		FROM gold_report_coverage rc
		JOIN gold_reports r ON r.id = rc.report_id
		WHERE r.scope = $1 AND r.repository_id = $2 AND rc.event_fact_id = ANY($3)
	`, scope, repoID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("gold: query covered event facts: %w", err)
	}
	defer rows.Close()

	covered := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("gold: scan covered event fact: %w", err)
		}
		covered[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	uncovered := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !covered[id] {
			uncovered = append(uncovered, id)
		}
	}
	return uncovered, nil
}

// ReportsGeneratedBetween returns the latency/token fields of every
// report generated in [periodStart, periodEnd), optionally filtered to a
// single scope, for the reporting metrics aggregation in spec.md §4.11.
func (s *Store) ReportsGeneratedBetween(ctx context.Context, periodStart, periodEnd time.Time, scope *Scope) ([]ReportMetricsRow, error) {
	query := `
		SELECT model_latency_ms, prompt_tokens, completion_tokens, total_tokens
		FROM gold_reports
		WHERE generated_at >= $1 AND generated_at < $2
	`
	args := []any{periodStart.UTC(), periodEnd.UTC()}
	if scope != nil {
		query += " AND scope = $3"
		args = append(args, *scope)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("gold: query reports generated between: %w", err)
	}
	defer rows.Close()

	var out []ReportMetricsRow
	for rows.Next() {
		var row ReportMetricsRow
		if err := rows.Scan(&row.ModelLatencyMs, &row.PromptTokens, &row.CompletionTokens, &row.TotalTokens); err != nil {
			return nil, fmt.Errorf("gold: scan report metrics row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ReportMetricsRow is the latency/token projection ReportsGeneratedBetween
// returns; any field may be nil if the underlying report predates that
// metric or the adapter did not expose it.
type ReportMetricsRow struct {
	ModelLatencyMs   *int64
	PromptTokens     *int64
	CompletionTokens *int64
	TotalTokens      *int64
}

// UpsertReportReview creates or replaces the pending ReportReview marker
// for a (scope, window) pair. At most one pending marker exists per key,
// per spec.md §3's ReportReview uniqueness invariant.
func (s *Store) UpsertReportReview(ctx context.Context, review ReportReview) error {
	issues, err := json.Marshal(review.ValidationIssues)
	if err != nil {
		return fmt.Errorf("gold: marshal validation issues: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO gold_report_reviews
			(id, scope, repository_id, project_key, window_start, window_end, model, attempt_count, validation_issues, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (scope, repository_id, project_key, window_start, window_end)
			WHERE state = 'pending'
			DO UPDATE SET attempt_count = EXCLUDED.attempt_count, validation_issues = EXCLUDED.validation_issues
	`, review.ID, review.Scope, nullableUUID(review.RepositoryID), nullString(review.ProjectKey),
		review.WindowStart.UTC(), review.WindowEnd.UTC(), review.Model, review.AttemptCount, issues,
		ReviewPending, time.Now().UTC()); err != nil {
		return fmt.Errorf("gold: upsert report review: %w", err)
	}
	return nil
}

func nullableUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
