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
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abcxyz/ghillie/pkg/evidence"
	"github.com/abcxyz/ghillie/pkg/gold"
	"github.com/abcxyz/ghillie/pkg/sink"
	"github.com/abcxyz/ghillie/pkg/silver"
	"github.com/abcxyz/ghillie/pkg/statusmodel"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// fakeModel is a scripted statusmodel.Model: each call to
// SummarizeRepository pops the next entry off results, so tests can drive
// a retry-then-succeed sequence deterministically.
type fakeModel struct {
	results []statusmodel.Result
	errs    []error
	calls   int
	name    string
}

func (m *fakeModel) SummarizeRepository(ctx context.Context, bundle evidence.RepositoryEvidenceBundle) (statusmodel.Result, error) {
	i := m.calls
	m.calls++
	var err error
	if i < len(m.errs) {
		err = m.errs[i]
	}
	if i < len(m.results) {
		return m.results[i], err
	}
	return m.results[len(m.results)-1], err
}

func (m *fakeModel) SummarizeProject(ctx context.Context, bundle evidence.ProjectEvidenceBundle) (statusmodel.Result, error) {
	return m.SummarizeRepository(ctx, evidence.RepositoryEvidenceBundle{})
}

func (m *fakeModel) Name() string {
	if m.name == "" {
		return "fake-model"
	}
	return m.name
}

// fakeSink records every WriteReport call.
type fakeSink struct {
	calls []sink.Metadata
	err   error
}

func (s *fakeSink) WriteReport(ctx context.Context, markdown string, meta sink.Metadata) error {
	s.calls = append(s.calls, meta)
	return s.err
}

func newTestService(t *testing.T, model statusmodel.Model, sk sink.ReportSink, now time.Time) (sqlmock.Sqlmock, *Service) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(false))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	mock.MatchExpectationsInOrder(false)

	goldStore := gold.New(db)
	repoSvc := evidence.NewRepositoryService(silver.New(db), goldStore)

	svc := NewService(repoSvc, nil, goldStore, model, Options{
		ValidationMaxAttempts: 2,
		Sink:                  sk,
		Now:                   func() time.Time { return now },
	})
	return mock, svc
}

func expectNoPriorReport(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`SELECT id, scope, repository_id, project_key, window_start, window_end, generated_at, model,\s*\n\s*COALESCE\(human_text, ''\), machine_summary`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "scope", "repository_id", "project_key", "window_start", "window_end", "generated_at", "model",
			"human_text", "machine_summary", "model_latency_ms", "prompt_tokens", "completion_tokens", "total_tokens",
		}))
}

func TestRunForRepository_EmptyBundleReturnsNil(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	mock, svc := newTestService(t, &fakeModel{}, nil, now)
	repoID := uuid.Must(uuid.NewV7())

	// Window-start lookup (no prior repository report).
	expectNoPriorReport(mock)

	mock.ExpectQuery(`SELECT id, github_owner, github_name, documentation_paths, ingestion_enabled`).
		WithArgs(repoID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "github_owner", "github_name", "documentation_paths", "ingestion_enabled", "last_success_at"}).
			AddRow(repoID, "abcxyz", "ghillie", pq.StringArray{}, true, nil))

	mock.ExpectQuery(`SELECT id, raw_event_id, repo_id, event_type, occurred_at, payload_digest, payload`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "raw_event_id", "repo_id", "event_type", "occurred_at", "payload_digest", "payload"}))

	// Build's own previous-report attachment (step 6).
	expectNoPriorReport(mock)

	report, err := svc.RunForRepository(context.Background(), repoID)
	if err != nil {
		t.Fatalf("RunForRepository: %v", err)
	}
	if report != nil {
		t.Fatalf("report = %+v, want nil for an empty window", report)
	}
}

func TestRunForRepository_PersistsOnFirstValidAttempt(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	model := &fakeModel{results: []statusmodel.Result{
		{Status: gold.StatusOnTrack, Summary: "shipped the reporting pipeline", Highlights: []string{"added validator"}},
	}}
	sk := &fakeSink{}
	mock, svc := newTestService(t, model, sk, now)
	repoID := uuid.Must(uuid.NewV7())
	factID := uuid.Must(uuid.NewV7())
	rawEventID := uuid.Must(uuid.NewV7())

	expectNoPriorReport(mock)

	mock.ExpectQuery(`SELECT id, github_owner, github_name, documentation_paths, ingestion_enabled`).
		WithArgs(repoID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "github_owner", "github_name", "documentation_paths", "ingestion_enabled", "last_success_at"}).
			AddRow(repoID, "abcxyz", "ghillie", pq.StringArray{}, true, nil))

	payload := []byte(`{"commits":[{"id":"sha1","added":[],"modified":[]}]}`)
	mock.ExpectQuery(`SELECT id, raw_event_id, repo_id, event_type, occurred_at, payload_digest, payload`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "raw_event_id", "repo_id", "event_type", "occurred_at", "payload_digest", "payload"}).
			AddRow(factID, rawEventID, repoID, "push", now.Add(-time.Hour), "digest", payload))

	mock.ExpectQuery(`SELECT rc.event_fact_id`).
		WillReturnRows(sqlmock.NewRows([]string{"event_fact_id"}))

	mock.ExpectQuery(`SELECT sha, repo_id, message, author, created_at, labels`).
		WillReturnRows(sqlmock.NewRows([]string{"sha", "repo_id", "message", "author", "created_at", "labels"}).
			AddRow("sha1", repoID, "feat: add reporting service", "octocat", now.Add(-time.Hour), pq.StringArray{}))

	expectNoPriorReport(mock)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO gold_reports`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO gold_report_coverage`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	report, err := svc.RunForRepository(context.Background(), repoID)
	if err != nil {
		t.Fatalf("RunForRepository: %v", err)
	}
	if report == nil {
		t.Fatal("report = nil, want a persisted report")
	}
	if report.MachineSummary.Status != gold.StatusOnTrack {
		t.Errorf("Status = %s, want %s", report.MachineSummary.Status, gold.StatusOnTrack)
	}
	if len(sk.calls) != 1 || sk.calls[0].Owner != "abcxyz" || sk.calls[0].Name != "ghillie" {
		t.Errorf("sink calls = %+v, want one call for abcxyz/ghillie", sk.calls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRunForRepository_RetriesOnceThenSucceeds(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	model := &fakeModel{results: []statusmodel.Result{
		{Status: gold.StatusOnTrack, Summary: ""}, // invalid: empty summary
		{Status: gold.StatusOnTrack, Summary: "recovered on the second attempt"},
	}}
	mock, svc := newTestService(t, model, nil, now)
	repoID := uuid.Must(uuid.NewV7())
	factID := uuid.Must(uuid.NewV7())
	rawEventID := uuid.Must(uuid.NewV7())

	expectNoPriorReport(mock)

	mock.ExpectQuery(`SELECT id, github_owner, github_name, documentation_paths, ingestion_enabled`).
		WithArgs(repoID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "github_owner", "github_name", "documentation_paths", "ingestion_enabled", "last_success_at"}).
			AddRow(repoID, "abcxyz", "ghillie", pq.StringArray{}, true, nil))

	payload := []byte(`{"commits":[{"id":"sha1","added":[],"modified":[]}]}`)
	mock.ExpectQuery(`SELECT id, raw_event_id, repo_id, event_type, occurred_at, payload_digest, payload`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "raw_event_id", "repo_id", "event_type", "occurred_at", "payload_digest", "payload"}).
			AddRow(factID, rawEventID, repoID, "push", now.Add(-time.Hour), "digest", payload))

	mock.ExpectQuery(`SELECT rc.event_fact_id`).
		WillReturnRows(sqlmock.NewRows([]string{"event_fact_id"}))

	mock.ExpectQuery(`SELECT sha, repo_id, message, author, created_at, labels`).
		WillReturnRows(sqlmock.NewRows([]string{"sha", "repo_id", "message", "author", "created_at", "labels"}).
			AddRow("sha1", repoID, "feat: add retry loop", "octocat", now.Add(-time.Hour), pq.StringArray{}))

	expectNoPriorReport(mock)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO gold_reports`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO gold_report_coverage`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	report, err := svc.RunForRepository(context.Background(), repoID)
	if err != nil {
		t.Fatalf("RunForRepository: %v", err)
	}
	if report == nil {
		t.Fatal("report = nil, want a persisted report after the retry")
	}
	if model.calls != 2 {
		t.Errorf("model.calls = %d, want 2", model.calls)
	}
	if report.MachineSummary.Summary != "recovered on the second attempt" {
		t.Errorf("Summary = %q, want the second attempt's result", report.MachineSummary.Summary)
	}
}

func TestRunForRepository_ExhaustsRetriesAndFilesReview(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	model := &fakeModel{results: []statusmodel.Result{
		{Status: gold.StatusOnTrack, Summary: ""},
		{Status: gold.StatusOnTrack, Summary: ""},
	}}
	mock, svc := newTestService(t, model, nil, now)
	repoID := uuid.Must(uuid.NewV7())
	factID := uuid.Must(uuid.NewV7())
	rawEventID := uuid.Must(uuid.NewV7())

	expectNoPriorReport(mock)

	mock.ExpectQuery(`SELECT id, github_owner, github_name, documentation_paths, ingestion_enabled`).
		WithArgs(repoID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "github_owner", "github_name", "documentation_paths", "ingestion_enabled", "last_success_at"}).
			AddRow(repoID, "abcxyz", "ghillie", pq.StringArray{}, true, nil))

	payload := []byte(`{"commits":[{"id":"sha1","added":[],"modified":[]}]}`)
	mock.ExpectQuery(`SELECT id, raw_event_id, repo_id, event_type, occurred_at, payload_digest, payload`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "raw_event_id", "repo_id", "event_type", "occurred_at", "payload_digest", "payload"}).
			AddRow(factID, rawEventID, repoID, "push", now.Add(-time.Hour), "digest", payload))

	mock.ExpectQuery(`SELECT rc.event_fact_id`).
		WillReturnRows(sqlmock.NewRows([]string{"event_fact_id"}))

	mock.ExpectQuery(`SELECT sha, repo_id, message, author, created_at, labels`).
		WillReturnRows(sqlmock.NewRows([]string{"sha", "repo_id", "message", "author", "created_at", "labels"}).
			AddRow("sha1", repoID, "feat: add exhaustion path", "octocat", now.Add(-time.Hour), pq.StringArray{}))

	expectNoPriorReport(mock)

	mock.ExpectExec(`INSERT INTO gold_report_reviews`).WillReturnResult(sqlmock.NewResult(0, 1))

	report, err := svc.RunForRepository(context.Background(), repoID)
	if report != nil {
		t.Fatalf("report = %+v, want nil on validation exhaustion", report)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if verr.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", verr.Attempts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
