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

package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abcxyz/ghillie/pkg/gold"
	"github.com/abcxyz/ghillie/pkg/reporting"
	"github.com/abcxyz/ghillie/pkg/silver"
	"github.com/abcxyz/pkg/renderer"
	"github.com/google/uuid"
)

type fakeRepoResolver struct {
	repo silver.Repository
	err  error
}

func (f *fakeRepoResolver) GetRepositoryBySlug(ctx context.Context, owner, name string) (silver.Repository, error) {
	return f.repo, f.err
}

type fakeReportRunner struct {
	report *gold.Report
	err    error
}

func (f *fakeReportRunner) RunForRepository(ctx context.Context, repoID uuid.UUID) (*gold.Report, error) {
	return f.report, f.err
}

func newTestRenderer(t *testing.T) *renderer.Renderer {
	t.Helper()
	h, err := renderer.New(t.Context(), nil,
		renderer.WithOnError(func(err error) {
			t.Error(err)
		}))
	if err != nil {
		t.Fatalf("renderer.New: %v", err)
	}
	return h
}

func TestServer_HandleTriggerReport_NotFound(t *testing.T) {
	t.Parallel()

	h := newTestRenderer(t)
	repos := &fakeRepoResolver{err: silver.ErrRepositoryNotFound}
	reports := &fakeReportRunner{}
	srv := New(repos, reports, h)

	req := httptest.NewRequest(http.MethodPost, "/reports/repositories/abcxyz/missing", nil)
	resp := httptest.NewRecorder()
	srv.Routes(t.Context()).ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", resp.Code, resp.Body.String())
	}
}

func TestServer_HandleTriggerReport_NoContentWhenNoActivity(t *testing.T) {
	t.Parallel()

	h := newTestRenderer(t)
	repos := &fakeRepoResolver{repo: silver.Repository{ID: uuid.Must(uuid.NewV7()), GitHubOwner: "abcxyz", GitHubName: "ghillie"}}
	reports := &fakeReportRunner{report: nil}
	srv := New(repos, reports, h)

	req := httptest.NewRequest(http.MethodPost, "/reports/repositories/abcxyz/ghillie", nil)
	resp := httptest.NewRecorder()
	srv.Routes(t.Context()).ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204: %s", resp.Code, resp.Body.String())
	}
}

func TestServer_HandleTriggerReport_PersistedReport(t *testing.T) {
	t.Parallel()

	h := newTestRenderer(t)
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	latency := int64(42)
	report := &gold.Report{
		ID:             uuid.Must(uuid.NewV7()),
		WindowStart:    now.Add(-7 * 24 * time.Hour),
		WindowEnd:      now,
		GeneratedAt:    now,
		Model:          "mock",
		ModelLatencyMs: &latency,
		MachineSummary: gold.MachineSummary{Status: gold.StatusOnTrack, Summary: "all good"},
	}
	repos := &fakeRepoResolver{repo: silver.Repository{ID: uuid.Must(uuid.NewV7()), GitHubOwner: "abcxyz", GitHubName: "ghillie"}}
	reports := &fakeReportRunner{report: report}
	srv := New(repos, reports, h)

	req := httptest.NewRequest(http.MethodPost, "/reports/repositories/abcxyz/ghillie", nil)
	resp := httptest.NewRecorder()
	srv.Routes(t.Context()).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}
	var body reportResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Repository != "abcxyz/ghillie" {
		t.Errorf("Repository = %q, want abcxyz/ghillie", body.Repository)
	}
	if body.Status != gold.StatusOnTrack {
		t.Errorf("Status = %q, want on_track", body.Status)
	}
	if body.Metrics.LatencyMs != 42 {
		t.Errorf("LatencyMs = %d, want 42", body.Metrics.LatencyMs)
	}
}

func TestServer_HandleTriggerReport_ValidationExhausted(t *testing.T) {
	t.Parallel()

	h := newTestRenderer(t)
	repos := &fakeRepoResolver{repo: silver.Repository{ID: uuid.Must(uuid.NewV7()), GitHubOwner: "abcxyz", GitHubName: "ghillie"}}
	reviewID := uuid.Must(uuid.NewV7())
	reports := &fakeReportRunner{err: &reporting.ValidationError{
		Attempts: 2,
		Issues:   []gold.ValidationIssue{{Code: "empty_summary", Message: "summary is empty"}},
		ReviewID: reviewID,
	}}
	srv := New(repos, reports, h)

	req := httptest.NewRequest(http.MethodPost, "/reports/repositories/abcxyz/ghillie", nil)
	resp := httptest.NewRecorder()
	srv.Routes(t.Context()).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", resp.Code, resp.Body.String())
	}
	var body validationErrorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.ReviewID != reviewID.String() {
		t.Errorf("ReviewID = %q, want %q", body.ReviewID, reviewID.String())
	}
	if len(body.Issues) != 1 || body.Issues[0].Code != "empty_summary" {
		t.Errorf("Issues = %+v, want one empty_summary issue", body.Issues)
	}
}

func TestServer_HandleHealth(t *testing.T) {
	t.Parallel()

	h := newTestRenderer(t)
	srv := New(&fakeRepoResolver{}, &fakeReportRunner{}, h)

	for _, path := range []string{"/health", "/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		srv.Routes(t.Context()).ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, resp.Code)
		}
	}
}
