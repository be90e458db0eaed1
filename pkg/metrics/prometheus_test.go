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

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIngestionRecorder_RunLifecycle(t *testing.T) {
	t.Parallel()

	rec := NewIngestionRecorder()

	initial := testutil.ToFloat64(ingestionRunsTotal.WithLabelValues("started"))
	rec.RunStarted()
	if got := testutil.ToFloat64(ingestionRunsTotal.WithLabelValues("started")); got != initial+1 {
		t.Errorf("runs_total{started} = %v, want %v", got, initial+1)
	}

	rec.RunCompleted(250 * time.Millisecond)
	if got := testutil.ToFloat64(ingestionRunsTotal.WithLabelValues("completed")); got < 1 {
		t.Errorf("runs_total{completed} = %v, want >= 1", got)
	}
}

func TestIngestionRecorder_EventsIngestedIgnoresNonPositive(t *testing.T) {
	t.Parallel()

	rec := NewIngestionRecorder()
	initial := testutil.ToFloat64(ingestionEventsIngested.WithLabelValues("abcxyz/ghillie-zero"))
	rec.EventsIngested("abcxyz/ghillie-zero", 0)
	if got := testutil.ToFloat64(ingestionEventsIngested.WithLabelValues("abcxyz/ghillie-zero")); got != initial {
		t.Errorf("events_ingested_total unexpectedly changed: got %v, want %v", got, initial)
	}

	rec.EventsIngested("abcxyz/ghillie-zero", 3)
	if got := testutil.ToFloat64(ingestionEventsIngested.WithLabelValues("abcxyz/ghillie-zero")); got != initial+3 {
		t.Errorf("events_ingested_total = %v, want %v", got, initial+3)
	}
}

func TestIngestionRecorder_SetStalled(t *testing.T) {
	t.Parallel()

	rec := NewIngestionRecorder()
	rec.SetStalled("abcxyz/ghillie-stalled", true)
	if got := testutil.ToFloat64(ingestionStalledRepositories.WithLabelValues("abcxyz/ghillie-stalled")); got != 1 {
		t.Errorf("stalled_repositories = %v, want 1", got)
	}
	rec.SetStalled("abcxyz/ghillie-stalled", false)
	if got := testutil.ToFloat64(ingestionStalledRepositories.WithLabelValues("abcxyz/ghillie-stalled")); got != 0 {
		t.Errorf("stalled_repositories = %v, want 0", got)
	}
}

func TestReportingRecorder_AttemptOutcomes(t *testing.T) {
	t.Parallel()

	rec := NewReportingRecorder()

	initialPersisted := testutil.ToFloat64(reportingAttemptsTotal.WithLabelValues("repository", "persisted"))
	rec.AttemptPersisted("repository")
	if got := testutil.ToFloat64(reportingAttemptsTotal.WithLabelValues("repository", "persisted")); got != initialPersisted+1 {
		t.Errorf("attempts_total{persisted} = %v, want %v", got, initialPersisted+1)
	}

	initialIssues := testutil.ToFloat64(reportingValidationFailuresTotal.WithLabelValues("repository", "empty_summary"))
	rec.AttemptValidationFailed("repository", []string{"empty_summary", "truncated_summary"})
	if got := testutil.ToFloat64(reportingValidationFailuresTotal.WithLabelValues("repository", "empty_summary")); got != initialIssues+1 {
		t.Errorf("validation_failures_total{empty_summary} = %v, want %v", got, initialIssues+1)
	}

	initialErrored := testutil.ToFloat64(reportingAttemptsTotal.WithLabelValues("project", "error"))
	rec.AttemptErrored("project")
	if got := testutil.ToFloat64(reportingAttemptsTotal.WithLabelValues("project", "error")); got != initialErrored+1 {
		t.Errorf("attempts_total{error} = %v, want %v", got, initialErrored+1)
	}
}

func TestReportingRecorder_ModelLatency(t *testing.T) {
	t.Parallel()

	rec := NewReportingRecorder()
	rec.ModelLatency("repository", "heuristic-v1", 120*time.Millisecond)

	count := testutil.CollectAndCount(reportingModelLatency)
	if count == 0 {
		t.Error("model_latency_seconds has no samples recorded")
	}
}

func TestInstrumentHandler_RecordsRequest(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	initial := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPost, "/reports/repositories/:owner/:name", "2xx"))

	handler := InstrumentHandler("/reports/repositories/:owner/:name", next)
	req := httptest.NewRequest(http.MethodPost, "/reports/repositories/abcxyz/ghillie", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusCreated)
	}
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPost, "/reports/repositories/:owner/:name", "2xx")); got != initial+1 {
		t.Errorf("requests_total = %v, want %v", got, initial+1)
	}
}

func TestHandler_ServesRegisteredMetrics(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if rr.Body.Len() == 0 {
		t.Error("metrics handler returned an empty body")
	}
}
