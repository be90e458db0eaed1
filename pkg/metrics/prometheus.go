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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds Ghillie's live Prometheus collectors, exposed at /metrics
// alongside /healthz. It is additive real-time observability; the
// in-process ReportingSnapshot aggregation in snapshot.go remains the source of
// truth for the snapshot() API (spec.md §4.11).
var Registry = prometheus.NewRegistry()

var (
	ingestionRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ghillie",
			Subsystem: "ingestion",
			Name:      "runs_total",
			Help:      "Total ingestion worker runs by lifecycle outcome (started|completed|failed).",
		},
		[]string{"outcome"},
	)

	ingestionRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ghillie",
			Subsystem: "ingestion",
			Name:      "run_duration_seconds",
			Help:      "Duration of completed or failed ingestion worker runs.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~1024s
		},
		[]string{"outcome"},
	)

	ingestionEventsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ghillie",
			Subsystem: "ingestion",
			Name:      "events_ingested_total",
			Help:      "Total raw events ingested into Bronze per repository.",
		},
		[]string{"repository"},
	)

	ingestionStalledRepositories = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ghillie",
			Subsystem: "ingestion",
			Name:      "stalled_repositories",
			Help:      "1 if a repository's last successful ingestion run is older than the stall threshold, 0 otherwise.",
		},
		[]string{"repository"},
	)

	reportingAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ghillie",
			Subsystem: "reporting",
			Name:      "attempts_total",
			Help:      "Total report generation attempts by scope and outcome (persisted|validation_failed|error).",
		},
		[]string{"scope", "outcome"},
	)

	reportingValidationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ghillie",
			Subsystem: "reporting",
			Name:      "validation_failures_total",
			Help:      "Total report validation failures by scope and stable issue code.",
		},
		[]string{"scope", "issue_code"},
	)

	reportingModelLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ghillie",
			Subsystem: "reporting",
			Name:      "model_latency_seconds",
			Help:      "Latency of status-model invocations during report generation.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~409s
		},
		[]string{"scope", "model"},
	)

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ghillie",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ghillie",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests handled, by method, route, and status code.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ghillie",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)
)

func init() {
	Registry.MustRegister(
		ingestionRunsTotal,
		ingestionRunDuration,
		ingestionEventsIngested,
		ingestionStalledRepositories,
		reportingAttemptsTotal,
		reportingValidationFailuresTotal,
		reportingModelLatency,
		httpInFlight,
		httpRequestsTotal,
		httpRequestDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus
// metrics, mounted at /metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps next with HTTP request counters, a duration
// histogram, and an in-flight gauge. route should be the matched route
// pattern (e.g. "/reports/repositories/:owner/:name"), not the raw path,
// to keep label cardinality bounded.
func InstrumentHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		httpRequestsTotal.WithLabelValues(r.Method, route, statusLabel(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// IngestionRecorder records ingestion worker lifecycle events
// (ingestion.run.started/completed/failed per spec.md §4.5) as Prometheus
// counters and histograms.
type IngestionRecorder struct{}

// NewIngestionRecorder constructs an IngestionRecorder over the package
// Registry.
func NewIngestionRecorder() IngestionRecorder { return IngestionRecorder{} }

// RunStarted records the start of an ingestion run.
func (IngestionRecorder) RunStarted() {
	ingestionRunsTotal.WithLabelValues("started").Inc()
}

// RunCompleted records a successful ingestion run and its duration.
func (IngestionRecorder) RunCompleted(duration time.Duration) {
	ingestionRunsTotal.WithLabelValues("completed").Inc()
	ingestionRunDuration.WithLabelValues("completed").Observe(duration.Seconds())
}

// RunFailed records a failed ingestion run and its duration.
func (IngestionRecorder) RunFailed(duration time.Duration) {
	ingestionRunsTotal.WithLabelValues("failed").Inc()
	ingestionRunDuration.WithLabelValues("failed").Observe(duration.Seconds())
}

// EventsIngested records the number of raw events ingested for a
// repository slug ("owner/name").
func (IngestionRecorder) EventsIngested(repositorySlug string, count int) {
	if count <= 0 {
		return
	}
	ingestionEventsIngested.WithLabelValues(repositorySlug).Add(float64(count))
}

// SetStalled publishes whether a repository's last successful run exceeds
// the stall threshold, per StalledRepositories in spec.md §4.5.
func (IngestionRecorder) SetStalled(repositorySlug string, stalled bool) {
	v := 0.0
	if stalled {
		v = 1.0
	}
	ingestionStalledRepositories.WithLabelValues(repositorySlug).Set(v)
}

// ReportingRecorder records report generation attempt outcomes,
// validation failures, and status-model latency (spec.md §4.9/§4.10).
type ReportingRecorder struct{}

// NewReportingRecorder constructs a ReportingRecorder over the package
// Registry.
func NewReportingRecorder() ReportingRecorder { return ReportingRecorder{} }

// AttemptPersisted records a report attempt that was generated, validated,
// and persisted successfully.
func (ReportingRecorder) AttemptPersisted(scope string) {
	reportingAttemptsTotal.WithLabelValues(scope, "persisted").Inc()
}

// AttemptValidationFailed records a report attempt that failed validation,
// for each stable issue code the Validator returned.
func (ReportingRecorder) AttemptValidationFailed(scope string, issueCodes []string) {
	reportingAttemptsTotal.WithLabelValues(scope, "validation_failed").Inc()
	for _, code := range issueCodes {
		reportingValidationFailuresTotal.WithLabelValues(scope, code).Inc()
	}
}

// AttemptErrored records a report attempt that failed for a reason other
// than validation (e.g. a status-model or persistence error).
func (ReportingRecorder) AttemptErrored(scope string) {
	reportingAttemptsTotal.WithLabelValues(scope, "error").Inc()
}

// ModelLatency records the latency of a single status-model invocation.
func (ReportingRecorder) ModelLatency(scope, model string, duration time.Duration) {
	reportingModelLatency.WithLabelValues(scope, model).Observe(duration.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func statusLabel(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
