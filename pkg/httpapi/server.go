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

// Package httpapi is the report surface described in spec.md §6: health
// probes and the on-demand repository reporting endpoint.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/abcxyz/ghillie/pkg/gold"
	"github.com/abcxyz/ghillie/pkg/metrics"
	"github.com/abcxyz/ghillie/pkg/reporting"
	"github.com/abcxyz/ghillie/pkg/silver"
	"github.com/abcxyz/pkg/healthcheck"
	"github.com/abcxyz/pkg/logging"
	"github.com/abcxyz/pkg/renderer"
	"github.com/google/uuid"
)

// RepositoryResolver is the subset of silver.Store the server depends on
// to map an {owner}/{name} path to the repository id the reporting
// service runs against.
type RepositoryResolver interface {
	GetRepositoryBySlug(ctx context.Context, owner, name string) (silver.Repository, error)
}

// ReportRunner is the subset of reporting.Service the server depends on.
type ReportRunner interface {
	RunForRepository(ctx context.Context, repoID uuid.UUID) (*gold.Report, error)
}

// Server is the HTTP report surface: health probes, the on-demand
// reporting endpoint, and the Prometheus /metrics endpoint.
type Server struct {
	repos    RepositoryResolver
	reports  ReportRunner
	renderer *renderer.Renderer
}

// New constructs a Server.
func New(repos RepositoryResolver, reports ReportRunner, h *renderer.Renderer) *Server {
	return &Server{repos: repos, reports: reports, renderer: h}
}

// Routes builds the ServeMux this server answers on.
func (s *Server) Routes(ctx context.Context) http.Handler {
	logger := logging.FromContext(ctx)
	mux := http.NewServeMux()
	mux.Handle("/healthz", healthcheck.HandleHTTPHealthCheck())
	mux.HandleFunc("GET /health", s.handleHealth())
	mux.HandleFunc("GET /ready", s.handleReady())
	mux.HandleFunc("POST /reports/repositories/{owner}/{name}", s.handleTriggerReport())
	mux.Handle("/metrics", metrics.Handler())

	root := logging.HTTPInterceptor(logger, "")(mux)
	return metrics.InstrumentHandler("reports", root)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderer.RenderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) handleReady() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderer.RenderJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// reportResponse is the 200 response body for a persisted report, per
// spec.md §6.
type reportResponse struct {
	ReportID    string        `json:"report_id"`
	Repository  string        `json:"repository"`
	WindowStart time.Time     `json:"window_start"`
	WindowEnd   time.Time     `json:"window_end"`
	GeneratedAt time.Time     `json:"generated_at"`
	Status      gold.Status   `json:"status"`
	Model       string        `json:"model"`
	Metrics     reportMetrics `json:"metrics"`
}

type reportMetrics struct {
	LatencyMs        int64 `json:"latency_ms"`
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// errorResponse is the 404 response body, per spec.md §6.
type errorResponse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// validationErrorResponse is the 422 response body, per spec.md §6.
type validationErrorResponse struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Issues      []gold.ValidationIssue `json:"issues"`
	ReviewID    string                 `json:"review_id"`
}

func (s *Server) handleTriggerReport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)
		owner := r.PathValue("owner")
		name := r.PathValue("name")

		repo, err := s.repos.GetRepositoryBySlug(ctx, owner, name)
		if errors.Is(err, silver.ErrRepositoryNotFound) {
			s.renderer.RenderJSON(w, http.StatusNotFound, errorResponse{
				Title:       "repository not found",
				Description: "no repository is registered for " + owner + "/" + name,
			})
			return
		}
		if err != nil {
			logger.ErrorContext(ctx, "httpapi: resolve repository", "repository", owner+"/"+name, "error", err)
			s.renderer.RenderJSON(w, http.StatusInternalServerError, errorResponse{
				Title:       "internal error",
				Description: "failed to resolve repository",
			})
			return
		}

		report, err := s.reports.RunForRepository(ctx, repo.ID)
		var verr *reporting.ValidationError
		if errors.As(err, &verr) {
			s.renderer.RenderJSON(w, http.StatusUnprocessableEntity, validationErrorResponse{
				Title:       "report validation failed",
				Description: "the status model's output failed validation after exhausting the retry budget",
				Issues:      verr.Issues,
				ReviewID:    verr.ReviewID.String(),
			})
			return
		}
		if err != nil {
			logger.ErrorContext(ctx, "httpapi: run report", "repository", owner+"/"+name, "error", err)
			s.renderer.RenderJSON(w, http.StatusInternalServerError, errorResponse{
				Title:       "internal error",
				Description: "failed to generate report",
			})
			return
		}
		if report == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		s.renderer.RenderJSON(w, http.StatusOK, toReportResponse(owner, name, *report))
	}
}

func toReportResponse(owner, name string, report gold.Report) reportResponse {
	var m reportMetrics
	if report.ModelLatencyMs != nil {
		m.LatencyMs = *report.ModelLatencyMs
	}
	if report.PromptTokens != nil {
		m.PromptTokens = *report.PromptTokens
	}
	if report.CompletionTokens != nil {
		m.CompletionTokens = *report.CompletionTokens
	}
	if report.TotalTokens != nil {
		m.TotalTokens = *report.TotalTokens
	}
	return reportResponse{
		ReportID:    report.ID.String(),
		Repository:  owner + "/" + name,
		WindowStart: report.WindowStart,
		WindowEnd:   report.WindowEnd,
		GeneratedAt: report.GeneratedAt,
		Status:      report.MachineSummary.Status,
		Model:       report.Model,
		Metrics:     m,
	}
}
