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

// Package reporting orchestrates the reporting pipeline described in
// spec.md §4.9: window computation, the validation attempt loop,
// persistence, ReportReview on exhaustion, and sink dispatch.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abcxyz/ghillie/pkg/evidence"
	"github.com/abcxyz/ghillie/pkg/gold"
	"github.com/abcxyz/ghillie/pkg/markdown"
	"github.com/abcxyz/ghillie/pkg/metrics"
	"github.com/abcxyz/ghillie/pkg/sink"
	"github.com/abcxyz/ghillie/pkg/statusmodel"
	"github.com/abcxyz/pkg/logging"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

const (
	defaultWindowDays            = 7
	defaultValidationMaxAttempts = 2
)

// ValidationError is returned when a reporting attempt exhausts its
// retry budget without producing a valid Result, per spec.md §4.9 step 3.
// No Report is persisted in this case; a ReportReview marker is upserted
// instead.
type ValidationError struct {
	Attempts int
	Issues   []gold.ValidationIssue
	ReviewID uuid.UUID
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("reporting: validation failed after %d attempt(s): %d issue(s) (first: %s)",
		e.Attempts, len(e.Issues), firstIssueCode(e.Issues))
}

func firstIssueCode(issues []gold.ValidationIssue) string {
	if len(issues) == 0 {
		return "none"
	}
	return issues[0].Code
}

// Options configures a Service. Zero-value fields fall back to spec.md
// defaults (VALIDATION_MAX_ATTEMPTS=2, REPORTING_WINDOW_DAYS=7).
type Options struct {
	WindowDays            int
	ValidationMaxAttempts int
	Sink                  sink.ReportSink // optional; nil disables sink dispatch
	Reporting             metrics.ReportingRecorder
	// Now returns the current time; overridable for tests. Defaults to
	// time.Now.
	Now func() time.Time
}

// Service orchestrates the reporting pipeline: evidence assembly, status
// model invocation, validation, persistence, and sink dispatch.
type Service struct {
	repoEvidence    *evidence.RepositoryService
	projectEvidence *evidence.ProjectService
	gold            *gold.Store
	model           statusmodel.Model
	validator       Validator
	opts            Options
}

// NewService constructs a reporting Service.
func NewService(
	repoEvidence *evidence.RepositoryService,
	projectEvidence *evidence.ProjectService,
	goldStore *gold.Store,
	model statusmodel.Model,
	opts Options,
) *Service {
	if opts.WindowDays <= 0 {
		opts.WindowDays = defaultWindowDays
	}
	if opts.ValidationMaxAttempts < 1 {
		opts.ValidationMaxAttempts = defaultValidationMaxAttempts
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repoEvidence:    repoEvidence,
		projectEvidence: projectEvidence,
		gold:            goldStore,
		model:           model,
		validator:       NewValidator(),
		opts:            opts,
	}
}

// RunForRepository builds the repository evidence bundle for repoID over
// the computed window, summarizes it, validates the result, and persists
// a Report on success. Returns (nil, nil) if there is no new activity to
// report, per spec.md §4.9 step 1.
func (s *Service) RunForRepository(ctx context.Context, repoID uuid.UUID) (*gold.Report, error) {
	logger := logging.FromContext(ctx)
	asOf := s.opts.Now().UTC()

	windowStart := asOf.Add(-time.Duration(s.opts.WindowDays) * 24 * time.Hour)
	if last, ok, err := s.gold.LatestForRepository(ctx, repoID); err != nil {
		return nil, fmt.Errorf("reporting: latest repository report: %w", err)
	} else if ok {
		windowStart = last.WindowEnd
	}

	bundle, err := s.repoEvidence.Build(ctx, repoID, windowStart, asOf)
	if err != nil {
		return nil, fmt.Errorf("reporting: build repository evidence: %w", err)
	}
	if bundle.IsEmpty() {
		return nil, nil
	}

	logger.InfoContext(ctx, "reporting.report.started",
		"scope", gold.ScopeRepository, "repository", bundle.RepositorySlug,
		"window_start", windowStart, "window_end", asOf)

	outcome, err := s.attemptLoop(ctx, string(gold.ScopeRepository), bundle, func(ctx context.Context) (statusmodel.Result, error) {
		return s.model.SummarizeRepository(ctx, bundle)
	})
	if err != nil {
		s.opts.Reporting.AttemptErrored(string(gold.ScopeRepository))
		logger.ErrorContext(ctx, "reporting.report.failed",
			"repository", bundle.RepositorySlug, "error_kind", errorKind(err), "error", err)
		return nil, fmt.Errorf("reporting: summarize repository: %w", err)
	}
	if len(outcome.issues) > 0 {
		reviewID, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("reporting: generate report review id: %w", err)
		}
		if rerr := s.gold.UpsertReportReview(ctx, gold.ReportReview{
			ID:               reviewID,
			Scope:            gold.ScopeRepository,
			RepositoryID:     repoID,
			WindowStart:      windowStart,
			WindowEnd:        asOf,
			Model:            s.model.Name(),
			AttemptCount:     outcome.attempts,
			ValidationIssues: outcome.issues,
			State:            gold.ReviewPending,
		}); rerr != nil {
			return nil, fmt.Errorf("reporting: upsert report review: %w", rerr)
		}
		s.opts.Reporting.AttemptValidationFailed(string(gold.ScopeRepository), issueCodes(outcome.issues))
		logger.ErrorContext(ctx, "reporting.report.failed",
			"repository", bundle.RepositorySlug, "error_kind", "validation", "attempts", outcome.attempts)
		return nil, &ValidationError{Attempts: outcome.attempts, Issues: outcome.issues, ReviewID: reviewID}
	}

	reportID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("reporting: generate report id: %w", err)
	}
	report := gold.Report{
		ID:             reportID,
		Scope:          gold.ScopeRepository,
		RepositoryID:   repoID,
		WindowStart:    windowStart,
		WindowEnd:      asOf,
		GeneratedAt:    asOf,
		Model:          s.model.Name(),
		MachineSummary: toMachineSummary(outcome.result),
		ModelLatencyMs: &outcome.latencyMs,
	}
	applyTokenMetrics(&report, outcome)

	if err := s.gold.PersistReport(ctx, report, bundle.EventFactIDs); err != nil {
		return nil, fmt.Errorf("reporting: persist report: %w", err)
	}
	s.opts.Reporting.AttemptPersisted(string(gold.ScopeRepository))

	s.dispatchSink(ctx, bundle.RepositorySlug, report)

	logger.InfoContext(ctx, "reporting.report.completed",
		"repository", bundle.RepositorySlug, "report_id", report.ID,
		"attempts", outcome.attempts, "latency_ms", outcome.latencyMs)
	return &report, nil
}

// RunForProject is the project-scope analogue of RunForRepository: it
// rolls up ComponentRepositorySummaries into a single project-level
// Report. Project reports carry no independent event-fact coverage (the
// evidence they summarize is already covered by the repository-scoped
// reports they reference), so no ReportCoverage rows are written, and no
// sink dispatch occurs — the filesystem sink's owner/name path layout
// only applies to repository-scoped reports (spec.md §4.9's sink
// contract).
func (s *Service) RunForProject(ctx context.Context, projectKey string) (*gold.Report, error) {
	logger := logging.FromContext(ctx)
	asOf := s.opts.Now().UTC()

	windowStart := asOf.Add(-time.Duration(s.opts.WindowDays) * 24 * time.Hour)
	if last, ok, err := s.gold.LatestForProject(ctx, projectKey); err != nil {
		return nil, fmt.Errorf("reporting: latest project report: %w", err)
	} else if ok {
		windowStart = last.WindowEnd
	}

	bundle, err := s.projectEvidence.Build(ctx, projectKey)
	if err != nil {
		return nil, fmt.Errorf("reporting: build project evidence: %w", err)
	}
	if bundle.IsEmpty() {
		return nil, nil
	}

	logger.InfoContext(ctx, "reporting.report.started",
		"scope", gold.ScopeProject, "project", projectKey,
		"window_start", windowStart, "window_end", asOf)

	outcome, err := s.attemptLoop(ctx, string(gold.ScopeProject), bundle, func(ctx context.Context) (statusmodel.Result, error) {
		return s.model.SummarizeProject(ctx, bundle)
	})
	if err != nil {
		s.opts.Reporting.AttemptErrored(string(gold.ScopeProject))
		logger.ErrorContext(ctx, "reporting.report.failed",
			"project", projectKey, "error_kind", errorKind(err), "error", err)
		return nil, fmt.Errorf("reporting: summarize project: %w", err)
	}
	if len(outcome.issues) > 0 {
		reviewID, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("reporting: generate report review id: %w", err)
		}
		if rerr := s.gold.UpsertReportReview(ctx, gold.ReportReview{
			ID:               reviewID,
			Scope:            gold.ScopeProject,
			ProjectKey:       projectKey,
			WindowStart:      windowStart,
			WindowEnd:        asOf,
			Model:            s.model.Name(),
			AttemptCount:     outcome.attempts,
			ValidationIssues: outcome.issues,
			State:            gold.ReviewPending,
		}); rerr != nil {
			return nil, fmt.Errorf("reporting: upsert report review: %w", rerr)
		}
		s.opts.Reporting.AttemptValidationFailed(string(gold.ScopeProject), issueCodes(outcome.issues))
		logger.ErrorContext(ctx, "reporting.report.failed",
			"project", projectKey, "error_kind", "validation", "attempts", outcome.attempts)
		return nil, &ValidationError{Attempts: outcome.attempts, Issues: outcome.issues, ReviewID: reviewID}
	}

	reportID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("reporting: generate report id: %w", err)
	}
	report := gold.Report{
		ID:             reportID,
		Scope:          gold.ScopeProject,
		ProjectKey:     projectKey,
		WindowStart:    windowStart,
		WindowEnd:      asOf,
		GeneratedAt:    asOf,
		Model:          s.model.Name(),
		MachineSummary: toMachineSummary(outcome.result),
		ModelLatencyMs: &outcome.latencyMs,
	}
	applyTokenMetrics(&report, outcome)

	if err := s.gold.PersistReport(ctx, report, nil); err != nil {
		return nil, fmt.Errorf("reporting: persist report: %w", err)
	}
	s.opts.Reporting.AttemptPersisted(string(gold.ScopeProject))

	logger.InfoContext(ctx, "reporting.report.completed",
		"project", projectKey, "report_id", report.ID,
		"attempts", outcome.attempts, "latency_ms", outcome.latencyMs)
	return &report, nil
}

// attemptOutcome is the result of the bounded validation attempt loop.
type attemptOutcome struct {
	result     statusmodel.Result
	latencyMs  int64
	haveTokens bool
	tokens     statusmodel.InvocationMetrics
	attempts   int
	issues     []gold.ValidationIssue
}

// attemptLoop runs summarize up to opts.ValidationMaxAttempts times,
// validating each result against subject, per spec.md §4.9 step 2. A
// non-nil error means summarize itself failed (not retried — only
// validation failures are retried); a non-empty outcome.issues means the
// retry budget was exhausted without a valid result.
func (s *Service) attemptLoop(
	ctx context.Context,
	scope string,
	subject evidenceSubject,
	summarize func(context.Context) (statusmodel.Result, error),
) (attemptOutcome, error) {
	var outcome attemptOutcome
	var transportErr error

	backoff := retry.WithMaxRetries(uint64(s.opts.ValidationMaxAttempts-1), retry.NewConstant(time.Nanosecond))
	doErr := retry.Do(ctx, backoff, func(ctx context.Context) error {
		outcome.attempts++

		start := time.Now()
		res, err := summarize(ctx)
		latency := time.Since(start)
		s.opts.Reporting.ModelLatency(scope, s.model.Name(), latency)

		if err != nil {
			transportErr = fmt.Errorf("status model: %w", err)
			return transportErr
		}

		outcome.latencyMs = latency.Milliseconds()
		outcome.haveTokens = false
		if ms, ok := s.model.(statusmodel.MetricsSource); ok {
			if m, have := ms.LastInvocationMetrics(); have {
				outcome.tokens = m
				outcome.haveTokens = true
			}
		}

		issues := s.validator.Validate(subject, res)
		if len(issues) == 0 {
			outcome.result = res
			outcome.issues = nil
			return nil
		}
		outcome.issues = issues
		return retry.RetryableError(fmt.Errorf("reporting: validation failed: %d issue(s)", len(issues)))
	})

	if transportErr != nil {
		return attemptOutcome{attempts: outcome.attempts}, transportErr
	}
	if doErr != nil {
		// Retry budget exhausted on validation failures; outcome.issues
		// already carries the last attempt's issues.
		return outcome, nil
	}
	return outcome, nil
}

func applyTokenMetrics(report *gold.Report, outcome attemptOutcome) {
	if !outcome.haveTokens {
		return
	}
	prompt := outcome.tokens.PromptTokens
	completion := outcome.tokens.CompletionTokens
	total := outcome.tokens.TotalTokens
	report.PromptTokens = &prompt
	report.CompletionTokens = &completion
	report.TotalTokens = &total
}

func (s *Service) dispatchSink(ctx context.Context, repositorySlug string, report gold.Report) {
	if s.opts.Sink == nil {
		return
	}
	owner, name, ok := strings.Cut(repositorySlug, "/")
	if !ok {
		return
	}
	rendered := markdown.Render(report.MachineSummary, markdown.Metadata{
		Owner:       owner,
		Name:        name,
		WindowStart: report.WindowStart,
		WindowEnd:   report.WindowEnd,
		Model:       report.Model,
		ReportID:    report.ID.String(),
	})
	meta := sink.Metadata{
		Owner:     owner,
		Name:      name,
		ReportID:  report.ID.String(),
		WindowEnd: report.WindowEnd.UTC().Format("2006-01-02"),
	}
	if err := s.opts.Sink.WriteReport(ctx, rendered, meta); err != nil {
		logging.FromContext(ctx).ErrorContext(ctx, "reporting: sink write failed",
			"repository", repositorySlug, "report_id", report.ID, "error", err)
	}
}

func toMachineSummary(result statusmodel.Result) gold.MachineSummary {
	return gold.MachineSummary{
		Status:     result.Status,
		Summary:    result.Summary,
		Highlights: result.Highlights,
		Risks:      result.Risks,
		NextSteps:  result.NextSteps,
	}
}

func issueCodes(issues []gold.ValidationIssue) []string {
	codes := make([]string, len(issues))
	for i, issue := range issues {
		codes[i] = issue.Code
	}
	return codes
}

// errorKind classifies an error for the reporting.report.failed lifecycle
// event's error_kind field, per the typed-error design in SPEC_FULL.md
// §7.
func errorKind(err error) string {
	var ctxErr interface{ Timeout() bool }
	if errors.As(err, &ctxErr) && ctxErr.Timeout() {
		return "timeout"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "model_error"
}
