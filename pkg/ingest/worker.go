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

// Package ingest implements the GitHub ingestion worker: it polls every
// active Silver repository for activity since its last checkpoint,
// applies the catalogue's noise filter, and writes surviving events
// through Bronze. It never reaches into Silver/transform beyond the
// RepositoryStore and BronzeWriter interfaces below.
package ingest

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/abcxyz/ghillie/pkg/bronze"
	"github.com/abcxyz/ghillie/pkg/catalogue"
	"github.com/abcxyz/ghillie/pkg/githubclient"
	"github.com/abcxyz/ghillie/pkg/silver"
	"github.com/abcxyz/pkg/logging"
	"github.com/abcxyz/pkg/workerpool"
	"github.com/google/uuid"
)

// GitHubSource is the subset of githubclient.Client the worker depends
// on, narrowed for testability.
type GitHubSource interface {
	ActivitySince(ctx context.Context, owner, name string, since time.Time, pageSize int) ([]githubclient.ActivityEvent, error)
}

// RepositoryStore is the subset of silver.Store the worker depends on.
type RepositoryStore interface {
	ListActive(ctx context.Context) ([]silver.Repository, error)
	MarkIngestionSuccess(ctx context.Context, id uuid.UUID, at time.Time) error
	StalledRepositories(ctx context.Context, now time.Time, threshold time.Duration) ([]silver.Repository, error)
}

// BronzeWriter is the subset of bronze.Store the worker depends on.
type BronzeWriter interface {
	Ingest(ctx context.Context, source, eventType, externalID string, occurredAt time.Time, payload []byte) (bronze.IngestOutcome, error)
}

// Recorder records ingestion lifecycle metrics. metrics.IngestionRecorder
// satisfies this.
type Recorder interface {
	RunStarted()
	RunCompleted(duration time.Duration)
	RunFailed(duration time.Duration)
	EventsIngested(repositorySlug string, count int)
	SetStalled(repositorySlug string, stalled bool)
}

// Options configures a Worker.
type Options struct {
	// Concurrency bounds how many repositories are polled at once.
	// <= 0 defaults to runtime.NumCPU().
	Concurrency int64
	// PageSize bounds each paginated GitHub list call.
	PageSize int
	// StalenessThreshold is how long a repository may go without a
	// successful run before StalledRepositories reports it.
	StalenessThreshold time.Duration
	// DefaultBackfill bounds how far back the first poll of a
	// never-ingested repository reaches.
	DefaultBackfill time.Duration
}

// Worker polls every active repository for GitHub activity and writes it
// through Bronze, one task per repository via a worker pool.
type Worker struct {
	github    GitHubSource
	catalogue catalogue.Adapter
	repos     RepositoryStore
	bronze    BronzeWriter
	recorder  Recorder
	opts      Options
}

// New constructs a Worker.
func New(github GitHubSource, cat catalogue.Adapter, repos RepositoryStore, bronzeStore BronzeWriter, recorder Recorder, opts Options) *Worker {
	if opts.Concurrency <= 0 {
		opts.Concurrency = int64(runtime.NumCPU())
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.StalenessThreshold <= 0 {
		opts.StalenessThreshold = 24 * time.Hour
	}
	if opts.DefaultBackfill <= 0 {
		opts.DefaultBackfill = 7 * 24 * time.Hour
	}
	return &Worker{github: github, catalogue: cat, repos: repos, bronze: bronzeStore, recorder: recorder, opts: opts}
}

// RunSummary summarizes one Run call across every active repository.
type RunSummary struct {
	RepositoriesPolled int
	EventsIngested     int
	Failures           int
}

// Run iterates every active repository and polls it for activity,
// dispatching one task per repository through a worker pool. A failure
// ingesting one repository does not stop the others; it is counted in
// RunSummary.Failures and logged.
func (w *Worker) Run(ctx context.Context) (RunSummary, error) {
	logger := logging.FromContext(ctx)
	start := time.Now()
	w.recorder.RunStarted()

	active, err := w.repos.ListActive(ctx)
	if err != nil {
		w.recorder.RunFailed(time.Since(start))
		return RunSummary{}, fmt.Errorf("ingest: list active repositories: %w", err)
	}

	pool := workerpool.New[repoOutcome](&workerpool.Config{
		Concurrency: w.opts.Concurrency,
		StopOnError: false,
	})

	for _, repo := range active {
		repo := repo
		if err := pool.Do(ctx, func() (repoOutcome, error) {
			return w.pollOne(ctx, repo), nil
		}); err != nil {
			w.recorder.RunFailed(time.Since(start))
			return RunSummary{}, fmt.Errorf("ingest: submit task for %s: %w", repo.Slug(), err)
		}
	}

	results, err := pool.Done(ctx)
	if err != nil {
		w.recorder.RunFailed(time.Since(start))
		return RunSummary{}, fmt.Errorf("ingest: worker pool: %w", err)
	}

	var summary RunSummary
	summary.RepositoriesPolled = len(results)
	for _, r := range results {
		summary.EventsIngested += r.Value.ingested
		if r.Value.err != nil {
			summary.Failures++
			logger.ErrorContext(ctx, "ingestion.run.failed",
				"repository", r.Value.slug,
				"error_category", errorCategory(r.Value.err),
				"error", r.Value.err)
		}
	}

	if summary.Failures > 0 {
		w.recorder.RunFailed(time.Since(start))
		logger.WarnContext(ctx, "ingestion.run.completed",
			"repositories_polled", summary.RepositoriesPolled,
			"events_ingested", summary.EventsIngested,
			"failures", summary.Failures)
		return summary, nil
	}

	w.recorder.RunCompleted(time.Since(start))
	logger.InfoContext(ctx, "ingestion.run.completed",
		"repositories_polled", summary.RepositoriesPolled,
		"events_ingested", summary.EventsIngested)
	return summary, nil
}

type repoOutcome struct {
	slug     string
	ingested int
	err      error
}

func (w *Worker) pollOne(ctx context.Context, repo silver.Repository) repoOutcome {
	slug := repo.Slug()
	logging.FromContext(ctx).InfoContext(ctx, "ingestion.run.started", "repository", slug)

	since := time.Now().Add(-w.opts.DefaultBackfill)
	if repo.LastSuccessAt != nil {
		since = *repo.LastSuccessAt
	}

	filter, err := w.catalogue.NoiseFiltersForRepository(ctx, repo.GitHubOwner, repo.GitHubName)
	if err != nil {
		return repoOutcome{slug: slug, err: fmt.Errorf("resolve noise filter: %w", err)}
	}

	events, err := w.github.ActivitySince(ctx, repo.GitHubOwner, repo.GitHubName, since, w.opts.PageSize)
	if err != nil {
		return repoOutcome{slug: slug, err: fmt.Errorf("poll activity: %w", err)}
	}

	runStart := time.Now()
	ingested := 0
	for _, ev := range events {
		if isNoise(ev.Actor, filter) {
			continue
		}
		if _, err := w.bronze.Ingest(ctx, "github", ev.EventType, ev.ExternalID, ev.OccurredAt, ev.Payload); err != nil {
			return repoOutcome{slug: slug, ingested: ingested, err: fmt.Errorf("ingest event %s: %w", ev.ExternalID, err)}
		}
		ingested++
	}
	w.recorder.EventsIngested(slug, ingested)

	if err := w.repos.MarkIngestionSuccess(ctx, repo.ID, runStart); err != nil {
		return repoOutcome{slug: slug, ingested: ingested, err: fmt.Errorf("mark ingestion success: %w", err)}
	}
	return repoOutcome{slug: slug, ingested: ingested}
}

// isNoise reports whether an event authored by actor should be dropped
// under filter: bot-suffix exclusion (case-sensitive, matching GitHub's
// own "[bot]" login convention) or an explicit catalogue-configured login.
func isNoise(actor string, filter catalogue.NoiseFilterConfig) bool {
	if actor == "" {
		return false
	}
	if filter.ExcludeBotSuffix != "" && strings.HasSuffix(actor, filter.ExcludeBotSuffix) {
		return true
	}
	for _, login := range filter.ExcludeLogins {
		if actor == login {
			return true
		}
	}
	return false
}

// errorCategory classifies an ingestion failure as transient (retryable
// on the next scheduled poll) or permanent, for the structured lifecycle
// log. Context cancellation/deadline and a handful of common transport
// errors are transient; everything else is treated as permanent so a
// persistently broken repository doesn't retry forever unnoticed.
func errorCategory(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "context deadline exceeded"),
		strings.Contains(msg, "context canceled"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "timeout"):
		return "transient"
	default:
		return "permanent"
	}
}

// StalledRepositories reports active repositories whose last successful
// run is older than the configured staleness threshold, or that have
// never completed one, publishing the result to the recorder for
// /metrics visibility.
func (w *Worker) StalledRepositories(ctx context.Context) ([]silver.Repository, error) {
	all, err := w.repos.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("ingest: list active repositories: %w", err)
	}
	stalled, err := w.repos.StalledRepositories(ctx, time.Now(), w.opts.StalenessThreshold)
	if err != nil {
		return nil, fmt.Errorf("ingest: stalled repositories: %w", err)
	}

	stalledSet := make(map[string]bool, len(stalled))
	for _, r := range stalled {
		stalledSet[r.Slug()] = true
	}
	for _, r := range all {
		w.recorder.SetStalled(r.Slug(), stalledSet[r.Slug()])
	}
	return stalled, nil
}
