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

// Package transform hydrates Bronze raw events into Silver entities
// through a registry of pure, event-type-keyed functions, continuing the
// teacher's pooledTransform idiom for fanning work across a worker pool.
package transform

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"

	"github.com/abcxyz/ghillie/pkg/bronze"
	"github.com/abcxyz/ghillie/pkg/silver"
	"github.com/abcxyz/pkg/logging"
	"github.com/abcxyz/pkg/workerpool"
	"github.com/google/uuid"
)

// freshPayload re-reads a RawEvent's payload bytes within tx, for the
// integrity check that guards against the row changing between the
// pending scan and this commit.
func freshPayload(ctx context.Context, tx *sql.Tx, id uuid.UUID) ([]byte, error) {
	var payload []byte
	if err := tx.QueryRowContext(ctx, `SELECT payload FROM bronze_raw_events WHERE id = $1`, id).Scan(&payload); err != nil {
		return nil, fmt.Errorf("transform: re-read payload for %s: %w", id, err)
	}
	return payload, nil
}

// SilverWrites is the set of Silver-tier rows a Hydrator derives from a
// single RawEvent. Entries are upserted by natural identifier, never by
// surrogate id, per spec.md §4.2.
type SilverWrites struct {
	Commits              []silver.Commit
	PullRequests         []silver.PullRequest
	Issues               []silver.Issue
	DocumentationChanges []silver.DocumentationChange
}

// RepositoryResolver resolves the repository a raw event's payload refers
// to. silver.Store satisfies this.
type RepositoryResolver interface {
	GetRepositoryBySlug(ctx context.Context, owner, name string) (silver.Repository, error)
}

// Hydrator is a pure function from a RawEvent to its Silver writes and
// canonical EventFact. It may resolve the owning repository but must not
// perform any other I/O or mutate shared state.
type Hydrator func(ctx context.Context, resolver RepositoryResolver, ev bronze.RawEvent) (SilverWrites, silver.EventFact, error)

// Entry binds a Hydrator to the event_type string it handles.
type Entry struct {
	EventType string
	Hydrate   Hydrator
}

// Registry maps event_type to a Hydrator, closed at construction time.
type Registry struct {
	hydrators map[string]Hydrator
}

// NewRegistry builds a closed Registry from the given entries. Event types
// with no registered hydrator fall back to RecordOnlyHydrator.
func NewRegistry(entries ...Entry) *Registry {
	r := &Registry{hydrators: make(map[string]Hydrator, len(entries))}
	for _, e := range entries {
		r.hydrators[e.EventType] = e.Hydrate
	}
	return r
}

// Lookup returns the Hydrator registered for eventType, or
// RecordOnlyHydrator if none was registered.
func (r *Registry) Lookup(eventType string) Hydrator {
	if h, ok := r.hydrators[eventType]; ok {
		return h
	}
	return RecordOnlyHydrator
}

// Result summarizes the outcome of a TransformPending call.
type Result struct {
	Transformed int
	Failed      int
	Skipped     int
}

// Service drives the Bronze → Silver transformation pass.
type Service struct {
	bronze      *bronze.Store
	silver      *silver.Store
	registry    *Registry
	concurrency int64
}

// New creates a transform Service. concurrency <= 0 defaults to
// runtime.NumCPU(), matching the teacher's pooledTransform default.
func New(bronzeStore *bronze.Store, silverStore *silver.Store, registry *Registry, concurrency int64) *Service {
	if concurrency <= 0 {
		concurrency = int64(runtime.NumCPU())
	}
	return &Service{bronze: bronzeStore, silver: silverStore, registry: registry, concurrency: concurrency}
}

type eventOutcome struct {
	transformed bool
	failed      bool
	skipped     bool
}

// TransformPending fetches up to batchSize pending RawEvents and hydrates
// each into its Silver writes inside its own transaction, so a failing
// hydrator leaves sibling rows untouched. Processing fans out across a
// worker pool, one task per raw event.
func (s *Service) TransformPending(ctx context.Context, batchSize int) (Result, error) {
	logger := logging.FromContext(ctx)

	pending, err := s.bronze.Pending(ctx, batchSize)
	if err != nil {
		return Result{}, fmt.Errorf("transform: fetch pending: %w", err)
	}

	pool := workerpool.New[*eventOutcome](&workerpool.Config{
		Concurrency: s.concurrency,
		StopOnError: false,
	})

	for _, ev := range pending {
		ev := ev
		if err := pool.Do(ctx, func() (*eventOutcome, error) {
			outcome, err := s.transformOne(ctx, ev)
			if err != nil {
				logger.ErrorContext(ctx, "transform raw event failed", "raw_event_id", ev.ID, "error", err)
			}
			return &outcome, nil
		}); err != nil {
			return Result{}, fmt.Errorf("transform: submit task: %w", err)
		}
	}

	results, err := pool.Done(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("transform: worker pool: %w", err)
	}

	var res Result
	for _, r := range results {
		if r.Value == nil {
			continue
		}
		switch {
		case r.Value.transformed:
			res.Transformed++
		case r.Value.failed:
			res.Failed++
		case r.Value.skipped:
			res.Skipped++
		}
	}
	return res, nil
}

// transformOne hydrates and commits a single raw event. Errors from the
// hydrator itself are recorded as a failed RawEvent and returned alongside
// a failed outcome; TransformPending only logs them, so one malformed event
// never aborts the batch.
func (s *Service) transformOne(ctx context.Context, ev bronze.RawEvent) (eventOutcome, error) {
	db := s.silver.DB()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return eventOutcome{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort rollback after commit or error

	if existing, ok, err := s.silver.EventFactByRawEventID(ctx, ev.ID); err != nil {
		return eventOutcome{}, err
	} else if ok {
		_ = existing
		if err := bronze.MarkTransformed(ctx, tx, ev.ID); err != nil {
			return eventOutcome{}, err
		}
		if err := tx.Commit(); err != nil {
			return eventOutcome{}, fmt.Errorf("commit skip: %w", err)
		}
		return eventOutcome{skipped: true}, nil
	}

	hydrate := s.registry.Lookup(ev.EventType)
	writes, fact, err := hydrate(ctx, s.silver, ev)
	if err != nil {
		if markErr := bronze.MarkFailed(ctx, tx, ev.ID, err.Error()); markErr != nil {
			return eventOutcome{}, markErr
		}
		if err := tx.Commit(); err != nil {
			return eventOutcome{}, fmt.Errorf("commit hydrate failure: %w", err)
		}
		return eventOutcome{failed: true}, err
	}

	// Integrity pass: re-read the Bronze payload inside this transaction and
	// compare its digest against the one the hydrator derived from the
	// batch-fetch-time payload. A mismatch means the "immutable" row changed
	// between the pending scan and this commit.
	fresh, err := freshPayload(ctx, tx, ev.ID)
	if err != nil {
		return eventOutcome{}, err
	}
	if bronze.Digest(fresh) != fact.PayloadDigest {
		if err := bronze.MarkFailed(ctx, tx, ev.ID, bronze.FailureReasonPayloadMismatch); err != nil {
			return eventOutcome{}, err
		}
		if err := tx.Commit(); err != nil {
			return eventOutcome{}, fmt.Errorf("commit payload mismatch: %w", err)
		}
		return eventOutcome{failed: true}, nil
	}

	for _, c := range writes.Commits {
		if err := silver.UpsertCommit(ctx, tx, c); err != nil {
			return eventOutcome{}, err
		}
	}
	for _, p := range writes.PullRequests {
		if err := silver.UpsertPullRequest(ctx, tx, p); err != nil {
			return eventOutcome{}, err
		}
	}
	for _, i := range writes.Issues {
		if err := silver.UpsertIssue(ctx, tx, i); err != nil {
			return eventOutcome{}, err
		}
	}
	for _, d := range writes.DocumentationChanges {
		if err := silver.UpsertDocumentationChange(ctx, tx, d); err != nil {
			return eventOutcome{}, err
		}
	}
	if err := silver.InsertEventFact(ctx, tx, fact); err != nil {
		return eventOutcome{}, err
	}
	if err := bronze.MarkTransformed(ctx, tx, ev.ID); err != nil {
		return eventOutcome{}, err
	}
	if err := tx.Commit(); err != nil {
		return eventOutcome{}, fmt.Errorf("commit transform: %w", err)
	}
	return eventOutcome{transformed: true}, nil
}
