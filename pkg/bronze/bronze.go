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

// Package bronze implements the append-only raw event store: the first
// tier of the Medallion pipeline. Rows are written once and never
// mutated; the only permitted transitions are lifecycle state changes
// driven by the transform package.
package bronze

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of a RawEvent.
type State string

const (
	StatePending     State = "pending"
	StateTransformed State = "transformed"
	StateFailed      State = "failed"
)

// Failure reasons recorded on a RawEvent.
const (
	FailureReasonPayloadMismatch = "payload_mismatch"
)

// ErrTimezoneRequired is returned when an ingested event carries a naive
// (timezone-less) occurred_at timestamp.
var ErrTimezoneRequired = errors.New("bronze: occurred_at requires a timezone")

// RawEvent is the immutable record of an externally delivered event.
type RawEvent struct {
	ID            uuid.UUID
	Source        string
	EventType     string
	ExternalID    string
	Payload       []byte
	ReceivedAt    time.Time
	OccurredAt    time.Time
	State         State
	FailureReason string
}

// Digest returns the canonical digest of payload bytes, used both at
// write time and by the post-transform integrity check.
func Digest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// IngestOutcome reports whether an Ingest call created a new row.
type IngestOutcome string

const (
	OutcomeInserted  IngestOutcome = "inserted"
	OutcomeDuplicate IngestOutcome = "duplicate"
)

// Store is the Bronze raw-event store, backed by Postgres.
type Store struct {
	db *sql.DB
}

// New creates a new Bronze [Store] over the given database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// ParseOccurredAt parses a caller-supplied timestamp, rejecting any value
// that lacks explicit timezone information. RFC3339 requires an offset (or
// "Z"), so a naive string such as "2024-07-10T12:00:00" fails to parse and
// is reported as ErrTimezoneRequired rather than a generic parse error.
func ParseOccurredAt(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrTimezoneRequired, err)
	}
	return t, nil
}

// Ingest writes a new RawEvent, deduplicating on (source, external_id).
// occurredAt must carry explicit timezone information; callers obtain it
// via ParseOccurredAt so that a naive timestamp is rejected before any I/O
// occurs, per the TimezoneRequired contract in spec.md §4.1.
func (s *Store) Ingest(ctx context.Context, source, eventType, externalID string, occurredAt time.Time, payload []byte) (IngestOutcome, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("bronze: generate id: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO bronze_raw_events
			(id, source, event_type, external_id, payload, received_at, occurred_at, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (source, external_id) DO NOTHING
	`, id, source, eventType, externalID, payload, time.Now().UTC(), occurredAt.UTC(), StatePending)
	if err != nil {
		return "", fmt.Errorf("bronze: insert raw event: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("bronze: rows affected: %w", err)
	}
	if n == 0 {
		return OutcomeDuplicate, nil
	}
	return OutcomeInserted, nil
}

// Pending returns up to batchSize RawEvents in the pending state, ordered
// by occurred_at then id for deterministic processing order.
func (s *Store) Pending(ctx context.Context, batchSize int) ([]RawEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, event_type, external_id, payload, received_at, occurred_at, state, COALESCE(failure_reason, '')
		FROM bronze_raw_events
		WHERE state = $1
		ORDER BY occurred_at, id
		LIMIT $2
	`, StatePending, batchSize)
	if err != nil {
		return nil, fmt.Errorf("bronze: query pending: %w", err)
	}
	defer rows.Close()

	var events []RawEvent
	for rows.Next() {
		var e RawEvent
		if err := rows.Scan(&e.ID, &e.Source, &e.EventType, &e.ExternalID, &e.Payload, &e.ReceivedAt, &e.OccurredAt, &e.State, &e.FailureReason); err != nil {
			return nil, fmt.Errorf("bronze: scan pending row: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Get fetches a single RawEvent by id, for the post-transform integrity
// pass that re-reads the stored payload from Bronze.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (RawEvent, error) {
	var e RawEvent
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source, event_type, external_id, payload, received_at, occurred_at, state, COALESCE(failure_reason, '')
		FROM bronze_raw_events
		WHERE id = $1
	`, id).Scan(&e.ID, &e.Source, &e.EventType, &e.ExternalID, &e.Payload, &e.ReceivedAt, &e.OccurredAt, &e.State, &e.FailureReason)
	if err != nil {
		return RawEvent{}, fmt.Errorf("bronze: get raw event %s: %w", id, err)
	}
	return e, nil
}

// MarkTransformed transitions a RawEvent to the transformed state. Must be
// called in the same transaction that writes the corresponding EventFact.
func MarkTransformed(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `UPDATE bronze_raw_events SET state = $1 WHERE id = $2`, StateTransformed, id); err != nil {
		return fmt.Errorf("bronze: mark transformed: %w", err)
	}
	return nil
}

// MarkFailed transitions a RawEvent to the failed state with a reason.
func MarkFailed(ctx context.Context, tx *sql.Tx, id uuid.UUID, reason string) error {
	if _, err := tx.ExecContext(ctx, `UPDATE bronze_raw_events SET state = $1, failure_reason = $2 WHERE id = $3`, StateFailed, reason, id); err != nil {
		return fmt.Errorf("bronze: mark failed: %w", err)
	}
	return nil
}

// DB exposes the underlying handle so callers (the transform registry) can
// open transactions that span Bronze and Silver writes.
func (s *Store) DB() *sql.DB {
	return s.db
}
