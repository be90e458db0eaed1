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

// Package gold implements the curated-report tier of the Medallion
// pipeline: Report, ReportCoverage, and ReportReview.
package gold

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Scope is the breadth a Report was generated for.
type Scope string

const (
	ScopeRepository Scope = "repository"
	ScopeProject    Scope = "project"
	ScopeEstate     Scope = "estate"
)

// Status is the lifecycle judgment a status model assigns.
type Status string

const (
	StatusOnTrack Status = "on_track"
	StatusAtRisk  Status = "at_risk"
	StatusBlocked Status = "blocked"
	StatusUnknown Status = "unknown"
)

// MachineSummary is the structured result a status model produced.
type MachineSummary struct {
	Status     Status   `json:"status"`
	Summary    string   `json:"summary"`
	Highlights []string `json:"highlights,omitempty"`
	Risks      []string `json:"risks,omitempty"`
	NextSteps  []string `json:"next_steps,omitempty"`
}

// Report is a Gold-tier curated report, keyed by a UUIDv7 id.
type Report struct {
	ID               uuid.UUID
	Scope            Scope
	RepositoryID     uuid.UUID // zero value if Scope != repository
	ProjectKey       string    // empty if Scope != project
	WindowStart      time.Time
	WindowEnd        time.Time
	GeneratedAt      time.Time
	Model            string
	HumanText        string // raw LLM string, empty for the heuristic model
	MachineSummary   MachineSummary
	ModelLatencyMs   *int64
	PromptTokens     *int64
	CompletionTokens *int64
	TotalTokens      *int64
}

// ReportCoverage associates a Report with the EventFact ids it consumed,
// used to exclude already-reported events from subsequent windows for the
// same scope.
type ReportCoverage struct {
	ReportID    uuid.UUID
	EventFactID uuid.UUID
}

// ReviewState is the lifecycle state of a ReportReview marker.
type ReviewState string

const (
	ReviewPending  ReviewState = "pending"
	ReviewResolved ReviewState = "resolved"
)

// ValidationIssue is a single stable-coded validation failure.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ReportReview is a human-review marker created when validation retries
// are exhausted for a (scope, window) pair.
type ReportReview struct {
	ID               uuid.UUID
	Scope            Scope
	RepositoryID     uuid.UUID
	ProjectKey       string
	WindowStart      time.Time
	WindowEnd        time.Time
	Model            string
	AttemptCount     int
	ValidationIssues []ValidationIssue
	State            ReviewState
	CreatedAt        time.Time
}

// Store is the Gold report store, backed by Postgres.
type Store struct {
	db *sql.DB
}

// New creates a new Gold [Store] over the given database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for callers spanning a transaction
// across Report and ReportCoverage writes.
func (s *Store) DB() *sql.DB {
	return s.db
}
