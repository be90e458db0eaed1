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

// Package silver implements the refined entity tier of the Medallion
// pipeline: repositories, commits, pull requests, issues, documentation
// changes, and the canonical EventFact join table back to Bronze.
package silver

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrRepositoryNotFound is returned when a slug does not resolve to a
// Silver repository.
var ErrRepositoryNotFound = errors.New("silver: repository not found")

// EventFact is the canonical, typed projection of a RawEvent.
type EventFact struct {
	ID            uuid.UUID
	RawEventID    uuid.UUID
	RepoID        uuid.UUID
	EventType     string
	OccurredAt    time.Time
	PayloadDigest string
	Payload       []byte
}

// Repository is a Silver-tier GitHub repository.
type Repository struct {
	ID                 uuid.UUID
	GitHubOwner        string
	GitHubName         string
	DocumentationPaths []string
	IngestionEnabled   bool
	// LastSuccessAt is the occurred_at-clock checkpoint of the most
	// recent successful ingestion run against this repository, nil if
	// it has never been ingested. The ingestion worker polls activity
	// since this checkpoint rather than re-walking full history.
	LastSuccessAt *time.Time
}

// Slug returns the "owner/name" identifier for a repository.
func (r Repository) Slug() string {
	return r.GitHubOwner + "/" + r.GitHubName
}

// WorkType classifies an entity's kind of work.
type WorkType string

const (
	WorkTypeBug     WorkType = "bug"
	WorkTypeFeature WorkType = "feature"
	WorkTypeDocs    WorkType = "docs"
	WorkTypeChore   WorkType = "chore"
	WorkTypeOther   WorkType = "other"
)

// Commit is a Silver-tier commit entity, identified by its SHA.
type Commit struct {
	SHA       string
	RepoID    uuid.UUID
	Message   string
	Author    string
	CreatedAt time.Time
	Labels    []string
}

// PullRequest is a Silver-tier pull request entity, identified by its
// integer id.
type PullRequest struct {
	ID        int64
	RepoID    uuid.UUID
	Title     string
	State     string
	Labels    []string
	CreatedAt time.Time
	UpdatedAt time.Time
	ClosedAt  *time.Time
}

// Issue is a Silver-tier issue entity, identified by its integer id.
type Issue struct {
	ID        int64
	RepoID    uuid.UUID
	Title     string
	State     string
	Labels    []string
	CreatedAt time.Time
	UpdatedAt time.Time
	ClosedAt  *time.Time
}

// DocumentationChange is a Silver-tier documentation-path touch,
// identified by the pair (commit_sha, path).
type DocumentationChange struct {
	CommitSHA string
	Path      string
	RepoID    uuid.UUID
}

// Store is the Silver entity store, backed by Postgres.
type Store struct {
	db *sql.DB
}

// New creates a new Silver [Store] over the given database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for callers that need to span a
// transaction across Bronze and Silver writes (the transform registry).
func (s *Store) DB() *sql.DB {
	return s.db
}
