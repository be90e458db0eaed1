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

package silver

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ManagedRepository is the catalogue's view of a repository that should be
// ingested.
type ManagedRepository struct {
	GitHubOwner        string
	GitHubName         string
	DocumentationPaths []string
}

// CatalogueSource is the subset of the catalogue adapter the repository
// registry depends on.
type CatalogueSource interface {
	ListManagedRepositories(ctx context.Context) ([]ManagedRepository, error)
}

// SyncFromCatalogue reconciles the catalogue's managed-repository list into
// Silver: rows are created for new repositories, ingestion_enabled is set
// true for every repository still present, and false for any repository no
// longer present. Rows are never deleted so that history is retained, per
// spec.md §4.4.
func (s *Store) SyncFromCatalogue(ctx context.Context, catalogue CatalogueSource) error {
	managed, err := catalogue.ListManagedRepositories(ctx)
	if err != nil {
		return fmt.Errorf("silver: list managed repositories: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("silver: begin sync tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort rollback after commit or error

	seen := make([]string, 0, len(managed))
	for _, m := range managed {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("silver: generate repository id: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO silver_repositories (id, github_owner, github_name, documentation_paths, ingestion_enabled)
			VALUES ($1, $2, $3, $4, true)
			ON CONFLICT (github_owner, github_name) DO UPDATE
				SET ingestion_enabled = true, documentation_paths = EXCLUDED.documentation_paths
		`, id, m.GitHubOwner, m.GitHubName, pq.Array(m.DocumentationPaths)); err != nil {
			return fmt.Errorf("silver: upsert repository %s/%s: %w", m.GitHubOwner, m.GitHubName, err)
		}
		seen = append(seen, m.GitHubOwner+"/"+m.GitHubName)
	}

	if len(seen) == 0 {
		if _, err := tx.ExecContext(ctx, `UPDATE silver_repositories SET ingestion_enabled = false`); err != nil {
			return fmt.Errorf("silver: disable all repositories: %w", err)
		}
	} else if _, err := tx.ExecContext(ctx, `
		UPDATE silver_repositories
		SET ingestion_enabled = false
		WHERE (github_owner || '/' || github_name) != ALL($1)
	`, pq.Array(seen)); err != nil {
		return fmt.Errorf("silver: disable removed repositories: %w", err)
	}

	return tx.Commit()
}

// GetRepositoryBySlug returns the Silver repository for "owner/name".
func (s *Store) GetRepositoryBySlug(ctx context.Context, owner, name string) (Repository, error) {
	var r Repository
	var docs pq.StringArray
	err := s.db.QueryRowContext(ctx, `
		SELECT id, github_owner, github_name, documentation_paths, ingestion_enabled, last_success_at
		FROM silver_repositories
		WHERE github_owner = $1 AND github_name = $2
	`, owner, name).Scan(&r.ID, &r.GitHubOwner, &r.GitHubName, &docs, &r.IngestionEnabled, &r.LastSuccessAt)
	if err == sql.ErrNoRows {
		return Repository{}, ErrRepositoryNotFound
	}
	if err != nil {
		return Repository{}, fmt.Errorf("silver: get repository %s/%s: %w", owner, name, err)
	}
	r.DocumentationPaths = docs
	return r, nil
}

// GetRepository returns a Silver repository by id.
func (s *Store) GetRepository(ctx context.Context, id uuid.UUID) (Repository, error) {
	var r Repository
	var docs pq.StringArray
	err := s.db.QueryRowContext(ctx, `
		SELECT id, github_owner, github_name, documentation_paths, ingestion_enabled, last_success_at
		FROM silver_repositories
		WHERE id = $1
	`, id).Scan(&r.ID, &r.GitHubOwner, &r.GitHubName, &docs, &r.IngestionEnabled, &r.LastSuccessAt)
	if err == sql.ErrNoRows {
		return Repository{}, ErrRepositoryNotFound
	}
	if err != nil {
		return Repository{}, fmt.Errorf("silver: get repository %s: %w", id, err)
	}
	r.DocumentationPaths = docs
	return r, nil
}

// ListActive returns every repository with ingestion enabled.
func (s *Store) ListActive(ctx context.Context) ([]Repository, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, github_owner, github_name, documentation_paths, ingestion_enabled, last_success_at
		FROM silver_repositories
		WHERE ingestion_enabled = true
		ORDER BY github_owner, github_name
	`)
	if err != nil {
		return nil, fmt.Errorf("silver: list active repositories: %w", err)
	}
	defer rows.Close()

	var repos []Repository
	for rows.Next() {
		var r Repository
		var docs pq.StringArray
		if err := rows.Scan(&r.ID, &r.GitHubOwner, &r.GitHubName, &docs, &r.IngestionEnabled, &r.LastSuccessAt); err != nil {
			return nil, fmt.Errorf("silver: scan repository row: %w", err)
		}
		r.DocumentationPaths = docs
		repos = append(repos, r)
	}
	return repos, rows.Err()
}

// MarkIngestionSuccess records at as the repository's ingestion
// checkpoint, advancing the point the next poll resumes from.
func (s *Store) MarkIngestionSuccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	if _, err := s.db.ExecContext(ctx, `
		UPDATE silver_repositories SET last_success_at = $1 WHERE id = $2
	`, at.UTC(), id); err != nil {
		return fmt.Errorf("silver: mark ingestion success for %s: %w", id, err)
	}
	return nil
}

// StalledRepositories returns every active repository whose last
// successful ingestion run is older than threshold, or that has never
// completed one, as of now.
func (s *Store) StalledRepositories(ctx context.Context, now time.Time, threshold time.Duration) ([]Repository, error) {
	active, err := s.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := now.Add(-threshold)
	var stalled []Repository
	for _, r := range active {
		if r.LastSuccessAt == nil || r.LastSuccessAt.Before(cutoff) {
			stalled = append(stalled, r)
		}
	}
	return stalled, nil
}

// Enable flips ingestion_enabled to true for the given slug.
func (s *Store) Enable(ctx context.Context, owner, name string) error {
	return s.setEnabled(ctx, owner, name, true)
}

// Disable flips ingestion_enabled to false for the given slug.
func (s *Store) Disable(ctx context.Context, owner, name string) error {
	return s.setEnabled(ctx, owner, name, false)
}

func (s *Store) setEnabled(ctx context.Context, owner, name string, enabled bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE silver_repositories SET ingestion_enabled = $1
		WHERE github_owner = $2 AND github_name = $3
	`, enabled, owner, name)
	if err != nil {
		return fmt.Errorf("silver: set enabled=%v for %s/%s: %w", enabled, owner, name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("silver: rows affected: %w", err)
	}
	if n == 0 {
		return ErrRepositoryNotFound
	}
	return nil
}
