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

package catalogue

import (
	"context"
	"fmt"

	"github.com/abcxyz/ghillie/pkg/silver"
)

// RepositoryRecord is a catalogue-managed repository, keyed by an opaque
// RepositoryID referenced from Component.RepositoryID.
type RepositoryRecord struct {
	RepositoryID       string
	GitHubOwner        string
	GitHubName         string
	DocumentationPaths []string
}

// StaticAdapter is an in-memory Adapter backed by slices constructed in
// process, used by tests and as the base for yamladapter's file-backed
// loader.
type StaticAdapter struct {
	Projects     []Project
	Components   []Component
	Edges        []ComponentEdge
	Repositories []RepositoryRecord
	Noise        map[string]NoiseFilterConfig // keyed by project key
}

var _ Adapter = (*StaticAdapter)(nil)

func (a *StaticAdapter) ListProjects(ctx context.Context) ([]Project, error) {
	return a.Projects, nil
}

func (a *StaticAdapter) ListComponents(ctx context.Context, projectKey string) ([]Component, error) {
	var out []Component
	for _, c := range a.Components {
		if c.ProjectKey == projectKey {
			out = append(out, c)
		}
	}
	return out, nil
}

func (a *StaticAdapter) ListComponentEdges(ctx context.Context, projectKey string) ([]ComponentEdge, error) {
	members := make(map[string]bool)
	for _, c := range a.Components {
		if c.ProjectKey == projectKey {
			members[c.ID] = true
		}
	}
	var out []ComponentEdge
	for _, e := range a.Edges {
		if members[e.FromComponentID] && members[e.ToComponentID] {
			out = append(out, e)
		}
	}
	return out, nil
}

func (a *StaticAdapter) ResolveSilverRepository(ctx context.Context, repositoryID string) (string, string, error) {
	for _, r := range a.Repositories {
		if r.RepositoryID == repositoryID {
			return r.GitHubOwner, r.GitHubName, nil
		}
	}
	return "", "", fmt.Errorf("catalogue: unknown repository id %q", repositoryID)
}

func (a *StaticAdapter) ListManagedRepositories(ctx context.Context) ([]silver.ManagedRepository, error) {
	out := make([]silver.ManagedRepository, 0, len(a.Repositories))
	for _, r := range a.Repositories {
		out = append(out, silver.ManagedRepository{
			GitHubOwner:        r.GitHubOwner,
			GitHubName:         r.GitHubName,
			DocumentationPaths: r.DocumentationPaths,
		})
	}
	return out, nil
}

func (a *StaticAdapter) NoiseFilters(ctx context.Context, projectKey string) (NoiseFilterConfig, error) {
	if cfg, ok := a.Noise[projectKey]; ok {
		return cfg, nil
	}
	return NoiseFilterConfig{ExcludeBotSuffix: "[bot]"}, nil
}

func (a *StaticAdapter) NoiseFiltersForRepository(ctx context.Context, owner, name string) (NoiseFilterConfig, error) {
	var repositoryID string
	for _, r := range a.Repositories {
		if r.GitHubOwner == owner && r.GitHubName == name {
			repositoryID = r.RepositoryID
			break
		}
	}
	if repositoryID == "" {
		return NoiseFilterConfig{ExcludeBotSuffix: "[bot]"}, nil
	}
	for _, c := range a.Components {
		if c.RepositoryID == repositoryID {
			return a.NoiseFilters(ctx, c.ProjectKey)
		}
	}
	return NoiseFilterConfig{ExcludeBotSuffix: "[bot]"}, nil
}
