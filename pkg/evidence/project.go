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

package evidence

import (
	"context"
	"fmt"

	"github.com/abcxyz/ghillie/pkg/catalogue"
	"github.com/abcxyz/ghillie/pkg/gold"
	"github.com/google/uuid"
)

// ComponentRepositorySummary is the carried-forward status of a
// component's linked repository, taken from its latest repository-scoped
// report.
type ComponentRepositorySummary struct {
	MachineSummary gold.MachineSummary
}

// ComponentEvidence is one catalogue component's contribution to a
// project bundle. Components without a linked repository carry lifecycle
// status only.
type ComponentEvidence struct {
	Component  catalogue.Component
	Repository *ComponentRepositorySummary // nil if the component has no repository or no report yet
}

// ComponentDependencyEvidence is a directed edge between two components,
// both members of the project.
type ComponentDependencyEvidence struct {
	FromComponentID string
	ToComponentID   string
	Relation        catalogue.RelationKind
}

// ProjectEvidenceBundle is the immutable evidence a status model
// summarizes for a whole project.
type ProjectEvidenceBundle struct {
	Project      catalogue.Project
	Components   []ComponentEvidence
	Dependencies []ComponentDependencyEvidence
}

// IsEmpty reports whether the project has no components at all.
func (b ProjectEvidenceBundle) IsEmpty() bool {
	return len(b.Components) == 0
}

// TotalEventCount is the project-scope analogue of
// RepositoryEvidenceBundle.TotalEventCount for the Report Validator's
// highlight-plausibility check (§4.10): the number of components
// contributing evidence, since a project bundle carries no event facts
// of its own.
func (b ProjectEvidenceBundle) TotalEventCount() int {
	return len(b.Components)
}

// ProjectService builds ProjectEvidenceBundles.
type ProjectService struct {
	catalogue catalogue.Adapter
	silver    *silverLookup
	gold      *gold.Store
}

// silverLookup is the narrow slug→id lookup ProjectService needs from
// silver.Store, kept as a func field so tests can stub it without a live
// database.
type silverLookup struct {
	getBySlug func(ctx context.Context, owner, name string) (repositoryID uuid.UUID, found bool, err error)
}

// NewProjectService creates a ProjectService. resolveRepositoryID maps a
// (owner, name) pair — as returned by catalogue.Adapter.ResolveSilverRepository —
// to the Silver repository id report lookups key on (typically
// silver.Store.GetRepositoryBySlug, adapted to the found-bool form).
func NewProjectService(
	catalogueAdapter catalogue.Adapter,
	goldStore *gold.Store,
	resolveRepositoryID func(ctx context.Context, owner, name string) (repositoryID uuid.UUID, found bool, err error),
) *ProjectService {
	return &ProjectService{
		catalogue: catalogueAdapter,
		silver:    &silverLookup{getBySlug: resolveRepositoryID},
		gold:      goldStore,
	}
}

// Build assembles a ProjectEvidenceBundle for projectKey, per the
// two-pass algorithm in spec.md §4.7: the first pass resolves each
// component's linked repository to its latest report; the second
// assembles dependency edges, dropping any whose endpoints are not both
// members of the project's component set.
func (s *ProjectService) Build(ctx context.Context, projectKey string) (ProjectEvidenceBundle, error) {
	projects, err := s.catalogue.ListProjects(ctx)
	if err != nil {
		return ProjectEvidenceBundle{}, fmt.Errorf("evidence: list projects: %w", err)
	}
	var project catalogue.Project
	found := false
	for _, p := range projects {
		if p.Key == projectKey {
			project, found = p, true
			break
		}
	}
	if !found {
		return ProjectEvidenceBundle{}, fmt.Errorf("evidence: project %q not found", projectKey)
	}

	components, err := s.catalogue.ListComponents(ctx, projectKey)
	if err != nil {
		return ProjectEvidenceBundle{}, fmt.Errorf("evidence: list components: %w", err)
	}

	// Pass one: resolve each component's repository to its latest
	// repository-scoped report.
	memberIDs := make(map[string]bool, len(components))
	componentEvidence := make([]ComponentEvidence, 0, len(components))
	for _, c := range components {
		memberIDs[c.ID] = true
		ce := ComponentEvidence{Component: c}

		if c.RepositoryID != "" {
			owner, name, err := s.catalogue.ResolveSilverRepository(ctx, c.RepositoryID)
			if err != nil {
				return ProjectEvidenceBundle{}, fmt.Errorf("evidence: resolve repository for component %s: %w", c.ID, err)
			}
			repoID, ok, err := s.silver.getBySlug(ctx, owner, name)
			if err != nil {
				return ProjectEvidenceBundle{}, fmt.Errorf("evidence: lookup silver repository %s/%s: %w", owner, name, err)
			}
			if ok {
				if report, ok, err := s.gold.LatestForRepository(ctx, repoID); err != nil {
					return ProjectEvidenceBundle{}, fmt.Errorf("evidence: latest report for component %s: %w", c.ID, err)
				} else if ok {
					ce.Repository = &ComponentRepositorySummary{MachineSummary: report.MachineSummary}
				}
			}
		}
		componentEvidence = append(componentEvidence, ce)
	}

	// Pass two: assemble dependency edges, dropping any whose endpoints
	// are not both members of this project's component set. The
	// catalogue adapter already applies this filter for StaticAdapter,
	// but the check is re-asserted here so any Adapter implementation
	// gets it for free.
	edges, err := s.catalogue.ListComponentEdges(ctx, projectKey)
	if err != nil {
		return ProjectEvidenceBundle{}, fmt.Errorf("evidence: list component edges: %w", err)
	}
	dependencies := make([]ComponentDependencyEvidence, 0, len(edges))
	for _, e := range edges {
		if !memberIDs[e.FromComponentID] || !memberIDs[e.ToComponentID] {
			continue
		}
		dependencies = append(dependencies, ComponentDependencyEvidence{
			FromComponentID: e.FromComponentID,
			ToComponentID:   e.ToComponentID,
			Relation:        e.Relation,
		})
	}

	return ProjectEvidenceBundle{
		Project:      project,
		Components:   componentEvidence,
		Dependencies: dependencies,
	}, nil
}
