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

// Package catalogue defines the external-collaborator boundary the core
// depends on for project/component/repository metadata (spec.md §4.3).
// The core never reaches into a concrete catalogue implementation
// directly; it only calls Adapter.
package catalogue

import (
	"context"

	"github.com/abcxyz/ghillie/pkg/silver"
)

// LifecycleStage is a component's lifecycle stage.
type LifecycleStage string

const (
	LifecycleActive  LifecycleStage = "active"
	LifecyclePlanned LifecycleStage = "planned"
	LifecycleRetired LifecycleStage = "retired"
)

// Project is catalogue project metadata.
type Project struct {
	Key         string
	Name        string
	Description string
}

// Component belongs to a project and optionally links to a repository.
type Component struct {
	ID           string
	ProjectKey   string
	Name         string
	Lifecycle    LifecycleStage
	RepositoryID string // catalogue repository identifier, empty if none
}

// RelationKind describes how two components relate.
type RelationKind string

const (
	RelationDependsOn RelationKind = "depends_on"
	RelationBlockedBy RelationKind = "blocked_by"
)

// ComponentEdge is a directed relation between two components.
type ComponentEdge struct {
	FromComponentID string
	ToComponentID   string
	Relation        RelationKind
}

// NoiseFilterConfig configures ingestion-time event filtering for a
// project's repositories.
type NoiseFilterConfig struct {
	// ExcludeBotSuffix excludes authors whose login ends in this suffix
	// (GitHub's own convention is "[bot]").
	ExcludeBotSuffix string
	// ExcludeLogins lists additional logins to exclude outright.
	ExcludeLogins []string
}

// Adapter is the catalogue's external-collaborator interface. The core
// depends only on this; see pkg/catalogue/yamladapter for a concrete
// implementation and StaticAdapter below for tests and local wiring.
type Adapter interface {
	ListProjects(ctx context.Context) ([]Project, error)
	ListComponents(ctx context.Context, projectKey string) ([]Component, error)
	ListComponentEdges(ctx context.Context, projectKey string) ([]ComponentEdge, error)
	// ResolveSilverRepository maps a catalogue repository identifier to
	// the GitHub owner/name pair the Silver registry keys on.
	ResolveSilverRepository(ctx context.Context, repositoryID string) (owner, name string, err error)
	ListManagedRepositories(ctx context.Context) ([]silver.ManagedRepository, error)
	NoiseFilters(ctx context.Context, projectKey string) (NoiseFilterConfig, error)
	// NoiseFiltersForRepository resolves owner/name to its owning
	// project and returns that project's noise filter, for the
	// ingestion worker (§4.5), which iterates repositories rather than
	// projects. Falls back to the default bot-suffix filter if the
	// repository is not linked to any catalogue component.
	NoiseFiltersForRepository(ctx context.Context, owner, name string) (NoiseFilterConfig, error)
}
