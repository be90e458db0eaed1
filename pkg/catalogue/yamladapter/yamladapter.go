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

// Package yamladapter loads a catalogue.StaticAdapter from a YAML file,
// the local/dev wiring path noted in spec.md §4.3.
package yamladapter

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/abcxyz/ghillie/pkg/catalogue"
)

// document is the on-disk shape of the catalogue YAML file.
type document struct {
	Projects []struct {
		Key         string `yaml:"key"`
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	} `yaml:"projects"`
	Components []struct {
		ID           string `yaml:"id"`
		ProjectKey   string `yaml:"project_key"`
		Name         string `yaml:"name"`
		Lifecycle    string `yaml:"lifecycle"`
		RepositoryID string `yaml:"repository_id"`
	} `yaml:"components"`
	Edges []struct {
		From     string `yaml:"from"`
		To       string `yaml:"to"`
		Relation string `yaml:"relation"`
	} `yaml:"edges"`
	Repositories []struct {
		RepositoryID       string   `yaml:"repository_id"`
		GitHubOwner        string   `yaml:"github_owner"`
		GitHubName         string   `yaml:"github_name"`
		DocumentationPaths []string `yaml:"documentation_paths"`
	} `yaml:"repositories"`
	Noise map[string]struct {
		ExcludeBotSuffix string   `yaml:"exclude_bot_suffix"`
		ExcludeLogins    []string `yaml:"exclude_logins"`
	} `yaml:"noise"`
}

// Load reads a catalogue YAML file from path and returns a populated
// catalogue.StaticAdapter.
func Load(path string) (*catalogue.StaticAdapter, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("yamladapter: read %s: %w", path, err)
	}

	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("yamladapter: parse %s: %w", path, err)
	}

	adapter := &catalogue.StaticAdapter{
		Noise: make(map[string]catalogue.NoiseFilterConfig, len(doc.Noise)),
	}
	for _, p := range doc.Projects {
		adapter.Projects = append(adapter.Projects, catalogue.Project{
			Key: p.Key, Name: p.Name, Description: p.Description,
		})
	}
	for _, c := range doc.Components {
		adapter.Components = append(adapter.Components, catalogue.Component{
			ID:           c.ID,
			ProjectKey:   c.ProjectKey,
			Name:         c.Name,
			Lifecycle:    catalogue.LifecycleStage(c.Lifecycle),
			RepositoryID: c.RepositoryID,
		})
	}
	for _, e := range doc.Edges {
		adapter.Edges = append(adapter.Edges, catalogue.ComponentEdge{
			FromComponentID: e.From,
			ToComponentID:   e.To,
			Relation:        catalogue.RelationKind(e.Relation),
		})
	}
	for _, r := range doc.Repositories {
		adapter.Repositories = append(adapter.Repositories, catalogue.RepositoryRecord{
			RepositoryID:       r.RepositoryID,
			GitHubOwner:        r.GitHubOwner,
			GitHubName:         r.GitHubName,
			DocumentationPaths: r.DocumentationPaths,
		})
	}
	for key, n := range doc.Noise {
		adapter.Noise[key] = catalogue.NoiseFilterConfig{
			ExcludeBotSuffix: n.ExcludeBotSuffix,
			ExcludeLogins:    n.ExcludeLogins,
		}
	}

	return adapter, nil
}
