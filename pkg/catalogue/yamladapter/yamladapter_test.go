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

package yamladapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
projects:
  - key: platform
    name: Platform
    description: Core platform components
components:
  - id: api
    project_key: platform
    name: API
    lifecycle: active
    repository_id: repo-1
  - id: worker
    project_key: platform
    name: Worker
    lifecycle: active
    repository_id: repo-2
edges:
  - from: api
    to: worker
    relation: depends_on
repositories:
  - repository_id: repo-1
    github_owner: abcxyz
    github_name: ghillie-api
    documentation_paths: ["docs/"]
  - repository_id: repo-2
    github_owner: abcxyz
    github_name: ghillie-worker
noise:
  platform:
    exclude_bot_suffix: "[bot]"
    exclude_logins: ["dependabot"]
`

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "catalogue.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}

	adapter, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ctx := context.Background()
	projects, err := adapter.ListProjects(ctx)
	if err != nil || len(projects) != 1 {
		t.Fatalf("ListProjects = %v, %v", projects, err)
	}

	components, err := adapter.ListComponents(ctx, "platform")
	if err != nil || len(components) != 2 {
		t.Fatalf("ListComponents = %v, %v", components, err)
	}

	edges, err := adapter.ListComponentEdges(ctx, "platform")
	if err != nil || len(edges) != 1 {
		t.Fatalf("ListComponentEdges = %v, %v", edges, err)
	}

	owner, name, err := adapter.ResolveSilverRepository(ctx, "repo-1")
	if err != nil || owner != "abcxyz" || name != "ghillie-api" {
		t.Fatalf("ResolveSilverRepository = %q/%q, %v", owner, name, err)
	}

	noise, err := adapter.NoiseFilters(ctx, "platform")
	if err != nil {
		t.Fatalf("NoiseFilters: %v", err)
	}
	if noise.ExcludeBotSuffix != "[bot]" || len(noise.ExcludeLogins) != 1 {
		t.Fatalf("NoiseFilters = %+v", noise)
	}
}
