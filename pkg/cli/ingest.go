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

package cli

import (
	"context"
	"fmt"

	"github.com/abcxyz/ghillie/pkg/config"
	"github.com/abcxyz/ghillie/pkg/version"
	"github.com/abcxyz/pkg/cli"
	"github.com/abcxyz/pkg/logging"
)

var _ cli.Command = (*IngestRunCommand)(nil)

// IngestRunCommand runs one ingestion pass over every active repository,
// intended to be triggered on INGESTION_POLL_INTERVAL by an external
// scheduler (spec.md §4.5's expansion — see SPEC_FULL.md).
type IngestRunCommand struct {
	cli.BaseCommand

	cfg *config.Config

	// testFlagSetOpts is only used for testing.
	testFlagSetOpts []cli.Option
}

func (c *IngestRunCommand) Desc() string {
	return `Poll active repositories for GitHub activity and ingest it through Bronze`
}

func (c *IngestRunCommand) Help() string {
	return `
Usage: {{ COMMAND }} [options]
  Run a single ingestion pass over every active repository.
`
}

func (c *IngestRunCommand) Flags() *cli.FlagSet {
	c.cfg = &config.Config{}
	set := cli.NewFlagSet(c.testFlagSetOpts...)
	c.cfg.ToFlags(set)
	return set
}

func (c *IngestRunCommand) Run(ctx context.Context, args []string) error {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}
	args = f.Args()
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %q", args)
	}

	logger := logging.FromContext(ctx)
	logger.DebugContext(ctx, "running job",
		"name", version.Name,
		"commit", version.Commit,
		"version", version.Version)

	if err := c.cfg.Validate(ctx); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a, err := bootstrap(ctx, c.cfg)
	if err != nil {
		return fmt.Errorf("failed to bootstrap application: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.ErrorContext(ctx, "failed to close application", "error", err)
		}
	}()

	if a.ingest == nil {
		return fmt.Errorf("ingest: GITHUB_APP_ID is not configured")
	}

	if err := a.silver.SyncFromCatalogue(ctx, a.catalogue); err != nil {
		return fmt.Errorf("ingest: sync catalogue: %w", err)
	}

	summary, err := a.ingest.Run(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "ingestion run failed", "error", err)
		return fmt.Errorf("ingestion run failed: %w", err)
	}

	logger.InfoContext(ctx, "ingestion run completed",
		"repositories", summary.RepositoriesPolled,
		"events_ingested", summary.EventsIngested,
		"failures", summary.Failures)

	return nil
}
