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

var _ cli.Command = (*TransformRunCommand)(nil)

// TransformRunCommand hydrates a batch of pending Bronze events into
// Silver entities, intended to be triggered shortly after each ingestion
// pass (spec.md §4.2).
type TransformRunCommand struct {
	cli.BaseCommand

	cfg *config.Config

	// testFlagSetOpts is only used for testing.
	testFlagSetOpts []cli.Option
}

func (c *TransformRunCommand) Desc() string {
	return `Hydrate pending Bronze events into Silver entities`
}

func (c *TransformRunCommand) Help() string {
	return `
Usage: {{ COMMAND }} [options]
  Run a single transform pass over pending Bronze events.
`
}

func (c *TransformRunCommand) Flags() *cli.FlagSet {
	c.cfg = &config.Config{}
	set := cli.NewFlagSet(c.testFlagSetOpts...)
	c.cfg.ToFlags(set)
	return set
}

func (c *TransformRunCommand) Run(ctx context.Context, args []string) error {
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

	result, err := a.transform.TransformPending(ctx, c.cfg.TransformBatchSize)
	if err != nil {
		logger.ErrorContext(ctx, "transform run failed", "error", err)
		return fmt.Errorf("transform run failed: %w", err)
	}

	logger.InfoContext(ctx, "transform run completed",
		"transformed", result.Transformed,
		"failed", result.Failed,
		"skipped", result.Skipped)

	return nil
}
