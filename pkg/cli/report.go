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
	"errors"
	"fmt"
	"strings"

	"github.com/abcxyz/ghillie/pkg/config"
	"github.com/abcxyz/ghillie/pkg/reporting"
	"github.com/abcxyz/ghillie/pkg/version"
	"github.com/abcxyz/pkg/cli"
	"github.com/abcxyz/pkg/logging"
)

var _ cli.Command = (*ReportRepositoryCommand)(nil)

// ReportRepositoryCommand runs the reporting pipeline for a single
// repository, given as "{owner}/{name}". It mirrors the HTTP API's
// POST /reports/repositories/{owner}/{name} for operators without
// network access to the report server.
type ReportRepositoryCommand struct {
	cli.BaseCommand

	cfg *config.Config

	// testFlagSetOpts is only used for testing.
	testFlagSetOpts []cli.Option
}

func (c *ReportRepositoryCommand) Desc() string {
	return `Generate a Gold report for a single repository`
}

func (c *ReportRepositoryCommand) Help() string {
	return `
Usage: {{ COMMAND }} [options] <owner>/<name>
  Generate a Gold report for the named repository.
`
}

func (c *ReportRepositoryCommand) Flags() *cli.FlagSet {
	c.cfg = &config.Config{}
	set := cli.NewFlagSet(c.testFlagSetOpts...)
	c.cfg.ToFlags(set)
	return set
}

func (c *ReportRepositoryCommand) Run(ctx context.Context, args []string) error {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}
	args = f.Args()
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one argument of the form <owner>/<name>, got %q", args)
	}
	owner, name, ok := strings.Cut(args[0], "/")
	if !ok {
		return fmt.Errorf("argument %q is not of the form <owner>/<name>", args[0])
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

	repo, err := a.silver.GetRepositoryBySlug(ctx, owner, name)
	if err != nil {
		return fmt.Errorf("resolve repository %s/%s: %w", owner, name, err)
	}

	report, err := a.reporting.RunForRepository(ctx, repo.ID)
	var verr *reporting.ValidationError
	if err != nil {
		if errors.As(err, &verr) {
			logger.ErrorContext(ctx, "report validation failed",
				"repository", args[0], "attempts", verr.Attempts, "review_id", verr.ReviewID)
			return fmt.Errorf("report validation failed, filed for review %s: %w", verr.ReviewID, err)
		}
		return fmt.Errorf("generate report: %w", err)
	}
	if report == nil {
		logger.InfoContext(ctx, "no new activity to report", "repository", args[0])
		return nil
	}

	logger.InfoContext(ctx, "report generated", "repository", args[0], "report_id", report.ID, "status", report.MachineSummary.Status)
	return nil
}

var _ cli.Command = (*ReportProjectCommand)(nil)

// ReportProjectCommand runs the reporting pipeline for a catalogue
// project, rolling up its components' latest repository reports.
type ReportProjectCommand struct {
	cli.BaseCommand

	cfg *config.Config

	// testFlagSetOpts is only used for testing.
	testFlagSetOpts []cli.Option
}

func (c *ReportProjectCommand) Desc() string {
	return `Generate a Gold report for a catalogue project`
}

func (c *ReportProjectCommand) Help() string {
	return `
Usage: {{ COMMAND }} [options] <project-key>
  Generate a Gold report rolling up a project's components.
`
}

func (c *ReportProjectCommand) Flags() *cli.FlagSet {
	c.cfg = &config.Config{}
	set := cli.NewFlagSet(c.testFlagSetOpts...)
	c.cfg.ToFlags(set)
	return set
}

func (c *ReportProjectCommand) Run(ctx context.Context, args []string) error {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}
	args = f.Args()
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one argument, the project key, got %q", args)
	}
	projectKey := args[0]

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

	report, err := a.reporting.RunForProject(ctx, projectKey)
	var verr *reporting.ValidationError
	if err != nil {
		if errors.As(err, &verr) {
			logger.ErrorContext(ctx, "report validation failed",
				"project", projectKey, "attempts", verr.Attempts, "review_id", verr.ReviewID)
			return fmt.Errorf("report validation failed, filed for review %s: %w", verr.ReviewID, err)
		}
		return fmt.Errorf("generate report: %w", err)
	}
	if report == nil {
		logger.InfoContext(ctx, "no new activity to report", "project", projectKey)
		return nil
	}

	logger.InfoContext(ctx, "report generated", "project", projectKey, "report_id", report.ID, "status", report.MachineSummary.Status)
	return nil
}
