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

// Package cli implements the commands for the ghillie CLI.
package cli

import (
	"context"

	"github.com/abcxyz/ghillie/pkg/version"
	"github.com/abcxyz/pkg/cli"
)

var rootCmd = func() cli.Command {
	return &cli.RootCommand{
		Name:    "ghillie",
		Version: version.HumanVersion,
		Commands: map[string]cli.CommandFactory{
			"server": func() cli.Command {
				return &cli.RootCommand{
					Name:        "server",
					Description: "Serve the on-demand reporting HTTP API",
					Commands: map[string]cli.CommandFactory{
						"start": func() cli.Command {
							return &ServerCommand{}
						},
					},
				}
			},
			"ingest": func() cli.Command {
				return &cli.RootCommand{
					Name:        "ingest",
					Description: "Poll GitHub for activity and write it through Bronze",
					Commands: map[string]cli.CommandFactory{
						"run": func() cli.Command {
							return &IngestRunCommand{}
						},
					},
				}
			},
			"transform": func() cli.Command {
				return &cli.RootCommand{
					Name:        "transform",
					Description: "Hydrate pending Bronze events into Silver entities",
					Commands: map[string]cli.CommandFactory{
						"run": func() cli.Command {
							return &TransformRunCommand{}
						},
					},
				}
			},
			"report": func() cli.Command {
				return &cli.RootCommand{
					Name:        "report",
					Description: "Generate Gold reports on demand",
					Commands: map[string]cli.CommandFactory{
						"repository": func() cli.Command {
							return &ReportRepositoryCommand{}
						},
						"project": func() cli.Command {
							return &ReportProjectCommand{}
						},
					},
				}
			},
		},
	}
}

// Run executes the CLI.
func Run(ctx context.Context, args []string) error {
	return rootCmd().Run(ctx, args) //nolint:wrapcheck // Want passthrough
}
