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
	"net"
	"net/http"

	"github.com/abcxyz/ghillie/pkg/config"
	"github.com/abcxyz/ghillie/pkg/httpapi"
	"github.com/abcxyz/ghillie/pkg/version"
	"github.com/abcxyz/pkg/cli"
	"github.com/abcxyz/pkg/logging"
	"github.com/abcxyz/pkg/renderer"
	"github.com/abcxyz/pkg/serving"
)

var _ cli.Command = (*ServerCommand)(nil)

// ServerCommand serves the on-demand reporting HTTP API described in
// spec.md §6.
type ServerCommand struct {
	cli.BaseCommand

	cfg *config.Config

	// testFlagSetOpts is only used for testing.
	testFlagSetOpts []cli.Option
}

func (c *ServerCommand) Desc() string {
	return `Start the reporting HTTP API server`
}

func (c *ServerCommand) Help() string {
	return `
Usage: {{ COMMAND }} [options]
  Start the reporting HTTP API server.
`
}

func (c *ServerCommand) Flags() *cli.FlagSet {
	c.cfg = &config.Config{}
	set := cli.NewFlagSet(c.testFlagSetOpts...)
	c.cfg.ToFlags(set)
	return set
}

func (c *ServerCommand) Run(ctx context.Context, args []string) error {
	server, mux, closeApp, err := c.RunUnstarted(ctx, args)
	if err != nil {
		return err
	}
	defer closeApp()

	return server.StartHTTPHandler(ctx, mux)
}

// RunUnstarted parses flags and builds the server without starting it, so
// tests can drive the returned handler directly.
func (c *ServerCommand) RunUnstarted(ctx context.Context, args []string) (*serving.Server, http.Handler, func(), error) {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to parse flags: %w", err)
	}
	args = f.Args()
	if len(args) > 0 {
		return nil, nil, nil, fmt.Errorf("unexpected arguments: %q", args)
	}

	logger := logging.FromContext(ctx)
	logger.DebugContext(ctx, "server starting",
		"name", version.Name,
		"commit", version.Commit,
		"version", version.Version)

	if err := c.cfg.Validate(ctx); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger.DebugContext(ctx, "loaded configuration")

	a, err := bootstrap(ctx, c.cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to bootstrap application: %w", err)
	}

	h, err := renderer.New(ctx, nil,
		renderer.WithOnError(func(err error) {
			logger.ErrorContext(ctx, "failed to render", "error", err)
		}))
	if err != nil {
		a.Close()
		return nil, nil, nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	srv := httpapi.New(a.silver, a.reporting, h)
	mux := srv.Routes(ctx)

	listener, err := net.Listen("tcp", c.cfg.Addr())
	if err != nil {
		a.Close()
		return nil, nil, nil, fmt.Errorf("failed to listen on %s: %w", c.cfg.Addr(), err)
	}
	serv, err := serving.NewFromListener(listener)
	if err != nil {
		listener.Close()
		a.Close()
		return nil, nil, nil, fmt.Errorf("failed to create serving infrastructure: %w", err)
	}

	return serv, mux, func() {
		if err := a.Close(); err != nil {
			logger.ErrorContext(ctx, "failed to close application", "error", err)
		}
	}, nil
}
