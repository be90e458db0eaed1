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
	"testing"

	"github.com/abcxyz/pkg/cli"
	"github.com/abcxyz/pkg/logging"
	"github.com/abcxyz/pkg/testutil"
	"github.com/sethvargo/go-envconfig"
)

func lookupOpt(env map[string]string) cli.Option {
	return cli.WithLookupEnv(envconfig.MapLookuper(env).Lookup)
}

func TestServerCommand_Flags(t *testing.T) {
	t.Parallel()

	ctx := logging.WithLogger(t.Context(), logging.TestLogger(t))

	cases := []struct {
		name   string
		args   []string
		env    map[string]string
		expErr string
	}{
		{
			name:   "too_many_args",
			args:   []string{"foo"},
			env:    map[string]string{"DATABASE_URL": "postgres://localhost/ghillie", "CATALOGUE_PATH": "catalogue.yaml"},
			expErr: `unexpected arguments: ["foo"]`,
		},
		{
			name:   "missing_database_url",
			env:    map[string]string{"CATALOGUE_PATH": "catalogue.yaml"},
			expErr: "DATABASE_URL is required",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var cmd ServerCommand
			cmd.testFlagSetOpts = []cli.Option{lookupOpt(tc.env)}

			_, _, _, err := cmd.RunUnstarted(ctx, tc.args)
			if diff := testutil.DiffErrString(err, tc.expErr); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestIngestRunCommand_Flags(t *testing.T) {
	t.Parallel()

	ctx := logging.WithLogger(t.Context(), logging.TestLogger(t))

	var cmd IngestRunCommand
	cmd.testFlagSetOpts = []cli.Option{lookupOpt(map[string]string{})}

	err := cmd.Run(ctx, []string{"foo"})
	if diff := testutil.DiffErrString(err, `unexpected arguments: ["foo"]`); diff != "" {
		t.Fatal(diff)
	}
}

func TestTransformRunCommand_Flags(t *testing.T) {
	t.Parallel()

	ctx := logging.WithLogger(t.Context(), logging.TestLogger(t))

	var cmd TransformRunCommand
	cmd.testFlagSetOpts = []cli.Option{lookupOpt(map[string]string{})}

	err := cmd.Run(ctx, []string{"foo"})
	if diff := testutil.DiffErrString(err, `unexpected arguments: ["foo"]`); diff != "" {
		t.Fatal(diff)
	}
}

func TestReportRepositoryCommand_Flags(t *testing.T) {
	t.Parallel()

	ctx := logging.WithLogger(t.Context(), logging.TestLogger(t))

	cases := []struct {
		name   string
		args   []string
		expErr string
	}{
		{
			name:   "too_many_args",
			args:   []string{"a", "b"},
			expErr: `expected exactly one argument of the form <owner>/<name>, got ["a" "b"]`,
		},
		{
			name:   "not_slug_shaped",
			args:   []string{"not-a-slug"},
			expErr: `argument "not-a-slug" is not of the form <owner>/<name>`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var cmd ReportRepositoryCommand
			cmd.testFlagSetOpts = []cli.Option{lookupOpt(map[string]string{
				"DATABASE_URL":   "postgres://localhost/ghillie",
				"CATALOGUE_PATH": "catalogue.yaml",
			})}

			err := cmd.Run(ctx, tc.args)
			if diff := testutil.DiffErrString(err, tc.expErr); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestReportProjectCommand_Flags(t *testing.T) {
	t.Parallel()

	ctx := logging.WithLogger(t.Context(), logging.TestLogger(t))

	var cmd ReportProjectCommand
	cmd.testFlagSetOpts = []cli.Option{lookupOpt(map[string]string{
		"DATABASE_URL":   "postgres://localhost/ghillie",
		"CATALOGUE_PATH": "catalogue.yaml",
	})}

	err := cmd.Run(ctx, []string{"a", "b"})
	if diff := testutil.DiffErrString(err, `expected exactly one argument, the project key, got ["a" "b"]`); diff != "" {
		t.Fatal(diff)
	}
}
