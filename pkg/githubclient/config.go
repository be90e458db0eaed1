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

package githubclient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abcxyz/pkg/cli"
)

// Config represents the shared GitHub App configuration.
type Config struct {
	// GitHubEnterpriseServerURL is the GitHub Enterprise Server instance URL,
	// in the format "https://[hostname]". Empty means github.com.
	GitHubEnterpriseServerURL string

	// GitHubAppID is the GitHub App ID. This comes from the GitHub API.
	GitHubAppID string

	// GitHubPrivateKey is the GitHub App private key (PEM-encoded).
	GitHubPrivateKey string

	// GitHubInstallationID scopes ForInstallation's token source to a
	// single app installation. Only required by commands that act as
	// the installed app (ingestion); left empty, those commands fail at
	// wiring time rather than at Validate.
	GitHubInstallationID string
}

// Validate does sanity checking on the configuration.
func (c *Config) Validate(ctx context.Context) error {
	var merr error
	if c.GitHubEnterpriseServerURL != "" && !strings.HasPrefix(c.GitHubEnterpriseServerURL, "https://") {
		merr = errors.Join(merr, fmt.Errorf(`GITHUB_ENTERPRISE_SERVER_URL does not start with "https://"`))
	}
	if c.GitHubAppID == "" {
		merr = errors.Join(merr, fmt.Errorf("GITHUB_APP_ID is required"))
	}
	if c.GitHubPrivateKey == "" {
		merr = errors.Join(merr, fmt.Errorf("GITHUB_PRIVATE_KEY is required"))
	}
	return merr
}

// ToFlags registers the GitHub flags.
func (c *Config) ToFlags(set *cli.FlagSet) {
	f := set.NewSection("GITHUB OPTIONS")

	f.StringVar(&cli.StringVar{
		Name:   "github-enterprise-server-url",
		Target: &c.GitHubEnterpriseServerURL,
		EnvVar: "GITHUB_ENTERPRISE_SERVER_URL",
		Usage:  `The GitHub Enterprise Server instance URL, format "https://[hostname]".`,
	})

	f.StringVar(&cli.StringVar{
		Name:   "github-app-id",
		Target: &c.GitHubAppID,
		EnvVar: "GITHUB_APP_ID",
		Usage:  `The provisioned GitHub App ID.`,
	})

	f.StringVar(&cli.StringVar{
		Name:   "github-private-key",
		Target: &c.GitHubPrivateKey,
		EnvVar: "GITHUB_PRIVATE_KEY",
		Usage:  `The GitHub App private key, PEM-encoded.`,
	})

	f.StringVar(&cli.StringVar{
		Name:   "github-installation-id",
		Target: &c.GitHubInstallationID,
		EnvVar: "GITHUB_INSTALLATION_ID",
		Usage:  `The app installation ID to act as for ingestion.`,
	})
}
