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

// Package githubclient is a wrapper around an authenticated GitHub App for
// the REST and GraphQL operations the ingestion worker needs.
package githubclient

import (
	"context"
	"fmt"

	"github.com/google/go-github/v56/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/abcxyz/pkg/githubauth"
)

// Client is a wrapper around a REST client, a GraphQL client, and the
// authenticated GitHub App backing both.
type Client struct {
	config  *Config
	app     *githubauth.App
	rest    *github.Client
	graphQL *githubv4.Client
}

// New creates a new [Client] from the given config.
func New(ctx context.Context, c *Config) (*Client, error) {
	signer, err := githubauth.NewPrivateKeySigner(c.GitHubPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("githubclient: create private key signer: %w", err)
	}

	var appOpts []githubauth.Option
	if v := c.GitHubEnterpriseServerURL; v != "" {
		appOpts = append(appOpts, githubauth.WithBaseURL(v+"/api/v3"))
	}
	app, err := githubauth.NewApp(c.GitHubAppID, signer, appOpts...)
	if err != nil {
		return nil, fmt.Errorf("githubclient: create github app: %w", err)
	}

	httpClient := oauth2.NewClient(ctx, app.OAuthAppTokenSource())
	restClient := github.NewClient(httpClient)
	if v := c.GitHubEnterpriseServerURL; v != "" {
		restClient, err = restClient.WithEnterpriseURLs(v, v)
		if err != nil {
			return nil, fmt.Errorf("githubclient: create enterprise client: %w", err)
		}
	}

	return &Client{
		config:  c,
		app:     app,
		rest:    restClient,
		graphQL: githubv4.NewClient(httpClient),
	}, nil
}

// App returns the underlying [githubauth.App].
func (c *Client) App() *githubauth.App {
	return c.app
}

// InstallationClient resolves the app's installation with installationID
// and returns a Client scoped to its all-repos token source, the
// credentials the ingestion worker polls GitHub activity with.
func (c *Client) InstallationClient(ctx context.Context, installationID string) (*Client, error) {
	installation, err := c.app.InstallationForID(ctx, installationID)
	if err != nil {
		return nil, fmt.Errorf("githubclient: resolve installation %s: %w", installationID, err)
	}
	ts := installation.AllReposOAuth2TokenSource(ctx, map[string]string{
		"contents":      "read",
		"issues":        "read",
		"pull_requests": "read",
		"metadata":      "read",
	})
	return c.ForInstallation(ctx, ts)
}

// ForInstallation creates a new [Client] scoped to a specific installation
// token source, inheriting the enterprise base URL. Used by the ingestion
// worker to act as the app installed on a given organization.
func (c *Client) ForInstallation(ctx context.Context, ts oauth2.TokenSource) (*Client, error) {
	httpClient := oauth2.NewClient(ctx, ts)
	restClient := github.NewClient(httpClient)
	if v := c.config.GitHubEnterpriseServerURL; v != "" {
		var err error
		restClient, err = restClient.WithEnterpriseURLs(v, v)
		if err != nil {
			return nil, fmt.Errorf("githubclient: create enterprise client: %w", err)
		}
	}
	return &Client{
		config:  c.config,
		app:     c.app,
		rest:    restClient,
		graphQL: githubv4.NewClient(httpClient),
	}, nil
}

// ListCommits lists commits on the repository's default branch, used to
// backfill commit facts for repositories onboarded after commits already
// landed.
func (c *Client) ListCommits(ctx context.Context, owner, name string, opts *github.CommitsListOptions) ([]*github.RepositoryCommit, *github.Response, error) {
	commits, resp, err := c.rest.Repositories.ListCommits(ctx, owner, name, opts)
	if err != nil {
		return nil, resp, fmt.Errorf("githubclient: list commits for %s/%s: %w", owner, name, err)
	}
	return commits, resp, nil
}

// ListPullRequests lists pull requests for a repository.
func (c *Client) ListPullRequests(ctx context.Context, owner, name string, opts *github.PullRequestListOptions) ([]*github.PullRequest, *github.Response, error) {
	prs, resp, err := c.rest.PullRequests.List(ctx, owner, name, opts)
	if err != nil {
		return nil, resp, fmt.Errorf("githubclient: list pull requests for %s/%s: %w", owner, name, err)
	}
	return prs, resp, nil
}

// ListIssues lists issues for a repository (the GitHub REST API includes
// pull requests in this listing; callers filter on PullRequestLinks).
func (c *Client) ListIssues(ctx context.Context, owner, name string, opts *github.IssueListByRepoOptions) ([]*github.Issue, *github.Response, error) {
	issues, resp, err := c.rest.Issues.ListByRepo(ctx, owner, name, opts)
	if err != nil {
		return nil, resp, fmt.Errorf("githubclient: list issues for %s/%s: %w", owner, name, err)
	}
	return issues, resp, nil
}

// rootTreeQuery fetches the entry names at the root of a repository's
// default branch via GraphQL rather than a REST tree-recursion call. No
// component of this module calls RootTreeEntries.
type rootTreeQuery struct {
	Repository struct {
		DefaultBranchRef struct {
			Target struct {
				Commit struct {
					Tree struct {
						Entries []struct {
							Name string
							Type string
						}
					} `graphql:"tree"`
				} `graphql:"... on Commit"`
			}
		}
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// RootTreeEntries returns the entry names at the root of a repository's
// default branch, via GraphQL.
func (c *Client) RootTreeEntries(ctx context.Context, owner, name string) ([]string, error) {
	var q rootTreeQuery
	vars := map[string]interface{}{
		"owner": githubv4.String(owner),
		"name":  githubv4.String(name),
	}
	if err := c.graphQL.Query(ctx, &q, vars); err != nil {
		return nil, fmt.Errorf("githubclient: query root tree for %s/%s: %w", owner, name, err)
	}
	entries := make([]string, 0, len(q.Repository.DefaultBranchRef.Target.Commit.Tree.Entries))
	for _, e := range q.Repository.DefaultBranchRef.Target.Commit.Tree.Entries {
		entries = append(entries, e.Name)
	}
	return entries, nil
}
