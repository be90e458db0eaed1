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
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/go-github/v56/github"
)

// ActivityEvent is a single normalized unit of repository activity, ready
// to be written into Bronze via bronze.Store.Ingest. EventType and
// Payload mirror the webhook payload shapes the transform package's
// hydrators already know how to parse, so polled REST activity and
// webhook-delivered activity land on identical Silver writes. Actor is
// the GitHub login that produced the activity, carried alongside the
// payload (rather than inside it, since the webhook payload shapes the
// hydrators parse have no sender field) so the ingestion worker can apply
// the catalogue's noise filter before writing to Bronze.
type ActivityEvent struct {
	EventType  string
	ExternalID string
	OccurredAt time.Time
	Actor      string
	Payload    []byte
}

type activityActor struct {
	Login string `json:"login"`
}

type activityRepository struct {
	Owner activityActor `json:"owner"`
	Name  string        `json:"name"`
}

type activityLabel struct {
	Name string `json:"name"`
}

// ActivitySince polls commits, pull requests, and issues touched since the
// given checkpoint, returning them as normalized ActivityEvent values.
// Commits are paginated over the REST commits endpoint (which already
// accepts a Since filter); pull requests and issues do not support a
// server-side "since" filter on the REST list endpoints, so this walks
// pages sorted by update time newest-first and stops once it crosses the
// checkpoint.
func (c *Client) ActivitySince(ctx context.Context, owner, name string, since time.Time, pageSize int) ([]ActivityEvent, error) {
	var events []ActivityEvent

	commits, err := c.commitActivity(ctx, owner, name, since, pageSize)
	if err != nil {
		return nil, err
	}
	events = append(events, commits...)

	prs, err := c.pullRequestActivity(ctx, owner, name, since, pageSize)
	if err != nil {
		return nil, err
	}
	events = append(events, prs...)

	issues, err := c.issueActivity(ctx, owner, name, since, pageSize)
	if err != nil {
		return nil, err
	}
	events = append(events, issues...)

	return events, nil
}

func (c *Client) commitActivity(ctx context.Context, owner, name string, since time.Time, pageSize int) ([]ActivityEvent, error) {
	opts := &github.CommitsListOptions{
		Since:       since,
		ListOptions: github.ListOptions{PerPage: pageSize},
	}

	var events []ActivityEvent
	for {
		commits, resp, err := c.ListCommits(ctx, owner, name, opts)
		if err != nil {
			return nil, err
		}
		for _, commit := range commits {
			ev, err := pushEventForCommit(owner, name, commit)
			if err != nil {
				return nil, err
			}
			events = append(events, ev)
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return events, nil
}

// pushCommit mirrors the single entry transform.hydratePush expects under
// a webhook push payload's "commits" array.
type pushCommit struct {
	ID        string   `json:"id"`
	Message   string   `json:"message"`
	Timestamp string   `json:"timestamp"`
	Author    struct {
		Name string `json:"name"`
	} `json:"author"`
	Added    []string `json:"added"`
	Modified []string `json:"modified"`
}

type pushPayload struct {
	Repository activityRepository `json:"repository"`
	Commits    []pushCommit       `json:"commits"`
}

// pushEventForCommit wraps a single REST commit in the same "push" shape
// a webhook delivery would carry: one commit per payload, added/modified
// left empty since the commits-list endpoint doesn't return file paths
// (fetching them would cost one GetCommit call per commit).
func pushEventForCommit(owner, name string, commit *github.RepositoryCommit) (ActivityEvent, error) {
	sha := commit.GetSHA()
	occurredAt := commit.GetCommit().GetAuthor().GetDate().Time
	if occurredAt.IsZero() {
		occurredAt = commit.GetCommit().GetCommitter().GetDate().Time
	}

	var c pushCommit
	c.ID = sha
	c.Message = commit.GetCommit().GetMessage()
	c.Timestamp = occurredAt.Format(time.RFC3339Nano)
	c.Author.Name = commit.GetCommit().GetAuthor().GetName()

	payload := pushPayload{
		Repository: activityRepository{Owner: activityActor{Login: owner}, Name: name},
		Commits:    []pushCommit{c},
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return ActivityEvent{}, fmt.Errorf("githubclient: marshal push payload for %s: %w", sha, err)
	}
	return ActivityEvent{
		EventType:  "push",
		ExternalID: "push:" + sha,
		OccurredAt: occurredAt,
		Actor:      commit.GetAuthor().GetLogin(),
		Payload:    raw,
	}, nil
}

func (c *Client) pullRequestActivity(ctx context.Context, owner, name string, since time.Time, pageSize int) ([]ActivityEvent, error) {
	opts := &github.PullRequestListOptions{
		State:       "all",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: pageSize},
	}

	var events []ActivityEvent
pages:
	for {
		prs, resp, err := c.ListPullRequests(ctx, owner, name, opts)
		if err != nil {
			return nil, err
		}
		for _, pr := range prs {
			updatedAt := pr.GetUpdatedAt().Time
			if updatedAt.Before(since) {
				break pages
			}
			ev, err := pullRequestEvent(owner, name, pr)
			if err != nil {
				return nil, err
			}
			events = append(events, ev)
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return events, nil
}

type pullRequestBody struct {
	Number    int64           `json:"number"`
	Title     string          `json:"title"`
	State     string          `json:"state"`
	Labels    []activityLabel `json:"labels"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
	ClosedAt  string          `json:"closed_at"`
}

type pullRequestPayload struct {
	Repository  activityRepository `json:"repository"`
	PullRequest pullRequestBody    `json:"pull_request"`
}

func pullRequestEvent(owner, name string, pr *github.PullRequest) (ActivityEvent, error) {
	labels := make([]activityLabel, 0, len(pr.Labels))
	for _, l := range pr.Labels {
		labels = append(labels, activityLabel{Name: l.GetName()})
	}

	updatedAt := pr.GetUpdatedAt().Time
	body := pullRequestBody{
		Number:    int64(pr.GetNumber()),
		Title:     pr.GetTitle(),
		State:     pr.GetState(),
		Labels:    labels,
		CreatedAt: pr.GetCreatedAt().Format(time.RFC3339Nano),
		UpdatedAt: updatedAt.Format(time.RFC3339Nano),
	}
	if pr.ClosedAt != nil {
		body.ClosedAt = pr.GetClosedAt().Format(time.RFC3339Nano)
	}

	payload := pullRequestPayload{
		Repository:  activityRepository{Owner: activityActor{Login: owner}, Name: name},
		PullRequest: body,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return ActivityEvent{}, fmt.Errorf("githubclient: marshal pull_request payload for %s/%s#%d: %w", owner, name, pr.GetNumber(), err)
	}
	return ActivityEvent{
		EventType:  "pull_request",
		ExternalID: fmt.Sprintf("pull_request:%d:%s", pr.GetNumber(), updatedAt.Format(time.RFC3339Nano)),
		OccurredAt: updatedAt,
		Actor:      pr.GetUser().GetLogin(),
		Payload:    raw,
	}, nil
}

func (c *Client) issueActivity(ctx context.Context, owner, name string, since time.Time, pageSize int) ([]ActivityEvent, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: pageSize},
	}

	var events []ActivityEvent
pages:
	for {
		issues, resp, err := c.ListIssues(ctx, owner, name, opts)
		if err != nil {
			return nil, err
		}
		for _, issue := range issues {
			if issue.IsPullRequest() {
				// The Issues REST endpoint includes pull requests; those
				// are already captured by pullRequestActivity.
				continue
			}
			updatedAt := issue.GetUpdatedAt().Time
			if updatedAt.Before(since) {
				break pages
			}
			ev, err := issueEvent(owner, name, issue)
			if err != nil {
				return nil, err
			}
			events = append(events, ev)
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return events, nil
}

type issueBody struct {
	Number    int64           `json:"number"`
	Title     string          `json:"title"`
	State     string          `json:"state"`
	Labels    []activityLabel `json:"labels"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
	ClosedAt  string          `json:"closed_at"`
}

type issuePayload struct {
	Repository activityRepository `json:"repository"`
	Issue      issueBody          `json:"issue"`
}

func issueEvent(owner, name string, issue *github.Issue) (ActivityEvent, error) {
	labels := make([]activityLabel, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		labels = append(labels, activityLabel{Name: l.GetName()})
	}

	updatedAt := issue.GetUpdatedAt().Time
	body := issueBody{
		Number:    int64(issue.GetNumber()),
		Title:     issue.GetTitle(),
		State:     issue.GetState(),
		Labels:    labels,
		CreatedAt: issue.GetCreatedAt().Format(time.RFC3339Nano),
		UpdatedAt: updatedAt.Format(time.RFC3339Nano),
	}
	if issue.ClosedAt != nil {
		body.ClosedAt = issue.GetClosedAt().Format(time.RFC3339Nano)
	}

	payload := issuePayload{
		Repository: activityRepository{Owner: activityActor{Login: owner}, Name: name},
		Issue:      body,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return ActivityEvent{}, fmt.Errorf("githubclient: marshal issues payload for %s/%s#%d: %w", owner, name, issue.GetNumber(), err)
	}
	return ActivityEvent{
		EventType:  "issues",
		ExternalID: fmt.Sprintf("issues:%d:%s", issue.GetNumber(), updatedAt.Format(time.RFC3339Nano)),
		OccurredAt: updatedAt,
		Actor:      issue.GetUser().GetLogin(),
		Payload:    raw,
	}, nil
}
