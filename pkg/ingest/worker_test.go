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

package ingest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/abcxyz/ghillie/pkg/bronze"
	"github.com/abcxyz/ghillie/pkg/catalogue"
	"github.com/abcxyz/ghillie/pkg/githubclient"
	"github.com/abcxyz/ghillie/pkg/silver"
	"github.com/google/uuid"
)

type fakeGitHub struct {
	byRepo map[string][]githubclient.ActivityEvent
	err    error
}

func (f *fakeGitHub) ActivitySince(ctx context.Context, owner, name string, since time.Time, pageSize int) ([]githubclient.ActivityEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byRepo[owner+"/"+name], nil
}

type fakeCatalogue struct {
	catalogue.Adapter
	filter catalogue.NoiseFilterConfig
}

func (f *fakeCatalogue) NoiseFiltersForRepository(ctx context.Context, owner, name string) (catalogue.NoiseFilterConfig, error) {
	return f.filter, nil
}

type fakeRepoStore struct {
	mu       sync.Mutex
	active   []silver.Repository
	marked   map[uuid.UUID]time.Time
	stalled  []silver.Repository
}

func (f *fakeRepoStore) ListActive(ctx context.Context) ([]silver.Repository, error) {
	return f.active, nil
}

func (f *fakeRepoStore) MarkIngestionSuccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.marked == nil {
		f.marked = make(map[uuid.UUID]time.Time)
	}
	f.marked[id] = at
	return nil
}

func (f *fakeRepoStore) StalledRepositories(ctx context.Context, now time.Time, threshold time.Duration) ([]silver.Repository, error) {
	return f.stalled, nil
}

type fakeBronze struct {
	mu      sync.Mutex
	ingested []string
	failOn  string
}

func (f *fakeBronze) Ingest(ctx context.Context, source, eventType, externalID string, occurredAt time.Time, payload []byte) (bronze.IngestOutcome, error) {
	if externalID == f.failOn {
		return "", fmt.Errorf("simulated failure for %s", externalID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ingested = append(f.ingested, externalID)
	return bronze.OutcomeInserted, nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	started int
	completed int
	failed  int
	stalled map[string]bool
}

func (f *fakeRecorder) RunStarted()                               { f.started++ }
func (f *fakeRecorder) RunCompleted(time.Duration)                { f.completed++ }
func (f *fakeRecorder) RunFailed(time.Duration)                   { f.failed++ }
func (f *fakeRecorder) EventsIngested(repositorySlug string, n int) {}
func (f *fakeRecorder) SetStalled(repositorySlug string, stalled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stalled == nil {
		f.stalled = make(map[string]bool)
	}
	f.stalled[repositorySlug] = stalled
}

func TestWorker_Run_IngestsActivityAndMarksCheckpoint(t *testing.T) {
	t.Parallel()

	repoID := uuid.Must(uuid.NewV7())
	repo := silver.Repository{ID: repoID, GitHubOwner: "abcxyz", GitHubName: "ghillie", IngestionEnabled: true}

	github := &fakeGitHub{byRepo: map[string][]githubclient.ActivityEvent{
		"abcxyz/ghillie": {
			{EventType: "push", ExternalID: "push:abc123", OccurredAt: time.Now(), Actor: "alice", Payload: []byte(`{}`)},
			{EventType: "pull_request", ExternalID: "pull_request:1:now", OccurredAt: time.Now(), Actor: "dependabot[bot]", Payload: []byte(`{}`)},
		},
	}}
	cat := &fakeCatalogue{filter: catalogue.NoiseFilterConfig{ExcludeBotSuffix: "[bot]"}}
	repos := &fakeRepoStore{active: []silver.Repository{repo}}
	bz := &fakeBronze{}
	rec := &fakeRecorder{}

	w := New(github, cat, repos, bz, rec, Options{})

	summary, err := w.Run(t.Context())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.RepositoriesPolled != 1 {
		t.Errorf("RepositoriesPolled = %d, want 1", summary.RepositoriesPolled)
	}
	if summary.EventsIngested != 1 {
		t.Errorf("EventsIngested = %d, want 1 (bot PR excluded)", summary.EventsIngested)
	}
	if summary.Failures != 0 {
		t.Errorf("Failures = %d, want 0", summary.Failures)
	}
	if len(bz.ingested) != 1 || bz.ingested[0] != "push:abc123" {
		t.Errorf("ingested = %v, want only push:abc123", bz.ingested)
	}
	if _, ok := repos.marked[repoID]; !ok {
		t.Errorf("expected checkpoint to be marked for repo %s", repoID)
	}
	if rec.started != 1 || rec.completed != 1 || rec.failed != 0 {
		t.Errorf("recorder calls = started:%d completed:%d failed:%d, want 1/1/0", rec.started, rec.completed, rec.failed)
	}
}

func TestWorker_Run_RepositoryFailureDoesNotAbortOthers(t *testing.T) {
	t.Parallel()

	repoA := silver.Repository{ID: uuid.Must(uuid.NewV7()), GitHubOwner: "abcxyz", GitHubName: "good"}
	repoB := silver.Repository{ID: uuid.Must(uuid.NewV7()), GitHubOwner: "abcxyz", GitHubName: "bad"}

	github := &fakeGitHub{byRepo: map[string][]githubclient.ActivityEvent{
		"abcxyz/good": {{EventType: "push", ExternalID: "push:good1", OccurredAt: time.Now(), Payload: []byte(`{}`)}},
		"abcxyz/bad":  {{EventType: "push", ExternalID: "push:bad1", OccurredAt: time.Now(), Payload: []byte(`{}`)}},
	}}
	cat := &fakeCatalogue{}
	repos := &fakeRepoStore{active: []silver.Repository{repoA, repoB}}
	bz := &fakeBronze{failOn: "push:bad1"}
	rec := &fakeRecorder{}

	w := New(github, cat, repos, bz, rec, Options{})

	summary, err := w.Run(t.Context())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.RepositoriesPolled != 2 {
		t.Errorf("RepositoriesPolled = %d, want 2", summary.RepositoriesPolled)
	}
	if summary.Failures != 1 {
		t.Errorf("Failures = %d, want 1", summary.Failures)
	}
	if summary.EventsIngested != 1 {
		t.Errorf("EventsIngested = %d, want 1 (only the good repo's event)", summary.EventsIngested)
	}
	if rec.failed != 1 {
		t.Errorf("recorder.failed = %d, want 1", rec.failed)
	}
}

func TestWorker_StalledRepositories(t *testing.T) {
	t.Parallel()

	fresh := silver.Repository{ID: uuid.Must(uuid.NewV7()), GitHubOwner: "abcxyz", GitHubName: "fresh"}
	stale := silver.Repository{ID: uuid.Must(uuid.NewV7()), GitHubOwner: "abcxyz", GitHubName: "stale"}

	repos := &fakeRepoStore{
		active:  []silver.Repository{fresh, stale},
		stalled: []silver.Repository{stale},
	}
	rec := &fakeRecorder{}
	w := New(&fakeGitHub{}, &fakeCatalogue{}, repos, &fakeBronze{}, rec, Options{StalenessThreshold: time.Hour})

	stalled, err := w.StalledRepositories(t.Context())
	if err != nil {
		t.Fatalf("StalledRepositories: %v", err)
	}
	if len(stalled) != 1 || stalled[0].GitHubName != "stale" {
		t.Errorf("StalledRepositories = %+v, want only stale", stalled)
	}
	if rec.stalled["abcxyz/stale"] != true || rec.stalled["abcxyz/fresh"] != false {
		t.Errorf("recorder.stalled = %+v, want stale=true fresh=false", rec.stalled)
	}
}

func TestIsNoise(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		actor  string
		filter catalogue.NoiseFilterConfig
		want   bool
	}{
		{name: "empty_actor_never_noise", actor: "", filter: catalogue.NoiseFilterConfig{ExcludeBotSuffix: "[bot]"}, want: false},
		{name: "bot_suffix_matches", actor: "renovate[bot]", filter: catalogue.NoiseFilterConfig{ExcludeBotSuffix: "[bot]"}, want: true},
		{name: "human_login_not_noise", actor: "alice", filter: catalogue.NoiseFilterConfig{ExcludeBotSuffix: "[bot]"}, want: false},
		{name: "explicit_login_excluded", actor: "ci-runner", filter: catalogue.NoiseFilterConfig{ExcludeLogins: []string{"ci-runner"}}, want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := isNoise(tc.actor, tc.filter); got != tc.want {
				t.Errorf("isNoise(%q, %+v) = %v, want %v", tc.actor, tc.filter, got, tc.want)
			}
		})
	}
}
