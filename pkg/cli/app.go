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
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/abcxyz/ghillie/pkg/bronze"
	"github.com/abcxyz/ghillie/pkg/catalogue"
	"github.com/abcxyz/ghillie/pkg/catalogue/yamladapter"
	"github.com/abcxyz/ghillie/pkg/config"
	"github.com/abcxyz/ghillie/pkg/database"
	"github.com/abcxyz/ghillie/pkg/evidence"
	"github.com/abcxyz/ghillie/pkg/githubclient"
	"github.com/abcxyz/ghillie/pkg/gold"
	"github.com/abcxyz/ghillie/pkg/ingest"
	"github.com/abcxyz/ghillie/pkg/llm"
	"github.com/abcxyz/ghillie/pkg/metrics"
	"github.com/abcxyz/ghillie/pkg/reporting"
	"github.com/abcxyz/ghillie/pkg/silver"
	"github.com/abcxyz/ghillie/pkg/sink"
	"github.com/abcxyz/ghillie/pkg/sink/fsink"
	"github.com/abcxyz/ghillie/pkg/statusmodel"
	"github.com/abcxyz/ghillie/pkg/statusmodel/heuristic"
	"github.com/abcxyz/ghillie/pkg/statusmodel/llmadapter"
	"github.com/abcxyz/ghillie/pkg/transform"
	"github.com/google/uuid"
)

// app wires together every service command in this package depends on.
// Each command bootstraps one of these from the parsed config and closes
// it once its Run returns.
type app struct {
	cfg *config.Config

	db        *sql.DB
	bronze    *bronze.Store
	silver    *silver.Store
	gold      *gold.Store
	catalogue catalogue.Adapter

	transform *transform.Service
	reporting *reporting.Service
	ingest    *ingest.Worker
}

// bootstrap loads the catalogue, opens the database, and constructs every
// store and service a command might need. Commands that don't use a
// given service (e.g. "transform" never touches the GitHub client)
// simply leave it unused; the cost of building it once is small next to
// the cost of threading partial-bootstrap variants through every command.
func bootstrap(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	cat, err := yamladapter.Load(cfg.CataloguePath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap: load catalogue: %w", err)
	}

	bronzeStore := bronze.New(db)
	silverStore := silver.New(db)
	goldStore := gold.New(db)

	model, err := newStatusModel(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap: status model: %w", err)
	}

	var reportSink sink.ReportSink
	if cfg.ReportSinkPath != "" {
		reportSink = fsink.New(cfg.ReportSinkPath)
	}

	repoEvidence := evidence.NewRepositoryService(silverStore, goldStore)
	projectEvidence := evidence.NewProjectService(cat, goldStore, func(ctx context.Context, owner, name string) (uuid.UUID, bool, error) {
		repo, err := silverStore.GetRepositoryBySlug(ctx, owner, name)
		if err != nil {
			if isNotFound(err) {
				return uuid.UUID{}, false, nil
			}
			return uuid.UUID{}, false, fmt.Errorf("resolve repository %s/%s: %w", owner, name, err)
		}
		return repo.ID, true, nil
	})

	reportingSvc := reporting.NewService(repoEvidence, projectEvidence, goldStore, model, reporting.Options{
		WindowDays:            cfg.ReportingWindowDays,
		ValidationMaxAttempts: cfg.ValidationMaxAttempts,
		Sink:                  reportSink,
		Reporting:             metrics.NewReportingRecorder(),
	})

	transformSvc := transform.New(bronzeStore, silverStore, transform.NewRegistry(
		transform.PushHydrator,
		transform.PullRequestHydrator,
		transform.IssueHydrator,
		transform.CommitCommentHydrator,
		transform.LabelHydrator,
	), 0)

	a := &app{
		cfg:       cfg,
		db:        db,
		bronze:    bronzeStore,
		silver:    silverStore,
		gold:      goldStore,
		catalogue: cat,
		transform: transformSvc,
		reporting: reportingSvc,
	}

	if cfg.GitHub.GitHubAppID != "" {
		ghClient, err := buildIngestionClient(ctx, cfg)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("bootstrap: github client: %w", err)
		}
		a.ingest = ingest.New(ghClient, cat, silverStore, bronzeStore, metrics.NewIngestionRecorder(), ingest.Options{
			PageSize:           cfg.GitHubEventBatchSize,
			StalenessThreshold: cfg.IngestionStalenessThreshold,
		})
	}

	return a, nil
}

// isNotFound reports whether err is silver's repository-not-found
// sentinel.
func isNotFound(err error) bool {
	return errors.Is(err, silver.ErrRepositoryNotFound)
}

func buildIngestionClient(ctx context.Context, cfg *config.Config) (*githubclient.Client, error) {
	if err := cfg.GitHub.Validate(ctx); err != nil {
		return nil, fmt.Errorf("github config: %w", err)
	}
	base, err := githubclient.New(ctx, &cfg.GitHub)
	if err != nil {
		return nil, fmt.Errorf("create app client: %w", err)
	}
	if cfg.GitHub.GitHubInstallationID == "" {
		return nil, fmt.Errorf("GITHUB_INSTALLATION_ID is required to act as the installed app")
	}
	installClient, err := base.InstallationClient(ctx, cfg.GitHub.GitHubInstallationID)
	if err != nil {
		return nil, fmt.Errorf("scope to installation: %w", err)
	}
	return installClient, nil
}

func newStatusModel(cfg *config.Config) (statusmodel.Model, error) {
	switch cfg.StatusModelBackend {
	case config.BackendOpenAI:
		client := llm.New(llm.Config{
			BaseURL: cfg.OpenAIEndpoint,
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
		}, http.DefaultClient)
		return llmadapter.New(client, llmadapter.Config{
			ModelName:   cfg.OpenAIModel,
			Temperature: cfg.OpenAITemperature,
			MaxTokens:   cfg.OpenAIMaxTokens,
		}), nil
	case config.BackendMock:
		return heuristic.New(), nil
	default:
		return nil, fmt.Errorf("unknown status model backend %q", cfg.StatusModelBackend)
	}
}

// Close releases the app's database connection.
func (a *app) Close() error {
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
