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

// Package config defines Ghillie's process-wide configuration: the
// environment table in spec.md §6 plus the expansion additions in
// SPEC_FULL.md §6 (GitHub App credentials, ingestion cadence, metrics
// port). One immutable Config is built in main, validated before any
// resource is constructed, and passed by value into every service.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abcxyz/ghillie/pkg/githubclient"
	"github.com/abcxyz/pkg/cfgloader"
	"github.com/abcxyz/pkg/cli"
	"github.com/sethvargo/go-envconfig"
)

// StatusModelBackend selects the statusmodel.Model adapter the factory
// constructs.
type StatusModelBackend string

const (
	BackendMock   StatusModelBackend = "mock"
	BackendOpenAI StatusModelBackend = "openai"
)

// Config is Ghillie's full process configuration.
type Config struct {
	GitHub githubclient.Config

	// DatabaseURL is the Postgres connection string backing Bronze,
	// Silver, and Gold.
	DatabaseURL string `env:"DATABASE_URL,required"`

	// CataloguePath is the path to the estate catalogue YAML document
	// (the out-of-scope catalogue loader's only configuration knob the
	// core needs — see spec.md §4.3).
	CataloguePath string `env:"CATALOGUE_PATH,required"`

	// ReportingWindowDays is the default reporting window size, used
	// only when a repository or project has no prior report.
	ReportingWindowDays int `env:"REPORTING_WINDOW_DAYS,default=7"`

	// ValidationMaxAttempts bounds the reporting attempt loop.
	ValidationMaxAttempts int `env:"VALIDATION_MAX_ATTEMPTS,default=2"`

	// ReportSinkPath, if set, enables the filesystem ReportSink rooted
	// at this base path.
	ReportSinkPath string `env:"REPORT_SINK_PATH"`

	// StatusModelBackend selects "mock" (heuristic) or "openai".
	StatusModelBackend StatusModelBackend `env:"STATUS_MODEL_BACKEND,default=mock"`

	OpenAIAPIKey      string  `env:"OPENAI_API_KEY"`
	OpenAIEndpoint    string  `env:"OPENAI_ENDPOINT,default=https://api.openai.com/v1"`
	OpenAIModel       string  `env:"OPENAI_MODEL,default=gpt-4o-mini"`
	OpenAITemperature float64 `env:"OPENAI_TEMPERATURE,default=0.3"`
	OpenAIMaxTokens   int     `env:"OPENAI_MAX_TOKENS,default=2048"`

	HTTPHost string `env:"HTTP_HOST,default=0.0.0.0"`
	HTTPPort string `env:"HTTP_PORT,default=8080"`

	// MetricsPort is read from METRICS_PORT, but no listener binds it:
	// the /metrics Prometheus endpoint is served alongside the report
	// HTTP API on the same mux, at Addr() (spec.md §4.11 expansion).
	MetricsPort string `env:"METRICS_PORT,default=9090"`

	// IngestionPollInterval is the scheduler cadence for the ingestion
	// worker pool (spec.md §4.5).
	IngestionPollInterval time.Duration `env:"INGESTION_POLL_INTERVAL,default=5m"`

	// IngestionStalenessThreshold is how long a repository may go
	// without a successful ingestion run before it is reported stalled.
	IngestionStalenessThreshold time.Duration `env:"INGESTION_STALENESS_THRESHOLD,default=24h"`

	// GitHubEventBatchSize bounds a single ingestion poll's page size
	// per repository.
	GitHubEventBatchSize int `env:"GITHUB_EVENT_BATCH_SIZE,default=100"`

	// TransformBatchSize bounds a single transform pass over pending
	// Bronze rows.
	TransformBatchSize int `env:"TRANSFORM_BATCH_SIZE,default=200"`
}

// NewConfig loads a Config from the process environment via cfgloader,
// failing fast on any missing or invalid value per spec.md §6/§7's Config
// error kind.
func NewConfig(ctx context.Context) (*Config, error) {
	return newConfig(ctx, envconfig.OsLookuper())
}

func newConfig(ctx context.Context, lu envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := cfgloader.Load(ctx, &cfg, cfgloader.WithLookuper(lu)); err != nil {
		return nil, fmt.Errorf("config: parse ghillie config: %w", err)
	}
	if err := cfg.Validate(ctx); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Validate checks every invariant spec.md §6/§7 requires at startup:
// missing required values, out-of-range numerics, and an unrecognized
// status model backend all fail fast before any resource is constructed.
func (c *Config) Validate(ctx context.Context) error {
	var merr error

	if c.DatabaseURL == "" {
		merr = errors.Join(merr, fmt.Errorf("DATABASE_URL is required"))
	}
	if c.CataloguePath == "" {
		merr = errors.Join(merr, fmt.Errorf("CATALOGUE_PATH is required"))
	}
	if c.ReportingWindowDays <= 0 {
		merr = errors.Join(merr, fmt.Errorf("REPORTING_WINDOW_DAYS must be positive"))
	}
	if c.ValidationMaxAttempts < 1 {
		merr = errors.Join(merr, fmt.Errorf("VALIDATION_MAX_ATTEMPTS must be at least 1"))
	}

	switch c.StatusModelBackend {
	case BackendMock:
		// no further requirements
	case BackendOpenAI:
		if c.OpenAIAPIKey == "" {
			merr = errors.Join(merr, fmt.Errorf("OPENAI_API_KEY is required when STATUS_MODEL_BACKEND=openai"))
		}
		merr = errors.Join(merr, c.GitHub.Validate(ctx))
	default:
		merr = errors.Join(merr, fmt.Errorf("STATUS_MODEL_BACKEND must be %q or %q, got %q", BackendMock, BackendOpenAI, c.StatusModelBackend))
	}

	if c.OpenAITemperature < 0.0 || c.OpenAITemperature > 2.0 {
		merr = errors.Join(merr, fmt.Errorf("OPENAI_TEMPERATURE must be in [0.0, 2.0], got %v", c.OpenAITemperature))
	}
	if c.OpenAIMaxTokens <= 0 {
		merr = errors.Join(merr, fmt.Errorf("OPENAI_MAX_TOKENS must be positive, got %d", c.OpenAIMaxTokens))
	}
	if c.GitHubEventBatchSize <= 0 {
		merr = errors.Join(merr, fmt.Errorf("GITHUB_EVENT_BATCH_SIZE must be positive"))
	}
	if c.TransformBatchSize <= 0 {
		merr = errors.Join(merr, fmt.Errorf("TRANSFORM_BATCH_SIZE must be positive"))
	}
	if c.IngestionPollInterval <= 0 {
		merr = errors.Join(merr, fmt.Errorf("INGESTION_POLL_INTERVAL must be positive"))
	}
	if c.IngestionStalenessThreshold <= 0 {
		merr = errors.Join(merr, fmt.Errorf("INGESTION_STALENESS_THRESHOLD must be positive"))
	}

	return merr
}

// ToFlags binds the config to the given [cli.FlagSet] for CLI
// discoverability, matching the teacher's Config/ToFlags convention.
func (c *Config) ToFlags(set *cli.FlagSet) {
	c.GitHub.ToFlags(set)

	f := set.NewSection("GHILLIE OPTIONS")

	f.StringVar(&cli.StringVar{
		Name:   "database-url",
		Target: &c.DatabaseURL,
		EnvVar: "DATABASE_URL",
		Usage:  `Postgres connection string for the Bronze/Silver/Gold stores.`,
	})
	f.StringVar(&cli.StringVar{
		Name:   "catalogue-path",
		Target: &c.CataloguePath,
		EnvVar: "CATALOGUE_PATH",
		Usage:  `Path to the estate catalogue YAML document.`,
	})
	f.IntVar(&cli.IntVar{
		Name:    "reporting-window-days",
		Target:  &c.ReportingWindowDays,
		EnvVar:  "REPORTING_WINDOW_DAYS",
		Default: 7,
		Usage:   `Default reporting window size in days.`,
	})
	f.IntVar(&cli.IntVar{
		Name:    "validation-max-attempts",
		Target:  &c.ValidationMaxAttempts,
		EnvVar:  "VALIDATION_MAX_ATTEMPTS",
		Default: 2,
		Usage:   `Maximum status-model attempts before filing a ReportReview.`,
	})
	f.StringVar(&cli.StringVar{
		Name:   "report-sink-path",
		Target: &c.ReportSinkPath,
		EnvVar: "REPORT_SINK_PATH",
		Usage:  `If set, enables the filesystem report sink rooted at this path.`,
	})
	f.StringVar(&cli.StringVar{
		Name:    "status-model-backend",
		Target:  (*string)(&c.StatusModelBackend),
		EnvVar:  "STATUS_MODEL_BACKEND",
		Default: string(BackendMock),
		Usage:   `Status model adapter: "mock" or "openai".`,
	})
	f.StringVar(&cli.StringVar{
		Name:   "openai-api-key",
		Target: &c.OpenAIAPIKey,
		EnvVar: "OPENAI_API_KEY",
		Usage:  `API key for the OpenAI-compatible endpoint.`,
	})
	f.StringVar(&cli.StringVar{
		Name:    "openai-endpoint",
		Target:  &c.OpenAIEndpoint,
		EnvVar:  "OPENAI_ENDPOINT",
		Default: "https://api.openai.com/v1",
		Usage:   `Base URL of the OpenAI-compatible chat-completions endpoint.`,
	})
	f.StringVar(&cli.StringVar{
		Name:    "openai-model",
		Target:  &c.OpenAIModel,
		EnvVar:  "OPENAI_MODEL",
		Default: "gpt-4o-mini",
		Usage:   `Model identifier sent with each chat-completions request.`,
	})
	f.Float64Var(&cli.Float64Var{
		Name:    "openai-temperature",
		Target:  &c.OpenAITemperature,
		EnvVar:  "OPENAI_TEMPERATURE",
		Default: 0.3,
		Usage:   `Sampling temperature in [0.0, 2.0].`,
	})
	f.IntVar(&cli.IntVar{
		Name:    "openai-max-tokens",
		Target:  &c.OpenAIMaxTokens,
		EnvVar:  "OPENAI_MAX_TOKENS",
		Default: 2048,
		Usage:   `Maximum completion tokens per request.`,
	})
	f.StringVar(&cli.StringVar{
		Name:    "http-host",
		Target:  &c.HTTPHost,
		EnvVar:  "HTTP_HOST",
		Default: "0.0.0.0",
		Usage:   `Bind host for the report HTTP API.`,
	})
	f.StringVar(&cli.StringVar{
		Name:    "http-port",
		Target:  &c.HTTPPort,
		EnvVar:  "HTTP_PORT",
		Default: "8080",
		Usage:   `Bind port for the report HTTP API.`,
	})
	f.StringVar(&cli.StringVar{
		Name:    "metrics-port",
		Target:  &c.MetricsPort,
		EnvVar:  "METRICS_PORT",
		Default: "9090",
		Usage:   `Metrics port; not bound, since /metrics is served on the report HTTP API's address.`,
	})
	f.DurationVar(&cli.DurationVar{
		Name:    "ingestion-poll-interval",
		Target:  &c.IngestionPollInterval,
		EnvVar:  "INGESTION_POLL_INTERVAL",
		Default: 5 * time.Minute,
		Usage:   `Scheduler cadence for the ingestion worker pool.`,
	})
	f.DurationVar(&cli.DurationVar{
		Name:    "ingestion-staleness-threshold",
		Target:  &c.IngestionStalenessThreshold,
		EnvVar:  "INGESTION_STALENESS_THRESHOLD",
		Default: 24 * time.Hour,
		Usage:   `Duration before a repository with no successful ingestion is reported stalled.`,
	})
	f.IntVar(&cli.IntVar{
		Name:    "github-event-batch-size",
		Target:  &c.GitHubEventBatchSize,
		EnvVar:  "GITHUB_EVENT_BATCH_SIZE",
		Default: 100,
		Usage:   `Page size per repository for a single ingestion poll.`,
	})
	f.IntVar(&cli.IntVar{
		Name:    "transform-batch-size",
		Target:  &c.TransformBatchSize,
		EnvVar:  "TRANSFORM_BATCH_SIZE",
		Default: 200,
		Usage:   `Number of pending Bronze rows processed per transform pass.`,
	})
}

// Addr returns the host:port the report HTTP API should bind.
func (c *Config) Addr() string {
	if strings.Contains(c.HTTPHost, ":") && c.HTTPPort == "" {
		return c.HTTPHost
	}
	return c.HTTPHost + ":" + c.HTTPPort
}
