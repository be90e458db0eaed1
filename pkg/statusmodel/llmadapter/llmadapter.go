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

// Package llmadapter implements the LLM-backed status-model adapter from
// spec.md §4.8: serializes an evidence bundle into a prompt, requests
// JSON-object output from an OpenAI-compatible chat-completions
// endpoint, and parses the response under the documented tolerance and
// error-classification rules.
package llmadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/abcxyz/ghillie/pkg/evidence"
	"github.com/abcxyz/ghillie/pkg/gold"
	"github.com/abcxyz/ghillie/pkg/llm"
	"github.com/abcxyz/ghillie/pkg/statusmodel"
)

const systemPrompt = `You report on software project status from structured activity evidence.
Respond with a single JSON object only, no prose, matching exactly:
{"status": "on_track"|"at_risk"|"blocked"|"unknown", "summary": "string", "highlights": ["string"], "risks": ["string"], "next_steps": ["string"]}`

// ResponseShape is returned when the model's JSON response is malformed
// or missing a required field.
type ResponseShape struct {
	Reason string
}

func (e *ResponseShape) Error() string { return "llmadapter: response shape: " + e.Reason }

// Model is the LLM-backed status-model adapter.
type Model struct {
	client      *llm.Client
	modelName   string
	temperature float64
	maxTokens   int

	lastMetrics statusmodel.InvocationMetrics
	haveMetrics bool
}

// Config configures a Model.
type Config struct {
	ModelName   string
	Temperature float64 // [0.0, 2.0]
	MaxTokens   int     // > 0
}

// New creates an LLM-backed Model over client.
func New(client *llm.Client, cfg Config) *Model {
	return &Model{client: client, modelName: cfg.ModelName, temperature: cfg.Temperature, maxTokens: cfg.MaxTokens}
}

// Name identifies this adapter for Report.model.
func (m *Model) Name() string { return m.modelName }

// LastInvocationMetrics implements statusmodel.MetricsSource.
func (m *Model) LastInvocationMetrics() (statusmodel.InvocationMetrics, bool) {
	return m.lastMetrics, m.haveMetrics
}

// SummarizeRepository serializes bundle into a prompt and parses the
// model's JSON response into a Result.
func (m *Model) SummarizeRepository(ctx context.Context, bundle evidence.RepositoryEvidenceBundle) (statusmodel.Result, error) {
	return m.complete(ctx, repositoryPrompt(bundle))
}

// SummarizeProject serializes bundle into a prompt and parses the
// model's JSON response into a Result.
func (m *Model) SummarizeProject(ctx context.Context, bundle evidence.ProjectEvidenceBundle) (statusmodel.Result, error) {
	return m.complete(ctx, projectPrompt(bundle))
}

func (m *Model) complete(ctx context.Context, userPrompt string) (statusmodel.Result, error) {
	m.haveMetrics = false

	result, err := m.client.ChatCompletion(ctx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}, m.temperature, m.maxTokens)
	if err != nil {
		var apiErr *llm.APIError
		if errors.As(err, &apiErr) {
			return statusmodel.Result{}, fmt.Errorf("llmadapter: %s call failed: %w", apiErr.Category, err)
		}
		return statusmodel.Result{}, fmt.Errorf("llmadapter: chat completion: %w", err)
	}

	m.lastMetrics = statusmodel.InvocationMetrics{
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		TotalTokens:      result.TotalTokens,
	}
	m.haveMetrics = true

	return parseResult(result.Content)
}

// parsedResult mirrors the requested JSON schema; optional keys are
// tolerated when absent.
type parsedResult struct {
	Status     string   `json:"status"`
	Summary    string   `json:"summary"`
	Highlights []string `json:"highlights"`
	Risks      []string `json:"risks"`
	NextSteps  []string `json:"next_steps"`
}

func parseResult(content string) (statusmodel.Result, error) {
	var p parsedResult
	if err := json.Unmarshal([]byte(content), &p); err != nil {
		return statusmodel.Result{}, &ResponseShape{Reason: "malformed JSON: " + err.Error()}
	}
	if p.Summary == "" {
		return statusmodel.Result{}, &ResponseShape{Reason: "missing summary"}
	}
	if p.Status == "" {
		return statusmodel.Result{}, &ResponseShape{Reason: "missing status"}
	}

	return statusmodel.Result{
		Status:     parseStatus(p.Status),
		Summary:    p.Summary,
		Highlights: p.Highlights,
		Risks:      p.Risks,
		NextSteps:  p.NextSteps,
	}, nil
}

// parseStatus maps an arbitrary status string to a known Status,
// defaulting to unknown for anything unrecognized.
func parseStatus(s string) gold.Status {
	switch gold.Status(strings.ToLower(strings.TrimSpace(s))) {
	case gold.StatusOnTrack:
		return gold.StatusOnTrack
	case gold.StatusAtRisk:
		return gold.StatusAtRisk
	case gold.StatusBlocked:
		return gold.StatusBlocked
	default:
		return gold.StatusUnknown
	}
}
