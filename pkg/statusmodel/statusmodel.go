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

// Package statusmodel defines the status-model port (§4.8): the
// interface the reporting service summarizes evidence bundles through,
// independent of whether the concrete adapter is deterministic or
// LLM-backed.
package statusmodel

import (
	"context"

	"github.com/abcxyz/ghillie/pkg/evidence"
	"github.com/abcxyz/ghillie/pkg/gold"
)

// Result is a status model's judgment over an evidence bundle.
type Result struct {
	Summary    string
	Status     gold.Status
	Highlights []string
	Risks      []string
	NextSteps  []string
}

// InvocationMetrics is the optional side-channel an adapter may expose
// after a call, for latency/token observability. The port itself does
// not require it — see MetricsSource.
type InvocationMetrics struct {
	LatencyMs        int64
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

// Model is the status-model port. Both the heuristic and LLM adapters
// implement it.
type Model interface {
	SummarizeRepository(ctx context.Context, bundle evidence.RepositoryEvidenceBundle) (Result, error)
	SummarizeProject(ctx context.Context, bundle evidence.ProjectEvidenceBundle) (Result, error)

	// Name identifies the model for the Report.model field (e.g.
	// "heuristic-v1", the LLM model name).
	Name() string
}

// MetricsSource is an optional capability a Model adapter may implement
// to expose per-call latency/token metrics. The reporting service type-
// asserts for it after each SummarizeRepository/SummarizeProject call.
type MetricsSource interface {
	LastInvocationMetrics() (InvocationMetrics, bool)
}
