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

// Package metrics implements the reporting metrics aggregation (§4.11)
// and the live Prometheus registry backing the HTTP /metrics endpoint.
package metrics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/abcxyz/ghillie/pkg/gold"
)

// ReportingSnapshot is the result of aggregating reports generated in a
// period, per spec.md §4.11.
type ReportingSnapshot struct {
	ReportCount           int
	AvgLatencyMs          float64
	P95LatencyMs          int64
	TotalPromptTokens     int64
	TotalCompletionTokens int64
	TotalTokens           int64
}

// Aggregator computes ReportingSnapshots from the Gold store.
type Aggregator struct {
	gold *gold.Store
}

// NewAggregator creates an Aggregator over the given Gold store.
func NewAggregator(goldStore *gold.Store) *Aggregator {
	return &Aggregator{gold: goldStore}
}

// Snapshot aggregates reports generated in [periodStart, periodEnd),
// optionally filtered to a single scope. Null latency/token fields are
// ignored in their respective aggregates. p95 is computed in-process:
// sort ascending, index at ceil(0.95*n)-1.
func (a *Aggregator) Snapshot(ctx context.Context, periodStart, periodEnd time.Time, scopeFilter *gold.Scope) (ReportingSnapshot, error) {
	rows, err := a.gold.ReportsGeneratedBetween(ctx, periodStart, periodEnd, scopeFilter)
	if err != nil {
		return ReportingSnapshot{}, fmt.Errorf("metrics: reports generated between: %w", err)
	}

	snap := ReportingSnapshot{ReportCount: len(rows)}

	var latencies []int64
	var latencySum int64
	for _, r := range rows {
		if r.ModelLatencyMs != nil {
			latencies = append(latencies, *r.ModelLatencyMs)
			latencySum += *r.ModelLatencyMs
		}
		if r.PromptTokens != nil {
			snap.TotalPromptTokens += *r.PromptTokens
		}
		if r.CompletionTokens != nil {
			snap.TotalCompletionTokens += *r.CompletionTokens
		}
		if r.TotalTokens != nil {
			snap.TotalTokens += *r.TotalTokens
		}
	}

	if len(latencies) > 0 {
		snap.AvgLatencyMs = float64(latencySum) / float64(len(latencies))
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		idx := p95Index(len(latencies))
		snap.P95LatencyMs = latencies[idx]
	}

	return snap, nil
}

// p95Index computes ceil(0.95*n)-1, clamped to [0, n-1].
func p95Index(n int) int {
	idx := int(math.Ceil(0.95*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return idx
}
