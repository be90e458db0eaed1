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

package llmadapter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/abcxyz/ghillie/pkg/evidence"
	"github.com/abcxyz/ghillie/pkg/gold"
	"github.com/abcxyz/ghillie/pkg/llm"
)

func newTestModel(t *testing.T, body string, status int) *Model {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	client := llm.New(llm.Config{BaseURL: srv.URL, APIKey: "test", Model: "gpt-test"}, srv.Client())
	return New(client, Config{ModelName: "gpt-test", Temperature: 0.2, MaxTokens: 500})
}

func TestSummarizeRepository_ParsesResponse(t *testing.T) {
	t.Parallel()

	body := `{"choices":[{"message":{"content":"{\"status\":\"at_risk\",\"summary\":\"slipping\",\"risks\":[\"ci flaky\"]}"}}],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`
	m := newTestModel(t, body, http.StatusOK)

	result, err := m.SummarizeRepository(context.Background(), evidence.RepositoryEvidenceBundle{RepositorySlug: "abcxyz/ghillie"})
	if err != nil {
		t.Fatalf("SummarizeRepository: %v", err)
	}
	if result.Status != gold.StatusAtRisk {
		t.Errorf("Status = %q, want at_risk", result.Status)
	}
	if result.Summary != "slipping" {
		t.Errorf("Summary = %q, want slipping", result.Summary)
	}

	metrics, ok := m.LastInvocationMetrics()
	if !ok || metrics.TotalTokens != 3 {
		t.Errorf("LastInvocationMetrics = %+v, %v; want TotalTokens=3, ok=true", metrics, ok)
	}
}

func TestSummarizeRepository_UnknownStatusStringMapsToUnknown(t *testing.T) {
	t.Parallel()

	body := `{"choices":[{"message":{"content":"{\"status\":\"purple\",\"summary\":\"weird\"}"}}]}`
	m := newTestModel(t, body, http.StatusOK)

	result, err := m.SummarizeRepository(context.Background(), evidence.RepositoryEvidenceBundle{})
	if err != nil {
		t.Fatalf("SummarizeRepository: %v", err)
	}
	if result.Status != gold.StatusUnknown {
		t.Errorf("Status = %q, want unknown", result.Status)
	}
}

func TestSummarizeRepository_MissingSummaryIsResponseShapeError(t *testing.T) {
	t.Parallel()

	body := `{"choices":[{"message":{"content":"{\"status\":\"on_track\"}"}}]}`
	m := newTestModel(t, body, http.StatusOK)

	_, err := m.SummarizeRepository(context.Background(), evidence.RepositoryEvidenceBundle{})
	var shapeErr *ResponseShape
	if !errors.As(err, &shapeErr) {
		t.Fatalf("expected *ResponseShape, got %T: %v", err, err)
	}
}

func TestSummarizeRepository_MalformedJSONIsResponseShapeError(t *testing.T) {
	t.Parallel()

	body := `{"choices":[{"message":{"content":"not json"}}]}`
	m := newTestModel(t, body, http.StatusOK)

	_, err := m.SummarizeRepository(context.Background(), evidence.RepositoryEvidenceBundle{})
	var shapeErr *ResponseShape
	if !errors.As(err, &shapeErr) {
		t.Fatalf("expected *ResponseShape, got %T: %v", err, err)
	}
}

func TestSummarizeRepository_HTTPErrorPropagates(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, `{}`, http.StatusInternalServerError)

	_, err := m.SummarizeRepository(context.Background(), evidence.RepositoryEvidenceBundle{})
	var apiErr *llm.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected wrapped *llm.APIError, got %T: %v", err, err)
	}
	if apiErr.Category != llm.ErrorHTTP {
		t.Errorf("Category = %q, want http_error", apiErr.Category)
	}
}
