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

// Package llm is a minimal client for OpenAI-compatible chat-completions
// endpoints, used by the LLM status-model adapter (§4.8). A single
// request per call, no retries here — retry policy belongs to the
// caller, which treats classified APIErrors differently (rate_limited is
// worth retrying, http_error/timeout may not be).
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Message is one chat-completions message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat requests structured JSON output.
type ResponseFormat struct {
	Type string `json:"type"`
}

// ChatRequest is the request body for a chat-completions call.
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
}

// ChatResult is a successful chat-completions response.
type ChatResult struct {
	Content          string
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

// ErrorCategory classifies a failed call per spec.md §4.8.
type ErrorCategory string

const (
	ErrorRateLimited ErrorCategory = "rate_limited"
	ErrorHTTP        ErrorCategory = "http_error"
	ErrorTimeout     ErrorCategory = "timeout"
)

// APIError is a classified failure from a chat-completions call.
type APIError struct {
	Category   ErrorCategory
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm: %s (status %d): %s", e.Category, e.StatusCode, e.Message)
}

const maxResponseBytes = 256 * 1024

// callTimeout bounds each chat-completions call; exceeding it is reported
// as an ErrorTimeout APIError.
const callTimeout = 120 * time.Second

// Client is a minimal OpenAI-compatible chat-completions client.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// Config configures a Client.
type Config struct {
	BaseURL string // e.g. "https://api.openai.com/v1"
	APIKey  string
	Model   string
}

// New creates a Client.
func New(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: cfg.BaseURL, apiKey: cfg.APIKey, model: cfg.Model, httpClient: httpClient}
}

// ChatCompletion issues a single chat-completions request with the given
// messages, temperature, and max_tokens, requesting JSON-object output.
func (c *Client) ChatCompletion(ctx context.Context, messages []Message, temperature float64, maxTokens int) (ChatResult, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	reqBody := ChatRequest{
		Model:          c.model,
		Messages:       messages,
		Temperature:    temperature,
		MaxTokens:      maxTokens,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return ChatResult{}, fmt.Errorf("llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return ChatResult{}, fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ChatResult{}, &APIError{Category: ErrorTimeout, Message: err.Error()}
		}
		return ChatResult{}, &APIError{Category: ErrorHTTP, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return ChatResult{}, fmt.Errorf("llm: read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return ChatResult{}, &APIError{Category: ErrorRateLimited, StatusCode: resp.StatusCode, Message: string(respBytes)}
	}
	if resp.StatusCode/100 != 2 {
		return ChatResult{}, &APIError{Category: ErrorHTTP, StatusCode: resp.StatusCode, Message: string(respBytes)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return ChatResult{}, fmt.Errorf("llm: unmarshal response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return ChatResult{}, fmt.Errorf("llm: response had no choices")
	}

	return ChatResult{
		Content:          parsed.Choices[0].Message.Content,
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
		TotalTokens:      parsed.Usage.TotalTokens,
	}, nil
}
