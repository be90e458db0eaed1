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

// Package sink defines the ReportSink port (§4.10): a pluggable
// destination for rendered Markdown, invoked only after a report has
// been successfully persisted.
package sink

import "context"

// Metadata identifies the report a rendered Markdown document belongs
// to, for sinks that organize output by repository and date.
type Metadata struct {
	Owner     string
	Name      string
	ReportID  string
	WindowEnd string // YYYY-MM-DD, UTC
}

// ReportSink writes a rendered report. Implementations must not block
// the caller's event loop — offload I/O to a worker.
type ReportSink interface {
	WriteReport(ctx context.Context, markdown string, meta Metadata) error
}
