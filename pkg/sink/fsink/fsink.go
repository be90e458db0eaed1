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

// Package fsink is the canonical filesystem ReportSink adapter (§4.10):
// writes a rolling latest.md plus a dated, accumulating file per
// repository.
package fsink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/abcxyz/ghillie/pkg/sink"
	"github.com/abcxyz/pkg/logging"
)

// Sink is the filesystem ReportSink.
type Sink struct {
	baseDir string
}

// New creates a filesystem Sink rooted at baseDir.
func New(baseDir string) *Sink {
	return &Sink{baseDir: baseDir}
}

// WriteReport offloads the write onto its own goroutine so it never blocks
// the caller's event loop, per spec.md §4.10 ("writes must not block the
// event loop"). The call returns immediately; failures are logged rather
// than returned, matching a fire-and-forget sink contract invoked only
// after a report has already been persisted.
func (s *Sink) WriteReport(ctx context.Context, markdown string, meta sink.Metadata) error {
	detached := context.WithoutCancel(ctx)
	go func() {
		if err := s.write(meta, markdown); err != nil {
			logging.FromContext(detached).ErrorContext(detached, "fsink: report write failed",
				"owner", meta.Owner, "name", meta.Name, "report_id", meta.ReportID, "error", err)
		}
	}()
	return nil
}

func (s *Sink) write(meta sink.Metadata, markdown string) error {
	dir := filepath.Join(s.baseDir, meta.Owner, meta.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	latest := filepath.Join(dir, "latest.md")
	if err := os.WriteFile(latest, []byte(markdown), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", latest, err)
	}

	dated := filepath.Join(dir, fmt.Sprintf("%s-%s.md", meta.WindowEnd, meta.ReportID))
	if err := os.WriteFile(dated, []byte(markdown), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dated, err)
	}
	return nil
}
