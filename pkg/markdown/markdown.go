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

// Package markdown renders a Gold report's machine_summary into the
// Markdown document written by report sinks, per spec.md §4.10/§6.
package markdown

import (
	"fmt"
	"strings"
	"time"

	"github.com/abcxyz/ghillie/pkg/gold"
)

// Metadata is the owner/name/window/model context a render needs
// alongside the machine summary itself.
type Metadata struct {
	Owner       string
	Name        string
	WindowStart time.Time
	WindowEnd   time.Time
	Model       string
	ReportID    string
}

// Render produces the full Markdown document for a repository status
// report. Rendering is derived purely from summary + metadata; sections
// with empty lists are omitted, and missing optional fields are
// tolerated.
func Render(summary gold.MachineSummary, meta Metadata) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s/%s — Status report (%s to %s)\n\n",
		meta.Owner, meta.Name, meta.WindowStart.Format("2006-01-02"), meta.WindowEnd.Format("2006-01-02"))
	fmt.Fprintf(&b, "**Status:** %s\n\n", statusOrUnknown(summary.Status))

	b.WriteString("## Summary\n\n")
	if summary.Summary != "" {
		fmt.Fprintf(&b, "%s\n\n", summary.Summary)
	} else {
		b.WriteString("_No summary provided._\n\n")
	}

	renderListSection(&b, "Highlights", summary.Highlights)
	renderListSection(&b, "Risks", summary.Risks)
	renderListSection(&b, "Next steps", summary.NextSteps)

	fmt.Fprintf(&b, "---\n_Generated by %s · report %s_\n", modelOrUnknown(meta.Model), meta.ReportID)

	return b.String()
}

func renderListSection(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func statusOrUnknown(s gold.Status) gold.Status {
	if s == "" {
		return gold.StatusUnknown
	}
	return s
}

func modelOrUnknown(model string) string {
	if model == "" {
		return "unknown model"
	}
	return model
}
