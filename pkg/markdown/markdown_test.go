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

package markdown

import (
	"strings"
	"testing"
	"time"

	"github.com/abcxyz/ghillie/pkg/gold"
)

func TestRender_OmitsEmptyListSections(t *testing.T) {
	t.Parallel()

	summary := gold.MachineSummary{Status: gold.StatusOnTrack, Summary: "all quiet"}
	meta := Metadata{
		Owner: "abcxyz", Name: "ghillie",
		WindowStart: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		WindowEnd:   time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC),
		Model:       "heuristic-v1", ReportID: "abc-123",
	}

	out := Render(summary, meta)

	if !strings.Contains(out, "# abcxyz/ghillie — Status report (2026-07-01 to 2026-07-31)") {
		t.Errorf("missing title line:\n%s", out)
	}
	if strings.Contains(out, "## Highlights") || strings.Contains(out, "## Risks") || strings.Contains(out, "## Next steps") {
		t.Errorf("expected empty-list sections to be omitted:\n%s", out)
	}
}

func TestRender_IncludesNonEmptySections(t *testing.T) {
	t.Parallel()

	summary := gold.MachineSummary{
		Status:     gold.StatusAtRisk,
		Summary:    "slipping",
		Highlights: []string{"shipped auth"},
		Risks:      []string{"flaky CI"},
		NextSteps:  []string{"fix CI"},
	}
	out := Render(summary, Metadata{Owner: "abcxyz", Name: "ghillie", Model: "gpt-test", ReportID: "r1"})

	for _, want := range []string{"## Highlights", "shipped auth", "## Risks", "flaky CI", "## Next steps", "fix CI"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRender_MissingModelAndStatusFallBackToUnknown(t *testing.T) {
	t.Parallel()

	out := Render(gold.MachineSummary{}, Metadata{Owner: "a", Name: "b"})
	if !strings.Contains(out, "**Status:** unknown") {
		t.Errorf("expected unknown status fallback:\n%s", out)
	}
	if !strings.Contains(out, "unknown model") {
		t.Errorf("expected unknown model fallback:\n%s", out)
	}
}
