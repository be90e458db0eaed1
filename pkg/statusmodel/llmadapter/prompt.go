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
	"fmt"
	"strings"

	"github.com/abcxyz/ghillie/pkg/evidence"
	"github.com/abcxyz/ghillie/pkg/silver"
)

// repositoryPrompt serializes a RepositoryEvidenceBundle into the
// textual prompt described in spec.md §4.8: previous-report context,
// activity summary, work-type breakdown, and PR/issue listings.
func repositoryPrompt(bundle evidence.RepositoryEvidenceBundle) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Repository: %s\n", bundle.RepositorySlug)
	fmt.Fprintf(&b, "Window: %s to %s\n\n", bundle.WindowStart.Format("2006-01-02"), bundle.WindowEnd.Format("2006-01-02"))

	if bundle.PreviousReport != nil {
		fmt.Fprintf(&b, "Previous report status: %s\n", bundle.PreviousReport.Status)
		fmt.Fprintf(&b, "Previous summary: %s\n", bundle.PreviousReport.Summary)
		if len(bundle.PreviousReport.Risks) > 0 {
			fmt.Fprintf(&b, "Previously carried risks: %s\n", strings.Join(bundle.PreviousReport.Risks, "; "))
		}
		b.WriteString("\n")
	}

	if bundle.IsEmpty() {
		b.WriteString("No new activity in this window.\n")
		return b.String()
	}

	bugs, features, docs, chores, other := 0, 0, 0, 0, 0
	for _, c := range bundle.Commits {
		tallyWorkType(c.WorkType, &bugs, &features, &docs, &chores, &other)
	}
	for _, p := range bundle.PullRequests {
		tallyWorkType(p.WorkType, &bugs, &features, &docs, &chores, &other)
	}
	for _, i := range bundle.Issues {
		tallyWorkType(i.WorkType, &bugs, &features, &docs, &chores, &other)
	}
	fmt.Fprintf(&b, "Work-type breakdown: %d bug, %d feature, %d docs, %d chore, %d other\n\n", bugs, features, docs, chores, other)

	if len(bundle.PullRequests) > 0 {
		b.WriteString("Pull requests:\n")
		for _, p := range bundle.PullRequests {
			fmt.Fprintf(&b, "- #%d [%s/%s] %s (%s)\n", p.ID, p.State, p.WorkType, p.Title, p.UpdatedAt.Format("2006-01-02"))
		}
		b.WriteString("\n")
	}

	if len(bundle.Issues) > 0 {
		b.WriteString("Issues:\n")
		for _, i := range bundle.Issues {
			fmt.Fprintf(&b, "- #%d [%s/%s] %s (%s)\n", i.ID, i.State, i.WorkType, i.Title, i.UpdatedAt.Format("2006-01-02"))
		}
		b.WriteString("\n")
	}

	if len(bundle.DocumentationChanges) > 0 {
		fmt.Fprintf(&b, "Documentation changes: %d\n", len(bundle.DocumentationChanges))
	}

	return b.String()
}

// projectPrompt serializes a ProjectEvidenceBundle into a textual prompt
// summarizing component statuses and their dependency edges.
func projectPrompt(bundle evidence.ProjectEvidenceBundle) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Project: %s (%s)\n%s\n\n", bundle.Project.Name, bundle.Project.Key, bundle.Project.Description)

	b.WriteString("Components:\n")
	for _, c := range bundle.Components {
		if c.Repository == nil {
			fmt.Fprintf(&b, "- %s [%s] no repository report yet\n", c.Component.Name, c.Component.Lifecycle)
			continue
		}
		fmt.Fprintf(&b, "- %s [%s] status=%s: %s\n", c.Component.Name, c.Component.Lifecycle,
			c.Repository.MachineSummary.Status, c.Repository.MachineSummary.Summary)
	}

	if len(bundle.Dependencies) > 0 {
		b.WriteString("\nDependencies:\n")
		for _, d := range bundle.Dependencies {
			fmt.Fprintf(&b, "- %s %s %s\n", d.FromComponentID, d.Relation, d.ToComponentID)
		}
	}

	return b.String()
}

func tallyWorkType(wt silver.WorkType, bugs, features, docs, chores, other *int) {
	switch wt {
	case silver.WorkTypeBug:
		*bugs++
	case silver.WorkTypeFeature:
		*features++
	case silver.WorkTypeDocs:
		*docs++
	case silver.WorkTypeChore:
		*chores++
	default:
		*other++
	}
}
