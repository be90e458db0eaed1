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

package evidence

import (
	"strings"

	"github.com/abcxyz/ghillie/pkg/silver"
)

// classify classifies an entity into a WorkType using the fixed precedence
// from spec.md §4.6 step 5 / §9: labels when present, then title/commit
// message prefix patterns, then path heuristics for documentation.
//
// This order (labels → title patterns → path heuristics) is the explicit
// resolution of the Open Question in spec.md §9 about conflicting signals
// (e.g. a PR labelled "feature" whose merge commit says "fix:" classifies
// as feature, since labels win).
func classify(labels []string, titleOrMessage string, touchesDocumentation bool) silver.WorkType {
	if wt, ok := classifyFromLabels(labels); ok {
		return wt
	}
	if wt, ok := classifyFromPrefix(titleOrMessage); ok {
		return wt
	}
	if touchesDocumentation {
		return silver.WorkTypeDocs
	}
	return silver.WorkTypeOther
}

func classifyFromLabels(labels []string) (silver.WorkType, bool) {
	for _, l := range labels {
		switch strings.ToLower(l) {
		case "bug":
			return silver.WorkTypeBug, true
		case "feature", "enhancement":
			return silver.WorkTypeFeature, true
		case "docs", "documentation":
			return silver.WorkTypeDocs, true
		case "chore", "maintenance":
			return silver.WorkTypeChore, true
		}
	}
	return "", false
}

func classifyFromPrefix(text string) (silver.WorkType, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.HasPrefix(lower, "fix:"), strings.HasPrefix(lower, "fix("):
		return silver.WorkTypeBug, true
	case strings.HasPrefix(lower, "feat:"), strings.HasPrefix(lower, "feat("):
		return silver.WorkTypeFeature, true
	case strings.HasPrefix(lower, "docs:"), strings.HasPrefix(lower, "docs("):
		return silver.WorkTypeDocs, true
	case strings.HasPrefix(lower, "chore:"), strings.HasPrefix(lower, "chore("):
		return silver.WorkTypeChore, true
	}
	return "", false
}
