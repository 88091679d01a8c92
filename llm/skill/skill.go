/**
 * Copyright 2026 Mejora Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package skill manages named improvement strategies: markdown instruction
// blocks with YAML frontmatter that get appended to improvement prompts.
// A set of strategies ships embedded; projects add their own under
// .mejora/skills.
package skill

// Skill is one improvement strategy.
type Skill struct {
	Name        string
	Description string
	// Languages scopes the skill; empty means it applies to every language.
	Languages    []string
	Instructions string

	Source Source
	Path   string
}

// AppliesTo reports whether the skill covers the given language.
func (s *Skill) AppliesTo(language string) bool {
	if len(s.Languages) == 0 {
		return true
	}
	for _, l := range s.Languages {
		if l == language {
			return true
		}
	}
	return false
}

// Source tells where a skill was loaded from.
type Source int

const (
	SourceEmbedded Source = iota
	SourceLocal
)

func (s Source) String() string {
	switch s {
	case SourceEmbedded:
		return "embedded"
	case SourceLocal:
		return "local"
	default:
		return "unknown"
	}
}
