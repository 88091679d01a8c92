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

package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImprovePromptBuilder_Build(t *testing.T) {
	b := NewImprovePromptBuilder("python", "")
	got := b.Build("def suma(a, b):\n    return a + b\n", 1, 3)

	assert.True(t, strings.HasPrefix(got, DefaultInstruction))
	assert.Contains(t, got, "```python\n")
	assert.Contains(t, got, "def suma(a, b):")
	assert.Contains(t, got, "round 1 of 3")
	assert.Contains(t, got, "Return ONLY the improved code")
}

func TestImprovePromptBuilder_CustomInstruction(t *testing.T) {
	b := NewImprovePromptBuilder("go", "Refactor for clarity:")
	got := b.Build("package main", 1, 1)

	assert.True(t, strings.HasPrefix(got, "Refactor for clarity:"))
	assert.NotContains(t, got, "round 1 of 1")
	// Source without trailing newline still closes its fence on its own line.
	assert.Contains(t, got, "package main\n```")
}

func TestImprovePromptBuilder_Guidance(t *testing.T) {
	b := NewImprovePromptBuilder("python", "").
		WithGuidance("### clean-python\nFollow PEP 8.")
	got := b.Build("x = 1\n", 1, 1)

	assert.Contains(t, got, "## Guidance\n### clean-python\nFollow PEP 8.")
	// Guidance precedes the requirements contract.
	assert.Less(t, strings.Index(got, "## Guidance"), strings.Index(got, "## Requirements"))

	plain := NewImprovePromptBuilder("python", "").Build("x = 1\n", 1, 1)
	assert.NotContains(t, plain, "## Guidance")
}

func TestEmbeddedPrompts(t *testing.T) {
	assert.NotEmpty(t, PromptImprover)
	assert.NotEmpty(t, PromptImproveAgent)
}
