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

package improve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSemanticDiffStats(t *testing.T) {
	diffs := SemanticDiff("def suma(a, b):\n", "def suma(a, b):\n    # sum\n")
	s := Stats(diffs)
	assert.Greater(t, s.Insertions, 0)
	assert.Equal(t, 0, s.Deletions)
	assert.False(t, s.Empty())

	assert.True(t, Stats(SemanticDiff("same", "same")).Empty())
}

func TestFormatDiff(t *testing.T) {
	out := FormatDiff(SemanticDiff("a\n", "b\n"))
	assert.Contains(t, out, "-a")
	assert.Contains(t, out, "+b")
}
