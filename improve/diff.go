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
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffStats counts inserted and deleted characters between the original and
// the improved source, after semantic cleanup.
type DiffStats struct {
	Insertions int `json:"insertions"`
	Deletions  int `json:"deletions"`
}

func (d DiffStats) Empty() bool {
	return d.Insertions == 0 && d.Deletions == 0
}

// SemanticDiff computes the cleaned-up character diff between two versions.
func SemanticDiff(original, improved string) []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(original, improved, false)
	return dmp.DiffCleanupSemantic(diffs)
}

// Stats aggregates diff chunks into insertion/deletion counts.
func Stats(diffs []diffmatchpatch.Diff) DiffStats {
	var s DiffStats
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			s.Insertions += len(d.Text)
		case diffmatchpatch.DiffDelete:
			s.Deletions += len(d.Text)
		}
	}
	return s
}

// FormatDiff renders diffs one chunk per line with +/-/space markers,
// for logs and the propose_improvement tool.
func FormatDiff(diffs []diffmatchpatch.Diff) string {
	var sb strings.Builder
	for _, d := range diffs {
		var marker byte
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			marker = '+'
		case diffmatchpatch.DiffDelete:
			marker = '-'
		default:
			marker = ' '
		}
		for _, line := range strings.Split(strings.TrimRight(d.Text, "\n"), "\n") {
			sb.WriteByte(marker)
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
