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
	"fmt"
	"strings"
)

// DefaultInstruction is the instruction line sent ahead of the source block.
const DefaultInstruction = "Mejora el siguiente código:"

// ImprovePromptBuilder builds user prompts for the improvement engine.
type ImprovePromptBuilder struct {
	language    string
	instruction string
	guidance    string
}

func NewImprovePromptBuilder(language, instruction string) *ImprovePromptBuilder {
	if instruction == "" {
		instruction = DefaultInstruction
	}
	return &ImprovePromptBuilder{
		language:    language,
		instruction: instruction,
	}
}

// WithGuidance adds skill instructions rendered into their own section.
func (b *ImprovePromptBuilder) WithGuidance(guidance string) *ImprovePromptBuilder {
	b.guidance = guidance
	return b
}

// Build renders the prompt for one improvement round.
func (b *ImprovePromptBuilder) Build(source string, iteration, iterations int) string {
	var sb strings.Builder

	sb.WriteString(b.instruction)
	sb.WriteString("\n\n")

	if iterations > 1 {
		sb.WriteString(fmt.Sprintf("This is improvement round %d of %d; the input may already contain earlier rounds' improvements.\n\n", iteration, iterations))
	}

	// Source code
	sb.WriteString("## Source Code\n")
	sb.WriteString("```")
	sb.WriteString(b.language)
	sb.WriteString("\n")
	sb.WriteString(source)
	if !strings.HasSuffix(source, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("```\n\n")

	if b.guidance != "" {
		sb.WriteString("## Guidance\n")
		sb.WriteString(b.guidance)
		sb.WriteString("\n\n")
	}

	// Requirements
	sb.WriteString("## Requirements\n")
	sb.WriteString("- Preserve the observable behavior; all existing tests must keep passing.\n")
	sb.WriteString("- Keep the public API: exported/module-level names must not change.\n")
	sb.WriteString("- Do not add new dependencies.\n\n")

	// Output format
	sb.WriteString("## Output\n")
	sb.WriteString("Return ONLY the improved code, no explanations or markdown formatting.\n")

	return sb.String()
}
