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

package skill

import (
	"fmt"
	"html"
	"strings"
)

// Guidance renders the skills' instruction blocks for the improvement
// prompt, one markdown section per skill.
func Guidance(skills []*Skill) string {
	if len(skills) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, sk := range skills {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("### %s\n", sk.Name))
		sb.WriteString(sk.Instructions)
	}
	return sb.String()
}

// AvailableXML renders the <available_skills> block appended to agent
// system prompts.
func AvailableXML(skills []*Skill) string {
	if len(skills) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("<available_skills>\n")
	for _, sk := range skills {
		sb.WriteString("  <skill>\n")
		sb.WriteString(fmt.Sprintf("    <name>%s</name>\n", html.EscapeString(sk.Name)))
		sb.WriteString(fmt.Sprintf("    <description>%s</description>\n", html.EscapeString(sk.Description)))
		if len(sk.Languages) > 0 {
			sb.WriteString(fmt.Sprintf("    <languages>%s</languages>\n", html.EscapeString(strings.Join(sk.Languages, ", "))))
		}
		sb.WriteString("  </skill>\n")
	}
	sb.WriteString("</available_skills>")
	return sb.String()
}
