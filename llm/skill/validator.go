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
	"path/filepath"
	"strings"
	"unicode"
)

// ValidateName checks the name field: 1-64 characters, lowercase letters,
// digits and hyphens only, no leading/trailing/consecutive hyphens, and it
// must match the file's base name.
func ValidateName(name string, path string) error {
	if len(name) == 0 {
		return fmt.Errorf("skill name cannot be empty")
	}
	if len(name) > 64 {
		return fmt.Errorf("skill name must be 1-64 characters, got %d", len(name))
	}
	for _, r := range name {
		if !unicode.IsLower(r) && !unicode.IsDigit(r) && r != '-' {
			return fmt.Errorf("skill name can only contain lowercase letters, numbers, and hyphens, got '%c'", r)
		}
	}
	if strings.HasPrefix(name, "-") || strings.HasSuffix(name, "-") {
		return fmt.Errorf("skill name cannot start or end with a hyphen")
	}
	if strings.Contains(name, "--") {
		return fmt.Errorf("skill name cannot contain consecutive hyphens")
	}
	base := strings.TrimSuffix(filepath.Base(path), SkillExt)
	if name != base {
		return fmt.Errorf("skill name '%s' must match file name '%s'", name, base)
	}
	return nil
}

// ValidateDescription checks the description field: 1-1024 characters.
func ValidateDescription(desc string) error {
	if len(desc) == 0 {
		return fmt.Errorf("skill description cannot be empty")
	}
	if len(desc) > 1024 {
		return fmt.Errorf("skill description must be 1-1024 characters, got %d", len(desc))
	}
	return nil
}
