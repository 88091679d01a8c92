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
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// SkillExt is the file extension of a skill definition; one file per
	// skill, frontmatter plus markdown instructions.
	SkillExt = ".md"

	frontMatterDelimiter = "---"
)

// Loader parses skill files.
type Loader struct{}

func NewLoader() *Loader {
	return &Loader{}
}

// Parse parses a skill definition: YAML frontmatter (name, description,
// languages) followed by the markdown instruction body.
func (l *Loader) Parse(data []byte, source Source, path string) (*Skill, error) {
	front, body, err := extractFrontmatter(string(data))
	if err != nil {
		return nil, errors.Wrapf(err, "parse skill %s", path)
	}

	var meta struct {
		Name        string   `yaml:"name"`
		Description string   `yaml:"description"`
		Languages   []string `yaml:"languages"`
	}
	if err := yaml.Unmarshal([]byte(front), &meta); err != nil {
		return nil, errors.Wrapf(err, "parse skill frontmatter %s", path)
	}

	if err := ValidateName(meta.Name, path); err != nil {
		return nil, err
	}
	if err := ValidateDescription(meta.Description); err != nil {
		return nil, errors.Wrapf(err, "skill %s", meta.Name)
	}

	return &Skill{
		Name:         meta.Name,
		Description:  meta.Description,
		Languages:    meta.Languages,
		Instructions: strings.TrimSpace(body),
		Source:       source,
		Path:         path,
	}, nil
}

// LoadFile loads one skill from the filesystem.
func (l *Loader) LoadFile(path string) (*Skill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read skill file %s", path)
	}
	return l.Parse(data, SourceLocal, path)
}

// LoadDir loads every *.md file directly under dir as a skill. Files that
// fail to parse are reported, not fatal.
func (l *Loader) LoadDir(dir string) ([]*Skill, []error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []error{errors.Wrapf(err, "read skills dir %s", dir)}
	}

	var skills []*Skill
	var errs []error
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != SkillExt {
			continue
		}
		sk, err := l.LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		skills = append(skills, sk)
	}
	return skills, errs
}

// extractFrontmatter splits a skill file into its YAML frontmatter and the
// markdown body. The file must start with a `---` line and close the
// frontmatter with another.
func extractFrontmatter(content string) (front, body string, err error) {
	content = strings.TrimSpace(content)
	lines := strings.Split(content, "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[0]) != frontMatterDelimiter {
		return "", "", errors.New("no frontmatter found (expected '---' at start)")
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontMatterDelimiter {
			front = strings.Join(lines[1:i], "\n")
			body = strings.Join(lines[i+1:], "\n")
			return front, body, nil
		}
	}
	return "", "", errors.New("frontmatter not closed")
}
