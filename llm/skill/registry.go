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
	"embed"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/mejora-dev/mejora/internal/log"
)

//go:embed embedded/*.md
var embeddedFS embed.FS

// Registry holds the available skills. Local skills override embedded ones
// with the same name.
type Registry struct {
	mu     sync.RWMutex
	skills map[string]*Skill
	loader *Loader
}

func NewRegistry() *Registry {
	return &Registry{
		skills: make(map[string]*Skill),
		loader: NewLoader(),
	}
}

// LoadEmbedded registers the skills shipped with the binary. A parse error
// here is a packaging bug.
func (r *Registry) LoadEmbedded() error {
	entries, err := embeddedFS.ReadDir("embedded")
	if err != nil {
		return errors.Wrap(err, "read embedded skills")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		path := filepath.Join("embedded", e.Name())
		data, err := embeddedFS.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "read embedded skill %s", path)
		}
		sk, err := r.loader.Parse(data, SourceEmbedded, path)
		if err != nil {
			return err
		}
		r.skills[sk.Name] = sk
	}
	return nil
}

// LoadDir registers every skill file under dir. Unparseable files are
// logged and skipped.
func (r *Registry) LoadDir(dir string) error {
	skills, errs := r.loader.LoadDir(dir)
	for _, err := range errs {
		log.Warn("skill: %v", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sk := range skills {
		r.skills[sk.Name] = sk
	}
	log.Info("loaded %d skill(s) from %s", len(skills), dir)
	return nil
}

// Get returns the skill by name, nil when absent.
func (r *Registry) Get(name string) *Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.skills[name]
}

// List returns every registered skill, sorted by name.
func (r *Registry) List() []*Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()

	skills := make([]*Skill, 0, len(r.skills))
	for _, sk := range r.skills {
		skills = append(skills, sk)
	}
	sort.Slice(skills, func(i, j int) bool { return skills[i].Name < skills[j].Name })
	return skills
}

// ForLanguage returns the skills that apply to the given language, sorted
// by name.
func (r *Registry) ForLanguage(language string) []*Skill {
	var matched []*Skill
	for _, sk := range r.List() {
		if sk.AppliesTo(language) {
			matched = append(matched, sk)
		}
	}
	return matched
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.skills)
}
