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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_LoadEmbedded(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.LoadEmbedded())
	require.NotZero(t, r.Count())

	sk := r.Get("clean-python")
	require.NotNil(t, sk)
	assert.Equal(t, SourceEmbedded, sk.Source)
	assert.Equal(t, []string{"python"}, sk.Languages)
	assert.NotEmpty(t, sk.Instructions)

	assert.Nil(t, r.Get("nope"))
}

func TestRegistry_ForLanguage(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.LoadEmbedded())

	names := func(skills []*Skill) []string {
		var out []string
		for _, sk := range skills {
			out = append(out, sk.Name)
		}
		return out
	}

	py := r.ForLanguage("python")
	assert.Contains(t, names(py), "clean-python")
	assert.Contains(t, names(py), "safe-refactoring") // language-agnostic
	assert.NotContains(t, names(py), "idiomatic-go")

	// Unknown language still gets the language-agnostic skills.
	other := r.ForLanguage("ruby")
	assert.Equal(t, []string{"safe-refactoring"}, names(other))
}

func TestRegistry_LoadDirOverridesEmbedded(t *testing.T) {
	dir := t.TempDir()
	local := "---\nname: clean-python\ndescription: house style\nlanguages: [python]\n---\nUse tabs, actually.\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clean-python.md"), []byte(local), 0o644))
	// A broken file is skipped, not fatal.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.md"), []byte("no frontmatter"), 0o644))

	r := NewRegistry()
	require.NoError(t, r.LoadEmbedded())
	before := r.Count()
	require.NoError(t, r.LoadDir(dir))

	assert.Equal(t, before, r.Count(), "override replaces, broken file skipped")
	sk := r.Get("clean-python")
	require.NotNil(t, sk)
	assert.Equal(t, SourceLocal, sk.Source)
	assert.Equal(t, "Use tabs, actually.", sk.Instructions)
}

func TestGuidance(t *testing.T) {
	assert.Empty(t, Guidance(nil))

	skills := []*Skill{
		{Name: "one", Instructions: "first"},
		{Name: "two", Instructions: "second"},
	}
	got := Guidance(skills)
	assert.Contains(t, got, "### one\nfirst")
	assert.Contains(t, got, "### two\nsecond")
}

func TestAvailableXML(t *testing.T) {
	assert.Empty(t, AvailableXML(nil))

	got := AvailableXML([]*Skill{{
		Name:        "clean-python",
		Description: "PEP 8 <& friends>",
		Languages:   []string{"python"},
	}})
	assert.Contains(t, got, "<available_skills>")
	assert.Contains(t, got, "<name>clean-python</name>")
	assert.Contains(t, got, "PEP 8 &lt;&amp; friends&gt;")
	assert.Contains(t, got, "<languages>python</languages>")
}
