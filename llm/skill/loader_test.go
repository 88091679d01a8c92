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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Parse(t *testing.T) {
	data := []byte(`---
name: docstrings
description: Add docstrings everywhere.
languages: [python, go]
---

Write a docstring for every public symbol.
`)
	sk, err := NewLoader().Parse(data, SourceLocal, "skills/docstrings.md")
	require.NoError(t, err)
	assert.Equal(t, "docstrings", sk.Name)
	assert.Equal(t, []string{"python", "go"}, sk.Languages)
	assert.Equal(t, "Write a docstring for every public symbol.", sk.Instructions)

	assert.True(t, sk.AppliesTo("python"))
	assert.False(t, sk.AppliesTo("rust"))
}

func TestLoader_ParseErrors(t *testing.T) {
	l := NewLoader()

	_, err := l.Parse([]byte("just markdown, no frontmatter"), SourceLocal, "x.md")
	assert.Error(t, err)

	_, err = l.Parse([]byte("---\nname: y\ndescription: d\n"), SourceLocal, "y.md")
	assert.Error(t, err, "unclosed frontmatter")

	// Name must match the file base name.
	_, err = l.Parse([]byte("---\nname: other\ndescription: d\n---\nbody"), SourceLocal, "mine.md")
	assert.Error(t, err)

	_, err = l.Parse([]byte("---\nname: mine\n---\nbody"), SourceLocal, "mine.md")
	assert.Error(t, err, "description required")
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("clean-python", "clean-python.md"))
	assert.Error(t, ValidateName("", "x.md"))
	assert.Error(t, ValidateName("Upper", "Upper.md"))
	assert.Error(t, ValidateName("-lead", "-lead.md"))
	assert.Error(t, ValidateName("trail-", "trail-.md"))
	assert.Error(t, ValidateName("a--b", "a--b.md"))
	assert.Error(t, ValidateName("good", "bad.md"))
}
