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

package syntax

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_ValidPython(t *testing.T) {
	err := Check(context.Background(), "codigo.py", []byte("def suma(a, b):\n    return a + b\n"))
	assert.NoError(t, err)
}

func TestCheck_InvalidPython(t *testing.T) {
	err := Check(context.Background(), "codigo.py", []byte("def suma(a, b:\n    return a +\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSyntax)
	assert.Contains(t, err.Error(), "codigo.py:")
}

func TestCheck_ValidGo(t *testing.T) {
	src := []byte("package main\n\nfunc suma(a, b int) int {\n\treturn a + b\n}\n")
	assert.NoError(t, Check(context.Background(), "main.go", src))
}

func TestCheck_InvalidGo(t *testing.T) {
	err := Check(context.Background(), "main.go", []byte("package main\n\nfunc suma( {\n"))
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestCheck_UnknownExtensionPasses(t *testing.T) {
	assert.NoError(t, Check(context.Background(), "notes.txt", []byte("not code at all {{{")))
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "python", LanguageName("a/b/codigo.py"))
	assert.Equal(t, "go", LanguageName("main.go"))
	assert.Equal(t, "javascript", LanguageName("app.js"))
	assert.Equal(t, "", LanguageName("README.md"))
}
