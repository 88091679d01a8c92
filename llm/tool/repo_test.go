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

package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mejora-dev/mejora/improve"
	"github.com/mejora-dev/mejora/internal/execrunner"
)

func newRepoTools(t *testing.T) (*RepoTools, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte("x = 1\n"), 0o644))

	engine, err := improve.NewEngine(improve.Options{
		WorkDir: dir,
		Targets: []string{"app.py"},
		Generator: func(ctx context.Context, req *improve.GenerateRequest) (string, error) {
			return req.Source, nil
		},
		Runner: execrunner.NewFakeRunner(),
	})
	require.NoError(t, err)
	return NewRepoTools(RepoToolsOptions{WorkDir: dir, Engine: engine}), dir
}

func TestRepoTools_ReadSource(t *testing.T) {
	ctx := context.Background()
	rt, _ := newRepoTools(t)

	resp, err := rt.ReadSource(ctx, &ReadSourceReq{Path: "app.py"})
	require.NoError(t, err)
	assert.Empty(t, resp.Error)
	assert.Equal(t, "x = 1\n", resp.Content)
	assert.Equal(t, "python", resp.Language)

	resp, err = rt.ReadSource(ctx, &ReadSourceReq{Path: "../etc/passwd"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Error)

	resp, err = rt.ReadSource(ctx, &ReadSourceReq{Path: "missing.py"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Error)
}

func TestRepoTools_ListProjectFiles(t *testing.T) {
	ctx := context.Background()
	rt, dir := newRepoTools(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "HEAD"), []byte("ref"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg", "util.py"), []byte(""), 0o644))

	resp, err := rt.ListProjectFiles(ctx, &ListProjectFilesReq{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"app.py", "pkg/util.py"}, resp.Files)

	resp, err = rt.ListProjectFiles(ctx, &ListProjectFilesReq{Dir: "pkg"})
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg/util.py"}, resp.Files)
}

func TestRepoTools_ProposeImprovement(t *testing.T) {
	ctx := context.Background()
	rt, _ := newRepoTools(t)

	resp, err := rt.ProposeImprovement(ctx, &ProposeImprovementReq{
		Path: "app.py",
		Code: "x = 1\ny = x + 1\n",
	})
	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.Positive(t, resp.Insertions)
	assert.NotEmpty(t, resp.Diff)

	// A candidate that does not parse is rejected without a diff.
	resp, err = rt.ProposeImprovement(ctx, &ProposeImprovementReq{
		Path: "app.py",
		Code: "def broken(:\n",
	})
	require.NoError(t, err)
	assert.False(t, resp.Valid)
	assert.NotEmpty(t, resp.Error)
}

func TestRepoTools_ApplyImprovement(t *testing.T) {
	ctx := context.Background()
	rt, dir := newRepoTools(t)

	resp, err := rt.ApplyImprovement(ctx, &ApplyImprovementReq{
		Path: "app.py",
		Code: "x = 2\n",
	})
	require.NoError(t, err)
	assert.True(t, resp.Applied)

	data, err := os.ReadFile(filepath.Join(dir, "app.py"))
	require.NoError(t, err)
	assert.Equal(t, "x = 2\n", string(data))
}

func TestRepoTools_RunTests(t *testing.T) {
	ctx := context.Background()
	rt, _ := newRepoTools(t)

	// No test command configured means the gate trivially passes.
	resp, err := rt.RunTests(ctx, &RunTestsReq{})
	require.NoError(t, err)
	assert.True(t, resp.Passed)
}

func TestGetJSONSchema(t *testing.T) {
	js := GetJSONSchema(ReadSourceReq{})
	assert.Contains(t, string(js), `"path"`)
	assert.Contains(t, string(js), "relative to the project root")
}

func TestRepoTools_Tools(t *testing.T) {
	rt, _ := newRepoTools(t)
	assert.Len(t, rt.Tools(), 5)
}
