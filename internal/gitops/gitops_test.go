// Copyright 2026 Mejora Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gitops

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepoWithFile(t *testing.T) *Repo {
	t.Helper()
	dir := t.TempDir()
	repo, err := Init(dir)
	require.NoError(t, err)
	writeFile(t, dir, "codigo.py", "def suma(a, b):\n    return a + b\n")
	_, err = repo.CommitAll("initial", "tester", "tester@localhost", nil)
	require.NoError(t, err)
	return repo
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestCommitAll_NothingToCommit(t *testing.T) {
	repo := initRepoWithFile(t)

	clean, err := repo.IsClean()
	require.NoError(t, err)
	assert.True(t, clean)

	_, err = repo.CommitAll("empty", "", "", nil)
	assert.ErrorIs(t, err, ErrNothingToCommit)
}

func TestCommitAll_RecordsChange(t *testing.T) {
	repo := initRepoWithFile(t)
	writeFile(t, repo.Dir(), "codigo.py", "def suma(a, b):\n    return b + a\n")

	clean, err := repo.IsClean()
	require.NoError(t, err)
	assert.False(t, clean)

	hash, err := repo.CommitAll("Apply code improvements", "mejora-bot", "bot@mejora.dev", nil)
	require.NoError(t, err)
	assert.Len(t, hash, 40)

	clean, err = repo.IsClean()
	require.NoError(t, err)
	assert.True(t, clean)

	branch, head, err := repo.Head()
	require.NoError(t, err)
	assert.NotEmpty(t, branch)
	assert.Equal(t, hash, head)
}

func TestCommitAll_SelectedPaths(t *testing.T) {
	repo := initRepoWithFile(t)
	writeFile(t, repo.Dir(), "codigo.py", "# changed\n")
	writeFile(t, repo.Dir(), "untracked.txt", "not staged\n")

	_, err := repo.CommitAll("partial", "", "", []string{"codigo.py"})
	require.NoError(t, err)

	// untracked.txt was never staged, so the tree is still dirty.
	clean, err := repo.IsClean()
	require.NoError(t, err)
	assert.False(t, clean)
}

func TestPush_ToLocalBare(t *testing.T) {
	ctx := context.Background()
	repo := initRepoWithFile(t)

	bareDir := t.TempDir()
	_, err := git.PlainInit(bareDir, true)
	require.NoError(t, err)

	require.NoError(t, repo.CreateRemote("origin", bareDir))
	require.NoError(t, repo.Push(ctx, "origin", ""))

	// Second push with no new commits is still success.
	require.NoError(t, repo.Push(ctx, "origin", ""))
}

func TestPush_UnknownRemote(t *testing.T) {
	repo := initRepoWithFile(t)
	err := repo.Push(context.Background(), "nowhere", "")
	assert.Error(t, err)
}

func TestOpen_NotARepo(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.Error(t, err)
}
