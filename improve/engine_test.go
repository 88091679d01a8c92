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

package improve

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mejora-dev/mejora/internal/execrunner"
)

const originalCode = "def suma(a, b):\n    return a + b\n"
const improvedCode = "def suma(a, b):\n    \"\"\"Suma dos numeros.\"\"\"\n    return a + b\n"

func staticGenerator(code string) Generator {
	return func(ctx context.Context, req *GenerateRequest) (string, error) {
		return code, nil
	}
}

func setupWorkDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "codigo.py"), []byte(originalCode), 0o644))
	return dir
}

func newTestEngine(t *testing.T, dir string, gen Generator, runner execrunner.Runner) *Engine {
	t.Helper()
	e, err := NewEngine(Options{
		WorkDir:     dir,
		Targets:     []string{"codigo.py"},
		Iterations:  2,
		TestCommand: "pytest tests.py",
		Generator:   gen,
		Runner:      runner,
	})
	require.NoError(t, err)
	return e
}

func TestEngine_AppliesImprovement(t *testing.T) {
	dir := setupWorkDir(t)
	runner := execrunner.NewFakeRunner() // gate always passes

	var rounds []int
	gen := func(ctx context.Context, req *GenerateRequest) (string, error) {
		rounds = append(rounds, req.Iteration)
		assert.Equal(t, "python", req.Language)
		return improvedCode, nil
	}

	e := newTestEngine(t, dir, gen, runner)
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Changed)
	require.Len(t, res.Targets, 1)
	tr := res.Targets[0]
	assert.True(t, tr.Applied)
	assert.False(t, tr.Reverted)
	assert.Equal(t, []int{1, 2}, rounds)
	assert.False(t, tr.Diff.Empty())

	got, err := os.ReadFile(filepath.Join(dir, "codigo.py"))
	require.NoError(t, err)
	assert.Equal(t, improvedCode, string(got))
}

func TestEngine_GateFailsOnOriginal(t *testing.T) {
	dir := setupWorkDir(t)
	runner := execrunner.NewFakeRunner()
	runner.Stub("pytest", execrunner.FakeResult{ExitCode: 1, Stdout: "1 failed"})

	e := newTestEngine(t, dir, staticGenerator(improvedCode), runner)
	_, err := e.Run(context.Background())
	require.ErrorIs(t, err, ErrGateFailed)

	// Nothing was modified.
	got, _ := os.ReadFile(filepath.Join(dir, "codigo.py"))
	assert.Equal(t, originalCode, string(got))
}

func TestEngine_RevertsWhenImprovedCodeFailsGate(t *testing.T) {
	dir := setupWorkDir(t)
	runner := execrunner.NewFakeRunner()

	// First gate run passes, second (after apply) fails.
	calls := 0
	gen := staticGenerator(improvedCode)
	gateRunner := runnerFunc(func(ctx context.Context, cmd execrunner.Command) (*execrunner.ExecResult, error) {
		if cmd.Line == "pytest tests.py" {
			calls++
			if calls > 1 {
				return &execrunner.ExecResult{ExitCode: 1, Stdout: "regression"}, nil
			}
		}
		return runner.Run(ctx, cmd)
	})

	e := newTestEngine(t, dir, gen, gateRunner)
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Targets, 1)
	tr := res.Targets[0]
	assert.False(t, tr.Applied)
	assert.True(t, tr.Reverted)
	assert.False(t, res.Changed)

	got, _ := os.ReadFile(filepath.Join(dir, "codigo.py"))
	assert.Equal(t, originalCode, string(got))
}

type runnerFunc func(ctx context.Context, cmd execrunner.Command) (*execrunner.ExecResult, error)

func (f runnerFunc) Run(ctx context.Context, cmd execrunner.Command) (*execrunner.ExecResult, error) {
	return f(ctx, cmd)
}

func TestEngine_RejectsSyntaxError(t *testing.T) {
	dir := setupWorkDir(t)
	runner := execrunner.NewFakeRunner()

	e := newTestEngine(t, dir, staticGenerator("def suma(a, b:\n    return\n"), runner)
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Targets, 1)
	tr := res.Targets[0]
	assert.True(t, tr.Rejected)
	assert.False(t, tr.Applied)
	assert.False(t, res.Changed)

	got, _ := os.ReadFile(filepath.Join(dir, "codigo.py"))
	assert.Equal(t, originalCode, string(got))
}

func TestEngine_NoChangeSuggested(t *testing.T) {
	dir := setupWorkDir(t)
	e := newTestEngine(t, dir, staticGenerator(originalCode), execrunner.NewFakeRunner())

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.False(t, res.Targets[0].Applied)
}

func TestEngine_EmptyResponse(t *testing.T) {
	dir := setupWorkDir(t)
	e := newTestEngine(t, dir, staticGenerator("  \n"), execrunner.NewFakeRunner())

	_, err := e.Run(context.Background())
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestEngine_MissingTarget(t *testing.T) {
	dir := t.TempDir()
	e, err := NewEngine(Options{
		WorkDir:   dir,
		Targets:   []string{"missing.py"},
		Generator: staticGenerator(improvedCode),
		Runner:    execrunner.NewFakeRunner(),
	})
	require.NoError(t, err)
	_, err = e.Run(context.Background())
	assert.Error(t, err)
}

func TestEngine_LintFindingsAreWarningsOnly(t *testing.T) {
	dir := setupWorkDir(t)
	runner := execrunner.NewFakeRunner()
	runner.Stub("pylint", execrunner.FakeResult{ExitCode: 4, Stdout: "C0114 missing docstring"})

	e, err := NewEngine(Options{
		WorkDir:     dir,
		Targets:     []string{"codigo.py"},
		Iterations:  1,
		TestCommand: "pytest tests.py",
		Linters:     []string{"pylint", "flake8"},
		Generator:   staticGenerator(improvedCode),
		Runner:      runner,
	})
	require.NoError(t, err)

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	tr := res.Targets[0]
	assert.True(t, tr.Applied, "lint findings must not fail the run")
	require.Len(t, tr.LintFindings, 1)
	assert.Contains(t, tr.LintFindings[0], "pylint")
}

func TestEngine_Scaffolds(t *testing.T) {
	dir := setupWorkDir(t)
	scaffold := Scaffold{
		Path:    "nuevas_funciones/resta.py",
		Content: "def resta(a, b):\n    return a - b\n",
	}
	e, err := NewEngine(Options{
		WorkDir:   dir,
		Targets:   []string{"codigo.py"},
		Scaffolds: []Scaffold{scaffold},
		Generator: staticGenerator(originalCode), // no code change
		Runner:    execrunner.NewFakeRunner(),
	})
	require.NoError(t, err)

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Changed, "new scaffold counts as a change")
	assert.Equal(t, []string{scaffold.Path}, res.Scaffolds)

	// Second run: scaffold content identical, so nothing changes.
	res, err = e.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Empty(t, res.Scaffolds)
}

func TestEngine_CandidateCleanup(t *testing.T) {
	dir := setupWorkDir(t)
	candidateDir := filepath.Join(dir, ".mejora", "candidates")

	e, err := NewEngine(Options{
		WorkDir:      dir,
		Targets:      []string{"codigo.py"},
		Iterations:   1,
		CandidateDir: candidateDir,
		Generator:    staticGenerator(improvedCode),
		Runner:       execrunner.NewFakeRunner(),
	})
	require.NoError(t, err)
	_, err = e.Run(context.Background())
	require.NoError(t, err)

	_, statErr := os.Stat(candidateDir)
	assert.True(t, os.IsNotExist(statErr))

	// KeepCandidates preserves the candidate file.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "codigo.py"), []byte(originalCode), 0o644))
	e, err = NewEngine(Options{
		WorkDir:        dir,
		Targets:        []string{"codigo.py"},
		Iterations:     1,
		CandidateDir:   candidateDir,
		KeepCandidates: true,
		Generator:      staticGenerator(improvedCode),
		Runner:         execrunner.NewFakeRunner(),
	})
	require.NoError(t, err)
	_, err = e.Run(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(candidateDir, "codigo.improved.py"))
}

func TestNewEngine_Validation(t *testing.T) {
	_, err := NewEngine(Options{Targets: []string{"a.py"}})
	assert.Error(t, err, "generator required")

	_, err = NewEngine(Options{Generator: staticGenerator("x")})
	assert.Error(t, err, "targets required")

	_, err = NewEngine(Options{
		Generator: staticGenerator("x"),
		Targets:   []string{"/etc/passwd"},
	})
	assert.Error(t, err, "absolute target rejected")

	_, err = NewEngine(Options{
		Generator: staticGenerator("x"),
		Targets:   []string{"../outside.py"},
	})
	assert.Error(t, err, "escaping target rejected")

	_, err = NewEngine(Options{
		Generator: staticGenerator("x"),
		Targets:   []string{"a.py"},
		Scaffolds: []Scaffold{{Path: "../evil.py", Content: "x = 1\n"}},
	})
	assert.Error(t, err, "escaping scaffold rejected")

	_, err = NewEngine(Options{
		Generator: staticGenerator("x"),
		Targets:   []string{"a.py"},
		Scaffolds: []Scaffold{{Path: "/tmp/evil.py", Content: "x = 1\n"}},
	})
	assert.Error(t, err, "absolute scaffold rejected")
}

func TestDetectGate(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, "", detectGate(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/demo\n\ngo 1.24\n"), 0o644))
	assert.Equal(t, "go test ./...", detectGate(dir))
}

func TestEngine_ApplyCandidate(t *testing.T) {
	dir := setupWorkDir(t)
	e := newTestEngine(t, dir, staticGenerator(improvedCode), execrunner.NewFakeRunner())

	tr, err := e.ApplyCandidate(context.Background(), "codigo.py", []byte(improvedCode))
	require.NoError(t, err)
	assert.True(t, tr.Applied)

	got, _ := os.ReadFile(filepath.Join(dir, "codigo.py"))
	assert.Equal(t, improvedCode, string(got))
}
