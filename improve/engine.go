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

// Package improve is the code-improvement engine: for each target it gates
// on the project's tests, iterates LLM improvement rounds, validates the
// candidate's syntax, lints it, applies it and reverts when the gate fails
// on the improved code.
package improve

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/mod/modfile"
	"golang.org/x/tools/imports"

	"github.com/mejora-dev/mejora/improve/syntax"
	"github.com/mejora-dev/mejora/internal/execrunner"
	"github.com/mejora-dev/mejora/internal/log"
	"github.com/mejora-dev/mejora/internal/utils"
)

var (
	// ErrGateFailed means the ORIGINAL code does not pass its own tests;
	// nothing is modified in that case.
	ErrGateFailed = errors.New("test gate failed on original code")
	// ErrEmptyResponse marks an LLM round that produced no code.
	ErrEmptyResponse = errors.New("empty LLM response")
)

// GenerateRequest is one improvement round sent to the LLM callback.
type GenerateRequest struct {
	Path       string // target path, relative to the work dir
	Language   string // grammar name for the prompt tag, may be empty
	Source     string // current code (previous rounds included)
	Iteration  int    // 1-based round counter
	Iterations int
}

// Generator produces the improved source for a request. The callback owns
// prompt building and response cleaning; the engine only checks that the
// result is non-empty.
type Generator func(ctx context.Context, req *GenerateRequest) (string, error)

type Scaffold struct {
	Path    string
	Content string
}

type Options struct {
	WorkDir        string
	Targets        []string
	Iterations     int
	TestCommand    string
	Linters        []string
	Scaffolds      []Scaffold
	CandidateDir   string
	KeepCandidates bool
	Generator      Generator
	Runner         execrunner.Runner
	// Progress, if set, is called before each improvement round.
	Progress func(target string, iteration int)
}

type TargetResult struct {
	Path         string    `json:"path"`
	Applied      bool      `json:"applied"`
	Reverted     bool      `json:"reverted"`
	Rejected     bool      `json:"rejected"` // candidate failed the syntax check
	Iterations   int       `json:"iterations"`
	Diff         DiffStats `json:"diff"`
	LintFindings []string  `json:"lint_findings,omitempty"`
}

type Result struct {
	Targets   []TargetResult `json:"targets"`
	Scaffolds []string       `json:"scaffolds,omitempty"` // scaffold paths written or updated
	Changed   bool           `json:"changed"`
}

type Engine struct {
	opts Options
}

func NewEngine(opts Options) (*Engine, error) {
	if opts.Generator == nil {
		return nil, errors.New("improve: Generator is required")
	}
	if len(opts.Targets) == 0 {
		return nil, errors.New("improve: no targets")
	}
	if opts.WorkDir == "" {
		opts.WorkDir = "."
	}
	for _, t := range opts.Targets {
		if filepath.IsAbs(t) || strings.HasPrefix(filepath.Clean(t), "..") {
			return nil, errors.Errorf("improve: target %q is outside the work dir", t)
		}
	}
	for _, sc := range opts.Scaffolds {
		if filepath.IsAbs(sc.Path) || strings.HasPrefix(filepath.Clean(sc.Path), "..") {
			return nil, errors.Errorf("improve: scaffold %q is outside the work dir", sc.Path)
		}
	}
	if opts.Iterations == 0 {
		opts.Iterations = 3
	}
	if opts.Runner == nil {
		opts.Runner = execrunner.OSRunner{}
	}
	if opts.CandidateDir == "" {
		opts.CandidateDir = filepath.Join(opts.WorkDir, ".mejora", "candidates")
	}
	if opts.TestCommand == "" {
		opts.TestCommand = detectGate(opts.WorkDir)
	}
	return &Engine{opts: opts}, nil
}

// detectGate picks a default test command from the project layout:
// a valid go.mod means `go test ./...`, anything else means no gate.
func detectGate(workDir string) string {
	data, err := os.ReadFile(filepath.Join(workDir, "go.mod"))
	if err != nil {
		return ""
	}
	if modfile.ModulePath(data) == "" {
		return ""
	}
	return "go test ./..."
}

// Run improves every target in order, then writes scaffolds and logs the
// project tree. Changed is true iff at least one target was applied and
// kept, or a scaffold was created or updated.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	res := &Result{}

	for _, target := range e.opts.Targets {
		tr, err := e.improveTarget(ctx, target)
		if err != nil {
			return nil, err
		}
		res.Targets = append(res.Targets, *tr)
		if tr.Applied {
			res.Changed = true
		}
	}

	for _, sc := range e.opts.Scaffolds {
		written, err := e.writeScaffold(sc)
		if err != nil {
			return nil, err
		}
		if written {
			res.Scaffolds = append(res.Scaffolds, sc.Path)
			res.Changed = true
		}
	}

	e.logTree()

	if !e.opts.KeepCandidates {
		if err := os.RemoveAll(e.opts.CandidateDir); err != nil {
			log.Warn("remove candidate dir: %v", err)
		}
	}
	return res, nil
}

func (e *Engine) improveTarget(ctx context.Context, target string) (*TargetResult, error) {
	absTarget := filepath.Join(e.opts.WorkDir, target)
	original, err := os.ReadFile(absTarget)
	if err != nil {
		return nil, errors.Wrapf(err, "load target %s", target)
	}

	passed, output, err := e.RunGate(ctx)
	if err != nil {
		return nil, err
	}
	if !passed {
		log.Info("original code does not pass the gate, leaving %s untouched", target)
		return nil, errors.Wrapf(ErrGateFailed, "%s", firstLines(output, 20))
	}
	log.Info("original code passes the gate")

	code := string(original)
	language := syntax.LanguageName(target)
	for i := 1; i <= e.opts.Iterations; i++ {
		if e.opts.Progress != nil {
			e.opts.Progress(target, i)
		}
		suggestion, err := e.opts.Generator(ctx, &GenerateRequest{
			Path:       target,
			Language:   language,
			Source:     code,
			Iteration:  i,
			Iterations: e.opts.Iterations,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "improve %s round %d", target, i)
		}
		if strings.TrimSpace(suggestion) == "" {
			return nil, errors.Wrapf(ErrEmptyResponse, "improve %s round %d", target, i)
		}
		log.Debug("round %d improved code for %s:\n%s", i, target, suggestion)
		code = suggestion
	}

	tr, err := e.applyCandidate(ctx, target, original, []byte(code))
	if err != nil {
		return nil, err
	}
	tr.Iterations = e.opts.Iterations
	return tr, nil
}

// applyCandidate runs the non-LLM half of an improvement: syntax check,
// candidate write, diff, lint, apply and gate-or-revert.
func (e *Engine) applyCandidate(ctx context.Context, target string, original, candidate []byte) (*TargetResult, error) {
	tr := &TargetResult{Path: target}
	absTarget := filepath.Join(e.opts.WorkDir, target)

	if bytes.Equal(bytes.TrimSpace(candidate), bytes.TrimSpace(original)) {
		log.Info("no changes suggested for %s", target)
		return tr, nil
	}

	if err := syntax.Check(ctx, target, candidate); err != nil {
		if errors.Is(err, syntax.ErrSyntax) {
			log.Warn("candidate for %s rejected: %v", target, err)
			tr.Rejected = true
			return tr, nil
		}
		return nil, err
	}

	candidate = e.formatCandidate(target, candidate)

	candidatePath := e.candidatePath(target)
	if err := utils.MustWriteFile(candidatePath, candidate); err != nil {
		return nil, err
	}

	diffs := SemanticDiff(string(original), string(candidate))
	tr.Diff = Stats(diffs)
	log.Info("diff for %s: +%d -%d characters", target, tr.Diff.Insertions, tr.Diff.Deletions)
	log.Debug("diff for %s:\n%s", target, FormatDiff(diffs))

	tr.LintFindings = e.lint(ctx, candidatePath)

	if err := os.WriteFile(absTarget, candidate, 0o644); err != nil {
		return nil, errors.Wrapf(err, "apply candidate to %s", target)
	}

	passed, output, err := e.RunGate(ctx)
	if err != nil {
		return nil, err
	}
	if !passed {
		log.Info("improved code does not pass the gate, restoring original %s", target)
		log.Debug("gate output:\n%s", output)
		if err := os.WriteFile(absTarget, original, 0o644); err != nil {
			return nil, errors.Wrapf(err, "restore original %s", target)
		}
		tr.Reverted = true
		return tr, nil
	}

	log.Info("improved code passes the gate and has been applied to %s", target)
	tr.Applied = true
	return tr, nil
}

// ApplyCandidate validates and applies an externally produced candidate
// (agent and MCP surfaces) with the same gate-or-revert semantics as a
// full engine run.
func (e *Engine) ApplyCandidate(ctx context.Context, target string, candidate []byte) (*TargetResult, error) {
	absTarget := filepath.Join(e.opts.WorkDir, target)
	original, err := os.ReadFile(absTarget)
	if err != nil {
		return nil, errors.Wrapf(err, "load target %s", target)
	}
	return e.applyCandidate(ctx, target, original, candidate)
}

// RunGate runs the configured test command in the work dir. An empty test
// command skips the gate and counts as passing.
func (e *Engine) RunGate(ctx context.Context) (passed bool, output string, err error) {
	if e.opts.TestCommand == "" {
		log.Info("no test command configured, skipping gate")
		return true, "", nil
	}
	res, err := e.opts.Runner.Run(ctx, execrunner.Command{
		Line: e.opts.TestCommand,
		Dir:  e.opts.WorkDir,
	})
	if err != nil {
		return false, "", errors.Wrapf(err, "run gate %q", e.opts.TestCommand)
	}
	return res.Success(), res.Stdout + res.Stderr, nil
}

// formatCandidate post-formats Go candidates with goimports; other
// languages pass through. Formatting failures keep the unformatted code.
func (e *Engine) formatCandidate(target string, candidate []byte) []byte {
	if filepath.Ext(target) != ".go" {
		return candidate
	}
	formatted, err := imports.Process(target, candidate, nil)
	if err != nil {
		log.Warn("goimports on candidate for %s: %v", target, err)
		return candidate
	}
	return formatted
}

func (e *Engine) lint(ctx context.Context, candidatePath string) []string {
	var findings []string
	for _, linter := range e.opts.Linters {
		res, err := e.opts.Runner.Run(ctx, execrunner.Command{
			Line: linter + " " + candidatePath,
			Dir:  e.opts.WorkDir,
		})
		if err != nil {
			log.Error("run linter %s: %v", linter, err)
			continue
		}
		if !res.Success() {
			finding := strings.TrimSpace(res.Stdout + res.Stderr)
			findings = append(findings, linter+": "+finding)
			// Lint findings are warnings only, they never fail the run.
			log.Warn("issues found by %s:\n%s", linter, finding)
		}
	}
	return findings
}

func (e *Engine) writeScaffold(sc Scaffold) (bool, error) {
	path := filepath.Join(e.opts.WorkDir, sc.Path)
	if existing, err := os.ReadFile(path); err == nil && string(existing) == sc.Content {
		return false, nil
	}
	if err := utils.MustWriteFile(path, []byte(sc.Content)); err != nil {
		return false, err
	}
	log.Info("scaffold written: %s", sc.Path)
	return true, nil
}

func (e *Engine) candidatePath(target string) string {
	base := filepath.Base(target)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext) + ".improved" + ext
	return filepath.Join(e.opts.CandidateDir, name)
}

// logTree walks the project tree into the debug log, skipping VCS and
// engine state dirs.
func (e *Engine) logTree() {
	log.Debug("files in the project:")
	_ = filepath.WalkDir(e.opts.WorkDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := d.Name()
		if d.IsDir() && (name == ".git" || name == ".mejora") {
			return filepath.SkipDir
		}
		log.Debug("  %s", path)
		return nil
	})
}

func firstLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}
