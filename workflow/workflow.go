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

// Package workflow holds the declarative definition of an improvement run:
// what triggers it, how the repo is prepared, what the engine improves and
// how the result is committed and pushed. The default file is mejora.yaml
// at the repository root.
package workflow

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultIterations    = 3
	DefaultTemperature   = float32(0.5)
	DefaultMaxTokens     = 300
	DefaultCommitMessage = "Apply code improvements"
	DefaultRemote        = "origin"
	DefaultTokenEnv      = "GITHUB_TOKEN"
)

// Event is the trigger metadata a run is born from. CLI runs synthesize one;
// serve mode parses it from the webhook payload.
type Event struct {
	Kind     string `json:"kind"` // "push" or "pull_request"
	Repo     string `json:"repo"`
	Branch   string `json:"branch"`
	Commit   string `json:"commit"`
	CloneURL string `json:"clone_url,omitempty"`
}

const (
	EventPush        = "push"
	EventPullRequest = "pull_request"
)

type Workflow struct {
	Name     string            `yaml:"name"`
	On       Triggers          `yaml:"on"`
	Env      map[string]string `yaml:"env"`
	Checkout CheckoutSpec      `yaml:"checkout"`
	Setup    []CommandSpec     `yaml:"setup"`
	Improve  ImproveSpec       `yaml:"improve"`
	Commit   CommitSpec        `yaml:"commit"`
	Push     PushSpec          `yaml:"push"`
}

type Triggers struct {
	Push        *BranchFilter `yaml:"push"`
	PullRequest *BranchFilter `yaml:"pull_request"`
}

// BranchFilter restricts a trigger to branches matching any of the globs.
// An empty list matches every branch.
type BranchFilter struct {
	Branches []string `yaml:"branches"`
}

type CheckoutSpec struct {
	URL   string `yaml:"url"`
	Ref   string `yaml:"ref"`
	Depth int    `yaml:"depth"`
	Dir   string `yaml:"dir"`
}

// CommandSpec is one setup command. When is an optional govaluate expression
// over the run context (branch, event, repo, changed); a false result skips
// the command without failing the run.
type CommandSpec struct {
	Name            string `yaml:"name"`
	Run             string `yaml:"run"`
	When            string `yaml:"when"`
	ContinueOnError bool   `yaml:"continue_on_error"`
}

type Scaffold struct {
	Path    string `yaml:"path"`
	Content string `yaml:"content"`
}

type ImproveSpec struct {
	Targets        []string   `yaml:"targets"`
	Iterations     int        `yaml:"iterations"`
	Temperature    *float32   `yaml:"temperature"`
	MaxTokens      int        `yaml:"max_tokens"`
	Instruction    string     `yaml:"instruction"`
	TestCommand    string     `yaml:"test_command"`
	Linters        []string   `yaml:"linters"`
	Scaffolds      []Scaffold `yaml:"scaffolds"`
	KeepCandidates bool       `yaml:"keep_candidates"`
}

type CommitSpec struct {
	Message     string   `yaml:"message"`
	AuthorName  string   `yaml:"author_name"`
	AuthorEmail string   `yaml:"author_email"`
	Add         []string `yaml:"add"`
}

type PushSpec struct {
	Enabled  *bool  `yaml:"enabled"`
	Remote   string `yaml:"remote"`
	TokenEnv string `yaml:"token_env"`
}

// PushEnabled defaults to true when the workflow does not say otherwise.
func (p PushSpec) PushEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// Load reads, parses and validates a workflow file.
func Load(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read workflow %s", path)
	}
	return Parse(data)
}

// Parse decodes a workflow document. Unknown keys are rejected, ${VAR}
// references in env values are expanded from the process environment,
// defaults are filled and the result is validated.
func Parse(data []byte) (*Workflow, error) {
	var wf Workflow
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&wf); err != nil {
		return nil, errors.Wrap(err, "parse workflow")
	}
	for k, v := range wf.Env {
		wf.Env[k] = os.Expand(v, func(name string) string {
			return os.Getenv(name)
		})
	}
	wf.applyDefaults()
	if err := wf.Validate(); err != nil {
		return nil, err
	}
	return &wf, nil
}

// applyDefaults fills only unset fields.
func (w *Workflow) applyDefaults() {
	if w.Improve.Iterations == 0 {
		w.Improve.Iterations = DefaultIterations
	}
	if w.Improve.Temperature == nil {
		t := DefaultTemperature
		w.Improve.Temperature = &t
	}
	if w.Improve.MaxTokens == 0 {
		w.Improve.MaxTokens = DefaultMaxTokens
	}
	if w.Commit.Message == "" {
		w.Commit.Message = DefaultCommitMessage
	}
	if w.Push.Remote == "" {
		w.Push.Remote = DefaultRemote
	}
	if w.Push.TokenEnv == "" {
		w.Push.TokenEnv = DefaultTokenEnv
	}
}

func (w *Workflow) Validate() error {
	if len(w.Improve.Targets) == 0 {
		return errors.New("workflow: improve.targets must not be empty")
	}
	if w.Improve.Iterations < 1 {
		return errors.New("workflow: improve.iterations must be >= 1")
	}
	for i, spec := range w.Setup {
		if strings.TrimSpace(spec.Run) == "" {
			return errors.Errorf("workflow: setup[%d] has no run command", i)
		}
		if spec.When != "" {
			if _, err := govaluate.NewEvaluableExpression(spec.When); err != nil {
				return errors.Wrapf(err, "workflow: setup[%d] when expression", i)
			}
		}
	}
	for i, sc := range w.Improve.Scaffolds {
		if sc.Path == "" {
			return errors.Errorf("workflow: improve.scaffolds[%d] has no path", i)
		}
	}
	return nil
}

// DisplayName is the label used in logs: Name when set, else the command.
func (c CommandSpec) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Run
}

// ShouldRun evaluates the When condition against the run context.
// An empty condition always runs.
func (c CommandSpec) ShouldRun(params map[string]any) (bool, error) {
	if c.When == "" {
		return true, nil
	}
	expr, err := govaluate.NewEvaluableExpression(c.When)
	if err != nil {
		return false, errors.Wrapf(err, "compile when %q", c.When)
	}
	out, err := expr.Evaluate(params)
	if err != nil {
		return false, errors.Wrapf(err, "evaluate when %q", c.When)
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, fmt.Errorf("when %q: result %v is not a bool", c.When, out)
	}
	return ok, nil
}

// HasTriggers reports whether any trigger is configured at all. A workflow
// without an `on:` section matches no event.
func (w *Workflow) HasTriggers() bool {
	return w.On.Push != nil || w.On.PullRequest != nil
}

// Matches reports whether the event should trigger this workflow.
func (w *Workflow) Matches(ev Event) bool {
	switch ev.Kind {
	case EventPush:
		return w.On.Push != nil && w.On.Push.matches(ev.Branch)
	case EventPullRequest:
		return w.On.PullRequest != nil && w.On.PullRequest.matches(ev.Branch)
	}
	return false
}

func (f *BranchFilter) matches(branch string) bool {
	if len(f.Branches) == 0 {
		return true
	}
	for _, pattern := range f.Branches {
		if ok, err := path.Match(pattern, branch); err == nil && ok {
			return true
		}
	}
	return false
}
