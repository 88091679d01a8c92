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

package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleWorkflow = `
name: improve
on:
  push:
    branches: ["main", "release/*"]
  pull_request: {}
env:
  PIP_INDEX: "https://pypi.org/simple"
setup:
  - name: install deps
    run: pip install -r requirements.txt
  - name: main only
    run: make lint
    when: branch == "main"
improve:
  targets: ["codigo.py"]
  test_command: pytest tests.py
  linters: ["pylint", "flake8"]
commit:
  author_name: mejora-bot
push:
  remote: origin
`

func TestParse_Defaults(t *testing.T) {
	wf, err := Parse([]byte(sampleWorkflow))
	require.NoError(t, err)

	assert.Equal(t, DefaultIterations, wf.Improve.Iterations)
	require.NotNil(t, wf.Improve.Temperature)
	assert.Equal(t, DefaultTemperature, *wf.Improve.Temperature)
	assert.Equal(t, DefaultMaxTokens, wf.Improve.MaxTokens)
	assert.Equal(t, DefaultCommitMessage, wf.Commit.Message)
	assert.Equal(t, DefaultRemote, wf.Push.Remote)
	assert.Equal(t, DefaultTokenEnv, wf.Push.TokenEnv)
	assert.True(t, wf.Push.PushEnabled())
}

func TestParse_DefaultsFillOnlyUnset(t *testing.T) {
	wf, err := Parse([]byte(`
improve:
  targets: ["a.go"]
  iterations: 7
  max_tokens: 1024
commit:
  message: "custom message"
`))
	require.NoError(t, err)
	assert.Equal(t, 7, wf.Improve.Iterations)
	assert.Equal(t, 1024, wf.Improve.MaxTokens)
	assert.Equal(t, "custom message", wf.Commit.Message)
}

func TestParse_UnknownKeyRejected(t *testing.T) {
	_, err := Parse([]byte(`
improve:
  targets: ["a.go"]
  iterationz: 5
`))
	require.Error(t, err)
}

func TestParse_NoTargets(t *testing.T) {
	_, err := Parse([]byte(`
name: empty
improve:
  targets: []
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "targets")
}

func TestParse_BadWhenExpression(t *testing.T) {
	_, err := Parse([]byte(`
setup:
  - run: make
    when: "branch == "
improve:
  targets: ["a.go"]
`))
	require.Error(t, err)
}

func TestCommandSpec_ShouldRun(t *testing.T) {
	params := map[string]any{
		"branch":  "main",
		"event":   "push",
		"repo":    "acme/widgets",
		"changed": false,
	}

	tests := []struct {
		name string
		when string
		want bool
	}{
		{"empty always runs", "", true},
		{"branch match", `branch == "main"`, true},
		{"branch mismatch", `branch == "dev"`, false},
		{"event check", `event == "push" && !changed`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CommandSpec{When: tt.when}.ShouldRun(params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := CommandSpec{When: `branch + 1`}.ShouldRun(params)
	assert.Error(t, err)
}

func TestMatches(t *testing.T) {
	wf, err := Parse([]byte(sampleWorkflow))
	require.NoError(t, err)

	assert.True(t, wf.Matches(Event{Kind: EventPush, Branch: "main"}))
	assert.True(t, wf.Matches(Event{Kind: EventPush, Branch: "release/1.2"}))
	assert.False(t, wf.Matches(Event{Kind: EventPush, Branch: "dev"}))
	// pull_request trigger has no branch filter: everything matches.
	assert.True(t, wf.Matches(Event{Kind: EventPullRequest, Branch: "dev"}))
	assert.False(t, wf.Matches(Event{Kind: "tag", Branch: "main"}))
}

func TestMatches_NoTrigger(t *testing.T) {
	wf, err := Parse([]byte(`
improve:
  targets: ["a.go"]
`))
	require.NoError(t, err)
	assert.False(t, wf.HasTriggers())
	assert.False(t, wf.Matches(Event{Kind: EventPush, Branch: "main"}))
}

func TestHasTriggers(t *testing.T) {
	wf, err := Parse([]byte(sampleWorkflow))
	require.NoError(t, err)
	assert.True(t, wf.HasTriggers())
}

func TestApplyOverrides(t *testing.T) {
	wf, err := Parse([]byte(sampleWorkflow))
	require.NoError(t, err)

	err = wf.ApplyOverrides(map[string]string{
		"improve.iterations": "5",
		"improve.keep_candidates": "true",
		"commit.message":     "tuned",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, wf.Improve.Iterations)
	assert.True(t, wf.Improve.KeepCandidates)
	assert.Equal(t, "tuned", wf.Commit.Message)
}

func TestApplyOverrides_Revalidates(t *testing.T) {
	wf, err := Parse([]byte(sampleWorkflow))
	require.NoError(t, err)
	err = wf.ApplyOverrides(map[string]string{"improve.iterations": "0"})
	require.Error(t, err)
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("MEJORA_TEST_TOKEN", "sekret")
	wf, err := Parse([]byte(`
env:
  TOKEN: ${MEJORA_TEST_TOKEN}
improve:
  targets: ["a.go"]
`))
	require.NoError(t, err)
	assert.Equal(t, "sekret", wf.Env["TOKEN"])
}
