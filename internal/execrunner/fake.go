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

package execrunner

import (
	"context"
	"strings"
	"sync"
)

// FakeRunner is an in-memory Runner for tests. Results are matched by
// command-line prefix; unmatched commands succeed with empty output.
type FakeRunner struct {
	mu      sync.Mutex
	Results map[string]FakeResult
	Calls   []Command
}

type FakeResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

var _ Runner = (*FakeRunner)(nil)

func NewFakeRunner() *FakeRunner {
	return &FakeRunner{Results: map[string]FakeResult{}}
}

// Stub registers a canned result for every command starting with prefix.
func (f *FakeRunner) Stub(prefix string, res FakeResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Results[prefix] = res
}

func (f *FakeRunner) Run(ctx context.Context, cmd Command) (*ExecResult, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, cmd)
	var match FakeResult
	var matched string
	for prefix, res := range f.Results {
		if strings.HasPrefix(cmd.Line, prefix) && len(prefix) > len(matched) {
			match, matched = res, prefix
		}
	}
	f.mu.Unlock()

	if matched == "" {
		return &ExecResult{}, nil
	}
	if match.Err != nil {
		return nil, match.Err
	}
	return &ExecResult{
		Stdout:   match.Stdout,
		Stderr:   match.Stderr,
		ExitCode: match.ExitCode,
	}, nil
}

// CommandLines returns the lines of all recorded calls, in order.
func (f *FakeRunner) CommandLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		lines = append(lines, c.Line)
	}
	return lines
}
