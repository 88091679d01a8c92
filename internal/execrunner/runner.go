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

// Package execrunner runs external commands (test gates, linters, setup
// commands) with captured output. A non-zero exit is reported through
// ExecResult.ExitCode, not as an error; errors are reserved for commands
// that could not run at all.
package execrunner

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/mejora-dev/mejora/internal/log"
)

type Command struct {
	// Line is the command line, split with shell-like quoting rules.
	Line string
	Dir  string
	Env  []string // appended to the process environment
}

type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

func (r *ExecResult) Success() bool {
	return r.ExitCode == 0
}

type Runner interface {
	Run(ctx context.Context, cmd Command) (*ExecResult, error)
}

// OSRunner executes commands via os/exec.
type OSRunner struct{}

var _ Runner = OSRunner{}

func (OSRunner) Run(ctx context.Context, cmd Command) (*ExecResult, error) {
	args, err := SplitCommand(cmd.Line)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, errors.New("empty command")
	}

	c := exec.CommandContext(ctx, args[0], args[1:]...)
	c.Dir = cmd.Dir
	c.Env = append(os.Environ(), cmd.Env...)

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	runErr := c.Run()
	res := &ExecResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else if ctx.Err() != nil {
			return nil, errors.Wrapf(ctx.Err(), "run %q", cmd.Line)
		} else {
			return nil, errors.Wrapf(runErr, "run %q", cmd.Line)
		}
	}

	if res.Stdout != "" {
		log.Debug("%q stdout:\n%s", cmd.Line, res.Stdout)
	}
	if res.Stderr != "" {
		log.Debug("%q stderr:\n%s", cmd.Line, res.Stderr)
	}
	return res, nil
}

// SplitCommand splits a command line into arguments, honoring single and
// double quotes and backslash escapes outside single quotes.
func SplitCommand(line string) ([]string, error) {
	var args []string
	var cur strings.Builder
	var inSingle, inDouble, escaped, started bool

	flush := func() {
		if started {
			args = append(args, cur.String())
			cur.Reset()
			started = false
		}
	}

	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			started = true
			escaped = false
		case r == '\\' && !inSingle:
			escaped = true
			started = true
		case r == '\'' && !inDouble:
			inSingle = !inSingle
			started = true
		case r == '"' && !inSingle:
			inDouble = !inDouble
			started = true
		case (r == ' ' || r == '\t') && !inSingle && !inDouble:
			flush()
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if escaped || inSingle || inDouble {
		return nil, errors.Errorf("unbalanced quoting in command %q", line)
	}
	flush()
	return args, nil
}
