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

package steps

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mejora-dev/mejora/internal/execrunner"
	"github.com/mejora-dev/mejora/internal/log"
	"github.com/mejora-dev/mejora/internal/pipeline"
)

// SetupStep runs the workflow's setup commands in order. A command whose
// `when` guard evaluates false is skipped; a failing command aborts the run
// unless continue_on_error is set.
type SetupStep struct {
	Runner execrunner.Runner
}

// Name implements pipeline.Step.
func (s *SetupStep) Name() string { return "setup" }

// Run implements pipeline.Step.
func (s *SetupStep) Run(ctx context.Context, st *pipeline.State) (*pipeline.StepResult, error) {
	runner := s.Runner
	if runner == nil {
		runner = execrunner.OSRunner{}
	}
	env := st.Env
	for k, v := range st.Workflow.Env {
		env = append(env, k+"="+v)
	}

	params := st.Params()
	for _, spec := range st.Workflow.Setup {
		ok, err := spec.ShouldRun(params)
		if err != nil {
			return failErr(false, err)
		}
		if !ok {
			log.Info("setup: skip %q (when %q)", spec.DisplayName(), spec.When)
			continue
		}

		log.Info("setup: run %q", spec.DisplayName())
		res, err := runner.Run(ctx, execrunner.Command{
			Line: spec.Run,
			Dir:  st.WorkDir,
			Env:  env,
		})
		if err != nil {
			return failErr(false, errors.Wrapf(err, "setup %q", spec.DisplayName()))
		}
		if !res.Success() {
			if spec.ContinueOnError {
				log.Warn("setup: %q exited %d, continuing: %s",
					spec.DisplayName(), res.ExitCode, res.Stderr)
				continue
			}
			return failErr(false, errors.Errorf("setup %q exited %d: %s",
				spec.DisplayName(), res.ExitCode, res.Stderr))
		}
	}
	return &pipeline.StepResult{Status: pipeline.StepOK}, nil
}
