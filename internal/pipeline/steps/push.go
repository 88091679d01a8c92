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
	"os"

	"github.com/mejora-dev/mejora/internal/gitops"
	"github.com/mejora-dev/mejora/internal/log"
	"github.com/mejora-dev/mejora/internal/pipeline"
)

// PushStep pushes the committed branch to the configured remote. The step is
// skipped when pushing is disabled or when the run produced no commit. Push
// failures are not retried: re-pushing the same ref against a rejecting
// remote will not get a different answer.
type PushStep struct{}

// Name implements pipeline.Step.
func (s *PushStep) Name() string { return "push" }

// Run implements pipeline.Step.
func (s *PushStep) Run(ctx context.Context, st *pipeline.State) (*pipeline.StepResult, error) {
	spec := st.Workflow.Push
	if !spec.PushEnabled() {
		log.Info("push: disabled by workflow")
		return &pipeline.StepResult{Status: pipeline.StepSkipped}, nil
	}
	if st.CommitHash == "" {
		log.Info("push: no commit to push")
		return &pipeline.StepResult{Status: pipeline.StepSkipped}, nil
	}

	repo, err := gitops.Open(st.WorkDir)
	if err != nil {
		return failErr(false, err)
	}
	token := os.Getenv(spec.TokenEnv)
	if err := repo.Push(ctx, spec.Remote, token); err != nil {
		return failErr(false, err)
	}
	log.Info("push: %s to %s", st.CommitHash[:8], spec.Remote)
	return &pipeline.StepResult{Status: pipeline.StepOK}, nil
}
