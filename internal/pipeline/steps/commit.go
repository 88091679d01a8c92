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

	"github.com/mejora-dev/mejora/internal/gitops"
	"github.com/mejora-dev/mejora/internal/log"
	"github.com/mejora-dev/mejora/internal/pipeline"
)

// CommitStep stages and commits the improved tree. A clean work tree is not
// a failure: the step is skipped and the run continues.
type CommitStep struct{}

// Name implements pipeline.Step.
func (s *CommitStep) Name() string { return "commit" }

// Run implements pipeline.Step.
func (s *CommitStep) Run(ctx context.Context, st *pipeline.State) (*pipeline.StepResult, error) {
	repo, err := gitops.Open(st.WorkDir)
	if err != nil {
		return failErr(false, err)
	}

	clean, err := repo.IsClean()
	if err != nil {
		return failErr(false, err)
	}
	if clean {
		log.Info("commit: nothing to commit")
		st.Changed = false
		return &pipeline.StepResult{Status: pipeline.StepSkipped}, nil
	}

	spec := st.Workflow.Commit
	hash, err := repo.CommitAll(spec.Message, spec.AuthorName, spec.AuthorEmail, spec.Add)
	if err != nil {
		if errors.Is(err, gitops.ErrNothingToCommit) {
			log.Info("commit: nothing to commit")
			st.Changed = false
			return &pipeline.StepResult{Status: pipeline.StepSkipped}, nil
		}
		return failErr(false, err)
	}

	st.Changed = true
	st.CommitHash = hash
	log.Info("commit: %s %q", hash[:8], spec.Message)
	return &pipeline.StepResult{Status: pipeline.StepOK}, nil
}
