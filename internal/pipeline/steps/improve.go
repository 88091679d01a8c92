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

	"github.com/mejora-dev/mejora/improve"
	"github.com/mejora-dev/mejora/internal/execrunner"
	"github.com/mejora-dev/mejora/internal/log"
	"github.com/mejora-dev/mejora/internal/pipeline"
)

// ImproveStep drives the improvement engine over the workflow's targets and
// fingerprints the working tree before and after, so later steps know
// whether anything changed. Engine failures are recoverable: a fresh attempt
// may draw a better candidate from the model.
type ImproveStep struct {
	// Generator produces candidate code for one target and iteration.
	Generator improve.Generator
	Runner    execrunner.Runner
}

// Name implements pipeline.Step.
func (s *ImproveStep) Name() string { return "improve" }

// Run implements pipeline.Step.
func (s *ImproveStep) Run(ctx context.Context, st *pipeline.State) (*pipeline.StepResult, error) {
	before, err := pipeline.TreeSnapshot(pipeline.SnapshotTreeBefore, st.WorkDir)
	if err != nil {
		return failErr(false, err)
	}
	st.TreeBefore = before

	spec := st.Workflow.Improve
	scaffolds := make([]improve.Scaffold, 0, len(spec.Scaffolds))
	for _, sc := range spec.Scaffolds {
		scaffolds = append(scaffolds, improve.Scaffold{Path: sc.Path, Content: sc.Content})
	}

	engine, err := improve.NewEngine(improve.Options{
		WorkDir:        st.WorkDir,
		Targets:        spec.Targets,
		Iterations:     spec.Iterations,
		TestCommand:    spec.TestCommand,
		Linters:        spec.Linters,
		Scaffolds:      scaffolds,
		KeepCandidates: spec.KeepCandidates,
		Generator:      s.Generator,
		Runner:         s.Runner,
		Progress: func(target string, iteration int) {
			log.Info("improve: %s iteration %d/%d", target, iteration, spec.Iterations)
		},
	})
	if err != nil {
		return failErr(false, err)
	}

	result, err := engine.Run(ctx)
	if err != nil {
		return &pipeline.StepResult{
			Status:      pipeline.StepFailed,
			Recoverable: true,
		}, err
	}
	st.Improve = result

	after, err := pipeline.TreeSnapshot(pipeline.SnapshotTreeAfter, st.WorkDir)
	if err != nil {
		return failErr(false, err)
	}
	st.Changed = before.Hash != after.Hash
	return &pipeline.StepResult{Status: pipeline.StepOK, Snapshot: after}, nil
}
