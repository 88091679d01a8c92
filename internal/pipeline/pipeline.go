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

// Package pipeline sequences the steps of one improvement run. Steps run in
// listed order and nothing runs after the first aborted failure; a skipped
// step (nothing to commit, push disabled) is recorded without failing the
// run.
package pipeline

import (
	"context"
	"fmt"
	"time"
)

// Pipeline runs steps in sequence with retries driven by the Agent.
type Pipeline struct {
	Steps []Step
	Agent Agent
}

// Run executes all steps. For each failed step it may retry based on
// Agent.OnStepFailure; the first aborted failure stops the run.
func (p *Pipeline) Run(ctx context.Context, st *State) error {
	if p.Agent == nil {
		p.Agent = &DefaultAgent{MaxRetry: 1}
	}
	if st.StartedAt.IsZero() {
		st.StartedAt = time.Now()
	}
	for _, step := range p.Steps {
		if err := p.runStep(ctx, step, st); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) runStep(ctx context.Context, step Step, st *State) error {
	attempt := 0
	for {
		attempt++
		result, err := step.Run(ctx, st)

		if err == nil && result != nil && result.Status != StepFailed {
			if result.Snapshot != nil {
				applySnapshot(st, result.Snapshot)
			}
			st.History = append(st.History, StepRecord{
				StepName: step.Name(),
				Attempt:  attempt,
				Status:   result.Status,
				Time:     time.Now(),
			})
			return nil
		}

		// Build result for Agent if step returned nil result
		if result == nil {
			result = &StepResult{Status: StepFailed, Recoverable: true}
		}
		if result.Status != StepFailed {
			result = &StepResult{Status: StepFailed, Recoverable: false}
		}

		st.History = append(st.History, StepRecord{
			StepName: step.Name(),
			Attempt:  attempt,
			Status:   result.Status,
			Error:    errStr(err),
			Time:     time.Now(),
		})

		decision := p.Agent.OnStepFailure(ctx, step, st, result, attempt)
		switch decision {
		case DecisionRetry:
			continue
		case DecisionAbort:
			if err != nil {
				return fmt.Errorf("step %s: %w", step.Name(), err)
			}
			return fmt.Errorf("step %s failed (abort)", step.Name())
		}
	}
}

// applySnapshot updates state from a step-produced snapshot by kind.
func applySnapshot(st *State, snap *Snapshot) {
	if st == nil || snap == nil {
		return
	}
	switch snap.Kind {
	case SnapshotTreeBefore:
		st.TreeBefore = snap
	case SnapshotTreeAfter:
		st.TreeAfter = snap
	}
}

func errStr(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
