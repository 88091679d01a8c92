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

package pipeline

import (
	"context"
)

// Step is one stage of a run (checkout, setup, improve, commit, push).
type Step interface {
	Name() string
	Run(ctx context.Context, st *State) (*StepResult, error)
}

// StepResult is the outcome of one step attempt. A step may attach a
// Snapshot of the working tree which the pipeline applies to the state.
type StepResult struct {
	Status      StepStatus
	Recoverable bool
	Snapshot    *Snapshot
}

// StepStatus is the outcome of a step run.
type StepStatus string

const (
	StepOK      StepStatus = "ok"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)
