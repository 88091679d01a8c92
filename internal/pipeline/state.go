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
	"time"

	"github.com/mejora-dev/mejora/improve"
	"github.com/mejora-dev/mejora/workflow"
)

// State is the single source of truth for one run. Steps read and mutate
// it; the pipeline appends a StepRecord per attempt.
type State struct {
	RunID    string
	Event    workflow.Event
	WorkDir  string
	Workflow *workflow.Workflow
	Env      []string

	// TreeBefore/TreeAfter fingerprint the working tree around the
	// improvement step.
	TreeBefore *Snapshot
	TreeAfter  *Snapshot

	// Changed is set by the improve step when the tree differs afterwards.
	Changed    bool
	CommitHash string
	Improve    *improve.Result

	StartedAt time.Time
	History   []StepRecord
}

// StepRecord is an immutable log entry for one step execution.
type StepRecord struct {
	StepName string     `json:"step"`
	Attempt  int        `json:"attempt"`
	Status   StepStatus `json:"status"`
	Error    string     `json:"error,omitempty"`
	Time     time.Time  `json:"time"`
}

// Params exposes the run context to workflow `when` expressions.
func (st *State) Params() map[string]any {
	return map[string]any{
		"branch":  st.Event.Branch,
		"event":   st.Event.Kind,
		"repo":    st.Event.Repo,
		"changed": st.Changed,
	}
}
