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
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/mejora-dev/mejora/improve"
	"github.com/mejora-dev/mejora/internal/utils"
	"github.com/mejora-dev/mejora/workflow"
)

const (
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// Report is the persisted outcome of one run.
type Report struct {
	RunID      string          `json:"run_id"`
	Status     string          `json:"status"`
	Error      string          `json:"error,omitempty"`
	Event      workflow.Event  `json:"event"`
	Changed    bool            `json:"changed"`
	CommitHash string          `json:"commit_hash,omitempty"`
	Improve    *improve.Result `json:"improve,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Steps      []StepRecord    `json:"steps"`
}

// NewReport collects the run outcome from the state. runErr is the error
// Pipeline.Run returned, nil for a successful run.
func NewReport(st *State, runErr error) *Report {
	r := &Report{
		RunID:      st.RunID,
		Status:     RunStatusSucceeded,
		Event:      st.Event,
		Changed:    st.Changed,
		CommitHash: st.CommitHash,
		Improve:    st.Improve,
		StartedAt:  st.StartedAt,
		FinishedAt: time.Now(),
		Steps:      st.History,
	}
	if runErr != nil {
		r.Status = RunStatusFailed
		r.Error = runErr.Error()
	}
	return r
}

// Write persists the report as .mejora/report-<runid>.json under dir.
func (r *Report) Write(dir string) (string, error) {
	path := filepath.Join(dir, ".mejora", "report-"+r.RunID+".json")
	js, err := utils.MarshalJSONIndent(r)
	if err != nil {
		return "", errors.Wrap(err, "marshal report")
	}
	if err := utils.MustWriteFile(path, []byte(js)); err != nil {
		return "", err
	}
	return path, nil
}

// LoadReport reads a persisted run report.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read report %s", path)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrapf(err, "parse report %s", path)
	}
	return &r, nil
}
