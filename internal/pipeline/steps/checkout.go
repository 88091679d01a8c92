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

// Package steps holds the concrete run stages: checkout, setup, improve,
// commit and push.
package steps

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/mejora-dev/mejora/internal/gitops"
	"github.com/mejora-dev/mejora/internal/log"
	"github.com/mejora-dev/mejora/internal/pipeline"
)

// CheckoutStep ensures WorkDir holds the target repository: an existing
// work tree is opened (and switched to the event's branch), otherwise the
// repo is cloned. Checkout failures are not recoverable.
type CheckoutStep struct {
	// Token authenticates the clone; empty for local or public repos.
	Token string
}

// Name implements pipeline.Step.
func (s *CheckoutStep) Name() string { return "checkout" }

// Run implements pipeline.Step.
func (s *CheckoutStep) Run(ctx context.Context, st *pipeline.State) (*pipeline.StepResult, error) {
	if st.WorkDir == "" {
		return fail(false, "WorkDir is empty")
	}
	spec := st.Workflow.Checkout

	var repo *gitops.Repo
	var err error
	if _, statErr := os.Stat(filepath.Join(st.WorkDir, ".git")); statErr == nil {
		repo, err = gitops.Open(st.WorkDir)
		if err != nil {
			return failErr(false, err)
		}
		if st.Event.Branch != "" {
			if err := repo.Checkout(st.Event.Branch); err != nil {
				return failErr(false, err)
			}
		}
	} else {
		url := spec.URL
		if url == "" {
			url = st.Event.CloneURL
		}
		if url == "" {
			return fail(false, "no checkout URL and WorkDir is not a repository")
		}
		ref := st.Event.Branch
		if ref == "" {
			ref = spec.Ref
		}
		repo, err = gitops.Clone(ctx, st.WorkDir, gitops.CloneOptions{
			URL:   url,
			Ref:   ref,
			Depth: spec.Depth,
			Token: s.Token,
		})
		if err != nil {
			return failErr(false, err)
		}
	}

	branch, head, err := repo.Head()
	if err != nil {
		return failErr(false, err)
	}
	log.Info("checked out %s at %s", branch, head)
	if st.Event.Branch == "" {
		st.Event.Branch = branch
	}
	if st.Event.Commit == "" {
		st.Event.Commit = head
	}
	return &pipeline.StepResult{Status: pipeline.StepOK}, nil
}

func fail(recoverable bool, msg string) (*pipeline.StepResult, error) {
	return &pipeline.StepResult{
		Status:      pipeline.StepFailed,
		Recoverable: recoverable,
	}, errors.New(msg)
}

func failErr(recoverable bool, err error) (*pipeline.StepResult, error) {
	return &pipeline.StepResult{
		Status:      pipeline.StepFailed,
		Recoverable: recoverable,
	}, err
}
