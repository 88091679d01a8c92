/**
 * Copyright 2026 Mejora Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package server exposes webhook-triggered runs over HTTP: a GitHub webhook
// endpoint feeds a dispatcher, run reports are kept in a RunStore and served
// back on /runs.
package server

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/mejora-dev/mejora/internal/pipeline"
)

// ErrRunNotFound is returned by RunStore.Get for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

// RunStore keeps run reports for the HTTP API.
type RunStore interface {
	Save(ctx context.Context, report *pipeline.Report) error
	Get(ctx context.Context, runID string) (*pipeline.Report, error)
	// List returns run IDs, most recent first.
	List(ctx context.Context) ([]string, error)
}

// MemoryStore is the default in-process RunStore.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]*pipeline.Report
	order   []string
}

var _ RunStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: map[string]*pipeline.Report{}}
}

func (s *MemoryStore) Save(ctx context.Context, report *pipeline.Report) error {
	if report == nil || report.RunID == "" {
		return errors.New("report has no run ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.reports[report.RunID]; !exists {
		s.order = append(s.order, report.RunID)
	}
	s.reports[report.RunID] = report
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, runID string) (*pipeline.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	return report, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	sort.SliceStable(ids, func(i, j int) bool {
		return s.reports[ids[i]].StartedAt.After(s.reports[ids[j]].StartedAt)
	})
	return ids, nil
}
