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

package server

import (
	"context"
	"sync"

	"github.com/mejora-dev/mejora/internal/log"
	"github.com/mejora-dev/mejora/internal/pipeline"
	"github.com/mejora-dev/mejora/workflow"
)

// RunnerFunc executes one improvement run for a trigger event and returns
// its report. The report is persisted even for failed runs.
type RunnerFunc func(ctx context.Context, runID string, ev workflow.Event) *pipeline.Report

// Dispatcher serializes webhook-triggered runs through a single worker.
// Runs mutate a shared working tree, so they must not overlap; a full queue
// rejects rather than blocks the webhook handler.
type Dispatcher struct {
	runner RunnerFunc
	store  RunStore
	queue  chan job
	wg     sync.WaitGroup
}

type job struct {
	runID string
	event workflow.Event
}

func NewDispatcher(runner RunnerFunc, store RunStore, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 16
	}
	return &Dispatcher{
		runner: runner,
		store:  store,
		queue:  make(chan job, queueSize),
	}
}

// Start launches the worker; it drains until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case j := <-d.queue:
				d.execute(ctx, j)
			}
		}
	}()
}

// Enqueue schedules a run. Returns false when the queue is full.
func (d *Dispatcher) Enqueue(runID string, ev workflow.Event) bool {
	select {
	case d.queue <- job{runID: runID, event: ev}:
		return true
	default:
		return false
	}
}

// Wait blocks until the worker has stopped.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) execute(ctx context.Context, j job) {
	log.Info("run %s: %s on %s@%s", j.runID, j.event.Kind, j.event.Repo, j.event.Branch)
	report := d.runner(ctx, j.runID, j.event)
	if report == nil {
		log.Error("run %s: runner returned no report", j.runID)
		return
	}
	runsTotal.WithLabelValues(report.Status).Inc()
	prev := report.StartedAt
	for _, step := range report.Steps {
		if !step.Time.IsZero() && !prev.IsZero() {
			stepDuration.WithLabelValues(step.StepName).Observe(step.Time.Sub(prev).Seconds())
		}
		prev = step.Time
	}
	if err := d.store.Save(ctx, report); err != nil {
		log.Error("run %s: save report: %v", j.runID, err)
	}
}
