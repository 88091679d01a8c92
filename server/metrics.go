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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mejora_runs_total",
		Help: "Completed improvement runs by final status.",
	}, []string{"status"})

	webhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mejora_webhook_events_total",
		Help: "Webhook deliveries by event kind and whether a run was enqueued.",
	}, []string{"event", "accepted"})

	stepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mejora_step_duration_seconds",
		Help:    "Wall-clock duration of pipeline steps.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"step"})
)
