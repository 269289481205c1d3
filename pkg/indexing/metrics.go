// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package indexing

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments shared by the pipeline,
// worker pool, and watcher. A process registers one global set on the
// default Prometheus registerer, and every NewMetrics call (tests
// included) returns that same set.
type Metrics struct {
	FilesParsed            prometheus.Counter
	SymbolsExtracted       prometheus.Counter
	ReferencesFound        prometheus.Counter
	DependenciesExtracted  prometheus.Counter
	ChunksWritten          prometheus.Counter

	JobsCreated   prometheus.Counter
	JobsCompleted prometheus.Counter
	JobsFailed    prometheus.Counter
	JobsSkipped   prometheus.Counter
	JobsRetried   prometheus.Counter

	WorkerPoolActive prometheus.Gauge
	WorkerPoolQueued prometheus.Gauge

	WatcherEventsObserved  prometheus.Counter
	WatcherEventsCoalesced prometheus.Counter
	WatcherRunsTriggered   prometheus.Counter

	PipelineDuration prometheus.Histogram
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// NewMetrics returns the process-wide Metrics instance. The first call
// builds the instruments and registers them against the default
// Prometheus registry; later calls return the same instance rather than
// panicking on duplicate registration.
func NewMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		buckets := []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

		defaultMetrics = &Metrics{
			FilesParsed:           prometheus.NewCounter(prometheus.CounterOpts{Name: "graphidx_files_parsed_total", Help: "Source files parsed by the indexing pipeline"}),
			SymbolsExtracted:      prometheus.NewCounter(prometheus.CounterOpts{Name: "graphidx_symbols_extracted_total", Help: "Symbols extracted across all parsed files"}),
			ReferencesFound:       prometheus.NewCounter(prometheus.CounterOpts{Name: "graphidx_references_found_total", Help: "References extracted across all parsed files"}),
			DependenciesExtracted: prometheus.NewCounter(prometheus.CounterOpts{Name: "graphidx_dependencies_extracted_total", Help: "Dependency edges built from resolved references"}),
			ChunksWritten:         prometheus.NewCounter(prometheus.CounterOpts{Name: "graphidx_chunks_written_total", Help: "Storage write chunks committed"}),

			JobsCreated:   prometheus.NewCounter(prometheus.CounterOpts{Name: "graphidx_jobs_created_total", Help: "Index jobs created"}),
			JobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{Name: "graphidx_jobs_completed_total", Help: "Index jobs completed"}),
			JobsFailed:    prometheus.NewCounter(prometheus.CounterOpts{Name: "graphidx_jobs_failed_total", Help: "Index jobs failed"}),
			JobsSkipped:   prometheus.NewCounter(prometheus.CounterOpts{Name: "graphidx_jobs_skipped_total", Help: "Index jobs skipped"}),
			JobsRetried:   prometheus.NewCounter(prometheus.CounterOpts{Name: "graphidx_jobs_retried_total", Help: "Index jobs retried from failed"}),

			WorkerPoolActive: prometheus.NewGauge(prometheus.GaugeOpts{Name: "graphidx_worker_pool_active", Help: "Workers currently processing a job"}),
			WorkerPoolQueued: prometheus.NewGauge(prometheus.GaugeOpts{Name: "graphidx_worker_pool_queued", Help: "Jobs waiting for a free worker"}),

			WatcherEventsObserved:  prometheus.NewCounter(prometheus.CounterOpts{Name: "graphidx_watcher_events_observed_total", Help: "Filesystem events observed by the watcher"}),
			WatcherEventsCoalesced: prometheus.NewCounter(prometheus.CounterOpts{Name: "graphidx_watcher_events_coalesced_total", Help: "Filesystem events coalesced into an existing debounce window"}),
			WatcherRunsTriggered:   prometheus.NewCounter(prometheus.CounterOpts{Name: "graphidx_watcher_runs_triggered_total", Help: "Incremental runs triggered by the watcher"}),

			PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Name: "graphidx_pipeline_duration_seconds", Help: "Wall-clock duration of a full or incremental pipeline run", Buckets: buckets}),
		}

		prometheus.MustRegister(
			defaultMetrics.FilesParsed, defaultMetrics.SymbolsExtracted,
			defaultMetrics.ReferencesFound, defaultMetrics.DependenciesExtracted, defaultMetrics.ChunksWritten,
			defaultMetrics.JobsCreated, defaultMetrics.JobsCompleted, defaultMetrics.JobsFailed,
			defaultMetrics.JobsSkipped, defaultMetrics.JobsRetried,
			defaultMetrics.WorkerPoolActive, defaultMetrics.WorkerPoolQueued,
			defaultMetrics.WatcherEventsObserved, defaultMetrics.WatcherEventsCoalesced, defaultMetrics.WatcherRunsTriggered,
			defaultMetrics.PipelineDuration,
		)
	})
	return defaultMetrics
}
