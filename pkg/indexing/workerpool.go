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
	"context"
	"log/slog"
	"sync"
)

// WorkItem is one unit of work the pool hands to a worker: enough to
// run the full pipeline (§4.1-§4.8) for one job against one Repository
// working tree.
type WorkItem struct {
	Job          *IndexJob
	Repository   Repository
	RootPath     string
	ChangedPaths []string // non-empty selects Pipeline.RunIncremental over Run
}

// WorkerPool is a fixed-size team of cooperative workers draining a
// pending-job channel (spec §4.10), grounded on the teacher's
// jobs-channel/waitgroup pattern used for parallel call resolution.
type WorkerPool struct {
	teamSize int
	pipeline *Pipeline
	tracker  *JobTracker
	logger   *slog.Logger
	metrics  *Metrics

	queue chan WorkItem
	wg    sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

// NewWorkerPool creates a pool with teamSize workers (spec default 3).
// Workers do not start until Start is called.
func NewWorkerPool(teamSize int, pipeline *Pipeline, tracker *JobTracker, logger *slog.Logger) *WorkerPool {
	if teamSize <= 0 {
		teamSize = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerPool{
		teamSize: teamSize,
		pipeline: pipeline,
		tracker:  tracker,
		logger:   logger,
		metrics:  NewMetrics(),
		queue:    make(chan WorkItem, 256),
		done:     make(chan struct{}),
	}
}

// Start launches the worker team. Safe to call once; subsequent calls
// are no-ops.
func (p *WorkerPool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		for i := 0; i < p.teamSize; i++ {
			p.wg.Add(1)
			go p.runWorker(ctx, i)
		}
	})
}

// Submit enqueues a job for processing. Blocks if the internal queue is
// full, providing natural backpressure to callers faster than the
// fixed worker team can drain.
func (p *WorkerPool) Submit(item WorkItem) {
	p.metrics.WorkerPoolQueued.Inc()
	p.queue <- item
}

// Stop closes the submission queue and waits for the workers to drain
// every job still queued before returning.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() {
		close(p.queue)
		p.wg.Wait()
		close(p.done)
	})
}

// Done returns a channel closed once Stop has fully drained the pool.
func (p *WorkerPool) Done() <-chan struct{} {
	return p.done
}

func (p *WorkerPool) runWorker(ctx context.Context, workerID int) {
	defer p.wg.Done()

	for item := range p.queue {
		p.metrics.WorkerPoolQueued.Add(-1)
		p.metrics.WorkerPoolActive.Inc()
		p.processOne(ctx, item, workerID)
		p.metrics.WorkerPoolActive.Add(-1)
	}
}

// processOne runs the pipeline for one job, transitioning it through
// the tracker's state machine. A worker that fails to persist a
// transition logs the error but keeps draining the queue (spec §4.10:
// "non-fatal to the worker").
func (p *WorkerPool) processOne(ctx context.Context, item WorkItem, workerID int) {
	job := item.Job

	if err := p.tracker.Transition(job.ID, JobProcessing, nil); err != nil {
		p.logger.Error("workerpool.transition.error", "worker", workerID, "job_id", job.ID, "err", err)
		return
	}

	var err error
	if len(item.ChangedPaths) > 0 {
		err = p.pipeline.RunIncremental(ctx, item.Repository, item.RootPath, item.ChangedPaths, job)
	} else {
		err = p.pipeline.Run(ctx, item.Repository, item.RootPath, job)
	}

	if ctx.Err() != nil {
		if tErr := p.tracker.Transition(job.ID, JobFailed, map[string]any{"error_message": "cancelled"}); tErr != nil {
			p.logger.Error("workerpool.cancel_transition.error", "worker", workerID, "job_id", job.ID, "err", tErr)
		}
		return
	}

	if err != nil {
		p.logger.Error("workerpool.pipeline.error", "worker", workerID, "job_id", job.ID, "err", err)
		if tErr := p.tracker.Transition(job.ID, JobFailed, map[string]any{"error_message": err.Error()}); tErr != nil {
			p.logger.Error("workerpool.transition.error", "worker", workerID, "job_id", job.ID, "err", tErr)
		}
		return
	}

	if tErr := p.tracker.Transition(job.ID, JobCompleted, map[string]any{"stats": job.Stats}); tErr != nil {
		p.logger.Error("workerpool.transition.error", "worker", workerID, "job_id", job.ID, "err", tErr)
	}
}
