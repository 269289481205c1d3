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
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kotadb/graphidx/pkg/storage"
)

// ErrJobNotFound is returned by JobTracker.Get both when a job genuinely
// does not exist and when the caller lacks access to it (spec §4.9:
// existence is never revealed to an unauthorized caller).
var ErrJobNotFound = errors.New("job not found")

// ErrInvalidTransition is returned when a requested status transition
// is not one of the permitted edges in the job state machine.
var ErrInvalidTransition = errors.New("invalid job status transition")

// AccessChecker decides whether a caller may see a Repository's jobs.
// Implementations typically check repository ownership or organization
// membership against an external authorization store.
type AccessChecker interface {
	CanAccessRepository(caller, repositoryID string) bool
}

// AllowAllAccess is an AccessChecker that grants every caller access to
// every repository. Used when the embedding application enforces
// authorization at a layer above the job tracker (e.g. a single-tenant
// CLI with no caller concept).
type AllowAllAccess struct{}

// CanAccessRepository always returns true.
func (AllowAllAccess) CanAccessRepository(string, string) bool { return true }

// JobTracker implements the C9 job lifecycle: create, transition, and
// access-controlled get. The in-memory map is authoritative for a
// running process; AttachBackend additionally persists every Create
// and Transition to the index_job table (jobstore.go) so a separate
// process (the status CLI command) can read a job's state back with
// LoadJob after the process that ran it has exited.
type JobTracker struct {
	mu      sync.RWMutex
	jobs    map[string]*IndexJob
	access  AccessChecker
	owners  map[string]string // job_id -> repository_id, duplicated into jobs but kept for quick lookup
	metrics *Metrics
	backend storage.Backend
	logger  *slog.Logger
}

// NewJobTracker creates a JobTracker. A nil access checker defaults to
// AllowAllAccess.
func NewJobTracker(access AccessChecker) *JobTracker {
	if access == nil {
		access = AllowAllAccess{}
	}
	return &JobTracker{
		jobs:    map[string]*IndexJob{},
		owners:  map[string]string{},
		access:  access,
		metrics: NewMetrics(),
	}
}

// AttachBackend enables durable persistence: every subsequent Create
// and Transition call also upserts the job's index_job row. logger may
// be nil, in which case persistence failures are dropped silently
// (mirroring metrics' best-effort posture elsewhere in this package).
func (t *JobTracker) AttachBackend(backend storage.Backend, logger *slog.Logger) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.backend = backend
	t.logger = logger
}

func (t *JobTracker) persist(job IndexJob) {
	if t.backend == nil {
		return
	}
	if err := PersistJob(context.Background(), t.backend, job); err != nil && t.logger != nil {
		t.logger.Warn("job.persist.error", "job_id", job.ID, "err", err)
	}
}

// Create registers a new pending job against a Repository.
func (t *JobTracker) Create(repositoryID, ref, commitSHA string) string {
	t.mu.Lock()
	id := GenerateJobID()
	job := &IndexJob{
		ID:           id,
		RepositoryID: repositoryID,
		Ref:          ref,
		CommitSHA:    commitSHA,
		Status:       JobPending,
	}
	t.jobs[id] = job
	t.owners[id] = repositoryID
	t.metrics.JobsCreated.Inc()
	snapshot := *job
	t.mu.Unlock()

	t.persist(snapshot)
	return id
}

// permittedTransitions encodes the state machine edges from spec §4.9.
var permittedTransitions = map[JobStatus]map[JobStatus]bool{
	JobPending:    {JobProcessing: true},
	JobProcessing: {JobCompleted: true, JobFailed: true, JobSkipped: true},
	JobFailed:     {JobProcessing: true},
}

// Transition moves a job to a new status, applying the side effects
// spec §4.9 describes for each edge. meta carries transition-specific
// data: "error_message" for processing->failed, "skip_reason" for
// processing->skipped, and an IndexJobStats value under the "stats" key for
// processing->completed.
func (t *JobTracker) Transition(jobID string, to JobStatus, meta map[string]any) error {
	t.mu.Lock()

	job, ok := t.jobs[jobID]
	if !ok {
		t.mu.Unlock()
		return ErrJobNotFound
	}

	allowed := permittedTransitions[job.Status]
	if !allowed[to] {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, to)
	}

	now := time.Now().UTC()

	switch {
	case job.Status == JobPending && to == JobProcessing:
		job.StartedAt = &now

	case job.Status == JobProcessing && to == JobCompleted:
		job.CompletedAt = &now
		if stats, ok := meta["stats"].(IndexJobStats); ok {
			job.Stats = mergeStats(job.Stats, stats)
		}
		t.metrics.JobsCompleted.Inc()

	case job.Status == JobProcessing && to == JobFailed:
		job.CompletedAt = &now
		if msg, ok := meta["error_message"].(string); ok {
			job.ErrorMessage = msg
		}
		t.metrics.JobsFailed.Inc()

	case job.Status == JobProcessing && to == JobSkipped:
		job.CompletedAt = &now
		if reason, ok := meta["skip_reason"].(string); ok {
			job.SkipReason = reason
		}
		t.metrics.JobsSkipped.Inc()

	case job.Status == JobFailed && to == JobProcessing:
		job.RetryCount++
		job.StartedAt = &now
		job.CompletedAt = nil
		job.ErrorMessage = ""
		t.metrics.JobsRetried.Inc()
	}

	job.Status = to
	snapshot := *job
	t.mu.Unlock()

	t.persist(snapshot)
	return nil
}

// mergeStats folds newly reported stats into a job's running totals;
// pass-2 retries report only what pass 2 produced, so totals accumulate
// rather than overwrite.
func mergeStats(existing, incoming IndexJobStats) IndexJobStats {
	return IndexJobStats{
		FilesIndexed:          existing.FilesIndexed + incoming.FilesIndexed,
		SymbolsExtracted:      existing.SymbolsExtracted + incoming.SymbolsExtracted,
		ReferencesFound:       existing.ReferencesFound + incoming.ReferencesFound,
		DependenciesExtracted: existing.DependenciesExtracted + incoming.DependenciesExtracted,
		ChunksCompleted:       existing.ChunksCompleted + incoming.ChunksCompleted,
		CurrentChunk:          incoming.CurrentChunk,
	}
}

// Get returns a copy of a job iff caller owns or belongs to the
// organization owning its Repository. Both "no such job" and "caller
// lacks access" produce ErrJobNotFound; the tracker never reveals
// which one occurred.
func (t *JobTracker) Get(jobID, caller string) (IndexJob, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	job, ok := t.jobs[jobID]
	if !ok {
		return IndexJob{}, ErrJobNotFound
	}
	if !t.access.CanAccessRepository(caller, job.RepositoryID) {
		return IndexJob{}, ErrJobNotFound
	}
	return *job, nil
}

// MarkCancelled transitions a processing job to failed with reason
// "cancelled" (spec §5 cancellation semantics). It is a thin wrapper
// over Transition to give callers a single call site to express intent.
func (t *JobTracker) MarkCancelled(jobID string) error {
	return t.Transition(jobID, JobFailed, map[string]any{"error_message": "cancelled"})
}
