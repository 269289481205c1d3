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
	"encoding/json"
	"fmt"
	"time"

	"github.com/kotadb/graphidx/pkg/storage"
)

// parseJobTime parses a timeFormat-encoded timestamp, reporting false
// for the empty string JobTracker/PersistJob write for a nil time.
func parseJobTime(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(timeFormat, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// buildUpsertJobScript builds a `:put index_job` script persisting one
// job row, mirroring buildInsertFilesScript's row-literal convention
// (datalog.go) applied to the index_job table (pkg/storage.schemaTables).
func buildUpsertJobScript(job IndexJob) string {
	statsJSON, err := json.Marshal(job.Stats)
	if err != nil {
		statsJSON = []byte("{}")
	}
	startedAt := ""
	if job.StartedAt != nil {
		startedAt = job.StartedAt.UTC().Format(timeFormat)
	}
	completedAt := ""
	if job.CompletedAt != nil {
		completedAt = job.CompletedAt.UTC().Format(timeFormat)
	}
	return fmt.Sprintf(
		`?[id, repository_id, ref, commit_sha, status, started_at, completed_at, error_message, skip_reason, retry_count, stats] <- [[%q, %q, %q, %q, %q, %q, %q, %q, %q, %d, %q]]
:put index_job {id => repository_id, ref, commit_sha, status, started_at, completed_at, error_message, skip_reason, retry_count, stats}`,
		job.ID, job.RepositoryID, job.Ref, job.CommitSHA, string(job.Status),
		startedAt, completedAt, job.ErrorMessage, job.SkipReason, job.RetryCount, string(statsJSON),
	)
}

// buildSelectJobScript reads back a single persisted job row by ID.
func buildSelectJobScript(jobID string) string {
	return fmt.Sprintf(
		`?[id, repository_id, ref, commit_sha, status, started_at, completed_at, error_message, skip_reason, retry_count, stats] :=
  *index_job{id, repository_id, ref, commit_sha, status, started_at, completed_at, error_message, skip_reason, retry_count, stats},
  id = %q`,
		jobID,
	)
}

// rowToJob converts one *index_job* result row, in the column order
// buildSelectJobScript/buildUpsertJobScript share, back into an IndexJob.
func rowToJob(row []any) IndexJob {
	job := IndexJob{
		ID:           anyToString(row[0]),
		RepositoryID: anyToString(row[1]),
		Ref:          anyToString(row[2]),
		CommitSHA:    anyToString(row[3]),
		Status:       JobStatus(anyToString(row[4])),
		ErrorMessage: anyToString(row[7]),
		SkipReason:   anyToString(row[8]),
		RetryCount:   anyToInt(row[9]),
	}
	if t, ok := parseJobTime(anyToString(row[5])); ok {
		job.StartedAt = &t
	}
	if t, ok := parseJobTime(anyToString(row[6])); ok {
		job.CompletedAt = &t
	}
	_ = json.Unmarshal([]byte(anyToString(row[10])), &job.Stats)
	return job
}

// PersistJob writes job's current state to the index_job table. Called
// by JobTracker after every Create/Transition when a backend is
// attached (spec §4.9's durability note), and usable standalone by
// callers that manage their own IndexJob values (e.g. a retry driver).
func PersistJob(ctx context.Context, backend storage.Backend, job IndexJob) error {
	return backend.Execute(ctx, buildUpsertJobScript(job))
}

// LoadJob reads a persisted job back out of the graph store by ID, for
// use by callers (the status CLI command) that run in a different
// process than the one that created the in-memory JobTracker entry.
// It returns ErrJobNotFound when no row has that ID. Unlike
// JobTracker.Get it takes no caller and performs no access check.
func LoadJob(ctx context.Context, backend storage.Backend, jobID string) (IndexJob, error) {
	result, err := backend.Query(ctx, buildSelectJobScript(jobID))
	if err != nil {
		return IndexJob{}, fmt.Errorf("query index_job: %w", err)
	}
	if len(result.Rows) == 0 {
		return IndexJob{}, ErrJobNotFound
	}
	return rowToJob(result.Rows[0]), nil
}
