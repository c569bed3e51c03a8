package batch

import (
	"context"
	"time"

	"findoc-backend/internal/extraction"
)

// Repo defines persistence operations for batch jobs. Counter and progress
// maintenance lives inside the repo so every mutation keeps
// processedFiles == successfulFiles + failedFiles and
// progress == round(processed/total*100).
type Repo interface {
	Create(ctx context.Context, job BatchJob) error
	GetByID(ctx context.Context, jobID string) (BatchJob, error)
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]BatchJob, error)
	Delete(ctx context.Context, jobID string) error
	// DeleteTerminalOlderThan removes terminal jobs whose updatedAt is before
	// cutoff and returns the count removed.
	DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int, error)

	// MarkJobStarted moves a pending job to processing. ErrJobTerminal when
	// the job was cancelled before its background task got scheduled.
	MarkJobStarted(ctx context.Context, jobID string) error
	// MarkJobCompleted finalizes a processing job: failed when every file
	// failed, completed otherwise. No-op when the job is already terminal.
	MarkJobCompleted(ctx context.Context, jobID string) error

	// ClaimFile atomically moves a pending file of a processing job to
	// processing. A false return means the file must be skipped, which is how
	// cooperative cancellation short-circuits not-yet-started files.
	ClaimFile(ctx context.Context, jobID string, index int) (bool, error)
	// CompleteFile and FailFile record a file outcome and update the job
	// counters. They apply even when the job went terminal mid-flight, so an
	// in-flight file's outcome still lands in the counters after a cancel.
	CompleteFile(ctx context.Context, jobID string, index int, result extraction.Result) error
	FailFile(ctx context.Context, jobID string, index int, message string) error

	// Cancel marks a non-terminal job failed and every still-pending file
	// failed with reason. ErrJobTerminal when the job already finished.
	Cancel(ctx context.Context, jobID, reason string) error
}
