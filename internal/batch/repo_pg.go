package batch

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"findoc-backend/internal/extraction"
)

// PGRepo implements Repo using Postgres. File entries and job errors are
// stored as JSONB; per-file mutations run inside a row-locking transaction so
// claims stay atomic.
type PGRepo struct {
	DB *sql.DB
}

const jobColumns = `
id, tenant_id, user_id, document_type, priority, status,
total_files, processed_files, successful_files, failed_files, progress,
files, errors, cancel_requested, created_at, updated_at, started_at, completed_at`

// Create inserts a new job.
func (r *PGRepo) Create(ctx context.Context, job BatchJob) error {
	const query = `
INSERT INTO batch_jobs (
	id, tenant_id, user_id, document_type, priority, status,
	total_files, processed_files, successful_files, failed_files, progress,
	files, errors, cancel_requested, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	filesPayload, err := json.Marshal(job.Files)
	if err != nil {
		return err
	}
	errorsPayload, err := marshalErrors(job.Errors)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		job.ID,
		job.TenantID,
		job.UserID,
		job.DocumentType,
		job.Priority,
		job.Status,
		job.TotalFiles,
		job.ProcessedFiles,
		job.SuccessfulFiles,
		job.FailedFiles,
		job.Progress,
		filesPayload,
		errorsPayload,
		job.CancelRequested,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

// GetByID returns a job by ID.
func (r *PGRepo) GetByID(ctx context.Context, jobID string) (BatchJob, error) {
	const query = `SELECT ` + jobColumns + `
FROM batch_jobs
WHERE id = $1
LIMIT 1`
	return scanJob(r.DB.QueryRowContext(ctx, query, jobID))
}

// ListByTenant lists a tenant's jobs newest-first.
func (r *PGRepo) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]BatchJob, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	const query = `SELECT ` + jobColumns + `
FROM batch_jobs
WHERE tenant_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BatchJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// Delete removes a job unless it is processing.
func (r *PGRepo) Delete(ctx context.Context, jobID string) error {
	const query = `DELETE FROM batch_jobs WHERE id = $1 AND status <> 'processing'`
	res, err := r.DB.ExecContext(ctx, query, jobID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Distinguish missing from processing for the caller.
		job, err := r.GetByID(ctx, jobID)
		if err != nil {
			return err
		}
		if job.Status == StatusProcessing {
			return ErrJobProcessing
		}
		return ErrNotFound
	}
	return nil
}

// DeleteTerminalOlderThan removes terminal jobs not touched since cutoff.
func (r *PGRepo) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	const query = `
DELETE FROM batch_jobs
WHERE status IN ('completed', 'failed') AND updated_at < $1`
	res, err := r.DB.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// MarkJobStarted moves a pending job to processing.
func (r *PGRepo) MarkJobStarted(ctx context.Context, jobID string) error {
	const query = `
UPDATE batch_jobs
SET status = 'processing', started_at = now(), updated_at = now()
WHERE id = $1 AND status = 'pending'`
	res, err := r.DB.ExecContext(ctx, query, jobID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, jobID); err != nil {
			return err
		}
		return ErrJobTerminal
	}
	return nil
}

// MarkJobCompleted finalizes a processing job from its counters. No-op when
// the job is already terminal.
func (r *PGRepo) MarkJobCompleted(ctx context.Context, jobID string) error {
	const query = `
UPDATE batch_jobs
SET status = CASE
        WHEN total_files > 0 AND failed_files = total_files THEN 'failed'
        ELSE 'completed'
    END,
    completed_at = COALESCE(completed_at, now()),
    updated_at = now()
WHERE id = $1 AND status = 'processing'`
	res, err := r.DB.ExecContext(ctx, query, jobID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, jobID); err != nil {
			return err
		}
	}
	return nil
}

// ClaimFile atomically moves a pending file of a processing job to processing.
func (r *PGRepo) ClaimFile(ctx context.Context, jobID string, index int) (bool, error) {
	claimed := false
	err := r.withJobLocked(ctx, jobID, func(job *BatchJob) bool {
		if job.Status != StatusProcessing || index < 0 || index >= len(job.Files) {
			return false
		}
		if job.Files[index].Status != StatusPending {
			return false
		}
		now := time.Now().UTC()
		job.Files[index].Status = StatusProcessing
		job.Files[index].StartedAt = &now
		job.UpdatedAt = now
		claimed = true
		return true
	})
	return claimed, err
}

// CompleteFile records a successful file outcome and updates the counters.
func (r *PGRepo) CompleteFile(ctx context.Context, jobID string, index int, result extraction.Result) error {
	return r.withJobLocked(ctx, jobID, func(job *BatchJob) bool {
		if index < 0 || index >= len(job.Files) {
			return false
		}
		now := time.Now().UTC()
		job.Files[index].Status = StatusCompleted
		job.Files[index].Result = &result
		job.Files[index].CompletedAt = &now
		job.SuccessfulFiles++
		job.ProcessedFiles = job.SuccessfulFiles + job.FailedFiles
		job.Progress = progressPercent(job.ProcessedFiles, job.TotalFiles)
		job.UpdatedAt = now
		return true
	})
}

// FailFile records a failed file outcome on the file and the job error list.
func (r *PGRepo) FailFile(ctx context.Context, jobID string, index int, message string) error {
	return r.withJobLocked(ctx, jobID, func(job *BatchJob) bool {
		if index < 0 || index >= len(job.Files) {
			return false
		}
		now := time.Now().UTC()
		job.Files[index].Status = StatusFailed
		job.Files[index].Error = message
		job.Files[index].CompletedAt = &now
		job.Errors = append(job.Errors, ErrorEntry{File: job.Files[index].Name, Message: message, At: now})
		job.FailedFiles++
		job.ProcessedFiles = job.SuccessfulFiles + job.FailedFiles
		job.Progress = progressPercent(job.ProcessedFiles, job.TotalFiles)
		job.UpdatedAt = now
		return true
	})
}

// Cancel marks a non-terminal job failed and short-circuits its pending files.
func (r *PGRepo) Cancel(ctx context.Context, jobID, reason string) error {
	terminal := false
	err := r.withJobLocked(ctx, jobID, func(job *BatchJob) bool {
		if job.Terminal() {
			terminal = true
			return false
		}
		now := time.Now().UTC()
		for i := range job.Files {
			if job.Files[i].Status != StatusPending {
				continue
			}
			job.Files[i].Status = StatusFailed
			job.Files[i].Error = reason
			job.Files[i].CompletedAt = &now
			job.FailedFiles++
		}
		job.ProcessedFiles = job.SuccessfulFiles + job.FailedFiles
		job.Progress = progressPercent(job.ProcessedFiles, job.TotalFiles)
		job.Errors = append(job.Errors, ErrorEntry{Message: reason, At: now})
		job.Status = StatusFailed
		job.CancelRequested = true
		job.CompletedAt = &now
		job.UpdatedAt = now
		return true
	})
	if err != nil {
		return err
	}
	if terminal {
		return ErrJobTerminal
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)

// withJobLocked runs mutate against the row under FOR UPDATE and writes it
// back when mutate reports a change.
func (r *PGRepo) withJobLocked(ctx context.Context, jobID string, mutate func(job *BatchJob) bool) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const selectQuery = `SELECT ` + jobColumns + `
FROM batch_jobs
WHERE id = $1
FOR UPDATE`
	job, err := scanJob(tx.QueryRowContext(ctx, selectQuery, jobID))
	if err != nil {
		return err
	}

	if !mutate(&job) {
		return tx.Commit()
	}

	filesPayload, err := json.Marshal(job.Files)
	if err != nil {
		return err
	}
	errorsPayload, err := marshalErrors(job.Errors)
	if err != nil {
		return err
	}

	const updateQuery = `
UPDATE batch_jobs
SET status = $1,
    processed_files = $2,
    successful_files = $3,
    failed_files = $4,
    progress = $5,
    files = $6::jsonb,
    errors = $7::jsonb,
    cancel_requested = $8,
    updated_at = $9,
    completed_at = $10
WHERE id = $11`
	if _, err := tx.ExecContext(ctx, updateQuery,
		job.Status,
		job.ProcessedFiles,
		job.SuccessfulFiles,
		job.FailedFiles,
		job.Progress,
		filesPayload,
		errorsPayload,
		job.CancelRequested,
		job.UpdatedAt,
		job.CompletedAt,
		jobID,
	); err != nil {
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (BatchJob, error) {
	var (
		job         BatchJob
		userID      sql.NullString
		docType     sql.NullString
		files       []byte
		errorsRaw   []byte
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)
	err := row.Scan(
		&job.ID,
		&job.TenantID,
		&userID,
		&docType,
		&job.Priority,
		&job.Status,
		&job.TotalFiles,
		&job.ProcessedFiles,
		&job.SuccessfulFiles,
		&job.FailedFiles,
		&job.Progress,
		&files,
		&errorsRaw,
		&job.CancelRequested,
		&job.CreatedAt,
		&job.UpdatedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return BatchJob{}, ErrNotFound
		}
		return BatchJob{}, err
	}
	if userID.Valid {
		job.UserID = userID.String
	}
	if docType.Valid {
		job.DocumentType = docType.String
	}
	if len(files) > 0 {
		if err := json.Unmarshal(files, &job.Files); err != nil {
			return BatchJob{}, err
		}
	}
	if len(errorsRaw) > 0 {
		if err := json.Unmarshal(errorsRaw, &job.Errors); err != nil {
			return BatchJob{}, err
		}
	}
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return job, nil
}

func marshalErrors(errs []ErrorEntry) ([]byte, error) {
	if errs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(errs)
}
