package batch

import (
	"context"
	"sort"
	"sync"
	"time"

	"findoc-backend/internal/extraction"
)

// MemoryRepo is the canonical job registry: an in-process store, safe for
// concurrent use. Process restart loses all job state.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]BatchJob
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]BatchJob)}
}

// Create stores the job.
func (r *MemoryRepo) Create(ctx context.Context, job BatchJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[job.ID] = cloneJob(job)
	return nil
}

// GetByID returns a job by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, jobID string) (BatchJob, error) {
	if err := ctx.Err(); err != nil {
		return BatchJob{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.byID[jobID]
	if !ok {
		return BatchJob{}, ErrNotFound
	}
	return cloneJob(job), nil
}

// ListByTenant returns a tenant's jobs, newest first, with limit/offset.
func (r *MemoryRepo) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]BatchJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	jobs := make([]BatchJob, 0)
	for _, job := range r.byID {
		if job.TenantID == tenantID {
			jobs = append(jobs, cloneJob(job))
		}
	}
	r.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID > jobs[j].ID
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	if offset >= len(jobs) {
		return []BatchJob{}, nil
	}
	end := len(jobs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return jobs[offset:end], nil
}

// Delete removes a job. Processing jobs cannot be deleted.
func (r *MemoryRepo) Delete(ctx context.Context, jobID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[jobID]
	if !ok {
		return ErrNotFound
	}
	if job.Status == StatusProcessing {
		return ErrJobProcessing
	}
	delete(r.byID, jobID)
	return nil
}

// DeleteTerminalOlderThan removes terminal jobs not touched since cutoff.
func (r *MemoryRepo) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, job := range r.byID {
		if job.Terminal() && job.UpdatedAt.Before(cutoff) {
			delete(r.byID, id)
			removed++
		}
	}
	return removed, nil
}

// MarkJobStarted moves a pending job to processing.
func (r *MemoryRepo) MarkJobStarted(ctx context.Context, jobID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[jobID]
	if !ok {
		return ErrNotFound
	}
	if job.Status != StatusPending {
		return ErrJobTerminal
	}
	now := time.Now().UTC()
	job.Status = StatusProcessing
	job.StartedAt = &now
	job.UpdatedAt = now
	r.byID[jobID] = job
	return nil
}

// MarkJobCompleted finalizes a processing job from its counters.
func (r *MemoryRepo) MarkJobCompleted(ctx context.Context, jobID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[jobID]
	if !ok {
		return ErrNotFound
	}
	if job.Status != StatusProcessing {
		// Already terminal, e.g. cancelled while the last file was in flight.
		return nil
	}
	now := time.Now().UTC()
	if job.TotalFiles > 0 && job.FailedFiles == job.TotalFiles {
		job.Status = StatusFailed
	} else {
		job.Status = StatusCompleted
	}
	job.CompletedAt = &now
	job.UpdatedAt = now
	r.byID[jobID] = job
	return nil
}

// ClaimFile atomically moves a pending file of a processing job to processing.
func (r *MemoryRepo) ClaimFile(ctx context.Context, jobID string, index int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[jobID]
	if !ok {
		return false, ErrNotFound
	}
	if job.Status != StatusProcessing || index < 0 || index >= len(job.Files) {
		return false, nil
	}
	if job.Files[index].Status != StatusPending {
		return false, nil
	}
	now := time.Now().UTC()
	files := cloneFiles(job.Files)
	files[index].Status = StatusProcessing
	files[index].StartedAt = &now
	job.Files = files
	job.UpdatedAt = now
	r.byID[jobID] = job
	return true, nil
}

// CompleteFile records a successful file outcome.
func (r *MemoryRepo) CompleteFile(ctx context.Context, jobID string, index int, result extraction.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[jobID]
	if !ok {
		return ErrNotFound
	}
	if index < 0 || index >= len(job.Files) {
		return ErrNotFound
	}
	now := time.Now().UTC()
	files := cloneFiles(job.Files)
	files[index].Status = StatusCompleted
	files[index].Result = &result
	files[index].CompletedAt = &now
	job.Files = files
	job.SuccessfulFiles++
	job.ProcessedFiles = job.SuccessfulFiles + job.FailedFiles
	job.Progress = progressPercent(job.ProcessedFiles, job.TotalFiles)
	job.UpdatedAt = now
	r.byID[jobID] = job
	return nil
}

// FailFile records a failed file outcome on the file and the job error list.
func (r *MemoryRepo) FailFile(ctx context.Context, jobID string, index int, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[jobID]
	if !ok {
		return ErrNotFound
	}
	if index < 0 || index >= len(job.Files) {
		return ErrNotFound
	}
	now := time.Now().UTC()
	files := cloneFiles(job.Files)
	files[index].Status = StatusFailed
	files[index].Error = message
	files[index].CompletedAt = &now
	job.Files = files
	job.Errors = append(cloneErrors(job.Errors), ErrorEntry{File: files[index].Name, Message: message, At: now})
	job.FailedFiles++
	job.ProcessedFiles = job.SuccessfulFiles + job.FailedFiles
	job.Progress = progressPercent(job.ProcessedFiles, job.TotalFiles)
	job.UpdatedAt = now
	r.byID[jobID] = job
	return nil
}

// Cancel marks a non-terminal job failed and short-circuits its pending files.
func (r *MemoryRepo) Cancel(ctx context.Context, jobID, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[jobID]
	if !ok {
		return ErrNotFound
	}
	if job.Terminal() {
		return ErrJobTerminal
	}

	now := time.Now().UTC()
	files := cloneFiles(job.Files)
	for i := range files {
		if files[i].Status != StatusPending {
			continue
		}
		files[i].Status = StatusFailed
		files[i].Error = reason
		files[i].CompletedAt = &now
		job.FailedFiles++
	}
	job.Files = files
	job.ProcessedFiles = job.SuccessfulFiles + job.FailedFiles
	job.Progress = progressPercent(job.ProcessedFiles, job.TotalFiles)
	job.Errors = append(cloneErrors(job.Errors), ErrorEntry{Message: reason, At: now})
	job.Status = StatusFailed
	job.CancelRequested = true
	job.CompletedAt = &now
	job.UpdatedAt = now
	r.byID[jobID] = job
	return nil
}

var _ Repo = (*MemoryRepo)(nil)

// cloneJob copies the job and its slices so readers never observe in-place
// mutation.
func cloneJob(job BatchJob) BatchJob {
	job.Files = cloneFiles(job.Files)
	job.Errors = cloneErrors(job.Errors)
	return job
}

func cloneFiles(files []FileEntry) []FileEntry {
	if files == nil {
		return nil
	}
	out := make([]FileEntry, len(files))
	copy(out, files)
	return out
}

func cloneErrors(errs []ErrorEntry) []ErrorEntry {
	if errs == nil {
		return nil
	}
	out := make([]ErrorEntry, len(errs))
	copy(out, errs)
	return out
}
