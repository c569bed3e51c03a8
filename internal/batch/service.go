package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"findoc-backend/internal/document"
	"findoc-backend/internal/docparse"
	"findoc-backend/internal/extraction"
	"findoc-backend/internal/shared/metrics"
	"findoc-backend/internal/shared/telemetry"
)

// Extractor runs the per-document extraction pipeline.
type Extractor interface {
	Process(ctx context.Context, doc document.Parsed) (extraction.Result, error)
}

// Service contains business logic for batch jobs.
type Service struct {
	Repo      Repo
	Extractor Extractor
	// ParseFile loads and parses one input document. Defaults to
	// docparse.ParseFile with mime sniffing from the file name.
	ParseFile func(ctx context.Context, path string) (document.Parsed, error)

	cbMu      sync.Mutex
	callbacks map[string]func(BatchJob)
}

var priorities = map[string]struct{}{"low": {}, "normal": {}, "high": {}}

// Submit creates a job in pending state, kicks off background execution and
// returns immediately.
func (s *Service) Submit(ctx context.Context, files []FileRef, opts SubmitOptions) (BatchJob, error) {
	if len(files) == 0 {
		return BatchJob{}, errors.New("at least one file is required")
	}
	if opts.TenantID == "" {
		return BatchJob{}, errors.New("tenantId is required")
	}
	priority := strings.ToLower(strings.TrimSpace(opts.Priority))
	if priority == "" {
		priority = "normal"
	}
	if _, ok := priorities[priority]; !ok {
		return BatchJob{}, fmt.Errorf("invalid priority %q", opts.Priority)
	}

	now := time.Now().UTC()
	entries := make([]FileEntry, 0, len(files))
	for _, f := range files {
		name := f.Name
		if name == "" {
			name = f.Path
		}
		entries = append(entries, FileEntry{Name: name, Path: f.Path, Status: StatusPending})
	}

	job := BatchJob{
		ID:           uuid.NewString(),
		TenantID:     opts.TenantID,
		UserID:       opts.UserID,
		DocumentType: opts.DocumentType,
		Priority:     priority,
		Status:       StatusPending,
		TotalFiles:   len(entries),
		Files:        entries,
		Errors:       []ErrorEntry{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Repo.Create(ctx, job); err != nil {
		return BatchJob{}, err
	}
	if opts.Callback != nil {
		s.cbMu.Lock()
		if s.callbacks == nil {
			s.callbacks = make(map[string]func(BatchJob))
		}
		s.callbacks[job.ID] = opts.Callback
		s.cbMu.Unlock()
	}

	go s.processJob(backgroundWithRequestID(ctx), job.ID)

	return job, nil
}

// Get returns a job by ID. Serves both the status and details projections.
func (s *Service) Get(ctx context.Context, jobID string) (BatchJob, error) {
	if jobID == "" {
		return BatchJob{}, errors.New("jobID is required")
	}
	return s.Repo.GetByID(ctx, jobID)
}

// ListForTenant returns a tenant's jobs newest-first.
func (s *Service) ListForTenant(ctx context.Context, tenantID string, limit, offset int) ([]BatchJob, error) {
	if tenantID == "" {
		return nil, errors.New("tenantID is required")
	}
	return s.Repo.ListByTenant(ctx, tenantID, limit, offset)
}

// Cancel requests cancellation of a non-terminal job. A file already in
// flight runs to completion; only pending files are short-circuited.
func (s *Service) Cancel(ctx context.Context, jobID string) (bool, error) {
	if jobID == "" {
		return false, errors.New("jobID is required")
	}
	err := s.Repo.Cancel(ctx, jobID, CancelErrorMessage)
	if errors.Is(err, ErrJobTerminal) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	telemetry.Info("batch.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"job_id":            jobID,
		"status":            StatusFailed,
		"status_transition": "cancel",
	})
	s.notify(ctx, jobID)
	return true, nil
}

// Delete removes a job that is not currently processing.
func (s *Service) Delete(ctx context.Context, jobID string) (bool, error) {
	if jobID == "" {
		return false, errors.New("jobID is required")
	}
	err := s.Repo.Delete(ctx, jobID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.dropCallback(jobID)
	return true, nil
}

// Cleanup removes terminal jobs whose updatedAt is older than maxAge.
func (s *Service) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge < 0 {
		maxAge = 0
	}
	cutoff := time.Now().UTC().Add(-maxAge)
	removed, err := s.Repo.DeleteTerminalOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		telemetry.Info("batch.cleanup", map[string]any{
			"removed":    removed,
			"max_age_ms": maxAge.Milliseconds(),
		})
	}
	return removed, nil
}

func (s *Service) processJob(ctx context.Context, jobID string) {
	defer func() {
		if r := recover(); r != nil {
			s.failJob(ctx, jobID, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := s.Repo.MarkJobStarted(ctx, jobID); err != nil {
		if errors.Is(err, ErrJobTerminal) {
			// Cancelled before the background task got scheduled.
			s.notify(ctx, jobID)
			return
		}
		telemetry.Error("batch.start", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"job_id":     jobID,
			"error":      err.Error(),
		})
		return
	}
	startedAt := time.Now().UTC()
	metrics.IncJobStarted()

	job, err := s.Repo.GetByID(ctx, jobID)
	if err != nil {
		s.failJob(ctx, jobID, fmt.Errorf("job lookup: %w", err))
		return
	}
	telemetry.Info("batch.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"tenant_id":         job.TenantID,
		"job_id":            job.ID,
		"status":            StatusProcessing,
		"status_transition": "pending->processing",
		"total_files":       job.TotalFiles,
	})

	// Files run strictly sequentially within one job; only the claim decides
	// whether a file still runs, which is how a concurrent cancel skips the
	// remainder.
	for i := range job.Files {
		claimed, err := s.Repo.ClaimFile(ctx, jobID, i)
		if err != nil {
			telemetry.Error("batch.claim", map[string]any{
				"request_id": requestIDFromContext(ctx),
				"job_id":     jobID,
				"file":       job.Files[i].Name,
				"error":      err.Error(),
			})
			continue
		}
		if !claimed {
			continue
		}

		result, procErr := s.processFile(ctx, job.Files[i])
		if procErr != nil {
			metrics.IncFileFailed()
			if failErr := s.Repo.FailFile(ctx, jobID, i, sanitizeError(procErr)); failErr != nil {
				telemetry.Error("batch.file", map[string]any{
					"request_id": requestIDFromContext(ctx),
					"job_id":     jobID,
					"file":       job.Files[i].Name,
					"error":      failErr.Error(),
				})
			}
			continue
		}
		metrics.IncFileProcessed()
		if err := s.Repo.CompleteFile(ctx, jobID, i, result); err != nil {
			telemetry.Error("batch.file", map[string]any{
				"request_id": requestIDFromContext(ctx),
				"job_id":     jobID,
				"file":       job.Files[i].Name,
				"error":      err.Error(),
			})
		}
	}

	if err := s.Repo.MarkJobCompleted(ctx, jobID); err != nil {
		telemetry.Error("batch.complete", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"job_id":     jobID,
			"error":      err.Error(),
		})
	}

	final, err := s.Repo.GetByID(ctx, jobID)
	if err == nil {
		completedAt := time.Now().UTC()
		if final.Status == StatusFailed {
			metrics.IncJobFailed()
		} else {
			metrics.IncJobCompleted()
		}
		metrics.ObserveJobDurationMs(durationMs(&startedAt, &completedAt))
		telemetry.Info("batch.status", map[string]any{
			"request_id":        requestIDFromContext(ctx),
			"tenant_id":         final.TenantID,
			"job_id":            final.ID,
			"status":            final.Status,
			"status_transition": "processing->" + final.Status,
			"processed_files":   final.ProcessedFiles,
			"successful_files":  final.SuccessfulFiles,
			"failed_files":      final.FailedFiles,
			"duration_ms":       durationMs(&startedAt, &completedAt),
		})
	}
	s.notify(ctx, jobID)
}

func (s *Service) processFile(ctx context.Context, file FileEntry) (extraction.Result, error) {
	parse := s.ParseFile
	if parse == nil {
		parse = func(ctx context.Context, path string) (document.Parsed, error) {
			return docparse.ParseFile(ctx, path, "")
		}
	}
	doc, err := parse(ctx, file.Path)
	if err != nil {
		return extraction.Result{}, fmt.Errorf("parse %s: %w", file.Name, err)
	}
	if s.Extractor == nil {
		return extraction.Result{}, errors.New("missing extractor dependency")
	}
	return s.Extractor.Process(ctx, doc)
}

// failJob is the panic backstop: whatever state the job is in, force it
// terminal so it never reports processing forever.
func (s *Service) failJob(ctx context.Context, jobID string, err error) {
	msg := sanitizeError(err)
	if cancelErr := s.Repo.Cancel(context.Background(), jobID, msg); cancelErr != nil && !errors.Is(cancelErr, ErrJobTerminal) {
		telemetry.Error("batch.fail", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"job_id":     jobID,
			"error":      cancelErr.Error(),
			"cause":      msg,
		})
	}
	metrics.IncJobFailed()
	s.notify(ctx, jobID)
}

// notify fires the submit-time callback exactly once, after the job went
// terminal.
func (s *Service) notify(ctx context.Context, jobID string) {
	s.cbMu.Lock()
	cb := s.callbacks[jobID]
	delete(s.callbacks, jobID)
	s.cbMu.Unlock()
	if cb == nil {
		return
	}
	job, err := s.Repo.GetByID(ctx, jobID)
	if err != nil {
		return
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				telemetry.Error("batch.callback", map[string]any{
					"job_id": jobID,
					"panic":  fmt.Sprint(r),
				})
			}
		}()
		cb(job)
	}()
}

func (s *Service) dropCallback(jobID string) {
	s.cbMu.Lock()
	delete(s.callbacks, jobID)
	s.cbMu.Unlock()
}

func durationMs(startedAt, completedAt *time.Time) float64 {
	if startedAt == nil || completedAt == nil {
		return 0
	}
	return float64(completedAt.Sub(*startedAt).Microseconds()) / 1000.0
}

// sanitizeError flattens an error to a single line capped at 500 characters,
// safe to store and to return to API clients.
func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	if len(msg) > 500 {
		msg = msg[:500]
	}
	return msg
}
