package batch

import (
	"math"
	"time"

	"findoc-backend/internal/extraction"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// CancelErrorMessage is recorded on every pending file short-circuited by a
// cancellation.
const CancelErrorMessage = "job cancelled"

// FileRef identifies one input document at submission time.
type FileRef struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// FileEntry tracks one file through the job lifecycle. Files share the job
// status vocabulary.
type FileEntry struct {
	Name        string             `json:"name"`
	Path        string             `json:"path,omitempty"`
	Status      string             `json:"status"`
	Result      *extraction.Result `json:"result,omitempty"`
	Error       string             `json:"error,omitempty"`
	StartedAt   *time.Time         `json:"startedAt,omitempty"`
	CompletedAt *time.Time         `json:"completedAt,omitempty"`
}

// ErrorEntry is one failure recorded at the job level.
type ErrorEntry struct {
	File    string    `json:"file,omitempty"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// BatchJob represents one batch extraction job.
type BatchJob struct {
	ID              string       `json:"id"`
	TenantID        string       `json:"tenantId"`
	UserID          string       `json:"userId,omitempty"`
	DocumentType    string       `json:"documentType,omitempty"`
	Priority        string       `json:"priority"`
	Status          string       `json:"status"`
	TotalFiles      int          `json:"totalFiles"`
	ProcessedFiles  int          `json:"processedFiles"`
	SuccessfulFiles int          `json:"successfulFiles"`
	FailedFiles     int          `json:"failedFiles"`
	Progress        int          `json:"progress"`
	Files           []FileEntry  `json:"files"`
	Errors          []ErrorEntry `json:"errors"`
	CancelRequested bool         `json:"cancelRequested,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
	StartedAt       *time.Time   `json:"startedAt,omitempty"`
	CompletedAt     *time.Time   `json:"completedAt,omitempty"`
}

// Terminal reports whether the job has reached a final state.
func (j BatchJob) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// SubmitOptions carries the caller-supplied job attributes.
type SubmitOptions struct {
	TenantID     string
	UserID       string
	DocumentType string
	Priority     string
	// Callback is invoked once, in-process, when the job reaches a terminal
	// state. It is never persisted.
	Callback func(BatchJob)
}

// progressPercent is the canonical progress formula: processed over total,
// rounded to the nearest whole percent.
func progressPercent(processed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(processed) / float64(total) * 100))
}
