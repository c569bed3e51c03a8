package batch

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"findoc-backend/internal/shared/server/respond"
	"findoc-backend/internal/shared/util"
)

const maxUploadBytes = 25 << 20

// Handler wires HTTP handlers to the batch service.
type Handler struct {
	Svc *Service
	// UploadDir receives submitted files; defaults to the OS temp dir.
	UploadDir string
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, uploadDir string) *Handler {
	return &Handler{Svc: svc, UploadDir: uploadDir}
}

// RegisterRoutes attaches batch routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/batches", h.submitBatch)
	rg.GET("/batches", h.listBatches)
	rg.GET("/batches/:id", h.getBatch)
	rg.GET("/batches/:id/details", h.getBatchDetails)
	rg.POST("/batches/:id/cancel", h.cancelBatch)
	rg.DELETE("/batches/:id", h.deleteBatch)
	// Bulk retention cleanup. A /batches/cleanup path would collide with the
	// :id wildcard in gin's route tree.
	rg.DELETE("/batches", h.cleanupBatches)
}

func (h *Handler) submitBatch(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "multipart form is required", nil)
		return
	}
	uploads := form.File["files"]
	if len(uploads) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "at least one file is required", nil)
		return
	}

	opts := SubmitOptions{
		TenantID:     c.PostForm("tenantId"),
		UserID:       c.PostForm("userId"),
		DocumentType: c.PostForm("documentType"),
		Priority:     c.PostForm("priority"),
	}
	if opts.TenantID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "tenantId is required", nil)
		return
	}

	dir := h.UploadDir
	if dir == "" {
		dir = os.TempDir()
	}
	// Uploads are grouped per tenant under a filesystem-safe key, then per job.
	jobDir := filepath.Join(dir, util.HashUserKey(opts.TenantID)[:16], uuid.NewString())
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store uploads", nil)
		return
	}

	files := make([]FileRef, 0, len(uploads))
	for _, upload := range uploads {
		if upload.Size > maxUploadBytes {
			respond.Error(c, http.StatusBadRequest, "validation_error", "file exceeds size limit", []map[string]string{
				{"field": "files", "issue": upload.Filename},
			})
			return
		}
		name, err := util.SanitizeFileName(filepath.Base(upload.Filename))
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid file name", []map[string]string{
				{"field": "files", "issue": upload.Filename},
			})
			return
		}
		dst := filepath.Join(jobDir, name)
		if err := c.SaveUploadedFile(upload, dst); err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store uploads", nil)
			return
		}
		files = append(files, FileRef{Name: name, Path: dst})
	}

	job, err := h.Svc.Submit(c.Request.Context(), files, opts)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}

	respond.JSON(c, http.StatusAccepted, gin.H{
		"id":         job.ID,
		"status":     job.Status,
		"totalFiles": job.TotalFiles,
		"createdAt":  job.CreatedAt,
	})
}

func (h *Handler) getBatch(c *gin.Context) {
	jobID := c.Param("id")
	job, err := h.Svc.Get(c.Request.Context(), jobID)
	if err != nil {
		respondJobError(c, err, "failed to fetch batch")
		return
	}
	respond.JSON(c, http.StatusOK, summaryJSON(job))
}

func (h *Handler) getBatchDetails(c *gin.Context) {
	jobID := c.Param("id")
	job, err := h.Svc.Get(c.Request.Context(), jobID)
	if err != nil {
		respondJobError(c, err, "failed to fetch batch")
		return
	}
	resp := summaryJSON(job)
	resp["files"] = job.Files
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) listBatches(c *gin.Context) {
	tenantID := c.Query("tenantId")
	if tenantID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "tenantId is required", nil)
		return
	}

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	jobs, err := h.Svc.ListForTenant(c.Request.Context(), tenantID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list batches", nil)
		return
	}

	resp := make([]gin.H, 0, len(jobs))
	for _, job := range jobs {
		resp = append(resp, summaryJSON(job))
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) cancelBatch(c *gin.Context) {
	jobID := c.Param("id")
	cancelled, err := h.Svc.Cancel(c.Request.Context(), jobID)
	if err != nil {
		respondJobError(c, err, "failed to cancel batch")
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"cancelled": cancelled})
}

func (h *Handler) deleteBatch(c *gin.Context) {
	jobID := c.Param("id")
	deleted, err := h.Svc.Delete(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, ErrJobProcessing) {
			respond.Error(c, http.StatusConflict, "conflict", "batch is processing", nil)
			return
		}
		respondJobError(c, err, "failed to delete batch")
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"deleted": deleted})
}

func (h *Handler) cleanupBatches(c *gin.Context) {
	maxAgeMs := int64(0)
	if v := c.Query("maxAgeMs"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed < 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "maxAgeMs must be a non-negative integer", nil)
			return
		}
		maxAgeMs = parsed
	}

	removed, err := h.Svc.Cleanup(c.Request.Context(), time.Duration(maxAgeMs)*time.Millisecond)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to clean up batches", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"removed": removed})
}

func respondJobError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "batch not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

func summaryJSON(job BatchJob) gin.H {
	resp := gin.H{
		"id":              job.ID,
		"tenantId":        job.TenantID,
		"status":          job.Status,
		"priority":        job.Priority,
		"progress":        job.Progress,
		"totalFiles":      job.TotalFiles,
		"processedFiles":  job.ProcessedFiles,
		"successfulFiles": job.SuccessfulFiles,
		"failedFiles":     job.FailedFiles,
		"errors":          job.Errors,
		"createdAt":       job.CreatedAt,
		"updatedAt":       job.UpdatedAt,
	}
	if job.UserID != "" {
		resp["userId"] = job.UserID
	}
	if job.DocumentType != "" {
		resp["documentType"] = job.DocumentType
	}
	if job.StartedAt != nil {
		resp["startedAt"] = job.StartedAt
	}
	if job.CompletedAt != nil {
		resp["completedAt"] = job.CompletedAt
	}
	return resp
}
