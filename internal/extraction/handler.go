package extraction

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"findoc-backend/internal/docparse"
	"findoc-backend/internal/document"
	"findoc-backend/internal/shared/server/respond"
)

const maxExtractBytes = 25 << 20

// Handler exposes synchronous single-document extraction.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches extraction routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/extract", h.extract)
}

// extract accepts either a multipart upload (field "file") or an
// already-analyzed document as a JSON body.
func (h *Handler) extract(c *gin.Context) {
	var (
		doc document.Parsed
		err error
	)

	contentType := c.GetHeader("Content-Type")
	if strings.HasPrefix(contentType, "multipart/") {
		upload, uploadErr := c.FormFile("file")
		if uploadErr != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
			return
		}
		if upload.Size > maxExtractBytes {
			respond.Error(c, http.StatusBadRequest, "validation_error", "file exceeds size limit", nil)
			return
		}
		f, openErr := upload.Open()
		if openErr != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read upload", nil)
			return
		}
		defer f.Close()
		data, readErr := io.ReadAll(f)
		if readErr != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read upload", nil)
			return
		}
		doc, err = docparse.ParseBytes(c.Request.Context(), data, upload.Header.Get("Content-Type"), upload.Filename)
		if err != nil {
			respond.Error(c, http.StatusUnprocessableEntity, "unsupported_document", err.Error(), nil)
			return
		}
	} else {
		if err := c.ShouldBindJSON(&doc); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid document body", nil)
			return
		}
	}

	result, err := h.Svc.Process(c.Request.Context(), doc)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "extraction failed", nil)
		return
	}
	respond.JSON(c, http.StatusOK, result)
}
