// Package api exposes the manual QA service over HTTP.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"manualqa/internal/manual_qa/rag/ragerr"
	"manualqa/internal/manual_qa/service"
	"manualqa/internal/models"
	"manualqa/pkg/logger"

	"github.com/gin-gonic/gin"
)

// maxUploadBytes caps PDF uploads at 64 MiB.
const maxUploadBytes = 64 << 20

// HealthCheck probes one backing dependency.
type HealthCheck func(ctx context.Context) error

// Handler holds the HTTP handlers for the manual QA API.
type Handler struct {
	svc    *service.Service
	log    *logger.Logger
	checks map[string]HealthCheck
}

// NewHandler creates the API handler set. checks maps a dependency name to
// its health probe; enabled backends register theirs in main.
func NewHandler(svc *service.Service, log *logger.Logger, checks map[string]HealthCheck) *Handler {
	return &Handler{svc: svc, log: log, checks: checks}
}

type queryRequest struct {
	Question string `json:"question" binding:"required"`
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

// UploadDocument ingests a PDF from a multipart form. With ?async=true the
// upload returns immediately with a job ID to poll.
func (h *Handler) UploadDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}

	name := c.PostForm("name")
	if name == "" {
		name = fileHeader.Filename
	}
	vehicle := models.VehicleMetadata{
		Make:  c.PostForm("make"),
		Model: c.PostForm("model"),
	}
	if y := c.PostForm("year"); y != "" {
		year, convErr := strconv.Atoi(y)
		if convErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "year must be an integer"})
			return
		}
		vehicle.Year = year
	}

	if c.Query("async") == "true" {
		jobID := h.svc.StartIngestion(data, name, vehicle)
		c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
		return
	}

	doc, err := h.svc.IngestDocument(c.Request.Context(), data, name, vehicle)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// GetIngestion reports the status of an asynchronous ingestion job.
func (h *Handler) GetIngestion(c *gin.Context) {
	job := h.svc.Job(c.Param("id"))
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown ingestion job"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// GetDocument returns one document with its chunks.
func (h *Handler) GetDocument(c *gin.Context) {
	doc, err := h.svc.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// ListDocuments returns all ingested documents.
func (h *Handler) ListDocuments(c *gin.Context) {
	docs, err := h.svc.ListDocuments(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// DeleteDocument removes a document and its query history.
func (h *Handler) DeleteDocument(c *gin.Context) {
	if err := h.svc.DeleteDocument(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// QueryDocument answers a question against one document.
func (h *Handler) QueryDocument(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}
	result, err := h.svc.QueryDocument(c.Request.Context(), c.Param("id"), req.Question)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result.Record)
}

// Ask answers a free-text question without document grounding.
func (h *Handler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}
	text, err := h.svc.AskGeneral(c.Request.Context(), req.Question)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": text})
}

// GetAvailability reports the generator's current availability.
func (h *Handler) GetAvailability(c *gin.Context) {
	state, reason := h.svc.Availability()
	c.JSON(http.StatusOK, gin.H{"state": state, "reason": reason})
}

// RefreshAvailability re-probes the generator backend.
func (h *Handler) RefreshAvailability(c *gin.Context) {
	state, reason := h.svc.RefreshAvailability(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"state": state, "reason": reason})
}

// Health reports service liveness plus the state of every registered
// dependency. Any failing dependency turns the overall status degraded and
// the response into a 503.
func (h *Handler) Health(c *gin.Context) {
	status := http.StatusOK
	deps := gin.H{}
	for name, check := range h.checks {
		if err := check(c.Request.Context()); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			deps[name] = "ok"
		}
	}
	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{"status": overall, "dependencies": deps})
}

// respondError maps pipeline errors to HTTP responses, attaching remediation
// guidance when there is something the caller can do.
func (h *Handler) respondError(c *gin.Context, err error) {
	body := gin.H{"error": err.Error()}
	if g := service.Guidance(err); g != "" {
		body["guidance"] = g
	}
	c.JSON(statusFor(err), body)
}

func statusFor(err error) int {
	var unavailable *ragerr.GeneratorUnavailableError
	var failed *ragerr.GeneratorFailedError
	var schemaErr *ragerr.SchemaParseError
	switch {
	case errors.Is(err, ragerr.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ragerr.ErrDocumentUnreadable),
		errors.Is(err, ragerr.ErrDocumentEmpty):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ragerr.ErrNotProcessed):
		return http.StatusConflict
	case errors.Is(err, ragerr.ErrNoRelevantContent):
		return http.StatusNotFound
	case errors.Is(err, ragerr.ErrGenerationTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &failed), errors.As(err, &schemaErr):
		return http.StatusBadGateway
	case errors.Is(err, ragerr.ErrPersistenceFailed):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
