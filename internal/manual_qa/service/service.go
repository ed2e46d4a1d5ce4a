// Package service is the application layer of the manual QA system: it owns
// ingestion job tracking and exposes the operations the HTTP API calls.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"manualqa/internal/manual_qa/rag/generator"
	"manualqa/internal/manual_qa/rag/interfaces"
	"manualqa/internal/manual_qa/rag/pipeline"
	"manualqa/internal/manual_qa/rag/ragerr"
	"manualqa/internal/models"
	"manualqa/pkg/logger"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of an asynchronous ingestion.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// IngestionJob tracks one asynchronous ingestion.
type IngestionJob struct {
	ID         string    `json:"id"`
	Status     JobStatus `json:"status"`
	Message    string    `json:"message,omitempty"`
	Percent    float64   `json:"percent"`
	DocumentID string    `json:"document_id,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Service coordinates the ingestion and query pipelines and tracks async
// ingestion jobs in memory.
type Service struct {
	ingestion *pipeline.IngestionPipeline
	query     *pipeline.QueryPipeline
	avail     *generator.Availability
	store     interfaces.DocumentStore
	log       *logger.Logger

	mu   sync.RWMutex
	jobs map[string]*IngestionJob
}

// New creates a Service over the two pipelines.
func New(
	ingestion *pipeline.IngestionPipeline,
	query *pipeline.QueryPipeline,
	avail *generator.Availability,
	store interfaces.DocumentStore,
	log *logger.Logger,
) *Service {
	return &Service{
		ingestion: ingestion,
		query:     query,
		avail:     avail,
		store:     store,
		log:       log,
		jobs:      make(map[string]*IngestionJob),
	}
}

// IngestDocument runs ingestion synchronously and returns the processed
// document.
func (s *Service) IngestDocument(ctx context.Context, data []byte, name string, vehicle models.VehicleMetadata) (*models.Document, error) {
	return s.ingestion.Run(ctx, data, name, vehicle, nil)
}

// StartIngestion runs ingestion in the background and returns a job ID the
// caller can poll. The job context is detached from the request context so an
// upload does not abort when the HTTP connection closes.
func (s *Service) StartIngestion(data []byte, name string, vehicle models.VehicleMetadata) string {
	job := &IngestionJob{
		ID:        uuid.New().String(),
		Status:    JobRunning,
		StartedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	progress := make(chan pipeline.Progress, 8)
	go func() {
		for p := range progress {
			s.mu.Lock()
			job.Message = p.Message
			job.Percent = p.Percent
			s.mu.Unlock()
		}
	}()

	go func() {
		doc, err := s.ingestion.Run(context.Background(), data, name, vehicle, progress)
		s.mu.Lock()
		defer s.mu.Unlock()
		job.FinishedAt = time.Now().UTC()
		if err != nil {
			job.Status = JobFailed
			job.Error = err.Error()
			return
		}
		job.Status = JobSucceeded
		job.DocumentID = doc.ID
		job.Percent = 1.0
	}()

	return job.ID
}

// Job returns a snapshot of the given ingestion job, or nil if unknown.
func (s *Service) Job(id string) *IngestionJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil
	}
	cp := *job
	return &cp
}

// QueryDocument answers a question against one ingested document.
func (s *Service) QueryDocument(ctx context.Context, documentID, question string) (*pipeline.QueryResult, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ragerr.ErrDocumentNotFound
	}
	return s.query.Run(ctx, doc, question)
}

// AskGeneral answers a free-text question without document grounding.
func (s *Service) AskGeneral(ctx context.Context, question string) (string, error) {
	return s.query.AskGeneral(ctx, question)
}

// GetDocument loads a document with its chunks.
func (s *Service) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ragerr.ErrDocumentNotFound
	}
	return doc, nil
}

// ListDocuments lists all ingested documents.
func (s *Service) ListDocuments(ctx context.Context) ([]*models.Document, error) {
	return s.store.ListDocuments(ctx)
}

// DeleteDocument removes a document, its chunks and its query history.
func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	return s.store.DeleteDocument(ctx, id)
}

// Availability returns the generator's current state and reason.
func (s *Service) Availability() (generator.AvailabilityState, string) {
	return s.avail.Current()
}

// RefreshAvailability re-probes the generator backend.
func (s *Service) RefreshAvailability(ctx context.Context) (generator.AvailabilityState, string) {
	return s.avail.Refresh(ctx)
}

// Guidance maps a pipeline error to a remediation hint for end users. It
// returns an empty string for errors with nothing actionable.
func Guidance(err error) string {
	var unavailable *ragerr.GeneratorUnavailableError
	switch {
	case errors.Is(err, ragerr.ErrDocumentUnreadable):
		return "The file could not be read as a PDF. Re-export the manual as a standard PDF and upload it again."
	case errors.Is(err, ragerr.ErrDocumentEmpty):
		return "The PDF contains no pages. Check the export and upload a complete file."
	case errors.Is(err, ragerr.ErrNotProcessed):
		return "This document has not finished processing. Wait for ingestion to complete, then retry."
	case errors.Is(err, ragerr.ErrNoRelevantContent):
		return "Nothing in this manual matched the question. Try rephrasing with terms the manual uses."
	case errors.Is(err, ragerr.ErrGenerationTimeout):
		return "The answer took too long to generate. Resubmit the question to try again."
	case errors.As(err, &unavailable):
		switch generator.AvailabilityState(unavailable.State) {
		case generator.StateDownloading:
			return "The answer model is still downloading. Retry once the download finishes."
		case generator.StateDisabled:
			return "Answer generation is disabled in the configuration."
		case generator.StateDeviceUnsupported:
			return "This host cannot run the answer model."
		default:
			return "The answer service is unavailable. Refresh availability and retry."
		}
	}
	return ""
}
