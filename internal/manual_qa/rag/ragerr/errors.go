// Package ragerr defines the error taxonomy of the QA pipeline. Callers are
// expected to branch with errors.Is / errors.As; nothing in this package is
// retried automatically by the pipeline.
package ragerr

import (
	"errors"
	"fmt"
)

var (
	// ErrDocumentUnreadable means the uploaded bytes could not be parsed as a PDF.
	ErrDocumentUnreadable = errors.New("document unreadable")

	// ErrDocumentEmpty means parsing succeeded but the document has zero pages.
	ErrDocumentEmpty = errors.New("document has no pages")

	// ErrDocumentNotFound means the requested document does not exist.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrNotProcessed means a query targeted a document whose chunk set was
	// never fully persisted.
	ErrNotProcessed = errors.New("document not processed")

	// ErrNoRelevantContent means retrieval produced an empty result set.
	ErrNoRelevantContent = errors.New("no relevant content found")

	// ErrPersistenceFailed wraps storage-layer failures.
	ErrPersistenceFailed = errors.New("persistence failed")

	// ErrGenerationTimeout means the generator did not answer within the
	// caller-supplied deadline. Resubmitting is the caller's decision.
	ErrGenerationTimeout = errors.New("generation timed out")
)

// GeneratorUnavailableError is returned when the generation capability is not
// in the Available state. State carries the availability state name and
// Reason the human-readable cause (e.g. "model not downloaded").
type GeneratorUnavailableError struct {
	State  string
	Reason string
}

func (e *GeneratorUnavailableError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("generator unavailable: %s", e.State)
	}
	return fmt.Sprintf("generator unavailable: %s (%s)", e.State, e.Reason)
}

// GeneratorFailedError is returned when an available generator failed to
// produce an answer.
type GeneratorFailedError struct {
	Message string
	Err     error
}

func (e *GeneratorFailedError) Error() string {
	return fmt.Sprintf("generator failed: %s", e.Message)
}

func (e *GeneratorFailedError) Unwrap() error {
	return e.Err
}

// SchemaParseError is returned when generator output does not conform to the
// requested answer schema.
type SchemaParseError struct {
	Field   string
	Message string
}

func (e *SchemaParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema violation: %s", e.Message)
	}
	return fmt.Sprintf("schema violation at %q: %s", e.Field, e.Message)
}
