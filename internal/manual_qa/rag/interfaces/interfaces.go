// Package interfaces defines the contracts between the stages of the QA
// pipeline so each stage can be swapped or faked independently.
package interfaces

import (
	"context"

	"manualqa/internal/manual_qa/rag/schema"
	"manualqa/internal/models"
)

// TextExtractor turns raw document bytes into per-page plain text.
type TextExtractor interface {
	Extract(data []byte) (*schema.Extraction, error)
}

// SectionSplitter groups full document text into heading-delimited sections.
// It never returns zero sections for non-empty input.
type SectionSplitter interface {
	Split(fullText string) []schema.Section
}

// PassageChunker splits one section into overlapping, size-bounded passages
// and attributes page numbers using the extractor's page map.
type PassageChunker interface {
	Chunk(section schema.Section, pageTexts map[int]string) []schema.Passage
}

// KeywordTagger derives representative keywords and content words from text.
type KeywordTagger interface {
	// Keywords returns up to ten representative keywords for chunk tagging.
	Keywords(text string) ([]string, error)
	// ContentWords returns the query-relevant words of a text, lower-cased,
	// deduplicated, in first-occurrence order.
	ContentWords(text string) ([]string, error)
}

// EmbeddingProvider maps a single word to its embedding vector. A nil vector
// with a nil error means no embedding exists for the word; that is not a
// failure and callers degrade gracefully.
type EmbeddingProvider interface {
	Vector(ctx context.Context, word string) ([]float32, error)
}

// AnswerGenerator is the external generation capability. GenerateAnswer asks
// for a result conforming to the answer schema; GenerateText is the free-text
// mode for document-free questions.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, prompt string, s *schema.AnswerSchema) (*schema.Answer, error)
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// DocumentStore persists documents, chunks and query records. A document and
// its chunks are inserted as one atomic unit; readers never observe a partial
// chunk set. GetDocument returns (nil, nil) when the document does not exist.
type DocumentStore interface {
	CreateDocumentWithChunks(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context) ([]*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	CreateQueryRecord(ctx context.Context, rec *models.QueryRecord) error
}

// BlobStore archives raw uploaded files.
type BlobStore interface {
	Archive(ctx context.Context, objectName string, data []byte, contentType string) error
}
