// Package pipeline wires the extraction, chunking, tagging, retrieval and
// generation stages into the two end-to-end flows: ingesting a manual and
// answering a question against it.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"manualqa/internal/manual_qa/rag/interfaces"
	"manualqa/internal/manual_qa/rag/schema"
	"manualqa/internal/models"
	"manualqa/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// chunkEmbeddingWordCap bounds how many content words feed a chunk's
// precomputed embedding.
const chunkEmbeddingWordCap = 100

// Progress is one ingestion progress report.
type Progress struct {
	Message string  `json:"message"`
	Percent float64 `json:"percent"`
}

// IngestionPipeline turns an uploaded PDF into a processed document. The
// whole pipeline runs in memory and persists exactly once at the end: a
// failure at any stage leaves no trace in storage.
type IngestionPipeline struct {
	extractor interfaces.TextExtractor
	splitter  interfaces.SectionSplitter
	chunker   interfaces.PassageChunker
	tagger    interfaces.KeywordTagger
	embedder  interfaces.EmbeddingProvider // optional
	store     interfaces.DocumentStore
	blobs     interfaces.BlobStore // optional
	log       *logger.Logger
}

// NewIngestionPipeline assembles an ingestion pipeline. embedder and blobs
// may be nil; the pipeline then skips chunk embeddings and raw-file archival.
func NewIngestionPipeline(
	extractor interfaces.TextExtractor,
	splitter interfaces.SectionSplitter,
	chunker interfaces.PassageChunker,
	tagger interfaces.KeywordTagger,
	embedder interfaces.EmbeddingProvider,
	store interfaces.DocumentStore,
	blobs interfaces.BlobStore,
	log *logger.Logger,
) *IngestionPipeline {
	return &IngestionPipeline{
		extractor: extractor,
		splitter:  splitter,
		chunker:   chunker,
		tagger:    tagger,
		embedder:  embedder,
		store:     store,
		blobs:     blobs,
		log:       log,
	}
}

// Run ingests one document. progress may be nil; when set it receives stage
// reports and is closed before Run returns.
func (p *IngestionPipeline) Run(ctx context.Context, data []byte, name string, vehicle models.VehicleMetadata, progress chan<- Progress) (*models.Document, error) {
	defer func() {
		if progress != nil {
			close(progress)
		}
	}()

	report := func(msg string, pct float64) {
		if progress != nil {
			progress <- Progress{Message: msg, Percent: pct}
		}
	}

	log := p.log.WithDocument(name)
	log.Info("starting ingestion")
	report("extracting text", 0.1)

	extraction, err := p.extractor.Extract(data)
	if err != nil {
		return nil, err
	}

	report("splitting sections", 0.3)
	sections := p.splitter.Split(extraction.FullText)

	report("chunking passages", 0.4)
	passages, err := p.chunkSections(ctx, sections, extraction.PageTexts)
	if err != nil {
		return nil, err
	}

	report("tagging keywords", 0.6)
	docID := uuid.New().String()
	chunks, err := p.buildChunks(ctx, docID, passages)
	if err != nil {
		return nil, err
	}

	// Everything above happened in memory. Refuse to persist a document for
	// a caller that has already gone away.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if p.blobs != nil {
		report("archiving original file", 0.8)
		if err := p.blobs.Archive(ctx, docID+".pdf", data, "application/pdf"); err != nil {
			log.WithError(err).Warn("raw file archival failed; continuing without archive")
		}
	}

	doc := &models.Document{
		ID:         docID,
		Name:       name,
		Vehicle:    vehicle,
		UploadedAt: time.Now().UTC(),
		PageCount:  extraction.PageCount,
		FullText:   extraction.FullText,
		Processed:  true,
		Chunks:     chunks,
	}

	report("persisting", 0.9)
	if err := p.store.CreateDocumentWithChunks(ctx, doc); err != nil {
		return nil, err
	}

	log.WithPayload(map[string]interface{}{
		"document_id": docID,
		"pages":       extraction.PageCount,
		"sections":    len(sections),
		"chunks":      len(chunks),
	}).Info("ingestion complete")
	report("done", 1.0)
	return doc, nil
}

// chunkSections chunks every section concurrently, then flattens the results
// back into section order so chunk positions are deterministic.
func (p *IngestionPipeline) chunkSections(ctx context.Context, sections []schema.Section, pageTexts map[int]string) ([]schema.Passage, error) {
	results := make([][]schema.Passage, len(sections))
	g, _ := errgroup.WithContext(ctx)
	for i, section := range sections {
		g.Go(func() error {
			results[i] = p.chunker.Chunk(section, pageTexts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var flat []schema.Passage
	for _, passages := range results {
		flat = append(flat, passages...)
	}
	return flat, nil
}

// buildChunks tags each passage with keywords concurrently and, when an
// embedder is configured, precomputes its embedding as the mean vector over
// its leading content words.
func (p *IngestionPipeline) buildChunks(ctx context.Context, docID string, passages []schema.Passage) ([]models.Chunk, error) {
	chunks := make([]models.Chunk, len(passages))
	g, gctx := errgroup.WithContext(ctx)
	for i, passage := range passages {
		g.Go(func() error {
			kws, err := p.tagger.Keywords(passage.Content)
			if err != nil {
				return fmt.Errorf("keyword extraction for chunk %d: %w", i, err)
			}
			chunks[i] = models.Chunk{
				ID:             uuid.New().String(),
				DocumentID:     docID,
				Content:        passage.Content,
				PageNumbers:    passage.Pages,
				Position:       i,
				TokenCount:     passage.TokenCount,
				SectionHeading: passage.Heading,
				Keywords:       kws,
			}
			if p.embedder != nil {
				chunks[i].Embedding = p.embedChunk(gctx, passage.Content)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return chunks, nil
}

// embedChunk averages the vectors of the chunk's leading content words.
// Embedding failures degrade to no stored vector; the retriever falls back to
// lexical scoring for such chunks.
func (p *IngestionPipeline) embedChunk(ctx context.Context, content string) []float32 {
	words, err := p.tagger.ContentWords(content)
	if err != nil || len(words) == 0 {
		return nil
	}
	if len(words) > chunkEmbeddingWordCap {
		words = words[:chunkEmbeddingWordCap]
	}
	var sum []float32
	count := 0
	for _, w := range words {
		vec, err := p.embedder.Vector(ctx, w)
		if err != nil || vec == nil {
			continue
		}
		if sum == nil {
			sum = make([]float32, len(vec))
		}
		if len(vec) != len(sum) {
			continue
		}
		for j, v := range vec {
			sum[j] += v
		}
		count++
	}
	if count == 0 {
		return nil
	}
	for j := range sum {
		sum[j] /= float32(count)
	}
	return sum
}
