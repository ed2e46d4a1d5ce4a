package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"manualqa/internal/manual_qa/rag/generator"
	"manualqa/internal/manual_qa/rag/interfaces"
	"manualqa/internal/manual_qa/rag/ragerr"
	"manualqa/internal/manual_qa/rag/retriever"
	"manualqa/internal/manual_qa/rag/schema"
	"manualqa/internal/models"
	"manualqa/pkg/logger"

	"github.com/google/uuid"
)

// QueryResult is a successful document-grounded answer together with the
// evidence it was built from.
type QueryResult struct {
	Record   *models.QueryRecord
	Answer   *schema.Answer
	Evidence []retriever.ScoredChunk
}

// QueryPipeline answers questions against a processed document. A query
// record is persisted only for successful generations.
type QueryPipeline struct {
	retriever *retriever.HybridRetriever
	generator interfaces.AnswerGenerator
	avail     *generator.Availability
	store     interfaces.DocumentStore
	topK      int
	timeout   time.Duration
	log       *logger.Logger
}

// NewQueryPipeline assembles a query pipeline. A timeout of zero disables the
// generation deadline.
func NewQueryPipeline(
	r *retriever.HybridRetriever,
	gen interfaces.AnswerGenerator,
	avail *generator.Availability,
	store interfaces.DocumentStore,
	topK int,
	timeout time.Duration,
	log *logger.Logger,
) *QueryPipeline {
	return &QueryPipeline{
		retriever: r,
		generator: gen,
		avail:     avail,
		store:     store,
		topK:      topK,
		timeout:   timeout,
		log:       log,
	}
}

// Run answers one question against one document.
func (p *QueryPipeline) Run(ctx context.Context, doc *models.Document, question string) (*QueryResult, error) {
	if !doc.Processed {
		return nil, ragerr.ErrNotProcessed
	}
	if err := p.checkAvailable(); err != nil {
		return nil, err
	}

	log := p.log.WithDocument(doc.Name).WithQuery(question)

	chunks := make([]*models.Chunk, len(doc.Chunks))
	for i := range doc.Chunks {
		chunks[i] = &doc.Chunks[i]
	}
	evidence, err := p.retriever.Retrieve(ctx, question, chunks, p.topK)
	if err != nil {
		return nil, err
	}
	if len(evidence) == 0 {
		return nil, ragerr.ErrNoRelevantContent
	}

	prompt := BuildPrompt(doc.Name, question, evidence)
	answer, err := p.generate(ctx, prompt)
	if err != nil {
		log.WithError(err).Warn("generation failed; no query record written")
		return nil, err
	}

	rec := &models.QueryRecord{
		ID:            uuid.New().String(),
		DocumentID:    doc.ID,
		Query:         question,
		Answer:        answer.Answer,
		SourcePages:   answer.SourcePages,
		Confidence:    string(answer.Confidence),
		FollowUps:     answer.SuggestedFollowUps,
		MeanRelevance: meanRelevance(evidence),
		CreatedAt:     time.Now().UTC(),
		Evidence:      evidenceChunks(evidence),
	}
	if err := p.store.CreateQueryRecord(ctx, rec); err != nil {
		return nil, err
	}

	log.WithPayload(map[string]interface{}{
		"record_id":      rec.ID,
		"confidence":     rec.Confidence,
		"mean_relevance": rec.MeanRelevance,
		"evidence":       len(evidence),
	}).Info("query answered")
	return &QueryResult{Record: rec, Answer: answer, Evidence: evidence}, nil
}

// AskGeneral answers a free-text question with no document grounding. No
// record is persisted for general questions.
func (p *QueryPipeline) AskGeneral(ctx context.Context, question string) (string, error) {
	if err := p.checkAvailable(); err != nil {
		return "", err
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	text, err := p.generator.GenerateText(ctx, question)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ragerr.ErrGenerationTimeout, err)
		}
		return "", &ragerr.GeneratorFailedError{Message: "free-text generation failed", Err: err}
	}
	return text, nil
}

func (p *QueryPipeline) checkAvailable() error {
	if p.avail.Ready() {
		return nil
	}
	state, reason := p.avail.Current()
	return &ragerr.GeneratorUnavailableError{State: string(state), Reason: reason}
}

func (p *QueryPipeline) generate(ctx context.Context, prompt string) (*schema.Answer, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	answer, err := p.generator.GenerateAnswer(ctx, prompt, schema.DefaultAnswerSchema())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ragerr.ErrGenerationTimeout, err)
		}
		var schemaErr *ragerr.SchemaParseError
		if errors.As(err, &schemaErr) {
			return nil, err
		}
		return nil, &ragerr.GeneratorFailedError{Message: "answer generation failed", Err: err}
	}
	return answer, nil
}

// BuildContext renders the evidence chunks as numbered excerpts with their
// section and page attribution.
func BuildContext(evidence []retriever.ScoredChunk) string {
	var sb strings.Builder
	for i, ev := range evidence {
		fmt.Fprintf(&sb, "Excerpt %d", i+1)
		if ev.Chunk.SectionHeading != "" {
			fmt.Fprintf(&sb, " (Section: %s)", ev.Chunk.SectionHeading)
		}
		if len(ev.Chunk.PageNumbers) > 0 {
			fmt.Fprintf(&sb, " (Pages: %s)", joinPages(ev.Chunk.PageNumbers))
		}
		sb.WriteString(":\n")
		sb.WriteString(ev.Chunk.Content)
		sb.WriteString("\n\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// BuildPrompt composes the grounded-generation prompt from the document name,
// the question and the retrieved excerpts.
func BuildPrompt(docName, question string, evidence []retriever.ScoredChunk) string {
	var sb strings.Builder
	sb.WriteString("You are an expert assistant answering questions about the manual ")
	fmt.Fprintf(&sb, "%q.\n", docName)
	sb.WriteString("Answer using ONLY the excerpts below. ")
	sb.WriteString("Cite the page numbers you relied on. ")
	sb.WriteString("If the excerpts do not contain the answer, say so honestly and set confidence to low.\n\n")
	fmt.Fprintf(&sb, "Question: %s\n\n", question)
	sb.WriteString(BuildContext(evidence))
	return sb.String()
}

func joinPages(pages []int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return strings.Join(parts, ", ")
}

func meanRelevance(evidence []retriever.ScoredChunk) float64 {
	if len(evidence) == 0 {
		return 0
	}
	var sum float64
	for _, ev := range evidence {
		sum += ev.Relevance
	}
	return sum / float64(len(evidence))
}

func evidenceChunks(evidence []retriever.ScoredChunk) []models.Chunk {
	out := make([]models.Chunk, len(evidence))
	for i, ev := range evidence {
		out[i] = *ev.Chunk
	}
	return out
}
