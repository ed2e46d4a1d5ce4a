package pipeline

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"manualqa/internal/manual_qa/rag/chunker"
	"manualqa/internal/manual_qa/rag/generator"
	"manualqa/internal/manual_qa/rag/keywords"
	"manualqa/internal/manual_qa/rag/ragerr"
	"manualqa/internal/manual_qa/rag/retriever"
	"manualqa/internal/manual_qa/rag/schema"
	"manualqa/internal/manual_qa/rag/splitter"
	"manualqa/internal/manual_qa/rag/storages/docstore"
	"manualqa/internal/models"
	"manualqa/pkg/logger"

	"github.com/sirupsen/logrus"
)

func testLogger() *logger.Logger {
	logger.Init(logrus.ErrorLevel)
	return logger.New("pipeline_test", "")
}

// fakeExtractor returns a canned extraction or a canned error.
type fakeExtractor struct {
	extraction *schema.Extraction
	err        error
}

func (f *fakeExtractor) Extract([]byte) (*schema.Extraction, error) {
	return f.extraction, f.err
}

// fakeGenerator returns a canned answer or a canned error.
type fakeGenerator struct {
	answer *schema.Answer
	text   string
	err    error
	calls  int
}

func (f *fakeGenerator) GenerateAnswer(context.Context, string, *schema.AnswerSchema) (*schema.Answer, error) {
	f.calls++
	return f.answer, f.err
}

func (f *fakeGenerator) GenerateText(context.Context, string) (string, error) {
	f.calls++
	return f.text, f.err
}

func manualExtraction() *schema.Extraction {
	page1 := "ENGINE OIL\nCheck the engine oil level weekly with the dipstick. Replace the oil filter at every change."
	page2 := "TIRE PRESSURE\nInflate all tires to 32 psi when cold. Check the pressure monthly."
	return &schema.Extraction{
		PageCount: 2,
		FullText:  page1 + "\n" + page2,
		PageTexts: map[int]string{1: page1, 2: page2},
	}
}

func newIngestion(store *docstore.InMemoryStore, ext *fakeExtractor) *IngestionPipeline {
	return NewIngestionPipeline(
		ext,
		splitter.NewSectionSplitter(),
		chunker.NewPassageChunker(chunker.DefaultProfile()),
		keywords.NewDeterministic(),
		nil,
		store,
		nil,
		testLogger(),
	)
}

func availableTracker() *generator.Availability {
	a := generator.NewAvailability(generator.StaticProber{State: generator.StateAvailable})
	a.Refresh(context.Background())
	return a
}

func newQuery(store *docstore.InMemoryStore, gen *fakeGenerator, avail *generator.Availability) *QueryPipeline {
	r := retriever.NewHybridRetriever(keywords.NewDeterministic(), nil, retriever.DefaultWeights(), testLogger())
	return NewQueryPipeline(r, gen, avail, store, 5, time.Minute, testLogger())
}

func TestIngestionProducesProcessedDocument(t *testing.T) {
	store := docstore.NewInMemoryStore()
	p := newIngestion(store, &fakeExtractor{extraction: manualExtraction()})

	doc, err := p.Run(context.Background(), []byte("pdf"), "owner-manual.pdf",
		models.VehicleMetadata{Make: "Acme", Model: "Roadster", Year: 2020}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !doc.Processed {
		t.Error("document must be marked processed")
	}
	if doc.PageCount != 2 {
		t.Errorf("page count = %d, want 2", doc.PageCount)
	}
	if len(doc.Chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for i, chunk := range doc.Chunks {
		if chunk.Position != i {
			t.Errorf("chunk %d has position %d", i, chunk.Position)
		}
		if chunk.DocumentID != doc.ID {
			t.Errorf("chunk %d has document ID %q", i, chunk.DocumentID)
		}
		if len(chunk.Keywords) == 0 {
			t.Errorf("chunk %d has no keywords", i)
		}
	}

	stored, err := store.GetDocument(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if stored == nil || len(stored.Chunks) != len(doc.Chunks) {
		t.Errorf("stored document does not match ingested one")
	}
}

func TestIngestionAttributesPages(t *testing.T) {
	store := docstore.NewInMemoryStore()
	p := newIngestion(store, &fakeExtractor{extraction: manualExtraction()})

	doc, err := p.Run(context.Background(), []byte("pdf"), "m.pdf", models.VehicleMetadata{}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var oilPages, tirePages []int
	for _, chunk := range doc.Chunks {
		switch chunk.SectionHeading {
		case "ENGINE OIL":
			oilPages = chunk.PageNumbers
		case "TIRE PRESSURE":
			tirePages = chunk.PageNumbers
		}
	}
	if !reflect.DeepEqual(oilPages, []int{1}) {
		t.Errorf("oil section pages = %v, want [1]", oilPages)
	}
	if !reflect.DeepEqual(tirePages, []int{2}) {
		t.Errorf("tire section pages = %v, want [2]", tirePages)
	}
}

func TestIngestionFailurePersistsNothing(t *testing.T) {
	store := docstore.NewInMemoryStore()
	p := newIngestion(store, &fakeExtractor{err: ragerr.ErrDocumentUnreadable})

	_, err := p.Run(context.Background(), []byte("junk"), "bad.pdf", models.VehicleMetadata{}, nil)
	if !errors.Is(err, ragerr.ErrDocumentUnreadable) {
		t.Fatalf("err = %v, want ErrDocumentUnreadable", err)
	}
	docs, _ := store.ListDocuments(context.Background())
	if len(docs) != 0 {
		t.Errorf("failed ingestion left %d documents behind", len(docs))
	}
}

func TestIngestionCancelledBeforePersist(t *testing.T) {
	store := docstore.NewInMemoryStore()
	p := newIngestion(store, &fakeExtractor{extraction: manualExtraction()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Run(ctx, []byte("pdf"), "m.pdf", models.VehicleMetadata{}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	docs, _ := store.ListDocuments(context.Background())
	if len(docs) != 0 {
		t.Errorf("cancelled ingestion left %d documents behind", len(docs))
	}
}

func TestIngestionReportsProgressAndClosesChannel(t *testing.T) {
	store := docstore.NewInMemoryStore()
	p := newIngestion(store, &fakeExtractor{extraction: manualExtraction()})

	progress := make(chan Progress, 16)
	done := make(chan []Progress)
	go func() {
		var got []Progress
		for report := range progress {
			got = append(got, report)
		}
		done <- got
	}()

	if _, err := p.Run(context.Background(), []byte("pdf"), "m.pdf", models.VehicleMetadata{}, progress); err != nil {
		t.Fatalf("Run: %v", err)
	}
	reports := <-done
	if len(reports) == 0 {
		t.Fatal("expected progress reports")
	}
	last := reports[len(reports)-1]
	if last.Percent != 1.0 {
		t.Errorf("final report percent = %f, want 1.0", last.Percent)
	}
	for i := 1; i < len(reports); i++ {
		if reports[i].Percent < reports[i-1].Percent {
			t.Errorf("progress went backwards at report %d", i)
		}
	}
}

func TestIngestionIsDeterministic(t *testing.T) {
	runOnce := func() *models.Document {
		store := docstore.NewInMemoryStore()
		p := newIngestion(store, &fakeExtractor{extraction: manualExtraction()})
		doc, err := p.Run(context.Background(), []byte("pdf"), "m.pdf", models.VehicleMetadata{}, nil)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return doc
	}
	first := runOnce()
	second := runOnce()

	if len(first.Chunks) != len(second.Chunks) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first.Chunks), len(second.Chunks))
	}
	for i := range first.Chunks {
		a, b := first.Chunks[i], second.Chunks[i]
		if a.Content != b.Content {
			t.Errorf("chunk %d content differs", i)
		}
		if !reflect.DeepEqual(a.Keywords, b.Keywords) {
			t.Errorf("chunk %d keywords differ: %v vs %v", i, a.Keywords, b.Keywords)
		}
		if !reflect.DeepEqual(a.PageNumbers, b.PageNumbers) {
			t.Errorf("chunk %d pages differ: %v vs %v", i, a.PageNumbers, b.PageNumbers)
		}
	}
}

func ingestedDoc(t *testing.T, store *docstore.InMemoryStore) *models.Document {
	t.Helper()
	p := newIngestion(store, &fakeExtractor{extraction: manualExtraction()})
	doc, err := p.Run(context.Background(), []byte("pdf"), "owner-manual.pdf", models.VehicleMetadata{}, nil)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	return doc
}

func TestQueryAnswersAndPersistsRecord(t *testing.T) {
	store := docstore.NewInMemoryStore()
	doc := ingestedDoc(t, store)

	gen := &fakeGenerator{answer: &schema.Answer{
		Answer:      "Check the oil weekly with the dipstick.",
		SourcePages: []int{1},
		Confidence:  schema.ConfidenceHigh,
	}}
	q := newQuery(store, gen, availableTracker())

	result, err := q.Run(context.Background(), doc, "How often should I check the engine oil?")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Record.Answer != gen.answer.Answer {
		t.Errorf("record answer = %q", result.Record.Answer)
	}
	if result.Record.Confidence != "high" {
		t.Errorf("record confidence = %q", result.Record.Confidence)
	}
	if len(result.Evidence) == 0 {
		t.Error("expected evidence")
	}
	if result.Record.MeanRelevance <= 0 || result.Record.MeanRelevance > 1 {
		t.Errorf("mean relevance = %f", result.Record.MeanRelevance)
	}

	records := store.QueryRecords(doc.ID)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if len(records[0].Evidence) != len(result.Evidence) {
		t.Errorf("persisted evidence size %d, want %d", len(records[0].Evidence), len(result.Evidence))
	}
}

func TestQueryRejectsUnprocessedDocument(t *testing.T) {
	store := docstore.NewInMemoryStore()
	gen := &fakeGenerator{}
	q := newQuery(store, gen, availableTracker())

	doc := &models.Document{ID: "d1", Name: "m.pdf", Processed: false}
	_, err := q.Run(context.Background(), doc, "anything")
	if !errors.Is(err, ragerr.ErrNotProcessed) {
		t.Fatalf("err = %v, want ErrNotProcessed", err)
	}
	if gen.calls != 0 {
		t.Error("generator must not be called for unprocessed documents")
	}
}

func TestQueryRejectedWhenGeneratorUnavailable(t *testing.T) {
	store := docstore.NewInMemoryStore()
	doc := ingestedDoc(t, store)

	avail := generator.NewAvailability(generator.StaticProber{
		State:  generator.StateDownloading,
		Reason: "pulling model",
	})
	avail.Refresh(context.Background())
	gen := &fakeGenerator{}
	q := newQuery(store, gen, avail)

	_, err := q.Run(context.Background(), doc, "How often should I check the oil?")
	var unavailable *ragerr.GeneratorUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("err = %v, want GeneratorUnavailableError", err)
	}
	if unavailable.State != string(generator.StateDownloading) {
		t.Errorf("state = %q", unavailable.State)
	}
	if gen.calls != 0 {
		t.Error("generator must not be called while unavailable")
	}
}

func TestQueryNoRelevantContent(t *testing.T) {
	store := docstore.NewInMemoryStore()
	gen := &fakeGenerator{}
	q := newQuery(store, gen, availableTracker())

	// Processed but chunkless: retrieval has nothing to rank.
	doc := &models.Document{ID: "d1", Name: "m.pdf", Processed: true}
	_, err := q.Run(context.Background(), doc, "anything at all")
	if !errors.Is(err, ragerr.ErrNoRelevantContent) {
		t.Fatalf("err = %v, want ErrNoRelevantContent", err)
	}
	if gen.calls != 0 {
		t.Error("generator must not be called without evidence")
	}
}

func TestQueryGeneratorFailureLeavesNoRecord(t *testing.T) {
	store := docstore.NewInMemoryStore()
	doc := ingestedDoc(t, store)

	gen := &fakeGenerator{err: errors.New("backend exploded")}
	q := newQuery(store, gen, availableTracker())

	_, err := q.Run(context.Background(), doc, "How often should I check the oil?")
	var failed *ragerr.GeneratorFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("err = %v, want GeneratorFailedError", err)
	}
	if records := store.QueryRecords(doc.ID); len(records) != 0 {
		t.Errorf("failed generation persisted %d records", len(records))
	}
}

func TestQueryTimeoutMapsToSentinel(t *testing.T) {
	store := docstore.NewInMemoryStore()
	doc := ingestedDoc(t, store)

	gen := &fakeGenerator{err: context.DeadlineExceeded}
	q := newQuery(store, gen, availableTracker())

	_, err := q.Run(context.Background(), doc, "How often should I check the oil?")
	if !errors.Is(err, ragerr.ErrGenerationTimeout) {
		t.Fatalf("err = %v, want ErrGenerationTimeout", err)
	}
	if records := store.QueryRecords(doc.ID); len(records) != 0 {
		t.Errorf("timed-out generation persisted %d records", len(records))
	}
}

func TestQuerySchemaViolationPassedThrough(t *testing.T) {
	store := docstore.NewInMemoryStore()
	doc := ingestedDoc(t, store)

	gen := &fakeGenerator{err: &ragerr.SchemaParseError{Field: "answer", Message: "missing"}}
	q := newQuery(store, gen, availableTracker())

	_, err := q.Run(context.Background(), doc, "How often should I check the oil?")
	var schemaErr *ragerr.SchemaParseError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("err = %v, want SchemaParseError", err)
	}
}

func TestAskGeneral(t *testing.T) {
	store := docstore.NewInMemoryStore()
	gen := &fakeGenerator{text: "Most manufacturers recommend annual oil changes."}
	q := newQuery(store, gen, availableTracker())

	text, err := q.AskGeneral(context.Background(), "How often do cars need oil changes?")
	if err != nil {
		t.Fatalf("AskGeneral: %v", err)
	}
	if text != gen.text {
		t.Errorf("text = %q", text)
	}
}

func TestAskGeneralUnavailable(t *testing.T) {
	store := docstore.NewInMemoryStore()
	avail := generator.NewAvailability(generator.StaticProber{State: generator.StateDisabled})
	avail.Refresh(context.Background())
	q := newQuery(store, &fakeGenerator{}, avail)

	_, err := q.AskGeneral(context.Background(), "anything")
	var unavailable *ragerr.GeneratorUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("err = %v, want GeneratorUnavailableError", err)
	}
}

func TestBuildPromptContainsQuestionAndEvidence(t *testing.T) {
	chunk := &models.Chunk{
		Content:        "Inflate all tires to 32 psi when cold.",
		SectionHeading: "TIRE PRESSURE",
		PageNumbers:    []int{2},
	}
	evidence := []retriever.ScoredChunk{{Chunk: chunk, Relevance: 0.9}}
	prompt := BuildPrompt("owner-manual.pdf", "What is the tire pressure?", evidence)

	for _, want := range []string{
		"owner-manual.pdf",
		"What is the tire pressure?",
		"Inflate all tires to 32 psi when cold.",
		"TIRE PRESSURE",
		"Pages: 2",
		"Excerpt 1",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildContextNumbersExcerpts(t *testing.T) {
	evidence := []retriever.ScoredChunk{
		{Chunk: &models.Chunk{Content: "first passage"}},
		{Chunk: &models.Chunk{Content: "second passage"}},
	}
	got := BuildContext(evidence)
	if !strings.Contains(got, "Excerpt 1:") || !strings.Contains(got, "Excerpt 2:") {
		t.Errorf("context not numbered:\n%s", got)
	}
	if n := strings.Count(got, "Excerpt"); n != 2 {
		t.Errorf("got %d excerpts, want 2:\n%s", n, got)
	}
}
