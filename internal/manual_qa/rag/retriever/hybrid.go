package retriever

import (
	"context"
	"math"
	"sort"
	"strings"

	"manualqa/internal/manual_qa/rag/interfaces"
	"manualqa/internal/models"
	"manualqa/pkg/logger"
)

// MatchType labels which scoring signal carried a result.
type MatchType string

const (
	MatchHybrid   MatchType = "hybrid"
	MatchKeyword  MatchType = "keyword"
	MatchSemantic MatchType = "semantic"
)

// ScoredChunk is one retrieval result with its component scores.
type ScoredChunk struct {
	Chunk         *models.Chunk
	KeywordScore  float64
	SemanticScore float64
	Relevance     float64
	MatchType     MatchType
}

// Weights are the tunable parameters of the hybrid score.
type Weights struct {
	Keyword         float64 // weight of the lexical component
	Semantic        float64 // weight of the embedding component
	HybridThreshold float64 // both components above this mark a hybrid match
}

// DefaultWeights returns the production weighting.
func DefaultWeights() Weights {
	return Weights{Keyword: 0.4, Semantic: 0.6, HybridThreshold: 0.3}
}

const (
	// defaultTopK is used when the caller passes a non-positive topK.
	defaultTopK = 5
	// maxChunkContentWords caps how many of a chunk's content words feed the
	// semantic average, for embedding-call cost control.
	maxChunkContentWords = 100
	// keywordHitWeight / contentHitWeight score a query word found in the
	// chunk's keyword list versus anywhere in its content.
	keywordHitWeight = 2.0
	contentHitWeight = 1.0
)

// HybridRetriever ranks chunks against a query by combining keyword overlap
// with embedding similarity. The embedder may be nil, in which case scoring
// degrades to lexical overlap.
type HybridRetriever struct {
	tagger   interfaces.KeywordTagger
	embedder interfaces.EmbeddingProvider
	weights  Weights
	log      *logger.Logger
}

// NewHybridRetriever creates a retriever with the given tagger, optional
// embedder and weights.
func NewHybridRetriever(tagger interfaces.KeywordTagger, embedder interfaces.EmbeddingProvider, weights Weights, log *logger.Logger) *HybridRetriever {
	return &HybridRetriever{tagger: tagger, embedder: embedder, weights: weights, log: log}
}

// Retrieve scores every candidate chunk and returns the topK best, sorted by
// non-increasing relevance. The sort is stable: ties keep original chunk
// order. Every relevance score lies in [0,1].
func (r *HybridRetriever) Retrieve(ctx context.Context, query string, chunks []*models.Chunk, topK int) ([]ScoredChunk, error) {
	if topK <= 0 {
		topK = defaultTopK
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	queryWords, err := r.tagger.ContentWords(query)
	if err != nil {
		return nil, err
	}

	queryVec := r.averageVector(ctx, queryWords)

	scored := make([]ScoredChunk, 0, len(chunks))
	for _, chunk := range chunks {
		kw := r.keywordScore(queryWords, chunk)
		sem := r.semanticScore(ctx, queryWords, queryVec, chunk)
		rel := clamp01(r.weights.Keyword*kw + r.weights.Semantic*sem)

		var mt MatchType
		switch {
		case kw > r.weights.HybridThreshold && sem > r.weights.HybridThreshold:
			mt = MatchHybrid
		case kw > sem:
			mt = MatchKeyword
		default:
			mt = MatchSemantic
		}

		scored = append(scored, ScoredChunk{
			Chunk:         chunk,
			KeywordScore:  kw,
			SemanticScore: sem,
			Relevance:     rel,
			MatchType:     mt,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Relevance > scored[j].Relevance
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// ByPage returns the chunks attributed to the given page number.
func ByPage(chunks []*models.Chunk, page int) []*models.Chunk {
	var out []*models.Chunk
	for _, chunk := range chunks {
		for _, p := range chunk.PageNumbers {
			if p == page {
				out = append(out, chunk)
				break
			}
		}
	}
	return out
}

// ByHeading returns the chunks whose section heading case-insensitively
// contains the given substring.
func ByHeading(chunks []*models.Chunk, substr string) []*models.Chunk {
	needle := strings.ToLower(substr)
	var out []*models.Chunk
	for _, chunk := range chunks {
		if strings.Contains(strings.ToLower(chunk.SectionHeading), needle) {
			out = append(out, chunk)
		}
	}
	return out
}

// keywordScore awards 2.0 per query word in the chunk's keyword list, 1.0 per
// query word appearing anywhere in the content, normalized by query word
// count and clamped to [0,1].
func (r *HybridRetriever) keywordScore(queryWords []string, chunk *models.Chunk) float64 {
	if len(queryWords) == 0 {
		return 0
	}
	keywordSet := make(map[string]struct{}, len(chunk.Keywords))
	for _, k := range chunk.Keywords {
		keywordSet[strings.ToLower(k)] = struct{}{}
	}
	content := strings.ToLower(chunk.Content)

	var sum float64
	for _, w := range queryWords {
		if _, ok := keywordSet[w]; ok {
			sum += keywordHitWeight
		} else if strings.Contains(content, w) {
			sum += contentHitWeight
		}
	}
	return clamp01(sum / float64(len(queryWords)))
}

// semanticScore compares the averaged query vector with the chunk vector via
// cosine similarity. The chunk vector is its stored embedding when present,
// otherwise the average over its first hundred content words. When either
// side has no vector the score falls back to the word-overlap ratio
// |query ∩ chunk| / |query|.
func (r *HybridRetriever) semanticScore(ctx context.Context, queryWords []string, queryVec []float32, chunk *models.Chunk) float64 {
	chunkWords, err := r.tagger.ContentWords(chunk.Content)
	if err != nil {
		r.log.WithError(err).Warn("content word extraction failed; scoring chunk lexically")
		chunkWords = nil
	}
	if len(chunkWords) > maxChunkContentWords {
		chunkWords = chunkWords[:maxChunkContentWords]
	}

	if queryVec != nil {
		chunkVec := chunk.Embedding
		if len(chunkVec) == 0 {
			chunkVec = r.averageVector(ctx, chunkWords)
		}
		if chunkVec != nil {
			return clamp01(cosine(queryVec, chunkVec))
		}
	}

	// No embeddings on one or both sides: overlap ratio.
	if len(queryWords) == 0 {
		return 0
	}
	chunkSet := make(map[string]struct{}, len(chunkWords))
	for _, w := range chunkWords {
		chunkSet[w] = struct{}{}
	}
	matches := 0
	for _, w := range queryWords {
		if _, ok := chunkSet[w]; ok {
			matches++
		}
	}
	return clamp01(float64(matches) / float64(len(queryWords)))
}

// averageVector embeds each word and averages the vectors it gets back.
// Words without vectors are skipped; it returns nil when nothing embeds.
func (r *HybridRetriever) averageVector(ctx context.Context, words []string) []float32 {
	if r.embedder == nil || len(words) == 0 {
		return nil
	}
	var sum []float32
	count := 0
	for _, w := range words {
		vec, err := r.embedder.Vector(ctx, w)
		if err != nil {
			r.log.WithError(err).Debug("word embedding lookup failed; treating as absent")
			continue
		}
		if vec == nil {
			continue
		}
		if sum == nil {
			sum = make([]float32, len(vec))
		}
		if len(vec) != len(sum) {
			continue
		}
		for i, v := range vec {
			sum[i] += v
		}
		count++
	}
	if count == 0 {
		return nil
	}
	for i := range sum {
		sum[i] /= float32(count)
	}
	return sum
}

// cosine computes cosine similarity between two vectors of equal length.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
