package keywords

import (
	"regexp"
	"sort"
	"strings"

	"manualqa/internal/manual_qa/rag/interfaces"

	"github.com/jdkato/prose/v2"
)

const (
	// maxKeywords is the keyword cap per chunk.
	maxKeywords = 10
	// minKeywordLength filters short noise words from keyword candidates.
	minKeywordLength = 3
	// minContentWordLength filters short noise words from content words.
	minContentWordLength = 2
)

var stopwords = buildStopwords()

func buildStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for",
		"to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was",
		"were", "be", "been", "being", "it", "this", "that", "these", "those",
		"from", "up", "down", "over", "under", "again", "further", "than",
		"so", "such", "into", "about", "between", "through", "during",
		"before", "after", "above", "below", "out", "off", "own", "same",
		"too", "very", "can", "will", "just", "should", "have", "has", "had",
		"does", "did", "doing", "when", "where", "what", "which", "while",
		"your", "you", "they", "them", "there", "here",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// isKeywordTag reports whether a Penn Treebank tag marks a noun or a verb.
func isKeywordTag(tag string) bool {
	return strings.HasPrefix(tag, "NN") || strings.HasPrefix(tag, "VB")
}

// isContentTag reports whether a tag marks a noun, verb or adjective.
func isContentTag(tag string) bool {
	return isKeywordTag(tag) || strings.HasPrefix(tag, "JJ")
}

// Tagger derives keywords and content words using part-of-speech tagging.
type Tagger struct{}

// NewTagger creates a POS-tagging Tagger.
func NewTagger() *Tagger {
	return &Tagger{}
}

func (t *Tagger) tokens(text string) ([]prose.Token, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	doc, err := prose.NewDocument(text,
		prose.WithExtraction(false),
		prose.WithSegmentation(false),
	)
	if err != nil {
		return nil, err
	}
	return doc.Tokens(), nil
}

// Keywords returns up to ten keywords: nouns and verbs longer than three
// characters, lower-cased, stop-word filtered, ranked by frequency with ties
// broken by first occurrence.
func (t *Tagger) Keywords(text string) ([]string, error) {
	toks, err := t.tokens(text)
	if err != nil {
		return nil, err
	}
	var candidates []string
	for _, tok := range toks {
		if !isKeywordTag(tok.Tag) {
			continue
		}
		candidates = append(candidates, tok.Text)
	}
	return rankByFrequency(candidates, minKeywordLength, maxKeywords), nil
}

// ContentWords returns nouns, verbs and adjectives longer than two
// characters, lower-cased, deduplicated, in first-occurrence order.
func (t *Tagger) ContentWords(text string) ([]string, error) {
	toks, err := t.tokens(text)
	if err != nil {
		return nil, err
	}
	var words []string
	for _, tok := range toks {
		if !isContentTag(tok.Tag) {
			continue
		}
		words = append(words, tok.Text)
	}
	return filterWords(words, minContentWordLength), nil
}

var wordPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

// Deterministic is a tagger that skips part-of-speech analysis and treats
// every token as a candidate. Ingestion with it is fully reproducible:
// byte-identical input produces identical keyword lists on every run.
type Deterministic struct{}

// NewDeterministic creates a Deterministic tagger.
func NewDeterministic() *Deterministic {
	return &Deterministic{}
}

// Keywords ranks all tokens longer than three characters by frequency.
func (d *Deterministic) Keywords(text string) ([]string, error) {
	return rankByFrequency(wordPattern.FindAllString(text, -1), minKeywordLength, maxKeywords), nil
}

// ContentWords returns all tokens longer than two characters, lower-cased,
// deduplicated, in first-occurrence order.
func (d *Deterministic) ContentWords(text string) ([]string, error) {
	return filterWords(wordPattern.FindAllString(text, -1), minContentWordLength), nil
}

// filterWords lower-cases words, drops stop words and short words, and
// deduplicates preserving first-occurrence order.
func filterWords(words []string, minLen int) []string {
	seen := make(map[string]struct{}, len(words))
	var out []string
	for _, w := range words {
		lower := strings.ToLower(w)
		if len(lower) <= minLen {
			continue
		}
		if _, stop := stopwords[lower]; stop {
			continue
		}
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, lower)
	}
	return out
}

// rankByFrequency counts lower-cased candidate words (after length and
// stop-word filtering) and returns the top limit words, most frequent first,
// ties broken by first occurrence.
func rankByFrequency(words []string, minLen, limit int) []string {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	var order []string
	for _, w := range words {
		lower := strings.ToLower(w)
		if len(lower) <= minLen {
			continue
		}
		if _, stop := stopwords[lower]; stop {
			continue
		}
		if _, ok := counts[lower]; !ok {
			firstSeen[lower] = len(order)
			order = append(order, lower)
		}
		counts[lower]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		ci, cj := counts[order[i]], counts[order[j]]
		if ci != cj {
			return ci > cj
		}
		return firstSeen[order[i]] < firstSeen[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}
	return order
}

var (
	_ interfaces.KeywordTagger = (*Tagger)(nil)
	_ interfaces.KeywordTagger = (*Deterministic)(nil)
)
