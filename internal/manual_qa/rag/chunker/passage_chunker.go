package chunker

import (
	"regexp"
	"sort"
	"strings"

	"manualqa/internal/manual_qa/rag/interfaces"
	"manualqa/internal/manual_qa/rag/schema"
	"manualqa/internal/models"
)

// Profile holds the character-based size bounds of a chunk. The values are
// proxies for a ~400-token target with ~50-token overlap at roughly four
// characters per token.
type Profile struct {
	TargetSize int
	MinSize    int
	MaxSize    int
	Overlap    int
}

// DefaultProfile is the standard chunking profile.
func DefaultProfile() Profile {
	return Profile{TargetSize: 1600, MinSize: 800, MaxSize: 3200, Overlap: 200}
}

// LargeProfile doubles every bound of the default profile, for manuals whose
// procedures do not fit the standard window.
func LargeProfile() Profile {
	return Profile{TargetSize: 3200, MinSize: 1600, MaxSize: 6400, Overlap: 400}
}

// ProfileByName resolves a configured profile name, defaulting to the
// standard profile for unknown names.
func ProfileByName(name string) Profile {
	if strings.EqualFold(name, "large") {
		return LargeProfile()
	}
	return DefaultProfile()
}

// pageProbeLength is how many characters of a chunk are matched against page
// texts for page attribution. The probe is approximate: repeated or
// reformatted text can attribute a chunk to several pages or to none.
const pageProbeLength = 100

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+`)

// SplitSentences tokenizes text into sentences on terminal punctuation. A
// trailing fragment without terminal punctuation is kept as a final sentence.
func SplitSentences(text string) []string {
	locs := sentencePattern.FindAllStringIndex(text, -1)
	var sentences []string
	end := 0
	for _, loc := range locs {
		if s := strings.TrimSpace(text[loc[0]:loc[1]]); s != "" {
			sentences = append(sentences, s)
		}
		end = loc[1]
	}
	if rest := strings.TrimSpace(text[end:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// PassageChunker accumulates a section's sentences into overlapping,
// size-bounded passages.
type PassageChunker struct {
	profile Profile
}

// NewPassageChunker creates a PassageChunker with the given profile.
func NewPassageChunker(profile Profile) *PassageChunker {
	return &PassageChunker{profile: profile}
}

// Chunk splits one section into passages. Sentences accumulate into a buffer;
// when adding the next sentence would push the buffer past MaxSize the buffer
// is emitted and the next one is seeded with the trailing Overlap characters
// of the emitted passage. The final buffer is flushed even when it is under
// MinSize, and a single sentence longer than MaxSize is emitted whole rather
// than split.
func (c *PassageChunker) Chunk(section schema.Section, pageTexts map[int]string) []schema.Passage {
	sentences := SplitSentences(section.Content)
	if len(sentences) == 0 {
		return nil
	}

	// Normalize page texts once for the substring probes below.
	normalizedPages := make(map[int]string, len(pageTexts))
	for page, text := range pageTexts {
		normalizedPages[page] = collapseWhitespace(text)
	}

	var passages []schema.Passage
	emit := func(content string) {
		passages = append(passages, schema.Passage{
			Content:    content,
			Heading:    section.Heading,
			Pages:      c.attributePages(content, normalizedPages),
			TokenCount: models.ApproxTokens(content),
		})
	}

	var buf string
	for _, sentence := range sentences {
		if buf == "" {
			// An empty buffer always accepts the sentence, even one that
			// alone exceeds MaxSize.
			buf = sentence
			continue
		}
		if len(buf)+len(sentence) > c.profile.MaxSize {
			emit(buf)
			buf = overlapTail(buf, c.profile.Overlap) + " " + sentence
			continue
		}
		buf += " " + sentence
	}
	if buf != "" {
		emit(buf)
	}
	return passages
}

// attributePages returns the ascending, deduplicated page numbers whose text
// contains the first pageProbeLength characters of the passage.
func (c *PassageChunker) attributePages(content string, normalizedPages map[int]string) []int {
	probe := collapseWhitespace(content)
	if runes := []rune(probe); len(runes) > pageProbeLength {
		probe = string(runes[:pageProbeLength])
	}
	if probe == "" {
		return nil
	}
	var pages []int
	for page, text := range normalizedPages {
		if strings.Contains(text, probe) {
			pages = append(pages, page)
		}
	}
	sort.Ints(pages)
	return pages
}

// collapseWhitespace folds every whitespace run into a single space so that
// line-break differences between page text and rebuilt passages do not break
// the substring probe.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// overlapTail returns the trailing overlap characters of content, or all of
// it when the content is shorter than the overlap.
func overlapTail(content string, overlap int) string {
	runes := []rune(content)
	if len(runes) <= overlap {
		return content
	}
	return string(runes[len(runes)-overlap:])
}

var _ interfaces.PassageChunker = (*PassageChunker)(nil)
