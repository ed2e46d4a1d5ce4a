package splitter

import (
	"strings"
	"unicode"

	"manualqa/internal/manual_qa/rag/interfaces"
	"manualqa/internal/manual_qa/rag/schema"
)

// headingKeywords are words that mark a line as a structural heading in
// vehicle manuals regardless of its casing.
var headingKeywords = []string{
	"section",
	"chapter",
	"warning",
	"caution",
	"maintenance",
	"specifications",
	"safety",
	"important",
	"introduction",
	"overview",
	"procedure",
	"operation",
}

// maxHeadingLength bounds how long an upper-case or numbered line may be and
// still count as a heading.
const maxHeadingLength = 80

// IsHeading classifies a single line as a section heading. It is a pure
// function so the heuristics live in exactly one place.
func IsHeading(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}

	endsInPunct := strings.HasSuffix(trimmed, ".") || strings.HasSuffix(trimmed, ",")
	if len(trimmed) < maxHeadingLength && !endsInPunct {
		if isAllUpper(trimmed) {
			return true
		}
		if unicode.IsDigit(rune(trimmed[0])) {
			return true
		}
	}

	lower := strings.ToLower(trimmed)
	for _, kw := range headingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// isAllUpper reports whether the line contains at least one letter and no
// lower-case letters.
func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

// SectionSplitter groups document text into heading-delimited sections.
type SectionSplitter struct{}

// NewSectionSplitter creates a new SectionSplitter.
func NewSectionSplitter() *SectionSplitter {
	return &SectionSplitter{}
}

// Split scans the text line by line. A heading line closes the current
// section (when it has accumulated content) and opens a new one under that
// heading. Non-empty input always yields at least one section: when no
// heading is ever detected the whole document becomes a single unheaded
// section.
func (s *SectionSplitter) Split(fullText string) []schema.Section {
	var sections []schema.Section
	var heading string
	var buf []string

	flush := func() {
		content := strings.TrimSpace(strings.Join(buf, "\n"))
		buf = buf[:0]
		if content == "" {
			return
		}
		sections = append(sections, schema.Section{Heading: heading, Content: content})
	}

	for _, line := range strings.Split(fullText, "\n") {
		if IsHeading(line) {
			flush()
			heading = strings.TrimSpace(line)
			continue
		}
		buf = append(buf, line)
	}
	flush()

	if len(sections) == 0 {
		if trimmed := strings.TrimSpace(fullText); trimmed != "" {
			sections = append(sections, schema.Section{Content: trimmed})
		}
	}
	return sections
}

var _ interfaces.SectionSplitter = (*SectionSplitter)(nil)
