// Package schema holds the data carriers passed between pipeline stages and
// the structured-answer contract shared by all generator implementations.
package schema

// Extraction is the output of the PDF text extractor. Pages are 1-indexed and
// a page with no extractable text contributes an empty string.
type Extraction struct {
	PageCount int
	FullText  string
	PageTexts map[int]string
	Metadata  map[string]string
}

// Section is a heading-delimited span of document text. Heading is empty when
// the splitter found no heading for it.
type Section struct {
	Heading string
	Content string
}

// Passage is one chunk of a section before it is persisted: content, the
// heading it sits under, the pages its text was located on (ascending,
// deduplicated) and an approximate token count.
type Passage struct {
	Content    string
	Heading    string
	Pages      []int
	TokenCount int
}
