package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"manualqa/internal/manual_qa/rag/interfaces"
	"manualqa/internal/manual_qa/rag/ragerr"
	"manualqa/internal/manual_qa/rag/schema"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

// PdfExtractor implements the TextExtractor interface for PDF bytes. It does
// no OCR: a page without extractable text contributes an empty string.
type PdfExtractor struct{}

// NewPdfExtractor creates a new PdfExtractor.
func NewPdfExtractor() *PdfExtractor {
	return &PdfExtractor{}
}

// Extract parses the bytes as a PDF and returns per-page plain text plus
// metadata. Pages are 1-indexed. It fails with ragerr.ErrDocumentUnreadable
// when the bytes are not a parseable PDF and with ragerr.ErrDocumentEmpty
// when parsing succeeds but yields zero pages.
func (e *PdfExtractor) Extract(data []byte) (result *schema.Extraction, err error) {
	if !mimetype.Detect(data).Is("application/pdf") {
		return nil, fmt.Errorf("%w: input is not a PDF", ragerr.ErrDocumentUnreadable)
	}

	// The pdf package panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: %v", ragerr.ErrDocumentUnreadable, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ragerr.ErrDocumentUnreadable, err)
	}

	total := reader.NumPage()
	if total == 0 {
		return nil, ragerr.ErrDocumentEmpty
	}

	pageTexts := make(map[int]string, total)
	var full strings.Builder
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pageTexts[i] = ""
			continue
		}
		text, perr := page.GetPlainText(nil)
		if perr != nil {
			// Not an error: the page simply has no extractable text.
			pageTexts[i] = ""
			continue
		}
		normalized := normalizeWhitespace(text)
		pageTexts[i] = normalized
		if normalized != "" {
			if full.Len() > 0 {
				full.WriteString("\n")
			}
			full.WriteString(normalized)
		}
	}

	return &schema.Extraction{
		PageCount: total,
		FullText:  full.String(),
		PageTexts: pageTexts,
		Metadata:  documentInfo(reader),
	}, nil
}

// normalizeWhitespace trims every line and collapses runs of blank lines.
func normalizeWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return strings.Join(out, "\n")
}

// documentInfo pulls title and author from the PDF info dictionary when
// present.
func documentInfo(reader *pdf.Reader) map[string]string {
	meta := make(map[string]string)
	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return meta
	}
	if title := info.Key("Title"); !title.IsNull() && title.Kind() == pdf.String {
		meta["title"] = title.Text()
	}
	if author := info.Key("Author"); !author.IsNull() && author.Kind() == pdf.String {
		meta["author"] = author.Text()
	}
	return meta
}

var _ interfaces.TextExtractor = (*PdfExtractor)(nil)
