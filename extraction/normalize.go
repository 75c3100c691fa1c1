package extraction

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// previewLimit caps the head/tail snippets carried in metadata.
	previewLimit = 1000

	// charsPerPageEstimate backs the page estimate for formats without a
	// native page concept (DOCX).
	charsPerPageEstimate = 3000
)

// sectionHeadingPattern matches legal section headings at line start:
// numbered articles/sections/parts, roman-numeral headings, and dotted
// sub-clause numbering like "3.4".
var sectionHeadingPattern = regexp.MustCompile(`(?im)^((ARTICLE|SECTION|PART)\s+\d+|[IVXLCDM]+\.|\d+\.\d+)`)

// Finalize normalizes extracted text and derives the document metadata.
// pageHint carries the extractor's page knowledge: the true PDF page count,
// 1 for images, or 0 when unknown, in which case pages are estimated from
// text length. Text over maxTextLength is rejected outright, never clipped.
func Finalize(raw string, pageHint, maxTextLength int) (*Document, error) {
	text := strings.TrimSpace(raw)

	if text == "" {
		return nil, NewError(KindEmptyDocument, "could not extract any text from this file; it might be scanned or empty", nil)
	}

	charCount := utf8.RuneCountInString(text)
	if charCount > maxTextLength {
		return nil, NewError(KindDocumentTooLong,
			fmt.Sprintf("document is too long (%d chars); limit is %d", charCount, maxTextLength), nil)
	}

	pages := pageHint
	if pages < 1 {
		pages = (charCount + charsPerPageEstimate - 1) / charsPerPageEstimate
		if pages < 1 {
			pages = 1
		}
	}

	previewStart := text
	previewEnd := text
	if len(text) > previewLimit {
		previewStart = runeSafePrefix(text, previewLimit) + "..."
		previewEnd = "..." + runeSafeSuffix(text, previewLimit)
	}

	return &Document{
		Text: text,
		Metadata: Metadata{
			PagesDetected:       pages,
			CharactersExtracted: charCount,
			SectionsDetected:    countSections(text),
			PreviewStart:        previewStart,
			PreviewEnd:          previewEnd,
		},
	}, nil
}

func countSections(text string) int {
	return len(sectionHeadingPattern.FindAllString(text, -1))
}

// runeSafePrefix returns at most n bytes of s, never splitting a rune.
func runeSafePrefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// runeSafeSuffix returns at most the last n bytes of s, never splitting a
// rune.
func runeSafeSuffix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := len(s) - n
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return s[i:]
}
