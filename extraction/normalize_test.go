package extraction_test

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/clauselens/clauselens/extraction"
)

const testMaxTextLength = 300000

func TestFinalizeCountsSections(t *testing.T) {
	text := "ARTICLE 1 Definitions\nsome body text\nSECTION 2 Term\nmore body\n3.4 Indemnification\nfinal body"

	doc, err := extraction.Finalize(text, 1, testMaxTextLength)
	if err != nil {
		t.Fatalf("Finalize returned error: %v", err)
	}
	if doc.Metadata.SectionsDetected != 3 {
		t.Errorf("SectionsDetected = %d, want 3", doc.Metadata.SectionsDetected)
	}
}

func TestFinalizeEmptyDocument(t *testing.T) {
	_, err := extraction.Finalize("   \n\t  ", 1, testMaxTextLength)
	if err == nil {
		t.Fatal("expected error for whitespace-only text")
	}
	if kind := extraction.KindOf(err); kind != extraction.KindEmptyDocument {
		t.Errorf("error kind = %q, want %q", kind, extraction.KindEmptyDocument)
	}
}

func TestFinalizeLengthBoundary(t *testing.T) {
	atLimit := strings.Repeat("a", testMaxTextLength)
	doc, err := extraction.Finalize(atLimit, 1, testMaxTextLength)
	if err != nil {
		t.Fatalf("text at limit rejected: %v", err)
	}
	if doc.Metadata.CharactersExtracted != testMaxTextLength {
		t.Errorf("CharactersExtracted = %d, want %d", doc.Metadata.CharactersExtracted, testMaxTextLength)
	}

	_, err = extraction.Finalize(atLimit+"a", 1, testMaxTextLength)
	if kind := extraction.KindOf(err); kind != extraction.KindDocumentTooLong {
		t.Errorf("error kind = %q, want %q", kind, extraction.KindDocumentTooLong)
	}
}

func TestFinalizePreviews(t *testing.T) {
	short := "short contract text"
	doc, err := extraction.Finalize(short, 1, testMaxTextLength)
	if err != nil {
		t.Fatalf("Finalize returned error: %v", err)
	}
	if doc.Metadata.PreviewStart != short || doc.Metadata.PreviewEnd != short {
		t.Errorf("short text previews should equal the text, got start=%q end=%q",
			doc.Metadata.PreviewStart, doc.Metadata.PreviewEnd)
	}

	long := strings.Repeat("b", 2500)
	doc, err = extraction.Finalize(long, 1, testMaxTextLength)
	if err != nil {
		t.Fatalf("Finalize returned error: %v", err)
	}
	if !strings.HasSuffix(doc.Metadata.PreviewStart, "...") || len(doc.Metadata.PreviewStart) != 1003 {
		t.Errorf("PreviewStart = %d chars ending %q, want 1003 chars ending in ellipsis",
			len(doc.Metadata.PreviewStart), doc.Metadata.PreviewStart[len(doc.Metadata.PreviewStart)-3:])
	}
	if !strings.HasPrefix(doc.Metadata.PreviewEnd, "...") || len(doc.Metadata.PreviewEnd) != 1003 {
		t.Errorf("PreviewEnd = %d chars, want 1003 chars starting with ellipsis", len(doc.Metadata.PreviewEnd))
	}
}

func TestFinalizeMultibyteText(t *testing.T) {
	// One ASCII byte then 1200 two-byte runes puts the 1000-byte preview
	// cut in the middle of a rune; the slice must back off to a boundary.
	text := "a" + strings.Repeat("é", 1200)

	doc, err := extraction.Finalize(text, 1, testMaxTextLength)
	if err != nil {
		t.Fatalf("Finalize returned error: %v", err)
	}
	if doc.Metadata.CharactersExtracted != 1201 {
		t.Errorf("CharactersExtracted = %d, want 1201 runes", doc.Metadata.CharactersExtracted)
	}
	if !utf8.ValidString(doc.Metadata.PreviewStart) {
		t.Errorf("PreviewStart is not valid UTF-8: %q", doc.Metadata.PreviewStart[:20])
	}
	if !utf8.ValidString(doc.Metadata.PreviewEnd) {
		t.Errorf("PreviewEnd is not valid UTF-8: %q", doc.Metadata.PreviewEnd[:20])
	}
	if len(doc.Metadata.PreviewStart) >= len(text) {
		t.Errorf("PreviewStart was not truncated: %d bytes", len(doc.Metadata.PreviewStart))
	}
}

func TestFinalizePageEstimate(t *testing.T) {
	// 7000 chars at 3000 chars per page rounds up to 3.
	doc, err := extraction.Finalize(strings.Repeat("c", 7000), 0, testMaxTextLength)
	if err != nil {
		t.Fatalf("Finalize returned error: %v", err)
	}
	if doc.Metadata.PagesDetected != 3 {
		t.Errorf("PagesDetected = %d, want 3", doc.Metadata.PagesDetected)
	}

	// A known page count is carried through untouched.
	doc, err = extraction.Finalize(strings.Repeat("c", 7000), 12, testMaxTextLength)
	if err != nil {
		t.Fatalf("Finalize returned error: %v", err)
	}
	if doc.Metadata.PagesDetected != 12 {
		t.Errorf("PagesDetected = %d, want 12", doc.Metadata.PagesDetected)
	}
}

func TestKindOfUnknownError(t *testing.T) {
	if kind := extraction.KindOf(errors.New("plain")); kind != "" {
		t.Errorf("KindOf(plain error) = %q, want empty", kind)
	}
}
