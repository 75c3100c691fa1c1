package extraction_test

import (
	"testing"

	"github.com/clauselens/clauselens/extraction"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name     string
		mimeType string
		filename string
		want     extraction.Format
	}{
		{"pdf by mime", "application/pdf", "contract.bin", extraction.FormatPDF},
		{"pdf by extension", "application/octet-stream", "contract.PDF", extraction.FormatPDF},
		{"docx by mime", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "contract", extraction.FormatDOCX},
		{"docx by extension", "", "contract.docx", extraction.FormatDOCX},
		{"image by mime", "image/png", "scan.bin", extraction.FormatImage},
		{"image by mime webp", "image/webp", "scan.webp", extraction.FormatImage},
		{"jpg by extension", "application/octet-stream", "scan.JPG", extraction.FormatImage},
		{"jpeg by extension", "", "scan.jpeg", extraction.FormatImage},
		{"png by extension", "", "scan.png", extraction.FormatImage},
		{"xlsx unsupported", "application/vnd.ms-excel", "sheet.xlsx", extraction.FormatUnsupported},
		{"no hints", "", "README", extraction.FormatUnsupported},
		{"pdf mime wins over docx extension", "application/pdf", "contract.docx", extraction.FormatPDF},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := extraction.Classify(tc.mimeType, tc.filename)
			if got != tc.want {
				t.Errorf("Classify(%q, %q) = %q, want %q", tc.mimeType, tc.filename, got, tc.want)
			}
		})
	}
}
