package extraction

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	// pageErrorPlaceholder stands in for a page whose text could not be
	// read; a single bad page must not fail the whole document.
	pageErrorPlaceholder = "[Error parsing page]"

	// interBatchYield is the pause between page batches so one large
	// document cannot monopolize the shared engine pool.
	interBatchYield = 10 * time.Millisecond
)

// engine is the process-wide PDF processing pool. Page parsing is CPU bound
// and the parser allocates aggressively on dense pages, so every extraction
// call shares one bounded pool no matter how many requests are in flight.
// The document handle itself is never shared: each call owns its own reader.
type pdfEngine struct {
	workers *semaphore.Weighted
}

var (
	engineMu sync.Mutex
	engine   *pdfEngine
)

// engineHandle returns the lazily-initialized engine. Concurrent callers all
// observe the same instance. A failed initialization is not latched; the
// next call tries again, so a corrected pool size can recover the process.
func engineHandle(poolSize int) (*pdfEngine, error) {
	engineMu.Lock()
	defer engineMu.Unlock()

	if engine != nil {
		return engine, nil
	}
	if poolSize <= 0 {
		return nil, NewError(KindPdfWorkerUnavailable, "PDF processor failed to initialize",
			fmt.Errorf("invalid PDF worker pool size %d", poolSize))
	}
	engine = &pdfEngine{workers: semaphore.NewWeighted(int64(poolSize))}
	return engine, nil
}

// PDFResult is the raw outcome of native PDF extraction. PageCount is the
// true document page count, which may exceed the number of pages whose text
// made it into Text.
type PDFResult struct {
	Text      string
	PageCount int
}

// PDFExtractor pulls the embedded text layer out of a PDF, page by page.
type PDFExtractor struct {
	pageCap   int
	batchSize int
	poolSize  int
	logger    *slog.Logger
}

func NewPDFExtractor(pageCap, batchSize, poolSize int, logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	if pageCap <= 0 {
		pageCap = 30
	}
	if batchSize <= 0 {
		batchSize = 3
	}
	return &PDFExtractor{
		pageCap:   pageCap,
		batchSize: batchSize,
		poolSize:  poolSize,
		logger:    logger,
	}
}

// Extract opens the document and reads pages 1..min(pages, pageCap) in
// batches of batchSize. Pages within a batch run in parallel; batches are
// sequential with a brief yield in between. Each page goroutine writes only
// its own slot, so the final text is always in page order regardless of
// completion order.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (PDFResult, error) {
	eng, err := engineHandle(e.poolSize)
	if err != nil {
		return PDFResult{}, err
	}

	reader, err := openDocument(data)
	if err != nil {
		return PDFResult{}, err
	}

	pageCount := reader.NumPage()
	pagesToProcess := pageCount
	if pagesToProcess > e.pageCap {
		pagesToProcess = e.pageCap
	}

	e.logger.Debug("Starting PDF text extraction",
		slog.Int("total_pages", pageCount),
		slog.Int("pages_to_process", pagesToProcess))

	slots := make([]string, pagesToProcess+1)

	for first := 1; first <= pagesToProcess; first += e.batchSize {
		last := first + e.batchSize - 1
		if last > pagesToProcess {
			last = pagesToProcess
		}

		g, gctx := errgroup.WithContext(ctx)
		for n := first; n <= last; n++ {
			n := n
			g.Go(func() error {
				if err := eng.workers.Acquire(gctx, 1); err != nil {
					return err
				}
				defer eng.workers.Release(1)
				slots[n] = e.pageText(reader, n)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			// Only cancellation can surface here; per-page parse
			// failures are absorbed into placeholders.
			return PDFResult{}, NewError(KindTimeout, "PDF extraction timed out", err)
		}

		if last < pagesToProcess {
			select {
			case <-ctx.Done():
				return PDFResult{}, NewError(KindTimeout, "PDF extraction timed out", ctx.Err())
			case <-time.After(interBatchYield):
			}
		}
	}

	text := assemblePages(slots, pagesToProcess, pageCount, e.pageCap)

	e.logger.Info("Successfully extracted text from PDF",
		slog.Int("total_pages", pageCount),
		slog.Int("pages_processed", pagesToProcess),
		slog.Int("total_text_length", len(text)))

	return PDFResult{Text: text, PageCount: pageCount}, nil
}

// openDocument maps the parser's failure modes onto the error taxonomy. The
// underlying library panics on some malformed cross-reference tables, so the
// open is fenced with a recover.
func openDocument(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r = nil
			err = NewError(KindPdfStructureCorrupt, "failed to parse PDF", fmt.Errorf("parser panic: %v", rec))
		}
	}()

	if len(data) < 4 || !bytes.HasPrefix(data, []byte("%PDF")) {
		return nil, NewError(KindPdfStructureCorrupt, "failed to parse PDF", fmt.Errorf("missing %%PDF header"))
	}

	r, openErr := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if openErr != nil {
		msg := strings.ToLower(openErr.Error())
		if strings.Contains(msg, "password") || strings.Contains(msg, "encrypt") {
			return nil, NewError(KindPdfPasswordProtected, "PDF is password protected", openErr)
		}
		return nil, NewError(KindPdfStructureCorrupt, "failed to parse PDF", openErr)
	}
	return r, nil
}

// pageText reads one page's text, tolerating failure: a bad page yields a
// placeholder so the rest of the document still comes through. The page
// value is dropped as soon as its text is read.
func (e *PDFExtractor) pageText(reader *pdf.Reader, n int) (text string) {
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Warn("Panic while parsing PDF page",
				slog.Int("page_number", n),
				slog.Any("panic", rec))
			text = pageErrorPlaceholder
		}
	}()

	page := reader.Page(n)
	if page.V.IsNull() {
		e.logger.Warn("Null page encountered", slog.Int("page_number", n))
		return ""
	}

	content, err := page.GetPlainText(nil)
	if err != nil {
		e.logger.Warn("Failed to extract text from page",
			slog.Int("page_number", n),
			slog.String("error", err.Error()))
		return pageErrorPlaceholder
	}
	return content
}

// assemblePages joins the per-page slots in page order with the page
// delimiter convention, appending a truncation notice when the document had
// more pages than were processed.
func assemblePages(slots []string, pagesToProcess, pageCount, pageCap int) string {
	var b strings.Builder
	for n := 1; n <= pagesToProcess; n++ {
		fmt.Fprintf(&b, "\n--- PAGE %d ---\n\n%s\n\n", n, slots[n])
	}
	if pageCount > pagesToProcess {
		fmt.Fprintf(&b, "\n...[Truncated: Document exceeded %d pages. First %d pages processed.]...", pageCap, pagesToProcess)
	}
	return b.String()
}
