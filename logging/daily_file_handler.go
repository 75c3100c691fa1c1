package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// logFile is the rotation state shared by a handler and all of its
// WithAttrs/WithGroup clones. Sharing it through one pointer means a date
// rollover in any clone is observed by every sibling instead of leaving them
// writing to a closed file.
type logFile struct {
	mu       sync.Mutex
	file     *os.File
	fileName string
}

// rotateLocked opens the current day's file if it is not already the active
// one. Callers must hold mu.
func (f *logFile) rotateLocked(logDir string) error {
	fileName := fmt.Sprintf("clauselens-%s.log", time.Now().Format("2006-01-02"))
	if fileName == f.fileName {
		return nil
	}

	filePath := filepath.Join(logDir, fileName)
	out, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	if f.file != nil {
		f.file.Close()
	}
	f.file = out
	f.fileName = fileName
	return nil
}

func (f *logFile) write(logDir, line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.rotateLocked(logDir); err != nil {
		return err
	}
	_, err := f.file.WriteString(line)
	return err
}

type DailyFileHandler struct {
	state          *logFile
	logDir         string
	defaultHandler slog.Handler
}

func NewDailyFileHandler(logDir string, opts *slog.HandlerOptions) (*DailyFileHandler, error) {
	// Create logs directory if it doesn't exist
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	h := &DailyFileHandler{
		state:          &logFile{},
		logDir:         logDir,
		defaultHandler: slog.NewTextHandler(os.Stdout, opts),
	}

	h.state.mu.Lock()
	err := h.state.rotateLocked(logDir)
	h.state.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return h, nil
}

func (h *DailyFileHandler) Handle(ctx context.Context, r slog.Record) error {
	// Format the log entry
	timeStr := r.Time.Format("2006/01/02 15:04:05.000")
	level := r.Level.String()

	// Build attributes string
	var attrs string
	r.Attrs(func(a slog.Attr) bool {
		attrs += fmt.Sprintf(" %s=%v", a.Key, a.Value)
		return true
	})

	logLine := fmt.Sprintf("[%s] %-5s %s%s\n", timeStr, level, r.Message, attrs)

	err := h.state.write(h.logDir, logLine)

	// Also log to default handler (stdout)
	if err2 := h.defaultHandler.Handle(ctx, r); err2 != nil {
		if err == nil {
			err = err2
		}
	}

	return err
}

func (h *DailyFileHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &DailyFileHandler{
		state:          h.state,
		logDir:         h.logDir,
		defaultHandler: h.defaultHandler.WithAttrs(attrs),
	}
}

func (h *DailyFileHandler) WithGroup(name string) slog.Handler {
	return &DailyFileHandler{
		state:          h.state,
		logDir:         h.logDir,
		defaultHandler: h.defaultHandler.WithGroup(name),
	}
}

func (h *DailyFileHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.defaultHandler.Enabled(ctx, level)
}
