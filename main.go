package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/urfave/negroni"

	"github.com/clauselens/clauselens/config"
	"github.com/clauselens/clauselens/extraction"
	"github.com/clauselens/clauselens/handlers"
	"github.com/clauselens/clauselens/logging"
	"github.com/clauselens/clauselens/server"
	"github.com/clauselens/clauselens/services/analysis_service"
	"github.com/clauselens/clauselens/services/ocr_service"
	"github.com/clauselens/clauselens/storage"
)

func main() {
	cfg := config.Load()

	logHandler, err := logging.NewDailyFileHandler(cfg.LogDir, &slog.HandlerOptions{Level: slog.LevelInfo})
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	pool, err := storage.Connect(context.Background(), cfg.DatabaseURL, logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	store := storage.NewReviewStore(pool, logger)
	store.StartCleanup(context.Background(), cfg.ReviewRetention, cfg.CleanupInterval)

	ocr := ocr_service.NewGeminiOCR(ocr_service.Config{
		APIURL:      cfg.GeminiOCRURL,
		APIKey:      cfg.GeminiAPIKey,
		MaxAttempts: cfg.OCRMaxAttempts,
		RetryDelay:  cfg.OCRRetryDelay,
	}, logger)

	analyzer := analysis_service.NewGeminiAnalyzer(analysis_service.Config{
		APIURL: cfg.GeminiAnalysisURL,
		APIKey: cfg.GeminiAPIKey,
	}, logger)

	extractor := extraction.NewService(extraction.Config{
		PageCap:              cfg.PageCap,
		BatchSize:            cfg.BatchSize,
		MaxTextLength:        cfg.MaxTextLength,
		MaxFileSize:          int64(cfg.MaxFileSizeMB) << 20,
		ScannedTextThreshold: cfg.ScannedTextThreshold,
		PDFWorkerPool:        cfg.PDFWorkerPool,
		Timeout:              cfg.ExtractionTimeout,
	}, ocr, logger)

	extractHandler := handlers.NewExtractHandler(extractor, logger)
	reviewHandler := handlers.NewReviewHandler(extractor, analyzer, store, cfg.MaxTextLength, logger)

	r := server.SetupRoutes(extractHandler, reviewHandler)

	n := negroni.New()
	n.Use(negroni.NewRecovery())
	n.Use(negroni.NewLogger())
	n.UseHandler(r)

	if cfg.Environment == "production" {
		server.ServeProduction(n, cfg.Domains, cfg.CertCacheDir)
	} else {
		srv := &http.Server{
			Addr:         ":" + cfg.HTTPPort,
			Handler:      n,
			IdleTimeout:  time.Minute,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 300 * time.Second,
		}
		logger.Info("Starting development server", slog.String("port", cfg.HTTPPort))
		server.ServeDevelopment(srv)
	}
}
