package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment  string
	HTTPPort     string
	HTTPSPort    string
	Domains      []string
	CertCacheDir string
	LogDir       string
	DatabaseURL  string

	GeminiAPIKey      string
	GeminiOCRURL      string
	GeminiAnalysisURL string

	// Extraction tunables. The defaults encode the completeness vs.
	// latency/cost tradeoff the product ships with; deployments may
	// override them per environment.
	PageCap              int // maximum PDF pages processed per document
	BatchSize            int // pages extracted in parallel per batch
	MaxTextLength        int // hard ceiling on extracted characters
	MaxFileSizeMB        int // upload size ceiling
	ScannedTextThreshold int // below this many non-marker chars, a PDF is treated as scanned
	PDFWorkerPool        int // process-wide concurrent page parses
	ExtractionTimeout    time.Duration

	OCRMaxAttempts int
	OCRRetryDelay  time.Duration

	ReviewRetention time.Duration
	CleanupInterval time.Duration
}

var isTest bool

func init() {
	isTest = os.Getenv("GO_ENVIRONMENT") == "test"
	if !isTest {
		err := godotenv.Load()
		if err != nil {
			log.Println("Warning: Error loading .env file:", err)
		}
	}
}

func Load() Config {
	return Config{
		Environment:  getEnv("ENVIRONMENT", "development"),
		HTTPPort:     getEnv("HTTP_PORT", "8086"),
		HTTPSPort:    getEnv("HTTPS_PORT", "443"),
		Domains:      []string{getEnv("DOMAIN", "example.com")},
		CertCacheDir: getEnv("CERT_CACHE_DIR", "/etc/letsencrypt/live/example.com"),
		LogDir:       getEnv("LOG_DIR", "./logs"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiOCRURL:      getEnv("GEMINI_OCR_URL", "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent"),
		GeminiAnalysisURL: getEnv("GEMINI_ANALYSIS_URL", "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-pro:generateContent"),

		PageCap:              getEnvAsInt("PAGE_CAP", 30),
		BatchSize:            getEnvAsInt("BATCH_SIZE", 3),
		MaxTextLength:        getEnvAsInt("MAX_TEXT_LENGTH", 300000),
		MaxFileSizeMB:        getEnvAsInt("MAX_FILE_SIZE_MB", 10),
		ScannedTextThreshold: getEnvAsInt("SCANNED_TEXT_THRESHOLD", 50),
		PDFWorkerPool:        getEnvAsInt("PDF_WORKER_POOL", 8),
		ExtractionTimeout:    time.Duration(getEnvAsInt("EXTRACTION_TIMEOUT_SECONDS", 60)) * time.Second,

		OCRMaxAttempts: getEnvAsInt("OCR_MAX_ATTEMPTS", 3),
		OCRRetryDelay:  time.Duration(getEnvAsInt("OCR_RETRY_DELAY_MS", 1000)) * time.Millisecond,

		ReviewRetention: time.Duration(getEnvAsInt("REVIEW_RETENTION_HOURS", 720)) * time.Hour,
		CleanupInterval: time.Duration(getEnvAsInt("CLEANUP_INTERVAL_MINUTES", 60)) * time.Minute,
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
