package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrReviewNotFound = errors.New("review not found")

// Review is one persisted contract review: the extraction metadata plus the
// structured analysis document. The contract text itself is not retained.
type Review struct {
	ID                  uuid.UUID       `json:"id"`
	Filename            string          `json:"filename"`
	Country             string          `json:"country"`
	ContractType        string          `json:"contract_type"`
	PagesDetected       int             `json:"pages_detected"`
	CharactersExtracted int             `json:"characters_extracted"`
	SectionsDetected    int             `json:"sections_detected"`
	Analysis            json.RawMessage `json:"analysis,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
}

type ReviewStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewReviewStore(pool *pgxpool.Pool, logger *slog.Logger) *ReviewStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewStore{pool: pool, logger: logger}
}

func (s *ReviewStore) Save(ctx context.Context, r *Review) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO reviews (id, filename, country, contract_type, pages_detected, characters_extracted, sections_detected, analysis, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.Filename, r.Country, r.ContractType,
		r.PagesDetected, r.CharactersExtracted, r.SectionsDetected,
		r.Analysis, r.CreatedAt)
	if err != nil {
		s.logger.Error("Failed to save review",
			slog.String("review_id", r.ID.String()),
			slog.String("error", err.Error()))
		return err
	}
	return nil
}

func (s *ReviewStore) Get(ctx context.Context, id uuid.UUID) (*Review, error) {
	var r Review
	err := s.pool.QueryRow(ctx,
		`SELECT id, filename, country, contract_type, pages_detected, characters_extracted, sections_detected, analysis, created_at
		 FROM reviews WHERE id = $1`, id).
		Scan(&r.ID, &r.Filename, &r.Country, &r.ContractType,
			&r.PagesDetected, &r.CharactersExtracted, &r.SectionsDetected,
			&r.Analysis, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *ReviewStore) List(ctx context.Context, limit int) ([]Review, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, filename, country, contract_type, pages_detected, characters_extracted, sections_detected, analysis, created_at
		 FROM reviews ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.Filename, &r.Country, &r.ContractType,
			&r.PagesDetected, &r.CharactersExtracted, &r.SectionsDetected,
			&r.Analysis, &r.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// StartCleanup periodically deletes reviews older than the retention
// window. It runs until ctx is cancelled.
func (s *ReviewStore) StartCleanup(ctx context.Context, retention, interval time.Duration) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tag, err := s.pool.Exec(ctx,
					`DELETE FROM reviews WHERE created_at < now() - ($1 * interval '1 second')`,
					retention.Seconds())
				if err != nil {
					s.logger.Error("Review cleanup failed", slog.String("error", err.Error()))
					continue
				}
				if tag.RowsAffected() > 0 {
					s.logger.Info("Deleted expired reviews",
						slog.Int64("count", tag.RowsAffected()))
				}
			}
		}
	}()
}
