package alerts

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Summary struct {
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	Info     int `json:"info"`
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&FlagRecord{}, &RunRecord{})
}

func (r *Repository) CreateFlag(ctx context.Context, rec *FlagRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *Repository) CreateRun(ctx context.Context, rec *RunRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

// Summarize counts flags per severity over the trailing window.
func (r *Repository) Summarize(ctx context.Context, window time.Duration) (Summary, error) {
	var summary Summary
	cutoff := time.Now().UTC().Add(-window)
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			SUM(CASE WHEN severity = 'crit' THEN 1 ELSE 0 END) AS critical,
			SUM(CASE WHEN severity = 'warn' THEN 1 ELSE 0 END) AS warning,
			SUM(CASE WHEN severity = 'info' THEN 1 ELSE 0 END) AS info
		FROM flag_events
		WHERE created_at > ?
	`, cutoff).Scan(&summary).Error
	return summary, err
}

// Latest returns the most recent flag events, newest first.
func (r *Repository) Latest(ctx context.Context, limit int) ([]FlagRecord, error) {
	if limit <= 0 {
		limit = 25
	}
	var rows []FlagRecord
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
