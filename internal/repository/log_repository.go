package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"routine-coach/internal/model"
)

// LogRepository stores daily task logs.
type LogRepository struct {
	db *gorm.DB
}

func NewLogRepository(db *gorm.DB) *LogRepository {
	return &LogRepository{db: db}
}

// ListByUser returns the user's logs, newest first.
func (r *LogRepository) ListByUser(ctx context.Context, userID uint) ([]model.Log, error) {
	var logs []model.Log
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("date DESC, created_at DESC").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	return logs, nil
}

// ReplaceForUser upserts logs and deletes the user's other logs.
func (r *LogRepository) ReplaceForUser(ctx context.Context, userID uint, logs []model.Log) error {
	return replaceForUser(r.db.WithContext(ctx), userID, &model.Log{}, logs, func(l model.Log) string { return l.ID })
}
