package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"routine-coach/internal/model"
)

// TemplateRepository stores task templates.
type TemplateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) ListByUser(ctx context.Context, userID uint) ([]model.Template, error) {
	var templates []model.Template
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("position ASC, created_at ASC").
		Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

// ReplaceForUser upserts templates and deletes the user's other templates.
func (r *TemplateRepository) ReplaceForUser(ctx context.Context, userID uint, templates []model.Template) error {
	return replaceForUser(r.db.WithContext(ctx), userID, &model.Template{}, templates, func(t model.Template) string { return t.ID })
}

// writeBatchSize keeps every statement well under SQLite's bound variable limit.
const writeBatchSize = 500

func replaceForUser[T any](db *gorm.DB, userID uint, table any, rows []T, id func(T) string) error {
	keep := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		keep[id(row)] = struct{}{}
	}

	var stored []string
	if err := db.Model(table).Where("user_id = ?", userID).Pluck("id", &stored).Error; err != nil {
		return fmt.Errorf("list stored ids: %w", err)
	}
	stale := make([]string, 0)
	for _, storedID := range stored {
		if _, ok := keep[storedID]; !ok {
			stale = append(stale, storedID)
		}
	}
	for start := 0; start < len(stale); start += writeBatchSize {
		chunk := stale[start:min(start+writeBatchSize, len(stale))]
		if err := db.Where("user_id = ? AND id IN ?", userID, chunk).Delete(table).Error; err != nil {
			return fmt.Errorf("delete stale rows: %w", err)
		}
	}

	if len(rows) == 0 {
		return nil
	}
	if err := db.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(&rows, writeBatchSize).Error; err != nil {
		return fmt.Errorf("upsert rows: %w", err)
	}
	return nil
}
