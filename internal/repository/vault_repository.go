package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"routine-coach/internal/model"
)

// VaultRepository reads and writes a user's whole snapshot.
type VaultRepository struct {
	db          *gorm.DB
	historySize int
}

func NewVaultRepository(db *gorm.DB, historySize int) *VaultRepository {
	return &VaultRepository{db: db, historySize: historySize}
}

// Fetch returns the stored snapshot, empty for unknown users.
func (r *VaultRepository) Fetch(ctx context.Context, userID uint) (model.Snapshot, error) {
	var snap model.Snapshot
	var err error
	if snap.Templates, err = NewTemplateRepository(r.db).ListByUser(ctx, userID); err != nil {
		return model.Snapshot{}, err
	}
	if snap.Logs, err = NewLogRepository(r.db).ListByUser(ctx, userID); err != nil {
		return model.Snapshot{}, err
	}
	if snap.ChatHistory, err = NewChatRepository(r.db).Recent(ctx, userID, r.historySize); err != nil {
		return model.Snapshot{}, err
	}
	return snap, nil
}

// Save stores templates and logs of the snapshot in one transaction. Chat
// history is append-only and written through ChatRepository.
func (r *VaultRepository) Save(ctx context.Context, userID uint, snap model.Snapshot) error {
	for i := range snap.Templates {
		snap.Templates[i].UserID = userID
	}
	for i := range snap.Logs {
		snap.Logs[i].UserID = userID
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := NewTemplateRepository(tx).ReplaceForUser(ctx, userID, snap.Templates); err != nil {
			return fmt.Errorf("templates: %w", err)
		}
		if err := NewLogRepository(tx).ReplaceForUser(ctx, userID, snap.Logs); err != nil {
			return fmt.Errorf("logs: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save vault: %w", err)
	}
	return nil
}
