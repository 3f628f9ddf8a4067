package repository

import (
	"context"
	"errors"
	"fmt"

	"FxCockpit/internal/domain"
	"FxCockpit/internal/domain/models"
	domrepo "FxCockpit/internal/domain/repository"

	"gorm.io/gorm"
)

type narrativeGorm struct {
	db *gorm.DB
}

var _ domrepo.NarrativeRepository = (*narrativeGorm)(nil)

func NewNarrativeGorm(db *gorm.DB) *narrativeGorm {
	return &narrativeGorm{db: db}
}

// Append stores n together with the serialized context it was generated from.
func (r *narrativeGorm) Append(ctx context.Context, n models.Narrative, narrativeContext []byte) error {
	m := NarrativeModel{
		ID:          n.ID,
		GeneratedAt: n.GeneratedAt,
		Session:     n.Session,
		Provider:    n.Provider,
		Content:     n.Content,
		Context:     narrativeContext,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("append narrative: %w", err)
	}
	return nil
}

func (r *narrativeGorm) Latest(ctx context.Context) (*models.Narrative, error) {
	var m NarrativeModel
	err := r.db.WithContext(ctx).Order("generated_at DESC").First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no narrative generated yet: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("latest narrative: %w", err)
	}
	n := m.toNarrative()
	return &n, nil
}

// List returns up to limit narratives, newest first.
func (r *narrativeGorm) List(ctx context.Context, limit int) ([]models.Narrative, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []NarrativeModel
	if err := r.db.WithContext(ctx).Order("generated_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list narratives: %w", err)
	}
	out := make([]models.Narrative, len(rows))
	for i, m := range rows {
		out[i] = m.toNarrative()
	}
	return out, nil
}
