package repository

import (
	"context"
	"fmt"

	"FxCockpit/internal/domain"
	"FxCockpit/internal/domain/models"
	domrepo "FxCockpit/internal/domain/repository"

	"gorm.io/gorm"
)

type alertGorm struct {
	db *gorm.DB
}

var _ domrepo.AlertRepository = (*alertGorm)(nil)

func NewAlertGorm(db *gorm.DB) *alertGorm {
	return &alertGorm{db: db}
}

// List returns all rules, oldest first.
func (r *alertGorm) List(ctx context.Context) ([]models.AlertRule, error) {
	var rows []AlertRuleModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	out := make([]models.AlertRule, 0, len(rows))
	for _, m := range rows {
		rule, err := m.toRule()
		if err != nil {
			return nil, fmt.Errorf("alert %s: %w", m.ID, err)
		}
		out = append(out, rule)
	}
	return out, nil
}

// Save upserts the rule by id.
func (r *alertGorm) Save(ctx context.Context, rule models.AlertRule) error {
	m := alertModelFromRule(rule)
	if err := r.db.WithContext(ctx).Save(&m).Error; err != nil {
		return fmt.Errorf("save alert %s: %w", rule.ID, err)
	}
	return nil
}

func (r *alertGorm) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&AlertRuleModel{})
	if res.Error != nil {
		return fmt.Errorf("delete alert %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("alert %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
