package repository

import (
	"time"

	"FxCockpit/internal/domain/models"
)

// AlertRuleModel is the persisted form of models.AlertRule.
type AlertRuleModel struct {
	ID             string `gorm:"primaryKey;size:36"`
	Symbol         string `gorm:"size:16;index"`
	Condition      string `gorm:"size:8"`
	ThresholdPrice float64
	Active         bool
	Triggered      bool
	TriggeredAt    *time.Time
	LastSatisfied  *bool
	Message        string `gorm:"size:512"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (AlertRuleModel) TableName() string { return "alert_rules" }

func alertModelFromRule(r models.AlertRule) AlertRuleModel {
	return AlertRuleModel{
		ID:             r.ID,
		Symbol:         r.Symbol,
		Condition:      r.Condition.String(),
		ThresholdPrice: r.ThresholdPrice,
		Active:         r.Active,
		Triggered:      r.Triggered,
		TriggeredAt:    r.TriggeredAt,
		LastSatisfied:  r.LastSatisfied,
		Message:        r.Message,
		CreatedAt:      r.CreatedAt,
	}
}

func (m AlertRuleModel) toRule() (models.AlertRule, error) {
	cond, err := models.ParseCondition(m.Condition)
	if err != nil {
		return models.AlertRule{}, err
	}
	return models.AlertRule{
		ID:             m.ID,
		Symbol:         m.Symbol,
		Condition:      cond,
		ThresholdPrice: m.ThresholdPrice,
		Active:         m.Active,
		Triggered:      m.Triggered,
		TriggeredAt:    m.TriggeredAt,
		LastSatisfied:  m.LastSatisfied,
		Message:        m.Message,
		CreatedAt:      m.CreatedAt,
	}, nil
}

// NarrativeModel keeps every generated narrative with the context it was built from.
type NarrativeModel struct {
	ID          string    `gorm:"primaryKey;size:36"`
	GeneratedAt time.Time `gorm:"index"`
	Session     string    `gorm:"size:64"`
	Provider    string    `gorm:"size:16"`
	Content     string    `gorm:"type:text"`
	Context     []byte
}

func (NarrativeModel) TableName() string { return "narratives" }

func (m NarrativeModel) toNarrative() models.Narrative {
	return models.Narrative{
		ID:          m.ID,
		GeneratedAt: m.GeneratedAt,
		Session:     m.Session,
		Provider:    m.Provider,
		Content:     m.Content,
	}
}

// AutoMigrateModels lists the gorm models owned by this package.
func AutoMigrateModels() []interface{} {
	return []interface{}{&AlertRuleModel{}, &NarrativeModel{}}
}
