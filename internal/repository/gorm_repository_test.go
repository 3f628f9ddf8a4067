package repository

import (
	"context"
	"testing"
	"time"

	"FxCockpit/internal/domain"
	"FxCockpit/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB prepares an in-memory SQLite database with all repository tables.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to initialize test database")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(AutoMigrateModels()...), "failed to migrate tables")
	return db
}

func sampleRule(id string, created time.Time) models.AlertRule {
	f := false
	return models.AlertRule{
		ID:             id,
		Symbol:         "USDJPY",
		Condition:      models.ConditionAbove,
		ThresholdPrice: 151.5,
		Active:         true,
		LastSatisfied:  &f,
		Message:        "USDJPY is above 151.5",
		CreatedAt:      created,
	}
}

func TestAlertGorm_SaveListDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewAlertGorm(setupTestDB(t))
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, sampleRule("b", t0.Add(time.Minute))))
	require.NoError(t, repo.Save(ctx, sampleRule("a", t0)))

	rules, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "a", rules[0].ID)
	assert.Equal(t, models.ConditionAbove, rules[0].Condition)
	require.NotNil(t, rules[0].LastSatisfied)
	assert.False(t, *rules[0].LastSatisfied)

	// update in place
	fired := sampleRule("a", t0)
	at := t0.Add(time.Hour)
	fired.Active, fired.Triggered, fired.TriggeredAt, fired.LastSatisfied = false, true, &at, nil
	require.NoError(t, repo.Save(ctx, fired))

	rules, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.True(t, rules[0].Triggered)
	assert.False(t, rules[0].Active)
	require.NotNil(t, rules[0].TriggeredAt)
	assert.True(t, at.Equal(*rules[0].TriggeredAt))
	assert.Nil(t, rules[0].LastSatisfied)

	require.NoError(t, repo.Delete(ctx, "a"))
	assert.ErrorIs(t, repo.Delete(ctx, "a"), domain.ErrNotFound)

	rules, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

func TestNarrativeGorm(t *testing.T) {
	ctx := context.Background()
	repo := NewNarrativeGorm(setupTestDB(t))

	_, err := repo.Latest(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"n1", "n2", "n3"} {
		require.NoError(t, repo.Append(ctx, models.Narrative{
			ID:          id,
			GeneratedAt: t0.Add(time.Duration(i) * time.Hour),
			Session:     "Tokyo",
			Provider:    "gemini",
			Content:     "content " + id,
		}, []byte(`{"symbol":"USDJPY"}`)))
	}

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "n3", latest.ID)
	assert.Equal(t, "content n3", latest.Content)

	list, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "n3", list[0].ID)
	assert.Equal(t, "n2", list[1].ID)

	var stored NarrativeModel
	require.NoError(t, repo.db.First(&stored, "id = ?", "n1").Error)
	assert.JSONEq(t, `{"symbol":"USDJPY"}`, string(stored.Context))
}
