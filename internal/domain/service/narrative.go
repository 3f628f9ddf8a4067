package service

import (
	"context"

	"FxCockpit/internal/domain/models"
)

// NarrativeGenerator produces market commentary text from a structured context.
type NarrativeGenerator interface {
	Provider() string
	Generate(ctx context.Context, in models.NarrativeContext) (string, error)
}
