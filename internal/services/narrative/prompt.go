package narrative

import (
	"encoding/json"
	"fmt"
	"time"

	"FxCockpit/internal/domain/models"
)

const systemPrompt = `You are a professional FX trader and analyst.
Analyze the provided market data and write a concise, professional market narrative for %s.
Focus on:
1. Current trend and key levels.
2. Correlation with other assets.
3. Market session context (Tokyo/London/New York).
4. Potential scenarios for the next few hours.
Keep the tone objective and professional. Use bullet points for clarity.`

// SystemPrompt returns the instruction block for the instrument.
func SystemPrompt(symbol string) string {
	return fmt.Sprintf(systemPrompt, symbol)
}

// UserPrompt renders the structured context as the user message.
func UserPrompt(in models.NarrativeContext) (string, error) {
	b, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode narrative context: %w", err)
	}
	return fmt.Sprintf("Current Date/Time: %s\nMarket Data Summary:\n%s\n\nPlease generate a market narrative based on this data.",
		in.Timestamp.Format(time.DateTime), b), nil
}
