package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/grindlab/exicon/internal/domain"
)

// Cleaner proposes normalized rewrites of exercise descriptions:
// spelling, capitalization, and terminology consistent with the rest of
// the lexicon, without changing meaning.
type Cleaner struct {
	client *Client
}

// NewCleaner creates a description cleanup pipeline backed by the given
// client.
func NewCleaner(client *Client) *Cleaner {
	return &Cleaner{client: client}
}

type cleanupResponse struct {
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// CleanupOutcome is a proposed rewrite of one field with the model's
// self-reported confidence. A zero-value outcome means no change was
// suggested.
type CleanupOutcome struct {
	Field      string
	Proposed   string
	Confidence float64
}

// CleanDescription asks the model for a normalized version of the
// exercise description. Returns nil when the text is empty or the model
// proposes no change.
func (c *Cleaner) CleanDescription(ctx context.Context, ex *domain.Exercise) (*CleanupOutcome, error) {
	current := strings.TrimSpace(ex.Description)
	if current == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.client.cfg.Timeout)
	defer cancel()

	content, err := c.client.complete(ctx, buildCleanupPrompt(ex.Name, current))
	if err != nil {
		return nil, fmt.Errorf("description cleanup failed: %w", err)
	}

	var resp cleanupResponse
	if err := ParseJSON(content, &resp); err != nil {
		// Unparseable output is treated as "no suggestion".
		return nil, nil
	}

	proposed := strings.TrimSpace(resp.Description)
	if proposed == "" || proposed == current {
		return nil, nil
	}
	if resp.Confidence < 0 {
		resp.Confidence = 0
	}
	if resp.Confidence > 1 {
		resp.Confidence = 1
	}

	return &CleanupOutcome{
		Field:      domain.FieldDescription,
		Proposed:   proposed,
		Confidence: resp.Confidence,
	}, nil
}

func buildCleanupPrompt(name, description string) string {
	var sb strings.Builder
	sb.WriteString("Clean up the following exercise description from a community lexicon. ")
	sb.WriteString("Fix spelling, grammar, and capitalization. Keep the meaning, tone, and any ")
	sb.WriteString("[text](@slug) links exactly as they are. Do not add new information.\n\n")
	sb.WriteString("Exercise: ")
	sb.WriteString(name)
	sb.WriteString("\nDescription:\n")
	sb.WriteString(description)
	sb.WriteString("\n\nRespond in JSON format: {\"description\": \"cleaned text\", \"confidence\": 0.0}")
	sb.WriteString("\nConfidence is your certainty in [0,1] that the rewrite preserves meaning.")
	return sb.String()
}
