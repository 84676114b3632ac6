package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"

	"github.com/grindlab/exicon/internal/domain"
)

// MaxVocabularyHints caps how many known exercise names are embedded in
// the detection prompt. Beyond this the prompt stops improving and only
// costs tokens.
const MaxVocabularyHints = 200

// Detector proposes substrings of a document's text that might name
// other exercises. It returns literal text only; offsets coming back
// from the model are not trustworthy and are deliberately discarded.
type Detector struct {
	client *Client
}

// NewDetector creates a mention detector backed by the given client.
func NewDetector(client *Client) *Detector {
	return &Detector{client: client}
}

type mentionsResponse struct {
	Mentions []string `json:"mentions"`
}

// Detect returns candidate mentions found in text. Transient API
// failures and unparseable output both yield zero candidates; neither
// is fatal for the document.
func (d *Detector) Detect(ctx context.Context, text, selfName string, vocabulary []string) ([]domain.ReferenceCandidate, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.client.cfg.Timeout)
	defer cancel()

	prompt := buildDetectionPrompt(text, selfName, vocabulary)

	content, err := d.client.complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("mention detection failed: %w", err)
	}

	var resp mentionsResponse
	if err := ParseJSON(content, &resp); err != nil {
		slog.Warn("Unparseable detector output, treating as zero candidates", "error", err)
		return nil, nil
	}

	return filterCandidates(resp.Mentions, selfName), nil
}

// complete runs one chat completion with JSON response format, retrying
// rate-limit errors with exponential backoff. Other errors are permanent.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	var content string

	operation := func() error {
		resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
			Model: c.model,
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &openai.ResponseFormatJSONObjectParam{
					Type: "json_object",
				},
			},
		})
		if err != nil {
			if isRateLimitError(err) {
				return err // Will retry with backoff
			}
			return backoff.Permanent(err)
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("empty completion response"))
		}
		content = resp.Choices[0].Message.Content
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", err
	}
	return content, nil
}

func buildDetectionPrompt(text, selfName string, vocabulary []string) string {
	if len(vocabulary) > MaxVocabularyHints {
		vocabulary = vocabulary[:MaxVocabularyHints]
	}

	var sb strings.Builder
	sb.WriteString("You are indexing an exercise lexicon. Find every substring of the ")
	sb.WriteString("text below that names an exercise other than the document's own.\n\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("- Return each mention exactly as it appears in the text, including plurals and casing.\n")
	sb.WriteString("- Do not return the document's own exercise name: ")
	sb.WriteString(selfName)
	sb.WriteString("\n")
	sb.WriteString("- Do not return mentions that are already links of the form [text](@slug).\n")
	sb.WriteString("- Only return substrings that literally occur in the text.\n\n")
	sb.WriteString("Known exercise names for reference:\n")
	sb.WriteString(strings.Join(vocabulary, ", "))
	sb.WriteString("\n\nText:\n")
	sb.WriteString(text)
	sb.WriteString("\n\nRespond in JSON format: {\"mentions\": [\"mention1\", \"mention2\"]}")
	return sb.String()
}

// filterCandidates drops empty strings, the document's own name, and
// duplicates while preserving order.
func filterCandidates(mentions []string, selfName string) []domain.ReferenceCandidate {
	seen := make(map[string]bool)
	var out []domain.ReferenceCandidate

	for _, m := range mentions {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		folded := strings.ToLower(m)
		if folded == strings.ToLower(strings.TrimSpace(selfName)) {
			continue
		}
		if seen[folded] {
			continue
		}
		seen[folded] = true
		out = append(out, domain.ReferenceCandidate{Text: m})
	}
	return out
}
