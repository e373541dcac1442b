package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"fx-analyzer/internal/api"
	"fx-analyzer/internal/types"
)

const (
	defaultOpenAIURL = "https://api.openai.com/v1/chat/completions"
	defaultClaudeURL = "https://api.anthropic.com/v1/messages"

	systemPrompt = "You are a currency-market analyst classifying the sentiment of forex news headlines. Respond ONLY with valid JSON."
)

// LLMConfig configures an LLM-backed classifier.
type LLMConfig struct {
	Provider string // OPENAI or CLAUDE
	Model    string
	Endpoint string // overrides the provider default
	APIKey   string // falls back to OPENAI_API_KEY / ANTHROPIC_API_KEY
}

// LLMClassifier asks a chat model to label a whole batch in one call.
type LLMClassifier struct {
	cfg    LLMConfig
	client *api.Client
}

// NewLLMClassifier validates the provider and resolves the API key.
func NewLLMClassifier(cfg LLMConfig, client *api.Client) (*LLMClassifier, error) {
	cfg.Provider = strings.ToUpper(cfg.Provider)
	switch cfg.Provider {
	case "OPENAI":
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if cfg.Endpoint == "" {
			cfg.Endpoint = defaultOpenAIURL
		}
		if cfg.APIKey == "" {
			return nil, errors.New("OPENAI_API_KEY missing")
		}
	case "CLAUDE":
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if cfg.Endpoint == "" {
			cfg.Endpoint = defaultClaudeURL
		}
		if cfg.APIKey == "" {
			return nil, errors.New("ANTHROPIC_API_KEY missing")
		}
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if client == nil {
		client = api.NewClient(api.WithService(strings.ToLower(cfg.Provider)))
	}
	return &LLMClassifier{cfg: cfg, client: client}, nil
}

type llmLabel struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classify sends the batch as a numbered list and expects a JSON array with
// one entry per headline, in order.
func (c *LLMClassifier) Classify(ctx context.Context, batch []string) ([]types.SentimentDocument, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	prompt := buildBatchPrompt(batch)

	var content string
	var err error
	switch c.cfg.Provider {
	case "OPENAI":
		content, err = c.completeOpenAI(ctx, prompt)
	default:
		content, err = c.completeClaude(ctx, prompt)
	}
	if err != nil {
		return nil, err
	}

	labels, err := parseLabels(content)
	if err != nil {
		return nil, err
	}
	if len(labels) != len(batch) {
		return nil, fmt.Errorf("classifier returned %d labels for %d headlines", len(labels), len(batch))
	}

	out := make([]types.SentimentDocument, len(labels))
	for i, l := range labels {
		out[i] = types.SentimentDocument{
			Label: NormalizeLabel(l.Label),
			Score: clamp01(l.Score),
		}
	}
	return out, nil
}

func buildBatchPrompt(batch []string) string {
	var b strings.Builder
	b.WriteString("Classify the market sentiment of each headline below.\n\n")
	for i, h := range batch {
		fmt.Fprintf(&b, "%d. %s\n", i+1, h)
	}
	fmt.Fprintf(&b, `
Respond ONLY with a JSON array of exactly %d objects, in the same order:
[{"label": "POSITIVE|NEGATIVE|NEUTRAL", "score": 0.0 to 1.0 (confidence)}]`, len(batch))
	return b.String()
}

// parseLabels tolerates a markdown code fence around the array.
func parseLabels(content string) ([]llmLabel, error) {
	content = strings.TrimSpace(content)
	if i := strings.Index(content, "["); i >= 0 {
		if j := strings.LastIndex(content, "]"); j > i {
			content = content[i : j+1]
		}
	}
	var labels []llmLabel
	if err := json.Unmarshal([]byte(content), &labels); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}
	return labels, nil
}

func (c *LLMClassifier) completeOpenAI(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model": c.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
		"temperature": 0.1,
		"max_tokens":  500,
	}

	resp, err := c.client.POST(ctx, c.cfg.Endpoint, body, map[string]string{
		"Authorization": "Bearer " + c.cfg.APIKey,
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai: %w", types.ErrCollaboratorUnavailable, err)
	}

	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := resp.ParseJSON(&r); err != nil {
		return "", err
	}
	if len(r.Choices) == 0 {
		return "", errors.New("no choices")
	}
	return r.Choices[0].Message.Content, nil
}

func (c *LLMClassifier) completeClaude(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model":      c.cfg.Model,
		"max_tokens": 500,
		"system":     systemPrompt,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	resp, err := c.client.POST(ctx, c.cfg.Endpoint, body, map[string]string{
		"x-api-key":         c.cfg.APIKey,
		"anthropic-version": "2023-06-01",
	})
	if err != nil {
		return "", fmt.Errorf("%w: claude: %w", types.ErrCollaboratorUnavailable, err)
	}

	var r struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := resp.ParseJSON(&r); err != nil {
		return "", err
	}
	if len(r.Content) == 0 {
		return "", errors.New("no content")
	}
	return r.Content[0].Text, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
