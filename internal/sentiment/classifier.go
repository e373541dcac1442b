package sentiment

import (
	"fmt"
	"strings"
	"time"

	"fx-analyzer/internal/api"
	"fx-analyzer/internal/interfaces"
)

// Config selects and tunes the classifier.
type Config struct {
	Provider  string // LEXICON, OPENAI or CLAUDE
	Model     string
	Endpoint  string
	RateLimit float64 // requests per second against the LLM endpoint
	Timeout   time.Duration
}

// NewClassifier builds the configured classifier. It is meant to be called
// once and the result shared across requests.
func NewClassifier(cfg Config) (interfaces.Classifier, error) {
	switch strings.ToUpper(cfg.Provider) {
	case "", "LEXICON":
		return NewLexiconClassifier(), nil
	case "OPENAI", "CLAUDE":
		opts := []api.ClientOption{
			api.WithService(strings.ToLower(cfg.Provider)),
			api.WithRateLimit(cfg.RateLimit, 1),
		}
		if cfg.Timeout > 0 {
			opts = append(opts, api.WithTimeout(cfg.Timeout))
		}
		clf, err := NewLLMClassifier(LLMConfig{
			Provider: cfg.Provider,
			Model:    cfg.Model,
			Endpoint: cfg.Endpoint,
		}, api.NewClient(opts...))
		if err != nil {
			return nil, err
		}
		return clf, nil
	default:
		return nil, fmt.Errorf("unknown classifier provider %q", cfg.Provider)
	}
}
