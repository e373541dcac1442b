package interfaces

import (
	"context"

	"fx-analyzer/internal/types"
)

// Classifier labels each text. Output is one document per input, in order.
// Implementations must be safe for concurrent use.
type Classifier interface {
	Classify(ctx context.Context, batch []string) ([]types.SentimentDocument, error)
}
