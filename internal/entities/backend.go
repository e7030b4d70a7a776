package entities

import (
	"context"
)

// TokenClassifier runs a token-classification network. Implementations may use
// ONNX Runtime or another engine; the default build has none.
type TokenClassifier interface {
	// Classify runs one sequence and returns a row of label logits per
	// input position.
	Classify(ctx context.Context, inputIDs, attentionMask, tokenTypeIDs []int64) ([][]float32, error)
	Close() error
}
