//go:build !onnx
// +build !onnx

package entities

import (
	"fmt"

	"go.uber.org/zap"
)

// NewTokenClassifier is unavailable when the 'onnx' build tag is not set
func NewTokenClassifier(logger *zap.Logger, modelPath string) (TokenClassifier, error) {
	logger.Warn("ONNX support not compiled in", zap.String("model", modelPath))
	return nil, fmt.Errorf("%w: built without onnx support, rebuild with -tags onnx", ErrModelUnavailable)
}
