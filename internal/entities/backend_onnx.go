//go:build onnx
// +build onnx

package entities

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// OnnxClassifier implements TokenClassifier using ONNX Runtime
type OnnxClassifier struct {
	session    *ort.DynamicAdvancedSession
	inputNames []string
	outputName string
	logger     *zap.Logger
	mu         sync.Mutex
}

// NewTokenClassifier initializes the ONNX Runtime backend. Requires build tag 'onnx'.
func NewTokenClassifier(logger *zap.Logger, modelPath string) (TokenClassifier, error) {
	if shlib := os.Getenv("ONNXRUNTIME_SHARED_LIB"); shlib != "" {
		ort.SetSharedLibraryPath(shlib)
	} else if shlib := os.Getenv("ORT_SHLIB"); shlib != "" {
		ort.SetSharedLibraryPath(shlib)
	}

	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("%w: onnx runtime init failed: %v", ErrModelUnavailable, err)
		}
	}

	inputsInfo, outputsInfo, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to inspect model %s: %v", ErrModelUnavailable, modelPath, err)
	}
	if len(outputsInfo) == 0 {
		return nil, fmt.Errorf("%w: model %s reports no outputs", ErrModelUnavailable, modelPath)
	}

	inputNames := make([]string, 0, len(inputsInfo))
	for _, ii := range inputsInfo {
		inputNames = append(inputNames, ii.Name)
	}
	outputName := outputsInfo[0].Name

	sess, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, []string{outputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: session creation failed: %v", ErrModelUnavailable, err)
	}

	logger.Info("ONNX Runtime classifier ready",
		zap.String("model", modelPath),
		zap.Strings("inputs", inputNames),
		zap.String("output", outputName))

	return &OnnxClassifier{session: sess, inputNames: inputNames, outputName: outputName, logger: logger}, nil
}

// Close releases session and environment resources
func (c *OnnxClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.session.Destroy()
		c.session = nil
	}
	return ort.DestroyEnvironment()
}

// Classify runs one sequence and returns [seq][labels] logits
func (c *OnnxClassifier) Classify(ctx context.Context, inputIDs, attentionMask, tokenTypeIDs []int64) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, ErrModelUnavailable
	}

	seqLen := len(inputIDs)
	shape := ort.NewShape(1, int64(seqLen))

	tensors := map[string]*ort.Tensor[int64]{}
	for name, data := range map[string][]int64{"ids": inputIDs, "mask": attentionMask, "type": tokenTypeIDs} {
		t, err := ort.NewTensor(shape, data)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to create %s tensor: %v", ErrInferenceFailed, name, err)
		}
		defer t.Destroy()
		tensors[name] = t
	}

	inputs := make([]ort.Value, 0, len(c.inputNames))
	for _, rawName := range c.inputNames {
		name := strings.ToLower(rawName)
		switch {
		case strings.Contains(name, "mask") || strings.Contains(name, "attention"):
			inputs = append(inputs, tensors["mask"])
		case strings.Contains(name, "type") || strings.Contains(name, "segment"):
			inputs = append(inputs, tensors["type"])
		default:
			inputs = append(inputs, tensors["ids"])
		}
	}

	outputs := make([]ort.Value, 1)
	if err := c.session.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("%w: onnx run failed: %v", ErrInferenceFailed, err)
	}
	if outputs[0] == nil {
		return nil, fmt.Errorf("%w: onnx returned no outputs", ErrInferenceFailed)
	}
	defer outputs[0].Destroy()

	outTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("%w: unexpected output type (want float32 tensor)", ErrInferenceFailed)
	}
	data := outTensor.GetData()
	outShape := outTensor.GetShape()
	if len(outShape) != 3 || int(outShape[1]) != seqLen {
		return nil, fmt.Errorf("%w: unsupported output shape %v", ErrInferenceFailed, outShape)
	}
	numLabels := int(outShape[2])
	if len(data) != seqLen*numLabels {
		return nil, fmt.Errorf("%w: unexpected flat data length %d for shape %v", ErrInferenceFailed, len(data), outShape)
	}

	logits := make([][]float32, seqLen)
	for s := 0; s < seqLen; s++ {
		row := make([]float32, numLabels)
		copy(row, data[s*numLabels:(s+1)*numLabels])
		logits[s] = row
	}
	return logits, nil
}
