package entities

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// NERRecognizer runs a BERT-style token-classification model over the text.
// The model has a fixed maximum sequence length, so long texts are fed as
// consecutive windows that never split a word.
type NERRecognizer struct {
	tokenizer  *Tokenizer
	classifier TokenClassifier
	labels     []string
	config     ModelConfig
	logger     *zap.Logger
}

// NewNERRecognizer assembles a recognizer from its parts
func NewNERRecognizer(tokenizer *Tokenizer, classifier TokenClassifier, config ModelConfig, logger *zap.Logger) *NERRecognizer {
	labels := config.Labels
	if len(labels) == 0 {
		labels = DefaultLabels
	}
	if config.MaxLength <= 2 {
		config.MaxLength = 512
	}
	return &NERRecognizer{
		tokenizer:  tokenizer,
		classifier: classifier,
		labels:     labels,
		config:     config,
		logger:     logger,
	}
}

// LoadNERRecognizer loads the vocabulary and the ONNX model
func LoadNERRecognizer(config ModelConfig, logger *zap.Logger) (*NERRecognizer, error) {
	tokenizer, err := LoadVocab(config.VocabPath, config.Lowercase)
	if err != nil {
		return nil, err
	}
	classifier, err := NewTokenClassifier(logger, config.ModelPath)
	if err != nil {
		return nil, err
	}
	return NewNERRecognizer(tokenizer, classifier, config, logger), nil
}

// Name returns the recognizer name
func (r *NERRecognizer) Name() string {
	return "onnx"
}

// Recognize labels every word with the prediction of its first sub-token and
// merges B-/I- runs into entities.
func (r *NERRecognizer) Recognize(ctx context.Context, text string, categories []Category) ([]Entity, error) {
	if r.config.ModelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.ModelTimeout)
		defer cancel()
	}

	tokens := r.tokenizer.Tokenize(text)
	windows := Windows(tokens, r.config.MaxLength)

	words := make([]wordLabel, 0, len(tokens))
	for _, window := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ids, mask, types := r.tokenizer.Encode(window)
		logits, err := r.classifier.Classify(ctx, ids, mask, types)
		if err != nil {
			return nil, err
		}
		if len(logits) != len(ids) {
			return nil, fmt.Errorf("%w: got %d rows for %d tokens", ErrInferenceFailed, len(logits), len(ids))
		}

		for k, tok := range window {
			if k > 0 && window[k-1].Word == tok.Word {
				words[len(words)-1].end = tok.End
				continue
			}
			best, score := argmax(logits[k+1])
			if best >= len(r.labels) {
				return nil, fmt.Errorf("%w: label id %d outside %d labels", ErrInferenceFailed, best, len(r.labels))
			}
			words = append(words, wordLabel{start: tok.Start, end: tok.End, label: r.labels[best], score: score})
		}
	}

	found := decodeEntities(text, words, categorySet(categories), r.config.MinScore)
	r.logger.Debug("NER completed",
		zap.Int("tokens", len(tokens)),
		zap.Int("windows", len(windows)),
		zap.Int("entities", len(found)))
	return found, nil
}

// Close releases the classifier
func (r *NERRecognizer) Close() error {
	return r.classifier.Close()
}
