// Package entities detects people, organizations and places in transcript
// text so they can be redacted without being listed by hand.
package entities

import (
	"context"
)

// Recognizer finds named entities in plain text
type Recognizer interface {
	// Recognize returns entities of the requested categories in text order
	Recognize(ctx context.Context, text string, categories []Category) ([]Entity, error)
	Name() string
	Close() error
}

var (
	_ Recognizer = (*NERRecognizer)(nil)
	_ Recognizer = (*PatternRecognizer)(nil)
	_ Recognizer = (*GazetteerRecognizer)(nil)
	_ Recognizer = (*OpenAIRecognizer)(nil)
	_ Recognizer = (*CachedRecognizer)(nil)
)
