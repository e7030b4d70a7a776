package entities

import (
	"fmt"
	"strings"
	"time"
)

// Category is a named-entity class that can be targeted for redaction
type Category string

const (
	Person             Category = "PERSON"
	Organization       Category = "ORGANIZATION"
	Location           Category = "LOCATION"
	GeopoliticalEntity Category = "GEOPOLITICAL-ENTITY"
)

// AllCategories lists the supported categories in display order
var AllCategories = []Category{Person, Organization, Location, GeopoliticalEntity}

// DefaultCategories are detected when a request names none
var DefaultCategories = []Category{Person, Organization}

var categoryAliases = map[string]Category{
	"PERSON":              Person,
	"PER":                 Person,
	"ORGANIZATION":        Organization,
	"ORG":                 Organization,
	"LOCATION":            Location,
	"LOC":                 Location,
	"GEOPOLITICAL-ENTITY": GeopoliticalEntity,
	"GEOPOLITICAL_ENTITY": GeopoliticalEntity,
	"GPE":                 GeopoliticalEntity,
}

// ParseCategory accepts a category name or one of its short labels
// (PER, ORG, LOC, GPE), case-insensitively.
func ParseCategory(s string) (Category, error) {
	if c, ok := categoryAliases[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown entity category: %q", s)
}

// ParseCategories parses a comma separated list. Duplicates are dropped and an
// empty list yields DefaultCategories.
func ParseCategories(raw []string) ([]Category, error) {
	var out []Category
	seen := map[Category]bool{}
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			c, err := ParseCategory(part)
			if err != nil {
				return nil, err
			}
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	if len(out) == 0 {
		return append([]Category(nil), DefaultCategories...), nil
	}
	return out, nil
}

func categorySet(categories []Category) map[Category]bool {
	set := make(map[Category]bool, len(categories))
	for _, c := range categories {
		set[c] = true
	}
	return set
}

func categoryNames(categories []Category) []string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}
	return names
}

// Entity is one recognized span. Start and End are byte offsets into the
// recognized text and Text is exactly text[Start:End].
type Entity struct {
	Text     string   `json:"text"`
	Category Category `json:"category"`
	Start    int      `json:"start"`
	End      int      `json:"end"`
	Score    float32  `json:"score,omitempty"`
}

// ModelConfig contains token-classification model configuration
type ModelConfig struct {
	ModelPath string `yaml:"model_path" mapstructure:"model_path"` // "./models/ner.onnx"
	VocabPath string `yaml:"vocab_path" mapstructure:"vocab_path"` // "./models/vocab.txt"
	// Labels is the model's id2label table; empty means the CoNLL-03 order
	Labels       []string      `yaml:"labels" mapstructure:"labels"`
	Lowercase    bool          `yaml:"lowercase" mapstructure:"lowercase"`
	MaxLength    int           `yaml:"max_length" mapstructure:"max_length"` // 512
	MinScore     float32       `yaml:"min_score" mapstructure:"min_score"`
	ModelTimeout time.Duration `yaml:"model_timeout" mapstructure:"model_timeout"`
}

// OpenAIConfig configures the chat-completion backend
type OpenAIConfig struct {
	APIKey    string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL   string        `yaml:"base_url" mapstructure:"base_url"`
	Model     string        `yaml:"model" mapstructure:"model"`
	MaxTokens int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// RecognitionError is a typed recognizer failure
type RecognitionError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (e *RecognitionError) Error() string {
	return e.Message
}

// Common error types
var (
	ErrModelUnavailable   = &RecognitionError{Type: "model_unavailable", Message: "entity model unavailable", Code: 2001}
	ErrInferenceFailed    = &RecognitionError{Type: "inference_failed", Message: "inference failed", Code: 2002}
	ErrTokenizationFailed = &RecognitionError{Type: "tokenization_failed", Message: "tokenization failed", Code: 2003}
	ErrConfigError        = &RecognitionError{Type: "config_error", Message: "configuration error", Code: 2004}
)
