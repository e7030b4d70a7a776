package entities

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const systemPrompt = "You are a named-entity recognizer for legal and interview transcripts. " +
	"Reply with a JSON object {\"entities\":[{\"text\":\"...\",\"category\":\"...\"}]}. " +
	"Copy every entity exactly as it is written in the transcript. Do not add entities that are not in it."

// OpenAIRecognizer asks a chat-completion model for entities. Only strings
// that occur verbatim in the text are kept.
type OpenAIRecognizer struct {
	client *openai.Client
	config OpenAIConfig
	logger *zap.Logger
}

// NewOpenAIRecognizer creates a new OpenAI-backed recognizer
func NewOpenAIRecognizer(config OpenAIConfig, logger *zap.Logger) (*OpenAIRecognizer, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", ErrConfigError)
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.Model == "" {
		config.Model = openai.GPT4oMini
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	return &OpenAIRecognizer{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logger,
	}, nil
}

// Name returns the recognizer name
func (o *OpenAIRecognizer) Name() string {
	return "openai"
}

type llmEntities struct {
	Entities []struct {
		Text     string `json:"text"`
		Category string `json:"category"`
	} `json:"entities"`
}

// Recognize sends the whole text in one request
func (o *OpenAIRecognizer) Recognize(ctx context.Context, text string, categories []Category) ([]Entity, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	prompt := fmt.Sprintf("Entity categories: %s.\n\nTranscript:\n%s",
		strings.Join(categoryNames(categories), ", "), text)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   o.config.MaxTokens,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: OpenAI API error: %v", ErrInferenceFailed, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no response from OpenAI", ErrInferenceFailed)
	}

	found, rejected, err := parseLLMEntities(resp.Choices[0].Message.Content, text, categorySet(categories))
	if err != nil {
		return nil, err
	}

	o.logger.Debug("OpenAI recognition completed",
		zap.String("model", o.config.Model),
		zap.Int("entities", len(found)),
		zap.Int("rejected", rejected),
		zap.Int("tokens_used", resp.Usage.TotalTokens))
	return found, nil
}

// parseLLMEntities keeps entities of wanted categories whose text occurs in
// the source, located at their first occurrence.
func parseLLMEntities(content, text string, wanted map[Category]bool) ([]Entity, int, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var parsed llmEntities
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, 0, fmt.Errorf("%w: malformed OpenAI response: %v", ErrInferenceFailed, err)
	}

	var found []Entity
	rejected := 0
	for _, e := range parsed.Entities {
		c, err := ParseCategory(e.Category)
		if err != nil || !wanted[c] {
			rejected++
			continue
		}
		v := strings.TrimSpace(e.Text)
		idx := strings.Index(text, v)
		if v == "" || idx < 0 {
			rejected++
			continue
		}
		found = append(found, Entity{Text: v, Category: c, Start: idx, End: idx + len(v)})
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].Start < found[j].Start })
	return found, rejected, nil
}

// Close is a no-op
func (o *OpenAIRecognizer) Close() error {
	return nil
}
