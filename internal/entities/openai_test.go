package entities

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

func newChatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header Bearer test-key, got %s", r.Header.Get("Authorization"))
		}

		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
			t.Error("expected JSON response format")
		}
		if len(req.Messages) != 2 || !strings.Contains(req.Messages[1].Content, "PERSON, ORGANIZATION") {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		resp := openai.ChatCompletionResponse{
			ID:     "chatcmpl-123",
			Object: "chat.completion",
			Model:  "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{
				{
					Index:        0,
					Message:      openai.ChatCompletionMessage{Role: "assistant", Content: content},
					FinishReason: "stop",
				},
			},
			Usage: openai.Usage{TotalTokens: 42},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestOpenAIRecognizer(t *testing.T) {
	text := "Alan Ngouenet joined Acme in 2019."
	content := `{"entities":[
		{"text":"Alan Ngouenet","category":"PERSON"},
		{"text":"Bob Invented","category":"PERSON"},
		{"text":"Paris","category":"LOC"},
		{"text":"Acme","category":"ORG"},
		{"text":"2019","category":"DATE"}]}`

	server := newChatServer(t, content)
	defer server.Close()

	rec, err := NewOpenAIRecognizer(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL}, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create recognizer: %v", err)
	}

	got, err := rec.Recognize(context.Background(), text, []Category{Person, Organization})
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	want := []Entity{
		{Text: "Alan Ngouenet", Category: Person, Start: 0, End: 13},
		{Text: "Acme", Category: Organization, Start: 21, End: 25},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestOpenAIRecognizerMalformedResponse(t *testing.T) {
	server := newChatServer(t, "Sure! Here are the entities: Alan")
	defer server.Close()

	rec, err := NewOpenAIRecognizer(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	_, err = rec.Recognize(context.Background(), "Alan", []Category{Person, Organization})
	if !errors.Is(err, ErrInferenceFailed) {
		t.Errorf("expected ErrInferenceFailed, got %v", err)
	}
}

func TestOpenAIRecognizerRequiresKey(t *testing.T) {
	if _, err := NewOpenAIRecognizer(OpenAIConfig{}, zap.NewNop()); !errors.Is(err, ErrConfigError) {
		t.Errorf("expected ErrConfigError, got %v", err)
	}
}

func TestParseLLMEntitiesCodeFence(t *testing.T) {
	content := "```json\n{\"entities\":[{\"text\":\"Ann\",\"category\":\"PER\"}]}\n```"
	got, rejected, err := parseLLMEntities(content, "Hi Ann", categorySet(DefaultCategories))
	if err != nil || rejected != 0 || len(got) != 1 || got[0].Start != 3 {
		t.Errorf("unexpected result %+v rejected=%d err=%v", got, rejected, err)
	}
}
