package pipeline

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/raaihank/transcript-scrubber/internal/entities"
	"github.com/raaihank/transcript-scrubber/internal/extract"
	"github.com/raaihank/transcript-scrubber/internal/pdf"
	"github.com/raaihank/transcript-scrubber/internal/pdf/pdftest"
	"github.com/raaihank/transcript-scrubber/internal/redact"
)

type stubRecognizer struct {
	found []entities.Entity
}

func (s stubRecognizer) Recognize(ctx context.Context, text string, categories []entities.Category) ([]entities.Entity, error) {
	return s.found, nil
}
func (s stubRecognizer) Name() string { return "stub" }
func (s stubRecognizer) Close() error { return nil }

func transcript() []byte {
	return pdftest.Build(
		pdftest.Line(72, 720, "Q. Mr. Ngouenet, where were you?")+pdftest.Line(72, 700, "A. With Ann at Acme Corp."),
		pdftest.Line(72, 720, "MR. NGOUENET: Nothing further."),
	)
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeManual, "manual": ModeManual, " AUTO ": ModeAuto} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %s, %v; want %s", in, got, err, want)
		}
	}
	if _, err := ParseMode("magic"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestRunManual(t *testing.T) {
	p := New(DefaultConfig(), nil, zap.NewNop())

	res, err := p.Run(context.Background(), Request{
		Document:       transcript(),
		Mode:           ModeManual,
		Terms:          "Ngouenet, Ann",
		Replacement:    "  ",
		RedactDocument: true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Replacement != redact.DefaultReplacement {
		t.Errorf("expected default replacement, got %q", res.Replacement)
	}
	if !reflect.DeepEqual(res.Terms.Strings(), []string{"Ngouenet", "Ann"}) {
		t.Errorf("unexpected terms %v", res.Terms.Strings())
	}

	want := "Q. Mr. [REDACTED], where were you?\nA. With [REDACTED] at Acme Corp.\n\nMR. [REDACTED]: Nothing further."
	if res.Text.Text != want {
		t.Errorf("unexpected redacted text:\n%s\nwant:\n%s", res.Text.Text, want)
	}
	if res.TextArtifact == nil || res.TextArtifact.Name != TextArtifactName || string(res.TextArtifact.Data) != want {
		t.Errorf("unexpected text artifact %+v", res.TextArtifact)
	}
	if res.TextErr != nil || res.DocumentErr != nil {
		t.Fatalf("unexpected artifact errors: %v / %v", res.TextErr, res.DocumentErr)
	}

	if res.DocumentArtifact == nil || res.DocumentArtifact.ContentType != DocumentContentType {
		t.Fatalf("missing document artifact")
	}
	if res.Document.Pages != 2 || res.Document.Regions != 3 {
		t.Errorf("unexpected document result %+v", res.Document)
	}

	redacted, err := extract.Extract(res.DocumentArtifact.Data, extract.DefaultOptions())
	if err != nil {
		t.Fatalf("redacted PDF unreadable: %v", err)
	}
	for _, gone := range []string{"Ngouenet", "NGOUENET", "Ann "} {
		if strings.Contains(redacted.Text, gone) {
			t.Errorf("%q survived in the PDF: %q", gone, redacted.Text)
		}
	}
	if !strings.Contains(redacted.Text, "Acme Corp.") {
		t.Errorf("unrelated text lost: %q", redacted.Text)
	}
}

func TestRunWithoutDocument(t *testing.T) {
	p := New(DefaultConfig(), nil, zap.NewNop())
	res, err := p.Run(context.Background(), Request{Document: transcript(), Terms: "Acme Corp"})
	if err != nil {
		t.Fatal(err)
	}
	if res.DocumentArtifact != nil || res.DocumentErr != nil {
		t.Error("document should not be produced")
	}
	if res.Text.Total != 1 {
		t.Errorf("expected one match, got %d", res.Text.Total)
	}
}

func TestRunEmptyTermsIsIdentity(t *testing.T) {
	p := New(DefaultConfig(), nil, zap.NewNop())
	res, err := p.Run(context.Background(), Request{Document: transcript(), Terms: " , \n"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Text.Text != res.OriginalText || res.Text.Total != 0 {
		t.Error("expected unchanged text")
	}
}

func TestRunAuto(t *testing.T) {
	model := entities.NewModel(func() (entities.Recognizer, error) {
		return stubRecognizer{found: []entities.Entity{
			{Text: "Acme Corp", Category: entities.Organization},
			{Text: "Ngouenet", Category: entities.Person},
		}}, nil
	}, zap.NewNop())

	p := New(DefaultConfig(), model, zap.NewNop())
	res, err := p.Run(context.Background(), Request{
		Document:    transcript(),
		Mode:        ModeAuto,
		Terms:       "ann",
		Replacement: "###",
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !reflect.DeepEqual(res.TermPreview(10), []string{"Acme Corp", "Ngouenet", "ann"}) {
		t.Errorf("unexpected terms %v", res.TermPreview(10))
	}
	if !reflect.DeepEqual(res.Categories, entities.DefaultCategories) {
		t.Errorf("expected default categories, got %v", res.Categories)
	}
	if strings.Contains(res.Text.Text, "Acme") || strings.Contains(res.Text.Text, "Ann") {
		t.Errorf("terms survived: %q", res.Text.Text)
	}
	if got := strings.Count(res.Text.Text, "###"); got != 4 {
		t.Errorf("expected 4 replacements, got %d in %q", got, res.Text.Text)
	}
}

func TestRunTerminalErrors(t *testing.T) {
	t.Run("NoText", func(t *testing.T) {
		p := New(DefaultConfig(), nil, zap.NewNop())
		_, err := p.Run(context.Background(), Request{Document: pdftest.Build("")})
		if !errors.Is(err, extract.ErrNoExtractableText) {
			t.Errorf("expected ErrNoExtractableText, got %v", err)
		}
	})

	t.Run("ModelMissing", func(t *testing.T) {
		p := New(DefaultConfig(), nil, zap.NewNop())
		_, err := p.Run(context.Background(), Request{Document: transcript(), Mode: ModeAuto})
		if !errors.Is(err, entities.ErrModelUnavailable) {
			t.Errorf("expected ErrModelUnavailable, got %v", err)
		}
	})

	t.Run("ModelFailsToLoad", func(t *testing.T) {
		model := entities.NewModel(func() (entities.Recognizer, error) {
			return nil, errors.New("no such file")
		}, zap.NewNop())
		p := New(DefaultConfig(), model, zap.NewNop())
		_, err := p.Run(context.Background(), Request{Document: transcript(), Mode: ModeAuto})
		if !errors.Is(err, entities.ErrModelUnavailable) {
			t.Errorf("expected ErrModelUnavailable, got %v", err)
		}
	})

	t.Run("ManualModeIgnoresModel", func(t *testing.T) {
		p := New(DefaultConfig(), nil, zap.NewNop())
		if _, err := p.Run(context.Background(), Request{Document: transcript(), Terms: "Ann"}); err != nil {
			t.Errorf("manual mode should not need a model: %v", err)
		}
	})
}

func TestDocumentFailureKeepsText(t *testing.T) {
	p := New(DefaultConfig(), nil, zap.NewNop())
	p.documents = redact.NewDocumentRedactor(func([]byte) (redact.Document, error) {
		return nil, pdf.ErrDocumentParse
	}, zap.NewNop())

	res, err := p.Run(context.Background(), Request{Document: transcript(), Terms: "Ann", RedactDocument: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.TextArtifact == nil || res.TextErr != nil {
		t.Fatal("text artifact must survive a document failure")
	}
	if res.DocumentArtifact != nil {
		t.Error("document artifact should be missing")
	}

	var artifactErr *ArtifactError
	if !errors.As(res.DocumentErr, &artifactErr) || artifactErr.Artifact != DocumentArtifactName {
		t.Fatalf("expected ArtifactError for the PDF, got %v", res.DocumentErr)
	}
	if !errors.Is(res.DocumentErr, pdf.ErrDocumentParse) {
		t.Errorf("expected ErrDocumentParse, got %v", res.DocumentErr)
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("héllo", 2); got != "hé" {
		t.Errorf("expected rune-based truncation, got %q", got)
	}
	if got := Preview("abc", 10); got != "abc" {
		t.Errorf("expected unchanged, got %q", got)
	}
	long := strings.Repeat("x", DefaultPreviewChars+5)
	if got := Preview(long, DefaultPreviewChars); len(got) != DefaultPreviewChars {
		t.Errorf("expected %d characters, got %d", DefaultPreviewChars, len(got))
	}
}
