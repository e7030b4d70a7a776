// Package pipeline runs one scrub request from PDF bytes to the redacted
// text and redacted PDF artifacts.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/transcript-scrubber/internal/entities"
	"github.com/raaihank/transcript-scrubber/internal/extract"
	"github.com/raaihank/transcript-scrubber/internal/matcher"
	"github.com/raaihank/transcript-scrubber/internal/redact"
	"github.com/raaihank/transcript-scrubber/internal/terms"
)

// Pipeline is safe for concurrent use; it keeps no per-request state
type Pipeline struct {
	config    Config
	extractor *extract.Extractor
	model     *entities.Model
	documents *redact.DocumentRedactor
	logger    *zap.Logger
}

// New creates a pipeline. model may be nil, in which case auto mode fails
// with entities.ErrModelUnavailable.
func New(config Config, model *entities.Model, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(config.Replacement) == "" {
		config.Replacement = redact.DefaultReplacement
	}
	if len(config.Categories) == 0 {
		config.Categories = entities.DefaultCategories
	}
	return &Pipeline{
		config:    config,
		extractor: extract.New(config.Extraction, logger),
		model:     model,
		documents: redact.NewDocumentRedactor(nil, logger),
		logger:    logger,
	}
}

// Config returns the pipeline defaults
func (p *Pipeline) Config() Config {
	return p.config
}

// Run extracts the text, resolves the terms, and produces both artifacts.
// Extraction failures and an unavailable model are returned as errors; a
// failed artifact is reported in the result instead.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	mode := req.Mode
	if mode == "" {
		mode = ModeManual
	}
	replacement := strings.TrimSpace(req.Replacement)
	if replacement == "" {
		replacement = p.config.Replacement
	}
	result := &Result{Mode: mode, Replacement: replacement}

	doc, err := p.extractor.Extract(ctx, req.Document)
	if err != nil {
		return nil, err
	}
	result.Source = doc.Source
	result.Pages = len(doc.Pages)
	result.OriginalText = doc.Text

	set, err := p.resolveTerms(ctx, req, mode, doc.Text, result)
	if err != nil {
		return nil, err
	}
	result.Terms = set

	policy := matcher.Compile(set, replacement)

	if err := p.safely(func() error {
		result.Text = redact.RedactText(doc.Text, policy)
		result.TextArtifact = &Artifact{
			Name:        TextArtifactName,
			ContentType: TextContentType,
			Data:        []byte(result.Text.Text),
		}
		return nil
	}); err != nil {
		result.TextErr = &ArtifactError{Artifact: TextArtifactName, Err: err}
	}

	if req.RedactDocument {
		opts := p.config.DocumentOptions
		opts.Replacement = replacement
		if err := p.safely(func() error {
			res, err := p.documents.Redact(ctx, req.Document, set, opts)
			if err != nil {
				return err
			}
			result.Document = res
			result.DocumentArtifact = &Artifact{
				Name:        DocumentArtifactName,
				ContentType: DocumentContentType,
				Data:        res.Data,
			}
			return nil
		}); err != nil {
			result.DocumentErr = &ArtifactError{Artifact: DocumentArtifactName, Err: err}
			p.logger.Warn("Document artifact failed", zap.Error(err))
		}
	}

	result.Duration = time.Since(start)
	p.logger.Info("Scrub completed",
		zap.String("mode", string(mode)),
		zap.Int("pages", result.Pages),
		zap.Int("terms", set.Len()),
		zap.Int("text_matches", result.Text.Total),
		zap.Bool("document", result.DocumentArtifact != nil),
		zap.Duration("duration", result.Duration))

	return result, nil
}

func (p *Pipeline) resolveTerms(ctx context.Context, req Request, mode Mode, text string, result *Result) (terms.TermSet, error) {
	manual := terms.Normalize(req.Terms)
	if mode != ModeAuto {
		return manual, nil
	}

	categories := req.Categories
	if len(categories) == 0 {
		categories = p.config.Categories
	}
	result.Categories = categories

	if p.model == nil {
		return terms.TermSet{}, entities.ErrModelUnavailable
	}
	detected, err := p.model.Extract(ctx, text, categories)
	if err != nil {
		return terms.TermSet{}, err
	}
	return terms.Merge(manual, terms.FromDetected(detected)), nil
}

// safely runs fn and turns a panic into an error so one artifact cannot take
// down the other
func (p *Pipeline) safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Artifact generation panicked", zap.Any("panic", r))
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	return fn()
}
