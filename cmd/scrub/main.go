package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/raaihank/transcript-scrubber/internal/config"
	"github.com/raaihank/transcript-scrubber/internal/entities"
	"github.com/raaihank/transcript-scrubber/internal/extract"
	"github.com/raaihank/transcript-scrubber/internal/logger"
	"github.com/raaihank/transcript-scrubber/internal/pipeline"
)

type options struct {
	configPath  string
	input       string
	terms       string
	termsFile   string
	mode        string
	categories  string
	replacement string
	outText     string
	outPDF      string
	noDocument  bool
	verbose     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Configuration file path")
	flag.StringVar(&opts.input, "input", "", "Transcript PDF to scrub")
	flag.StringVar(&opts.terms, "terms", "", "Names / companies to scrub (comma or newline separated)")
	flag.StringVar(&opts.termsFile, "terms-file", "", "File with names / companies to scrub, one per line")
	flag.StringVar(&opts.mode, "mode", "", "manual (only the given terms) or auto (also detected entities)")
	flag.StringVar(&opts.categories, "categories", "", "Entity categories for auto mode, e.g. PERSON,ORG,GPE,LOC")
	flag.StringVar(&opts.replacement, "replacement", "", "Replacement token (default [REDACTED])")
	flag.StringVar(&opts.outText, "out-text", pipeline.TextArtifactName, "Where to write the redacted text")
	flag.StringVar(&opts.outPDF, "out-pdf", pipeline.DocumentArtifactName, "Where to write the redacted PDF")
	flag.BoolVar(&opts.noDocument, "no-document", false, "Only produce the redacted text")
	flag.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	flag.Parse()

	if opts.input == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -input transcript.pdf [options]\n\nOptions:\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -input depo.pdf -terms \"Alan Ngouenet, BCG, Acme Corp\"\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -input depo.pdf -mode auto -categories PERSON,ORG -no-document\n", os.Args[0])
		os.Exit(1)
	}

	os.Exit(run(opts))
}

func run(opts options) int {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Config{Level: level, Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	req, err := buildRequest(opts, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	entityLogger := log.WithComponent("entities").Logger
	model := entities.NewModel(entities.NewLoader(cfg.Entities, entityLogger), entityLogger)
	defer model.Close()

	p := pipeline.New(cfg.Pipeline(), model, log.WithComponent("pipeline").Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := p.Run(ctx, req)
	switch {
	case errors.Is(err, extract.ErrNoExtractableText):
		fmt.Fprintln(os.Stderr, "No text could be extracted. If this PDF is scanned (image-only), it needs OCR first.")
		return 1
	case errors.Is(err, entities.ErrModelUnavailable):
		fmt.Fprintf(os.Stderr, "Entity recognizer unavailable: %v\n", err)
		return 1
	case err != nil:
		fmt.Fprintf(os.Stderr, "Scrub failed: %v\n", err)
		return 1
	}

	status := 0
	if result.TextErr != nil {
		fmt.Fprintf(os.Stderr, "Redacted text failed: %v\n", result.TextErr)
		status = 2
	} else if err := os.WriteFile(opts.outText, result.TextArtifact.Data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", opts.outText, err)
		status = 1
	}

	if req.RedactDocument {
		if result.DocumentErr != nil {
			fmt.Fprintf(os.Stderr, "Redacted PDF failed: %v\n", result.DocumentErr)
			status = max(status, 2)
		} else if err := os.WriteFile(opts.outPDF, result.DocumentArtifact.Data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", opts.outPDF, err)
			status = 1
		}
	}

	printSummary(result, opts, req.RedactDocument)
	log.Debug("Scrub finished", zap.Int("exit_status", status))
	return status
}

func buildRequest(opts options, cfg *config.Config) (pipeline.Request, error) {
	var req pipeline.Request

	data, err := os.ReadFile(opts.input)
	if err != nil {
		return req, fmt.Errorf("failed to read input: %w", err)
	}
	req.Document = data

	mode := opts.mode
	if mode == "" {
		mode = cfg.Redaction.Mode
	}
	if req.Mode, err = pipeline.ParseMode(mode); err != nil {
		return req, err
	}

	if opts.categories != "" {
		if req.Categories, err = entities.ParseCategories([]string{opts.categories}); err != nil {
			return req, err
		}
	}

	terms := opts.terms
	if opts.termsFile != "" {
		raw, err := os.ReadFile(opts.termsFile)
		if err != nil {
			return req, fmt.Errorf("failed to read terms file: %w", err)
		}
		terms = strings.Join([]string{terms, string(raw)}, "\n")
	}
	req.Terms = terms
	req.Replacement = opts.replacement
	req.RedactDocument = cfg.Redaction.RedactDocument && !opts.noDocument

	return req, nil
}

func printSummary(result *pipeline.Result, opts options, document bool) {
	fmt.Printf("Mode:          %s\n", result.Mode)
	if len(result.Categories) > 0 {
		names := make([]string, len(result.Categories))
		for i, c := range result.Categories {
			names[i] = string(c)
		}
		fmt.Printf("Categories:    %s\n", strings.Join(names, ", "))
	}
	fmt.Printf("Pages:         %d\n", result.Pages)
	fmt.Printf("Terms:         %d\n", result.Terms.Len())
	fmt.Printf("Text matches:  %d\n", result.Text.Total)
	if result.TextArtifact != nil {
		fmt.Printf("Redacted text: %s\n", opts.outText)
	}
	if document && result.DocumentArtifact != nil {
		fmt.Printf("Redacted PDF:  %s (%d regions)\n", opts.outPDF, result.Document.Regions)
	}
}
