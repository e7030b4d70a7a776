package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/raaihank/transcript-scrubber/internal/cache"
	"github.com/raaihank/transcript-scrubber/internal/config"
	"github.com/raaihank/transcript-scrubber/internal/entities"
	"github.com/raaihank/transcript-scrubber/internal/gazetteer"
	"github.com/raaihank/transcript-scrubber/internal/logger"
)

func main() {
	var (
		configPath   = flag.String("config", "", "Configuration file path")
		inputFile    = flag.String("input", "", "Gazetteer file (CSV, Parquet, or JSON lines)")
		format       = flag.String("format", "", "Input format: csv, parquet or jsonl (default: from the file extension)")
		databaseURL  = flag.String("database-url", "", "PostgreSQL URL (default: entities.gazetteer.database_url)")
		batchSize    = flag.Int("batch-size", 1000, "Rows per INSERT statement")
		validateOnly = flag.Bool("validate-only", false, "Only validate the file, don't write to the database")
		showStats    = flag.Bool("stats", false, "Show the number of stored entries and exit")
		clearCache   = flag.Bool("clear-cache", false, "Clear cached recognition results after importing")
	)
	flag.Parse()

	if *inputFile == "" && !*showStats && !*clearCache {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --input people.csv --validate-only\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input entities.parquet --database-url postgres://localhost/scrubber\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --stats\n", os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log = log.WithComponent("gazetteer")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, cancelling operations...")
		cancel()
	}()

	storeConfig := cfg.Entities.Gazetteer
	if *databaseURL != "" {
		storeConfig.DatabaseURL = *databaseURL
	}

	if *inputFile != "" {
		if err := importFile(ctx, &storeConfig, *inputFile, gazetteer.FileFormat(*format), *batchSize, *validateOnly, log); err != nil {
			log.Fatal("Import failed", zap.Error(err))
		}
	}

	if *showStats {
		if err := printStats(ctx, &storeConfig, log); err != nil {
			log.Fatal("Failed to show stats", zap.Error(err))
		}
	}

	if *clearCache {
		if err := clearRecognitionCache(ctx, cfg.Entities.Cache, log); err != nil {
			log.Fatal("Failed to clear cache", zap.Error(err))
		}
	}
}

// importFile validates a gazetteer file and writes it to PostgreSQL
func importFile(ctx context.Context, storeConfig *gazetteer.Config, path string, format gazetteer.FileFormat, batchSize int, validateOnly bool, log *logger.Logger) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("input file: %w", err)
	}

	entries, result, err := gazetteer.LoadFile(ctx, path, format, log.Logger)
	if err != nil {
		return err
	}

	entries, unknown := canonicalize(entries)
	log.Info("Gazetteer file validated",
		zap.String("file", path),
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("loaded", result.Loaded),
		zap.Int64("invalid", result.Invalid),
		zap.Int64("duplicates", result.Duplicates),
		zap.Int("unknown_category", unknown),
		zap.Duration("duration", result.Duration))

	if validateOnly {
		return nil
	}
	if storeConfig.DatabaseURL == "" {
		return errors.New("no database URL configured")
	}

	store, err := gazetteer.NewStore(storeConfig, log.Logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if batchSize <= 0 {
		batchSize = 1000
	}
	var inserted, skipped int64
	for start := 0; start < len(entries); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+batchSize, len(entries))
		res, err := store.BatchInsert(ctx, entries[start:end])
		if err != nil {
			return err
		}
		inserted += res.Inserted
		skipped += res.Skipped
	}

	log.Info("Gazetteer import completed",
		zap.Int64("inserted", inserted),
		zap.Int64("already_present", skipped))
	return nil
}

// canonicalize rewrites category aliases (PER, ORG, GPE, LOC) to their full
// names and drops entries with unknown categories
func canonicalize(entries []gazetteer.Entry) ([]gazetteer.Entry, int) {
	out := entries[:0]
	unknown := 0
	for _, e := range entries {
		c, err := entities.ParseCategory(e.Category)
		if err != nil {
			unknown++
			continue
		}
		e.Category = string(c)
		out = append(out, e)
	}
	return out, unknown
}

func printStats(ctx context.Context, storeConfig *gazetteer.Config, log *logger.Logger) error {
	if storeConfig.DatabaseURL == "" {
		return errors.New("no database URL configured")
	}
	store, err := gazetteer.NewStore(storeConfig, log.Logger)
	if err != nil {
		return err
	}
	defer store.Close()

	count, err := store.Count(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("\n=== Gazetteer Statistics ===\n")
	fmt.Printf("Table:    %s\n", storeConfig.Table)
	fmt.Printf("Entries:  %d\n", count)
	return nil
}

func clearRecognitionCache(ctx context.Context, cacheConfig cache.Config, log *logger.Logger) error {
	if !cacheConfig.Enabled {
		log.Info("Recognition cache is disabled, nothing to clear")
		return nil
	}
	store, err := cache.New(&cacheConfig, log.Logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(ctx); err != nil {
		return err
	}
	log.Info("Recognition cache cleared", zap.String("backend", string(cacheConfig.Backend)))
	return nil
}
