package gazetteer

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"
)

// LoadFile reads entries from a CSV, Parquet or JSON-lines file. Rows with an
// empty text or category are skipped, as are exact duplicates.
func LoadFile(ctx context.Context, path string, format FileFormat, logger *zap.Logger) ([]Entry, *LoadResult, error) {
	if format == "" {
		format = DetectFileFormat(path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open gazetteer file: %w", err)
	}
	defer file.Close()

	start := time.Now()
	c := newCollector()

	switch format {
	case FormatCSV:
		err = readCSV(ctx, file, c, logger)
	case FormatJSON:
		err = readJSON(ctx, file, c, logger)
	case FormatParquet:
		info, statErr := file.Stat()
		if statErr != nil {
			return nil, nil, fmt.Errorf("failed to stat gazetteer file: %w", statErr)
		}
		err = readParquet(ctx, file, info.Size(), c, logger)
	default:
		return nil, nil, fmt.Errorf("unsupported file format: %s", format)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%s processing failed: %w", format, err)
	}

	c.result.Duration = time.Since(start)
	logger.Info("Gazetteer file loaded",
		zap.String("format", string(format)),
		zap.Int64("total_records", c.result.TotalRecords),
		zap.Int64("loaded", c.result.Loaded),
		zap.Int64("invalid", c.result.Invalid),
		zap.Int64("duplicates", c.result.Duplicates))

	return c.entries, &c.result, nil
}

type collector struct {
	entries []Entry
	seen    map[Entry]bool
	result  LoadResult
}

func newCollector() *collector {
	return &collector{seen: make(map[Entry]bool)}
}

func (c *collector) add(e Entry) {
	c.result.TotalRecords++
	e.Text = strings.TrimSpace(e.Text)
	e.Category = strings.TrimSpace(e.Category)
	if e.Text == "" || e.Category == "" {
		c.result.Invalid++
		return
	}
	if c.seen[e] {
		c.result.Duplicates++
		return
	}
	c.seen[e] = true
	c.entries = append(c.entries, e)
	c.result.Loaded++
}

// readCSV expects a header row naming the text and category columns
func readCSV(ctx context.Context, r io.Reader, c *collector, logger *zap.Logger) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}
	textCol, categoryCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "text":
			textCol = i
		case "category":
			categoryCol = i
		}
	}
	if textCol < 0 || categoryCol < 0 {
		return fmt.Errorf("CSV header must contain text and category columns, got %v", header)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			logger.Warn("Failed to read CSV record", zap.Error(err))
			c.result.Invalid++
			continue
		}
		if textCol >= len(record) || categoryCol >= len(record) {
			c.result.TotalRecords++
			c.result.Invalid++
			continue
		}
		c.add(Entry{Text: record[textCol], Category: record[categoryCol]})
	}
}

// readJSON reads one JSON object per line
func readJSON(ctx context.Context, r io.Reader, c *collector, logger *zap.Logger) error {
	decoder := json.NewDecoder(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var e Entry
		err := decoder.Decode(&e)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				return fmt.Errorf("invalid JSON at offset %d: %w", syntaxErr.Offset, err)
			}
			logger.Warn("Failed to read JSON record", zap.Error(err))
			c.result.Invalid++
			continue
		}
		c.add(e)
	}
}

func readParquet(ctx context.Context, r io.ReaderAt, size int64, c *collector, logger *zap.Logger) error {
	file, err := parquet.OpenFile(r, size)
	if err != nil {
		return fmt.Errorf("failed to open Parquet file: %w", err)
	}

	reader := parquet.NewReader(file)
	defer reader.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var e Entry
		err := reader.Read(&e)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			logger.Warn("Failed to read Parquet record", zap.Error(err))
			return err
		}
		c.add(e)
	}
}
