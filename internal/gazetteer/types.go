package gazetteer

import (
	"path/filepath"
	"strings"
	"time"
)

// Entry is one known entity: its literal text and a category name
type Entry struct {
	Text     string `csv:"text" parquet:"text" json:"text" db:"text"`
	Category string `csv:"category" parquet:"category" json:"category" db:"category"`
}

// Config selects where gazetteer entries come from. A file path takes
// precedence over a database.
type Config struct {
	Path            string        `yaml:"path" mapstructure:"path"`
	Format          FileFormat    `yaml:"format" mapstructure:"format"`
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	Table           string        `yaml:"table" mapstructure:"table"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// LoadResult summarises a file load
type LoadResult struct {
	TotalRecords int64         `json:"total_records"`
	Loaded       int64         `json:"loaded"`
	Invalid      int64         `json:"invalid"`
	Duplicates   int64         `json:"duplicates"`
	Duration     time.Duration `json:"duration"`
}

// FileFormat represents supported file formats
type FileFormat string

const (
	FormatCSV     FileFormat = "csv"
	FormatParquet FileFormat = "parquet"
	FormatJSON    FileFormat = "jsonl"
	FormatUnknown FileFormat = "unknown"
)

// DetectFileFormat detects file format from extension
func DetectFileFormat(filename string) FileFormat {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV
	case ".parquet":
		return FormatParquet
	case ".json", ".jsonl", ".ndjson":
		return FormatJSON
	default:
		return FormatUnknown
	}
}
