package gazetteer

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// DefaultTable is used when Config.Table is empty
const DefaultTable = "gazetteer_entries"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Store keeps gazetteer entries in a PostgreSQL table
type Store struct {
	db     *sqlx.DB
	table  string
	logger *zap.Logger
}

// InsertResult summarises a batch insert
type InsertResult struct {
	Inserted int64         `json:"inserted"`
	Skipped  int64         `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// NewStore connects to the database and makes sure the entries table exists
func NewStore(config *Config, logger *zap.Logger) (*Store, error) {
	table, err := resolveTable(config.Table)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect("postgres", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	store := &Store{db: db, table: table, logger: logger}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	logger.Info("Gazetteer store initialized",
		zap.String("database_url", maskDatabaseURL(config.DatabaseURL)),
		zap.String("table", table))

	return store, nil
}

func resolveTable(name string) (string, error) {
	if name == "" {
		return DefaultTable, nil
	}
	if !tableName.MatchString(name) {
		return "", fmt.Errorf("invalid gazetteer table name: %q", name)
	}
	return name, nil
}

func (s *Store) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id         BIGSERIAL PRIMARY KEY,
			text       TEXT NOT NULL,
			category   TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (text, category)
		)`, s.table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}
	return nil
}

// Entries returns every entry in insertion order
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	query := fmt.Sprintf("SELECT text, category FROM %s ORDER BY id", s.table)
	if err := s.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("failed to load gazetteer entries: %w", err)
	}
	return entries, nil
}

// Count returns the number of stored entries
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)); err != nil {
		return 0, fmt.Errorf("failed to count gazetteer entries: %w", err)
	}
	return count, nil
}

// BatchInsert adds entries, skipping ones already present
func (s *Store) BatchInsert(ctx context.Context, entries []Entry) (*InsertResult, error) {
	result := &InsertResult{}
	if len(entries) == 0 {
		return result, nil
	}
	start := time.Now()

	query, args := buildInsert(s.table, entries)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("Batch insert failed", zap.Error(err))
		return result, fmt.Errorf("batch insert failed: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		s.logger.Warn("Could not get rows affected", zap.Error(err))
		inserted = int64(len(entries))
	}

	result.Inserted = inserted
	result.Skipped = int64(len(entries)) - inserted
	result.Duration = time.Since(start)

	s.logger.Info("Batch insert completed",
		zap.Int64("inserted", result.Inserted),
		zap.Int64("duplicates_skipped", result.Skipped),
		zap.Duration("duration", result.Duration))

	return result, nil
}

func buildInsert(table string, entries []Entry) (string, []interface{}) {
	valueStrings := make([]string, 0, len(entries))
	valueArgs := make([]interface{}, 0, len(entries)*2)
	for i, e := range entries {
		valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d)", i*2+1, i*2+2))
		valueArgs = append(valueArgs, e.Text, e.Category)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (text, category)
		VALUES %s
		ON CONFLICT (text, category) DO NOTHING`,
		table, strings.Join(valueStrings, ","))
	return query, valueArgs
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// maskDatabaseURL masks the password in a database URL for logging
func maskDatabaseURL(url string) string {
	at := strings.LastIndex(url, "@")
	if at < 0 {
		return url
	}
	userPart := url[:at]
	colon := strings.LastIndex(userPart, ":")
	if colon < 0 || !strings.Contains(userPart[:colon], "//") {
		return url
	}
	return userPart[:colon+1] + "***" + url[at:]
}
