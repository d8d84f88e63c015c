package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const metricKey = "units.metric"

// PreferenceStore persists the user's display preferences.
type PreferenceStore interface {
	IsMetric(ctx context.Context) (bool, error)
	SetMetric(ctx context.Context, metric bool) error
	Close() error
}

// SQLiteStore implements PreferenceStore on the pure Go sqlite driver.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLite opens (or creates) the database at path and applies the schema.
func NewSQLite(path string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open preferences db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		logger.Warn("Could not set WAL mode", zap.Error(err))
	}

	schema := `CREATE TABLE IF NOT EXISTS preferences (
        key TEXT PRIMARY KEY,
        value TEXT NOT NULL,
        updated_at TEXT NOT NULL
    );`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply preferences schema: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// IsMetric returns the stored unit preference, metric when nothing is stored.
func (s *SQLiteStore) IsMetric(ctx context.Context) (bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, metricKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return true, fmt.Errorf("read unit preference: %w", err)
	}

	metric, err := strconv.ParseBool(value)
	if err != nil {
		s.logger.Warn("Ignoring malformed unit preference", zap.String("value", value))
		return true, nil
	}
	return metric, nil
}

func (s *SQLiteStore) SetMetric(ctx context.Context, metric bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO preferences(key, value, updated_at) VALUES(?,?,?)`,
		metricKey, strconv.FormatBool(metric), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("write unit preference: %w", err)
	}

	s.logger.Debug("Unit preference stored", zap.Bool("metric", metric))
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
