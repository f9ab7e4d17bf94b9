package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nexconsult/gstin-api/internal/models"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS gst_cache (
	gstin       TEXT PRIMARY KEY,
	legal_name  TEXT,
	trade_name  TEXT,
	address     TEXT,
	status      TEXT,
	details     TEXT NOT NULL,
	verified_at INTEGER NOT NULL,
	created_at  INTEGER NOT NULL
);`

// SQLiteStore is a RecordStore backed by a local SQLite file
type SQLiteStore struct {
	db     *sql.DB
	path   string
	ttl    time.Duration
	logger *logrus.Logger
}

// NewSQLiteStore opens (creating if needed) the cache database at path
func NewSQLiteStore(path string, ttl time.Duration, logger *logrus.Logger) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?mode=rwc"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	// One writer keeps SQLite from returning SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	logger.WithField("path", path).Info("SQLite cache opened")
	return &SQLiteStore{db: db, path: path, ttl: ttl, logger: logger}, nil
}

// Get returns the entry for gstin or ErrNotFound
func (s *SQLiteStore) Get(ctx context.Context, gstin string) (*models.CacheEntry, error) {
	var (
		details    string
		verifiedAt int64
		createdAt  int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT details, verified_at, created_at FROM gst_cache WHERE gstin = ?`, gstin,
	).Scan(&details, &verifiedAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	entry := models.CacheEntry{
		VerifiedAt: time.UnixMilli(verifiedAt).UTC(),
		CreatedAt:  time.UnixMilli(createdAt).UTC(),
	}
	if s.ttl > 0 && time.Since(entry.VerifiedAt) > s.ttl {
		return nil, ErrNotFound
	}
	if err := json.Unmarshal([]byte(details), &entry.Record); err != nil {
		s.logger.WithError(err).WithField("gstin", gstin).Warn("Corrupt cache entry, ignoring")
		return nil, ErrNotFound
	}
	return &entry, nil
}

// Save upserts the record. created_at is only written on insert.
func (s *SQLiteStore) Save(ctx context.Context, record models.Record, verifiedAt time.Time) (*models.CacheEntry, error) {
	details, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}

	ts := verifiedAt.UnixMilli()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO gst_cache (gstin, legal_name, trade_name, address, status, details, verified_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(gstin) DO UPDATE SET
			legal_name = excluded.legal_name,
			trade_name = excluded.trade_name,
			address = excluded.address,
			status = excluded.status,
			details = excluded.details,
			verified_at = excluded.verified_at`,
		record.GSTIN, record.LegalName, record.TradeName, record.Address, record.Status, string(details), ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to write cache entry: %w", err)
	}

	var createdAt int64
	if err := s.db.QueryRowContext(ctx, `SELECT created_at FROM gst_cache WHERE gstin = ?`, record.GSTIN).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("failed to read back cache entry: %w", err)
	}

	s.logger.WithField("gstin", record.GSTIN).Debug("Cache set (SQLite)")
	return &models.CacheEntry{
		Record:     record,
		VerifiedAt: time.UnixMilli(ts).UTC(),
		CreatedAt:  time.UnixMilli(createdAt).UTC(),
	}, nil
}

// Delete removes the entry for gstin
func (s *SQLiteStore) Delete(ctx context.Context, gstin string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM gst_cache WHERE gstin = ?`, gstin); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Stats returns store statistics
func (s *SQLiteStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM gst_cache`).Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return map[string]interface{}{
		"backend": "sqlite",
		"path":    s.path,
		"entries": count,
		"ttl":     s.ttl.String(),
	}, nil
}

// Health pings the database
func (s *SQLiteStore) Health() map[string]interface{} {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return map[string]interface{}{
			"status": "unhealthy",
			"error":  err.Error(),
		}
	}
	return map[string]interface{}{
		"status": "healthy",
		"sqlite": s.path,
	}
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
