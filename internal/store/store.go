// Package store persists the record collection in SQLite. Persistence is
// best-effort: the in-memory resolver stays authoritative, write failures
// are logged rather than propagated, and a corrupt store loads as an empty
// collection.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/sydlexius/backbeat/internal/record"
)

// Setting keys.
const (
	keyLastSync  = "cache.last_sync"
	keySource    = "cache.source"
	keyThreshold = "match.threshold"
	keyTitleW    = "match.weight_title"
	keyArtistW   = "match.weight_artist"
)

// Store reads and writes records and settings.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a store backed by db.
func New(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger.With(slog.String("component", "store"))}
}

// LoadAll returns every persisted record in insertion order, along with the
// last-sync time and source. Rows that fail to decode are skipped with a
// warning; any other failure also degrades to an empty collection, since
// "no data cached yet" is always a valid state.
func (s *Store) LoadAll(ctx context.Context) ([]record.Record, time.Time, string) {
	rows, err := s.db.QueryContext(ctx, `SELECT slug, doc FROM records ORDER BY rowid`)
	if err != nil {
		s.logger.Warn("loading records, starting empty", "error", err)
		return nil, time.Time{}, ""
	}
	defer rows.Close() //nolint:errcheck

	var records []record.Record
	for rows.Next() {
		var slug, doc string
		if err := rows.Scan(&slug, &doc); err != nil {
			s.logger.Warn("scanning record row", "error", err)
			continue
		}
		var rec record.Record
		if err := json.Unmarshal([]byte(doc), &rec); err != nil {
			s.logger.Warn("skipping corrupt record", slog.String("slug", slug), slog.Any("error", err))
			continue
		}
		if !rec.Valid() {
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("iterating record rows", "error", err)
	}

	lastSync := time.Time{}
	if ms, err := s.getInt64(ctx, keyLastSync); err == nil && ms > 0 {
		lastSync = time.UnixMilli(ms).UTC()
	}
	source, _ := s.getString(ctx, keySource)

	return records, lastSync, source
}

// SaveBatch upserts a batch of records, preserving each row's insertion
// position, and stamps the last-sync marker.
func (s *Store) SaveBatch(ctx context.Context, records []record.Record, lastSync time.Time, source string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning save transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (slug, doc, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck

	for _, rec := range records {
		if !rec.Valid() {
			continue
		}
		doc, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding record %q: %w", rec.Slug, err)
		}
		if _, err := stmt.ExecContext(ctx, rec.Slug, string(doc), rec.UpdatedAt); err != nil {
			return fmt.Errorf("upserting record %q: %w", rec.Slug, err)
		}
	}

	if !lastSync.IsZero() {
		if err := setSettingTx(ctx, tx, keyLastSync, strconv.FormatInt(lastSync.UnixMilli(), 10)); err != nil {
			return err
		}
	}
	if source != "" {
		if err := setSettingTx(ctx, tx, keySource, source); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Clear removes every cached record and the sync markers.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("clearing records: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM settings WHERE key IN (?, ?)`, keyLastSync, keySource); err != nil {
		return fmt.Errorf("clearing sync markers: %w", err)
	}
	return nil
}

// Count returns the number of persisted records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n)
	return n, err
}

// Tuning holds the persisted fuzzy-match tuning, if any value has been
// overridden.
type Tuning struct {
	Threshold    float64
	TitleWeight  float64
	ArtistWeight float64
}

// LoadTuning reads persisted tuning overrides on top of the given defaults.
func (s *Store) LoadTuning(ctx context.Context, defaults Tuning) Tuning {
	t := defaults
	if v, err := s.getFloat(ctx, keyThreshold); err == nil {
		t.Threshold = v
	}
	if v, err := s.getFloat(ctx, keyTitleW); err == nil {
		t.TitleWeight = v
	}
	if v, err := s.getFloat(ctx, keyArtistW); err == nil {
		t.ArtistWeight = v
	}
	return t
}

// SaveTuning persists the fuzzy-match tuning.
func (s *Store) SaveTuning(ctx context.Context, t Tuning) error {
	for key, v := range map[string]float64{
		keyThreshold: t.Threshold,
		keyTitleW:    t.TitleWeight,
		keyArtistW:   t.ArtistWeight,
	} {
		if err := s.setSetting(ctx, key, strconv.FormatFloat(v, 'f', -1, 64)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) getString(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	return v, err
}

func (s *Store) getInt64(ctx context.Context, key string) (int64, error) {
	v, err := s.getString(ctx, key)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

func (s *Store) getFloat(ctx context.Context, key string) (float64, error) {
	v, err := s.getString(ctx, key)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(v, 64)
}

func (s *Store) setSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("saving setting %q: %w", key, err)
	}
	return nil
}

func setSettingTx(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("saving setting %q: %w", key, err)
	}
	return nil
}
