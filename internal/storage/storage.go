// Package storage provides the SQLite-backed price bar cache.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/shitalnb11/indian-market-dashboard/internal/models"
)

// Storage caches fetched price bars so a failed poll can fall back to the
// last known series. It never stores signal states or transition events.
type Storage struct {
	db            *sql.DB
	retentionDays int
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/marketdash/bars.db.
func New(dbPath string, retentionDays int) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "marketdash", "bars.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Storage{db: db, retentionDays: retentionDays}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bars (
			symbol     TEXT    NOT NULL,
			interval   TEXT    NOT NULL,
			ts         INTEGER NOT NULL,
			open       REAL    NOT NULL,
			high       REAL    NOT NULL,
			low        REAL    NOT NULL,
			close      REAL    NOT NULL,
			volume     REAL    NOT NULL,
			fetched_at INTEGER NOT NULL,
			PRIMARY KEY (symbol, interval, ts)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bars_ts ON bars(ts)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// UpsertBars writes a fetched series through to the cache. Re-fetched bars
// replace their previous row, so a symbol/interval/timestamp triple is stored
// once.
func (s *Storage) UpsertBars(symbol, interval string, series models.PriceSeries) error {
	if err := series.Validate(); err != nil {
		return fmt.Errorf("invalid series: %w", err)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO bars
			(symbol, interval, ts, open, high, low, close, volume, fetched_at)
		VALUES (?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	fetchedAt := time.Now().UnixNano()
	for _, bar := range series {
		if _, err := stmt.Exec(
			symbol, interval, bar.Time.UnixNano(),
			bar.Open, bar.High, bar.Low, bar.Close, bar.Volume,
			fetchedAt,
		); err != nil {
			return fmt.Errorf("failed to insert bar: %w", err)
		}
	}

	return tx.Commit()
}

// LoadSeries returns the cached bars for a symbol at the given interval from
// the given time onward, ordered by timestamp.
func (s *Storage) LoadSeries(symbol, interval string, from time.Time) (models.PriceSeries, error) {
	rows, err := s.db.Query(`SELECT `+barCols+` FROM bars
		WHERE symbol = ? AND interval = ? AND ts >= ?
		ORDER BY ts ASC`,
		symbol, interval, from.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer rows.Close()

	var series models.PriceSeries
	for rows.Next() {
		bar, err := scanBar(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}
		series = append(series, bar)
	}
	return series, rows.Err()
}

// Prune deletes bars older than the retention window and reports how many
// rows were removed.
func (s *Storage) Prune(now time.Time) (int64, error) {
	cutoff := now.AddDate(0, 0, -s.retentionDays).UnixNano()
	res, err := s.db.Exec(`DELETE FROM bars WHERE ts < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune bars: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

const barCols = `ts, open, high, low, close, volume`

func scanBar(scan func(...any) error) (models.PriceBar, error) {
	var bar models.PriceBar
	var tsNano int64
	err := scan(&tsNano, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume)
	if err != nil {
		return models.PriceBar{}, err
	}
	bar.Time = time.Unix(0, tsNano)
	return bar, nil
}
