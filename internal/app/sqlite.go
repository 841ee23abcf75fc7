package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const ddaySchema = `
CREATE TABLE IF NOT EXISTS ddays (
	guild_id TEXT NOT NULL,
	title TEXT NOT NULL,
	date TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (guild_id, title)
);
CREATE INDEX IF NOT EXISTS idx_ddays_guild_date ON ddays(guild_id, date);
`

// SQLiteStore keeps ledgers as rows keyed by (guild, title)
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (and creates if needed) the database at path
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes transactions, so Update never interleaves.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(ddaySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	logger.Debug("Opened sqlite store", zap.String("path", path))
	return &SQLiteStore{db: db, logger: logger}, nil
}

// LoadLedger returns the guild's ledger, or an empty one when there is none
func (s *SQLiteStore) LoadLedger(ctx context.Context, guildID string) (Ledger, error) {
	return loadLedger(ctx, s.db, guildID)
}

// SaveLedger replaces all of the guild's rows with ledger
func (s *SQLiteStore) SaveLedger(ctx context.Context, guildID string, ledger Ledger) error {
	return s.Update(ctx, guildID, func(Ledger) (Ledger, error) { return ledger, nil })
}

// Update applies fn to the guild's ledger inside one transaction
func (s *SQLiteStore) Update(ctx context.Context, guildID string, fn func(Ledger) (Ledger, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// No-op after a successful commit
		_ = tx.Rollback()
	}()

	current, err := loadLedger(ctx, tx, guildID)
	if err != nil {
		return err
	}
	updated, err := fn(current)
	if err != nil {
		return err
	}

	for title := range current {
		if _, ok := updated[title]; ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM ddays WHERE guild_id = ? AND title = ?`, guildID, title); err != nil {
			return fmt.Errorf("failed to delete %q: %w", title, err)
		}
	}
	for title, date := range updated {
		if old, ok := current[title]; ok && old == date {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ddays (guild_id, title, date) VALUES (?, ?, ?)
			 ON CONFLICT(guild_id, title) DO UPDATE SET date = excluded.date`,
			guildID, title, date); err != nil {
			return fmt.Errorf("failed to store %q: %w", title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Guilds lists the guild ids that have at least one event
func (s *SQLiteStore) Guilds(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT guild_id FROM ddays ORDER BY guild_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list guilds: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadLedger(ctx context.Context, q queryer, guildID string) (Ledger, error) {
	rows, err := q.QueryContext(ctx, `SELECT title, date FROM ddays WHERE guild_id = ?`, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	defer rows.Close()

	ledger := Ledger{}
	for rows.Next() {
		var title, date string
		if err := rows.Scan(&title, &date); err != nil {
			return nil, err
		}
		ledger[title] = date
	}
	return ledger, rows.Err()
}
