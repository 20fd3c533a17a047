// Package store persists finished matches and batch reports to SQLite so
// results survive the process and the API can serve them later.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/null-channel/ai-arena/internal/batch"
	"github.com/null-channel/ai-arena/internal/engine"
)

// ErrNotFound reports a lookup for a row that does not exist.
var ErrNotFound = errors.New("not found")

// BatchRecord is one stored batch run.
type BatchRecord struct {
	ID         uuid.UUID `json:"id"`
	Source     string    `json:"source"`
	Specs      int       `json:"specs"`
	Entries    int       `json:"entries"`
	Failed     int       `json:"failed"`
	DurationMS int64     `json:"duration_ms"`
	Cost       string    `json:"cost"`
	CreatedAt  time.Time `json:"created_at"`
}

// MatchRecord is one stored match. Result holds the full match result JSON;
// the remaining columns are denormalized so listings never decode it.
type MatchRecord struct {
	ID         string          `json:"id"`
	BatchID    string          `json:"batch_id,omitempty"`
	Ordinal    int             `json:"ordinal"`
	Game       string          `json:"game"`
	Outcome    string          `json:"outcome,omitempty"`
	Winner     string          `json:"winner,omitempty"`
	Loser      string          `json:"loser,omitempty"`
	Turns      int             `json:"turns"`
	DurationMS int64           `json:"duration_ms"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

type Store struct {
	db *sql.DB
}

// New opens/creates a SQLite database at path and runs migrations.
func New(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // SQLite is not concurrent for writes
	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS batches (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			specs INTEGER NOT NULL,
			entries INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			cost TEXT NOT NULL DEFAULT '0',
			created_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_batches_created ON batches(created_at DESC);`,

		`CREATE TABLE IF NOT EXISTS matches (
			id TEXT PRIMARY KEY,
			batch_id TEXT NOT NULL DEFAULT '',
			ordinal INTEGER NOT NULL DEFAULT 0,
			game TEXT NOT NULL,
			outcome TEXT NOT NULL DEFAULT '',
			winner TEXT NOT NULL DEFAULT '',
			loser TEXT NOT NULL DEFAULT '',
			turns INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			result TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_matches_batch ON matches(batch_id, ordinal);`,
		`CREATE INDEX IF NOT EXISTS idx_matches_created ON matches(created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_matches_game ON matches(game, created_at DESC);`,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SaveMatch stores one match that ran outside a batch. runErr, when non-nil,
// is recorded alongside whatever partial result the engine produced.
func (s *Store) SaveMatch(ctx context.Context, result *engine.MatchResult, runErr error) (string, error) {
	if result == nil {
		return "", errors.New("nil match result")
	}
	rec := matchRow(result, runErr)
	if err := s.insertMatch(ctx, s.db, rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// SaveReport stores a batch report and all its entries in one transaction.
// source names where the batch came from, typically the CSV path.
func (s *Store) SaveReport(ctx context.Context, source string, report *batch.Report) (uuid.UUID, error) {
	id := uuid.New()
	now := time.Now().UTC()

	specs := 0
	for i := range report.Entries {
		if n := report.Entries[i].SpecIndex + 1; n > specs {
			specs = n
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO batches(id, source, specs, entries, failed, duration_ms, cost, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), source, specs, len(report.Entries), report.Failed(),
		report.Duration.Milliseconds(), report.TotalCost().String(), now)
	if err != nil {
		return uuid.Nil, err
	}

	for i := range report.Entries {
		e := &report.Entries[i]
		rec := matchRow(e.Result, e.Err)
		rec.BatchID = id.String()
		rec.Ordinal = i
		if rec.Game == "" {
			rec.Game = e.Spec.Game
		}
		if err := s.insertMatch(ctx, tx, rec); err != nil {
			return uuid.Nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// execer lets inserts run on the pool or inside a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) insertMatch(ctx context.Context, db execer, rec MatchRecord) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO matches(
			id, batch_id, ordinal, game, outcome, winner, loser,
			turns, duration_ms, result, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.BatchID, rec.Ordinal, rec.Game, rec.Outcome, rec.Winner, rec.Loser,
		rec.Turns, rec.DurationMS, string(rec.Result), rec.Error, time.Now().UTC())
	return err
}

// matchRow flattens a match result into its stored columns. A nil result
// (the match never constructed) still gets a row carrying the error.
func matchRow(result *engine.MatchResult, runErr error) MatchRecord {
	rec := MatchRecord{}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	if result == nil {
		rec.ID = uuid.NewString()
		return rec
	}

	rec.ID = result.MatchID
	rec.Game = result.GameID
	rec.Outcome = string(result.Outcome.Kind)
	rec.Turns = result.TotalTurns
	rec.DurationMS = result.DurationMS
	if name, ok := result.WinnerName(); ok {
		rec.Winner = name
		rec.Loser = result.Players[result.Outcome.Winner.Other()].Agent
	}
	if blob, err := json.Marshal(result); err == nil {
		rec.Result = blob
	}
	return rec
}

// GetMatch returns one stored match by id.
func (s *Store) GetMatch(ctx context.Context, id string) (MatchRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, batch_id, ordinal, game, outcome, winner, loser,
		       turns, duration_ms, result, error, created_at
		FROM matches WHERE id=?`, id)

	rec, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return MatchRecord{}, fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	return rec, err
}

// ListMatches returns matches newest first, optionally filtered by game,
// plus the total row count for the filter.
func (s *Store) ListMatches(ctx context.Context, game string, limit, offset int) ([]MatchRecord, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	where := "1=1"
	args := []any{}
	if game != "" {
		where = "game = ?"
		args = append(args, game)
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM matches WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, batch_id, ordinal, game, outcome, winner, loser,
		       turns, duration_ms, result, error, created_at
		FROM matches
		WHERE `+where+`
		ORDER BY created_at DESC, ordinal ASC
		LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []MatchRecord
	for rows.Next() {
		rec, err := scanMatch(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

// BatchMatches returns every match of one batch in report order.
func (s *Store) BatchMatches(ctx context.Context, batchID uuid.UUID) ([]MatchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, batch_id, ordinal, game, outcome, winner, loser,
		       turns, duration_ms, result, error, created_at
		FROM matches WHERE batch_id=? ORDER BY ordinal ASC`, batchID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MatchRecord
	for rows.Next() {
		rec, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListBatches returns the most recent batches, newest first.
func (s *Store) ListBatches(ctx context.Context, limit int) ([]BatchRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, specs, entries, failed, duration_ms, cost, created_at
		FROM batches ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BatchRecord
	for rows.Next() {
		var b BatchRecord
		var idStr string
		if err := rows.Scan(&idStr, &b.Source, &b.Specs, &b.Entries, &b.Failed,
			&b.DurationMS, &b.Cost, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.ID, err = uuid.Parse(idStr)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMatch(row scanner) (MatchRecord, error) {
	var rec MatchRecord
	var result string
	err := row.Scan(&rec.ID, &rec.BatchID, &rec.Ordinal, &rec.Game, &rec.Outcome,
		&rec.Winner, &rec.Loser, &rec.Turns, &rec.DurationMS, &result, &rec.Error, &rec.CreatedAt)
	if err != nil {
		return MatchRecord{}, err
	}
	if result != "" {
		rec.Result = json.RawMessage(result)
	}
	return rec, nil
}
