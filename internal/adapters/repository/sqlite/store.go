// Package sqlite provides a SQLite-backed submission ledger.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/flip7/internal/adapters/repository"
	"github.com/okian/flip7/internal/adapters/repository/sqlite/migrations"
	"github.com/okian/flip7/internal/domain/model"
	"github.com/okian/flip7/internal/domain/scoring"
	"github.com/okian/flip7/pkg/metrics"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const selectColumns = `id, player_id, mode, numbers, modifiers, doubled, halved,
       total, bonus_display, is_flip7, breakdown, number_sum, distinct_count,
       modifier_sum, wiped, submitted_at, scored_at`

// dsnPragmas uses the modernc driver's _pragma syntax; it runs each pragma on
// every new connection.
const dsnPragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)"

// Store persists scored submissions in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite ledger and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?" + dsnPragmas
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite allows one writer; a single connection serializes workers
	// instead of failing them with SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Save inserts one scored submission.
func (s *Store) Save(ctx context.Context, sub model.ScoredSubmission) error { //nolint:gocritic // hugeParam: matches repository.Store
	defer observe("save", time.Now())

	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(sub.ID) == "" {
		return fmt.Errorf("%w: id is required", repository.ErrInvalidSubmission)
	}
	numbers, err := encodeInts(sub.Hand.Numbers)
	if err != nil {
		return fmt.Errorf("encode numbers: %w", err)
	}
	modifiers, err := encodeInts(sub.Hand.Modifiers)
	if err != nil {
		return fmt.Errorf("encode modifiers: %w", err)
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO submissions (
		   id, player_id, mode, numbers, modifiers, doubled, halved,
		   total, bonus_display, is_flip7, breakdown, number_sum, distinct_count,
		   modifier_sum, wiped, submitted_at, scored_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID,
		sub.PlayerID,
		sub.Mode.String(),
		numbers,
		modifiers,
		sub.Hand.Doubled,
		sub.Hand.Halved,
		sub.Result.Total,
		sub.Result.BonusDisplay,
		sub.Result.IsFlip7,
		sub.Result.Breakdown,
		sub.Result.Sum,
		sub.Result.DistinctCount,
		sub.Result.ModifierSum,
		sub.Result.Wiped,
		toMillis(sub.SubmittedAt),
		toMillis(sub.ScoredAt),
	)
	if err != nil {
		metrics.RecordStoreError("save")
		if isUniqueViolation(err) {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("save submission: %w", err)
	}
	return nil
}

// Get returns one submission by ID.
func (s *Store) Get(ctx context.Context, id string) (model.ScoredSubmission, error) {
	defer observe("get", time.Now())

	if err := ctx.Err(); err != nil {
		return model.ScoredSubmission{}, err
	}
	if s == nil || s.sqlDB == nil {
		return model.ScoredSubmission{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM submissions WHERE id = ?`, id)
	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ScoredSubmission{}, repository.ErrNotFound
		}
		metrics.RecordStoreError("get")
		return model.ScoredSubmission{}, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

// ListByPlayer returns up to limit submissions for a player, newest first.
func (s *Store) ListByPlayer(ctx context.Context, playerID string, limit int) ([]model.ScoredSubmission, error) {
	defer observe("list", time.Now())

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, repository.ErrInvalidLimit
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+selectColumns+`
		   FROM submissions
		  WHERE player_id = ?
		  ORDER BY scored_at DESC, id ASC
		  LIMIT ?`,
		playerID,
		limit,
	)
	if err != nil {
		metrics.RecordStoreError("list")
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	out := make([]model.ScoredSubmission, 0, limit)
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("list submissions: %w", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return out, nil
}

// Count returns the number of stored submissions.
func (s *Store) Count(ctx context.Context) (int, error) {
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	var n int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions`).Scan(&n); err != nil {
		metrics.RecordStoreError("count")
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	metrics.UpdateStoreRecords(n)
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row scanner) (model.ScoredSubmission, error) {
	var (
		sub                   model.ScoredSubmission
		mode                  string
		numbers, modifiers    string
		submittedAt, scoredAt int64
	)
	if err := row.Scan(
		&sub.ID,
		&sub.PlayerID,
		&mode,
		&numbers,
		&modifiers,
		&sub.Hand.Doubled,
		&sub.Hand.Halved,
		&sub.Result.Total,
		&sub.Result.BonusDisplay,
		&sub.Result.IsFlip7,
		&sub.Result.Breakdown,
		&sub.Result.Sum,
		&sub.Result.DistinctCount,
		&sub.Result.ModifierSum,
		&sub.Result.Wiped,
		&submittedAt,
		&scoredAt,
	); err != nil {
		return model.ScoredSubmission{}, err
	}

	m, err := scoring.ParseMode(mode)
	if err != nil {
		return model.ScoredSubmission{}, err
	}
	sub.Mode = m
	if sub.Hand.Numbers, err = decodeInts(numbers); err != nil {
		return model.ScoredSubmission{}, fmt.Errorf("decode numbers: %w", err)
	}
	if sub.Hand.Modifiers, err = decodeInts(modifiers); err != nil {
		return model.ScoredSubmission{}, fmt.Errorf("decode modifiers: %w", err)
	}
	sub.SubmittedAt = fromMillis(submittedAt)
	sub.ScoredAt = fromMillis(scoredAt)
	return sub, nil
}

func encodeInts(values []int) (string, error) {
	if values == nil {
		values = []int{}
	}
	b, err := json.Marshal(values)
	return string(b), err
}

func decodeInts(raw string) ([]int, error) {
	var out []int
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "submissions.id")
}

var _ repository.Store = (*Store)(nil)
