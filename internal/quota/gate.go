// Package quota implements the per-company daily admission gate: every
// deliberation-advancing call to an agent must be admitted before the
// model is invoked, and the request/token counters only advance
// on admission, never on rejection.
package quota

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/revisoria/deliberation/internal/orcherrors"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Gate is the contract the Orchestrator consults before each stage invokes
// a model.
type Gate interface {
	// Admit checks and, if admitted, atomically increments today's usage
	// for companyID by estimatedTokens and one request. It returns a
	// QuotaExceeded orcherrors.Error (never a bare error) when either the
	// request or the token ceiling for the company's plan has already been
	// reached, without mutating the counters.
	Admit(companyID, planName string, estimatedTokens int64) error
	// Remaining reports today's remaining request/token budget without
	// mutating state, for status/diagnostic surfaces.
	Remaining(companyID, planName string) (requests, tokens int64, err error)
	Close() error
}

// SQLiteGate is the concrete sqlite-backed Gate.
type SQLiteGate struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteGate opens (creating if absent) a sqlite database at path and
// applies the counter schema: ensure directory, open with WAL +
// busy-timeout pragmas, run schema.
func NewSQLiteGate(path string) (*SQLiteGate, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create quota db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open quota db: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite write-serialization; matches modernc.org/sqlite's single-writer model

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply quota schema: %w", err)
	}

	return &SQLiteGate{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (g *SQLiteGate) Close() error { return g.db.Close() }

func (g *SQLiteGate) withTx(fn func(*sql.Tx) error) error {
	tx, err := g.db.Begin()
	if err != nil {
		return fmt.Errorf("begin quota transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit quota transaction: %w", err)
	}
	return nil
}

func (g *SQLiteGate) dateKey() string { return g.now().Format("2006-01-02") }

// Admit implements the check-then-increment pattern atomically within a
// single transaction: read the counter row (creating it implicitly at
// zero), compare both ceilings, and only upsert if admitted.
func (g *SQLiteGate) Admit(companyID, planName string, estimatedTokens int64) error {
	plan := PlanByName(planName)
	date := g.dateKey()

	return g.withTx(func(tx *sql.Tx) error {
		var requestsToday, tokensToday int64
		err := tx.QueryRow(
			`SELECT requests_today, tokens_today FROM usage_counters WHERE company_id = ? AND date_utc = ?`,
			companyID, date,
		).Scan(&requestsToday, &tokensToday)
		if err != nil && err != sql.ErrNoRows {
			return orcherrors.PersistenceFailure("quota-admit", err)
		}

		if requestsToday+1 > plan.RequestsPerDay {
			return orcherrors.QuotaExceeded(plan.Name, "requests", nextResetAt(g.now()))
		}
		if tokensToday >= plan.TokensPerDay {
			return orcherrors.QuotaExceeded(plan.Name, "tokens", nextResetAt(g.now()))
		}

		_, err = tx.Exec(`
			INSERT INTO usage_counters (company_id, date_utc, requests_today, tokens_today, updated_at)
			VALUES (?, ?, 1, ?, ?)
			ON CONFLICT(company_id, date_utc) DO UPDATE SET
				requests_today = requests_today + 1,
				tokens_today = tokens_today + excluded.tokens_today,
				updated_at = excluded.updated_at
		`, companyID, date, estimatedTokens, g.now().Format(time.RFC3339))
		if err != nil {
			return orcherrors.PersistenceFailure("quota-admit", err)
		}
		return nil
	})
}

// Remaining reads today's counters without mutating them.
func (g *SQLiteGate) Remaining(companyID, planName string) (int64, int64, error) {
	plan := PlanByName(planName)
	var requestsToday, tokensToday int64
	err := g.db.QueryRow(
		`SELECT requests_today, tokens_today FROM usage_counters WHERE company_id = ? AND date_utc = ?`,
		companyID, g.dateKey(),
	).Scan(&requestsToday, &tokensToday)
	if err == sql.ErrNoRows {
		return plan.RequestsPerDay, plan.TokensPerDay, nil
	}
	if err != nil {
		return 0, 0, orcherrors.PersistenceFailure("quota-remaining", err)
	}
	return plan.RequestsPerDay - requestsToday, plan.TokensPerDay - tokensToday, nil
}

// nextResetAt is the start of the next UTC day, reported to callers so a
// rejected caller knows when to retry.
func nextResetAt(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}
