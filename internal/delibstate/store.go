// Package delibstate persists DeliberationState: the
// resumable, per-project progress row the Orchestrator saves after every
// completed stage so a crashed process can pick a deliberation back up at
// currentStage. Backed by sqlite (WAL, go:embed schema) rather than a
// JSON document, since this data is genuinely row-shaped: one row per
// projectId, upserted on every save.
package delibstate

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/revisoria/deliberation/internal/domain"
	"github.com/revisoria/deliberation/internal/orcherrors"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store is the contract the Orchestrator uses to persist and reload
// DeliberationState.
type Store interface {
	Save(state domain.DeliberationState) error
	Load(projectID, companyID string) (domain.DeliberationState, error)
	Close() error
}

// SQLiteStore is the concrete sqlite-backed Store. One row per projectId;
// Save is an upsert.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if absent) a sqlite database at path and
// applies the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create deliberation state db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open deliberation state db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply deliberation state schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// Save upserts state by projectId.
func (s *SQLiteStore) Save(state domain.DeliberationState) error {
	stageResults, err := json.Marshal(state.StageResults)
	if err != nil {
		return orcherrors.PersistenceFailure("save-state", err)
	}
	snapshot, err := json.Marshal(state.ProjectSnapshot)
	if err != nil {
		return orcherrors.PersistenceFailure("save-state", err)
	}

	now := time.Now().UTC()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	state.UpdatedAt = now

	_, err = s.db.Exec(`
		INSERT INTO deliberation_state (
			project_id, company_id, current_stage, status, stage_results,
			project_snapshot, failed_stage, last_error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			company_id = excluded.company_id,
			current_stage = excluded.current_stage,
			status = excluded.status,
			stage_results = excluded.stage_results,
			project_snapshot = excluded.project_snapshot,
			failed_stage = excluded.failed_stage,
			last_error = excluded.last_error,
			updated_at = excluded.updated_at
	`,
		state.ProjectID, state.CompanyID, string(state.CurrentStage), string(state.Status),
		string(stageResults), string(snapshot), string(state.FailedStage), state.LastError,
		state.CreatedAt.Format(time.RFC3339), state.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return orcherrors.PersistenceFailure("save-state", err)
	}
	return nil
}

// Load reads one project's state, enforcing tenant scoping: a row that
// exists under a different companyId is reported as NotFound, never
// returned.
func (s *SQLiteStore) Load(projectID, companyID string) (domain.DeliberationState, error) {
	var (
		state                        domain.DeliberationState
		currentStage, status         string
		stageResultsRaw, snapshotRaw string
		failedStage                  string
		createdAtRaw, updatedAtRaw   string
	)

	err := s.db.QueryRow(`
		SELECT project_id, company_id, current_stage, status, stage_results,
		       project_snapshot, failed_stage, last_error, created_at, updated_at
		FROM deliberation_state WHERE project_id = ?
	`, projectID).Scan(
		&state.ProjectID, &state.CompanyID, &currentStage, &status, &stageResultsRaw,
		&snapshotRaw, &failedStage, &state.LastError, &createdAtRaw, &updatedAtRaw,
	)
	if err == sql.ErrNoRows {
		return domain.DeliberationState{}, orcherrors.NotFound("deliberation state")
	}
	if err != nil {
		return domain.DeliberationState{}, orcherrors.PersistenceFailure("load-state", err)
	}
	if state.CompanyID != companyID {
		return domain.DeliberationState{}, orcherrors.NotFound("deliberation state")
	}

	state.CurrentStage = domain.Stage(currentStage)
	state.Status = domain.DeliberationStatus(status)
	state.FailedStage = domain.Stage(failedStage)
	state.CreatedAt, _ = time.Parse(time.RFC3339, createdAtRaw)
	state.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAtRaw)

	if err := json.Unmarshal([]byte(stageResultsRaw), &state.StageResults); err != nil {
		return domain.DeliberationState{}, orcherrors.PersistenceFailure("load-state", fmt.Errorf("corrupt stage_results: %w", err))
	}
	if err := json.Unmarshal([]byte(snapshotRaw), &state.ProjectSnapshot); err != nil {
		return domain.DeliberationState{}, orcherrors.PersistenceFailure("load-state", fmt.Errorf("corrupt project_snapshot: %w", err))
	}
	if state.StageResults == nil {
		state.StageResults = make(map[domain.Stage]domain.StageResultSummary)
	}
	return state, nil
}
