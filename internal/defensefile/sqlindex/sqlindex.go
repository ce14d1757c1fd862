// Package sqlindex is a secondary, disposable sqlite index over
// defensefile's JSON-document store. FileStore.ReadAll already answers
// "every DefenseFile for one company" by scanning a directory, which is
// fine for export and small tenants, but a status-board or admin surface
// that only wants "this company's open deliberations" or "everything this
// company rejected" would otherwise have to unmarshal every document on
// every request. Index keeps a queryable projection that is rebuilt from
// the JSON documents, never the other way around: the JSON file under
// defense_files/ stays the source of truth.
package sqlindex

import (
	"database/sql"
	_ "embed"
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

// Summary is one row of the index: enough to answer a listing query
// without loading the full DefenseFile document.
type Summary struct {
	CompanyID     string
	ProjectID     string
	FinalDecision string // empty while the deliberation is still open
	DecisionCount int
	UpdatedAt     time.Time
}

// Index is the sqlite-backed secondary index. It is safe for concurrent
// use; sqlite's own single-writer serialization is relied on exactly as
// quota.SQLiteGate does.
type Index struct {
	db  *sql.DB
	now func() time.Time
}

// New opens (creating if absent) a sqlite database at path and applies the
// index schema. Mirrors quota.NewSQLiteGate's directory-ensure + WAL +
// busy-timeout + embedded-schema construction.
func New(path string) (*Index, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create defense file index directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open defense file index: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply defense file index schema: %w", err)
	}

	return &Index{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close releases the underlying sqlite connection.
func (ix *Index) Close() error { return ix.db.Close() }

// Upsert (re)writes df's row in the index. Callers re-derive this from the
// DefenseFile itself rather than tracking field-level diffs, so a rebuild
// from ReadAll is always just "Upsert every document again."
func (ix *Index) Upsert(df *domain.DefenseFile) error {
	finalDecision := ""
	if df.FinalDecision != nil {
		finalDecision = string(*df.FinalDecision)
	}

	_, err := ix.db.Exec(`
		INSERT INTO defense_file_index (company_id, project_id, final_decision, decision_count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(company_id, project_id) DO UPDATE SET
			final_decision = excluded.final_decision,
			decision_count = excluded.decision_count,
			updated_at     = excluded.updated_at
	`, df.CompanyID, df.ProjectID, finalDecision, len(df.Decisions), ix.now().Format(time.RFC3339))
	if err != nil {
		return orcherrors.PersistenceFailure("defense-file-index-upsert", err)
	}
	return nil
}

// ListByCompany returns every indexed row for companyID, most recently
// updated first.
func (ix *Index) ListByCompany(companyID string) ([]Summary, error) {
	return ix.query(`
		SELECT company_id, project_id, final_decision, decision_count, updated_at
		FROM defense_file_index WHERE company_id = ? ORDER BY updated_at DESC
	`, companyID)
}

// ListOpen returns companyID's rows with no final decision recorded yet:
// the set a status dashboard polls to find deliberations still in flight.
func (ix *Index) ListOpen(companyID string) ([]Summary, error) {
	return ix.query(`
		SELECT company_id, project_id, final_decision, decision_count, updated_at
		FROM defense_file_index WHERE company_id = ? AND final_decision = '' ORDER BY updated_at DESC
	`, companyID)
}

// ListByDecision returns companyID's rows whose final decision matches
// decision exactly (e.g. domain.DecisionReject, to find every engagement a
// company had to turn down).
func (ix *Index) ListByDecision(companyID string, decision domain.Decision) ([]Summary, error) {
	return ix.query(`
		SELECT company_id, project_id, final_decision, decision_count, updated_at
		FROM defense_file_index WHERE company_id = ? AND final_decision = ? ORDER BY updated_at DESC
	`, companyID, string(decision))
}

func (ix *Index) query(query string, args ...any) ([]Summary, error) {
	rows, err := ix.db.Query(query, args...)
	if err != nil {
		return nil, orcherrors.PersistenceFailure("defense-file-index-query", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		var updatedAt string
		if err := rows.Scan(&s.CompanyID, &s.ProjectID, &s.FinalDecision, &s.DecisionCount, &updatedAt); err != nil {
			return nil, orcherrors.PersistenceFailure("defense-file-index-scan", err)
		}
		if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
			s.UpdatedAt = t
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, orcherrors.PersistenceFailure("defense-file-index-rows", err)
	}
	return out, nil
}

// Rebuild upserts one index row for every DefenseFile in docs (typically
// defensefile.Store.ReadAll for one company, or a caller iterating every
// company it knows about), so a dropped index can be repopulated without
// touching the JSON documents it is derived from. It does not clear the
// index first: rows for documents absent from docs are left in place.
func Rebuild(ix *Index, docs []*domain.DefenseFile) error {
	for _, df := range docs {
		if err := ix.Upsert(df); err != nil {
			return err
		}
	}
	return nil
}
