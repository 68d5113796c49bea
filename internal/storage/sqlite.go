package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dshills/proposal-mcp/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrEmptyRunID is returned when a run-scoped write has no run id
	ErrEmptyRunID = errors.New("run id cannot be empty")
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewRunID returns a time-ordered run identifier
func NewRunID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Open creates the database's parent directory when needed and opens it
func Open(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	return NewSQLiteStorage(dbPath)
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Run operations

const runColumns = `id, opportunity, root_path, status, error, fragment_count, failed_calls,
		       record_count, theme_count, gap_count, started_at, completed_at`

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	var (
		run         Run
		errMsg      sql.NullString
		completedAt sql.NullTime
	)
	err := row.Scan(&run.ID, &run.Opportunity, &run.RootPath, &run.Status, &errMsg,
		&run.FragmentCount, &run.FailedCalls, &run.RecordCount, &run.ThemeCount, &run.GapCount,
		&run.StartedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	run.Error = errMsg.String
	if completedAt.Valid {
		run.CompletedAt = completedAt.Time
	}
	return &run, nil
}

// createRunWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) createRunWithQuerier(ctx context.Context, q querier, run *Run) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.ID == "" {
		run.ID = NewRunID(run.StartedAt)
	}
	if run.Status == "" {
		run.Status = RunRunning
	}

	query := `
		INSERT INTO runs (id, opportunity, root_path, status, started_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := q.ExecContext(ctx, query, run.ID, run.Opportunity, run.RootPath, run.Status, run.StartedAt); err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) CreateRun(ctx context.Context, run *Run) error {
	return s.createRunWithQuerier(ctx, s.querier(), run)
}

// updateRunWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) updateRunWithQuerier(ctx context.Context, q querier, run *Run) error {
	query := `
		UPDATE runs
		SET status = ?, error = ?, fragment_count = ?, failed_calls = ?, record_count = ?,
		    theme_count = ?, gap_count = ?, completed_at = ?
		WHERE id = ?
	`
	var completedAt any
	if !run.CompletedAt.IsZero() {
		completedAt = run.CompletedAt
	}
	result, err := q.ExecContext(ctx, query,
		run.Status, nullString(run.Error), run.FragmentCount, run.FailedCalls, run.RecordCount,
		run.ThemeCount, run.GapCount, completedAt, run.ID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) UpdateRun(ctx context.Context, run *Run) error {
	return s.updateRunWithQuerier(ctx, s.querier(), run)
}

// getRunWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getRunWithQuerier(ctx context.Context, q querier, runID string) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`
	run, err := scanRun(q.QueryRowContext(ctx, query, runID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return run, err
}

func (s *SQLiteStorage) GetRun(ctx context.Context, runID string) (*Run, error) {
	return s.getRunWithQuerier(ctx, s.querier(), runID)
}

// latestRunWithQuerier returns the newest completed run. An empty
// opportunity matches any.
func (s *SQLiteStorage) latestRunWithQuerier(ctx context.Context, q querier, opportunity string) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs
		WHERE status = ? AND (? = '' OR opportunity = ?)
		ORDER BY id DESC LIMIT 1`
	run, err := scanRun(q.QueryRowContext(ctx, query, RunCompleted, opportunity, opportunity))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return run, err
}

func (s *SQLiteStorage) LatestRun(ctx context.Context, opportunity string) (*Run, error) {
	return s.latestRunWithQuerier(ctx, s.querier(), opportunity)
}

// listRunsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listRunsWithQuerier(ctx context.Context, q querier, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY id DESC LIMIT ?`
	rows, err := q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	return s.listRunsWithQuerier(ctx, s.querier(), limit)
}

// deleteRunWithQuerier removes a run; child rows go with it by cascade
func (s *SQLiteStorage) deleteRunWithQuerier(ctx context.Context, q querier, runID string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) DeleteRun(ctx context.Context, runID string) error {
	return s.deleteRunWithQuerier(ctx, s.querier(), runID)
}

// Fragment operations

// saveFragmentsWithQuerier replaces the run's fragments
func (s *SQLiteStorage) saveFragmentsWithQuerier(ctx context.Context, q querier, runID string, frags []*types.Fragment) error {
	if runID == "" {
		return ErrEmptyRunID
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM fragments WHERE run_id = ?`, runID); err != nil {
		return err
	}

	query := `
		INSERT INTO fragments (run_id, position, fragment_id, source_document, text, range_start, range_end,
		                       section_id, section_heading, page, contains_bullets, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for i, f := range frags {
		tags, err := json.Marshal(f.Tags)
		if err != nil {
			return fmt.Errorf("failed to encode tags of %s: %w", f.ID, err)
		}
		_, err = q.ExecContext(ctx, query, runID, i, f.ID, f.SourceDocument, f.Text, f.Range.Start, f.Range.End,
			nullString(f.SectionID), nullString(f.SectionHeading), f.Page, f.ContainsBullets, string(tags))
		if err != nil {
			return fmt.Errorf("failed to save fragment %s: %w", f.ID, err)
		}
	}
	return nil
}

func (s *SQLiteStorage) SaveFragments(ctx context.Context, runID string, frags []*types.Fragment) error {
	return s.saveFragmentsWithQuerier(ctx, s.querier(), runID, frags)
}

// listFragmentsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listFragmentsWithQuerier(ctx context.Context, q querier, runID string) ([]*types.Fragment, error) {
	query := `
		SELECT fragment_id, source_document, text, range_start, range_end, section_id, section_heading,
		       page, contains_bullets, tags
		FROM fragments
		WHERE run_id = ?
		ORDER BY position
	`
	rows, err := q.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frags []*types.Fragment
	for rows.Next() {
		var (
			f                  types.Fragment
			sectionID, heading sql.NullString
			page               sql.NullInt64
			tags               string
		)
		if err := rows.Scan(&f.ID, &f.SourceDocument, &f.Text, &f.Range.Start, &f.Range.End,
			&sectionID, &heading, &page, &f.ContainsBullets, &tags); err != nil {
			return nil, err
		}
		f.SectionID = sectionID.String
		f.SectionHeading = heading.String
		f.Page = int(page.Int64)
		if err := json.Unmarshal([]byte(tags), &f.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags of %s: %w", f.ID, err)
		}
		frags = append(frags, &f)
	}
	return frags, rows.Err()
}

func (s *SQLiteStorage) ListFragments(ctx context.Context, runID string) ([]*types.Fragment, error) {
	return s.listFragmentsWithQuerier(ctx, s.querier(), runID)
}

// Section operations

// saveSectionsWithQuerier replaces the run's sections, keeping extraction order
func (s *SQLiteStorage) saveSectionsWithQuerier(ctx context.Context, q querier, runID string, secs []types.Section, covered map[string]bool) error {
	if runID == "" {
		return ErrEmptyRunID
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM sections WHERE run_id = ?`, runID); err != nil {
		return err
	}

	query := `
		INSERT INTO sections (run_id, position, section_id, heading, page, byte_offset, source_document, covered)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	for i, sec := range secs {
		_, err := q.ExecContext(ctx, query, runID, i, sec.ID, sec.Heading, sec.Page, sec.Offset,
			nullString(sec.Source), covered[sec.ID])
		if err != nil {
			return fmt.Errorf("failed to save section %s: %w", sec.ID, err)
		}
	}
	return nil
}

func (s *SQLiteStorage) SaveSections(ctx context.Context, runID string, secs []types.Section, covered map[string]bool) error {
	return s.saveSectionsWithQuerier(ctx, s.querier(), runID, secs, covered)
}

func (s *SQLiteStorage) querySections(ctx context.Context, q querier, query string, args ...any) ([]SectionRow, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SectionRow
	for rows.Next() {
		var (
			row    SectionRow
			page   sql.NullInt64
			offset sql.NullInt64
			source sql.NullString
		)
		if err := rows.Scan(&row.ID, &row.Heading, &page, &offset, &source, &row.Covered); err != nil {
			return nil, err
		}
		row.Page = int(page.Int64)
		row.Offset = int(offset.Int64)
		row.Source = source.String
		out = append(out, row)
	}
	return out, rows.Err()
}

// listSectionsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listSectionsWithQuerier(ctx context.Context, q querier, runID string) ([]SectionRow, error) {
	query := `
		SELECT section_id, heading, page, byte_offset, source_document, covered
		FROM sections WHERE run_id = ? ORDER BY position
	`
	return s.querySections(ctx, q, query, runID)
}

func (s *SQLiteStorage) ListSections(ctx context.Context, runID string) ([]SectionRow, error) {
	return s.listSectionsWithQuerier(ctx, s.querier(), runID)
}

// listGapsWithQuerier returns the uncovered sections in extraction order
func (s *SQLiteStorage) listGapsWithQuerier(ctx context.Context, q querier, runID string) ([]types.Section, error) {
	query := `
		SELECT section_id, heading, page, byte_offset, source_document, covered
		FROM sections WHERE run_id = ? AND covered = 0 ORDER BY position
	`
	rows, err := s.querySections(ctx, q, query, runID)
	if err != nil {
		return nil, err
	}
	gaps := make([]types.Section, len(rows))
	for i, r := range rows {
		gaps[i] = r.Section
	}
	return gaps, nil
}

func (s *SQLiteStorage) ListGaps(ctx context.Context, runID string) ([]types.Section, error) {
	return s.listGapsWithQuerier(ctx, s.querier(), runID)
}

// Record operations

// saveRecordsWithQuerier replaces the run's canonical records
func (s *SQLiteStorage) saveRecordsWithQuerier(ctx context.Context, q querier, runID string, recs []types.CanonicalRecord) error {
	if runID == "" {
		return ErrEmptyRunID
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM records WHERE run_id = ?`, runID); err != nil {
		return err
	}

	query := `INSERT INTO records (run_id, position, record_key, fields, sources) VALUES (?, ?, ?, ?, ?)`
	for i, rec := range recs {
		fields, err := json.Marshal(rec.Fields)
		if err != nil {
			return fmt.Errorf("failed to encode record %s: %w", rec.Key, err)
		}
		sources := rec.Sources
		if sources == nil {
			sources = []string{}
		}
		srcJSON, err := json.Marshal(sources)
		if err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, query, runID, i, rec.Key, string(fields), string(srcJSON)); err != nil {
			return fmt.Errorf("failed to save record %s: %w", rec.Key, err)
		}
	}
	return nil
}

func (s *SQLiteStorage) SaveRecords(ctx context.Context, runID string, recs []types.CanonicalRecord) error {
	return s.saveRecordsWithQuerier(ctx, s.querier(), runID, recs)
}

// listRecordsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listRecordsWithQuerier(ctx context.Context, q querier, runID string) ([]types.CanonicalRecord, error) {
	rows, err := q.QueryContext(ctx, `SELECT record_key, fields, sources FROM records WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []types.CanonicalRecord
	for rows.Next() {
		var (
			rec             types.CanonicalRecord
			fields, sources string
		)
		if err := rows.Scan(&rec.Key, &fields, &sources); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(fields), &rec.Fields); err != nil {
			return nil, fmt.Errorf("failed to decode record %s: %w", rec.Key, err)
		}
		if err := json.Unmarshal([]byte(sources), &rec.Sources); err != nil {
			return nil, fmt.Errorf("failed to decode sources of %s: %w", rec.Key, err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *SQLiteStorage) ListRecords(ctx context.Context, runID string) ([]types.CanonicalRecord, error) {
	return s.listRecordsWithQuerier(ctx, s.querier(), runID)
}

// Theme operations

// saveThemesWithQuerier replaces the run's themes
func (s *SQLiteStorage) saveThemesWithQuerier(ctx context.Context, q querier, runID string, themes []types.Theme) error {
	if runID == "" {
		return ErrEmptyRunID
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM themes WHERE run_id = ?`, runID); err != nil {
		return err
	}

	query := `INSERT INTO themes (run_id, position, label, keywords) VALUES (?, ?, ?, ?)`
	for i, th := range themes {
		kw, err := json.Marshal(th.Keywords)
		if err != nil {
			return fmt.Errorf("failed to encode theme %s: %w", th.Label, err)
		}
		if _, err := q.ExecContext(ctx, query, runID, i, th.Label, string(kw)); err != nil {
			return fmt.Errorf("failed to save theme %s: %w", th.Label, err)
		}
	}
	return nil
}

func (s *SQLiteStorage) SaveThemes(ctx context.Context, runID string, themes []types.Theme) error {
	return s.saveThemesWithQuerier(ctx, s.querier(), runID, themes)
}

// listThemesWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listThemesWithQuerier(ctx context.Context, q querier, runID string) ([]types.Theme, error) {
	rows, err := q.QueryContext(ctx, `SELECT label, keywords FROM themes WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var themes []types.Theme
	for rows.Next() {
		var (
			th types.Theme
			kw string
		)
		if err := rows.Scan(&th.Label, &kw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(kw), &th.Keywords); err != nil {
			return nil, fmt.Errorf("failed to decode theme %s: %w", th.Label, err)
		}
		themes = append(themes, th)
	}
	return themes, rows.Err()
}

func (s *SQLiteStorage) ListThemes(ctx context.Context, runID string) ([]types.Theme, error) {
	return s.listThemesWithQuerier(ctx, s.querier(), runID)
}

// Compliance operations

// saveComplianceWithQuerier replaces the run's compliance items
func (s *SQLiteStorage) saveComplianceWithQuerier(ctx context.Context, q querier, runID string, items []types.ComplianceItem) error {
	if runID == "" {
		return ErrEmptyRunID
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM compliance_items WHERE run_id = ?`, runID); err != nil {
		return err
	}

	query := `
		INSERT INTO compliance_items (run_id, position, kind, item_type, requirement, source, fragment_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for i, it := range items {
		_, err := q.ExecContext(ctx, query, runID, i, string(it.Kind), nullString(it.Type), it.Requirement,
			nullString(it.Source), nullString(it.FragmentID))
		if err != nil {
			return fmt.Errorf("failed to save compliance item: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStorage) SaveCompliance(ctx context.Context, runID string, items []types.ComplianceItem) error {
	return s.saveComplianceWithQuerier(ctx, s.querier(), runID, items)
}

// listComplianceWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listComplianceWithQuerier(ctx context.Context, q querier, runID string) ([]types.ComplianceItem, error) {
	query := `
		SELECT kind, item_type, requirement, source, fragment_id
		FROM compliance_items WHERE run_id = ? ORDER BY position
	`
	rows, err := q.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []types.ComplianceItem
	for rows.Next() {
		var (
			it                         types.ComplianceItem
			kind                       string
			itemType, source, fragment sql.NullString
		)
		if err := rows.Scan(&kind, &itemType, &it.Requirement, &source, &fragment); err != nil {
			return nil, err
		}
		it.Kind = types.ComplianceKind(kind)
		it.Type = itemType.String
		it.Source = source.String
		it.FragmentID = fragment.String
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *SQLiteStorage) ListCompliance(ctx context.Context, runID string) ([]types.ComplianceItem, error) {
	return s.listComplianceWithQuerier(ctx, s.querier(), runID)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Transaction methods delegate to the storage implementation with the tx querier

func (t *sqliteTx) CreateRun(ctx context.Context, run *Run) error {
	return t.storage.createRunWithQuerier(ctx, t.querier(), run)
}

func (t *sqliteTx) UpdateRun(ctx context.Context, run *Run) error {
	return t.storage.updateRunWithQuerier(ctx, t.querier(), run)
}

func (t *sqliteTx) GetRun(ctx context.Context, runID string) (*Run, error) {
	return t.storage.getRunWithQuerier(ctx, t.querier(), runID)
}

func (t *sqliteTx) LatestRun(ctx context.Context, opportunity string) (*Run, error) {
	return t.storage.latestRunWithQuerier(ctx, t.querier(), opportunity)
}

func (t *sqliteTx) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	return t.storage.listRunsWithQuerier(ctx, t.querier(), limit)
}

func (t *sqliteTx) DeleteRun(ctx context.Context, runID string) error {
	return t.storage.deleteRunWithQuerier(ctx, t.querier(), runID)
}

func (t *sqliteTx) SaveFragments(ctx context.Context, runID string, frags []*types.Fragment) error {
	return t.storage.saveFragmentsWithQuerier(ctx, t.querier(), runID, frags)
}

func (t *sqliteTx) ListFragments(ctx context.Context, runID string) ([]*types.Fragment, error) {
	return t.storage.listFragmentsWithQuerier(ctx, t.querier(), runID)
}

func (t *sqliteTx) SaveSections(ctx context.Context, runID string, secs []types.Section, covered map[string]bool) error {
	return t.storage.saveSectionsWithQuerier(ctx, t.querier(), runID, secs, covered)
}

func (t *sqliteTx) ListSections(ctx context.Context, runID string) ([]SectionRow, error) {
	return t.storage.listSectionsWithQuerier(ctx, t.querier(), runID)
}

func (t *sqliteTx) ListGaps(ctx context.Context, runID string) ([]types.Section, error) {
	return t.storage.listGapsWithQuerier(ctx, t.querier(), runID)
}

func (t *sqliteTx) SaveRecords(ctx context.Context, runID string, recs []types.CanonicalRecord) error {
	return t.storage.saveRecordsWithQuerier(ctx, t.querier(), runID, recs)
}

func (t *sqliteTx) ListRecords(ctx context.Context, runID string) ([]types.CanonicalRecord, error) {
	return t.storage.listRecordsWithQuerier(ctx, t.querier(), runID)
}

func (t *sqliteTx) SaveThemes(ctx context.Context, runID string, themes []types.Theme) error {
	return t.storage.saveThemesWithQuerier(ctx, t.querier(), runID, themes)
}

func (t *sqliteTx) ListThemes(ctx context.Context, runID string) ([]types.Theme, error) {
	return t.storage.listThemesWithQuerier(ctx, t.querier(), runID)
}

func (t *sqliteTx) SaveCompliance(ctx context.Context, runID string, items []types.ComplianceItem) error {
	return t.storage.saveComplianceWithQuerier(ctx, t.querier(), runID, items)
}

func (t *sqliteTx) ListCompliance(ctx context.Context, runID string) ([]types.ComplianceItem, error) {
	return t.storage.listComplianceWithQuerier(ctx, t.querier(), runID)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
