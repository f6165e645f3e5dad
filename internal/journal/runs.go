package journal

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ALT-F4-LLC/stevedore/internal/importer"
)

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = errors.New("not found")

// scanner abstracts *sql.Row and *sql.Rows for scanning a single row.
type scanner interface {
	Scan(dest ...any) error
}

// Run is one recorded import run.
type Run struct {
	ID         int
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time

	Created int
	Updated int
	Failed  int
	Skipped int
	Fatal   string

	// Rows is hydrated by GetRun and left empty by ListRuns.
	Rows []RunRow
}

// Total returns the number of rows the run processed.
func (r *Run) Total() int {
	return r.Created + r.Updated + r.Failed + r.Skipped
}

// Duration returns how long the run took.
func (r *Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunRow is the recorded outcome of one manifest row.
type RunRow struct {
	Position int
	IssueID  string
	Title    string
	Repo     string
	Status   string
	Number   int
	URL      string
	Error    string
}

// runJSON is the wire form of Run.
type runJSON struct {
	ID         int      `json:"id"`
	Source     string   `json:"source"`
	StartedAt  string   `json:"started_at"`
	FinishedAt string   `json:"finished_at"`
	Created    int      `json:"created"`
	Updated    int      `json:"updated"`
	Failed     int      `json:"failed"`
	Skipped    int      `json:"skipped"`
	Fatal      string   `json:"fatal,omitempty"`
	Rows       []RunRow `json:"rows,omitempty"`
}

func (r Run) MarshalJSON() ([]byte, error) {
	return json.Marshal(runJSON{
		ID:         r.ID,
		Source:     r.Source,
		StartedAt:  r.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt: r.FinishedAt.UTC().Format(time.RFC3339),
		Created:    r.Created,
		Updated:    r.Updated,
		Failed:     r.Failed,
		Skipped:    r.Skipped,
		Fatal:      r.Fatal,
		Rows:       r.Rows,
	})
}

// runRowJSON is the wire form of RunRow.
type runRowJSON struct {
	Position int    `json:"position"`
	IssueID  string `json:"issue_id,omitempty"`
	Title    string `json:"title"`
	Repo     string `json:"repo"`
	Status   string `json:"status"`
	Number   int    `json:"number,omitempty"`
	URL      string `json:"url,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (r RunRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(runRowJSON(r))
}

// NewRun converts a finished report into a journal record. Row entries keep
// plan order.
func NewRun(source string, rep *importer.Report, started, finished time.Time) *Run {
	run := &Run{
		Source:     source,
		StartedAt:  started,
		FinishedAt: finished,
		Created:    rep.Created,
		Updated:    rep.Updated,
		Failed:     rep.Failed,
		Skipped:    rep.Skipped,
	}
	if rep.Fatal != nil {
		run.Fatal = rep.Fatal.Error()
	}

	for _, res := range rep.Results {
		rr := RunRow{
			Position: res.Row.Position,
			IssueID:  res.Row.IssueID,
			Title:    res.Row.Title,
			Repo:     res.Row.Target.String(),
			Status:   string(res.Status),
			Number:   res.Identity.Number,
			URL:      res.Identity.URL,
		}
		switch {
		case res.Err != nil:
			rr.Error = res.Err.Error()
		case len(res.StepErrors) > 0:
			msgs := make([]string, len(res.StepErrors))
			for i, se := range res.StepErrors {
				msgs[i] = se.Error()
			}
			rr.Error = strings.Join(msgs, "; ")
		}
		run.Rows = append(run.Rows, rr)
	}

	return run
}

// RecordRun inserts the run and all of its rows in a single transaction and
// returns the new run ID.
func RecordRun(db *sql.DB, run *Run) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO runs (source, started_at, finished_at, created, updated, failed, skipped, fatal)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Source,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339),
		run.Created,
		run.Updated,
		run.Failed,
		run.Skipped,
		nullIfEmpty(run.Fatal),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}

	id64, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}
	id := int(id64)

	for _, rr := range run.Rows {
		if _, err := tx.Exec(
			`INSERT INTO run_rows (run_id, position, issue_id, title, repo, status, issue_number, issue_url, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id,
			rr.Position,
			nullIfEmpty(rr.IssueID),
			rr.Title,
			rr.Repo,
			rr.Status,
			nullIfZero(rr.Number),
			nullIfEmpty(rr.URL),
			nullIfEmpty(rr.Error),
		); err != nil {
			return 0, fmt.Errorf("inserting run row %d: %w", rr.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}

	run.ID = id
	return id, nil
}

// ListRuns retrieves recorded runs, newest first, without their rows.
// A limit of zero or less returns all runs.
func ListRuns(db *sql.DB, limit int) ([]*Run, error) {
	query := `SELECT id, source, started_at, finished_at, created, updated, failed, skipped, fatal
	          FROM runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRunFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating run rows: %w", err)
	}

	return runs, nil
}

// GetRun retrieves a run by ID with its rows hydrated in plan order.
func GetRun(db *sql.DB, id int) (*Run, error) {
	row := db.QueryRow(
		`SELECT id, source, started_at, finished_at, created, updated, failed, skipped, fatal
		 FROM runs WHERE id = ?`, id,
	)
	run, err := scanRunFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}

	if err := hydrateRows(db, run); err != nil {
		return nil, err
	}
	return run, nil
}

// LatestRun retrieves the most recent run with its rows hydrated.
func LatestRun(db *sql.DB) (*Run, error) {
	var id int
	err := db.QueryRow(`SELECT id FROM runs ORDER BY id DESC LIMIT 1`).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("finding latest run: %w", err)
	}
	return GetRun(db, id)
}

// --- helpers ---

// scanRunFrom scans a single run from any scanner (*sql.Row or *sql.Rows).
func scanRunFrom(s scanner) (*Run, error) {
	var r Run
	var fatal sql.NullString
	var startedAt, finishedAt string

	err := s.Scan(
		&r.ID, &r.Source, &startedAt, &finishedAt,
		&r.Created, &r.Updated, &r.Failed, &r.Skipped, &fatal,
	)
	if err != nil {
		return nil, err
	}

	r.Fatal = fatal.String

	t, err := time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	r.StartedAt = t

	t, err = time.Parse(time.RFC3339, finishedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing finished_at: %w", err)
	}
	r.FinishedAt = t

	return &r, nil
}

// hydrateRows loads the run's rows in the order the run processed them.
func hydrateRows(db *sql.DB, run *Run) error {
	rows, err := db.Query(
		`SELECT position, issue_id, title, repo, status, issue_number, issue_url, error
		 FROM run_rows WHERE run_id = ? ORDER BY id`, run.ID,
	)
	if err != nil {
		return fmt.Errorf("querying run rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rr RunRow
		var issueID, url, rowErr sql.NullString
		var number sql.NullInt64

		if err := rows.Scan(&rr.Position, &issueID, &rr.Title, &rr.Repo, &rr.Status, &number, &url, &rowErr); err != nil {
			return fmt.Errorf("scanning run row: %w", err)
		}

		rr.IssueID = issueID.String
		rr.Number = int(number.Int64)
		rr.URL = url.String
		rr.Error = rowErr.String
		run.Rows = append(run.Rows, rr)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating run rows: %w", err)
	}

	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZero(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
