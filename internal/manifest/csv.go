package manifest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Recognized column names in the header row.
const (
	colAccountType     = "account_type"
	colAccountName     = "account_name"
	colRepoName        = "repo_name"
	colTitle           = "title"
	colBody            = "body"
	colProjectNumber   = "project_number"
	colProjectEstimate = "project_estimate"
	colLabels          = "labels"
	colIssueID         = "issue_id"
	colParentIssueID   = "parent_issue_id"
)

// Columns is the full recognized column set in canonical order.
var Columns = []string{
	colAccountType,
	colAccountName,
	colRepoName,
	colTitle,
	colBody,
	colProjectNumber,
	colProjectEstimate,
	colLabels,
	colIssueID,
	colParentIssueID,
}

// requiredColumns must all be present in the header.
var requiredColumns = []string{
	colAccountType,
	colAccountName,
	colRepoName,
	colTitle,
	colBody,
}

// LoadFile reads and validates rows from the CSV file at path.
func LoadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	rows, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// Load reads rows from r. The first record is the header; it must contain
// every required column, and unrecognized columns are ignored. Field errors
// are collected across all rows so one pass reports everything wrong with a
// file. On any error no rows are returned.
func Load(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty input: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	var rows []Row
	var errs []string
	for pos := 1; ; pos++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", pos, err)
		}

		row, rowErrs := parseRow(cols, record, pos)
		if len(rowErrs) > 0 {
			errs = append(errs, rowErrs...)
			continue
		}
		rows = append(rows, row)
	}

	if len(errs) > 0 {
		msg := fmt.Sprintf("%d invalid field(s):", len(errs))
		for _, e := range errs {
			msg += "\n  - " + e
		}
		return nil, errors.New(msg)
	}

	return rows, nil
}

// indexColumns maps recognized column names to their positions in the header.
// Required columns must be present; a recognized name appearing twice is an
// error because the ambiguity would silently drop data.
func indexColumns(header []string) (map[string]int, error) {
	recognized := make(map[string]struct{}, len(Columns))
	for _, c := range Columns {
		recognized[c] = struct{}{}
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if i == 0 {
			name = strings.TrimPrefix(name, "\uFEFF") // strip UTF-8 BOM
		}
		if _, ok := recognized[name]; !ok {
			continue
		}
		if _, dup := cols[name]; dup {
			return nil, fmt.Errorf("duplicate column %q in header", name)
		}
		cols[name] = i
	}

	var missing []string
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required column(s): %s", strings.Join(missing, ", "))
	}

	return cols, nil
}

// parseRow converts one CSV record into a Row, returning all field errors
// found rather than stopping at the first.
func parseRow(cols map[string]int, record []string, pos int) (Row, []string) {
	get := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	row := Row{Position: pos}
	var errs []string
	fail := func(col, format string, args ...any) {
		errs = append(errs, fmt.Sprintf("row %d, %s: %s", pos, col, fmt.Sprintf(format, args...)))
	}

	accountType, err := ParseAccountType(get(colAccountType))
	if err != nil {
		fail(colAccountType, "%s", err)
	}
	row.Target.AccountType = accountType

	row.Target.Account = get(colAccountName)
	if row.Target.Account == "" {
		fail(colAccountName, "must not be empty")
	}

	row.Target.Repo = get(colRepoName)
	if row.Target.Repo == "" {
		fail(colRepoName, "must not be empty")
	}

	row.Title = get(colTitle)
	if row.Title == "" {
		fail(colTitle, "must not be empty")
	}

	row.Body = get(colBody)
	if row.Body == "" {
		fail(colBody, "must not be empty")
	}

	if s := get(colProjectNumber); s != "" {
		n, err := strconv.Atoi(s)
		switch {
		case err != nil:
			fail(colProjectNumber, "invalid integer %q", s)
		case n <= 0:
			fail(colProjectNumber, "must be positive, got %d", n)
		default:
			row.ProjectNumber = &n
		}
	}

	if s := get(colProjectEstimate); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		switch {
		case err != nil:
			fail(colProjectEstimate, "invalid number %q", s)
		case math.IsNaN(f) || math.IsInf(f, 0):
			fail(colProjectEstimate, "must be finite, got %q", s)
		default:
			row.ProjectEstimate = &f
		}
	}

	row.Labels = SplitLabels(get(colLabels))
	row.IssueID = get(colIssueID)
	row.ParentIssueID = get(colParentIssueID)

	return row, errs
}

// SplitLabels parses a comma-separated labels cell. Entries are trimmed,
// empties dropped, and duplicates removed keeping the first occurrence.
func SplitLabels(s string) []string {
	if s == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var labels []string
	for _, part := range strings.Split(s, ",") {
		label := strings.TrimSpace(part)
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}
	return labels
}
