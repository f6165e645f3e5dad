package importer

import (
	"encoding/json"
	"fmt"

	"github.com/ALT-F4-LLC/stevedore/internal/github"
	"github.com/ALT-F4-LLC/stevedore/internal/manifest"
)

// Status is the final outcome of one row.
type Status string

const (
	// StatusCreated means a new issue was opened for the row.
	StatusCreated Status = "created"

	// StatusUpdated means an existing issue was found by external id and
	// rewritten in place.
	StatusUpdated Status = "updated"

	// StatusFailed means the issue could not be created or updated.
	StatusFailed Status = "failed"

	// StatusSkipped means the row was never attempted, because its parent
	// failed or the run aborted.
	StatusSkipped Status = "skipped"
)

// Step names one remote operation within a row's processing.
type Step string

const (
	StepLookup    Step = "lookup"
	StepCreate    Step = "create"
	StepUpdate    Step = "update"
	StepProject   Step = "project"
	StepField     Step = "field"
	StepLink      Step = "link"
	StepChecklist Step = "checklist"
)

// StepError records which operation failed and why.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Result is the outcome of one row. A created or updated row can still carry
// StepErrors when a follow-up operation failed: the issue exists, but a
// board step or sub-issue link did not take.
type Result struct {
	Row      manifest.Row
	Status   Status
	Identity github.Identity

	// Err is the terminal failure for failed rows, or the skip reason for
	// skipped ones.
	Err error

	// StepErrors are non-terminal failures recorded after the issue
	// already existed.
	StepErrors []*StepError
}

// Ok reports whether the row ended with a live issue.
func (r *Result) Ok() bool {
	return r.Status == StatusCreated || r.Status == StatusUpdated
}

// Partial reports whether a live issue is missing some follow-up step.
func (r *Result) Partial() bool {
	return r.Ok() && len(r.StepErrors) > 0
}

func (r *Result) fail(step Step, err error) {
	r.Status = StatusFailed
	r.Err = &StepError{Step: step, Err: err}
}

// resultJSON is the wire form of Result.
type resultJSON struct {
	Row        string   `json:"row"`
	Title      string   `json:"title"`
	Status     Status   `json:"status"`
	Number     int      `json:"number,omitempty"`
	URL        string   `json:"url,omitempty"`
	Error      string   `json:"error,omitempty"`
	StepErrors []string `json:"step_errors,omitempty"`
}

func (r *Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		Row:    r.Row.Ref(),
		Title:  r.Row.Title,
		Status: r.Status,
		Number: r.Identity.Number,
		URL:    r.Identity.URL,
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	for _, se := range r.StepErrors {
		out.StepErrors = append(out.StepErrors, se.Error())
	}
	return json.Marshal(out)
}

// Report is the full outcome of a run: one Result per row in plan order,
// with counts by status.
type Report struct {
	Results []*Result

	Created int
	Updated int
	Failed  int
	Skipped int

	// Fatal is set when the run aborted before processing every row.
	Fatal error
}

func (r *Report) add(res *Result) {
	r.Results = append(r.Results, res)
	switch res.Status {
	case StatusCreated:
		r.Created++
	case StatusUpdated:
		r.Updated++
	case StatusFailed:
		r.Failed++
	case StatusSkipped:
		r.Skipped++
	}
}

// Total returns the number of rows processed.
func (r *Report) Total() int {
	return len(r.Results)
}

// HasFailures reports whether any row ended failed or skipped.
func (r *Report) HasFailures() bool {
	return r.Failed > 0 || r.Skipped > 0
}

// reportJSON is the wire form of Report.
type reportJSON struct {
	Created int       `json:"created"`
	Updated int       `json:"updated"`
	Failed  int       `json:"failed"`
	Skipped int       `json:"skipped"`
	Fatal   string    `json:"fatal,omitempty"`
	Results []*Result `json:"results"`
}

func (r *Report) MarshalJSON() ([]byte, error) {
	out := reportJSON{
		Created: r.Created,
		Updated: r.Updated,
		Failed:  r.Failed,
		Skipped: r.Skipped,
		Results: r.Results,
	}
	if r.Fatal != nil {
		out.Fatal = r.Fatal.Error()
	}
	return json.Marshal(out)
}
