// Package importer executes a creation plan against GitHub. It runs two
// passes: the first creates or updates every issue in plan order, the second
// rewrites parent bodies with checklists of their created children. Children
// are never rewritten after creation.
package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/ALT-F4-LLC/stevedore/internal/github"
	"github.com/ALT-F4-LLC/stevedore/internal/manifest"
	"github.com/ALT-F4-LLC/stevedore/internal/planner"
)

// Skip reasons recorded on rows that were never attempted.
var (
	// ErrParentFailed marks children of a row whose issue was not created.
	ErrParentFailed = errors.New("parent issue was not created")

	// ErrRunAborted marks rows left unprocessed after a fatal failure.
	ErrRunAborted = errors.New("run aborted")
)

// Options tunes a run.
type Options struct {
	// ExternalIDField is the board text field stamped with each row's issue
	// id. It doubles as the idempotency key: rows whose id is already on
	// the board are updated in place instead of recreated. Empty disables
	// both the stamp and the lookup.
	ExternalIDField string

	// EstimateField is the board number field for estimates. Empty
	// disables estimate writes.
	EstimateField string

	// Progress, when set, observes each Result as the creation pass
	// finishes the row. The second pass mutates parent results afterward,
	// so checklist failures only show in the final report.
	Progress func(*Result)
}

// Run executes the plan one row at a time. Per-row failures are recorded and
// the run continues; children of a failed parent are skipped. A fatal
// failure (bad credentials) stops the run and marks every remaining row
// skipped.
func Run(ctx context.Context, plan *planner.Plan, client Client, opts Options) *Report {
	r := &runner{
		client:  client,
		opts:    opts,
		results: make(map[*planner.Node]*Result, len(plan.Nodes)),
	}
	report := &Report{}

	for _, node := range plan.Nodes {
		res := &Result{Row: node.Row}
		r.results[node] = res

		switch {
		case r.fatal != nil:
			res.Status = StatusSkipped
			res.Err = ErrRunAborted
		case node.Parent != nil && !r.results[node.Parent].Ok():
			res.Status = StatusSkipped
			res.Err = fmt.Errorf("%w: %s", ErrParentFailed, node.Parent.Row.Ref())
		default:
			r.processRow(ctx, node, res)
		}

		report.add(res)
		if opts.Progress != nil {
			opts.Progress(res)
		}
	}

	r.updateParentBodies(ctx, plan)

	report.Fatal = r.fatal
	return report
}

// runner carries the state of one run.
type runner struct {
	client  Client
	opts    Options
	results map[*planner.Node]*Result

	// fatal is the first run-aborting error seen, if any.
	fatal error
}

// processRow creates or updates the row's issue, then applies board steps
// and the sub-issue link.
func (r *runner) processRow(ctx context.Context, node *planner.Node, res *Result) {
	row := node.Row
	draft := github.IssueDraft{Title: row.Title, Body: row.Body, Labels: row.Labels}

	existing, err := r.findExisting(ctx, row)
	if err != nil {
		res.fail(StepLookup, err)
		r.noteFatal(err)
		return
	}

	if existing != nil {
		if err := r.client.UpdateIssue(ctx, row.Target, *existing, draft); err != nil {
			res.fail(StepUpdate, err)
			r.noteFatal(err)
			return
		}
		res.Identity = *existing
		res.Status = StatusUpdated
	} else {
		id, err := r.client.CreateIssue(ctx, row.Target, draft)
		if err != nil {
			res.fail(StepCreate, err)
			r.noteFatal(err)
			return
		}
		res.Identity = id
		res.Status = StatusCreated
	}

	r.applyProject(ctx, node, res)
	r.linkToParent(ctx, node, res)
}

// findExisting probes the board for an issue already stamped with the row's
// id. Lookups only make sense for rows with both an id and a board; a
// lookup failure fails the row rather than risking a duplicate create.
func (r *runner) findExisting(ctx context.Context, row manifest.Row) (*github.Identity, error) {
	if r.opts.ExternalIDField == "" || row.IssueID == "" || !row.HasProject() {
		return nil, nil
	}
	return r.client.FindIssueByExternalID(ctx, projectRef(row), r.opts.ExternalIDField, row.IssueID)
}

// applyProject adds the issue to its board and writes the configured custom
// fields. Field failures are independent: a bad estimate field does not
// block the external-id stamp.
func (r *runner) applyProject(ctx context.Context, node *planner.Node, res *Result) {
	row := node.Row
	if !row.HasProject() || r.fatal != nil {
		return
	}

	item, err := r.client.AddToProject(ctx, projectRef(row), res.Identity)
	if r.stepErr(res, StepProject, err) {
		return
	}

	if row.ProjectEstimate != nil && r.opts.EstimateField != "" {
		err := r.client.SetCustomField(ctx, item, r.opts.EstimateField, github.NumberValue(*row.ProjectEstimate))
		r.stepErr(res, StepField, err)
	}
	if r.fatal == nil && row.IssueID != "" && r.opts.ExternalIDField != "" {
		err := r.client.SetCustomField(ctx, item, r.opts.ExternalIDField, github.TextValue(row.IssueID))
		r.stepErr(res, StepField, err)
	}
}

// linkToParent attaches the issue as a sub-issue of its parent. The link
// lives on the parent's repository; cross-repo children work because the
// link carries the child's global id.
func (r *runner) linkToParent(ctx context.Context, node *planner.Node, res *Result) {
	if node.Parent == nil || r.fatal != nil {
		return
	}
	parent := r.results[node.Parent]
	err := r.client.LinkSubIssue(ctx, node.Parent.Row.Target, parent.Identity, res.Identity)
	r.stepErr(res, StepLink, err)
}

// updateParentBodies is the second pass: every surviving parent gets its
// body rewritten with a checklist of the children that exist remotely.
func (r *runner) updateParentBodies(ctx context.Context, plan *planner.Plan) {
	for _, node := range plan.Nodes {
		if r.fatal != nil {
			return
		}
		if !node.IsParent() {
			continue
		}
		res := r.results[node]
		if !res.Ok() {
			continue
		}

		refs := r.childRefs(node)
		if len(refs) == 0 {
			continue
		}

		row := node.Row
		draft := github.IssueDraft{
			Title:  row.Title,
			Body:   ComposeParentBody(row.Body, refs),
			Labels: row.Labels,
		}
		err := r.client.UpdateIssue(ctx, row.Target, res.Identity, draft)
		r.stepErr(res, StepChecklist, err)
	}
}

// childRefs returns the URLs of the node's live children in plan order.
// Failed and skipped children stay out of the checklist.
func (r *runner) childRefs(node *planner.Node) []string {
	refs := make([]string, 0, len(node.Children))
	for _, child := range node.Children {
		cres := r.results[child]
		if cres.Ok() && cres.Identity.URL != "" {
			refs = append(refs, cres.Identity.URL)
		}
	}
	return refs
}

// stepErr records a non-terminal step failure on the result. It reports
// whether an error was recorded.
func (r *runner) stepErr(res *Result, step Step, err error) bool {
	if err == nil {
		return false
	}
	res.StepErrors = append(res.StepErrors, &StepError{Step: step, Err: err})
	r.noteFatal(err)
	return true
}

// noteFatal latches the first run-aborting error.
func (r *runner) noteFatal(err error) {
	if r.fatal == nil && github.Fatal(err) {
		r.fatal = err
	}
}

func projectRef(row manifest.Row) github.ProjectRef {
	return github.ProjectRef{
		OwnerType: row.Target.AccountType,
		Owner:     row.Target.Account,
		Number:    *row.ProjectNumber,
	}
}
