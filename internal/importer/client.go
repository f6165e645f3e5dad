package importer

import (
	"context"

	"github.com/ALT-F4-LLC/stevedore/internal/github"
	"github.com/ALT-F4-LLC/stevedore/internal/manifest"
)

// Client is the remote surface the import engine drives. *github.Client
// implements it against the live API; tests substitute a fake.
type Client interface {
	// FindIssueByExternalID returns the issue previously stamped with
	// externalID in the named board field, or nil when none exists.
	FindIssueByExternalID(ctx context.Context, project github.ProjectRef, field, externalID string) (*github.Identity, error)

	// CreateIssue opens a new issue and returns its remote identity.
	CreateIssue(ctx context.Context, target manifest.Target, draft github.IssueDraft) (github.Identity, error)

	// UpdateIssue rewrites an existing issue's title, body, and labels.
	UpdateIssue(ctx context.Context, target manifest.Target, id github.Identity, draft github.IssueDraft) error

	// AddToProject puts the issue on the board and returns the board item.
	AddToProject(ctx context.Context, project github.ProjectRef, id github.Identity) (github.ProjectItem, error)

	// SetCustomField writes one custom field value on a board item.
	SetCustomField(ctx context.Context, item github.ProjectItem, field string, value github.FieldValue) error

	// LinkSubIssue attaches child as a sub-issue of parent.
	LinkSubIssue(ctx context.Context, target manifest.Target, parent, child github.Identity) error
}

var _ Client = (*github.Client)(nil)
