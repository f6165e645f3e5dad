package manifest

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AccountType identifies whether a repository owner is a user or an organization.
type AccountType string

const (
	AccountUser         AccountType = "user"
	AccountOrganization AccountType = "organization"
)

var validAccountTypes = []AccountType{
	AccountUser,
	AccountOrganization,
}

// ParseAccountType validates s and returns the matching account type.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range validAccountTypes {
		if t == v {
			return t, nil
		}
	}
	return "", fmt.Errorf("invalid account_type %q: must be one of %v", s, validAccountTypes)
}

// Target identifies the repository a row's issue is created in.
type Target struct {
	AccountType AccountType
	Account     string
	Repo        string
}

// String returns the "account/repo" path form of the target.
func (t Target) String() string {
	return t.Account + "/" + t.Repo
}

// Row is one task record from the input file.
type Row struct {
	Position int // 1-based data row index, kept for messages and ordering
	Target   Target
	Title    string
	Body     string

	ProjectNumber   *int
	ProjectEstimate *float64
	Labels          []string

	IssueID       string // external id, unique across the input when set
	ParentIssueID string // names another row's IssueID when set
}

// Ref returns a short name for the row in messages: the external id when
// present, otherwise the data row position.
func (r Row) Ref() string {
	if r.IssueID != "" {
		return r.IssueID
	}
	return fmt.Sprintf("row %d", r.Position)
}

// HasProject reports whether the row requests a project board attachment.
func (r Row) HasProject() bool {
	return r.ProjectNumber != nil
}

// rowJSON is the JSON wire format for Row.
type rowJSON struct {
	Position        int      `json:"position"`
	AccountType     string   `json:"account_type"`
	AccountName     string   `json:"account_name"`
	RepoName        string   `json:"repo_name"`
	Title           string   `json:"title"`
	Body            string   `json:"body"`
	ProjectNumber   *int     `json:"project_number,omitempty"`
	ProjectEstimate *float64 `json:"project_estimate,omitempty"`
	Labels          []string `json:"labels,omitempty"`
	IssueID         string   `json:"issue_id,omitempty"`
	ParentIssueID   string   `json:"parent_issue_id,omitempty"`
}

// MarshalJSON implements custom JSON serialization for Row.
func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(rowJSON{
		Position:        r.Position,
		AccountType:     string(r.Target.AccountType),
		AccountName:     r.Target.Account,
		RepoName:        r.Target.Repo,
		Title:           r.Title,
		Body:            r.Body,
		ProjectNumber:   r.ProjectNumber,
		ProjectEstimate: r.ProjectEstimate,
		Labels:          r.Labels,
		IssueID:         r.IssueID,
		ParentIssueID:   r.ParentIssueID,
	})
}
