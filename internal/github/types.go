package github

import (
	"fmt"
	"time"

	"github.com/ALT-F4-LLC/stevedore/internal/manifest"
)

// API configuration constants.
const (
	// DefaultAPIEndpoint is the GitHub REST API base URL.
	DefaultAPIEndpoint = "https://api.github.com/"

	// DefaultGraphQLEndpoint is the GitHub GraphQL API URL.
	DefaultGraphQLEndpoint = "https://api.github.com/graphql"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of retries for rate-limited
	// and transport failures (so DefaultMaxRetries+1 attempts per call).
	DefaultMaxRetries = 3
)

// Identity is the remote identity of an issue. The database ID is what
// sub-issue linking wants, the node ID feeds GraphQL mutations, and the URL
// goes into parent checklists.
type Identity struct {
	ID     int64  `json:"id"`
	Number int    `json:"number"`
	NodeID string `json:"node_id"`
	URL    string `json:"url"`
}

// Zero reports whether the identity is unset.
func (id Identity) Zero() bool {
	return id.ID == 0 && id.NodeID == ""
}

// IssueDraft carries the writable fields of an issue.
type IssueDraft struct {
	Title  string
	Body   string
	Labels []string
}

// ProjectRef names a Projects V2 board by its owner and number.
type ProjectRef struct {
	OwnerType manifest.AccountType `json:"owner_type"`
	Owner     string               `json:"owner"`
	Number    int                  `json:"number"`
}

// String returns the "owner/number" display form of the reference.
func (p ProjectRef) String() string {
	return fmt.Sprintf("%s/%d", p.Owner, p.Number)
}

// key returns the cache key for the reference.
func (p ProjectRef) key() string {
	return fmt.Sprintf("%s/%s/%d", p.OwnerType, p.Owner, p.Number)
}

// ProjectItem is the association of an issue with a project board.
type ProjectItem struct {
	Project ProjectRef `json:"project"`
	ID      string     `json:"id"` // ProjectV2Item node id
}

// FieldValue is a custom field value. Exactly one of Text or Number is set;
// these are the only Projects V2 field types the importer writes.
type FieldValue struct {
	Text   *string
	Number *float64
}

// TextValue returns a FieldValue holding text.
func TextValue(s string) FieldValue {
	return FieldValue{Text: &s}
}

// NumberValue returns a FieldValue holding a number.
func NumberValue(f float64) FieldValue {
	return FieldValue{Number: &f}
}
