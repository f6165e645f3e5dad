// Package github implements the remote issue client: issue creation and
// updates over the REST API, and Projects V2 board operations over the
// GraphQL API (boards have no REST surface).
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v62/github"

	"github.com/ALT-F4-LLC/stevedore/internal/manifest"
)

// Config carries the settings a Client is built from.
type Config struct {
	Token      string
	APIBaseURL string // REST endpoint; defaults to the public API
	GraphQLURL string // GraphQL endpoint; defaults to the public API
	MaxRetries int    // retries per call; defaults to DefaultMaxRetries

	// HTTPClient overrides the underlying HTTP client. Tests point it and
	// the URLs at a local server.
	HTTPClient *http.Client
}

// Client talks to GitHub. It caches resolved project boards for the length
// of a run. A run is strictly sequential, so Client is not safe for
// concurrent use.
type Client struct {
	rest          *gh.Client
	httpClient    *http.Client
	token         string
	graphqlURL    string
	maxRetries    uint64
	retryInterval time.Duration

	projects map[string]*projectInfo
}

// New builds a Client from cfg. The token is required; everything else has
// defaults.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("%w: no token provided", ErrAuth)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	rest := gh.NewClient(httpClient).WithAuthToken(cfg.Token)
	if cfg.APIBaseURL != "" {
		base := cfg.APIBaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parsing API base URL: %w", err)
		}
		rest.BaseURL = u
	}

	graphqlURL := cfg.GraphQLURL
	if graphqlURL == "" {
		graphqlURL = DefaultGraphQLEndpoint
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	return &Client{
		rest:          rest,
		httpClient:    httpClient,
		token:         cfg.Token,
		graphqlURL:    graphqlURL,
		maxRetries:    uint64(maxRetries),
		retryInterval: time.Second,
		projects:      make(map[string]*projectInfo),
	}, nil
}

// CreateIssue opens a new issue in the target repository.
func (c *Client) CreateIssue(ctx context.Context, target manifest.Target, draft IssueDraft) (Identity, error) {
	var identity Identity
	err := c.withRetry(ctx, func() error {
		issue, resp, err := c.rest.Issues.Create(ctx, target.Account, target.Repo, draftRequest(draft))
		if err != nil {
			return classifyREST(resp, err)
		}
		identity = identityFromIssue(issue)
		return nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("creating issue in %s: %w", target, err)
	}
	return identity, nil
}

// UpdateIssue rewrites the title, body, and labels of an existing issue.
func (c *Client) UpdateIssue(ctx context.Context, target manifest.Target, id Identity, draft IssueDraft) error {
	err := c.withRetry(ctx, func() error {
		_, resp, err := c.rest.Issues.Edit(ctx, target.Account, target.Repo, id.Number, draftRequest(draft))
		if err != nil {
			return classifyREST(resp, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("updating issue #%d in %s: %w", id.Number, target, err)
	}
	return nil
}

// LinkSubIssue attaches child as a sub-issue of parent. go-github v62 has no
// typed sub-issues service, so the request goes through NewRequest directly.
func (c *Client) LinkSubIssue(ctx context.Context, target manifest.Target, parent, child Identity) error {
	err := c.withRetry(ctx, func() error {
		u := fmt.Sprintf("repos/%s/%s/issues/%d/sub_issues", target.Account, target.Repo, parent.Number)
		req, err := c.rest.NewRequest(http.MethodPost, u, map[string]int64{"sub_issue_id": child.ID})
		if err != nil {
			return fmt.Errorf("building request: %w", err)
		}
		resp, err := c.rest.Do(ctx, req, nil)
		if err != nil {
			return classifyREST(resp, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("linking issue #%d under #%d in %s: %w", child.Number, parent.Number, target, err)
	}
	return nil
}

// draftRequest converts a draft to the REST request payload.
func draftRequest(draft IssueDraft) *gh.IssueRequest {
	req := &gh.IssueRequest{
		Title: gh.String(draft.Title),
		Body:  gh.String(draft.Body),
	}
	if len(draft.Labels) > 0 {
		labels := append([]string(nil), draft.Labels...)
		req.Labels = &labels
	}
	return req
}

// identityFromIssue extracts the identity fields from a REST issue.
func identityFromIssue(issue *gh.Issue) Identity {
	return Identity{
		ID:     issue.GetID(),
		Number: issue.GetNumber(),
		NodeID: issue.GetNodeID(),
		URL:    issue.GetHTMLURL(),
	}
}
