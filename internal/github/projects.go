package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ALT-F4-LLC/stevedore/internal/manifest"
)

// maxResponseSize caps GraphQL response reads.
const maxResponseSize = 10 * 1024 * 1024

// maxItemPages bounds idempotency-map pagination. Hitting the bound is an
// error rather than a silent stop: a truncated map would re-create issues
// the next page would have matched.
const maxItemPages = 1000

// graphQLRequest is the POST body for a GraphQL call.
type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphQLError is one entry of a GraphQL errors array.
type graphQLError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// graphQLResponse is the envelope every GraphQL call returns.
type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// projectInfo caches one resolved board for the length of a run: its node
// id, its field catalog, and the lazily loaded external-id item map.
type projectInfo struct {
	ref    ProjectRef
	id     string
	fields map[string]projectField // keyed by field name

	items       map[string]Identity // external id -> issue identity
	itemsField  string              // field the items map was built from
	itemsLoaded bool
}

// projectField is one custom field on a board.
type projectField struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	DataType string `json:"dataType"`
}

// doGraphQL posts one query and decodes the data payload into out.
func (c *Client) doGraphQL(ctx context.Context, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("marshaling query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		return classifyHTTP(resp, respBody)
	}

	var decoded graphQLResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if len(decoded.Errors) > 0 {
		return graphQLErrorsToErr(decoded.Errors)
	}
	if out != nil {
		if err := json.Unmarshal(decoded.Data, out); err != nil {
			return fmt.Errorf("decoding data: %w", err)
		}
	}
	return nil
}

// graphQLErrorsToErr maps a GraphQL errors array to the package's kinds.
func graphQLErrorsToErr(errs []graphQLError) error {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Message
		switch e.Type {
		case "NOT_FOUND":
			return fmt.Errorf("%w: %s", ErrNotFound, e.Message)
		case "FORBIDDEN", "INSUFFICIENT_SCOPES":
			return fmt.Errorf("%w: %s", ErrAuth, e.Message)
		case "RATE_LIMITED":
			return &rateLimitError{msg: e.Message}
		}
	}
	return fmt.Errorf("GraphQL error: %s", strings.Join(msgs, "; "))
}

const userProjectQuery = `query($login: String!, $number: Int!) {
  user(login: $login) { projectV2(number: $number) { id } }
}`

const orgProjectQuery = `query($login: String!, $number: Int!) {
  organization(login: $login) { projectV2(number: $number) { id } }
}`

const projectFieldsQuery = `query($id: ID!) {
  node(id: $id) {
    ... on ProjectV2 {
      fields(first: 100) {
        nodes { ... on ProjectV2FieldCommon { id name dataType } }
      }
    }
  }
}`

const addItemMutation = `mutation($projectId: ID!, $contentId: ID!) {
  addProjectV2ItemById(input: {projectId: $projectId, contentId: $contentId}) {
    item { id }
  }
}`

const setFieldMutation = `mutation($projectId: ID!, $itemId: ID!, $fieldId: ID!, $value: ProjectV2FieldValue!) {
  updateProjectV2ItemFieldValue(input: {projectId: $projectId, itemId: $itemId, fieldId: $fieldId, value: $value}) {
    projectV2Item { id }
  }
}`

const projectItemsQuery = `query($id: ID!, $field: String!, $cursor: String) {
  node(id: $id) {
    ... on ProjectV2 {
      items(first: 100, after: $cursor) {
        pageInfo { hasNextPage endCursor }
        nodes {
          fieldValueByName(name: $field) {
            ... on ProjectV2ItemFieldTextValue { text }
          }
          content { ... on Issue { id databaseId number url } }
        }
      }
    }
  }
}`

// projectInfoFor returns the cached board info for ref, resolving the board
// id and its field catalog on first use.
func (c *Client) projectInfoFor(ctx context.Context, ref ProjectRef) (*projectInfo, error) {
	if info, ok := c.projects[ref.key()]; ok {
		return info, nil
	}

	query := userProjectQuery
	if ref.OwnerType == manifest.AccountOrganization {
		query = orgProjectQuery
	}

	var resp struct {
		User         *ownerProject `json:"user"`
		Organization *ownerProject `json:"organization"`
	}
	err := c.withRetry(ctx, func() error {
		return c.doGraphQL(ctx, query, map[string]any{"login": ref.Owner, "number": ref.Number}, &resp)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, ref)
		}
		return nil, err
	}

	owner := resp.User
	if ref.OwnerType == manifest.AccountOrganization {
		owner = resp.Organization
	}
	if owner == nil || owner.ProjectV2 == nil || owner.ProjectV2.ID == "" {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, ref)
	}

	info := &projectInfo{
		ref:    ref,
		id:     owner.ProjectV2.ID,
		fields: make(map[string]projectField),
	}
	if err := c.loadFields(ctx, info); err != nil {
		return nil, err
	}

	c.projects[ref.key()] = info
	return info, nil
}

// ownerProject is the user/organization slice of a project lookup response.
type ownerProject struct {
	ProjectV2 *struct {
		ID string `json:"id"`
	} `json:"projectV2"`
}

// loadFields fills the board's field catalog. Every field is recorded with
// its data type; SetCustomField rejects types it cannot write.
func (c *Client) loadFields(ctx context.Context, info *projectInfo) error {
	var resp struct {
		Node struct {
			Fields struct {
				Nodes []projectField `json:"nodes"`
			} `json:"fields"`
		} `json:"node"`
	}
	err := c.withRetry(ctx, func() error {
		return c.doGraphQL(ctx, projectFieldsQuery, map[string]any{"id": info.id}, &resp)
	})
	if err != nil {
		return fmt.Errorf("loading fields for project %s: %w", info.ref, err)
	}

	for _, f := range resp.Node.Fields.Nodes {
		if f.ID == "" || f.Name == "" {
			continue
		}
		info.fields[f.Name] = f
	}
	return nil
}

// AddToProject puts the issue on the board and returns the resulting item.
// GitHub returns the existing item when the issue is already on the board,
// so re-runs land on the same item.
func (c *Client) AddToProject(ctx context.Context, project ProjectRef, id Identity) (ProjectItem, error) {
	info, err := c.projectInfoFor(ctx, project)
	if err != nil {
		return ProjectItem{}, err
	}

	var resp struct {
		AddProjectV2ItemByID struct {
			Item struct {
				ID string `json:"id"`
			} `json:"item"`
		} `json:"addProjectV2ItemById"`
	}
	err = c.withRetry(ctx, func() error {
		return c.doGraphQL(ctx, addItemMutation, map[string]any{
			"projectId": info.id,
			"contentId": id.NodeID,
		}, &resp)
	})
	if err != nil {
		return ProjectItem{}, fmt.Errorf("adding issue #%d to project %s: %w", id.Number, project, err)
	}

	return ProjectItem{Project: project, ID: resp.AddProjectV2ItemByID.Item.ID}, nil
}

// SetCustomField writes one custom field value on a board item. Only TEXT
// and NUMBER fields are writable; anything else (single select, iteration)
// needs option ids this importer does not carry.
func (c *Client) SetCustomField(ctx context.Context, item ProjectItem, field string, value FieldValue) error {
	info, err := c.projectInfoFor(ctx, item.Project)
	if err != nil {
		return err
	}

	f, ok := info.fields[field]
	if !ok {
		return fmt.Errorf("%w: %q on project %s", ErrFieldNotFound, field, item.Project)
	}

	var literal map[string]any
	switch {
	case value.Number != nil:
		if f.DataType != "NUMBER" {
			return fmt.Errorf("%w: %q is %s, want NUMBER", ErrFieldNotFound, field, f.DataType)
		}
		literal = map[string]any{"number": *value.Number}
	case value.Text != nil:
		if f.DataType != "TEXT" {
			return fmt.Errorf("%w: %q is %s, want TEXT", ErrFieldNotFound, field, f.DataType)
		}
		literal = map[string]any{"text": *value.Text}
	default:
		return fmt.Errorf("no value provided for field %q", field)
	}

	err = c.withRetry(ctx, func() error {
		return c.doGraphQL(ctx, setFieldMutation, map[string]any{
			"projectId": info.id,
			"itemId":    item.ID,
			"fieldId":   f.ID,
			"value":     literal,
		}, nil)
	})
	if err != nil {
		return fmt.Errorf("setting field %q on project %s: %w", field, item.Project, err)
	}
	return nil
}

// FindIssueByExternalID looks up an issue previously stamped with externalID
// in the named text field. It returns nil when no such issue exists; this is
// the idempotency probe, so absence is a normal answer.
func (c *Client) FindIssueByExternalID(ctx context.Context, project ProjectRef, field, externalID string) (*Identity, error) {
	if externalID == "" {
		return nil, nil
	}

	info, err := c.projectInfoFor(ctx, project)
	if err != nil {
		return nil, err
	}
	if err := c.loadItems(ctx, info, field); err != nil {
		return nil, err
	}

	if id, ok := info.items[externalID]; ok {
		return &id, nil
	}
	return nil, nil
}

// loadItems pages through the board once and builds the external-id map.
// Items that are not issues, or whose field value is empty, are skipped.
// When two items claim the same external id the first wins.
func (c *Client) loadItems(ctx context.Context, info *projectInfo, field string) error {
	if info.itemsLoaded && info.itemsField == field {
		return nil
	}

	items := make(map[string]Identity)
	var cursor *string
	for page := 0; ; page++ {
		if page >= maxItemPages {
			return fmt.Errorf("project %s: giving up after %d item pages", info.ref, maxItemPages)
		}

		vars := map[string]any{"id": info.id, "field": field}
		if cursor != nil {
			vars["cursor"] = *cursor
		}

		var resp itemsResponse
		err := c.withRetry(ctx, func() error {
			return c.doGraphQL(ctx, projectItemsQuery, vars, &resp)
		})
		if err != nil {
			return fmt.Errorf("listing items for project %s: %w", info.ref, err)
		}

		for _, node := range resp.Node.Items.Nodes {
			if node.Content == nil || node.Content.DatabaseID == 0 {
				continue
			}
			if node.FieldValueByName == nil || node.FieldValueByName.Text == "" {
				continue
			}
			key := node.FieldValueByName.Text
			if _, ok := items[key]; ok {
				continue
			}
			items[key] = Identity{
				ID:     node.Content.DatabaseID,
				Number: node.Content.Number,
				NodeID: node.Content.ID,
				URL:    node.Content.URL,
			}
		}

		pageInfo := resp.Node.Items.PageInfo
		if !pageInfo.HasNextPage {
			break
		}
		next := pageInfo.EndCursor
		cursor = &next
	}

	info.items = items
	info.itemsField = field
	info.itemsLoaded = true
	return nil
}

// itemsResponse is the wire shape of one item page.
type itemsResponse struct {
	Node struct {
		Items struct {
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
			Nodes []struct {
				FieldValueByName *struct {
					Text string `json:"text"`
				} `json:"fieldValueByName"`
				Content *struct {
					ID         string `json:"id"`
					DatabaseID int64  `json:"databaseId"`
					Number     int    `json:"number"`
					URL        string `json:"url"`
				} `json:"content"`
			} `json:"nodes"`
		} `json:"items"`
	} `json:"node"`
}
