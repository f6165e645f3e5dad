package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ALT-F4-LLC/stevedore/internal/manifest"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		Token:      "test-token",
		APIBaseURL: srv.URL + "/",
		GraphQLURL: srv.URL + "/graphql",
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)
	c.retryInterval = time.Millisecond
	return c
}

func writeIssue(w http.ResponseWriter, status int, id int64, number int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"id":%d,"number":%d,"node_id":"I_node%d","html_url":"https://github.com/acme/tools/issues/%d"}`,
		id, number, number, number)
}

var testTarget = manifest.Target{
	AccountType: manifest.AccountOrganization,
	Account:     "acme",
	Repo:        "tools",
}

func TestNewRequiresToken(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuth)
}

func TestCreateIssue(t *testing.T) {
	var captured struct {
		Title  string   `json:"title"`
		Body   string   `json:"body"`
		Labels []string `json:"labels"`
	}
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/acme/tools/issues", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		writeIssue(w, http.StatusCreated, 100, 42)
	}))

	id, err := c.CreateIssue(context.Background(), testTarget, IssueDraft{
		Title:  "Fix the widget",
		Body:   "It squeaks.",
		Labels: []string{"bug", "infra"},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(100), id.ID)
	assert.Equal(t, 42, id.Number)
	assert.Equal(t, "I_node42", id.NodeID)
	assert.Equal(t, "https://github.com/acme/tools/issues/42", id.URL)

	assert.Equal(t, "Fix the widget", captured.Title)
	assert.Equal(t, "It squeaks.", captured.Body)
	assert.Equal(t, []string{"bug", "infra"}, captured.Labels)
}

func TestCreateIssueRetriesAfterRateLimit(t *testing.T) {
	attempts := 0
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"message":"API rate limit exceeded"}`)
			return
		}
		writeIssue(w, http.StatusCreated, 100, 1)
	}))

	id, err := c.CreateIssue(context.Background(), testTarget, IssueDraft{Title: "t", Body: "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 1, id.Number)
}

func TestCreateIssueRetriesAfterServerError(t *testing.T) {
	attempts := 0
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeIssue(w, http.StatusCreated, 100, 1)
	}))

	_, err := c.CreateIssue(context.Background(), testTarget, IssueDraft{Title: "t", Body: "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestCreateIssueGivesUpAfterMaxRetries(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{
		Token:      "test-token",
		APIBaseURL: srv.URL + "/",
		GraphQLURL: srv.URL + "/graphql",
		MaxRetries: 2,
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)
	c.retryInterval = time.Millisecond

	_, err = c.CreateIssue(context.Background(), testTarget, IssueDraft{Title: "t", Body: "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.True(t, Retryable(err))
	assert.Equal(t, 3, attempts) // initial attempt + 2 retries
}

func TestCreateIssueAuthFailureIsNotRetried(t *testing.T) {
	attempts := 0
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"Bad credentials"}`)
	}))

	_, err := c.CreateIssue(context.Background(), testTarget, IssueDraft{Title: "t", Body: "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuth)
	assert.True(t, Fatal(err))
	assert.Equal(t, 1, attempts)
}

func TestCreateIssueNotFound(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	}))

	_, err := c.CreateIssue(context.Background(), testTarget, IssueDraft{Title: "t", Body: "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, Fatal(err))
	assert.False(t, Retryable(err))
}

func TestUpdateIssue(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/repos/acme/tools/issues/42", r.URL.Path)
		writeIssue(w, http.StatusOK, 100, 42)
	}))

	err := c.UpdateIssue(context.Background(), testTarget, Identity{ID: 100, Number: 42}, IssueDraft{
		Title: "Fix the widget",
		Body:  "Updated body.",
	})
	require.NoError(t, err)
}

func TestLinkSubIssue(t *testing.T) {
	var captured map[string]int64
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/acme/tools/issues/7/sub_issues", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		writeIssue(w, http.StatusCreated, 999, 7)
	}))

	parent := Identity{ID: 900, Number: 7}
	child := Identity{ID: 1234, Number: 8}
	require.NoError(t, c.LinkSubIssue(context.Background(), testTarget, parent, child))
	assert.Equal(t, int64(1234), captured["sub_issue_id"])
}

// graphQLHandler answers board queries the way the live API shapes them:
// one project with a NUMBER field, a TEXT field, and a single-select field
// the importer cannot write.
type graphQLHandler struct {
	t *testing.T

	projectQueries int
	itemPages      int
	lastMutation   map[string]any
}

func (h *graphQLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/graphql" {
		h.t.Errorf("unexpected REST call: %s %s", r.Method, r.URL.Path)
		http.NotFound(w, r)
		return
	}

	var req graphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.t.Errorf("decoding GraphQL request: %v", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.Contains(req.Query, "projectV2(number:"):
		h.projectQueries++
		owner := "user"
		if strings.Contains(req.Query, "organization(") {
			owner = "organization"
		}
		fmt.Fprintf(w, `{"data":{"%s":{"projectV2":{"id":"PVT_1"}}}}`, owner)

	case strings.Contains(req.Query, "fields(first:"):
		fmt.Fprint(w, `{"data":{"node":{"fields":{"nodes":[
			{"id":"F_EST","name":"Estimate","dataType":"NUMBER"},
			{"id":"F_EXT","name":"IssueID","dataType":"TEXT"},
			{"id":"F_STATUS","name":"Status","dataType":"SINGLE_SELECT"}
		]}}}}`)

	case strings.Contains(req.Query, "addProjectV2ItemById"):
		h.lastMutation = req.Variables
		fmt.Fprint(w, `{"data":{"addProjectV2ItemById":{"item":{"id":"ITEM_1"}}}}`)

	case strings.Contains(req.Query, "updateProjectV2ItemFieldValue"):
		h.lastMutation = req.Variables
		fmt.Fprint(w, `{"data":{"updateProjectV2ItemFieldValue":{"projectV2Item":{"id":"ITEM_1"}}}}`)

	case strings.Contains(req.Query, "items(first:"):
		h.itemPages++
		if req.Variables["cursor"] == nil {
			fmt.Fprint(w, `{"data":{"node":{"items":{
				"pageInfo":{"hasNextPage":true,"endCursor":"CURSOR_1"},
				"nodes":[
					{"fieldValueByName":{"text":"M1"},"content":{"id":"I_n1","databaseId":100,"number":1,"url":"https://github.com/acme/tools/issues/1"}},
					{"fieldValueByName":null,"content":{"id":"I_n2","databaseId":101,"number":2,"url":"https://github.com/acme/tools/issues/2"}},
					{"fieldValueByName":{"text":"DRAFT"},"content":null}
				]}}}}`)
			return
		}
		fmt.Fprint(w, `{"data":{"node":{"items":{
			"pageInfo":{"hasNextPage":false,"endCursor":""},
			"nodes":[
				{"fieldValueByName":{"text":"M2"},"content":{"id":"I_n3","databaseId":102,"number":3,"url":"https://github.com/acme/tools/issues/3"}}
			]}}}}`)

	default:
		h.t.Errorf("unexpected GraphQL query: %s", req.Query)
	}
}

func testProjectRef() ProjectRef {
	return ProjectRef{OwnerType: manifest.AccountOrganization, Owner: "acme", Number: 5}
}

func TestAddToProject(t *testing.T) {
	h := &graphQLHandler{t: t}
	c := testClient(t, h)

	item, err := c.AddToProject(context.Background(), testProjectRef(), Identity{ID: 100, Number: 1, NodeID: "I_n1"})
	require.NoError(t, err)
	assert.Equal(t, "ITEM_1", item.ID)
	assert.Equal(t, testProjectRef(), item.Project)
	assert.Equal(t, "PVT_1", h.lastMutation["projectId"])
	assert.Equal(t, "I_n1", h.lastMutation["contentId"])
}

func TestProjectResolutionIsCached(t *testing.T) {
	h := &graphQLHandler{t: t}
	c := testClient(t, h)

	_, err := c.AddToProject(context.Background(), testProjectRef(), Identity{NodeID: "I_n1"})
	require.NoError(t, err)
	_, err = c.AddToProject(context.Background(), testProjectRef(), Identity{NodeID: "I_n2"})
	require.NoError(t, err)

	assert.Equal(t, 1, h.projectQueries)
}

func TestProjectNotFound(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":{"organization":{"projectV2":null}}}`)
	}))

	_, err := c.AddToProject(context.Background(), testProjectRef(), Identity{NodeID: "I_n1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestSetCustomFieldNumber(t *testing.T) {
	h := &graphQLHandler{t: t}
	c := testClient(t, h)
	item := ProjectItem{Project: testProjectRef(), ID: "ITEM_1"}

	err := c.SetCustomField(context.Background(), item, "Estimate", NumberValue(2.5))
	require.NoError(t, err)

	assert.Equal(t, "F_EST", h.lastMutation["fieldId"])
	assert.Equal(t, "ITEM_1", h.lastMutation["itemId"])
	assert.Equal(t, map[string]any{"number": 2.5}, h.lastMutation["value"])
}

func TestSetCustomFieldText(t *testing.T) {
	h := &graphQLHandler{t: t}
	c := testClient(t, h)
	item := ProjectItem{Project: testProjectRef(), ID: "ITEM_1"}

	err := c.SetCustomField(context.Background(), item, "IssueID", TextValue("M1"))
	require.NoError(t, err)

	assert.Equal(t, "F_EXT", h.lastMutation["fieldId"])
	assert.Equal(t, map[string]any{"text": "M1"}, h.lastMutation["value"])
}

func TestSetCustomFieldMismatches(t *testing.T) {
	h := &graphQLHandler{t: t}
	c := testClient(t, h)
	item := ProjectItem{Project: testProjectRef(), ID: "ITEM_1"}

	tests := []struct {
		name  string
		field string
		value FieldValue
	}{
		{name: "unknown field", field: "Sprint", value: TextValue("x")},
		{name: "number into text field", field: "IssueID", value: NumberValue(1)},
		{name: "text into number field", field: "Estimate", value: TextValue("x")},
		{name: "unsupported data type", field: "Status", value: TextValue("Done")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.SetCustomField(context.Background(), item, tt.field, tt.value)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrFieldNotFound)
		})
	}
}

func TestFindIssueByExternalID(t *testing.T) {
	h := &graphQLHandler{t: t}
	c := testClient(t, h)
	ref := testProjectRef()

	id, err := c.FindIssueByExternalID(context.Background(), ref, "IssueID", "M2")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, int64(102), id.ID)
	assert.Equal(t, 3, id.Number)
	assert.Equal(t, "https://github.com/acme/tools/issues/3", id.URL)
	assert.Equal(t, 2, h.itemPages)

	// Unknown ids come back nil without error.
	id, err = c.FindIssueByExternalID(context.Background(), ref, "IssueID", "ZZ")
	require.NoError(t, err)
	assert.Nil(t, id)

	// The item map is built once per project and field.
	assert.Equal(t, 2, h.itemPages)
}

func TestFindIssueByExternalIDEmptyID(t *testing.T) {
	h := &graphQLHandler{t: t}
	c := testClient(t, h)

	id, err := c.FindIssueByExternalID(context.Background(), testProjectRef(), "IssueID", "")
	require.NoError(t, err)
	assert.Nil(t, id)
	assert.Equal(t, 0, h.projectQueries)
}

func TestGraphQLErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		errType string
		want    error
	}{
		{name: "not found", errType: "NOT_FOUND", want: ErrNotFound},
		{name: "forbidden", errType: "FORBIDDEN", want: ErrAuth},
		{name: "insufficient scopes", errType: "INSUFFICIENT_SCOPES", want: ErrAuth},
		{name: "rate limited", errType: "RATE_LIMITED", want: ErrRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := graphQLErrorsToErr([]graphQLError{{Type: tt.errType, Message: "nope"}})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	err := graphQLErrorsToErr([]graphQLError{{Type: "SOMETHING_ELSE", Message: "odd failure"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "odd failure")
	assert.False(t, Retryable(err))
}

func TestClassifyStatus(t *testing.T) {
	limited := http.Header{}
	limited.Set("X-RateLimit-Remaining", "0")

	tests := []struct {
		name   string
		status int
		header http.Header
		want   error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, header: http.Header{}, want: ErrAuth},
		{name: "forbidden without limit", status: http.StatusForbidden, header: http.Header{}, want: ErrAuth},
		{name: "forbidden rate limited", status: http.StatusForbidden, header: limited, want: ErrRateLimited},
		{name: "too many requests", status: http.StatusTooManyRequests, header: http.Header{}, want: ErrRateLimited},
		{name: "not found", status: http.StatusNotFound, header: http.Header{}, want: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyStatus(tt.status, tt.header)
			assert.ErrorIs(t, got, tt.want)
		})
	}

	assert.NoError(t, classifyStatus(http.StatusUnprocessableEntity, http.Header{}))
}

func TestRetryAfterHint(t *testing.T) {
	wait, ok := retryAfterHint(&rateLimitError{msg: "slow down", retryAfter: 7 * time.Second})
	assert.True(t, ok)
	assert.Equal(t, 7*time.Second, wait)

	_, ok = retryAfterHint(&rateLimitError{msg: "no hint"})
	assert.False(t, ok)

	_, ok = retryAfterHint(errors.New("plain"))
	assert.False(t, ok)
}
