package manifest

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestParseAccountType(t *testing.T) {
	tests := []struct {
		input   string
		want    AccountType
		wantErr bool
	}{
		{"user", AccountUser, false},
		{"organization", AccountOrganization, false},
		{"User", AccountUser, false},
		{"ORGANIZATION", AccountOrganization, false},
		{" user ", AccountUser, false},
		{"", "", true},
		{"org", "", true},
		{"team", "", true},
	}

	for _, tt := range tests {
		got, err := ParseAccountType(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAccountType(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAccountType(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLoadParsesAllFields(t *testing.T) {
	input := strings.Join([]string{
		"account_type,account_name,repo_name,title,body,project_number,project_estimate,labels,issue_id,parent_issue_id",
		`organization,acme,backend,Meta task,"Full description, with comma",7,2.5,"infra, urgent, infra",M1,`,
		`user,alice,tools,Sub task,Details,7,,,M1-S1,M1`,
	}, "\n")

	rows, err := Load(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}

	meta := rows[0]
	if meta.Position != 1 {
		t.Errorf("Position = %d, want 1", meta.Position)
	}
	if meta.Target.AccountType != AccountOrganization {
		t.Errorf("AccountType = %q, want organization", meta.Target.AccountType)
	}
	if meta.Target.String() != "acme/backend" {
		t.Errorf("Target = %q, want acme/backend", meta.Target.String())
	}
	if meta.Body != "Full description, with comma" {
		t.Errorf("Body = %q", meta.Body)
	}
	if meta.ProjectNumber == nil || *meta.ProjectNumber != 7 {
		t.Errorf("ProjectNumber = %v, want 7", meta.ProjectNumber)
	}
	if meta.ProjectEstimate == nil || *meta.ProjectEstimate != 2.5 {
		t.Errorf("ProjectEstimate = %v, want 2.5", meta.ProjectEstimate)
	}
	if want := []string{"infra", "urgent"}; !reflect.DeepEqual(meta.Labels, want) {
		t.Errorf("Labels = %v, want %v", meta.Labels, want)
	}
	if meta.IssueID != "M1" || meta.ParentIssueID != "" {
		t.Errorf("ids = %q/%q, want M1/", meta.IssueID, meta.ParentIssueID)
	}

	sub := rows[1]
	if sub.IssueID != "M1-S1" || sub.ParentIssueID != "M1" {
		t.Errorf("sub ids = %q/%q, want M1-S1/M1", sub.IssueID, sub.ParentIssueID)
	}
	if sub.ProjectEstimate != nil {
		t.Errorf("sub ProjectEstimate = %v, want nil", sub.ProjectEstimate)
	}
	if sub.Labels != nil {
		t.Errorf("sub Labels = %v, want nil", sub.Labels)
	}
}

func TestLoadOptionalColumnsAbsent(t *testing.T) {
	input := "account_type,account_name,repo_name,title,body\n" +
		"user,alice,tools,Just a task,Does a thing\n"

	rows, err := Load(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	row := rows[0]
	if row.HasProject() {
		t.Error("HasProject() = true, want false")
	}
	if row.IssueID != "" || row.ParentIssueID != "" {
		t.Errorf("ids = %q/%q, want empty", row.IssueID, row.ParentIssueID)
	}
	if row.Ref() != "row 1" {
		t.Errorf("Ref() = %q, want %q", row.Ref(), "row 1")
	}
}

func TestLoadIgnoresUnrecognizedColumns(t *testing.T) {
	input := "account_type,account_name,repo_name,sprint,title,body\n" +
		"user,alice,tools,S3,Task,Body\n"

	rows, err := Load(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if rows[0].Title != "Task" {
		t.Errorf("Title = %q, want Task", rows[0].Title)
	}
}

func TestLoadMissingRequiredColumns(t *testing.T) {
	input := "account_type,account_name,title\nuser,alice,Task\n"

	_, err := Load(strings.NewReader(input))
	if err == nil {
		t.Fatal("expected error for missing columns, got nil")
	}
	if !strings.Contains(err.Error(), "repo_name") || !strings.Contains(err.Error(), "body") {
		t.Errorf("error %q does not name the missing columns", err)
	}
}

func TestLoadDuplicateColumn(t *testing.T) {
	input := "account_type,account_name,repo_name,title,body,title\nuser,alice,tools,A,B,C\n"

	_, err := Load(strings.NewReader(input))
	if err == nil || !strings.Contains(err.Error(), "duplicate column") {
		t.Errorf("expected duplicate column error, got %v", err)
	}
}

func TestLoadEmptyInput(t *testing.T) {
	_, err := Load(strings.NewReader(""))
	if err == nil || !strings.Contains(err.Error(), "header") {
		t.Errorf("expected missing header error, got %v", err)
	}
}

func TestLoadCollectsAllFieldErrors(t *testing.T) {
	input := strings.Join([]string{
		"account_type,account_name,repo_name,title,body,project_number,project_estimate",
		"machine,acme,backend,Task,Body,7,1.0",
		"user,alice,tools,,Body,zero,abc",
	}, "\n")

	rows, err := Load(strings.NewReader(input))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if rows != nil {
		t.Errorf("rows = %v, want nil on error", rows)
	}

	msg := err.Error()
	for _, want := range []string{"4 invalid field(s)", "row 1, account_type", "row 2, title", "row 2, project_number", "row 2, project_estimate"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error missing %q:\n%s", want, msg)
		}
	}
}

func TestLoadRejectsNonPositiveProjectNumber(t *testing.T) {
	input := "account_type,account_name,repo_name,title,body,project_number\n" +
		"user,alice,tools,Task,Body,0\n"

	_, err := Load(strings.NewReader(input))
	if err == nil || !strings.Contains(err.Error(), "must be positive") {
		t.Errorf("expected positive project_number error, got %v", err)
	}
}

func TestLoadStripsHeaderBOM(t *testing.T) {
	input := "\ufeffaccount_type,account_name,repo_name,title,body\n" +
		"user,alice,tools,Task,Body\n"

	rows, err := Load(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if rows[0].Target.AccountType != AccountUser {
		t.Errorf("AccountType = %q, want user", rows[0].Target.AccountType)
	}
}

func TestSplitLabels(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"one", []string{"one"}},
		{"a, b ,c", []string{"a", "b", "c"}},
		{"a,,b", []string{"a", "b"}},
		{"dup,dup,other", []string{"dup", "other"}},
	}

	for _, tt := range tests {
		if got := SplitLabels(tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitLabels(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestRowMarshalJSON(t *testing.T) {
	n := 3
	row := Row{
		Position: 2,
		Target:   Target{AccountType: AccountUser, Account: "alice", Repo: "tools"},
		Title:    "Task",
		Body:     "Body",
		IssueID:  "M1",

		ProjectNumber: &n,
	}

	data, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded["account_type"] != "user" || decoded["issue_id"] != "M1" {
		t.Errorf("unexpected JSON: %s", data)
	}
	if _, ok := decoded["parent_issue_id"]; ok {
		t.Errorf("empty parent_issue_id should be omitted: %s", data)
	}
	if decoded["project_number"] != float64(3) {
		t.Errorf("project_number = %v, want 3", decoded["project_number"])
	}
}
