package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveUsesEnvPath(t *testing.T) {
	t.Setenv("STEVEDORE_PATH", "/tmp/custom-stevedore")

	cfg, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if cfg.StevedoreDir != "/tmp/custom-stevedore" {
		t.Errorf("StevedoreDir = %q, want /tmp/custom-stevedore", cfg.StevedoreDir)
	}
	if cfg.DBPath != filepath.Join("/tmp/custom-stevedore", "journal.db") {
		t.Errorf("DBPath = %q, want journal.db under env path", cfg.DBPath)
	}
	if cfg.SettingsPath != filepath.Join("/tmp/custom-stevedore", "config.yaml") {
		t.Errorf("SettingsPath = %q, want config.yaml under env path", cfg.SettingsPath)
	}
	if !cfg.EnvVarSet {
		t.Error("EnvVarSet = false, want true")
	}
}

func TestResolveDefaultsToCwd(t *testing.T) {
	t.Setenv("STEVEDORE_PATH", "")

	cfg, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if !strings.HasSuffix(cfg.StevedoreDir, ".stevedore") {
		t.Errorf("StevedoreDir = %q, want .stevedore under cwd", cfg.StevedoreDir)
	}
	if cfg.EnvVarSet {
		t.Error("EnvVarSet = true, want false")
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STEVEDORE_PATH", dir)

	cfg, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	ok, err := cfg.Exists()
	if err != nil {
		t.Fatalf("Exists() failed: %v", err)
	}
	if ok {
		t.Error("Exists() = true before journal created, want false")
	}

	if err := os.WriteFile(cfg.DBPath, []byte{}, 0o644); err != nil {
		t.Fatalf("creating journal file: %v", err)
	}

	ok, err = cfg.Exists()
	if err != nil {
		t.Fatalf("Exists() failed: %v", err)
	}
	if !ok {
		t.Error("Exists() = false after journal created, want true")
	}
}

func TestLoadSettingsDefaultsWhenAbsent(t *testing.T) {
	t.Setenv("STEVEDORE_PATH", t.TempDir())

	cfg, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	s, err := cfg.LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings() failed: %v", err)
	}
	if s.ExternalIDField != DefaultExternalIDField {
		t.Errorf("ExternalIDField = %q, want %q", s.ExternalIDField, DefaultExternalIDField)
	}
	if s.EstimateField != DefaultEstimateField {
		t.Errorf("EstimateField = %q, want %q", s.EstimateField, DefaultEstimateField)
	}
	if s.APIURL != "" || s.GraphQLURL != "" || s.MaxRetries != 0 {
		t.Errorf("unexpected non-defaults: %+v", s)
	}
}

func TestLoadSettingsFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STEVEDORE_PATH", dir)

	content := `external_id_field: TaskKey
estimate_field: Days
api_url: https://github.example.com/api/v3/
graphql_url: https://github.example.com/api/graphql
max_retries: 5
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("writing config.yaml: %v", err)
	}

	cfg, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	s, err := cfg.LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings() failed: %v", err)
	}
	if s.ExternalIDField != "TaskKey" || s.EstimateField != "Days" {
		t.Errorf("fields = %q/%q, want TaskKey/Days", s.ExternalIDField, s.EstimateField)
	}
	if s.APIURL != "https://github.example.com/api/v3/" {
		t.Errorf("APIURL = %q", s.APIURL)
	}
	if s.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", s.MaxRetries)
	}
}

func TestLoadSettingsExplicitEmptyDisablesField(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STEVEDORE_PATH", dir)

	content := `external_id_field: ""` + "\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("writing config.yaml: %v", err)
	}

	cfg, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	s, err := cfg.LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings() failed: %v", err)
	}
	if s.ExternalIDField != "" {
		t.Errorf("ExternalIDField = %q, want empty (explicitly disabled)", s.ExternalIDField)
	}
	if s.EstimateField != DefaultEstimateField {
		t.Errorf("EstimateField = %q, want default kept", s.EstimateField)
	}
}

func TestWithEnvOverridesEndpoints(t *testing.T) {
	t.Setenv("GITHUB_API_URL", "http://127.0.0.1:8080/")
	t.Setenv("GITHUB_GRAPHQL_URL", "http://127.0.0.1:8080/graphql")

	s := Settings{APIURL: "https://github.example.com/api/v3/"}.WithEnvOverrides()
	if s.APIURL != "http://127.0.0.1:8080/" {
		t.Errorf("APIURL = %q, want env override", s.APIURL)
	}
	if s.GraphQLURL != "http://127.0.0.1:8080/graphql" {
		t.Errorf("GraphQLURL = %q, want env override", s.GraphQLURL)
	}
}

func TestWithEnvOverridesKeepsFileValues(t *testing.T) {
	t.Setenv("GITHUB_API_URL", "")
	t.Setenv("GITHUB_GRAPHQL_URL", "")

	s := Settings{APIURL: "https://github.example.com/api/v3/"}.WithEnvOverrides()
	if s.APIURL != "https://github.example.com/api/v3/" {
		t.Errorf("APIURL = %q, want file value kept", s.APIURL)
	}
}

func TestSaveSettingsRoundTrip(t *testing.T) {
	t.Setenv("STEVEDORE_PATH", t.TempDir())

	cfg, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	want := Settings{
		ExternalIDField: "Key",
		EstimateField:   "Effort",
		MaxRetries:      4,
	}
	if err := cfg.SaveSettings(want); err != nil {
		t.Fatalf("SaveSettings() failed: %v", err)
	}

	got, err := cfg.LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings() failed: %v", err)
	}
	if got != want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestTokenPrecedence(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "primary")
	t.Setenv("GH_TOKEN", "fallback")
	if tok := Token(); tok != "primary" {
		t.Errorf("Token() = %q, want primary", tok)
	}

	t.Setenv("GITHUB_TOKEN", "")
	if tok := Token(); tok != "fallback" {
		t.Errorf("Token() = %q, want fallback", tok)
	}

	t.Setenv("GH_TOKEN", "")
	if tok := Token(); tok != "" {
		t.Errorf("Token() = %q, want empty", tok)
	}
}
