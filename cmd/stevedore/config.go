package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ALT-F4-LLC/stevedore/internal/config"
	"github.com/ALT-F4-LLC/stevedore/internal/journal"
	"github.com/ALT-F4-LLC/stevedore/internal/output"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type configInfo struct {
	JournalPath      string `json:"journal_path"`
	JournalSizeBytes int64  `json:"journal_size_bytes"`
	SchemaVersion    int    `json:"schema_version"`
	SettingsPath     string `json:"settings_path"`
	ExternalIDField  string `json:"external_id_field"`
	EstimateField    string `json:"estimate_field"`
	APIURL           string `json:"api_url,omitempty"`
	GraphQLURL       string `json:"graphql_url,omitempty"`
	MaxRetries       int    `json:"max_retries"`
	StevedorePathEnv string `json:"stevedore_path_env"`
	StevedorePathSet bool   `json:"stevedore_path_set"`
	TokenSet         bool   `json:"token_set"`
}

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Display stevedore configuration",
	Annotations: map[string]string{"skipJournal": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		cfg := getCfg(cmd)

		settings, err := cfg.LoadSettings()
		if err != nil {
			return cmdErr(err, output.ErrGeneral)
		}
		settings = settings.WithEnvOverrides()

		info := configInfo{
			JournalPath:      cfg.DBPath,
			SettingsPath:     cfg.SettingsPath,
			ExternalIDField:  settings.ExternalIDField,
			EstimateField:    settings.EstimateField,
			APIURL:           settings.APIURL,
			GraphQLURL:       settings.GraphQLURL,
			MaxRetries:       settings.MaxRetries,
			StevedorePathEnv: os.Getenv("STEVEDORE_PATH"),
			StevedorePathSet: cfg.EnvVarSet,
			TokenSet:         config.Token() != "",
		}

		exists, err := cfg.Exists()
		if err != nil {
			return cmdErr(fmt.Errorf("checking journal: %w", err), output.ErrGeneral)
		}

		if !exists {
			w.Warn("No stevedore journal found. Run 'stevedore init' to create one.")
			w.Success(info, formatConfigHuman(info, true))
			return nil
		}

		conn, err := journal.Open(cfg.DBPath)
		if err != nil {
			return cmdErr(fmt.Errorf("opening journal: %w", err), output.ErrGeneral)
		}
		defer conn.Close()

		schemaVersion, err := journal.SchemaVersion(conn)
		if err != nil {
			return cmdErr(fmt.Errorf("reading schema version: %w", err), output.ErrGeneral)
		}
		info.SchemaVersion = schemaVersion

		stat, err := os.Stat(cfg.DBPath)
		if err != nil {
			return cmdErr(fmt.Errorf("reading journal file: %w", err), output.ErrGeneral)
		}
		info.JournalSizeBytes = stat.Size()

		w.Success(info, formatConfigHuman(info, false))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:         "set <key> <value>",
	Short:       "Update one settings key in config.yaml",
	Annotations: map[string]string{"skipJournal": "true"},
	Args:        cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		cfg := getCfg(cmd)

		settings, err := cfg.LoadSettings()
		if err != nil {
			return cmdErr(err, output.ErrGeneral)
		}

		key, value := args[0], args[1]
		switch key {
		case "external_id_field":
			settings.ExternalIDField = value
		case "estimate_field":
			settings.EstimateField = value
		case "api_url":
			settings.APIURL = value
		case "graphql_url":
			settings.GraphQLURL = value
		case "max_retries":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return cmdErr(
					fmt.Errorf("max_retries must be a non-negative integer, got %q", value),
					output.ErrValidation,
				)
			}
			settings.MaxRetries = n
		default:
			return cmdErr(fmt.Errorf("unknown settings key %q", key), output.ErrValidation)
		}

		if err := os.MkdirAll(cfg.StevedoreDir, 0o755); err != nil {
			return cmdErr(fmt.Errorf("creating directory: %w", err), output.ErrGeneral)
		}
		if err := cfg.SaveSettings(settings); err != nil {
			return cmdErr(err, output.ErrGeneral)
		}

		w.Success(struct {
			Key   string `json:"key"`
			Value string `json:"value"`
			Path  string `json:"path"`
		}{
			Key:   key,
			Value: value,
			Path:  cfg.SettingsPath,
		}, fmt.Sprintf("Set %s to %q", key, value))
		return nil
	},
}

func formatEnvValue(val string) string {
	if val == "" {
		return "(not set)"
	}
	return val
}

func formatFieldValue(val string) string {
	if val == "" {
		return "(disabled)"
	}
	return val
}

func formatEndpoint(val string) string {
	if val == "" {
		return "(default)"
	}
	return val
}

func formatConfigHuman(info configInfo, notFound bool) string {
	journalPath := info.JournalPath
	if notFound {
		journalPath = fmt.Sprintf("%s (not found)", info.JournalPath)
	}

	retries := "(default)"
	if info.MaxRetries > 0 {
		retries = strconv.Itoa(info.MaxRetries)
	}

	token := "(not set)"
	if info.TokenSet {
		token = "set"
	}

	lines := fmt.Sprintf("Journal path:       %s\n", journalPath)
	if !notFound {
		lines += fmt.Sprintf("Journal size:       %s\n", humanize.Bytes(uint64(info.JournalSizeBytes)))
		lines += fmt.Sprintf("Schema version:     %d\n", info.SchemaVersion)
	}
	lines += fmt.Sprintf("Settings path:      %s\n", info.SettingsPath)
	lines += fmt.Sprintf("External id field:  %s\n", formatFieldValue(info.ExternalIDField))
	lines += fmt.Sprintf("Estimate field:     %s\n", formatFieldValue(info.EstimateField))
	lines += fmt.Sprintf("API endpoint:       %s\n", formatEndpoint(info.APIURL))
	lines += fmt.Sprintf("GraphQL endpoint:   %s\n", formatEndpoint(info.GraphQLURL))
	lines += fmt.Sprintf("Max retries:        %s\n", retries)
	lines += fmt.Sprintf("STEVEDORE_PATH:     %s\n", formatEnvValue(info.StevedorePathEnv))
	lines += fmt.Sprintf("GitHub token:       %s", token)

	return lines
}

func init() {
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
