package main

import (
	"fmt"
	"os"

	"github.com/ALT-F4-LLC/stevedore/internal/config"
	"github.com/ALT-F4-LLC/stevedore/internal/journal"
	"github.com/ALT-F4-LLC/stevedore/internal/output"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:         "init",
	Short:       "Initialize a new stevedore journal",
	Annotations: map[string]string{"skipJournal": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		cfg := getCfg(cmd)

		exists, err := cfg.Exists()
		if err != nil {
			return cmdErr(fmt.Errorf("checking journal: %w", err), output.ErrGeneral)
		}

		if exists {
			w.Warn("Journal already exists at %s", cfg.DBPath)

			conn, err := journal.Open(cfg.DBPath)
			if err != nil {
				return cmdErr(fmt.Errorf("opening journal: %w", err), output.ErrGeneral)
			}
			defer conn.Close()

			schemaVersion, err := journal.SchemaVersion(conn)
			if err != nil {
				return cmdErr(fmt.Errorf("reading schema version: %w", err), output.ErrGeneral)
			}

			w.Success(struct {
				Path          string `json:"path"`
				DBPath        string `json:"db_path"`
				SchemaVersion int    `json:"schema_version"`
				Created       bool   `json:"created"`
			}{
				Path:          cfg.StevedoreDir,
				DBPath:        cfg.DBPath,
				SchemaVersion: schemaVersion,
				Created:       false,
			}, "Journal already initialized")

			return nil
		}

		if err := os.MkdirAll(cfg.StevedoreDir, 0o755); err != nil {
			return cmdErr(fmt.Errorf("creating directory: %w", err), output.ErrGeneral)
		}

		conn, err := journal.Open(cfg.DBPath)
		if err != nil {
			return cmdErr(fmt.Errorf("opening journal: %w", err), output.ErrGeneral)
		}
		defer conn.Close()

		if err := journal.Initialize(conn); err != nil {
			return cmdErr(fmt.Errorf("initializing schema: %w", err), output.ErrGeneral)
		}

		if err := journal.Migrate(conn); err != nil {
			return cmdErr(fmt.Errorf("migrating schema: %w", err), output.ErrGeneral)
		}

		schemaVersion, err := journal.SchemaVersion(conn)
		if err != nil {
			return cmdErr(fmt.Errorf("reading schema version: %w", err), output.ErrGeneral)
		}

		if _, err := os.Stat(cfg.SettingsPath); os.IsNotExist(err) {
			if err := cfg.SaveSettings(config.DefaultSettings()); err != nil {
				return cmdErr(fmt.Errorf("writing settings: %w", err), output.ErrGeneral)
			}
		}

		w.Success(struct {
			Path          string `json:"path"`
			DBPath        string `json:"db_path"`
			SchemaVersion int    `json:"schema_version"`
			Created       bool   `json:"created"`
		}{
			Path:          cfg.StevedoreDir,
			DBPath:        cfg.DBPath,
			SchemaVersion: schemaVersion,
			Created:       true,
		}, "Initialized stevedore journal")

		w.Info("Initialized stevedore journal at %s", cfg.DBPath)
		w.Info("Consider adding .stevedore/ to your .gitignore")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
