package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"borneo/internal/config"
	"borneo/internal/database"
	contextutils "borneo/internal/utils"

	"github.com/spf13/cobra"
)

// resetTables are emptied by "db reset", children first
var resetTables = []string{"translation_history", "dictionary_uploads", "dictionary_entries", "api_credentials"}

// DatabaseCommands returns the postgres management commands
func DatabaseCommands(env *Env) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
		Long: `Database management commands for the postgres storage backend.

Available commands:
  migrations - List the embedded migrations
  migrate    - Apply pending migrations
  reset      - Delete all dictionary, history and credential rows`,
	}

	dbCmd.AddCommand(&cobra.Command{
		Use:   "migrations",
		Short: "List the embedded migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			files, err := database.MigrationFiles()
			if err != nil {
				return contextutils.WrapError(err, "failed to list migrations")
			}
			for _, f := range files {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	})
	dbCmd.AddCommand(migrateCmd(env))
	dbCmd.AddCommand(resetCmd(env))
	return dbCmd
}

func requirePostgres(cfg *config.Config) error {
	if cfg.Storage.Backend != config.StorageBackendPostgres {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput,
			"storage backend is %q, database commands need %q", cfg.Storage.Backend, config.StorageBackendPostgres)
	}
	if cfg.Database.URL == "" {
		return contextutils.WrapError(contextutils.ErrMissingRequired, "database url is empty")
	}
	return nil
}

func migrateCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requirePostgres(env.cfg); err != nil {
				return err
			}
			manager := database.NewManager(env.logger)
			db, err := manager.InitDBWithoutMigrations(env.cfg.Database)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := manager.RunMigrations(db); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	}
}

func resetCmd(env *Env) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all stored rows",
		Long: `Delete every dictionary entry, upload record, history item and API key.

This permanently deletes data. Use --yes to skip the confirmation prompt.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requirePostgres(env.cfg); err != nil {
				return err
			}
			if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Are you sure you want to reset the database? (type 'yes' to confirm): ") {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Reset cancelled.")
				return nil
			}

			manager := database.NewManager(env.logger)
			db, err := manager.InitDB(env.cfg.Database)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			ctx := cmd.Context()
			for _, table := range resetTables {
				if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
					return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to empty %s: %v", table, err)
				}
			}
			env.logger.Info(ctx, "Database reset", map[string]interface{}{"tables": resetTables})
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Database reset")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")
	return cmd
}

// confirm asks until the answer is yes or no. EOF counts as no.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	reader := bufio.NewReader(in)
	for {
		_, _ = fmt.Fprint(out, prompt)
		response, err := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		switch {
		case response == "yes":
			return true
		case response == "no" || response == "" || err != nil:
			return false
		default:
			_, _ = fmt.Fprintln(out, "Please type 'yes' to confirm or 'no' to cancel.")
		}
	}
}
