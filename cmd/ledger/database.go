package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/storage"
)

func initCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database and seed defaults",
		Long: `Open the database, bring the schema up to date and, on the very first
launch, seed the default categories and settings. Safe to run repeatedly.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store := storage.New(a.cfg.DatabasePath)
			defer func() { _ = store.Shutdown() }()

			first, err := store.Schema.IsFirstLaunch(ctx)
			if err != nil {
				return err
			}
			if err := store.Initialize(ctx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if first {
				fmt.Fprintln(out, cli.FormatSuccess("Created ledger at "+store.Conn.Path()))
			} else {
				fmt.Fprintln(out, cli.FormatInfo("Ledger already initialized at "+store.Conn.Path()))
			}
			return nil
		},
	}
}

func migrateCmd(a *app) *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Bring the database schema up to the latest version.

Use --status to show the current and latest versions without applying changes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			store := storage.New(a.cfg.DatabasePath)
			defer func() { _ = store.Shutdown() }()

			current, err := store.Schema.Version(ctx)
			if err != nil {
				return err
			}

			if status {
				fmt.Fprintln(out, cli.FormatTitle("Database Migration Status"))
				fmt.Fprintf(out, "Database:        %s\n", store.Conn.Path())
				fmt.Fprintf(out, "Current version: %d\n", current)
				fmt.Fprintf(out, "Latest version:  %d\n", storage.CurrentSchemaVersion)
				if current < storage.CurrentSchemaVersion {
					fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("%d migration(s) pending", storage.CurrentSchemaVersion-current)))
				}
				return nil
			}

			slog.Info("Starting database migration", "database", store.Conn.Path(), "from", current)
			if err := store.Schema.RunMigrations(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Database is at schema version %d", storage.CurrentSchemaVersion)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "Show current migration status without applying changes")

	return cmd
}

func resetCmd(a *app) *cobra.Command {
	var (
		yes        bool
		dropTables bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all ledger data",
		Long: `Reset deletes the database file and its journal files. The next command
recreates an empty ledger with default categories and settings.

With --drop-tables the file is kept and every table is dropped instead.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if !yes {
				ok, err := cli.Confirm(ctx, cmd.InOrStdin(), out,
					"This permanently deletes every transaction, budget and setting. Continue?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, "Reset canceled.")
					return nil
				}
			}

			store := storage.New(a.cfg.DatabasePath)
			defer func() { _ = store.Shutdown() }()

			if dropTables {
				if err := store.Schema.DropAllTables(ctx); err != nil {
					return err
				}
				fmt.Fprintln(out, cli.FormatSuccess("Dropped all tables in "+store.Conn.Path()))
				return nil
			}

			if err := store.Conn.Reset(); err != nil {
				return err
			}
			fmt.Fprintln(out, cli.FormatSuccess("Deleted "+store.Conn.Path()))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")
	cmd.Flags().BoolVar(&dropTables, "drop-tables", false, "Drop tables instead of deleting the file")

	return cmd
}
