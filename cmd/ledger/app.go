package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/config"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/storage"
)

// app carries the configuration shared by every command.
type app struct {
	v       *viper.Viper
	cfg     *config.Config
	cfgFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "📒 Personal finance ledger",
		Long: `ledger manages the on-device finance database: transactions, categories,
budgets and settings, stored in a single SQLite file.`,
		PersistentPreRunE: a.initConfig,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: $HOME/.config/ledger/config.yaml)")
	flags.String("db", "", "database path (default: "+config.DefaultDatabasePath+")")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")

	_ = a.v.BindPFlag(config.KeyDatabasePath, flags.Lookup("db"))
	_ = a.v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = a.v.BindPFlag(config.KeyLogFormat, flags.Lookup("log-format"))

	cmd.AddCommand(initCmd(a))
	cmd.AddCommand(migrateCmd(a))
	cmd.AddCommand(resetCmd(a))
	cmd.AddCommand(categoriesCmd(a))
	cmd.AddCommand(transactionsCmd(a))
	cmd.AddCommand(budgetsCmd(a))
	cmd.AddCommand(settingsCmd(a))
	cmd.AddCommand(versionCmd())

	return cmd
}

func (a *app) initConfig(_ *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}

	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level, err := common.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if err := common.SetupLogger(level, cfg.LogFormat); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	return nil
}

// openStorage opens and initializes the configured database. Callers must
// Shutdown the result.
func (a *app) openStorage(ctx context.Context) (*storage.Storage, error) {
	store := storage.New(a.cfg.DatabasePath)
	if err := store.Initialize(ctx); err != nil {
		_ = store.Shutdown()
		return nil, err
	}
	return store, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "ledger %s (schema v%d)\n", version, storage.CurrentSchemaVersion)
			return err
		},
	}
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, common.NewUserError(fmt.Sprintf("Invalid %s ID %q", what, arg), err)
	}
	return id, nil
}

// resolveCategory accepts a numeric ID or a category name.
func resolveCategory(ctx context.Context, store *storage.Storage, ref string) (int64, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		cat, err := store.Categories.GetByID(ctx, id)
		if err != nil {
			return 0, err
		}
		return cat.ID, nil
	}

	cat, err := store.Categories.GetByName(ctx, ref)
	if err != nil {
		return 0, err
	}
	if cat == nil {
		return 0, common.NewUserError(fmt.Sprintf("Category %q not found", ref), nil)
	}
	return cat.ID, nil
}

// monthBounds returns the first and last day of the month containing t.
func monthBounds(t time.Time) (string, string) {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1)
	return first.Format(model.DateLayout), last.Format(model.DateLayout)
}

// windowFlags fills empty --from/--to values with the current month.
func windowFlags(from, to string) (string, string) {
	start, end := monthBounds(time.Now())
	if from == "" {
		from = start
	}
	if to == "" {
		to = end
	}
	return from, to
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
