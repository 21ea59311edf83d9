package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
)

func settingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "settings",
		Aliases: []string{"setting", "config"},
		Short:   "View and change application settings",
	}

	cmd.AddCommand(listSettingsCmd(a))
	cmd.AddCommand(getSettingCmd(a))
	cmd.AddCommand(setSettingCmd(a))
	cmd.AddCommand(deleteSettingCmd(a))

	return cmd
}

func listSettingsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every stored setting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			settings, err := store.Settings.GetAll(ctx)
			if err != nil {
				return err
			}

			keys := make([]string, 0, len(settings))
			for key := range settings {
				keys = append(keys, key)
			}
			sort.Strings(keys)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\n", cli.HeaderStyle.Render("Key"), cli.HeaderStyle.Render("Value"))
			for _, key := range keys {
				fmt.Fprintf(w, "%s\t%s\n", key, settings[key])
			}
			return w.Flush()
		},
	}
}

func getSettingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			value, ok, err := store.Settings.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return common.NewUserError(fmt.Sprintf("Setting %q is not set", args[0]), nil)
			}

			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
}

func setSettingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			if err := store.Settings.Set(ctx, args[0], args[1]); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s = %s", args[0], args[1])))
			return nil
		},
	}
}

func deleteSettingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Remove a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			if err := store.Settings.Delete(ctx, args[0]); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted setting %s", args[0])))
			return nil
		},
	}
}
