package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/model"
)

func categoriesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"category", "cat"},
		Short:   "Manage categories",
		Long:    `List, add, update, delete and seed the categories transactions and budgets belong to.`,
	}

	cmd.AddCommand(listCategoriesCmd(a))
	cmd.AddCommand(addCategoryCmd(a))
	cmd.AddCommand(updateCategoryCmd(a))
	cmd.AddCommand(deleteCategoryCmd(a))
	cmd.AddCommand(seedCategoriesCmd(a))

	return cmd
}

func listCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			categories, err := store.Categories.GetAll(ctx)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(categories) == 0 {
				fmt.Fprintln(out, cli.InfoStyle.Render("No categories found. Use 'ledger categories add' to create one."))
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				cli.HeaderStyle.Render("ID"),
				cli.HeaderStyle.Render("Name"),
				cli.HeaderStyle.Render("Icon"),
				cli.HeaderStyle.Render("Color"),
				cli.HeaderStyle.Render("Default"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				strings.Repeat("-", 4),
				strings.Repeat("-", 20),
				strings.Repeat("-", 12),
				strings.Repeat("-", 9),
				strings.Repeat("-", 7))

			for _, cat := range categories {
				def := ""
				if cat.IsDefault {
					def = "yes"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s %s\t%s\n",
					cat.ID, cat.Name, orDash(cat.Icon), cli.FormatSwatch(cat.Color), orDash(cat.Color), def)
			}
			return w.Flush()
		},
	}
}

func addCategoryCmd(a *app) *cobra.Command {
	var icon, color string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			category, err := store.Categories.Create(ctx, model.CategoryInput{
				Name:  args[0],
				Icon:  icon,
				Color: color,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created category %q (ID: %d)", category.Name, category.ID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&icon, "icon", "", "Icon name")
	cmd.Flags().StringVar(&color, "color", "", "Color as #RRGGBB")

	return cmd
}

func updateCategoryCmd(a *app) *cobra.Command {
	var name, icon, color string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a category",
		Long:  `Change the name, icon or color of a category. Pass an empty --icon or --color to clear it.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "category")
			if err != nil {
				return err
			}

			var upd model.CategoryUpdate
			flags := cmd.Flags()
			if flags.Changed("name") {
				upd.Name = &name
			}
			if flags.Changed("icon") {
				upd.Icon = &icon
			}
			if flags.Changed("color") {
				upd.Color = &color
			}
			if upd.Name == nil && upd.Icon == nil && upd.Color == nil {
				return fmt.Errorf("must specify --name, --icon or --color to update")
			}

			ctx := cmd.Context()
			store, err := a.openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			category, err := store.Categories.Update(ctx, id, upd)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Updated category %d: %s", category.ID, category.Name)))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&icon, "icon", "", "New icon")
	cmd.Flags().StringVar(&color, "color", "", "New color as #RRGGBB")

	return cmd
}

func deleteCategoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a category",
		Long:  `Delete a category. Categories still used by transactions or budgets cannot be deleted.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "category")
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := a.openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			if err := store.Categories.Delete(ctx, id); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted category %d", id)))
			return nil
		},
	}
}

func seedCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Restore missing default categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			inserted, err := store.Categories.SeedDefaults(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if inserted == 0 {
				fmt.Fprintln(out, cli.FormatInfo("All default categories are present"))
				return nil
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Added %d default categories", inserted)))
			return nil
		},
	}
}
