package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/model"
)

func budgetsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "budgets",
		Aliases: []string{"budget"},
		Short:   "Manage budgets",
		Long:    `Set spending limits per category and track progress against them.`,
	}

	cmd.AddCommand(listBudgetsCmd(a))
	cmd.AddCommand(activeBudgetsCmd(a))
	cmd.AddCommand(addBudgetCmd(a))
	cmd.AddCommand(updateBudgetCmd(a))
	cmd.AddCommand(deleteBudgetCmd(a))
	cmd.AddCommand(progressCmd(a))

	return cmd
}

func writeBudgets(out io.Writer, budgets []model.Budget) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		cli.HeaderStyle.Render("ID"),
		cli.HeaderStyle.Render("Category"),
		cli.HeaderStyle.Render("Amount"),
		cli.HeaderStyle.Render("Period"),
		cli.HeaderStyle.Render("Start"),
		cli.HeaderStyle.Render("End"))
	for _, b := range budgets {
		end := ""
		if b.EndDate != nil {
			end = *b.EndDate
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			b.ID, b.CategoryName, b.Amount.StringFixed(2), b.Period, b.StartDate, orDash(end))
	}
	return w.Flush()
}

func listBudgetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all budgets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			budgets, err := store.Budgets.GetAll(ctx)
			if err != nil {
				return fmt.Errorf("failed to get budgets: %w", err)
			}

			if len(budgets) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.InfoStyle.Render("No budgets found. Use 'ledger budgets add' to create one."))
				return nil
			}
			return writeBudgets(cmd.OutOrStdout(), budgets)
		},
	}
}

func activeBudgetsCmd(a *app) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "active",
		Short: "List budgets in effect on a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			budgets, err := store.Budgets.GetActive(ctx, date)
			if err != nil {
				return err
			}

			if len(budgets) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.InfoStyle.Render("No active budgets."))
				return nil
			}
			return writeBudgets(cmd.OutOrStdout(), budgets)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Date to check (YYYY-MM-DD, default today)")

	return cmd
}

func addBudgetCmd(a *app) *cobra.Command {
	var period, start, end string

	cmd := &cobra.Command{
		Use:   "add <category> <amount>",
		Short: "Create a budget for a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := a.openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			categoryID, err := resolveCategory(ctx, store, args[0])
			if err != nil {
				return err
			}

			if start == "" {
				start, _ = monthBounds(time.Now())
			}
			in := model.BudgetInput{
				CategoryID: categoryID,
				Amount:     amount,
				Period:     model.BudgetPeriod(period),
				StartDate:  start,
			}
			if end != "" {
				in.EndDate = &end
			}

			budget, err := store.Budgets.Create(ctx, in)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created %s budget %d for %s: %s",
				budget.Period, budget.ID, budget.CategoryName, budget.Amount.StringFixed(2))))
			return nil
		},
	}

	cmd.Flags().StringVar(&period, "period", string(model.BudgetPeriodMonthly), "monthly or weekly")
	cmd.Flags().StringVar(&start, "start", "", "Start date (YYYY-MM-DD, default first of this month)")
	cmd.Flags().StringVar(&end, "end", "", "End date (YYYY-MM-DD, default open-ended)")

	return cmd
}

func updateBudgetCmd(a *app) *cobra.Command {
	var (
		category, amount, period, start, end string
		clearEnd                             bool
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "budget")
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			upd := model.BudgetUpdate{ClearEndDate: clearEnd}
			if flags.Changed("amount") {
				value, err := parseAmount(amount)
				if err != nil {
					return err
				}
				upd.Amount = &value
			}
			if flags.Changed("period") {
				p := model.BudgetPeriod(period)
				upd.Period = &p
			}
			if flags.Changed("start") {
				upd.StartDate = &start
			}
			if flags.Changed("end") {
				upd.EndDate = &end
			}

			ctx := cmd.Context()
			store, err := a.openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			if flags.Changed("category") {
				categoryID, err := resolveCategory(ctx, store, category)
				if err != nil {
					return err
				}
				upd.CategoryID = &categoryID
			}

			budget, err := store.Budgets.Update(ctx, id, upd)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Updated budget %d", budget.ID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "New category name or ID")
	cmd.Flags().StringVar(&amount, "amount", "", "New limit")
	cmd.Flags().StringVar(&period, "period", "", "monthly or weekly")
	cmd.Flags().StringVar(&start, "start", "", "New start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "New end date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&clearEnd, "clear-end", false, "Make the budget open-ended")

	return cmd
}

func deleteBudgetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "budget")
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := a.openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			if err := store.Budgets.Delete(ctx, id); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted budget %d", id)))
			return nil
		},
	}
}

func progressCmd(a *app) *cobra.Command {
	var from, to, date string

	cmd := &cobra.Command{
		Use:   "progress [id]",
		Short: "Show spending against budgets",
		Long: `Without an ID, show progress for every budget active on --date (default today)
over the current month. With an ID, show one budget over --from/--to.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			var progress []model.BudgetProgress
			if len(args) == 1 {
				id, err := parseID(args[0], "budget")
				if err != nil {
					return err
				}
				p, err := store.Budgets.GetProgress(ctx, id, from, to)
				if err != nil {
					return err
				}
				progress = append(progress, *p)
			} else {
				progress, err = store.Budgets.GetActiveProgress(ctx, date)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if len(progress) == 0 {
				fmt.Fprintln(out, cli.InfoStyle.Render("No active budgets."))
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				cli.HeaderStyle.Render("ID"),
				cli.HeaderStyle.Render("Category"),
				cli.HeaderStyle.Render("Window"),
				cli.HeaderStyle.Render("Spent"),
				cli.HeaderStyle.Render("Limit"),
				cli.HeaderStyle.Render("Used"),
				cli.HeaderStyle.Render("Status"))
			for _, p := range progress {
				fmt.Fprintf(w, "%d\t%s\t%s..%s\t%s\t%s\t%s%%\t%s\n",
					p.Budget.ID, p.Budget.CategoryName, p.PeriodStart, p.PeriodEnd,
					p.Spent.StringFixed(2), p.Budget.Amount.StringFixed(2),
					p.Percentage.StringFixed(1), cli.FormatStatus(p.Status))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Window start for a single budget (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Window end for a single budget (YYYY-MM-DD)")
	cmd.Flags().StringVar(&date, "date", "", "Date active budgets are checked on (YYYY-MM-DD)")

	return cmd
}
