package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
)

func transactionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"txn", "tx"},
		Short:   "Manage transactions",
		Long:    `Record, list, edit and summarize income and expense transactions.`,
	}

	cmd.AddCommand(listTransactionsCmd(a))
	cmd.AddCommand(addTransactionCmd(a))
	cmd.AddCommand(updateTransactionCmd(a))
	cmd.AddCommand(deleteTransactionCmd(a))
	cmd.AddCommand(summaryCmd(a))
	cmd.AddCommand(spendingCmd(a))

	return cmd
}

func parseAmount(arg string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(arg))
	if err != nil {
		return decimal.Zero, common.NewUserError(fmt.Sprintf("Invalid amount %q", arg), err)
	}
	return amount, nil
}

func listTransactionsCmd(a *app) *cobra.Command {
	var (
		from, to, category, txnType string
		limit, offset               int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			filter := model.TransactionFilter{
				StartDate: from,
				EndDate:   to,
				Type:      model.TransactionType(txnType),
				Limit:     limit,
				Offset:    offset,
			}
			if category != "" {
				id, err := resolveCategory(ctx, store, category)
				if err != nil {
					return err
				}
				filter.CategoryID = &id
			}

			txns, err := store.Transactions.GetAll(ctx, filter)
			if err != nil {
				return err
			}
			total, err := store.Transactions.Count(ctx, filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(txns) == 0 {
				fmt.Fprintln(out, cli.InfoStyle.Render("No transactions found."))
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				cli.HeaderStyle.Render("ID"),
				cli.HeaderStyle.Render("Date"),
				cli.HeaderStyle.Render("Amount"),
				cli.HeaderStyle.Render("Category"),
				cli.HeaderStyle.Render("Source"),
				cli.HeaderStyle.Render("Description"))
			for _, txn := range txns {
				categoryName := txn.CategoryName
				if txn.IsUncategorized() {
					categoryName = cli.SubtleStyle.Render("(uncategorized)")
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
					txn.ID, txn.Date, cli.FormatAmount(txn.Amount, txn.Type),
					categoryName, txn.Source, txn.Description)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintln(out, cli.SubtleStyle.Render(fmt.Sprintf("Showing %d of %d", len(txns), total)))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Earliest date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Latest date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&category, "category", "", "Category name or ID")
	cmd.Flags().StringVar(&txnType, "type", "", "income or expense")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum rows (0 for all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Rows to skip")

	return cmd
}

func addTransactionCmd(a *app) *cobra.Command {
	var date, category, txnType, source, raw string

	cmd := &cobra.Command{
		Use:   "add <amount> <description>",
		Short: "Record a transaction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := a.openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			in := model.TransactionInput{
				Amount:        amount,
				Description:   args[1],
				Date:          date,
				Type:          model.TransactionType(txnType),
				Source:        model.TransactionSource(source),
				RawData:       raw,
				IsManuallySet: category != "",
			}
			if category != "" {
				id, err := resolveCategory(ctx, store, category)
				if err != nil {
					return err
				}
				in.CategoryID = &id
			}

			txn, err := store.Transactions.Create(ctx, in)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Recorded transaction %d: %s %s on %s",
				txn.ID, txn.Type, txn.Amount.StringFixed(2), txn.Date)))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&category, "category", "", "Category name or ID")
	cmd.Flags().StringVarP(&txnType, "type", "t", string(model.TransactionTypeExpense), "income or expense")
	cmd.Flags().StringVar(&source, "source", string(model.SourceManual), "manual, sms or upload")
	cmd.Flags().StringVar(&raw, "raw", "", "Original text the transaction came from")

	return cmd
}

func updateTransactionCmd(a *app) *cobra.Command {
	var (
		amount, description, date, category, txnType string
		uncategorize                                 bool
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "transaction")
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			upd := model.TransactionUpdate{ClearCategory: uncategorize}
			if flags.Changed("amount") {
				value, err := parseAmount(amount)
				if err != nil {
					return err
				}
				upd.Amount = &value
			}
			if flags.Changed("description") {
				upd.Description = &description
			}
			if flags.Changed("date") {
				upd.Date = &date
			}
			if flags.Changed("type") {
				t := model.TransactionType(txnType)
				upd.Type = &t
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
				manual := true
				upd.CategoryID = &categoryID
				upd.IsManuallySet = &manual
			}

			txn, err := store.Transactions.Update(ctx, id, upd)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Updated transaction %d", txn.ID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "New amount")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&date, "date", "", "New date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&category, "category", "", "New category name or ID")
	cmd.Flags().StringVar(&txnType, "type", "", "income or expense")
	cmd.Flags().BoolVar(&uncategorize, "uncategorize", false, "Remove the category")

	return cmd
}

func deleteTransactionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "transaction")
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := a.openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			if err := store.Transactions.Delete(ctx, id); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted transaction %d", id)))
			return nil
		},
	}
}

func summaryCmd(a *app) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Total income and expenses for a date window",
		Long:  `Show income, expenses and balance between --from and --to (default: the current month).`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			start, end := windowFlags(from, to)
			summary, err := store.Transactions.GetSummary(ctx, start, end)
			if err != nil {
				return err
			}

			body := fmt.Sprintf("Income:       %s\nExpenses:     %s\nBalance:      %s\nTransactions: %d",
				cli.SuccessStyle.Render(summary.TotalIncome.StringFixed(2)),
				cli.ErrorStyle.Render(summary.TotalExpense.StringFixed(2)),
				summary.Balance.StringFixed(2),
				summary.TotalCount)
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox(start+" → "+end, body))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "End date (YYYY-MM-DD)")

	return cmd
}

func spendingCmd(a *app) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "spending",
		Short: "Expense totals per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			start, end := windowFlags(from, to)
			spending, err := store.Transactions.GetSpendingByCategory(ctx, start, end)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(spending) == 0 {
				fmt.Fprintln(out, cli.InfoStyle.Render(fmt.Sprintf("No expenses between %s and %s.", start, end)))
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				cli.HeaderStyle.Render("Category"),
				cli.HeaderStyle.Render("Total"),
				cli.HeaderStyle.Render("Count"))
			for _, item := range spending {
				name := item.CategoryName
				if item.CategoryID == nil {
					name = "(uncategorized)"
				}
				fmt.Fprintf(w, "%s %s\t%s\t%d\n", cli.FormatSwatch(item.CategoryColor), name, item.Total.StringFixed(2), item.Count)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "End date (YYYY-MM-DD)")

	return cmd
}
