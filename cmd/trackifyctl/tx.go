package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"trackify/internal/core"
)

type txFlags struct {
	kind     string
	category string
	amount   string
	date     string
	note     string
}

func (f *txFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.kind, "type", "", "Income or Expense")
	cmd.Flags().StringVar(&f.category, "category", "", "category within the type's list")
	cmd.Flags().StringVar(&f.amount, "amount", "", "positive amount, e.g. 12.50")
	cmd.Flags().StringVar(&f.date, "date", "", "YYYY-MM-DD")
	cmd.Flags().StringVar(&f.note, "note", "", "free-form note")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("amount")
}

// transaction validates the flags; defaultDate is used when --date is absent.
func (f *txFlags) transaction(defaultDate core.Date) (core.Transaction, error) {
	class, err := core.ParseClassification(f.kind, f.category)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(f.amount)
	if err != nil {
		return core.Transaction{}, err
	}
	date := defaultDate
	if f.date != "" {
		if date, err = core.ParseDate(f.date); err != nil {
			return core.Transaction{}, err
		}
	}
	return core.Transaction{Class: class, Amount: amount, Date: date, Note: f.note}, nil
}

func txCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transaction"},
		Short:   "Record, edit and list transactions",
	}

	cmd.AddCommand(txAddCmd())
	cmd.AddCommand(txUpdateCmd())
	cmd.AddCommand(txDeleteCmd())
	cmd.AddCommand(txShowCmd())
	cmd.AddCommand(txListCmd())
	cmd.AddCommand(txRecentCmd())

	return cmd
}

func txAddCmd() *cobra.Command {
	var (
		user  string
		flags txFlags
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tx, err := flags.transaction(core.DateOf(time.Now()))
			if err != nil {
				return err
			}
			tx.UserEmail = user

			svc, cleanup, err := openServices(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := svc.Transactions.Insert(cmd.Context(), tx)
			if err != nil {
				return err
			}
			tx.ID = id
			return printTransactions(cmd.OutOrStdout(), []core.Transaction{tx})
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "owner email")
	_ = cmd.MarkFlagRequired("user")
	flags.register(cmd)
	return cmd
}

func txUpdateCmd() *cobra.Command {
	var (
		owner string
		flags txFlags
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a transaction; owner and date are kept unless --user or --date is given",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			svc, cleanup, err := openServices(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			current, err := svc.Transactions.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			if flags.date == "" {
				if _, err := current.Date.Time(); err != nil {
					return err
				}
			}
			tx, err := flags.transaction(current.Date)
			if err != nil {
				return err
			}
			tx.UserEmail = current.UserEmail
			if owner != "" {
				tx.UserEmail = owner
			}
			if err := svc.Transactions.Update(cmd.Context(), id, tx); err != nil {
				return err
			}

			updated, err := svc.Transactions.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printTransactions(cmd.OutOrStdout(), []core.Transaction{updated})
		},
	}

	cmd.Flags().StringVar(&owner, "user", "", "new owner email")
	flags.register(cmd)
	return cmd
}

func txDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			svc, cleanup, err := openServices(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.Transactions.Delete(cmd.Context(), id); err != nil {
				return err
			}
			if !jsonOutput {
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d\n", id)
			}
			return nil
		},
	}
}

func txShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			svc, cleanup, err := openServices(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			tx, err := svc.Transactions.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printTransactions(cmd.OutOrStdout(), []core.Transaction{tx})
		},
	}
}

func txListCmd() *cobra.Command {
	var user, month string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's transactions for one month, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ym, err := monthFlag(month)
			if err != nil {
				return err
			}

			svc, cleanup, err := openServices(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			txs, err := svc.Transactions.ListByMonth(cmd.Context(), user, ym)
			if err != nil {
				return err
			}
			return printTransactions(cmd.OutOrStdout(), txs)
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "owner email")
	cmd.Flags().StringVar(&month, "month", "", "YYYY-MM (default: current month)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func txRecentCmd() *cobra.Command {
	var (
		user  string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List a user's newest transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, cleanup, err := openServices(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			txs, err := svc.Transactions.ListRecent(cmd.Context(), user, limit)
			if err != nil {
				return err
			}
			return printTransactions(cmd.OutOrStdout(), txs)
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "owner email")
	cmd.Flags().IntVar(&limit, "limit", 3, "number of transactions")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid transaction id %q", s)
	}
	return id, nil
}

func monthFlag(s string) (core.YearMonth, error) {
	if s == "" {
		return core.MonthOf(time.Now()), nil
	}
	return core.ParseYearMonth(s)
}

type txJSON struct {
	ID       int64   `json:"id"`
	User     string  `json:"user"`
	Type     string  `json:"type"`
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Date     string  `json:"date"`
	Note     string  `json:"note,omitempty"`
}

func printTransactions(w io.Writer, txs []core.Transaction) error {
	if jsonOutput {
		out := make([]txJSON, 0, len(txs))
		for _, tx := range txs {
			out = append(out, txJSON{
				ID:       tx.ID,
				User:     tx.UserEmail,
				Type:     string(tx.Class.Kind()),
				Category: tx.Class.Category(),
				Amount:   tx.Amount,
				Date:     tx.Date.String(),
				Note:     tx.Note,
			})
		}
		return printJSON(w, out)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTYPE\tCATEGORY\tAMOUNT\tNOTE")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			tx.ID, tx.Date, tx.Class.Kind(), tx.Class.Category(), core.FormatAmount(tx.Amount), tx.Note)
	}
	return tw.Flush()
}
