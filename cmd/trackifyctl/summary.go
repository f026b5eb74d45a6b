package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"trackify/internal/core"
)

func summaryCmd() *cobra.Command {
	var user, month string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Balances, monthly totals and category breakdowns",
	}
	cmd.PersistentFlags().StringVar(&user, "user", "", "owner email")
	_ = cmd.MarkPersistentFlagRequired("user")

	balance := &cobra.Command{
		Use:   "balance",
		Short: "Total income minus total expense over all time",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, cleanup, err := openServices(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			b, err := svc.Aggregation.TotalBalance(cmd.Context(), user)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]float64{"balance": b})
			}
			fmt.Fprintln(cmd.OutOrStdout(), core.FormatAmount(b))
			return nil
		},
	}

	monthly := &cobra.Command{
		Use:   "month",
		Short: "Income, expense and net for one month",
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

			s, err := svc.Aggregation.MonthlySummary(cmd.Context(), user, ym)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"month":   s.Month,
					"income":  s.Income,
					"expense": s.Expense,
					"net":     s.Net(),
				})
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "month\t%s\n", s.Month)
			fmt.Fprintf(tw, "income\t%s\n", core.FormatAmount(s.Income))
			fmt.Fprintf(tw, "expense\t%s\n", core.FormatAmount(s.Expense))
			fmt.Fprintf(tw, "net\t%s\n", core.FormatAmount(s.Net()))
			return tw.Flush()
		},
	}
	monthly.Flags().StringVar(&month, "month", "", "YYYY-MM (default: current month)")

	categories := &cobra.Command{
		Use:   "categories",
		Short: "Expense totals per category for one month",
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

			cats, err := svc.Aggregation.MonthlyCategoryBreakdown(cmd.Context(), user, ym)
			if err != nil {
				return err
			}
			if jsonOutput {
				out := make([]map[string]any, 0, len(cats))
				for _, c := range cats {
					out = append(out, map[string]any{"category": c.Name, "amount": c.Amount})
				}
				return printJSON(cmd.OutOrStdout(), out)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, c := range cats {
				fmt.Fprintf(tw, "%s\t%s\n", c.Name, core.FormatAmount(c.Amount))
			}
			return tw.Flush()
		},
	}
	categories.Flags().StringVar(&month, "month", "", "YYYY-MM (default: current month)")

	cmd.AddCommand(balance, monthly, categories)
	return cmd
}
