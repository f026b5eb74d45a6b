package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	var user, month string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a user's month to the configured sheet backend",
		Long: `Export writes the month's transactions, summary and category breakdown
through EXPORT_BACKEND (memory or sheets). With EXPORT_BACKEND=none the
command fails.`,
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

			ref, err := svc.Exporter.ExportMonth(cmd.Context(), user, ym)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]string{"month": ym.String(), "ref": ref})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %s to %s\n", ym, ref)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "owner email")
	cmd.Flags().StringVar(&month, "month", "", "YYYY-MM (default: current month)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
