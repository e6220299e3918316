package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/core"
	"fintrack/internal/export"
	"fintrack/internal/ledger"
	"fintrack/internal/services"
)

func newExportCommand(open LedgerOpener) *cobra.Command {
	var month, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the ledger as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := export.ParseScope(month)
			if err != nil {
				return err
			}
			return withLedger(cmd, open, func(ctx context.Context, svc *services.LedgerService) error {
				w := cmd.OutOrStdout()
				if out != "" {
					f, err := os.Create(out)
					if err != nil {
						return fmt.Errorf("creating %s: %w", out, err)
					}
					defer f.Close()
					w = f
				}
				n, err := svc.Export(ctx, w, scope)
				if err != nil {
					return err
				}
				if out != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d transactions (%s) to %s\n", n, scope, out)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&month, "month", "all", "month to export (YYYY-MM) or all")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newRecurringCommand(open LedgerOpener) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "Materialize the recurring entries of a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd, open, func(ctx context.Context, svc *services.LedgerService) error {
				m, err := monthFlag(svc, month)
				if err != nil {
					return err
				}
				n, err := svc.EnsureRecurring(ctx, m)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d recurring entries added\n", m, n)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "month to materialize (default current)")
	return cmd
}

func newUtilizationCommand(open LedgerOpener) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "utilization",
		Short: "Print card balances and limit utilization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd, open, func(ctx context.Context, svc *services.LedgerService) error {
				m, err := monthFlag(svc, month)
				if err != nil {
					return err
				}
				rows, err := svc.Utilization(ctx, m, svc.Today())
				if err != nil {
					return err
				}
				writeUtilization(cmd.OutOrStdout(), rows)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "month to report (default current)")
	return cmd
}

func writeUtilization(w io.Writer, rows []ledger.Utilization) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACCOUNT\tBILL DATE\tBALANCE\tLIMIT\tUTIL\tSAFE TO SPEND\tSTATUS")
	for _, u := range rows {
		limit, pct, safe := "-", "-", "-"
		if u.Limit.IsPositive() {
			limit = core.FormatMoney(u.Limit)
		}
		if u.UtilPct.Valid {
			pct = u.UtilPct.Decimal.StringFixed(1) + "%"
		}
		if u.SafeToSpend.Valid {
			safe = core.FormatMoney(u.SafeToSpend.Decimal)
		}
		fmt.Fprintf(tw, "%s %s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			u.Emoji, u.Account, u.BillDate.Format(time.DateOnly),
			core.FormatMoney(u.Closing), limit, pct, safe, u.Status)
	}
	_ = tw.Flush()
}

func newMerchantCommand(open LedgerOpener) *cobra.Command {
	var classify bool

	cmd := &cobra.Command{
		Use:   "merchant <text>",
		Short: "Show the merchant key of a description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ledger.MerchantKey(args[0])
			if key == "" {
				return fmt.Errorf("no merchant key in %q", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "key: %s\nnickname: %s\n", key, ledger.Title(key))
			if !classify {
				return nil
			}
			return withLedger(cmd, open, func(ctx context.Context, svc *services.LedgerService) error {
				cfg, err := svc.Admin(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "category: %s\n", ledger.Classify(args[0], cfg.Rules))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&classify, "classify", false, "also classify the text with the ledger's rules")
	return cmd
}
