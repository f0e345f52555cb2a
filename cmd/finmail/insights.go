package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/finmail/internal/export"
	"github.com/nhle/finmail/internal/model"
	"github.com/nhle/finmail/internal/store"
	"github.com/nhle/finmail/internal/theme"
)

var (
	typeFilter   string
	statusFilter string
	fromFilter   string
	toFilter     string
	limitFilter  int
	formatFlag   string
	outputFlag   string
)

// insightFilter builds a store filter from the shared filter flags.
func insightFilter() (store.InsightFilter, error) {
	var f store.InsightFilter

	if typeFilter != "" {
		t := model.InsightType(typeFilter)
		if !t.Valid() {
			return f, fmt.Errorf("unknown insight type %q", typeFilter)
		}
		f.Type = &t
	}
	if statusFilter != "" {
		s := model.InsightStatus(statusFilter)
		if !s.Valid() {
			return f, fmt.Errorf("unknown status %q", statusFilter)
		}
		f.Status = &s
	}
	if fromFilter != "" {
		from, err := time.ParseInLocation(model.DateLayout, fromFilter, time.Local)
		if err != nil {
			return f, fmt.Errorf("--from: %w", err)
		}
		f.DateFrom = &from
	}
	if toFilter != "" {
		to, err := time.ParseInLocation(model.DateLayout, toFilter, time.Local)
		if err != nil {
			return f, fmt.Errorf("--to: %w", err)
		}
		// Inclusive of the whole day.
		to = to.Add(24*time.Hour - time.Second)
		f.DateTo = &to
	}
	f.Limit = limitFilter
	return f, nil
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&typeFilter, "type", "t", "", "Insight type (bill_due, price_increase, subscription_renewal, payment_confirmation, investment_update)")
	cmd.Flags().StringVarP(&statusFilter, "status", "s", "", "Status (new, pending, paid, overdue)")
	cmd.Flags().StringVar(&fromFilter, "from", "", "Created on or after YYYY-MM-DD")
	cmd.Flags().StringVar(&toFilter, "to", "", "Created on or before YYYY-MM-DD")
}

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "List stored insights, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := insightFilter()
		if err != nil {
			return err
		}
		insights, err := application.Insights(cmd.Context(), filter)
		if err != nil {
			return err
		}

		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), insights)
		}
		w := cmd.OutOrStdout()
		if len(insights) == 0 {
			fmt.Fprintln(w, theme.Muted.Render("No insights found."))
			return nil
		}
		for _, in := range insights {
			printInsight(w, in)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <insight-id> <new|pending|paid|overdue>",
	Short: "Change an insight's status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		status := model.InsightStatus(args[1])
		if err := application.SetInsightStatus(cmd.Context(), args[0], status); err != nil {
			return err
		}
		SuccessMsg(cmd.OutOrStdout(), "Marked %s as %s", args[0], status)
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show bill totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := insightFilter()
		if err != nil {
			return err
		}
		totals, err := application.Summary(cmd.Context(), filter)
		if err != nil {
			return err
		}

		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), totals)
		}
		w := cmd.OutOrStdout()
		Header(w, "Bills")
		fmt.Fprintf(w, "%-32s %s\n", "Total Bills Amount:", theme.Money.Render(totals.TotalBills.Dollars()))
		fmt.Fprintf(w, "%-32s %s\n", "Total Amount Due:", theme.Money.Render(totals.AmountDue.Dollars()))
		fmt.Fprintf(w, "%-32s %s\n", "Upcoming Bills (Next 30 Days):", theme.Money.Render(totals.Upcoming.Dollars()))
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export insights as csv, json or a text report",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(formatFlag)
		if err != nil {
			return err
		}
		filter, err := insightFilter()
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if outputFlag != "" && outputFlag != "-" {
			f, err := os.Create(outputFlag)
			if err != nil {
				return fmt.Errorf("creating %s: %w", outputFlag, err)
			}
			defer f.Close()
			w = f
		}

		if err := application.Export(cmd.Context(), w, format, filter); err != nil {
			return err
		}
		if w != cmd.OutOrStdout() {
			SuccessMsg(cmd.ErrOrStderr(), "Wrote %s", outputFlag)
		}
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{insightsCmd, summaryCmd, exportCmd} {
		addFilterFlags(cmd)
	}
	insightsCmd.Flags().IntVarP(&limitFilter, "limit", "l", 50, "Maximum insights to show (0 for all)")
	exportCmd.Flags().StringVar(&formatFlag, "format", "csv", "csv, json or report")
	exportCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file (default stdout)")

	rootCmd.AddCommand(insightsCmd, statusCmd, summaryCmd, exportCmd)
}
