package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	appsync "github.com/nhle/finmail/internal/sync"
	"github.com/nhle/finmail/internal/theme"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan every connected mailbox once",
	RunE: func(cmd *cobra.Command, args []string) error {
		scanner, err := application.Scanner()
		if err != nil {
			return err
		}

		results := scanner.RunOnce(cmd.Context())
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), scanReport(results))
		}

		w := cmd.OutOrStdout()
		if len(results) == 0 {
			fmt.Fprintln(w, theme.Muted.Render("No accounts connected."))
			return nil
		}
		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
				ErrorMsg(w, "%s: %s", r.Email, r.Err)
				continue
			}
			SuccessMsg(w, "%s: %d scanned, %d already seen, %d insight(s)",
				r.Email, r.Scanned, r.Skipped, len(r.Insights))
			for _, in := range r.Insights {
				printInsight(w, in)
			}
		}
		if failed == len(results) {
			return fmt.Errorf("every account failed to scan")
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Scan on the configured schedule until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		scanner, err := application.Scanner()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		err = scanner.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

type scanResult struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Scanned   int    `json:"scanned"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Insights  int    `json:"insights"`
	Error     string `json:"error,omitempty"`
}

func scanReport(results []appsync.Result) []scanResult {
	out := make([]scanResult, 0, len(results))
	for _, r := range results {
		sr := scanResult{
			AccountID: r.AccountID,
			Email:     r.Email,
			Scanned:   r.Scanned,
			Skipped:   r.Skipped,
			Failed:    r.Failed,
			Insights:  len(r.Insights),
		}
		if r.Err != nil {
			sr.Error = r.Err.Error()
		}
		out = append(out, sr)
	}
	return out
}

func init() {
	rootCmd.AddCommand(scanCmd, watchCmd)
}
