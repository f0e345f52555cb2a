package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nhle/finmail/internal/classifier"
	"github.com/nhle/finmail/internal/mailbox"
	"github.com/nhle/finmail/internal/theme"
)

var (
	folderFlag   string
	pageFlag     int
	perPageFlag  int
	entitiesFlag bool
	saveFlag     bool
)

var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "List mailbox folders",
	RunE: func(cmd *cobra.Command, args []string) error {
		folders, err := application.Folders(cmd.Context(), accountRef)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), folders)
		}
		for _, f := range folders {
			fmt.Fprintln(cmd.OutOrStdout(), f)
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List messages newest first, one page at a time",
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := application.ListMessages(cmd.Context(), accountRef, folderFlag, pageFlag, perPageFlag)
		if err != nil && !mailbox.IsFolderError(err) {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), page)
		}
		printPage(cmd.OutOrStdout(), page)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <uid>",
	Short: "Show a message by UID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, err := parseUID(args[0])
		if err != nil {
			return err
		}

		detail, err := application.ShowMessage(cmd.Context(), accountRef, folderFlag, uid)
		if err != nil {
			return err
		}

		var entities *classifier.Entities
		if entitiesFlag {
			e := classifier.Extract(detail.Body, detail.IsHTML)
			entities = &e
		}

		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), struct {
				Message  any                  `json:"message"`
				Entities *classifier.Entities `json:"entities,omitempty"`
			}{detail, entities})
		}

		w := cmd.OutOrStdout()
		printDetail(w, detail)
		if entities != nil {
			fmt.Fprintln(w)
			fmt.Fprintln(w, theme.SectionStyle.Render("Entities"))
			for _, d := range entities.Dates {
				fmt.Fprintf(w, "  date    %-24s %s\n", d.Text, d.Value)
			}
			for _, a := range entities.Amounts {
				fmt.Fprintf(w, "  amount  %-24s %s\n", a.Text, a.Value)
			}
			for _, l := range entities.Links {
				fmt.Fprintf(w, "  link    %s\n", l)
			}
		}
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <uid>",
	Short: "Classify one message and print its insights",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, err := parseUID(args[0])
		if err != nil {
			return err
		}

		result, err := application.Analyze(cmd.Context(), accountRef, folderFlag, uid, saveFlag)
		if err != nil {
			return err
		}

		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), result.Insights)
		}

		w := cmd.OutOrStdout()
		Header(w, result.Message.Subject)
		if len(result.Insights) == 0 {
			fmt.Fprintln(w, theme.Muted.Render("No financial signals found."))
			return nil
		}
		for _, in := range result.Insights {
			printInsight(w, in)
		}
		if result.Saved {
			SuccessMsg(w, "Saved %d insight(s)", len(result.Insights))
		} else if saveFlag {
			fmt.Fprintln(w, theme.Muted.Render("Insights for this message were already saved."))
		}
		return nil
	},
}

func parseUID(s string) (uint32, error) {
	uid, err := strconv.ParseUint(s, 10, 32)
	if err != nil || uid == 0 {
		return 0, fmt.Errorf("invalid uid %q", s)
	}
	return uint32(uid), nil
}

func init() {
	for _, cmd := range []*cobra.Command{listCmd, showCmd, analyzeCmd} {
		cmd.Flags().StringVarP(&folderFlag, "folder", "f", mailbox.DefaultFolder, "Mailbox folder")
	}
	listCmd.Flags().IntVarP(&pageFlag, "page", "p", 1, "Page number, newest first")
	listCmd.Flags().IntVarP(&perPageFlag, "per-page", "n", 0, "Messages per page (default from config)")
	showCmd.Flags().BoolVar(&entitiesFlag, "entities", false, "Also list dates, amounts and links found in the body")
	analyzeCmd.Flags().BoolVar(&saveFlag, "save", false, "Store the insights")

	rootCmd.AddCommand(foldersCmd, listCmd, showCmd, analyzeCmd)
}
