package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/finmail/internal/mailbox"
	"github.com/nhle/finmail/internal/theme"
)

var connectPassword string

var connectCmd = &cobra.Command{
	Use:   "connect <provider> <email>",
	Short: "Connect a mailbox (gmail, outlook, hotmail, live, yahoo)",
	Long: "Verify the credentials by logging in and opening INBOX, then store them encrypted.\n" +
		"The password comes from --password, $FINMAIL_PASSWORD, or the first line of stdin.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd)
		if err != nil {
			return err
		}

		acct, err := application.Connect(cmd.Context(), args[0], args[1], password)
		if err != nil {
			return err
		}

		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), acct)
		}
		SuccessMsg(cmd.OutOrStdout(), "Connected %s (%s) as %s", acct.Email, acct.Provider, acct.ID)
		return nil
	},
}

func readPassword(cmd *cobra.Command) (string, error) {
	if connectPassword != "" {
		return connectPassword, nil
	}
	if pw := os.Getenv("FINMAIL_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return "", fmt.Errorf("empty password")
	}
	return line, nil
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List connected mailboxes",
	RunE: func(cmd *cobra.Command, args []string) error {
		accounts, err := application.Accounts(cmd.Context())
		if err != nil {
			return err
		}

		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), accounts)
		}
		if len(accounts) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), theme.Muted.Render("No accounts connected. Run 'finmail connect <provider> <email>'."))
			return nil
		}

		w := cmd.OutOrStdout()
		for _, acct := range accounts {
			checked := "never"
			if acct.LastChecked != nil {
				checked = acct.LastChecked.Local().Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%-36s  %-30s %-8s %s\n",
				acct.ID, theme.Bold.Render(acct.Email), acct.Provider,
				theme.Muted.Render("last checked "+checked))
		}
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <account>",
	Short: "Disconnect a mailbox by id or email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		acct, err := application.RemoveAccount(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		SuccessMsg(cmd.OutOrStdout(), "Removed %s", acct.Email)
		return nil
	},
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List supported providers and their servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		for _, name := range mailbox.Providers() {
			s, err := mailbox.LookupProvider(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%-8s imap %s:%d (%s)  smtp %s:%d (%s)\n",
				name, s.Host, s.Port, s.Encryption, s.SMTPHost, s.SMTPPort, s.SMTPSecurity)
		}
		return nil
	},
}

func init() {
	connectCmd.Flags().StringVar(&connectPassword, "password", "", "Password or app password")

	accountsCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(connectCmd, accountsCmd, providersCmd)
}
