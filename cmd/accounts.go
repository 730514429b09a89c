package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gitswitch/cli/internal/account"
)

var (
	addLabel    string
	addName     string
	addEmail    string
	addUsername string
)

// accountsCmd represents the accounts command
var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage stored identities",
	Long: `Manage the identities stored for this workspace.

Examples:
  gitswitch accounts list
  gitswitch accounts add --label work --name "Ada Lovelace" --email ada@corp.example --username ada-corp
  gitswitch accounts remove work`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAccountsList()
	},
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAccountsList()
	},
}

var accountsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAccountsAdd()
	},
}

var accountsRemoveCmd = &cobra.Command{
	Use:   "remove LABEL",
	Short: "Remove an account and its stored token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAccountsRemove(args[0])
	},
}

func runAccountsList() error {
	a, err := newApp(false)
	if err != nil {
		return err
	}

	accounts, err := a.store.Load()
	if err != nil && !errors.Is(err, account.ErrFormat) {
		return err
	}
	if len(accounts) == 0 {
		fmt.Println("No accounts stored. Run 'gitswitch accounts add' or 'gitswitch import'.")
		return nil
	}

	active, _ := a.engine.ActiveAccount()
	for _, acct := range accounts {
		marker := " "
		if active != nil && active.Label == acct.Label {
			marker = "*"
		}
		line := fmt.Sprintf("%s %-16s %s <%s>", marker, acct.Label, acct.Name, acct.Email)
		if acct.Username != "" {
			line += fmt.Sprintf("  @%s", acct.Username)
		}
		if acct.Authenticated {
			line += "  [authenticated]"
		}
		fmt.Println(line)
	}
	return nil
}

func runAccountsAdd() error {
	if addName == "" {
		return fmt.Errorf("--name is required")
	}
	if addEmail == "" || !strings.Contains(addEmail, "@") {
		return fmt.Errorf("--email must be a valid address")
	}
	label := addLabel
	if label == "" {
		label = addUsername
	}
	if label == "" {
		return fmt.Errorf("--label is required for accounts without a username")
	}

	a, err := newApp(false)
	if err != nil {
		return err
	}
	accounts, err := a.store.Load()
	if err != nil && !errors.Is(err, account.ErrFormat) {
		return err
	}

	if account.FindByLabel(accounts, label) >= 0 {
		return fmt.Errorf("an account labeled %q already exists", label)
	}
	fresh := account.Account{
		Label:    label,
		Name:     addName,
		Email:    addEmail,
		Username: addUsername,
	}
	if idx := account.Find(accounts, fresh); idx >= 0 {
		return fmt.Errorf("account %q already covers this identity; use 'gitswitch import' to refresh it", accounts[idx].Label)
	}

	accounts = append(accounts, fresh)
	if err := a.store.Save(accounts); err != nil {
		return err
	}
	fmt.Printf("Added account %q\n", label)
	if addUsername != "" {
		if _, err := a.vault.Get(addUsername); err != nil {
			fmt.Printf("No token stored for @%s yet. Run 'gitswitch auth login --username %s'.\n", addUsername, addUsername)
		}
	}
	return nil
}

func runAccountsRemove(label string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	accounts, err := a.store.Load()
	if err != nil && !errors.Is(err, account.ErrFormat) {
		return err
	}

	idx := account.FindByLabel(accounts, label)
	if idx < 0 {
		return fmt.Errorf("no account labeled %q", label)
	}
	removed := accounts[idx]
	accounts = append(accounts[:idx], accounts[idx+1:]...)
	if err := a.store.Save(accounts); err != nil {
		return err
	}

	// Explicit delete is the one path that also drops the vault token.
	if removed.Username != "" {
		if err := a.vault.Delete(removed.Username); err != nil {
			log.WithError(err).Warn("could not delete stored token")
		}
	}
	fmt.Printf("Removed account %q\n", label)
	return nil
}

func init() {
	accountsAddCmd.Flags().StringVar(&addLabel, "label", "", "Display label for the account")
	accountsAddCmd.Flags().StringVar(&addName, "name", "", "Commit author name")
	accountsAddCmd.Flags().StringVar(&addEmail, "email", "", "Commit author email")
	accountsAddCmd.Flags().StringVar(&addUsername, "username", "", "Remote host username (optional)")

	accountsCmd.AddCommand(accountsListCmd, accountsAddCmd, accountsRemoveCmd)
	rootCmd.AddCommand(accountsCmd)
}
