package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gitswitch/cli/internal/account"
)

var (
	authUsername string
	authToken    string
	authLabel    string
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage host tokens",
	Long: `Manage tokens for the remote host. Tokens are obtained externally (a
personal access token) and stored in the OS keyring; gitswitch never mints
or refreshes them.

Examples:
  # Interactive login
  gitswitch auth login

  # Non-interactive login
  gitswitch auth login --username ada-corp --token ghp_xxx

  # Check which usernames have tokens, and whether they still validate
  gitswitch auth status

  # Remove a stored token
  gitswitch auth logout ada-corp`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuthLogin()
	},
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store and verify a token",
	Long: `Store a token for a username. Interactive by default when run in a
terminal; the token is read without echo. The token is validated against
the host before anything is saved, and the matching account record is
created or refreshed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuthLogin()
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored tokens and their validity",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuthStatus()
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout USERNAME",
	Short: "Remove a stored token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuthLogout(args[0])
	},
}

func runAuthLogin() error {
	interactive := isInteractive() && authUsername == "" && authToken == ""

	username := authUsername
	token := authToken

	if interactive {
		var err error
		username, token, err = interactiveLogin()
		if err != nil {
			return err
		}
	} else {
		if username == "" {
			return fmt.Errorf("--username is required in non-interactive mode")
		}
		if token == "" {
			return fmt.Errorf("--token is required in non-interactive mode")
		}
	}

	a, err := newApp(false)
	if err != nil {
		return err
	}
	ctx, cancel := cmdContext()
	defer cancel()

	// Test the token before anything is saved.
	fmt.Println("Validating token...")
	v, err := a.client.Validate(ctx, token)
	if err != nil {
		return fmt.Errorf("token validation failed: %w", err)
	}
	if v.User.Login != username {
		return fmt.Errorf("token belongs to @%s, not @%s", v.User.Login, username)
	}
	email, err := a.client.ResolveEmail(ctx, token, v.User)
	if err != nil {
		return fmt.Errorf("%w\nGrant the token an email-read permission (user:email) and retry", err)
	}
	fmt.Printf("Token valid for @%s", v.User.Login)
	if len(v.Scopes) > 0 {
		fmt.Printf(" (scopes: %s)", strings.Join(v.Scopes, ", "))
	}
	fmt.Println()

	if err := a.vault.Store(username, token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	// Create or refresh the matching account record.
	accounts, err := a.store.Load()
	if err != nil && !errors.Is(err, account.ErrFormat) {
		return err
	}
	name := v.User.Name
	if name == "" {
		name = v.User.Login
	}
	label := authLabel
	if label == "" {
		label = username
	}
	fresh := account.Account{
		Label:         label,
		Name:          name,
		Email:         email,
		Username:      v.User.Login,
		AccountID:     v.User.NodeID,
		AvatarURL:     v.User.AvatarURL,
		Authenticated: true,
	}
	if idx := account.Find(accounts, fresh); idx >= 0 {
		accounts[idx].MergeFrom(fresh)
		accounts[idx].Authenticated = true
		fmt.Printf("Refreshed account %q\n", accounts[idx].Label)
	} else {
		accounts = append(accounts, fresh)
		fmt.Printf("Added account %q\n", fresh.Label)
	}
	if err := a.store.Save(accounts); err != nil {
		return err
	}

	fmt.Println("Token saved to the system keyring")
	return nil
}

func interactiveLogin() (username, token string, err error) {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Host username: ")
	username, _ = reader.ReadString('\n')
	username = strings.TrimSpace(username)
	if username == "" {
		return "", "", fmt.Errorf("username cannot be empty")
	}

	fmt.Print("Token (input hidden): ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", "", fmt.Errorf("reading token: %w", err)
	}
	token = strings.TrimSpace(string(raw))
	if token == "" {
		return "", "", fmt.Errorf("token cannot be empty")
	}
	return username, token, nil
}

func runAuthStatus() error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	ctx, cancel := cmdContext()
	defer cancel()

	entries, err := a.vault.ListAll()
	if err != nil {
		return fmt.Errorf("failed to read vault: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No tokens stored. Run 'gitswitch auth login' to get started.")
		return nil
	}

	fmt.Println("Stored tokens:")
	for _, entry := range entries {
		fmt.Printf("  @%-20s %s ... ", entry.Username, maskToken(entry.Secret))
		v, err := a.client.Validate(ctx, entry.Secret)
		if err != nil {
			fmt.Println("FAIL (token rejected)")
			continue
		}
		if v.User.Login != entry.Username {
			fmt.Printf("WARN (token belongs to @%s)\n", v.User.Login)
			continue
		}
		fmt.Println("OK")
	}
	return nil
}

func runAuthLogout(username string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	if err := a.vault.Delete(username); err != nil {
		return fmt.Errorf("failed to remove token: %w", err)
	}

	// The account record stays; only its authenticated cache goes stale.
	accounts, err := a.store.Load()
	if err == nil {
		if idx := account.FindByUsername(accounts, username); idx >= 0 && accounts[idx].Authenticated {
			accounts[idx].Authenticated = false
			if err := a.store.Save(accounts); err != nil {
				log.WithError(err).Warn("could not update account record")
			}
		}
	}
	fmt.Printf("Token for @%s removed\n", username)
	return nil
}

// maskToken shortens a secret for display.
func maskToken(token string) string {
	if len(token) > 8 {
		return token[:4] + "..." + token[len(token)-4:]
	}
	return "****"
}

func isInteractive() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

func init() {
	authLoginCmd.Flags().StringVar(&authUsername, "username", "", "Host username the token belongs to")
	authLoginCmd.Flags().StringVar(&authToken, "token", "", "Personal access token")
	authLoginCmd.Flags().StringVar(&authLabel, "label", "", "Label for the account record (defaults to the username)")

	// Also add flags to the parent auth command for `gitswitch auth --username ...`
	authCmd.Flags().StringVar(&authUsername, "username", "", "Host username the token belongs to")
	authCmd.Flags().StringVar(&authToken, "token", "", "Personal access token")
	authCmd.Flags().StringVar(&authLabel, "label", "", "Label for the account record (defaults to the username)")

	authCmd.AddCommand(authLoginCmd, authStatusCmd, authLogoutCmd)
	rootCmd.AddCommand(authCmd)
}
