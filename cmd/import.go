package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Fold ambient sessions and vault tokens into the account list",
	Long: `Import accounts from outside this workspace: an ambient session token
(GITSWITCH_TOKEN, GH_TOKEN or GITHUB_TOKEN) and every username registered in
the token vault by other workspaces. Existing records matching by username
or email are refreshed from the live profile; the rest are appended.

Merging re-runs every time; only the first-run notification is one-shot.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport()
	},
}

func runImport() error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	ctx, cancel := cmdContext()
	defer cancel()

	res, err := a.engine.ImportAccounts(ctx)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if len(res.Added) > 0 {
		fmt.Printf("Imported %d account(s): %s\n", len(res.Added), strings.Join(res.Added, ", "))
	}
	if res.Refreshed > 0 {
		fmt.Printf("Refreshed %d existing account(s)\n", res.Refreshed)
	}
	if len(res.Added) == 0 && res.Refreshed == 0 {
		fmt.Println("Nothing new to import")
	}
	for _, u := range res.Conflicts {
		fmt.Printf("Warning: username @%s is claimed by more than one account; the first record wins\n", u)
	}
	for _, s := range res.Skipped {
		fmt.Printf("Skipped %s (token invalid or no readable email)\n", s)
	}

	// Importing may have produced the first usable account; give it a shot.
	if chosen, switched := a.engine.AutoActivate(ctx); switched {
		fmt.Printf("Auto-activated account %q\n", chosen.Label)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(importCmd)
}
