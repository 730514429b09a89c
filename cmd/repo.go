package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitswitch/cli/internal/githost"
)

var (
	repoPrivate     bool
	repoDescription string
	repoInit        bool
)

// repoCmd represents the repo command
var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Repository operations on the host",
}

var repoCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a repository for the active account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRepoCreate(args[0])
	},
}

func runRepoCreate(name string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	ctx, cancel := cmdContext()
	defer cancel()

	active, err := a.engine.ActiveAccount()
	if err != nil {
		return err
	}
	if active == nil || active.Username == "" {
		return fmt.Errorf("no linked account is active; run 'gitswitch switch' first")
	}
	token, err := a.vault.Get(active.Username)
	if err != nil {
		return fmt.Errorf("account %q has no stored token; run 'gitswitch auth login --username %s'", active.Label, active.Username)
	}

	repo, err := a.client.CreateRepo(ctx, token, githost.CreateRepoRequest{
		Name:        name,
		Description: repoDescription,
		Private:     repoPrivate,
		AutoInit:    repoInit,
	})
	if err != nil {
		return fmt.Errorf("repository creation failed: %w", err)
	}

	fmt.Printf("Created %s\n", repo.FullName)
	fmt.Printf("  %s\n", repo.HTMLURL)
	return nil
}

func init() {
	repoCreateCmd.Flags().BoolVar(&repoPrivate, "private", false, "Create a private repository")
	repoCreateCmd.Flags().StringVar(&repoDescription, "description", "", "Repository description")
	repoCreateCmd.Flags().BoolVar(&repoInit, "init", false, "Initialize with an empty commit")

	repoCmd.AddCommand(repoCreateCmd)
	rootCmd.AddCommand(repoCmd)
}
