package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitswitch/cli/internal/account"
	"github.com/gitswitch/cli/internal/engine"
	"github.com/gitswitch/cli/internal/ui"
)

var switchForce bool

// switchCmd represents the switch command
var switchCmd = &cobra.Command{
	Use:   "switch [LABEL]",
	Short: "Make an account the active identity",
	Long: `Switch the working directory to an account: sets user.name/user.email,
wires the stored token and rewrites the remote URL's user. Without a label
an interactive picker is shown.

Examples:
  gitswitch switch work
  gitswitch switch            # interactive picker
  gitswitch switch work --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label := ""
		if len(args) == 1 {
			label = args[0]
		}
		return runSwitch(label)
	},
}

var autoCmd = &cobra.Command{
	Use:   "auto",
	Short: "Choose and apply an account automatically",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuto()
	},
}

func runSwitch(label string) error {
	a, err := newApp(!switchForce)
	if err != nil {
		return err
	}
	accounts, err := a.store.Load()
	if err != nil && !errors.Is(err, account.ErrFormat) {
		return err
	}
	if len(accounts) == 0 {
		return fmt.Errorf("no accounts stored; run 'gitswitch accounts add' or 'gitswitch import' first")
	}

	var target account.Account
	if label != "" {
		idx := account.FindByLabel(accounts, label)
		if idx < 0 {
			return fmt.Errorf("no account labeled %q", label)
		}
		target = accounts[idx]
	} else {
		picked, err := ui.PickAccount(accounts)
		if err != nil {
			if errors.Is(err, ui.ErrCancelled) {
				fmt.Println("Switch cancelled")
				return nil
			}
			return err
		}
		target = *picked
	}

	ctx, cancel := cmdContext()
	defer cancel()

	err = a.engine.SwitchTo(ctx, target)
	switch {
	case errors.Is(err, engine.ErrNoToken):
		return fmt.Errorf("account %q has no stored token; run 'gitswitch auth login --username %s'", target.Label, target.Username)
	case errors.Is(err, engine.ErrAborted):
		fmt.Println("Switch aborted; previous identity left in effect")
		return nil
	case errors.Is(err, engine.ErrPartialSwitch):
		fmt.Printf("Identity set to %s <%s>, but credential wiring failed: %v\n", target.Name, target.Email, err)
		return nil
	case err != nil:
		return err
	}

	fmt.Printf("Switched to %q: %s <%s>\n", target.Label, target.Name, target.Email)
	return nil
}

func runAuto() error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	ctx, cancel := cmdContext()
	defer cancel()

	chosen, switched := a.engine.AutoActivate(ctx)
	switch {
	case chosen == nil:
		fmt.Println("Nothing to activate")
	case switched:
		fmt.Printf("Activated %q: %s <%s>\n", chosen.Label, chosen.Name, chosen.Email)
	default:
		fmt.Printf("Account %q already active\n", chosen.Label)
	}
	return nil
}

func init() {
	switchCmd.Flags().BoolVar(&switchForce, "force", false, "Skip the push-access confirmation")

	rootCmd.AddCommand(switchCmd, autoCmd)
}
