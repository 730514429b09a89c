package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gitswitch/cli/internal/account"
	"github.com/gitswitch/cli/internal/config"
	"github.com/gitswitch/cli/internal/engine"
	"github.com/gitswitch/cli/internal/githost"
	"github.com/gitswitch/cli/internal/gitrepo"
	"github.com/gitswitch/cli/internal/vault"
)

var (
	// Command line flags
	workDir string
	verbose bool
	version = "1.0.0" // This will be set during build

	log = logrus.New()
)

// app bundles the wired collaborators for one command invocation.
type app struct {
	cfg    *config.Config
	store  *account.Store
	vault  *vault.Vault
	client *githost.Client
	wd     *gitrepo.Workdir
	engine *engine.Engine
}

// newApp wires the engine and its collaborators for the working directory.
// interactive selects whether advisory failures prompt the user.
func newApp(interactive bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	wd, err := gitrepo.Open(workDir)
	if err != nil {
		return nil, err
	}

	store := account.NewStore(workDir)
	store.Exclude = wd.ExcludeFromTracking

	v := vault.New(cfg.KeyringService)
	client := githost.NewClient(cfg.APIBaseURL, log)

	var prompter engine.Prompter
	if interactive {
		prompter = consolePrompter{}
	}

	eng := engine.New(engine.Options{
		Store:    store,
		Vault:    v,
		Remote:   client,
		Workdir:  wd,
		Sessions: engine.EnvSession{},
		Prompter: prompter,
		Host:     cfg.Host,
		Logger:   log,
	})

	return &app{cfg: cfg, store: store, vault: v, client: client, wd: wd, engine: eng}, nil
}

// cmdContext bounds every command invocation so a stalled network call fails
// fast instead of hanging a switch indefinitely.
func cmdContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Minute)
}

// consolePrompter resolves advisory failures on the terminal.
type consolePrompter struct{}

func (consolePrompter) ConfirmWithoutAccess(acct account.Account, owner, repo string) (bool, error) {
	fmt.Printf("%s has no push access to %s/%s.\n", acct.Username, owner, repo)
	fmt.Print("Continue anyway? [y/N]: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes", nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gitswitch",
	Short: "gitswitch - switch git identities per working directory",
	Long: `gitswitch maintains several git identities (name/email, optionally linked
to a remote host account and token) and switches the active identity for a
working directory: local user.name/user.email, remote-URL user and
credential wiring, verified against the host.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus()
	},
}

// runStatus prints the reconciled state of the working directory, running
// auto-activation first when no identity is configured.
func runStatus() error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	ctx, cancel := cmdContext()
	defer cancel()

	id, err := a.wd.Identity()
	if err != nil {
		return err
	}
	if !id.IsSet() {
		if chosen, switched := a.engine.AutoActivate(ctx); switched {
			fmt.Printf("Auto-activated account %q\n", chosen.Label)
			id, _ = a.wd.Identity()
		}
	}

	fmt.Printf("gitswitch v%s\n\n", version)
	if id.IsSet() {
		fmt.Printf("Identity: %s <%s>\n", id.Name, id.Email)
	} else {
		fmt.Println("Identity: not configured")
	}

	if active, err := a.engine.ActiveAccount(); err == nil && active != nil {
		fmt.Printf("Account:  %s", active.Label)
		if active.Username != "" {
			fmt.Printf(" (@%s)", active.Username)
		}
		if active.Authenticated {
			fmt.Print(" [authenticated]")
		}
		fmt.Println()
	} else {
		fmt.Println("Account:  no stored account matches the identity")
	}

	if info, ok := a.wd.RemoteInfo(); ok {
		fmt.Printf("Remote:   %s/%s on %s\n", info.Owner, info.Name, info.Host)
	} else if a.wd.HasRepo() {
		fmt.Println("Remote:   none")
	} else {
		fmt.Println("Remote:   no repository open")
	}

	accounts, err := a.store.Load()
	if err != nil {
		fmt.Println("\nAccounts file was corrupt; a backup was kept and the list reset.")
	}
	fmt.Printf("\n%d account(s) stored. Run 'gitswitch accounts list' for details.\n", len(accounts))
	return nil
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "C", ".", "Working directory to operate on")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	cobra.OnInitialize(func() {
		log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
		if verbose {
			log.SetLevel(logrus.DebugLevel)
		} else {
			log.SetLevel(logrus.WarnLevel)
		}
	})

	// Add version command
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of gitswitch",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gitswitch v%s\n", version)
		},
	}

	rootCmd.AddCommand(versionCmd)
}
