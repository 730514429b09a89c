// Package engine decides which stored account is active for a working
// directory and applies identity switches: commit identity, credential
// wiring and remote verification. It owns no persistent state of its own;
// everything is reconciled over the injected collaborators.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gitswitch/cli/internal/account"
	"github.com/gitswitch/cli/internal/githost"
	"github.com/gitswitch/cli/internal/gitrepo"
	"github.com/gitswitch/cli/internal/vault"
)

var (
	// ErrNoToken indicates the switch target has no usable credential. The
	// caller should prompt the user to acquire one; the local identity has
	// not been touched.
	ErrNoToken = errors.New("no usable token for account")

	// ErrAborted indicates the user declined to continue and the switch was
	// abandoned with no partial mutation.
	ErrAborted = errors.New("switch aborted")

	// ErrPartialSwitch indicates the commit identity was applied but the
	// credential wiring failed afterwards.
	ErrPartialSwitch = errors.New("identity updated but credential wiring failed")
)

// Store is the account persistence surface the engine consumes.
type Store interface {
	Load() ([]account.Account, error)
	Save([]account.Account) error
	Imported() bool
	MarkImported() error
}

// TokenVault is the secret storage surface the engine consumes.
type TokenVault interface {
	Store(username, secret string) error
	Get(username string) (string, error)
	Delete(username string) error
	ListAll() ([]vault.Entry, error)
}

// RemoteClient is the host API surface the engine consumes. Access checks
// are advisory and degrade to false instead of failing.
type RemoteClient interface {
	GetUser(ctx context.Context, token string) (*githost.User, error)
	Validate(ctx context.Context, token string) (*githost.Validation, error)
	ResolveEmail(ctx context.Context, token string, profile *githost.User) (string, error)
	CheckRepoAccess(ctx context.Context, token, owner, repo string) bool
	CheckCollaborator(ctx context.Context, token, owner, repo, username string) bool
}

// Workdir is the working-directory surface the engine consumes.
type Workdir interface {
	HasRepo() bool
	Identity() (gitrepo.Identity, error)
	SetIdentity(name, email string) error
	RemoteInfo() (gitrepo.RemoteInfo, bool)
	SetRemoteUser(username string) error
}

// Prompter asks the user to resolve advisory failures. A nil Prompter means
// "always continue".
type Prompter interface {
	// ConfirmWithoutAccess is called when the collaborator check denies the
	// target account push access to the open repository. Returning false
	// aborts the switch.
	ConfirmWithoutAccess(acct account.Account, owner, repo string) (bool, error)
}

// SessionSource supplies an externally-obtained token, such as an ambient
// CLI session, for recovery and import.
type SessionSource interface {
	Token(ctx context.Context) (string, bool)
}

// Options configures an Engine. Store, Vault, Remote and Workdir are
// required; the rest are optional.
type Options struct {
	Store    Store
	Vault    TokenVault
	Remote   RemoteClient
	Workdir  Workdir
	Sessions SessionSource
	Prompter Prompter
	Host     string
	Logger   *logrus.Logger
}

// Engine is the identity reconciliation engine.
type Engine struct {
	store    Store
	vault    TokenVault
	remote   RemoteClient
	git      Workdir
	prompter Prompter
	host     string
	log      *logrus.Logger
	sources  []TokenSource
}

// New assembles an Engine from its collaborators.
func New(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}
	e := &Engine{
		store:    opts.Store,
		vault:    opts.Vault,
		remote:   opts.Remote,
		git:      opts.Workdir,
		prompter: opts.Prompter,
		host:     opts.Host,
		log:      log,
	}
	e.sources = []TokenSource{
		vaultSource{vault: opts.Vault},
		sessionSource{sessions: opts.Sessions, remote: opts.Remote, vault: opts.Vault, log: log},
	}
	return e
}

// SwitchTo applies acct as the active identity for the working directory:
// commit identity, vault credential and remote-URL user, verified against
// the host. Failure modes:
//   - ErrNoToken: no credential could be resolved; nothing was changed
//     except the account's authenticated flag.
//   - ErrAborted: the user declined the no-access confirmation; nothing
//     was changed.
//   - ErrPartialSwitch: the commit identity was applied but credential
//     wiring failed.
func (e *Engine) SwitchTo(ctx context.Context, target account.Account) error {
	return e.switchTo(ctx, target, true)
}

func (e *Engine) switchTo(ctx context.Context, target account.Account, interactive bool) error {
	// Unlinked accounts get a commit identity and nothing else; there is no
	// remote identity to wire credentials for.
	if !target.Linked() {
		if err := e.git.SetIdentity(target.Name, target.Email); err != nil {
			return fmt.Errorf("setting identity: %w", err)
		}
		return nil
	}

	token, ok := e.resolveToken(ctx, target)
	if !ok {
		// Deliberately not switching the identity here: a commit identity
		// without matching push credentials is a silent mismatch.
		e.markAuthenticated(target, false)
		return fmt.Errorf("%w: %s", ErrNoToken, target.Username)
	}

	// Advisory collaborator check. Denied access is a choice, not a wall;
	// a decline aborts cleanly before any mutation. Auto-activation skips
	// this entirely since it must never interrupt the user.
	if interactive {
		if info, found := e.hostRemote(); found {
			if !e.remote.CheckCollaborator(ctx, token, info.Owner, info.Name, target.Username) {
				cont, err := e.confirmWithoutAccess(target, info)
				if err != nil {
					return fmt.Errorf("%w: %v", ErrAborted, err)
				}
				if !cont {
					return ErrAborted
				}
			}
		}
	}

	// Identity first: a broken credential helper must not prevent at least
	// the commit-identity change from taking effect.
	if err := e.git.SetIdentity(target.Name, target.Email); err != nil {
		return fmt.Errorf("setting identity: %w", err)
	}

	var wireErr error
	if err := e.vault.Store(target.Username, token); err != nil {
		wireErr = err
	}
	if _, found := e.hostRemote(); found {
		if err := e.git.SetRemoteUser(target.Username); err != nil && wireErr == nil {
			wireErr = err
		}
	}
	e.markAuthenticated(target, true)

	if wireErr != nil {
		return fmt.Errorf("%w: %v", ErrPartialSwitch, wireErr)
	}
	return nil
}

func (e *Engine) confirmWithoutAccess(target account.Account, info gitrepo.RemoteInfo) (bool, error) {
	if e.prompter == nil {
		return true, nil
	}
	return e.prompter.ConfirmWithoutAccess(target, info.Owner, info.Name)
}

// hostRemote returns the open repository's remote info when it resolves to
// the configured host.
func (e *Engine) hostRemote() (gitrepo.RemoteInfo, bool) {
	if !e.git.HasRepo() {
		return gitrepo.RemoteInfo{}, false
	}
	info, ok := e.git.RemoteInfo()
	if !ok || info.Host != e.host {
		return gitrepo.RemoteInfo{}, false
	}
	return info, true
}

// markAuthenticated persists the derived authenticated flag on the stored
// record matching target. Failures are logged; the flag is a cache, not
// truth.
func (e *Engine) markAuthenticated(target account.Account, authenticated bool) {
	accounts, err := e.store.Load()
	if err != nil && !errors.Is(err, account.ErrFormat) {
		e.log.WithError(err).Warn("cannot load accounts to update authenticated flag")
		return
	}
	idx := account.Find(accounts, target)
	if idx < 0 {
		return
	}
	if accounts[idx].Authenticated == authenticated {
		return
	}
	accounts[idx].Authenticated = authenticated
	if err := e.store.Save(accounts); err != nil {
		e.log.WithError(err).Warn("cannot persist authenticated flag")
	}
}

// ActiveAccount resolves which stored account the working directory's
// current identity corresponds to, by value equality on (name, email).
func (e *Engine) ActiveAccount() (*account.Account, error) {
	id, err := e.git.Identity()
	if err != nil {
		return nil, err
	}
	if !id.IsSet() {
		return nil, nil
	}
	accounts, err := e.store.Load()
	if err != nil && !errors.Is(err, account.ErrFormat) {
		return nil, err
	}
	for i := range accounts {
		if accounts[i].Name == id.Name && accounts[i].Email == id.Email {
			return &accounts[i], nil
		}
	}
	return nil, nil
}
