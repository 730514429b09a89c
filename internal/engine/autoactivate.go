package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/gitswitch/cli/internal/account"
	"github.com/gitswitch/cli/internal/gitrepo"
)

// candidate is an account paired with its resolved token during selection.
type candidate struct {
	acct  account.Account
	token string
}

// AutoActivate chooses and applies an account with no user input. It runs
// after activation, after import and after workspace changes, so it never
// surfaces errors and never prompts; failures are logged and swallowed.
//
// Returns the account now considered active (nil when none could be chosen)
// and whether a switch was actually applied.
func (e *Engine) AutoActivate(ctx context.Context) (*account.Account, bool) {
	accounts, err := e.store.Load()
	if err != nil && !errors.Is(err, account.ErrFormat) {
		e.log.WithError(err).Warn("auto-activate: cannot load accounts")
		return nil, false
	}

	// An identity the user configured by hand wins: if it matches a stored
	// account, there is nothing to reconcile.
	if id, err := e.git.Identity(); err == nil && id.IsSet() {
		for i := range accounts {
			if accounts[i].Name == id.Name && accounts[i].Email == id.Email {
				return &accounts[i], false
			}
		}
	}

	// Without a repository there is no remote to reason about; the first
	// stored account is the cheapest safe default.
	if !e.git.HasRepo() {
		if len(accounts) == 0 {
			return nil, false
		}
		return e.applyChoice(ctx, accounts[0])
	}

	chosen, ok := e.chooseForRepo(ctx, accounts)
	if !ok {
		return nil, false
	}
	return e.applyChoice(ctx, chosen)
}

func (e *Engine) applyChoice(ctx context.Context, chosen account.Account) (*account.Account, bool) {
	if err := e.switchTo(ctx, chosen, false); err != nil {
		e.log.WithError(err).WithField("label", chosen.Label).Warn("auto-activate: switch failed")
		return &chosen, false
	}
	return &chosen, true
}

// chooseForRepo implements the candidate selection for an open repository:
// workspace accounts merged with the global vault registry, deduplicated by
// username; authenticated candidates preferred; the repository-owner
// heuristic tried before a linear live access scan; store-order fallback
// when nothing confirms access.
func (e *Engine) chooseForRepo(ctx context.Context, accounts []account.Account) (account.Account, bool) {
	var candidates []candidate
	seen := make(map[string]bool)

	for _, a := range accounts {
		if !a.Linked() || seen[a.Username] {
			continue
		}
		token, err := e.vault.Get(a.Username)
		if err != nil {
			continue
		}
		seen[a.Username] = true
		candidates = append(candidates, candidate{acct: a, token: token})
	}

	// Accounts discovered in other workspaces live only in the vault
	// registry; synthesize records for them from the remote profile.
	if entries, err := e.vault.ListAll(); err == nil {
		for _, entry := range entries {
			if seen[entry.Username] {
				continue
			}
			seen[entry.Username] = true
			a, err := e.accountFromToken(ctx, entry.Username, entry.Secret)
			if err != nil {
				e.log.WithError(err).WithField("user", entry.Username).Debug("auto-activate: cannot resolve vault account")
				continue
			}
			candidates = append(candidates, candidate{acct: *a, token: entry.Secret})
		}
	} else {
		e.log.WithError(err).Debug("auto-activate: vault registry unavailable")
	}

	var authed, unauthed []candidate
	for _, c := range candidates {
		if c.acct.Authenticated {
			authed = append(authed, c)
		} else {
			unauthed = append(unauthed, c)
		}
	}

	info, hasRemote := e.hostRemote()
	if hasRemote {
		if a, ok := e.scanAccess(ctx, authed, info); ok {
			return a, true
		}
		if a, ok := e.scanAccess(ctx, unauthed, info); ok {
			return a, true
		}
	}

	// No candidate with confirmed access: first authenticated account, else
	// first account in store order.
	for _, a := range accounts {
		if a.Authenticated {
			return a, true
		}
	}
	if len(accounts) > 0 {
		return accounts[0], true
	}
	if len(candidates) > 0 {
		return candidates[0].acct, true
	}
	return account.Account{}, false
}

// scanAccess checks live repo access across candidates, trying the account
// whose username equals the remote owner first. The common case is "this
// repository belongs to me", so checking that candidate first avoids an
// access-check fan-out across every stored account.
func (e *Engine) scanAccess(ctx context.Context, list []candidate, info gitrepo.RemoteInfo) (account.Account, bool) {
	for _, c := range list {
		if c.acct.Username == info.Owner && e.remote.CheckRepoAccess(ctx, c.token, info.Owner, info.Name) {
			return c.acct, true
		}
	}
	for _, c := range list {
		if c.acct.Username == info.Owner {
			continue
		}
		if e.remote.CheckRepoAccess(ctx, c.token, info.Owner, info.Name) {
			return c.acct, true
		}
	}
	return account.Account{}, false
}

// accountFromToken builds an Account from a token's remote profile.
func (e *Engine) accountFromToken(ctx context.Context, username, token string) (*account.Account, error) {
	profile, err := e.remote.GetUser(ctx, token)
	if err != nil {
		return nil, err
	}
	email, err := e.remote.ResolveEmail(ctx, token, profile)
	if err != nil {
		return nil, err
	}

	name := profile.Name
	if name == "" {
		name = profile.Login
	}
	return &account.Account{
		Label:         username,
		Name:          name,
		Email:         email,
		Username:      profile.Login,
		AccountID:     fmt.Sprintf("%d", profile.ID),
		AvatarURL:     profile.AvatarURL,
		Authenticated: true,
	}, nil
}
