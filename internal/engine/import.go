package engine

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/gitswitch/cli/internal/account"
)

// ImportResult summarizes one import/merge run.
type ImportResult struct {
	// Added holds the labels of accounts newly appended to the store.
	Added []string
	// Refreshed counts existing records whose fields were re-resolved from
	// the freshly fetched profile.
	Refreshed int
	// Conflicts lists usernames claimed by more than one stored account.
	// The first record wins; the rest are reported, never silently merged.
	Conflicts []string
	// Skipped lists sources that could not be resolved (bad token, no
	// readable email) and were left out of the merge.
	Skipped []string
	// Notify is true the first time accounts were imported in this
	// workspace; later runs still merge but stay quiet.
	Notify bool
}

// ImportAccounts folds the ambient session (if any) and every
// vault-registered username into the account store. Matching is by username
// first, then email; matched records are refreshed from the freshly fetched
// profile rather than left stale, unmatched ones are appended.
func (e *Engine) ImportAccounts(ctx context.Context) (*ImportResult, error) {
	accounts, err := e.store.Load()
	if err != nil && !errors.Is(err, account.ErrFormat) {
		return nil, err
	}

	res := &ImportResult{}
	res.Conflicts = duplicateUsernames(accounts)

	upsert := func(fresh account.Account) {
		if idx := account.Find(accounts, fresh); idx >= 0 {
			accounts[idx].MergeFrom(fresh)
			accounts[idx].Authenticated = true
			res.Refreshed++
			return
		}
		fresh.Authenticated = true
		accounts = append(accounts, fresh)
		res.Added = append(res.Added, fresh.Label)
	}

	// The externally-available current session first, then every
	// vault-registered username. Storing the session token registers its
	// username, so the vault pass skips it to avoid a double merge.
	sessionLogin := e.sessionToken(ctx, res, upsert)

	entries, err := e.vault.ListAll()
	if err != nil {
		e.log.WithError(err).Warn("import: vault registry unavailable")
	}
	for _, entry := range entries {
		if entry.Username == sessionLogin {
			continue
		}
		fresh, err := e.accountFromToken(ctx, entry.Username, entry.Secret)
		if err != nil {
			e.log.WithError(err).WithField("user", entry.Username).Warn("import: cannot resolve vault account")
			res.Skipped = append(res.Skipped, entry.Username)
			continue
		}
		upsert(*fresh)
	}

	if err := e.store.Save(accounts); err != nil {
		return nil, err
	}

	if !e.store.Imported() {
		res.Notify = len(res.Added) > 0
		if err := e.store.MarkImported(); err != nil {
			e.log.WithError(err).Warn("import: cannot write import marker")
		}
	}
	return res, nil
}

// sessionToken resolves the ambient session into an account and stores its
// token in the vault. Returns the merged login, or "" when there was no
// usable session.
func (e *Engine) sessionToken(ctx context.Context, res *ImportResult, upsert func(account.Account)) string {
	src := e.ambientSession()
	if src == nil {
		return ""
	}
	token, ok := src.Token(ctx)
	if !ok {
		return ""
	}

	v, err := e.remote.Validate(ctx, token)
	if err != nil {
		e.log.WithError(err).Warn("import: ambient session token invalid")
		res.Skipped = append(res.Skipped, "session")
		return ""
	}
	email, err := e.remote.ResolveEmail(ctx, token, v.User)
	if err != nil {
		// Never defaulted to a placeholder: the user has to grant the
		// email-read permission and re-run.
		e.log.WithError(err).Warn("import: ambient session has no readable email")
		res.Skipped = append(res.Skipped, v.User.Login)
		return ""
	}

	if err := e.vault.Store(v.User.Login, token); err != nil {
		e.log.WithError(err).Warn("import: cannot store session token")
	}

	name := v.User.Name
	if name == "" {
		name = v.User.Login
	}
	upsert(account.Account{
		Label:     v.User.Login,
		Name:      name,
		Email:     email,
		Username:  v.User.Login,
		AccountID: v.User.NodeID,
		SessionID: uuid.NewString(),
		AvatarURL: v.User.AvatarURL,
	})
	return v.User.Login
}

// ambientSession exposes the configured session source, if any.
func (e *Engine) ambientSession() SessionSource {
	for _, src := range e.sources {
		if s, ok := src.(sessionSource); ok {
			return s.sessions
		}
	}
	return nil
}

// duplicateUsernames reports usernames claimed by more than one stored
// account. A rename on the host side can leave two records pointing at one
// login; that is surfaced as a conflict instead of being silently merged.
func duplicateUsernames(accounts []account.Account) []string {
	seen := make(map[string]bool)
	reported := make(map[string]bool)
	var dups []string
	for _, a := range accounts {
		if a.Username == "" {
			continue
		}
		if seen[a.Username] && !reported[a.Username] {
			dups = append(dups, a.Username)
			reported[a.Username] = true
		}
		seen[a.Username] = true
	}
	return dups
}
