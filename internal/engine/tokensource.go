package engine

import (
	"context"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/gitswitch/cli/internal/account"
	"github.com/gitswitch/cli/internal/githost"
)

// TokenSource is one strategy for resolving a usable token for an account.
// Sources are tried in order; the first hit wins.
type TokenSource interface {
	Name() string
	Token(ctx context.Context, acct account.Account) (string, bool)
}

func (e *Engine) resolveToken(ctx context.Context, acct account.Account) (string, bool) {
	for _, src := range e.sources {
		if token, ok := src.Token(ctx, acct); ok {
			e.log.WithFields(logrus.Fields{
				"source": src.Name(),
				"user":   acct.Username,
			}).Debug("token resolved")
			return token, true
		}
	}
	return "", false
}

// vaultSource looks the token up in the vault by username.
type vaultSource struct {
	vault TokenVault
}

func (vaultSource) Name() string { return "vault" }

func (s vaultSource) Token(_ context.Context, acct account.Account) (string, bool) {
	token, err := s.vault.Get(acct.Username)
	if err != nil {
		return "", false
	}
	return token, true
}

// sessionSource is the one-shot recovery path: an externally-supplied
// session token is accepted if it proves to belong to the account, and is
// persisted into the vault on success.
type sessionSource struct {
	sessions SessionSource
	remote   RemoteClient
	vault    TokenVault
	log      *logrus.Logger
}

func (sessionSource) Name() string { return "session" }

func (s sessionSource) Token(ctx context.Context, acct account.Account) (string, bool) {
	if s.sessions == nil {
		return "", false
	}
	token, ok := s.sessions.Token(ctx)
	if !ok {
		return "", false
	}

	v, err := s.remote.Validate(ctx, token)
	if err != nil {
		s.log.WithError(err).Debug("session token validation failed")
		return "", false
	}
	if !sessionMatches(v, acct) {
		return "", false
	}

	if err := s.vault.Store(acct.Username, token); err != nil {
		s.log.WithError(err).Warn("cannot persist recovered session token")
	}
	return token, true
}

// sessionMatches accepts the session when its user is the account's
// username, or when the account's stored remote ID matches.
func sessionMatches(v *githost.Validation, acct account.Account) bool {
	if v == nil || v.User == nil {
		return false
	}
	if v.User.Login == acct.Username {
		return true
	}
	if acct.AccountID == "" {
		return false
	}
	return acct.AccountID == strconv.FormatInt(v.User.ID, 10) || acct.AccountID == v.User.NodeID
}
