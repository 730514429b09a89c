package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitswitch/cli/internal/account"
	"github.com/gitswitch/cli/internal/githost"
	"github.com/gitswitch/cli/internal/gitrepo"
)

func TestAutoActivateManualIdentityWins(t *testing.T) {
	f := newFixture(t, Options{})
	f.store.accounts = []account.Account{
		{Label: "work", Name: "Ada", Email: "a@corp.com", Username: "ada"},
		{Label: "home", Name: "Ada", Email: "me@x.com"},
	}
	f.git.identity = gitrepo.Identity{Name: "Ada", Email: "me@x.com"}

	chosen, switched := f.engine.AutoActivate(context.Background())
	require.NotNil(t, chosen)
	assert.Equal(t, "home", chosen.Label)
	assert.False(t, switched)
}

func TestAutoActivateNoRepoUsesFirstAccount(t *testing.T) {
	f := newFixture(t, Options{})
	f.store.accounts = []account.Account{{Label: "a", Name: "A", Email: "a@x.com", Username: "a"}}
	require.NoError(t, f.vault.Store("a", "tok"))

	chosen, switched := f.engine.AutoActivate(context.Background())
	require.NotNil(t, chosen)
	assert.True(t, switched)
	assert.Equal(t, "a", chosen.Label)
	assert.Equal(t, gitrepo.Identity{Name: "A", Email: "a@x.com"}, f.git.identity)
}

func TestAutoActivateNoAccounts(t *testing.T) {
	f := newFixture(t, Options{})

	chosen, switched := f.engine.AutoActivate(context.Background())
	assert.Nil(t, chosen)
	assert.False(t, switched)
}

func TestAutoActivatePrefersRepoOwner(t *testing.T) {
	f := newFixture(t, Options{})
	f.git.hasRepo = true
	f.git.remote = gitrepo.RemoteInfo{Host: "github.com", Owner: "grace", Name: "widgets"}
	f.git.hasRemote = true

	f.store.accounts = []account.Account{
		{Label: "work", Name: "Ada", Email: "a@x.com", Username: "ada", Authenticated: true},
		{Label: "side", Name: "Grace", Email: "g@x.com", Username: "grace", Authenticated: true},
	}
	require.NoError(t, f.vault.Store("ada", "tok-a"))
	require.NoError(t, f.vault.Store("grace", "tok-g"))
	// Both tokens would pass; owner match must be tried first.
	f.remote.access["tok-a|grace/widgets"] = true
	f.remote.access["tok-g|grace/widgets"] = true

	chosen, switched := f.engine.AutoActivate(context.Background())
	require.NotNil(t, chosen)
	assert.True(t, switched)
	assert.Equal(t, "grace", chosen.Username)
	assert.Equal(t, 1, f.remote.accessCalls)
}

func TestAutoActivateAuthenticatedBeforeUnauthenticated(t *testing.T) {
	f := newFixture(t, Options{})
	f.git.hasRepo = true
	f.git.remote = gitrepo.RemoteInfo{Host: "github.com", Owner: "octo", Name: "widgets"}
	f.git.hasRemote = true

	f.store.accounts = []account.Account{
		{Label: "stale", Name: "Ada", Email: "a@x.com", Username: "ada"},
		{Label: "live", Name: "Grace", Email: "g@x.com", Username: "grace", Authenticated: true},
	}
	require.NoError(t, f.vault.Store("ada", "tok-a"))
	require.NoError(t, f.vault.Store("grace", "tok-g"))
	f.remote.access["tok-a|octo/widgets"] = true
	f.remote.access["tok-g|octo/widgets"] = true

	chosen, switched := f.engine.AutoActivate(context.Background())
	require.NotNil(t, chosen)
	assert.True(t, switched)
	assert.Equal(t, "grace", chosen.Username)
}

func TestAutoActivateSynthesizesVaultOnlyAccount(t *testing.T) {
	f := newFixture(t, Options{})
	f.git.hasRepo = true
	f.git.remote = gitrepo.RemoteInfo{Host: "github.com", Owner: "vee", Name: "widgets"}
	f.git.hasRemote = true

	// No workspace accounts; the token was registered by another workspace.
	require.NoError(t, f.vault.Store("vee", "tok-v"))
	f.remote.users["tok-v"] = &githost.User{Login: "vee", Name: "Vee", ID: 7}
	f.remote.emails["tok-v"] = "v@x.com"
	f.remote.access["tok-v|vee/widgets"] = true

	chosen, switched := f.engine.AutoActivate(context.Background())
	require.NotNil(t, chosen)
	assert.True(t, switched)
	assert.Equal(t, "vee", chosen.Username)
	assert.Equal(t, gitrepo.Identity{Name: "Vee", Email: "v@x.com"}, f.git.identity)
}

func TestAutoActivateFallsBackToFirstAuthenticated(t *testing.T) {
	f := newFixture(t, Options{})
	f.git.hasRepo = true
	f.git.remote = gitrepo.RemoteInfo{Host: "github.com", Owner: "octo", Name: "widgets"}
	f.git.hasRemote = true

	f.store.accounts = []account.Account{
		{Label: "one", Name: "Ada", Email: "a@x.com", Username: "ada"},
		{Label: "two", Name: "Grace", Email: "g@x.com", Username: "grace", Authenticated: true},
	}
	require.NoError(t, f.vault.Store("ada", "tok-a"))
	require.NoError(t, f.vault.Store("grace", "tok-g"))
	// Nobody has access to the open repository.

	chosen, switched := f.engine.AutoActivate(context.Background())
	require.NotNil(t, chosen)
	assert.True(t, switched)
	assert.Equal(t, "two", chosen.Label)
}

func TestAutoActivateNeverPrompts(t *testing.T) {
	prompter := &fakePrompter{allow: false}
	f := newFixture(t, Options{Prompter: prompter})
	f.git.hasRepo = true
	f.git.remote = gitrepo.RemoteInfo{Host: "github.com", Owner: "octo", Name: "widgets"}
	f.git.hasRemote = true

	f.store.accounts = []account.Account{
		{Label: "work", Name: "Ada", Email: "a@x.com", Username: "ada", Authenticated: true},
	}
	require.NoError(t, f.vault.Store("ada", "tok"))
	// No repo access and no collaborator permission; interactively this
	// would prompt, automatically it must not.

	chosen, switched := f.engine.AutoActivate(context.Background())
	require.NotNil(t, chosen)
	assert.True(t, switched)
	assert.Equal(t, 0, prompter.called)
	assert.Equal(t, 0, f.remote.collabCalls)
}
