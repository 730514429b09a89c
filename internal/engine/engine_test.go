package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitswitch/cli/internal/account"
	"github.com/gitswitch/cli/internal/githost"
	"github.com/gitswitch/cli/internal/gitrepo"
	"github.com/gitswitch/cli/internal/vault"
)

// memStore is an in-memory Store for engine tests.
type memStore struct {
	accounts []account.Account
	imported bool
	saves    int
}

func (s *memStore) Load() ([]account.Account, error) {
	return append([]account.Account(nil), s.accounts...), nil
}

func (s *memStore) Save(accounts []account.Account) error {
	s.accounts = append([]account.Account(nil), accounts...)
	s.saves++
	return nil
}

func (s *memStore) Imported() bool      { return s.imported }
func (s *memStore) MarkImported() error { s.imported = true; return nil }

// fakeGit is an in-memory Workdir.
type fakeGit struct {
	hasRepo   bool
	identity  gitrepo.Identity
	remote    gitrepo.RemoteInfo
	hasRemote bool

	remoteUser   string
	setRemoteErr error
}

func (g *fakeGit) HasRepo() bool                       { return g.hasRepo }
func (g *fakeGit) Identity() (gitrepo.Identity, error) { return g.identity, nil }

func (g *fakeGit) SetIdentity(name, email string) error {
	g.identity = gitrepo.Identity{Name: name, Email: email}
	return nil
}

func (g *fakeGit) RemoteInfo() (gitrepo.RemoteInfo, bool) { return g.remote, g.hasRemote }

func (g *fakeGit) SetRemoteUser(username string) error {
	if g.setRemoteErr != nil {
		return g.setRemoteErr
	}
	g.remoteUser = username
	return nil
}

// fakeRemote is a canned RemoteClient keyed by token.
type fakeRemote struct {
	users  map[string]*githost.User // token -> profile
	emails map[string]string        // token -> resolved email
	access map[string]bool          // token|owner/repo -> push access
	collab map[string]bool          // token|owner/repo|username -> write access

	accessCalls int
	collabCalls int
}

func (r *fakeRemote) GetUser(_ context.Context, token string) (*githost.User, error) {
	u, ok := r.users[token]
	if !ok {
		return nil, fmt.Errorf("API error (401): Bad credentials")
	}
	return u, nil
}

func (r *fakeRemote) Validate(ctx context.Context, token string) (*githost.Validation, error) {
	u, err := r.GetUser(ctx, token)
	if err != nil {
		return nil, err
	}
	return &githost.Validation{User: u}, nil
}

func (r *fakeRemote) ResolveEmail(_ context.Context, token string, profile *githost.User) (string, error) {
	if e, ok := r.emails[token]; ok {
		return e, nil
	}
	if profile != nil && profile.Email != "" {
		return profile.Email, nil
	}
	return "", githost.ErrMissingEmail
}

func (r *fakeRemote) CheckRepoAccess(_ context.Context, token, owner, repo string) bool {
	r.accessCalls++
	return r.access[token+"|"+owner+"/"+repo]
}

func (r *fakeRemote) CheckCollaborator(_ context.Context, token, owner, repo, username string) bool {
	r.collabCalls++
	return r.collab[token+"|"+owner+"/"+repo+"|"+username]
}

// fakePrompter records confirmation requests and answers them all the same
// way.
type fakePrompter struct {
	allow  bool
	called int
}

func (p *fakePrompter) ConfirmWithoutAccess(account.Account, string, string) (bool, error) {
	p.called++
	return p.allow, nil
}

// staticSession supplies one fixed ambient token.
type staticSession struct {
	token string
}

func (s staticSession) Token(context.Context) (string, bool) {
	return s.token, s.token != ""
}

type fixture struct {
	store  *memStore
	vault  *vault.Vault
	remote *fakeRemote
	git    *fakeGit
	engine *Engine
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		store:  &memStore{},
		vault:  vault.NewWithKeyring("gitswitch-test", vault.NewMemoryKeyring()),
		remote: &fakeRemote{users: map[string]*githost.User{}, emails: map[string]string{}, access: map[string]bool{}, collab: map[string]bool{}},
		git:    &fakeGit{},
	}
	opts.Store = f.store
	opts.Vault = f.vault
	opts.Remote = f.remote
	opts.Workdir = f.git
	if opts.Host == "" {
		opts.Host = "github.com"
	}
	f.engine = New(opts)
	return f
}

func TestSwitchToUnlinkedSetsIdentityOnly(t *testing.T) {
	f := newFixture(t, Options{})
	f.store.accounts = []account.Account{{Label: "home", Name: "Ada", Email: "me@x.com"}}

	err := f.engine.SwitchTo(context.Background(), f.store.accounts[0])
	require.NoError(t, err)

	assert.Equal(t, gitrepo.Identity{Name: "Ada", Email: "me@x.com"}, f.git.identity)
	assert.Empty(t, f.git.remoteUser)
	names, _ := f.vault.Usernames()
	assert.Empty(t, names)
}

func TestSwitchToLinkedWiresEverything(t *testing.T) {
	f := newFixture(t, Options{})
	f.git.hasRepo = true
	f.git.remote = gitrepo.RemoteInfo{Host: "github.com", Owner: "ada", Name: "widgets"}
	f.git.hasRemote = true

	acct := account.Account{Label: "work", Name: "Ada", Email: "a@x.com", Username: "ada"}
	f.store.accounts = []account.Account{acct}
	require.NoError(t, f.vault.Store("ada", "tok"))
	f.remote.collab["tok|ada/widgets|ada"] = true

	err := f.engine.SwitchTo(context.Background(), acct)
	require.NoError(t, err)

	assert.Equal(t, gitrepo.Identity{Name: "Ada", Email: "a@x.com"}, f.git.identity)
	assert.Equal(t, "ada", f.git.remoteUser)

	// The authenticated cache is persisted on the stored record.
	assert.True(t, f.store.accounts[0].Authenticated)
}

func TestSwitchToNoTokenLeavesIdentityAlone(t *testing.T) {
	f := newFixture(t, Options{})
	f.git.identity = gitrepo.Identity{Name: "Before", Email: "before@x.com"}
	acct := account.Account{Label: "work", Name: "Ada", Email: "a@x.com", Username: "ada", Authenticated: true}
	f.store.accounts = []account.Account{acct}

	err := f.engine.SwitchTo(context.Background(), acct)
	assert.ErrorIs(t, err, ErrNoToken)

	// No identity flip, and the stale authenticated flag is cleared.
	assert.Equal(t, gitrepo.Identity{Name: "Before", Email: "before@x.com"}, f.git.identity)
	assert.False(t, f.store.accounts[0].Authenticated)
}

func TestSwitchToRecoversFromSessionToken(t *testing.T) {
	f := newFixture(t, Options{Sessions: staticSession{token: "sess"}})
	f.remote.users["sess"] = &githost.User{Login: "ada", Name: "Ada"}

	acct := account.Account{Label: "work", Name: "Ada", Email: "a@x.com", Username: "ada"}
	f.store.accounts = []account.Account{acct}

	err := f.engine.SwitchTo(context.Background(), acct)
	require.NoError(t, err)

	// The recovered token is persisted for next time.
	token, err := f.vault.Get("ada")
	require.NoError(t, err)
	assert.Equal(t, "sess", token)
}

func TestSwitchToRejectsForeignSessionToken(t *testing.T) {
	f := newFixture(t, Options{Sessions: staticSession{token: "sess"}})
	f.remote.users["sess"] = &githost.User{Login: "grace"}

	acct := account.Account{Label: "work", Name: "Ada", Email: "a@x.com", Username: "ada"}
	f.store.accounts = []account.Account{acct}

	err := f.engine.SwitchTo(context.Background(), acct)
	assert.ErrorIs(t, err, ErrNoToken)
	_, err = f.vault.Get("ada")
	assert.Error(t, err)
}

func TestSwitchToAcceptsSessionByAccountID(t *testing.T) {
	f := newFixture(t, Options{Sessions: staticSession{token: "sess"}})
	f.remote.users["sess"] = &githost.User{Login: "ada-renamed", NodeID: "N1"}

	// The stored username is stale after a host-side rename; the remote ID
	// still proves the session belongs to this account.
	acct := account.Account{Label: "work", Name: "Ada", Email: "a@x.com", Username: "ada", AccountID: "N1"}
	f.store.accounts = []account.Account{acct}

	err := f.engine.SwitchTo(context.Background(), acct)
	require.NoError(t, err)
}

func TestSwitchToDeclineAbortsCleanly(t *testing.T) {
	prompter := &fakePrompter{allow: false}
	f := newFixture(t, Options{Prompter: prompter})
	f.git.hasRepo = true
	f.git.remote = gitrepo.RemoteInfo{Host: "github.com", Owner: "octo", Name: "widgets"}
	f.git.hasRemote = true
	f.git.identity = gitrepo.Identity{Name: "Before", Email: "before@x.com"}

	acct := account.Account{Label: "work", Name: "Ada", Email: "a@x.com", Username: "ada"}
	f.store.accounts = []account.Account{acct}
	require.NoError(t, f.vault.Store("ada", "tok"))
	// No collaborator entry: the check denies access.

	err := f.engine.SwitchTo(context.Background(), acct)
	assert.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, 1, prompter.called)

	// Nothing was mutated.
	assert.Equal(t, gitrepo.Identity{Name: "Before", Email: "before@x.com"}, f.git.identity)
	assert.Empty(t, f.git.remoteUser)
	assert.Equal(t, 0, f.store.saves)
}

func TestSwitchToConfirmContinuesWithoutAccess(t *testing.T) {
	prompter := &fakePrompter{allow: true}
	f := newFixture(t, Options{Prompter: prompter})
	f.git.hasRepo = true
	f.git.remote = gitrepo.RemoteInfo{Host: "github.com", Owner: "octo", Name: "widgets"}
	f.git.hasRemote = true

	acct := account.Account{Label: "work", Name: "Ada", Email: "a@x.com", Username: "ada"}
	f.store.accounts = []account.Account{acct}
	require.NoError(t, f.vault.Store("ada", "tok"))

	err := f.engine.SwitchTo(context.Background(), acct)
	require.NoError(t, err)
	assert.Equal(t, 1, prompter.called)
	assert.Equal(t, "Ada", f.git.identity.Name)
}

func TestSwitchToForeignHostSkipsCollaboratorCheck(t *testing.T) {
	prompter := &fakePrompter{allow: false}
	f := newFixture(t, Options{Prompter: prompter})
	f.git.hasRepo = true
	f.git.remote = gitrepo.RemoteInfo{Host: "gitlab.com", Owner: "octo", Name: "widgets"}
	f.git.hasRemote = true

	acct := account.Account{Label: "work", Name: "Ada", Email: "a@x.com", Username: "ada"}
	f.store.accounts = []account.Account{acct}
	require.NoError(t, f.vault.Store("ada", "tok"))

	err := f.engine.SwitchTo(context.Background(), acct)
	require.NoError(t, err)
	assert.Equal(t, 0, prompter.called)
	// A foreign remote also gets no credential-user rewrite.
	assert.Empty(t, f.git.remoteUser)
}

func TestSwitchToPartialWhenWiringFails(t *testing.T) {
	f := newFixture(t, Options{})
	f.git.hasRepo = true
	f.git.remote = gitrepo.RemoteInfo{Host: "github.com", Owner: "ada", Name: "widgets"}
	f.git.hasRemote = true
	f.git.setRemoteErr = fmt.Errorf("config write denied")

	acct := account.Account{Label: "work", Name: "Ada", Email: "a@x.com", Username: "ada"}
	f.store.accounts = []account.Account{acct}
	require.NoError(t, f.vault.Store("ada", "tok"))
	f.remote.collab["tok|ada/widgets|ada"] = true

	err := f.engine.SwitchTo(context.Background(), acct)
	assert.ErrorIs(t, err, ErrPartialSwitch)

	// The identity change still took effect.
	assert.Equal(t, "Ada", f.git.identity.Name)
}

func TestSwitchToIsIdempotent(t *testing.T) {
	f := newFixture(t, Options{})
	acct := account.Account{Label: "work", Name: "Ada", Email: "a@x.com", Username: "ada"}
	f.store.accounts = []account.Account{acct}
	require.NoError(t, f.vault.Store("ada", "tok"))

	require.NoError(t, f.engine.SwitchTo(context.Background(), acct))
	firstSaves := f.store.saves
	require.NoError(t, f.engine.SwitchTo(context.Background(), acct))

	// No duplicate records, and the unchanged flag is not re-persisted.
	assert.Len(t, f.store.accounts, 1)
	assert.Equal(t, firstSaves, f.store.saves)
}

func TestActiveAccount(t *testing.T) {
	f := newFixture(t, Options{})
	f.store.accounts = []account.Account{
		{Label: "work", Name: "Ada", Email: "a@corp.com"},
		{Label: "home", Name: "Ada", Email: "me@x.com"},
	}
	f.git.identity = gitrepo.Identity{Name: "Ada", Email: "me@x.com"}

	active, err := f.engine.ActiveAccount()
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "home", active.Label)
}

func TestActiveAccountNoIdentity(t *testing.T) {
	f := newFixture(t, Options{})
	f.store.accounts = []account.Account{{Label: "work", Name: "Ada", Email: "a@x.com"}}

	active, err := f.engine.ActiveAccount()
	require.NoError(t, err)
	assert.Nil(t, active)
}
