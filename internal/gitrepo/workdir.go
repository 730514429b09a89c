// Package gitrepo reads and writes the working directory's git identity and
// remote configuration through go-git; no git binary is invoked.
package gitrepo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
)

// Identity is the working directory's configured commit identity.
type Identity struct {
	Name  string
	Email string
}

// IsSet reports whether both fields are configured.
func (id Identity) IsSet() bool {
	return id.Name != "" && id.Email != ""
}

// Workdir wraps one working directory. The directory may or may not contain
// a repository; identity reads and writes fall back to the global git config
// when it does not.
type Workdir struct {
	dir  string
	repo *git.Repository
}

// Open inspects dir for a git repository (walking up like git itself does).
// A directory without a repository still yields a usable Workdir.
func Open(dir string) (*Workdir, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return &Workdir{dir: dir}, nil
		}
		return nil, fmt.Errorf("opening repository at %s: %w", dir, err)
	}
	return &Workdir{dir: dir, repo: repo}, nil
}

// HasRepo reports whether a repository was found.
func (w *Workdir) HasRepo() bool {
	return w.repo != nil
}

// Identity returns the configured commit identity: repository-local config
// when a repository is present, otherwise the global config.
func (w *Workdir) Identity() (Identity, error) {
	if w.repo != nil {
		cfg, err := w.repo.Config()
		if err != nil {
			return Identity{}, fmt.Errorf("reading repository config: %w", err)
		}
		if cfg.User.Name != "" || cfg.User.Email != "" {
			return Identity{Name: cfg.User.Name, Email: cfg.User.Email}, nil
		}
	}

	cfg, err := gitconfig.LoadConfig(gitconfig.GlobalScope)
	if err != nil {
		// No global config at all is the same as an empty identity.
		return Identity{}, nil
	}
	return Identity{Name: cfg.User.Name, Email: cfg.User.Email}, nil
}

// SetIdentity writes user.name and user.email, repository-local when a
// repository is present, global otherwise.
func (w *Workdir) SetIdentity(name, email string) error {
	if w.repo != nil {
		cfg, err := w.repo.Config()
		if err != nil {
			return fmt.Errorf("reading repository config: %w", err)
		}
		cfg.User.Name = name
		cfg.User.Email = email
		if err := w.repo.SetConfig(cfg); err != nil {
			return fmt.Errorf("writing repository config: %w", err)
		}
		return nil
	}
	return setGlobalIdentity(name, email)
}

func setGlobalIdentity(name, email string) error {
	cfg, err := gitconfig.LoadConfig(gitconfig.GlobalScope)
	if err != nil {
		cfg = gitconfig.NewConfig()
	}
	cfg.User.Name = name
	cfg.User.Email = email

	data, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("encoding global config: %w", err)
	}
	path, err := globalConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing global config: %w", err)
	}
	return nil
}

// globalConfigPath mirrors git's own lookup: the XDG location when it
// already exists, ~/.gitconfig otherwise.
func globalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}

	xdgBase := os.Getenv("XDG_CONFIG_HOME")
	if xdgBase == "" {
		xdgBase = filepath.Join(home, ".config")
	}
	xdg := filepath.Join(xdgBase, "git", "config")
	if _, err := os.Stat(xdg); err == nil {
		return xdg, nil
	}
	return filepath.Join(home, ".gitconfig"), nil
}

// RemoteInfo parses the origin remote's URL. ok is false when there is no
// repository, no origin remote, or the URL is not an owner/repo form.
func (w *Workdir) RemoteInfo() (RemoteInfo, bool) {
	raw, ok := w.originURL()
	if !ok {
		return RemoteInfo{}, false
	}
	return ParseRemoteURL(raw)
}

func (w *Workdir) originURL() (string, bool) {
	if w.repo == nil {
		return "", false
	}
	cfg, err := w.repo.Config()
	if err != nil {
		return "", false
	}
	remote, ok := cfg.Remotes[git.DefaultRemoteName]
	if !ok || len(remote.URLs) == 0 {
		return "", false
	}
	return remote.URLs[0], true
}

// SetRemoteUser rewrites the origin URL's embedded identity to username so
// that credential lookup resolves to this account's token. Only http(s)
// remotes carry a userinfo component; anything else is left untouched.
func (w *Workdir) SetRemoteUser(username string) error {
	if w.repo == nil {
		return nil
	}
	cfg, err := w.repo.Config()
	if err != nil {
		return fmt.Errorf("reading repository config: %w", err)
	}
	remote, ok := cfg.Remotes[git.DefaultRemoteName]
	if !ok || len(remote.URLs) == 0 {
		return nil
	}

	rewritten, ok := withUser(remote.URLs[0], username)
	if !ok || rewritten == remote.URLs[0] {
		return nil
	}
	remote.URLs[0] = rewritten
	if err := w.repo.SetConfig(cfg); err != nil {
		return fmt.Errorf("writing repository config: %w", err)
	}
	return nil
}

// ExcludeFromTracking appends pattern to .git/info/exclude so workspace
// state files never show up as untracked. Idempotent; a missing repository
// is a no-op.
func (w *Workdir) ExcludeFromTracking(pattern string) error {
	if w.repo == nil {
		return nil
	}
	gitDir, ok := findGitDir(w.dir)
	if !ok {
		return nil
	}

	path := filepath.Join(gitDir, "info", "exclude")
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, line := range strings.Split(string(existing), "\n") {
		if strings.TrimSpace(line) == pattern {
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	prefix := ""
	if len(existing) > 0 && !strings.HasSuffix(string(existing), "\n") {
		prefix = "\n"
	}
	_, err = f.WriteString(prefix + pattern + "\n")
	return err
}

// findGitDir walks up from dir looking for a .git directory.
func findGitDir(dir string) (string, bool) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(abs, ".git")
		if fi, err := os.Stat(candidate); err == nil && fi.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", false
		}
		abs = parent
	}
}
