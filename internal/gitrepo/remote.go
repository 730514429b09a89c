package gitrepo

import (
	"net/url"
	"strings"
)

// RemoteInfo is the (host, owner, name) triple parsed from a remote URL.
type RemoteInfo struct {
	Host  string
	Owner string
	Name  string
}

// ParseRemoteURL extracts RemoteInfo from a remote URL. It understands
// http(s) and ssh:// URLs as well as scp-like "git@host:owner/repo.git"
// syntax. Returns false for anything it cannot parse into owner/repo.
func ParseRemoteURL(raw string) (RemoteInfo, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return RemoteInfo{}, false
	}

	// scp-like syntax has no scheme and a colon separating host from path.
	if !strings.Contains(raw, "://") {
		if at := strings.Index(raw, "@"); at >= 0 {
			rest := raw[at+1:]
			colon := strings.Index(rest, ":")
			if colon <= 0 {
				return RemoteInfo{}, false
			}
			return fromHostPath(rest[:colon], rest[colon+1:])
		}
		return RemoteInfo{}, false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return RemoteInfo{}, false
	}
	switch u.Scheme {
	case "http", "https", "ssh", "git":
	default:
		return RemoteInfo{}, false
	}
	return fromHostPath(u.Hostname(), u.Path)
}

func fromHostPath(host, path string) (RemoteInfo, bool) {
	path = strings.Trim(path, "/")
	path = strings.TrimSuffix(path, ".git")
	parts := strings.Split(path, "/")
	if host == "" || len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return RemoteInfo{}, false
	}
	return RemoteInfo{Host: host, Owner: parts[0], Name: parts[1]}, true
}

// withUser returns an http(s) remote URL whose userinfo is exactly username.
// Only the username is embedded, never a token; credentials live in the
// secret store keyed by host+username, so the URL just makes the lookup
// deterministic per account. Non-http URLs are returned unchanged with
// ok=false.
func withUser(raw, username string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return raw, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return raw, false
	}
	u.User = url.User(username)
	return u.String(), true
}
