// Package githost is a stateless client for the remote code-hosting API.
// Every call takes the token explicitly; the client holds no credentials.
package githost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the API endpoint of the default host.
const DefaultBaseURL = "https://api.github.com"

// User is the authenticated-user profile.
type User struct {
	Login     string `json:"login"`
	ID        int64  `json:"id"`
	NodeID    string `json:"node_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

// Email is one address from the authenticated user's email list.
type Email struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// Validation is the result of checking a token: the resolved user plus the
// OAuth scopes granted to the token.
type Validation struct {
	User   *User
	Scopes []string
}

// Repo carries the slice of repository metadata the engine cares about.
type Repo struct {
	FullName    string `json:"full_name"`
	Private     bool   `json:"private"`
	HTMLURL     string `json:"html_url"`
	CloneURL    string `json:"clone_url"`
	Permissions struct {
		Admin bool `json:"admin"`
		Push  bool `json:"push"`
		Pull  bool `json:"pull"`
	} `json:"permissions"`
}

// CreateRepoRequest is the body for repository creation.
type CreateRepoRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Private     bool   `json:"private"`
	AutoInit    bool   `json:"auto_init,omitempty"`
}

// errorResponse is the API's error envelope.
type errorResponse struct {
	Message          string `json:"message"`
	DocumentationURL string `json:"documentation_url,omitempty"`
}

// Client talks to the host API. It is safe for concurrent use.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	log *logrus.Logger
}

// NewClient returns a Client for the given API base URL. An empty baseURL
// selects the default host.
func NewClient(baseURL string, log *logrus.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.WarnLevel)
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// do performs an authenticated request and returns the response body for
// 2xx statuses. API errors are decoded into a readable message.
func (c *Client) do(ctx context.Context, method, path, token string, body interface{}) ([]byte, http.Header, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", "gitswitch-cli")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp errorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Message != "" {
			return nil, resp.Header, fmt.Errorf("API error (%d): %s", resp.StatusCode, errResp.Message)
		}
		return nil, resp.Header, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, resp.Header, nil
}

// GetUser fetches the authenticated user's profile. Failures propagate: the
// caller cannot proceed without a resolved identity.
func (c *Client) GetUser(ctx context.Context, token string) (*User, error) {
	body, _, err := c.do(ctx, http.MethodGet, "/user", token, nil)
	if err != nil {
		return nil, err
	}
	var u User
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &u, nil
}

// GetEmails fetches the authenticated user's email list. This is an advisory
// read: any failure degrades to an empty list.
func (c *Client) GetEmails(ctx context.Context, token string) []Email {
	body, _, err := c.do(ctx, http.MethodGet, "/user/emails", token, nil)
	if err != nil {
		c.log.WithError(err).Debug("email list unavailable")
		return nil
	}
	var emails []Email
	if err := json.Unmarshal(body, &emails); err != nil {
		c.log.WithError(err).Debug("email list undecodable")
		return nil
	}
	return emails
}

// Validate checks a token by fetching its user and reading the granted
// OAuth scopes. Failures propagate.
func (c *Client) Validate(ctx context.Context, token string) (*Validation, error) {
	body, header, err := c.do(ctx, http.MethodGet, "/user", token, nil)
	if err != nil {
		return nil, err
	}
	var u User
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}

	var scopes []string
	if raw := header.Get("X-OAuth-Scopes"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				scopes = append(scopes, s)
			}
		}
	}
	return &Validation{User: &u, Scopes: scopes}, nil
}

// CheckRepoAccess reports whether the token grants push (or admin) access to
// owner/repo. Advisory: network or API failures degrade to false.
func (c *Client) CheckRepoAccess(ctx context.Context, token, owner, repo string) bool {
	body, _, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/%s", owner, repo), token, nil)
	if err != nil {
		c.log.WithError(err).WithField("repo", owner+"/"+repo).Debug("repo access check failed")
		return false
	}
	var r Repo
	if err := json.Unmarshal(body, &r); err != nil {
		return false
	}
	return r.Permissions.Push || r.Permissions.Admin
}

// CheckCollaborator reports whether username has write access to owner/repo.
// Advisory: failures degrade to false.
func (c *Client) CheckCollaborator(ctx context.Context, token, owner, repo, username string) bool {
	path := fmt.Sprintf("/repos/%s/%s/collaborators/%s/permission", owner, repo, username)
	body, _, err := c.do(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		c.log.WithError(err).WithField("user", username).Debug("collaborator check failed")
		return false
	}
	var result struct {
		Permission string `json:"permission"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return false
	}
	switch result.Permission {
	case "admin", "maintain", "write":
		return true
	}
	return false
}

// CreateRepo creates a repository for the authenticated user.
func (c *Client) CreateRepo(ctx context.Context, token string, req CreateRepoRequest) (*Repo, error) {
	body, _, err := c.do(ctx, http.MethodPost, "/user/repos", token, req)
	if err != nil {
		return nil, err
	}
	var r Repo
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("failed to decode repository: %w", err)
	}
	return &r, nil
}
