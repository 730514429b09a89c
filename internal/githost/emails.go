package githost

import (
	"context"
	"errors"
	"fmt"
)

// ErrMissingEmail indicates no email could be obtained for a token, usually
// because the token lacks an email-read permission. It must be surfaced,
// never papered over with a placeholder address.
var ErrMissingEmail = errors.New("token cannot read any email address")

// ResolveEmail derives the account email for a token. Preference order:
// primary+verified, any verified, primary, first listed, then the profile's
// bare email field. If nothing is obtainable the result is ErrMissingEmail.
func (c *Client) ResolveEmail(ctx context.Context, token string, profile *User) (string, error) {
	emails := c.GetEmails(ctx, token)

	if e := pickEmail(emails); e != "" {
		return e, nil
	}
	if profile != nil && profile.Email != "" {
		return profile.Email, nil
	}
	login := ""
	if profile != nil {
		login = profile.Login
	}
	return "", fmt.Errorf("%w (user %s)", ErrMissingEmail, login)
}

func pickEmail(emails []Email) string {
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email
		}
	}
	for _, e := range emails {
		if e.Primary {
			return e.Email
		}
	}
	if len(emails) > 0 {
		return emails[0].Email
	}
	return ""
}
