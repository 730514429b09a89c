package account

// Account is a stored identity record. Label, Name and Email are always
// present. Username links the record to a remote host login; AccountID and
// SessionID carry the remote-side identifiers when known.
//
// Authenticated is a derived cache of "a valid token currently exists for
// Username". It is recomputed by the reconciliation engine during switches
// and imports, never trusted as authoritative.
type Account struct {
	Label         string `json:"label"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Username      string `json:"username,omitempty"`
	AccountID     string `json:"accountId,omitempty"`
	SessionID     string `json:"sessionId,omitempty"`
	AvatarURL     string `json:"avatarUrl,omitempty"`
	Authenticated bool   `json:"authenticated,omitempty"`
}

// Linked reports whether the account is tied to a remote host login.
// Unlinked accounts can still be switched to (commit identity only), but
// no credential wiring is possible for them.
func (a Account) Linked() bool {
	return a.Username != ""
}

// Matches reports whether b refers to the same identity as a. Username is
// the primary key; email is the fallback for unlinked records.
func (a Account) Matches(b Account) bool {
	if a.Username != "" && b.Username != "" {
		return a.Username == b.Username
	}
	return a.Email != "" && a.Email == b.Email
}

// MergeFrom refreshes a from a freshly fetched profile. Remote profile data
// is more authoritative than previously cached fields, so non-empty fields
// in fresh overwrite. The label is user-chosen and kept unless unset.
func (a *Account) MergeFrom(fresh Account) {
	if fresh.Name != "" {
		a.Name = fresh.Name
	}
	if fresh.Email != "" {
		a.Email = fresh.Email
	}
	if fresh.Username != "" {
		a.Username = fresh.Username
	}
	if fresh.AccountID != "" {
		a.AccountID = fresh.AccountID
	}
	if fresh.SessionID != "" {
		a.SessionID = fresh.SessionID
	}
	if fresh.AvatarURL != "" {
		a.AvatarURL = fresh.AvatarURL
	}
	if a.Label == "" {
		a.Label = fresh.Label
	}
}

// Find returns the index of the first account in accounts matching target,
// or -1 if none matches.
func Find(accounts []Account, target Account) int {
	for i := range accounts {
		if accounts[i].Matches(target) {
			return i
		}
	}
	return -1
}

// FindByLabel returns the index of the account with the given label, or -1.
func FindByLabel(accounts []Account, label string) int {
	for i := range accounts {
		if accounts[i].Label == label {
			return i
		}
	}
	return -1
}

// FindByUsername returns the index of the account with the given username,
// or -1.
func FindByUsername(accounts []Account, username string) int {
	if username == "" {
		return -1
	}
	for i := range accounts {
		if accounts[i].Username == username {
			return i
		}
	}
	return -1
}
