package shioritest

import "github.com/hughe/shiori-share/internal/shiori"

// Credentials is a static shiori.CredentialStore.
type Credentials struct {
	Value shiori.Credentials
	OK    bool
}

func (c Credentials) Credentials() (shiori.Credentials, bool) {
	return c.Value, c.OK
}

// Missing is a credential store with nothing configured.
var Missing = Credentials{}
