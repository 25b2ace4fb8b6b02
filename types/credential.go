package types

import "strings"

// Credential is an opaque account credential. The core never mutates it and
// never interprets Salt.
type Credential struct {
	Identifier string `json:"email" yaml:"email"`
	Secret     string `json:"password" yaml:"password"`
	Salt       string `json:"salt,omitempty" yaml:"salt,omitempty"`
}

// Valid reports whether both identifier and secret are present.
func (c Credential) Valid() bool {
	return strings.TrimSpace(c.Identifier) != "" && c.Secret != ""
}

// String never includes the secret.
func (c Credential) String() string {
	return c.Identifier
}

// Masked returns the identifier with the local part shortened, for logs.
func (c Credential) Masked() string {
	local, domain, ok := strings.Cut(c.Identifier, "@")
	if !ok || len(local) <= 2 {
		return c.Identifier
	}
	return local[:2] + strings.Repeat("*", len(local)-2) + "@" + domain
}
