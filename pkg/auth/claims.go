package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityClaims is the session token issued by the identity provider.
// The subject carries the provider's user id.
type IdentityClaims struct {
	Email          string   `json:"email,omitempty"`
	EmailAddresses []string `json:"email_addresses,omitempty"`
	Name           string   `json:"name,omitempty"`
	Username       string   `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// PrimaryEmail returns the primary email, else the first listed address.
func (c IdentityClaims) PrimaryEmail() string {
	if email := strings.TrimSpace(c.Email); email != "" {
		return email
	}
	for _, addr := range c.EmailAddresses {
		if addr = strings.TrimSpace(addr); addr != "" {
			return addr
		}
	}
	return ""
}

// IdentityPayload captures the data available when minting a development token.
type IdentityPayload struct {
	ExternalID     string
	Email          string
	EmailAddresses []string
	Name           string
	Username       string
}
