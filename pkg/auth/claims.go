package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID    string
	Email     string
	FullName  string
	SessionID string
}

// UserMetadata is the provider-managed profile blob carried in the token.
type UserMetadata struct {
	FullName string `json:"full_name,omitempty"`
	Name     string `json:"name,omitempty"`
}

// AccessTokenClaims mirrors the access tokens issued by the hosted identity provider.
type AccessTokenClaims struct {
	Email        string       `json:"email"`
	SessionID    string       `json:"session_id"`
	UserMetadata UserMetadata `json:"user_metadata"`
	jwt.RegisteredClaims
}

// DisplayName prefers full_name and falls back to name.
func (c *AccessTokenClaims) DisplayName() string {
	if c == nil {
		return ""
	}
	if name := strings.TrimSpace(c.UserMetadata.FullName); name != "" {
		return name
	}
	return strings.TrimSpace(c.UserMetadata.Name)
}

// RevocationID is the identifier used to sign a token's session out.
func (c *AccessTokenClaims) RevocationID() string {
	if c == nil {
		return ""
	}
	if c.SessionID != "" {
		return c.SessionID
	}
	return c.ID
}
