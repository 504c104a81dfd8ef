package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is what the access token says about the signed-in account.
// Claims are read unverified: the token was issued to us, and it is only
// used for display, never for authorization decisions.
type Identity struct {
	Username string
	Name     string
	TenantID string
	Expires  time.Time
}

// ParseIdentity extracts display claims from an access token.
func ParseIdentity(accessToken string) (*Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil, fmt.Errorf("auth: parsing token claims: %w", err)
	}

	id := &Identity{
		Username: stringClaim(claims, "preferred_username"),
		Name:     stringClaim(claims, "name"),
		TenantID: stringClaim(claims, "tid"),
	}
	if id.Username == "" {
		id.Username = stringClaim(claims, "upn")
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.Expires = exp.Time
	}

	return id, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
