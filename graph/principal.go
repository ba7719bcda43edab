package graph

import (
	"github.com/golang-jwt/jwt/v5"
)

// Principal extracts the signed-in account from a Graph access token
// without verifying the signature; the token was just issued to us, the
// claims are only used to confirm which account answered the login.
func Principal(token string) string {
	var claims jwt.MapClaims
	if _, _, err := new(jwt.Parser).ParseUnverified(token, &claims); err != nil {
		return ""
	}
	for _, key := range []string{"preferred_username", "upn", "email", "sub"} {
		if v, _ := claims[key].(string); v != "" {
			return v
		}
	}
	return ""
}
