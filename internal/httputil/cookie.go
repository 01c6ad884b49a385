package httputil

import (
	"net/http"
	"strings"
)

// DefaultTokenCookie is the cookie the web client stores its access token in.
const DefaultTokenCookie = "access_token"

// GetAccessTokenFromCookie extracts the access token from the named cookie.
func GetAccessTokenFromCookie(r *http.Request, name string) (string, bool) {
	if name == "" {
		name = DefaultTokenCookie
	}
	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// GetBearerToken extracts a bearer token from the Authorization header.
func GetBearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
