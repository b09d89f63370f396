package middleware

import (
	"net/http"

	"github.com/mcoot/playersync/internal/api/apierr"
)

// Authenticator reports whether a player is currently signed in
type Authenticator interface {
	IsAuthenticated() bool
}

// RequireSession rejects requests while no player is signed in
func RequireSession(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.IsAuthenticated() {
				apierr.WriteError(w, apierr.NewNotSignedInError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
