package auth

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/georgemunganga/insuite-backend/internal/modules/identity"
	"github.com/georgemunganga/insuite-backend/internal/modules/session"
)

// TokenVerifier validates bearer tokens. GetSession lets the gate make the provider notice a
// session that ended, so the store hears about it.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*identity.TokenClaims, error)
	GetSession(ctx context.Context) (*identity.Session, error)
}

type ctxKey struct{}

// SessionFrom returns the snapshot RequireSession stored on the request context.
func SessionFrom(ctx context.Context) (session.Snapshot, bool) {
	snap, ok := ctx.Value(ctxKey{}).(session.Snapshot)
	return snap, ok
}

// RequireSession lets a request through only when the store is authenticated and the request
// carries that session's valid bearer token. Everyone else is pointed at /login.
func RequireSession(store *session.Store, verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap := store.Current()
			if snap.Loading() {
				respond(w, http.StatusServiceUnavailable, map[string]string{"error": "session is loading"})
				return
			}
			if !snap.Authenticated() {
				unauthorized(w, "not signed in")
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "authorization header required")
				return
			}
			if token != snap.Token {
				unauthorized(w, "token does not match the current session")
				return
			}
			if _, err := verifier.VerifyToken(r.Context(), token); err != nil {
				if _, lookupErr := verifier.GetSession(r.Context()); lookupErr != nil {
					log.Printf("auth: session lookup after rejected token: %v", lookupErr)
				}
				unauthorized(w, err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, snap)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(h, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Location", "/login")
	respond(w, http.StatusUnauthorized, map[string]string{"error": msg, "redirect": "/login"})
}
