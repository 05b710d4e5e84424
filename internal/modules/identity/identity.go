package identity

import (
	"context"
	"errors"
	"time"

	"github.com/georgemunganga/insuite-backend/internal/modules/user"
)

var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrWeakPassword       = errors.New("password should be at least 6 characters")
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrNoSession          = errors.New("no active session")
)

// Event names a change in the provider's current session.
type Event string

const (
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
)

// Session is an issued access token and the user it belongs to.
type Session struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresAt   time.Time  `json:"expires_at"`
	User        *user.User `json:"user"`

	tokenID string
}

// TokenClaims is what VerifyToken extracts from a valid access token.
type TokenClaims struct {
	ID        string
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// Listener receives every session change. session is nil after sign-out.
type Listener func(event Event, session *Session)

// Subscription is returned by OnAuthStateChange.
type Subscription interface {
	Unsubscribe()
}

type SignUpOptions struct {
	// EmailRedirectTo is the page the confirmation link points at.
	EmailRedirectTo string
}

// SignUpResponse carries the created user. Session is nil while the email awaits confirmation.
type SignUpResponse struct {
	User    *user.User `json:"user"`
	Session *Session   `json:"session,omitempty"`
}

// Provider is the identity service the rest of the application authenticates against.
type Provider interface {
	SignUp(ctx context.Context, email, password string, opts SignUpOptions) (*SignUpResponse, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	GetSession(ctx context.Context) (*Session, error)
	RefreshSession(ctx context.Context) (*Session, error)
	ConfirmEmail(ctx context.Context, token string) (*user.User, error)
	VerifyToken(ctx context.Context, token string) (*TokenClaims, error)
	OnAuthStateChange(listener Listener) Subscription
}
