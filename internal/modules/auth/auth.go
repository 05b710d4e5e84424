package auth

import (
	"context"
	"log"
	"strings"

	"github.com/georgemunganga/insuite-backend/internal/modules/identity"
	"github.com/georgemunganga/insuite-backend/internal/modules/session"
	"github.com/georgemunganga/insuite-backend/internal/modules/user"
)

// Provider is the subset of the identity provider the gateway drives.
type Provider interface {
	SignUp(ctx context.Context, email, password string, opts identity.SignUpOptions) (*identity.SignUpResponse, error)
	SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error)
	SignOut(ctx context.Context) error
	RefreshSession(ctx context.Context) (*identity.Session, error)
	GetSession(ctx context.Context) (*identity.Session, error)
	ConfirmEmail(ctx context.Context, token string) (*user.User, error)
}

// SignUpStatus tells a registration form what to show next.
type SignUpStatus int

const (
	SignUpFailed SignUpStatus = iota
	SignUpComplete
	SignUpPendingConfirmation
)

func (s SignUpStatus) String() string {
	switch s {
	case SignUpComplete:
		return "complete"
	case SignUpPendingConfirmation:
		return "pending_confirmation"
	default:
		return "failed"
	}
}

type SignUpResult struct {
	Status SignUpStatus
	User   *user.User
	Err    error
}

// IsConfirmationPending reports whether a provider sign-up error only means the confirmation
// email is still on its way. The provider signals this through its message text alone.
func IsConfirmationPending(err error) bool {
	return err != nil && strings.Contains(err.Error(), "confirmation email")
}

// Gateway wraps the identity provider for handlers and keeps the session store in step.
type Gateway struct {
	provider   Provider
	store      *session.Store
	redirectTo string
}

func NewGateway(provider Provider, store *session.Store, redirectTo string) *Gateway {
	return &Gateway{provider: provider, store: store, redirectTo: redirectTo}
}

func (g *Gateway) SignUp(ctx context.Context, email, password string) SignUpResult {
	resp, err := g.provider.SignUp(ctx, email, password, identity.SignUpOptions{EmailRedirectTo: g.redirectTo})
	var u *user.User
	if resp != nil {
		u = resp.User
	}
	switch {
	case err == nil && resp != nil && resp.Session != nil:
		return SignUpResult{Status: SignUpComplete, User: u}
	case err == nil:
		return SignUpResult{Status: SignUpPendingConfirmation, User: u}
	case IsConfirmationPending(err):
		return SignUpResult{Status: SignUpPendingConfirmation, User: u, Err: err}
	default:
		return SignUpResult{Status: SignUpFailed, Err: err}
	}
}

// SignIn authenticates; the store picks the new session up from the provider's change event.
func (g *Gateway) SignIn(ctx context.Context, email, password string) (*identity.Session, error) {
	return g.provider.SignInWithPassword(ctx, email, password)
}

// SignOut asks the provider to end the session, then clears the store whatever the outcome.
// The provider error is still returned.
func (g *Gateway) SignOut(ctx context.Context) error {
	err := g.provider.SignOut(ctx)
	g.store.Clear()
	return err
}

func (g *Gateway) Refresh(ctx context.Context) (*identity.Session, error) {
	return g.provider.RefreshSession(ctx)
}

func (g *Gateway) ConfirmEmail(ctx context.Context, token string) (*user.User, error) {
	return g.provider.ConfirmEmail(ctx, token)
}

// Session asks the provider for the current session first, so an expiry it detects reaches
// the store before the store's view is returned.
func (g *Gateway) Session(ctx context.Context) session.Snapshot {
	if _, err := g.provider.GetSession(ctx); err != nil {
		log.Printf("auth: session lookup failed: %v", err)
	}
	return g.store.Current()
}
