package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/georgemunganga/insuite-backend/internal/modules/user"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	purposeAccess  = "access"
	purposeConfirm = "confirm"

	confirmationTTL   = 24 * time.Hour
	minPasswordLength = 6
)

type claims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.StandardClaims
}

// Options configures a LocalProvider.
type Options struct {
	Secret                   string
	SessionTTL               time.Duration
	RequireEmailConfirmation bool
	Revocations              RevocationList
	Mailer                   Mailer
	// Clock defaults to time.Now.
	Clock                    func() time.Time
}

// LocalProvider issues HS256 sessions for users stored in a user.Repository and tracks the
// session of the application instance it serves.
type LocalProvider struct {
	users               user.Repository
	revocations         RevocationList
	mailer              Mailer
	secret              []byte
	ttl                 time.Duration
	requireConfirmation bool
	now                 func() time.Time

	mu        sync.Mutex
	current   *Session
	listeners map[int]Listener
	nextID    int
}

// NewLocalProvider creates a provider backed by users.
func NewLocalProvider(users user.Repository, opts Options) *LocalProvider {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = time.Hour
	}
	if opts.Revocations == nil {
		opts.Revocations = NewMemoryRevocationList()
	}
	if opts.Mailer == nil {
		opts.Mailer = LogMailer{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &LocalProvider{
		users:               users,
		revocations:         opts.Revocations,
		mailer:              opts.Mailer,
		secret:              []byte(opts.Secret),
		ttl:                 opts.SessionTTL,
		requireConfirmation: opts.RequireEmailConfirmation,
		now:                 opts.Clock,
		listeners:           make(map[int]Listener),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (p *LocalProvider) SignUp(ctx context.Context, email, password string, opts SignUpOptions) (*SignUpResponse, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &user.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hashedPassword),
	}
	if !p.requireConfirmation {
		now := p.now()
		u.EmailConfirmedAt = &now
	}
	if err := p.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	if p.requireConfirmation {
		link, err := p.confirmationLink(u, opts.EmailRedirectTo)
		if err != nil {
			return nil, err
		}
		if err := p.mailer.SendConfirmation(ctx, u.Email, link); err != nil {
			return &SignUpResponse{User: u}, fmt.Errorf("error sending confirmation email: %w", err)
		}
		return &SignUpResponse{User: u}, nil
	}

	session, err := p.issue(u)
	if err != nil {
		return nil, err
	}
	p.replaceCurrent(ctx, session)
	p.emit(EventSignedIn, session)
	return &SignUpResponse{User: u, Session: session}, nil
}

func (p *LocalProvider) confirmationLink(u *user.User, redirectTo string) (string, error) {
	now := p.now()
	c := &claims{
		Email:   u.Email,
		Purpose: purposeConfirm,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Subject:   u.ID.String(),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(confirmationTTL).Unix(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(p.secret)
	if err != nil {
		return "", err
	}

	target, err := url.Parse(redirectTo)
	if err != nil {
		return "", fmt.Errorf("invalid email redirect: %w", err)
	}
	q := target.Query()
	q.Set("token", token)
	target.RawQuery = q.Encode()
	return target.String(), nil
}

func (p *LocalProvider) ConfirmEmail(ctx context.Context, token string) (*user.User, error) {
	c, err := p.parse(token, purposeConfirm)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if err := p.users.ConfirmEmail(ctx, id, p.now()); err != nil {
		return nil, err
	}
	return p.users.GetUserByID(ctx, id)
}

func (p *LocalProvider) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	u, err := p.users.GetUserByEmail(ctx, email)
	if errors.Is(err, user.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if p.requireConfirmation && !u.Confirmed() {
		return nil, ErrEmailNotConfirmed
	}

	session, err := p.issue(u)
	if err != nil {
		return nil, err
	}
	p.replaceCurrent(ctx, session)
	p.emit(EventSignedIn, session)
	return session, nil
}

// SignOut drops the current session locally, then revokes its token.
func (p *LocalProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	prev := p.current
	p.current = nil
	p.mu.Unlock()

	var err error
	if prev != nil {
		err = p.revoke(ctx, prev)
	}
	p.emit(EventSignedOut, nil)
	return err
}

// GetSession returns the current session, or nil when signed out. A current session found expired
// or revoked is dropped and SIGNED_OUT is emitted.
func (p *LocalProvider) GetSession(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	session := p.current
	p.mu.Unlock()
	if session == nil {
		return nil, nil
	}

	if !p.now().Before(session.ExpiresAt) {
		p.drop(session)
		return nil, nil
	}
	revoked, err := p.revocations.IsRevoked(ctx, session.tokenID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		p.drop(session)
		return nil, nil
	}
	return session, nil
}

// drop clears session if it is still current and tells listeners it ended.
func (p *LocalProvider) drop(session *Session) {
	p.mu.Lock()
	if p.current != session {
		p.mu.Unlock()
		return
	}
	p.current = nil
	p.mu.Unlock()
	p.emit(EventSignedOut, nil)
}

func (p *LocalProvider) RefreshSession(ctx context.Context) (*Session, error) {
	current, err := p.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNoSession
	}

	session, err := p.issue(current.User)
	if err != nil {
		return nil, err
	}
	p.replaceCurrent(ctx, session)
	p.emit(EventTokenRefreshed, session)
	return session, nil
}

func (p *LocalProvider) VerifyToken(ctx context.Context, token string) (*TokenClaims, error) {
	c, err := p.parse(token, purposeAccess)
	if err != nil {
		return nil, err
	}
	revoked, err := p.revocations.IsRevoked(ctx, c.Id)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return &TokenClaims{
		ID:        c.Id,
		UserID:    c.Subject,
		Email:     c.Email,
		ExpiresAt: time.Unix(c.ExpiresAt, 0),
	}, nil
}

func (p *LocalProvider) OnAuthStateChange(listener Listener) Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = listener
	return &subscription{provider: p, id: id}
}

type subscription struct {
	provider *LocalProvider
	id       int
	once     sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.provider.mu.Lock()
		delete(s.provider.listeners, s.id)
		s.provider.mu.Unlock()
	})
}

func (p *LocalProvider) emit(event Event, session *Session) {
	p.mu.Lock()
	listeners := make([]Listener, 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l)
	}
	p.mu.Unlock()

	for _, l := range listeners {
		l(event, session)
	}
}

func (p *LocalProvider) issue(u *user.User) (*Session, error) {
	now := p.now()
	expiresAt := now.Add(p.ttl)
	c := &claims{
		Email:   u.Email,
		Purpose: purposeAccess,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Subject:   u.ID.String(),
			IssuedAt:  now.Unix(),
			ExpiresAt: expiresAt.Unix(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(p.secret)
	if err != nil {
		return nil, err
	}
	return &Session{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   time.Unix(c.ExpiresAt, 0),
		User:        u,
		tokenID:     c.Id,
	}, nil
}

// replaceCurrent installs session and revokes whichever token it supersedes.
func (p *LocalProvider) replaceCurrent(ctx context.Context, session *Session) {
	p.mu.Lock()
	prev := p.current
	p.current = session
	p.mu.Unlock()

	if prev != nil && prev.tokenID != session.tokenID {
		if err := p.revoke(ctx, prev); err != nil {
			log.Printf("identity: revoke superseded token %s: %v", prev.tokenID, err)
		}
	}
}

func (p *LocalProvider) revoke(ctx context.Context, session *Session) error {
	return p.revocations.Revoke(ctx, session.tokenID, session.ExpiresAt.Sub(p.now()))
}

func (p *LocalProvider) parse(tokenString, purpose string) (*claims, error) {
	c := &claims{}
	// expiry is checked below against the provider clock
	parser := &jwt.Parser{SkipClaimsValidation: true}
	token, err := parser.ParseWithClaims(tokenString, c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if !c.VerifyExpiresAt(p.now().Unix(), true) {
		return nil, ErrInvalidToken
	}
	if c.Purpose != purpose {
		return nil, ErrInvalidToken
	}
	return c, nil
}
