package identity

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/georgemunganga/insuite-backend/internal/modules/user"
	"github.com/google/uuid"
)

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*user.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*user.User)}
}

func (m *mockUserRepo) CreateUser(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return user.ErrEmailTaken
	}
	cp := *u
	m.users[u.Email] = &cp
	return nil
}

func (m *mockUserRepo) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) GetUserByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (m *mockUserRepo) ConfirmEmail(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			u.EmailConfirmedAt = &at
			return nil
		}
	}
	return user.ErrNotFound
}

type captureMailer struct {
	link string
	err  error
}

func (c *captureMailer) SendConfirmation(_ context.Context, _, link string) error {
	c.link = link
	return c.err
}

type recordedEvent struct {
	event   Event
	session *Session
}

func newTestProvider(requireConfirmation bool, mailer Mailer) (*LocalProvider, *[]recordedEvent) {
	p := NewLocalProvider(newMockUserRepo(), Options{
		Secret:                   "test-secret",
		SessionTTL:               time.Hour,
		RequireEmailConfirmation: requireConfirmation,
		Mailer:                   mailer,
	})
	var events []recordedEvent
	p.OnAuthStateChange(func(e Event, s *Session) {
		events = append(events, recordedEvent{e, s})
	})
	return p, &events
}

func TestSignUp_ImmediateSession(t *testing.T) {
	p, events := newTestProvider(false, nil)
	ctx := context.Background()

	resp, err := p.SignUp(ctx, " Owner@Example.com ", "secret1", SignUpOptions{})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if resp.Session == nil {
		t.Fatal("expected a session when confirmation is not required")
	}
	if resp.User.Email != "owner@example.com" {
		t.Errorf("email = %q, want owner@example.com", resp.User.Email)
	}
	if len(*events) != 1 || (*events)[0].event != EventSignedIn {
		t.Errorf("events = %+v, want one SIGNED_IN", *events)
	}

	current, err := p.GetSession(ctx)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if current == nil || current.AccessToken != resp.Session.AccessToken {
		t.Error("current session does not match sign-up session")
	}
}

func TestSignUp_Validation(t *testing.T) {
	p, _ := newTestProvider(false, nil)
	ctx := context.Background()

	if _, err := p.SignUp(ctx, "", "secret1", SignUpOptions{}); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("empty email: got %v, want ErrMissingCredentials", err)
	}
	if _, err := p.SignUp(ctx, "a@b.c", "123", SignUpOptions{}); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("short password: got %v, want ErrWeakPassword", err)
	}
	if _, err := p.SignUp(ctx, "a@b.c", "secret1", SignUpOptions{}); err != nil {
		t.Fatalf("first sign up: %v", err)
	}
	if _, err := p.SignUp(ctx, "a@b.c", "secret1", SignUpOptions{}); !errors.Is(err, user.ErrEmailTaken) {
		t.Errorf("duplicate: got %v, want ErrEmailTaken", err)
	}
}

func TestSignUp_ConfirmationFlow(t *testing.T) {
	mailer := &captureMailer{}
	p, events := newTestProvider(true, mailer)
	ctx := context.Background()

	resp, err := p.SignUp(ctx, "owner@example.com", "secret1", SignUpOptions{
		EmailRedirectTo: "https://insuite.netlify.app/auth/callback",
	})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if resp.Session != nil {
		t.Error("no session expected before confirmation")
	}
	if len(*events) != 0 {
		t.Errorf("unexpected events: %+v", *events)
	}
	if !strings.HasPrefix(mailer.link, "https://insuite.netlify.app/auth/callback?token=") {
		t.Fatalf("link = %q", mailer.link)
	}

	if _, err := p.SignInWithPassword(ctx, "owner@example.com", "secret1"); !errors.Is(err, ErrEmailNotConfirmed) {
		t.Errorf("sign in before confirm: got %v, want ErrEmailNotConfirmed", err)
	}

	link, _ := url.Parse(mailer.link)
	confirmed, err := p.ConfirmEmail(ctx, link.Query().Get("token"))
	if err != nil {
		t.Fatalf("ConfirmEmail: %v", err)
	}
	if !confirmed.Confirmed() {
		t.Error("user should be confirmed")
	}

	if _, err := p.SignInWithPassword(ctx, "owner@example.com", "secret1"); err != nil {
		t.Errorf("sign in after confirm: %v", err)
	}
}

func TestSignUp_MailerFailureMentionsConfirmationEmail(t *testing.T) {
	p, _ := newTestProvider(true, &captureMailer{err: errors.New("smtp down")})

	resp, err := p.SignUp(context.Background(), "owner@example.com", "secret1", SignUpOptions{
		EmailRedirectTo: "https://insuite.netlify.app/auth/callback",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "confirmation email") {
		t.Errorf("error %q should mention confirmation email", err)
	}
	if resp == nil || resp.User == nil {
		t.Error("user should still be returned")
	}
}

func TestConfirmEmail_RejectsAccessToken(t *testing.T) {
	p, _ := newTestProvider(false, nil)
	resp, err := p.SignUp(context.Background(), "owner@example.com", "secret1", SignUpOptions{})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if _, err := p.ConfirmEmail(context.Background(), resp.Session.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("got %v, want ErrInvalidToken", err)
	}
}

func TestSignInWithPassword_InvalidCredentials(t *testing.T) {
	p, events := newTestProvider(false, nil)
	ctx := context.Background()
	if _, err := p.SignUp(ctx, "owner@example.com", "secret1", SignUpOptions{}); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	*events = nil

	if _, err := p.SignInWithPassword(ctx, "owner@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("bad password: got %v", err)
	}
	if _, err := p.SignInWithPassword(ctx, "nobody@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: got %v", err)
	}
	if len(*events) != 0 {
		t.Errorf("failed sign-ins must not emit events: %+v", *events)
	}
}

func TestSignOut_RevokesAndEmits(t *testing.T) {
	p, events := newTestProvider(false, nil)
	ctx := context.Background()
	resp, err := p.SignUp(ctx, "owner@example.com", "secret1", SignUpOptions{})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	if _, err := p.VerifyToken(ctx, resp.Session.AccessToken); err != nil {
		t.Fatalf("VerifyToken before sign out: %v", err)
	}
	if err := p.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}

	last := (*events)[len(*events)-1]
	if last.event != EventSignedOut || last.session != nil {
		t.Errorf("last event = %+v, want SIGNED_OUT with nil session", last)
	}
	if s, _ := p.GetSession(ctx); s != nil {
		t.Error("session should be gone after sign out")
	}
	if _, err := p.VerifyToken(ctx, resp.Session.AccessToken); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("VerifyToken after sign out: got %v, want ErrTokenRevoked", err)
	}
}

func TestRefreshSession(t *testing.T) {
	p, events := newTestProvider(false, nil)
	ctx := context.Background()

	if _, err := p.RefreshSession(ctx); !errors.Is(err, ErrNoSession) {
		t.Errorf("refresh without session: got %v, want ErrNoSession", err)
	}

	resp, err := p.SignUp(ctx, "owner@example.com", "secret1", SignUpOptions{})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	refreshed, err := p.RefreshSession(ctx)
	if err != nil {
		t.Fatalf("RefreshSession: %v", err)
	}
	if refreshed.AccessToken == resp.Session.AccessToken {
		t.Error("refresh should issue a new token")
	}
	if last := (*events)[len(*events)-1]; last.event != EventTokenRefreshed {
		t.Errorf("last event = %s, want TOKEN_REFRESHED", last.event)
	}
	if _, err := p.VerifyToken(ctx, resp.Session.AccessToken); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("old token: got %v, want ErrTokenRevoked", err)
	}
	if _, err := p.VerifyToken(ctx, refreshed.AccessToken); err != nil {
		t.Errorf("new token: %v", err)
	}
}

func TestGetSession_Expired(t *testing.T) {
	p, events := newTestProvider(false, nil)
	ctx := context.Background()
	if _, err := p.SignUp(ctx, "owner@example.com", "secret1", SignUpOptions{}); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	p.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	s, err := p.GetSession(ctx)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if s != nil {
		t.Error("expired session should be reported as absent")
	}
	last := (*events)[len(*events)-1]
	if last.event != EventSignedOut || last.session != nil {
		t.Errorf("last event = %+v, want SIGNED_OUT after expiry", last)
	}

	n := len(*events)
	if _, err := p.GetSession(ctx); err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if len(*events) != n {
		t.Error("a second lookup must not emit again")
	}
}

func TestGetSession_RevokedElsewhere(t *testing.T) {
	revocations := NewMemoryRevocationList()
	p := NewLocalProvider(newMockUserRepo(), Options{Secret: "test-secret", Revocations: revocations})
	ctx := context.Background()
	resp, err := p.SignUp(ctx, "owner@example.com", "secret1", SignUpOptions{})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	var got []Event
	p.OnAuthStateChange(func(e Event, _ *Session) { got = append(got, e) })

	claims, err := p.VerifyToken(ctx, resp.Session.AccessToken)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if err := revocations.Revoke(ctx, claims.ID, time.Hour); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	if s, _ := p.GetSession(ctx); s != nil {
		t.Error("revoked session should be reported as absent")
	}
	if len(got) != 1 || got[0] != EventSignedOut {
		t.Errorf("events = %v, want [SIGNED_OUT]", got)
	}
}

type failingRevocations struct{ RevocationList }

func (failingRevocations) Revoke(context.Context, string, time.Duration) error {
	return errors.New("redis unavailable")
}

func TestRefreshSession_RevokeFailureStillRotates(t *testing.T) {
	p := NewLocalProvider(newMockUserRepo(), Options{
		Secret:      "test-secret",
		Revocations: failingRevocations{NewMemoryRevocationList()},
	})
	ctx := context.Background()
	resp, err := p.SignUp(ctx, "owner@example.com", "secret1", SignUpOptions{})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	refreshed, err := p.RefreshSession(ctx)
	if err != nil {
		t.Fatalf("RefreshSession: %v", err)
	}
	if refreshed.AccessToken == resp.Session.AccessToken {
		t.Error("refresh should issue a new token even when revoking the old one fails")
	}
	if !strings.Contains(buf.String(), "revoke superseded token") || !strings.Contains(buf.String(), "redis unavailable") {
		t.Errorf("revocation failure not logged: %q", buf.String())
	}
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	p, _ := newTestProvider(false, nil)
	resp, err := p.SignUp(context.Background(), "owner@example.com", "secret1", SignUpOptions{})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	other := NewLocalProvider(newMockUserRepo(), Options{Secret: "other-secret"})
	if _, err := other.VerifyToken(context.Background(), resp.Session.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("got %v, want ErrInvalidToken", err)
	}
}

func TestOnAuthStateChange_Unsubscribe(t *testing.T) {
	p := NewLocalProvider(newMockUserRepo(), Options{Secret: "test-secret"})
	var calls int
	sub := p.OnAuthStateChange(func(Event, *Session) { calls++ })

	_ = p.SignOut(context.Background())
	sub.Unsubscribe()
	sub.Unsubscribe()
	_ = p.SignOut(context.Background())

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
