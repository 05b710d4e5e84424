package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/georgemunganga/insuite-backend/internal/modules/identity"
	"github.com/georgemunganga/insuite-backend/internal/modules/user"
	"github.com/go-chi/chi/v5"
)

// Handler exposes registration, login and session endpoints.
type Handler struct{ gateway *Gateway }

func NewHandler(gateway *Gateway) *Handler { return &Handler{gateway: gateway} }

// RegisterRoutes mounts the public auth routes on router and the signed-in ones behind gate.
func (h *Handler) RegisterRoutes(router chi.Router, gate func(http.Handler) http.Handler) {
	router.Get("/auth/callback", h.confirm)
	router.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Get("/session", h.session)

		r.Group(func(r chi.Router) {
			r.Use(gate)
			r.Post("/logout", h.logout)
			r.Post("/refresh", h.refresh)
		})
	})
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	result := h.gateway.SignUp(r.Context(), req.Email, req.Password)
	switch result.Status {
	case SignUpComplete:
		respond(w, http.StatusCreated, map[string]interface{}{
			"status": result.Status.String(),
			"user":   result.User,
		})
	case SignUpPendingConfirmation:
		respond(w, http.StatusCreated, map[string]interface{}{
			"status":  result.Status.String(),
			"message": "Your account has been created. Please check your email (including spam folder) for a confirmation link.",
		})
	default:
		code := http.StatusInternalServerError
		switch {
		case errors.Is(result.Err, identity.ErrMissingCredentials), errors.Is(result.Err, identity.ErrWeakPassword):
			code = http.StatusBadRequest
		case errors.Is(result.Err, user.ErrEmailTaken):
			code = http.StatusConflict
		default:
			log.Printf("auth: sign up failed: %v", result.Err)
		}
		respond(w, code, map[string]string{"error": result.Err.Error()})
	}
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s, err := h.gateway.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		code := http.StatusInternalServerError
		switch {
		case errors.Is(err, identity.ErrMissingCredentials):
			code = http.StatusBadRequest
		case errors.Is(err, identity.ErrInvalidCredentials):
			code = http.StatusUnauthorized
		case errors.Is(err, identity.ErrEmailNotConfirmed):
			code = http.StatusForbidden
		default:
			log.Printf("auth: sign in failed: %v", err)
		}
		respond(w, code, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, s)
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respond(w, http.StatusBadRequest, map[string]string{"error": "token is required"})
		return
	}
	u, err := h.gateway.ConfirmEmail(r.Context(), token)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, identity.ErrInvalidToken) || errors.Is(err, user.ErrNotFound) {
			code = http.StatusBadRequest
		}
		respond(w, code, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "email confirmed", "email": u.Email})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	snap := h.gateway.Session(r.Context())
	body := map[string]interface{}{
		"state":   snap.State.String(),
		"loading": snap.Loading(),
	}
	if snap.User != nil {
		body["email"] = snap.User.Email
		body["expires_at"] = snap.ExpiresAt
	}
	respond(w, http.StatusOK, body)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.gateway.SignOut(r.Context()); err != nil {
		log.Printf("auth: provider sign out failed: %v", err)
		respond(w, http.StatusOK, map[string]string{"status": "signed out", "warning": err.Error()})
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "signed out"})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	s, err := h.gateway.Refresh(r.Context())
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, identity.ErrNoSession) {
			code = http.StatusUnauthorized
		}
		respond(w, code, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, s)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
