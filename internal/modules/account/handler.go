package account

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/georgemunganga/insuite-backend/internal/modules/auth"
	"github.com/go-chi/chi/v5"
)

type Handler struct{ service *Service }

func NewHandler(service *Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/account", func(r chi.Router) {
		r.Get("/", h.get)
		r.Post("/reset", h.reset)
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	snap, ok := auth.SessionFrom(r.Context())
	if !ok || snap.User == nil {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "not signed in"})
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{
		"email":   snap.User.Email,
		"warning": "Resetting deletes all sales and inventory data. This cannot be undone.",
	})
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ResetAllData(r.Context()); err != nil {
		log.Printf("account: error resetting data: %v", err)
		respond(w, http.StatusInternalServerError, map[string]string{"error": "Failed to reset data: " + err.Error()})
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "All data has been successfully reset."})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
