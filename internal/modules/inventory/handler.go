package inventory

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Handler exposes inventory HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/inventory", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		log.Printf("inventory: error fetching inventory: %v", err)
		respond(w, http.StatusInternalServerError, map[string]string{"error": "Error fetching inventory: " + err.Error()})
		return
	}
	respond(w, http.StatusOK, items)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	it, err := h.service.Create(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrMissingFields) {
			respond(w, http.StatusBadRequest, map[string]string{"error": "Product name, quantity, price, and cost are required."})
			return
		}
		log.Printf("inventory: error adding item: %v", err)
		respond(w, http.StatusInternalServerError, map[string]string{"error": "Failed to add item: " + err.Error()})
		return
	}
	respond(w, http.StatusCreated, it)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var item Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	it, err := h.service.Update(r.Context(), id, item)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("inventory: error updating item %d: %v", id, err)
		respond(w, http.StatusInternalServerError, map[string]string{"error": "Failed to update item: " + err.Error()})
		return
	}
	respond(w, http.StatusOK, it)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			respond(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("inventory: error deleting item %d: %v", id, err)
		respond(w, http.StatusInternalServerError, map[string]string{"error": "Failed to delete item: " + err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
