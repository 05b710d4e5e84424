package dashboard

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Handler struct{ service *Service }

func NewHandler(service *Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/dashboard", h.summary)
}

type summaryResponse struct {
	Summary
	Display struct {
		TotalSales string `json:"total_sales"`
		TotalCost  string `json:"total_cost"`
		Profit     string `json:"profit"`
	} `json:"display"`
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.Summary(r.Context())
	if err != nil {
		log.Printf("dashboard: error fetching data: %v", err)
		respond(w, http.StatusInternalServerError, map[string]string{"error": "Error fetching dashboard data: " + err.Error()})
		return
	}

	resp := summaryResponse{Summary: sum}
	resp.Display.TotalSales = sum.TotalSales.StringFixed(2)
	resp.Display.TotalCost = sum.TotalCost.StringFixed(2)
	resp.Display.Profit = sum.Profit.StringFixed(2)
	respond(w, http.StatusOK, resp)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
