package sales

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/georgemunganga/insuite-backend/internal/modules/inventory"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// Handler exposes sales HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/sales", func(r chi.Router) {
		r.Get("/", h.list)    // GET  /api/v1/sales
		r.Post("/", h.create) // POST /api/v1/sales
	})
}

type saleView struct {
	*Sale
	Total        decimal.Decimal `json:"total"`
	PriceDisplay string          `json:"price_display"`
	TotalDisplay string          `json:"total_display"`
}

func newSaleView(s *Sale) saleView {
	total := s.Total()
	return saleView{
		Sale:         s,
		Total:        total,
		PriceDisplay: s.Price.StringFixed(2),
		TotalDisplay: total.StringFixed(2),
	}
}

type listResponse struct {
	Sales    []saleView        `json:"sales"`
	Products []*inventory.Item `json:"products"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		log.Printf("sales: error fetching sales: %v", err)
		respond(w, http.StatusInternalServerError, map[string]string{"error": "Error fetching sales: " + err.Error()})
		return
	}
	products, err := h.service.Products(r.Context())
	if err != nil {
		log.Printf("sales: error fetching products: %v", err)
		respond(w, http.StatusInternalServerError, map[string]string{"error": "Error fetching products: " + err.Error()})
		return
	}

	views := make([]saleView, 0, len(list))
	for _, s := range list {
		views = append(views, newSaleView(s))
	}
	respond(w, http.StatusOK, listResponse{Sales: views, Products: products})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	sale, err := h.service.CreateSale(r.Context(), req)
	if err != nil {
		var partial *PartialSaleError
		switch {
		case errors.Is(err, ErrSelectionRequired):
			respond(w, http.StatusBadRequest, map[string]string{"error": "Please select a product and enter a quantity."})
		case errors.Is(err, ErrProductNotFound):
			respond(w, http.StatusBadRequest, map[string]string{"error": "Selected product not found in inventory."})
		case errors.Is(err, ErrInsufficientStock):
			respond(w, http.StatusBadRequest, map[string]string{"error": "Quantity exceeds available inventory."})
		case errors.As(err, &partial):
			respond(w, http.StatusBadGateway, map[string]interface{}{"error": partial.Error(), "sale": newSaleView(partial.Sale)})
		default:
			log.Printf("sales: error adding sale: %v", err)
			respond(w, http.StatusInternalServerError, map[string]string{"error": "Failed to add sale: " + err.Error()})
		}
		return
	}
	respond(w, http.StatusCreated, newSaleView(sale))
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
