package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/rl1809/seckill/internal/core/service"
	"github.com/rl1809/seckill/internal/port"
)

type HTTPHandler struct {
	purchases *service.PurchaseService
	db        port.DatabaseRepository
}

type ItemResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Stock int64  `json:"stock"`
}

type PurchaseResponse struct {
	Remaining int64 `json:"remaining"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(purchases *service.PurchaseService, db port.DatabaseRepository) *HTTPHandler {
	return &HTTPHandler{purchases: purchases, db: db}
}

// NewRouter builds the public surface. The rate limiter gates only the
// purchase route; the catalog read is unmetered.
func NewRouter(h *HTTPHandler, limiter *service.RateLimiter) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)

	r.Get("/health", h.HealthCheck)
	r.Get("/items", h.ListItems)
	r.With(RateLimit(limiter)).Post("/purchase/{id}", h.Purchase)

	return r
}

func (h *HTTPHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.db.ListItems(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list items")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch items"})
		return
	}

	resp := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, ItemResponse{ID: item.ID, Name: item.Name, Stock: item.Stock})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid item id"})
		return
	}

	remaining, err := h.purchases.Purchase(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, service.ErrSoldOut) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "sold out"})
			return
		}
		log.Error().Err(err).Int64("item_id", itemID).Msg("purchase failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "purchase failed, please try again"})
		return
	}

	writeJSON(w, http.StatusOK, PurchaseResponse{Remaining: remaining})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
