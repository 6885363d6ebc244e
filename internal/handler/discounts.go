package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/wingbros-pos/api/internal/database"
)

// DiscountStore defines the database methods needed by discount handlers.
type DiscountStore interface {
	ListDiscounts(ctx context.Context) ([]database.Discount, error)
	CreateDiscount(ctx context.Context, arg database.CreateDiscountParams) (database.Discount, error)
	UpdateDiscount(ctx context.Context, arg database.UpdateDiscountParams) (database.Discount, error)
	DeleteDiscount(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	CountOrderDetailsByDiscount(ctx context.Context, discountID uuid.UUID) (int64, error)
}

// DiscountHandler handles discount endpoints. Percentage edits only affect
// future orders; placed orders keep the percentage snapshotted on their lines.
type DiscountHandler struct {
	store DiscountStore
}

// NewDiscountHandler creates a new DiscountHandler.
func NewDiscountHandler(store DiscountStore) *DiscountHandler {
	return &DiscountHandler{store: store}
}

// RegisterRoutes registers discount endpoints on the given Chi router.
func (h *DiscountHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

type discountRequest struct {
	Name       string `json:"name"`
	Percentage string `json:"percentage"`
}

type discountResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Percentage string    `json:"percentage"`
}

func toDiscountResponse(d database.Discount) discountResponse {
	return discountResponse{ID: d.ID, Name: d.Name, Percentage: numericToString(d.Percentage)}
}

func parseDiscountRequest(w http.ResponseWriter, r *http.Request) (database.CreateDiscountParams, bool) {
	var req discountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return database.CreateDiscountParams{}, false
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return database.CreateDiscountParams{}, false
	}
	pct, err := decimal.NewFromString(req.Percentage)
	if err != nil || pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "percentage must be between 0 and 100"})
		return database.CreateDiscountParams{}, false
	}
	num, err := decimalToNumeric(pct)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid percentage"})
		return database.CreateDiscountParams{}, false
	}
	return database.CreateDiscountParams{Name: req.Name, Percentage: num}, true
}

// List returns all discounts.
func (h *DiscountHandler) List(w http.ResponseWriter, r *http.Request) {
	discounts, err := h.store.ListDiscounts(r.Context())
	if err != nil {
		log.Printf("ERROR: list discounts: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	resp := make([]discountResponse, len(discounts))
	for i, d := range discounts {
		resp[i] = toDiscountResponse(d)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a discount.
func (h *DiscountHandler) Create(w http.ResponseWriter, r *http.Request) {
	params, ok := parseDiscountRequest(w, r)
	if !ok {
		return
	}
	discount, err := h.store.CreateDiscount(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: create discount: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, toDiscountResponse(discount))
}

// Update edits a discount.
func (h *DiscountHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid discount id"})
		return
	}
	params, ok := parseDiscountRequest(w, r)
	if !ok {
		return
	}
	discount, err := h.store.UpdateDiscount(r.Context(), database.UpdateDiscountParams{
		ID:         id,
		Name:       params.Name,
		Percentage: params.Percentage,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "discount not found"})
			return
		}
		log.Printf("ERROR: update discount: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toDiscountResponse(discount))
}

// Delete removes a discount unless order history references it.
func (h *DiscountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid discount id"})
		return
	}

	count, err := h.store.CountOrderDetailsByDiscount(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: count order details by discount: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if count > 0 {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": fmt.Sprintf("discount is referenced by %d order line(s)", count),
		})
		return
	}

	if _, err := h.store.DeleteDiscount(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "discount not found"})
			return
		}
		log.Printf("ERROR: delete discount: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
