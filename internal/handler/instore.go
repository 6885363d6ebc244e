package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/wingbros-pos/api/internal/database"
)

// InstoreCategoryStore defines the database methods needed by in-store
// category handlers.
type InstoreCategoryStore interface {
	ListInstoreCategories(ctx context.Context) ([]database.InstoreCategory, error)
	CreateInstoreCategory(ctx context.Context, arg database.CreateInstoreCategoryParams) (database.InstoreCategory, error)
	UpdateInstoreCategory(ctx context.Context, arg database.UpdateInstoreCategoryParams) (database.InstoreCategory, error)
}

// InstoreCategoryHandler handles the flat-rate bundles sold in store, such as
// the unlimited wings packages. Each category carries the base amount billed
// once per order group.
type InstoreCategoryHandler struct {
	store InstoreCategoryStore
}

// NewInstoreCategoryHandler creates a new InstoreCategoryHandler.
func NewInstoreCategoryHandler(store InstoreCategoryStore) *InstoreCategoryHandler {
	return &InstoreCategoryHandler{store: store}
}

// RegisterRoutes registers in-store category endpoints on the given Chi router.
func (h *InstoreCategoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
}

type instoreCategoryRequest struct {
	Name       string `json:"name"`
	BaseAmount string `json:"base_amount"`
}

type instoreCategoryResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	BaseAmount string    `json:"base_amount"`
}

func toInstoreCategoryResponse(c database.InstoreCategory) instoreCategoryResponse {
	return instoreCategoryResponse{ID: c.ID, Name: c.Name, BaseAmount: numericToString(c.BaseAmount)}
}

func parseInstoreCategoryRequest(w http.ResponseWriter, r *http.Request) (database.CreateInstoreCategoryParams, bool) {
	var req instoreCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return database.CreateInstoreCategoryParams{}, false
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return database.CreateInstoreCategoryParams{}, false
	}
	amount, err := decimal.NewFromString(req.BaseAmount)
	if err != nil || amount.IsNegative() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "base_amount must be a non-negative number"})
		return database.CreateInstoreCategoryParams{}, false
	}
	num, err := decimalToNumeric(amount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid base_amount"})
		return database.CreateInstoreCategoryParams{}, false
	}
	return database.CreateInstoreCategoryParams{Name: req.Name, BaseAmount: num}, true
}

// List returns all in-store categories.
func (h *InstoreCategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListInstoreCategories(r.Context())
	if err != nil {
		log.Printf("ERROR: list instore categories: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	resp := make([]instoreCategoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = toInstoreCategoryResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds an in-store category.
func (h *InstoreCategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	params, ok := parseInstoreCategoryRequest(w, r)
	if !ok {
		return
	}
	category, err := h.store.CreateInstoreCategory(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: create instore category: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, toInstoreCategoryResponse(category))
}

// Update edits an in-store category. The new base amount applies to future
// orders only.
func (h *InstoreCategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid instore category id"})
		return
	}
	params, ok := parseInstoreCategoryRequest(w, r)
	if !ok {
		return
	}
	category, err := h.store.UpdateInstoreCategory(r.Context(), database.UpdateInstoreCategoryParams{
		ID:         id,
		Name:       params.Name,
		BaseAmount: params.BaseAmount,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "instore category not found"})
			return
		}
		log.Printf("ERROR: update instore category: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toInstoreCategoryResponse(category))
}
