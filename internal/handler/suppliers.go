package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/wingbros-pos/api/internal/database"
)

// SupplierStore defines the database methods needed by supplier handlers.
type SupplierStore interface {
	ListSuppliers(ctx context.Context) ([]database.Supplier, error)
	CreateSupplier(ctx context.Context, arg database.CreateSupplierParams) (database.Supplier, error)
	UpdateSupplier(ctx context.Context, arg database.UpdateSupplierParams) (database.Supplier, error)
	DeleteSupplier(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	CountReceiptsBySupplier(ctx context.Context, supplierID uuid.UUID) (int64, error)
}

// SupplierHandler handles supplier endpoints.
type SupplierHandler struct {
	store SupplierStore
}

// NewSupplierHandler creates a new SupplierHandler.
func NewSupplierHandler(store SupplierStore) *SupplierHandler {
	return &SupplierHandler{store: store}
}

// RegisterRoutes registers supplier endpoints on the given Chi router.
func (h *SupplierHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

type supplierRequest struct {
	Name    string  `json:"name"`
	Contact *string `json:"contact"`
	Address *string `json:"address"`
}

type supplierResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Contact   *string   `json:"contact"`
	Address   *string   `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

func toSupplierResponse(s database.Supplier) supplierResponse {
	return supplierResponse{
		ID:        s.ID,
		Name:      s.Name,
		Contact:   textOrNil(s.Contact),
		Address:   textOrNil(s.Address),
		CreatedAt: s.CreatedAt,
	}
}

func textFromPtr(p *string) pgtype.Text {
	if p == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *p, Valid: true}
}

// List returns all suppliers.
func (h *SupplierHandler) List(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.store.ListSuppliers(r.Context())
	if err != nil {
		log.Printf("ERROR: list suppliers: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]supplierResponse, len(suppliers))
	for i, s := range suppliers {
		resp[i] = toSupplierResponse(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a new supplier.
func (h *SupplierHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	supplier, err := h.store.CreateSupplier(r.Context(), database.CreateSupplierParams{
		Name:    req.Name,
		Contact: textFromPtr(req.Contact),
		Address: textFromPtr(req.Address),
	})
	if err != nil {
		log.Printf("ERROR: create supplier: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, toSupplierResponse(supplier))
}

// Update edits a supplier.
func (h *SupplierHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid supplier id"})
		return
	}

	var req supplierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	supplier, err := h.store.UpdateSupplier(r.Context(), database.UpdateSupplierParams{
		ID:      id,
		Name:    req.Name,
		Contact: textFromPtr(req.Contact),
		Address: textFromPtr(req.Address),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "supplier not found"})
			return
		}
		log.Printf("ERROR: update supplier: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toSupplierResponse(supplier))
}

// Delete removes a supplier unless delivery receipts still reference it.
func (h *SupplierHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid supplier id"})
		return
	}

	count, err := h.store.CountReceiptsBySupplier(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: count receipts by supplier: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if count > 0 {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": fmt.Sprintf("supplier has %d delivery receipt(s)", count),
		})
		return
	}

	if _, err := h.store.DeleteSupplier(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "supplier not found"})
			return
		}
		log.Printf("ERROR: delete supplier: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
