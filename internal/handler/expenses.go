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

// ExpenseStore defines the database methods needed by expense handlers.
type ExpenseStore interface {
	ListExpenseTypes(ctx context.Context) ([]database.ExpenseType, error)
	CreateExpenseType(ctx context.Context, name string) (database.ExpenseType, error)
	UpdateExpenseType(ctx context.Context, arg database.UpdateExpenseTypeParams) (database.ExpenseType, error)
	DeleteExpenseType(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	CountExpensesByType(ctx context.Context, expenseTypeID uuid.UUID) (int64, error)

	ListExpenses(ctx context.Context, arg database.ListExpensesParams) ([]database.ListExpensesRow, error)
	GetExpense(ctx context.Context, id uuid.UUID) (database.Expense, error)
	CreateExpense(ctx context.Context, arg database.CreateExpenseParams) (database.Expense, error)
	UpdateExpense(ctx context.Context, arg database.UpdateExpenseParams) (database.Expense, error)
	DeleteExpense(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// ExpenseHandler handles expense type and expense endpoints.
type ExpenseHandler struct {
	store ExpenseStore
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(store ExpenseStore) *ExpenseHandler {
	return &ExpenseHandler{store: store}
}

// RegisterRoutes registers expense endpoints on the given Chi router.
func (h *ExpenseHandler) RegisterRoutes(r chi.Router) {
	r.Route("/types", func(r chi.Router) {
		r.Get("/", h.ListTypes)
		r.Post("/", h.CreateType)
		r.Put("/{id}", h.UpdateType)
		r.Delete("/{id}", h.DeleteType)
	})
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

type expenseTypeRequest struct {
	Name string `json:"name"`
}

type expenseTypeResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type expenseRequest struct {
	ExpenseTypeID string  `json:"expense_type_id"`
	Description   *string `json:"description"`
	Cost          string  `json:"cost"`
	ExpenseDate   string  `json:"expense_date"`
}

type expenseResponse struct {
	ID              uuid.UUID  `json:"id"`
	ExpenseTypeID   uuid.UUID  `json:"expense_type_id"`
	ExpenseTypeName string     `json:"expense_type_name,omitempty"`
	Description     *string    `json:"description"`
	Cost            string     `json:"cost"`
	ExpenseDate     string     `json:"expense_date"`
	ReceiptID       *uuid.UUID `json:"receipt_id"`
	CreatedAt       time.Time  `json:"created_at"`
}

func uuidOrNil(u pgtype.UUID) *uuid.UUID {
	if !u.Valid {
		return nil
	}
	id := uuid.UUID(u.Bytes)
	return &id
}

func toExpenseResponse(e database.Expense) expenseResponse {
	return expenseResponse{
		ID:            e.ID,
		ExpenseTypeID: e.ExpenseTypeID,
		Description:   textOrNil(e.Description),
		Cost:          numericToString(e.Cost),
		ExpenseDate:   e.ExpenseDate.Format(dateLayout),
		ReceiptID:     uuidOrNil(e.ReceiptID),
		CreatedAt:     e.CreatedAt,
	}
}

// --- Expense types ---

func (h *ExpenseHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.store.ListExpenseTypes(r.Context())
	if err != nil {
		log.Printf("ERROR: list expense types: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	resp := make([]expenseTypeResponse, len(types))
	for i, t := range types {
		resp[i] = expenseTypeResponse{ID: t.ID, Name: t.Name}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ExpenseHandler) CreateType(w http.ResponseWriter, r *http.Request) {
	var req expenseTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	t, err := h.store.CreateExpenseType(r.Context(), req.Name)
	if err != nil {
		log.Printf("ERROR: create expense type: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, expenseTypeResponse{ID: t.ID, Name: t.Name})
}

func (h *ExpenseHandler) UpdateType(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid expense type id"})
		return
	}
	var req expenseTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	t, err := h.store.UpdateExpenseType(r.Context(), database.UpdateExpenseTypeParams{ID: id, Name: req.Name})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "expense type not found"})
			return
		}
		log.Printf("ERROR: update expense type: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, expenseTypeResponse{ID: t.ID, Name: t.Name})
}

func (h *ExpenseHandler) DeleteType(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid expense type id"})
		return
	}

	count, err := h.store.CountExpensesByType(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: count expenses by type: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if count > 0 {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": fmt.Sprintf("expense type is used by %d expense(s)", count),
		})
		return
	}

	if _, err := h.store.DeleteExpenseType(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "expense type not found"})
			return
		}
		log.Printf("ERROR: delete expense type: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Expenses ---

// List returns expenses, optionally filtered by date range.
func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	var params database.ListExpensesParams
	if v := r.URL.Query().Get("from"); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid from date"})
			return
		}
		params.DateFrom = pgtype.Date{Time: d, Valid: true}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid to date"})
			return
		}
		params.DateTo = pgtype.Date{Time: d, Valid: true}
	}

	rows, err := h.store.ListExpenses(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list expenses: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]expenseResponse, len(rows))
	for i, row := range rows {
		resp[i] = expenseResponse{
			ID:              row.ID,
			ExpenseTypeID:   row.ExpenseTypeID,
			ExpenseTypeName: row.ExpenseTypeName,
			Description:     textOrNil(row.Description),
			Cost:            numericToString(row.Cost),
			ExpenseDate:     row.ExpenseDate.Format(dateLayout),
			ReceiptID:       uuidOrNil(row.ReceiptID),
			CreatedAt:       row.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseExpenseRequest(w http.ResponseWriter, r *http.Request) (database.CreateExpenseParams, bool) {
	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return database.CreateExpenseParams{}, false
	}
	typeID, err := uuid.Parse(req.ExpenseTypeID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid expense_type_id"})
		return database.CreateExpenseParams{}, false
	}
	cost, err := stringToNumeric(req.Cost)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cost"})
		return database.CreateExpenseParams{}, false
	}
	date, err := time.Parse(dateLayout, req.ExpenseDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid expense_date, expected YYYY-MM-DD"})
		return database.CreateExpenseParams{}, false
	}
	return database.CreateExpenseParams{
		ExpenseTypeID: typeID,
		Description:   textFromPtr(req.Description),
		Cost:          cost,
		ExpenseDate:   date,
	}, true
}

// Create records a manual expense. Receipt-linked expenses are created by the
// receipt flow, never here.
func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	params, ok := parseExpenseRequest(w, r)
	if !ok {
		return
	}
	expense, err := h.store.CreateExpense(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: create expense: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseResponse(expense))
}

// Update edits a manual expense. Expenses derived from delivery receipts only
// change through their receipt.
func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid expense id"})
		return
	}

	existing, err := h.store.GetExpense(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "expense not found"})
			return
		}
		log.Printf("ERROR: get expense: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if existing.ReceiptID.Valid {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "expense is derived from a delivery receipt; edit the receipt"})
		return
	}

	params, ok := parseExpenseRequest(w, r)
	if !ok {
		return
	}
	expense, err := h.store.UpdateExpense(r.Context(), database.UpdateExpenseParams{
		ID:            id,
		ExpenseTypeID: params.ExpenseTypeID,
		Description:   params.Description,
		Cost:          params.Cost,
		ExpenseDate:   params.ExpenseDate,
	})
	if err != nil {
		log.Printf("ERROR: update expense: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toExpenseResponse(expense))
}

// Delete removes a manual expense.
func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid expense id"})
		return
	}

	existing, err := h.store.GetExpense(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "expense not found"})
			return
		}
		log.Printf("ERROR: get expense: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if existing.ReceiptID.Valid {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "expense is derived from a delivery receipt; delete the receipt"})
		return
	}

	if _, err := h.store.DeleteExpense(r.Context(), id); err != nil {
		log.Printf("ERROR: delete expense: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
