package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/wingbros-pos/api/internal/database"
	"github.com/wingbros-pos/api/internal/middleware"
	"github.com/wingbros-pos/api/internal/ws"
)

// suppliesExpenseType is the expense type every delivery receipt posts under.
const suppliesExpenseType = "Supplies"

// ReceiptStore defines the database methods needed by receipt handlers.
type ReceiptStore interface {
	CreateReceipt(ctx context.Context, arg database.CreateReceiptParams) (database.Receipt, error)
	GetReceipt(ctx context.Context, id uuid.UUID) (database.Receipt, error)
	ListReceipts(ctx context.Context) ([]database.ListReceiptsRow, error)
	DeleteReceipt(ctx context.Context, id uuid.UUID) error
	CreateStockIn(ctx context.Context, arg database.CreateStockInParams) (database.StockIn, error)
	ListStockInsByReceipt(ctx context.Context, receiptID uuid.UUID) ([]database.StockIn, error)
	DeleteStockInsByReceipt(ctx context.Context, receiptID uuid.UUID) error
	AddInventoryQuantity(ctx context.Context, arg database.AddInventoryQuantityParams) (database.Inventory, error)
	GetItem(ctx context.Context, id uuid.UUID) (database.Item, error)
	GetExpenseTypeByName(ctx context.Context, name string) (database.ExpenseType, error)
	CreateExpenseType(ctx context.Context, name string) (database.ExpenseType, error)
	CreateExpense(ctx context.Context, arg database.CreateExpenseParams) (database.Expense, error)
	GetExpenseByReceipt(ctx context.Context, receiptID uuid.UUID) (database.Expense, error)
	UpdateExpenseCost(ctx context.Context, arg database.UpdateExpenseCostParams) (database.Expense, error)
	DeleteExpenseByReceipt(ctx context.Context, receiptID uuid.UUID) error
}

// ReceiptHandler handles delivery receipt endpoints. Posting a receipt is the
// only way stock enters the system, so every mutation here cascades to
// inventory and to the linked supplies expense inside one transaction.
type ReceiptHandler struct {
	pool      TxBeginner
	newStore  func(db database.DBTX) ReceiptStore
	rechecker AvailabilityRechecker
	hub       *ws.Hub
}

// NewReceiptHandler creates a new ReceiptHandler.
func NewReceiptHandler(pool TxBeginner, newStore func(db database.DBTX) ReceiptStore, rechecker AvailabilityRechecker, hub *ws.Hub) *ReceiptHandler {
	return &ReceiptHandler{pool: pool, newStore: newStore, rechecker: rechecker, hub: hub}
}

// RegisterRoutes registers receipt endpoints on the given Chi router.
func (h *ReceiptHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.UpdateLines)
	r.Delete("/{id}", h.Delete)
}

type receiptLineRequest struct {
	ItemID    string `json:"item_id"`
	Quantity  string `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type receiptRequest struct {
	SupplierID  string               `json:"supplier_id"`
	ReceiptDate string               `json:"receipt_date"`
	Lines       []receiptLineRequest `json:"lines"`
}

type updateReceiptLinesRequest struct {
	Lines []receiptLineRequest `json:"lines"`
}

type receiptLineResponse struct {
	ID        uuid.UUID `json:"id"`
	ItemID    uuid.UUID `json:"item_id"`
	Quantity  string    `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
}

type receiptResponse struct {
	ID           uuid.UUID             `json:"id"`
	SupplierID   uuid.UUID             `json:"supplier_id"`
	SupplierName string                `json:"supplier_name,omitempty"`
	ReceiptDate  string                `json:"receipt_date"`
	CreatedBy    uuid.UUID             `json:"created_by"`
	CreatedAt    time.Time             `json:"created_at"`
	Total        string                `json:"total,omitempty"`
	Lines        []receiptLineResponse `json:"lines,omitempty"`
}

type parsedReceiptLine struct {
	itemID    uuid.UUID
	quantity  decimal.Decimal
	unitPrice decimal.Decimal
}

func parseReceiptLines(w http.ResponseWriter, lines []receiptLineRequest) ([]parsedReceiptLine, bool) {
	if len(lines) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "at least one line is required"})
		return nil, false
	}
	parsed := make([]parsedReceiptLine, len(lines))
	for i, line := range lines {
		itemID, err := uuid.Parse(line.ItemID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item_id"})
			return nil, false
		}
		qty, err := decimal.NewFromString(line.Quantity)
		if err != nil || !qty.IsPositive() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be a positive number"})
			return nil, false
		}
		price, err := decimal.NewFromString(line.UnitPrice)
		if err != nil || price.IsNegative() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unit_price must be a non-negative number"})
			return nil, false
		}
		parsed[i] = parsedReceiptLine{itemID: itemID, quantity: qty, unitPrice: price}
	}
	return parsed, true
}

// applyLines inserts stock-in rows and raises inventory; returns the receipt
// total as the sum of per-line quantity times unit price, rounded per line.
func applyLines(ctx context.Context, store ReceiptStore, receiptID uuid.UUID, lines []parsedReceiptLine) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, line := range lines {
		if _, err := store.GetItem(ctx, line.itemID); err != nil {
			return decimal.Zero, err
		}
		qty, err := decimalToNumeric(line.quantity)
		if err != nil {
			return decimal.Zero, err
		}
		price, err := decimalToNumeric(line.unitPrice)
		if err != nil {
			return decimal.Zero, err
		}
		if _, err := store.CreateStockIn(ctx, database.CreateStockInParams{
			ReceiptID:  receiptID,
			ItemID:     line.itemID,
			QuantityIn: qty,
			UnitPrice:  price,
		}); err != nil {
			return decimal.Zero, err
		}
		if _, err := store.AddInventoryQuantity(ctx, database.AddInventoryQuantityParams{
			ItemID: line.itemID,
			Delta:  qty,
		}); err != nil {
			return decimal.Zero, err
		}
		total = total.Add(line.quantity.Mul(line.unitPrice).Round(2))
	}
	return total, nil
}

// reverseLines subtracts previously applied stock-in quantities and removes
// the stock-in rows.
func reverseLines(ctx context.Context, store ReceiptStore, receiptID uuid.UUID) error {
	stockIns, err := store.ListStockInsByReceipt(ctx, receiptID)
	if err != nil {
		return err
	}
	for _, s := range stockIns {
		delta, err := decimalToNumeric(numericToDecimal(s.QuantityIn).Neg())
		if err != nil {
			return err
		}
		if _, err := store.AddInventoryQuantity(ctx, database.AddInventoryQuantityParams{
			ItemID: s.ItemID,
			Delta:  delta,
		}); err != nil {
			return err
		}
	}
	return store.DeleteStockInsByReceipt(ctx, receiptID)
}

// List returns all receipts, newest first.
func (h *ReceiptHandler) List(w http.ResponseWriter, r *http.Request) {
	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		log.Printf("ERROR: begin tx: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	defer tx.Rollback(r.Context())

	rows, err := h.newStore(tx).ListReceipts(r.Context())
	if err != nil {
		log.Printf("ERROR: list receipts: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]receiptResponse, len(rows))
	for i, row := range rows {
		resp[i] = receiptResponse{
			ID:           row.ID,
			SupplierID:   row.SupplierID,
			SupplierName: row.SupplierName,
			ReceiptDate:  row.ReceiptDate.Format(dateLayout),
			CreatedBy:    row.CreatedBy,
			CreatedAt:    row.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a receipt with its stock-in lines.
func (h *ReceiptHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid receipt id"})
		return
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		log.Printf("ERROR: begin tx: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	defer tx.Rollback(r.Context())

	store := h.newStore(tx)
	receipt, err := store.GetReceipt(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "receipt not found"})
			return
		}
		log.Printf("ERROR: get receipt: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	stockIns, err := store.ListStockInsByReceipt(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: list stock-ins: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := receiptResponse{
		ID:          receipt.ID,
		SupplierID:  receipt.SupplierID,
		ReceiptDate: receipt.ReceiptDate.Format(dateLayout),
		CreatedBy:   receipt.CreatedBy,
		CreatedAt:   receipt.CreatedAt,
		Lines:       make([]receiptLineResponse, len(stockIns)),
	}
	total := decimal.Zero
	for i, s := range stockIns {
		resp.Lines[i] = receiptLineResponse{
			ID:        s.ID,
			ItemID:    s.ItemID,
			Quantity:  numericToQuantityString(s.QuantityIn),
			UnitPrice: numericToString(s.UnitPrice),
		}
		total = total.Add(numericToDecimal(s.QuantityIn).Mul(numericToDecimal(s.UnitPrice)).Round(2))
	}
	resp.Total = total.StringFixed(2)
	writeJSON(w, http.StatusOK, resp)
}

// Create posts a delivery receipt: stock-in lines, inventory increments and
// the derived supplies expense all land in one transaction.
func (h *ReceiptHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req receiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	supplierID, err := uuid.Parse(req.SupplierID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid supplier_id"})
		return
	}
	receiptDate, err := time.Parse(dateLayout, req.ReceiptDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid receipt_date, expected YYYY-MM-DD"})
		return
	}
	lines, ok := parseReceiptLines(w, req.Lines)
	if !ok {
		return
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		log.Printf("ERROR: begin tx: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	defer tx.Rollback(r.Context())

	store := h.newStore(tx)
	receipt, err := store.CreateReceipt(r.Context(), database.CreateReceiptParams{
		SupplierID:  supplierID,
		ReceiptDate: receiptDate,
		CreatedBy:   claims.EmployeeID,
	})
	if err != nil {
		log.Printf("ERROR: create receipt: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	total, err := applyLines(r.Context(), store, receipt.ID, lines)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown item in lines"})
			return
		}
		log.Printf("ERROR: apply receipt lines: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	expenseType, err := store.GetExpenseTypeByName(r.Context(), suppliesExpenseType)
	if errors.Is(err, pgx.ErrNoRows) {
		expenseType, err = store.CreateExpenseType(r.Context(), suppliesExpenseType)
	}
	if err != nil {
		log.Printf("ERROR: resolve supplies expense type: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	cost, err := decimalToNumeric(total)
	if err != nil {
		log.Printf("ERROR: convert receipt total: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if _, err := store.CreateExpense(r.Context(), database.CreateExpenseParams{
		ExpenseTypeID: expenseType.ID,
		Description:   pgtype.Text{String: "Delivery receipt " + receipt.ID.String(), Valid: true},
		Cost:          cost,
		ExpenseDate:   receiptDate,
		ReceiptID:     pgtype.UUID{Bytes: receipt.ID, Valid: true},
	}); err != nil {
		log.Printf("ERROR: create supplies expense: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		log.Printf("ERROR: commit receipt: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.broadcastAvailability(r.Context())

	writeJSON(w, http.StatusCreated, receiptResponse{
		ID:          receipt.ID,
		SupplierID:  receipt.SupplierID,
		ReceiptDate: receipt.ReceiptDate.Format(dateLayout),
		CreatedBy:   receipt.CreatedBy,
		CreatedAt:   receipt.CreatedAt,
		Total:       total.StringFixed(2),
	})
}

// UpdateLines replaces a receipt's stock-in lines. Old quantities are backed
// out of inventory, new ones applied, and the linked expense repriced.
func (h *ReceiptHandler) UpdateLines(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid receipt id"})
		return
	}

	var req updateReceiptLinesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	lines, ok := parseReceiptLines(w, req.Lines)
	if !ok {
		return
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		log.Printf("ERROR: begin tx: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	defer tx.Rollback(r.Context())

	store := h.newStore(tx)
	receipt, err := store.GetReceipt(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "receipt not found"})
			return
		}
		log.Printf("ERROR: get receipt: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := reverseLines(r.Context(), store, id); err != nil {
		log.Printf("ERROR: reverse receipt lines: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	total, err := applyLines(r.Context(), store, id, lines)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown item in lines"})
			return
		}
		log.Printf("ERROR: apply receipt lines: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	expense, err := store.GetExpenseByReceipt(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: get receipt expense: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	cost, err := decimalToNumeric(total)
	if err != nil {
		log.Printf("ERROR: convert receipt total: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if _, err := store.UpdateExpenseCost(r.Context(), database.UpdateExpenseCostParams{ID: expense.ID, Cost: cost}); err != nil {
		log.Printf("ERROR: update receipt expense: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		log.Printf("ERROR: commit receipt update: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.broadcastAvailability(r.Context())

	writeJSON(w, http.StatusOK, receiptResponse{
		ID:          receipt.ID,
		SupplierID:  receipt.SupplierID,
		ReceiptDate: receipt.ReceiptDate.Format(dateLayout),
		CreatedBy:   receipt.CreatedBy,
		CreatedAt:   receipt.CreatedAt,
		Total:       total.StringFixed(2),
	})
}

// Delete removes a receipt, backing its stock out of inventory and dropping
// the linked expense.
func (h *ReceiptHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid receipt id"})
		return
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		log.Printf("ERROR: begin tx: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	defer tx.Rollback(r.Context())

	store := h.newStore(tx)
	if _, err := store.GetReceipt(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "receipt not found"})
			return
		}
		log.Printf("ERROR: get receipt: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := reverseLines(r.Context(), store, id); err != nil {
		log.Printf("ERROR: reverse receipt lines: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if err := store.DeleteExpenseByReceipt(r.Context(), id); err != nil {
		log.Printf("ERROR: delete receipt expense: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if err := store.DeleteReceipt(r.Context(), id); err != nil {
		log.Printf("ERROR: delete receipt: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		log.Printf("ERROR: commit receipt delete: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.broadcastAvailability(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReceiptHandler) broadcastAvailability(ctx context.Context) {
	if h.rechecker == nil {
		return
	}
	changes, err := h.rechecker.RecheckAvailability(ctx)
	if err != nil {
		log.Printf("ERROR: recheck availability: %v", err)
		return
	}
	for _, change := range changes {
		broadcastEvent(h.hub, ws.TopicInventory, ws.EventAvailabilityChanged, change)
	}
}
