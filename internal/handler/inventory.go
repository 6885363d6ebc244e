package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/wingbros-pos/api/internal/database"
	"github.com/wingbros-pos/api/internal/middleware"
	"github.com/wingbros-pos/api/internal/service"
	"github.com/wingbros-pos/api/internal/ws"
)

// InventoryStore defines the database methods needed by inventory handlers.
type InventoryStore interface {
	ListInventory(ctx context.Context) ([]database.ListInventoryRow, error)
	GetItem(ctx context.Context, id uuid.UUID) (database.Item, error)
	GetInventoryForUpdate(ctx context.Context, itemID uuid.UUID) (database.Inventory, error)
	SetInventoryQuantity(ctx context.Context, arg database.SetInventoryQuantityParams) (database.Inventory, error)
	CreateDisposal(ctx context.Context, arg database.CreateDisposalParams) (database.Disposal, error)
	ListDisposals(ctx context.Context, arg database.ListDisposalsParams) ([]database.ListDisposalsRow, error)
}

// AvailabilityRechecker recomputes menu item availability from current stock.
type AvailabilityRechecker interface {
	RecheckAvailability(ctx context.Context) ([]service.AvailabilityChange, error)
}

// InventoryHandler handles stock levels and manual disposals.
type InventoryHandler struct {
	pool      TxBeginner
	newStore  func(db database.DBTX) InventoryStore
	rechecker AvailabilityRechecker
	hub       *ws.Hub
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(pool TxBeginner, newStore func(db database.DBTX) InventoryStore, rechecker AvailabilityRechecker, hub *ws.Hub) *InventoryHandler {
	return &InventoryHandler{pool: pool, newStore: newStore, rechecker: rechecker, hub: hub}
}

// RegisterRoutes registers inventory endpoints on the given Chi router.
func (h *InventoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/disposals", h.CreateDisposal)
	r.Get("/disposals", h.ListDisposals)
}

type inventoryRowResponse struct {
	ItemID       uuid.UUID  `json:"item_id"`
	ItemName     string     `json:"item_name"`
	Unit         string     `json:"unit"`
	Quantity     string     `json:"quantity"`
	ReorderLevel *string    `json:"reorder_level"`
	IsArchived   bool       `json:"is_archived"`
	LowStock     bool       `json:"low_stock"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

type disposalRequest struct {
	ItemID   string  `json:"item_id"`
	Quantity string  `json:"quantity"`
	Reason   string  `json:"reason"`
	Notes    *string `json:"notes"`
}

type disposalResponse struct {
	ID         uuid.UUID `json:"id"`
	ItemID     uuid.UUID `json:"item_id"`
	ItemName   string    `json:"item_name,omitempty"`
	Quantity   string    `json:"quantity"`
	Unit       string    `json:"unit"`
	Reason     string    `json:"reason"`
	DisposedBy uuid.UUID `json:"disposed_by"`
	Employee   string    `json:"employee,omitempty"`
	Notes      *string   `json:"notes"`
	CreatedAt  time.Time `json:"created_at"`
}

// List returns the on-hand quantity for every item, flagging rows at or below
// their reorder level.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		log.Printf("ERROR: begin tx: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	defer tx.Rollback(r.Context())

	rows, err := h.newStore(tx).ListInventory(r.Context())
	if err != nil {
		log.Printf("ERROR: list inventory: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]inventoryRowResponse, len(rows))
	for i, row := range rows {
		entry := inventoryRowResponse{
			ItemID:     row.ItemID,
			ItemName:   row.ItemName,
			Unit:       row.Unit,
			Quantity:   numericToQuantityString(row.Quantity),
			IsArchived: row.IsArchived,
			UpdatedAt:  timestampOrNil(row.UpdatedAt),
		}
		if row.ReorderLevel.Valid {
			s := numericToQuantityString(row.ReorderLevel)
			entry.ReorderLevel = &s
			entry.LowStock = numericToDecimal(row.Quantity).LessThanOrEqual(numericToDecimal(row.ReorderLevel))
		}
		resp[i] = entry
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateDisposal records a manual stock write-off. Unlike recipe consumption,
// a manual disposal must be covered by on-hand stock.
func (h *InventoryHandler) CreateDisposal(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req disposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item_id"})
		return
	}
	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil || !qty.IsPositive() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be a positive number"})
		return
	}
	reason := database.DisposalReason(req.Reason)
	if reason != database.DisposalReasonWaste && reason != database.DisposalReasonSpoilage {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reason must be WASTE or SPOILAGE"})
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
	item, err := store.GetItem(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
			return
		}
		log.Printf("ERROR: get item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	inv, err := store.GetInventoryForUpdate(r.Context(), itemID)
	if err != nil {
		log.Printf("ERROR: lock inventory: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	onHand := numericToDecimal(inv.Quantity)
	if onHand.LessThan(qty) {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": "insufficient stock: " + onHand.String() + " " + item.Unit + " on hand",
		})
		return
	}

	newQty, err := decimalToNumeric(onHand.Sub(qty))
	if err != nil {
		log.Printf("ERROR: convert quantity: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if _, err := store.SetInventoryQuantity(r.Context(), database.SetInventoryQuantityParams{
		ItemID:   itemID,
		Quantity: newQty,
	}); err != nil {
		log.Printf("ERROR: set inventory quantity: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	disposalQty, err := decimalToNumeric(qty)
	if err != nil {
		log.Printf("ERROR: convert quantity: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	disposal, err := store.CreateDisposal(r.Context(), database.CreateDisposalParams{
		ItemID:     itemID,
		Quantity:   disposalQty,
		Unit:       item.Unit,
		Reason:     reason,
		DisposedBy: claims.EmployeeID,
		Notes:      textFromPtr(req.Notes),
	})
	if err != nil {
		log.Printf("ERROR: create disposal: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		log.Printf("ERROR: commit disposal: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.broadcastAvailability(r.Context())

	writeJSON(w, http.StatusCreated, disposalResponse{
		ID:         disposal.ID,
		ItemID:     disposal.ItemID,
		ItemName:   item.Name,
		Quantity:   numericToQuantityString(disposal.Quantity),
		Unit:       disposal.Unit,
		Reason:     string(disposal.Reason),
		DisposedBy: disposal.DisposedBy,
		Notes:      textOrNil(disposal.Notes),
		CreatedAt:  disposal.CreatedAt,
	})
}

// ListDisposals returns disposal history, newest first.
func (h *InventoryHandler) ListDisposals(w http.ResponseWriter, r *http.Request) {
	limit := int32(50)
	offset := int32(0)
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 1 || n > 500 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = int32(n)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid offset"})
			return
		}
		offset = int32(n)
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		log.Printf("ERROR: begin tx: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	defer tx.Rollback(r.Context())

	rows, err := h.newStore(tx).ListDisposals(r.Context(), database.ListDisposalsParams{Limit: limit, Offset: offset})
	if err != nil {
		log.Printf("ERROR: list disposals: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]disposalResponse, len(rows))
	for i, row := range rows {
		resp[i] = disposalResponse{
			ID:         row.ID,
			ItemID:     row.ItemID,
			ItemName:   row.ItemName,
			Quantity:   numericToQuantityString(row.Quantity),
			Unit:       row.Unit,
			Reason:     string(row.Reason),
			DisposedBy: row.DisposedBy,
			Employee:   row.EmployeeFirstName + " " + row.EmployeeLastName,
			Notes:      textOrNil(row.Notes),
			CreatedAt:  row.CreatedAt.Time,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// broadcastAvailability re-derives menu availability after a stock change and
// pushes any flips to inventory subscribers.
func (h *InventoryHandler) broadcastAvailability(ctx context.Context) {
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

// broadcastEvent marshals the payload and fans it out to a topic room. A nil
// hub is a no-op so handlers stay testable without websockets.
func broadcastEvent(hub *ws.Hub, topic, eventType string, payload interface{}) {
	if hub == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: marshal %s event: %v", eventType, err)
		return
	}
	hub.Broadcast(topic, ws.Event{Type: eventType, Payload: raw})
}
