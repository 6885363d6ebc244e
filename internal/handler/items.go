package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/wingbros-pos/api/internal/database"
)

// TxBeginner begins pgx transactions. Satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ItemStore defines the database methods needed by item handlers.
type ItemStore interface {
	ListItems(ctx context.Context) ([]database.Item, error)
	GetItem(ctx context.Context, id uuid.UUID) (database.Item, error)
	CreateItem(ctx context.Context, arg database.CreateItemParams) (database.Item, error)
	UpdateItem(ctx context.Context, arg database.UpdateItemParams) (database.Item, error)
	SetItemArchived(ctx context.Context, arg database.SetItemArchivedParams) (database.Item, error)
	DeleteItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	CreateInventory(ctx context.Context, itemID uuid.UUID) (database.Inventory, error)
	DeleteInventoryByItem(ctx context.Context, itemID uuid.UUID) error
	ListMenuItemsUsingItem(ctx context.Context, itemID uuid.UUID) ([]string, error)
	CountStockInsByItem(ctx context.Context, itemID uuid.UUID) (int64, error)
}

// ItemHandler handles inventory item endpoints. Create and Delete run in a
// transaction because the inventory row lives and dies with the item.
type ItemHandler struct {
	pool     TxBeginner
	newStore func(db database.DBTX) ItemStore
}

// NewItemHandler creates a new ItemHandler.
func NewItemHandler(pool TxBeginner, newStore func(db database.DBTX) ItemStore) *ItemHandler {
	return &ItemHandler{pool: pool, newStore: newStore}
}

// RegisterRoutes registers item endpoints on the given Chi router.
func (h *ItemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Post("/{id}/archive", h.Archive)
	r.Post("/{id}/unarchive", h.Unarchive)
	r.Delete("/{id}", h.Delete)
}

type itemRequest struct {
	Name         string  `json:"name"`
	CategoryID   string  `json:"category_id"`
	Unit         string  `json:"unit"`
	ReorderLevel *string `json:"reorder_level"`
}

type itemResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	CategoryID   uuid.UUID `json:"category_id"`
	Unit         string    `json:"unit"`
	ReorderLevel *string   `json:"reorder_level"`
	IsArchived   bool      `json:"is_archived"`
	CreatedAt    time.Time `json:"created_at"`
}

func toItemResponse(i database.Item) itemResponse {
	resp := itemResponse{
		ID:         i.ID,
		Name:       i.Name,
		CategoryID: i.CategoryID,
		Unit:       i.Unit,
		IsArchived: i.IsArchived,
		CreatedAt:  i.CreatedAt,
	}
	if i.ReorderLevel.Valid {
		s := numericToQuantityString(i.ReorderLevel)
		resp.ReorderLevel = &s
	}
	return resp
}

func (h *ItemHandler) parseItemRequest(w http.ResponseWriter, r *http.Request) (database.CreateItemParams, bool) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return database.CreateItemParams{}, false
	}
	if req.Name == "" || req.Unit == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and unit are required"})
		return database.CreateItemParams{}, false
	}
	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
		return database.CreateItemParams{}, false
	}

	var reorder pgtype.Numeric
	if req.ReorderLevel != nil {
		reorder, err = stringToNumeric(*req.ReorderLevel)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid reorder_level"})
			return database.CreateItemParams{}, false
		}
	}

	return database.CreateItemParams{
		Name:         req.Name,
		CategoryID:   categoryID,
		Unit:         req.Unit,
		ReorderLevel: reorder,
	}, true
}

// List returns all items, archived included; clients filter on is_archived.
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		log.Printf("ERROR: begin tx: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	defer tx.Rollback(r.Context())

	items, err := h.newStore(tx).ListItems(r.Context())
	if err != nil {
		log.Printf("ERROR: list items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]itemResponse, len(items))
	for i, item := range items {
		resp[i] = toItemResponse(item)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds an item together with its zero-quantity inventory row.
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	params, ok := h.parseItemRequest(w, r)
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
	item, err := store.CreateItem(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: create item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if _, err := store.CreateInventory(r.Context(), item.ID); err != nil {
		log.Printf("ERROR: create inventory row: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		log.Printf("ERROR: commit create item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, toItemResponse(item))
}

// Update edits an item's descriptive fields.
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item id"})
		return
	}

	params, ok := h.parseItemRequest(w, r)
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

	item, err := h.newStore(tx).UpdateItem(r.Context(), database.UpdateItemParams{
		ID:           id,
		Name:         params.Name,
		CategoryID:   params.CategoryID,
		Unit:         params.Unit,
		ReorderLevel: params.ReorderLevel,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
			return
		}
		log.Printf("ERROR: update item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		log.Printf("ERROR: commit update item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

// Archive hides an item from active use without touching its history.
func (h *ItemHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, true)
}

// Unarchive restores an archived item.
func (h *ItemHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, false)
}

func (h *ItemHandler) setArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item id"})
		return
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		log.Printf("ERROR: begin tx: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	defer tx.Rollback(r.Context())

	item, err := h.newStore(tx).SetItemArchived(r.Context(), database.SetItemArchivedParams{ID: id, IsArchived: archived})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
			return
		}
		log.Printf("ERROR: set item archived: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		log.Printf("ERROR: commit archive item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

// Delete permanently removes an item. Only archived items with no recipe or
// stock-in references can go; the inventory row goes with it.
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item id"})
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
	item, err := store.GetItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
			return
		}
		log.Printf("ERROR: get item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if !item.IsArchived {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "item must be archived before deleting"})
		return
	}

	menuItems, err := store.ListMenuItemsUsingItem(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: list menu items using item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if len(menuItems) > 0 {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": fmt.Sprintf("item is used in recipes: %s", strings.Join(menuItems, ", ")),
		})
		return
	}

	stockIns, err := store.CountStockInsByItem(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: count stock-ins by item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if stockIns > 0 {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": fmt.Sprintf("item has %d stock-in record(s)", stockIns),
		})
		return
	}

	if err := store.DeleteInventoryByItem(r.Context(), id); err != nil {
		log.Printf("ERROR: delete inventory row: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if _, err := store.DeleteItem(r.Context(), id); err != nil {
		log.Printf("ERROR: delete item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		log.Printf("ERROR: commit delete item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
