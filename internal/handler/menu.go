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
	"github.com/wingbros-pos/api/internal/database"
	"github.com/wingbros-pos/api/internal/service"
	"github.com/wingbros-pos/api/internal/unit"
	"github.com/wingbros-pos/api/internal/ws"
)

// MenuStore defines the database methods needed by menu handlers.
type MenuStore interface {
	ListMenuCategories(ctx context.Context) ([]database.MenuCategory, error)
	CreateMenuCategory(ctx context.Context, name string) (database.MenuCategory, error)
	UpdateMenuCategory(ctx context.Context, arg database.UpdateMenuCategoryParams) (database.MenuCategory, error)
	DeleteMenuCategory(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	CountMenuItemsByMenuCategory(ctx context.Context, menuCategoryID uuid.UUID) (int64, error)

	ListMenuItems(ctx context.Context) ([]database.MenuItem, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	SetMenuItemStatus(ctx context.Context, arg database.SetMenuItemStatusParams) (database.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	CountOrderDetailsByMenuItem(ctx context.Context, menuItemID uuid.UUID) (int64, error)

	GetRecipeForMenuItem(ctx context.Context, menuItemID uuid.UUID) ([]database.RecipeRow, error)
	CreateMenuIngredient(ctx context.Context, arg database.CreateMenuIngredientParams) (database.MenuIngredient, error)
	UpdateMenuIngredient(ctx context.Context, arg database.UpdateMenuIngredientParams) (database.MenuIngredient, error)
	DeleteMenuIngredient(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	GetItem(ctx context.Context, id uuid.UUID) (database.Item, error)
}

// MenuHandler handles menu category, menu item and recipe endpoints.
type MenuHandler struct {
	store     MenuStore
	rechecker AvailabilityRechecker
	hub       *ws.Hub
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore, rechecker AvailabilityRechecker, hub *ws.Hub) *MenuHandler {
	return &MenuHandler{store: store, rechecker: rechecker, hub: hub}
}

// RegisterRoutes registers menu endpoints on the given Chi router.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.Post("/", h.CreateCategory)
		r.Put("/{id}", h.UpdateCategory)
		r.Delete("/{id}", h.DeleteCategory)
	})
	r.Route("/items", func(r chi.Router) {
		r.Get("/", h.ListItems)
		r.Post("/", h.CreateItem)
		r.Get("/{id}", h.GetItem)
		r.Put("/{id}", h.UpdateItem)
		r.Delete("/{id}", h.DeleteItem)
		r.Post("/{id}/ingredients", h.AddIngredient)
		r.Put("/{id}/ingredients/{ingredientID}", h.UpdateIngredient)
		r.Delete("/{id}/ingredients/{ingredientID}", h.DeleteIngredient)
	})
	r.Post("/availability/recheck", h.RecheckAvailability)
}

type menuCategoryRequest struct {
	Name string `json:"name"`
}

type menuCategoryResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type menuItemRequest struct {
	Name           string  `json:"name"`
	Price          string  `json:"price"`
	Channel        string  `json:"channel"`
	MenuCategoryID string  `json:"menu_category_id"`
	ImageURL       *string `json:"image_url"`
}

type ingredientRequest struct {
	ItemID   string `json:"item_id"`
	Quantity string `json:"quantity"`
	Unit     string `json:"unit"`
}

type ingredientResponse struct {
	ID       uuid.UUID `json:"id"`
	ItemID   uuid.UUID `json:"item_id"`
	ItemName string    `json:"item_name,omitempty"`
	Quantity string    `json:"quantity"`
	Unit     string    `json:"unit"`
	OnHand   string    `json:"on_hand,omitempty"`
	ItemUnit string    `json:"item_unit,omitempty"`
}

type menuItemResponse struct {
	ID             uuid.UUID            `json:"id"`
	Name           string               `json:"name"`
	Price          string               `json:"price"`
	Channel        string               `json:"channel"`
	MenuCategoryID uuid.UUID            `json:"menu_category_id"`
	Status         string               `json:"status"`
	ImageURL       *string              `json:"image_url"`
	CreatedAt      time.Time            `json:"created_at"`
	Ingredients    []ingredientResponse `json:"ingredients,omitempty"`
}

func toMenuItemResponse(m database.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:             m.ID,
		Name:           m.Name,
		Price:          numericToString(m.Price),
		Channel:        string(m.Channel),
		MenuCategoryID: m.MenuCategoryID,
		Status:         string(m.Status),
		ImageURL:       textOrNil(m.ImageURL),
		CreatedAt:      m.CreatedAt,
	}
}

func validChannel(c string) bool {
	switch database.Channel(c) {
	case database.ChannelInStore, database.ChannelGrab, database.ChannelFoodPanda:
		return true
	}
	return false
}

// --- Menu categories ---

func (h *MenuHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListMenuCategories(r.Context())
	if err != nil {
		log.Printf("ERROR: list menu categories: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	resp := make([]menuCategoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = menuCategoryResponse{ID: c.ID, Name: c.Name}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *MenuHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req menuCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	category, err := h.store.CreateMenuCategory(r.Context(), req.Name)
	if err != nil {
		log.Printf("ERROR: create menu category: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, menuCategoryResponse{ID: category.ID, Name: category.Name})
}

func (h *MenuHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu category id"})
		return
	}
	var req menuCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	category, err := h.store.UpdateMenuCategory(r.Context(), database.UpdateMenuCategoryParams{ID: id, Name: req.Name})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu category not found"})
			return
		}
		log.Printf("ERROR: update menu category: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, menuCategoryResponse{ID: category.ID, Name: category.Name})
}

func (h *MenuHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu category id"})
		return
	}

	count, err := h.store.CountMenuItemsByMenuCategory(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: count menu items by category: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if count > 0 {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": fmt.Sprintf("menu category is used by %d menu item(s)", count),
		})
		return
	}

	if _, err := h.store.DeleteMenuCategory(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu category not found"})
			return
		}
		log.Printf("ERROR: delete menu category: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Menu items ---

func (h *MenuHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListMenuItems(r.Context())
	if err != nil {
		log.Printf("ERROR: list menu items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = toMenuItemResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetItem returns a menu item with its recipe.
func (h *MenuHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item id"})
		return
	}

	item, err := h.store.GetMenuItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: get menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	recipe, err := h.store.GetRecipeForMenuItem(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: get recipe: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toMenuItemResponse(item)
	resp.Ingredients = make([]ingredientResponse, len(recipe))
	for i, row := range recipe {
		resp.Ingredients[i] = ingredientResponse{
			ID:       row.IngredientID,
			ItemID:   row.ItemID,
			ItemName: row.ItemName,
			Quantity: numericToQuantityString(row.Quantity),
			Unit:     row.Unit,
			OnHand:   numericToQuantityString(row.OnHand),
			ItemUnit: row.ItemUnit,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *MenuHandler) parseMenuItemRequest(w http.ResponseWriter, r *http.Request) (database.CreateMenuItemParams, bool) {
	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return database.CreateMenuItemParams{}, false
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return database.CreateMenuItemParams{}, false
	}
	if !validChannel(req.Channel) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "channel must be IN_STORE, GRAB or FOODPANDA"})
		return database.CreateMenuItemParams{}, false
	}
	price, err := stringToNumeric(req.Price)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
		return database.CreateMenuItemParams{}, false
	}
	categoryID, err := uuid.Parse(req.MenuCategoryID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu_category_id"})
		return database.CreateMenuItemParams{}, false
	}
	return database.CreateMenuItemParams{
		Name:           req.Name,
		Price:          price,
		Channel:        database.Channel(req.Channel),
		MenuCategoryID: categoryID,
		Status:         database.MenuItemStatusAvailable,
		ImageURL:       textFromPtr(req.ImageURL),
	}, true
}

func (h *MenuHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	params, ok := h.parseMenuItemRequest(w, r)
	if !ok {
		return
	}
	item, err := h.store.CreateMenuItem(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: create menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

func (h *MenuHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item id"})
		return
	}
	params, ok := h.parseMenuItemRequest(w, r)
	if !ok {
		return
	}
	item, err := h.store.UpdateMenuItem(r.Context(), database.UpdateMenuItemParams{
		ID:             id,
		Name:           params.Name,
		Price:          params.Price,
		Channel:        params.Channel,
		MenuCategoryID: params.MenuCategoryID,
		ImageURL:       params.ImageURL,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: update menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// DeleteItem removes a menu item. Items that appear on past orders cannot go;
// mark them UNAVAILABLE instead so history keeps its reference.
func (h *MenuHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item id"})
		return
	}

	count, err := h.store.CountOrderDetailsByMenuItem(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: count order details by menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if count > 0 {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": fmt.Sprintf("menu item appears on %d order line(s); mark it unavailable instead", count),
		})
		return
	}

	if _, err := h.store.DeleteMenuItem(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: delete menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Recipe ingredients ---

func (h *MenuHandler) parseIngredientRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, database.CreateMenuIngredientParams, bool) {
	var req ingredientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return uuid.Nil, database.CreateMenuIngredientParams{}, false
	}
	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item_id"})
		return uuid.Nil, database.CreateMenuIngredientParams{}, false
	}
	qty, err := stringToNumeric(req.Quantity)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid quantity"})
		return uuid.Nil, database.CreateMenuIngredientParams{}, false
	}
	if req.Unit == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unit is required"})
		return uuid.Nil, database.CreateMenuIngredientParams{}, false
	}

	// A recipe unit must be convertible to the item's stock unit, or match it
	// exactly for counted items.
	item, err := h.store.GetItem(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown item_id"})
			return uuid.Nil, database.CreateMenuIngredientParams{}, false
		}
		log.Printf("ERROR: get item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return uuid.Nil, database.CreateMenuIngredientParams{}, false
	}
	if req.Unit != item.Unit {
		cat, ok := unit.CategoryOf(req.Unit)
		itemCat, itemOK := unit.CategoryOf(item.Unit)
		if !ok || !itemOK || cat != itemCat {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("unit %q is not convertible to item unit %q", req.Unit, item.Unit),
			})
			return uuid.Nil, database.CreateMenuIngredientParams{}, false
		}
	}

	return itemID, database.CreateMenuIngredientParams{
		ItemID:   itemID,
		Quantity: qty,
		Unit:     req.Unit,
	}, true
}

func (h *MenuHandler) AddIngredient(w http.ResponseWriter, r *http.Request) {
	menuItemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item id"})
		return
	}
	if _, err := h.store.GetMenuItem(r.Context(), menuItemID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: get menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	_, params, ok := h.parseIngredientRequest(w, r)
	if !ok {
		return
	}
	params.MenuItemID = menuItemID

	ingredient, err := h.store.CreateMenuIngredient(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: create menu ingredient: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.broadcastAvailability(r.Context())

	writeJSON(w, http.StatusCreated, ingredientResponse{
		ID:       ingredient.ID,
		ItemID:   ingredient.ItemID,
		Quantity: numericToQuantityString(ingredient.Quantity),
		Unit:     ingredient.Unit,
	})
}

func (h *MenuHandler) UpdateIngredient(w http.ResponseWriter, r *http.Request) {
	ingredientID, err := uuid.Parse(chi.URLParam(r, "ingredientID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient id"})
		return
	}

	_, params, ok := h.parseIngredientRequest(w, r)
	if !ok {
		return
	}

	ingredient, err := h.store.UpdateMenuIngredient(r.Context(), database.UpdateMenuIngredientParams{
		ID:       ingredientID,
		ItemID:   params.ItemID,
		Quantity: params.Quantity,
		Unit:     params.Unit,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "ingredient not found"})
			return
		}
		log.Printf("ERROR: update menu ingredient: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.broadcastAvailability(r.Context())

	writeJSON(w, http.StatusOK, ingredientResponse{
		ID:       ingredient.ID,
		ItemID:   ingredient.ItemID,
		Quantity: numericToQuantityString(ingredient.Quantity),
		Unit:     ingredient.Unit,
	})
}

func (h *MenuHandler) DeleteIngredient(w http.ResponseWriter, r *http.Request) {
	ingredientID, err := uuid.Parse(chi.URLParam(r, "ingredientID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient id"})
		return
	}

	if _, err := h.store.DeleteMenuIngredient(r.Context(), ingredientID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "ingredient not found"})
			return
		}
		log.Printf("ERROR: delete menu ingredient: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.broadcastAvailability(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// RecheckAvailability re-derives every menu item's availability from stock
// and returns the items that flipped.
func (h *MenuHandler) RecheckAvailability(w http.ResponseWriter, r *http.Request) {
	if h.rechecker == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	changes, err := h.rechecker.RecheckAvailability(r.Context())
	if err != nil {
		log.Printf("ERROR: recheck availability: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	for _, change := range changes {
		broadcastEvent(h.hub, ws.TopicInventory, ws.EventAvailabilityChanged, change)
	}
	if changes == nil {
		changes = []service.AvailabilityChange{}
	}
	writeJSON(w, http.StatusOK, changes)
}

func (h *MenuHandler) broadcastAvailability(ctx context.Context) {
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
