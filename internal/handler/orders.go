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
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/wingbros-pos/api/internal/database"
	"github.com/wingbros-pos/api/internal/middleware"
	"github.com/wingbros-pos/api/internal/service"
	"github.com/wingbros-pos/api/internal/ws"
)

// OrderPlacer is the slice of the order service the handler drives.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req service.PlaceOrderRequest) (*service.OrderResult, error)
	EditOrder(ctx context.Context, req service.EditOrderRequest) (*service.OrderResult, error)
	TransitionStatus(ctx context.Context, orderID uuid.UUID, target database.OrderStatus) (*service.TransitionResult, error)
}

// OrderReadStore defines the read-only queries order handlers run outside the
// service's transactions.
type OrderReadStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderDetailsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderDetailsByOrderRow, error)
	ListPaymentReferencesByOrder(ctx context.Context, orderID uuid.UUID) ([]database.PaymentReference, error)
}

// OrderHandler handles order placement, edits, and status transitions.
type OrderHandler struct {
	svc   OrderPlacer
	store OrderReadStore
	hub   *ws.Hub
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderPlacer, store OrderReadStore, hub *ws.Hub) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, hub: hub}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Place)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Edit)
	r.Post("/{id}/status", h.Transition)
}

// --- Request / Response types ---

type orderLineRequest struct {
	MenuItemID        string `json:"menu_item_id"`
	Quantity          int32  `json:"quantity"`
	DiscountID        string `json:"discount_id,omitempty"`
	InstoreCategoryID string `json:"instore_category_id,omitempty"`
	GroupTag          *int32 `json:"group_tag,omitempty"`
}

type placeOrderRequest struct {
	Channel         string             `json:"channel"`
	PaymentMethod   string             `json:"payment_method"`
	AmountPaid      string             `json:"amount_paid"`
	ReferenceNumber string             `json:"reference_number,omitempty"`
	Lines           []orderLineRequest `json:"lines"`
}

type editOrderRequest struct {
	PaymentMethod   string             `json:"payment_method"`
	AmountPaid      string             `json:"amount_paid"`
	ReferenceNumber string             `json:"reference_number,omitempty"`
	AmountDelta     string             `json:"amount_delta,omitempty"`
	Lines           []orderLineRequest `json:"lines"`
}

type transitionRequest struct {
	Status string `json:"status"`
}

type orderLineResponse struct {
	ID                  uuid.UUID  `json:"id"`
	MenuItemID          uuid.UUID  `json:"menu_item_id"`
	MenuItemName        string     `json:"menu_item_name,omitempty"`
	Quantity            int32      `json:"quantity"`
	UnitPrice           string     `json:"unit_price"`
	ChannelDeductionPct string     `json:"channel_deduction_pct"`
	DiscountID          *uuid.UUID `json:"discount_id"`
	DiscountPct         string     `json:"discount_pct"`
	InstoreCategoryID   *uuid.UUID `json:"instore_category_id"`
	GroupTag            *int32     `json:"group_tag"`
	GroupBaseAmount     *string    `json:"group_base_amount"`
	Subtotal            string     `json:"subtotal"`
}

type paymentReferenceResponse struct {
	ID              uuid.UUID `json:"id"`
	ReferenceNumber string    `json:"reference_number"`
	Amount          string    `json:"amount"`
	CreatedAt       time.Time `json:"created_at"`
}

type orderResponse struct {
	ID                uuid.UUID                  `json:"id"`
	OrderNumber       string                     `json:"order_number"`
	Channel           string                     `json:"channel"`
	PaymentMethod     string                     `json:"payment_method"`
	Status            string                     `json:"status"`
	AmountPaid        string                     `json:"amount_paid"`
	TotalAmount       string                     `json:"total_amount"`
	ChangeAmount      string                     `json:"change_amount"`
	CreatedBy         uuid.UUID                  `json:"created_by"`
	CreatedAt         time.Time                  `json:"created_at"`
	UpdatedAt         time.Time                  `json:"updated_at"`
	Lines             []orderLineResponse        `json:"lines,omitempty"`
	PaymentReferences []paymentReferenceResponse `json:"payment_references,omitempty"`
}

func toOrderResponse(o database.Order) orderResponse {
	return orderResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		Channel:       string(o.Channel),
		PaymentMethod: string(o.PaymentMethod),
		Status:        string(o.Status),
		AmountPaid:    numericToString(o.AmountPaid),
		TotalAmount:   numericToString(o.TotalAmount),
		ChangeAmount:  numericToString(o.ChangeAmount),
		CreatedBy:     o.CreatedBy,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func groupTagOrNil(t pgtype.Int4) *int32 {
	if !t.Valid {
		return nil
	}
	return &t.Int32
}

func numericStringOrNil(n pgtype.Numeric) *string {
	if !n.Valid {
		return nil
	}
	s := numericToString(n)
	return &s
}

func toOrderLineResponse(d database.OrderDetail) orderLineResponse {
	return orderLineResponse{
		ID:                  d.ID,
		MenuItemID:          d.MenuItemID,
		Quantity:            d.Quantity,
		UnitPrice:           numericToString(d.UnitPrice),
		ChannelDeductionPct: numericToString(d.ChannelDeductionPct),
		DiscountID:          uuidOrNil(d.DiscountID),
		DiscountPct:         numericToString(d.DiscountPct),
		InstoreCategoryID:   uuidOrNil(d.InstoreCategoryID),
		GroupTag:            groupTagOrNil(d.GroupTag),
		GroupBaseAmount:     numericStringOrNil(d.GroupBaseAmount),
		Subtotal:            numericToString(d.Subtotal),
	}
}

func toServiceLines(lines []orderLineRequest) []service.OrderLineRequest {
	out := make([]service.OrderLineRequest, len(lines))
	for i, l := range lines {
		out[i] = service.OrderLineRequest{
			MenuItemID:        l.MenuItemID,
			Quantity:          l.Quantity,
			DiscountID:        l.DiscountID,
			InstoreCategoryID: l.InstoreCategoryID,
			GroupTag:          l.GroupTag,
		}
	}
	return out
}

// writeServiceError maps order service errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrMenuItemNotFound),
		errors.Is(err, service.ErrDiscountNotFound),
		errors.Is(err, service.ErrInstoreCategoryNotFound):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrOrderNotEditable),
		errors.Is(err, service.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrEmptyLines),
		errors.Is(err, service.ErrInvalidChannel),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidMenuItemID),
		errors.Is(err, service.ErrInvalidDiscountID),
		errors.Is(err, service.ErrInvalidInstoreCategoryID),
		errors.Is(err, service.ErrInvalidAmountPaid),
		errors.Is(err, service.ErrChannelMismatch):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: order service: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// --- Handlers ---

// Place creates an order.
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.PlaceOrder(r.Context(), service.PlaceOrderRequest{
		Channel:         req.Channel,
		PaymentMethod:   req.PaymentMethod,
		AmountPaid:      req.AmountPaid,
		ReferenceNumber: req.ReferenceNumber,
		CreatedBy:       claims.EmployeeID,
		Lines:           toServiceLines(req.Lines),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := toOrderResponse(result.Order)
	resp.Lines = make([]orderLineResponse, len(result.Lines))
	for i, d := range result.Lines {
		resp.Lines[i] = toOrderLineResponse(d)
	}

	broadcastEvent(h.hub, ws.TopicOrders, ws.EventOrderCreated, resp)
	writeJSON(w, http.StatusCreated, resp)
}

// List returns orders filtered by status, channel and date range.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	var params database.ListOrdersParams
	params.Limit = 50

	q := r.URL.Query()
	if v := q.Get("status"); v != "" {
		params.Status = pgtype.Text{String: v, Valid: true}
	}
	if v := q.Get("channel"); v != "" {
		params.Channel = pgtype.Text{String: v, Valid: true}
	}
	if v := q.Get("from"); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid from date"})
			return
		}
		params.DateFrom = pgtype.Date{Time: d, Valid: true}
	}
	if v := q.Get("to"); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid to date"})
			return
		}
		params.DateTo = pgtype.Date{Time: d, Valid: true}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 1 || n > 200 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		params.Limit = int32(n)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid offset"})
			return
		}
		params.Offset = int32(n)
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns an order with its lines and payment references.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	details, err := h.store.ListOrderDetailsByOrder(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: list order details: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	refs, err := h.store.ListPaymentReferencesByOrder(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: list payment references: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toOrderResponse(order)
	resp.Lines = make([]orderLineResponse, len(details))
	for i, d := range details {
		resp.Lines[i] = orderLineResponse{
			ID:                  d.ID,
			MenuItemID:          d.MenuItemID,
			MenuItemName:        d.MenuItemName,
			Quantity:            d.Quantity,
			UnitPrice:           numericToString(d.UnitPrice),
			ChannelDeductionPct: numericToString(d.ChannelDeductionPct),
			DiscountID:          uuidOrNil(d.DiscountID),
			DiscountPct:         numericToString(d.DiscountPct),
			InstoreCategoryID:   uuidOrNil(d.InstoreCategoryID),
			GroupTag:            groupTagOrNil(d.GroupTag),
			GroupBaseAmount:     numericStringOrNil(d.GroupBaseAmount),
			Subtotal:            numericToString(d.Subtotal),
		}
	}
	resp.PaymentReferences = make([]paymentReferenceResponse, len(refs))
	for i, ref := range refs {
		resp.PaymentReferences[i] = paymentReferenceResponse{
			ID:              ref.ID,
			ReferenceNumber: ref.ReferenceNumber,
			Amount:          numericToString(ref.Amount),
			CreatedAt:       ref.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Edit replaces a pending order's lines and payment fields.
func (h *OrderHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}

	var req editOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.EditOrder(r.Context(), service.EditOrderRequest{
		OrderID:         id,
		PaymentMethod:   req.PaymentMethod,
		AmountPaid:      req.AmountPaid,
		ReferenceNumber: req.ReferenceNumber,
		AmountDelta:     req.AmountDelta,
		Lines:           toServiceLines(req.Lines),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := toOrderResponse(result.Order)
	resp.Lines = make([]orderLineResponse, len(result.Lines))
	for i, d := range result.Lines {
		resp.Lines[i] = toOrderLineResponse(d)
	}

	broadcastEvent(h.hub, ws.TopicOrders, ws.EventOrderUpdated, resp)
	writeJSON(w, http.StatusOK, resp)
}

// Transition moves an order to a new status. Completing or comping an order
// also deducts recipe ingredients, so availability flips ride along.
func (h *OrderHandler) Transition(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	target := database.OrderStatus(req.Status)
	switch target {
	case database.OrderStatusCompleted, database.OrderStatusComplimentary, database.OrderStatusCancelled:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status must be COMPLETED, COMPLIMENTARY or CANCELLED"})
		return
	}

	result, err := h.svc.TransitionStatus(r.Context(), id, target)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := toOrderResponse(result.Order)
	broadcastEvent(h.hub, ws.TopicOrders, ws.EventOrderStatusChanged, resp)
	for _, change := range result.AvailabilityChanges {
		broadcastEvent(h.hub, ws.TopicInventory, ws.EventAvailabilityChanged, change)
	}
	writeJSON(w, http.StatusOK, resp)
}
