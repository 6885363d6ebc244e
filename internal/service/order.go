package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/wingbros-pos/api/internal/database"
	"github.com/wingbros-pos/api/internal/unit"
)

const maxOrderNumberRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyLines               = errors.New("lines are required")
	ErrInvalidChannel           = errors.New("invalid channel")
	ErrInvalidPaymentMethod     = errors.New("invalid payment_method")
	ErrInvalidQuantity          = errors.New("quantity must be > 0")
	ErrInvalidMenuItemID        = errors.New("invalid menu_item_id")
	ErrInvalidDiscountID        = errors.New("invalid discount_id")
	ErrInvalidInstoreCategoryID = errors.New("invalid instore_category_id")
	ErrInvalidAmountPaid        = errors.New("invalid amount_paid")
	ErrMenuItemNotFound         = errors.New("menu item not found")
	ErrChannelMismatch          = errors.New("menu item does not belong to order channel")
	ErrDiscountNotFound         = errors.New("discount not found")
	ErrInstoreCategoryNotFound  = errors.New("in-store category not found")
	ErrOrderNotFound            = errors.New("order not found")
	ErrOrderNotEditable         = errors.New("only pending orders can be edited")
	ErrInvalidTransition        = errors.New("invalid status transition")
)

// validTransitions is the full order status machine. Terminal statuses have
// no outgoing edges.
var validTransitions = map[database.OrderStatus][]database.OrderStatus{
	database.OrderStatusPending: {
		database.OrderStatusCompleted,
		database.OrderStatusComplimentary,
		database.OrderStatusCancelled,
	},
}

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods the order service needs.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetNextOrderSequence(ctx context.Context) (int64, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	GetDiscount(ctx context.Context, id uuid.UUID) (database.Discount, error)
	GetInstoreCategory(ctx context.Context, id uuid.UUID) (database.InstoreCategory, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderTotals(ctx context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	CreateOrderDetail(ctx context.Context, arg database.CreateOrderDetailParams) (database.OrderDetail, error)
	ListOrderDetailsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderDetailsByOrderRow, error)
	DeleteOrderDetailsByOrder(ctx context.Context, orderID uuid.UUID) error
	CreatePaymentReference(ctx context.Context, arg database.CreatePaymentReferenceParams) (database.PaymentReference, error)
	GetRecipeForMenuItem(ctx context.Context, menuItemID uuid.UUID) ([]database.RecipeRow, error)
	GetInventoryForUpdate(ctx context.Context, itemID uuid.UUID) (database.Inventory, error)
	SetInventoryQuantity(ctx context.Context, arg database.SetInventoryQuantityParams) (database.Inventory, error)
	CreateDisposal(ctx context.Context, arg database.CreateDisposalParams) (database.Disposal, error)
	ListMenuItemIDsUsingItems(ctx context.Context, itemIDs []uuid.UUID) ([]uuid.UUID, error)
	ListMenuItems(ctx context.Context) ([]database.MenuItem, error)
	SetMenuItemStatus(ctx context.Context, arg database.SetMenuItemStatusParams) (database.MenuItem, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// OrderLineRequest is a single line in a place/edit request.
type OrderLineRequest struct {
	MenuItemID        string
	Quantity          int32
	DiscountID        string
	InstoreCategoryID string
	GroupTag          *int32
}

// PlaceOrderRequest is the validated input for placing an order.
type PlaceOrderRequest struct {
	Channel         string
	PaymentMethod   string
	AmountPaid      string
	ReferenceNumber string
	CreatedBy       uuid.UUID
	Lines           []OrderLineRequest
}

// EditOrderRequest replaces an order's lines and payment fields.
type EditOrderRequest struct {
	OrderID         uuid.UUID
	PaymentMethod   string
	AmountPaid      string
	ReferenceNumber string
	// AmountDelta, when supplied, overrides the computed incremental payment
	// recorded against a cashless reference.
	AmountDelta string
	Lines       []OrderLineRequest
}

// OrderResult is an order with its line rows.
type OrderResult struct {
	Order database.Order
	Lines []database.OrderDetail
}

// AvailabilityChange records a menu item whose status flipped.
type AvailabilityChange struct {
	MenuItemID uuid.UUID               `json:"menu_item_id"`
	Name       string                  `json:"name"`
	Status     database.MenuItemStatus `json:"status"`
}

// TransitionResult is the outcome of a status transition, including any menu
// items whose availability flipped as a result of inventory deductions.
type TransitionResult struct {
	Order               database.Order
	AvailabilityChanges []AvailabilityChange
}

// OrderService handles order pricing, placement, and fulfillment.
type OrderService struct {
	pool         TxBeginner
	newStore     NewOrderStore
	grabPct      decimal.Decimal
	foodPandaPct decimal.Decimal
}

// NewOrderService creates an OrderService. The deduction percentages are the
// platform commission rates (0-100) captured onto each line at placement.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, grabPct, foodPandaPct decimal.Decimal) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, grabPct: grabPct, foodPandaPct: foodPandaPct}
}

// pricedLine is a fully priced order detail ready for insert.
type pricedLine struct {
	params database.CreateOrderDetailParams
}

// deductionFor returns the commission percentage for a channel. In-store
// orders carry no deduction.
func (s *OrderService) deductionFor(channel database.Channel) decimal.Decimal {
	switch channel {
	case database.ChannelGrab:
		return s.grabPct
	case database.ChannelFoodPanda:
		return s.foodPandaPct
	}
	return decimal.Zero
}

func validateChannel(v string) (database.Channel, error) {
	switch database.Channel(v) {
	case database.ChannelInStore, database.ChannelGrab, database.ChannelFoodPanda:
		return database.Channel(v), nil
	}
	return "", ErrInvalidChannel
}

func validatePaymentMethod(v string) (database.PaymentMethod, error) {
	switch database.PaymentMethod(v) {
	case database.PaymentMethodCash, database.PaymentMethodGCash:
		return database.PaymentMethod(v), nil
	}
	return "", ErrInvalidPaymentMethod
}

// round2 applies the 2-decimal rounding used after every accumulation step.
// Rounding per step, not once at the end, changes cent-level outcomes and is
// load-bearing for price parity with the registers.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// pct converts a 0-100 percentage to a multiplier (1 - p/100).
func pct(p decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Sub(p.Div(decimal.NewFromInt(100)))
}

// PlaceOrder validates, prices, and creates an order atomically. Retries on
// order_number unique violations where concurrent transactions read the same
// MAX sequence.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*OrderResult, error) {
	channel, err := validateChannel(req.Channel)
	if err != nil {
		return nil, err
	}
	method, err := validatePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if len(req.Lines) == 0 {
		return nil, ErrEmptyLines
	}
	amountPaid, err := decimal.NewFromString(req.AmountPaid)
	if err != nil {
		return nil, ErrInvalidAmountPaid
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.placeOrderTx(ctx, req, channel, method, amountPaid)
		if err == nil {
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// isOrderNumberConflict checks for a unique constraint violation on the order
// number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key"
	}
	return false
}

func (s *OrderService) placeOrderTx(ctx context.Context, req PlaceOrderRequest, channel database.Channel, method database.PaymentMethod, amountPaid decimal.Decimal) (*OrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	seq, err := store.GetNextOrderSequence(ctx)
	if err != nil {
		return nil, fmt.Errorf("get next order sequence: %w", err)
	}
	orderNumber := fmt.Sprintf("WNG-%06d", seq)

	priced, total, err := s.priceLines(ctx, store, channel, req.Lines, nil)
	if err != nil {
		return nil, err
	}

	change := round2(amountPaid.Sub(total))

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber:   orderNumber,
		Channel:       channel,
		PaymentMethod: method,
		Status:        database.OrderStatusPending,
		AmountPaid:    decimalToNumeric(amountPaid),
		TotalAmount:   decimalToNumeric(total),
		ChangeAmount:  decimalToNumeric(change),
		CreatedBy:     req.CreatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	var lines []database.OrderDetail
	for _, pl := range priced {
		pl.params.OrderID = order.ID
		detail, err := store.CreateOrderDetail(ctx, pl.params)
		if err != nil {
			return nil, fmt.Errorf("create order detail: %w", err)
		}
		lines = append(lines, detail)
	}

	if method == database.PaymentMethodGCash && req.ReferenceNumber != "" {
		if _, err := store.CreatePaymentReference(ctx, database.CreatePaymentReferenceParams{
			OrderID:         order.ID,
			ReferenceNumber: req.ReferenceNumber,
			Amount:          decimalToNumeric(amountPaid),
		}); err != nil {
			return nil, fmt.Errorf("create payment reference: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &OrderResult{Order: order, Lines: lines}, nil
}

// groupState accumulates flat-rate billing for one bundle group.
type groupState struct {
	baseAmount  decimal.Decimal
	discountPct decimal.Decimal
	hasDiscount bool
}

// priceLines validates and prices every line. Bundle groups (in-store flat
// categories) bill once per group at the captured base amount; the group's
// first non-null discount applies to that flat amount once, carried on the
// group's first line. baseOverrides maps group tags to base amounts captured
// on an earlier placement, so edits never reprice at the current master rate.
func (s *OrderService) priceLines(ctx context.Context, store OrderStore, channel database.Channel, lines []OrderLineRequest, baseOverrides map[int32]decimal.Decimal) ([]pricedLine, decimal.Decimal, error) {
	deduction := s.deductionFor(channel)

	// Handler-assigned group tags start above any caller-supplied tag.
	nextTag := int32(1)
	for _, line := range lines {
		if line.GroupTag != nil && *line.GroupTag >= nextTag {
			nextTag = *line.GroupTag + 1
		}
	}

	type lineInfo struct {
		params   database.CreateOrderDetailParams
		grouped  bool
		groupTag int32
	}

	var infos []lineInfo
	groups := make(map[int32]*groupState)
	var groupOrder []int32

	for i, line := range lines {
		if line.Quantity <= 0 {
			return nil, decimal.Zero, fmt.Errorf("line[%d]: %w", i, ErrInvalidQuantity)
		}
		menuItemID, err := uuid.Parse(line.MenuItemID)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("line[%d]: %w", i, ErrInvalidMenuItemID)
		}
		menuItem, err := store.GetMenuItem(ctx, menuItemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, decimal.Zero, fmt.Errorf("line[%d]: %w", i, ErrMenuItemNotFound)
			}
			return nil, decimal.Zero, fmt.Errorf("line[%d]: get menu item: %w", i, err)
		}
		if menuItem.Channel != channel {
			return nil, decimal.Zero, fmt.Errorf("line[%d]: %w", i, ErrChannelMismatch)
		}
		price := numericToDecimal(menuItem.Price)

		discountID := pgtype.UUID{}
		discountPct := decimal.Zero
		hasDiscount := false
		if line.DiscountID != "" {
			did, err := uuid.Parse(line.DiscountID)
			if err != nil {
				return nil, decimal.Zero, fmt.Errorf("line[%d]: %w", i, ErrInvalidDiscountID)
			}
			discount, err := store.GetDiscount(ctx, did)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, decimal.Zero, fmt.Errorf("line[%d]: %w", i, ErrDiscountNotFound)
				}
				return nil, decimal.Zero, fmt.Errorf("line[%d]: get discount: %w", i, err)
			}
			discountID = pgtype.UUID{Bytes: did, Valid: true}
			discountPct = numericToDecimal(discount.Percentage)
			hasDiscount = true
		}

		params := database.CreateOrderDetailParams{
			MenuItemID:          menuItemID,
			Quantity:            line.Quantity,
			UnitPrice:           decimalToNumeric(price),
			ChannelDeductionPct: decimalToNumeric(deduction),
			DiscountID:          discountID,
			DiscountPct:         decimalToNumeric(discountPct),
		}

		if channel == database.ChannelInStore && line.InstoreCategoryID != "" {
			// Flat-rate bundle line.
			icID, err := uuid.Parse(line.InstoreCategoryID)
			if err != nil {
				return nil, decimal.Zero, fmt.Errorf("line[%d]: %w", i, ErrInvalidInstoreCategoryID)
			}

			tag := nextTag
			if line.GroupTag != nil {
				tag = *line.GroupTag
			} else {
				nextTag++
			}

			g, ok := groups[tag]
			if !ok {
				base := decimal.Zero
				override := false
				if b, ok := baseOverrides[tag]; ok {
					base, override = b, true
				}
				if !override {
					ic, err := store.GetInstoreCategory(ctx, icID)
					if err != nil {
						if errors.Is(err, pgx.ErrNoRows) {
							return nil, decimal.Zero, fmt.Errorf("line[%d]: %w", i, ErrInstoreCategoryNotFound)
						}
						return nil, decimal.Zero, fmt.Errorf("line[%d]: get instore category: %w", i, err)
					}
					base = numericToDecimal(ic.BaseAmount)
				}
				g = &groupState{baseAmount: base}
				groups[tag] = g
				groupOrder = append(groupOrder, tag)
			}
			if hasDiscount && !g.hasDiscount {
				g.discountPct = discountPct
				g.hasDiscount = true
			}

			params.InstoreCategoryID = pgtype.UUID{Bytes: icID, Valid: true}
			params.GroupTag = pgtype.Int4{Int32: tag, Valid: true}
			params.GroupBaseAmount = decimalToNumeric(g.baseAmount)
			params.Subtotal = decimalToNumeric(decimal.Zero)

			infos = append(infos, lineInfo{params: params, grouped: true, groupTag: tag})
			continue
		}

		// Per-line pricing: base, then channel deduction, then discount,
		// rounded after each step.
		base := round2(price.Mul(decimal.NewFromInt32(line.Quantity)))
		afterDeduction := base
		if deduction.IsPositive() {
			afterDeduction = round2(base.Mul(pct(deduction)))
		}
		final := afterDeduction
		if hasDiscount {
			final = round2(afterDeduction.Mul(pct(discountPct)))
		}

		params.Subtotal = decimalToNumeric(final)
		infos = append(infos, lineInfo{params: params})
	}

	// Settle each group's flat amount onto its first line.
	groupFinal := make(map[int32]decimal.Decimal, len(groups))
	for _, tag := range groupOrder {
		g := groups[tag]
		final := round2(g.baseAmount)
		if g.hasDiscount {
			final = round2(final.Mul(pct(g.discountPct)))
		}
		groupFinal[tag] = final
	}

	total := decimal.Zero
	settled := make(map[int32]bool)
	var priced []pricedLine
	for _, info := range infos {
		if info.grouped && !settled[info.groupTag] {
			info.params.Subtotal = decimalToNumeric(groupFinal[info.groupTag])
			settled[info.groupTag] = true
		}
		total = round2(total.Add(numericToDecimal(info.params.Subtotal)))
		priced = append(priced, pricedLine{params: info.params})
	}

	return priced, total, nil
}

// EditOrder replaces all detail rows (delete-all, re-insert) and updates the
// order's payment fields. Bundle groups that survive the edit keep the base
// amount captured at placement even if the category's master rate has since
// changed. For cashless payments an additional reference row records only the
// incremental amount paid in this edit.
func (s *OrderService) EditOrder(ctx context.Context, req EditOrderRequest) (*OrderResult, error) {
	method, err := validatePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if len(req.Lines) == 0 {
		return nil, ErrEmptyLines
	}
	amountPaid, err := decimal.NewFromString(req.AmountPaid)
	if err != nil {
		return nil, ErrInvalidAmountPaid
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Status != database.OrderStatusPending {
		return nil, ErrOrderNotEditable
	}

	existing, err := store.ListOrderDetailsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order details: %w", err)
	}
	baseOverrides := make(map[int32]decimal.Decimal)
	for _, d := range existing {
		if d.GroupTag.Valid && d.GroupBaseAmount.Valid {
			baseOverrides[d.GroupTag.Int32] = numericToDecimal(d.GroupBaseAmount)
		}
	}
	previousPaid := numericToDecimal(order.AmountPaid)

	priced, total, err := s.priceLines(ctx, store, order.Channel, req.Lines, baseOverrides)
	if err != nil {
		return nil, err
	}

	if err := store.DeleteOrderDetailsByOrder(ctx, order.ID); err != nil {
		return nil, fmt.Errorf("delete order details: %w", err)
	}

	var lines []database.OrderDetail
	for _, pl := range priced {
		pl.params.OrderID = order.ID
		detail, err := store.CreateOrderDetail(ctx, pl.params)
		if err != nil {
			return nil, fmt.Errorf("create order detail: %w", err)
		}
		lines = append(lines, detail)
	}

	change := round2(amountPaid.Sub(total))
	order, err = store.UpdateOrderTotals(ctx, database.UpdateOrderTotalsParams{
		ID:            order.ID,
		PaymentMethod: method,
		AmountPaid:    decimalToNumeric(amountPaid),
		TotalAmount:   decimalToNumeric(total),
		ChangeAmount:  decimalToNumeric(change),
	})
	if err != nil {
		return nil, fmt.Errorf("update order totals: %w", err)
	}

	if method == database.PaymentMethodGCash && req.ReferenceNumber != "" {
		delta := round2(amountPaid.Sub(previousPaid))
		if req.AmountDelta != "" {
			d, err := decimal.NewFromString(req.AmountDelta)
			if err != nil {
				return nil, ErrInvalidAmountPaid
			}
			delta = round2(d)
		}
		if _, err := store.CreatePaymentReference(ctx, database.CreatePaymentReferenceParams{
			OrderID:         order.ID,
			ReferenceNumber: req.ReferenceNumber,
			Amount:          decimalToNumeric(delta),
		}); err != nil {
			return nil, fmt.Errorf("create payment reference: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &OrderResult{Order: order, Lines: lines}, nil
}

// TransitionStatus moves an order along the status machine. Completing (or
// comping) an order deducts recipe ingredients from inventory, writes a
// disposal row per deduction, and recomputes availability for every menu item
// sharing an affected inventory row, all in one transaction. Cancelling
// touches no inventory.
func (s *OrderService) TransitionStatus(ctx context.Context, orderID uuid.UUID, target database.OrderStatus) (*TransitionResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	allowed := false
	for _, next := range validTransitions[order.Status] {
		if next == target {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, target)
	}

	var changes []AvailabilityChange
	if target == database.OrderStatusCompleted || target == database.OrderStatusComplimentary {
		reason := database.DisposalReasonRecipeConsumption
		if target == database.OrderStatusComplimentary {
			reason = database.DisposalReasonComplimentary
		}
		changes, err = s.deductRecipes(ctx, store, order, reason)
		if err != nil {
			return nil, err
		}
	}

	order, err = store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:         order.ID,
		FromStatus: order.Status,
		ToStatus:   target,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: order status changed concurrently", ErrInvalidTransition)
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &TransitionResult{Order: order, AvailabilityChanges: changes}, nil
}

// deductRecipes consumes recipe ingredients for every order line. Required
// quantities convert to the inventory item's unit before deduction; deficits
// clamp the row at zero rather than rejecting, since the sale has already
// physically happened. Each non-zero deduction writes a disposal row
// attributed to the order's employee; a row already at zero gets no disposal
// (the quantity CHECK rejects zero rows) but still triggers an availability
// recheck.
func (s *OrderService) deductRecipes(ctx context.Context, store OrderStore, order database.Order, reason database.DisposalReason) ([]AvailabilityChange, error) {
	details, err := store.ListOrderDetailsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order details: %w", err)
	}

	affected := make(map[uuid.UUID]bool)
	for _, detail := range details {
		recipe, err := store.GetRecipeForMenuItem(ctx, detail.MenuItemID)
		if err != nil {
			return nil, fmt.Errorf("get recipe: %w", err)
		}
		for _, ing := range recipe {
			required, err := unit.ConvertAuto(numericToDecimal(ing.Quantity), ing.Unit, ing.ItemUnit)
			if err != nil {
				return nil, fmt.Errorf("convert %s: %w", ing.ItemName, err)
			}
			required = required.Mul(decimal.NewFromInt32(detail.Quantity))

			inv, err := store.GetInventoryForUpdate(ctx, ing.ItemID)
			if err != nil {
				return nil, fmt.Errorf("lock inventory for %s: %w", ing.ItemName, err)
			}
			onHand := numericToDecimal(inv.Quantity)

			deducted := required
			if deducted.GreaterThan(onHand) {
				deducted = onHand
			}

			if deducted.IsPositive() {
				newQty := onHand.Sub(deducted)

				if _, err := store.SetInventoryQuantity(ctx, database.SetInventoryQuantityParams{
					ItemID:   ing.ItemID,
					Quantity: decimalToQuantityNumeric(newQty),
				}); err != nil {
					return nil, fmt.Errorf("set inventory for %s: %w", ing.ItemName, err)
				}

				if _, err := store.CreateDisposal(ctx, database.CreateDisposalParams{
					ItemID:     ing.ItemID,
					Quantity:   decimalToQuantityNumeric(deducted),
					Unit:       ing.ItemUnit,
					Reason:     reason,
					DisposedBy: order.CreatedBy,
					Notes:      pgtype.Text{String: "order " + order.OrderNumber, Valid: true},
				}); err != nil {
					return nil, fmt.Errorf("create disposal for %s: %w", ing.ItemName, err)
				}
			}

			affected[ing.ItemID] = true
		}
	}

	if len(affected) == 0 {
		return nil, nil
	}

	itemIDs := make([]uuid.UUID, 0, len(affected))
	for id := range affected {
		itemIDs = append(itemIDs, id)
	}
	menuItemIDs, err := store.ListMenuItemIDsUsingItems(ctx, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("list menu items using items: %w", err)
	}

	var changes []AvailabilityChange
	for _, id := range menuItemIDs {
		change, err := recomputeAvailability(ctx, store, id)
		if err != nil {
			return nil, err
		}
		if change != nil {
			changes = append(changes, *change)
		}
	}
	return changes, nil
}

// recomputeAvailability flips a menu item's status when its recipe can no
// longer (or once again can) be satisfied by current stock. Returns nil when
// the stored status already matches.
func recomputeAvailability(ctx context.Context, store OrderStore, menuItemID uuid.UUID) (*AvailabilityChange, error) {
	menuItem, err := store.GetMenuItem(ctx, menuItemID)
	if err != nil {
		return nil, fmt.Errorf("get menu item: %w", err)
	}
	recipe, err := store.GetRecipeForMenuItem(ctx, menuItemID)
	if err != nil {
		return nil, fmt.Errorf("get recipe: %w", err)
	}

	status := database.MenuItemStatusAvailable
	for _, ing := range recipe {
		required, err := unit.ConvertAuto(numericToDecimal(ing.Quantity), ing.Unit, ing.ItemUnit)
		if err != nil {
			return nil, fmt.Errorf("convert %s: %w", ing.ItemName, err)
		}
		if numericToDecimal(ing.OnHand).LessThan(required) {
			status = database.MenuItemStatusUnavailable
			break
		}
	}

	if status == menuItem.Status {
		return nil, nil
	}
	updated, err := store.SetMenuItemStatus(ctx, database.SetMenuItemStatusParams{
		ID:     menuItemID,
		Status: status,
	})
	if err != nil {
		return nil, fmt.Errorf("set menu item status: %w", err)
	}
	return &AvailabilityChange{MenuItemID: updated.ID, Name: updated.Name, Status: updated.Status}, nil
}

// RecheckAvailability walks every menu item and flips stored statuses that no
// longer match current stock.
func (s *OrderService) RecheckAvailability(ctx context.Context) ([]AvailabilityChange, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	menuItems, err := store.ListMenuItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}

	var changes []AvailabilityChange
	for _, m := range menuItems {
		change, err := recomputeAvailability(ctx, store, m.ID)
		if err != nil {
			return nil, err
		}
		if change != nil {
			changes = append(changes, *change)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return changes, nil
}

// --- Helpers ---

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// decimalToNumeric renders money values; everything it stores carries two
// decimal places.
func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

// decimalToQuantityNumeric keeps full precision. Stock quantities are not
// money and must never round.
func decimalToQuantityNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.String())
	return n
}
