package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getNextOrderSequence = `
SELECT COALESCE(MAX(CAST(SUBSTRING(order_number FROM 5) AS INTEGER)), 0) + 1
FROM orders
`

// GetNextOrderSequence computes the next sequence from existing order
// numbers (WNG-000123 style). Callers must hold a transaction; the unique
// constraint on order_number catches the rare concurrent collision and the
// service retries.
func (q *Queries) GetNextOrderSequence(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, getNextOrderSequence)
	var seq int64
	err := row.Scan(&seq)
	return seq, err
}

const createOrder = `
INSERT INTO orders (order_number, channel, payment_method, status, amount_paid, total_amount, change_amount, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, order_number, channel, payment_method, status, amount_paid, total_amount, change_amount, created_by, created_at, updated_at
`

type CreateOrderParams struct {
	OrderNumber   string
	Channel       Channel
	PaymentMethod PaymentMethod
	Status        OrderStatus
	AmountPaid    pgtype.Numeric
	TotalAmount   pgtype.Numeric
	ChangeAmount  pgtype.Numeric
	CreatedBy     uuid.UUID
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.OrderNumber, arg.Channel, arg.PaymentMethod, arg.Status,
		arg.AmountPaid, arg.TotalAmount, arg.ChangeAmount, arg.CreatedBy)
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.Channel, &o.PaymentMethod, &o.Status,
		&o.AmountPaid, &o.TotalAmount, &o.ChangeAmount, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

const getOrder = `
SELECT id, order_number, channel, payment_method, status, amount_paid, total_amount, change_amount, created_by, created_at, updated_at
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, id)
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.Channel, &o.PaymentMethod, &o.Status,
		&o.AmountPaid, &o.TotalAmount, &o.ChangeAmount, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

const getOrderForUpdate = `
SELECT id, order_number, channel, payment_method, status, amount_paid, total_amount, change_amount, created_by, created_at, updated_at
FROM orders
WHERE id = $1
FOR UPDATE
`

// GetOrderForUpdate locks the order row so concurrent status transitions
// against the same order serialize instead of both reading PENDING.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, getOrderForUpdate, id)
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.Channel, &o.PaymentMethod, &o.Status,
		&o.AmountPaid, &o.TotalAmount, &o.ChangeAmount, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

const listOrders = `
SELECT id, order_number, channel, payment_method, status, amount_paid, total_amount, change_amount, created_by, created_at, updated_at
FROM orders
WHERE ($1::text IS NULL OR status = $1)
  AND ($2::text IS NULL OR channel = $2)
  AND ($3::date IS NULL OR created_at >= $3)
  AND ($4::date IS NULL OR created_at < $4 + INTERVAL '1 day')
ORDER BY created_at DESC
LIMIT $5 OFFSET $6
`

type ListOrdersParams struct {
	Status   pgtype.Text
	Channel  pgtype.Text
	DateFrom pgtype.Date
	DateTo   pgtype.Date
	Limit    int32
	Offset   int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.Status, arg.Channel, arg.DateFrom, arg.DateTo, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.Channel, &o.PaymentMethod, &o.Status,
			&o.AmountPaid, &o.TotalAmount, &o.ChangeAmount, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const updateOrderTotals = `
UPDATE orders
SET payment_method = $2, amount_paid = $3, total_amount = $4, change_amount = $5, updated_at = now()
WHERE id = $1
RETURNING id, order_number, channel, payment_method, status, amount_paid, total_amount, change_amount, created_by, created_at, updated_at
`

type UpdateOrderTotalsParams struct {
	ID            uuid.UUID
	PaymentMethod PaymentMethod
	AmountPaid    pgtype.Numeric
	TotalAmount   pgtype.Numeric
	ChangeAmount  pgtype.Numeric
}

func (q *Queries) UpdateOrderTotals(ctx context.Context, arg UpdateOrderTotalsParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderTotals,
		arg.ID, arg.PaymentMethod, arg.AmountPaid, arg.TotalAmount, arg.ChangeAmount)
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.Channel, &o.PaymentMethod, &o.Status,
		&o.AmountPaid, &o.TotalAmount, &o.ChangeAmount, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

const updateOrderStatus = `
UPDATE orders
SET status = $3, updated_at = now()
WHERE id = $1 AND status = $2
RETURNING id, order_number, channel, payment_method, status, amount_paid, total_amount, change_amount, created_by, created_at, updated_at
`

type UpdateOrderStatusParams struct {
	ID         uuid.UUID
	FromStatus OrderStatus
	ToStatus   OrderStatus
}

// UpdateOrderStatus is conditional on the expected current status; a stale
// transition comes back as pgx.ErrNoRows.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.FromStatus, arg.ToStatus)
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.Channel, &o.PaymentMethod, &o.Status,
		&o.AmountPaid, &o.TotalAmount, &o.ChangeAmount, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// --- Order details ---

const createOrderDetail = `
INSERT INTO order_details (order_id, menu_item_id, quantity, unit_price, channel_deduction_pct, discount_id, discount_pct, instore_category_id, group_tag, group_base_amount, subtotal)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id, order_id, menu_item_id, quantity, unit_price, channel_deduction_pct, discount_id, discount_pct, instore_category_id, group_tag, group_base_amount, subtotal
`

type CreateOrderDetailParams struct {
	OrderID             uuid.UUID
	MenuItemID          uuid.UUID
	Quantity            int32
	UnitPrice           pgtype.Numeric
	ChannelDeductionPct pgtype.Numeric
	DiscountID          pgtype.UUID
	DiscountPct         pgtype.Numeric
	InstoreCategoryID   pgtype.UUID
	GroupTag            pgtype.Int4
	GroupBaseAmount     pgtype.Numeric
	Subtotal            pgtype.Numeric
}

func (q *Queries) CreateOrderDetail(ctx context.Context, arg CreateOrderDetailParams) (OrderDetail, error) {
	row := q.db.QueryRow(ctx, createOrderDetail,
		arg.OrderID, arg.MenuItemID, arg.Quantity, arg.UnitPrice, arg.ChannelDeductionPct,
		arg.DiscountID, arg.DiscountPct, arg.InstoreCategoryID, arg.GroupTag, arg.GroupBaseAmount, arg.Subtotal)
	var d OrderDetail
	err := row.Scan(&d.ID, &d.OrderID, &d.MenuItemID, &d.Quantity, &d.UnitPrice, &d.ChannelDeductionPct,
		&d.DiscountID, &d.DiscountPct, &d.InstoreCategoryID, &d.GroupTag, &d.GroupBaseAmount, &d.Subtotal)
	return d, err
}

const listOrderDetailsByOrder = `
SELECT od.id, od.order_id, od.menu_item_id, m.name, od.quantity, od.unit_price, od.channel_deduction_pct,
       od.discount_id, od.discount_pct, od.instore_category_id, od.group_tag, od.group_base_amount, od.subtotal
FROM order_details od
JOIN menu_items m ON m.id = od.menu_item_id
WHERE od.order_id = $1
ORDER BY od.group_tag NULLS FIRST, m.name
`

type ListOrderDetailsByOrderRow struct {
	ID                  uuid.UUID
	OrderID             uuid.UUID
	MenuItemID          uuid.UUID
	MenuItemName        string
	Quantity            int32
	UnitPrice           pgtype.Numeric
	ChannelDeductionPct pgtype.Numeric
	DiscountID          pgtype.UUID
	DiscountPct         pgtype.Numeric
	InstoreCategoryID   pgtype.UUID
	GroupTag            pgtype.Int4
	GroupBaseAmount     pgtype.Numeric
	Subtotal            pgtype.Numeric
}

func (q *Queries) ListOrderDetailsByOrder(ctx context.Context, orderID uuid.UUID) ([]ListOrderDetailsByOrderRow, error) {
	rows, err := q.db.Query(ctx, listOrderDetailsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListOrderDetailsByOrderRow
	for rows.Next() {
		var r ListOrderDetailsByOrderRow
		if err := rows.Scan(&r.ID, &r.OrderID, &r.MenuItemID, &r.MenuItemName, &r.Quantity, &r.UnitPrice,
			&r.ChannelDeductionPct, &r.DiscountID, &r.DiscountPct, &r.InstoreCategoryID,
			&r.GroupTag, &r.GroupBaseAmount, &r.Subtotal); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const deleteOrderDetailsByOrder = `
DELETE FROM order_details WHERE order_id = $1
`

func (q *Queries) DeleteOrderDetailsByOrder(ctx context.Context, orderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteOrderDetailsByOrder, orderID)
	return err
}

// --- Payment references ---

const createPaymentReference = `
INSERT INTO payment_references (order_id, reference_number, amount)
VALUES ($1, $2, $3)
RETURNING id, order_id, reference_number, amount, created_at
`

type CreatePaymentReferenceParams struct {
	OrderID         uuid.UUID
	ReferenceNumber string
	Amount          pgtype.Numeric
}

func (q *Queries) CreatePaymentReference(ctx context.Context, arg CreatePaymentReferenceParams) (PaymentReference, error) {
	row := q.db.QueryRow(ctx, createPaymentReference, arg.OrderID, arg.ReferenceNumber, arg.Amount)
	var p PaymentReference
	err := row.Scan(&p.ID, &p.OrderID, &p.ReferenceNumber, &p.Amount, &p.CreatedAt)
	return p, err
}

const listPaymentReferencesByOrder = `
SELECT id, order_id, reference_number, amount, created_at
FROM payment_references
WHERE order_id = $1
ORDER BY created_at
`

func (q *Queries) ListPaymentReferencesByOrder(ctx context.Context, orderID uuid.UUID) ([]PaymentReference, error) {
	rows, err := q.db.Query(ctx, listPaymentReferencesByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PaymentReference
	for rows.Next() {
		var p PaymentReference
		if err := rows.Scan(&p.ID, &p.OrderID, &p.ReferenceNumber, &p.Amount, &p.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
