package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Report queries only count orders that produced revenue: COMPLETED rows.
// COMPLIMENTARY orders consumed stock but carry a zero total, so they are
// tallied separately where a report needs them.

const getSalesSummary = `
SELECT COUNT(*), COALESCE(SUM(total_amount), 0)
FROM orders
WHERE status = 'COMPLETED'
  AND created_at >= $1
  AND created_at < $2
`

type DateRangeParams struct {
	From time.Time
	To   time.Time
}

type SalesSummaryRow struct {
	OrderCount int64
	TotalSales pgtype.Numeric
}

func (q *Queries) GetSalesSummary(ctx context.Context, arg DateRangeParams) (SalesSummaryRow, error) {
	row := q.db.QueryRow(ctx, getSalesSummary, arg.From, arg.To)
	var r SalesSummaryRow
	err := row.Scan(&r.OrderCount, &r.TotalSales)
	return r, err
}

const getDailySales = `
SELECT (created_at AT TIME ZONE $3)::date AS day, COUNT(*), COALESCE(SUM(total_amount), 0)
FROM orders
WHERE status = 'COMPLETED'
  AND created_at >= $1
  AND created_at < $2
GROUP BY day
ORDER BY day
`

type GetDailySalesParams struct {
	From     time.Time
	To       time.Time
	Timezone string
}

type DailySalesRow struct {
	Day        time.Time
	OrderCount int64
	TotalSales pgtype.Numeric
}

func (q *Queries) GetDailySales(ctx context.Context, arg GetDailySalesParams) ([]DailySalesRow, error) {
	rows, err := q.db.Query(ctx, getDailySales, arg.From, arg.To, arg.Timezone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DailySalesRow
	for rows.Next() {
		var r DailySalesRow
		if err := rows.Scan(&r.Day, &r.OrderCount, &r.TotalSales); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getChannelSales = `
SELECT channel, COUNT(*), COALESCE(SUM(total_amount), 0)
FROM orders
WHERE status = 'COMPLETED'
  AND created_at >= $1
  AND created_at < $2
GROUP BY channel
ORDER BY channel
`

type ChannelSalesRow struct {
	Channel    Channel
	OrderCount int64
	TotalSales pgtype.Numeric
}

func (q *Queries) GetChannelSales(ctx context.Context, arg DateRangeParams) ([]ChannelSalesRow, error) {
	rows, err := q.db.Query(ctx, getChannelSales, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ChannelSalesRow
	for rows.Next() {
		var r ChannelSalesRow
		if err := rows.Scan(&r.Channel, &r.OrderCount, &r.TotalSales); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getTopMenuItems = `
SELECT od.menu_item_id, m.name, SUM(od.quantity), COALESCE(SUM(od.subtotal), 0)
FROM order_details od
JOIN orders o ON o.id = od.order_id
JOIN menu_items m ON m.id = od.menu_item_id
WHERE o.status = 'COMPLETED'
  AND o.created_at >= $1
  AND o.created_at < $2
GROUP BY od.menu_item_id, m.name
ORDER BY SUM(od.quantity) DESC
LIMIT $3
`

type GetTopMenuItemsParams struct {
	From  time.Time
	To    time.Time
	Limit int32
}

type TopMenuItemRow struct {
	MenuItemID   uuid.UUID
	MenuItemName string
	QuantitySold int64
	TotalSales   pgtype.Numeric
}

func (q *Queries) GetTopMenuItems(ctx context.Context, arg GetTopMenuItemsParams) ([]TopMenuItemRow, error) {
	rows, err := q.db.Query(ctx, getTopMenuItems, arg.From, arg.To, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TopMenuItemRow
	for rows.Next() {
		var r TopMenuItemRow
		if err := rows.Scan(&r.MenuItemID, &r.MenuItemName, &r.QuantitySold, &r.TotalSales); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getExpenseSummary = `
SELECT t.id, t.name, COALESCE(SUM(e.cost), 0)
FROM expense_types t
LEFT JOIN expenses e ON e.expense_type_id = t.id
  AND e.expense_date >= $1
  AND e.expense_date <= $2
GROUP BY t.id, t.name
ORDER BY t.name
`

type ExpenseSummaryRow struct {
	ExpenseTypeID   uuid.UUID
	ExpenseTypeName string
	TotalCost       pgtype.Numeric
}

type GetExpenseSummaryParams struct {
	From time.Time
	To   time.Time
}

func (q *Queries) GetExpenseSummary(ctx context.Context, arg GetExpenseSummaryParams) ([]ExpenseSummaryRow, error) {
	rows, err := q.db.Query(ctx, getExpenseSummary, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExpenseSummaryRow
	for rows.Next() {
		var r ExpenseSummaryRow
		if err := rows.Scan(&r.ExpenseTypeID, &r.ExpenseTypeName, &r.TotalCost); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const countComplimentaryOrders = `
SELECT COUNT(*)
FROM orders
WHERE status = 'COMPLIMENTARY'
  AND created_at >= $1
  AND created_at < $2
`

func (q *Queries) CountComplimentaryOrders(ctx context.Context, arg DateRangeParams) (int64, error) {
	row := q.db.QueryRow(ctx, countComplimentaryOrders, arg.From, arg.To)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const listLowStockItems = `
SELECT i.id, i.name, i.unit, inv.quantity, i.reorder_level
FROM items i
JOIN inventory inv ON inv.item_id = i.id
WHERE NOT i.is_archived
  AND i.reorder_level IS NOT NULL
  AND inv.quantity <= i.reorder_level
ORDER BY i.name
`

type LowStockItemRow struct {
	ItemID       uuid.UUID
	ItemName     string
	Unit         string
	Quantity     pgtype.Numeric
	ReorderLevel pgtype.Numeric
}

func (q *Queries) ListLowStockItems(ctx context.Context) ([]LowStockItemRow, error) {
	rows, err := q.db.Query(ctx, listLowStockItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LowStockItemRow
	for rows.Next() {
		var r LowStockItemRow
		if err := rows.Scan(&r.ItemID, &r.ItemName, &r.Unit, &r.Quantity, &r.ReorderLevel); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const countUnavailableMenuItems = `
SELECT COUNT(*) FROM menu_items WHERE status = 'UNAVAILABLE'
`

func (q *Queries) CountUnavailableMenuItems(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countUnavailableMenuItems)
	var count int64
	err := row.Scan(&count)
	return count, err
}
