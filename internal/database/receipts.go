package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createReceipt = `
INSERT INTO receipts (supplier_id, receipt_date, created_by)
VALUES ($1, $2, $3)
RETURNING id, supplier_id, receipt_date, created_by, created_at
`

type CreateReceiptParams struct {
	SupplierID  uuid.UUID
	ReceiptDate time.Time
	CreatedBy   uuid.UUID
}

func (q *Queries) CreateReceipt(ctx context.Context, arg CreateReceiptParams) (Receipt, error) {
	row := q.db.QueryRow(ctx, createReceipt, arg.SupplierID, arg.ReceiptDate, arg.CreatedBy)
	var r Receipt
	err := row.Scan(&r.ID, &r.SupplierID, &r.ReceiptDate, &r.CreatedBy, &r.CreatedAt)
	return r, err
}

const getReceipt = `
SELECT id, supplier_id, receipt_date, created_by, created_at
FROM receipts
WHERE id = $1
`

func (q *Queries) GetReceipt(ctx context.Context, id uuid.UUID) (Receipt, error) {
	row := q.db.QueryRow(ctx, getReceipt, id)
	var r Receipt
	err := row.Scan(&r.ID, &r.SupplierID, &r.ReceiptDate, &r.CreatedBy, &r.CreatedAt)
	return r, err
}

const listReceipts = `
SELECT r.id, r.supplier_id, s.name, r.receipt_date, r.created_by, r.created_at
FROM receipts r
JOIN suppliers s ON s.id = r.supplier_id
ORDER BY r.receipt_date DESC, r.created_at DESC
`

type ListReceiptsRow struct {
	ID           uuid.UUID
	SupplierID   uuid.UUID
	SupplierName string
	ReceiptDate  time.Time
	CreatedBy    uuid.UUID
	CreatedAt    time.Time
}

func (q *Queries) ListReceipts(ctx context.Context) ([]ListReceiptsRow, error) {
	rows, err := q.db.Query(ctx, listReceipts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListReceiptsRow
	for rows.Next() {
		var r ListReceiptsRow
		if err := rows.Scan(&r.ID, &r.SupplierID, &r.SupplierName, &r.ReceiptDate, &r.CreatedBy, &r.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const deleteReceipt = `
DELETE FROM receipts WHERE id = $1
`

func (q *Queries) DeleteReceipt(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteReceipt, id)
	return err
}

// --- Stock-in lines ---

const createStockIn = `
INSERT INTO stock_ins (receipt_id, item_id, quantity_in, unit_price)
VALUES ($1, $2, $3, $4)
RETURNING id, receipt_id, item_id, quantity_in, unit_price
`

type CreateStockInParams struct {
	ReceiptID  uuid.UUID
	ItemID     uuid.UUID
	QuantityIn pgtype.Numeric
	UnitPrice  pgtype.Numeric
}

func (q *Queries) CreateStockIn(ctx context.Context, arg CreateStockInParams) (StockIn, error) {
	row := q.db.QueryRow(ctx, createStockIn, arg.ReceiptID, arg.ItemID, arg.QuantityIn, arg.UnitPrice)
	var s StockIn
	err := row.Scan(&s.ID, &s.ReceiptID, &s.ItemID, &s.QuantityIn, &s.UnitPrice)
	return s, err
}

const listStockInsByReceipt = `
SELECT id, receipt_id, item_id, quantity_in, unit_price
FROM stock_ins
WHERE receipt_id = $1
`

func (q *Queries) ListStockInsByReceipt(ctx context.Context, receiptID uuid.UUID) ([]StockIn, error) {
	rows, err := q.db.Query(ctx, listStockInsByReceipt, receiptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []StockIn
	for rows.Next() {
		var s StockIn
		if err := rows.Scan(&s.ID, &s.ReceiptID, &s.ItemID, &s.QuantityIn, &s.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const deleteStockInsByReceipt = `
DELETE FROM stock_ins WHERE receipt_id = $1
`

func (q *Queries) DeleteStockInsByReceipt(ctx context.Context, receiptID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteStockInsByReceipt, receiptID)
	return err
}
