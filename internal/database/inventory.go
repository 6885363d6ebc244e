package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createInventory = `
INSERT INTO inventory (item_id, quantity)
VALUES ($1, 0)
RETURNING id, item_id, quantity, updated_at
`

func (q *Queries) CreateInventory(ctx context.Context, itemID uuid.UUID) (Inventory, error) {
	row := q.db.QueryRow(ctx, createInventory, itemID)
	var inv Inventory
	err := row.Scan(&inv.ID, &inv.ItemID, &inv.Quantity, &inv.UpdatedAt)
	return inv, err
}

const getInventoryByItem = `
SELECT id, item_id, quantity, updated_at
FROM inventory
WHERE item_id = $1
`

func (q *Queries) GetInventoryByItem(ctx context.Context, itemID uuid.UUID) (Inventory, error) {
	row := q.db.QueryRow(ctx, getInventoryByItem, itemID)
	var inv Inventory
	err := row.Scan(&inv.ID, &inv.ItemID, &inv.Quantity, &inv.UpdatedAt)
	return inv, err
}

const getInventoryForUpdate = `
SELECT id, item_id, quantity, updated_at
FROM inventory
WHERE item_id = $1
FOR UPDATE
`

// GetInventoryForUpdate locks the inventory row for the rest of the
// transaction, serializing concurrent deductions against the same item.
func (q *Queries) GetInventoryForUpdate(ctx context.Context, itemID uuid.UUID) (Inventory, error) {
	row := q.db.QueryRow(ctx, getInventoryForUpdate, itemID)
	var inv Inventory
	err := row.Scan(&inv.ID, &inv.ItemID, &inv.Quantity, &inv.UpdatedAt)
	return inv, err
}

const addInventoryQuantity = `
UPDATE inventory
SET quantity = quantity + $2, updated_at = now()
WHERE item_id = $1
RETURNING id, item_id, quantity, updated_at
`

type AddInventoryQuantityParams struct {
	ItemID uuid.UUID
	Delta  pgtype.Numeric
}

// AddInventoryQuantity applies a signed delta in a single statement, so
// concurrent stock-ins never lose updates.
func (q *Queries) AddInventoryQuantity(ctx context.Context, arg AddInventoryQuantityParams) (Inventory, error) {
	row := q.db.QueryRow(ctx, addInventoryQuantity, arg.ItemID, arg.Delta)
	var inv Inventory
	err := row.Scan(&inv.ID, &inv.ItemID, &inv.Quantity, &inv.UpdatedAt)
	return inv, err
}

const setInventoryQuantity = `
UPDATE inventory
SET quantity = $2, updated_at = now()
WHERE item_id = $1
RETURNING id, item_id, quantity, updated_at
`

type SetInventoryQuantityParams struct {
	ItemID   uuid.UUID
	Quantity pgtype.Numeric
}

func (q *Queries) SetInventoryQuantity(ctx context.Context, arg SetInventoryQuantityParams) (Inventory, error) {
	row := q.db.QueryRow(ctx, setInventoryQuantity, arg.ItemID, arg.Quantity)
	var inv Inventory
	err := row.Scan(&inv.ID, &inv.ItemID, &inv.Quantity, &inv.UpdatedAt)
	return inv, err
}

const deleteInventoryByItem = `
DELETE FROM inventory WHERE item_id = $1
`

func (q *Queries) DeleteInventoryByItem(ctx context.Context, itemID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteInventoryByItem, itemID)
	return err
}

const listInventory = `
SELECT i.id, i.name, i.unit, i.reorder_level, i.is_archived, inv.quantity, inv.updated_at
FROM items i
JOIN inventory inv ON inv.item_id = i.id
ORDER BY i.name
`

type ListInventoryRow struct {
	ItemID       uuid.UUID
	ItemName     string
	Unit         string
	ReorderLevel pgtype.Numeric
	IsArchived   bool
	Quantity     pgtype.Numeric
	UpdatedAt    pgtype.Timestamptz
}

func (q *Queries) ListInventory(ctx context.Context) ([]ListInventoryRow, error) {
	rows, err := q.db.Query(ctx, listInventory)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListInventoryRow
	for rows.Next() {
		var r ListInventoryRow
		if err := rows.Scan(&r.ItemID, &r.ItemName, &r.Unit, &r.ReorderLevel, &r.IsArchived, &r.Quantity, &r.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

// --- Disposals ---

const createDisposal = `
INSERT INTO disposals (item_id, quantity, unit, reason, disposed_by, notes)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, item_id, quantity, unit, reason, disposed_by, notes, created_at
`

type CreateDisposalParams struct {
	ItemID     uuid.UUID
	Quantity   pgtype.Numeric
	Unit       string
	Reason     DisposalReason
	DisposedBy uuid.UUID
	Notes      pgtype.Text
}

func (q *Queries) CreateDisposal(ctx context.Context, arg CreateDisposalParams) (Disposal, error) {
	row := q.db.QueryRow(ctx, createDisposal,
		arg.ItemID, arg.Quantity, arg.Unit, arg.Reason, arg.DisposedBy, arg.Notes)
	var d Disposal
	err := row.Scan(&d.ID, &d.ItemID, &d.Quantity, &d.Unit, &d.Reason, &d.DisposedBy, &d.Notes, &d.CreatedAt)
	return d, err
}

const listDisposals = `
SELECT d.id, d.item_id, i.name, d.quantity, d.unit, d.reason, d.disposed_by,
       e.first_name, e.last_name, d.notes, d.created_at
FROM disposals d
JOIN items i ON i.id = d.item_id
JOIN employees e ON e.id = d.disposed_by
ORDER BY d.created_at DESC
LIMIT $1 OFFSET $2
`

type ListDisposalsParams struct {
	Limit  int32
	Offset int32
}

type ListDisposalsRow struct {
	ID                uuid.UUID
	ItemID            uuid.UUID
	ItemName          string
	Quantity          pgtype.Numeric
	Unit              string
	Reason            DisposalReason
	DisposedBy        uuid.UUID
	EmployeeFirstName string
	EmployeeLastName  string
	Notes             pgtype.Text
	CreatedAt         pgtype.Timestamptz
}

func (q *Queries) ListDisposals(ctx context.Context, arg ListDisposalsParams) ([]ListDisposalsRow, error) {
	rows, err := q.db.Query(ctx, listDisposals, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListDisposalsRow
	for rows.Next() {
		var r ListDisposalsRow
		if err := rows.Scan(&r.ID, &r.ItemID, &r.ItemName, &r.Quantity, &r.Unit, &r.Reason,
			&r.DisposedBy, &r.EmployeeFirstName, &r.EmployeeLastName, &r.Notes, &r.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
