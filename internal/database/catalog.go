package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// --- Item categories ---

const listCategories = `
SELECT id, name, created_at FROM categories ORDER BY name
`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const createCategory = `
INSERT INTO categories (name) VALUES ($1)
RETURNING id, name, created_at
`

func (q *Queries) CreateCategory(ctx context.Context, name string) (Category, error) {
	row := q.db.QueryRow(ctx, createCategory, name)
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.CreatedAt)
	return c, err
}

const updateCategory = `
UPDATE categories SET name = $2 WHERE id = $1
RETURNING id, name, created_at
`

type UpdateCategoryParams struct {
	ID   uuid.UUID
	Name string
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	row := q.db.QueryRow(ctx, updateCategory, arg.ID, arg.Name)
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.CreatedAt)
	return c, err
}

const deleteCategory = `
DELETE FROM categories WHERE id = $1 RETURNING id
`

func (q *Queries) DeleteCategory(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteCategory, id)
	var deleted uuid.UUID
	err := row.Scan(&deleted)
	return deleted, err
}

const countItemsByCategory = `
SELECT COUNT(*) FROM items WHERE category_id = $1
`

func (q *Queries) CountItemsByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countItemsByCategory, categoryID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

// --- Suppliers ---

const listSuppliers = `
SELECT id, name, contact, address, created_at FROM suppliers ORDER BY name
`

func (q *Queries) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := q.db.Query(ctx, listSuppliers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.Contact, &s.Address, &s.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const createSupplier = `
INSERT INTO suppliers (name, contact, address)
VALUES ($1, $2, $3)
RETURNING id, name, contact, address, created_at
`

type CreateSupplierParams struct {
	Name    string
	Contact pgtype.Text
	Address pgtype.Text
}

func (q *Queries) CreateSupplier(ctx context.Context, arg CreateSupplierParams) (Supplier, error) {
	row := q.db.QueryRow(ctx, createSupplier, arg.Name, arg.Contact, arg.Address)
	var s Supplier
	err := row.Scan(&s.ID, &s.Name, &s.Contact, &s.Address, &s.CreatedAt)
	return s, err
}

const updateSupplier = `
UPDATE suppliers SET name = $2, contact = $3, address = $4 WHERE id = $1
RETURNING id, name, contact, address, created_at
`

type UpdateSupplierParams struct {
	ID      uuid.UUID
	Name    string
	Contact pgtype.Text
	Address pgtype.Text
}

func (q *Queries) UpdateSupplier(ctx context.Context, arg UpdateSupplierParams) (Supplier, error) {
	row := q.db.QueryRow(ctx, updateSupplier, arg.ID, arg.Name, arg.Contact, arg.Address)
	var s Supplier
	err := row.Scan(&s.ID, &s.Name, &s.Contact, &s.Address, &s.CreatedAt)
	return s, err
}

const deleteSupplier = `
DELETE FROM suppliers WHERE id = $1 RETURNING id
`

func (q *Queries) DeleteSupplier(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteSupplier, id)
	var deleted uuid.UUID
	err := row.Scan(&deleted)
	return deleted, err
}

const countReceiptsBySupplier = `
SELECT COUNT(*) FROM receipts WHERE supplier_id = $1
`

func (q *Queries) CountReceiptsBySupplier(ctx context.Context, supplierID uuid.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countReceiptsBySupplier, supplierID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

// --- Items ---

const listItems = `
SELECT id, name, category_id, unit, reorder_level, is_archived, created_at
FROM items
ORDER BY name
`

func (q *Queries) ListItems(ctx context.Context) ([]Item, error) {
	rows, err := q.db.Query(ctx, listItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var i Item
		if err := rows.Scan(&i.ID, &i.Name, &i.CategoryID, &i.Unit, &i.ReorderLevel, &i.IsArchived, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getItem = `
SELECT id, name, category_id, unit, reorder_level, is_archived, created_at
FROM items
WHERE id = $1
`

func (q *Queries) GetItem(ctx context.Context, id uuid.UUID) (Item, error) {
	row := q.db.QueryRow(ctx, getItem, id)
	var i Item
	err := row.Scan(&i.ID, &i.Name, &i.CategoryID, &i.Unit, &i.ReorderLevel, &i.IsArchived, &i.CreatedAt)
	return i, err
}

const createItem = `
INSERT INTO items (name, category_id, unit, reorder_level)
VALUES ($1, $2, $3, $4)
RETURNING id, name, category_id, unit, reorder_level, is_archived, created_at
`

type CreateItemParams struct {
	Name         string
	CategoryID   uuid.UUID
	Unit         string
	ReorderLevel pgtype.Numeric
}

func (q *Queries) CreateItem(ctx context.Context, arg CreateItemParams) (Item, error) {
	row := q.db.QueryRow(ctx, createItem, arg.Name, arg.CategoryID, arg.Unit, arg.ReorderLevel)
	var i Item
	err := row.Scan(&i.ID, &i.Name, &i.CategoryID, &i.Unit, &i.ReorderLevel, &i.IsArchived, &i.CreatedAt)
	return i, err
}

const updateItem = `
UPDATE items
SET name = $2, category_id = $3, unit = $4, reorder_level = $5
WHERE id = $1
RETURNING id, name, category_id, unit, reorder_level, is_archived, created_at
`

type UpdateItemParams struct {
	ID           uuid.UUID
	Name         string
	CategoryID   uuid.UUID
	Unit         string
	ReorderLevel pgtype.Numeric
}

func (q *Queries) UpdateItem(ctx context.Context, arg UpdateItemParams) (Item, error) {
	row := q.db.QueryRow(ctx, updateItem, arg.ID, arg.Name, arg.CategoryID, arg.Unit, arg.ReorderLevel)
	var i Item
	err := row.Scan(&i.ID, &i.Name, &i.CategoryID, &i.Unit, &i.ReorderLevel, &i.IsArchived, &i.CreatedAt)
	return i, err
}

const setItemArchived = `
UPDATE items SET is_archived = $2 WHERE id = $1
RETURNING id, name, category_id, unit, reorder_level, is_archived, created_at
`

type SetItemArchivedParams struct {
	ID         uuid.UUID
	IsArchived bool
}

func (q *Queries) SetItemArchived(ctx context.Context, arg SetItemArchivedParams) (Item, error) {
	row := q.db.QueryRow(ctx, setItemArchived, arg.ID, arg.IsArchived)
	var i Item
	err := row.Scan(&i.ID, &i.Name, &i.CategoryID, &i.Unit, &i.ReorderLevel, &i.IsArchived, &i.CreatedAt)
	return i, err
}

const deleteItem = `
DELETE FROM items WHERE id = $1 RETURNING id
`

func (q *Queries) DeleteItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteItem, id)
	var deleted uuid.UUID
	err := row.Scan(&deleted)
	return deleted, err
}

const listMenuItemsUsingItem = `
SELECT DISTINCT m.name
FROM menu_items m
JOIN menu_ingredients mi ON mi.menu_item_id = m.id
WHERE mi.item_id = $1
ORDER BY m.name
`

// ListMenuItemsUsingItem returns names of menu items whose recipes reference
// the item. Used to build the blocking-reference error on item delete.
func (q *Queries) ListMenuItemsUsingItem(ctx context.Context, itemID uuid.UUID) ([]string, error) {
	rows, err := q.db.Query(ctx, listMenuItemsUsingItem, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

const countStockInsByItem = `
SELECT COUNT(*) FROM stock_ins WHERE item_id = $1
`

func (q *Queries) CountStockInsByItem(ctx context.Context, itemID uuid.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countStockInsByItem, itemID)
	var count int64
	err := row.Scan(&count)
	return count, err
}
