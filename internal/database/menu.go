package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// --- Menu categories ---

const listMenuCategories = `
SELECT id, name FROM menu_categories ORDER BY name
`

func (q *Queries) ListMenuCategories(ctx context.Context) ([]MenuCategory, error) {
	rows, err := q.db.Query(ctx, listMenuCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MenuCategory
	for rows.Next() {
		var c MenuCategory
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const createMenuCategory = `
INSERT INTO menu_categories (name) VALUES ($1)
RETURNING id, name
`

func (q *Queries) CreateMenuCategory(ctx context.Context, name string) (MenuCategory, error) {
	row := q.db.QueryRow(ctx, createMenuCategory, name)
	var c MenuCategory
	err := row.Scan(&c.ID, &c.Name)
	return c, err
}

const updateMenuCategory = `
UPDATE menu_categories SET name = $2 WHERE id = $1
RETURNING id, name
`

type UpdateMenuCategoryParams struct {
	ID   uuid.UUID
	Name string
}

func (q *Queries) UpdateMenuCategory(ctx context.Context, arg UpdateMenuCategoryParams) (MenuCategory, error) {
	row := q.db.QueryRow(ctx, updateMenuCategory, arg.ID, arg.Name)
	var c MenuCategory
	err := row.Scan(&c.ID, &c.Name)
	return c, err
}

const deleteMenuCategory = `
DELETE FROM menu_categories WHERE id = $1 RETURNING id
`

func (q *Queries) DeleteMenuCategory(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteMenuCategory, id)
	var deleted uuid.UUID
	err := row.Scan(&deleted)
	return deleted, err
}

const countMenuItemsByMenuCategory = `
SELECT COUNT(*) FROM menu_items WHERE menu_category_id = $1
`

func (q *Queries) CountMenuItemsByMenuCategory(ctx context.Context, menuCategoryID uuid.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countMenuItemsByMenuCategory, menuCategoryID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

// --- Menu items ---

const listMenuItems = `
SELECT id, name, price, channel, menu_category_id, status, image_url, created_at
FROM menu_items
ORDER BY name
`

func (q *Queries) ListMenuItems(ctx context.Context) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MenuItem
	for rows.Next() {
		var m MenuItem
		if err := rows.Scan(&m.ID, &m.Name, &m.Price, &m.Channel, &m.MenuCategoryID, &m.Status, &m.ImageURL, &m.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const getMenuItem = `
SELECT id, name, price, channel, menu_category_id, status, image_url, created_at
FROM menu_items
WHERE id = $1
`

func (q *Queries) GetMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	row := q.db.QueryRow(ctx, getMenuItem, id)
	var m MenuItem
	err := row.Scan(&m.ID, &m.Name, &m.Price, &m.Channel, &m.MenuCategoryID, &m.Status, &m.ImageURL, &m.CreatedAt)
	return m, err
}

const createMenuItem = `
INSERT INTO menu_items (name, price, channel, menu_category_id, status, image_url)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, name, price, channel, menu_category_id, status, image_url, created_at
`

type CreateMenuItemParams struct {
	Name           string
	Price          pgtype.Numeric
	Channel        Channel
	MenuCategoryID uuid.UUID
	Status         MenuItemStatus
	ImageURL       pgtype.Text
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, createMenuItem,
		arg.Name, arg.Price, arg.Channel, arg.MenuCategoryID, arg.Status, arg.ImageURL)
	var m MenuItem
	err := row.Scan(&m.ID, &m.Name, &m.Price, &m.Channel, &m.MenuCategoryID, &m.Status, &m.ImageURL, &m.CreatedAt)
	return m, err
}

const updateMenuItem = `
UPDATE menu_items
SET name = $2, price = $3, channel = $4, menu_category_id = $5, image_url = $6
WHERE id = $1
RETURNING id, name, price, channel, menu_category_id, status, image_url, created_at
`

type UpdateMenuItemParams struct {
	ID             uuid.UUID
	Name           string
	Price          pgtype.Numeric
	Channel        Channel
	MenuCategoryID uuid.UUID
	ImageURL       pgtype.Text
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, updateMenuItem,
		arg.ID, arg.Name, arg.Price, arg.Channel, arg.MenuCategoryID, arg.ImageURL)
	var m MenuItem
	err := row.Scan(&m.ID, &m.Name, &m.Price, &m.Channel, &m.MenuCategoryID, &m.Status, &m.ImageURL, &m.CreatedAt)
	return m, err
}

const setMenuItemStatus = `
UPDATE menu_items SET status = $2 WHERE id = $1
RETURNING id, name, price, channel, menu_category_id, status, image_url, created_at
`

type SetMenuItemStatusParams struct {
	ID     uuid.UUID
	Status MenuItemStatus
}

func (q *Queries) SetMenuItemStatus(ctx context.Context, arg SetMenuItemStatusParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, setMenuItemStatus, arg.ID, arg.Status)
	var m MenuItem
	err := row.Scan(&m.ID, &m.Name, &m.Price, &m.Channel, &m.MenuCategoryID, &m.Status, &m.ImageURL, &m.CreatedAt)
	return m, err
}

const deleteMenuItem = `
DELETE FROM menu_items WHERE id = $1 RETURNING id
`

func (q *Queries) DeleteMenuItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteMenuItem, id)
	var deleted uuid.UUID
	err := row.Scan(&deleted)
	return deleted, err
}

const countOrderDetailsByMenuItem = `
SELECT COUNT(*) FROM order_details WHERE menu_item_id = $1
`

func (q *Queries) CountOrderDetailsByMenuItem(ctx context.Context, menuItemID uuid.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countOrderDetailsByMenuItem, menuItemID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

// --- Menu ingredients (recipes) ---

const getRecipeForMenuItem = `
SELECT mi.id, mi.item_id, i.name, mi.quantity, mi.unit, i.unit, inv.quantity
FROM menu_ingredients mi
JOIN items i ON i.id = mi.item_id
JOIN inventory inv ON inv.item_id = mi.item_id
WHERE mi.menu_item_id = $1
`

type RecipeRow struct {
	IngredientID uuid.UUID
	ItemID       uuid.UUID
	ItemName     string
	Quantity     pgtype.Numeric
	Unit         string
	ItemUnit     string
	OnHand       pgtype.Numeric
}

// GetRecipeForMenuItem returns the recipe lines joined with current stock,
// in the form the deduction and availability passes consume.
func (q *Queries) GetRecipeForMenuItem(ctx context.Context, menuItemID uuid.UUID) ([]RecipeRow, error) {
	rows, err := q.db.Query(ctx, getRecipeForMenuItem, menuItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RecipeRow
	for rows.Next() {
		var r RecipeRow
		if err := rows.Scan(&r.IngredientID, &r.ItemID, &r.ItemName, &r.Quantity, &r.Unit, &r.ItemUnit, &r.OnHand); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const createMenuIngredient = `
INSERT INTO menu_ingredients (menu_item_id, item_id, quantity, unit)
VALUES ($1, $2, $3, $4)
RETURNING id, menu_item_id, item_id, quantity, unit
`

type CreateMenuIngredientParams struct {
	MenuItemID uuid.UUID
	ItemID     uuid.UUID
	Quantity   pgtype.Numeric
	Unit       string
}

func (q *Queries) CreateMenuIngredient(ctx context.Context, arg CreateMenuIngredientParams) (MenuIngredient, error) {
	row := q.db.QueryRow(ctx, createMenuIngredient, arg.MenuItemID, arg.ItemID, arg.Quantity, arg.Unit)
	var m MenuIngredient
	err := row.Scan(&m.ID, &m.MenuItemID, &m.ItemID, &m.Quantity, &m.Unit)
	return m, err
}

const updateMenuIngredient = `
UPDATE menu_ingredients
SET item_id = $2, quantity = $3, unit = $4
WHERE id = $1
RETURNING id, menu_item_id, item_id, quantity, unit
`

type UpdateMenuIngredientParams struct {
	ID       uuid.UUID
	ItemID   uuid.UUID
	Quantity pgtype.Numeric
	Unit     string
}

func (q *Queries) UpdateMenuIngredient(ctx context.Context, arg UpdateMenuIngredientParams) (MenuIngredient, error) {
	row := q.db.QueryRow(ctx, updateMenuIngredient, arg.ID, arg.ItemID, arg.Quantity, arg.Unit)
	var m MenuIngredient
	err := row.Scan(&m.ID, &m.MenuItemID, &m.ItemID, &m.Quantity, &m.Unit)
	return m, err
}

const deleteMenuIngredient = `
DELETE FROM menu_ingredients WHERE id = $1 RETURNING id
`

func (q *Queries) DeleteMenuIngredient(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteMenuIngredient, id)
	var deleted uuid.UUID
	err := row.Scan(&deleted)
	return deleted, err
}

const listMenuItemIDsUsingItems = `
SELECT DISTINCT menu_item_id
FROM menu_ingredients
WHERE item_id = ANY($1::uuid[])
`

// ListMenuItemIDsUsingItems returns the menu items whose recipes touch any of
// the given inventory items; callers recompute availability for exactly that set.
func (q *Queries) ListMenuItemIDsUsingItems(ctx context.Context, itemIDs []uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, listMenuItemIDsUsingItems, itemIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- Discounts ---

const listDiscounts = `
SELECT id, name, percentage FROM discounts ORDER BY name
`

func (q *Queries) ListDiscounts(ctx context.Context) ([]Discount, error) {
	rows, err := q.db.Query(ctx, listDiscounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Discount
	for rows.Next() {
		var d Discount
		if err := rows.Scan(&d.ID, &d.Name, &d.Percentage); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

const getDiscount = `
SELECT id, name, percentage FROM discounts WHERE id = $1
`

func (q *Queries) GetDiscount(ctx context.Context, id uuid.UUID) (Discount, error) {
	row := q.db.QueryRow(ctx, getDiscount, id)
	var d Discount
	err := row.Scan(&d.ID, &d.Name, &d.Percentage)
	return d, err
}

const createDiscount = `
INSERT INTO discounts (name, percentage) VALUES ($1, $2)
RETURNING id, name, percentage
`

type CreateDiscountParams struct {
	Name       string
	Percentage pgtype.Numeric
}

func (q *Queries) CreateDiscount(ctx context.Context, arg CreateDiscountParams) (Discount, error) {
	row := q.db.QueryRow(ctx, createDiscount, arg.Name, arg.Percentage)
	var d Discount
	err := row.Scan(&d.ID, &d.Name, &d.Percentage)
	return d, err
}

const updateDiscount = `
UPDATE discounts SET name = $2, percentage = $3 WHERE id = $1
RETURNING id, name, percentage
`

type UpdateDiscountParams struct {
	ID         uuid.UUID
	Name       string
	Percentage pgtype.Numeric
}

func (q *Queries) UpdateDiscount(ctx context.Context, arg UpdateDiscountParams) (Discount, error) {
	row := q.db.QueryRow(ctx, updateDiscount, arg.ID, arg.Name, arg.Percentage)
	var d Discount
	err := row.Scan(&d.ID, &d.Name, &d.Percentage)
	return d, err
}

const deleteDiscount = `
DELETE FROM discounts WHERE id = $1 RETURNING id
`

func (q *Queries) DeleteDiscount(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteDiscount, id)
	var deleted uuid.UUID
	err := row.Scan(&deleted)
	return deleted, err
}

const countOrderDetailsByDiscount = `
SELECT COUNT(*) FROM order_details WHERE discount_id = $1
`

func (q *Queries) CountOrderDetailsByDiscount(ctx context.Context, discountID uuid.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countOrderDetailsByDiscount, discountID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

// --- In-store categories ---

const listInstoreCategories = `
SELECT id, name, base_amount FROM instore_categories ORDER BY name
`

func (q *Queries) ListInstoreCategories(ctx context.Context) ([]InstoreCategory, error) {
	rows, err := q.db.Query(ctx, listInstoreCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InstoreCategory
	for rows.Next() {
		var c InstoreCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.BaseAmount); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const getInstoreCategory = `
SELECT id, name, base_amount FROM instore_categories WHERE id = $1
`

func (q *Queries) GetInstoreCategory(ctx context.Context, id uuid.UUID) (InstoreCategory, error) {
	row := q.db.QueryRow(ctx, getInstoreCategory, id)
	var c InstoreCategory
	err := row.Scan(&c.ID, &c.Name, &c.BaseAmount)
	return c, err
}

const createInstoreCategory = `
INSERT INTO instore_categories (name, base_amount) VALUES ($1, $2)
RETURNING id, name, base_amount
`

type CreateInstoreCategoryParams struct {
	Name       string
	BaseAmount pgtype.Numeric
}

func (q *Queries) CreateInstoreCategory(ctx context.Context, arg CreateInstoreCategoryParams) (InstoreCategory, error) {
	row := q.db.QueryRow(ctx, createInstoreCategory, arg.Name, arg.BaseAmount)
	var c InstoreCategory
	err := row.Scan(&c.ID, &c.Name, &c.BaseAmount)
	return c, err
}

const updateInstoreCategory = `
UPDATE instore_categories SET name = $2, base_amount = $3 WHERE id = $1
RETURNING id, name, base_amount
`

type UpdateInstoreCategoryParams struct {
	ID         uuid.UUID
	Name       string
	BaseAmount pgtype.Numeric
}

// UpdateInstoreCategory changes the flat rate for future orders only; placed
// orders keep the base amount captured on their detail rows.
func (q *Queries) UpdateInstoreCategory(ctx context.Context, arg UpdateInstoreCategoryParams) (InstoreCategory, error) {
	row := q.db.QueryRow(ctx, updateInstoreCategory, arg.ID, arg.Name, arg.BaseAmount)
	var c InstoreCategory
	err := row.Scan(&c.ID, &c.Name, &c.BaseAmount)
	return c, err
}
