package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// --- Expense types ---

const listExpenseTypes = `
SELECT id, name FROM expense_types ORDER BY name
`

func (q *Queries) ListExpenseTypes(ctx context.Context) ([]ExpenseType, error) {
	rows, err := q.db.Query(ctx, listExpenseTypes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExpenseType
	for rows.Next() {
		var t ExpenseType
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const getExpenseTypeByName = `
SELECT id, name FROM expense_types WHERE name = $1
`

func (q *Queries) GetExpenseTypeByName(ctx context.Context, name string) (ExpenseType, error) {
	row := q.db.QueryRow(ctx, getExpenseTypeByName, name)
	var t ExpenseType
	err := row.Scan(&t.ID, &t.Name)
	return t, err
}

const createExpenseType = `
INSERT INTO expense_types (name) VALUES ($1)
RETURNING id, name
`

func (q *Queries) CreateExpenseType(ctx context.Context, name string) (ExpenseType, error) {
	row := q.db.QueryRow(ctx, createExpenseType, name)
	var t ExpenseType
	err := row.Scan(&t.ID, &t.Name)
	return t, err
}

const updateExpenseType = `
UPDATE expense_types SET name = $2 WHERE id = $1
RETURNING id, name
`

type UpdateExpenseTypeParams struct {
	ID   uuid.UUID
	Name string
}

func (q *Queries) UpdateExpenseType(ctx context.Context, arg UpdateExpenseTypeParams) (ExpenseType, error) {
	row := q.db.QueryRow(ctx, updateExpenseType, arg.ID, arg.Name)
	var t ExpenseType
	err := row.Scan(&t.ID, &t.Name)
	return t, err
}

const deleteExpenseType = `
DELETE FROM expense_types WHERE id = $1 RETURNING id
`

func (q *Queries) DeleteExpenseType(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteExpenseType, id)
	var deleted uuid.UUID
	err := row.Scan(&deleted)
	return deleted, err
}

const countExpensesByType = `
SELECT COUNT(*) FROM expenses WHERE expense_type_id = $1
`

func (q *Queries) CountExpensesByType(ctx context.Context, expenseTypeID uuid.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countExpensesByType, expenseTypeID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

// --- Expenses ---

const listExpenses = `
SELECT e.id, e.expense_type_id, t.name, e.description, e.cost, e.expense_date, e.receipt_id, e.created_at
FROM expenses e
JOIN expense_types t ON t.id = e.expense_type_id
WHERE ($1::date IS NULL OR e.expense_date >= $1)
  AND ($2::date IS NULL OR e.expense_date <= $2)
ORDER BY e.expense_date DESC, e.created_at DESC
`

type ListExpensesParams struct {
	DateFrom pgtype.Date
	DateTo   pgtype.Date
}

type ListExpensesRow struct {
	ID              uuid.UUID
	ExpenseTypeID   uuid.UUID
	ExpenseTypeName string
	Description     pgtype.Text
	Cost            pgtype.Numeric
	ExpenseDate     time.Time
	ReceiptID       pgtype.UUID
	CreatedAt       time.Time
}

func (q *Queries) ListExpenses(ctx context.Context, arg ListExpensesParams) ([]ListExpensesRow, error) {
	rows, err := q.db.Query(ctx, listExpenses, arg.DateFrom, arg.DateTo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListExpensesRow
	for rows.Next() {
		var r ListExpensesRow
		if err := rows.Scan(&r.ID, &r.ExpenseTypeID, &r.ExpenseTypeName, &r.Description,
			&r.Cost, &r.ExpenseDate, &r.ReceiptID, &r.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getExpense = `
SELECT id, expense_type_id, description, cost, expense_date, receipt_id, created_at
FROM expenses
WHERE id = $1
`

func (q *Queries) GetExpense(ctx context.Context, id uuid.UUID) (Expense, error) {
	row := q.db.QueryRow(ctx, getExpense, id)
	var e Expense
	err := row.Scan(&e.ID, &e.ExpenseTypeID, &e.Description, &e.Cost, &e.ExpenseDate, &e.ReceiptID, &e.CreatedAt)
	return e, err
}

const createExpense = `
INSERT INTO expenses (expense_type_id, description, cost, expense_date, receipt_id)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, expense_type_id, description, cost, expense_date, receipt_id, created_at
`

type CreateExpenseParams struct {
	ExpenseTypeID uuid.UUID
	Description   pgtype.Text
	Cost          pgtype.Numeric
	ExpenseDate   time.Time
	ReceiptID     pgtype.UUID
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	row := q.db.QueryRow(ctx, createExpense,
		arg.ExpenseTypeID, arg.Description, arg.Cost, arg.ExpenseDate, arg.ReceiptID)
	var e Expense
	err := row.Scan(&e.ID, &e.ExpenseTypeID, &e.Description, &e.Cost, &e.ExpenseDate, &e.ReceiptID, &e.CreatedAt)
	return e, err
}

const updateExpense = `
UPDATE expenses
SET expense_type_id = $2, description = $3, cost = $4, expense_date = $5
WHERE id = $1
RETURNING id, expense_type_id, description, cost, expense_date, receipt_id, created_at
`

type UpdateExpenseParams struct {
	ID            uuid.UUID
	ExpenseTypeID uuid.UUID
	Description   pgtype.Text
	Cost          pgtype.Numeric
	ExpenseDate   time.Time
}

func (q *Queries) UpdateExpense(ctx context.Context, arg UpdateExpenseParams) (Expense, error) {
	row := q.db.QueryRow(ctx, updateExpense,
		arg.ID, arg.ExpenseTypeID, arg.Description, arg.Cost, arg.ExpenseDate)
	var e Expense
	err := row.Scan(&e.ID, &e.ExpenseTypeID, &e.Description, &e.Cost, &e.ExpenseDate, &e.ReceiptID, &e.CreatedAt)
	return e, err
}

const deleteExpense = `
DELETE FROM expenses WHERE id = $1 RETURNING id
`

func (q *Queries) DeleteExpense(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteExpense, id)
	var deleted uuid.UUID
	err := row.Scan(&deleted)
	return deleted, err
}

const getExpenseByReceipt = `
SELECT id, expense_type_id, description, cost, expense_date, receipt_id, created_at
FROM expenses
WHERE receipt_id = $1
`

func (q *Queries) GetExpenseByReceipt(ctx context.Context, receiptID uuid.UUID) (Expense, error) {
	row := q.db.QueryRow(ctx, getExpenseByReceipt, receiptID)
	var e Expense
	err := row.Scan(&e.ID, &e.ExpenseTypeID, &e.Description, &e.Cost, &e.ExpenseDate, &e.ReceiptID, &e.CreatedAt)
	return e, err
}

const updateExpenseCost = `
UPDATE expenses SET cost = $2 WHERE id = $1
RETURNING id, expense_type_id, description, cost, expense_date, receipt_id, created_at
`

type UpdateExpenseCostParams struct {
	ID   uuid.UUID
	Cost pgtype.Numeric
}

// UpdateExpenseCost is the narrow update the receipt cascade uses to keep the
// linked supplies expense equal to the receipt's line total.
func (q *Queries) UpdateExpenseCost(ctx context.Context, arg UpdateExpenseCostParams) (Expense, error) {
	row := q.db.QueryRow(ctx, updateExpenseCost, arg.ID, arg.Cost)
	var e Expense
	err := row.Scan(&e.ID, &e.ExpenseTypeID, &e.Description, &e.Cost, &e.ExpenseDate, &e.ReceiptID, &e.CreatedAt)
	return e, err
}

const deleteExpenseByReceipt = `
DELETE FROM expenses WHERE receipt_id = $1
`

func (q *Queries) DeleteExpenseByReceipt(ctx context.Context, receiptID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteExpenseByReceipt, receiptID)
	return err
}
