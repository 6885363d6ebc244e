package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getEmployeeByUsername = `
SELECT id, first_name, last_name, middle_initial, username, email, contact, base_salary, passcode_hash, status, created_at
FROM employees
WHERE username = $1
`

func (q *Queries) GetEmployeeByUsername(ctx context.Context, username string) (Employee, error) {
	row := q.db.QueryRow(ctx, getEmployeeByUsername, username)
	var e Employee
	err := row.Scan(&e.ID, &e.FirstName, &e.LastName, &e.MiddleInitial, &e.Username, &e.Email, &e.Contact, &e.BaseSalary, &e.PasscodeHash, &e.Status, &e.CreatedAt)
	return e, err
}

const getEmployeeByID = `
SELECT id, first_name, last_name, middle_initial, username, email, contact, base_salary, passcode_hash, status, created_at
FROM employees
WHERE id = $1
`

func (q *Queries) GetEmployeeByID(ctx context.Context, id uuid.UUID) (Employee, error) {
	row := q.db.QueryRow(ctx, getEmployeeByID, id)
	var e Employee
	err := row.Scan(&e.ID, &e.FirstName, &e.LastName, &e.MiddleInitial, &e.Username, &e.Email, &e.Contact, &e.BaseSalary, &e.PasscodeHash, &e.Status, &e.CreatedAt)
	return e, err
}

const listEmployees = `
SELECT id, first_name, last_name, middle_initial, username, email, contact, base_salary, passcode_hash, status, created_at
FROM employees
ORDER BY last_name, first_name
`

func (q *Queries) ListEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := q.db.Query(ctx, listEmployees)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.FirstName, &e.LastName, &e.MiddleInitial, &e.Username, &e.Email, &e.Contact, &e.BaseSalary, &e.PasscodeHash, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const createEmployee = `
INSERT INTO employees (first_name, last_name, middle_initial, username, email, contact, base_salary, passcode_hash, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id, first_name, last_name, middle_initial, username, email, contact, base_salary, passcode_hash, status, created_at
`

type CreateEmployeeParams struct {
	FirstName     string
	LastName      string
	MiddleInitial pgtype.Text
	Username      string
	Email         string
	Contact       string
	BaseSalary    pgtype.Numeric
	PasscodeHash  string
	Status        EmployeeStatus
}

func (q *Queries) CreateEmployee(ctx context.Context, arg CreateEmployeeParams) (Employee, error) {
	row := q.db.QueryRow(ctx, createEmployee,
		arg.FirstName, arg.LastName, arg.MiddleInitial, arg.Username, arg.Email,
		arg.Contact, arg.BaseSalary, arg.PasscodeHash, arg.Status)
	var e Employee
	err := row.Scan(&e.ID, &e.FirstName, &e.LastName, &e.MiddleInitial, &e.Username, &e.Email, &e.Contact, &e.BaseSalary, &e.PasscodeHash, &e.Status, &e.CreatedAt)
	return e, err
}

const updateEmployee = `
UPDATE employees
SET first_name = $2,
    last_name = $3,
    middle_initial = $4,
    username = $5,
    email = $6,
    contact = $7,
    base_salary = $8,
    passcode_hash = COALESCE($9, passcode_hash),
    status = $10
WHERE id = $1
RETURNING id, first_name, last_name, middle_initial, username, email, contact, base_salary, passcode_hash, status, created_at
`

type UpdateEmployeeParams struct {
	ID            uuid.UUID
	FirstName     string
	LastName      string
	MiddleInitial pgtype.Text
	Username      string
	Email         string
	Contact       string
	BaseSalary    pgtype.Numeric
	PasscodeHash  pgtype.Text
	Status        EmployeeStatus
}

func (q *Queries) UpdateEmployee(ctx context.Context, arg UpdateEmployeeParams) (Employee, error) {
	row := q.db.QueryRow(ctx, updateEmployee,
		arg.ID, arg.FirstName, arg.LastName, arg.MiddleInitial, arg.Username,
		arg.Email, arg.Contact, arg.BaseSalary, arg.PasscodeHash, arg.Status)
	var e Employee
	err := row.Scan(&e.ID, &e.FirstName, &e.LastName, &e.MiddleInitial, &e.Username, &e.Email, &e.Contact, &e.BaseSalary, &e.PasscodeHash, &e.Status, &e.CreatedAt)
	return e, err
}

const deleteEmployee = `
DELETE FROM employees WHERE id = $1 RETURNING id
`

func (q *Queries) DeleteEmployee(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteEmployee, id)
	var deleted uuid.UUID
	err := row.Scan(&deleted)
	return deleted, err
}

// --- Roles ---

const listRoles = `
SELECT id, name FROM roles ORDER BY name
`

func (q *Queries) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := q.db.Query(ctx, listRoles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Role
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getRoleByName = `
SELECT id, name FROM roles WHERE name = $1
`

func (q *Queries) GetRoleByName(ctx context.Context, name string) (Role, error) {
	row := q.db.QueryRow(ctx, getRoleByName, name)
	var r Role
	err := row.Scan(&r.ID, &r.Name)
	return r, err
}

const listRolesByEmployee = `
SELECT r.id, r.name
FROM roles r
JOIN employee_roles er ON er.role_id = r.id
WHERE er.employee_id = $1
ORDER BY r.name
`

func (q *Queries) ListRolesByEmployee(ctx context.Context, employeeID uuid.UUID) ([]Role, error) {
	rows, err := q.db.Query(ctx, listRolesByEmployee, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Role
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const hasRole = `
SELECT EXISTS (
    SELECT 1
    FROM employee_roles er
    JOIN roles r ON r.id = er.role_id
    WHERE er.employee_id = $1 AND r.name = $2
)
`

type HasRoleParams struct {
	EmployeeID uuid.UUID
	Name       string
}

// HasRole follows the employee -> employee_roles -> roles join and reports
// whether the employee holds the named role. Re-run per request so role
// revocation takes effect immediately.
func (q *Queries) HasRole(ctx context.Context, arg HasRoleParams) (bool, error) {
	row := q.db.QueryRow(ctx, hasRole, arg.EmployeeID, arg.Name)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const addEmployeeRole = `
INSERT INTO employee_roles (employee_id, role_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING
`

type AddEmployeeRoleParams struct {
	EmployeeID uuid.UUID
	RoleID     uuid.UUID
}

func (q *Queries) AddEmployeeRole(ctx context.Context, arg AddEmployeeRoleParams) error {
	_, err := q.db.Exec(ctx, addEmployeeRole, arg.EmployeeID, arg.RoleID)
	return err
}

const deleteEmployeeRoles = `
DELETE FROM employee_roles WHERE employee_id = $1
`

func (q *Queries) DeleteEmployeeRoles(ctx context.Context, employeeID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteEmployeeRoles, employeeID)
	return err
}
