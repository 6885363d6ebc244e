package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getAttendance = `
SELECT id, employee_id, att_date, time_in, time_out
FROM attendance
WHERE employee_id = $1 AND att_date = $2
`

type GetAttendanceParams struct {
	EmployeeID uuid.UUID
	AttDate    time.Time
}

func (q *Queries) GetAttendance(ctx context.Context, arg GetAttendanceParams) (Attendance, error) {
	row := q.db.QueryRow(ctx, getAttendance, arg.EmployeeID, arg.AttDate)
	var a Attendance
	err := row.Scan(&a.ID, &a.EmployeeID, &a.AttDate, &a.TimeIn, &a.TimeOut)
	return a, err
}

const createTimeIn = `
INSERT INTO attendance (employee_id, att_date, time_in)
VALUES ($1, $2, $3)
RETURNING id, employee_id, att_date, time_in, time_out
`

type CreateTimeInParams struct {
	EmployeeID uuid.UUID
	AttDate    time.Time
	TimeIn     pgtype.Timestamptz
}

func (q *Queries) CreateTimeIn(ctx context.Context, arg CreateTimeInParams) (Attendance, error) {
	row := q.db.QueryRow(ctx, createTimeIn, arg.EmployeeID, arg.AttDate, arg.TimeIn)
	var a Attendance
	err := row.Scan(&a.ID, &a.EmployeeID, &a.AttDate, &a.TimeIn, &a.TimeOut)
	return a, err
}

const setTimeOut = `
UPDATE attendance
SET time_out = $2
WHERE id = $1 AND time_out IS NULL
RETURNING id, employee_id, att_date, time_in, time_out
`

type SetTimeOutParams struct {
	ID      uuid.UUID
	TimeOut pgtype.Timestamptz
}

// SetTimeOut only fires when no time-out is recorded yet; a second attempt
// comes back as pgx.ErrNoRows.
func (q *Queries) SetTimeOut(ctx context.Context, arg SetTimeOutParams) (Attendance, error) {
	row := q.db.QueryRow(ctx, setTimeOut, arg.ID, arg.TimeOut)
	var a Attendance
	err := row.Scan(&a.ID, &a.EmployeeID, &a.AttDate, &a.TimeIn, &a.TimeOut)
	return a, err
}

const listAttendanceByDate = `
SELECT e.id, e.first_name, e.last_name, a.time_in, a.time_out
FROM employees e
LEFT JOIN attendance a ON a.employee_id = e.id AND a.att_date = $1
WHERE e.status = 'ACTIVE'
ORDER BY e.last_name, e.first_name
`

type ListAttendanceByDateRow struct {
	EmployeeID uuid.UUID
	FirstName  string
	LastName   string
	TimeIn     pgtype.Timestamptz
	TimeOut    pgtype.Timestamptz
}

// ListAttendanceByDate returns every active employee for the day; employees
// with no time-in row read as absent on the handler side.
func (q *Queries) ListAttendanceByDate(ctx context.Context, attDate time.Time) ([]ListAttendanceByDateRow, error) {
	rows, err := q.db.Query(ctx, listAttendanceByDate, attDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListAttendanceByDateRow
	for rows.Next() {
		var r ListAttendanceByDateRow
		if err := rows.Scan(&r.EmployeeID, &r.FirstName, &r.LastName, &r.TimeIn, &r.TimeOut); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
