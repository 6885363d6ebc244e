package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/wingbros-pos/api/internal/database"
	"golang.org/x/crypto/bcrypt"
)

// AttendanceStore defines the database methods needed by attendance handlers.
type AttendanceStore interface {
	GetEmployeeByID(ctx context.Context, id uuid.UUID) (database.Employee, error)
	GetAttendance(ctx context.Context, arg database.GetAttendanceParams) (database.Attendance, error)
	CreateTimeIn(ctx context.Context, arg database.CreateTimeInParams) (database.Attendance, error)
	SetTimeOut(ctx context.Context, arg database.SetTimeOutParams) (database.Attendance, error)
	ListAttendanceByDate(ctx context.Context, attDate time.Time) ([]database.ListAttendanceByDateRow, error)
}

// AttendanceHandler handles the per-day time-in/time-out state machine.
type AttendanceHandler struct {
	store AttendanceStore
}

// NewAttendanceHandler creates a new AttendanceHandler.
func NewAttendanceHandler(store AttendanceStore) *AttendanceHandler {
	return &AttendanceHandler{store: store}
}

// RegisterRoutes registers attendance endpoints on the given Chi router.
func (h *AttendanceHandler) RegisterRoutes(r chi.Router) {
	r.Post("/time-in", h.TimeIn)
	r.Post("/time-out", h.TimeOut)
	r.Get("/", h.ListByDate)
}

// --- Request / Response types ---

type attendanceRequest struct {
	EmployeeID string `json:"employee_id"`
	Passcode   string `json:"passcode"`
}

type attendanceResponse struct {
	EmployeeID uuid.UUID  `json:"employee_id"`
	Date       string     `json:"date"`
	TimeIn     *time.Time `json:"time_in"`
	TimeOut    *time.Time `json:"time_out"`
	Status     string     `json:"status"`
}

type attendanceListEntry struct {
	EmployeeID uuid.UUID  `json:"employee_id"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	TimeIn     *time.Time `json:"time_in"`
	TimeOut    *time.Time `json:"time_out"`
	Status     string     `json:"status"`
}

// --- Handlers ---

// resolveEmployee validates the submitted passcode against the employee's
// stored credential. The check runs on every call; attendance has no session.
func (h *AttendanceHandler) resolveEmployee(w http.ResponseWriter, r *http.Request) (database.Employee, bool) {
	var req attendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return database.Employee{}, false
	}
	if req.EmployeeID == "" || req.Passcode == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "employee_id and passcode are required"})
		return database.Employee{}, false
	}
	id, err := uuid.Parse(req.EmployeeID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid employee_id"})
		return database.Employee{}, false
	}

	employee, err := h.store.GetEmployeeByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "employee not found"})
			return database.Employee{}, false
		}
		log.Printf("ERROR: attendance employee lookup: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return database.Employee{}, false
	}

	if err := bcrypt.CompareHashAndPassword([]byte(employee.PasscodeHash), []byte(req.Passcode)); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid passcode"})
		return database.Employee{}, false
	}
	return employee, true
}

// TimeIn opens today's attendance record for the employee.
func (h *AttendanceHandler) TimeIn(w http.ResponseWriter, r *http.Request) {
	employee, ok := h.resolveEmployee(w, r)
	if !ok {
		return
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	if _, err := h.store.GetAttendance(r.Context(), database.GetAttendanceParams{
		EmployeeID: employee.ID,
		AttDate:    today,
	}); err == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "already timed in today"})
		return
	} else if !errors.Is(err, pgx.ErrNoRows) {
		log.Printf("ERROR: get attendance: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	att, err := h.store.CreateTimeIn(r.Context(), database.CreateTimeInParams{
		EmployeeID: employee.ID,
		AttDate:    today,
		TimeIn:     pgtype.Timestamptz{Time: now, Valid: true},
	})
	if err != nil {
		log.Printf("ERROR: create time-in: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toAttendanceResponse(att))
}

// TimeOut closes today's attendance record. Requires a prior time-in and no
// previous time-out.
func (h *AttendanceHandler) TimeOut(w http.ResponseWriter, r *http.Request) {
	employee, ok := h.resolveEmployee(w, r)
	if !ok {
		return
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	att, err := h.store.GetAttendance(r.Context(), database.GetAttendanceParams{
		EmployeeID: employee.ID,
		AttDate:    today,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "time-out without a prior time-in"})
			return
		}
		log.Printf("ERROR: get attendance: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	att, err = h.store.SetTimeOut(r.Context(), database.SetTimeOutParams{
		ID:      att.ID,
		TimeOut: pgtype.Timestamptz{Time: now, Valid: true},
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "already timed out today"})
			return
		}
		log.Printf("ERROR: set time-out: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toAttendanceResponse(att))
}

// ListByDate returns the day's sheet for every active employee. Employees
// with no time-in row come back as ABSENT; the absence is derived on read,
// never written.
func (h *AttendanceHandler) ListByDate(w http.ResponseWriter, r *http.Request) {
	date, err := dateQuery(r, "date")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}

	rows, err := h.store.ListAttendanceByDate(r.Context(), date)
	if err != nil {
		log.Printf("ERROR: list attendance: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]attendanceListEntry, len(rows))
	for i, row := range rows {
		entry := attendanceListEntry{
			EmployeeID: row.EmployeeID,
			FirstName:  row.FirstName,
			LastName:   row.LastName,
			TimeIn:     timestampOrNil(row.TimeIn),
			TimeOut:    timestampOrNil(row.TimeOut),
			Status:     "ABSENT",
		}
		if row.TimeIn.Valid {
			entry.Status = "PRESENT"
		}
		resp[i] = entry
	}
	writeJSON(w, http.StatusOK, resp)
}

func toAttendanceResponse(a database.Attendance) attendanceResponse {
	status := "ABSENT"
	if a.TimeIn.Valid {
		status = "PRESENT"
	}
	return attendanceResponse{
		EmployeeID: a.EmployeeID,
		Date:       a.AttDate.Format(dateLayout),
		TimeIn:     timestampOrNil(a.TimeIn),
		TimeOut:    timestampOrNil(a.TimeOut),
		Status:     status,
	}
}
