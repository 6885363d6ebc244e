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

// EmployeeStore defines the database methods needed by employee handlers.
type EmployeeStore interface {
	ListEmployees(ctx context.Context) ([]database.Employee, error)
	GetEmployeeByID(ctx context.Context, id uuid.UUID) (database.Employee, error)
	CreateEmployee(ctx context.Context, arg database.CreateEmployeeParams) (database.Employee, error)
	UpdateEmployee(ctx context.Context, arg database.UpdateEmployeeParams) (database.Employee, error)
	DeleteEmployee(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	ListRoles(ctx context.Context) ([]database.Role, error)
	GetRoleByName(ctx context.Context, name string) (database.Role, error)
	ListRolesByEmployee(ctx context.Context, employeeID uuid.UUID) ([]database.Role, error)
	AddEmployeeRole(ctx context.Context, arg database.AddEmployeeRoleParams) error
	DeleteEmployeeRoles(ctx context.Context, employeeID uuid.UUID) error
}

// EmployeeHandler handles employee administration endpoints. All routes are
// admin-gated at the router.
type EmployeeHandler struct {
	store EmployeeStore
}

// NewEmployeeHandler creates a new EmployeeHandler.
func NewEmployeeHandler(store EmployeeStore) *EmployeeHandler {
	return &EmployeeHandler{store: store}
}

// RegisterRoutes registers employee endpoints on the given Chi router.
func (h *EmployeeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Put("/{id}/roles", h.SetRoles)
}

// RegisterRoleRoutes registers the read-only role list.
func (h *EmployeeHandler) RegisterRoleRoutes(r chi.Router) {
	r.Get("/roles", h.ListAllRoles)
}

// --- Request / Response types ---

type createEmployeeRequest struct {
	FirstName     string   `json:"first_name"`
	LastName      string   `json:"last_name"`
	MiddleInitial string   `json:"middle_initial"`
	Username      string   `json:"username"`
	Email         string   `json:"email"`
	Contact       string   `json:"contact"`
	BaseSalary    string   `json:"base_salary"`
	Passcode      string   `json:"passcode"`
	Roles         []string `json:"roles"`
}

type updateEmployeeRequest struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	MiddleInitial string `json:"middle_initial"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	Contact       string `json:"contact"`
	BaseSalary    string `json:"base_salary"`
	Status        string `json:"status"`
	// Passcode is optional on update; empty keeps the current one.
	Passcode string `json:"passcode"`
}

type setRolesRequest struct {
	Roles []string `json:"roles"`
}

type employeeResponse struct {
	ID            uuid.UUID `json:"id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	MiddleInitial *string   `json:"middle_initial"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Contact       string    `json:"contact"`
	BaseSalary    string    `json:"base_salary"`
	Status        string    `json:"status"`
	Roles         []string  `json:"roles,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toEmployeeResponse(e database.Employee) employeeResponse {
	return employeeResponse{
		ID:            e.ID,
		FirstName:     e.FirstName,
		LastName:      e.LastName,
		MiddleInitial: textOrNil(e.MiddleInitial),
		Username:      e.Username,
		Email:         e.Email,
		Contact:       e.Contact,
		BaseSalary:    numericToString(e.BaseSalary),
		Status:        string(e.Status),
		CreatedAt:     e.CreatedAt,
	}
}

// --- Handlers ---

// List returns every employee.
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	employees, err := h.store.ListEmployees(r.Context())
	if err != nil {
		log.Printf("ERROR: list employees: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]employeeResponse, len(employees))
	for i, e := range employees {
		resp[i] = toEmployeeResponse(e)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns one employee with their roles.
func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid employee ID"})
		return
	}

	employee, err := h.store.GetEmployeeByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "employee not found"})
			return
		}
		log.Printf("ERROR: get employee: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	roles, err := h.store.ListRolesByEmployee(r.Context(), employee.ID)
	if err != nil {
		log.Printf("ERROR: get employee roles: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toEmployeeResponse(employee)
	for _, role := range roles {
		resp.Roles = append(resp.Roles, role.Name)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a new employee, hashes the passcode, and assigns any roles.
func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.FirstName == "" || req.LastName == "" || req.Username == "" || req.Email == "" || req.Passcode == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "first_name, last_name, username, email, and passcode are required"})
		return
	}

	baseSalary := pgtype.Numeric{}
	if req.BaseSalary != "" {
		var err error
		baseSalary, err = stringToNumeric(req.BaseSalary)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid base_salary"})
			return
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Passcode), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("ERROR: hash passcode: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	middleInitial := pgtype.Text{}
	if req.MiddleInitial != "" {
		middleInitial = pgtype.Text{String: req.MiddleInitial, Valid: true}
	}

	employee, err := h.store.CreateEmployee(r.Context(), database.CreateEmployeeParams{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		MiddleInitial: middleInitial,
		Username:      req.Username,
		Email:         req.Email,
		Contact:       req.Contact,
		BaseSalary:    baseSalary,
		PasscodeHash:  string(hash),
		Status:        database.EmployeeStatusActive,
	})
	if err != nil {
		log.Printf("ERROR: create employee: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toEmployeeResponse(employee)
	for _, roleName := range req.Roles {
		role, err := h.store.GetRoleByName(r.Context(), roleName)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown role: " + roleName})
				return
			}
			log.Printf("ERROR: lookup role: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		if err := h.store.AddEmployeeRole(r.Context(), database.AddEmployeeRoleParams{
			EmployeeID: employee.ID,
			RoleID:     role.ID,
		}); err != nil {
			log.Printf("ERROR: assign role: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		resp.Roles = append(resp.Roles, role.Name)
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Update modifies an employee. A non-empty passcode rotates the stored hash.
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid employee ID"})
		return
	}

	var req updateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.FirstName == "" || req.LastName == "" || req.Username == "" || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "first_name, last_name, username, and email are required"})
		return
	}

	status := database.EmployeeStatus(req.Status)
	switch status {
	case database.EmployeeStatusActive, database.EmployeeStatusInactive:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	baseSalary := pgtype.Numeric{}
	if req.BaseSalary != "" {
		baseSalary, err = stringToNumeric(req.BaseSalary)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid base_salary"})
			return
		}
	}

	passcodeHash := pgtype.Text{}
	if req.Passcode != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Passcode), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("ERROR: hash passcode: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		passcodeHash = pgtype.Text{String: string(hash), Valid: true}
	}

	middleInitial := pgtype.Text{}
	if req.MiddleInitial != "" {
		middleInitial = pgtype.Text{String: req.MiddleInitial, Valid: true}
	}

	employee, err := h.store.UpdateEmployee(r.Context(), database.UpdateEmployeeParams{
		ID:            id,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		MiddleInitial: middleInitial,
		Username:      req.Username,
		Email:         req.Email,
		Contact:       req.Contact,
		BaseSalary:    baseSalary,
		PasscodeHash:  passcodeHash,
		Status:        status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "employee not found"})
			return
		}
		log.Printf("ERROR: update employee: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toEmployeeResponse(employee))
}

// Delete removes an employee and their role assignments.
func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid employee ID"})
		return
	}

	if err := h.store.DeleteEmployeeRoles(r.Context(), id); err != nil {
		log.Printf("ERROR: delete employee roles: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if _, err := h.store.DeleteEmployee(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "employee not found"})
			return
		}
		log.Printf("ERROR: delete employee: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetRoles replaces an employee's role assignments.
func (h *EmployeeHandler) SetRoles(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid employee ID"})
		return
	}

	var req setRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if _, err := h.store.GetEmployeeByID(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "employee not found"})
			return
		}
		log.Printf("ERROR: get employee: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	// Resolve every role before mutating anything.
	roles := make([]database.Role, 0, len(req.Roles))
	for _, roleName := range req.Roles {
		role, err := h.store.GetRoleByName(r.Context(), roleName)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown role: " + roleName})
				return
			}
			log.Printf("ERROR: lookup role: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		roles = append(roles, role)
	}

	if err := h.store.DeleteEmployeeRoles(r.Context(), id); err != nil {
		log.Printf("ERROR: clear employee roles: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		if err := h.store.AddEmployeeRole(r.Context(), database.AddEmployeeRoleParams{
			EmployeeID: id,
			RoleID:     role.ID,
		}); err != nil {
			log.Printf("ERROR: assign role: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		names = append(names, role.Name)
	}

	writeJSON(w, http.StatusOK, map[string][]string{"roles": names})
}

// ListAllRoles returns the role catalog.
func (h *EmployeeHandler) ListAllRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.store.ListRoles(r.Context())
	if err != nil {
		log.Printf("ERROR: list roles: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	type roleResponse struct {
		ID   uuid.UUID `json:"id"`
		Name string    `json:"name"`
	}
	resp := make([]roleResponse, len(roles))
	for i, role := range roles {
		resp[i] = roleResponse{ID: role.ID, Name: role.Name}
	}
	writeJSON(w, http.StatusOK, resp)
}
