package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/wingbros-pos/api/internal/auth"
	"github.com/wingbros-pos/api/internal/database"
	"github.com/wingbros-pos/api/internal/middleware"
	"golang.org/x/crypto/bcrypt"
)

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	GetEmployeeByUsername(ctx context.Context, username string) (database.Employee, error)
	GetEmployeeByID(ctx context.Context, id uuid.UUID) (database.Employee, error)
	ListRolesByEmployee(ctx context.Context, employeeID uuid.UUID) ([]database.Role, error)
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	store     AuthStore
	jwtSecret string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store AuthStore, jwtSecret string) *AuthHandler {
	return &AuthHandler{store: store, jwtSecret: jwtSecret}
}

// RegisterRoutes registers auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.Refresh)
}

// RegisterProtectedRoutes registers auth endpoints that require a valid token.
func (h *AuthHandler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/auth/me", h.Me)
}

// --- Request / Response types ---

type loginRequest struct {
	Username string `json:"username"`
	Passcode string `json:"passcode"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	Employee     employeeResponse `json:"employee"`
}

// --- Handlers ---

// Login handles username + passcode authentication.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Username == "" || req.Passcode == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username and passcode are required"})
		return
	}

	employee, err := h.store.GetEmployeeByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		log.Printf("ERROR: login lookup: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if employee.Status != database.EmployeeStatusActive {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(employee.PasscodeHash), []byte(req.Passcode)); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	isAdmin, err := h.hasAdminRole(r.Context(), employee.ID)
	if err != nil {
		log.Printf("ERROR: login roles: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if !isAdmin {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "only admin users can log in"})
		return
	}

	h.respondWithTokens(w, r.Context(), employee)
}

// Refresh exchanges a valid refresh token for a new access + refresh token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.RefreshToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "refresh_token is required"})
		return
	}

	employeeID, err := auth.ValidateRefreshToken(h.jwtSecret, req.RefreshToken)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
		return
	}

	employee, err := h.store.GetEmployeeByID(r.Context(), employeeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "employee record not found"})
			return
		}
		log.Printf("ERROR: refresh lookup: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if employee.Status != database.EmployeeStatusActive {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
		return
	}

	// Role revocation invalidates outstanding refresh tokens too.
	isAdmin, err := h.hasAdminRole(r.Context(), employee.ID)
	if err != nil {
		log.Printf("ERROR: refresh roles: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if !isAdmin {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "only admin users can log in"})
		return
	}

	h.respondWithTokens(w, r.Context(), employee)
}

// Me resolves the authenticated employee, including current roles. Identity
// is re-derived from the database on every call; there is no session cache.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	employee, err := h.store.GetEmployeeByID(r.Context(), claims.EmployeeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "employee record not found"})
			return
		}
		log.Printf("ERROR: me lookup: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	roles, err := h.store.ListRolesByEmployee(r.Context(), employee.ID)
	if err != nil {
		log.Printf("ERROR: me roles: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toEmployeeResponse(employee)
	for _, role := range roles {
		resp.Roles = append(resp.Roles, role.Name)
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

// hasAdminRole reports whether the employee currently holds the Admin role.
// Logins are admin-only; cashier terminals run on an admin-issued token and
// staff identify per action with their passcode.
func (h *AuthHandler) hasAdminRole(ctx context.Context, employeeID uuid.UUID) (bool, error) {
	roles, err := h.store.ListRolesByEmployee(ctx, employeeID)
	if err != nil {
		return false, err
	}
	for _, role := range roles {
		if role.Name == "Admin" {
			return true, nil
		}
	}
	return false, nil
}

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, ctx context.Context, employee database.Employee) {
	accessToken, err := auth.GenerateToken(h.jwtSecret, employee.ID, employee.Username)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	refreshToken, err := auth.GenerateRefreshToken(h.jwtSecret, employee.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Employee:     toEmployeeResponse(employee),
	}
	if roles, err := h.store.ListRolesByEmployee(ctx, employee.ID); err == nil {
		for _, role := range roles {
			resp.Employee.Roles = append(resp.Employee.Roles, role.Name)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}
