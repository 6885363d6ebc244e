package router

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wingbros-pos/api/internal/config"
	"github.com/wingbros-pos/api/internal/database"
	"github.com/wingbros-pos/api/internal/handler"
	mw "github.com/wingbros-pos/api/internal/middleware"
	"github.com/wingbros-pos/api/internal/service"
	"github.com/wingbros-pos/api/internal/ws"
)

// roleChecker adapts database.Queries to the middleware.RoleChecker shape.
type roleChecker struct {
	queries *database.Queries
}

func (c roleChecker) HasRole(ctx context.Context, employeeID uuid.UUID, role string) (bool, error) {
	return c.queries.HasRole(ctx, database.HasRoleParams{EmployeeID: employeeID, Name: role})
}

// New creates a Chi router with all application routes wired up.
// Admin-only surfaces (employees, roles, reports) sit behind
// RequireAdmin; everything else needs only a valid token.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, orderSvc *service.OrderService) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173", // SvelteKit dev server
			"https://pos.wingbros.ph",
			"https://admin.wingbros.ph",
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/{topic}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		authHandler.RegisterProtectedRoutes(r)

		// Attendance carries its own per-call passcode check on top of the
		// terminal's token.
		attendanceHandler := handler.NewAttendanceHandler(queries)
		r.Route("/attendance", attendanceHandler.RegisterRoutes)

		// Ingredient catalog
		categoryHandler := handler.NewCategoryHandler(queries)
		r.Route("/categories", categoryHandler.RegisterRoutes)

		supplierHandler := handler.NewSupplierHandler(queries)
		r.Route("/suppliers", supplierHandler.RegisterRoutes)

		itemHandler := handler.NewItemHandler(pool, func(db database.DBTX) handler.ItemStore {
			return database.New(db)
		})
		r.Route("/items", itemHandler.RegisterRoutes)

		// Stock
		inventoryHandler := handler.NewInventoryHandler(pool, func(db database.DBTX) handler.InventoryStore {
			return database.New(db)
		}, orderSvc, hub)
		r.Route("/inventory", inventoryHandler.RegisterRoutes)

		receiptHandler := handler.NewReceiptHandler(pool, func(db database.DBTX) handler.ReceiptStore {
			return database.New(db)
		}, orderSvc, hub)
		r.Route("/receipts", receiptHandler.RegisterRoutes)

		// Menu
		menuHandler := handler.NewMenuHandler(queries, orderSvc, hub)
		r.Route("/menu", menuHandler.RegisterRoutes)

		// Pricing
		discountHandler := handler.NewDiscountHandler(queries)
		r.Route("/discounts", discountHandler.RegisterRoutes)

		instoreHandler := handler.NewInstoreCategoryHandler(queries)
		r.Route("/instore-categories", instoreHandler.RegisterRoutes)

		// Orders
		orderHandler := handler.NewOrderHandler(orderSvc, queries, hub)
		r.Route("/orders", orderHandler.RegisterRoutes)

		// Expenses
		expenseHandler := handler.NewExpenseHandler(queries)
		r.Route("/expenses", expenseHandler.RegisterRoutes)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAdmin(roleChecker{queries: queries}))

			employeeHandler := handler.NewEmployeeHandler(queries)
			r.Route("/employees", employeeHandler.RegisterRoutes)
			employeeHandler.RegisterRoleRoutes(r)

			reportHandler := handler.NewReportHandler(queries, cfg.ReportTimezone)
			r.Route("/reports", reportHandler.RegisterRoutes)
		})
	})

	return r
}
