package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/wingbros-pos/api/internal/config"
	"github.com/wingbros-pos/api/internal/database"
	"github.com/wingbros-pos/api/internal/router"
	"github.com/wingbros-pos/api/internal/service"
	"github.com/wingbros-pos/api/internal/ws"
)

func main() {
	cfg := config.Load()

	if err := runMigrations(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to create connection pool: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	grabPct, err := decimal.NewFromString(cfg.GrabDeductionPct)
	if err != nil {
		log.Fatalf("Invalid GRAB_DEDUCTION_PCT %q: %v", cfg.GrabDeductionPct, err)
	}
	foodPandaPct, err := decimal.NewFromString(cfg.FoodPandaDeductionPct)
	if err != nil {
		log.Fatalf("Invalid FOODPANDA_DEDUCTION_PCT %q: %v", cfg.FoodPandaDeductionPct, err)
	}

	hub := ws.NewHub()
	go hub.Run()

	queries := database.New(pool)
	orderSvc := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, grabPct, foodPandaPct)

	r := router.New(cfg, queries, pool, hub, orderSvc)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatal(err)
	}
}

// runMigrations applies pending schema migrations before the server accepts
// traffic. Uses a separate database/sql connection since the migrate driver
// does not speak pgx.
func runMigrations(databaseURL string) error {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migrate driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	log.Println("Migrations applied")
	return nil
}
