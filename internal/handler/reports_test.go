package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/wingbros-pos/api/internal/database"
	"github.com/wingbros-pos/api/internal/handler"
)

// --- Mock store ---

type mockReportStore struct {
	summary       database.SalesSummaryRow
	daily         []database.DailySalesRow
	channels      []database.ChannelSalesRow
	topItems      []database.TopMenuItemRow
	expenses      []database.ExpenseSummaryRow
	complimentary int64
	lowStock      []database.LowStockItemRow
	unavailable   int64

	summaryArg  database.DateRangeParams
	dailyArg    database.GetDailySalesParams
	topItemsArg database.GetTopMenuItemsParams
	expensesArg database.GetExpenseSummaryParams
}

func (m *mockReportStore) GetSalesSummary(_ context.Context, arg database.DateRangeParams) (database.SalesSummaryRow, error) {
	m.summaryArg = arg
	return m.summary, nil
}

func (m *mockReportStore) GetDailySales(_ context.Context, arg database.GetDailySalesParams) ([]database.DailySalesRow, error) {
	m.dailyArg = arg
	return m.daily, nil
}

func (m *mockReportStore) GetChannelSales(_ context.Context, _ database.DateRangeParams) ([]database.ChannelSalesRow, error) {
	return m.channels, nil
}

func (m *mockReportStore) GetTopMenuItems(_ context.Context, arg database.GetTopMenuItemsParams) ([]database.TopMenuItemRow, error) {
	m.topItemsArg = arg
	return m.topItems, nil
}

func (m *mockReportStore) GetExpenseSummary(_ context.Context, arg database.GetExpenseSummaryParams) ([]database.ExpenseSummaryRow, error) {
	m.expensesArg = arg
	return m.expenses, nil
}

func (m *mockReportStore) CountComplimentaryOrders(_ context.Context, _ database.DateRangeParams) (int64, error) {
	return m.complimentary, nil
}

func (m *mockReportStore) ListLowStockItems(_ context.Context) ([]database.LowStockItemRow, error) {
	return m.lowStock, nil
}

func (m *mockReportStore) CountUnavailableMenuItems(_ context.Context) (int64, error) {
	return m.unavailable, nil
}

func newReportRouter(store *mockReportStore, timezone string) chi.Router {
	h := handler.NewReportHandler(store, timezone)
	r := chi.NewRouter()
	r.Route("/reports", h.RegisterRoutes)
	return r
}

// --- Tests ---

func TestDashboard(t *testing.T) {
	store := &mockReportStore{
		summary:       database.SalesSummaryRow{OrderCount: 7, TotalSales: mustNumeric(t, "3493.00")},
		complimentary: 1,
		unavailable:   2,
		lowStock: []database.LowStockItemRow{
			{
				ItemID:       uuid.New(),
				ItemName:     "Chicken Wings",
				Unit:         "kg",
				Quantity:     mustNumeric(t, "2.000"),
				ReorderLevel: mustNumeric(t, "5.000"),
			},
		},
	}
	r := newReportRouter(store, "Asia/Manila")

	rr := doJSON(t, r, "GET", "/reports/dashboard", nil, nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	sales := resp["sales"].(map[string]interface{})
	if sales["order_count"] != float64(7) {
		t.Errorf("order_count: got %v, want 7", sales["order_count"])
	}
	if sales["total_sales"] != "3493.00" {
		t.Errorf("total_sales: got %v, want 3493.00", sales["total_sales"])
	}
	if resp["complimentary_orders"] != float64(1) {
		t.Errorf("complimentary_orders: got %v, want 1", resp["complimentary_orders"])
	}
	if resp["unavailable_menu_items"] != float64(2) {
		t.Errorf("unavailable_menu_items: got %v, want 2", resp["unavailable_menu_items"])
	}
	lowStock := resp["low_stock_items"].([]interface{})
	if len(lowStock) != 1 {
		t.Fatalf("low_stock_items: got %d, want 1", len(lowStock))
	}
	first := lowStock[0].(map[string]interface{})
	if first["name"] != "Chicken Wings" {
		t.Errorf("low stock name: got %v, want Chicken Wings", first["name"])
	}

	// The dashboard window is a half-open day in the report timezone.
	if got := store.summaryArg.To.Sub(store.summaryArg.From); got != 24*time.Hour {
		t.Errorf("summary window: got %v, want 24h", got)
	}
}

func TestSalesReport(t *testing.T) {
	store := &mockReportStore{
		summary: database.SalesSummaryRow{OrderCount: 42, TotalSales: mustNumeric(t, "20958.00")},
		daily: []database.DailySalesRow{
			{Day: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), OrderCount: 20, TotalSales: mustNumeric(t, "9980.00")},
			{Day: time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC), OrderCount: 22, TotalSales: mustNumeric(t, "10978.00")},
		},
		channels: []database.ChannelSalesRow{
			{Channel: database.ChannelInStore, OrderCount: 30, TotalSales: mustNumeric(t, "14970.00")},
			{Channel: database.ChannelGrab, OrderCount: 12, TotalSales: mustNumeric(t, "5988.00")},
		},
		topItems: []database.TopMenuItemRow{
			{MenuItemID: uuid.New(), MenuItemName: "6pc Wings", QuantitySold: 60, TotalSales: mustNumeric(t, "11940.00")},
		},
	}
	r := newReportRouter(store, "Asia/Manila")

	rr := doJSON(t, r, "GET", "/reports/sales?from=2026-08-20&to=2026-08-21&top=5", nil, nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["from"] != "2026-08-20" || resp["to"] != "2026-08-21" {
		t.Errorf("range: got %v..%v", resp["from"], resp["to"])
	}
	if got := len(resp["daily"].([]interface{})); got != 2 {
		t.Errorf("daily entries: got %d, want 2", got)
	}
	if got := len(resp["channels"].([]interface{})); got != 2 {
		t.Errorf("channel entries: got %d, want 2", got)
	}

	if store.topItemsArg.Limit != 5 {
		t.Errorf("top limit: got %d, want 5", store.topItemsArg.Limit)
	}
	if store.dailyArg.Timezone != "Asia/Manila" {
		t.Errorf("timezone: got %q, want Asia/Manila", store.dailyArg.Timezone)
	}
	// The to date is inclusive, so the query upper bound is the next midnight.
	if got := store.summaryArg.To.Sub(store.summaryArg.From); got != 48*time.Hour {
		t.Errorf("query window: got %v, want 48h", got)
	}
}

func TestSalesReport_InvalidDate(t *testing.T) {
	r := newReportRouter(&mockReportStore{}, "Asia/Manila")

	rr := doJSON(t, r, "GET", "/reports/sales?from=21-08-2026", nil, nil)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSalesReport_InvalidTop(t *testing.T) {
	r := newReportRouter(&mockReportStore{}, "Asia/Manila")

	for _, top := range []string{"0", "101", "abc"} {
		rr := doJSON(t, r, "GET", "/reports/sales?top="+top, nil, nil)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("top=%s: got %d, want %d", top, rr.Code, http.StatusBadRequest)
		}
	}
}

func TestExpenseReport(t *testing.T) {
	store := &mockReportStore{
		expenses: []database.ExpenseSummaryRow{
			{ExpenseTypeID: uuid.New(), ExpenseTypeName: "Supplies", TotalCost: mustNumeric(t, "2235.00")},
			{ExpenseTypeID: uuid.New(), ExpenseTypeName: "Utilities", TotalCost: mustNumeric(t, "1500.00")},
		},
	}
	r := newReportRouter(store, "Asia/Manila")

	rr := doJSON(t, r, "GET", "/reports/expenses?from=2026-08-01&to=2026-08-31", nil, nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["total"] != "3735.00" {
		t.Errorf("total: got %v, want 3735.00", resp["total"])
	}
	byType := resp["by_type"].([]interface{})
	if len(byType) != 2 {
		t.Fatalf("by_type: got %d, want 2", len(byType))
	}

	// Expense dates are calendar dates; both bounds pass through inclusive.
	if got := store.expensesArg.From.Format("2006-01-02"); got != "2026-08-01" {
		t.Errorf("from: got %s, want 2026-08-01", got)
	}
	if got := store.expensesArg.To.Format("2006-01-02"); got != "2026-08-31" {
		t.Errorf("to: got %s, want 2026-08-31", got)
	}
}

func TestReportHandler_UnknownTimezoneFallsBackToUTC(t *testing.T) {
	store := &mockReportStore{}
	r := newReportRouter(store, "Mars/Olympus_Mons")

	rr := doJSON(t, r, "GET", "/reports/dashboard", nil, nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if loc := store.summaryArg.From.Location(); loc != time.UTC {
		t.Errorf("location: got %v, want UTC", loc)
	}
}
