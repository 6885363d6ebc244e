package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wingbros-pos/api/internal/database"
)

// ReportStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportStore interface {
	GetSalesSummary(ctx context.Context, arg database.DateRangeParams) (database.SalesSummaryRow, error)
	GetDailySales(ctx context.Context, arg database.GetDailySalesParams) ([]database.DailySalesRow, error)
	GetChannelSales(ctx context.Context, arg database.DateRangeParams) ([]database.ChannelSalesRow, error)
	GetTopMenuItems(ctx context.Context, arg database.GetTopMenuItemsParams) ([]database.TopMenuItemRow, error)
	GetExpenseSummary(ctx context.Context, arg database.GetExpenseSummaryParams) ([]database.ExpenseSummaryRow, error)
	CountComplimentaryOrders(ctx context.Context, arg database.DateRangeParams) (int64, error)
	ListLowStockItems(ctx context.Context) ([]database.LowStockItemRow, error)
	CountUnavailableMenuItems(ctx context.Context) (int64, error)
}

// ReportHandler handles report endpoints. Business days are bounded in the
// store's timezone, not UTC, so a late-evening sale lands on the right day.
type ReportHandler struct {
	store    ReportStore
	location *time.Location
}

// NewReportHandler creates a new ReportHandler. An unresolvable timezone
// name falls back to UTC.
func NewReportHandler(store ReportStore, timezone string) *ReportHandler {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		log.Printf("ERROR: unknown report timezone %q, using UTC: %v", timezone, err)
		loc = time.UTC
	}
	return &ReportHandler{store: store, location: loc}
}

// RegisterRoutes registers report endpoints on the given Chi router.
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.Dashboard)
	r.Get("/sales", h.Sales)
	r.Get("/expenses", h.Expenses)
}

// --- Response types ---

type salesSummaryResponse struct {
	OrderCount int64  `json:"order_count"`
	TotalSales string `json:"total_sales"`
}

type dailySalesEntry struct {
	Date       string `json:"date"`
	OrderCount int64  `json:"order_count"`
	TotalSales string `json:"total_sales"`
}

type channelSalesEntry struct {
	Channel    string `json:"channel"`
	OrderCount int64  `json:"order_count"`
	TotalSales string `json:"total_sales"`
}

type topMenuItemEntry struct {
	MenuItemID   uuid.UUID `json:"menu_item_id"`
	Name         string    `json:"name"`
	QuantitySold int64     `json:"quantity_sold"`
	TotalSales   string    `json:"total_sales"`
}

type lowStockEntry struct {
	ItemID       uuid.UUID `json:"item_id"`
	Name         string    `json:"name"`
	Unit         string    `json:"unit"`
	Quantity     string    `json:"quantity"`
	ReorderLevel string    `json:"reorder_level"`
}

type dashboardResponse struct {
	Date                 string               `json:"date"`
	Sales                salesSummaryResponse `json:"sales"`
	ComplimentaryOrders  int64                `json:"complimentary_orders"`
	LowStockItems        []lowStockEntry      `json:"low_stock_items"`
	UnavailableMenuItems int64                `json:"unavailable_menu_items"`
}

type salesReportResponse struct {
	From     string               `json:"from"`
	To       string               `json:"to"`
	Summary  salesSummaryResponse `json:"summary"`
	Daily    []dailySalesEntry    `json:"daily"`
	Channels []channelSalesEntry  `json:"channels"`
	TopItems []topMenuItemEntry   `json:"top_items"`
}

type expenseSummaryEntry struct {
	ExpenseTypeID uuid.UUID `json:"expense_type_id"`
	Name          string    `json:"name"`
	TotalCost     string    `json:"total_cost"`
}

type expenseReportResponse struct {
	From   string                `json:"from"`
	To     string                `json:"to"`
	ByType []expenseSummaryEntry `json:"by_type"`
	Total  string                `json:"total"`
}

// dateRange resolves from/to query params into half-open timestamps bounded
// by local midnights. Both bounds default to today.
func (h *ReportHandler) dateRange(r *http.Request) (fromDay, toDay, from, to time.Time, err error) {
	now := time.Now().In(h.location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.location)
	fromDay, toDay = today, today

	if v := r.URL.Query().Get("from"); v != "" {
		d, perr := time.ParseInLocation(dateLayout, v, h.location)
		if perr != nil {
			err = perr
			return
		}
		fromDay = d
	}
	if v := r.URL.Query().Get("to"); v != "" {
		d, perr := time.ParseInLocation(dateLayout, v, h.location)
		if perr != nil {
			err = perr
			return
		}
		toDay = d
	}
	from = fromDay
	to = toDay.AddDate(0, 0, 1)
	return
}

// Dashboard returns the operational snapshot for today: sales so far,
// complimentary orders, items at or below reorder level and menu items
// currently out of stock.
func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	now := time.Now().In(h.location)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.location)
	rangeParams := database.DateRangeParams{From: from, To: from.AddDate(0, 0, 1)}

	summary, err := h.store.GetSalesSummary(r.Context(), rangeParams)
	if err != nil {
		log.Printf("ERROR: sales summary: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	complimentary, err := h.store.CountComplimentaryOrders(r.Context(), rangeParams)
	if err != nil {
		log.Printf("ERROR: complimentary count: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	lowStock, err := h.store.ListLowStockItems(r.Context())
	if err != nil {
		log.Printf("ERROR: low stock items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	unavailable, err := h.store.CountUnavailableMenuItems(r.Context())
	if err != nil {
		log.Printf("ERROR: unavailable menu items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := dashboardResponse{
		Date: from.Format(dateLayout),
		Sales: salesSummaryResponse{
			OrderCount: summary.OrderCount,
			TotalSales: numericToString(summary.TotalSales),
		},
		ComplimentaryOrders:  complimentary,
		UnavailableMenuItems: unavailable,
		LowStockItems:        make([]lowStockEntry, len(lowStock)),
	}
	for i, row := range lowStock {
		resp.LowStockItems[i] = lowStockEntry{
			ItemID:       row.ItemID,
			Name:         row.ItemName,
			Unit:         row.Unit,
			Quantity:     numericToQuantityString(row.Quantity),
			ReorderLevel: numericToQuantityString(row.ReorderLevel),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Sales returns the sales report for a date range: totals, per-day series,
// channel breakdown and top sellers. Only completed orders count.
func (h *ReportHandler) Sales(w http.ResponseWriter, r *http.Request) {
	fromDay, toDay, from, to, err := h.dateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}

	limit := int32(10)
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 1 || n > 100 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid top"})
			return
		}
		limit = int32(n)
	}

	rangeParams := database.DateRangeParams{From: from, To: to}
	summary, err := h.store.GetSalesSummary(r.Context(), rangeParams)
	if err != nil {
		log.Printf("ERROR: sales summary: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	daily, err := h.store.GetDailySales(r.Context(), database.GetDailySalesParams{
		From:     from,
		To:       to,
		Timezone: h.location.String(),
	})
	if err != nil {
		log.Printf("ERROR: daily sales: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	channels, err := h.store.GetChannelSales(r.Context(), rangeParams)
	if err != nil {
		log.Printf("ERROR: channel sales: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	topItems, err := h.store.GetTopMenuItems(r.Context(), database.GetTopMenuItemsParams{
		From:  from,
		To:    to,
		Limit: limit,
	})
	if err != nil {
		log.Printf("ERROR: top menu items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := salesReportResponse{
		From: fromDay.Format(dateLayout),
		To:   toDay.Format(dateLayout),
		Summary: salesSummaryResponse{
			OrderCount: summary.OrderCount,
			TotalSales: numericToString(summary.TotalSales),
		},
		Daily:    make([]dailySalesEntry, len(daily)),
		Channels: make([]channelSalesEntry, len(channels)),
		TopItems: make([]topMenuItemEntry, len(topItems)),
	}
	for i, row := range daily {
		resp.Daily[i] = dailySalesEntry{
			Date:       row.Day.Format(dateLayout),
			OrderCount: row.OrderCount,
			TotalSales: numericToString(row.TotalSales),
		}
	}
	for i, row := range channels {
		resp.Channels[i] = channelSalesEntry{
			Channel:    string(row.Channel),
			OrderCount: row.OrderCount,
			TotalSales: numericToString(row.TotalSales),
		}
	}
	for i, row := range topItems {
		resp.TopItems[i] = topMenuItemEntry{
			MenuItemID:   row.MenuItemID,
			Name:         row.MenuItemName,
			QuantitySold: row.QuantitySold,
			TotalSales:   numericToString(row.TotalSales),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Expenses returns per-type expense totals for a date range. Expense dates
// are calendar dates so both bounds are inclusive.
func (h *ReportHandler) Expenses(w http.ResponseWriter, r *http.Request) {
	fromDay, toDay, _, _, err := h.dateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}

	rows, err := h.store.GetExpenseSummary(r.Context(), database.GetExpenseSummaryParams{
		From: fromDay,
		To:   toDay,
	})
	if err != nil {
		log.Printf("ERROR: expense summary: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := expenseReportResponse{
		From:   fromDay.Format(dateLayout),
		To:     toDay.Format(dateLayout),
		ByType: make([]expenseSummaryEntry, len(rows)),
	}
	total := decimal.Zero
	for i, row := range rows {
		cost := numericToDecimal(row.TotalCost)
		total = total.Add(cost)
		resp.ByType[i] = expenseSummaryEntry{
			ExpenseTypeID: row.ExpenseTypeID,
			Name:          row.ExpenseTypeName,
			TotalCost:     cost.StringFixed(2),
		}
	}
	resp.Total = total.StringFixed(2)
	writeJSON(w, http.StatusOK, resp)
}
