package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/wingbros-pos/api/internal/database"
	"github.com/wingbros-pos/api/internal/handler"
)

// --- Mock store ---

type mockReceiptStore struct {
	items     map[uuid.UUID]database.Item
	stock     map[uuid.UUID]decimal.Decimal
	receipts  map[uuid.UUID]database.Receipt
	stockIns  map[uuid.UUID][]database.StockIn
	types     map[string]database.ExpenseType
	expenses  map[uuid.UUID]database.Expense
	suppliers map[uuid.UUID]string
}

func newMockReceiptStore() *mockReceiptStore {
	return &mockReceiptStore{
		items:     make(map[uuid.UUID]database.Item),
		stock:     make(map[uuid.UUID]decimal.Decimal),
		receipts:  make(map[uuid.UUID]database.Receipt),
		stockIns:  make(map[uuid.UUID][]database.StockIn),
		types:     make(map[string]database.ExpenseType),
		expenses:  make(map[uuid.UUID]database.Expense),
		suppliers: make(map[uuid.UUID]string),
	}
}

func numericDec(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func (m *mockReceiptStore) addItem(name, unit string) database.Item {
	item := database.Item{ID: uuid.New(), Name: name, Unit: unit}
	m.items[item.ID] = item
	m.stock[item.ID] = decimal.Zero
	return item
}

func (m *mockReceiptStore) CreateReceipt(_ context.Context, arg database.CreateReceiptParams) (database.Receipt, error) {
	rec := database.Receipt{
		ID:          uuid.New(),
		SupplierID:  arg.SupplierID,
		ReceiptDate: arg.ReceiptDate,
		CreatedBy:   arg.CreatedBy,
		CreatedAt:   time.Now(),
	}
	m.receipts[rec.ID] = rec
	return rec, nil
}

func (m *mockReceiptStore) GetReceipt(_ context.Context, id uuid.UUID) (database.Receipt, error) {
	rec, ok := m.receipts[id]
	if !ok {
		return database.Receipt{}, pgx.ErrNoRows
	}
	return rec, nil
}

func (m *mockReceiptStore) ListReceipts(_ context.Context) ([]database.ListReceiptsRow, error) {
	var rows []database.ListReceiptsRow
	for _, rec := range m.receipts {
		rows = append(rows, database.ListReceiptsRow{
			ID:           rec.ID,
			SupplierID:   rec.SupplierID,
			SupplierName: m.suppliers[rec.SupplierID],
			ReceiptDate:  rec.ReceiptDate,
			CreatedBy:    rec.CreatedBy,
			CreatedAt:    rec.CreatedAt,
		})
	}
	return rows, nil
}

func (m *mockReceiptStore) DeleteReceipt(_ context.Context, id uuid.UUID) error {
	delete(m.receipts, id)
	return nil
}

func (m *mockReceiptStore) CreateStockIn(_ context.Context, arg database.CreateStockInParams) (database.StockIn, error) {
	s := database.StockIn{
		ID:         uuid.New(),
		ReceiptID:  arg.ReceiptID,
		ItemID:     arg.ItemID,
		QuantityIn: arg.QuantityIn,
		UnitPrice:  arg.UnitPrice,
	}
	m.stockIns[arg.ReceiptID] = append(m.stockIns[arg.ReceiptID], s)
	return s, nil
}

func (m *mockReceiptStore) ListStockInsByReceipt(_ context.Context, receiptID uuid.UUID) ([]database.StockIn, error) {
	return m.stockIns[receiptID], nil
}

func (m *mockReceiptStore) DeleteStockInsByReceipt(_ context.Context, receiptID uuid.UUID) error {
	delete(m.stockIns, receiptID)
	return nil
}

func (m *mockReceiptStore) AddInventoryQuantity(_ context.Context, arg database.AddInventoryQuantityParams) (database.Inventory, error) {
	m.stock[arg.ItemID] = m.stock[arg.ItemID].Add(numericDec(arg.Delta))
	return database.Inventory{ItemID: arg.ItemID}, nil
}

func (m *mockReceiptStore) GetItem(_ context.Context, id uuid.UUID) (database.Item, error) {
	item, ok := m.items[id]
	if !ok {
		return database.Item{}, pgx.ErrNoRows
	}
	return item, nil
}

func (m *mockReceiptStore) GetExpenseTypeByName(_ context.Context, name string) (database.ExpenseType, error) {
	et, ok := m.types[name]
	if !ok {
		return database.ExpenseType{}, pgx.ErrNoRows
	}
	return et, nil
}

func (m *mockReceiptStore) CreateExpenseType(_ context.Context, name string) (database.ExpenseType, error) {
	et := database.ExpenseType{ID: uuid.New(), Name: name}
	m.types[name] = et
	return et, nil
}

func (m *mockReceiptStore) CreateExpense(_ context.Context, arg database.CreateExpenseParams) (database.Expense, error) {
	e := database.Expense{
		ID:            uuid.New(),
		ExpenseTypeID: arg.ExpenseTypeID,
		Description:   arg.Description,
		Cost:          arg.Cost,
		ExpenseDate:   arg.ExpenseDate,
		ReceiptID:     arg.ReceiptID,
		CreatedAt:     time.Now(),
	}
	m.expenses[e.ID] = e
	return e, nil
}

func (m *mockReceiptStore) GetExpenseByReceipt(_ context.Context, receiptID uuid.UUID) (database.Expense, error) {
	for _, e := range m.expenses {
		if e.ReceiptID.Valid && e.ReceiptID.Bytes == receiptID {
			return e, nil
		}
	}
	return database.Expense{}, pgx.ErrNoRows
}

func (m *mockReceiptStore) UpdateExpenseCost(_ context.Context, arg database.UpdateExpenseCostParams) (database.Expense, error) {
	e, ok := m.expenses[arg.ID]
	if !ok {
		return database.Expense{}, pgx.ErrNoRows
	}
	e.Cost = arg.Cost
	m.expenses[arg.ID] = e
	return e, nil
}

func (m *mockReceiptStore) DeleteExpenseByReceipt(_ context.Context, receiptID uuid.UUID) error {
	for id, e := range m.expenses {
		if e.ReceiptID.Valid && e.ReceiptID.Bytes == receiptID {
			delete(m.expenses, id)
		}
	}
	return nil
}

func newReceiptRouter(store *mockReceiptStore, rechecker handler.AvailabilityRechecker) (chi.Router, *mockTx) {
	tx := &mockTx{}
	h := handler.NewReceiptHandler(
		&mockTxBeginner{tx: tx},
		func(db database.DBTX) handler.ReceiptStore { return store },
		rechecker,
		nil,
	)
	r := chi.NewRouter()
	r.Route("/receipts", h.RegisterRoutes)
	return r, tx
}

// --- Tests ---

func TestCreateReceipt(t *testing.T) {
	store := newMockReceiptStore()
	wings := store.addItem("Chicken Wings", "kg")
	oil := store.addItem("Cooking Oil", "l")
	supplierID := uuid.New()
	rechecker := &mockRechecker{}
	r, tx := newReceiptRouter(store, rechecker)

	rr := doJSON(t, r, "POST", "/receipts/", map[string]interface{}{
		"supplier_id":  supplierID.String(),
		"receipt_date": "2026-08-20",
		"lines": []map[string]string{
			{"item_id": wings.ID.String(), "quantity": "10", "unit_price": "185.50"},
			{"item_id": oil.ID.String(), "quantity": "4", "unit_price": "95.00"},
		},
	}, testClaims(uuid.New()))

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	if !tx.committed {
		t.Error("expected transaction to be committed")
	}
	if rechecker.calls != 1 {
		t.Errorf("recheck calls: got %d, want 1", rechecker.calls)
	}

	resp := decodeResponse(t, rr)
	if resp["total"] != "2235.00" {
		t.Errorf("total: got %v, want 2235.00", resp["total"])
	}
	if got := store.stock[wings.ID]; !got.Equal(decimal.NewFromInt(10)) {
		t.Errorf("wings stock: got %s, want 10", got)
	}
	if got := store.stock[oil.ID]; !got.Equal(decimal.NewFromInt(4)) {
		t.Errorf("oil stock: got %s, want 4", got)
	}

	// The receipt total lands as a Supplies expense in the same transaction.
	if _, ok := store.types["Supplies"]; !ok {
		t.Fatal("expected Supplies expense type to be created")
	}
	if len(store.expenses) != 1 {
		t.Fatalf("expenses: got %d, want 1", len(store.expenses))
	}
	for _, e := range store.expenses {
		if got := numericDec(e.Cost); !got.Equal(decimal.RequireFromString("2235.00")) {
			t.Errorf("expense cost: got %s, want 2235.00", got)
		}
	}
}

func TestCreateReceipt_ExistingExpenseType(t *testing.T) {
	store := newMockReceiptStore()
	item := store.addItem("Chicken Wings", "kg")
	existing, _ := store.CreateExpenseType(context.Background(), "Supplies")
	r, _ := newReceiptRouter(store, nil)

	rr := doJSON(t, r, "POST", "/receipts/", map[string]interface{}{
		"supplier_id":  uuid.NewString(),
		"receipt_date": "2026-08-20",
		"lines": []map[string]string{
			{"item_id": item.ID.String(), "quantity": "1", "unit_price": "100"},
		},
	}, testClaims(uuid.New()))

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	for _, e := range store.expenses {
		if e.ExpenseTypeID != existing.ID {
			t.Errorf("expense type: got %s, want existing Supplies type %s", e.ExpenseTypeID, existing.ID)
		}
	}
}

func TestCreateReceipt_UnknownItem(t *testing.T) {
	store := newMockReceiptStore()
	r, tx := newReceiptRouter(store, nil)

	rr := doJSON(t, r, "POST", "/receipts/", map[string]interface{}{
		"supplier_id":  uuid.NewString(),
		"receipt_date": "2026-08-20",
		"lines": []map[string]string{
			{"item_id": uuid.NewString(), "quantity": "1", "unit_price": "100"},
		},
	}, testClaims(uuid.New()))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
	if tx.committed {
		t.Error("transaction should not have been committed")
	}
}

func TestCreateReceipt_InvalidLines(t *testing.T) {
	store := newMockReceiptStore()
	item := store.addItem("Chicken Wings", "kg")
	r, _ := newReceiptRouter(store, nil)

	tests := []struct {
		name  string
		lines []map[string]string
	}{
		{"empty", nil},
		{"zero quantity", []map[string]string{{"item_id": item.ID.String(), "quantity": "0", "unit_price": "10"}}},
		{"negative price", []map[string]string{{"item_id": item.ID.String(), "quantity": "1", "unit_price": "-5"}}},
		{"bad item id", []map[string]string{{"item_id": "nope", "quantity": "1", "unit_price": "10"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, r, "POST", "/receipts/", map[string]interface{}{
				"supplier_id":  uuid.NewString(),
				"receipt_date": "2026-08-20",
				"lines":        tc.lines,
			}, testClaims(uuid.New()))

			if rr.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestCreateReceipt_Unauthenticated(t *testing.T) {
	store := newMockReceiptStore()
	r, _ := newReceiptRouter(store, nil)

	rr := postJSON(t, r, "/receipts/", map[string]interface{}{
		"supplier_id":  uuid.NewString(),
		"receipt_date": "2026-08-20",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestUpdateReceiptLines(t *testing.T) {
	store := newMockReceiptStore()
	item := store.addItem("Chicken Wings", "kg")
	r, _ := newReceiptRouter(store, nil)

	rr := doJSON(t, r, "POST", "/receipts/", map[string]interface{}{
		"supplier_id":  uuid.NewString(),
		"receipt_date": "2026-08-20",
		"lines": []map[string]string{
			{"item_id": item.ID.String(), "quantity": "10", "unit_price": "185.50"},
		},
	}, testClaims(uuid.New()))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	receiptID := decodeResponse(t, rr)["id"].(string)

	rr = doJSON(t, r, "PUT", "/receipts/"+receiptID, map[string]interface{}{
		"lines": []map[string]string{
			{"item_id": item.ID.String(), "quantity": "6", "unit_price": "190.00"},
		},
	}, testClaims(uuid.New()))

	if rr.Code != http.StatusOK {
		t.Fatalf("update: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if got := decodeResponse(t, rr)["total"]; got != "1140.00" {
		t.Errorf("total: got %v, want 1140.00", got)
	}
	// Old quantities are backed out before the new lines apply.
	if got := store.stock[item.ID]; !got.Equal(decimal.NewFromInt(6)) {
		t.Errorf("stock: got %s, want 6", got)
	}
	for _, e := range store.expenses {
		if got := numericDec(e.Cost); !got.Equal(decimal.RequireFromString("1140.00")) {
			t.Errorf("expense cost: got %s, want 1140.00", got)
		}
	}
}

func TestUpdateReceiptLines_NotFound(t *testing.T) {
	store := newMockReceiptStore()
	item := store.addItem("Chicken Wings", "kg")
	r, _ := newReceiptRouter(store, nil)

	rr := doJSON(t, r, "PUT", "/receipts/"+uuid.NewString(), map[string]interface{}{
		"lines": []map[string]string{
			{"item_id": item.ID.String(), "quantity": "1", "unit_price": "10"},
		},
	}, testClaims(uuid.New()))

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestDeleteReceipt(t *testing.T) {
	store := newMockReceiptStore()
	item := store.addItem("Chicken Wings", "kg")
	r, _ := newReceiptRouter(store, nil)

	rr := doJSON(t, r, "POST", "/receipts/", map[string]interface{}{
		"supplier_id":  uuid.NewString(),
		"receipt_date": "2026-08-20",
		"lines": []map[string]string{
			{"item_id": item.ID.String(), "quantity": "10", "unit_price": "185.50"},
		},
	}, testClaims(uuid.New()))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	receiptID := decodeResponse(t, rr)["id"].(string)

	rr = doJSON(t, r, "DELETE", "/receipts/"+receiptID, nil, testClaims(uuid.New()))

	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: got %d, want %d; body: %s", rr.Code, http.StatusNoContent, rr.Body.String())
	}
	if got := store.stock[item.ID]; !got.IsZero() {
		t.Errorf("stock after delete: got %s, want 0", got)
	}
	if len(store.receipts) != 0 {
		t.Error("expected receipt to be removed")
	}
	if len(store.expenses) != 0 {
		t.Error("expected linked expense to be removed")
	}
	if len(store.stockIns) != 0 {
		t.Error("expected stock-ins to be removed")
	}
}

func TestGetReceipt_WithLines(t *testing.T) {
	store := newMockReceiptStore()
	item := store.addItem("Chicken Wings", "kg")
	r, _ := newReceiptRouter(store, nil)

	rr := doJSON(t, r, "POST", "/receipts/", map[string]interface{}{
		"supplier_id":  uuid.NewString(),
		"receipt_date": "2026-08-20",
		"lines": []map[string]string{
			{"item_id": item.ID.String(), "quantity": "2.5", "unit_price": "185.50"},
		},
	}, testClaims(uuid.New()))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	receiptID := decodeResponse(t, rr)["id"].(string)

	rr = doJSON(t, r, "GET", "/receipts/"+receiptID, nil, nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("get: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	lines, ok := resp["lines"].([]interface{})
	if !ok || len(lines) != 1 {
		t.Fatalf("lines: got %v, want 1 line", resp["lines"])
	}
	if resp["total"] != "463.75" {
		t.Errorf("total: got %v, want 463.75", resp["total"])
	}
}

func TestGetReceipt_NotFound(t *testing.T) {
	store := newMockReceiptStore()
	r, _ := newReceiptRouter(store, nil)

	rr := doJSON(t, r, "GET", "/receipts/"+uuid.NewString(), nil, nil)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
