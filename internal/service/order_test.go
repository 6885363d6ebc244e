package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/wingbros-pos/api/internal/database"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error          { return m.commitErr }
func (m *mockTx) Rollback(ctx context.Context) error        { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// mockOrderStore implements OrderStore with configurable behavior.
type mockOrderStore struct {
	getNextOrderSequenceFn      func(ctx context.Context) (int64, error)
	getMenuItemFn               func(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	getDiscountFn               func(ctx context.Context, id uuid.UUID) (database.Discount, error)
	getInstoreCategoryFn        func(ctx context.Context, id uuid.UUID) (database.InstoreCategory, error)
	createOrderFn               func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	getOrderForUpdateFn         func(ctx context.Context, id uuid.UUID) (database.Order, error)
	updateOrderTotalsFn         func(ctx context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error)
	updateOrderStatusFn         func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	createOrderDetailFn         func(ctx context.Context, arg database.CreateOrderDetailParams) (database.OrderDetail, error)
	listOrderDetailsByOrderFn   func(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderDetailsByOrderRow, error)
	deleteOrderDetailsByOrderFn func(ctx context.Context, orderID uuid.UUID) error
	createPaymentReferenceFn    func(ctx context.Context, arg database.CreatePaymentReferenceParams) (database.PaymentReference, error)
	getRecipeForMenuItemFn      func(ctx context.Context, menuItemID uuid.UUID) ([]database.RecipeRow, error)
	getInventoryForUpdateFn     func(ctx context.Context, itemID uuid.UUID) (database.Inventory, error)
	setInventoryQuantityFn      func(ctx context.Context, arg database.SetInventoryQuantityParams) (database.Inventory, error)
	createDisposalFn            func(ctx context.Context, arg database.CreateDisposalParams) (database.Disposal, error)
	listMenuItemIDsUsingItemsFn func(ctx context.Context, itemIDs []uuid.UUID) ([]uuid.UUID, error)
	listMenuItemsFn             func(ctx context.Context) ([]database.MenuItem, error)
	setMenuItemStatusFn         func(ctx context.Context, arg database.SetMenuItemStatusParams) (database.MenuItem, error)
}

func (m *mockOrderStore) GetNextOrderSequence(ctx context.Context) (int64, error) {
	return m.getNextOrderSequenceFn(ctx)
}
func (m *mockOrderStore) GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error) {
	return m.getMenuItemFn(ctx, id)
}
func (m *mockOrderStore) GetDiscount(ctx context.Context, id uuid.UUID) (database.Discount, error) {
	return m.getDiscountFn(ctx, id)
}
func (m *mockOrderStore) GetInstoreCategory(ctx context.Context, id uuid.UUID) (database.InstoreCategory, error) {
	return m.getInstoreCategoryFn(ctx, id)
}
func (m *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}
func (m *mockOrderStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderForUpdateFn(ctx, id)
}
func (m *mockOrderStore) UpdateOrderTotals(ctx context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error) {
	return m.updateOrderTotalsFn(ctx, arg)
}
func (m *mockOrderStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	return m.updateOrderStatusFn(ctx, arg)
}
func (m *mockOrderStore) CreateOrderDetail(ctx context.Context, arg database.CreateOrderDetailParams) (database.OrderDetail, error) {
	return m.createOrderDetailFn(ctx, arg)
}
func (m *mockOrderStore) ListOrderDetailsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderDetailsByOrderRow, error) {
	return m.listOrderDetailsByOrderFn(ctx, orderID)
}
func (m *mockOrderStore) DeleteOrderDetailsByOrder(ctx context.Context, orderID uuid.UUID) error {
	return m.deleteOrderDetailsByOrderFn(ctx, orderID)
}
func (m *mockOrderStore) CreatePaymentReference(ctx context.Context, arg database.CreatePaymentReferenceParams) (database.PaymentReference, error) {
	return m.createPaymentReferenceFn(ctx, arg)
}
func (m *mockOrderStore) GetRecipeForMenuItem(ctx context.Context, menuItemID uuid.UUID) ([]database.RecipeRow, error) {
	return m.getRecipeForMenuItemFn(ctx, menuItemID)
}
func (m *mockOrderStore) GetInventoryForUpdate(ctx context.Context, itemID uuid.UUID) (database.Inventory, error) {
	return m.getInventoryForUpdateFn(ctx, itemID)
}
func (m *mockOrderStore) SetInventoryQuantity(ctx context.Context, arg database.SetInventoryQuantityParams) (database.Inventory, error) {
	return m.setInventoryQuantityFn(ctx, arg)
}
func (m *mockOrderStore) CreateDisposal(ctx context.Context, arg database.CreateDisposalParams) (database.Disposal, error) {
	return m.createDisposalFn(ctx, arg)
}
func (m *mockOrderStore) ListMenuItemIDsUsingItems(ctx context.Context, itemIDs []uuid.UUID) ([]uuid.UUID, error) {
	return m.listMenuItemIDsUsingItemsFn(ctx, itemIDs)
}
func (m *mockOrderStore) ListMenuItems(ctx context.Context) ([]database.MenuItem, error) {
	return m.listMenuItemsFn(ctx)
}
func (m *mockOrderStore) SetMenuItemStatus(ctx context.Context, arg database.SetMenuItemStatusParams) (database.MenuItem, error) {
	return m.setMenuItemStatusFn(ctx, arg)
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

// newTestService creates an OrderService with mocked dependencies and the
// deduction rates used throughout these tests (Grab 20%, FoodPanda 25%).
func newTestService(store *mockOrderStore) *OrderService {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) OrderStore { return store }
	return NewOrderService(pool, newStore, decimal.NewFromInt(20), decimal.NewFromInt(25))
}

// defaultStore wires a mockOrderStore around one menu item priced at 100 on
// the given channel. CreateOrder and CreateOrderDetail echo their params back
// so tests can assert on what was persisted.
func defaultStore(menuItemID uuid.UUID, channel database.Channel) *mockOrderStore {
	return &mockOrderStore{
		getNextOrderSequenceFn: func(ctx context.Context) (int64, error) { return 42, nil },
		getMenuItemFn: func(ctx context.Context, id uuid.UUID) (database.MenuItem, error) {
			if id != menuItemID {
				return database.MenuItem{}, pgx.ErrNoRows
			}
			return database.MenuItem{
				ID:      id,
				Name:    "Garlic Parmesan Wings",
				Price:   makeNumeric("100.00"),
				Channel: channel,
				Status:  database.MenuItemStatusAvailable,
			}, nil
		},
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			return database.Order{
				ID:            uuid.New(),
				OrderNumber:   arg.OrderNumber,
				Channel:       arg.Channel,
				PaymentMethod: arg.PaymentMethod,
				Status:        arg.Status,
				AmountPaid:    arg.AmountPaid,
				TotalAmount:   arg.TotalAmount,
				ChangeAmount:  arg.ChangeAmount,
				CreatedBy:     arg.CreatedBy,
			}, nil
		},
		createOrderDetailFn: func(ctx context.Context, arg database.CreateOrderDetailParams) (database.OrderDetail, error) {
			return database.OrderDetail{
				ID:                  uuid.New(),
				OrderID:             arg.OrderID,
				MenuItemID:          arg.MenuItemID,
				Quantity:            arg.Quantity,
				UnitPrice:           arg.UnitPrice,
				ChannelDeductionPct: arg.ChannelDeductionPct,
				DiscountID:          arg.DiscountID,
				DiscountPct:         arg.DiscountPct,
				InstoreCategoryID:   arg.InstoreCategoryID,
				GroupTag:            arg.GroupTag,
				GroupBaseAmount:     arg.GroupBaseAmount,
				Subtotal:            arg.Subtotal,
			}, nil
		},
	}
}

// --- Pricing tests ---

func TestPlaceOrder_AlaCartePricing(t *testing.T) {
	menuItemID := uuid.New()
	discountID := uuid.New()
	store := defaultStore(menuItemID, database.ChannelInStore)
	store.getDiscountFn = func(ctx context.Context, id uuid.UUID) (database.Discount, error) {
		return database.Discount{ID: id, Name: "Senior", Percentage: makeNumeric("10")}, nil
	}

	svc := newTestService(store)
	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Channel:       "IN_STORE",
		PaymentMethod: "CASH",
		AmountPaid:    "300",
		CreatedBy:     uuid.New(),
		Lines: []OrderLineRequest{
			{MenuItemID: menuItemID.String(), Quantity: 3, DiscountID: discountID.String()},
		},
	})
	if err != nil {
		t.Fatalf("PlaceOrder() error = %v", err)
	}

	// price=100, quantity=3, discount=10%: base=300.00, final=270.00
	if !numericEquals(result.Order.TotalAmount, "270.00") {
		t.Errorf("total: got %v, want 270.00", numericToDecimal(result.Order.TotalAmount))
	}
	if !numericEquals(result.Order.ChangeAmount, "30.00") {
		t.Errorf("change: got %v, want 30.00", numericToDecimal(result.Order.ChangeAmount))
	}
	if len(result.Lines) != 1 {
		t.Fatalf("lines: got %d, want 1", len(result.Lines))
	}
	if !numericEquals(result.Lines[0].Subtotal, "270.00") {
		t.Errorf("line subtotal: got %v, want 270.00", numericToDecimal(result.Lines[0].Subtotal))
	}
	if !numericEquals(result.Lines[0].DiscountPct, "10.00") {
		t.Errorf("discount pct snapshot: got %v, want 10.00", numericToDecimal(result.Lines[0].DiscountPct))
	}
}

func TestPlaceOrder_GrabDeduction(t *testing.T) {
	menuItemID := uuid.New()
	store := defaultStore(menuItemID, database.ChannelGrab)

	svc := newTestService(store)
	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Channel:       "GRAB",
		PaymentMethod: "GCASH",
		AmountPaid:    "160",
		CreatedBy:     uuid.New(),
		Lines: []OrderLineRequest{
			{MenuItemID: menuItemID.String(), Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("PlaceOrder() error = %v", err)
	}

	// price=100, quantity=2, deduction=20%: final=160.00
	if !numericEquals(result.Order.TotalAmount, "160.00") {
		t.Errorf("total: got %v, want 160.00", numericToDecimal(result.Order.TotalAmount))
	}
	if !numericEquals(result.Lines[0].ChannelDeductionPct, "20.00") {
		t.Errorf("deduction pct snapshot: got %v, want 20.00", numericToDecimal(result.Lines[0].ChannelDeductionPct))
	}
}

func TestPlaceOrder_UnliWingsFlatGroup(t *testing.T) {
	menuItemID := uuid.New()
	instoreCategoryID := uuid.New()
	store := defaultStore(menuItemID, database.ChannelInStore)
	store.getInstoreCategoryFn = func(ctx context.Context, id uuid.UUID) (database.InstoreCategory, error) {
		return database.InstoreCategory{ID: id, Name: "Unli Wings", BaseAmount: makeNumeric("500.00")}, nil
	}

	tag := int32(1)
	svc := newTestService(store)
	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Channel:       "IN_STORE",
		PaymentMethod: "CASH",
		AmountPaid:    "500",
		CreatedBy:     uuid.New(),
		Lines: []OrderLineRequest{
			{MenuItemID: menuItemID.String(), Quantity: 4, InstoreCategoryID: instoreCategoryID.String(), GroupTag: &tag},
			{MenuItemID: menuItemID.String(), Quantity: 6, InstoreCategoryID: instoreCategoryID.String(), GroupTag: &tag},
		},
	})
	if err != nil {
		t.Fatalf("PlaceOrder() error = %v", err)
	}

	// Two lines, one group, base 500: group contributes exactly 500 regardless
	// of line count or quantity.
	if !numericEquals(result.Order.TotalAmount, "500.00") {
		t.Errorf("total: got %v, want 500.00", numericToDecimal(result.Order.TotalAmount))
	}
	if len(result.Lines) != 2 {
		t.Fatalf("lines: got %d, want 2", len(result.Lines))
	}
	for i, line := range result.Lines {
		if !line.GroupTag.Valid || line.GroupTag.Int32 != 1 {
			t.Errorf("line[%d] group tag: got %+v, want 1", i, line.GroupTag)
		}
		if !numericEquals(line.GroupBaseAmount, "500.00") {
			t.Errorf("line[%d] captured base: got %v, want 500.00", i, numericToDecimal(line.GroupBaseAmount))
		}
	}
	if !numericEquals(result.Lines[0].Subtotal, "500.00") {
		t.Errorf("first line carries group amount: got %v, want 500.00", numericToDecimal(result.Lines[0].Subtotal))
	}
	if !numericEquals(result.Lines[1].Subtotal, "0.00") {
		t.Errorf("second line subtotal: got %v, want 0.00", numericToDecimal(result.Lines[1].Subtotal))
	}
}

func TestPlaceOrder_UnliWingsGroupDiscountAppliedOnce(t *testing.T) {
	menuItemID := uuid.New()
	instoreCategoryID := uuid.New()
	discountID := uuid.New()
	store := defaultStore(menuItemID, database.ChannelInStore)
	store.getInstoreCategoryFn = func(ctx context.Context, id uuid.UUID) (database.InstoreCategory, error) {
		return database.InstoreCategory{ID: id, Name: "Unli Wings", BaseAmount: makeNumeric("500.00")}, nil
	}
	store.getDiscountFn = func(ctx context.Context, id uuid.UUID) (database.Discount, error) {
		return database.Discount{ID: id, Name: "PWD", Percentage: makeNumeric("20")}, nil
	}

	tag := int32(3)
	svc := newTestService(store)
	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Channel:       "IN_STORE",
		PaymentMethod: "CASH",
		AmountPaid:    "400",
		CreatedBy:     uuid.New(),
		Lines: []OrderLineRequest{
			{MenuItemID: menuItemID.String(), Quantity: 2, InstoreCategoryID: instoreCategoryID.String(), GroupTag: &tag, DiscountID: discountID.String()},
			{MenuItemID: menuItemID.String(), Quantity: 2, InstoreCategoryID: instoreCategoryID.String(), GroupTag: &tag, DiscountID: discountID.String()},
		},
	})
	if err != nil {
		t.Fatalf("PlaceOrder() error = %v", err)
	}

	// 500 * (1 - 20%) = 400, applied once for the whole group.
	if !numericEquals(result.Order.TotalAmount, "400.00") {
		t.Errorf("total: got %v, want 400.00", numericToDecimal(result.Order.TotalAmount))
	}
}

func TestPlaceOrder_UngroupedBundleLinesGetFreshTags(t *testing.T) {
	menuItemID := uuid.New()
	instoreCategoryID := uuid.New()
	store := defaultStore(menuItemID, database.ChannelInStore)
	store.getInstoreCategoryFn = func(ctx context.Context, id uuid.UUID) (database.InstoreCategory, error) {
		return database.InstoreCategory{ID: id, Name: "Unli Wings", BaseAmount: makeNumeric("500.00")}, nil
	}

	svc := newTestService(store)
	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Channel:       "IN_STORE",
		PaymentMethod: "CASH",
		AmountPaid:    "1000",
		CreatedBy:     uuid.New(),
		Lines: []OrderLineRequest{
			{MenuItemID: menuItemID.String(), Quantity: 1, InstoreCategoryID: instoreCategoryID.String()},
			{MenuItemID: menuItemID.String(), Quantity: 1, InstoreCategoryID: instoreCategoryID.String()},
		},
	})
	if err != nil {
		t.Fatalf("PlaceOrder() error = %v", err)
	}

	// No caller-supplied tags: each line opens its own group and bills its
	// own flat amount.
	if !numericEquals(result.Order.TotalAmount, "1000.00") {
		t.Errorf("total: got %v, want 1000.00", numericToDecimal(result.Order.TotalAmount))
	}
	if result.Lines[0].GroupTag.Int32 == result.Lines[1].GroupTag.Int32 {
		t.Errorf("expected distinct group tags, both got %d", result.Lines[0].GroupTag.Int32)
	}
}

func TestPlaceOrder_ValidationErrors(t *testing.T) {
	menuItemID := uuid.New()
	store := defaultStore(menuItemID, database.ChannelInStore)
	svc := newTestService(store)

	tests := []struct {
		name    string
		req     PlaceOrderRequest
		wantErr error
	}{
		{
			name: "empty lines",
			req: PlaceOrderRequest{
				Channel: "IN_STORE", PaymentMethod: "CASH", AmountPaid: "100",
			},
			wantErr: ErrEmptyLines,
		},
		{
			name: "invalid channel",
			req: PlaceOrderRequest{
				Channel: "DOORDASH", PaymentMethod: "CASH", AmountPaid: "100",
				Lines: []OrderLineRequest{{MenuItemID: menuItemID.String(), Quantity: 1}},
			},
			wantErr: ErrInvalidChannel,
		},
		{
			name: "invalid payment method",
			req: PlaceOrderRequest{
				Channel: "IN_STORE", PaymentMethod: "CHECK", AmountPaid: "100",
				Lines: []OrderLineRequest{{MenuItemID: menuItemID.String(), Quantity: 1}},
			},
			wantErr: ErrInvalidPaymentMethod,
		},
		{
			name: "zero quantity",
			req: PlaceOrderRequest{
				Channel: "IN_STORE", PaymentMethod: "CASH", AmountPaid: "100",
				Lines: []OrderLineRequest{{MenuItemID: menuItemID.String(), Quantity: 0}},
			},
			wantErr: ErrInvalidQuantity,
		},
		{
			name: "invalid amount paid",
			req: PlaceOrderRequest{
				Channel: "IN_STORE", PaymentMethod: "CASH", AmountPaid: "lots",
				Lines: []OrderLineRequest{{MenuItemID: menuItemID.String(), Quantity: 1}},
			},
			wantErr: ErrInvalidAmountPaid,
		},
		{
			name: "unknown menu item",
			req: PlaceOrderRequest{
				Channel: "IN_STORE", PaymentMethod: "CASH", AmountPaid: "100",
				Lines: []OrderLineRequest{{MenuItemID: uuid.New().String(), Quantity: 1}},
			},
			wantErr: ErrMenuItemNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.PlaceOrder(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("PlaceOrder() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPlaceOrder_ChannelMismatch(t *testing.T) {
	menuItemID := uuid.New()
	store := defaultStore(menuItemID, database.ChannelGrab)

	svc := newTestService(store)
	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Channel:       "IN_STORE",
		PaymentMethod: "CASH",
		AmountPaid:    "100",
		CreatedBy:     uuid.New(),
		Lines:         []OrderLineRequest{{MenuItemID: menuItemID.String(), Quantity: 1}},
	})
	if !errors.Is(err, ErrChannelMismatch) {
		t.Errorf("PlaceOrder() error = %v, want %v", err, ErrChannelMismatch)
	}
}

// --- Edit tests ---

func TestEditOrder_KeepsCapturedBaseAmount(t *testing.T) {
	menuItemID := uuid.New()
	instoreCategoryID := uuid.New()
	orderID := uuid.New()
	store := defaultStore(menuItemID, database.ChannelInStore)

	// Master rate has since doubled; the stored rows captured 500.
	store.getInstoreCategoryFn = func(ctx context.Context, id uuid.UUID) (database.InstoreCategory, error) {
		return database.InstoreCategory{ID: id, Name: "Unli Wings", BaseAmount: makeNumeric("1000.00")}, nil
	}
	store.getOrderForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return database.Order{
			ID: orderID, OrderNumber: "WNG-000042",
			Channel: database.ChannelInStore, PaymentMethod: database.PaymentMethodCash,
			Status: database.OrderStatusPending, AmountPaid: makeNumeric("500.00"),
		}, nil
	}
	store.listOrderDetailsByOrderFn = func(ctx context.Context, id uuid.UUID) ([]database.ListOrderDetailsByOrderRow, error) {
		return []database.ListOrderDetailsByOrderRow{
			{
				OrderID: orderID, MenuItemID: menuItemID, Quantity: 2,
				GroupTag:        pgtype.Int4{Int32: 1, Valid: true},
				GroupBaseAmount: makeNumeric("500.00"),
			},
		}, nil
	}
	store.deleteOrderDetailsByOrderFn = func(ctx context.Context, id uuid.UUID) error { return nil }
	store.updateOrderTotalsFn = func(ctx context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error) {
		return database.Order{
			ID: arg.ID, Channel: database.ChannelInStore, PaymentMethod: arg.PaymentMethod,
			Status: database.OrderStatusPending, AmountPaid: arg.AmountPaid,
			TotalAmount: arg.TotalAmount, ChangeAmount: arg.ChangeAmount,
		}, nil
	}

	tag := int32(1)
	svc := newTestService(store)
	result, err := svc.EditOrder(context.Background(), EditOrderRequest{
		OrderID:       orderID,
		PaymentMethod: "CASH",
		AmountPaid:    "500",
		Lines: []OrderLineRequest{
			{MenuItemID: menuItemID.String(), Quantity: 3, InstoreCategoryID: instoreCategoryID.String(), GroupTag: &tag},
		},
	})
	if err != nil {
		t.Fatalf("EditOrder() error = %v", err)
	}

	// Still priced at the captured 500, not the new master 1000.
	if !numericEquals(result.Order.TotalAmount, "500.00") {
		t.Errorf("total: got %v, want 500.00", numericToDecimal(result.Order.TotalAmount))
	}
}

func TestEditOrder_GCashRecordsIncrementalReference(t *testing.T) {
	menuItemID := uuid.New()
	orderID := uuid.New()
	store := defaultStore(menuItemID, database.ChannelInStore)
	store.getOrderForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return database.Order{
			ID: orderID, Channel: database.ChannelInStore,
			PaymentMethod: database.PaymentMethodGCash,
			Status:        database.OrderStatusPending,
			AmountPaid:    makeNumeric("200.00"),
		}, nil
	}
	store.listOrderDetailsByOrderFn = func(ctx context.Context, id uuid.UUID) ([]database.ListOrderDetailsByOrderRow, error) {
		return nil, nil
	}
	store.deleteOrderDetailsByOrderFn = func(ctx context.Context, id uuid.UUID) error { return nil }
	store.updateOrderTotalsFn = func(ctx context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error) {
		return database.Order{ID: arg.ID, AmountPaid: arg.AmountPaid, TotalAmount: arg.TotalAmount}, nil
	}
	var refAmount pgtype.Numeric
	store.createPaymentReferenceFn = func(ctx context.Context, arg database.CreatePaymentReferenceParams) (database.PaymentReference, error) {
		refAmount = arg.Amount
		return database.PaymentReference{ID: uuid.New(), OrderID: arg.OrderID, ReferenceNumber: arg.ReferenceNumber, Amount: arg.Amount}, nil
	}

	svc := newTestService(store)
	_, err := svc.EditOrder(context.Background(), EditOrderRequest{
		OrderID:         orderID,
		PaymentMethod:   "GCASH",
		AmountPaid:      "300",
		ReferenceNumber: "GC-9981",
		Lines:           []OrderLineRequest{{MenuItemID: menuItemID.String(), Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("EditOrder() error = %v", err)
	}

	// Reference carries only the increment: 300 - 200 = 100.
	if !numericEquals(refAmount, "100.00") {
		t.Errorf("reference amount: got %v, want 100.00", numericToDecimal(refAmount))
	}
}

func TestEditOrder_RejectsNonPending(t *testing.T) {
	menuItemID := uuid.New()
	store := defaultStore(menuItemID, database.ChannelInStore)
	store.getOrderForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return database.Order{ID: id, Status: database.OrderStatusCompleted}, nil
	}

	svc := newTestService(store)
	_, err := svc.EditOrder(context.Background(), EditOrderRequest{
		OrderID:       uuid.New(),
		PaymentMethod: "CASH",
		AmountPaid:    "100",
		Lines:         []OrderLineRequest{{MenuItemID: menuItemID.String(), Quantity: 1}},
	})
	if !errors.Is(err, ErrOrderNotEditable) {
		t.Errorf("EditOrder() error = %v, want %v", err, ErrOrderNotEditable)
	}
}

// --- Status transition tests ---

// transitionFixture wires a store for an order of quantity 3 whose menu item
// recipe needs 2 pc of one ingredient per order.
func transitionFixture(t *testing.T, onHand string) (*mockOrderStore, *pgtype.Numeric, *database.CreateDisposalParams, uuid.UUID) {
	t.Helper()
	menuItemID := uuid.New()
	itemID := uuid.New()
	orderID := uuid.New()
	employeeID := uuid.New()

	store := defaultStore(menuItemID, database.ChannelInStore)
	store.getOrderForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return database.Order{
			ID: orderID, OrderNumber: "WNG-000007",
			Channel: database.ChannelInStore, Status: database.OrderStatusPending,
			CreatedBy: employeeID,
		}, nil
	}
	store.listOrderDetailsByOrderFn = func(ctx context.Context, id uuid.UUID) ([]database.ListOrderDetailsByOrderRow, error) {
		return []database.ListOrderDetailsByOrderRow{
			{OrderID: orderID, MenuItemID: menuItemID, Quantity: 3},
		}, nil
	}
	store.getRecipeForMenuItemFn = func(ctx context.Context, id uuid.UUID) ([]database.RecipeRow, error) {
		return []database.RecipeRow{
			{ItemID: itemID, ItemName: "Chicken Wings", Quantity: makeNumeric("2"), Unit: "pc", ItemUnit: "pc", OnHand: makeNumeric(onHand)},
		}, nil
	}
	store.getInventoryForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Inventory, error) {
		return database.Inventory{ID: uuid.New(), ItemID: id, Quantity: makeNumeric(onHand)}, nil
	}

	var setQty pgtype.Numeric
	store.setInventoryQuantityFn = func(ctx context.Context, arg database.SetInventoryQuantityParams) (database.Inventory, error) {
		setQty = arg.Quantity
		return database.Inventory{ItemID: arg.ItemID, Quantity: arg.Quantity}, nil
	}
	var disposal database.CreateDisposalParams
	store.createDisposalFn = func(ctx context.Context, arg database.CreateDisposalParams) (database.Disposal, error) {
		disposal = arg
		return database.Disposal{ID: uuid.New(), ItemID: arg.ItemID, Quantity: arg.Quantity, Reason: arg.Reason}, nil
	}
	store.listMenuItemIDsUsingItemsFn = func(ctx context.Context, itemIDs []uuid.UUID) ([]uuid.UUID, error) {
		return nil, nil
	}
	store.updateOrderStatusFn = func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
		return database.Order{ID: arg.ID, Status: arg.ToStatus, CreatedBy: employeeID}, nil
	}
	return store, &setQty, &disposal, orderID
}

func TestTransitionStatus_CompletedDeductsRecipe(t *testing.T) {
	store, setQty, disposal, orderID := transitionFixture(t, "10")

	svc := newTestService(store)
	result, err := svc.TransitionStatus(context.Background(), orderID, database.OrderStatusCompleted)
	if err != nil {
		t.Fatalf("TransitionStatus() error = %v", err)
	}

	// Recipe needs 2 per order, quantity 3: deduct 6, leaving 4.
	if !numericEquals(*setQty, "4.00") {
		t.Errorf("inventory after deduction: got %v, want 4.00", numericToDecimal(*setQty))
	}
	if !numericEquals(disposal.Quantity, "6.00") {
		t.Errorf("disposal quantity: got %v, want 6.00", numericToDecimal(disposal.Quantity))
	}
	if disposal.Reason != database.DisposalReasonRecipeConsumption {
		t.Errorf("disposal reason: got %s, want %s", disposal.Reason, database.DisposalReasonRecipeConsumption)
	}
	if result.Order.Status != database.OrderStatusCompleted {
		t.Errorf("status: got %s, want %s", result.Order.Status, database.OrderStatusCompleted)
	}
}

func TestTransitionStatus_DeficitClampsAtZero(t *testing.T) {
	store, setQty, disposal, orderID := transitionFixture(t, "4")

	svc := newTestService(store)
	if _, err := svc.TransitionStatus(context.Background(), orderID, database.OrderStatusCompleted); err != nil {
		t.Fatalf("TransitionStatus() error = %v", err)
	}

	// Only 4 on hand against a required 6: floor at zero, never negative.
	if !numericEquals(*setQty, "0.00") {
		t.Errorf("inventory after deduction: got %v, want 0.00", numericToDecimal(*setQty))
	}
	if !numericEquals(disposal.Quantity, "4.00") {
		t.Errorf("disposal quantity: got %v, want 4.00", numericToDecimal(disposal.Quantity))
	}
}

func TestTransitionStatus_ComplimentaryUsesComplimentaryReason(t *testing.T) {
	store, _, disposal, orderID := transitionFixture(t, "10")

	svc := newTestService(store)
	if _, err := svc.TransitionStatus(context.Background(), orderID, database.OrderStatusComplimentary); err != nil {
		t.Fatalf("TransitionStatus() error = %v", err)
	}

	if disposal.Reason != database.DisposalReasonComplimentary {
		t.Errorf("disposal reason: got %s, want %s", disposal.Reason, database.DisposalReasonComplimentary)
	}
}

func TestTransitionStatus_ConvertsRecipeUnits(t *testing.T) {
	store, setQty, disposal, orderID := transitionFixture(t, "5")

	// Recipe needs 500 g per order; inventory is tracked in kg.
	store.getRecipeForMenuItemFn = func(ctx context.Context, id uuid.UUID) ([]database.RecipeRow, error) {
		return []database.RecipeRow{
			{ItemID: uuid.New(), ItemName: "Breading Mix", Quantity: makeNumeric("500"), Unit: "g", ItemUnit: "kg", OnHand: makeNumeric("5")},
		}, nil
	}

	svc := newTestService(store)
	if _, err := svc.TransitionStatus(context.Background(), orderID, database.OrderStatusCompleted); err != nil {
		t.Fatalf("TransitionStatus() error = %v", err)
	}

	// 500 g = 0.5 kg, quantity 3: deduct 1.5 kg, leaving 3.5.
	if !numericEquals(*setQty, "3.50") {
		t.Errorf("inventory after deduction: got %v, want 3.50", numericToDecimal(*setQty))
	}
	if !numericEquals(disposal.Quantity, "1.50") {
		t.Errorf("disposal quantity: got %v, want 1.50", numericToDecimal(disposal.Quantity))
	}
	if disposal.Unit != "kg" {
		t.Errorf("disposal unit: got %s, want kg", disposal.Unit)
	}
}

func TestTransitionStatus_SubCentiDeductionKeepsPrecision(t *testing.T) {
	store, setQty, disposal, orderID := transitionFixture(t, "10")

	// Recipe needs 2 g per order against kg-tracked stock. Quantity 3 deducts
	// exactly 0.006 kg; quantities must not pick up money rounding.
	store.getRecipeForMenuItemFn = func(ctx context.Context, id uuid.UUID) ([]database.RecipeRow, error) {
		return []database.RecipeRow{
			{ItemID: uuid.New(), ItemName: "Cayenne Powder", Quantity: makeNumeric("2"), Unit: "g", ItemUnit: "kg", OnHand: makeNumeric("10")},
		}, nil
	}

	svc := newTestService(store)
	if _, err := svc.TransitionStatus(context.Background(), orderID, database.OrderStatusCompleted); err != nil {
		t.Fatalf("TransitionStatus() error = %v", err)
	}

	if !numericEquals(*setQty, "9.994") {
		t.Errorf("inventory after deduction: got %v, want 9.994", numericToDecimal(*setQty))
	}
	if !numericEquals(disposal.Quantity, "0.006") {
		t.Errorf("disposal quantity: got %v, want 0.006", numericToDecimal(disposal.Quantity))
	}
}

func TestTransitionStatus_ZeroStockWritesNoDisposal(t *testing.T) {
	store, _, _, orderID := transitionFixture(t, "0")

	var setCalls, disposalCalls int
	store.setInventoryQuantityFn = func(ctx context.Context, arg database.SetInventoryQuantityParams) (database.Inventory, error) {
		setCalls++
		return database.Inventory{ItemID: arg.ItemID, Quantity: arg.Quantity}, nil
	}
	store.createDisposalFn = func(ctx context.Context, arg database.CreateDisposalParams) (database.Disposal, error) {
		disposalCalls++
		return database.Disposal{}, nil
	}
	var recheckedItems []uuid.UUID
	store.listMenuItemIDsUsingItemsFn = func(ctx context.Context, itemIDs []uuid.UUID) ([]uuid.UUID, error) {
		recheckedItems = itemIDs
		return nil, nil
	}

	svc := newTestService(store)
	result, err := svc.TransitionStatus(context.Background(), orderID, database.OrderStatusCompleted)
	if err != nil {
		t.Fatalf("TransitionStatus() error = %v", err)
	}

	// Nothing left to consume: the row stays untouched and no zero-quantity
	// disposal is written, but availability still gets rechecked.
	if setCalls != 0 {
		t.Errorf("SetInventoryQuantity calls: got %d, want 0", setCalls)
	}
	if disposalCalls != 0 {
		t.Errorf("CreateDisposal calls: got %d, want 0", disposalCalls)
	}
	if len(recheckedItems) != 1 {
		t.Errorf("availability recheck items: got %d, want 1", len(recheckedItems))
	}
	if result.Order.Status != database.OrderStatusCompleted {
		t.Errorf("status: got %s, want %s", result.Order.Status, database.OrderStatusCompleted)
	}
}

func TestTransitionStatus_CancelledTouchesNoInventory(t *testing.T) {
	store, _, _, orderID := transitionFixture(t, "10")
	store.getRecipeForMenuItemFn = func(ctx context.Context, id uuid.UUID) ([]database.RecipeRow, error) {
		t.Fatal("recipe should not be consulted on cancel")
		return nil, nil
	}
	store.setInventoryQuantityFn = func(ctx context.Context, arg database.SetInventoryQuantityParams) (database.Inventory, error) {
		t.Fatal("inventory should not change on cancel")
		return database.Inventory{}, nil
	}

	svc := newTestService(store)
	result, err := svc.TransitionStatus(context.Background(), orderID, database.OrderStatusCancelled)
	if err != nil {
		t.Fatalf("TransitionStatus() error = %v", err)
	}
	if result.Order.Status != database.OrderStatusCancelled {
		t.Errorf("status: got %s, want %s", result.Order.Status, database.OrderStatusCancelled)
	}
}

func TestTransitionStatus_RejectsInvalidTransition(t *testing.T) {
	store, _, _, orderID := transitionFixture(t, "10")
	store.getOrderForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return database.Order{ID: orderID, Status: database.OrderStatusCompleted}, nil
	}

	svc := newTestService(store)
	_, err := svc.TransitionStatus(context.Background(), orderID, database.OrderStatusCancelled)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("TransitionStatus() error = %v, want %v", err, ErrInvalidTransition)
	}
}

func TestTransitionStatus_FlipsAvailability(t *testing.T) {
	store, _, _, orderID := transitionFixture(t, "6")
	menuItemID := uuid.New()
	itemID := uuid.New()

	store.getRecipeForMenuItemFn = func(ctx context.Context, id uuid.UUID) ([]database.RecipeRow, error) {
		// After the deduction the join reads zero on hand.
		onHand := "6"
		if id == menuItemID {
			onHand = "0"
		}
		return []database.RecipeRow{
			{ItemID: itemID, ItemName: "Chicken Wings", Quantity: makeNumeric("2"), Unit: "pc", ItemUnit: "pc", OnHand: makeNumeric(onHand)},
		}, nil
	}
	store.listMenuItemIDsUsingItemsFn = func(ctx context.Context, itemIDs []uuid.UUID) ([]uuid.UUID, error) {
		return []uuid.UUID{menuItemID}, nil
	}
	store.getMenuItemFn = func(ctx context.Context, id uuid.UUID) (database.MenuItem, error) {
		return database.MenuItem{ID: id, Name: "Buffalo Wings", Status: database.MenuItemStatusAvailable}, nil
	}
	var statusSet database.SetMenuItemStatusParams
	store.setMenuItemStatusFn = func(ctx context.Context, arg database.SetMenuItemStatusParams) (database.MenuItem, error) {
		statusSet = arg
		return database.MenuItem{ID: arg.ID, Name: "Buffalo Wings", Status: arg.Status}, nil
	}

	svc := newTestService(store)
	result, err := svc.TransitionStatus(context.Background(), orderID, database.OrderStatusCompleted)
	if err != nil {
		t.Fatalf("TransitionStatus() error = %v", err)
	}

	if statusSet.Status != database.MenuItemStatusUnavailable {
		t.Errorf("expected menu item flipped to UNAVAILABLE, got %s", statusSet.Status)
	}
	if len(result.AvailabilityChanges) != 1 {
		t.Fatalf("availability changes: got %d, want 1", len(result.AvailabilityChanges))
	}
	if result.AvailabilityChanges[0].Status != database.MenuItemStatusUnavailable {
		t.Errorf("change status: got %s, want UNAVAILABLE", result.AvailabilityChanges[0].Status)
	}
}

// --- Availability recheck tests ---

func TestRecheckAvailability(t *testing.T) {
	availableID := uuid.New()
	unavailableID := uuid.New()
	itemID := uuid.New()

	store := &mockOrderStore{
		listMenuItemsFn: func(ctx context.Context) ([]database.MenuItem, error) {
			return []database.MenuItem{
				{ID: availableID, Name: "Buffalo Wings", Status: database.MenuItemStatusAvailable},
				{ID: unavailableID, Name: "Soy Garlic Wings", Status: database.MenuItemStatusUnavailable},
			}, nil
		},
		getMenuItemFn: func(ctx context.Context, id uuid.UUID) (database.MenuItem, error) {
			if id == availableID {
				return database.MenuItem{ID: id, Name: "Buffalo Wings", Status: database.MenuItemStatusAvailable}, nil
			}
			return database.MenuItem{ID: id, Name: "Soy Garlic Wings", Status: database.MenuItemStatusUnavailable}, nil
		},
		getRecipeForMenuItemFn: func(ctx context.Context, id uuid.UUID) ([]database.RecipeRow, error) {
			// Both recipes are satisfiable: the unavailable one should flip
			// back, the available one should stay put.
			return []database.RecipeRow{
				{ItemID: itemID, ItemName: "Chicken Wings", Quantity: makeNumeric("2"), Unit: "pc", ItemUnit: "pc", OnHand: makeNumeric("50")},
			}, nil
		},
		setMenuItemStatusFn: func(ctx context.Context, arg database.SetMenuItemStatusParams) (database.MenuItem, error) {
			return database.MenuItem{ID: arg.ID, Name: "Soy Garlic Wings", Status: arg.Status}, nil
		},
	}

	svc := newTestService(store)
	changes, err := svc.RecheckAvailability(context.Background())
	if err != nil {
		t.Fatalf("RecheckAvailability() error = %v", err)
	}

	if len(changes) != 1 {
		t.Fatalf("changes: got %d, want 1", len(changes))
	}
	if changes[0].MenuItemID != unavailableID || changes[0].Status != database.MenuItemStatusAvailable {
		t.Errorf("change: got %+v, want %v flipped to AVAILABLE", changes[0], unavailableID)
	}
}
