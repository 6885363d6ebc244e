package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Enum values are CHECK-constrained in the schema; the Go side keeps them as
// typed strings so a raw string cannot be passed where an enum is expected.

type EmployeeStatus string

const (
	EmployeeStatusActive   EmployeeStatus = "ACTIVE"
	EmployeeStatusInactive EmployeeStatus = "INACTIVE"
)

type Channel string

const (
	ChannelInStore   Channel = "IN_STORE"
	ChannelGrab      Channel = "GRAB"
	ChannelFoodPanda Channel = "FOODPANDA"
)

type MenuItemStatus string

const (
	MenuItemStatusAvailable   MenuItemStatus = "AVAILABLE"
	MenuItemStatusUnavailable MenuItemStatus = "UNAVAILABLE"
)

type OrderStatus string

const (
	OrderStatusPending       OrderStatus = "PENDING"
	OrderStatusCompleted     OrderStatus = "COMPLETED"
	OrderStatusComplimentary OrderStatus = "COMPLIMENTARY"
	OrderStatusCancelled     OrderStatus = "CANCELLED"
)

type PaymentMethod string

const (
	PaymentMethodCash  PaymentMethod = "CASH"
	PaymentMethodGCash PaymentMethod = "GCASH"
)

type DisposalReason string

const (
	DisposalReasonWaste             DisposalReason = "WASTE"
	DisposalReasonSpoilage          DisposalReason = "SPOILAGE"
	DisposalReasonRecipeConsumption DisposalReason = "RECIPE_CONSUMPTION"
	DisposalReasonComplimentary     DisposalReason = "COMPLIMENTARY"
)

// --- Row models ---

type Employee struct {
	ID            uuid.UUID
	FirstName     string
	LastName      string
	MiddleInitial pgtype.Text
	Username      string
	Email         string
	Contact       string
	BaseSalary    pgtype.Numeric
	PasscodeHash  string
	Status        EmployeeStatus
	CreatedAt     time.Time
}

type Role struct {
	ID   uuid.UUID
	Name string
}

type Attendance struct {
	ID         uuid.UUID
	EmployeeID uuid.UUID
	AttDate    time.Time
	TimeIn     pgtype.Timestamptz
	TimeOut    pgtype.Timestamptz
}

type Category struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

type Supplier struct {
	ID        uuid.UUID
	Name      string
	Contact   pgtype.Text
	Address   pgtype.Text
	CreatedAt time.Time
}

type Item struct {
	ID           uuid.UUID
	Name         string
	CategoryID   uuid.UUID
	Unit         string
	ReorderLevel pgtype.Numeric
	IsArchived   bool
	CreatedAt    time.Time
}

type Inventory struct {
	ID        uuid.UUID
	ItemID    uuid.UUID
	Quantity  pgtype.Numeric
	UpdatedAt time.Time
}

type Receipt struct {
	ID          uuid.UUID
	SupplierID  uuid.UUID
	ReceiptDate time.Time
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
}

type StockIn struct {
	ID         uuid.UUID
	ReceiptID  uuid.UUID
	ItemID     uuid.UUID
	QuantityIn pgtype.Numeric
	UnitPrice  pgtype.Numeric
}

type Disposal struct {
	ID         uuid.UUID
	ItemID     uuid.UUID
	Quantity   pgtype.Numeric
	Unit       string
	Reason     DisposalReason
	DisposedBy uuid.UUID
	Notes      pgtype.Text
	CreatedAt  time.Time
}

type MenuCategory struct {
	ID   uuid.UUID
	Name string
}

type MenuItem struct {
	ID             uuid.UUID
	Name           string
	Price          pgtype.Numeric
	Channel        Channel
	MenuCategoryID uuid.UUID
	Status         MenuItemStatus
	ImageURL       pgtype.Text
	CreatedAt      time.Time
}

type MenuIngredient struct {
	ID         uuid.UUID
	MenuItemID uuid.UUID
	ItemID     uuid.UUID
	Quantity   pgtype.Numeric
	Unit       string
}

type Discount struct {
	ID         uuid.UUID
	Name       string
	Percentage pgtype.Numeric
}

type InstoreCategory struct {
	ID         uuid.UUID
	Name       string
	BaseAmount pgtype.Numeric
}

type Order struct {
	ID            uuid.UUID
	OrderNumber   string
	Channel       Channel
	PaymentMethod PaymentMethod
	Status        OrderStatus
	AmountPaid    pgtype.Numeric
	TotalAmount   pgtype.Numeric
	ChangeAmount  pgtype.Numeric
	CreatedBy     uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type OrderDetail struct {
	ID                  uuid.UUID
	OrderID             uuid.UUID
	MenuItemID          uuid.UUID
	Quantity            int32
	UnitPrice           pgtype.Numeric
	ChannelDeductionPct pgtype.Numeric
	DiscountID          pgtype.UUID
	DiscountPct         pgtype.Numeric
	InstoreCategoryID   pgtype.UUID
	GroupTag            pgtype.Int4
	GroupBaseAmount     pgtype.Numeric
	Subtotal            pgtype.Numeric
}

type PaymentReference struct {
	ID              uuid.UUID
	OrderID         uuid.UUID
	ReferenceNumber string
	Amount          pgtype.Numeric
	CreatedAt       time.Time
}

type ExpenseType struct {
	ID   uuid.UUID
	Name string
}

type Expense struct {
	ID            uuid.UUID
	ExpenseTypeID uuid.UUID
	Description   pgtype.Text
	Cost          pgtype.Numeric
	ExpenseDate   time.Time
	ReceiptID     pgtype.UUID
	CreatedAt     time.Time
}
