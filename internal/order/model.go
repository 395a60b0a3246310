package order

import (
	"time"

	"github.com/gofrs/uuid"
)

type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
	StatusCancelled  Status = "Cancelled"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// allowedTransitions is the order lifecycle: forward one step at a time,
// Cancelled reachable from any non-terminal state, Delivered and Cancelled
// terminal.
var allowedTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusProcessing: true,
		StatusCancelled:  true,
	},
	StatusProcessing: {
		StatusShipped:   true,
		StatusCancelled: true,
	},
	StatusShipped: {
		StatusDelivered: true,
		StatusCancelled: true,
	},
	StatusDelivered: {},
	StatusCancelled: {},
}

func (s Status) CanTransitionTo(next Status) bool {
	return allowedTransitions[s][next]
}

type PaymentMethod string

const (
	MethodKhalti         PaymentMethod = "Khalti"
	MethodCashOnDelivery PaymentMethod = "Cash on Delivery"
)

func (m PaymentMethod) Valid() bool {
	return m == MethodKhalti || m == MethodCashOnDelivery
}

type ShippingAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
	Phone   string `json:"phone"`
}

type PaymentResult struct {
	TransactionID string    `json:"transaction_id"`
	Status        string    `json:"status"`
	Token         string    `json:"token"`
	UpdateTime    time.Time `json:"update_time"`
}

// Item is an immutable snapshot of one purchased product, captured from the
// product record at checkout time so later catalog edits do not alter
// historical orders.
type Item struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Image     string    `json:"image"`
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
	CreatedAt time.Time `json:"created_at"`
}

type Order struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	Items           []Item          `json:"order_items"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	PaymentResult   *PaymentResult  `json:"payment_result,omitempty"`
	ItemsPrice      float64         `json:"items_price"`
	TaxPrice        float64         `json:"tax_price"`
	ShippingPrice   float64         `json:"shipping_price"`
	TotalPrice      float64         `json:"total_price"`
	IsPaid          bool            `json:"is_paid"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	IsDelivered     bool            `json:"is_delivered"`
	DeliveredAt     *time.Time      `json:"delivered_at,omitempty"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Line is one requested (product, quantity) pair of an order submission.
type Line struct {
	ProductID uuid.UUID `json:"product"`
	Quantity  int       `json:"quantity"`
}

// CreateInput is an order submission as received from a client. The price
// breakdown is validated against server-side pricing, never trusted.
type CreateInput struct {
	Lines           []Line
	ShippingAddress ShippingAddress
	PaymentMethod   PaymentMethod
	ItemsPrice      float64
	TaxPrice        float64
	ShippingPrice   float64
	TotalPrice      float64
}

// ListParams filters and pages the admin order listing. Page is 1-based.
type ListParams struct {
	Page   int
	Limit  int
	Status Status
}
