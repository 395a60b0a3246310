package cart

import (
	"time"

	"github.com/gofrs/uuid"
)

// ItemProduct is the slice of the product record a cart listing needs.
type ItemProduct struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	DiscountPrice *float64  `json:"discount_price,omitempty"`
	Images        []string  `json:"images"`
	Stock         int       `json:"stock"`
}

type Item struct {
	ProductID uuid.UUID   `json:"product_id"`
	Quantity  int         `json:"quantity"`
	Product   ItemProduct `json:"product"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
