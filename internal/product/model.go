package product

import (
	"time"

	"github.com/gofrs/uuid"
)

type Category string

const (
	CategoryElectronics Category = "Electronics"
	CategoryClothing    Category = "Clothing"
	CategoryBooks       Category = "Books"
	CategoryHomeGarden  Category = "Home & Garden"
	CategorySports      Category = "Sports"
	CategoryToys        Category = "Toys"
	CategoryBeauty      Category = "Beauty"
	CategoryFood        Category = "Food"
	CategoryOther       Category = "Other"
)

var validCategories = map[Category]bool{
	CategoryElectronics: true,
	CategoryClothing:    true,
	CategoryBooks:       true,
	CategoryHomeGarden:  true,
	CategorySports:      true,
	CategoryToys:        true,
	CategoryBeauty:      true,
	CategoryFood:        true,
	CategoryOther:       true,
}

func (c Category) Valid() bool {
	return validCategories[c]
}

type Review struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	UserID    uuid.UUID `json:"user_id"`
	UserName  string    `json:"user_name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type Product struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         float64   `json:"price"`
	DiscountPrice *float64  `json:"discount_price,omitempty"`
	Category      Category  `json:"category"`
	Images        []string  `json:"images"`
	Stock         int       `json:"stock"`
	Brand         string    `json:"brand,omitempty"`
	Ratings       float64   `json:"ratings"`
	NumReviews    int       `json:"num_reviews"`
	Featured      bool      `json:"featured"`
	// SellerID is nil when the selling account has been removed.
	SellerID  *uuid.UUID `json:"seller_id,omitempty"`
	Reviews   []Review   `json:"reviews,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ListParams narrows and pages a catalog listing. Page is 1-based.
type ListParams struct {
	Keyword  string
	Category Category
	MinPrice *float64
	MaxPrice *float64
	Sort     string
	Page     int
	Limit    int
}
