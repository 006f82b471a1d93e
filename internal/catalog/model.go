package catalog

import "time"

// Product is the catalog record shared with the rest of the application.
// Price is in minor currency units, Weight in grams.
type Product struct {
	ID        string `json:"productId"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Price     int64  `json:"price"`
	Weight    int    `json:"weight"`
	Stock     int    `json:"stock"`
	IsActive  bool   `json:"isActive"`
	SoldCount int    `json:"soldCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
