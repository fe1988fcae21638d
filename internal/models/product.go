package models

import "time"

// Product is a retail item sold at the studio front desk. Price is cents.
type Product struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Price     int64     `db:"price" json:"price"`
	Stock     int       `db:"stock" json:"stock"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Sale records a product purchase. Total is cents.
type Sale struct {
	ID        string    `db:"id" json:"id"`
	ProductID string    `db:"product_id" json:"product_id"`
	StudentID *string   `db:"student_id" json:"student_id,omitempty"`
	Quantity  int       `db:"quantity" json:"quantity"`
	Total     int64     `db:"total" json:"total"`
	Method    string    `db:"method" json:"method"`
	SoldAt    time.Time `db:"sold_at" json:"sold_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SaleFilter provides filters for listing sales.
type SaleFilter struct {
	ProductID string
	StudentID string
	Month     int
	Year      int
	Page      int
	PageSize  int
}
