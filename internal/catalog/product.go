// Package catalog stores products and is the price authority for orders.
package catalog

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrDuplicateProduct = errors.New("a product with this name already exists")
	ErrInvalidProduct   = errors.New("invalid product")
)

// Product prices are integer minor units.
type Product struct {
	ID          int64     `json:"product_id"`
	Name        string    `json:"product_name"`
	Category    string    `json:"product_category"`
	Description string    `json:"product_description"`
	WeightKg    int       `json:"product_weight"`
	Price       int64     `json:"product_price"`
	Stock       int       `json:"stock_quantity"`
	Images      []string  `json:"images"`
	Ratings     float32   `json:"ratings"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductPatch changes only the fields that are set.
type ProductPatch struct {
	Name        *string   `json:"product_name"`
	Category    *string   `json:"product_category"`
	Description *string   `json:"product_description"`
	WeightKg    *int      `json:"product_weight"`
	Price       *int64    `json:"product_price"`
	Stock       *int      `json:"stock_quantity"`
	Images      *[]string `json:"images"`
	Ratings     *float32  `json:"ratings"`
}

// Apply returns p with the patch's set fields copied over.
func (pp ProductPatch) Apply(p Product) Product {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Category != nil {
		p.Category = *pp.Category
	}
	if pp.Description != nil {
		p.Description = *pp.Description
	}
	if pp.WeightKg != nil {
		p.WeightKg = *pp.WeightKg
	}
	if pp.Price != nil {
		p.Price = *pp.Price
	}
	if pp.Stock != nil {
		p.Stock = *pp.Stock
	}
	if pp.Images != nil {
		p.Images = *pp.Images
	}
	if pp.Ratings != nil {
		p.Ratings = *pp.Ratings
	}
	return p
}

// Validate applies the same rules bulk ingestion uses.
func Validate(p *Product) error {
	if reason := validate(p); reason != "" {
		return fmt.Errorf("%w: %s", ErrInvalidProduct, reason)
	}
	return nil
}
