package model

import "time"

// Product represents a catalog item owned by the account that listed it.
// This struct corresponds to a row in the `products` table.  Only the
// owner or an ADMIN may change or remove it.
type Product struct {
	ID          uint64    `json:"id"`          // products.id
	OwnerID     string    `json:"owner_id"`    // products.owner_id (accounts.id)
	Name        string    `json:"name"`        // products.name
	Description string    `json:"description"` // products.description
	PriceCents  int64     `json:"price_cents"` // products.price_cents
	Stock       int       `json:"stock"`       // products.stock
	CreatedAt   time.Time `json:"created_at"`  // products.created_at
	UpdatedAt   time.Time `json:"updated_at"`  // products.updated_at
}
