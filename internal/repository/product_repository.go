// Package repository contains data access logic separated from HTTP handlers.
// This file holds the product catalog queries. Ownership is not enforced
// here: handlers load the product, run the access decision, and only then
// call Update or Delete, so that admins can act on any product.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/ecommerce-backend/internal/model"
)

// ErrProductNotFound is returned when a product cannot be found in the DB.
var ErrProductNotFound = errors.New("product not found")

const productColumns = "id, owner_id, name, description, price_cents, stock, created_at, updated_at"

// ProductRepo encapsulates all database queries related to products.
type ProductRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) *ProductRepo {
	return &ProductRepo{db: db}
}

func scanProduct(row rowScanner) (*model.Product, error) {
	var p model.Product
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Create inserts a new product.  On success the product's ID and
// timestamps are populated from the stored row.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO products (owner_id, name, description, price_cents, stock) VALUES (?, ?, ?, ?, ?)",
		p.OwnerID, p.Name, p.Description, p.PriceCents, p.Stock)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*p = *stored
	return nil
}

// GetByID fetches a product by its ID regardless of owner.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	return scanProduct(r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id))
}

// List returns one page of products ordered by id plus the total count.
func (r *ProductRepo) List(ctx context.Context, offset, limit int) ([]*model.Product, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products ORDER BY id LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []*model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Update writes the mutable fields of a product.  It returns
// ErrProductNotFound when no row matches.
func (r *ProductRepo) Update(ctx context.Context, p *model.Product) error {
	const q = `UPDATE products
	           SET name = ?, description = ?, price_cents = ?, stock = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, p.Name, p.Description, p.PriceCents, p.Stock, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}
	return nil
}

// Delete removes a product unconditionally.
func (r *ProductRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}
	return nil
}
