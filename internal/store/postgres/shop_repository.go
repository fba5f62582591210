// Copyright 2026 The SecureShop Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/secureshop/secureshop/internal/shop"
)

// OrderRepository implements shop.OrderRepository
type OrderRepository struct {
	db *DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// GetByID retrieves an order by ID
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*shop.Order, error) {
	var order shop.Order
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, user_id, status, total, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id).Scan(
		&order.ID, &order.UserID, &order.Status, &order.Total,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shop.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// OrderItemRepository implements shop.OrderItemRepository
type OrderItemRepository struct {
	db *DB
}

// NewOrderItemRepository creates a new order item repository
func NewOrderItemRepository(db *DB) *OrderItemRepository {
	return &OrderItemRepository{db: db}
}

// GetByID retrieves an order item by ID
func (r *OrderItemRepository) GetByID(ctx context.Context, id int64) (*shop.OrderItem, error) {
	var item shop.OrderItem
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price, created_at
		FROM order_items
		WHERE id = $1
	`, id).Scan(
		&item.ID, &item.OrderID, &item.ProductID, &item.Quantity,
		&item.UnitPrice, &item.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shop.ErrOrderItemNotFound
		}
		return nil, fmt.Errorf("failed to get order item: %w", err)
	}
	return &item, nil
}

// ReviewRepository implements shop.ReviewRepository
type ReviewRepository struct {
	db *DB
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db *DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// GetByID retrieves a review by ID
func (r *ReviewRepository) GetByID(ctx context.Context, id int64) (*shop.Review, error) {
	var review shop.Review
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, user_id, product_id, rating, comment, created_at
		FROM reviews
		WHERE id = $1
	`, id).Scan(
		&review.ID, &review.UserID, &review.ProductID, &review.Rating,
		&review.Comment, &review.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shop.ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return &review, nil
}

// Delete deletes a review
func (r *ReviewRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shop.ErrReviewNotFound
	}
	return nil
}

// WarrantyRequestRepository implements shop.WarrantyRequestRepository
type WarrantyRequestRepository struct {
	db *DB
}

// NewWarrantyRequestRepository creates a new warranty request repository
func NewWarrantyRequestRepository(db *DB) *WarrantyRequestRepository {
	return &WarrantyRequestRepository{db: db}
}

// GetByID retrieves a warranty request by ID
func (r *WarrantyRequestRepository) GetByID(ctx context.Context, id int64) (*shop.WarrantyRequest, error) {
	var req shop.WarrantyRequest
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, order_item_id, status, description, created_at, updated_at
		FROM warranty_requests
		WHERE id = $1
	`, id).Scan(
		&req.ID, &req.OrderItemID, &req.Status, &req.Description,
		&req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shop.ErrWarrantyRequestNotFound
		}
		return nil, fmt.Errorf("failed to get warranty request: %w", err)
	}
	return &req, nil
}
