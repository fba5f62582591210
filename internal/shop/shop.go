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

// Package shop holds the read models for owned storefront resources and the
// repository contracts the authorization engine walks. Orders and accounts
// are keyed by UUID strings; line-level records (order items, reviews,
// warranty requests) carry numeric ids.
package shop

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrOrderItemNotFound       = errors.New("order item not found")
	ErrReviewNotFound          = errors.New("review not found")
	ErrWarrantyRequestNotFound = errors.New("warranty request not found")
)

// Order is an order header. UserID is the owning account and is never
// reassigned after creation.
type Order struct {
	ID        string
	UserID    string
	Status    string
	Total     int64 // minor currency units
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderItem is a line on an order.
type OrderItem struct {
	ID        int64
	OrderID   string
	ProductID string
	Quantity  int
	UnitPrice int64
	CreatedAt time.Time
}

// Review is a product review written by an account.
type Review struct {
	ID        int64
	UserID    string
	ProductID string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// WarrantyRequest is a service request against a purchased order item.
// Ownership is indirect: warranty request -> order item -> order -> user.
type WarrantyRequest struct {
	ID          int64
	OrderItemID int64
	Status      string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderRepository defines read access to orders
type OrderRepository interface {
	GetByID(ctx context.Context, id string) (*Order, error)
}

// OrderItemRepository defines read access to order items
type OrderItemRepository interface {
	GetByID(ctx context.Context, id int64) (*OrderItem, error)
}

// ReviewRepository defines access to reviews
type ReviewRepository interface {
	GetByID(ctx context.Context, id int64) (*Review, error)
	Delete(ctx context.Context, id int64) error
}

// WarrantyRequestRepository defines access to warranty requests
type WarrantyRequestRepository interface {
	GetByID(ctx context.Context, id int64) (*WarrantyRequest, error)
}
