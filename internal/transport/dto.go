package transport

import (
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/edu_shop/internal/models"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ValidateCouponRequest struct {
	CouponCode string `json:"couponCode"`
}

// CreateOrderRequest is the one-shot checkout body. Total and DiscountAmount
// are what the client computed and are only compared, never stored.
type CreateOrderRequest struct {
	UserID         uint                `json:"userId"`
	Items          []models.LineItem   `json:"items"`
	CustomerInfo   models.CustomerInfo `json:"customerInfo"`
	Total          *decimal.Decimal    `json:"total"`
	DiscountAmount *decimal.Decimal    `json:"discountAmount"`
	CouponCode     *string             `json:"couponCode"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type AddCartItemRequest struct {
	Item models.LineItem `json:"item"`
}

type ApplyCouponRequest struct {
	CouponCode string `json:"couponCode"`
}

type CheckoutRequest struct {
	CustomerInfo models.CustomerInfo `json:"customerInfo"`
}

type PageInfo struct {
	Page  int   `json:"page"`
	Size  int   `json:"size"`
	Total int64 `json:"total"`
}
