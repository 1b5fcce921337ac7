package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Money travels as JSON numbers, the storefront client does arithmetic on them.
	decimal.MarshalJSONWithoutQuotes = true
}

type Account struct {
	ID           uint      `gorm:"primaryKey"          json:"id"`
	Name         string    `gorm:"not null"            json:"name"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null"            json:"-"`
	CreatedAt    time.Time `gorm:"not null"            json:"createdAt"`
}

// AccountSummary is an account enriched with aggregates over its orders.
type AccountSummary struct {
	Account
	OrderCount int             `json:"orderCount"`
	TotalSpent decimal.Decimal `json:"totalSpent"`
}

type LineItem struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Code     string          `json:"code,omitempty"`
	Type     string          `json:"type,omitempty"`
	Quantity int             `json:"quantity,omitempty"`
}

type CustomerInfo struct {
	Name  string `gorm:"size:255" json:"name"`
	Phone string `gorm:"size:64"  json:"phone"`
	Email string `gorm:"size:255" json:"email"`
	Note  string `gorm:"size:1024" json:"note,omitempty"`
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

func ParseOrderStatus(v string) (OrderStatus, bool) {
	s := OrderStatus(strings.ToLower(strings.TrimSpace(v)))
	return s, s.Valid()
}

type Order struct {
	ID             uint            `gorm:"primaryKey"                          json:"id"`
	UserID         uint            `gorm:"index;not null"                      json:"userId"`
	Items          []LineItem      `gorm:"serializer:json;type:text;not null"  json:"items"`
	CustomerInfo   CustomerInfo    `gorm:"embedded;embeddedPrefix:customer_"   json:"customerInfo"`
	Total          decimal.Decimal `gorm:"type:numeric(14,2);not null"         json:"total"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(14,2);not null"         json:"discountAmount"`
	CouponCode     *string         `gorm:"size:64"                             json:"couponCode"`
	Status         OrderStatus     `gorm:"size:16;index;not null"              json:"status"`
	CreatedAt      time.Time       `gorm:"index;not null"                      json:"createdAt"`
}

// Clone returns a copy that shares no mutable memory with o.
func (o Order) Clone() Order {
	c := o
	c.Items = append([]LineItem(nil), o.Items...)
	if o.CouponCode != nil {
		code := *o.CouponCode
		c.CouponCode = &code
	}
	return c
}

// Coupon is read-only reference data. Discount is both the amount taken off
// and the minimum subtotal required to use the coupon.
type Coupon struct {
	Code     string          `gorm:"primaryKey;size:64"          json:"code"`
	Discount decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"discount"`
	Message  string          `gorm:"size:255"                    json:"message"`
}

// CartState is the persisted form of a cart session.
type CartState struct {
	Items          []LineItem      `json:"items"`
	CouponCode     *string         `json:"couponCode"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
}

// Snapshot is a consistent view of accounts and orders read at one point in time.
type Snapshot struct {
	Accounts []Account
	Orders   []Order
}

func AllModels() []any {
	return []any{&Account{}, &Order{}, &Coupon{}}
}
