package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/edu_shop/internal/models"
)

// Cart is the pricing engine for one checkout session. Any change to the
// items drops an applied coupon.
type Cart struct {
	items      []models.LineItem
	couponCode string
	discount   decimal.Decimal
}

func NewCart() *Cart {
	return &Cart{}
}

func CartFromState(st *models.CartState) *Cart {
	c := &Cart{}
	if st == nil {
		return c
	}
	c.items = append(c.items, st.Items...)
	if st.CouponCode != nil && st.DiscountAmount.IsPositive() {
		c.couponCode = *st.CouponCode
		c.discount = st.DiscountAmount
	}
	return c
}

func (c *Cart) State() *models.CartState {
	st := &models.CartState{
		Items:          c.Items(),
		DiscountAmount: c.discount,
	}
	if code := c.CouponCode(); code != "" {
		st.CouponCode = &code
	}
	return st
}

func (c *Cart) Items() []models.LineItem {
	return append([]models.LineItem{}, c.items...)
}

func (c *Cart) Len() int { return len(c.items) }

func (c *Cart) AddItem(item models.LineItem) error {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return fmt.Errorf("%w: item name is required", ErrValidation)
	}
	if item.Price.IsNegative() {
		return fmt.Errorf("%w: item price must be >= 0", ErrValidation)
	}
	if item.Quantity < 0 {
		return fmt.Errorf("%w: item quantity must be >= 0", ErrValidation)
	}

	c.items = append(c.items, item)
	c.resetDiscount()
	return nil
}

func (c *Cart) RemoveItem(index int) error {
	if index < 0 || index >= len(c.items) {
		return fmt.Errorf("%w: cart item %d", ErrNotFound, index)
	}

	c.items = append(c.items[:index:index], c.items[index+1:]...)
	c.resetDiscount()
	return nil
}

// Subtotal sums line prices. A line price already covers its quantity.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range c.items {
		sum = sum.Add(it.Price)
	}
	return sum
}

func (c *Cart) DiscountAmount() decimal.Decimal { return c.discount }

// CouponCode is empty unless a discount is active.
func (c *Cart) CouponCode() string {
	if !c.discount.IsPositive() {
		return ""
	}
	return c.couponCode
}

func (c *Cart) FinalTotal() decimal.Decimal {
	return floorAtZero(c.Subtotal().Sub(c.discount))
}

// ApplyCoupon validates code and activates its discount when the subtotal
// reaches the coupon's threshold. A cart with an active discount rejects
// further codes until its items change.
func (c *Cart) ApplyCoupon(ctx context.Context, v CouponValidator, code string) (*CouponResult, error) {
	if c.discount.IsPositive() {
		return nil, fmt.Errorf("%w: %s is active", ErrCouponAlreadyApplied, c.couponCode)
	}

	res, err := v.Validate(ctx, code)
	if err != nil {
		return nil, err
	}

	subtotal := c.Subtotal()
	if !CouponEligible(subtotal, res.Discount) {
		return nil, fmt.Errorf("%w: %s needs %s, cart has %s",
			ErrCouponThresholdNotMet, res.Code, res.Discount.String(), subtotal.String())
	}

	c.couponCode = res.Code
	c.discount = res.Discount
	return res, nil
}

func (c *Cart) Clear() {
	c.items = nil
	c.resetDiscount()
}

func (c *Cart) resetDiscount() {
	c.couponCode = ""
	c.discount = decimal.Zero
}

func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
