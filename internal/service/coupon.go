package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/edu_shop/internal/models"
	"github.com/Skotchmaster/edu_shop/internal/repo"
)

// CouponResult is what a shopper learns about a valid code.
type CouponResult struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
	Message  string          `json:"message"`
}

type CouponValidator interface {
	Validate(ctx context.Context, code string) (*CouponResult, error)
}

type CouponService struct {
	Repo repo.Repository
}

func NewCouponService(r repo.Repository) *CouponService {
	return &CouponService{Repo: r}
}

func (s *CouponService) Validate(ctx context.Context, code string) (*CouponResult, error) {
	code = NormalizeCouponCode(code)
	if code == "" {
		return nil, fmt.Errorf("%w: couponCode is required", ErrValidation)
	}

	c, err := s.Repo.FindCoupon(ctx, code)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCoupon, code)
		}
		return nil, err
	}

	return &CouponResult{Code: c.Code, Discount: c.Discount, Message: c.Message}, nil
}

// Seed stores the coupon table, replacing definitions with the same code.
// Orders keep their own copy of the discount, so past orders are unaffected.
func (s *CouponService) Seed(ctx context.Context, coupons []models.Coupon) error {
	for i := range coupons {
		coupons[i].Code = NormalizeCouponCode(coupons[i].Code)
	}
	return s.Repo.UpsertCoupons(ctx, coupons)
}

// CouponEligible reports whether a cart subtotal may use the coupon.
//
// TODO: the coupon table has a single amount that serves as both the
// minimum subtotal and the discount granted, so a bigger discount always
// demands a bigger basket. Split Coupon.Discount into MinSubtotal and Amount
// once the table can carry both values.
func CouponEligible(subtotal, discount decimal.Decimal) bool {
	return subtotal.GreaterThanOrEqual(discount)
}

func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func DefaultCoupons() []models.Coupon {
	return []models.Coupon{
		{Code: "SAVE50", Discount: decimal.NewFromInt(50000), Message: "50.000đ off orders from 50.000đ"},
		{Code: "SAVE100", Discount: decimal.NewFromInt(100000), Message: "100.000đ off orders from 100.000đ"},
		{Code: "WELCOME20", Discount: decimal.NewFromInt(20000), Message: "20.000đ welcome discount"},
	}
}

// ParseCoupons reads "CODE=amount:message;CODE=amount:message".
// The message part is optional.
func ParseCoupons(raw string) ([]models.Coupon, error) {
	var out []models.Coupon
	seen := make(map[string]struct{})

	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		code, rest, ok := strings.Cut(entry, "=")
		code = NormalizeCouponCode(code)
		if !ok || code == "" {
			return nil, fmt.Errorf("coupon %q: expected CODE=amount[:message]", entry)
		}

		amount, message, _ := strings.Cut(rest, ":")
		discount, err := decimal.NewFromString(strings.TrimSpace(amount))
		if err != nil {
			return nil, fmt.Errorf("coupon %s: amount: %w", code, err)
		}
		if discount.IsNegative() {
			return nil, fmt.Errorf("coupon %s: amount must be >= 0", code)
		}
		if _, dup := seen[code]; dup {
			return nil, fmt.Errorf("coupon %s: defined twice", code)
		}
		seen[code] = struct{}{}

		out = append(out, models.Coupon{Code: code, Discount: discount, Message: strings.TrimSpace(message)})
	}
	return out, nil
}
