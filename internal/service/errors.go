package service

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/Skotchmaster/edu_shop/internal/repo"
)

var (
	ErrValidation            = errors.New("validation")
	ErrDuplicateEmail        = errors.New("email already registered")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrInvalidCoupon         = errors.New("invalid coupon")
	ErrCouponThresholdNotMet = errors.New("order total below coupon minimum")
	ErrCouponAlreadyApplied  = errors.New("coupon already applied")
	ErrEmptyCart             = errors.New("cart is empty")
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrNotFound              = errors.New("not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrDuplicateRequest      = errors.New("duplicate request")
	ErrTransient             = errors.New("temporarily unavailable")
)

// notFound maps a repository miss onto ErrNotFound and keeps other errors.
func notFound(err error, what string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}

// unavailable marks failures of an external store as retryable.
func unavailable(err error, op string) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %s: %v", ErrTransient, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
