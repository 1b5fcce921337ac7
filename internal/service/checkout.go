package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/edu_shop/internal/models"
	"github.com/Skotchmaster/edu_shop/internal/repo"
	"github.com/Skotchmaster/edu_shop/pkg/logging"
)

// PlaceOrderRequest is a one-shot checkout of a cart assembled by the client.
// ClientTotal and ClientDiscount are what the client computed; the stored
// order is always priced by the server.
type PlaceOrderRequest struct {
	UserID         uint
	Items          []models.LineItem
	CustomerInfo   models.CustomerInfo
	CouponCode     string
	ClientTotal    *decimal.Decimal
	ClientDiscount *decimal.Decimal
	IdempotencyKey string
}

// CartView is a cart with its computed prices.
type CartView struct {
	Items          []models.LineItem `json:"items"`
	CouponCode     *string           `json:"couponCode"`
	DiscountAmount decimal.Decimal   `json:"discountAmount"`
	Subtotal       decimal.Decimal   `json:"subtotal"`
	Total          decimal.Decimal   `json:"total"`
}

func ViewOf(c *Cart) *CartView {
	st := c.State()
	return &CartView{
		Items:          st.Items,
		CouponCode:     st.CouponCode,
		DiscountAmount: st.DiscountAmount,
		Subtotal:       c.Subtotal(),
		Total:          c.FinalTotal(),
	}
}

// CheckoutService runs cart sessions and turns carts into ledger orders.
type CheckoutService struct {
	Accounts *AccountService
	Orders   *OrderService
	Coupons  CouponValidator
	Carts    repo.CartStore
	Idem     repo.IdempotencyGuard

	locks userLocks
}

func NewCheckoutService(accounts *AccountService, orders *OrderService, coupons CouponValidator, carts repo.CartStore, idem repo.IdempotencyGuard) *CheckoutService {
	return &CheckoutService{
		Accounts: accounts,
		Orders:   orders,
		Coupons:  coupons,
		Carts:    carts,
		Idem:     idem,
	}
}

// Checkout turns cart into a pending order for account. The cart is cleared
// only when the order was stored.
func (s *CheckoutService) Checkout(ctx context.Context, cart *Cart, account *models.Account, info models.CustomerInfo) (*models.Order, error) {
	if cart == nil || cart.Len() == 0 {
		return nil, ErrEmptyCart
	}
	if account == nil {
		return nil, ErrUnauthenticated
	}
	info, err := normalizeCustomerInfo(info)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:         account.ID,
		Items:          cart.Items(),
		CustomerInfo:   info,
		Total:          cart.FinalTotal(),
		DiscountAmount: decimal.Zero,
	}
	if cart.DiscountAmount().IsPositive() {
		code := cart.CouponCode()
		order.DiscountAmount = cart.DiscountAmount()
		order.CouponCode = &code
	}

	stored, err := s.Orders.Create(ctx, order)
	if err != nil {
		return nil, err
	}

	cart.Clear()
	return stored, nil
}

// PlaceOrder prices req.Items through a fresh cart and checks it out.
func (s *CheckoutService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "checkout.place_order", "user_id", req.UserID)

	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}

	cart := NewCart()
	for i, it := range req.Items {
		if err := cart.AddItem(it); err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}
	}

	account, err := s.account(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	if code := strings.TrimSpace(req.CouponCode); code != "" {
		if _, err := cart.ApplyCoupon(ctx, s.Coupons, code); err != nil {
			return nil, err
		}
	}

	if req.ClientTotal != nil && !req.ClientTotal.Equal(cart.FinalTotal()) {
		l.Warn("price_mismatch", "client_total", req.ClientTotal.String(), "server_total", cart.FinalTotal().String())
	}
	if req.ClientDiscount != nil && !req.ClientDiscount.Equal(cart.DiscountAmount()) {
		l.Warn("price_mismatch", "client_discount", req.ClientDiscount.String(), "server_discount", cart.DiscountAmount().String())
	}

	release, err := s.claim(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	order, err := s.Checkout(ctx, cart, account, req.CustomerInfo)
	if err != nil {
		release()
		return nil, err
	}
	return order, nil
}

func (s *CheckoutService) GetCart(ctx context.Context, userID uint) (*Cart, error) {
	if _, err := s.account(ctx, userID); err != nil {
		return nil, err
	}
	return s.load(ctx, userID)
}

func (s *CheckoutService) AddItem(ctx context.Context, userID uint, item models.LineItem) (*Cart, error) {
	return s.mutate(ctx, userID, func(c *Cart) error { return c.AddItem(item) })
}

func (s *CheckoutService) RemoveItem(ctx context.Context, userID uint, index int) (*Cart, error) {
	return s.mutate(ctx, userID, func(c *Cart) error { return c.RemoveItem(index) })
}

func (s *CheckoutService) ApplyCoupon(ctx context.Context, userID uint, code string) (*Cart, error) {
	return s.mutate(ctx, userID, func(c *Cart) error {
		_, err := c.ApplyCoupon(ctx, s.Coupons, code)
		return err
	})
}

func (s *CheckoutService) ClearCart(ctx context.Context, userID uint) (*Cart, error) {
	return s.mutate(ctx, userID, func(c *Cart) error {
		c.Clear()
		return nil
	})
}

// CheckoutCart checks out the stored cart of userID. A failed checkout
// leaves the stored cart as it was.
func (s *CheckoutService) CheckoutCart(ctx context.Context, userID uint, info models.CustomerInfo, idempotencyKey string) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "checkout.cart", "user_id", userID)

	unlock := s.locks.lock(userID)
	defer unlock()

	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart.Len() == 0 {
		return nil, ErrEmptyCart
	}
	account, err := s.account(ctx, userID)
	if err != nil {
		return nil, err
	}

	release, err := s.claim(ctx, idempotencyKey)
	if err != nil {
		return nil, err
	}

	order, err := s.Checkout(ctx, cart, account, info)
	if err != nil {
		release()
		return nil, err
	}

	if err := s.Carts.DeleteCart(ctx, userID); err != nil {
		l.Error("clear_cart_error", "status", 500, "reason", "order stored but cart kept", "order_id", order.ID, "error", err)
	}
	return order, nil
}

func (s *CheckoutService) mutate(ctx context.Context, userID uint, fn func(*Cart) error) (*Cart, error) {
	if _, err := s.account(ctx, userID); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := fn(cart); err != nil {
		return nil, err
	}
	if err := s.Carts.SaveCart(ctx, userID, cart.State()); err != nil {
		return nil, unavailable(err, "save cart")
	}
	return cart, nil
}

func (s *CheckoutService) load(ctx context.Context, userID uint) (*Cart, error) {
	st, err := s.Carts.LoadCart(ctx, userID)
	if err != nil {
		return nil, unavailable(err, "load cart")
	}
	return CartFromState(st), nil
}

func (s *CheckoutService) account(ctx context.Context, userID uint) (*models.Account, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	acc, err := s.Accounts.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user %d", ErrUnauthenticated, userID)
		}
		return nil, err
	}
	return acc, nil
}

// claim reserves an idempotency key. The returned func gives the key back
// after a failed checkout.
func (s *CheckoutService) claim(ctx context.Context, key string) (func(), error) {
	key = strings.TrimSpace(key)
	if key == "" || s.Idem == nil {
		return func() {}, nil
	}

	ok, err := s.Idem.Claim(ctx, key)
	if err != nil {
		return nil, unavailable(err, "claim idempotency key")
	}
	if !ok {
		return nil, fmt.Errorf("%w: idempotency key %q already used", ErrDuplicateRequest, key)
	}

	return func() {
		if err := s.Idem.Release(context.WithoutCancel(ctx), key); err != nil {
			logging.FromContext(ctx).Warn("release_idempotency_error", "key", key, "error", err)
		}
	}, nil
}

func normalizeCustomerInfo(info models.CustomerInfo) (models.CustomerInfo, error) {
	info.Name = strings.TrimSpace(info.Name)
	info.Phone = strings.TrimSpace(info.Phone)
	info.Email = strings.TrimSpace(info.Email)
	info.Note = strings.TrimSpace(info.Note)

	switch {
	case info.Name == "":
		return info, fmt.Errorf("%w: customerInfo.name is required", ErrValidation)
	case info.Phone == "":
		return info, fmt.Errorf("%w: customerInfo.phone is required", ErrValidation)
	case info.Email == "":
		return info, fmt.Errorf("%w: customerInfo.email is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(info.Email); err != nil {
		return info, fmt.Errorf("%w: customerInfo.email is malformed", ErrValidation)
	}
	return info, nil
}

// userLocks serialises cart mutations per user within this process.
type userLocks struct {
	mu    sync.Mutex
	locks map[uint]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

func (u *userLocks) lock(id uint) func() {
	u.mu.Lock()
	if u.locks == nil {
		u.locks = make(map[uint]*userLock)
	}
	l, ok := u.locks[id]
	if !ok {
		l = &userLock{}
		u.locks[id] = l
	}
	l.refs++
	u.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()

		u.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(u.locks, id)
		}
		u.mu.Unlock()
	}
}
