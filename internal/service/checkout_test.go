package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/edu_shop/internal/models"
	"github.com/Skotchmaster/edu_shop/internal/repo"
	"github.com/Skotchmaster/edu_shop/pkg/db"
)

func placeReq(userID uint, coupon string, items ...models.LineItem) PlaceOrderRequest {
	return PlaceOrderRequest{
		UserID:       userID,
		Items:        items,
		CustomerInfo: customer(),
		CouponCode:   coupon,
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	acc := env.register(t, "lan@shop.test")

	_, err := env.Checkout.Checkout(context.Background(), NewCart(), acc, customer())
	require.ErrorIs(t, err, ErrEmptyCart)

	_, err = env.Checkout.PlaceOrder(context.Background(), placeReq(acc.ID, ""))
	require.ErrorIs(t, err, ErrEmptyCart)

	// an empty cart wins over a missing session
	_, err = env.Checkout.PlaceOrder(context.Background(), placeReq(0, ""))
	require.ErrorIs(t, err, ErrEmptyCart)

	assert.EqualValues(t, 0, env.ledgerSize(t))
}

func TestCheckout_Unauthenticated(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	c := NewCart()
	require.NoError(t, c.AddItem(item("IELTS course", 150000)))
	_, err := env.Checkout.Checkout(ctx, c, nil, customer())
	require.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, 1, c.Len())

	_, err = env.Checkout.PlaceOrder(ctx, placeReq(0, "", item("IELTS course", 150000)))
	require.ErrorIs(t, err, ErrUnauthenticated)
	_, err = env.Checkout.PlaceOrder(ctx, placeReq(42, "", item("IELTS course", 150000)))
	require.ErrorIs(t, err, ErrUnauthenticated)

	assert.EqualValues(t, 0, env.ledgerSize(t))
}

func TestCheckout_PlaceOrderWithCoupon(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.register(t, "lan@shop.test")

	wrongTotal := dec(1)
	req := placeReq(acc.ID, " save50 ", item("IELTS course", 150000))
	req.ClientTotal = &wrongTotal

	order, err := env.Checkout.PlaceOrder(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, acc.ID, order.UserID)
	assert.True(t, dec(100000).Equal(order.DiscountAmount))
	assert.True(t, dec(50000).Equal(order.Total), "server pricing wins over the client total")
	require.NotNil(t, order.CouponCode)
	assert.Equal(t, "SAVE50", *order.CouponCode)
	assert.Equal(t, "evening call", order.CustomerInfo.Note)

	stored, err := env.Orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, order.Total.Equal(stored.Total))

	assert.Contains(t, env.Sink.types(), EventOrderCreated)
}

func TestCheckout_ZeroDiscountCouponNotRecorded(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	acc := env.register(t, "lan@shop.test")

	order, err := env.Checkout.PlaceOrder(context.Background(), placeReq(acc.ID, "FREE0", item("IELTS course", 150000)))
	require.NoError(t, err)
	assert.Nil(t, order.CouponCode)
	assert.True(t, order.DiscountAmount.IsZero())
	assert.True(t, dec(150000).Equal(order.Total))
}

func TestCheckout_CouponErrorsLeaveLedgerUntouched(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		coupon  string
		wantErr error
	}{
		{name: "unknown code", coupon: "NOPE", wantErr: ErrInvalidCoupon},
		{name: "threshold not met", coupon: "BIG200", wantErr: ErrCouponThresholdNotMet},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			acc := env.register(t, "lan@shop.test")

			_, err := env.Checkout.PlaceOrder(context.Background(), placeReq(acc.ID, tt.coupon, item("IELTS course", 150000)))
			require.ErrorIs(t, err, tt.wantErr)
			assert.EqualValues(t, 0, env.ledgerSize(t))
		})
	}
}

func TestCheckout_BadCustomerInfoKeepsCart(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.register(t, "lan@shop.test")

	_, err := env.Checkout.AddItem(ctx, acc.ID, item("IELTS course", 150000))
	require.NoError(t, err)

	_, err = env.Checkout.CheckoutCart(ctx, acc.ID, models.CustomerInfo{Name: "Lan"}, "")
	require.ErrorIs(t, err, ErrValidation)

	cart, err := env.Checkout.GetCart(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.Len())
	assert.EqualValues(t, 0, env.ledgerSize(t))
}

func TestCheckout_CartSession(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.register(t, "lan@shop.test")

	_, err := env.Checkout.GetCart(ctx, 0)
	require.ErrorIs(t, err, ErrUnauthenticated)

	_, err = env.Checkout.AddItem(ctx, acc.ID, item("Speaking 1:1", 100000))
	require.NoError(t, err)
	cart, err := env.Checkout.AddItem(ctx, acc.ID, item("Writing review", 50000))
	require.NoError(t, err)
	assert.True(t, dec(150000).Equal(cart.Subtotal()))

	cart, err = env.Checkout.ApplyCoupon(ctx, acc.ID, "SAVE50")
	require.NoError(t, err)
	assert.True(t, dec(50000).Equal(cart.FinalTotal()))

	_, err = env.Checkout.ApplyCoupon(ctx, acc.ID, "SAVE50")
	require.ErrorIs(t, err, ErrCouponAlreadyApplied)

	cart, err = env.Checkout.RemoveItem(ctx, acc.ID, 1)
	require.NoError(t, err)
	assert.True(t, cart.DiscountAmount().IsZero(), "removing an item drops the coupon")
	assert.Empty(t, cart.CouponCode())

	_, err = env.Checkout.RemoveItem(ctx, acc.ID, 5)
	require.ErrorIs(t, err, ErrNotFound)

	cart, err = env.Checkout.ApplyCoupon(ctx, acc.ID, "SAVE50")
	require.NoError(t, err)
	assert.True(t, cart.FinalTotal().IsZero())

	order, err := env.Checkout.CheckoutCart(ctx, acc.ID, customer(), "")
	require.NoError(t, err)
	assert.True(t, order.Total.IsZero())
	require.NotNil(t, order.CouponCode)

	cart, err = env.Checkout.GetCart(ctx, acc.ID)
	require.NoError(t, err)
	assert.Zero(t, cart.Len())

	_, err = env.Checkout.CheckoutCart(ctx, acc.ID, customer(), "")
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.EqualValues(t, 1, env.ledgerSize(t))
}

func TestCheckout_ClearCart(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.register(t, "lan@shop.test")

	_, err := env.Checkout.AddItem(ctx, acc.ID, item("IELTS course", 150000))
	require.NoError(t, err)
	cart, err := env.Checkout.ClearCart(ctx, acc.ID)
	require.NoError(t, err)
	assert.Zero(t, cart.Len())
}

func TestCheckout_IdempotencyKey(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.register(t, "lan@shop.test")

	failing := placeReq(acc.ID, "", item("IELTS course", 150000))
	failing.CustomerInfo = models.CustomerInfo{}
	failing.IdempotencyKey = "req-1"
	_, err := env.Checkout.PlaceOrder(ctx, failing)
	require.ErrorIs(t, err, ErrValidation)

	// the failed attempt gave the key back
	req := placeReq(acc.ID, "", item("IELTS course", 150000))
	req.IdempotencyKey = "req-1"
	_, err = env.Checkout.PlaceOrder(ctx, req)
	require.NoError(t, err)

	_, err = env.Checkout.PlaceOrder(ctx, req)
	require.ErrorIs(t, err, ErrDuplicateRequest)
	assert.EqualValues(t, 1, env.ledgerSize(t))
}

func TestCheckout_ConcurrentKeyedRequestsStoreOnce(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	acc := env.register(t, "lan@shop.test")

	req := placeReq(acc.ID, "", item("IELTS course", 150000))
	req.IdempotencyKey = "double-click"

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = env.Checkout.PlaceOrder(context.Background(), req)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, env.ledgerSize(t))
}

func TestCheckout_DroppedEventDoesNotFailOrder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	acc := env.register(t, "lan@shop.test")
	env.Sink.mu.Lock()
	env.Sink.full = true
	env.Sink.mu.Unlock()

	order, err := env.Checkout.PlaceOrder(context.Background(), placeReq(acc.ID, "", item("IELTS course", 150000)))
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
}

// deletingRepo removes the account right after checkout has looked it up.
type deletingRepo struct {
	repo.Repository
	victim uint
	once   sync.Once
}

func (r *deletingRepo) GetAccount(ctx context.Context, id uint) (*models.Account, error) {
	a, err := r.Repository.GetAccount(ctx, id)
	if err == nil && id == r.victim {
		r.once.Do(func() { _, _ = r.Repository.DeleteAccountCascade(ctx, id) })
	}
	return a, err
}

func TestCheckout_AccountDeletedMidCheckout(t *testing.T) {
	t.Parallel()

	stores := []struct {
		name string
		make func(t *testing.T) repo.Repository
	}{
		{name: "memory", make: func(*testing.T) repo.Repository { return repo.NewMemoryRepo() }},
		{name: "gorm_sqlite", make: func(t *testing.T) repo.Repository {
			gdb, err := db.OpenSQLite(context.Background(), ":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close(gdb) })
			r := repo.NewGormRepo(gdb)
			require.NoError(t, r.Migrate(context.Background()))
			return r
		}},
	}

	for _, st := range stores {
		st := st
		t.Run(st.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			base := st.make(t)
			wrapped := &deletingRepo{Repository: base}
			sink := &recordingSink{}
			topics := DefaultTopics()
			accounts := NewAccountService(wrapped, sink, topics)
			orders := NewOrderService(wrapped, sink, topics)
			checkout := NewCheckoutService(accounts, orders, NewCouponService(wrapped), repo.NewMemoryCartStore(), repo.NewMemoryIdempotency(time.Hour))

			acc, err := accounts.Register(ctx, "Lan", "lan@shop.test", "password")
			require.NoError(t, err)
			wrapped.victim = acc.ID

			_, err = checkout.PlaceOrder(ctx, placeReq(acc.ID, "", item("IELTS course", 150000)))
			require.ErrorIs(t, err, ErrUnauthenticated)

			snap, err := base.Snapshot(ctx)
			require.NoError(t, err)
			assert.Empty(t, snap.Accounts)
			assert.Empty(t, snap.Orders)
		})
	}
}
