package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/edu_shop/internal/models"
	"github.com/Skotchmaster/edu_shop/internal/repo"
)

type sentEvent struct {
	Topic   string
	Key     string
	Payload any
}

type recordingSink struct {
	mu     sync.Mutex
	events []sentEvent
	full   bool
}

func (s *recordingSink) Enqueue(topic, key string, payload any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return false
	}
	s.events = append(s.events, sentEvent{Topic: topic, Key: key, Payload: payload})
	return true
}

func (s *recordingSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, e := range s.events {
		switch p := e.Payload.(type) {
		case OrderEvent:
			out = append(out, p.Type)
		case UserEvent:
			out = append(out, p.Type)
		}
	}
	return out
}

type testEnv struct {
	Repo     *repo.MemoryRepo
	Sink     *recordingSink
	Accounts *AccountService
	Orders   *OrderService
	Coupons  *CouponService
	Checkout *CheckoutService
	Reports  *ReportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	r := repo.NewMemoryRepo()
	sink := &recordingSink{}
	topics := DefaultTopics()

	env := &testEnv{
		Repo:     r,
		Sink:     sink,
		Accounts: NewAccountService(r, sink, topics),
		Orders:   NewOrderService(r, sink, topics),
		Coupons:  NewCouponService(r),
		Reports:  NewReportService(r),
	}
	env.Checkout = NewCheckoutService(env.Accounts, env.Orders, env.Coupons, repo.NewMemoryCartStore(), repo.NewMemoryIdempotency(time.Hour))

	require.NoError(t, env.Coupons.Seed(context.Background(), []models.Coupon{
		{Code: "SAVE50", Discount: decimal.NewFromInt(100000), Message: "100.000đ off"},
		{Code: "BIG200", Discount: decimal.NewFromInt(200000), Message: "200.000đ off"},
		{Code: "FREE0", Discount: decimal.Zero, Message: "nothing off"},
	}))
	return env
}

func (env *testEnv) register(t *testing.T, email string) *models.Account {
	t.Helper()
	acc, err := env.Accounts.Register(context.Background(), "Student", email, "password")
	require.NoError(t, err)
	return acc
}

func (env *testEnv) ledgerSize(t *testing.T) int64 {
	t.Helper()
	_, total, err := env.Orders.ListAll(context.Background(), repo.ListOptions{})
	require.NoError(t, err)
	return total
}

func item(name string, price int64) models.LineItem {
	return models.LineItem{Name: name, Price: decimal.NewFromInt(price)}
}

func customer() models.CustomerInfo {
	return models.CustomerInfo{Name: "Nguyen Lan", Phone: "0901234567", Email: "lan@shop.test", Note: "evening call"}
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }
