package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/edu_shop/internal/models"
	"github.com/Skotchmaster/edu_shop/internal/notify"
	"github.com/Skotchmaster/edu_shop/internal/repo"
	"github.com/Skotchmaster/edu_shop/internal/service"
	"github.com/Skotchmaster/edu_shop/pkg/db"
	"github.com/Skotchmaster/edu_shop/pkg/logging"
)

const (
	testAdminEmail    = "admin@shop.test"
	testAdminPassword = "admin-pass"
)

type testEnv struct {
	T    *testing.T
	E    *echo.Echo
	Repo *repo.GormRepo
}

func InitTestRepo(t *testing.T) *repo.GormRepo {
	t.Helper()

	ctx := context.Background()
	gdb, err := db.OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(gdb) })

	r := repo.NewGormRepo(gdb)
	require.NoError(t, r.Migrate(ctx))
	return r
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	r := InitTestRepo(t)

	events := notify.NewDispatcher(notify.LogPublisher{Log: logging.Discard()}, 1, 64, time.Second, logging.Discard())
	events.Start()
	t.Cleanup(events.Close)

	topics := service.DefaultTopics()
	accounts := service.NewAccountService(r, events, topics)
	orders := service.NewOrderService(r, events, topics)
	coupons := service.NewCouponService(r)
	reports := service.NewReportService(r)
	checkout := service.NewCheckoutService(accounts, orders, coupons, repo.NewMemoryCartStore(), repo.NewMemoryIdempotency(time.Hour))

	gate, err := service.NewAdminService(testAdminEmail, testAdminPassword, []byte("http-test-secret"), time.Hour)
	require.NoError(t, err)

	require.NoError(t, coupons.Seed(context.Background(), []models.Coupon{
		{Code: "SAVE50", Discount: decimal.NewFromInt(100000), Message: "100.000đ off"},
		{Code: "BIG200", Discount: decimal.NewFromInt(200000), Message: "200.000đ off"},
	}))

	e := echo.New()
	Register(e, &Deps{
		AccountHandler: &AccountHTTP{Svc: accounts},
		CouponHandler:  &CouponHTTP{Svc: coupons},
		OrderHandler:   &OrderHTTP{Orders: orders, Checkout: checkout},
		CartHandler:    &CartHTTP{Svc: checkout},
		AdminHandler:   &AdminHTTP{Gate: gate, Orders: orders, Accounts: accounts, Reports: reports},
		HealthHandler:  &HealthHTTP{Checks: map[string]Pinger{"database": r}},
		Gate:           gate,
	})

	return &testEnv{T: t, E: e, Repo: r}
}

type response struct {
	Code int
	Body map[string]any
	Raw  []byte
}

func (env *testEnv) do(method, path string, body any, headers ...string) response {
	env.T.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)

	res := response{Code: rec.Code, Raw: rec.Body.Bytes()}
	if rec.Body.Len() > 0 {
		require.NoError(env.T, json.Unmarshal(rec.Body.Bytes(), &res.Body), rec.Body.String())
	}
	return res
}

func (env *testEnv) register(email string) uint {
	env.T.Helper()
	res := env.do(http.MethodPost, "/api/register", map[string]string{
		"name": "Student", "email": email, "password": "password",
	})
	require.Equal(env.T, http.StatusCreated, res.Code, string(res.Raw))
	user := res.Body["user"].(map[string]any)
	return uint(user["id"].(float64))
}

func (env *testEnv) adminToken() string {
	env.T.Helper()
	res := env.do(http.MethodPost, "/api/admin/login", map[string]string{
		"email": testAdminEmail, "password": testAdminPassword,
	})
	require.Equal(env.T, http.StatusOK, res.Code, string(res.Raw))
	return res.Body["token"].(string)
}

func bearer(token string) []string {
	return []string{echo.HeaderAuthorization, "Bearer " + token}
}

func orderBody(userID uint, coupon string) map[string]any {
	body := map[string]any{
		"userId": userID,
		"items":  []map[string]any{{"name": "IELTS 6.5 course", "price": 150000, "type": "course"}},
		"customerInfo": map[string]any{
			"name": "Nguyen Lan", "phone": "0901234567", "email": "lan@shop.test",
		},
	}
	if coupon != "" {
		body["couponCode"] = coupon
	}
	return body
}
