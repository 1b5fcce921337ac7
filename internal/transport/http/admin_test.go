package httpserver

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/edu_shop/internal/util"
)

func TestAdmin_RoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)
	userID := env.register("lan@shop.test")
	created := env.do(http.MethodPost, "/api/orders", orderBody(userID, ""))
	require.Equal(t, http.StatusCreated, created.Code)
	orderID := uint(created.Body["order"].(map[string]any)["id"].(float64))

	routes := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/api/admin/stats", nil},
		{http.MethodGet, "/api/admin/orders", nil},
		{http.MethodGet, "/api/admin/users", nil},
		{http.MethodPatch, fmt.Sprintf("/api/admin/orders/%d", orderID), map[string]string{"status": "completed"}},
		{http.MethodDelete, fmt.Sprintf("/api/admin/orders/%d", orderID), nil},
		{http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", userID), nil},
		{http.MethodPost, "/api/admin/logout", nil},
	}

	for _, header := range [][]string{nil, bearer("garbage")} {
		for _, r := range routes {
			res := env.do(r.method, r.path, r.body, header...)
			require.Equal(t, http.StatusUnauthorized, res.Code, "%s %s", r.method, r.path)
			assert.Equal(t, "Unauthorized", res.Body["message"])
			assert.Equal(t, false, res.Body["success"])
		}
	}

	// nothing was touched
	token := env.adminToken()
	orders := env.do(http.MethodGet, "/api/admin/orders", nil, bearer(token)...)
	require.Equal(t, http.StatusOK, orders.Code)
	list := orders.Body["orders"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "pending", list[0].(map[string]any)["status"])
}

func TestAdmin_Login(t *testing.T) {
	env := newTestEnv(t)

	res := env.do(http.MethodPost, "/api/admin/login", map[string]string{"email": testAdminEmail, "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, res.Code)

	res = env.do(http.MethodPost, "/api/admin/login", map[string]string{"email": testAdminEmail, "password": testAdminPassword})
	require.Equal(t, http.StatusOK, res.Code)
	assert.NotEmpty(t, res.Body["token"])
	assert.NotEmpty(t, res.Body["expiresAt"])
}

func TestAdmin_OrderLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken()
	auth := bearer(token)

	userID := env.register("lan@shop.test")
	created := env.do(http.MethodPost, "/api/orders", orderBody(userID, "SAVE50"))
	require.Equal(t, http.StatusCreated, created.Code)
	orderPath := fmt.Sprintf("/api/admin/orders/%d", uint(created.Body["order"].(map[string]any)["id"].(float64)))

	res := env.do(http.MethodPatch, orderPath, map[string]string{"status": "completed"}, auth...)
	require.Equal(t, http.StatusOK, res.Code, string(res.Raw))
	assert.Equal(t, "completed", res.Body["order"].(map[string]any)["status"])

	// the default route is permissive
	res = env.do(http.MethodPatch, orderPath, map[string]string{"status": "cancelled"}, auth...)
	require.Equal(t, http.StatusOK, res.Code)

	res = env.do(http.MethodPatch, orderPath+"?strict=true", map[string]string{"status": "pending"}, auth...)
	require.Equal(t, http.StatusConflict, res.Code)

	res = env.do(http.MethodPatch, orderPath, map[string]string{"status": "shipped"}, auth...)
	require.Equal(t, http.StatusBadRequest, res.Code)

	stats := env.do(http.MethodGet, "/api/admin/stats", nil, auth...)
	require.Equal(t, http.StatusOK, stats.Code)
	st := stats.Body["stats"].(map[string]any)
	assert.EqualValues(t, 1, st["totalOrders"])
	assert.EqualValues(t, 1, st["totalUsers"])
	assert.EqualValues(t, 0, st["pendingOrders"])
	assert.EqualValues(t, 50000, st["totalRevenue"])

	res = env.do(http.MethodDelete, orderPath, nil, auth...)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "Order deleted", res.Body["message"])

	res = env.do(http.MethodDelete, orderPath, nil, auth...)
	require.Equal(t, http.StatusNotFound, res.Code)
}

func TestAdmin_DeleteUserCascades(t *testing.T) {
	env := newTestEnv(t)
	auth := bearer(env.adminToken())

	victim := env.register("victim@shop.test")
	keeper := env.register("keeper@shop.test")
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/orders", orderBody(victim, "")).Code)
	}
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/orders", orderBody(keeper, "")).Code)

	res := env.do(http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", victim), nil, auth...)
	require.Equal(t, http.StatusOK, res.Code, string(res.Raw))
	assert.EqualValues(t, 3, res.Body["deletedOrdersCount"])

	users := env.do(http.MethodGet, "/api/admin/users", nil, auth...)
	require.Equal(t, http.StatusOK, users.Code)
	list := users.Body["users"].([]any)
	require.Len(t, list, 1)
	assert.EqualValues(t, 1, list[0].(map[string]any)["orderCount"])
	assert.EqualValues(t, 150000, list[0].(map[string]any)["totalSpent"])

	orders := env.do(http.MethodGet, "/api/admin/orders", nil, auth...)
	assert.Len(t, orders.Body["orders"], 1)
}

func TestAdmin_Pagination(t *testing.T) {
	env := newTestEnv(t)
	auth := bearer(env.adminToken())

	userID := env.register("lan@shop.test")
	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/orders", orderBody(userID, "")).Code)
	}

	res := env.do(http.MethodGet, "/api/admin/orders?page=2&size=2", nil, auth...)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Len(t, res.Body["orders"], 2)
	page := res.Body["pagination"].(map[string]any)
	assert.EqualValues(t, 2, page["page"])
	assert.EqualValues(t, 2, page["size"])
	assert.EqualValues(t, 5, page["total"])

	huge := env.do(http.MethodGet, "/api/admin/orders?page=9223372036854775807&size=2", nil, auth...)
	require.Equal(t, http.StatusOK, huge.Code)
	assert.Empty(t, huge.Body["orders"])
	assert.EqualValues(t, util.MaxPage, huge.Body["pagination"].(map[string]any)["page"])

	full := env.do(http.MethodGet, "/api/admin/orders", nil, auth...)
	assert.Len(t, full.Body["orders"], 5)
	assert.NotContains(t, full.Body, "pagination")
}

func TestAdmin_Logout(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken()

	res := env.do(http.MethodPost, "/api/admin/logout", nil, bearer(token)...)
	require.Equal(t, http.StatusOK, res.Code)

	res = env.do(http.MethodGet, "/api/admin/stats", nil, bearer(token)...)
	require.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "Unauthorized", res.Body["message"])
}
