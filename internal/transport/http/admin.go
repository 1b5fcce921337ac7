package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/edu_shop/internal/middleware/auth"
	"github.com/Skotchmaster/edu_shop/internal/models"
	"github.com/Skotchmaster/edu_shop/internal/repo"
	"github.com/Skotchmaster/edu_shop/internal/service"
	"github.com/Skotchmaster/edu_shop/internal/transport"
	"github.com/Skotchmaster/edu_shop/internal/util"
	"github.com/Skotchmaster/edu_shop/pkg/logging"
)

type AdminHTTP struct {
	Gate     *service.AdminService
	Orders   *service.OrderService
	Accounts *service.AccountService
	Reports  *service.ReportService
}

func (h *AdminHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "admin_login", err)
	}

	sess, err := h.Gate.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(l, "admin_login", err)
	}

	return ok(c, http.StatusOK, echo.Map{"token": sess.Token, "expiresAt": sess.ExpiresAt})
}

func (h *AdminHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.logout")

	if err := h.Gate.Logout(ctx, auth.AdminToken(c)); err != nil {
		return fail(l, "admin_logout", err)
	}
	return ok(c, http.StatusOK, echo.Map{"message": "Logged out"})
}

func (h *AdminHTTP) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.stats")

	st, err := h.Reports.Stats(ctx)
	if err != nil {
		return fail(l, "stats", err)
	}
	return ok(c, http.StatusOK, echo.Map{"stats": st})
}

func (h *AdminHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_orders")

	opt, page, paged := listOptions(c)
	orders, total, err := h.Orders.ListAll(ctx, opt)
	if err != nil {
		return fail(l, "list_orders", err)
	}

	body := echo.Map{"orders": orders}
	if paged {
		page.Total = total
		body["pagination"] = page
	}
	return ok(c, http.StatusOK, body)
}

func (h *AdminHTTP) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_users")

	opt, page, paged := listOptions(c)
	users, total, err := h.Accounts.ListAll(ctx, opt)
	if err != nil {
		return fail(l, "list_users", err)
	}

	body := echo.Map{"users": users}
	if paged {
		page.Total = total
		body["pagination"] = page
	}
	return ok(c, http.StatusOK, body)
}

// UpdateOrder sets any status unless ?strict=true asks for a checked transition.
func (h *AdminHTTP) UpdateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.update_order")

	id, err := parseID(c, "orderId")
	if err != nil {
		return fail(l, "update_order", err)
	}

	var req transport.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "update_order", err)
	}
	status, _ := models.ParseOrderStatus(req.Status)

	var order *models.Order
	if strict, _ := strconv.ParseBool(c.QueryParam("strict")); strict {
		order, err = h.Orders.Transition(ctx, id, status)
	} else {
		order, err = h.Orders.UpdateStatus(ctx, id, status)
	}
	if err != nil {
		return fail(l, "update_order", err)
	}

	return ok(c, http.StatusOK, echo.Map{"order": order})
}

func (h *AdminHTTP) DeleteOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.delete_order")

	id, err := parseID(c, "orderId")
	if err != nil {
		return fail(l, "delete_order", err)
	}
	if err := h.Orders.Delete(ctx, id); err != nil {
		return fail(l, "delete_order", err)
	}

	return ok(c, http.StatusOK, echo.Map{"message": "Order deleted"})
}

func (h *AdminHTTP) DeleteUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.delete_user")

	id, err := parseID(c, "userId")
	if err != nil {
		return fail(l, "delete_user", err)
	}

	n, err := h.Accounts.Delete(ctx, id)
	if err != nil {
		return fail(l, "delete_user", err)
	}

	return ok(c, http.StatusOK, echo.Map{
		"message":            "User and orders deleted",
		"deletedOrdersCount": n,
	})
}

// listOptions reads page/size. Without either parameter the whole
// collection is returned.
func listOptions(c echo.Context) (repo.ListOptions, transport.PageInfo, bool) {
	pageStr, sizeStr := c.QueryParam("page"), c.QueryParam("size")
	if pageStr == "" && sizeStr == "" {
		return repo.ListOptions{}, transport.PageInfo{}, false
	}

	page := util.ClampPage(util.ParseIntDefault(pageStr, 1))
	offset, limit := util.Calculate(page, util.ParseIntDefault(sizeStr, util.DefaultPageSize))
	return repo.ListOptions{Limit: limit, Offset: offset}, transport.PageInfo{Page: page, Size: limit}, true
}
