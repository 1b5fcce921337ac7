package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/edu_shop/internal/service"
	"github.com/Skotchmaster/edu_shop/internal/transport"
	"github.com/Skotchmaster/edu_shop/pkg/logging"
)

type CartHTTP struct {
	Svc *service.CheckoutService
}

func (h *CartHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")

	userID, err := parseID(c, "userId")
	if err != nil {
		return fail(l, "get_cart", err)
	}

	cart, err := h.Svc.GetCart(ctx, userID)
	if err != nil {
		return fail(l, "get_cart", err)
	}
	return ok(c, http.StatusOK, echo.Map{"cart": service.ViewOf(cart)})
}

func (h *CartHTTP) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_item")

	userID, err := parseID(c, "userId")
	if err != nil {
		return fail(l, "add_item", err)
	}

	var req transport.AddCartItemRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "add_item", err)
	}

	cart, err := h.Svc.AddItem(ctx, userID, req.Item)
	if err != nil {
		return fail(l, "add_item", err)
	}
	return ok(c, http.StatusOK, echo.Map{"cart": service.ViewOf(cart)})
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove_item")

	userID, err := parseID(c, "userId")
	if err != nil {
		return fail(l, "remove_item", err)
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return badBody(l, "remove_item", err)
	}

	cart, err := h.Svc.RemoveItem(ctx, userID, index)
	if err != nil {
		return fail(l, "remove_item", err)
	}
	return ok(c, http.StatusOK, echo.Map{"cart": service.ViewOf(cart)})
}

func (h *CartHTTP) ApplyCoupon(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.apply_coupon")

	userID, err := parseID(c, "userId")
	if err != nil {
		return fail(l, "apply_coupon", err)
	}

	var req transport.ApplyCouponRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "apply_coupon", err)
	}

	cart, err := h.Svc.ApplyCoupon(ctx, userID, req.CouponCode)
	if err != nil {
		return fail(l, "apply_coupon", err)
	}
	return ok(c, http.StatusOK, echo.Map{"cart": service.ViewOf(cart)})
}

func (h *CartHTTP) Clear(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.clear")

	userID, err := parseID(c, "userId")
	if err != nil {
		return fail(l, "clear_cart", err)
	}

	cart, err := h.Svc.ClearCart(ctx, userID)
	if err != nil {
		return fail(l, "clear_cart", err)
	}
	return ok(c, http.StatusOK, echo.Map{"cart": service.ViewOf(cart)})
}

func (h *CartHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.checkout")

	userID, err := parseID(c, "userId")
	if err != nil {
		return fail(l, "checkout", err)
	}

	var req transport.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "checkout", err)
	}

	order, err := h.Svc.CheckoutCart(ctx, userID, req.CustomerInfo, c.Request().Header.Get(HeaderIdempotencyKey))
	if err != nil {
		return fail(l, "checkout", err)
	}

	l.Info("checkout_success", "order_id", order.ID)
	return ok(c, http.StatusCreated, echo.Map{"order": order})
}
