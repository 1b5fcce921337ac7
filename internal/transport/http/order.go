package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/edu_shop/internal/service"
	"github.com/Skotchmaster/edu_shop/internal/transport"
	"github.com/Skotchmaster/edu_shop/pkg/logging"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type OrderHTTP struct {
	Orders   *service.OrderService
	Checkout *service.CheckoutService
}

func (h *OrderHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create")

	var req transport.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "create_order", err)
	}

	place := service.PlaceOrderRequest{
		UserID:         req.UserID,
		Items:          req.Items,
		CustomerInfo:   req.CustomerInfo,
		ClientTotal:    req.Total,
		ClientDiscount: req.DiscountAmount,
		IdempotencyKey: c.Request().Header.Get(HeaderIdempotencyKey),
	}
	if req.CouponCode != nil {
		place.CouponCode = *req.CouponCode
	}

	order, err := h.Checkout.PlaceOrder(ctx, place)
	if err != nil {
		return fail(l, "create_order", err)
	}

	l.Info("create_order_success", "order_id", order.ID)
	return ok(c, http.StatusCreated, echo.Map{"order": order})
}

func (h *OrderHTTP) ListByUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_by_user")

	userID, err := parseID(c, "userId")
	if err != nil {
		return fail(l, "list_orders", err)
	}

	orders, err := h.Orders.ListByUser(ctx, userID)
	if err != nil {
		return fail(l, "list_orders", err)
	}

	return ok(c, http.StatusOK, echo.Map{"orders": orders})
}
