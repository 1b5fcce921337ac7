package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/edu_shop/internal/service"
	"github.com/Skotchmaster/edu_shop/internal/transport"
	"github.com/Skotchmaster/edu_shop/pkg/logging"
)

type CouponHTTP struct {
	Svc service.CouponValidator
}

func (h *CouponHTTP) Validate(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "coupon.validate")

	var req transport.ValidateCouponRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "validate_coupon", err)
	}

	res, err := h.Svc.Validate(ctx, req.CouponCode)
	if err != nil {
		return fail(l, "validate_coupon", err)
	}

	return ok(c, http.StatusOK, echo.Map{
		"code":     res.Code,
		"discount": res.Discount,
		"message":  res.Message,
	})
}
