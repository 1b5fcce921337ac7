package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/edu_shop/internal/service"
	"github.com/Skotchmaster/edu_shop/internal/transport"
	"github.com/Skotchmaster/edu_shop/pkg/logging"
)

type AccountHTTP struct {
	Svc *service.AccountService
}

func (h *AccountHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "register", err)
	}

	acc, err := h.Svc.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		return fail(l, "register", err)
	}

	return ok(c, http.StatusCreated, echo.Map{"user": acc})
}

func (h *AccountHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "login", err)
	}

	acc, err := h.Svc.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return fail(l, "login", err)
	}

	l.Info("login_success", "user_id", acc.ID)
	return ok(c, http.StatusOK, echo.Map{"user": acc})
}
