package auth

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/edu_shop/pkg/logging"
	"github.com/Skotchmaster/edu_shop/pkg/tokens"
)

// UnauthorizedMessage is the body message clients treat as a forced logout.
const UnauthorizedMessage = "Unauthorized"

type Authorizer interface {
	Authorize(ctx context.Context, token string) (*tokens.AccessClaims, error)
}

// RequireAdmin lets a request through only with a bearer token the gate
// accepts. Rejected requests never reach the handler.
func RequireAdmin(gate Authorizer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			l := logging.FromContext(ctx).With("handler", "auth.require_admin")

			token := tokens.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			claims, err := gate.Authorize(ctx, token)
			if err != nil {
				l.Warn("require_admin_error", "status", 401, "reason", "admin token rejected", "error", err)
				return echo.NewHTTPError(http.StatusUnauthorized, UnauthorizedMessage)
			}

			setAdminContext(c, token, claims)
			return next(c)
		}
	}
}
