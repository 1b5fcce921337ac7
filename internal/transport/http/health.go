package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/edu_shop/pkg/logging"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHTTP struct {
	Checks map[string]Pinger
}

func (h *HealthHTTP) Live(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func (h *HealthHTTP) Ready(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "health.ready")

	for name, p := range h.Checks {
		if err := p.Ping(ctx); err != nil {
			l.Warn("ready_error", "status", 503, "reason", name+" unavailable", "error", err)
			return echo.NewHTTPError(http.StatusServiceUnavailable, name+" unavailable")
		}
	}
	return c.NoContent(http.StatusOK)
}
