package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/edu_shop/internal/middleware/auth"
	"github.com/Skotchmaster/edu_shop/internal/service"
	"github.com/Skotchmaster/edu_shop/pkg/logging"
)

func ok(c echo.Context, status int, body echo.Map) error {
	if body == nil {
		body = echo.Map{}
	}
	body["success"] = true
	return c.JSON(status, body)
}

// fail logs err under "<op>_error" and turns it into the HTTP error the
// client sees.
func fail(l *slog.Logger, op string, err error) error {
	code, msg := classify(err)
	if code >= http.StatusInternalServerError {
		l.Error(op+"_error", "status", code, "reason", msg, "error", err)
	} else {
		l.Warn(op+"_error", "status", code, "reason", msg, "error", err)
	}
	return echo.NewHTTPError(code, msg)
}

func badBody(l *slog.Logger, op string, err error) error {
	l.Warn(op+"_error", "status", http.StatusBadRequest, "reason", "invalid body", "error", err)
	return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, strings.ReplaceAll(err.Error(), service.ErrValidation.Error()+": ", "")
	case errors.Is(err, service.ErrDuplicateEmail):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid email or password"
	case errors.Is(err, service.ErrInvalidCoupon):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrCouponThresholdNotMet):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, service.ErrCouponAlreadyApplied):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrEmptyCart):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized, "please log in first"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, auth.UnauthorizedMessage
	case errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrDuplicateRequest):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrTransient):
		return http.StatusServiceUnavailable, "service temporarily unavailable, please retry"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// ErrorHandler renders every error as {"success": false, "message": ...}.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := "internal error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		switch m := he.Message.(type) {
		case string:
			msg = m
		case error:
			msg = m.Error()
		default:
			msg = http.StatusText(code)
		}
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(code)
	} else {
		werr = c.JSON(code, echo.Map{"success": false, "message": msg})
	}
	if werr != nil {
		logging.FromContext(c.Request().Context()).Error("write_error_response", "status", code, "error", werr)
	}
}

func parseID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", service.ErrValidation, name)
	}
	return uint(id), nil
}
