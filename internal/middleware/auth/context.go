package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/edu_shop/pkg/tokens"
)

const (
	adminClaimsKey = "admin_claims"
	adminTokenKey  = "admin_token"
)

func setAdminContext(c echo.Context, token string, claims *tokens.AccessClaims) {
	c.Set(adminClaimsKey, claims)
	c.Set(adminTokenKey, token)
}

func AdminClaims(c echo.Context) (*tokens.AccessClaims, bool) {
	claims, ok := c.Get(adminClaimsKey).(*tokens.AccessClaims)
	return claims, ok
}

func AdminToken(c echo.Context) string {
	s, _ := c.Get(adminTokenKey).(string)
	return s
}
