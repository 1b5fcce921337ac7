package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/edu_shop/internal/middleware/auth"
)

type Deps struct {
	AccountHandler *AccountHTTP
	CouponHandler  *CouponHTTP
	OrderHandler   *OrderHTTP
	CartHandler    *CartHTTP
	AdminHandler   *AdminHTTP
	HealthHandler  *HealthHTTP
	Gate           auth.Authorizer
}

func Register(e *echo.Echo, d *Deps) {
	e.HTTPErrorHandler = ErrorHandler

	e.GET("/health/live", d.HealthHandler.Live)
	e.GET("/health/ready", d.HealthHandler.Ready)

	api := e.Group("/api")

	api.POST("/register", d.AccountHandler.Register)
	api.POST("/login", d.AccountHandler.Login)
	api.POST("/coupons/validate", d.CouponHandler.Validate)
	api.POST("/orders", d.OrderHandler.Create)

	users := api.Group("/users/:userId")
	users.GET("/orders", d.OrderHandler.ListByUser)
	users.GET("/cart", d.CartHandler.Get)
	users.DELETE("/cart", d.CartHandler.Clear)
	users.POST("/cart/items", d.CartHandler.AddItem)
	users.DELETE("/cart/items/:index", d.CartHandler.RemoveItem)
	users.POST("/cart/coupon", d.CartHandler.ApplyCoupon)
	users.POST("/cart/checkout", d.CartHandler.Checkout)

	api.POST("/admin/login", d.AdminHandler.Login)

	admin := api.Group("/admin", auth.RequireAdmin(d.Gate))
	admin.POST("/logout", d.AdminHandler.Logout)
	admin.GET("/stats", d.AdminHandler.Stats)
	admin.GET("/orders", d.AdminHandler.ListOrders)
	admin.GET("/users", d.AdminHandler.ListUsers)
	admin.PATCH("/orders/:orderId", d.AdminHandler.UpdateOrder)
	admin.DELETE("/orders/:orderId", d.AdminHandler.DeleteOrder)
	admin.DELETE("/users/:userId", d.AdminHandler.DeleteUser)
}
