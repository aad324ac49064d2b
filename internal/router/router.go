// Package router wires HTTP routes to handlers and applies the
// middleware chain per route group.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/canteen-meal-service/internal/config"
	"github.com/iliyamo/canteen-meal-service/internal/handler"
	"github.com/iliyamo/canteen-meal-service/internal/middleware"
	"github.com/iliyamo/canteen-meal-service/internal/model"
)

// Deps carries everything route registration needs.  RDB may be nil;
// rate limiting and response caching then degrade to no-ops.
type Deps struct {
	Orders        *handler.OrderHandler
	Confirmations *handler.ConfirmationHandler
	Reports       *handler.ReportHandler
	JWTSecret     string
	RateLimit     config.RateLimitConfig
	Cache         config.CacheConfig
	RDB           *redis.Client
}

// Register wires every route of the service onto e.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	limiter := middleware.NewTokenBucket(d.RateLimit, d.RDB)
	cache := middleware.NewRedisCache(d.Cache, d.RDB)

	registerOrders(e, d, limiter)
	registerConfirmations(e, d, limiter)
	registerReports(e, d, limiter, cache)
}

// registerOrders covers the order ledger.  Creation and cancellation
// are restricted to administrator roles at the routing layer; the
// service re-checks the role against the directory.
func registerOrders(e *echo.Echo, d Deps, limiter echo.MiddlewareFunc) {
	admin := e.Group(
		"/v1/orders",
		limiter,
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleDeptAdmin, model.RoleSysAdmin),
	)
	admin.POST("", d.Orders.Create)
	admin.POST("/batch", d.Orders.CreateBatch)
	admin.POST("/quick-batch", d.Orders.CreateQuickBatch)
	admin.DELETE("/:id", d.Orders.Cancel)

	roster := e.Group(
		"/v1/departments",
		limiter,
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleDeptAdmin, model.RoleSysAdmin),
	)
	roster.GET("/:id/members", d.Orders.DepartmentMembers)
}

// registerConfirmations covers the three confirmation channels.  The
// QR endpoint authenticates the turnstile device by its verifier
// token; the dining member's identity comes from the scanned token.
func registerConfirmations(e *echo.Echo, d Deps, limiter echo.MiddlewareFunc) {
	self := e.Group(
		"/v1/orders",
		limiter,
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleUser, model.RoleDeptAdmin, model.RoleSysAdmin),
	)
	self.POST("/:id/confirm", d.Confirmations.Confirm)

	admin := e.Group(
		"/v1",
		limiter,
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleDeptAdmin, model.RoleSysAdmin),
	)
	admin.POST("/orders/:id/confirm/admin", d.Confirmations.ConfirmAdmin)
	admin.POST("/confirmations/batch", d.Confirmations.ConfirmBatch)

	qr := e.Group(
		"/v1/confirmations",
		limiter,
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleVerifier),
	)
	qr.POST("/qr", d.Confirmations.ConfirmQR)
}

// registerReports covers the read side.  Responses are cacheable per
// URL, so the redis response cache fronts these routes.
func registerReports(e *echo.Echo, d Deps, limiter, cache echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		limiter,
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleUser, model.RoleDeptAdmin, model.RoleSysAdmin, model.RoleVerifier),
		cache,
	)
	g.GET("/users/:id/dining-status", d.Reports.UserDiningStatus)
	g.GET("/departments/stats", d.Reports.DepartmentStats)
	g.GET("/orders", d.Reports.ListOrders)
	g.GET("/orders/:id", d.Orders.Get)
}
