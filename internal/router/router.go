// Package router registers the HTTP routes of the service.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/ticket-sales/internal/handler"
)

// Handlers bundles the API handlers.
type Handlers struct {
	Events    *handler.EventHandler
	Users     *handler.UserHandler
	Purchases *handler.PurchaseHandler
	Tickets   *handler.TicketHandler
	Reports   *handler.ReportHandler
}

// Middlewares are applied per route group. Nil entries are skipped.
type Middlewares struct {
	// RateLimit guards every /api route.
	RateLimit echo.MiddlewareFunc
	// Cache fronts read-mostly routes: event browsing and reports.
	Cache echo.MiddlewareFunc
}

// RegisterRoutes registers the unauthenticated operational endpoints:
// liveness, readiness and Prometheus metrics.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAPI mounts the customer and admin routes under /api.
func RegisterAPI(e *echo.Echo, h Handlers, mw Middlewares) {
	api := e.Group("/api", use(mw.RateLimit)...)
	registerCustomer(api, h, mw)
	registerAdmin(api, h, mw)
}

func use(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mws))
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
