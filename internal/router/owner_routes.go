package router

import "github.com/labstack/echo/v4"

// registerAdmin mounts event administration, purchase administration and
// reporting. Authentication happens upstream of this service.
func registerAdmin(api *echo.Group, h Handlers, mw Middlewares) {
	// ---- Events ----
	api.POST("/events", h.Events.Create)
	api.PUT("/events/:id", h.Events.Update)
	api.PUT("/events/:id/capacity", h.Events.UpdateCapacity)
	api.DELETE("/events/:id", h.Events.Delete)

	// ---- Purchases ----
	api.GET("/purchases", h.Purchases.List)
	api.PUT("/purchases/:id/status", h.Purchases.UpdateStatus)

	// ---- Users ----
	api.GET("/users", h.Users.List)

	// ---- Reports ----
	api.GET("/reports/sales", h.Reports.Sales, use(mw.Cache)...)
}
