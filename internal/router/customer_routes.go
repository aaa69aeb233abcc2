package router

import "github.com/labstack/echo/v4"

// registerCustomer mounts the routes the web front end calls during
// checkout and at the venue: event browsing, purchases and tickets.
func registerCustomer(api *echo.Group, h Handlers, mw Middlewares) {
	cached := use(mw.Cache)
	api.GET("/events", h.Events.List, cached...)
	api.GET("/events/:id", h.Events.Get, cached...)

	api.POST("/purchases", h.Purchases.Create)
	api.GET("/purchases/:id", h.Purchases.Get)
	api.GET("/purchases/order/:orderNumber", h.Purchases.GetByOrder)
	api.GET("/purchases/user/:userId", h.Purchases.ListByUser)
	api.PUT("/purchases/:id/email-status", h.Purchases.UpdateEmailStatus)

	// The static validate route wins over :ticketNumber/validate.
	api.POST("/tickets/validate", h.Tickets.ValidateCode)
	api.POST("/tickets/:ticketNumber/validate", h.Tickets.Validate)
	api.GET("/tickets/qr/*", h.Tickets.GetByQR)
	api.GET("/tickets/purchase/:purchaseId", h.Tickets.ListByPurchase)
	api.GET("/tickets/:ticketNumber", h.Tickets.Get)

	api.POST("/users", h.Users.Create)
	api.GET("/users/:id", h.Users.Get)
	api.GET("/users/email/:email", h.Users.GetByEmail)
}
