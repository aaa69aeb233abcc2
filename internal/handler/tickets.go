package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-sales/internal/purchase"
	"github.com/iliyamo/ticket-sales/internal/repository"
)

// TicketHandler serves ticket lookups and venue validation.
type TicketHandler struct {
	Store     repository.Store
	Purchases *purchase.Manager
}

// NewTicketHandler panics if a dependency is nil.
func NewTicketHandler(store repository.Store, purchases *purchase.Manager) *TicketHandler {
	if store == nil || purchases == nil {
		panic("nil dependency passed to NewTicketHandler")
	}
	return &TicketHandler{Store: store, Purchases: purchases}
}

// Get handles GET /api/tickets/:ticketNumber.
func (h *TicketHandler) Get(c echo.Context) error {
	t, err := h.Store.GetTicket(c.Request().Context(), c.Param("ticketNumber"))
	if err != nil {
		return lookup(c, "ticket", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ticket": t})
}

// ListByPurchase handles GET /api/tickets/purchase/:purchaseId.
func (h *TicketHandler) ListByPurchase(c echo.Context) error {
	ctx := c.Request().Context()
	id, ok := parseID(c, "purchaseId")
	if !ok {
		return badRequest(c, "invalid purchase id")
	}
	p, err := h.Store.GetPurchase(ctx, id)
	if err != nil {
		return lookup(c, "purchase", err)
	}
	tickets, err := h.Store.ListTicketsByPurchase(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"purchase": p, "tickets": tickets})
}

// GetByQR handles GET /api/tickets/qr/*. The payload contains colons, so
// it is taken from the wildcard rather than a single path segment.
func (h *TicketHandler) GetByQR(c echo.Context) error {
	qr, err := url.PathUnescape(c.Param("*"))
	if err != nil || qr == "" {
		return badRequest(c, "invalid qr code")
	}
	t, err := h.Store.GetTicketByQR(c.Request().Context(), qr)
	if err != nil {
		return lookup(c, "ticket", err)
	}
	msg := "ticket is valid"
	if t.IsUsed {
		msg = "ticket has already been used"
	}
	return c.JSON(http.StatusOK, echo.Map{"ticket": t, "valid": !t.IsUsed, "message": msg})
}

// Validate handles POST /api/tickets/:ticketNumber/validate.
func (h *TicketHandler) Validate(c echo.Context) error {
	return h.validate(c, c.Param("ticketNumber"))
}

type validateRequest struct {
	Code string `json:"code"`
}

// ValidateCode handles POST /api/tickets/validate with a ticket number or
// QR payload in the body.
func (h *TicketHandler) ValidateCode(c echo.Context) error {
	var req validateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	return h.validate(c, strings.TrimSpace(req.Code))
}

func (h *TicketHandler) validate(c echo.Context, code string) error {
	t, err := h.Purchases.ValidateTicket(c.Request().Context(), code)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ticket": t, "message": "ticket validated"})
}
