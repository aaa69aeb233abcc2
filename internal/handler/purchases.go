package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/ticket-sales/internal/model"
	"github.com/iliyamo/ticket-sales/internal/purchase"
	"github.com/iliyamo/ticket-sales/internal/repository"
)

// PurchaseHandler serves checkout, purchase reads and status changes.
// Every write goes through the purchase manager.
type PurchaseHandler struct {
	Store     repository.Store
	Purchases *purchase.Manager
}

// NewPurchaseHandler panics if a dependency is nil.
func NewPurchaseHandler(store repository.Store, purchases *purchase.Manager) *PurchaseHandler {
	if store == nil || purchases == nil {
		panic("nil dependency passed to NewPurchaseHandler")
	}
	return &PurchaseHandler{Store: store, Purchases: purchases}
}

type createPurchaseRequest struct {
	UserID        uint64           `json:"userId"`
	EventID       string           `json:"eventId"`
	Quantity      *int             `json:"quantity"`
	UnitPrice     *decimal.Decimal `json:"unitPrice"`
	TotalPrice    *decimal.Decimal `json:"totalPrice"`
	ServiceCharge *decimal.Decimal `json:"serviceCharge"`
	Notes         *string          `json:"notes"`
}

func (r *createPurchaseRequest) missing() string {
	switch {
	case r.UserID == 0:
		return "userId"
	case strings.TrimSpace(r.EventID) == "":
		return "eventId"
	case r.Quantity == nil:
		return "quantity"
	case r.UnitPrice == nil:
		return "unitPrice"
	case r.TotalPrice == nil:
		return "totalPrice"
	}
	return ""
}

// Create handles POST /api/purchases and answers 201 with the purchase
// and its tickets.
func (h *PurchaseHandler) Create(c echo.Context) error {
	var req createPurchaseRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if f := req.missing(); f != "" {
		return badRequest(c, "missing required field: "+f)
	}
	in := purchase.CreateRequest{
		UserID:     req.UserID,
		EventID:    strings.TrimSpace(req.EventID),
		Quantity:   *req.Quantity,
		UnitPrice:  *req.UnitPrice,
		TotalPrice: *req.TotalPrice,
		Notes:      req.Notes,
	}
	if req.ServiceCharge != nil {
		in.ServiceCharge = *req.ServiceCharge
	}
	out, err := h.Purchases.Create(c.Request().Context(), in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"purchase": out.Purchase, "tickets": out.Tickets})
}

// Get handles GET /api/purchases/:id.
func (h *PurchaseHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	p, err := h.Store.GetPurchase(c.Request().Context(), id)
	if err != nil {
		return lookup(c, "purchase", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"purchase": p})
}

// GetByOrder handles GET /api/purchases/order/:orderNumber.
func (h *PurchaseHandler) GetByOrder(c echo.Context) error {
	p, err := h.Store.GetPurchaseByOrder(c.Request().Context(), c.Param("orderNumber"))
	if err != nil {
		return lookup(c, "purchase", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"purchase": p})
}

// ListByUser handles GET /api/purchases/user/:userId.
func (h *PurchaseHandler) ListByUser(c echo.Context) error {
	ctx := c.Request().Context()
	id, ok := parseID(c, "userId")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	if _, err := h.Store.GetUser(ctx, id); err != nil {
		return lookup(c, "user", err)
	}
	page := parsePage(c)
	out, total, err := h.Store.ListPurchases(ctx, model.PurchaseFilter{UserID: id}, page)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, listResponse{Items: out, Pagination: model.NewPagination(page, total)})
}

// List handles GET /api/purchases?status&event_id&user_id&page&per_page.
func (h *PurchaseHandler) List(c echo.Context) error {
	var f model.PurchaseFilter
	if s := c.QueryParam("status"); s != "" {
		st, ok := model.ParseStatus(s)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status " + strconv.Quote(s), "code": purchase.KindInvalidStatus})
		}
		f.Status = st
	}
	f.EventID = c.QueryParam("event_id")
	if s := c.QueryParam("user_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return badRequest(c, "invalid user_id")
		}
		f.UserID = id
	}
	page := parsePage(c)
	out, total, err := h.Store.ListPurchases(c.Request().Context(), f, page)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, listResponse{Items: out, Pagination: model.NewPagination(page, total)})
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PUT /api/purchases/:id/status.
func (h *PurchaseHandler) UpdateStatus(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Status == "" {
		return badRequest(c, "missing required field: status")
	}
	ch, err := h.Purchases.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"purchase":         ch.Purchase,
		"previous_status":  ch.From,
		"released_tickets": ch.Released,
	})
}

type emailStatusRequest struct {
	EmailSent    *bool   `json:"emailSent"`
	Subject      string  `json:"subject"`
	MessageID    *string `json:"messageId"`
	ErrorMessage *string `json:"errorMessage"`
}

// UpdateEmailStatus handles PUT /api/purchases/:id/email-status. A body
// without emailSent counts as sent.
func (h *PurchaseHandler) UpdateEmailStatus(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req emailStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	sent := req.EmailSent == nil || *req.EmailSent
	p, err := h.Purchases.RecordEmailStatus(c.Request().Context(), id, purchase.EmailStatus{
		Sent:         sent,
		Subject:      req.Subject,
		MessageID:    req.MessageID,
		ErrorMessage: req.ErrorMessage,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"purchase": p})
}
