package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/ticket-sales/internal/model"
	"github.com/iliyamo/ticket-sales/internal/purchase"
	"github.com/iliyamo/ticket-sales/internal/repository"
)

// EventHandler serves event administration and browsing. Inventory
// counters are set once at creation; afterwards only the purchase
// manager changes them.
type EventHandler struct {
	Store     repository.Store
	Purchases *purchase.Manager
}

// NewEventHandler panics if a dependency is nil.
func NewEventHandler(store repository.Store, purchases *purchase.Manager) *EventHandler {
	if store == nil || purchases == nil {
		panic("nil dependency passed to NewEventHandler")
	}
	return &EventHandler{Store: store, Purchases: purchases}
}

type eventRequest struct {
	ID               string           `json:"id"`
	Title            *string          `json:"title"`
	Artist           *string          `json:"artist"`
	Date             *string          `json:"date"`
	Time             *string          `json:"time"`
	Venue            *string          `json:"venue"`
	Location         *string          `json:"location"`
	Price            *decimal.Decimal `json:"price"`
	Image            *string          `json:"image"`
	Description      *string          `json:"description"`
	Category         *string          `json:"category"`
	AvailableTickets *int             `json:"availableTickets"`
	TotalTickets     *int             `json:"totalTickets"`
	IsActive         *bool            `json:"isActive"`
}

// missing names the first required create field that is absent.
func (r *eventRequest) missing() string {
	switch {
	case strings.TrimSpace(r.ID) == "":
		return "id"
	case r.Title == nil:
		return "title"
	case r.Artist == nil:
		return "artist"
	case r.Date == nil:
		return "date"
	case r.Venue == nil:
		return "venue"
	case r.Location == nil:
		return "location"
	case r.Price == nil:
		return "price"
	}
	return ""
}

// apply copies the descriptive fields present in r onto e.
func (r *eventRequest) apply(e *model.Event) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&e.Title, r.Title)
	set(&e.Artist, r.Artist)
	set(&e.Date, r.Date)
	set(&e.Venue, r.Venue)
	set(&e.Location, r.Location)
	if r.Time != nil {
		e.Time = r.Time
	}
	if r.Image != nil {
		e.Image = r.Image
	}
	if r.Description != nil {
		e.Description = r.Description
	}
	if r.Category != nil {
		e.Category = r.Category
	}
	if r.Price != nil {
		e.Price = *r.Price
	}
	if r.IsActive != nil {
		e.IsActive = *r.IsActive
	}
}

// Create handles POST /api/events. totalTickets defaults to
// availableTickets and the other way round.
func (h *EventHandler) Create(c echo.Context) error {
	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if f := req.missing(); f != "" {
		return badRequest(c, "missing required field: "+f)
	}
	if req.Price.IsNegative() {
		return badRequest(c, "price must not be negative")
	}

	e := &model.Event{ID: strings.TrimSpace(req.ID), IsActive: true}
	req.apply(e)
	switch {
	case req.TotalTickets != nil && req.AvailableTickets != nil:
		e.TotalTickets, e.AvailableTickets = *req.TotalTickets, *req.AvailableTickets
	case req.TotalTickets != nil:
		e.TotalTickets, e.AvailableTickets = *req.TotalTickets, *req.TotalTickets
	case req.AvailableTickets != nil:
		e.TotalTickets, e.AvailableTickets = *req.AvailableTickets, *req.AvailableTickets
	}
	if e.AvailableTickets < 0 || e.AvailableTickets > e.TotalTickets {
		return badRequest(c, "availableTickets must be between 0 and totalTickets")
	}

	if err := h.Store.CreateEvent(c.Request().Context(), e); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"event": e})
}

// List handles GET /api/events?page&per_page&category&active.
func (h *EventHandler) List(c echo.Context) error {
	page := parsePage(c)
	f := model.EventFilter{
		Category:   strings.TrimSpace(c.QueryParam("category")),
		ActiveOnly: queryBool(c, "active", true),
	}
	events, total, err := h.Store.ListEvents(c.Request().Context(), f, page)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, listResponse{Items: events, Pagination: model.NewPagination(page, total)})
}

// Get handles GET /api/events/:id.
func (h *EventHandler) Get(c echo.Context) error {
	e, err := h.Store.GetEvent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return lookup(c, "event", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"event": e})
}

// Update handles PUT /api/events/:id. Inventory fields in the body are
// ignored; capacity changes go through UpdateCapacity.
func (h *EventHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Price != nil && req.Price.IsNegative() {
		return badRequest(c, "price must not be negative")
	}
	e, err := h.Store.GetEvent(ctx, c.Param("id"))
	if err != nil {
		return lookup(c, "event", err)
	}
	req.apply(e)
	if err := h.Store.UpdateEventDetails(ctx, e); err != nil {
		return lookup(c, "event", err)
	}
	fresh, err := h.Store.GetEvent(ctx, e.ID)
	if err != nil {
		return lookup(c, "event", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"event": fresh})
}

type capacityRequest struct {
	TotalTickets *int `json:"totalTickets"`
}

// UpdateCapacity handles PUT /api/events/:id/capacity.
func (h *EventHandler) UpdateCapacity(c echo.Context) error {
	var req capacityRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.TotalTickets == nil {
		return badRequest(c, "missing required field: totalTickets")
	}
	e, err := h.Purchases.ResizeEvent(c.Request().Context(), c.Param("id"), *req.TotalTickets)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"event": e})
}

// Delete handles DELETE /api/events/:id. Events with purchases cannot be
// removed.
func (h *EventHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	e, err := h.Store.GetEvent(ctx, c.Param("id"))
	if err != nil {
		return lookup(c, "event", err)
	}
	if err := h.Store.DeleteEvent(ctx, e.ID); err != nil {
		return lookup(c, "event", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"deleted_event": echo.Map{"id": e.ID, "title": e.Title, "artist": e.Artist},
	})
}
