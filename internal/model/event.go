package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event represents a ticketed occasion as stored in the `events` table.
// The primary key is a stable external string identifier chosen by the
// administrator (the web front end links to events by this id).
//
// Fields:
//  ID               – opaque string identifier (events.id).
//  Title, Artist    – display information.
//  Date, Time       – free-form schedule strings as published by the venue.
//  Venue, Location  – where the event takes place.
//  Price            – list price of one ticket.
//  Category         – grouping used by sales reports.
//  TotalTickets     – capacity, fixed at creation unless adjusted by an admin.
//  AvailableTickets – unsold inventory; only the inventory ledger changes it.
//  IsActive         – whether the event is offered for sale.
type Event struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	Artist           string          `json:"artist"`
	Date             string          `json:"date"`
	Time             *string         `json:"time"`
	Venue            string          `json:"venue"`
	Location         string          `json:"location"`
	Price            decimal.Decimal `json:"price"`
	Image            *string         `json:"image"`
	Description      *string         `json:"description"`
	Category         *string         `json:"category"`
	AvailableTickets int             `json:"availableTickets"`
	TotalTickets     int             `json:"totalTickets"`
	IsActive         bool            `json:"isActive"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// SoldTickets is the quantity currently held by non-released purchases.
func (e *Event) SoldTickets() int { return e.TotalTickets - e.AvailableTickets }

// CategoryOrDefault returns the report grouping for the event.
func (e *Event) CategoryOrDefault() string {
	if e.Category == nil || *e.Category == "" {
		return "General"
	}
	return *e.Category
}

// EventFilter narrows event listings.
type EventFilter struct {
	Category   string
	ActiveOnly bool
}
