package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseStatus is the lifecycle state of a purchase.
type PurchaseStatus string

const (
	StatusPending   PurchaseStatus = "pending"
	StatusCompleted PurchaseStatus = "completed"
	StatusCancelled PurchaseStatus = "cancelled"
	StatusRefunded  PurchaseStatus = "refunded"
)

// Statuses lists every recognized status in lifecycle order.
var Statuses = []PurchaseStatus{StatusPending, StatusCompleted, StatusCancelled, StatusRefunded}

// ParseStatus returns the status named by s and whether it is recognized.
func ParseStatus(s string) (PurchaseStatus, bool) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Terminal reports whether no further transition may leave this status.
func (s PurchaseStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusRefunded
}

// CanTransition reports whether a purchase in status s may move to next.
// Staying in the same status is not a transition and is handled by callers.
func (s PurchaseStatus) CanTransition(next PurchaseStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusCompleted || next == StatusCancelled || next == StatusRefunded
	case StatusCompleted:
		return next == StatusCancelled || next == StatusRefunded
	}
	return false
}

// Purchase records a single checkout against one event. It owns its
// tickets; the event and the user are only referenced.
//
// Fields:
//  OrderNumber   – unique human-readable identifier (ORD-YYYYMMDD-XXXXXXXX).
//  Quantity      – number of tickets issued with the purchase.
//  UnitPrice     – client-supplied price per ticket.
//  ServiceCharge – client-supplied fee, zero when absent.
//  TotalPrice    – client-supplied total; no payment gateway verifies it.
//  Status        – pending, completed, cancelled or refunded.
//  EmailSent     – whether the confirmation email went out.
//  QRCodeData    – order-level QR payload summarizing the purchase.
type Purchase struct {
	ID            uint64          `json:"id"`
	OrderNumber   string          `json:"orderNumber"`
	UserID        uint64          `json:"userId"`
	EventID       string          `json:"eventId"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	ServiceCharge decimal.Decimal `json:"serviceCharge"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	PurchaseDate  time.Time       `json:"purchaseDate"`
	Status        PurchaseStatus  `json:"status"`
	EmailSent     bool            `json:"emailSent"`
	EmailSentAt   *time.Time      `json:"emailSentAt"`
	QRCodeData    string          `json:"qrCodeData"`
	Notes         *string         `json:"notes"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`

	User  *User  `json:"user,omitempty"`
	Event *Event `json:"event,omitempty"`
}

// PurchaseFilter narrows purchase listings. Zero values mean "any".
type PurchaseFilter struct {
	Status  PurchaseStatus
	EventID string
	UserID  uint64
}

// Page is a 1-based pagination request.
type Page struct {
	Number  int
	PerPage int
}

// MaxPerPage caps the page size of every listing.
const MaxPerPage = 100

// Normalize clamps the page into its accepted range; defaults to 1/50.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.PerPage < 1 {
		p.PerPage = 50
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

// Offset is the row offset of the page.
func (p Page) Offset() int { return (p.Number - 1) * p.PerPage }

// Pagination describes the position of a page within a listing.
type Pagination struct {
	Page    int  `json:"page"`
	Pages   int  `json:"pages"`
	PerPage int  `json:"per_page"`
	Total   int  `json:"total"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

// NewPagination computes the page metadata for total matching rows.
func NewPagination(p Page, total int) Pagination {
	pages := 0
	if p.PerPage > 0 {
		pages = (total + p.PerPage - 1) / p.PerPage
	}
	return Pagination{
		Page:    p.Number,
		Pages:   pages,
		PerPage: p.PerPage,
		Total:   total,
		HasNext: p.Number < pages,
		HasPrev: p.Number > 1,
	}
}
