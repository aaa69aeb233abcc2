// Package queue carries purchase domain events over RabbitMQ: a
// publisher used by the purchase manager and a consumer that keeps an
// append-only purchase log.
package queue

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/ticket-sales/internal/model"
)

// Queue names. Messages go through the default exchange with the queue
// name as routing key.
const (
	QueuePurchaseCreated       = "purchase.created"
	QueuePurchaseStatusChanged = "purchase.status_changed"
)

// Queues lists every queue declared by the publisher and consumer.
var Queues = []string{QueuePurchaseCreated, QueuePurchaseStatusChanged}

// PurchaseEvent is the payload of both queues. It carries enough to log
// or notify without reading the primary database.
type PurchaseEvent struct {
	Type           string          `json:"type"`
	PurchaseID     uint64          `json:"purchase_id"`
	OrderNumber    string          `json:"order_number"`
	UserID         uint64          `json:"user_id"`
	UserEmail      string          `json:"user_email,omitempty"`
	EventID        string          `json:"event_id"`
	EventTitle     string          `json:"event_title,omitempty"`
	Quantity       int             `json:"quantity"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	Status         string          `json:"status"`
	PreviousStatus string          `json:"previous_status,omitempty"`
	Released       int             `json:"released,omitempty"`
	Available      *int            `json:"available,omitempty"`
	TicketNumbers  []string        `json:"ticket_numbers,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

func newEvent(typ string, p *model.Purchase, at time.Time) PurchaseEvent {
	ev := PurchaseEvent{
		Type:        typ,
		PurchaseID:  p.ID,
		OrderNumber: p.OrderNumber,
		UserID:      p.UserID,
		EventID:     p.EventID,
		Quantity:    p.Quantity,
		TotalPrice:  p.TotalPrice,
		Status:      string(p.Status),
		OccurredAt:  at,
	}
	if p.User != nil {
		ev.UserEmail = p.User.Email
	}
	if p.Event != nil {
		ev.EventTitle = p.Event.Title
		n := p.Event.AvailableTickets
		ev.Available = &n
	}
	return ev
}

// CreatedEvent builds the purchase.created payload.
func CreatedEvent(p *model.Purchase, tickets []model.Ticket, at time.Time) PurchaseEvent {
	ev := newEvent(QueuePurchaseCreated, p, at)
	for _, t := range tickets {
		ev.TicketNumbers = append(ev.TicketNumbers, t.TicketNumber)
	}
	return ev
}

// StatusChangedEvent builds the purchase.status_changed payload.
func StatusChangedEvent(p *model.Purchase, from model.PurchaseStatus, released int, at time.Time) PurchaseEvent {
	ev := newEvent(QueuePurchaseStatusChanged, p, at)
	ev.PreviousStatus = string(from)
	ev.Released = released
	ev.Available = nil
	return ev
}
