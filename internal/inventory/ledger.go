// Package inventory owns the available-ticket counter of every event.
// The counter is only changed through Reserve, Release and Resize, each
// of which works on an event row locked by the caller's transaction.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/ticket-sales/internal/model"
)

// Rows is the part of a storage transaction the ledger needs.
type Rows interface {
	LockEvent(ctx context.Context, id string) (*model.Event, error)
	SetEventInventory(ctx context.Context, id string, available, total int, at time.Time) error
}

// ErrInvalidQuantity is returned for a non-positive quantity.
var ErrInvalidQuantity = errors.New("quantity must be positive")

// ErrInsufficientInventory matches every *InsufficientError via errors.Is.
var ErrInsufficientInventory = errors.New("insufficient inventory")

// InsufficientError reports a reservation larger than the remaining stock.
type InsufficientError struct {
	EventID   string
	Requested int
	Available int
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("event %s: requested %d tickets, %d available", e.EventID, e.Requested, e.Available)
}

func (e *InsufficientError) Is(target error) bool { return target == ErrInsufficientInventory }

// ErrBelowSold is returned when a capacity change would leave fewer
// tickets than are already sold.
var ErrBelowSold = errors.New("capacity below sold tickets")

// Ledger applies inventory deltas.
type Ledger struct {
	log *slog.Logger
	now func() time.Time
}

// New returns a Ledger logging to log (slog.Default when nil).
func New(log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Reserve takes quantity tickets from the event. It locks the event row,
// so the availability check and the decrement cannot interleave with
// another reservation of the same event. The returned event carries the
// decremented counter.
func (l *Ledger) Reserve(ctx context.Context, rows Rows, eventID string, quantity int) (*model.Event, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	ev, err := rows.LockEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if quantity > ev.AvailableTickets {
		return nil, &InsufficientError{EventID: eventID, Requested: quantity, Available: ev.AvailableTickets}
	}
	ev.AvailableTickets -= quantity
	if err := rows.SetEventInventory(ctx, eventID, ev.AvailableTickets, ev.TotalTickets, l.now()); err != nil {
		return nil, err
	}
	return ev, nil
}

// Release returns quantity tickets to the event and reports how many were
// actually returned. The counter never exceeds total_tickets: any excess
// indicates a release without a matching reservation and is dropped with
// a warning.
func (l *Ledger) Release(ctx context.Context, rows Rows, eventID string, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, ErrInvalidQuantity
	}
	ev, err := rows.LockEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}
	released := quantity
	if room := ev.TotalTickets - ev.AvailableTickets; released > room {
		l.log.Warn("inventory release clamped",
			"event_id", eventID, "requested", quantity, "released", room,
			"available", ev.AvailableTickets, "total", ev.TotalTickets)
		released = room
	}
	if released == 0 {
		return 0, nil
	}
	if err := rows.SetEventInventory(ctx, eventID, ev.AvailableTickets+released, ev.TotalTickets, l.now()); err != nil {
		return 0, err
	}
	return released, nil
}

// Resize changes the capacity of an event. Available tickets move by the
// same delta as the total, so sold quantities are preserved.
func (l *Ledger) Resize(ctx context.Context, rows Rows, eventID string, total int) (*model.Event, error) {
	ev, err := rows.LockEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if total < ev.SoldTickets() {
		return nil, ErrBelowSold
	}
	ev.AvailableTickets = total - ev.SoldTickets()
	ev.TotalTickets = total
	if err := rows.SetEventInventory(ctx, eventID, ev.AvailableTickets, ev.TotalTickets, l.now()); err != nil {
		return nil, err
	}
	return ev, nil
}
