// Package ops holds operational routines run by ticketctl: seeding demo
// data and verifying inventory consistency.
package ops

import (
	"context"
	"fmt"
	"io"

	"github.com/iliyamo/ticket-sales/internal/model"
	"github.com/iliyamo/ticket-sales/internal/repository"
)

// EventCheck is the verification result of one event.
type EventCheck struct {
	EventID   string
	Title     string
	Total     int
	Available int
	// Held is the quantity of purchases still holding inventory.
	Held int
	// TicketMismatches lists purchases whose ticket count differs from
	// their quantity.
	TicketMismatches []string
}

// Drift is how far available + held is from total; zero when consistent.
func (c EventCheck) Drift() int { return c.Available + c.Held - c.Total }

// OK reports whether the event is consistent.
func (c EventCheck) OK() bool { return c.Drift() == 0 && len(c.TicketMismatches) == 0 }

// holds reports whether a purchase in status st still holds tickets.
func holds(st model.PurchaseStatus, refundRestores bool) bool {
	switch st {
	case model.StatusCancelled:
		return false
	case model.StatusRefunded:
		return !refundRestores
	}
	return true
}

// Verify checks every event: available + Σ held quantity must equal
// total, and every purchase must own exactly quantity tickets.
func Verify(ctx context.Context, store repository.Store, refundRestores bool) ([]EventCheck, error) {
	var out []EventCheck
	page := model.Page{Number: 1, PerPage: model.MaxPerPage}
	for {
		events, total, err := store.ListEvents(ctx, model.EventFilter{}, page)
		if err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}
		for _, e := range events {
			c, err := checkEvent(ctx, store, e, refundRestores)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
		if page.Number*page.PerPage >= total {
			return out, nil
		}
		page.Number++
	}
}

func checkEvent(ctx context.Context, store repository.Store, e model.Event, refundRestores bool) (EventCheck, error) {
	c := EventCheck{EventID: e.ID, Title: e.Title, Total: e.TotalTickets, Available: e.AvailableTickets}
	purchases, err := store.ListPurchasesForReport(ctx, repository.ReportFilter{EventID: e.ID})
	if err != nil {
		return c, fmt.Errorf("list purchases of %s: %w", e.ID, err)
	}
	for _, p := range purchases {
		if holds(p.Status, refundRestores) {
			c.Held += p.Quantity
		}
		tickets, err := store.ListTicketsByPurchase(ctx, p.ID)
		if err != nil {
			return c, fmt.Errorf("list tickets of %s: %w", p.OrderNumber, err)
		}
		if len(tickets) != p.Quantity {
			c.TicketMismatches = append(c.TicketMismatches,
				fmt.Sprintf("%s has %d tickets for quantity %d", p.OrderNumber, len(tickets), p.Quantity))
		}
	}
	return c, nil
}

// PrintChecks writes a human readable report and returns the number of
// inconsistent events.
func PrintChecks(w io.Writer, checks []EventCheck) int {
	bad := 0
	for _, c := range checks {
		mark := "OK   "
		if !c.OK() {
			mark = "DRIFT"
			bad++
		}
		fmt.Fprintf(w, "%s %-20s total=%d available=%d held=%d drift=%+d\n",
			mark, c.EventID, c.Total, c.Available, c.Held, c.Drift())
		for _, m := range c.TicketMismatches {
			fmt.Fprintf(w, "      %s\n", m)
		}
	}
	fmt.Fprintf(w, "%d events checked, %d inconsistent\n", len(checks), bad)
	return bad
}
