// Package report builds sales reports from purchase records. It only
// reads; the aggregation is rendered as JSON by the handlers or as PDF and
// XLSX documents by WritePDF and WriteXLSX.
package report

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/ticket-sales/internal/model"
	"github.com/iliyamo/ticket-sales/internal/repository"
)

// Source is the read side of the store used for reporting.
type Source interface {
	ListPurchasesForReport(ctx context.Context, f repository.ReportFilter) ([]model.Purchase, error)
}

// Summary holds the headline figures of a report.
type Summary struct {
	TotalSales      decimal.Decimal `json:"total_sales"`
	TotalTickets    int             `json:"total_tickets"`
	TotalPurchases  int             `json:"total_purchases"`
	AverageSale     decimal.Decimal `json:"average_sale"`
	TopCategory     *string         `json:"top_category"`
	TopRevenueGroup *string         `json:"top_revenue_category"`
}

// CategoryRow aggregates the purchases of one event category.
type CategoryRow struct {
	Category     string          `json:"category"`
	Tickets      int             `json:"tickets"`
	Sales        decimal.Decimal `json:"sales"`
	AveragePrice decimal.Decimal `json:"average_price"`
}

// EventRow aggregates the purchases of one event.
type EventRow struct {
	EventID string          `json:"event_id"`
	Title   string          `json:"title"`
	Tickets int             `json:"tickets"`
	Sales   decimal.Decimal `json:"sales"`
}

// DetailRow is one purchase as listed in the report.
type DetailRow struct {
	PurchaseID    uint64          `json:"purchase_id"`
	OrderNumber   string          `json:"order_number"`
	PurchaseDate  time.Time       `json:"purchase_date"`
	Status        string          `json:"status"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	ServiceCharge decimal.Decimal `json:"service_charge"`
	Total         decimal.Decimal `json:"total"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	EventID       string          `json:"event_id"`
	EventTitle    string          `json:"event_title"`
	EventDate     string          `json:"event_date"`
	Venue         string          `json:"venue"`
	Category      string          `json:"category"`
}

// Filters echoes the selection a report was built for.
type Filters struct {
	EventID string     `json:"event_id,omitempty"`
	From    *time.Time `json:"from,omitempty"`
	To      *time.Time `json:"to,omitempty"`
}

// Sales is a complete sales report.
type Sales struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Filters     Filters       `json:"filters"`
	Summary     Summary       `json:"summary"`
	Categories  []CategoryRow `json:"by_category"`
	Events      []EventRow    `json:"by_event"`
	Details     []DetailRow   `json:"details"`
	Records     int           `json:"records"`
}

// Build loads the purchases selected by f and aggregates them.
func Build(ctx context.Context, src Source, f repository.ReportFilter, now time.Time) (*Sales, error) {
	purchases, err := src.ListPurchasesForReport(ctx, f)
	if err != nil {
		return nil, err
	}
	s := Aggregate(purchases, now)
	s.Filters = Filters{EventID: f.EventID, From: f.From, To: f.To}
	return s, nil
}

// counts reports whether a purchase contributes to sales. Cancelled and
// refunded purchases gave their tickets back.
func counts(p *model.Purchase) bool {
	return p.Status != model.StatusCancelled && p.Status != model.StatusRefunded
}

// Aggregate computes a report over purchases, keeping their order in the
// detail rows. Categories are sorted by name and events by sales, highest
// first.
func Aggregate(purchases []model.Purchase, now time.Time) *Sales {
	s := &Sales{
		GeneratedAt: now,
		Categories:  []CategoryRow{},
		Events:      []EventRow{},
		Details:     []DetailRow{},
	}
	cats := map[string]*CategoryRow{}
	events := map[string]*EventRow{}

	for i := range purchases {
		p := &purchases[i]
		if !counts(p) {
			continue
		}
		category := "General"
		title := "Event " + p.EventID
		var date, venue string
		if p.Event != nil {
			category = p.Event.CategoryOrDefault()
			title = p.Event.Title
			date = p.Event.Date
			venue = p.Event.Venue
		}

		s.Summary.TotalSales = s.Summary.TotalSales.Add(p.TotalPrice)
		s.Summary.TotalTickets += p.Quantity
		s.Summary.TotalPurchases++

		c, ok := cats[category]
		if !ok {
			c = &CategoryRow{Category: category}
			cats[category] = c
		}
		c.Tickets += p.Quantity
		c.Sales = c.Sales.Add(p.TotalPrice)

		e, ok := events[p.EventID]
		if !ok {
			e = &EventRow{EventID: p.EventID, Title: title}
			events[p.EventID] = e
		}
		e.Tickets += p.Quantity
		e.Sales = e.Sales.Add(p.TotalPrice)

		d := DetailRow{
			PurchaseID:    p.ID,
			OrderNumber:   p.OrderNumber,
			PurchaseDate:  p.PurchaseDate,
			Status:        string(p.Status),
			Quantity:      p.Quantity,
			UnitPrice:     p.UnitPrice,
			ServiceCharge: p.ServiceCharge,
			Total:         p.TotalPrice,
			EventID:       p.EventID,
			EventTitle:    title,
			EventDate:     date,
			Venue:         venue,
			Category:      category,
		}
		if p.User != nil {
			d.CustomerName = p.User.Name + " " + p.User.LastName
			d.CustomerEmail = p.User.Email
		}
		s.Details = append(s.Details, d)
	}

	if n := s.Summary.TotalPurchases; n > 0 {
		s.Summary.AverageSale = s.Summary.TotalSales.DivRound(decimal.NewFromInt(int64(n)), 2)
	}

	for _, c := range cats {
		if c.Tickets > 0 {
			c.AveragePrice = c.Sales.DivRound(decimal.NewFromInt(int64(c.Tickets)), 2)
		}
		s.Categories = append(s.Categories, *c)
	}
	sort.Slice(s.Categories, func(i, j int) bool { return s.Categories[i].Category < s.Categories[j].Category })

	for _, e := range events {
		s.Events = append(s.Events, *e)
	}
	sort.Slice(s.Events, func(i, j int) bool {
		if !s.Events[i].Sales.Equal(s.Events[j].Sales) {
			return s.Events[i].Sales.GreaterThan(s.Events[j].Sales)
		}
		return s.Events[i].EventID < s.Events[j].EventID
	})

	// Categories are already sorted, so ties resolve to the first name.
	var byTickets, byRevenue *CategoryRow
	for i := range s.Categories {
		c := &s.Categories[i]
		if byTickets == nil || c.Tickets > byTickets.Tickets {
			byTickets = c
		}
		if byRevenue == nil || c.Sales.GreaterThan(byRevenue.Sales) {
			byRevenue = c
		}
	}
	if byTickets != nil {
		s.Summary.TopCategory = &byTickets.Category
		s.Summary.TopRevenueGroup = &byRevenue.Category
	}
	s.Records = len(s.Details)
	return s
}
