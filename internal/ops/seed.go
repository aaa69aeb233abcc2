package ops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/ticket-sales/internal/model"
	"github.com/iliyamo/ticket-sales/internal/purchase"
	"github.com/iliyamo/ticket-sales/internal/repository"
)

type seedEvent struct {
	id, title, artist, date, venue, location, category, price string
	tickets                                                   int
}

var seedEvents = []seedEvent{
	{"rock-festival-2026", "Rock Festival 2026", "Various Artists", "2026-03-15", "Municipal Amphitheatre", "Lisbon", "Rock", "45.00", 500},
	{"acoustic-spring", "Acoustic Spring Concert", "The Quiet Strings", "2026-02-14", "Municipal Theatre", "Porto", "Acoustic", "30.00", 200},
	{"digital-innovation-talk", "Keynote: Digital Innovation", "Dr. Maria Costa", "2026-01-20", "Convention Centre", "Lisbon", "Conference", "25.00", 150},
	{"contemporary-dance", "Contemporary Dance Night", "Companhia Nova", "2026-04-10", "Municipal Theatre", "Porto", "Dance", "35.00", 180},
	{"symphony-gala", "Symphony Gala", "National Orchestra", "2026-05-25", "Open Air Amphitheatre", "Coimbra", "Classical", "60.00", 300},
}

var seedUsers = []model.User{
	{Email: "juan.perez@example.com", Name: "Juan", LastName: "Perez"},
	{Email: "maria.gonzalez@example.com", Name: "Maria", LastName: "Gonzalez"},
	{Email: "carlos.lopez@example.com", Name: "Carlos", LastName: "Lopez"},
	{Email: "ana.martinez@example.com", Name: "Ana", LastName: "Martinez"},
	{Email: "admin@example.com", Name: "Admin", LastName: "User", IsAdmin: true},
}

// SeedOptions controls Seed.
type SeedOptions struct {
	// Purchases is the number of purchases to attempt per event.
	Purchases int
	// Rand drives quantities and statuses; nil uses a fixed seed.
	Rand *rand.Rand
	Log  *slog.Logger
}

// SeedResult counts what Seed created.
type SeedResult struct {
	Users, Events, Purchases, Cancelled, Completed int
}

// Seed creates demo users and events, skipping the ones that already
// exist, then buys tickets through the purchase manager so the data goes
// through the same inventory rules as live traffic.
func Seed(ctx context.Context, store repository.Store, mgr *purchase.Manager, opts SeedOptions) (SeedResult, error) {
	var res SeedResult
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 2))
	}

	users := make([]*model.User, 0, len(seedUsers))
	for _, tmpl := range seedUsers {
		u := tmpl
		err := store.CreateUser(ctx, &u)
		switch {
		case err == nil:
			res.Users++
		case errors.Is(err, repository.ErrDuplicate):
			existing, err := store.GetUserByEmail(ctx, u.Email)
			if err != nil {
				return res, fmt.Errorf("load user %s: %w", u.Email, err)
			}
			u = *existing
		default:
			return res, fmt.Errorf("create user %s: %w", u.Email, err)
		}
		users = append(users, &u)
	}

	for _, se := range seedEvents {
		category := se.category
		e := &model.Event{
			ID: se.id, Title: se.title, Artist: se.artist, Date: se.date,
			Venue: se.venue, Location: se.location, Category: &category,
			Price:            decimal.RequireFromString(se.price),
			AvailableTickets: se.tickets, TotalTickets: se.tickets, IsActive: true,
		}
		switch err := store.CreateEvent(ctx, e); {
		case err == nil:
			res.Events++
		case errors.Is(err, repository.ErrDuplicate):
		default:
			return res, fmt.Errorf("create event %s: %w", se.id, err)
		}

		for i := 0; i < opts.Purchases; i++ {
			u := users[rng.IntN(len(users))]
			qty := 1 + rng.IntN(4)
			price := decimal.RequireFromString(se.price)
			fee := price.Mul(decimal.NewFromFloat(0.1)).Round(2)
			out, err := mgr.Create(ctx, purchase.CreateRequest{
				UserID:        u.ID,
				EventID:       se.id,
				Quantity:      qty,
				UnitPrice:     price,
				ServiceCharge: fee,
				TotalPrice:    price.Add(fee).Mul(decimal.NewFromInt(int64(qty))),
			})
			if purchase.KindOf(err) == purchase.KindInsufficientInventory {
				log.Info("event sold out while seeding", "event_id", se.id)
				break
			}
			if err != nil {
				return res, fmt.Errorf("purchase for %s: %w", se.id, err)
			}
			res.Purchases++

			next := model.StatusCompleted
			switch r := rng.IntN(10); {
			case r == 0:
				next = model.StatusCancelled
			case r < 3:
				continue
			}
			if _, err := mgr.UpdateStatus(ctx, out.Purchase.ID, string(next)); err != nil {
				return res, fmt.Errorf("update %s: %w", out.Purchase.OrderNumber, err)
			}
			if next == model.StatusCancelled {
				res.Cancelled++
			} else {
				res.Completed++
			}
		}
	}
	return res, nil
}
