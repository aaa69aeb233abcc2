// Package purchase orchestrates the purchase lifecycle: creating a
// purchase against event inventory, issuing its tickets, moving it
// between statuses and validating tickets at the venue. The Manager is
// the only writer of inventory deltas; every operation runs in a single
// storage transaction so that partial purchases never persist.
package purchase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/ticket-sales/internal/identity"
	"github.com/iliyamo/ticket-sales/internal/inventory"
	"github.com/iliyamo/ticket-sales/internal/metrics"
	"github.com/iliyamo/ticket-sales/internal/model"
	"github.com/iliyamo/ticket-sales/internal/repository"
)

// orderNumberAttempts bounds retries after an order number collision.
const orderNumberAttempts = 3

// Options configures a Manager. Zero values select defaults.
type Options struct {
	// RefundRestoresInventory makes the refunded transition release
	// tickets exactly like cancelled does.
	RefundRestoresInventory bool
	Notifier                Notifier
	Logger                  *slog.Logger
	IDs                     *identity.Generator
	Clock                   func() time.Time
}

// Manager implements the purchase operations on top of a Store.
type Manager struct {
	store         repository.Store
	ledger        *inventory.Ledger
	ids           *identity.Generator
	notify        Notifier
	log           *slog.Logger
	now           func() time.Time
	refundRelease bool
}

// NewManager wires a Manager to the given store.
func NewManager(store repository.Store, opts Options) *Manager {
	if store == nil {
		panic("nil store passed to NewManager")
	}
	m := &Manager{
		store:         store,
		ids:           opts.IDs,
		notify:        opts.Notifier,
		log:           opts.Logger,
		now:           opts.Clock,
		refundRelease: opts.RefundRestoresInventory,
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	if m.ids == nil {
		m.ids = identity.New()
	}
	if m.notify == nil {
		m.notify = nopNotifier{}
	}
	if m.now == nil {
		m.now = func() time.Time { return time.Now().UTC() }
	}
	m.ledger = inventory.New(m.log)
	return m
}

// CreateRequest is the input of Create. Prices are client supplied; no
// payment gateway checks them.
type CreateRequest struct {
	UserID        uint64
	EventID       string
	Quantity      int
	UnitPrice     decimal.Decimal
	ServiceCharge decimal.Decimal
	TotalPrice    decimal.Decimal
	Notes         *string
}

func (r CreateRequest) validate() error {
	switch {
	case r.UserID == 0:
		return invalidInput("userId is required")
	case r.EventID == "":
		return invalidInput("eventId is required")
	case r.Quantity <= 0:
		return invalidInput("quantity must be a positive integer")
	case r.UnitPrice.IsNegative(), r.ServiceCharge.IsNegative(), r.TotalPrice.IsNegative():
		return invalidInput("prices must not be negative")
	}
	return nil
}

// Created is the result of Create.
type Created struct {
	Purchase *model.Purchase
	Tickets  []model.Ticket
}

// Create validates the user and event, reserves quantity tickets and
// persists the purchase with its tickets, all in one transaction.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*Created, error) {
	if err := req.validate(); err != nil {
		metrics.PurchaseFailed(string(KindInvalidInput))
		return nil, err
	}
	var (
		out *Created
		err error
	)
	for attempt := 1; attempt <= orderNumberAttempts; attempt++ {
		out, err = m.createOnce(ctx, req)
		if !errors.Is(err, repository.ErrDuplicate) {
			break
		}
		m.log.Warn("order number collision, retrying", "attempt", attempt, "event_id", req.EventID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			err = internal("could not allocate a unique order number", err)
		}
		metrics.PurchaseFailed(string(KindOf(err)))
		return nil, err
	}

	p := out.Purchase
	metrics.PurchaseCreated(p.EventID, p.Quantity, p.Event.AvailableTickets)
	m.log.Info("purchase created",
		"purchase_id", p.ID, "order_number", p.OrderNumber, "event_id", p.EventID,
		"user_id", p.UserID, "quantity", p.Quantity, "available", p.Event.AvailableTickets)
	m.notify.PurchaseCreated(ctx, p, out.Tickets)
	return out, nil
}

func (m *Manager) createOnce(ctx context.Context, req CreateRequest) (*Created, error) {
	var out *Created
	err := m.store.InTx(ctx, func(tx repository.Tx) error {
		user, err := tx.GetUser(ctx, req.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("user", err)
			}
			return internal("failed to load user", err)
		}

		event, err := m.ledger.Reserve(ctx, tx, req.EventID, req.Quantity)
		if err != nil {
			var short *inventory.InsufficientError
			switch {
			case errors.Is(err, repository.ErrNotFound):
				return notFound("event", err)
			case errors.As(err, &short):
				return &Error{Kind: KindInsufficientInventory, Message: "not enough tickets available", Err: err}
			}
			return internal("failed to reserve inventory", err)
		}

		now := m.now().Truncate(time.Second)
		order := m.ids.NewOrderNumber(now)
		p := &model.Purchase{
			OrderNumber:   order,
			UserID:        user.ID,
			EventID:       event.ID,
			Quantity:      req.Quantity,
			UnitPrice:     req.UnitPrice,
			ServiceCharge: req.ServiceCharge,
			TotalPrice:    req.TotalPrice,
			PurchaseDate:  now,
			Status:        model.StatusPending,
			QRCodeData:    identity.OrderQR(order, user.Email, req.Quantity),
			Notes:         req.Notes,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.InsertPurchase(ctx, p); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return err
			}
			return internal("failed to create purchase", err)
		}

		tickets := make([]model.Ticket, req.Quantity)
		for i := range tickets {
			number := identity.NewTicketNumber(order, i+1)
			tickets[i] = model.Ticket{
				PurchaseID:   p.ID,
				TicketNumber: number,
				QRCodeData:   identity.TicketQR(number, event.ID, user.Email),
				CreatedAt:    now,
				UpdatedAt:    now,
			}
		}
		if err := tx.InsertTickets(ctx, tickets); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return err
			}
			return internal("failed to create tickets", err)
		}

		p.User = user
		p.Event = event
		out = &Created{Purchase: p, Tickets: tickets}
		return nil
	})
	if err != nil {
		return nil, wrapTxErr(err, "failed to commit purchase")
	}
	return out, nil
}

// StatusChange is the result of UpdateStatus.
type StatusChange struct {
	Purchase *model.Purchase
	From     model.PurchaseStatus
	// Released is the number of tickets returned to inventory.
	Released int
}

// releases reports whether moving from one status to another returns the
// purchase's tickets to inventory. Only the first move out of an
// inventory-holding status releases, so repeats cannot inflate stock.
func (m *Manager) releases(from, to model.PurchaseStatus) bool {
	if from.Terminal() {
		return false
	}
	return to == model.StatusCancelled || (to == model.StatusRefunded && m.refundRelease)
}

// UpdateStatus moves a purchase to status. Requesting the current status
// is a no-op. Transitions into cancelled (and refunded, when configured)
// release the purchase quantity in the same transaction.
func (m *Manager) UpdateStatus(ctx context.Context, purchaseID uint64, status string) (*StatusChange, error) {
	next, ok := model.ParseStatus(status)
	if !ok {
		return nil, &Error{Kind: KindInvalidStatus, Message: "invalid status " + strconv.Quote(status) + "; allowed: pending, completed, cancelled, refunded"}
	}
	var out *StatusChange
	err := m.store.InTx(ctx, func(tx repository.Tx) error {
		p, err := tx.LockPurchase(ctx, purchaseID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("purchase", err)
			}
			return internal("failed to load purchase", err)
		}
		from := p.Status
		out = &StatusChange{Purchase: p, From: from}
		if from == next {
			return nil
		}
		if !from.CanTransition(next) {
			return &Error{Kind: KindInvalidStatus, Message: "cannot change status from " + string(from) + " to " + string(next)}
		}

		if m.releases(from, next) {
			n, err := m.ledger.Release(ctx, tx, p.EventID, p.Quantity)
			switch {
			case errors.Is(err, repository.ErrNotFound):
				m.log.Warn("event missing on release, inventory not restored", "purchase_id", p.ID, "event_id", p.EventID)
			case err != nil:
				return internal("failed to release inventory", err)
			}
			out.Released = n
		}

		now := m.now().Truncate(time.Second)
		if err := tx.UpdatePurchaseStatus(ctx, p.ID, next, now); err != nil {
			return internal("failed to update purchase status", err)
		}
		p.Status = next
		p.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, wrapTxErr(err, "failed to commit status change")
	}

	p := out.Purchase
	if out.From != p.Status {
		metrics.StatusChanged(p.EventID, string(out.From), string(p.Status), out.Released)
		m.log.Info("purchase status changed",
			"purchase_id", p.ID, "from", out.From, "to", p.Status, "released", out.Released)
		m.notify.PurchaseStatusChanged(ctx, p, out.From, out.Released)
	}
	return out, nil
}

// ValidateTicket marks the ticket identified by code (ticket number or QR
// payload) as used. The ticket row is locked, so of any number of
// concurrent validations exactly one succeeds.
func (m *Manager) ValidateTicket(ctx context.Context, code string) (*model.Ticket, error) {
	if code == "" {
		return nil, invalidInput("ticket code is required")
	}
	var out *model.Ticket
	err := m.store.InTx(ctx, func(tx repository.Tx) error {
		t, err := tx.LockTicket(ctx, code)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("ticket", err)
			}
			return internal("failed to load ticket", err)
		}
		if t.IsUsed {
			return &Error{Kind: KindAlreadyUsed, Message: "ticket has already been used", UsedAt: t.UsedAt}
		}
		now := m.now().Truncate(time.Second)
		if err := tx.MarkTicketUsed(ctx, t.ID, now); err != nil {
			return internal("failed to mark ticket used", err)
		}
		t.IsUsed = true
		t.UsedAt = &now
		t.UpdatedAt = now
		out = t
		return nil
	})
	if err != nil {
		err = wrapTxErr(err, "failed to commit ticket validation")
		metrics.TicketValidated(string(KindOf(err)))
		if KindOf(err) == KindAlreadyUsed {
			m.log.Info("ticket rejected: already used", "code", code)
		}
		return nil, err
	}
	metrics.TicketValidated("ok")
	return out, nil
}

// EmailStatus is the outcome of a confirmation email reported by the
// front end.
type EmailStatus struct {
	Sent         bool
	Subject      string
	MessageID    *string
	ErrorMessage *string
}

// RecordEmailStatus stores the email outcome on the purchase and appends
// an email log row.
func (m *Manager) RecordEmailStatus(ctx context.Context, purchaseID uint64, st EmailStatus) (*model.Purchase, error) {
	if st.Subject == "" {
		st.Subject = "Purchase confirmation"
	}
	var out *model.Purchase
	err := m.store.InTx(ctx, func(tx repository.Tx) error {
		p, err := tx.LockPurchase(ctx, purchaseID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("purchase", err)
			}
			return internal("failed to load purchase", err)
		}
		user, err := tx.GetUser(ctx, p.UserID)
		if err != nil {
			return internal("failed to load purchase owner", err)
		}
		now := m.now().Truncate(time.Second)
		if err := tx.SetEmailStatus(ctx, p.ID, st.Sent, now); err != nil {
			return internal("failed to update email status", err)
		}
		status := model.EmailFailed
		p.EmailSent = st.Sent
		if st.Sent {
			status = model.EmailSent
			p.EmailSentAt = &now
		}
		entry := &model.EmailLog{
			PurchaseID:     p.ID,
			EmailType:      "confirmation",
			RecipientEmail: user.Email,
			Subject:        st.Subject,
			Status:         status,
			MessageID:      st.MessageID,
			ErrorMessage:   st.ErrorMessage,
			SentAt:         now,
			CreatedAt:      now,
		}
		if err := tx.InsertEmailLog(ctx, entry); err != nil {
			return internal("failed to write email log", err)
		}
		p.User = user
		out = p
		return nil
	})
	if err != nil {
		return nil, wrapTxErr(err, "failed to commit email status")
	}
	return out, nil
}

// ResizeEvent changes the capacity of an event without touching sold
// quantities.
func (m *Manager) ResizeEvent(ctx context.Context, eventID string, total int) (*model.Event, error) {
	if total < 0 {
		return nil, invalidInput("totalTickets must not be negative")
	}
	var out *model.Event
	err := m.store.InTx(ctx, func(tx repository.Tx) error {
		ev, err := m.ledger.Resize(ctx, tx, eventID, total)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return notFound("event", err)
		case errors.Is(err, inventory.ErrBelowSold):
			return &Error{Kind: KindConflict, Message: "totalTickets is below the number of tickets sold", Err: err}
		case err != nil:
			return internal("failed to resize event", err)
		}
		out = ev
		return nil
	})
	if err != nil {
		return nil, wrapTxErr(err, "failed to commit event capacity")
	}
	metrics.Available(out.ID, out.AvailableTickets)
	return out, nil
}

// wrapTxErr keeps taxonomy errors raised inside a transaction and turns
// anything else (begin/commit failures) into KindInternal.
func wrapTxErr(err error, msg string) error {
	var pe *Error
	if errors.As(err, &pe) || errors.Is(err, repository.ErrDuplicate) {
		return err
	}
	return internal(msg, err)
}
