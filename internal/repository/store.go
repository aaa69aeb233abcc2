package repository

import (
	"context"
	"time"

	"github.com/iliyamo/ticket-sales/internal/model"
)

// Tx is the set of operations available inside one storage transaction.
// The Lock* methods take a row-level write lock (SELECT ... FOR UPDATE
// in MySQL) that is held until the transaction ends, which serializes
// concurrent purchases of the same event and concurrent validations of
// the same ticket.
type Tx interface {
	GetUser(ctx context.Context, id uint64) (*model.User, error)

	LockEvent(ctx context.Context, id string) (*model.Event, error)
	SetEventInventory(ctx context.Context, id string, available, total int, at time.Time) error

	InsertPurchase(ctx context.Context, p *model.Purchase) error
	InsertTickets(ctx context.Context, tickets []model.Ticket) error
	LockPurchase(ctx context.Context, id uint64) (*model.Purchase, error)
	UpdatePurchaseStatus(ctx context.Context, id uint64, status model.PurchaseStatus, at time.Time) error
	SetEmailStatus(ctx context.Context, purchaseID uint64, sent bool, at time.Time) error
	InsertEmailLog(ctx context.Context, l *model.EmailLog) error

	// LockTicket finds a ticket by ticket number or QR payload.
	LockTicket(ctx context.Context, code string) (*model.Ticket, error)
	MarkTicketUsed(ctx context.Context, id uint64, at time.Time) error
}

// ReportFilter selects purchases for sales reporting. Zero values mean
// "any"; From and To are inclusive bounds on the purchase date.
type ReportFilter struct {
	EventID string
	From    *time.Time
	To      *time.Time
}

// Store is the storage collaborator: transactional writes through InTx
// plus the plain reads and admin writes used by handlers and reports.
type Store interface {
	// InTx runs fn inside a transaction. The transaction commits when fn
	// returns nil and rolls back otherwise; fn's error is returned as is.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id uint64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context, page model.Page) ([]model.User, int, error)

	CreateEvent(ctx context.Context, e *model.Event) error
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	ListEvents(ctx context.Context, f model.EventFilter, page model.Page) ([]model.Event, int, error)
	// UpdateEventDetails writes descriptive fields and the active flag;
	// inventory counters are never written here.
	UpdateEventDetails(ctx context.Context, e *model.Event) error
	DeleteEvent(ctx context.Context, id string) error

	GetPurchase(ctx context.Context, id uint64) (*model.Purchase, error)
	GetPurchaseByOrder(ctx context.Context, orderNumber string) (*model.Purchase, error)
	ListPurchases(ctx context.Context, f model.PurchaseFilter, page model.Page) ([]model.Purchase, int, error)
	ListPurchasesForReport(ctx context.Context, f ReportFilter) ([]model.Purchase, error)

	GetTicket(ctx context.Context, ticketNumber string) (*model.Ticket, error)
	GetTicketByQR(ctx context.Context, qr string) (*model.Ticket, error)
	ListTicketsByPurchase(ctx context.Context, purchaseID uint64) ([]model.Ticket, error)
}
