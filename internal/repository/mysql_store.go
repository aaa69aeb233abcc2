package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/ticket-sales/internal/model"
)

// MySQLStore is the production Store. It groups the table repositories
// and runs transactional work on a single *sql.Tx.
type MySQLStore struct {
	db        *sql.DB
	Users     *UserRepo
	Events    *EventRepo
	Purchases *PurchaseRepo
	Tickets   *TicketRepo
}

var _ Store = (*MySQLStore)(nil)

// NewMySQLStore returns a Store bound to db.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	if db == nil {
		panic("nil db passed to NewMySQLStore")
	}
	return &MySQLStore{
		db:        db,
		Users:     NewUserRepo(db),
		Events:    NewEventRepo(db),
		Purchases: NewPurchaseRepo(db),
		Tickets:   NewTicketRepo(db),
	}
}

// DB exposes the underlying pool for health checks.
func (s *MySQLStore) DB() *sql.DB { return s.db }

// InTx begins a transaction, hands fn a Tx bound to it and commits when fn
// succeeds. Any error from fn rolls the transaction back.
func (s *MySQLStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&sqlTx{tx: tx, s: s}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return translate(err)
	}
	committed = true
	return nil
}

type sqlTx struct {
	tx *sql.Tx
	s  *MySQLStore
}

func (t *sqlTx) GetUser(ctx context.Context, id uint64) (*model.User, error) {
	return t.s.Users.GetByIDTx(ctx, t.tx, id)
}

func (t *sqlTx) LockEvent(ctx context.Context, id string) (*model.Event, error) {
	return t.s.Events.LockTx(ctx, t.tx, id)
}

func (t *sqlTx) SetEventInventory(ctx context.Context, id string, available, total int, at time.Time) error {
	return t.s.Events.SetInventoryTx(ctx, t.tx, id, available, total, at)
}

func (t *sqlTx) InsertPurchase(ctx context.Context, p *model.Purchase) error {
	return t.s.Purchases.CreateTx(ctx, t.tx, p)
}

func (t *sqlTx) InsertTickets(ctx context.Context, tickets []model.Ticket) error {
	return t.s.Tickets.CreateBulkTx(ctx, t.tx, tickets)
}

func (t *sqlTx) LockPurchase(ctx context.Context, id uint64) (*model.Purchase, error) {
	return t.s.Purchases.LockTx(ctx, t.tx, id)
}

func (t *sqlTx) UpdatePurchaseStatus(ctx context.Context, id uint64, status model.PurchaseStatus, at time.Time) error {
	return t.s.Purchases.UpdateStatusTx(ctx, t.tx, id, status, at)
}

func (t *sqlTx) SetEmailStatus(ctx context.Context, purchaseID uint64, sent bool, at time.Time) error {
	return t.s.Purchases.SetEmailStatusTx(ctx, t.tx, purchaseID, sent, at)
}

func (t *sqlTx) InsertEmailLog(ctx context.Context, l *model.EmailLog) error {
	return t.s.Purchases.CreateEmailLogTx(ctx, t.tx, l)
}

func (t *sqlTx) LockTicket(ctx context.Context, code string) (*model.Ticket, error) {
	return t.s.Tickets.LockTx(ctx, t.tx, code)
}

func (t *sqlTx) MarkTicketUsed(ctx context.Context, id uint64, at time.Time) error {
	return t.s.Tickets.MarkUsedTx(ctx, t.tx, id, at)
}

func (s *MySQLStore) CreateUser(ctx context.Context, u *model.User) error {
	return s.Users.Create(ctx, u)
}

func (s *MySQLStore) GetUser(ctx context.Context, id uint64) (*model.User, error) {
	return s.Users.GetByID(ctx, id)
}

func (s *MySQLStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.Users.GetByEmail(ctx, email)
}

func (s *MySQLStore) ListUsers(ctx context.Context, page model.Page) ([]model.User, int, error) {
	return s.Users.List(ctx, page)
}

func (s *MySQLStore) CreateEvent(ctx context.Context, e *model.Event) error {
	return s.Events.Create(ctx, e)
}

func (s *MySQLStore) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return s.Events.GetByID(ctx, id)
}

func (s *MySQLStore) ListEvents(ctx context.Context, f model.EventFilter, page model.Page) ([]model.Event, int, error) {
	return s.Events.List(ctx, f, page)
}

func (s *MySQLStore) UpdateEventDetails(ctx context.Context, e *model.Event) error {
	return s.Events.UpdateDetails(ctx, e)
}

func (s *MySQLStore) DeleteEvent(ctx context.Context, id string) error {
	return s.Events.Delete(ctx, id)
}

func (s *MySQLStore) GetPurchase(ctx context.Context, id uint64) (*model.Purchase, error) {
	return s.Purchases.GetByID(ctx, id)
}

func (s *MySQLStore) GetPurchaseByOrder(ctx context.Context, orderNumber string) (*model.Purchase, error) {
	return s.Purchases.GetByOrderNumber(ctx, orderNumber)
}

func (s *MySQLStore) ListPurchases(ctx context.Context, f model.PurchaseFilter, page model.Page) ([]model.Purchase, int, error) {
	return s.Purchases.List(ctx, f, page)
}

func (s *MySQLStore) ListPurchasesForReport(ctx context.Context, f ReportFilter) ([]model.Purchase, error) {
	return s.Purchases.ListForReport(ctx, f)
}

func (s *MySQLStore) GetTicket(ctx context.Context, ticketNumber string) (*model.Ticket, error) {
	return s.Tickets.GetByNumber(ctx, ticketNumber)
}

func (s *MySQLStore) GetTicketByQR(ctx context.Context, qr string) (*model.Ticket, error) {
	return s.Tickets.GetByQR(ctx, qr)
}

func (s *MySQLStore) ListTicketsByPurchase(ctx context.Context, purchaseID uint64) ([]model.Ticket, error) {
	return s.Tickets.ListByPurchase(ctx, purchaseID)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func stringArg(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// count runs a COUNT(*) query.
func count(ctx context.Context, q querier, query string, args ...any) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
