// Package memory is an in-process repository.Store for local development
// and tests. Transactions are fully serialized and run against a private
// copy of the data that replaces the committed state only when the
// transaction function succeeds.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/ticket-sales/internal/model"
	"github.com/iliyamo/ticket-sales/internal/repository"
)

type state struct {
	users     map[uint64]model.User
	events    map[string]model.Event
	purchases map[uint64]model.Purchase
	tickets   map[uint64]model.Ticket
	emailLogs []model.EmailLog

	userSeq, purchaseSeq, ticketSeq, logSeq uint64
}

func newState() *state {
	return &state{
		users:     map[uint64]model.User{},
		events:    map[string]model.Event{},
		purchases: map[uint64]model.Purchase{},
		tickets:   map[uint64]model.Ticket{},
	}
}

func (s *state) clone() *state {
	c := &state{
		users:       make(map[uint64]model.User, len(s.users)),
		events:      make(map[string]model.Event, len(s.events)),
		purchases:   make(map[uint64]model.Purchase, len(s.purchases)),
		tickets:     make(map[uint64]model.Ticket, len(s.tickets)),
		emailLogs:   append([]model.EmailLog(nil), s.emailLogs...),
		userSeq:     s.userSeq,
		purchaseSeq: s.purchaseSeq,
		ticketSeq:   s.ticketSeq,
		logSeq:      s.logSeq,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.purchases {
		c.purchases[k] = v
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	return c
}

// Store is a repository.Store held in memory.
type Store struct {
	mu    sync.Mutex
	st    *state
	fails map[string]error
}

var _ repository.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{st: newState(), fails: map[string]error{}}
}

// FailOn makes the next call of the named Tx method (e.g. "InsertTickets")
// return err. It exists to exercise rollback paths.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fails[method] = err
}

// EmailLogs returns a copy of the email log.
func (s *Store) EmailLogs() []model.EmailLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.EmailLog(nil), s.st.emailLogs...)
}

// InTx runs fn against a private copy of the data and publishes the copy
// when fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(&tx{st: work, store: s}); err != nil {
		return err
	}
	s.st = work
	return nil
}

type tx struct {
	st    *state
	store *Store
}

// fail consumes an injected failure for method. The store mutex is held
// by InTx for the life of the transaction.
func (t *tx) fail(method string) error {
	if err, ok := t.store.fails[method]; ok {
		delete(t.store.fails, method)
		return err
	}
	return nil
}

func (t *tx) GetUser(_ context.Context, id uint64) (*model.User, error) {
	if err := t.fail("GetUser"); err != nil {
		return nil, err
	}
	u, ok := t.st.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (t *tx) LockEvent(_ context.Context, id string) (*model.Event, error) {
	if err := t.fail("LockEvent"); err != nil {
		return nil, err
	}
	e, ok := t.st.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (t *tx) SetEventInventory(_ context.Context, id string, available, total int, at time.Time) error {
	if err := t.fail("SetEventInventory"); err != nil {
		return err
	}
	e, ok := t.st.events[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.AvailableTickets = available
	e.TotalTickets = total
	e.UpdatedAt = at
	t.st.events[id] = e
	return nil
}

func (t *tx) InsertPurchase(_ context.Context, p *model.Purchase) error {
	if err := t.fail("InsertPurchase"); err != nil {
		return err
	}
	for _, other := range t.st.purchases {
		if other.OrderNumber == p.OrderNumber {
			return repository.ErrDuplicate
		}
	}
	t.st.purchaseSeq++
	p.ID = t.st.purchaseSeq
	row := *p
	row.User, row.Event = nil, nil
	t.st.purchases[p.ID] = row
	return nil
}

func (t *tx) InsertTickets(_ context.Context, tickets []model.Ticket) error {
	if err := t.fail("InsertTickets"); err != nil {
		return err
	}
	numbers := make(map[string]struct{}, len(t.st.tickets)+len(tickets))
	qrs := make(map[string]struct{}, len(t.st.tickets)+len(tickets))
	for _, tk := range t.st.tickets {
		numbers[tk.TicketNumber] = struct{}{}
		qrs[tk.QRCodeData] = struct{}{}
	}
	for i := range tickets {
		if _, dup := numbers[tickets[i].TicketNumber]; dup {
			return repository.ErrDuplicate
		}
		if _, dup := qrs[tickets[i].QRCodeData]; dup {
			return repository.ErrDuplicate
		}
		numbers[tickets[i].TicketNumber] = struct{}{}
		qrs[tickets[i].QRCodeData] = struct{}{}
	}
	for i := range tickets {
		t.st.ticketSeq++
		tickets[i].ID = t.st.ticketSeq
		t.st.tickets[tickets[i].ID] = tickets[i]
	}
	return nil
}

func (t *tx) LockPurchase(_ context.Context, id uint64) (*model.Purchase, error) {
	if err := t.fail("LockPurchase"); err != nil {
		return nil, err
	}
	p, ok := t.st.purchases[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (t *tx) UpdatePurchaseStatus(_ context.Context, id uint64, status model.PurchaseStatus, at time.Time) error {
	if err := t.fail("UpdatePurchaseStatus"); err != nil {
		return err
	}
	p, ok := t.st.purchases[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Status = status
	p.UpdatedAt = at
	t.st.purchases[id] = p
	return nil
}

func (t *tx) SetEmailStatus(_ context.Context, purchaseID uint64, sent bool, at time.Time) error {
	if err := t.fail("SetEmailStatus"); err != nil {
		return err
	}
	p, ok := t.st.purchases[purchaseID]
	if !ok {
		return repository.ErrNotFound
	}
	p.EmailSent = sent
	if sent {
		ts := at
		p.EmailSentAt = &ts
	}
	p.UpdatedAt = at
	t.st.purchases[purchaseID] = p
	return nil
}

func (t *tx) InsertEmailLog(_ context.Context, l *model.EmailLog) error {
	if err := t.fail("InsertEmailLog"); err != nil {
		return err
	}
	t.st.logSeq++
	l.ID = t.st.logSeq
	t.st.emailLogs = append(t.st.emailLogs, *l)
	return nil
}

func (t *tx) LockTicket(_ context.Context, code string) (*model.Ticket, error) {
	if err := t.fail("LockTicket"); err != nil {
		return nil, err
	}
	for _, tk := range t.st.tickets {
		if tk.TicketNumber == code || tk.QRCodeData == code {
			return &tk, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (t *tx) MarkTicketUsed(_ context.Context, id uint64, at time.Time) error {
	if err := t.fail("MarkTicketUsed"); err != nil {
		return err
	}
	tk, ok := t.st.tickets[id]
	if !ok {
		return repository.ErrNotFound
	}
	ts := at
	tk.IsUsed = true
	tk.UsedAt = &ts
	tk.UpdatedAt = at
	t.st.tickets[id] = tk
	return nil
}

// ----- reads and admin writes -----

func (s *Store) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, other := range s.st.users {
		if other.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	now := time.Now().UTC().Truncate(time.Second)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = u.CreatedAt
	s.st.userSeq++
	u.ID = s.st.userSeq
	s.st.users[u.ID] = *u
	return nil
}

func (s *Store) GetUser(_ context.Context, id uint64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.st.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.st.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) ListUsers(_ context.Context, page model.Page) ([]model.User, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]model.User, 0, len(s.st.users))
	for _, u := range s.st.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return newerFirst(all[i].CreatedAt, all[j].CreatedAt, all[i].ID > all[j].ID) })
	return paginate(all, page), len(all), nil
}

func (s *Store) CreateEvent(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.st.events[e.ID]; exists {
		return repository.ErrDuplicate
	}
	now := time.Now().UTC().Truncate(time.Second)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = e.CreatedAt
	s.st.events[e.ID] = *e
	return nil
}

func (s *Store) GetEvent(_ context.Context, id string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.st.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (s *Store) ListEvents(_ context.Context, f model.EventFilter, page model.Page) ([]model.Event, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cat := strings.ToLower(f.Category)
	var all []model.Event
	for _, e := range s.st.events {
		if f.ActiveOnly && !e.IsActive {
			continue
		}
		if cat != "" && (e.Category == nil || !strings.Contains(strings.ToLower(*e.Category), cat)) {
			continue
		}
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool { return newerFirst(all[i].CreatedAt, all[j].CreatedAt, all[i].ID < all[j].ID) })
	return paginate(all, page), len(all), nil
}

func (s *Store) UpdateEventDetails(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.st.events[e.ID]
	if !ok {
		return repository.ErrNotFound
	}
	e.AvailableTickets = cur.AvailableTickets
	e.TotalTickets = cur.TotalTickets
	e.CreatedAt = cur.CreatedAt
	e.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	s.st.events[e.ID] = *e
	return nil
}

func (s *Store) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.events[id]; !ok {
		return repository.ErrNotFound
	}
	for _, p := range s.st.purchases {
		if p.EventID == id {
			return repository.ErrConflict
		}
	}
	delete(s.st.events, id)
	return nil
}

// joined returns p with its user and event attached. Caller holds mu.
func (s *Store) joined(p model.Purchase) *model.Purchase {
	if u, ok := s.st.users[p.UserID]; ok {
		p.User = &u
	}
	if e, ok := s.st.events[p.EventID]; ok {
		p.Event = &e
	}
	return &p
}

func (s *Store) GetPurchase(_ context.Context, id uint64) (*model.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.st.purchases[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.joined(p), nil
}

func (s *Store) GetPurchaseByOrder(_ context.Context, orderNumber string) (*model.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.st.purchases {
		if p.OrderNumber == orderNumber {
			return s.joined(p), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) ListPurchases(_ context.Context, f model.PurchaseFilter, page model.Page) ([]model.Purchase, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []model.Purchase
	for _, p := range s.st.purchases {
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.EventID != "" && p.EventID != f.EventID {
			continue
		}
		if f.UserID != 0 && p.UserID != f.UserID {
			continue
		}
		all = append(all, *s.joined(p))
	}
	sort.Slice(all, func(i, j int) bool { return newerFirst(all[i].CreatedAt, all[j].CreatedAt, all[i].ID > all[j].ID) })
	return paginate(all, page), len(all), nil
}

func (s *Store) ListPurchasesForReport(_ context.Context, f repository.ReportFilter) ([]model.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []model.Purchase
	for _, p := range s.st.purchases {
		if f.EventID != "" && p.EventID != f.EventID {
			continue
		}
		if f.From != nil && p.PurchaseDate.Before(*f.From) {
			continue
		}
		if f.To != nil && p.PurchaseDate.After(*f.To) {
			continue
		}
		all = append(all, *s.joined(p))
	}
	sort.Slice(all, func(i, j int) bool {
		return newerFirst(all[i].PurchaseDate, all[j].PurchaseDate, all[i].ID > all[j].ID)
	})
	return all, nil
}

func (s *Store) GetTicket(_ context.Context, ticketNumber string) (*model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tk := range s.st.tickets {
		if tk.TicketNumber == ticketNumber {
			return &tk, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) GetTicketByQR(_ context.Context, qr string) (*model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tk := range s.st.tickets {
		if tk.QRCodeData == qr {
			return &tk, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) ListTicketsByPurchase(_ context.Context, purchaseID uint64) ([]model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Ticket{}
	for _, tk := range s.st.tickets {
		if tk.PurchaseID == purchaseID {
			out = append(out, tk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TicketNumber < out[j].TicketNumber })
	return out, nil
}

// newerFirst orders by descending time and falls back to tie for equal
// timestamps so listings are deterministic.
func newerFirst(a, b time.Time, tie bool) bool {
	if a.Equal(b) {
		return tie
	}
	return a.After(b)
}

func paginate[T any](all []T, page model.Page) []T {
	page = page.Normalize()
	start := page.Offset()
	if start >= len(all) {
		return []T{}
	}
	end := start + page.PerPage
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}
