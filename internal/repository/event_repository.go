package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/ticket-sales/internal/model"
)

// date and time are keywords in MySQL, hence the quoting.
const eventColumns = "id, title, artist, `date`, `time`, venue, location, price, image, description, category, available_tickets, total_tickets, is_active, created_at, updated_at"

// EventRepo provides access to the events table. Inventory counters are
// only written by SetInventoryTx, which callers use on a row they locked
// with LockTx.
type EventRepo struct {
	db *sql.DB
}

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

type eventScan struct {
	e        model.Event
	tm, img  sql.NullString
	desc     sql.NullString
	category sql.NullString
}

func (s *eventScan) dest() []any {
	return []any{
		&s.e.ID, &s.e.Title, &s.e.Artist, &s.e.Date, &s.tm, &s.e.Venue, &s.e.Location,
		&s.e.Price, &s.img, &s.desc, &s.category, &s.e.AvailableTickets, &s.e.TotalTickets,
		&s.e.IsActive, &s.e.CreatedAt, &s.e.UpdatedAt,
	}
}

func (s *eventScan) value() model.Event {
	e := s.e
	e.Time = nullString(s.tm)
	e.Image = nullString(s.img)
	e.Description = nullString(s.desc)
	e.Category = nullString(s.category)
	return e
}

func scanEvent(rs rowScanner) (*model.Event, error) {
	var s eventScan
	if err := rs.Scan(s.dest()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	e := s.value()
	return &e, nil
}

// Create inserts e. A duplicate id yields ErrDuplicate.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	now := time.Now().UTC().Truncate(time.Second)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = e.CreatedAt
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO events ("+eventColumns+") VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)",
		e.ID, e.Title, e.Artist, e.Date, stringArg(e.Time), e.Venue, e.Location, e.Price,
		stringArg(e.Image), stringArg(e.Description), stringArg(e.Category),
		e.AvailableTickets, e.TotalTickets, e.IsActive, e.CreatedAt, e.UpdatedAt)
	return translate(err)
}

// GetByID returns the event or ErrNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id string) (*model.Event, error) {
	return scanEvent(r.db.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE id = ?", id))
}

// LockTx reads the event and holds a write lock on its row until tx ends.
func (r *EventRepo) LockTx(ctx context.Context, tx *sql.Tx, id string) (*model.Event, error) {
	return scanEvent(tx.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE id = ? FOR UPDATE", id))
}

// SetInventoryTx writes both counters of a row locked by LockTx, so the
// row is known to exist.
func (r *EventRepo) SetInventoryTx(ctx context.Context, tx *sql.Tx, id string, available, total int, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE events SET available_tickets = ?, total_tickets = ?, updated_at = ? WHERE id = ?",
		available, total, at, id)
	return err
}

// List returns one page of events, newest first, and the total count.
// The category filter is a case-insensitive substring match.
func (r *EventRepo) List(ctx context.Context, f model.EventFilter, page model.Page) ([]model.Event, int, error) {
	page = page.Normalize()
	var (
		where []string
		args  []any
	)
	if f.ActiveOnly {
		where = append(where, "is_active = TRUE")
	}
	if f.Category != "" {
		where = append(where, "LOWER(category) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Category)+"%")
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	total, err := count(ctx, r.db, "SELECT COUNT(*) FROM events"+clause, args...)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events"+clause+" ORDER BY created_at DESC, id ASC LIMIT ? OFFSET ?",
		append(args, page.PerPage, page.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *e)
	}
	return out, total, rows.Err()
}

// UpdateDetails writes the descriptive columns and the active flag.
// Inventory counters are left to the ledger.
func (r *EventRepo) UpdateDetails(ctx context.Context, e *model.Event) error {
	e.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx,
		"UPDATE events SET title = ?, artist = ?, `date` = ?, `time` = ?, venue = ?, location = ?, price = ?, image = ?, description = ?, category = ?, is_active = ?, updated_at = ? WHERE id = ?",
		e.Title, e.Artist, e.Date, stringArg(e.Time), e.Venue, e.Location, e.Price,
		stringArg(e.Image), stringArg(e.Description), stringArg(e.Category), e.IsActive, e.UpdatedAt, e.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 for an update that matched but changed nothing.
		if _, err := r.GetByID(ctx, e.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes an event. Events referenced by purchases yield ErrConflict.
func (r *EventRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
