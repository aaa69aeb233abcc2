package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/ticket-sales/internal/model"
)

const ticketColumns = "id, purchase_id, ticket_number, qr_code_data, is_used, used_at, seat_info, created_at, updated_at"

// TicketRepo provides access to the tickets table.
type TicketRepo struct {
	db *sql.DB
}

func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

func scanTicket(rs rowScanner) (*model.Ticket, error) {
	var (
		t      model.Ticket
		usedAt sql.NullTime
		seat   sql.NullString
	)
	err := rs.Scan(&t.ID, &t.PurchaseID, &t.TicketNumber, &t.QRCodeData, &t.IsUsed, &usedAt, &seat, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t.UsedAt = nullTime(usedAt)
	t.SeatInfo = nullString(seat)
	return &t, nil
}

// CreateBulkTx inserts every ticket in one statement and assigns IDs in
// order. InnoDB hands out consecutive auto-increment values to a
// multi-row INSERT whose row count is known up front, so the IDs are
// derived from LastInsertId. Passing an empty slice has no effect.
func (r *TicketRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, tickets []model.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("INSERT INTO tickets (purchase_id, ticket_number, qr_code_data, is_used, seat_info, created_at, updated_at) VALUES ")
	args := make([]any, 0, len(tickets)*7)
	for i, t := range tickets {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?, ?)")
		args = append(args, t.PurchaseID, t.TicketNumber, t.QRCodeData, t.IsUsed, stringArg(t.SeatInfo), t.CreatedAt, t.UpdatedAt)
	}
	res, err := tx.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return translate(err)
	}
	first, err := res.LastInsertId()
	if err != nil {
		return err
	}
	for i := range tickets {
		tickets[i].ID = uint64(first) + uint64(i)
	}
	return nil
}

// LockTx finds a ticket by ticket number or QR payload and holds a write
// lock on its row until tx ends.
func (r *TicketRepo) LockTx(ctx context.Context, tx *sql.Tx, code string) (*model.Ticket, error) {
	return scanTicket(tx.QueryRowContext(ctx,
		"SELECT "+ticketColumns+" FROM tickets WHERE ticket_number = ? OR qr_code_data = ? LIMIT 1 FOR UPDATE",
		code, code))
}

func (r *TicketRepo) MarkUsedTx(ctx context.Context, tx *sql.Tx, id uint64, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE tickets SET is_used = TRUE, used_at = ?, updated_at = ? WHERE id = ?", at, at, id)
	return err
}

func (r *TicketRepo) GetByNumber(ctx context.Context, number string) (*model.Ticket, error) {
	return scanTicket(r.db.QueryRowContext(ctx,
		"SELECT "+ticketColumns+" FROM tickets WHERE ticket_number = ?", number))
}

func (r *TicketRepo) GetByQR(ctx context.Context, qr string) (*model.Ticket, error) {
	return scanTicket(r.db.QueryRowContext(ctx,
		"SELECT "+ticketColumns+" FROM tickets WHERE qr_code_data = ?", qr))
}

// ListByPurchase returns the tickets of a purchase in ticket number order.
func (r *TicketRepo) ListByPurchase(ctx context.Context, purchaseID uint64) ([]model.Ticket, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+ticketColumns+" FROM tickets WHERE purchase_id = ? ORDER BY ticket_number", purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
