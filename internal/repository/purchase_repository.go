package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/ticket-sales/internal/model"
)

const purchaseColumns = "id, order_number, user_id, event_id, quantity, unit_price, service_charge, total_price, purchase_date, status, email_sent, email_sent_at, qr_code_data, notes, created_at, updated_at"

// joinedPurchaseSelect reads a purchase together with its user and event.
var joinedPurchaseSelect = "SELECT " + prefixed(purchaseColumns, "p") + ", " +
	prefixed(userColumns, "u") + ", " + prefixed(eventColumns, "e") +
	" FROM purchases p JOIN users u ON u.id = p.user_id JOIN events e ON e.id = p.event_id"

// prefixed qualifies every column of a comma separated list with alias.
func prefixed(cols, alias string) string {
	parts := strings.Split(cols, ", ")
	for i, c := range parts {
		parts[i] = alias + "." + c
	}
	return strings.Join(parts, ", ")
}

// PurchaseRepo provides access to the purchases and email_logs tables.
type PurchaseRepo struct {
	db *sql.DB
}

func NewPurchaseRepo(db *sql.DB) *PurchaseRepo { return &PurchaseRepo{db: db} }

type purchaseScan struct {
	p      model.Purchase
	status string
	sentAt sql.NullTime
	notes  sql.NullString
}

func (s *purchaseScan) dest() []any {
	return []any{
		&s.p.ID, &s.p.OrderNumber, &s.p.UserID, &s.p.EventID, &s.p.Quantity,
		&s.p.UnitPrice, &s.p.ServiceCharge, &s.p.TotalPrice, &s.p.PurchaseDate,
		&s.status, &s.p.EmailSent, &s.sentAt, &s.p.QRCodeData, &s.notes,
		&s.p.CreatedAt, &s.p.UpdatedAt,
	}
}

func (s *purchaseScan) value() model.Purchase {
	p := s.p
	p.Status = model.PurchaseStatus(s.status)
	p.EmailSentAt = nullTime(s.sentAt)
	p.Notes = nullString(s.notes)
	return p
}

func scanPurchase(rs rowScanner) (*model.Purchase, error) {
	var s purchaseScan
	if err := rs.Scan(s.dest()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p := s.value()
	return &p, nil
}

func scanJoinedPurchase(rs rowScanner) (*model.Purchase, error) {
	var (
		ps purchaseScan
		u  model.User
		es eventScan
	)
	dest := ps.dest()
	dest = append(dest, &u.ID, &u.Email, &u.Name, &u.LastName, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	dest = append(dest, es.dest()...)
	if err := rs.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p := ps.value()
	e := es.value()
	p.User = &u
	p.Event = &e
	return &p, nil
}

// CreateTx inserts p inside tx and sets its ID. A taken order number
// yields ErrDuplicate.
func (r *PurchaseRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Purchase) error {
	const q = `INSERT INTO purchases (order_number, user_id, event_id, quantity, unit_price, service_charge, total_price,
	           purchase_date, status, email_sent, email_sent_at, qr_code_data, notes, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		p.OrderNumber, p.UserID, p.EventID, p.Quantity, p.UnitPrice, p.ServiceCharge, p.TotalPrice,
		p.PurchaseDate, string(p.Status), p.EmailSent, p.EmailSentAt, p.QRCodeData, stringArg(p.Notes),
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// LockTx reads the purchase and holds a write lock on its row until tx ends.
func (r *PurchaseRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Purchase, error) {
	return scanPurchase(tx.QueryRowContext(ctx,
		"SELECT "+purchaseColumns+" FROM purchases WHERE id = ? FOR UPDATE", id))
}

func (r *PurchaseRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.PurchaseStatus, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE purchases SET status = ?, updated_at = ? WHERE id = ?", string(status), at, id)
	return err
}

// SetEmailStatusTx records the confirmation email outcome. email_sent_at
// keeps its previous value when the email failed.
func (r *PurchaseRepo) SetEmailStatusTx(ctx context.Context, tx *sql.Tx, id uint64, sent bool, at time.Time) error {
	var err error
	if sent {
		_, err = tx.ExecContext(ctx,
			"UPDATE purchases SET email_sent = TRUE, email_sent_at = ?, updated_at = ? WHERE id = ?", at, at, id)
	} else {
		_, err = tx.ExecContext(ctx,
			"UPDATE purchases SET email_sent = FALSE, updated_at = ? WHERE id = ?", at, id)
	}
	return err
}

// CreateEmailLogTx appends an email_logs row and sets its ID.
func (r *PurchaseRepo) CreateEmailLogTx(ctx context.Context, tx *sql.Tx, l *model.EmailLog) error {
	const q = `INSERT INTO email_logs (purchase_id, email_type, recipient_email, subject, status, message_id, error_message, sent_at, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		l.PurchaseID, l.EmailType, l.RecipientEmail, l.Subject, l.Status,
		stringArg(l.MessageID), stringArg(l.ErrorMessage), l.SentAt, l.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

// GetByID returns the purchase with its user and event.
func (r *PurchaseRepo) GetByID(ctx context.Context, id uint64) (*model.Purchase, error) {
	return scanJoinedPurchase(r.db.QueryRowContext(ctx, joinedPurchaseSelect+" WHERE p.id = ?", id))
}

// GetByOrderNumber returns the purchase with its user and event.
func (r *PurchaseRepo) GetByOrderNumber(ctx context.Context, order string) (*model.Purchase, error) {
	return scanJoinedPurchase(r.db.QueryRowContext(ctx, joinedPurchaseSelect+" WHERE p.order_number = ?", order))
}

// List returns one page of purchases matching f, newest first, and the
// total number of matches.
func (r *PurchaseRepo) List(ctx context.Context, f model.PurchaseFilter, page model.Page) ([]model.Purchase, int, error) {
	page = page.Normalize()
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "p.status = ?")
		args = append(args, string(f.Status))
	}
	if f.EventID != "" {
		where = append(where, "p.event_id = ?")
		args = append(args, f.EventID)
	}
	if f.UserID != 0 {
		where = append(where, "p.user_id = ?")
		args = append(args, f.UserID)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	total, err := count(ctx, r.db, "SELECT COUNT(*) FROM purchases p"+clause, args...)
	if err != nil {
		return nil, 0, err
	}
	out, err := r.query(ctx,
		joinedPurchaseSelect+clause+" ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?",
		append(args, page.PerPage, page.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListForReport returns every purchase in the filter window regardless of
// status, newest first.
func (r *PurchaseRepo) ListForReport(ctx context.Context, f ReportFilter) ([]model.Purchase, error) {
	var (
		where []string
		args  []any
	)
	if f.EventID != "" {
		where = append(where, "p.event_id = ?")
		args = append(args, f.EventID)
	}
	if f.From != nil {
		where = append(where, "p.purchase_date >= ?")
		args = append(args, *f.From)
	}
	if f.To != nil {
		where = append(where, "p.purchase_date <= ?")
		args = append(args, *f.To)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}
	return r.query(ctx, joinedPurchaseSelect+clause+" ORDER BY p.purchase_date DESC, p.id DESC", args...)
}

func (r *PurchaseRepo) query(ctx context.Context, q string, args ...any) ([]model.Purchase, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Purchase{}
	for rows.Next() {
		p, err := scanJoinedPurchase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
