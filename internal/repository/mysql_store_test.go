package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticket-sales/internal/model"
)

func newMock(t *testing.T) (*MySQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewMySQLStore(db), mock
}

var eventCols = []string{"id", "title", "artist", "date", "time", "venue", "location", "price", "image",
	"description", "category", "available_tickets", "total_tickets", "is_active", "created_at", "updated_at"}

func eventRow(rows *sqlmock.Rows, id string, available, total int) *sqlmock.Rows {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	return rows.AddRow(id, "Show", "Band", "2026-12-01", nil, "Hall", "Porto", "25.00", nil, nil,
		"Rock", int64(available), int64(total), true, now, now)
}

func TestInTx_LocksAndCommits(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM events WHERE id = \? FOR UPDATE`).
		WithArgs("e1").
		WillReturnRows(eventRow(sqlmock.NewRows(eventCols), "e1", 8, 10))
	mock.ExpectExec(`UPDATE events SET available_tickets = \?, total_tickets = \?`).
		WithArgs(5, 10, sqlmock.AnyArg(), "e1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.InTx(ctx, func(tx Tx) error {
		ev, err := tx.LockEvent(ctx, "e1")
		if err != nil {
			return err
		}
		assert.Equal(t, 8, ev.AvailableTickets)
		assert.Equal(t, "Rock", *ev.Category)
		assert.Nil(t, ev.Time)
		assert.Equal(t, "25", ev.Price.String())
		return tx.SetEventInventory(ctx, "e1", ev.AvailableTickets-3, ev.TotalTickets, time.Now())
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_RollsBackWhenFnFails(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM events WHERE id = \? FOR UPDATE`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(eventCols))
	mock.ExpectRollback()

	err := s.InTx(ctx, func(tx Tx) error {
		_, err := tx.LockEvent(ctx, "missing")
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPurchase_DuplicateOrderNumber(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO purchases`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	err := s.InTx(ctx, func(tx Tx) error {
		return tx.InsertPurchase(ctx, &model.Purchase{OrderNumber: "ORD-20260101-AAAAAAAA", Status: model.StatusPending})
	})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertTickets_AssignsConsecutiveIDs(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	tickets := []model.Ticket{
		{PurchaseID: 7, TicketNumber: "ORD-1-T001", QRCodeData: "q1"},
		{PurchaseID: 7, TicketNumber: "ORD-1-T002", QRCodeData: "q2"},
		{PurchaseID: 7, TicketNumber: "ORD-1-T003", QRCodeData: "q3"},
	}
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO tickets .* VALUES \(\?, \?, \?, \?, \?, \?, \?\),\(.*\),\(.*\)`).
		WillReturnResult(sqlmock.NewResult(40, 3))
	mock.ExpectCommit()

	require.NoError(t, s.InTx(ctx, func(tx Tx) error { return tx.InsertTickets(ctx, tickets) }))
	assert.Equal(t, []uint64{40, 41, 42}, []uint64{tickets[0].ID, tickets[1].ID, tickets[2].ID})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockTicket_ByNumberOrQR(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()
	used := time.Date(2026, 5, 2, 18, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM tickets WHERE ticket_number = \? OR qr_code_data = \? LIMIT 1 FOR UPDATE`).
		WithArgs("code", "code").
		WillReturnRows(sqlmock.NewRows([]string{"id", "purchase_id", "ticket_number", "qr_code_data", "is_used", "used_at", "seat_info", "created_at", "updated_at"}).
			AddRow(int64(3), int64(7), "ORD-1-T001", "q1", true, used, nil, used, used))
	mock.ExpectRollback()

	err := s.InTx(ctx, func(tx Tx) error {
		tk, err := tx.LockTicket(ctx, "code")
		require.NoError(t, err)
		assert.True(t, tk.IsUsed)
		require.NotNil(t, tk.UsedAt)
		assert.True(t, tk.UsedAt.Equal(used))
		return errors.New("stop")
	})
	assert.EqualError(t, err, "stop")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteEvent(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectExec(`DELETE FROM events WHERE id = \?`).WithArgs("e1").
		WillReturnError(&mysql.MySQLError{Number: 1451, Message: "foreign key"})
	mock.ExpectExec(`DELETE FROM events WHERE id = \?`).WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM events WHERE id = \?`).WithArgs("e2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.ErrorIs(t, s.DeleteEvent(ctx, "e1"), ErrConflict)
	assert.ErrorIs(t, s.DeleteEvent(ctx, "gone"), ErrNotFound)
	assert.NoError(t, s.DeleteEvent(ctx, "e2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_NormalizesEmail(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("ana@example.com", "Ana", "Silva", false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&mysql.MySQLError{Number: 1062})

	u := &model.User{Email: "  Ana@Example.COM ", Name: "Ana", LastName: "Silva"}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.EqualValues(t, 12, u.ID)
	assert.Equal(t, "ana@example.com", u.Email)

	assert.ErrorIs(t, s.CreateUser(ctx, &model.User{Email: "ana@example.com"}), ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEvents_BuildsFilters(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM events WHERE is_active = TRUE AND LOWER\(category\) LIKE \?`).
		WithArgs("%rock%").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(3)))
	mock.ExpectQuery(`FROM events WHERE is_active = TRUE AND LOWER\(category\) LIKE \? ORDER BY created_at DESC, id ASC LIMIT \? OFFSET \?`).
		WithArgs("%rock%", 2, 2).
		WillReturnRows(eventRow(sqlmock.NewRows(eventCols), "e3", 1, 1))

	got, total, err := s.ListEvents(ctx, model.EventFilter{Category: "Rock", ActiveOnly: true}, model.Page{Number: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, got, 1)
	assert.Equal(t, "e3", got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPurchase_NotFound(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(`FROM purchases p JOIN users u ON u.id = p.user_id JOIN events e ON e.id = p.event_id WHERE p.id = \?`).
		WithArgs(uint64(9)).
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetPurchase(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslate(t *testing.T) {
	other := errors.New("boom")
	assert.Equal(t, ErrDuplicate, translate(&mysql.MySQLError{Number: 1062}))
	assert.Equal(t, ErrConflict, translate(&mysql.MySQLError{Number: 1451}))
	assert.Equal(t, other, translate(other))
	assert.Nil(t, translate(nil))
}
