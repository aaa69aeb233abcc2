package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticket-sales/internal/model"
)

type fakeRows struct {
	events  map[string]*model.Event
	writes  int
	failSet error
}

func newFakeRows(events ...model.Event) *fakeRows {
	f := &fakeRows{events: map[string]*model.Event{}}
	for i := range events {
		e := events[i]
		f.events[e.ID] = &e
	}
	return f
}

func (f *fakeRows) LockEvent(_ context.Context, id string) (*model.Event, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *e
	return &cp, nil
}

func (f *fakeRows) SetEventInventory(_ context.Context, id string, available, total int, _ time.Time) error {
	if f.failSet != nil {
		return f.failSet
	}
	f.writes++
	f.events[id].AvailableTickets = available
	f.events[id].TotalTickets = total
	return nil
}

func TestReserveDecrements(t *testing.T) {
	rows := newFakeRows(model.Event{ID: "e1", AvailableTickets: 5, TotalTickets: 5})
	ev, err := New(nil).Reserve(context.Background(), rows, "e1", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, ev.AvailableTickets)
	assert.Equal(t, 2, rows.events["e1"].AvailableTickets)
}

func TestReserveAllowsExactRemainder(t *testing.T) {
	rows := newFakeRows(model.Event{ID: "e1", AvailableTickets: 2, TotalTickets: 5})
	_, err := New(nil).Reserve(context.Background(), rows, "e1", 2)
	require.NoError(t, err)
	assert.Equal(t, 0, rows.events["e1"].AvailableTickets)
}

func TestReserveRejectsOversell(t *testing.T) {
	rows := newFakeRows(model.Event{ID: "e1", AvailableTickets: 1, TotalTickets: 5})
	_, err := New(nil).Reserve(context.Background(), rows, "e1", 2)

	require.ErrorIs(t, err, ErrInsufficientInventory)
	var ie *InsufficientError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 1, ie.Available)
	assert.Equal(t, 0, rows.writes)
	assert.Equal(t, 1, rows.events["e1"].AvailableTickets)
}

func TestReserveRejectsNonPositiveQuantity(t *testing.T) {
	rows := newFakeRows(model.Event{ID: "e1", AvailableTickets: 1, TotalTickets: 1})
	_, err := New(nil).Reserve(context.Background(), rows, "e1", 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = New(nil).Release(context.Background(), rows, "e1", -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestReservePropagatesLookupError(t *testing.T) {
	_, err := New(nil).Reserve(context.Background(), newFakeRows(), "missing", 1)
	assert.EqualError(t, err, "not found")
}

func TestReleaseIncrements(t *testing.T) {
	rows := newFakeRows(model.Event{ID: "e1", AvailableTickets: 2, TotalTickets: 5})
	n, err := New(nil).Release(context.Background(), rows, "e1", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 5, rows.events["e1"].AvailableTickets)
}

func TestReleaseClampsAtTotal(t *testing.T) {
	rows := newFakeRows(model.Event{ID: "e1", AvailableTickets: 4, TotalTickets: 5})
	n, err := New(nil).Release(context.Background(), rows, "e1", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 5, rows.events["e1"].AvailableTickets)

	n, err = New(nil).Release(context.Background(), rows, "e1", 3)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, rows.writes)
}

func TestResizeKeepsSoldQuantity(t *testing.T) {
	rows := newFakeRows(model.Event{ID: "e1", AvailableTickets: 3, TotalTickets: 10})
	ev, err := New(nil).Resize(context.Background(), rows, "e1", 20)
	require.NoError(t, err)
	assert.Equal(t, 13, ev.AvailableTickets)
	assert.Equal(t, 20, ev.TotalTickets)

	_, err = New(nil).Resize(context.Background(), rows, "e1", 6)
	assert.ErrorIs(t, err, ErrBelowSold)
}

func TestWriteFailureSurfaces(t *testing.T) {
	rows := newFakeRows(model.Event{ID: "e1", AvailableTickets: 3, TotalTickets: 3})
	rows.failSet = errors.New("disk full")
	_, err := New(nil).Reserve(context.Background(), rows, "e1", 1)
	assert.EqualError(t, err, "disk full")
}
