package report

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/ticket-sales/internal/model"
	"github.com/iliyamo/ticket-sales/internal/repository"
)

var at = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func ptr(s string) *string { return &s }

func event(id, title, category string) *model.Event {
	e := &model.Event{ID: id, Title: title, Date: "2026-06-01", Venue: "Arena"}
	if category != "" {
		e.Category = ptr(category)
	}
	return e
}

func purchase(id uint64, ev *model.Event, qty int, total string, st model.PurchaseStatus) model.Purchase {
	return model.Purchase{
		ID:           id,
		OrderNumber:  "ORD-20260310-0000000" + string(rune('0'+id)),
		EventID:      ev.ID,
		Quantity:     qty,
		UnitPrice:    decimal.RequireFromString(total).Div(decimal.NewFromInt(int64(qty))),
		TotalPrice:   decimal.RequireFromString(total),
		PurchaseDate: at.Add(-time.Duration(id) * time.Hour),
		Status:       st,
		User:         &model.User{Name: "Ana", LastName: "Silva", Email: "ana@example.com"},
		Event:        ev,
	}
}

func fixture() []model.Purchase {
	rock := event("e1", "Rock Night", "Rock")
	jazz := event("e2", "Jazz Trio", "Jazz")
	misc := event("e3", "Open Mic", "")
	return []model.Purchase{
		purchase(1, rock, 2, "50.00", model.StatusCompleted),
		purchase(2, rock, 1, "25.00", model.StatusPending),
		purchase(3, jazz, 1, "80.00", model.StatusCompleted),
		purchase(4, jazz, 5, "400.00", model.StatusCancelled),
		purchase(5, misc, 1, "10.00", model.StatusRefunded),
		purchase(6, misc, 1, "5.50", model.StatusPending),
	}
}

func TestAggregate(t *testing.T) {
	s := Aggregate(fixture(), at)

	assert.Equal(t, "160.5", s.Summary.TotalSales.String())
	assert.Equal(t, 5, s.Summary.TotalTickets)
	assert.Equal(t, 4, s.Summary.TotalPurchases)
	assert.Equal(t, "40.13", s.Summary.AverageSale.String())
	require.NotNil(t, s.Summary.TopCategory)
	assert.Equal(t, "Rock", *s.Summary.TopCategory)
	assert.Equal(t, "Jazz", *s.Summary.TopRevenueGroup)

	require.Len(t, s.Categories, 3)
	assert.Equal(t, []string{"General", "Jazz", "Rock"},
		[]string{s.Categories[0].Category, s.Categories[1].Category, s.Categories[2].Category})
	assert.Equal(t, 3, s.Categories[2].Tickets)
	assert.Equal(t, "25", s.Categories[2].AveragePrice.String())

	require.Len(t, s.Events, 3)
	assert.Equal(t, "e2", s.Events[0].EventID)
	assert.Equal(t, "e1", s.Events[1].EventID)
	assert.Equal(t, "75", s.Events[1].Sales.String())

	assert.Equal(t, 4, s.Records)
	assert.Equal(t, uint64(1), s.Details[0].PurchaseID)
	assert.Equal(t, "Ana Silva", s.Details[0].CustomerName)
	assert.Equal(t, "General", s.Details[3].Category)
}

func TestAggregate_Empty(t *testing.T) {
	s := Aggregate(nil, at)
	assert.True(t, s.Summary.TotalSales.IsZero())
	assert.True(t, s.Summary.AverageSale.IsZero())
	assert.Nil(t, s.Summary.TopCategory)
	assert.NotNil(t, s.Categories)
	assert.NotNil(t, s.Details)
	assert.Equal(t, 0, s.Records)
}

type source struct {
	got repository.ReportFilter
	out []model.Purchase
	err error
}

func (s *source) ListPurchasesForReport(_ context.Context, f repository.ReportFilter) ([]model.Purchase, error) {
	s.got = f
	return s.out, s.err
}

func TestBuild(t *testing.T) {
	from := at.Add(-48 * time.Hour)
	src := &source{out: fixture()}
	f := repository.ReportFilter{EventID: "e1", From: &from}

	s, err := Build(context.Background(), src, f, at)
	require.NoError(t, err)
	assert.Equal(t, f, src.got)
	assert.Equal(t, "e1", s.Filters.EventID)
	assert.Equal(t, &from, s.Filters.From)
	assert.Nil(t, s.Filters.To)

	src.err = errors.New("db down")
	_, err = Build(context.Background(), src, f, at)
	assert.EqualError(t, err, "db down")
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, Aggregate(fixture(), at)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	buf.Reset()
	require.NoError(t, WritePDF(&buf, Aggregate(nil, at)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, Aggregate(fixture(), at)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetCategories, SheetEvents, SheetDetails}, f.GetSheetList())

	v, err := f.GetCellValue(SheetSummary, "B4")
	require.NoError(t, err)
	assert.Equal(t, "5", v)
	v, err = f.GetCellValue(SheetSummary, "B7")
	require.NoError(t, err)
	assert.Equal(t, "Rock", v)

	v, err = f.GetCellValue(SheetEvents, "A2")
	require.NoError(t, err)
	assert.Equal(t, "e2", v)

	rows, err := f.GetRows(SheetDetails)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
	assert.Equal(t, "ORD-20260310-00000001", rows[1][1])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
