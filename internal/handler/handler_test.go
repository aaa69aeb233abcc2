package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticket-sales/internal/handler"
	"github.com/iliyamo/ticket-sales/internal/model"
	"github.com/iliyamo/ticket-sales/internal/purchase"
	"github.com/iliyamo/ticket-sales/internal/repository/memory"
	"github.com/iliyamo/ticket-sales/internal/router"
)

type env struct {
	e     *echo.Echo
	store *memory.Store
}

func setup(t *testing.T) *env {
	t.Helper()
	store := memory.New()
	mgr := purchase.NewManager(store, purchase.Options{
		RefundRestoresInventory: true,
		Logger:                  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	e := echo.New()
	router.RegisterRoutes(e, nil)
	router.RegisterAPI(e, router.Handlers{
		Events:    handler.NewEventHandler(store, mgr),
		Users:     handler.NewUserHandler(store),
		Purchases: handler.NewPurchaseHandler(store, mgr),
		Tickets:   handler.NewTicketHandler(store, mgr),
		Reports:   handler.NewReportHandler(store),
	}, router.Middlewares{})

	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, &model.User{Email: "ana@example.com", Name: "Ana", LastName: "Silva"}))
	rock := "Rock"
	require.NoError(t, store.CreateEvent(ctx, &model.Event{
		ID: "evt-1", Title: "Rock Night", Artist: "Band", Date: "2026-12-01", Venue: "Arena",
		Location: "Lisbon", Price: decimal.RequireFromString("25.00"), Category: &rock,
		AvailableTickets: 5, TotalTickets: 5, IsActive: true,
	}))
	return &env{e: e, store: store}
}

func (v *env) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(bs)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	v.e.ServeHTTP(rec, req)

	var out map[string]any
	if ct := rec.Header().Get(echo.HeaderContentType); ct == echo.MIMEApplicationJSON || ct == echo.MIMEApplicationJSONCharsetUTF8 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func (v *env) buy(t *testing.T, qty int) map[string]any {
	t.Helper()
	rec, body := v.do(t, http.MethodPost, "/api/purchases", map[string]any{
		"userId": 1, "eventId": "evt-1", "quantity": qty, "unitPrice": 25, "totalPrice": 25 * qty,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return body
}

func (v *env) available(t *testing.T) float64 {
	t.Helper()
	rec, body := v.do(t, http.MethodGet, "/api/events/evt-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	return body["event"].(map[string]any)["availableTickets"].(float64)
}

func obj(v any) map[string]any { return v.(map[string]any) }

func TestCreatePurchaseAndCancel(t *testing.T) {
	v := setup(t)

	body := v.buy(t, 3)
	p := obj(body["purchase"])
	assert.Equal(t, "pending", p["status"])
	assert.Regexp(t, `^ORD-\d{8}-[0-9A-F]{8}$`, p["orderNumber"])
	assert.Len(t, body["tickets"], 3)
	assert.Equal(t, float64(2), v.available(t))

	rec, body := v.do(t, http.MethodPut, "/api/purchases/1/status", map[string]any{"status": "cancelled"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), body["released_tickets"])
	assert.Equal(t, "pending", body["previous_status"])
	assert.Equal(t, float64(5), v.available(t))

	rec, body = v.do(t, http.MethodPut, "/api/purchases/1/status", map[string]any{"status": "cancelled"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["released_tickets"])
	assert.Equal(t, float64(5), v.available(t))

	rec, body = v.do(t, http.MethodPut, "/api/purchases/1/status", map[string]any{"status": "completed"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_status", body["code"])
}

func TestCreatePurchaseErrors(t *testing.T) {
	v := setup(t)

	cases := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{"oversell", map[string]any{"userId": 1, "eventId": "evt-1", "quantity": 6, "unitPrice": 25, "totalPrice": 150}, http.StatusBadRequest, "insufficient_inventory"},
		{"unknown user", map[string]any{"userId": 9, "eventId": "evt-1", "quantity": 1, "unitPrice": 25, "totalPrice": 25}, http.StatusNotFound, "not_found"},
		{"unknown event", map[string]any{"userId": 1, "eventId": "nope", "quantity": 1, "unitPrice": 25, "totalPrice": 25}, http.StatusNotFound, "not_found"},
		{"missing total", map[string]any{"userId": 1, "eventId": "evt-1", "quantity": 1, "unitPrice": 25}, http.StatusBadRequest, "invalid_input"},
		{"zero quantity", map[string]any{"userId": 1, "eventId": "evt-1", "quantity": 0, "unitPrice": 25, "totalPrice": 0}, http.StatusBadRequest, "invalid_input"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := v.do(t, http.MethodPost, "/api/purchases", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, body["code"])
			assert.NotEmpty(t, body["error"])
		})
	}
	assert.Equal(t, float64(5), v.available(t))

	req := httptest.NewRequest(http.MethodPost, "/api/purchases", bytes.NewBufferString("{"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	v.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatusRejectsUnknownValue(t *testing.T) {
	v := setup(t)
	v.buy(t, 1)

	rec, body := v.do(t, http.MethodPut, "/api/purchases/1/status", map[string]any{"status": "shipped"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_status", body["code"])

	rec, body = v.do(t, http.MethodPut, "/api/purchases/42/status", map[string]any{"status": "completed"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "purchase not found", body["error"])
}

func TestValidateTicketOnce(t *testing.T) {
	v := setup(t)
	tickets := v.buy(t, 2)["tickets"].([]any)
	first := obj(tickets[0])
	number := first["ticketNumber"].(string)

	rec, body := v.do(t, http.MethodPost, "/api/tickets/"+number+"/validate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, obj(body["ticket"])["isUsed"])

	rec, body = v.do(t, http.MethodPost, "/api/tickets/"+number+"/validate", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "already_used", body["code"])
	assert.NotNil(t, body["used_at"])

	second := obj(tickets[1])
	rec, _ = v.do(t, http.MethodPost, "/api/tickets/validate", map[string]any{"code": second["qrCodeData"]})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body = v.do(t, http.MethodPost, "/api/tickets/validate", map[string]any{"code": "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ticket not found", body["error"])

	rec, body = v.do(t, http.MethodPost, "/api/tickets/validate", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", body["code"])
}

func TestTicketLookups(t *testing.T) {
	v := setup(t)
	tickets := v.buy(t, 2)["tickets"].([]any)
	first := obj(tickets[0])

	rec, body := v.do(t, http.MethodGet, "/api/tickets/"+first["ticketNumber"].(string), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first["qrCodeData"], obj(body["ticket"])["qrCodeData"])

	rec, body = v.do(t, http.MethodGet, "/api/tickets/qr/"+first["qrCodeData"].(string), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["valid"])

	rec, body = v.do(t, http.MethodGet, "/api/tickets/purchase/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["tickets"], 2)

	rec, _ = v.do(t, http.MethodGet, "/api/tickets/purchase/7", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = v.do(t, http.MethodGet, "/api/tickets/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPurchaseReads(t *testing.T) {
	v := setup(t)
	order := obj(v.buy(t, 1)["purchase"])["orderNumber"].(string)
	v.buy(t, 2)

	rec, body := v.do(t, http.MethodGet, "/api/purchases/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	p := obj(body["purchase"])
	assert.Equal(t, "ana@example.com", obj(p["user"])["email"])
	assert.Equal(t, "Rock Night", obj(p["event"])["title"])

	rec, body = v.do(t, http.MethodGet, "/api/purchases/order/"+order, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), obj(body["purchase"])["id"])

	rec, body = v.do(t, http.MethodGet, "/api/purchases?status=pending&per_page=1&page=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["items"], 1)
	pg := obj(body["pagination"])
	assert.Equal(t, float64(2), pg["total"])
	assert.Equal(t, float64(2), pg["pages"])
	assert.Equal(t, true, pg["has_prev"])
	assert.Equal(t, false, pg["has_next"])

	rec, _ = v.do(t, http.MethodGet, "/api/purchases?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = v.do(t, http.MethodGet, "/api/purchases/user/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["items"], 2)

	rec, _ = v.do(t, http.MethodGet, "/api/purchases/user/5", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = v.do(t, http.MethodGet, "/api/purchases/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEmailStatus(t *testing.T) {
	v := setup(t)
	v.buy(t, 1)

	rec, body := v.do(t, http.MethodPut, "/api/purchases/1/email-status", map[string]any{"emailSent": true, "messageId": "m-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, obj(body["purchase"])["emailSent"])

	logs := v.store.EmailLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, "ana@example.com", logs[0].RecipientEmail)
	assert.Equal(t, model.EmailSent, logs[0].Status)

	rec, _ = v.do(t, http.MethodPut, "/api/purchases/9/email-status", map[string]any{"emailSent": false})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventAdministration(t *testing.T) {
	v := setup(t)

	newEvent := map[string]any{
		"id": "evt-2", "title": "Jazz", "artist": "Trio", "date": "2026-10-10",
		"venue": "Club", "location": "Porto", "price": "40.00", "totalTickets": 10, "category": "Jazz",
	}
	rec, body := v.do(t, http.MethodPost, "/api/events", newEvent)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ev := obj(body["event"])
	assert.Equal(t, float64(10), ev["availableTickets"])
	assert.Equal(t, true, ev["isActive"])

	rec, body = v.do(t, http.MethodPost, "/api/events", newEvent)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate", body["code"])

	rec, body = v.do(t, http.MethodPost, "/api/events", map[string]any{"id": "evt-3", "title": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing required field: artist", body["error"])

	bad := map[string]any{"id": "evt-4", "title": "x", "artist": "y", "date": "d", "venue": "v",
		"location": "l", "price": 1, "totalTickets": 2, "availableTickets": 3}
	rec, _ = v.do(t, http.MethodPost, "/api/events", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = v.do(t, http.MethodGet, "/api/events?category=jaz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body["items"], 1)
	assert.Equal(t, "evt-2", obj(body["items"].([]any)[0])["id"])

	rec, body = v.do(t, http.MethodPut, "/api/events/evt-1", map[string]any{"title": "Rock Night II", "availableTickets": 999})
	require.Equal(t, http.StatusOK, rec.Code)
	ev = obj(body["event"])
	assert.Equal(t, "Rock Night II", ev["title"])
	assert.Equal(t, "Band", ev["artist"])
	assert.Equal(t, float64(5), ev["availableTickets"])

	rec, _ = v.do(t, http.MethodPut, "/api/events/nope", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = v.do(t, http.MethodDelete, "/api/events/evt-2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "evt-2", obj(body["deleted_event"])["id"])
	rec, _ = v.do(t, http.MethodDelete, "/api/events/evt-2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteReferencedEventConflicts(t *testing.T) {
	v := setup(t)
	v.buy(t, 1)

	rec, body := v.do(t, http.MethodDelete, "/api/events/evt-1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", body["code"])
}

func TestEventCapacity(t *testing.T) {
	v := setup(t)
	v.buy(t, 3)

	rec, body := v.do(t, http.MethodPut, "/api/events/evt-1/capacity", map[string]any{"totalTickets": 8})
	require.Equal(t, http.StatusOK, rec.Code)
	ev := obj(body["event"])
	assert.Equal(t, float64(8), ev["totalTickets"])
	assert.Equal(t, float64(5), ev["availableTickets"])

	rec, body = v.do(t, http.MethodPut, "/api/events/evt-1/capacity", map[string]any{"totalTickets": 2})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", body["code"])

	rec, _ = v.do(t, http.MethodPut, "/api/events/evt-1/capacity", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = v.do(t, http.MethodPut, "/api/events/nope/capacity", map[string]any{"totalTickets": 2})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUsers(t *testing.T) {
	v := setup(t)

	rec, body := v.do(t, http.MethodPost, "/api/users", map[string]any{"email": " Bo@Example.com ", "name": "Bo", "lastName": "Reis"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "bo@example.com", obj(body["user"])["email"])

	rec, body = v.do(t, http.MethodPost, "/api/users", map[string]any{"email": "bo@example.com", "name": "Bo"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate", body["code"])

	rec, _ = v.do(t, http.MethodPost, "/api/users", map[string]any{"email": "nobody", "name": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = v.do(t, http.MethodGet, "/api/users/email/bo@example.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bo", obj(body["user"])["name"])

	rec, _ = v.do(t, http.MethodGet, "/api/users/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = v.do(t, http.MethodGet, "/api/users/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = v.do(t, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), obj(body["pagination"])["total"])
}

func TestSalesReport(t *testing.T) {
	v := setup(t)
	v.buy(t, 3)
	v.buy(t, 1)
	_, _ = v.do(t, http.MethodPut, "/api/purchases/2/status", map[string]any{"status": "refunded"})

	rec, body := v.do(t, http.MethodGet, "/api/reports/sales", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := obj(body["summary"])
	assert.Equal(t, float64(3), sum["total_tickets"])
	assert.Equal(t, float64(1), sum["total_purchases"])
	assert.Equal(t, "Rock", sum["top_category"])
	assert.Equal(t, float64(1), body["records"])

	rec, _ = v.do(t, http.MethodGet, "/api/reports/sales?format=pdf&event_id=evt-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), ".pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	rec, _ = v.do(t, http.MethodGet, "/api/reports/sales?format=excel&from=2020-01-01&to=2099-12-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), ".xlsx")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))

	rec, _ = v.do(t, http.MethodGet, "/api/reports/sales?format=csv", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = v.do(t, http.MethodGet, "/api/reports/sales?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = v.do(t, http.MethodGet, "/api/reports/sales?to=2001-01-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["records"])
}

func TestOperationalEndpoints(t *testing.T) {
	v := setup(t)

	rec, _ := v.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec, body := v.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["status"])

	v.buy(t, 1)
	rec, _ = v.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ticketsales_purchases_created_total")
}

type downDB struct{}

func (downDB) PingContext(context.Context) error { return io.ErrUnexpectedEOF }

func TestReadyReportsDatabaseFailure(t *testing.T) {
	e := echo.New()
	e.GET("/readyz", handler.Ready(downDB{}))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
