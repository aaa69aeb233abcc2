package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-sales/internal/model"
)

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// parsePage reads ?page and ?per_page. Malformed values fall back to the
// defaults and per_page is capped at model.MaxPerPage.
func parsePage(c echo.Context) model.Page {
	p := model.Page{}
	if n, err := strconv.Atoi(c.QueryParam("page")); err == nil {
		p.Number = n
	}
	if n, err := strconv.Atoi(c.QueryParam("per_page")); err == nil {
		p.PerPage = n
	}
	return p.Normalize()
}

// queryBool reads a boolean query parameter, def when absent.
func queryBool(c echo.Context, name string, def bool) bool {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// parseInstant accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
// A plain date used as an upper bound covers the whole day.
func parseInstant(s string, upper bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	if upper {
		t = t.Add(24*time.Hour - time.Second)
	}
	return &t, nil
}

type listResponse struct {
	Items      any              `json:"items"`
	Pagination model.Pagination `json:"pagination"`
}
