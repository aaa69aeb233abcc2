package handler

import (
	"bytes"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-sales/internal/report"
	"github.com/iliyamo/ticket-sales/internal/repository"
)

const (
	mimePDF  = "application/pdf"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ReportHandler serves sales reports. It never writes.
type ReportHandler struct {
	Source report.Source
	Now    func() time.Time
}

func NewReportHandler(src report.Source) *ReportHandler {
	if src == nil {
		panic("nil source passed to NewReportHandler")
	}
	return &ReportHandler{Source: src, Now: func() time.Time { return time.Now().UTC() }}
}

// Sales handles GET /api/reports/sales?event_id&from&to&format. format is
// json (default), pdf or excel.
func (h *ReportHandler) Sales(c echo.Context) error {
	from, err := parseInstant(c.QueryParam("from"), false)
	if err != nil {
		return badRequest(c, "invalid from date")
	}
	to, err := parseInstant(c.QueryParam("to"), true)
	if err != nil {
		return badRequest(c, "invalid to date")
	}
	format := c.QueryParam("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "pdf" && format != "excel" {
		return badRequest(c, "format must be json, pdf or excel")
	}

	f := repository.ReportFilter{EventID: c.QueryParam("event_id"), From: from, To: to}
	now := h.Now()
	s, err := report.Build(c.Request().Context(), h.Source, f, now)
	if err != nil {
		return fail(c, err)
	}

	name := "sales-report-" + now.Format("20060102-150405")
	var buf bytes.Buffer
	switch format {
	case "pdf":
		if err := report.WritePDF(&buf, s); err != nil {
			return fail(c, err)
		}
		return attachment(c, mimePDF, name+".pdf", buf.Bytes())
	case "excel":
		if err := report.WriteXLSX(&buf, s); err != nil {
			return fail(c, err)
		}
		return attachment(c, mimeXLSX, name+".xlsx", buf.Bytes())
	}
	return c.JSON(http.StatusOK, s)
}

func attachment(c echo.Context, mime, filename string, body []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Blob(http.StatusOK, mime, body)
}
