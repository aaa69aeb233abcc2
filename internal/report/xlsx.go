package report

import (
	"io"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the XLSX report.
const (
	SheetSummary    = "Summary"
	SheetCategories = "By category"
	SheetEvents     = "By event"
	SheetDetails    = "Purchases"
)

// WriteXLSX renders s as a workbook with one sheet per section.
func WriteXLSX(w io.Writer, s *Sales) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2563EB"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return err
	}
	top, topRevenue := "", ""
	if s.Summary.TopCategory != nil {
		top, topRevenue = *s.Summary.TopCategory, *s.Summary.TopRevenueGroup
	}
	summary := [][]any{
		{"Metric", "Value"},
		{"Generated", s.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Total sales", s.Summary.TotalSales.InexactFloat64()},
		{"Tickets sold", s.Summary.TotalTickets},
		{"Purchases", s.Summary.TotalPurchases},
		{"Average sale", s.Summary.AverageSale.InexactFloat64()},
		{"Top category by tickets", top},
		{"Top category by revenue", topRevenue},
	}
	if err := writeSheet(f, SheetSummary, header, summary, 28); err != nil {
		return err
	}

	cats := [][]any{{"Category", "Tickets", "Sales", "Average price"}}
	for _, c := range s.Categories {
		cats = append(cats, []any{c.Category, c.Tickets, c.Sales.InexactFloat64(), c.AveragePrice.InexactFloat64()})
	}
	if err := addSheet(f, SheetCategories, header, cats, 18); err != nil {
		return err
	}

	events := [][]any{{"Event ID", "Event", "Tickets", "Sales"}}
	for _, e := range s.Events {
		events = append(events, []any{e.EventID, e.Title, e.Tickets, e.Sales.InexactFloat64()})
	}
	if err := addSheet(f, SheetEvents, header, events, 24); err != nil {
		return err
	}

	details := [][]any{{
		"Purchase ID", "Order", "Date", "Status", "Quantity", "Unit price", "Service charge", "Total",
		"Customer", "Email", "Event", "Event date", "Venue", "Category",
	}}
	for _, d := range s.Details {
		details = append(details, []any{
			d.PurchaseID, d.OrderNumber, d.PurchaseDate.Format("2006-01-02 15:04:05"), d.Status, d.Quantity,
			d.UnitPrice.InexactFloat64(), d.ServiceCharge.InexactFloat64(), d.Total.InexactFloat64(),
			d.CustomerName, d.CustomerEmail, d.EventTitle, d.EventDate, d.Venue, d.Category,
		})
	}
	if err := addSheet(f, SheetDetails, header, details, 18); err != nil {
		return err
	}

	return f.Write(w)
}

func addSheet(f *excelize.File, name string, header int, rows [][]any, width float64) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	return writeSheet(f, name, header, rows, width)
}

// writeSheet writes rows starting at A1 and styles the first one.
func writeSheet(f *excelize.File, name string, header int, rows [][]any, width float64) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return err
		}
	}
	last, err := excelize.ColumnNumberToName(len(rows[0]))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(name, "A1", last+"1", header); err != nil {
		return err
	}
	return f.SetColWidth(name, "A", last, width)
}
