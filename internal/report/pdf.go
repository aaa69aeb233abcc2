package report

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

const pdfDetailLimit = 200

type column struct {
	title string
	width float64
	align string
}

// WritePDF renders s as an A4 document: summary, category and event
// tables, then up to pdfDetailLimit detail rows.
func WritePDF(w io.Writer, s *Sales) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(30, 58, 138)
	pdf.CellFormat(0, 12, "Sales report", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(80, 80, 80)
	pdf.CellFormat(0, 6, "Generated "+s.GeneratedAt.Format("2006-01-02 15:04 MST"), "", 1, "C", false, 0, "")
	if line := filterLine(s.Filters); line != "" {
		pdf.CellFormat(0, 6, tr(line), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	heading(pdf, "Summary")
	sum := [][]string{
		{"Total sales", money(s.Summary.TotalSales)},
		{"Tickets sold", fmt.Sprint(s.Summary.TotalTickets)},
		{"Purchases", fmt.Sprint(s.Summary.TotalPurchases)},
		{"Average sale", money(s.Summary.AverageSale)},
	}
	if s.Summary.TopCategory != nil {
		sum = append(sum,
			[]string{"Top category by tickets", *s.Summary.TopCategory},
			[]string{"Top category by revenue", *s.Summary.TopRevenueGroup})
	}
	table(pdf, tr, []column{{"Metric", 90, "L"}, {"Value", 90, "L"}}, sum)

	if len(s.Categories) > 0 {
		heading(pdf, "By category")
		rows := make([][]string, 0, len(s.Categories))
		for _, c := range s.Categories {
			rows = append(rows, []string{c.Category, fmt.Sprint(c.Tickets), money(c.Sales), money(c.AveragePrice)})
		}
		table(pdf, tr, []column{{"Category", 60, "L"}, {"Tickets", 40, "R"}, {"Sales", 40, "R"}, {"Avg. price", 40, "R"}}, rows)
	}

	if len(s.Events) > 0 {
		heading(pdf, "By event")
		rows := make([][]string, 0, len(s.Events))
		for _, e := range s.Events {
			rows = append(rows, []string{truncate(e.Title, 48), fmt.Sprint(e.Tickets), money(e.Sales)})
		}
		table(pdf, tr, []column{{"Event", 100, "L"}, {"Tickets", 40, "R"}, {"Sales", 40, "R"}}, rows)
	}

	if len(s.Details) > 0 {
		pdf.AddPage()
		heading(pdf, "Purchases")
		n := min(len(s.Details), pdfDetailLimit)
		rows := make([][]string, 0, n)
		for _, d := range s.Details[:n] {
			rows = append(rows, []string{
				d.PurchaseDate.Format("2006-01-02"), d.OrderNumber, truncate(d.EventTitle, 24),
				truncate(d.CustomerName, 20), fmt.Sprint(d.Quantity), money(d.Total),
			})
		}
		table(pdf, tr, []column{
			{"Date", 22, "L"}, {"Order", 48, "L"}, {"Event", 44, "L"},
			{"Customer", 36, "L"}, {"Qty", 10, "R"}, {"Total", 20, "R"},
		}, rows)
		if len(s.Details) > n {
			pdf.SetFont("Helvetica", "I", 8)
			pdf.CellFormat(0, 6, fmt.Sprintf("%d more purchases not shown", len(s.Details)-n), "", 1, "L", false, 0, "")
		}
	}

	return pdf.Output(w)
}

func heading(pdf *fpdf.Fpdf, title string) {
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetTextColor(37, 99, 235)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
}

func table(pdf *fpdf.Fpdf, tr func(string) string, cols []column, rows [][]string) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(37, 99, 235)
	pdf.SetTextColor(255, 255, 255)
	for _, c := range cols {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFillColor(245, 245, 220)
	for i, r := range rows {
		for j, c := range cols {
			pdf.CellFormat(c.width, 6, tr(r[j]), "1", 0, c.align, i%2 == 1, 0, "")
		}
		pdf.Ln(-1)
	}
}

func filterLine(f Filters) string {
	line := ""
	if f.EventID != "" {
		line += "event " + f.EventID + "  "
	}
	if f.From != nil {
		line += "from " + f.From.Format("2006-01-02") + "  "
	}
	if f.To != nil {
		line += "to " + f.To.Format("2006-01-02")
	}
	return line
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
