package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/AEY-IP/aey-estimate-app-sub001/internal/snapshot"
)

//go:embed templates/*.html
var templateFS embed.FS

var estimateTemplate = template.Must(template.ParseFS(templateFS, "templates/estimate.html"))

type htmlRow struct {
	Class  string
	Number string
	Indent int
	Name   string
	Qty    string
	Unit   string
	Price  string
	Total  string
	Manual bool
}

type htmlTable struct {
	Name  string
	Rows  []htmlRow
	Total string
}

type htmlPage struct {
	Title       string
	Client      string
	Category    string
	CreatedDate string
	Tables      []htmlTable
	GrandTotal  string
}

// HTML writes the estimate as a standalone page, one nested table per kind.
func HTML(w io.Writer, doc Document) error {
	page := htmlPage{
		Title:       doc.title(),
		Client:      doc.Client,
		Category:    doc.Category,
		CreatedDate: doc.CreatedDate,
		GrandTotal:  FormatMoney(doc.Snapshot.GrandTotal, doc.Currency),
	}
	for _, t := range doc.tables() {
		ht := htmlTable{Name: t.Name, Total: FormatMoney(t.Total, doc.Currency)}
		for _, r := range t.Rows {
			hr := htmlRow{
				Class:  string(r.Kind),
				Number: r.Number,
				Indent: 6 + 16*r.Level,
				Name:   r.Name,
				Total:  FormatMoney(r.Total, doc.Currency),
				Manual: r.Manual,
			}
			if r.Kind == snapshot.RowLine {
				hr.Qty = FormatQty(r.Quantity)
				hr.Unit = r.Unit
				hr.Price = FormatMoney(r.UnitPrice, doc.Currency)
			}
			ht.Rows = append(ht.Rows, hr)
		}
		page.Tables = append(page.Tables, ht)
	}

	if err := estimateTemplate.Execute(w, page); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}
