package render

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/AEY-IP/aey-estimate-app-sub001/internal/snapshot"
)

var (
	pdfGrey      = &props.Color{Red: 80, Green: 80, Blue: 80}
	pdfHeaderBg  = &props.Color{Red: 33, Green: 37, Blue: 41}
	pdfBlockBg   = &props.Color{Red: 245, Green: 245, Blue: 245}
	pdfSummaryBg = &props.Color{Red: 240, Green: 240, Blue: 240}
)

// PDF renders a portrait A4 document with the works table, the materials table and totals.
func PDF(doc Document) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).
		WithTopMargin(10).
		WithRightMargin(10).
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   &props.Color{Red: 120, Green: 120, Blue: 120},
		}).
		Build()

	m := maroto.New(cfg)

	addPDFHeader(m, doc)
	for _, t := range doc.tables() {
		addPDFTable(m, t, doc.Currency)
	}
	addPDFSummary(m, doc)

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return out.GetBytes(), nil
}

func addPDFHeader(m core.Maroto, doc Document) {
	m.AddRows(
		row.New(12).Add(
			col.New(12).Add(
				text.New(doc.title(), props.Text{
					Size:  16,
					Style: fontstyle.Bold,
					Align: align.Center,
				}),
			),
		),
	)

	info := props.Text{Size: 9, Align: align.Left, Color: pdfGrey}
	infoRight := info
	infoRight.Align = align.Right
	m.AddRows(
		row.New(8).Add(
			col.New(6).Add(text.New("Client: "+doc.Client, info)),
			col.New(6).Add(text.New("Date: "+doc.CreatedDate, infoRight)),
		),
	)
	m.AddRows(row.New(4))
}

func addPDFTable(m core.Maroto, t table, currency string) {
	m.AddRows(
		row.New(10).Add(
			col.New(12).Add(text.New(t.Name, props.Text{Size: 11, Style: fontstyle.Bold, Top: 2})),
		),
	)
	if len(t.Rows) == 0 {
		m.AddRows(
			row.New(7).Add(
				col.New(12).Add(text.New("No items", props.Text{Size: 8, Color: pdfGrey})),
			),
		)
		return
	}

	headerText := props.Text{
		Size:  8,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: &props.Color{Red: 255, Green: 255, Blue: 255},
	}
	headerLeft := headerText
	headerLeft.Align = align.Left
	headerCell := &props.Cell{BackgroundColor: pdfHeaderBg}

	m.AddRows(
		row.New(8).Add(
			col.New(1).Add(text.New("#", headerText)).WithStyle(headerCell),
			col.New(5).Add(text.New("Name", headerLeft)).WithStyle(headerCell),
			col.New(1).Add(text.New("Qty", headerText)).WithStyle(headerCell),
			col.New(1).Add(text.New("Unit", headerText)).WithStyle(headerCell),
			col.New(2).Add(text.New("Price", headerText)).WithStyle(headerCell),
			col.New(2).Add(text.New("Total", headerText)).WithStyle(headerCell),
		),
	)

	for _, r := range t.Rows {
		addPDFRow(m, r, currency)
	}
	m.AddRows(row.New(4))
}

func addPDFRow(m core.Maroto, r snapshot.Row, currency string) {
	base := props.Text{Size: 7, Align: align.Center}
	var cell *props.Cell
	if r.Kind == snapshot.RowBlock {
		base.Style = fontstyle.Bold
		base.Size = 8
		cell = &props.Cell{BackgroundColor: pdfBlockBg}
	}
	left := base
	left.Align = align.Left
	right := base
	right.Align = align.Right

	var qty, unit, price string
	if r.Kind == snapshot.RowLine {
		qty = FormatQty(r.Quantity)
		unit = r.Unit
		price = FormatMoney(r.UnitPrice, currency)
	}

	cols := []core.Col{
		col.New(1).Add(text.New(r.Number, base)),
		col.New(5).Add(text.New(indent(r.Name, r.Level), left)),
		col.New(1).Add(text.New(qty, right)),
		col.New(1).Add(text.New(unit, base)),
		col.New(2).Add(text.New(price, right)),
		col.New(2).Add(text.New(FormatMoney(r.Total, currency), right)),
	}
	if cell != nil {
		for i := range cols {
			cols[i] = cols[i].WithStyle(cell)
		}
	}
	m.AddRows(row.New(7).Add(cols...))
}

func addPDFSummary(m core.Maroto, doc Document) {
	m.AddRows(row.New(6))

	label := props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}
	cell := &props.Cell{BackgroundColor: pdfSummaryBg}

	lines := []struct {
		name   string
		amount float64
	}{
		{"Works", doc.Snapshot.TotalWorksPrice},
		{"Materials", doc.Snapshot.TotalMaterialsPrice},
		{"Grand total", doc.Snapshot.GrandTotal},
	}
	for _, l := range lines {
		m.AddRows(
			row.New(8).Add(
				col.New(8).Add(text.New(l.name, label)).WithStyle(cell),
				col.New(4).Add(text.New(FormatMoney(l.amount, doc.Currency), label)).WithStyle(cell),
			),
		)
	}
}
