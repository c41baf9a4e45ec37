package render

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/AEY-IP/aey-estimate-app-sub001/internal/snapshot"
)

var xlsxColumns = []string{"A", "B", "C", "D", "E", "F"}

type xlsxStyles struct {
	title, subtitle, header, block, line, summaryLabel, summaryValue int
}

// XLSX renders the works and materials tables as two sheets.
func XLSX(doc Document) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	styles, err := newXLSXStyles(f)
	if err != nil {
		return nil, err
	}

	for i, t := range doc.tables() {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), t.Name); err != nil {
				return nil, fmt.Errorf("set sheet name: %w", err)
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", t.Name, err)
		}
		if err := writeSheet(f, t, doc, styles); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, t table, doc Document, styles xlsxStyles) error {
	sheet := t.Name
	lastCol := xlsxColumns[len(xlsxColumns)-1]

	widths := []float64{8, 48, 10, 10, 16, 18}
	for i, col := range xlsxColumns {
		if err := f.SetColWidth(sheet, col, col, widths[i]); err != nil {
			return fmt.Errorf("set col width %s: %w", col, err)
		}
	}

	if err := f.MergeCell(sheet, "A1", lastCol+"1"); err != nil {
		return fmt.Errorf("merge title: %w", err)
	}
	f.SetCellValue(sheet, "A1", sanitizeExcelCell(doc.title()))
	f.SetCellStyle(sheet, "A1", lastCol+"1", styles.title)

	subtitle := "Date: " + doc.CreatedDate
	if doc.Client != "" {
		subtitle = "Client: " + doc.Client + "    " + subtitle
	}
	if err := f.MergeCell(sheet, "A2", lastCol+"2"); err != nil {
		return fmt.Errorf("merge subtitle: %w", err)
	}
	f.SetCellValue(sheet, "A2", sanitizeExcelCell(subtitle))
	f.SetCellStyle(sheet, "A2", lastCol+"2", styles.subtitle)

	headers := []string{"#", "Name", "Qty", "Unit", "Price", "Total"}
	for i, h := range headers {
		f.SetCellValue(sheet, fmt.Sprintf("%s4", xlsxColumns[i]), h)
	}
	f.SetCellStyle(sheet, "A4", lastCol+"4", styles.header)

	row := 5
	for _, r := range t.Rows {
		cell := func(col string) string { return fmt.Sprintf("%s%d", col, row) }

		f.SetCellValue(sheet, cell("A"), r.Number)
		f.SetCellValue(sheet, cell("B"), indent(sanitizeExcelCell(r.Name), r.Level))
		if r.Kind == snapshot.RowLine {
			f.SetCellValue(sheet, cell("C"), r.Quantity)
			f.SetCellValue(sheet, cell("D"), sanitizeExcelCell(r.Unit))
			f.SetCellValue(sheet, cell("E"), r.UnitPrice)
		}
		f.SetCellValue(sheet, cell("F"), r.Total)

		style := styles.line
		if r.Kind == snapshot.RowBlock {
			style = styles.block
		}
		f.SetCellStyle(sheet, cell("A"), cell(lastCol), style)
		row++
	}

	row++
	summary := []struct {
		label  string
		amount float64
	}{
		{"Total " + t.Name + ":", t.Total},
		{"Grand total:", doc.Snapshot.GrandTotal},
	}
	for _, s := range summary {
		label := fmt.Sprintf("E%d", row)
		value := fmt.Sprintf("F%d", row)
		f.SetCellValue(sheet, label, s.label)
		f.SetCellStyle(sheet, label, label, styles.summaryLabel)
		f.SetCellValue(sheet, value, FormatMoney(s.amount, doc.Currency))
		f.SetCellStyle(sheet, value, value, styles.summaryValue)
		row++
	}
	return nil
}

func newXLSXStyles(f *excelize.File) (xlsxStyles, error) {
	var styles xlsxStyles
	var err error

	if styles.title, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 16},
	}); err != nil {
		return styles, fmt.Errorf("create title style: %w", err)
	}
	if styles.subtitle, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 11},
	}); err != nil {
		return styles, fmt.Errorf("create subtitle style: %w", err)
	}
	if styles.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#333333"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorders(),
	}); err != nil {
		return styles, fmt.Errorf("create header style: %w", err)
	}
	if styles.block, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 10},
		Border: thinBorders(),
		NumFmt: 3,
	}); err != nil {
		return styles, fmt.Errorf("create block style: %w", err)
	}
	if styles.line, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Size: 10},
		Border: thinBorders(),
		NumFmt: 3,
	}); err != nil {
		return styles, fmt.Errorf("create line style: %w", err)
	}
	if styles.summaryLabel, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "right"},
	}); err != nil {
		return styles, fmt.Errorf("create summary label style: %w", err)
	}
	if styles.summaryValue, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
	}); err != nil {
		return styles, fmt.Errorf("create summary value style: %w", err)
	}
	return styles, nil
}

// sanitizeExcelCell prefixes a quote to values Excel would evaluate as formulas.
func sanitizeExcelCell(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}

func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{Type: side, Color: "#000000", Style: 1}
	}
	return borders
}
