package render

import (
	"bufio"
	"fmt"
	"io"

	"github.com/AEY-IP/aey-estimate-app-sub001/internal/snapshot"
)

// Text writes a plain-text summary suitable for pasting into a message.
func Text(w io.Writer, doc Document) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "%s\n", doc.title())
	if doc.Client != "" {
		fmt.Fprintf(bw, "Client: %s\n", doc.Client)
	}
	fmt.Fprintf(bw, "Date: %s\n", doc.CreatedDate)

	for _, t := range doc.tables() {
		fmt.Fprintf(bw, "\n%s:\n", t.Name)
		if len(t.Rows) == 0 {
			fmt.Fprintln(bw, "  no items")
			continue
		}
		for _, r := range t.Rows {
			switch r.Kind {
			case snapshot.RowBlock:
				fmt.Fprintf(bw, "%s%s %s: %s\n", indent("", r.Level), r.Number, r.Name, FormatMoney(r.Total, doc.Currency))
			default:
				fmt.Fprintf(bw, "%s- %s, %s %s x %s = %s\n", indent("", r.Level), r.Name,
					FormatQty(r.Quantity), r.Unit, FormatMoney(r.UnitPrice, doc.Currency), FormatMoney(r.Total, doc.Currency))
			}
		}
		fmt.Fprintf(bw, "Total %s: %s\n", t.Name, FormatMoney(t.Total, doc.Currency))
	}

	fmt.Fprintf(bw, "\nGrand total: %s\n", FormatMoney(doc.Snapshot.GrandTotal, doc.Currency))
	return bw.Flush()
}
