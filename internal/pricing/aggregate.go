package pricing

import (
	"fmt"
	"math"
)

// PricedBlock is a block with its priced lines and subtotals.
// WorksTotal, MaterialsTotal and Total include every descendant block.
type PricedBlock struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	ParentID       string         `json:"parentId,omitempty"`
	Number         string         `json:"number"`
	Depth          int            `json:"depth"`
	Lines          []PricedLine   `json:"lines"`
	OwnTotal       float64        `json:"ownTotal"`
	WorksTotal     float64        `json:"worksTotal"`
	MaterialsTotal float64        `json:"materialsTotal"`
	Total          float64        `json:"total"`
	Children       []*PricedBlock `json:"children,omitempty"`
}

// Walk visits b and its descendants depth-first, parents before children.
func (b *PricedBlock) Walk(fn func(*PricedBlock)) {
	fn(b)
	for _, child := range b.Children {
		child.Walk(fn)
	}
}

// Totals is the full result of pricing an estimate.
type Totals struct {
	Factors        Factors        `json:"coefficients"`
	Blocks         []*PricedBlock `json:"blocks"`
	WorksTotal     float64        `json:"totalWorksPrice"`
	MaterialsTotal float64        `json:"totalMaterialsPrice"`
	GrandTotal     float64        `json:"grandTotal"`
	LineCount      int            `json:"lineCount"`
}

// Empty reports whether the estimate has no priced lines.
func (t Totals) Empty() bool {
	return t.LineCount == 0
}

// Aggregate prices every line of the tree and sums subtotals bottom-up.
// The first rejected line aborts the whole calculation.
func Aggregate(t *Tree, f Factors) (Totals, error) {
	labels := t.Number()
	totals := Totals{Factors: f, Blocks: make([]*PricedBlock, 0, len(t.children[""]))}

	for _, id := range t.children[""] {
		pb, err := t.aggregateBlock(id, 0, labels, f)
		if err != nil {
			return Totals{}, err
		}
		totals.Blocks = append(totals.Blocks, pb)
		totals.WorksTotal += pb.WorksTotal
		totals.MaterialsTotal += pb.MaterialsTotal
		totals.GrandTotal += pb.Total
	}
	if math.IsInf(totals.GrandTotal, 0) {
		return Totals{}, fmt.Errorf("grand total: %w", ErrAmountOverflow)
	}

	for _, pb := range totals.Blocks {
		pb.Walk(func(b *PricedBlock) { totals.LineCount += len(b.Lines) })
	}

	return totals, nil
}

func (t *Tree) aggregateBlock(id string, depth int, labels map[string]string, f Factors) (*PricedBlock, error) {
	b := t.blocks[id]
	pb := &PricedBlock{
		ID:       b.ID,
		Title:    b.Title,
		ParentID: b.ParentID,
		Number:   labels[b.ID],
		Depth:    depth,
		Lines:    make([]PricedLine, 0, len(b.Items)),
	}

	for _, item := range b.Items {
		line, err := PriceLine(item, f)
		if err != nil {
			return nil, fmt.Errorf("block %s: %w", b.ID, err)
		}
		pb.Lines = append(pb.Lines, line)
		pb.OwnTotal += line.LineTotal
		if line.Kind == LineMaterial {
			pb.MaterialsTotal += line.LineTotal
		} else {
			pb.WorksTotal += line.LineTotal
		}
	}

	pb.Total = pb.OwnTotal
	for _, childID := range t.children[id] {
		child, err := t.aggregateBlock(childID, depth+1, labels, f)
		if err != nil {
			return nil, err
		}
		pb.Children = append(pb.Children, child)
		pb.WorksTotal += child.WorksTotal
		pb.MaterialsTotal += child.MaterialsTotal
		pb.Total += child.Total
	}

	return pb, nil
}
