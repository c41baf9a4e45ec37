// Package snapshot holds the frozen, already-aggregated copy of an estimate's totals
// that exports are rendered from. A snapshot is a write-once value: nothing in this
// package recomputes prices, and nothing invalidates a stored snapshot implicitly.
package snapshot

import (
	"time"

	"github.com/google/uuid"

	"github.com/AEY-IP/aey-estimate-app-sub001/internal/pricing"
)

// CurrentVersion is written into every new snapshot payload.
const CurrentVersion = 1

// RowKind distinguishes block heading rows from line rows.
type RowKind string

const (
	RowBlock RowKind = "block"
	RowLine  RowKind = "line"
)

// Row is one printable row of a works or materials table.
// For block rows Total is the block subtotal of that table's kind, descendants included.
type Row struct {
	Kind      RowKind `json:"kind"`
	Level     int     `json:"level"`
	Number    string  `json:"number,omitempty"`
	BlockID   string  `json:"blockId"`
	LineID    string  `json:"lineId,omitempty"`
	Name      string  `json:"name"`
	Unit      string  `json:"unit,omitempty"`
	Quantity  float64 `json:"quantity,omitempty"`
	UnitPrice float64 `json:"unitPrice,omitempty"`
	Total     float64 `json:"total"`
	Manual    bool    `json:"isManualPrice,omitempty"`
}

// Snapshot is the frozen export record of one estimate.
type Snapshot struct {
	Version             int       `json:"version"`
	ID                  string    `json:"id"`
	EstimateID          string    `json:"estimateId"`
	CreatedAt           time.Time `json:"createdAt"`
	NormalCoeff         float64   `json:"normalCoeff"`
	FinalCoeff          float64   `json:"finalCoeff"`
	WorksData           []Row     `json:"worksData"`
	MaterialsData       []Row     `json:"materialsData"`
	TotalWorksPrice     float64   `json:"totalWorksPrice"`
	TotalMaterialsPrice float64   `json:"totalMaterialsPrice"`
	GrandTotal          float64   `json:"grandTotal"`
}

// Empty reports whether the snapshot has nothing to print.
func (s Snapshot) Empty() bool {
	return len(s.WorksData) == 0 && len(s.MaterialsData) == 0
}

// NewID returns a fresh snapshot identifier.
func NewID() string {
	return uuid.NewString()
}

// New freezes totals into a snapshot with a fresh ID.
func New(estimateID string, totals pricing.Totals, createdAt time.Time) Snapshot {
	s := FromTotals(estimateID, totals, createdAt)
	s.ID = NewID()
	return s
}

// FromTotals flattens aggregated totals into works and materials tables.
// It is deterministic: equal inputs give equal snapshots.
func FromTotals(estimateID string, totals pricing.Totals, createdAt time.Time) Snapshot {
	s := Snapshot{
		Version:             CurrentVersion,
		EstimateID:          estimateID,
		CreatedAt:           createdAt.UTC(),
		NormalCoeff:         totals.Factors.Normal,
		FinalCoeff:          totals.Factors.Final,
		WorksData:           make([]Row, 0),
		MaterialsData:       make([]Row, 0),
		TotalWorksPrice:     totals.WorksTotal,
		TotalMaterialsPrice: totals.MaterialsTotal,
		GrandTotal:          totals.GrandTotal,
	}

	for _, root := range totals.Blocks {
		s.WorksData = appendRows(s.WorksData, root, pricing.LineWork)
		s.MaterialsData = appendRows(s.MaterialsData, root, pricing.LineMaterial)
	}
	return s
}

func appendRows(rows []Row, b *pricing.PricedBlock, kind pricing.LineKind) []Row {
	if !hasLines(b, kind) {
		return rows
	}

	subtotal := b.WorksTotal
	if kind == pricing.LineMaterial {
		subtotal = b.MaterialsTotal
	}
	rows = append(rows, Row{
		Kind:    RowBlock,
		Level:   b.Depth,
		Number:  b.Number,
		BlockID: b.ID,
		Name:    b.Title,
		Total:   subtotal,
	})

	for _, line := range b.Lines {
		if line.Kind != kind {
			continue
		}
		rows = append(rows, Row{
			Kind:      RowLine,
			Level:     b.Depth + 1,
			BlockID:   b.ID,
			LineID:    line.ID,
			Name:      line.Name,
			Unit:      line.Unit,
			Quantity:  line.Quantity,
			UnitPrice: line.RoundedUnitPrice,
			Total:     line.LineTotal,
			// Materials always take both factors, so only work rows are marked manual.
			Manual: line.ManualPrice && kind == pricing.LineWork,
		})
	}

	for _, child := range b.Children {
		rows = appendRows(rows, child, kind)
	}
	return rows
}

func hasLines(b *pricing.PricedBlock, kind pricing.LineKind) bool {
	for _, line := range b.Lines {
		if line.Kind == kind {
			return true
		}
	}
	for _, child := range b.Children {
		if hasLines(child, kind) {
			return true
		}
	}
	return false
}
