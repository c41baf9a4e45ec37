package pricing

import "math"

// LineKind separates work lines from material lines.
type LineKind string

const (
	LineWork     LineKind = "work"
	LineMaterial LineKind = "material"
)

// LineItem is a single work or material entry of an estimate.
type LineItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Unit        string   `json:"unit"`
	Kind        LineKind `json:"kind"`
	Quantity    float64  `json:"quantity"`
	UnitPrice   float64  `json:"unitPrice"`
	ManualPrice bool     `json:"isManualPrice"`
}

// Validate rejects negative or non-finite numbers instead of clamping them.
func (item LineItem) Validate() error {
	if item.Kind != LineWork && item.Kind != LineMaterial {
		return &LineError{LineID: item.ID, Field: "kind", Err: ErrInvalidLineKind}
	}
	if !validAmount(item.Quantity) {
		return &LineError{LineID: item.ID, Field: "quantity", Value: item.Quantity, Err: ErrInvalidQuantity}
	}
	if !validAmount(item.UnitPrice) {
		return &LineError{LineID: item.ID, Field: "unitPrice", Value: item.UnitPrice, Err: ErrInvalidPrice}
	}
	return nil
}

func validAmount(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}

// PricedLine is a line item with its displayed unit price and rounded total.
type PricedLine struct {
	LineItem
	DisplayUnitPrice float64 `json:"displayUnitPrice"`
	RoundedUnitPrice float64 `json:"roundedUnitPrice"`
	LineTotal        float64 `json:"displayLineTotal"`
}

// PriceLine applies the composed factors to one line.
//
// Manual work prices skip the normal factor and only receive the final one. Materials
// always receive both factors, whether or not their price was set manually.
func PriceLine(item LineItem, f Factors) (PricedLine, error) {
	if err := item.Validate(); err != nil {
		return PricedLine{}, err
	}

	var unit float64
	switch {
	case item.Kind == LineMaterial:
		unit = item.UnitPrice * f.Normal * f.Final
	case item.ManualPrice:
		unit = item.UnitPrice * f.Final
	default:
		unit = item.UnitPrice * f.Normal * f.Final
	}

	if math.IsInf(unit, 0) {
		return PricedLine{}, &LineError{LineID: item.ID, Field: "unitPrice", Value: item.UnitPrice, Err: ErrAmountOverflow}
	}
	rounded := roundMoney(unit)
	total := roundMoney(rounded * item.Quantity)
	if math.IsInf(total, 0) {
		return PricedLine{}, &LineError{LineID: item.ID, Field: "quantity", Value: item.Quantity, Err: ErrAmountOverflow}
	}
	return PricedLine{
		LineItem:         item,
		DisplayUnitPrice: unit,
		RoundedUnitPrice: rounded,
		LineTotal:        total,
	}, nil
}

// roundMoney rounds to whole currency units, halves away from zero.
// Rounding happens per line, so a block total may differ by a unit from the
// rounded sum of exact line amounts.
func roundMoney(v float64) float64 {
	return math.Round(v)
}
