// Package pricing turns estimate blocks, line items and a coefficient selection into
// displayed prices and totals. Every function here is pure: callers fetch the catalog
// and the estimate, and persist whatever they need afterwards.
package pricing

import "fmt"

// Input groups everything one calculation depends on.
type Input struct {
	Catalog  []Coefficient
	Selected []string
	Blocks   []Block
}

// Calculate composes the selected coefficients and aggregates the block tree.
func Calculate(in Input) (Totals, error) {
	f, err := Compose(in.Catalog, in.Selected)
	if err != nil {
		return Totals{}, fmt.Errorf("compose coefficients: %w", err)
	}

	tree, err := NewTree(in.Blocks)
	if err != nil {
		return Totals{}, fmt.Errorf("build block tree: %w", err)
	}

	totals, err := Aggregate(tree, f)
	if err != nil {
		return Totals{}, fmt.Errorf("aggregate blocks: %w", err)
	}
	return totals, nil
}
