package pricing

import (
	"fmt"
	"math"
	"sort"
)

// Kind tells how a coefficient composes with manually priced lines.
type Kind string

const (
	// KindNormal multiplies automatically priced work lines and all materials.
	KindNormal Kind = "normal"
	// KindFinal multiplies every line regardless of how its price was set.
	KindFinal Kind = "final"
)

// Valid reports whether k is a known coefficient kind.
func (k Kind) Valid() bool {
	return k == KindNormal || k == KindFinal
}

// Coefficient is a named multiplicative factor from the catalog.
type Coefficient struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Kind  Kind    `json:"kind"`
}

// Validate checks that the coefficient is a positive finite multiplier of a known kind.
func (c Coefficient) Validate() error {
	if !c.Kind.Valid() {
		return fmt.Errorf("coefficient %s: kind %q: %w", c.ID, c.Kind, ErrInvalidCoefficient)
	}
	if !(c.Value > 0) || math.IsInf(c.Value, 0) {
		return fmt.Errorf("coefficient %s: value %v: %w", c.ID, c.Value, ErrInvalidCoefficient)
	}
	return nil
}

// Factors holds the two composed scalars of an estimate's coefficient selection.
type Factors struct {
	Normal float64 `json:"normalCoeff"`
	Final  float64 `json:"finalCoeff"`
}

// IdentityFactors is the result of an empty selection.
func IdentityFactors() Factors {
	return Factors{Normal: 1, Final: 1}
}

// Global is the combined multiplier applied to materials.
func (f Factors) Global() float64 {
	return f.Normal * f.Final
}

// Compose multiplies the selected coefficients into their normal and final scalars.
//
// Selected IDs missing from the catalog are skipped, so a deleted coefficient acts as
// a multiplier of 1. The selection is a set: repeated IDs count once, and the product
// is taken in ID order so any ordering of the selection yields the same bits.
func Compose(catalog []Coefficient, selected []string) (Factors, error) {
	byID := make(map[string]Coefficient, len(catalog))
	for _, c := range catalog {
		byID[c.ID] = c
	}

	resolved := make([]Coefficient, 0, len(selected))
	seen := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		c, ok := byID[id]
		if !ok {
			continue
		}
		if err := c.Validate(); err != nil {
			return Factors{}, err
		}
		resolved = append(resolved, c)
	}
	sort.Slice(resolved, func(i, j int) bool { return resolved[i].ID < resolved[j].ID })

	f := IdentityFactors()
	for _, c := range resolved {
		switch c.Kind {
		case KindNormal:
			f.Normal *= c.Value
		case KindFinal:
			f.Final *= c.Value
		}
	}
	return f, nil
}
