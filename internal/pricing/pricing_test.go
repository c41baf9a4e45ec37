package pricing

import (
	"errors"
	"math"
	"testing"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func demoCatalog() []Coefficient {
	return []Coefficient{
		{ID: "markup", Name: "Наценка", Value: 1.1, Kind: KindNormal},
		{ID: "discount", Name: "Скидка", Value: 0.9, Kind: KindFinal},
	}
}

func TestCalculate_AutomaticWorkLine(t *testing.T) {
	totals, err := Calculate(Input{
		Catalog:  demoCatalog(),
		Selected: []string{"markup", "discount"},
		Blocks: []Block{{
			ID:    "b1",
			Title: "Демонтаж",
			Items: []LineItem{{ID: "w1", Kind: LineWork, Quantity: 2, UnitPrice: 1000}},
		}},
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	nearlyEqual(t, "normalCoeff", totals.Factors.Normal, 1.1)
	nearlyEqual(t, "finalCoeff", totals.Factors.Final, 0.9)

	line := totals.Blocks[0].Lines[0]
	nearlyEqual(t, "displayUnitPrice", line.DisplayUnitPrice, 990)
	nearlyEqual(t, "displayLineTotal", line.LineTotal, 1980)
	nearlyEqual(t, "grandTotal", totals.GrandTotal, 1980)
	nearlyEqual(t, "worksTotal", totals.WorksTotal, 1980)
	nearlyEqual(t, "materialsTotal", totals.MaterialsTotal, 0)
}

func TestCalculate_ManualWorkLineSkipsNormalCoefficient(t *testing.T) {
	totals, err := Calculate(Input{
		Catalog:  demoCatalog(),
		Selected: []string{"markup", "discount"},
		Blocks: []Block{{
			ID:    "b1",
			Items: []LineItem{{ID: "w1", Kind: LineWork, Quantity: 2, UnitPrice: 950, ManualPrice: true}},
		}},
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	line := totals.Blocks[0].Lines[0]
	nearlyEqual(t, "displayUnitPrice", line.DisplayUnitPrice, 855)
	nearlyEqual(t, "displayLineTotal", line.LineTotal, 1710)
}

func TestCalculate_NestedBlocks(t *testing.T) {
	blocks := []Block{
		{ID: "A", Items: []LineItem{{ID: "a", Kind: LineWork, Quantity: 1, UnitPrice: 500}}},
		{ID: "B", ParentID: "A", Items: []LineItem{{ID: "b", Kind: LineWork, Quantity: 3, UnitPrice: 100}}},
		{ID: "C", ParentID: "B", Items: []LineItem{{ID: "c", Kind: LineMaterial, Quantity: 4, UnitPrice: 25}}},
	}

	totals, err := Calculate(Input{Blocks: blocks})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	if len(totals.Blocks) != 1 {
		t.Fatalf("expected 1 root block, got %d", len(totals.Blocks))
	}
	a := totals.Blocks[0]
	b := a.Children[0]
	c := b.Children[0]

	nearlyEqual(t, "blockTotal(C)", c.Total, 100)
	nearlyEqual(t, "blockTotal(B)", b.Total, 400)
	nearlyEqual(t, "blockTotal(A)", a.Total, 900)
	nearlyEqual(t, "A.OwnTotal", a.OwnTotal, 500)
	nearlyEqual(t, "A.WorksTotal", a.WorksTotal, 800)
	nearlyEqual(t, "A.MaterialsTotal", a.MaterialsTotal, 100)
	nearlyEqual(t, "grandTotal", totals.GrandTotal, 900)

	if a.Number != "1" || b.Number != "1.1" || c.Number != "1.1.1" {
		t.Fatalf("unexpected numbering: %q %q %q", a.Number, b.Number, c.Number)
	}
	if c.Depth != 2 {
		t.Fatalf("C depth = %d, want 2", c.Depth)
	}
	if totals.LineCount != 3 {
		t.Fatalf("LineCount = %d, want 3", totals.LineCount)
	}
}

func TestCalculate_BlockTotalIsOwnLinesPlusChildren(t *testing.T) {
	blocks := []Block{
		{ID: "root", Items: []LineItem{
			{ID: "r1", Kind: LineWork, Quantity: 1.5, UnitPrice: 333.3},
			{ID: "r2", Kind: LineMaterial, Quantity: 7, UnitPrice: 12.49, ManualPrice: true},
		}},
		{ID: "k1", ParentID: "root", SortOrder: 2, Items: []LineItem{{ID: "k1a", Kind: LineWork, Quantity: 3, UnitPrice: 99.5}}},
		{ID: "k2", ParentID: "root", SortOrder: 1, Items: []LineItem{{ID: "k2a", Kind: LineWork, Quantity: 2, UnitPrice: 10, ManualPrice: true}}},
		{ID: "g1", ParentID: "k1", Items: []LineItem{{ID: "g1a", Kind: LineMaterial, Quantity: 0.5, UnitPrice: 1001}}},
	}

	totals, err := Calculate(Input{Catalog: demoCatalog(), Selected: []string{"discount", "markup"}, Blocks: blocks})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	var check func(b *PricedBlock) float64
	check = func(b *PricedBlock) float64 {
		sum := 0.0
		for _, l := range b.Lines {
			if l.LineTotal != math.Round(l.LineTotal) {
				t.Fatalf("line %s total %v is not rounded", l.ID, l.LineTotal)
			}
			sum += l.LineTotal
		}
		for _, child := range b.Children {
			sum += check(child)
		}
		nearlyEqual(t, "blockTotal("+b.ID+")", b.Total, sum)
		return sum
	}
	check(totals.Blocks[0])

	root := totals.Blocks[0]
	if root.Children[0].ID != "k2" || root.Children[1].ID != "k1" {
		t.Fatalf("children not ordered by sortOrder: %s, %s", root.Children[0].ID, root.Children[1].ID)
	}
}

func TestCalculate_EmptyEstimate(t *testing.T) {
	totals, err := Calculate(Input{Catalog: demoCatalog(), Selected: []string{"markup"}})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if !totals.Empty() || totals.GrandTotal != 0 || len(totals.Blocks) != 0 {
		t.Fatalf("expected empty zero totals, got %+v", totals)
	}
}

func TestCalculate_RejectsNegativeQuantity(t *testing.T) {
	_, err := Calculate(Input{Blocks: []Block{{
		ID:    "b1",
		Items: []LineItem{{ID: "bad", Kind: LineWork, Quantity: -1, UnitPrice: 100}},
	}}})
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}

	var lineErr *LineError
	if !errors.As(err, &lineErr) || lineErr.LineID != "bad" {
		t.Fatalf("expected LineError for line bad, got %v", err)
	}
}

func TestCalculate_RejectsOverflowingGrandTotal(t *testing.T) {
	_, err := Calculate(Input{Blocks: []Block{
		{ID: "a", Items: []LineItem{{ID: "a1", Kind: LineWork, Quantity: 1, UnitPrice: 1e308}}},
		{ID: "b", Items: []LineItem{{ID: "b1", Kind: LineMaterial, Quantity: 1, UnitPrice: 1e308}}},
	}})
	if !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected ErrAmountOverflow, got %v", err)
	}
}

func TestCalculate_RejectsCycle(t *testing.T) {
	_, err := Calculate(Input{Blocks: []Block{
		{ID: "a", ParentID: "b"},
		{ID: "b", ParentID: "a"},
	}})
	if !errors.Is(err, ErrBlockCycle) {
		t.Fatalf("expected ErrBlockCycle, got %v", err)
	}
}

func TestCalculate_IsDeterministic(t *testing.T) {
	in := Input{
		Catalog:  demoCatalog(),
		Selected: []string{"markup", "discount", "gone"},
		Blocks: []Block{
			{ID: "x", Items: []LineItem{{ID: "1", Kind: LineWork, Quantity: 3.3, UnitPrice: 17.77}}},
			{ID: "y", ParentID: "x", Items: []LineItem{{ID: "2", Kind: LineMaterial, Quantity: 1, UnitPrice: 0.5}}},
		},
	}

	first, err := Calculate(in)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	second, err := Calculate(in)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if first.GrandTotal != second.GrandTotal || first.Blocks[0].Children[0].Total != second.Blocks[0].Children[0].Total {
		t.Fatalf("recomputation drifted: %v vs %v", first.GrandTotal, second.GrandTotal)
	}
}
