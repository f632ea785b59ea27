package air

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// SelectorMask is a compact membership set over row indices [0, n), used
// when a selector column is sparse or periodic rather than dense: Test
// answers row membership in O(1) without a full fr.Element per row, the
// same role bitset.BitSet plays for input/output wire classification in
// internal/algo_utils. EvalBlock does not read masks; ToSelectorColumn
// expands one into a dense SelectorColumn for a Spec.
type SelectorMask struct {
	bits *bitset.BitSet
	n    uint
}

// NewSelectorMask allocates a mask over n rows, all initially clear.
func NewSelectorMask(n uint) *SelectorMask {
	return &SelectorMask{bits: bitset.New(n), n: n}
}

// NewSelectorMaskFromRows builds a mask with the given rows set.
func NewSelectorMaskFromRows(n uint, rows []uint) *SelectorMask {
	m := NewSelectorMask(n)
	for _, r := range rows {
		m.Set(r)
	}
	return m
}

// NewPeriodicSelectorMask sets every row r where r%period == phase.
func NewPeriodicSelectorMask(n, period, phase uint) *SelectorMask {
	m := NewSelectorMask(n)
	if period == 0 {
		return m
	}
	for r := phase; r < n; r += period {
		m.Set(r)
	}
	return m
}

// Set marks row as selected.
func (m *SelectorMask) Set(row uint) {
	if row < m.n {
		m.bits.Set(row)
	}
}

// Test reports whether row is selected.
func (m *SelectorMask) Test(row uint) bool {
	if row >= m.n {
		return false
	}
	return m.bits.Test(row)
}

// Count returns the number of selected rows.
func (m *SelectorMask) Count() uint {
	return m.bits.Count()
}

// Len returns the mask's row capacity n.
func (m *SelectorMask) Len() uint {
	return m.n
}

// ToSelectorColumn materializes m into a dense SelectorColumn usable
// directly in a Spec's Selectors table: active rows get activeValue, all
// others get the zero element. This is the bridge between the compact
// sparse/periodic mask construction above and EvalBlock's dense
// per-column evaluation, for AIRs whose selector is naturally described by
// membership (e.g. "every 8th row is a boundary row") rather than an
// explicit per-row value list.
func (m *SelectorMask) ToSelectorColumn(activeValue fr.Element) SelectorColumn {
	values := make([]fr.Element, m.n)
	for r := uint(0); r < m.n; r++ {
		if m.Test(r) {
			values[r] = activeValue
		}
	}
	return SelectorColumn{Values: values}
}
