// Package potential implements Dissolve's PotentialMap: an immutable,
// symmetric triangular table of tabulated pair potentials indexed by
// master atom type, each tabulated on a uniform grid and evaluated by
// linear interpolation at query time.
//
// This is grounded on the teacher's lookup-table idiom (small, immutable,
// slice-backed value types built once and read many times) rather than any
// single teacher file, since the teacher domain has no tabulated-function
// analogue; the shape (build-once, query-many, never mutated after New)
// follows the same pattern the teacher applies to its `forcefield`-adjacent
// parameter tables.
package potential

import (
	"math"

	"github.com/dissolveproject/dissolve/pkg/errors"
)

// Tabulated is a single pair potential sampled on a uniform grid
// [0, delta, 2*delta, ...] out to range. Values are not extrapolated:
// Energy returns 0 at and beyond Range().
type Tabulated struct {
	delta  float64
	values []float64
}

// NewTabulated builds a Tabulated potential from a sampling function
// evaluated at delta-spaced points from 0 up to and including range.
func NewTabulated(rangeCutoff, delta float64, u func(r float64) float64) (*Tabulated, error) {
	if rangeCutoff <= 0 {
		return nil, errors.DomainRange("potential range must be positive")
	}
	if delta <= 0 {
		return nil, errors.DomainRange("potential grid spacing must be positive")
	}
	n := int(math.Ceil(rangeCutoff/delta)) + 1
	values := make([]float64, n)
	for i := range values {
		values[i] = u(float64(i) * delta)
	}
	return &Tabulated{delta: delta, values: values}, nil
}

// Range returns the cutoff distance beyond which Energy returns 0.
func (t *Tabulated) Range() float64 {
	return float64(len(t.values)-1) * t.delta
}

// RangeSquared returns Range()².
func (t *Tabulated) RangeSquared() float64 {
	r := t.Range()
	return r * r
}

// Energy linearly interpolates the tabulated potential at r, returning 0
// beyond the table's range.
func (t *Tabulated) Energy(r float64) float64 {
	if r < 0 || r >= t.Range() {
		return 0
	}
	bin := r / t.delta
	lo := int(bin)
	if lo >= len(t.values)-1 {
		return t.values[len(t.values)-1]
	}
	frac := bin - float64(lo)
	return t.values[lo]*(1-frac) + t.values[lo+1]*frac
}

// Map is a symmetric triangular table of Tabulated potentials indexed by
// a pair of master atom type indices. It is built once via NewMap and is
// never mutated thereafter, so concurrent Energy queries from many
// EnergyKernel goroutines are always safe without locking.
type Map struct {
	nTypes     int
	potentials []*Tabulated // triangular, indexed via triIndex(i,j)
}

// NewMap constructs an empty Map sized for nTypes master atom types. Use
// Set to populate each (i,j) pair before querying.
func NewMap(nTypes int) (*Map, error) {
	if nTypes <= 0 {
		return nil, errors.InvalidParam("potential map requires at least one atom type")
	}
	count := nTypes * (nTypes + 1) / 2
	return &Map{nTypes: nTypes, potentials: make([]*Tabulated, count)}, nil
}

func triIndex(i, j, n int) int {
	if i > j {
		i, j = j, i
	}
	// Row-major over the upper triangle including the diagonal.
	return i*n - (i*(i-1))/2 + (j - i)
}

// Set installs the potential between master types i and j (symmetric:
// Set(i,j,...) and Set(j,i,...) address the same slot).
func (m *Map) Set(i, j int, pot *Tabulated) error {
	if i < 0 || i >= m.nTypes || j < 0 || j >= m.nTypes {
		return errors.DomainRange("atom type index out of range for potential map")
	}
	m.potentials[triIndex(i, j, m.nTypes)] = pot
	return nil
}

// Energy returns U(r) for the pair of master types i, j. Returns 0 if no
// potential has been set for that pair (an unparametrised pair contributes
// nothing, rather than panicking mid-run).
func (m *Map) Energy(i, j int, r float64) float64 {
	if i < 0 || i >= m.nTypes || j < 0 || j >= m.nTypes {
		return 0
	}
	pot := m.potentials[triIndex(i, j, m.nTypes)]
	if pot == nil {
		return 0
	}
	return pot.Energy(r)
}

// Range returns the cutoff for the pair i, j, or 0 if unparametrised.
func (m *Map) Range(i, j int) float64 {
	if i < 0 || i >= m.nTypes || j < 0 || j >= m.nTypes {
		return 0
	}
	pot := m.potentials[triIndex(i, j, m.nTypes)]
	if pot == nil {
		return 0
	}
	return pot.Range()
}

// RangeSquared returns Range(i,j)².
func (m *Map) RangeSquared(i, j int) float64 {
	r := m.Range(i, j)
	return r * r
}

// MaxRange returns the largest cutoff across every parametrised pair,
// which CellArray uses to size its cells.
func (m *Map) MaxRange() float64 {
	max := 0.0
	for _, pot := range m.potentials {
		if pot == nil {
			continue
		}
		if r := pot.Range(); r > max {
			max = r
		}
	}
	return max
}
