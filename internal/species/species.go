// Package species implements Dissolve's Atom, Molecule, and Species
// entities: the per-atom dynamic state (position, type), the per-species
// static template (bonded topology, intramolecular scaling, sites), and
// the per-molecule grouping that ties a run of atoms back to its species
// template.
//
// Grounded on the teacher's `pkg/types/molecule` value-object layout
// (plain structs with index-based cross references, no pointer graphs) —
// adapted from "a molecule is a patent-portfolio asset with claims" to "a
// molecule is a species instance with atoms and bonded topology". Every
// cross-entity reference below is a plain integer index into a sibling
// slice, never a pointer, per SPEC_FULL.md's design note: indices survive
// slice growth/reallocation and (de)serialise trivially for restart files,
// where a pointer graph would not.
package species

import (
	"github.com/dissolveproject/dissolve/internal/box"
	"github.com/dissolveproject/dissolve/pkg/errors"
)

// Atom is one dynamic particle: a position, a reference to its master
// atom type, and the molecule it belongs to.
type Atom struct {
	Position      box.Vec3
	TypeIndex     int // index into the forcefield's master atom type table
	MoleculeIndex int
	Charge        float64
}

// BondKind enumerates the functional forms Dissolve ships a bonded term
// for. It's a closed set: a Species' bonded topology can never reference
// a term kind the forcefield adapter doesn't know how to evaluate.
type BondKind int

const (
	BondHarmonic BondKind = iota
	BondMorse
)

// AngleKind enumerates the functional forms for a three-atom bonded term.
type AngleKind int

const (
	AngleHarmonic AngleKind = iota
	AngleCosine
)

// TorsionKind enumerates the functional forms for a four-atom bonded term
// (used for both proper torsions and impropers).
type TorsionKind int

const (
	TorsionCosine TorsionKind = iota
	TorsionCosineN
)

// Bond is a two-atom bonded interaction within a Species, referencing
// atom indices local to that species (0-based, not global atom indices).
type Bond struct {
	I, J       int
	Kind       BondKind
	Parameters []float64
}

// Angle is a three-atom bonded interaction (vertex at J).
type Angle struct {
	I, J, K    int
	Kind       AngleKind
	Parameters []float64
}

// Torsion is a four-atom bonded interaction (proper dihedral or
// improper, distinguished only by which four atoms are listed — Dissolve
// does not need a separate Improper type since the evaluation is
// identical once the four atom indices are known).
type Torsion struct {
	I, J, K, L int
	Kind       TorsionKind
	Parameters []float64
}

// Site defines a local reference frame anchored at one or more origin
// atoms, optionally oriented by x/y-axis atom groups. Sites back
// orientation-dependent analysis (e.g. angle-resolved RDFs) and are a
// SPEC_FULL.md addition beyond the distilled spec's atom/molecule/species
// triad.
type Site struct {
	Name              string
	OriginAtomIndices []int
	XAxisAtomIndices  []int
	YAxisAtomIndices  []int
}

// HasAxes reports whether this site defines a full local frame (origin +
// both axis directions) rather than just a point.
func (s Site) HasAxes() bool {
	return len(s.XAxisAtomIndices) > 0 && len(s.YAxisAtomIndices) > 0
}

// SpeciesAtom is one atom within a Species template: its master type and
// default (unfolded) position used when instancing new Molecules.
type SpeciesAtom struct {
	TypeIndex int
	Position  box.Vec3
	Charge    float64
}

// Species is the static template shared by every Molecule instanced from
// it: atom count and default geometry, bonded topology, the 1-n
// intramolecular scaling matrix, and named Sites.
type Species struct {
	Name  string
	Atoms []SpeciesAtom

	Bonds    []Bond
	Angles   []Angle
	Torsions []Torsion

	Sites []Site

	// scaling14 and friends: scaling[i][j] is the Coulomb/vdW scale
	// factor applied between local atoms i and j when they are
	// 1-2/1-3/1-4 bonded. A factor below 1e-3 is treated as an outright
	// exclusion by EnergyKernel rather than an extra multiply, per
	// spec.md §4.5's tie-break rule.
	scaling [][]float64
}

// NewSpecies constructs an empty Species template with n atoms, all
// initially unscaled (scaling factor 1.0 for every pair).
func NewSpecies(name string, n int) (*Species, error) {
	if n <= 0 {
		return nil, errors.InvalidParam("species must have at least one atom")
	}
	scaling := make([][]float64, n)
	for i := range scaling {
		scaling[i] = make([]float64, n)
		for j := range scaling[i] {
			if i != j {
				scaling[i][j] = 1.0
			}
		}
	}
	return &Species{Name: name, Atoms: make([]SpeciesAtom, n), scaling: scaling}, nil
}

// SetScaling sets the intramolecular scale factor between local atoms i
// and j (symmetric).
func (s *Species) SetScaling(i, j int, factor float64) error {
	if i < 0 || i >= len(s.Atoms) || j < 0 || j >= len(s.Atoms) {
		return errors.DomainRange("atom index out of range for species scaling matrix")
	}
	s.scaling[i][j] = factor
	s.scaling[j][i] = factor
	return nil
}

// Scaling returns the intramolecular scale factor between local atoms i
// and j. Self-pairs (i==j) always return 0 (excluded), matching
// EnergyKernel's ExcludeSelf semantics.
func (s *Species) Scaling(i, j int) float64 {
	if i == j {
		return 0
	}
	if i < 0 || i >= len(s.Atoms) || j < 0 || j >= len(s.Atoms) {
		return 1.0
	}
	return s.scaling[i][j]
}

// AddBond appends a bonded two-atom term, deriving 1-2 scaling of 0
// (full exclusion) between the bonded pair, matching the convention that
// directly bonded atoms never interact nonbonded.
func (s *Species) AddBond(b Bond) error {
	if err := s.checkLocalIndices(b.I, b.J); err != nil {
		return err
	}
	s.Bonds = append(s.Bonds, b)
	return s.SetScaling(b.I, b.J, 0)
}

// AddAngle appends a bonded three-atom term.
func (s *Species) AddAngle(a Angle) error {
	if err := s.checkLocalIndices(a.I, a.J, a.K); err != nil {
		return err
	}
	s.Angles = append(s.Angles, a)
	return nil
}

// AddTorsion appends a bonded four-atom term.
func (s *Species) AddTorsion(t Torsion) error {
	if err := s.checkLocalIndices(t.I, t.J, t.K, t.L); err != nil {
		return err
	}
	s.Torsions = append(s.Torsions, t)
	return nil
}

func (s *Species) checkLocalIndices(indices ...int) error {
	for _, idx := range indices {
		if idx < 0 || idx >= len(s.Atoms) {
			return errors.DomainRange("bonded term references an atom index outside this species")
		}
	}
	return nil
}

// AddSite appends a named local reference frame.
func (s *Species) AddSite(site Site) {
	s.Sites = append(s.Sites, site)
}

// Molecule groups a contiguous run of global atom indices instanced from
// a Species template. AtomIndices are indices into the owning
// Configuration's Atom slice, never into the Species' own Atoms slice.
type Molecule struct {
	SpeciesIndex int
	AtomIndices  []int
}

// CentreOfGeometry computes the molecule's centre of geometry, accounting
// for periodicity: each atom's position is taken as the minimum-image
// displacement from the first atom (the molecule's anchor), so a molecule
// that straddles a periodic boundary does not get an centre pulled toward
// the box centre by naive averaging. atomPosition resolves a global atom
// index to its current position (typically Configuration.AtomPosition).
func (m *Molecule) CentreOfGeometry(b *box.Box, atomPosition func(globalIndex int) box.Vec3) box.Vec3 {
	if len(m.AtomIndices) == 0 {
		return box.Vec3{}
	}
	anchor := atomPosition(m.AtomIndices[0])
	sum := box.Vec3{}
	for _, idx := range m.AtomIndices {
		pos := atomPosition(idx)
		sum = sum.Add(anchor.Add(b.MinimumVector(anchor, pos)))
	}
	inv := 1.0 / float64(len(m.AtomIndices))
	return sum.Scale(inv)
}
