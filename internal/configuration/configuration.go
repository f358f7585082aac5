// Package configuration implements Dissolve's Configuration: the owning
// container for one simulation cell's Box, CellArray, and the dynamic
// Atom/Molecule arrays instanced into it, plus the bookkeeping (contents
// version, size factor, per-type/per-species histograms) that the
// Procedure engine's analysis memoisation and the EnergyKernel's
// neighbour iteration both depend on.
//
// Grounded on the teacher's `internal/domain/molecule` aggregate-root
// pattern (one struct owning its child entities plus derived indexes,
// with an explicit version counter bumped on every mutating method) —
// adapted from a molecule-as-patent-asset aggregate to a configuration-
// as-simulation-cell aggregate.
package configuration

import (
	"github.com/dissolveproject/dissolve/internal/box"
	"github.com/dissolveproject/dissolve/internal/cellarray"
	"github.com/dissolveproject/dissolve/internal/genericlist"
	"github.com/dissolveproject/dissolve/internal/species"
	"github.com/dissolveproject/dissolve/pkg/errors"
)

// Configuration owns one simulation cell's full dynamic state: its Box,
// the CellArray partitioning it, every instanced Atom and Molecule, and a
// GenericList of memoised analysis results keyed against ContentsVersion.
type Configuration struct {
	Name string

	box   *box.Box
	cells *cellarray.CellArray

	atoms     []species.Atom
	molecules []species.Molecule

	// usedAtomTypeCount[typeIndex] and usedSpeciesCount[speciesIndex]
	// are maintained incrementally as atoms/molecules are added or
	// removed, rather than recomputed by scanning, since the Procedure
	// engine queries them every iteration.
	usedAtomTypeCount map[int]int
	usedSpeciesCount  map[int]int

	// contentsVersion increments on every structural mutation (atom or
	// molecule add/remove, or any position change). Analysis modules
	// memoise their results in Data keyed partly by this version, so a
	// stale cached RDF is automatically invalidated.
	contentsVersion int

	requestedSizeFactor float64
	appliedSizeFactor   float64

	Data *genericlist.List
}

// New constructs an empty Configuration over the given Box, with a
// CellArray sized for minCellSize (normally the largest forcefield
// cutoff).
func New(name string, b *box.Box, minCellSize float64) (*Configuration, error) {
	cells, err := cellarray.New(b, minCellSize)
	if err != nil {
		return nil, err
	}
	return &Configuration{
		Name:                name,
		box:                 b,
		cells:               cells,
		usedAtomTypeCount:   make(map[int]int),
		usedSpeciesCount:    make(map[int]int),
		requestedSizeFactor: 1.0,
		appliedSizeFactor:   1.0,
		Data:                genericlist.New(),
	}, nil
}

// Box returns the Configuration's simulation cell geometry.
func (c *Configuration) Box() *box.Box { return c.box }

// Cells returns the CellArray partitioning Box.
func (c *Configuration) Cells() *cellarray.CellArray { return c.cells }

// ContentsVersion returns the monotonic counter bumped on every
// structural mutation.
func (c *Configuration) ContentsVersion() int { return c.contentsVersion }

func (c *Configuration) bumpVersion() { c.contentsVersion++ }

// NAtoms returns the number of atoms currently instanced.
func (c *Configuration) NAtoms() int { return len(c.atoms) }

// Atom returns the dynamic state for global atom index i.
func (c *Configuration) Atom(i int) (species.Atom, error) {
	if i < 0 || i >= len(c.atoms) {
		return species.Atom{}, errors.DomainRange("atom index out of range")
	}
	return c.atoms[i], nil
}

// AtomPosition returns just the position of atom i, a convenience used
// throughout the Procedure/EnergyKernel hot paths (and suitable to pass
// directly as species.Molecule.CentreOfGeometry's accessor function).
func (c *Configuration) AtomPosition(i int) box.Vec3 {
	if i < 0 || i >= len(c.atoms) {
		return box.Vec3{}
	}
	return c.atoms[i].Position
}

// Molecule returns the molecule at index i.
func (c *Configuration) Molecule(i int) (species.Molecule, error) {
	if i < 0 || i >= len(c.molecules) {
		return species.Molecule{}, errors.DomainRange("molecule index out of range")
	}
	return c.molecules[i], nil
}

// NMolecules returns the number of molecules currently instanced.
func (c *Configuration) NMolecules() int { return len(c.molecules) }

// AddMolecule instances a new Molecule from the given species atoms,
// folding every atom position into the primary cell, registering it with
// the CellArray, and bumping both the per-type/per-species histograms and
// ContentsVersion.
func (c *Configuration) AddMolecule(speciesIndex int, sp *species.Species, origin box.Vec3) (int, error) {
	if sp == nil {
		return 0, errors.InvalidParam("species template must not be nil")
	}
	atomIndices := make([]int, len(sp.Atoms))
	for i, spAtom := range sp.Atoms {
		globalIdx := len(c.atoms)
		pos := c.box.Fold(origin.Add(spAtom.Position))
		c.atoms = append(c.atoms, species.Atom{
			Position:      pos,
			TypeIndex:     spAtom.TypeIndex,
			MoleculeIndex: len(c.molecules),
			Charge:        spAtom.Charge,
		})
		c.cells.AddAtom(globalIdx, pos)
		c.usedAtomTypeCount[spAtom.TypeIndex]++
		atomIndices[i] = globalIdx
	}
	molIdx := len(c.molecules)
	c.molecules = append(c.molecules, species.Molecule{SpeciesIndex: speciesIndex, AtomIndices: atomIndices})
	c.usedSpeciesCount[speciesIndex]++
	c.bumpVersion()
	return molIdx, nil
}

// SetAtomPosition moves atom i to a new position, folding it into the
// primary cell, updating the CellArray, and bumping ContentsVersion.
func (c *Configuration) SetAtomPosition(i int, pos box.Vec3) error {
	if i < 0 || i >= len(c.atoms) {
		return errors.DomainRange("atom index out of range")
	}
	folded := c.box.Fold(pos)
	c.atoms[i].Position = folded
	c.cells.MoveAtom(i, folded)
	c.bumpVersion()
	return nil
}

// UsedAtomTypeCount returns how many currently-instanced atoms reference
// master type typeIndex.
func (c *Configuration) UsedAtomTypeCount(typeIndex int) int {
	return c.usedAtomTypeCount[typeIndex]
}

// UsedSpeciesCount returns how many currently-instanced molecules
// reference species speciesIndex.
func (c *Configuration) UsedSpeciesCount(speciesIndex int) int {
	return c.usedSpeciesCount[speciesIndex]
}

// RequestedSizeFactor returns the size factor requested by the run (e.g.
// during an equilibration ramp); AppliedSizeFactor returns the size
// factor the CellArray has actually been rebuilt to reflect. The two are
// tracked separately because rebuilding the CellArray is expensive and is
// deferred until ApplySizeFactor is called explicitly.
func (c *Configuration) RequestedSizeFactor() float64 { return c.requestedSizeFactor }
func (c *Configuration) AppliedSizeFactor() float64   { return c.appliedSizeFactor }

// RequestSizeFactor records a new target size factor without rebuilding
// the CellArray yet.
func (c *Configuration) RequestSizeFactor(factor float64) error {
	if factor <= 0 {
		return errors.DomainRange("size factor must be positive")
	}
	c.requestedSizeFactor = factor
	return nil
}

// ApplySizeFactor scales Box's axis lengths by RequestedSizeFactor /
// AppliedSizeFactor, rebuilds the CellArray at minCellSize, and rescales
// every atom position proportionally, then records the new applied
// factor.
func (c *Configuration) ApplySizeFactor(minCellSize float64) error {
	if c.requestedSizeFactor == c.appliedSizeFactor {
		return nil
	}
	scale := c.requestedSizeFactor / c.appliedSizeFactor
	lengths := c.box.AxisLengths()
	for i := range lengths {
		lengths[i] *= scale
	}
	newBox, err := box.New(c.box.Kind(), lengths, c.box.AxisAngles())
	if err != nil {
		return err
	}
	newCells, err := cellarray.New(newBox, minCellSize)
	if err != nil {
		return err
	}
	c.box = newBox
	c.cells = newCells
	for i := range c.atoms {
		c.atoms[i].Position = c.atoms[i].Position.Scale(scale)
		c.cells.AddAtom(i, c.atoms[i].Position)
	}
	c.appliedSizeFactor = c.requestedSizeFactor
	c.bumpVersion()
	return nil
}
