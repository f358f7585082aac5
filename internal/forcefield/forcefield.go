// Package forcefield implements Dissolve's Forcefield adapter: a
// read-only lookup from an atom's chemical fingerprint (element plus
// local bonding environment) to its master atom type, and from a tuple of
// master types to bonded-term parameters. It is built once at startup and
// never mutated, matching spec.md §4's description of the forcefield as
// "a read-only map", not a stateful service.
//
// Grounded on the teacher's `internal/domain/molecule` read path for
// static reference data (load once from configuration, serve many
// read-only lookups, no write path at all) — the same shape the teacher
// applies to its own static chemical/patent-classification taxonomies.
package forcefield

import (
	"fmt"

	"github.com/dissolveproject/dissolve/internal/species"
	"github.com/dissolveproject/dissolve/pkg/errors"
)

// AtomTypeDefinition is one master atom type: its human name, element
// symbol, and the parameters governing short-range (non-Coulomb) pair
// interactions with itself. The Forcefield stores these per-type
// parameters only; it applies no combination rule for cross terms.
type AtomTypeDefinition struct {
	Name       string
	Element    string
	Charge     float64
	Parameters []float64 // e.g. [epsilon, sigma] for a Lennard-Jones type
}

// Fingerprint identifies an atom's chemical environment: its element and
// the sorted elements of its directly bonded neighbours. Two atoms with
// the same Fingerprint always map to the same AtomTypeDefinition.
type Fingerprint struct {
	Element          string
	BondedNeighbours string // canonical comma-joined, sorted neighbour elements
}

// BondTerm/AngleTerm/TorsionTerm mirror species.Bond/Angle/Torsion but
// keyed by master type tuple rather than local species atom index, since
// the forcefield describes parameters generically across every species
// that happens to use a given type combination.
type BondTerm struct {
	Kind       species.BondKind
	Parameters []float64
}

type AngleTerm struct {
	Kind       species.AngleKind
	Parameters []float64
}

type TorsionTerm struct {
	Kind       species.TorsionKind
	Parameters []float64
}

// Forcefield is the immutable parameter table. Construct with New, then
// populate with RegisterAtomType/RegisterBond/RegisterAngle/
// RegisterTorsion before Freeze; after Freeze every Register call
// returns an error, enforcing the read-only contract spec.md describes.
type Forcefield struct {
	name string

	types       []AtomTypeDefinition
	typeByName  map[string]int
	fingerprint map[Fingerprint]int

	bonds    map[[2]string]BondTerm
	angles   map[[3]string]AngleTerm
	torsions map[[4]string]TorsionTerm

	frozen bool
}

// New constructs an empty, mutable Forcefield under construction.
func New(name string) *Forcefield {
	return &Forcefield{
		name:        name,
		typeByName:  make(map[string]int),
		fingerprint: make(map[Fingerprint]int),
		bonds:       make(map[[2]string]BondTerm),
		angles:      make(map[[3]string]AngleTerm),
		torsions:    make(map[[4]string]TorsionTerm),
	}
}

// Name returns the forcefield's identifying name.
func (ff *Forcefield) Name() string { return ff.name }

func (ff *Forcefield) requireMutable() error {
	if ff.frozen {
		return errors.Conflict("forcefield is frozen and can no longer be modified")
	}
	return nil
}

// RegisterAtomType adds a master atom type and, if fp is non-zero,
// associates it with a chemical fingerprint for automatic type
// assignment.
func (ff *Forcefield) RegisterAtomType(def AtomTypeDefinition, fp Fingerprint) (int, error) {
	if err := ff.requireMutable(); err != nil {
		return 0, err
	}
	if _, exists := ff.typeByName[def.Name]; exists {
		return 0, errors.Conflict(fmt.Sprintf("atom type %q already registered", def.Name))
	}
	idx := len(ff.types)
	ff.types = append(ff.types, def)
	ff.typeByName[def.Name] = idx
	if fp != (Fingerprint{}) {
		ff.fingerprint[fp] = idx
	}
	return idx, nil
}

// RegisterBond associates a bonded two-atom term with a pair of master
// type names (order-independent).
func (ff *Forcefield) RegisterBond(typeA, typeB string, term BondTerm) error {
	if err := ff.requireMutable(); err != nil {
		return err
	}
	ff.bonds[canonPair(typeA, typeB)] = term
	return nil
}

// RegisterAngle associates a bonded three-atom term with a triple of
// master type names. The outer atoms (A, C) are order-independent; the
// vertex (B) is not.
func (ff *Forcefield) RegisterAngle(typeA, typeB, typeC string, term AngleTerm) error {
	if err := ff.requireMutable(); err != nil {
		return err
	}
	ff.angles[canonTriple(typeA, typeB, typeC)] = term
	return nil
}

// RegisterTorsion associates a bonded four-atom term with a quadruple of
// master type names (reversible: A-B-C-D is equivalent to D-C-B-A).
func (ff *Forcefield) RegisterTorsion(typeA, typeB, typeC, typeD string, term TorsionTerm) error {
	if err := ff.requireMutable(); err != nil {
		return err
	}
	ff.torsions[canonQuad(typeA, typeB, typeC, typeD)] = term
	return nil
}

// Freeze locks the Forcefield against further registration, enforcing
// the read-only contract for the rest of the run.
func (ff *Forcefield) Freeze() { ff.frozen = true }

// AtomTypeByName looks up a master type by its registered name.
func (ff *Forcefield) AtomTypeByName(name string) (AtomTypeDefinition, int, error) {
	idx, ok := ff.typeByName[name]
	if !ok {
		return AtomTypeDefinition{}, 0, errors.NotFound(fmt.Sprintf("no atom type named %q", name))
	}
	return ff.types[idx], idx, nil
}

// AtomTypeByFingerprint resolves a chemical fingerprint to its assigned
// master type, used when reading a structure file that provides only
// element/connectivity, not explicit type names.
func (ff *Forcefield) AtomTypeByFingerprint(fp Fingerprint) (AtomTypeDefinition, int, error) {
	idx, ok := ff.fingerprint[fp]
	if !ok {
		return AtomTypeDefinition{}, 0, errors.InputReference(
			fmt.Sprintf("no atom type matches fingerprint %+v", fp))
	}
	return ff.types[idx], idx, nil
}

// AtomType returns the definition for a master type index.
func (ff *Forcefield) AtomType(index int) (AtomTypeDefinition, error) {
	if index < 0 || index >= len(ff.types) {
		return AtomTypeDefinition{}, errors.DomainRange("atom type index out of range")
	}
	return ff.types[index], nil
}

// NumAtomTypes returns the number of registered master atom types.
func (ff *Forcefield) NumAtomTypes() int { return len(ff.types) }

// Bond returns the registered bonded term between two master type names,
// if any.
func (ff *Forcefield) Bond(typeA, typeB string) (BondTerm, bool) {
	t, ok := ff.bonds[canonPair(typeA, typeB)]
	return t, ok
}

// Angle returns the registered bonded term for a master type triple, if
// any.
func (ff *Forcefield) Angle(typeA, typeB, typeC string) (AngleTerm, bool) {
	t, ok := ff.angles[canonTriple(typeA, typeB, typeC)]
	return t, ok
}

// Torsion returns the registered bonded term for a master type
// quadruple, if any.
func (ff *Forcefield) Torsion(typeA, typeB, typeC, typeD string) (TorsionTerm, bool) {
	t, ok := ff.torsions[canonQuad(typeA, typeB, typeC, typeD)]
	return t, ok
}

func canonPair(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

func canonTriple(a, b, c string) [3]string {
	if a > c {
		a, c = c, a
	}
	return [3]string{a, b, c}
}

func canonQuad(a, b, c, d string) [4]string {
	if a > d || (a == d && b > c) {
		a, b, c, d = d, c, b, a
	}
	return [4]string{a, b, c, d}
}
