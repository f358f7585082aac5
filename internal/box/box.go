// Package box implements Dissolve's periodic simulation cell: folding,
// minimum-image distance/vector/angle, and the small set of axis-derived
// geometry queries every higher layer (CellArray, EnergyKernel) depends on.
//
// Box is a closed tagged union over Kind rather than an interface with one
// implementation per variant: spec.md §9 calls for exactly this
// re-architecture of the teacher language's base-class-per-leaf pattern, and
// a plain struct with a Kind discriminant keeps the hot minimum-image path
// free of an interface dispatch.
package box

import (
	"math"

	"github.com/dissolveproject/dissolve/pkg/errors"
)

// Kind discriminates the closed set of periodic geometries a Box supports.
type Kind int

const (
	// Cubic: all three axes equal length, all angles 90°.
	Cubic Kind = iota
	// Orthorhombic: independent axis lengths, all angles 90°.
	Orthorhombic
	// Monoclinic: independent axis lengths, one non-90° angle (beta).
	Monoclinic
	// Triclinic: independent axis lengths and angles.
	Triclinic
	// NonPeriodic: no folding or minimum image is ever applied.
	NonPeriodic
)

func (k Kind) String() string {
	switch k {
	case Cubic:
		return "cubic"
	case Orthorhombic:
		return "orthorhombic"
	case Monoclinic:
		return "monoclinic"
	case Triclinic:
		return "triclinic"
	case NonPeriodic:
		return "non-periodic"
	default:
		return "unknown"
	}
}

// Vec3 is a plain 3-vector. Dissolve never needs a generic linear-algebra
// library for this: every operation below is a handful of scalar terms, and
// introducing a matrix package would obscure rather than clarify the direct
// translation of the lattice-vector arithmetic this type embodies.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v+w.
func (v Vec3) Add(w Vec3) Vec3 { return Vec3{v.X + w.X, v.Y + w.Y, v.Z + w.Z} }

// Sub returns v-w.
func (v Vec3) Sub(w Vec3) Vec3 { return Vec3{v.X - w.X, v.Y - w.Y, v.Z - w.Z} }

// Scale returns v*s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Dot returns the scalar (inner) product of v and w.
func (v Vec3) Dot(w Vec3) float64 { return v.X*w.X + v.Y*w.Y + v.Z*w.Z }

// Cross returns the vector (outer) product of v and w.
func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		X: v.Y*w.Z - v.Z*w.Y,
		Y: v.Z*w.X - v.X*w.Z,
		Z: v.X*w.Y - v.Y*w.X,
	}
}

// MagnitudeSquared returns |v|².
func (v Vec3) MagnitudeSquared() float64 { return v.Dot(v) }

// Magnitude returns |v|.
func (v Vec3) Magnitude() float64 { return math.Sqrt(v.MagnitudeSquared()) }

// Box is a periodic (or non-periodic) simulation cell. Axis lengths and
// angles are stored, and the three lattice vectors are derived from them
// when the Box is constructed.
type Box struct {
	kind Kind

	axisLengths [3]float64
	axisAngles  [3]float64 // alpha (bc), beta (ac), gamma (ab), degrees

	// lattice holds the three real-space axis vectors a, b, c as rows.
	lattice [3]Vec3
	// inverse holds the reciprocal transform used to fold a Cartesian
	// position into fractional coordinates and back.
	inverse [3]Vec3

	volume float64
}

// New constructs a Box from three axis lengths (Å) and three axis angles
// (degrees: alpha between b/c, beta between a/c, gamma between a/b). kind
// determines which simplifying assumptions about orthogonality apply, but
// the underlying lattice vectors are always computed generally so that
// folding and minimum-image code paths never special-case Kind.
func New(kind Kind, lengths [3]float64, angles [3]float64) (*Box, error) {
	if kind == NonPeriodic {
		return &Box{kind: NonPeriodic}, nil
	}
	for i, l := range lengths {
		if l <= 0 {
			return nil, errors.DomainRange("box axis length must be positive").
				WithDetail(axisName(i))
		}
	}
	for i, a := range angles {
		if a <= 0 || a >= 180 {
			return nil, errors.DomainRange("box axis angle must be in (0, 180) degrees").
				WithDetail(axisName(i))
		}
	}

	b := &Box{kind: kind, axisLengths: lengths, axisAngles: angles}
	b.buildLattice()
	if b.volume < 1e-10 {
		return nil, errors.NumericalDegeneracy("box has zero or near-zero volume")
	}
	return b, nil
}

func axisName(i int) string {
	switch i {
	case 0:
		return "a"
	case 1:
		return "b"
	default:
		return "c"
	}
}

// buildLattice derives the lattice and inverse-lattice vectors from
// axisLengths/axisAngles using the standard crystallographic convention: a
// along x, b in the xy-plane, c completing the right-handed set.
func (b *Box) buildLattice() {
	alpha := toRadians(b.axisAngles[0])
	beta := toRadians(b.axisAngles[1])
	gamma := toRadians(b.axisAngles[2])

	a, bl, c := b.axisLengths[0], b.axisLengths[1], b.axisLengths[2]

	ax := Vec3{a, 0, 0}
	bx := Vec3{bl * math.Cos(gamma), bl * math.Sin(gamma), 0}

	cx0 := c * math.Cos(beta)
	cy0 := c * (math.Cos(alpha) - math.Cos(beta)*math.Cos(gamma)) / math.Sin(gamma)
	cz0Sq := c*c - cx0*cx0 - cy0*cy0
	cz0 := 0.0
	if cz0Sq > 0 {
		cz0 = math.Sqrt(cz0Sq)
	}
	cx := Vec3{cx0, cy0, cz0}

	b.lattice = [3]Vec3{ax, bx, cx}
	b.volume = ax.Dot(bx.Cross(cx))

	if b.volume == 0 {
		return
	}
	invVol := 1.0 / b.volume
	b.inverse[0] = bx.Cross(cx).Scale(invVol)
	b.inverse[1] = cx.Cross(ax).Scale(invVol)
	b.inverse[2] = ax.Cross(bx).Scale(invVol)
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180.0 }

// Kind returns the Box's geometry variant.
func (b *Box) Kind() Kind { return b.kind }

// AxisLengths returns the three real-space axis lengths.
func (b *Box) AxisLengths() [3]float64 { return b.axisLengths }

// AxisAngles returns the three axis angles in degrees.
func (b *Box) AxisAngles() [3]float64 { return b.axisAngles }

// Volume returns the box volume, zero for a NonPeriodic box.
func (b *Box) Volume() float64 { return b.volume }

// toFractional converts a Cartesian position into fractional lattice
// coordinates.
func (b *Box) toFractional(r Vec3) Vec3 {
	return Vec3{
		X: r.Dot(b.inverse[0]),
		Y: r.Dot(b.inverse[1]),
		Z: r.Dot(b.inverse[2]),
	}
}

// toCartesian converts fractional lattice coordinates back into a
// Cartesian position.
func (b *Box) toCartesian(f Vec3) Vec3 {
	return b.lattice[0].Scale(f.X).
		Add(b.lattice[1].Scale(f.Y)).
		Add(b.lattice[2].Scale(f.Z))
}

// Fold maps any real coordinate into the primary cell. For a NonPeriodic
// box, Fold is the identity.
func (b *Box) Fold(r Vec3) Vec3 {
	if b.kind == NonPeriodic {
		return r
	}
	f := b.toFractional(r)
	f.X -= math.Floor(f.X)
	f.Y -= math.Floor(f.Y)
	f.Z -= math.Floor(f.Z)
	return b.toCartesian(f)
}

// MinimumVector returns the shortest vector from i to j under periodicity
// (j - i, minimum image). For a NonPeriodic box this is simply j - i.
func (b *Box) MinimumVector(i, j Vec3) Vec3 {
	if b.kind == NonPeriodic {
		return j.Sub(i)
	}
	fi := b.toFractional(i)
	fj := b.toFractional(j)
	d := fj.Sub(fi)
	d.X -= math.Round(d.X)
	d.Y -= math.Round(d.Y)
	d.Z -= math.Round(d.Z)
	return b.toCartesian(d)
}

// MinimumDistanceSquared returns |MinimumVector(i,j)|².
func (b *Box) MinimumDistanceSquared(i, j Vec3) float64 {
	return b.MinimumVector(i, j).MagnitudeSquared()
}

// MinimumDistance returns |MinimumVector(i,j)|.
func (b *Box) MinimumDistance(i, j Vec3) float64 {
	return math.Sqrt(b.MinimumDistanceSquared(i, j))
}

// AngleInDegrees returns the angle at the vertex between legs ji and jk,
// a pure geometric helper operating on already-resolved vectors (the
// caller is responsible for applying minimum image to each leg as
// appropriate; see EnergyKernel's per-leg MIM policy).
func AngleInDegrees(ji, jk Vec3) float64 {
	denom := ji.Magnitude() * jk.Magnitude()
	if denom < 1e-12 {
		return 0
	}
	cosTheta := ji.Dot(jk) / denom
	if cosTheta > 1 {
		cosTheta = 1
	} else if cosTheta < -1 {
		cosTheta = -1
	}
	return math.Acos(cosTheta) * 180.0 / math.Pi
}

// TorsionInDegrees returns the dihedral angle defined by three consecutive
// bond vectors ji, jk, kl (i-j-k-l), using the standard atan2 formulation
// for a numerically stable sign.
func TorsionInDegrees(ji, jk, kl Vec3) float64 {
	m := ji.Cross(jk)
	n := jk.Cross(kl)
	mn := m.Dot(n)
	mCrossN := m.Cross(n)
	jkMag := jk.Magnitude()
	if jkMag < 1e-12 {
		return 0
	}
	y := mCrossN.Dot(jk) / jkMag
	x := mn
	if x == 0 && y == 0 {
		return 0
	}
	return math.Atan2(y, x) * 180.0 / math.Pi
}
