package box_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dissolveproject/dissolve/internal/box"
	"github.com/dissolveproject/dissolve/pkg/errors"
)

func TestNew_Cubic(t *testing.T) {
	b, err := box.New(box.Cubic, [3]float64{10, 10, 10}, [3]float64{90, 90, 90})
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, b.Volume(), 1e-6)
	assert.Equal(t, box.Cubic, b.Kind())
}

func TestNew_RejectsNonPositiveAxis(t *testing.T) {
	_, err := box.New(box.Cubic, [3]float64{0, 10, 10}, [3]float64{90, 90, 90})
	require.Error(t, err)
	assert.Equal(t, errors.CodeDomainRange, errors.GetCode(err))
}

func TestNew_RejectsDegenerateAngle(t *testing.T) {
	_, err := box.New(box.Triclinic, [3]float64{10, 10, 10}, [3]float64{0, 90, 90})
	require.Error(t, err)
	assert.Equal(t, errors.CodeDomainRange, errors.GetCode(err))
}

func TestNonPeriodic_FoldIsIdentity(t *testing.T) {
	b, err := box.New(box.NonPeriodic, [3]float64{}, [3]float64{})
	require.NoError(t, err)
	r := box.Vec3{X: 123.4, Y: -56.7, Z: 8.9}
	assert.Equal(t, r, b.Fold(r))
}

func TestFold_WrapsIntoPrimaryCell(t *testing.T) {
	b, err := box.New(box.Cubic, [3]float64{10, 10, 10}, [3]float64{90, 90, 90})
	require.NoError(t, err)
	folded := b.Fold(box.Vec3{X: 12, Y: -3, Z: 25})
	assert.InDelta(t, 2.0, folded.X, 1e-9)
	assert.InDelta(t, 7.0, folded.Y, 1e-9)
	assert.InDelta(t, 5.0, folded.Z, 1e-9)
}

func TestMinimumVector_Cubic_WrapsAcrossBoundary(t *testing.T) {
	b, err := box.New(box.Cubic, [3]float64{10, 10, 10}, [3]float64{90, 90, 90})
	require.NoError(t, err)
	v := b.MinimumVector(box.Vec3{X: 0.5}, box.Vec3{X: 9.5})
	assert.InDelta(t, -1.0, v.X, 1e-9)
}

func TestMinimumDistance_Cubic(t *testing.T) {
	b, err := box.New(box.Cubic, [3]float64{10, 10, 10}, [3]float64{90, 90, 90})
	require.NoError(t, err)
	d := b.MinimumDistance(box.Vec3{X: 0.5}, box.Vec3{X: 9.5})
	assert.InDelta(t, 1.0, d, 1e-9)
}

func TestMinimumDistance_NonPeriodic_NoWrap(t *testing.T) {
	b, err := box.New(box.NonPeriodic, [3]float64{}, [3]float64{})
	require.NoError(t, err)
	d := b.MinimumDistance(box.Vec3{X: 0.5}, box.Vec3{X: 9.5})
	assert.InDelta(t, 9.0, d, 1e-9)
}

func TestOrthorhombic_AxisAnglesStayOrthogonal(t *testing.T) {
	b, err := box.New(box.Orthorhombic, [3]float64{5, 10, 15}, [3]float64{90, 90, 90})
	require.NoError(t, err)
	assert.InDelta(t, 750.0, b.Volume(), 1e-6)
}

func TestTriclinic_VolumeFormula(t *testing.T) {
	b, err := box.New(box.Triclinic, [3]float64{10, 10, 10}, [3]float64{80, 85, 75})
	require.NoError(t, err)
	assert.Greater(t, b.Volume(), 0.0)
	assert.Less(t, b.Volume(), 1000.0)
}

func TestAngleInDegrees_RightAngle(t *testing.T) {
	ji := box.Vec3{X: 1}
	jk := box.Vec3{Y: 1}
	assert.InDelta(t, 90.0, box.AngleInDegrees(ji, jk), 1e-9)
}

func TestAngleInDegrees_ZeroLengthLegReturnsZero(t *testing.T) {
	ji := box.Vec3{}
	jk := box.Vec3{Y: 1}
	assert.Equal(t, 0.0, box.AngleInDegrees(ji, jk))
}

func TestTorsionInDegrees_PlanarIsZeroOr180(t *testing.T) {
	ji := box.Vec3{X: 1}
	jk := box.Vec3{Y: 1}
	kl := box.Vec3{X: -1}
	got := box.TorsionInDegrees(ji, jk, kl)
	assert.True(t, got == 0 || got == 180 || got == -180)
}

func TestVec3_DotAndCross(t *testing.T) {
	a := box.Vec3{X: 1, Y: 0, Z: 0}
	b := box.Vec3{X: 0, Y: 1, Z: 0}
	assert.Equal(t, 0.0, a.Dot(b))
	assert.Equal(t, box.Vec3{X: 0, Y: 0, Z: 1}, a.Cross(b))
}
