package pool_test

import (
	"testing"

	"github.com/dissolveproject/dissolve/internal/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_RanksAndSizes(t *testing.T) {
	p := pool.NewLocal()

	assert.Equal(t, 0, p.WorldRank())
	assert.Equal(t, 1, p.WorldSize())
	assert.Equal(t, 0, p.PoolRank())
	assert.Equal(t, 1, p.PoolSize())
	assert.Equal(t, 0, p.GroupRank())
	assert.Equal(t, 1, p.GroupSize())
	assert.True(t, p.IsWorldMaster())
	assert.True(t, p.IsPoolMaster())
}

func TestLocal_AllSum_Identity(t *testing.T) {
	p := pool.NewLocal()
	values := []float64{1.5, -2.0, 3.25}
	require.NoError(t, p.AllSum(values))
	assert.Equal(t, []float64{1.5, -2.0, 3.25}, values)
}

func TestLocal_Broadcast_RootZeroSucceeds(t *testing.T) {
	p := pool.NewLocal()
	assert.NoError(t, p.Broadcast([]byte("data"), 0))
}

func TestLocal_Broadcast_NonZeroRootFails(t *testing.T) {
	p := pool.NewLocal()
	assert.Error(t, p.Broadcast([]byte("data"), 1))
}

func TestLocal_Equality_AlwaysTrue(t *testing.T) {
	p := pool.NewLocal()
	ok, err := p.Equality(42)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocal_Decision_PassesThrough(t *testing.T) {
	p := pool.NewLocal()

	ok, err := p.Decision(true)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Decision(false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocal_Divide_AlwaysFullRange(t *testing.T) {
	p := pool.NewLocal()

	for _, strategy := range []pool.DivisionStrategy{pool.Serial, pool.PoolParallel, pool.GroupParallel} {
		start, stride := p.Divide(strategy, 100)
		assert.Equal(t, 0, start)
		assert.Equal(t, 1, stride)
	}
}

func TestDivisionStrategy_Collapse(t *testing.T) {
	assert.Equal(t, pool.Serial, pool.PoolParallel.Collapse(pool.PoolParallel))
	assert.Equal(t, pool.GroupParallel, pool.PoolParallel.Collapse(pool.GroupParallel))
	assert.Equal(t, pool.Serial, pool.Serial.Collapse(pool.Serial))
	assert.Equal(t, pool.PoolParallel, pool.GroupParallel.Collapse(pool.PoolParallel))
}

func TestDivisionStrategy_String(t *testing.T) {
	assert.Equal(t, "serial", pool.Serial.String())
	assert.Equal(t, "pool-parallel", pool.PoolParallel.String())
	assert.Equal(t, "group-parallel", pool.GroupParallel.String())
}

func TestDivide_PoolParallel_Interleave(t *testing.T) {
	const n = 10
	size := 3
	seen := make([]int, n)
	for rank := 0; rank < size; rank++ {
		start, stride := pool.Divide(pool.PoolParallel, rank, size, n)
		assert.Equal(t, rank, start)
		assert.Equal(t, size, stride)
		for i := start; i < n; i += stride {
			seen[i]++
		}
	}
	for i, count := range seen {
		assert.Equal(t, 1, count, "index %d should be visited exactly once across ranks", i)
	}
}
