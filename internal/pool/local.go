package pool

// Local is the in-process ProcessPool backend: a single rank that is its
// own world, pool, and group. All collective operations are no-ops that
// return their input unchanged, since there is nobody else to reduce
// against. Local is the default backend and the one every unit test in
// this module runs against; KafkaDistributed exists purely to let a real
// multi-process run exercise the same Pool interface over an actual
// message broker.
type Local struct{}

// NewLocal constructs a single-rank Local pool.
func NewLocal() *Local { return &Local{} }

func (l *Local) WorldRank() int { return 0 }
func (l *Local) WorldSize() int { return 1 }
func (l *Local) PoolRank() int  { return 0 }
func (l *Local) PoolSize() int  { return 1 }
func (l *Local) GroupRank() int { return 0 }
func (l *Local) GroupSize() int { return 1 }

func (l *Local) IsWorldMaster() bool { return true }
func (l *Local) IsPoolMaster() bool  { return true }

// AllSum is a no-op: a single rank's values are already the pool-wide sum.
func (l *Local) AllSum(values []float64) error { return nil }

// Broadcast is a no-op: the only rank is already root.
func (l *Local) Broadcast(data []byte, root int) error {
	if root != 0 {
		return errRankOutOfRange(root, 1)
	}
	return nil
}

// Equality always succeeds: a single rank cannot disagree with itself.
func (l *Local) Equality(value int64) (bool, error) { return true, nil }

// Decision returns local unchanged: a single rank's decision is the
// pool's decision.
func (l *Local) Decision(local bool) (bool, error) { return local, nil }

// Divide always yields the full iteration space: a single rank has
// nothing to share it with.
func (l *Local) Divide(strategy DivisionStrategy, n int) (start, stride int) {
	return 0, 1
}
