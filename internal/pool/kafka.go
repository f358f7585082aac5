package pool

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/dissolveproject/dissolve/internal/infrastructure/messaging/kafka"
	"github.com/dissolveproject/dissolve/internal/infrastructure/monitoring/logging"
	"github.com/dissolveproject/dissolve/pkg/errors"
)

const roundMetadataKey = "round"

// KafkaDistributed is a Pool backend that coordinates a group of
// independently started processes through Kafka topics namespaced by run
// ID, instead of MPI-style in-memory shared state. Every collective
// operation is implemented as "publish my contribution tagged with a
// round number, then consume until every rank's contribution for that
// round has been seen" against a single-partition topic, which keeps
// message order consistent with arrival order at the broker.
//
// KafkaDistributed has no notion of groups narrower than the pool itself:
// GroupRank/GroupSize mirror PoolRank/PoolSize, and GroupParallel divides
// identically to PoolParallel. A deployment that needs finer-grained
// groups should compose KafkaDistributed pools, one per group, under a
// higher-level coordinator.
type KafkaDistributed struct {
	runID     string
	worldRank int
	worldSize int
	poolRank  int
	poolSize  int

	brokers  []string
	producer *kafka.Producer
	readers  map[string]*kafkago.Reader
	log      logging.Logger

	allSumRound    atomic.Int64
	broadcastRound atomic.Int64
	decisionRound  atomic.Int64
	equalityRound  atomic.Int64

	readTimeout time.Duration
}

// KafkaDistributedConfig configures a KafkaDistributed pool.
type KafkaDistributedConfig struct {
	RunID     string
	Brokers   []string
	WorldRank int
	WorldSize int

	// ReadTimeout bounds how long a collective waits for every rank's
	// contribution to a round before giving up with CodeCollectiveDivergence.
	ReadTimeout time.Duration
}

// NewKafkaDistributed constructs a KafkaDistributed pool and ensures its
// run's topics exist. The whole world is treated as a single pool; callers
// that need sub-pools should partition WorldRank/WorldSize themselves and
// construct one KafkaDistributed per pool with its own run ID suffix.
func NewKafkaDistributed(ctx context.Context, cfg KafkaDistributedConfig, log logging.Logger) (*KafkaDistributed, error) {
	if cfg.RunID == "" {
		return nil, errors.InvalidParam("run id required")
	}
	if cfg.WorldSize <= 0 {
		return nil, errors.InvalidParam("world size must be > 0")
	}
	if cfg.WorldRank < 0 || cfg.WorldRank >= cfg.WorldSize {
		return nil, errRankOutOfRange(cfg.WorldRank, cfg.WorldSize)
	}

	topicManager, err := kafka.NewTopicManager(cfg.Brokers, log)
	if err != nil {
		return nil, err
	}
	defer topicManager.Close()
	if err := topicManager.EnsureRunTopics(ctx, cfg.RunID); err != nil {
		return nil, err
	}

	producer, err := kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Brokers, Acks: "all"}, log)
	if err != nil {
		return nil, err
	}

	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 30 * time.Second
	}

	return &KafkaDistributed{
		runID:       cfg.RunID,
		worldRank:   cfg.WorldRank,
		worldSize:   cfg.WorldSize,
		poolRank:    cfg.WorldRank,
		poolSize:    cfg.WorldSize,
		brokers:     cfg.Brokers,
		producer:    producer,
		readers:     make(map[string]*kafkago.Reader),
		log:         log,
		readTimeout: readTimeout,
	}, nil
}

// readerFor lazily creates the per-topic reader a collective operation
// needs; each of the four collectives has its own topic, so a pool that
// only ever calls AllSum never pays for a Broadcast reader.
func (k *KafkaDistributed) readerFor(topic string) *kafkago.Reader {
	if r, ok := k.readers[topic]; ok {
		return r
	}
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     k.brokers,
		Topic:       topic,
		StartOffset: kafkago.FirstOffset,
	})
	k.readers[topic] = r
	return r
}

func (k *KafkaDistributed) WorldRank() int { return k.worldRank }
func (k *KafkaDistributed) WorldSize() int { return k.worldSize }
func (k *KafkaDistributed) PoolRank() int  { return k.poolRank }
func (k *KafkaDistributed) PoolSize() int  { return k.poolSize }
func (k *KafkaDistributed) GroupRank() int { return k.poolRank }
func (k *KafkaDistributed) GroupSize() int { return k.poolSize }

func (k *KafkaDistributed) IsWorldMaster() bool { return k.worldRank == 0 }
func (k *KafkaDistributed) IsPoolMaster() bool  { return k.poolRank == 0 }

// AllSum publishes this rank's values tagged with a fresh round number,
// collects every rank's contribution to that round, and replaces values
// with their elementwise sum.
func (k *KafkaDistributed) AllSum(values []float64) error {
	round := k.allSumRound.Add(1)
	topic := kafka.PoolTopicAllSum(k.runID)

	payload := kafka.PoolReducePayload{Rank: k.poolRank, Values: append([]float64(nil), values...)}
	if err := k.publish(topic, "pool.allsum", round, payload); err != nil {
		return err
	}

	sum := make([]float64, len(values))
	err := k.collect(topic, round, k.poolSize, func(env *kafka.EventEnvelope) error {
		var p kafka.PoolReducePayload
		if err := env.DecodePayload(&p); err != nil {
			return err
		}
		if len(p.Values) != len(sum) {
			return errors.CollectiveDivergence("all-sum contribution length mismatch across ranks")
		}
		for i, v := range p.Values {
			sum[i] += v
		}
		return nil
	})
	if err != nil {
		return err
	}
	copy(values, sum)
	return nil
}

// Broadcast publishes data from root and every rank (including root)
// consumes the round's single message, so all ranks converge on root's
// copy without root needing a reply channel per peer.
func (k *KafkaDistributed) Broadcast(data []byte, root int) error {
	if root < 0 || root >= k.poolSize {
		return errRankOutOfRange(root, k.poolSize)
	}
	round := k.broadcastRound.Add(1)
	topic := kafka.PoolTopicBroadcast(k.runID)

	if k.poolRank == root {
		payload := kafka.PoolBroadcastPayload{Root: root, Data: append([]byte(nil), data...)}
		if err := k.publish(topic, "pool.broadcast", round, payload); err != nil {
			return err
		}
	}

	var result []byte
	err := k.collect(topic, round, 1, func(env *kafka.EventEnvelope) error {
		var p kafka.PoolBroadcastPayload
		if err := env.DecodePayload(&p); err != nil {
			return err
		}
		result = p.Data
		return nil
	})
	if err != nil {
		return err
	}
	copy(data, result)
	return nil
}

// Equality publishes value and reports whether every rank's value matches
// the first one seen.
func (k *KafkaDistributed) Equality(value int64) (bool, error) {
	round := k.equalityRound.Add(1)
	topic := kafka.PoolTopicEquality(k.runID)

	payload := kafka.PoolEqualityPayload{Rank: k.poolRank, Value: value}
	if err := k.publish(topic, "pool.equality", round, payload); err != nil {
		return false, err
	}

	equal := true
	var first int64
	seenFirst := false
	err := k.collect(topic, round, k.poolSize, func(env *kafka.EventEnvelope) error {
		var p kafka.PoolEqualityPayload
		if err := env.DecodePayload(&p); err != nil {
			return err
		}
		if !seenFirst {
			first = p.Value
			seenFirst = true
		} else if p.Value != first {
			equal = false
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return equal, nil
}

// Decision publishes local and returns the logical AND of every rank's
// local value.
func (k *KafkaDistributed) Decision(local bool) (bool, error) {
	round := k.decisionRound.Add(1)
	topic := kafka.PoolTopicDecision(k.runID)

	payload := kafka.PoolDecisionPayload{Rank: k.poolRank, Local: local}
	if err := k.publish(topic, "pool.decision", round, payload); err != nil {
		return false, err
	}

	result := true
	err := k.collect(topic, round, k.poolSize, func(env *kafka.EventEnvelope) error {
		var p kafka.PoolDecisionPayload
		if err := env.DecodePayload(&p); err != nil {
			return err
		}
		if !p.Local {
			result = false
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return result, nil
}

// Divide interleaves a loop of length n across the pool, identically to
// Local's pool-parallel division, using PoolRank/PoolSize as the (start,
// stride) pair.
func (k *KafkaDistributed) Divide(strategy DivisionStrategy, n int) (start, stride int) {
	return Divide(strategy, k.poolRank, k.poolSize, n)
}

// Close releases the producer and every reader backing this pool.
func (k *KafkaDistributed) Close() error {
	err := k.producer.Close()
	for _, r := range k.readers {
		if rerr := r.Close(); rerr != nil && err == nil {
			err = rerr
		}
	}
	return err
}

func (k *KafkaDistributed) publish(topic, eventType string, round int64, payload interface{}) error {
	env, err := kafka.NewEventEnvelope(eventType, fmt.Sprintf("rank-%d", k.poolRank), payload)
	if err != nil {
		return err
	}
	env.Metadata = map[string]string{roundMetadataKey: fmt.Sprintf("%d", round)}
	msg, err := env.ToMessage(topic)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), k.readTimeout)
	defer cancel()
	if err := k.producer.Publish(ctx, msg); err != nil {
		return errors.Wrap(err, errors.CodeCollectiveDivergence, "failed to publish collective contribution")
	}
	return nil
}

// collect reads from the topic's reader until want envelopes tagged
// with round have been handled, discarding envelopes tagged with any
// other round. It times out with
// CodeCollectiveDivergence if a peer never shows up, since a pool that
// cannot complete a collective cannot safely continue the simulation.
func (k *KafkaDistributed) collect(topic string, round int64, want int, handle func(env *kafka.EventEnvelope) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), k.readTimeout)
	defer cancel()

	reader := k.readerFor(topic)
	wantRound := fmt.Sprintf("%d", round)
	seen := 0
	for seen < want {
		m, err := reader.ReadMessage(ctx)
		if err != nil {
			return errors.Wrap(err, errors.CodeCollectiveDivergence, "timed out waiting for pool collective to complete").
				WithDetail(fmt.Sprintf("topic=%s round=%d seen=%d want=%d", topic, round, seen, want))
		}
		env, err := kafka.MessageToEventEnvelope(&kafka.Message{Value: m.Value})
		if err != nil {
			return err
		}
		if env.Metadata[roundMetadataKey] != wantRound {
			continue
		}
		if err := handle(env); err != nil {
			return err
		}
		seen++
	}
	return nil
}
