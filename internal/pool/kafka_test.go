package pool_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dissolveproject/dissolve/internal/pool"
	"github.com/dissolveproject/dissolve/pkg/errors"
)

func TestNewKafkaDistributed_RejectsEmptyRunID(t *testing.T) {
	_, err := pool.NewKafkaDistributed(context.Background(), pool.KafkaDistributedConfig{
		Brokers:   []string{"localhost:9092"},
		WorldRank: 0,
		WorldSize: 1,
	}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidParam, errors.GetCode(err))
}

func TestNewKafkaDistributed_RejectsZeroWorldSize(t *testing.T) {
	_, err := pool.NewKafkaDistributed(context.Background(), pool.KafkaDistributedConfig{
		RunID:     "run-1",
		Brokers:   []string{"localhost:9092"},
		WorldRank: 0,
		WorldSize: 0,
	}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidParam, errors.GetCode(err))
}

func TestNewKafkaDistributed_RejectsOutOfRangeRank(t *testing.T) {
	_, err := pool.NewKafkaDistributed(context.Background(), pool.KafkaDistributedConfig{
		RunID:     "run-1",
		Brokers:   []string{"localhost:9092"},
		WorldRank: 4,
		WorldSize: 4,
	}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeDomainRange, errors.GetCode(err))
}
