package neo4j

import (
	"context"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/dissolveproject/dissolve/internal/infrastructure/monitoring/logging"
)

type mockInternalDriver struct {
	mock.Mock
}

func (m *mockInternalDriver) VerifyConnectivity(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockInternalDriver) NewSession(ctx context.Context, cfg neo4j.SessionConfig) internalSession {
	args := m.Called(ctx, cfg)
	return args.Get(0).(internalSession)
}

func (m *mockInternalDriver) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockSession struct {
	mock.Mock
}

func (m *mockSession) ExecuteRead(ctx context.Context, work func(Transaction) (any, error)) (any, error) {
	args := m.Called(ctx, work)
	return args.Get(0), args.Error(1)
}

func (m *mockSession) ExecuteWrite(ctx context.Context, work func(Transaction) (any, error)) (any, error) {
	args := m.Called(ctx, work)
	return args.Get(0), args.Error(1)
}

func (m *mockSession) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestDriver_Close_Success(t *testing.T) {
	driver := new(mockInternalDriver)
	driver.On("Close", mock.Anything).Return(nil)

	d := &Driver{driver: driver, logger: logging.NewNopLogger()}

	assert.NoError(t, d.Close())
	driver.AssertExpectations(t)
}

func TestDriver_Close_IsIdempotent(t *testing.T) {
	driver := new(mockInternalDriver)
	driver.On("Close", mock.Anything).Return(nil).Once()

	d := &Driver{driver: driver, logger: logging.NewNopLogger()}

	assert.NoError(t, d.Close())
	assert.NoError(t, d.Close())
	driver.AssertNumberOfCalls(t, "Close", 1)
}

func TestDriver_HealthCheck_ReportsConnectivityFailure(t *testing.T) {
	driver := new(mockInternalDriver)
	driver.On("VerifyConnectivity", mock.Anything).Return(assert.AnError)

	d := &Driver{driver: driver, logger: logging.NewNopLogger()}

	err := d.HealthCheck(context.Background())
	assert.Error(t, err)
}

func TestDriver_ExecuteRead_PropagatesSessionError(t *testing.T) {
	driver := new(mockInternalDriver)
	session := new(mockSession)
	driver.On("NewSession", mock.Anything, mock.Anything).Return(internalSession(session))
	session.On("Close", mock.Anything).Return(nil)
	session.On("ExecuteRead", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	d := &Driver{driver: driver, logger: logging.NewNopLogger()}

	_, err := d.ExecuteRead(context.Background(), func(tx Transaction) (interface{}, error) {
		return nil, nil
	})
	assert.Error(t, err)
}

func TestExtractSingleRecord_ReturnsNotFoundWhenEmpty(t *testing.T) {
	result := new(mockResult)
	result.On("Next", mock.Anything).Return(false)
	result.On("Err").Return(nil)

	_, err := ExtractSingleRecord(context.Background(), result, func(r *neo4j.Record) (int, error) {
		return 0, nil
	})
	assert.Error(t, err)
}

type mockResult struct {
	mock.Mock
}

func (m *mockResult) Next(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func (m *mockResult) Record() *neo4j.Record {
	args := m.Called()
	rec, _ := args.Get(0).(*neo4j.Record)
	return rec
}

func (m *mockResult) Err() error {
	return m.Called().Error(0)
}

func (m *mockResult) Consume(ctx context.Context) (neo4j.ResultSummary, error) {
	args := m.Called(ctx)
	summary, _ := args.Get(0).(neo4j.ResultSummary)
	return summary, args.Error(1)
}
