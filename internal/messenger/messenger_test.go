package messenger_test

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dissolveproject/dissolve/internal/infrastructure/monitoring/logging"
	"github.com/dissolveproject/dissolve/internal/messenger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newObserved(t *testing.T) (logging.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return logging.NewLoggerFromCore(core), logs
}

type fakeSink struct {
	records []string
}

func (f *fakeSink) Record(level, runID, message string, fields map[string]interface{}) {
	f.records = append(f.records, level+":"+message)
}

func TestMessenger_NormalMode_SuppressesDebug(t *testing.T) {
	log, logs := newObserved(t)
	m := messenger.New(log, messenger.Normal, "run-1", true)

	m.Debug("should not appear")
	m.Print("should appear")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "should appear", logs.All()[0].Message)
}

func TestMessenger_Verbose_EmitsDebug(t *testing.T) {
	log, logs := newObserved(t)
	m := messenger.New(log, messenger.Verbose, "run-1", true)

	m.Debug("debug line")
	m.Print("info line")

	require.Equal(t, 2, logs.Len())
}

func TestMessenger_Quiet_SuppressesInfoAndDebug(t *testing.T) {
	log, logs := newObserved(t)
	m := messenger.New(log, messenger.Quiet, "run-1", true)

	m.Debug("debug")
	m.Print("info")
	m.Warn("warn")
	m.Error("error")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[1].Level)
}

func TestMessenger_MasterOnly_SilencesWorkerBelowWarn(t *testing.T) {
	log, logs := newObserved(t)
	worker := messenger.New(log, messenger.MasterOnly, "run-1", false)

	worker.Print("routine progress")
	worker.Warn("cutoff larger than half the shortest box length")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
}

func TestMessenger_MasterOnly_MasterBehavesNormal(t *testing.T) {
	log, logs := newObserved(t)
	master := messenger.New(log, messenger.MasterOnly, "run-1", true)

	master.Print("routine progress")

	require.Equal(t, 1, logs.Len())
}

func TestMessenger_WithSink_MirrorsOutput(t *testing.T) {
	log, _ := newObserved(t)
	sink := &fakeSink{}
	m := messenger.New(log, messenger.Normal, "run-7", true).WithSink(sink)

	m.Print("energy evaluation complete")
	m.Error("checkpoint write failed")

	require.Len(t, sink.records, 2)
	assert.Equal(t, "info:energy evaluation complete", sink.records[0])
	assert.Equal(t, "error:checkpoint write failed", sink.records[1])
}

func TestMessenger_NilLoggerFallsBackToDefault(t *testing.T) {
	assert.NotPanics(t, func() {
		m := messenger.New(nil, messenger.Normal, "", true)
		m.Print("no panic expected")
	})
}

func TestMessenger_IsMaster(t *testing.T) {
	log, _ := newObserved(t)
	assert.True(t, messenger.New(log, messenger.Normal, "", true).IsMaster())
	assert.False(t, messenger.New(log, messenger.Normal, "", false).IsMaster())
}

func TestMode_String(t *testing.T) {
	cases := map[messenger.Mode]string{
		messenger.Quiet:      "quiet",
		messenger.Normal:     "normal",
		messenger.Verbose:    "verbose",
		messenger.MasterOnly: "master-only",
	}
	for mode, want := range cases {
		assert.Equal(t, want, mode.String())
	}
}

func init() {
	// zap must be reachable from this test binary even though Messenger never
	// imports it directly; the observed logger is constructed via zap's own
	// test helpers in the teacher's style.
	_ = zap.NewNop()
}
