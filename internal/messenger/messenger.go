// Package messenger is the single point at which Dissolve emits
// process-pool-aware diagnostic output. Every other package logs through a
// *Messenger rather than reaching for logging.Default() directly; the one
// place that is allowed to fall back to the global default is a component
// that has no natural constructor-injection point (package-level helpers
// called before a Messenger has been wired up).
package messenger

import (
	"fmt"

	"github.com/dissolveproject/dissolve/internal/infrastructure/monitoring/logging"
)

// Mode controls how much of a Messenger's output actually reaches the
// underlying Logger.
type Mode int

const (
	// Quiet suppresses everything except Warn and Error.
	Quiet Mode = iota

	// Normal emits Info-and-above messages. The default mode.
	Normal

	// Verbose additionally emits Debug-level messages, the per-call detail
	// used while diagnosing a procedure or energy kernel.
	Verbose

	// MasterOnly behaves like Normal but is only honoured by a Messenger
	// whose rank is not the pool's master; such a Messenger discards every
	// line below Warn regardless of the configured Mode, turning multi-rank
	// runs into a single coherent log instead of N interleaved copies.
	MasterOnly
)

func (m Mode) String() string {
	switch m {
	case Quiet:
		return "quiet"
	case Normal:
		return "normal"
	case Verbose:
		return "verbose"
	case MasterOnly:
		return "master-only"
	default:
		return "unknown"
	}
}

// Sink receives a copy of every emitted line, in addition to the
// Messenger's own Logger. The run-log index (C20, OpenSearch) is wired in
// as a Sink so that operators can search run output across many processes
// without scraping log files. A Sink must not block; slow sinks should
// buffer internally.
type Sink interface {
	Record(level, runID, message string, fields map[string]interface{})
}

// Messenger is constructed once per process and threaded through the
// simulation core. It knows its own pool rank (so MasterOnly mode can
// silence non-master ranks) and optionally mirrors every line to a Sink.
type Messenger struct {
	log      logging.Logger
	mode     Mode
	runID    string
	isMaster bool
	sinks    []Sink
}

// New constructs a Messenger. isMaster should be true for world rank 0 (or
// for every rank when running without a pool); runID namespaces output
// across distributed backends and Sink documents.
func New(log logging.Logger, mode Mode, runID string, isMaster bool) *Messenger {
	if log == nil {
		log = logging.Default()
	}
	return &Messenger{log: log, mode: mode, runID: runID, isMaster: isMaster}
}

// WithSink returns a Messenger that additionally mirrors output to sink.
func (m *Messenger) WithSink(sink Sink) *Messenger {
	clone := *m
	clone.sinks = append(append([]Sink{}, m.sinks...), sink)
	return &clone
}

// suppressed reports whether, given the Messenger's mode and rank, a line
// at the named level should be dropped before reaching the Logger.
func (m *Messenger) suppressed(level string) bool {
	if m.mode == MasterOnly && !m.isMaster {
		return level != "warn" && level != "error"
	}
	switch m.mode {
	case Quiet:
		return level != "warn" && level != "error"
	case Normal, MasterOnly:
		return level == "debug"
	case Verbose:
		return false
	default:
		return false
	}
}

func (m *Messenger) fields(extra ...logging.Field) []logging.Field {
	if m.runID == "" {
		return extra
	}
	return append([]logging.Field{logging.String("run_id", m.runID)}, extra...)
}

func (m *Messenger) record(level, msg string, fields []logging.Field) {
	if len(m.sinks) == 0 {
		return
	}
	asMap := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		asMap[f.Key] = f.Value
	}
	for _, s := range m.sinks {
		s.Record(level, m.runID, msg, asMap)
	}
}

// Debug emits a Verbose-only diagnostic line.
func (m *Messenger) Debug(msg string, fields ...logging.Field) {
	if m.suppressed("debug") {
		return
	}
	full := m.fields(fields...)
	m.log.Debug(msg, full...)
	m.record("debug", msg, full)
}

// Print emits a Normal-level line, the routine "here is what the engine is
// doing" message a user sees by default.
func (m *Messenger) Print(msg string, fields ...logging.Field) {
	if m.suppressed("info") {
		return
	}
	full := m.fields(fields...)
	m.log.Info(msg, full...)
	m.record("info", msg, full)
}

// Printf is a convenience wrapper over Print for callers migrating from
// printf-style diagnostics.
func (m *Messenger) Printf(format string, args ...interface{}) {
	m.Print(fmt.Sprintf(format, args...))
}

// Warn emits a line that always reaches the Logger, even under Quiet or
// MasterOnly-on-a-worker.
func (m *Messenger) Warn(msg string, fields ...logging.Field) {
	full := m.fields(fields...)
	m.log.Warn(msg, full...)
	m.record("warn", msg, full)
}

// Error emits a line that always reaches the Logger, even under Quiet or
// MasterOnly-on-a-worker. Errors constructed via pkg/errors should be
// passed through logging.Err so the error kind is a structured field.
func (m *Messenger) Error(msg string, fields ...logging.Field) {
	full := m.fields(fields...)
	m.log.Error(msg, full...)
	m.record("error", msg, full)
}

// IsMaster reports whether this Messenger's rank is the pool master.
func (m *Messenger) IsMaster() bool { return m.isMaster }

// ModeValue returns the Messenger's configured verbosity.
func (m *Messenger) ModeValue() Mode { return m.mode }
