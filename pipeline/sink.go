package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/rucd-project/apt-graph/xlog"
)

// ProgressSink receives one structured event per stage transition —
// spec/§4.5's "emit a structured event (stage_index, elapsed_ms,
// message) to an injected sink; tests assert the stage sequence."
type ProgressSink interface {
	Emit(stage int, elapsed time.Duration, message string)
}

// ZerologSink is the default ProgressSink, logging each event through
// xlog (C10) tagged with the owning query's correlation id — grounded
// on the pack's uniform use of google/uuid for request correlation.
type ZerologSink struct {
	QueryID uuid.UUID
}

// Emit logs the stage event at Debug level; stage timing is ordinary
// operational detail, not worth Info noise per-query.
func (s ZerologSink) Emit(stage int, elapsed time.Duration, message string) {
	xlog.Get().Debug().
		Str("query_id", s.QueryID.String()).
		Int("stage", stage).
		Dur("elapsed", elapsed).
		Msg(message)
}

// Event is one recorded progress transition, used by RecordingSink.
type Event struct {
	Stage   int
	Elapsed time.Duration
	Message string
}

// RecordingSink accumulates Events for test assertions on the stage
// sequence (spec/§4.5, §8's cache-correctness and cancellation tests).
// Not safe for concurrent use — one query runs single-threaded, per
// spec/§5, so no internal locking is needed.
type RecordingSink struct {
	Events []Event
}

func (s *RecordingSink) Emit(stage int, elapsed time.Duration, message string) {
	s.Events = append(s.Events, Event{Stage: stage, Elapsed: elapsed, Message: message})
}
