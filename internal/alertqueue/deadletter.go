package alertqueue

import "log/slog"

const deadLetterExcerptLen = 200

// DeadLetterReporter records alerts whose retry budget is exhausted. This is
// the terminal sink for unrecoverable alerts; implementations must not fail
// and must not re-inject items into the queue.
type DeadLetterReporter interface {
	Report(alert *Alert)
}

// LogReporter writes dead letters to structured logs.
type LogReporter struct{}

// NewLogReporter creates a reporter backed by slog.
func NewLogReporter() *LogReporter {
	return &LogReporter{}
}

// Report logs the failed alert with enough context to triage it by hand.
func (r *LogReporter) Report(alert *Alert) {
	slog.Error("alert dead-lettered",
		"alert_id", alert.ID,
		"service", alert.Service,
		"destination", alert.Destination,
		"attempts", alert.Attempts,
		"last_error", alert.LastError,
		"created_at", alert.CreatedAt,
		"payload_excerpt", excerpt(alert.Payload),
	)
	recordDeadLetter(alert.Service)
}

func excerpt(payload string) string {
	if len(payload) <= deadLetterExcerptLen {
		return payload
	}
	return payload[:deadLetterExcerptLen] + "..."
}
