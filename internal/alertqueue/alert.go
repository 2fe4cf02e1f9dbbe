// Package alertqueue provides an in-process delivery queue for operational
// alerts with content deduplication, per-service rate limiting and bounded
// retry. It is a best-effort anti-spam layer in front of the messaging sink,
// not a durable broker: all state is lost on restart.
package alertqueue

import "time"

// Priority orders alerts within the queue.
type Priority string

// Priorities, highest first.
const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// priorityRank maps priorities to sort ranks. Lower rank delivers first.
var priorityRank = map[Priority]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityLow:      3,
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	_, ok := priorityRank[p]
	return ok
}

// Status represents the delivery state of a queued alert.
type Status string

// Alert statuses. StatusSent and StatusFailed are terminal.
const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Alert is the unit of work held by the queue.
type Alert struct {
	ID            string
	Fingerprint   string
	Payload       string
	Destination   string
	Service       string
	Priority      Priority
	Attempts      int
	MaxAttempts   int
	Status        Status
	LastError     string
	CreatedAt     time.Time
	LastAttemptAt time.Time
	SentAt        time.Time

	// seq preserves admission order for stable priority sorting.
	seq uint64
	// reported guards against double dead-letter reports.
	reported bool
}

// RejectReason explains why an enqueue request was not admitted.
type RejectReason string

// Rejection reasons.
const (
	ReasonDuplicateWithinWindow RejectReason = "duplicate_within_window"
	ReasonRateLimited           RejectReason = "rate_limited"
	ReasonAlreadyQueued         RejectReason = "already_in_queue"
)

// EnqueueResult describes the admission outcome. Delivery outcome is
// intentionally not observable by the producer: once Queued is true the
// alert is fire-and-forget.
type EnqueueResult struct {
	Queued      bool
	Fingerprint string
	Reason      RejectReason
}

// Stats is a read-only snapshot of queue state.
type Stats struct {
	Total               int `json:"total"`
	Pending             int `json:"pending"`
	Sent                int `json:"sent"`
	Failed              int `json:"failed"`
	DedupEntries        int `json:"dedup_entries"`
	RateLimitedServices int `json:"rate_limited_services"`
}
