package alertqueue

import (
	"context"
	"log/slog"
	"time"
)

// tick runs one delivery pass: prune terminal items, then drain up to a batch
// of pending alerts in priority order, pacing individual sends so the sink is
// not burst. A tick is skipped entirely while a previous tick is still
// executing.
func (q *Queue) tick(ctx context.Context) {
	if !q.ticking.CompareAndSwap(false, true) {
		slog.Debug("worker tick skipped, previous tick still running")
		return
	}
	defer q.ticking.Store(false)

	q.prune()

	batch := q.selectBatch()
	if len(batch) == 0 {
		return
	}

	slog.Debug("processing alert batch", "count", len(batch))

	for _, alert := range batch {
		if err := q.limiter.Wait(ctx); err != nil {
			return
		}
		q.deliver(ctx, alert)
	}
}

// selectBatch picks up to BatchSize pending alerts in current priority order.
func (q *Queue) selectBatch() []*Alert {
	q.mu.Lock()
	defer q.mu.Unlock()

	batch := make([]*Alert, 0, q.config.BatchSize)
	for _, a := range q.alerts {
		if a.Status != StatusPending {
			continue
		}
		batch = append(batch, a)
		if len(batch) == q.config.BatchSize {
			break
		}
	}
	return batch
}

// deliver makes one send attempt for the alert and applies the outcome.
func (q *Queue) deliver(ctx context.Context, alert *Alert) {
	q.mu.Lock()
	alert.Attempts++
	alert.LastAttemptAt = q.now()
	attempt := alert.Attempts
	q.mu.Unlock()

	start := time.Now()
	err := q.sender.Send(ctx, alert.Destination, alert.Payload)
	duration := time.Since(start)

	q.mu.Lock()
	defer q.mu.Unlock()

	if err == nil {
		now := q.now()
		alert.Status = StatusSent
		alert.SentAt = now
		// Successful delivery is the only writer of both indices.
		q.dedup.mark(alert.Fingerprint, now)
		q.rates.mark(alert.Service, now)

		recordSend("success", duration)
		slog.Debug("alert delivered",
			"alert_id", alert.ID,
			"service", alert.Service,
			"attempt", attempt,
			"duration", duration,
		)
		return
	}

	alert.LastError = err.Error()

	// Permanent failures (bad destination, revoked credential) cannot be
	// fixed by retrying; skip the remaining budget.
	if !isRetryable(err) {
		recordSend("failed", duration)
		q.failLocked(alert)
		return
	}

	if alert.Attempts >= alert.MaxAttempts {
		recordSend("failed", duration)
		q.failLocked(alert)
		return
	}

	recordSend("retry", duration)
	slog.Warn("alert send failed",
		"alert_id", alert.ID,
		"service", alert.Service,
		"attempt", attempt,
		"max_attempts", alert.MaxAttempts,
		"error", err,
	)
}

// failLocked marks the alert failed and hands it to the dead letter reporter
// exactly once. Caller holds q.mu.
func (q *Queue) failLocked(alert *Alert) {
	alert.Status = StatusFailed
	if alert.reported {
		return
	}
	alert.reported = true
	q.reporter.Report(alert)
}

// prune drops terminal items from the live collection: failed alerts that
// were already dead-lettered, and sent alerts past the grace period. Sent
// alerts linger for the grace period so admission checks racing with the
// dedup index still see them.
func (q *Queue) prune() {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	kept := q.alerts[:0]
	for _, a := range q.alerts {
		switch a.Status {
		case StatusSent:
			if now.Sub(a.SentAt) >= q.config.SentGrace {
				continue
			}
		case StatusFailed:
			if a.reported {
				continue
			}
		}
		kept = append(kept, a)
	}
	q.alerts = kept
}
