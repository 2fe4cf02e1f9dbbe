package alertqueue

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Config contains queue tuning knobs.
type Config struct {
	DedupWindow     time.Duration
	RateLimitWindow time.Duration
	WorkerInterval  time.Duration
	SweepInterval   time.Duration
	BatchSize       int
	MaxAttempts     int
	SendPace        time.Duration
	SentGrace       time.Duration
}

// DefaultConfig returns default queue configuration.
func DefaultConfig() Config {
	return Config{
		DedupWindow:     2 * time.Hour,
		RateLimitWindow: 2 * time.Hour,
		WorkerInterval:  5 * time.Second,
		SweepInterval:   1 * time.Hour,
		BatchSize:       5,
		MaxAttempts:     3,
		SendPace:        1 * time.Second,
		SentGrace:       5 * time.Minute,
	}
}

// Queue is an in-memory alert delivery queue. Construct with New, then call
// Start to launch the delivery and sweep loops; Enqueue is safe to call from
// any goroutine and never blocks on I/O.
type Queue struct {
	config   Config
	sender   Sender
	reporter DeadLetterReporter

	mu     sync.Mutex
	alerts []*Alert
	dedup  *windowIndex
	rates  *windowIndex
	seq    uint64

	// ticking is the single-flight guard: a new worker tick is skipped
	// while a previous one is still draining its batch.
	ticking atomic.Bool
	limiter *rate.Limiter

	stopCh chan struct{}
	wg     sync.WaitGroup

	now func() time.Time
}

// New creates a queue. The periodic tasks do not run until Start is called,
// so multiple instances can exist side by side in tests.
func New(cfg Config, sender Sender, reporter DeadLetterReporter) *Queue {
	def := DefaultConfig()
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = def.DedupWindow
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = def.RateLimitWindow
	}
	if cfg.WorkerInterval <= 0 {
		cfg.WorkerInterval = def.WorkerInterval
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.SendPace <= 0 {
		cfg.SendPace = def.SendPace
	}
	if cfg.SentGrace <= 0 {
		cfg.SentGrace = def.SentGrace
	}
	if reporter == nil {
		reporter = NewLogReporter()
	}

	return &Queue{
		config:   cfg,
		sender:   sender,
		reporter: reporter,
		dedup:    newWindowIndex(cfg.DedupWindow),
		rates:    newWindowIndex(cfg.RateLimitWindow),
		limiter:  rate.NewLimiter(rate.Every(cfg.SendPace), 1),
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}
}

// Enqueue requests delivery of an alert. It consults the dedup index, the
// rate limiter and the live queue, and either admits a new pending alert or
// rejects with a reason. It never returns an error and performs no network
// I/O; producers get the admission outcome only, delivery is fire-and-forget.
func (q *Queue) Enqueue(message, destination, service string, priority Priority) EnqueueResult {
	if !priority.Valid() {
		priority = PriorityMedium
	}
	fingerprint := Fingerprint(service, message)

	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()

	if q.dedup.recent(fingerprint, now) {
		recordAdmission(string(ReasonDuplicateWithinWindow))
		return EnqueueResult{Fingerprint: fingerprint, Reason: ReasonDuplicateWithinWindow}
	}

	if q.rates.recent(service, now) {
		recordAdmission(string(ReasonRateLimited))
		return EnqueueResult{Fingerprint: fingerprint, Reason: ReasonRateLimited}
	}

	for _, a := range q.alerts {
		if a.Status == StatusPending && a.Fingerprint == fingerprint {
			recordAdmission(string(ReasonAlreadyQueued))
			return EnqueueResult{Fingerprint: fingerprint, Reason: ReasonAlreadyQueued}
		}
	}

	q.seq++
	alert := &Alert{
		ID:          uuid.New().String(),
		Fingerprint: fingerprint,
		Payload:     message,
		Destination: destination,
		Service:     service,
		Priority:    priority,
		MaxAttempts: q.config.MaxAttempts,
		Status:      StatusPending,
		CreatedAt:   now,
		seq:         q.seq,
	}
	q.alerts = append(q.alerts, alert)
	q.sortLocked()

	recordAdmission("queued")
	slog.Debug("alert queued",
		"alert_id", alert.ID,
		"service", service,
		"priority", priority,
		"fingerprint", fingerprint,
	)

	return EnqueueResult{Queued: true, Fingerprint: fingerprint}
}

// sortLocked keeps the queue ordered by priority rank, then admission order.
func (q *Queue) sortLocked() {
	sort.SliceStable(q.alerts, func(i, j int) bool {
		ri, rj := priorityRank[q.alerts[i].Priority], priorityRank[q.alerts[j].Priority]
		if ri != rj {
			return ri < rj
		}
		return q.alerts[i].seq < q.alerts[j].seq
	})
}

// Start launches the delivery worker and the dedup sweep loops.
func (q *Queue) Start(ctx context.Context) {
	slog.Info("starting alert queue",
		"worker_interval", q.config.WorkerInterval,
		"sweep_interval", q.config.SweepInterval,
		"batch_size", q.config.BatchSize,
		"dedup_window", q.config.DedupWindow,
	)

	q.wg.Add(2)
	go q.runWorker(ctx)
	go q.runSweep(ctx)
}

// Stop halts the periodic tasks and waits for an in-flight tick to finish.
func (q *Queue) Stop() {
	close(q.stopCh)
	q.wg.Wait()
	slog.Info("alert queue stopped")
}

func (q *Queue) runWorker(ctx context.Context) {
	defer q.wg.Done()

	ticker := time.NewTicker(q.config.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stopCh:
			return
		case <-ticker.C:
			q.tick(ctx)
		}
	}
}

func (q *Queue) runSweep(ctx context.Context) {
	defer q.wg.Done()

	ticker := time.NewTicker(q.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stopCh:
			return
		case <-ticker.C:
			q.sweep()
		}
	}
}

// sweep removes dedup entries older than the dedup window. The rate-limit
// index is bounded by the number of distinct services and is left alone.
func (q *Queue) sweep() {
	q.mu.Lock()
	removed := q.dedup.sweep(q.now())
	remaining := q.dedup.size()
	q.mu.Unlock()

	if removed > 0 {
		slog.Debug("dedup index swept", "removed", removed, "remaining", remaining)
	}
}

// Stats returns a snapshot of queue state for operational introspection.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := Stats{
		Total:               len(q.alerts),
		DedupEntries:        q.dedup.size(),
		RateLimitedServices: q.rates.size(),
	}
	for _, a := range q.alerts {
		switch a.Status {
		case StatusPending:
			stats.Pending++
		case StatusSent:
			stats.Sent++
		case StatusFailed:
			stats.Failed++
		}
	}
	return stats
}
