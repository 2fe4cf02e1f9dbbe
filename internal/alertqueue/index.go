package alertqueue

import "time"

// windowIndex is a key → last-sent-time map with a fixed window. It backs
// both the dedup index (keyed by fingerprint) and the rate limiter (keyed by
// service name). Not safe for concurrent use; the owning queue serializes
// access under its mutex.
type windowIndex struct {
	window time.Duration
	sent   map[string]time.Time
}

func newWindowIndex(window time.Duration) *windowIndex {
	return &windowIndex{
		window: window,
		sent:   make(map[string]time.Time),
	}
}

// recent reports whether key was marked within the window as of now.
func (idx *windowIndex) recent(key string, now time.Time) bool {
	last, ok := idx.sent[key]
	return ok && now.Sub(last) < idx.window
}

// mark records key as sent at now, overwriting any previous entry.
func (idx *windowIndex) mark(key string, now time.Time) {
	idx.sent[key] = now
}

// sweep removes entries older than the window and returns how many were
// removed. Running it twice without new marks removes nothing the second
// time.
func (idx *windowIndex) sweep(now time.Time) int {
	removed := 0
	for key, last := range idx.sent {
		if now.Sub(last) >= idx.window {
			delete(idx.sent, key)
			removed++
		}
	}
	return removed
}

func (idx *windowIndex) size() int {
	return len(idx.sent)
}
