package alertqueue

import "context"

// Sender delivers an alert payload to a named destination. Implementations
// must bound their own network timeouts; a hung call stalls the whole worker
// batch.
type Sender interface {
	Send(ctx context.Context, destination, payload string) error
}

// isRetryable checks if a send error is worth another attempt. Senders mark
// permanent failures (bad destination, revoked credential) via IsRetryable;
// unknown errors default to retryable.
func isRetryable(err error) bool {
	type retryable interface {
		IsRetryable() bool
	}
	if r, ok := err.(retryable); ok {
		return r.IsRetryable()
	}
	return true
}
