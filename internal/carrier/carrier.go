package carrier

import "context"

// Carrier transmits an outbound SMS and returns the carrier's delivery
// reference on acceptance. Implementations own their timeout; callers do not
// impose one beyond the request context.
type Carrier interface {
	Send(ctx context.Context, to, body string) (string, error)
}
