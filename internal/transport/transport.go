// Package transport publishes tuner readings to external consumers.
package transport

// Transport is a sink for tuner readings. Implementations must be safe for
// concurrent use.
type Transport interface {
	Send(data any) error
	Close() error
}
