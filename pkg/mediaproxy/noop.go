package mediaproxy

import "context"

// NoopEventSink is a no-operation implementation of EventSink
// Useful when no downstream consumer cares about media lifecycle events
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

// MediaStored does nothing and returns nil
func (n *NoopEventSink) MediaStored(ctx context.Context, ref *MediaReference) error {
	return nil
}

// MediaDeleted does nothing and returns nil
func (n *NoopEventSink) MediaDeleted(ctx context.Context, bucket Bucket, key string) error {
	return nil
}
