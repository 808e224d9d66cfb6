package queue

import (
	"context"
	"errors"
)

// ErrPermanent marks a handler failure that redelivery cannot fix. The
// consumer rejects such messages without requeue so they dead-letter.
var ErrPermanent = errors.New("permanent dispatch failure")

// Queue topology for async dispatch triggers. A single durable work queue
// carries dispatch requests; permanently rejected messages land in the DLQ.
const (
	// DispatchQueue is the work queue consumed by the dispatch worker.
	DispatchQueue = "dispatch"
	// DispatchDLQ receives messages rejected as unprocessable.
	DispatchDLQ = "dlq.dispatch"
	// dispatchRoutingKey binds the DLQ on the dead-letter exchange.
	dispatchRoutingKey = "dispatch"
)

// Publisher publishes dispatch messages to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg DispatchMessage) error
	Close() error
}

// MessageHandler handles a consumed queue message. An error wrapping
// ErrPermanent dead-letters the message; any other error requeues it.
type MessageHandler func(ctx context.Context, msg DispatchMessage) error

// Consumer consumes dispatch messages from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}
