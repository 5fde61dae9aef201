package ports

import "context"

// RMQConsumer drains the file lifecycle queue into the audit log.
type RMQConsumer interface {
	Connect(dsn string) error
	// Init declares the audit queue and binds every lifecycle routing key.
	Init() error
	DeliveryWorker(ctx context.Context)
}
