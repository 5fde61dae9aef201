package ports

import (
	"context"

	"github.com/rabbitmq/amqp091-go"

	"file-manager-api/internal/infrastructure/mq"
)

type RabbitMQ interface {
	Connect(ctx context.Context, dsn string) error
	Init() error
	PublisherWorker(ctx context.Context)
	Publish(ctx context.Context, e mq.Event)
	GetConn() *amqp091.Connection
}

// EventPublisher is the slice of RabbitMQ the services need.
type EventPublisher interface {
	Publish(ctx context.Context, e mq.Event)
}
