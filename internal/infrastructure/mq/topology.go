package mq

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"file-manager-api/config"
)

const dialTimeout = 10 * time.Second

// Declarer is the subset of *amqp091.Channel needed to set up the topology.
type Declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp091.Table) error
}

// Dial opens a named connection and one channel on it.
func Dial(ctx context.Context, dsn, name string) (*amqp091.Connection, *amqp091.Channel, error) {
	dialer := &net.Dialer{Timeout: dialTimeout}

	conn, err := amqp091.DialConfig(dsn, amqp091.Config{
		Heartbeat:  10 * time.Second,
		Locale:     "en_US",
		Properties: amqp091.Table{"connection_name": name},
		Dial: func(network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("amqp channel: %w", err)
	}

	return conn, ch, nil
}

// DeclareTopology declares the durable exchange and audit queue and binds
// the queue to every lifecycle routing key. It is idempotent, so publisher
// and consumer both run it and either may start first.
func DeclareTopology(ch Declarer, cfg config.MQ) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, cfg.ExchangeType, true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}

	q, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	for _, rk := range RoutingKeys {
		if err = ch.QueueBind(q.Name, rk, cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("queue bind %s: %w", rk, err)
		}
	}

	return nil
}
