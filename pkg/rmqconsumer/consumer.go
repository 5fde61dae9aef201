// Package rmqconsumer drains the file lifecycle queue into an audit log.
package rmqconsumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"file-manager-api/config"
	"file-manager-api/internal/infrastructure/mq"
)

const (
	// one unacked delivery at a time
	preFetchCount  = 1
	connectionName = "filemanagerapi-audit"
)

type Consumer struct {
	cfg        config.MQ
	log        *zap.Logger
	mCounter   *prometheus.CounterVec
	conn       *amqp091.Connection
	chConsume  *amqp091.Channel
	chDelivery <-chan amqp091.Delivery
}

func New(cfg config.MQ, logger *zap.Logger, mCounter *prometheus.CounterVec) *Consumer {
	return &Consumer{
		cfg:      cfg,
		log:      logger,
		mCounter: mCounter,
	}
}

func (c *Consumer) Connect(dsn string) error {
	conn, ch, err := mq.Dial(context.Background(), dsn, connectionName)
	if err != nil {
		return err
	}
	c.conn, c.chConsume = conn, ch

	c.log.Info("rabbitmq audit consumer connected")

	return nil
}

func (c *Consumer) Init() error {
	if err := mq.DeclareTopology(c.chConsume, c.cfg); err != nil {
		return err
	}
	if err := c.chConsume.Qos(preFetchCount, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}

	var err error
	c.chDelivery, err = c.chConsume.Consume(c.cfg.QueueName, connectionName, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	return nil
}

func (c *Consumer) DeliveryWorker(ctx context.Context) {
	c.log.Info("audit consumer started", zap.String("queue", c.cfg.QueueName))
	defer c.log.Info("audit consumer stopped")

	for {
		select {
		case msg, ok := <-c.chDelivery:
			if !ok {
				c.log.Warn("delivery channel closed")
				return
			}
			if err := c.delivery(msg); err != nil {
				c.log.Error("delivery() error", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(err))
			}
		case <-ctx.Done():
			c.chConsume.Close()
			if c.conn != nil {
				c.conn.Close()
			}
			return
		}
	}
}

// delivery writes one audit line per lifecycle event. Messages that can
// never be processed are dropped rather than requeued.
func (c *Consumer) delivery(msg amqp091.Delivery) error {
	var e mq.Event
	if err := json.Unmarshal(msg.Body, &e); err != nil {
		_ = msg.Nack(false, false)
		c.count("audit_events_malformed_total")
		return fmt.Errorf("decode event: %w", err)
	}

	var action string
	switch e.Type {
	case mq.EventFileUploaded:
		action = "FileUploaded"
	case mq.EventFileDeleted:
		action = "FileDeleted"
	default:
		_ = msg.Reject(false)
		c.count("audit_events_malformed_total")
		return fmt.Errorf("unknown event type %q (routing key %q)", e.Type, msg.RoutingKey)
	}

	c.log.Info("file audit",
		zap.String("action", action),
		zap.String("event_id", e.Id.String()),
		zap.Time("ts", e.TS),
		zap.String("owner_id", e.OwnerID),
		zap.String("file_id", e.Payload.ID.String()),
		zap.String("name", e.Payload.Name),
		zap.String("status", e.Payload.Status),
		zap.String("sha256", e.Payload.SHA256),
	)
	c.count("audit_events_total")

	return msg.Ack(false)
}

func (c *Consumer) count(label string) {
	if c.mCounter != nil {
		c.mCounter.WithLabelValues(label).Inc()
	}
}
