package mq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"file-manager-api/config"
	"file-manager-api/internal/interface/api/rest/dto/file"
)

const (
	bufferSize     = 128
	connectionName = "filemanagerapi-publisher"
)

// Routing keys. The audit queue is bound to every one of them.
const (
	EventFileUploaded = "file.uploaded"
	EventFileDeleted  = "file.deleted"
)

var RoutingKeys = []string{EventFileUploaded, EventFileDeleted}

type (
	channel interface {
		Declarer
		PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
		Close() error
	}

	RabbitMQ struct {
		cfg  config.MQ
		log  *zap.Logger
		conn *amqp091.Connection
		ch   channel
		in   chan Event
	}

	Event struct {
		Id      uuid.UUID `json:"event_id"`
		TS      time.Time `json:"time_stamp"`
		Type    string    `json:"event_type"`
		OwnerID string    `json:"owner_id"`
		Payload file.File `json:"file_payload"`
	}
)

func NewEvent(eventType, ownerID string, payload file.File) Event {
	return Event{
		Id:      uuid.New(),
		TS:      time.Now().UTC(),
		Type:    eventType,
		OwnerID: ownerID,
		Payload: payload,
	}
}

func New(cfg config.MQ, logger *zap.Logger) *RabbitMQ {
	return &RabbitMQ{
		cfg: cfg,
		log: logger,
		in:  make(chan Event, bufferSize),
	}
}

func (r *RabbitMQ) Connect(ctx context.Context, dsn string) error {
	conn, ch, err := Dial(ctx, dsn, connectionName)
	if err != nil {
		return err
	}
	r.conn, r.ch = conn, ch

	r.log.Info("rabbitmq publisher connected")

	return nil
}

func (r *RabbitMQ) Init() error {
	if err := DeclareTopology(r.ch, r.cfg); err != nil {
		_ = r.ch.Close()
		return err
	}
	return nil
}

// Publish hands e to the worker without blocking the request path.
// A full buffer drops the event with a warning.
func (r *RabbitMQ) Publish(ctx context.Context, e Event) {
	select {
	case r.in <- e:
	case <-ctx.Done():
		r.log.Warn("event dropped, request finished", zap.String("event_type", e.Type), zap.Error(ctx.Err()))
	default:
		r.log.Warn("event dropped, publisher buffer full", zap.String("event_type", e.Type))
	}
}

func (r *RabbitMQ) PublisherWorker(ctx context.Context) {
	r.log.Info("event publisher started")
	defer r.log.Info("event publisher stopped")

	for {
		select {
		case e := <-r.in:
			if err := r.send(ctx, e); err != nil {
				r.log.Error("send() error",
					zap.String("event_type", e.Type),
					zap.String("event_id", e.Id.String()),
					zap.Error(err),
				)
			}
		case <-ctx.Done():
			_ = r.ch.Close()
			return
		}
	}
}

// send publishes e persistently, routed by its type.
func (r *RabbitMQ) send(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}

	return r.ch.PublishWithContext(ctx, r.cfg.Exchange, e.Type, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    e.Id.String(),
		Timestamp:    e.TS,
		Type:         e.Type,
		Body:         body,
	})
}

func (r *RabbitMQ) GetConn() *amqp091.Connection { return r.conn }
