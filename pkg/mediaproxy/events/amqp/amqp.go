// Package amqp publishes media lifecycle events to a RabbitMQ topic
// exchange so downstream workers (thumbnailers, search indexers) can react
// to uploads without polling the store.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tendant/media-proxy/pkg/mediaproxy"
)

// Routing keys for published events.
const (
	RoutingKeyStored  = "media.stored"
	RoutingKeyDeleted = "media.deleted"
)

// Config options for the AMQP event sink
type Config struct {
	URL      string // amqp:// connection URL
	Exchange string // topic exchange name
}

// Sink is an AMQP implementation of the mediaproxy.EventSink interface
type Sink struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *slog.Logger
}

// StoredMessage is the payload published when media is stored.
type StoredMessage struct {
	Category    string `json:"category"`
	Bucket      string `json:"bucket"`
	StorageKey  string `json:"storage_key"`
	ExternalURL string `json:"external_url"`
	ContentType string `json:"content_type"`
}

// DeletedMessage is the payload published when media is deleted.
type DeletedMessage struct {
	Bucket     string `json:"bucket"`
	StorageKey string `json:"storage_key"`
}

// New creates a new AMQP event sink, retrying the broker connection for up
// to 30 seconds so the service survives broker restarts at deploy time.
func New(config Config, logger *slog.Logger) (*Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var conn *amqp.Connection
	var err error
	for i := 0; i < 6; i++ {
		conn, err = amqp.Dial(config.URL)
		if err == nil {
			break
		}
		logger.Warn("failed to connect to RabbitMQ, retrying in 5s", "attempt", i+1, "error", err)
		time.Sleep(5 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ after retries: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		config.Exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Sink{
		conn:     conn,
		channel:  ch,
		exchange: config.Exchange,
		logger:   logger,
	}, nil
}

// MediaStored publishes a media.stored event
func (s *Sink) MediaStored(ctx context.Context, ref *mediaproxy.MediaReference) error {
	return s.publish(ctx, RoutingKeyStored, StoredMessage{
		Category:    string(ref.Category),
		Bucket:      string(ref.Bucket),
		StorageKey:  ref.StorageKey,
		ExternalURL: ref.ExternalURL,
		ContentType: ref.ContentType,
	})
}

// MediaDeleted publishes a media.deleted event
func (s *Sink) MediaDeleted(ctx context.Context, bucket mediaproxy.Bucket, key string) error {
	return s.publish(ctx, RoutingKeyDeleted, DeletedMessage{
		Bucket:     string(bucket),
		StorageKey: key,
	})
}

func (s *Sink) publish(ctx context.Context, routingKey string, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = s.channel.PublishWithContext(ctx,
		s.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	s.logger.Debug("published media event", "routing_key", routingKey)
	return nil
}

// Close closes the sink's channel and connection.
func (s *Sink) Close() {
	if s.channel != nil {
		s.channel.Close()
	}
	if s.conn != nil {
		s.conn.Close()
	}
}
