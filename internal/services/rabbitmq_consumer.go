package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/daruratku/lostfound/internal/models"
)

// NotificationStore is what the consumer needs from the storage layer.
type NotificationStore interface {
	SaveNotification(ctx context.Context, n *models.Notification) error
}

// EventConsumer consumes item lifecycle events and records a notification
// row for the report's owner.
type EventConsumer struct {
	conn         *amqp.Connection
	channel      *amqp.Channel
	store        NotificationStore
	exchangeName string
	queueName    string
}

// NewEventConsumer connects to RabbitMQ for the notifier worker.
func NewEventConsumer(url, exchangeName, queueName string, store NotificationStore) (*EventConsumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return &EventConsumer{
		conn:         conn,
		channel:      channel,
		store:        store,
		exchangeName: exchangeName,
		queueName:    queueName,
	}, nil
}

// Start declares and binds the queue and launches the consume loop.
func (c *EventConsumer) Start() error {
	// Declare the exchange (idempotent) so the worker can start first
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	q, err := c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	for _, key := range []string{models.EventItemReported, models.EventItemStatusChanged, models.EventItemDeleted} {
		if err := c.channel.QueueBind(q.Name, key, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue to %s: %w", key, err)
		}
	}

	msgs, err := c.channel.Consume(
		q.Name, // queue
		"",     // consumer tag
		false,  // auto-ack
		false,  // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	go c.consumeLoop(msgs)

	log.Info().Str("queue", q.Name).Msg("Notifier consumer started")
	return nil
}

func (c *EventConsumer) consumeLoop(msgs <-chan amqp.Delivery) {
	for d := range msgs {
		log.Info().Str("routing_key", d.RoutingKey).Msg("Received item event")

		n, err := notificationFor(d.RoutingKey, d.Body)
		if err != nil {
			log.Error().Err(err).Str("routing_key", d.RoutingKey).Msg("Failed to decode item event")
			d.Nack(false, false)
			continue
		}
		if n == nil {
			// Unknown routing key, nothing to record.
			d.Ack(false)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = c.store.SaveNotification(ctx, n)
		cancel()
		if err != nil {
			log.Error().Err(err).Str("item_id", n.ItemID).Msg("Failed to record notification")
			d.Nack(false, true) // retry
			continue
		}

		d.Ack(false)
	}
}

// notificationFor maps an event payload to the notification row it produces.
func notificationFor(routingKey string, body []byte) (*models.Notification, error) {
	switch routingKey {
	case models.EventItemReported:
		var ev models.ItemReportedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return nil, err
		}
		return &models.Notification{
			ID:      uuid.New().String(),
			UserID:  ev.UserID,
			ItemID:  ev.ID,
			Kind:    routingKey,
			Message: fmt.Sprintf("Laporan %q berhasil dibuat", ev.Title),
		}, nil

	case models.EventItemStatusChanged:
		var ev models.ItemStatusChangedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return nil, err
		}
		return &models.Notification{
			ID:      uuid.New().String(),
			UserID:  ev.UserID,
			ItemID:  ev.ID,
			Kind:    routingKey,
			Message: fmt.Sprintf("Status laporan %q berubah dari %s menjadi %s", ev.Title, ev.OldStatus, ev.NewStatus),
		}, nil

	case models.EventItemDeleted:
		var ev models.ItemDeletedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return nil, err
		}
		return &models.Notification{
			ID:      uuid.New().String(),
			UserID:  ev.UserID,
			ItemID:  ev.ID,
			Kind:    routingKey,
			Message: fmt.Sprintf("Laporan %q telah dihapus", ev.Title),
		}, nil
	}

	return nil, nil
}

// Close closes the consumer's channel and connection.
func (c *EventConsumer) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
