package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"advertisement-service/internal/domain"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	AdvertisementCreated = "advertisement.created"
	AdvertisementUpdated = "advertisement.updated"
	AdvertisementDeleted = "advertisement.deleted"
)

type Event struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	AdvertisementID int64     `json:"advertisement_id"`
	Title           string    `json:"title,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

func NewEvent(eventType string, ad *domain.Advertisement, at time.Time) Event {
	return Event{
		ID:              uuid.NewString(),
		Type:            eventType,
		AdvertisementID: ad.ID,
		Title:           ad.Title,
		OccurredAt:      at.UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close() error                         { return nil }

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitPublisher sends events to a durable topic exchange, routed by event type.
type RabbitPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       channel
	exchange string
}

func NewRabbitPublisher(url, exchange string) (*RabbitPublisher, error) {
	if exchange == "" {
		return nil, fmt.Errorf("events: exchange name is required")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("events: failed to dial RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("events: failed to open a channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("events: failed to declare exchange %q: %w", exchange, err)
	}

	return &RabbitPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: failed to encode event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		return fmt.Errorf("events: publisher is closed")
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, event.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.OccurredAt,
		Type:         event.Type,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("events: failed to publish %s: %w", event.Type, err)
	}
	return nil
}

func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	if p.ch != nil {
		firstErr = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.conn = nil
	}
	return firstErr
}
