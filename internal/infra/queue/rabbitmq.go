package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"giveaway-bot/internal/domain"
	"giveaway-bot/internal/infra/metrics"
)

// RabbitPublisher отправляет интеграционные события бэкенду розыгрышей
// в очередь RabbitMQ. Очередь объявляется durable при создании.
type RabbitPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// NewRabbitPublisher подключается к RabbitMQ и объявляет очередь.
func NewRabbitPublisher(amqpURL, queue string) (*RabbitPublisher, error) {
	if amqpURL == "" {
		return nil, fmt.Errorf("amqp url is empty")
	}
	if queue == "" {
		return nil, fmt.Errorf("queue name is empty")
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	return &RabbitPublisher{conn: conn, channel: ch, queue: queue}, nil
}

type channelEventMessage struct {
	EventID    string    `json:"event_id"`
	Kind       string    `json:"kind"`
	ChannelID  int64     `json:"channel_id"`
	ActorID    int64     `json:"actor_id,omitempty"`
	Title      string    `json:"title,omitempty"`
	Username   string    `json:"username,omitempty"`
	URL        string    `json:"url,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (p *RabbitPublisher) publish(ctx context.Context, msg channelEventMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	start := time.Now()
	err = p.channel.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   msg.EventID,
		Timestamp:   msg.OccurredAt,
		Body:        payload,
	})
	metrics.ObserveNetworkRequest("rabbitmq", "publish", start, err)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// PublishChannelOnboarded сообщает о подключении канала.
func (p *RabbitPublisher) PublishChannelOnboarded(ctx context.Context, record domain.ChannelRecord, actorID int64) error {
	return p.publish(ctx, channelEventMessage{
		EventID:    uuid.NewString(),
		Kind:       "channel_onboarded",
		ChannelID:  record.ID,
		ActorID:    actorID,
		Title:      record.Title,
		Username:   record.Username,
		URL:        record.URL,
		OccurredAt: time.Now().UTC(),
	})
}

// PublishChannelRemoved сообщает об удалении бота из канала.
func (p *RabbitPublisher) PublishChannelRemoved(ctx context.Context, channelID int64) error {
	return p.publish(ctx, channelEventMessage{
		EventID:    uuid.NewString(),
		Kind:       "channel_removed",
		ChannelID:  channelID,
		OccurredAt: time.Now().UTC(),
	})
}

// Close закрывает соединение.
func (p *RabbitPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		_ = p.conn.Close()
		return err
	}
	return p.conn.Close()
}

var _ domain.EventPublisher = (*RabbitPublisher)(nil)
