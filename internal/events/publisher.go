package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/SAP-F-2025/marketplace-service/internal/config"
)

// WatermillPublisher maps events onto topics of any watermill publisher.
type WatermillPublisher struct {
	publisher   message.Publisher
	topicPrefix string
	logger      *slog.Logger
}

func NewWatermillPublisher(publisher message.Publisher, topicPrefix string, logger *slog.Logger) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher, topicPrefix: topicPrefix, logger: logger}
}

// Topic returns the broker topic for an event type.
func (p *WatermillPublisher) Topic(t EventType) string {
	return p.topicPrefix + string(t)
}

func (p *WatermillPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("source", event.Source)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.Topic(event.Type), msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	p.logger.Debug("Event published", "event_id", event.ID, "type", event.Type)
	return nil
}

func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}

// NewKafkaPublisher publishes to the configured Kafka brokers.
func NewKafkaPublisher(cfg config.EventsConfig, logger *slog.Logger) (*WatermillPublisher, error) {
	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   cfg.KafkaBrokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}
	return NewWatermillPublisher(pub, cfg.TopicPrefix, logger), nil
}

// Bus is an in-process event bus used when no brokers are configured.
type Bus struct {
	*WatermillPublisher
	channel *gochannel.GoChannel
}

func NewBus(topicPrefix string, logger *slog.Logger) *Bus {
	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NewSlogLogger(logger))
	return &Bus{
		WatermillPublisher: NewWatermillPublisher(ch, topicPrefix, logger),
		channel:            ch,
	}
}

// Subscribe returns decoded events of one type until ctx is cancelled.
func (b *Bus) Subscribe(ctx context.Context, t EventType) (<-chan Event, error) {
	msgs, err := b.channel.Subscribe(ctx, b.Topic(t))
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", t, err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		for msg := range msgs {
			var ev Event
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				b.logger.Warn("Dropping undecodable event", "message_id", msg.UUID, "error", err)
				msg.Ack()
				continue
			}
			select {
			case out <- ev:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}

// StartAudit logs every event of every type until ctx is cancelled.
func (b *Bus) StartAudit(ctx context.Context) error {
	for _, t := range AllTypes() {
		ch, err := b.Subscribe(ctx, t)
		if err != nil {
			return err
		}
		go func() {
			for ev := range ch {
				b.logger.Info("Audit event",
					"event_id", ev.ID,
					"type", ev.Type,
					"data", string(ev.Data),
				)
			}
		}()
	}
	return nil
}

// NewPublisher picks Kafka when brokers are configured and the in-process
// bus otherwise.
func NewPublisher(ctx context.Context, cfg config.EventsConfig, logger *slog.Logger) (Publisher, error) {
	if len(cfg.KafkaBrokers) > 0 {
		logger.Info("Publishing events to kafka", "brokers", cfg.KafkaBrokers)
		return NewKafkaPublisher(cfg, logger)
	}

	logger.Info("No kafka brokers configured, using in-process event bus")
	bus := NewBus(cfg.TopicPrefix, logger)
	if err := bus.StartAudit(ctx); err != nil {
		_ = bus.Close()
		return nil, err
	}
	return bus, nil
}
