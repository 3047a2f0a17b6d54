package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"condo/internal/condominium/models"
	"condo/pkg/platform/circuit"
	"condo/pkg/platform/sentinel"
)

// DefaultKafkaTopic is the topic events are produced to.
const DefaultKafkaTopic = "condo.events"

// KafkaPublisher produces events to a Kafka topic, keyed by backend address
// so each backend's events stay ordered within a partition.
type KafkaPublisher struct {
	client  *kgo.Client
	topic   string
	breaker *circuit.Breaker
	logger  *slog.Logger
}

// KafkaOption configures a KafkaPublisher.
type KafkaOption func(*KafkaPublisher)

func WithKafkaLogger(logger *slog.Logger) KafkaOption {
	return func(p *KafkaPublisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithKafkaBreaker(b *circuit.Breaker) KafkaOption {
	return func(p *KafkaPublisher) {
		if b != nil {
			p.breaker = b
		}
	}
}

// NewKafkaPublisher connects to brokers and makes sure the topic exists.
func NewKafkaPublisher(ctx context.Context, brokers []string, topic string, opts ...KafkaOption) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	p := &KafkaPublisher{
		client:  client,
		topic:   topic,
		breaker: circuit.New("kafka"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := EnsureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}
	return p, nil
}

// EnsureTopic creates topic with one partition when it does not exist.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, 1, -1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

// Publish produces events synchronously. While the breaker is open calls
// fail fast with sentinel.ErrUnavailable.
func (p *KafkaPublisher) Publish(ctx context.Context, events ...models.Event) error {
	if len(events) == 0 {
		return nil
	}
	if !p.breaker.Allow() {
		return fmt.Errorf("kafka publish: %w", sentinel.ErrUnavailable)
	}
	records := make([]*kgo.Record, 0, len(events))
	for _, e := range events {
		data, err := Encode(e)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", e.ID, err)
		}
		records = append(records, &kgo.Record{
			Topic: p.topic,
			Key:   []byte(e.Backend),
			Value: data,
			Headers: []kgo.RecordHeader{
				{Key: "type", Value: []byte(e.Type)},
			},
		})
	}
	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		if _, change := p.breaker.RecordFailure(); change.Opened {
			p.logger.WarnContext(ctx, "kafka circuit opened", "topic", p.topic, "error", err)
		}
		return fmt.Errorf("kafka publish: %w", err)
	}
	if _, change := p.breaker.RecordSuccess(); change.Closed {
		p.logger.InfoContext(ctx, "kafka circuit closed", "topic", p.topic)
	}
	return nil
}

// Close releases the client.
func (p *KafkaPublisher) Close() {
	p.client.Close()
}

// ConsumeKafka reads events from topic and calls handle for each until ctx is
// done. Undecodable records are logged and skipped.
func ConsumeKafka(ctx context.Context, brokers []string, topic, group string, logger *slog.Logger, handle func(models.Event)) error {
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	}
	if group != "" {
		opts = append(opts, kgo.ConsumerGroup(group))
	}
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return fmt.Errorf("kafka client: %w", err)
	}
	defer client.Close()

	for {
		fetches := client.PollFetches(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fetches.EachError(func(t string, partition int32, err error) {
			logger.WarnContext(ctx, "kafka fetch error", "topic", t, "partition", partition, "error", err)
		})
		fetches.EachRecord(func(r *kgo.Record) {
			e, err := Decode(r.Value)
			if err != nil {
				logger.WarnContext(ctx, "skipping undecodable event", "offset", r.Offset, "error", err)
				return
			}
			handle(e)
		})
	}
}
