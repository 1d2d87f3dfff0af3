package producer

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Sokol111/newsletter-publisher/pkg/messaging/kafka/config"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

// Producer publishes records to Kafka.
type Producer interface {
	// Produce enqueues msg; the delivery report goes to deliveryChan.
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	// ProduceSync enqueues msg and waits for its delivery report.
	ProduceSync(ctx context.Context, msg *kafka.Message) error
	Close()
}

// kafkaProducer is the subset of *kafka.Producer in use.
type kafkaProducer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
	Close()
}

var _ kafkaProducer = (*kafka.Producer)(nil)

type producer struct {
	producer kafkaProducer
	log      *zap.Logger
}

func newProducer(p kafkaProducer, log *zap.Logger) *producer {
	return &producer{producer: p, log: log}
}

func newKafkaProducer(conf config.Config) (*kafka.Producer, error) {
	cm := &kafka.ConfigMap{
		"bootstrap.servers":  conf.Brokers,
		"acks":               conf.Producer.Acks,
		"message.timeout.ms": int(conf.Producer.DeliveryTimeout.Milliseconds()),
		"enable.idempotence": strconv.FormatBool(conf.Producer.Idempotent),
	}
	if conf.ClientID != "" {
		_ = cm.SetKey("client.id", conf.ClientID)
	}
	p, err := kafka.NewProducer(cm)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}
	return p, nil
}

func (p *producer) Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error {
	return p.producer.Produce(msg, deliveryChan)
}

func (p *producer) ProduceSync(ctx context.Context, msg *kafka.Message) error {
	deliveryChan := make(chan kafka.Event, 1)
	if err := p.producer.Produce(msg, deliveryChan); err != nil {
		return fmt.Errorf("failed to enqueue message: %w", err)
	}

	select {
	case <-ctx.Done():
		// The record may still be delivered; the report is dropped with the channel.
		return fmt.Errorf("delivery report not received: %w", ctx.Err())
	case ev := <-deliveryChan:
		m, ok := ev.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event %T", ev)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("failed to deliver message: %w", m.TopicPartition.Error)
		}
		return nil
	}
}

func (p *producer) Close() {
	if remaining := p.producer.Flush(5000); remaining > 0 {
		p.log.Warn("producer closed with undelivered messages", zap.Int("remaining", remaining))
	}
	p.producer.Close()
}
