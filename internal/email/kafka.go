package email

import (
	"context"
	"fmt"
	"time"

	"github.com/Sokol111/newsletter-publisher/pkg/messaging/kafka/avro/encoding"
	"github.com/Sokol111/newsletter-publisher/pkg/messaging/kafka/producer"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// NewsletterEmailSchema is the Avro value schema of the kafka transport.
const NewsletterEmailSchema = `{
  "type": "record",
  "name": "NewsletterEmail",
  "namespace": "newsletter.v1",
  "fields": [
    {"name": "from", "type": "string"},
    {"name": "to", "type": "string"},
    {"name": "subject", "type": "string"},
    {"name": "html", "type": "string"},
    {"name": "text", "type": "string"},
    {"name": "requestedAt", "type": {"type": "long", "logicalType": "timestamp-millis"}}
  ]
}`

type newsletterEmail struct {
	From        string    `avro:"from"`
	To          string    `avro:"to"`
	Subject     string    `avro:"subject"`
	HTML        string    `avro:"html"`
	Text        string    `avro:"text"`
	RequestedAt time.Time `avro:"requestedAt"`
}

// kafkaSender hands the message to a downstream mailer through a topic. Send
// returns once the broker acknowledged the record.
type kafkaSender struct {
	producer   producer.Producer
	serializer *encoding.Serializer
	topic      string
	from       string
	now        func() time.Time
}

func newKafkaSender(p producer.Producer, resolver encoding.SchemaIDResolver, from string, cfg KafkaConfig) (*kafkaSender, error) {
	s, err := encoding.NewSerializer(NewsletterEmailSchema, resolver)
	if err != nil {
		return nil, err
	}
	return &kafkaSender{
		producer:   p,
		serializer: s,
		topic:      cfg.Topic,
		from:       from,
		now:        time.Now,
	}, nil
}

func (s *kafkaSender) Send(ctx context.Context, msg Message) error {
	value, err := s.serializer.Serialize(s.topic, newsletterEmail{
		From:        s.from,
		To:          msg.To,
		Subject:     msg.Subject,
		HTML:        msg.HTML,
		Text:        msg.Text,
		RequestedAt: s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode newsletter email: %w", err)
	}

	record := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &s.topic, Partition: kafka.PartitionAny},
		Key:            []byte(msg.To),
		Value:          value,
		Headers:        []kafka.Header{{Key: "content-type", Value: []byte("application/avro")}},
	}
	if err := s.producer.ProduceSync(ctx, record); err != nil {
		return fmt.Errorf("failed to publish newsletter email: %w", err)
	}
	return nil
}
