package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// KafkaAlerter publishes alerts as JSON records. Records are keyed by
// chain/network so one chain's findings stay ordered within a partition.
type KafkaAlerter struct {
	topic    string
	producer sarama.SyncProducer
}

func NewKafkaAlerter(brokers []string, topic string) (*KafkaAlerter, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka alerter: no brokers")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka alerter: empty topic")
	}

	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 200 * time.Millisecond
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true

	p, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewKafkaAlerterWithProducer(p, topic), nil
}

func NewKafkaAlerterWithProducer(p sarama.SyncProducer, topic string) *KafkaAlerter {
	return &KafkaAlerter{topic: topic, producer: p}
}

func (k *KafkaAlerter) Send(ctx context.Context, alert Alert) error {
	// SyncProducer does not take a context.
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(payloadOf(alert))
	if err != nil {
		return fmt.Errorf("marshal kafka payload: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(alert.Chain + "/" + alert.Network),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("alert_type"), Value: []byte(alert.Type)},
		},
	}
	if _, _, err := k.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("kafka send to %s: %w", k.topic, err)
	}
	return nil
}

func (k *KafkaAlerter) Close() error {
	return k.producer.Close()
}
