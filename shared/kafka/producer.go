package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"slidecast/types"

	"github.com/IBM/sarama"
)

// Producer publishes JSON messages to one topic
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewProducer creates a synchronous producer
func NewProducer(brokers []string, topic string) (*Producer, error) {
	sc := sarama.NewConfig()
	sc.Version = sarama.V3_6_0_0
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 3
	sc.Producer.Return.Successes = true

	p, err := sarama.NewSyncProducer(brokers, sc)
	if err != nil {
		return nil, err
	}
	return NewProducerFrom(p, topic), nil
}

// NewProducerFrom wraps an existing sarama producer
func NewProducerFrom(p sarama.SyncProducer, topic string) *Producer {
	return &Producer{producer: p, topic: topic}
}

// Send marshals v and publishes it under key
func (p *Producer) Send(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("kafka send to %s: %w", p.topic, err)
	}
	log.Printf("📤 Sent %s to %s (partition=%d, offset=%d)", key, p.topic, partition, offset)
	return nil
}

// Notify publishes a job completion event keyed by job id
func (p *Producer) Notify(_ context.Context, ev types.ExportEvent) error {
	return p.Send(ev.JobID, ev)
}

// Close flushes and closes the producer
func (p *Producer) Close() error {
	return p.producer.Close()
}
