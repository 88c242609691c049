// Package kafka publishes audit events directly to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "checkpoint/pkg/platform/audit"
)

// Producer is the subset of *kgo.Client used here.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Store implements audit.Store by producing one record per event, keyed by
// meeting so a meeting's events stay ordered within a partition.
type Store struct {
	producer Producer
	topic    string
}

// New creates a Kafka audit store. An empty topic uses the client's default.
func New(producer Producer, topic string) *Store {
	return &Store{producer: producer, topic: topic}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	return s.Produce(ctx, event.MeetingID, value, event.Action, string(event.Category))
}

// Produce sends a pre-encoded event.
func (s *Store) Produce(ctx context.Context, key string, value []byte, action, category string) error {
	rec := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(key),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(action)},
			{Key: "category", Value: []byte(category)},
		},
	}
	if err := s.producer.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}
