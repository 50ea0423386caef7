package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const publishTimeout = 3 * time.Second

// Producer publishes task notifications for batch workers.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a producer for the given brokers and topic.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	if topic == "" {
		return nil, fmt.Errorf("kafka topic required")
	}

	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
	}, nil
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// PublishTask announces a queued task. The task id keys the message so
// notifications for the same task stay ordered within a partition.
func (p *Producer) PublishTask(ctx context.Context, taskID string) error {
	value, err := json.Marshal(TaskMessage{TaskID: taskID})
	if err != nil {
		return fmt.Errorf("encode task message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(taskID),
		Value: value,
		Time:  time.Now(),
	}); err != nil {
		return fmt.Errorf("publish task %s: %w", taskID, err)
	}
	return nil
}
