package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const commitTimeout = 3 * time.Second

// Consumer reads task notifications with manual offset commits: a message is
// only committed after the caller finished handling it.
type Consumer struct {
	reader *kafka.Reader
}

// NewConsumer creates a consumer in the given group.
func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			Topic:          topic,
			GroupID:        groupID,
			MinBytes:       1,
			MaxBytes:       10e6,
			CommitInterval: 0, // manual commits
		}),
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// ReadTask blocks until a message arrives and returns it with a commit
// function the caller invokes after handling the task. Undecodable messages
// are committed immediately so a poison message cannot wedge the group.
func (c *Consumer) ReadTask(ctx context.Context) (TaskMessage, func(context.Context) error, error) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return TaskMessage{}, nil, fmt.Errorf("fetch message: %w", err)
	}

	var tm TaskMessage
	if err := json.Unmarshal(m.Value, &tm); err != nil || tm.TaskID == "" {
		_ = c.reader.CommitMessages(ctx, m)
		if err == nil {
			err = fmt.Errorf("missing task_id")
		}
		return TaskMessage{}, nil, fmt.Errorf("invalid task message: %w", err)
	}

	commit := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, commitTimeout)
		defer cancel()
		return c.reader.CommitMessages(ctx, m)
	}
	return tm, commit, nil
}
