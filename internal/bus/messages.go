// Package bus moves task notifications over Kafka for the push-based
// delivery mode.
package bus

// TaskMessage announces a queued task to batch workers. The task row in the
// document store stays authoritative; the message only carries the id.
type TaskMessage struct {
	TaskID string `json:"task_id"`
}
