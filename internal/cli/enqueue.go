package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/angadjosan/Claimd/internal/bus"
	"github.com/angadjosan/Claimd/internal/models"
)

var (
	enqueuePayload string
	enqueueNotify  bool
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <task-type> <application-id>",
	Short: "Enqueue a task for an application",
	Long: `Enqueue a task for an application.

Examples:
  claimdctl enqueue ai application-uuid
  claimdctl enqueue orchestration application-uuid
  claimdctl enqueue ai application-uuid --payload '{"source":"manual"}'
  claimdctl enqueue ai application-uuid --notify   # also announce on Kafka`,
	Args: cobra.ExactArgs(2),
	RunE: runEnqueue,
}

func init() {
	enqueueCmd.Flags().StringVar(&enqueuePayload, "payload", "", "extra payload as a JSON object")
	enqueueCmd.Flags().BoolVar(&enqueueNotify, "notify", false, "publish the task id to Kafka for batch workers")
	rootCmd.AddCommand(enqueueCmd)
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	taskType, applicationID := args[0], args[1]

	var payload map[string]any
	if enqueuePayload != "" {
		if err := json.Unmarshal([]byte(enqueuePayload), &payload); err != nil {
			return fmt.Errorf("parse payload: %w", err)
		}
	}

	task, err := dbClient.EnqueueTask(ctx, models.TaskType(taskType), applicationID, payload)
	if err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}

	taskID := models.RecordIDText(task.ID)
	fmt.Printf("Enqueued %s task %s for application %s\n", taskType, taskID, applicationID)

	if enqueueNotify {
		producer, err := bus.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return fmt.Errorf("create producer: %w", err)
		}
		defer producer.Close()

		if err := producer.PublishTask(ctx, taskID); err != nil {
			return fmt.Errorf("publish task: %w", err)
		}
		fmt.Printf("Published task %s to %s\n", taskID, cfg.KafkaTopic)
	}
	return nil
}
