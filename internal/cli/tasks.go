package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/angadjosan/Claimd/internal/models"
)

var (
	tasksStatus string
	tasksLimit  int
)

var tasksCmd = &cobra.Command{
	Use:   "tasks [task-id]",
	Short: "List or inspect queued tasks",
	Long: `List queued tasks or inspect a specific task by ID.

Examples:
  claimdctl tasks                    # List recent tasks
  claimdctl tasks --status pending   # List pending tasks only
  claimdctl tasks abc123             # Show details for task abc123`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTasks,
}

func init() {
	tasksCmd.Flags().StringVar(&tasksStatus, "status", "", "filter by status (pending, processing, completed, failed)")
	tasksCmd.Flags().IntVar(&tasksLimit, "limit", 50, "maximum number of tasks to list")
	rootCmd.AddCommand(tasksCmd)
}

func runTasks(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if len(args) == 1 {
		return showTask(ctx, args[0])
	}
	return listTasks(ctx)
}

func listTasks(ctx context.Context) error {
	tasks, err := dbClient.ListTasks(ctx, tasksStatus, tasksLimit)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	if len(tasks) == 0 {
		fmt.Println("No tasks found")
		return nil
	}

	fmt.Printf("%-38s %-14s %-12s %-9s %s\n", "ID", "TYPE", "STATUS", "ATTEMPTS", "CREATED")
	fmt.Println("--------------------------------------------------------------------------------------")

	for _, task := range tasks {
		fmt.Printf("%-38s %-14s %-12s %-9d %s\n",
			models.RecordIDText(task.ID),
			task.TaskType,
			task.Status,
			task.Attempts,
			task.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func showTask(ctx context.Context, id string) error {
	task, err := dbClient.GetTask(ctx, id)
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}

	fmt.Printf("Task: %s\n", models.RecordIDText(task.ID))
	fmt.Printf("  Type: %s\n", task.TaskType)
	fmt.Printf("  Application: %s\n", task.ApplicationID)
	fmt.Printf("  Status: %s\n", task.Status)
	fmt.Printf("  Attempts: %d\n", task.Attempts)
	fmt.Printf("  Created: %s\n", task.CreatedAt.Format(time.RFC3339))
	fmt.Printf("  Updated: %s\n", task.UpdatedAt.Format(time.RFC3339))
	if task.LockedAt != nil {
		fmt.Printf("  Locked: %s\n", task.LockedAt.Format(time.RFC3339))
	}
	if task.LastError != nil {
		fmt.Printf("  Last error: %s\n", *task.LastError)
	}
	if task.Payload != nil {
		payload, err := json.MarshalIndent(task.Payload, "  ", "  ")
		if err == nil {
			fmt.Printf("  Payload: %s\n", payload)
		}
	}
	return nil
}
