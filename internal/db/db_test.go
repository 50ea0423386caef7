// Package db provides integration tests for SurrealDB operations.
package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/angadjosan/Claimd/internal/metrics"
	"github.com/angadjosan/Claimd/internal/models"
)

var testDB *Client
var testContainer testcontainers.Container

// TestMain sets up and tears down the SurrealDB container for all tests.
func TestMain(m *testing.M) {
	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	var err error
	testContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	host, err := testContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := testContainer.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	testDB, err = NewClient(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := testDB.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	code := m.Run()

	_ = testDB.Close(ctx)
	_ = testContainer.Terminate(ctx)

	os.Exit(code)
}

// wipeTasks clears the task table so queue tests don't see each other's rows.
func wipeTasks(t *testing.T) {
	t.Helper()
	if _, err := surrealdb.Query[any](context.Background(), testDB.db, "DELETE task", nil); err != nil {
		t.Fatalf("wipe tasks: %v", err)
	}
}

func createTestApplication(t *testing.T, id, status string, demoSession *string) {
	t.Helper()
	_, err := surrealdb.Query[any](context.Background(), testDB.db, `
		CREATE type::record("application", $id) CONTENT {
			applicant_id: 'user:test-applicant',
			status: $status,
			demo_session_id: $demo,
			submitted_at: time::now(),
			updated_at: time::now()
		}
	`, map[string]any{"id": id, "status": status, "demo": demoSession})
	if err != nil {
		t.Fatalf("create test application: %v", err)
	}
	t.Cleanup(func() {
		_, _ = surrealdb.Query[any](context.Background(), testDB.db,
			`DELETE type::record("application", $id)`, map[string]any{"id": id})
	})
}

func createTestCaseworker(t *testing.T, id string, active, available bool) {
	t.Helper()
	_, err := surrealdb.Query[any](context.Background(), testDB.db, `
		CREATE type::record("user", $id) CONTENT {
			role: 'caseworker',
			is_active: $active,
			caseworker_available: $available
		}
	`, map[string]any{"id": id, "active": active, "available": available})
	if err != nil {
		t.Fatalf("create test caseworker: %v", err)
	}
	t.Cleanup(func() {
		_, _ = surrealdb.Query[any](context.Background(), testDB.db,
			`DELETE type::record("user", $id)`, map[string]any{"id": id})
	})
}

func createTestFile(t *testing.T, applicationID, fileName string) {
	t.Helper()
	_, err := surrealdb.Query[any](context.Background(), testDB.db, `
		CREATE application_file CONTENT {
			application_id: $app,
			file_name: $name,
			content_type: 'application/pdf',
			storage_bucket: 'application-files',
			storage_path: $app + '/' + $name,
			uploaded_at: time::now()
		}
	`, map[string]any{"app": applicationID, "name": fileName})
	if err != nil {
		t.Fatalf("create test file: %v", err)
	}
	t.Cleanup(func() {
		_, _ = surrealdb.Query[any](context.Background(), testDB.db,
			`DELETE application_file WHERE application_id = $app`, map[string]any{"app": applicationID})
	})
}

// =============================================================================
// QUEUE TESTS
// =============================================================================

func TestEnqueueAndClaim(t *testing.T) {
	ctx := context.Background()
	wipeTasks(t)

	first, err := testDB.EnqueueTask(ctx, models.TaskTypeAI, "app-claim-1", map[string]any{"source": "test"})
	if err != nil {
		t.Fatalf("EnqueueTask failed: %v", err)
	}
	if first.Status != models.TaskStatusPending {
		t.Errorf("Expected pending status, got %s", first.Status)
	}
	if first.Payload["application_id"] != "app-claim-1" {
		t.Errorf("Expected application_id injected into payload, got %v", first.Payload)
	}

	// Second task enqueued after the first; claim order must be FIFO.
	time.Sleep(10 * time.Millisecond)
	if _, err := testDB.EnqueueTask(ctx, models.TaskTypeOrchestration, "app-claim-2", nil); err != nil {
		t.Fatalf("EnqueueTask failed: %v", err)
	}

	claimed, err := testDB.ClaimNextTask(ctx)
	if err != nil {
		t.Fatalf("ClaimNextTask failed: %v", err)
	}
	if claimed == nil {
		t.Fatal("Expected a claimed task")
	}
	if claimed.ApplicationID != "app-claim-1" {
		t.Errorf("Expected oldest task first, got %s", claimed.ApplicationID)
	}
	if claimed.Status != models.TaskStatusProcessing {
		t.Errorf("Expected processing status, got %s", claimed.Status)
	}
	if claimed.Attempts != 1 {
		t.Errorf("Expected attempts 1, got %d", claimed.Attempts)
	}
	if claimed.LockedAt == nil {
		t.Error("Expected locked_at to be set")
	}

	second, err := testDB.ClaimNextTask(ctx)
	if err != nil {
		t.Fatalf("ClaimNextTask failed: %v", err)
	}
	if second == nil || second.ApplicationID != "app-claim-2" {
		t.Fatalf("Expected second task, got %+v", second)
	}

	empty, err := testDB.ClaimNextTask(ctx)
	if err != nil {
		t.Fatalf("ClaimNextTask on empty queue failed: %v", err)
	}
	if empty != nil {
		t.Errorf("Expected nil on empty queue, got %+v", empty)
	}
}

func TestClaimIsAtomicUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	wipeTasks(t)

	const taskCount = 10
	for i := 0; i < taskCount; i++ {
		if _, err := testDB.EnqueueTask(ctx, models.TaskTypeAI, fmt.Sprintf("app-conc-%d", i), nil); err != nil {
			t.Fatalf("EnqueueTask failed: %v", err)
		}
	}

	var mu sync.Mutex
	seen := make(map[string]int)
	var wg sync.WaitGroup

	// Several workers drain the queue concurrently; no task may be
	// delivered twice.
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				task, err := testDB.ClaimNextTask(ctx)
				if err != nil {
					t.Errorf("ClaimNextTask failed: %v", err)
					return
				}
				if task == nil {
					return
				}
				mu.Lock()
				seen[models.RecordIDText(task.ID)]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != taskCount {
		t.Errorf("Expected %d distinct claimed tasks, got %d", taskCount, len(seen))
	}
	for id, count := range seen {
		if count != 1 {
			t.Errorf("Task %s claimed %d times", id, count)
		}
	}
}

func TestClaimTaskByID(t *testing.T) {
	ctx := context.Background()
	wipeTasks(t)

	task, err := testDB.EnqueueTask(ctx, models.TaskTypeAI, "app-claim-id", nil)
	if err != nil {
		t.Fatalf("EnqueueTask failed: %v", err)
	}
	taskID := models.RecordIDText(task.ID)

	claimed, err := testDB.ClaimTask(ctx, taskID)
	if err != nil {
		t.Fatalf("ClaimTask failed: %v", err)
	}
	if claimed == nil {
		t.Fatal("Expected a claimed task")
	}
	if claimed.Status != models.TaskStatusProcessing {
		t.Errorf("Expected processing status, got %s", claimed.Status)
	}
	if claimed.Attempts != 1 {
		t.Errorf("Expected attempts 1, got %d", claimed.Attempts)
	}
	if claimed.LockedAt == nil {
		t.Error("Expected locked_at to be set")
	}

	// A second claim of the same row must lose.
	again, err := testDB.ClaimTask(ctx, taskID)
	if err != nil {
		t.Fatalf("ClaimTask failed: %v", err)
	}
	if again != nil {
		t.Errorf("Expected nil on already-claimed task, got %+v", again)
	}

	missing, err := testDB.ClaimTask(ctx, "no-such-task")
	if err != nil {
		t.Fatalf("ClaimTask on missing id failed: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil on missing task, got %+v", missing)
	}
}

func TestClaimTaskLosesToPullClaim(t *testing.T) {
	ctx := context.Background()
	wipeTasks(t)

	task, err := testDB.EnqueueTask(ctx, models.TaskTypeAI, "app-claim-race", nil)
	if err != nil {
		t.Fatalf("EnqueueTask failed: %v", err)
	}

	pulled, err := testDB.ClaimNextTask(ctx)
	if err != nil {
		t.Fatalf("ClaimNextTask failed: %v", err)
	}
	if pulled == nil {
		t.Fatal("Expected pull claim to succeed")
	}

	byID, err := testDB.ClaimTask(ctx, models.RecordIDText(task.ID))
	if err != nil {
		t.Fatalf("ClaimTask failed: %v", err)
	}
	if byID != nil {
		t.Errorf("Expected nil after pull worker took the row, got %+v", byID)
	}

	// The losing claim must not have touched the row.
	current, err := testDB.GetTask(ctx, models.RecordIDText(task.ID))
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if current.Attempts != 1 {
		t.Errorf("Expected attempts to stay at 1, got %d", current.Attempts)
	}
}

func TestQueryTimingsRecorded(t *testing.T) {
	ctx := context.Background()
	wipeTasks(t)

	collector := metrics.NewCollector()
	testDB.SetCollector(collector)
	defer testDB.SetCollector(nil)

	if _, err := testDB.EnqueueTask(ctx, models.TaskTypeAI, "app-timing", nil); err != nil {
		t.Fatalf("EnqueueTask failed: %v", err)
	}
	if _, err := testDB.ListTasks(ctx, "", 5); err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}

	snap := collector.Snapshot()
	if snap.DBQuery == nil {
		t.Fatal("Expected db_query timings in snapshot")
	}
	if snap.DBQuery.Count < 2 {
		t.Errorf("DBQuery.Count = %d, want at least 2", snap.DBQuery.Count)
	}
}

func TestMarkTaskCompletedMergesResult(t *testing.T) {
	ctx := context.Background()
	wipeTasks(t)

	task, err := testDB.EnqueueTask(ctx, models.TaskTypeAI, "app-complete", map[string]any{"source": "test"})
	if err != nil {
		t.Fatalf("EnqueueTask failed: %v", err)
	}
	taskID := models.RecordIDText(task.ID)

	if _, err := testDB.ClaimNextTask(ctx); err != nil {
		t.Fatalf("ClaimNextTask failed: %v", err)
	}

	err = testDB.MarkTaskCompleted(ctx, taskID, map[string]any{"status": "success", "confidence_score": 0.8})
	if err != nil {
		t.Fatalf("MarkTaskCompleted failed: %v", err)
	}

	fetched, err := testDB.GetTask(ctx, taskID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if fetched.Status != models.TaskStatusCompleted {
		t.Errorf("Expected completed status, got %s", fetched.Status)
	}
	// Merge semantics: existing payload keys survive, result is added.
	if fetched.Payload["source"] != "test" {
		t.Errorf("Expected original payload preserved, got %v", fetched.Payload)
	}
	result, ok := fetched.Payload["result"].(map[string]any)
	if !ok {
		t.Fatalf("Expected result object in payload, got %v", fetched.Payload["result"])
	}
	if result["status"] != "success" {
		t.Errorf("Expected result status success, got %v", result["status"])
	}
}

func TestMarkTaskFailed(t *testing.T) {
	ctx := context.Background()
	wipeTasks(t)

	task, err := testDB.EnqueueTask(ctx, models.TaskTypeFailTest, "app-fail", nil)
	if err != nil {
		t.Fatalf("EnqueueTask failed: %v", err)
	}
	taskID := models.RecordIDText(task.ID)

	if err := testDB.MarkTaskFailed(ctx, taskID, "boom"); err != nil {
		t.Fatalf("MarkTaskFailed failed: %v", err)
	}

	fetched, err := testDB.GetTask(ctx, taskID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if fetched.Status != models.TaskStatusFailed {
		t.Errorf("Expected failed status, got %s", fetched.Status)
	}
	if fetched.LastError == nil || *fetched.LastError != "boom" {
		t.Errorf("Expected last_error 'boom', got %v", fetched.LastError)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	_, err := testDB.GetTask(context.Background(), "does-not-exist")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListTasks(t *testing.T) {
	ctx := context.Background()
	wipeTasks(t)

	if _, err := testDB.EnqueueTask(ctx, models.TaskTypeAI, "app-list-1", nil); err != nil {
		t.Fatalf("EnqueueTask failed: %v", err)
	}
	failedTask, err := testDB.EnqueueTask(ctx, models.TaskTypeAI, "app-list-2", nil)
	if err != nil {
		t.Fatalf("EnqueueTask failed: %v", err)
	}
	if err := testDB.MarkTaskFailed(ctx, models.RecordIDText(failedTask.ID), "x"); err != nil {
		t.Fatalf("MarkTaskFailed failed: %v", err)
	}

	all, err := testDB.ListTasks(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 tasks, got %d", len(all))
	}

	pending, err := testDB.ListTasks(ctx, "pending", 10)
	if err != nil {
		t.Fatalf("ListTasks with status failed: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("Expected 1 pending task, got %d", len(pending))
	}
	if pending[0].ApplicationID != "app-list-1" {
		t.Errorf("Expected app-list-1, got %s", pending[0].ApplicationID)
	}
}

// =============================================================================
// APPLICATION TESTS
// =============================================================================

func TestGetApplication(t *testing.T) {
	ctx := context.Background()
	createTestApplication(t, "app-get", "submitted", nil)

	app, err := testDB.GetApplication(ctx, "app-get")
	if err != nil {
		t.Fatalf("GetApplication failed: %v", err)
	}
	if app.Status != models.ApplicationStatusSubmitted {
		t.Errorf("Expected submitted status, got %s", app.Status)
	}
	if app.SubmittedAt == nil {
		t.Error("Expected submitted_at to be set")
	}

	_, err = testDB.GetApplication(ctx, "does-not-exist")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListApplicationFiles(t *testing.T) {
	ctx := context.Background()
	createTestApplication(t, "app-files", "submitted", nil)
	createTestFile(t, "app-files", "medical-records.pdf")
	createTestFile(t, "app-files", "pay-stub.pdf")

	files, err := testDB.ListApplicationFiles(ctx, "app-files")
	if err != nil {
		t.Fatalf("ListApplicationFiles failed: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("Expected 2 files, got %d", len(files))
	}
	for _, f := range files {
		if f.StorageBucket != "application-files" {
			t.Errorf("Unexpected bucket %s", f.StorageBucket)
		}
	}

	none, err := testDB.ListApplicationFiles(ctx, "app-without-files")
	if err != nil {
		t.Fatalf("ListApplicationFiles failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Expected no files, got %d", len(none))
	}
}

func TestUpdateApplicationReasoning(t *testing.T) {
	ctx := context.Background()
	createTestApplication(t, "app-reason", "submitted", nil)

	err := testDB.UpdateApplicationReasoning(ctx, "app-reason", map[string]any{
		"reasoning_overall_recommendation": "NEEDS_REVIEW",
		"reasoning_confidence_score":       0.65,
		"reasoning_summary":                "Insufficient evidence.",
		"reasoning_phases":                 map[string]any{"phase_1": map[string]any{"finding": "below SGA", "outcome": "pass"}},
		"reasoning_missing_information":    []string{"treating physician statement"},
	})
	if err != nil {
		t.Fatalf("UpdateApplicationReasoning failed: %v", err)
	}

	app, err := testDB.GetApplication(ctx, "app-reason")
	if err != nil {
		t.Fatalf("GetApplication failed: %v", err)
	}
	if app.ReasoningOverallRecommendation == nil || *app.ReasoningOverallRecommendation != "NEEDS_REVIEW" {
		t.Errorf("Expected recommendation NEEDS_REVIEW, got %v", app.ReasoningOverallRecommendation)
	}
	if app.ReasoningConfidenceScore == nil || *app.ReasoningConfidenceScore != 0.65 {
		t.Errorf("Expected confidence 0.65, got %v", app.ReasoningConfidenceScore)
	}
	if len(app.ReasoningMissingInformation) != 1 {
		t.Errorf("Expected 1 missing-information entry, got %v", app.ReasoningMissingInformation)
	}

	// Re-running the analysis overwrites the previous result.
	err = testDB.UpdateApplicationReasoning(ctx, "app-reason", map[string]any{
		"reasoning_overall_recommendation": "APPROVE",
	})
	if err != nil {
		t.Fatalf("Second UpdateApplicationReasoning failed: %v", err)
	}
	app, err = testDB.GetApplication(ctx, "app-reason")
	if err != nil {
		t.Fatalf("GetApplication failed: %v", err)
	}
	if app.ReasoningOverallRecommendation == nil || *app.ReasoningOverallRecommendation != "APPROVE" {
		t.Errorf("Expected recommendation APPROVE after rerun, got %v", app.ReasoningOverallRecommendation)
	}
}

// =============================================================================
// ASSIGNMENT TESTS
// =============================================================================

func TestListEligibleCaseworkers(t *testing.T) {
	ctx := context.Background()
	createTestCaseworker(t, "cw-eligible", true, true)
	createTestCaseworker(t, "cw-inactive", false, true)
	createTestCaseworker(t, "cw-unavailable", true, false)

	ids, err := testDB.ListEligibleCaseworkers(ctx)
	if err != nil {
		t.Fatalf("ListEligibleCaseworkers failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "cw-eligible" {
		t.Errorf("Expected only cw-eligible, got %v", ids)
	}
}

func TestCreateAssignmentUniqueness(t *testing.T) {
	ctx := context.Background()
	createTestApplication(t, "app-assign", "submitted", nil)
	t.Cleanup(func() {
		_, _ = surrealdb.Query[any](context.Background(), testDB.db,
			`DELETE assigned_application WHERE application_id = 'app-assign'`, nil)
	})

	created, err := testDB.CreateAssignment(ctx, "app-assign", "cw-1", 1, nil)
	if err != nil {
		t.Fatalf("CreateAssignment failed: %v", err)
	}
	if created.ReviewStatus != models.ReviewStatusUnopened {
		t.Errorf("Expected unopened review status, got %s", created.ReviewStatus)
	}
	if created.AssignedBy != nil {
		t.Errorf("Expected nil assigned_by for system assignment, got %v", created.AssignedBy)
	}

	// The unique index must reject a second assignment for the same
	// application, even with a different reviewer.
	_, err = testDB.CreateAssignment(ctx, "app-assign", "cw-2", 1, nil)
	if !errors.Is(err, ErrAlreadyAssigned) {
		t.Errorf("Expected ErrAlreadyAssigned, got %v", err)
	}

	found, err := testDB.FindAssignment(ctx, "app-assign")
	if err != nil {
		t.Fatalf("FindAssignment failed: %v", err)
	}
	if found == nil || found.ReviewerID != "cw-1" {
		t.Errorf("Expected assignment to cw-1, got %+v", found)
	}

	missing, err := testDB.FindAssignment(ctx, "app-never-assigned")
	if err != nil {
		t.Fatalf("FindAssignment failed: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for unassigned application, got %+v", missing)
	}
}

func TestCountActiveAssignments(t *testing.T) {
	ctx := context.Background()
	for i, status := range []string{"unopened", "in_progress", "completed"} {
		appID := fmt.Sprintf("app-count-%d", i)
		createTestApplication(t, appID, "submitted", nil)
		if _, err := testDB.CreateAssignment(ctx, appID, "cw-count", 1, nil); err != nil {
			t.Fatalf("CreateAssignment failed: %v", err)
		}
		if _, err := surrealdb.Query[any](ctx, testDB.db,
			`UPDATE assigned_application SET review_status = $status WHERE application_id = $app`,
			map[string]any{"status": status, "app": appID}); err != nil {
			t.Fatalf("set review status: %v", err)
		}
	}
	t.Cleanup(func() {
		_, _ = surrealdb.Query[any](context.Background(), testDB.db,
			`DELETE assigned_application WHERE reviewer_id = 'cw-count'`, nil)
	})

	// Completed assignments don't count toward load.
	count, err := testDB.CountActiveAssignments(ctx, "cw-count")
	if err != nil {
		t.Fatalf("CountActiveAssignments failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 active assignments, got %d", count)
	}

	zero, err := testDB.CountActiveAssignments(ctx, "cw-nobody")
	if err != nil {
		t.Fatalf("CountActiveAssignments failed: %v", err)
	}
	if zero != 0 {
		t.Errorf("Expected 0 assignments, got %d", zero)
	}
}
