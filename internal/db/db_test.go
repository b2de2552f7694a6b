// Package db provides integration tests for SurrealDB operations.
package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/iris-analytics/iris/internal/models"
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

func TestActiveJobClaim(t *testing.T) {
	ctx := context.Background()

	if err := testDB.ClaimActiveJob(ctx, "ds-claim", "job1"); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}

	// Second claim for the same dataset must collide.
	err := testDB.ClaimActiveJob(ctx, "ds-claim", "job2")
	if !errors.Is(err, models.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	jobID, err := testDB.ActiveJobID(ctx, "ds-claim")
	if err != nil {
		t.Fatalf("active job lookup failed: %v", err)
	}
	if jobID != "job1" {
		t.Errorf("expected job1 to hold the slot, got %s", jobID)
	}

	if err := testDB.ReleaseActiveJob(ctx, "ds-claim"); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	// After release, a new claim succeeds.
	if err := testDB.ClaimActiveJob(ctx, "ds-claim", "job3"); err != nil {
		t.Fatalf("claim after release failed: %v", err)
	}
	_ = testDB.ReleaseActiveJob(ctx, "ds-claim")
}

func TestJobLifecycle(t *testing.T) {
	ctx := context.Background()

	job := &models.AnalysisJob{ID: "lifecycle1", DatasetID: "ds-life", Status: models.JobQueued, Caller: "tester"}
	if err := testDB.CreateJob(ctx, job); err != nil {
		t.Fatalf("create job failed: %v", err)
	}

	if err := testDB.UpdateJobStatus(ctx, job.ID, models.JobRunning, ""); err != nil {
		t.Fatalf("update to running failed: %v", err)
	}
	if err := testDB.UpdateJobStatus(ctx, job.ID, models.JobPartial, ""); err != nil {
		t.Fatalf("update to partial failed: %v", err)
	}

	got, err := testDB.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job failed: %v", err)
	}
	if got.Status != models.JobPartial {
		t.Errorf("expected partial, got %s", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("terminal job should have a completion timestamp")
	}

	latest, err := testDB.LatestAnalyzedJob(ctx, "ds-life")
	if err != nil {
		t.Fatalf("latest analyzed lookup failed: %v", err)
	}
	if latest.ID != job.ID {
		t.Errorf("expected %s, got %s", job.ID, latest.ID)
	}
}

func TestAgentResultUpsert(t *testing.T) {
	ctx := context.Background()

	r := &models.AgentResult{
		JobID:  "resjob1",
		Kind:   models.KindAnomaly,
		Status: models.ResultSucceeded,
		Payload: models.ToPayload(models.AnomalyPayload{
			Threshold: 0.8,
			RowCount:  10,
			Flagged:   []models.FlaggedRow{{Index: 3, Score: 0.91, Column: "amount", Value: 999}},
		}),
	}
	if err := testDB.PutAgentResult(ctx, r); err != nil {
		t.Fatalf("put result failed: %v", err)
	}

	// Results for other kinds of the same job are distinct records.
	other := &models.AgentResult{
		JobID: "resjob1", Kind: models.KindForecast,
		Status: models.ResultFailed, ErrorKind: models.ErrorKindTimeout, Error: "deadline exceeded",
	}
	if err := testDB.PutAgentResult(ctx, other); err != nil {
		t.Fatalf("put second result failed: %v", err)
	}

	got, err := testDB.GetAgentResult(ctx, "resjob1", models.KindAnomaly)
	if err != nil {
		t.Fatalf("get result failed: %v", err)
	}
	var payload models.AnomalyPayload
	if err := models.DecodePayload(got.Payload, &payload); err != nil {
		t.Fatalf("decode payload failed: %v", err)
	}
	if len(payload.Flagged) != 1 || payload.Flagged[0].Index != 3 {
		t.Errorf("unexpected payload: %+v", payload)
	}

	list, err := testDB.ListAgentResults(ctx, "resjob1")
	if err != nil {
		t.Fatalf("list results failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 results, got %d", len(list))
	}
	// Canonical order: anomaly before forecast.
	if list[0].Kind != models.KindAnomaly || list[1].Kind != models.KindForecast {
		t.Errorf("results out of canonical order: %s, %s", list[0].Kind, list[1].Kind)
	}
}

func TestConversationHistory(t *testing.T) {
	ctx := context.Background()

	conv := &models.Conversation{ID: "conv1", DatasetID: "ds-conv"}
	if err := testDB.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("create conversation failed: %v", err)
	}

	turns := []*models.Message{
		{ID: "m1", ConversationID: "conv1", Role: "user", Content: "what is unusual?"},
		{ID: "m2", ConversationID: "conv1", Role: "assistant", Content: "row 42 is an outlier", Citations: []models.AgentKind{models.KindAnomaly}},
	}
	for _, msg := range turns {
		if err := testDB.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("append message failed: %v", err)
		}
	}

	history, err := testDB.ListMessages(ctx, "conv1")
	if err != nil {
		t.Fatalf("list messages failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	if history[0].Role != "user" || history[1].Role != "assistant" {
		t.Errorf("history out of order")
	}
	if len(history[1].Citations) != 1 || history[1].Citations[0] != models.KindAnomaly {
		t.Errorf("citations not preserved: %+v", history[1].Citations)
	}
}

func TestGetMissingRecords(t *testing.T) {
	ctx := context.Background()

	if _, err := testDB.GetJob(ctx, "no-such-job"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing job, got %v", err)
	}
	if _, err := testDB.GetDataset(ctx, "no-such-dataset"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing dataset, got %v", err)
	}
	if _, err := testDB.LatestAnalyzedJob(ctx, "never-analyzed"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unanalyzed dataset, got %v", err)
	}
}
