package db

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"showrunner/domain"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	tempFile, err := os.CreateTemp(t.TempDir(), "test_*.db")
	if err != nil {
		t.Fatalf("os.CreateTemp() failed: %v", err)
	}
	tempFile.Close()

	dbConn, err := New(tempFile.Name())
	if err != nil {
		t.Fatalf("db.New() failed: %v", err)
	}

	repo := NewRunRepo(dbConn)

	teardown := func() {
		repo.Close()
		os.Remove(tempFile.Name())
	}

	return repo, teardown
}

func testRun(t *testing.T, repo *Repository, overrides map[string]string) uuid.UUID {
	t.Helper()
	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("creating uuid: %v", err)
	}

	if overrides == nil {
		overrides = make(map[string]string)
	}

	run := &domain.Run{
		ID:     id,
		Name:   "k400-b16-f8",
		Mode:   domain.ModeTrain,
		Recipe: "exp/k400/config.yaml",
		Env: map[string]string{
			"NUM_SHARDS": "1",
			"NUM_GPUS":   "8",
			"BATCH_SIZE": "128",
			"BASE_LR":    "1e-5",
		},
		Overrides:  overrides,
		InitMethod: "tcp://localhost:9999",
		OutputDir:  "runs/k400-b16-f8",
		Seed:       6666,
		Status:     domain.RunPending,
		StartedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}

	err = repo.InsertRun(run)
	if err != nil {
		t.Fatalf("inserting run: %v", err)
	}
	return id
}
