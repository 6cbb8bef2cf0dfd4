package db

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"showrunner/domain"
)

func testLog(t *testing.T, repo *Repository, runID *uuid.UUID) *domain.Log {
	t.Helper()

	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("creating uuid: %v", err)
	}

	log := &domain.Log{
		ID:        id,
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
		Level:     "INFO",
		Message:   "driver started",
		Context:   map[string]any{"pid": float64(4242)},
		RunID:     runID,
	}

	if err := repo.InsertLog(log); err != nil {
		t.Fatalf("inserting log: %v", err)
	}
	return log
}

func TestLogRepo_InsertLog(t *testing.T) {
	t.Run("should insert and read back a log entry", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		want := testLog(t, repo, nil)

		got, err := repo.GetLogs()
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		if len(got) != 1 {
			t.Fatalf("\nwanted:\n1\ngot:\n%d", len(got))
		}

		if got[0].ID != want.ID {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", want.ID, got[0].ID)
		}
		if got[0].Message != want.Message {
			t.Fatalf("\nwanted:\n%q\ngot:\n%q", want.Message, got[0].Message)
		}
		if got[0].Context["pid"] != float64(4242) {
			t.Fatalf("\nwanted:\n4242\ngot:\n%v", got[0].Context["pid"])
		}
		if got[0].RunID != nil {
			t.Fatalf("\nwanted:\nnil run id\ngot:\n%v", got[0].RunID)
		}
	})
}

func TestLogRepo_GetRunLogs(t *testing.T) {
	t.Run("should only return logs attributed to the run", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		runID := testRun(t, repo, nil)
		otherRunID := testRun(t, repo, nil)

		want := testLog(t, repo, &runID)
		_ = testLog(t, repo, &otherRunID)
		_ = testLog(t, repo, nil)

		got, err := repo.GetRunLogs(runID)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		if len(got) != 1 {
			t.Fatalf("\nwanted:\n1\ngot:\n%d", len(got))
		}

		if got[0].ID != want.ID {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", want.ID, got[0].ID)
		}
		if got[0].RunID == nil || *got[0].RunID != runID {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", runID, got[0].RunID)
		}
	})
}
