package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus describes the lifecycle state of a launched run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"   // Row created, driver not started yet.
	RunRunning   RunStatus = "running"   // Driver process is alive.
	RunCompleted RunStatus = "completed" // Driver exited with code 0.
	RunFailed    RunStatus = "failed"    // Driver exited non-zero or failed to start.
	RunCanceled  RunStatus = "canceled"  // Context cancellation killed the driver.
)

// RunMode selects the driver entry behaviour: training or test-time evaluation.
type RunMode string

const (
	ModeTrain RunMode = "train"
	ModeTest  RunMode = "test"
)

// Run is a single invocation of the external training/eval driver. It records
// everything needed to reproduce the invocation: the base recipe, the flat
// override set, and the environment the shell launcher used to set by hand.
type Run struct {
	ID         uuid.UUID         // Unique identifier for the run.
	Name       string            // Human-readable name, usually the recipe name.
	Mode       RunMode           // train or test.
	Recipe     string            // Path of the base YAML config handed to the driver.
	Overrides  map[string]string // Effective dotted-key overrides, in raw string form.
	Env        map[string]string // Launch environment (NUM_SHARDS, NUM_GPUS, BATCH_SIZE, BASE_LR).
	InitMethod string            // Distributed init method URL (e.g. tcp://localhost:9999).
	OutputDir  string            // Driver output directory.
	Seed       int               // RNG seed forwarded to the driver.
	Status     RunStatus         // Current lifecycle state.
	ExitCode   *int              // Driver exit code, nil until the process exits.
	StartedAt  time.Time         // When the run row was created.
	FinishedAt *time.Time        // When the driver exited, nil while running.
}

// OutputLine is a single line of driver stdout/stderr attributed to a run.
type OutputLine struct {
	RunID  uuid.UUID // Run that produced the line.
	Stream string    // "stdout" or "stderr".
	Line   string    // The raw line without the trailing newline.
	At     time.Time // When the line was read.
}

// RunRepository defines the persistence operations for runs and their
// captured driver output.
type RunRepository interface {
	// InsertRun creates a new run row. The run must carry a non-nil ID.
	InsertRun(run *Run) error

	// UpdateRunStatus transitions a run to the given status.
	// It returns an error if the run does not exist.
	UpdateRunStatus(id uuid.UUID, status RunStatus) error

	// FinishRun records the terminal status, exit code and finish time of a run.
	FinishRun(id uuid.UUID, status RunStatus, exitCode int, finishedAt time.Time) error

	// GetRun retrieves a single run by ID.
	GetRun(id uuid.UUID) (*Run, error)

	// GetRuns retrieves all runs ordered by start time, newest first.
	GetRuns() ([]*Run, error)

	// CountRuns returns the total number of recorded runs.
	CountRuns() (int32, error)

	// AppendOutput stores captured driver output lines for a run.
	AppendOutput(lines ...*OutputLine) error

	// SealOutput compresses the buffered output of a finished run into a
	// single blob and drops the per-line rows.
	SealOutput(id uuid.UUID) error

	// GetOutput returns the full captured output of a run, decompressing the
	// sealed blob when present.
	GetOutput(id uuid.UUID) (string, error)
}
