package db

import (
	"bytes"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/google/uuid"

	"showrunner/domain"
)

var _ domain.RunRepository = (*Repository)(nil)

// dbRun represents a run as stored in the database.
type dbRun struct {
	ID         uuid.UUID     `db:"id"`          // Unique identifier for the run.
	Name       string        `db:"name"`        // Human-readable run name.
	Mode       string        `db:"mode"`        // train or test.
	Recipe     string        `db:"recipe"`      // Path of the base YAML config.
	Overrides  StringMap     `db:"overrides"`   // Effective overrides as JSON.
	Env        StringMap     `db:"env"`         // Launch environment as JSON.
	InitMethod string        `db:"init_method"` // Distributed init method URL.
	OutputDir  string        `db:"output_dir"`  // Driver output directory.
	Seed       int           `db:"seed"`        // RNG seed.
	Status     string        `db:"status"`      // Lifecycle state.
	ExitCode   sql.NullInt64 `db:"exit_code"`   // Driver exit code, NULL until exit.
	StartedAt  time.Time     `db:"started_at"`  // Row creation time.
	FinishedAt sql.NullTime  `db:"finished_at"` // Driver exit time, NULL while running.
}

// toDomainRun converts a dbRun to a domain.Run.
func toDomainRun(dbRun *dbRun) *domain.Run {
	run := &domain.Run{
		ID:         dbRun.ID,
		Name:       dbRun.Name,
		Mode:       domain.RunMode(dbRun.Mode),
		Recipe:     dbRun.Recipe,
		Overrides:  map[string]string(dbRun.Overrides),
		Env:        map[string]string(dbRun.Env),
		InitMethod: dbRun.InitMethod,
		OutputDir:  dbRun.OutputDir,
		Seed:       dbRun.Seed,
		Status:     domain.RunStatus(dbRun.Status),
		StartedAt:  dbRun.StartedAt,
	}

	if dbRun.ExitCode.Valid {
		code := int(dbRun.ExitCode.Int64)
		run.ExitCode = &code
	}

	if dbRun.FinishedAt.Valid {
		finished := dbRun.FinishedAt.Time
		run.FinishedAt = &finished
	}

	return run
}

// fromDomainRun converts a domain.Run to a dbRun.
func fromDomainRun(run *domain.Run) *dbRun {
	dbRun := &dbRun{
		ID:         run.ID,
		Name:       run.Name,
		Mode:       string(run.Mode),
		Recipe:     run.Recipe,
		Overrides:  StringMap(run.Overrides),
		Env:        StringMap(run.Env),
		InitMethod: run.InitMethod,
		OutputDir:  run.OutputDir,
		Seed:       run.Seed,
		Status:     string(run.Status),
		StartedAt:  run.StartedAt,
	}

	if run.ExitCode != nil {
		dbRun.ExitCode = sql.NullInt64{Int64: int64(*run.ExitCode), Valid: true}
	}

	if run.FinishedAt != nil {
		dbRun.FinishedAt = sql.NullTime{Time: *run.FinishedAt, Valid: true}
	}

	return dbRun
}

// InsertRun creates a new run row.
func (repo *Repository) InsertRun(run *domain.Run) error {
	dbRun := fromDomainRun(run)
	query := `INSERT INTO run (id, name, mode, recipe, overrides, env, init_method, output_dir, seed, status, exit_code, started_at, finished_at)
	          VALUES (:id, :name, :mode, :recipe, :overrides, :env, :init_method, :output_dir, :seed, :status, :exit_code, :started_at, :finished_at)`

	_, err := repo.dbConn.NamedExec(query, dbRun)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	return nil
}

// UpdateRunStatus transitions a run to the given status.
func (repo *Repository) UpdateRunStatus(id uuid.UUID, status domain.RunStatus) error {
	query := `UPDATE run SET status = ? WHERE id = ?`

	result, err := repo.dbConn.Exec(query, string(status), id)
	if err != nil {
		return fmt.Errorf("updating run status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("fetching rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("no run found with ID %s", id)
	}

	return nil
}

// FinishRun records the terminal status, exit code and finish time of a run.
func (repo *Repository) FinishRun(id uuid.UUID, status domain.RunStatus, exitCode int, finishedAt time.Time) error {
	query := `UPDATE run SET status = ?, exit_code = ?, finished_at = ? WHERE id = ?`

	result, err := repo.dbConn.Exec(query, string(status), exitCode, finishedAt, id)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("fetching rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("no run found with ID %s", id)
	}

	return nil
}

// GetRun retrieves a single run by ID.
func (repo *Repository) GetRun(id uuid.UUID) (*domain.Run, error) {
	var dbRun dbRun
	query := `SELECT * FROM run WHERE id = ?`

	err := repo.dbConn.Get(&dbRun, query, id)
	if err != nil {
		return nil, fmt.Errorf("getting run %s: %w", id, err)
	}

	return toDomainRun(&dbRun), nil
}

// GetRuns retrieves all runs ordered by start time, newest first.
func (repo *Repository) GetRuns() ([]*domain.Run, error) {
	var dbRuns []*dbRun
	query := `SELECT * FROM run ORDER BY started_at DESC, id DESC`

	err := repo.dbConn.Select(&dbRuns, query)
	if err != nil {
		return nil, fmt.Errorf("getting runs: %w", err)
	}

	domainRuns := make([]*domain.Run, len(dbRuns))
	for i, dbRun := range dbRuns {
		domainRuns[i] = toDomainRun(dbRun)
	}
	return domainRuns, nil
}

// CountRuns returns the total number of recorded runs.
func (repo *Repository) CountRuns() (int32, error) {
	var count int32
	query := `SELECT COUNT(*) FROM run`

	err := repo.dbConn.Get(&count, query)
	if err != nil {
		return 0, fmt.Errorf("counting runs: %w", err)
	}

	return count, nil
}

// dbOutputLine represents a captured driver output line as stored in the database.
type dbOutputLine struct {
	Seq    int64     `db:"seq"`
	RunID  uuid.UUID `db:"run_id"`
	Stream string    `db:"stream"`
	Line   string    `db:"line"`
	At     time.Time `db:"at"`
}

// AppendOutput stores captured driver output lines for a run.
func (repo *Repository) AppendOutput(lines ...*domain.OutputLine) error {
	query := `INSERT INTO run_output (run_id, stream, line, at) VALUES (?, ?, ?, ?)`

	for _, line := range lines {
		_, err := repo.dbConn.Exec(query, line.RunID, line.Stream, line.Line, line.At)
		if err != nil {
			return fmt.Errorf("appending output for run %s: %w", line.RunID, err)
		}
	}

	return nil
}

// SealOutput compresses the buffered output lines of a run into a single
// brotli blob and drops the per-line rows. Sealing an already sealed run or a
// run without output is a no-op.
func (repo *Repository) SealOutput(id uuid.UUID) error {
	var dbLines []*dbOutputLine
	query := `SELECT * FROM run_output WHERE run_id = ? ORDER BY seq ASC`

	err := repo.dbConn.Select(&dbLines, query, id)
	if err != nil {
		return fmt.Errorf("getting output for run %s: %w", id, err)
	}

	if len(dbLines) == 0 {
		return nil
	}

	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	for _, line := range dbLines {
		if _, err := io.WriteString(bw, line.Line+"\n"); err != nil {
			return fmt.Errorf("compressing output for run %s: %w", id, err)
		}
	}
	if err := bw.Close(); err != nil {
		return fmt.Errorf("closing brotli writer for run %s: %w", id, err)
	}

	tx, err := repo.dbConn.Beginx()
	if err != nil {
		return fmt.Errorf("starting seal transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO run_output_blob (run_id, data) VALUES (?, ?)`, id, buf.Bytes()); err != nil {
		return fmt.Errorf("storing sealed output for run %s: %w", id, err)
	}
	if _, err := tx.Exec(`DELETE FROM run_output WHERE run_id = ?`, id); err != nil {
		return fmt.Errorf("dropping output lines for run %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing seal transaction: %w", err)
	}
	return nil
}

// GetOutput returns the full captured output of a run. Sealed output is
// decompressed; unsealed output is joined from the per-line rows.
func (repo *Repository) GetOutput(id uuid.UUID) (string, error) {
	var data []byte
	err := repo.dbConn.Get(&data, `SELECT data FROM run_output_blob WHERE run_id = ?`, id)
	if err == nil {
		brotliReader := brotli.NewReader(bytes.NewReader(data))
		decompressed, err := io.ReadAll(brotliReader)
		if err != nil {
			return "", fmt.Errorf("reading brotli content : %w", err)
		}
		return string(decompressed), nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("getting sealed output for run %s: %w", id, err)
	}

	var dbLines []*dbOutputLine
	err = repo.dbConn.Select(&dbLines, `SELECT * FROM run_output WHERE run_id = ? ORDER BY seq ASC`, id)
	if err != nil {
		return "", fmt.Errorf("getting output for run %s: %w", id, err)
	}

	var sb strings.Builder
	for _, line := range dbLines {
		sb.WriteString(line.Line)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
