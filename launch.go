package showrunner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"showrunner/core"
	"showrunner/domain"
	"showrunner/experiment"
	"showrunner/hooks"
)

const driverScript = "tools/run_net.py" // Driver entry point, relative to the driver dir

// LaunchSpec describes one driver invocation: everything a launch script used
// to hard-code.
type LaunchSpec struct {
	Name       string                // Run name
	Mode       domain.RunMode        // train or test
	Config     string                // Base YAML config handed to the driver
	Overrides  []experiment.Override // Ordered dotted-key overrides
	Env        map[string]string     // Launch environment (NUM_SHARDS, NUM_GPUS, BATCH_SIZE, BASE_LR)
	InitMethod string                // Distributed init method URL, falls back to the app config
	OutputDir  string                // Driver output directory, defaults to "."
	Seed       int                   // RNG seed forwarded as an override when set
}

// Invocation is the fully assembled driver command, as DryRun reports it and
// Launch executes it.
type Invocation struct {
	Argv []string // Complete command line, interpreter first
	Env  []string // Environment additions in KEY=VALUE form
	Dir  string   // Working directory for the driver
}

func (launcher *Launcher) initMethod(spec LaunchSpec) string {
	if spec.InitMethod != "" {
		return spec.InitMethod
	}
	if launcher.Config != nil && launcher.Config.InitMethod != "" {
		return launcher.Config.InitMethod
	}
	return "tcp://localhost:9999"
}

func (launcher *Launcher) outputDir(spec LaunchSpec) string {
	if spec.OutputDir != "" {
		return spec.OutputDir
	}
	return "."
}

// defaultOverrides returns the workspace default overrides as an ordered list.
// Map iteration order is not stable, the argv tail must be.
func (launcher *Launcher) defaultOverrides() []experiment.Override {
	keys := make([]string, 0, len(launcher.Defaults))
	for key := range launcher.Defaults {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	overrides := make([]experiment.Override, 0, len(keys))
	for _, key := range keys {
		overrides = append(overrides, experiment.Override{Key: key, Value: launcher.Defaults[key]})
	}
	return overrides
}

// modeOverrides pins the driver's train/test switches for the requested mode.
// Explicit overrides for the same keys win.
func modeOverrides(mode domain.RunMode) []experiment.Override {
	if mode == domain.ModeTest {
		return []experiment.Override{
			{Key: "TRAIN.ENABLE", Value: "False"},
			{Key: "TEST.ENABLE", Value: "True"},
		}
	}
	return nil
}

// assembleOverrides merges workspace defaults, mode switches, and the spec's
// override tail, then appends the seed and output dir when not already set.
func (launcher *Launcher) assembleOverrides(spec LaunchSpec) []experiment.Override {
	merged := experiment.Merge(launcher.defaultOverrides(), modeOverrides(spec.Mode), spec.Overrides)
	if spec.Seed != 0 {
		merged = experiment.Merge(merged, []experiment.Override{{Key: "RNG_SEED", Value: fmt.Sprintf("%d", spec.Seed)}})
	}
	merged = experiment.Merge([]experiment.Override{{Key: "OUTPUT_DIR", Value: launcher.outputDir(spec)}}, merged)
	return merged
}

// resolveConfig returns the on-disk path of the base config, anchored at the
// driver dir for relative recipe paths.
func (launcher *Launcher) resolveConfig(configPath string) string {
	if filepath.IsAbs(configPath) {
		return configPath
	}
	if launcher.Config != nil && launcher.Config.DriverDir != "" {
		return filepath.Join(launcher.Config.DriverDir, configPath)
	}
	return configPath
}

// buildEnv assembles the environment additions: the spec's launch variables in
// sorted order, then PYTHONPATH extended with the configured framework dirs.
func (launcher *Launcher) buildEnv(spec LaunchSpec) []string {
	keys := make([]string, 0, len(spec.Env))
	for key := range spec.Env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	env := make([]string, 0, len(keys)+1)
	for _, key := range keys {
		env = append(env, fmt.Sprintf("%s=%s", key, spec.Env[key]))
	}
	pythonPath := []string{}
	if current := os.Getenv("PYTHONPATH"); current != "" {
		pythonPath = append(pythonPath, current)
	}
	if launcher.Config != nil {
		pythonPath = append(pythonPath, launcher.Config.PythonPath()...)
	}
	if len(pythonPath) > 0 {
		env = append(env, fmt.Sprintf("PYTHONPATH=%s", strings.Join(pythonPath, string(os.PathListSeparator))))
	}
	return env
}

// buildInvocation assembles the complete driver command for a spec and its
// effective override set.
func (launcher *Launcher) buildInvocation(spec LaunchSpec, overrides []experiment.Override) *Invocation {
	pythonBin := "python"
	driverDir := ""
	if launcher.Config != nil {
		if launcher.Config.PythonBin != "" {
			pythonBin = launcher.Config.PythonBin
		}
		driverDir = launcher.Config.DriverDir
	}
	argv := []string{
		pythonBin,
		driverScript,
		"--init_method", launcher.initMethod(spec),
		"--cfg", spec.Config,
	}
	argv = append(argv, experiment.Args(overrides)...)
	return &Invocation{
		Argv: argv,
		Env:  launcher.buildEnv(spec),
		Dir:  driverDir,
	}
}

// DryRun assembles and returns the driver command for a spec without running
// it: the command the replaced shell script would have executed. The override
// set still passes through the guard, but hooks do not run.
func (launcher *Launcher) DryRun(spec LaunchSpec) (*Invocation, error) {
	if spec.Config == "" {
		return nil, fmt.Errorf("launch spec names no base config")
	}
	overrides := launcher.assembleOverrides(spec)
	if err := launcher.Guard.Check(overrides); err != nil {
		return nil, fmt.Errorf("checking overrides : %w", err)
	}
	return launcher.buildInvocation(spec, overrides), nil
}

// Launch runs the driver for a spec: assemble and guard the override set, let
// hooks rewrite it, validate the effective config, record the run, execute the
// driver with its output streamed into the run store, and record the outcome.
// Cancelling the context kills the driver and marks the run canceled.
func (launcher *Launcher) Launch(ctx context.Context, spec LaunchSpec) (*domain.Run, error) {
	if launcher.Repo == nil {
		return nil, fmt.Errorf("launcher has no repository")
	}
	if spec.Config == "" {
		return nil, fmt.Errorf("launch spec names no base config")
	}
	overrides := launcher.assembleOverrides(spec)
	if err := launcher.Guard.Check(overrides); err != nil {
		return nil, fmt.Errorf("checking overrides : %w", err)
	}

	runID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating run id : %w", err)
	}
	run := &domain.Run{
		ID:         runID,
		Name:       spec.Name,
		Mode:       spec.Mode,
		Recipe:     spec.Config,
		Env:        spec.Env,
		InitMethod: launcher.initMethod(spec),
		OutputDir:  launcher.outputDir(spec),
		Seed:       spec.Seed,
		Status:     domain.RunPending,
		StartedAt:  time.Now(),
	}
	if run.Name == "" {
		run.Name = strings.TrimSuffix(filepath.Base(spec.Config), recipeSuffix)
	}
	if run.Mode == "" {
		run.Mode = domain.ModeTrain
	}

	// Hooks may rewrite the override set, so the guard runs again afterwards.
	overrides, err = launcher.runLaunchHooks(run, overrides)
	if err != nil {
		return nil, err
	}
	if err := launcher.Guard.Check(overrides); err != nil {
		return nil, fmt.Errorf("checking overrides after hooks : %w", err)
	}

	// Pre-flight: the effective config must load and validate before the
	// driver is started.
	cfg, err := experiment.Load(launcher.resolveConfig(spec.Config), overrides...)
	if err != nil {
		return nil, fmt.Errorf("loading effective config : %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating effective config : %w", err)
	}

	run.Overrides = make(map[string]string, len(overrides))
	for _, override := range overrides {
		run.Overrides[override.Key] = override.Value
	}
	if err := launcher.Repo.InsertRun(run); err != nil {
		return nil, fmt.Errorf("inserting run : %w", err)
	}
	launcher.notifyRun(run)

	invocation := launcher.buildInvocation(spec, overrides)
	launcher.WriteLog("INFO", fmt.Sprintf("Launching %s: %s", run.Name, strings.Join(invocation.Argv, " ")), core.LogWithRunID(run.ID))

	exitCode, runErr := launcher.supervise(ctx, run, invocation)

	finishedAt := time.Now()
	status := domain.RunCompleted
	switch {
	case ctx.Err() != nil:
		status = domain.RunCanceled
	case runErr != nil || exitCode != 0:
		status = domain.RunFailed
	}
	run.Status = status
	run.ExitCode = &exitCode
	run.FinishedAt = &finishedAt

	if err := launcher.Repo.FinishRun(run.ID, status, exitCode, finishedAt); err != nil {
		return run, fmt.Errorf("finishing run : %w", err)
	}
	if err := launcher.Repo.SealOutput(run.ID); err != nil {
		return run, fmt.Errorf("sealing run output : %w", err)
	}
	launcher.notifyRun(run)
	launcher.runFinishHooks(run)
	launcher.WriteLog("INFO", fmt.Sprintf("Run %s finished with status %s", run.Name, status), core.LogWithRunID(run.ID))

	if runErr != nil && status == domain.RunFailed {
		return run, fmt.Errorf("running driver : %w", runErr)
	}
	return run, nil
}

// supervise starts the driver process, streams its output into the run store,
// and waits for it to exit. It returns the driver exit code, -1 when the
// process never started.
func (launcher *Launcher) supervise(ctx context.Context, run *domain.Run, invocation *Invocation) (int, error) {
	cmd := exec.CommandContext(ctx, invocation.Argv[0], invocation.Argv[1:]...)
	cmd.Dir = invocation.Dir
	cmd.Env = append(os.Environ(), invocation.Env...)
	cmd.WaitDelay = 10 * time.Second
	configureDriverCommand(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		launcher.markStartFailure(run)
		return -1, fmt.Errorf("opening stdout pipe : %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		launcher.markStartFailure(run)
		return -1, fmt.Errorf("opening stderr pipe : %w", err)
	}

	if err := cmd.Start(); err != nil {
		launcher.markStartFailure(run)
		return -1, fmt.Errorf("starting driver : %w", err)
	}
	run.Status = domain.RunRunning
	if err := launcher.Repo.UpdateRunStatus(run.ID, domain.RunRunning); err != nil {
		launcher.Logger.Error("updating run status", "run", run.ID, "error", err)
	}
	launcher.notifyRun(run)

	var wg sync.WaitGroup
	wg.Add(2)
	go launcher.streamOutput(&wg, run.ID, "stdout", stdout)
	go launcher.streamOutput(&wg, run.ID, "stderr", stderr)
	wg.Wait()

	err = cmd.Wait()
	launcher.Flush()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), err
		}
		return -1, fmt.Errorf("waiting for driver : %w", err)
	}
	return 0, nil
}

func (launcher *Launcher) markStartFailure(run *domain.Run) {
	run.Status = domain.RunFailed
	if err := launcher.Repo.UpdateRunStatus(run.ID, domain.RunFailed); err != nil {
		launcher.Logger.Error("updating run status", "run", run.ID, "error", err)
	}
}

// streamOutput reads one driver stream line by line and queues each line on
// the write channel.
func (launcher *Launcher) streamOutput(wg *sync.WaitGroup, runID uuid.UUID, stream string, reader io.Reader) {
	defer wg.Done()
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		launcher.DBWriteChannel <- &domain.OutputLine{
			RunID:  runID,
			Stream: stream,
			Line:   scanner.Text(),
			At:     time.Now(),
		}
	}
	if err := scanner.Err(); err != nil {
		launcher.Logger.Error("reading driver output", "stream", stream, "error", err)
	}
}

// runLaunchHooks hands the run and its override set to every loaded hook's
// on_launch handler. A hook error aborts the launch.
func (launcher *Launcher) runLaunchHooks(run *domain.Run, overrides []experiment.Override) ([]experiment.Override, error) {
	if len(launcher.Hooks) == 0 {
		return overrides, nil
	}
	wrapped := hooks.NewOverrides(overrides)
	for _, hook := range launcher.Hooks {
		if err := hook.CallLaunchHandler(run, wrapped); err != nil {
			return nil, fmt.Errorf("running launch hook %s : %w", hook.Data.Name, err)
		}
	}
	return wrapped.Items(), nil
}

// runFinishHooks hands the finished run to every loaded hook's on_finish
// handler. Finish hooks cannot fail the run, errors are logged only.
func (launcher *Launcher) runFinishHooks(run *domain.Run) {
	for _, hook := range launcher.Hooks {
		if err := hook.CallFinishHandler(run); err != nil {
			launcher.Logger.Error("running finish hook", "hook", hook.Data.Name, "error", err)
		}
	}
}

func (launcher *Launcher) notifyRun(run *domain.Run) {
	if launcher.OnRun == nil {
		return
	}
	if err := launcher.OnRun(run); err != nil {
		launcher.Logger.Error("running run handler", "run", run.ID, "error", err)
	}
}
