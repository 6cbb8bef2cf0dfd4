package hooks

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"showrunner/domain"
	"showrunner/experiment"
)

type mockLauncherService struct {
	GetWorkspaceDirFunc func() (string, error)
	WriteLogFunc        func(level string, message string, options ...func(log *domain.Log) error) error
	GetHookRepoFunc     func() (domain.HookRepository, error)
}

func (m *mockLauncherService) GetWorkspaceDir() (string, error) {
	if m.GetWorkspaceDirFunc != nil {
		return m.GetWorkspaceDirFunc()
	}
	return "/tmp/showrunner-test", nil
}

func (m *mockLauncherService) WriteLog(level string, message string, options ...func(log *domain.Log) error) error {
	if m.WriteLogFunc != nil {
		return m.WriteLogFunc(level, message, options...)
	}
	return nil
}

func (m *mockLauncherService) GetHookRepo() (domain.HookRepository, error) {
	if m.GetHookRepoFunc != nil {
		return m.GetHookRepoFunc()
	}
	return nil, nil
}

type mockHookRepo struct {
	settingsStore map[uuid.UUID]map[string]any
	forceSetError bool
}

func (m *mockHookRepo) CreateHook(name, description, author, source string) (uuid.UUID, error) {
	return uuid.Nil, nil
}
func (m *mockHookRepo) GetHooks() ([]*domain.Hook, error)              { return nil, nil }
func (m *mockHookRepo) GetHook(name string) (*domain.Hook, error)      { return nil, nil }
func (m *mockHookRepo) UpdateHookSource(name, source string) error     { return nil }
func (m *mockHookRepo) SetHookEnabled(name string, enabled bool) error { return nil }
func (m *mockHookRepo) RemoveHook(name string) error                   { return nil }

func (m *mockHookRepo) GetHookSettings(id uuid.UUID) (map[string]any, error) {
	if settings, ok := m.settingsStore[id]; ok {
		return settings, nil
	}
	return make(map[string]any), nil
}

func (m *mockHookRepo) SetHookSettings(id uuid.UUID, settings map[string]any) error {
	if m.forceSetError {
		return errors.New("forced set error")
	}
	if m.settingsStore == nil {
		m.settingsStore = make(map[uuid.UUID]map[string]any)
	}
	m.settingsStore[id] = settings
	return nil
}

func testHookData(t *testing.T, luaCode string) *domain.Hook {
	t.Helper()

	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("generating uuid : %v", err)
	}
	return &domain.Hook{
		ID:     id,
		Name:   "test-hook",
		Source: luaCode,
	}
}

func testRun(t *testing.T) *domain.Run {
	t.Helper()

	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("generating uuid : %v", err)
	}
	return &domain.Run{
		ID:         id,
		Name:       "k400-b16-f8",
		Mode:       domain.ModeTrain,
		Recipe:     "exp/k400/config.yaml",
		Env:        map[string]string{"NUM_GPUS": "8"},
		InitMethod: "tcp://localhost:9999",
		OutputDir:  ".",
		Seed:       6666,
		Status:     domain.RunPending,
		StartedAt:  time.Now(),
	}
}

func parseTestOverrides(t *testing.T, args ...string) []experiment.Override {
	t.Helper()

	overrides, err := experiment.ParseOverrides(args)
	if err != nil {
		t.Fatalf("parsing overrides: %v", err)
	}
	return overrides
}

func setupTestHook(t *testing.T, luaCode string, options ...func(*Runtime) error) (*Runtime, *mockLauncherService) {
	t.Helper()

	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("generating uuid : %v", err)
	}
	hook := &domain.Hook{
		ID:     id,
		Name:   "test-hook",
		Source: luaCode,
	}
	runtime := &Runtime{Data: hook}

	mockService := &mockLauncherService{}

	err = runtime.PrepareState(mockService, options)
	if err != nil {
		t.Fatalf("preparing state: %v", err)
	}

	return runtime, mockService
}
