package hooks

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Shopify/go-lua"
	"github.com/google/uuid"

	"showrunner/domain"
)

// hookIDRegistryKey is the registry slot holding the current hook's UUID so
// library functions can attribute logs and settings without a closure per hook.
const hookIDRegistryKey = "showrunner_hook_id"

// Lifecycle function names looked up in the hook's global table.
const (
	LaunchFunction = "on_launch"
	FinishFunction = "on_finish"
)

// HookLog is a single line captured from a hook's print output.
type HookLog struct {
	Time time.Time // When the line was printed.
	Text string    // The printed text, arguments joined with tabs.
}

// LauncherService is the surface of the launcher that hooks are allowed to
// touch. Keeping it an interface lets the runtime be tested without a full
// launcher behind it.
type LauncherService interface {
	// GetWorkspaceDir returns the workspace directory path.
	GetWorkspaceDir() (string, error)

	// WriteLog writes a structured log entry through the launcher.
	WriteLog(level string, message string, options ...func(log *domain.Log) error) error

	// GetHookRepo returns the hook repository for settings access.
	GetHookRepo() (domain.HookRepository, error)
}

// Runtime holds a single hook's Lua state and its captured output.
type Runtime struct {
	Data     *domain.Hook        // The hook being executed.
	LuaState *lua.State          // The sandboxed Lua state.
	Logs     []HookLog           // Lines captured from print calls.
	OnLog    func(HookLog) error // Handler invoked for each captured line.
}

// HookWithLogHandler sets the handler invoked for each print line.
func HookWithLogHandler(handler func(log HookLog) error) func(*Runtime) error {
	return func(runtime *Runtime) error {
		if runtime.OnLog != nil {
			return errors.New("hook already has a log handler defined")
		}
		runtime.OnLog = handler
		return nil
	}
}

// PrepareState builds the sandboxed Lua state for the hook: safe standard
// libraries only, the showrunner library registered, the run and override
// types installed, and finally the hook source executed so its lifecycle
// functions become globals.
func (runtime *Runtime) PrepareState(service LauncherService, options []func(*Runtime) error) error {
	l := lua.NewState()
	runtime.LuaState = l

	openSandboxedLibraries(l)

	// Stash the hook ID in the registry for the library functions.
	l.PushString(runtime.Data.ID.String())
	l.SetField(lua.RegistryIndex, hookIDRegistryKey)

	registerShowrunnerLibrary(l, service)
	RegisterRunType(runtime)
	RegisterOverridesType(runtime)
	RegisterCustomPrint(runtime)

	for _, option := range options {
		if err := option(runtime); err != nil {
			return fmt.Errorf("applying option on hook %s : %w", runtime.Data.Name, err)
		}
	}

	if runtime.Data.Source != "" {
		if err := lua.DoString(l, runtime.Data.Source); err != nil {
			return fmt.Errorf("loading hook %s : %w", runtime.Data.Name, err)
		}
	}
	return nil
}

// openSandboxedLibraries loads the safe subset of the Lua standard library.
// os, io, package, debug and string are never opened; the loader family is
// removed from base.
func openSandboxedLibraries(l *lua.State) {
	for _, library := range []lua.RegistryFunction{
		{Name: "_G", Function: lua.BaseOpen},
		{Name: "math", Function: lua.MathOpen},
		{Name: "table", Function: lua.TableOpen},
		{Name: "bit32", Function: lua.Bit32Open},
	} {
		lua.Require(l, library.Name, library.Function, true)
		l.Pop(1)
	}

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "collectgarbage"} {
		l.PushNil()
		l.SetGlobal(name)
	}
}

// ExecuteLua runs a chunk of Lua code in the hook's state.
func (runtime *Runtime) ExecuteLua(code string) error {
	if err := lua.DoString(runtime.LuaState, code); err != nil {
		return fmt.Errorf("executing lua : %w", err)
	}
	return nil
}

// CheckGlobalFlag returns the value of a global boolean. Any non-boolean
// global, including a missing one, reads as false.
func (runtime *Runtime) CheckGlobalFlag(name string) bool {
	l := runtime.LuaState
	l.Global(name)
	defer l.Pop(1)

	if l.IsBoolean(-1) {
		return l.ToBoolean(-1)
	}
	return false
}

// CheckGlobalFunction reports whether a global with the given name is a function.
func (runtime *Runtime) CheckGlobalFunction(name string) bool {
	l := runtime.LuaState
	l.Global(name)
	defer l.Pop(1)

	return l.IsFunction(-1)
}

// GetGlobalString returns the value of a global string, erroring for globals
// of any other type.
func (runtime *Runtime) GetGlobalString(name string) (string, error) {
	l := runtime.LuaState
	l.Global(name)
	defer l.Pop(1)

	if l.TypeOf(-1) != lua.TypeString {
		return "", fmt.Errorf("global %s is not a string", name)
	}
	value, _ := l.ToString(-1)
	return value, nil
}

// CallLaunchHandler invokes the hook's on_launch function with the run and
// its mutable override set. A missing on_launch is not an error; a Lua error
// aborts the launch.
func (runtime *Runtime) CallLaunchHandler(run *domain.Run, overrides *Overrides) error {
	if !runtime.CheckGlobalFunction(LaunchFunction) {
		return nil
	}

	l := runtime.LuaState
	l.Global(LaunchFunction)
	l.PushUserData(run)
	lua.SetMetaTableNamed(l, "run")
	l.PushUserData(overrides)
	lua.SetMetaTableNamed(l, "overrides")

	if err := l.ProtectedCall(2, 0, 0); err != nil {
		return fmt.Errorf("calling %s on hook %s : %w", LaunchFunction, runtime.Data.Name, err)
	}
	return nil
}

// CallFinishHandler invokes the hook's on_finish function with the finished
// run. The run carries its terminal status and exit code at this point.
func (runtime *Runtime) CallFinishHandler(run *domain.Run) error {
	if !runtime.CheckGlobalFunction(FinishFunction) {
		return nil
	}

	l := runtime.LuaState
	l.Global(FinishFunction)
	l.PushUserData(run)
	lua.SetMetaTableNamed(l, "run")

	if err := l.ProtectedCall(1, 0, 0); err != nil {
		return fmt.Errorf("calling %s on hook %s : %w", FinishFunction, runtime.Data.Name, err)
	}
	return nil
}

// RegisterCustomPrint replaces the global print with one that appends to the
// runtime's log buffer and notifies the OnLog handler.
func RegisterCustomPrint(runtime *Runtime) {
	printFunc := func(l *lua.State) int {
		n := l.Top()
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			switch {
			case l.IsString(i):
				// Numbers coerce to strings here as well.
				parts = append(parts, lua.CheckString(l, i))
			case l.IsBoolean(i):
				parts = append(parts, strconv.FormatBool(l.ToBoolean(i)))
			case l.IsNil(i):
				parts = append(parts, "nil")
			default:
				if str, ok := lua.ToStringMeta(l, i); ok {
					parts = append(parts, str)
				} else {
					parts = append(parts, lua.TypeNameOf(l, i))
				}
			}
		}
		entry := HookLog{Time: time.Now(), Text: strings.Join(parts, "\t")}
		runtime.Logs = append(runtime.Logs, entry)
		if runtime.OnLog != nil {
			if err := runtime.OnLog(entry); err != nil {
				lua.Errorf(l, "handling print output : %s", err.Error())
				return 0
			}
		}
		return 0
	}
	runtime.LuaState.Register("print", printFunc)
}

// getHookID reads the current hook's UUID back out of the registry.
func getHookID(l *lua.State) uuid.UUID {
	l.Field(lua.RegistryIndex, hookIDRegistryKey)
	defer l.Pop(1)

	idString, ok := l.ToString(-1)
	if !ok {
		return uuid.Nil
	}
	id, err := uuid.Parse(idString)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// goValue converts the Lua value at index into its Go counterpart. Tables
// become slices or maps via parseTable; functions and threads become nil.
func goValue(l *lua.State, index int) any {
	switch l.TypeOf(index) {
	case lua.TypeString:
		value, _ := l.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := l.ToNumber(index)
		return value
	case lua.TypeBoolean:
		return l.ToBoolean(index)
	case lua.TypeTable:
		return parseTable(l, index)
	case lua.TypeUserData:
		return l.ToUserData(index)
	default:
		return nil
	}
}

// parseTable walks a Lua table. Tables keyed 1..n come back as a []any
// (including empty tables); anything else becomes a map[string]any with
// numeric keys stringified.
func parseTable(l *lua.State, index int) any {
	index = l.AbsIndex(index)

	entries := make(map[string]any)
	sequential := true
	count := 0

	l.PushNil()
	for l.Next(index) {
		value := goValue(l, -1)
		switch l.TypeOf(-2) {
		case lua.TypeNumber:
			key, _ := l.ToNumber(-2)
			entries[strconv.FormatFloat(key, 'f', -1, 64)] = value
		case lua.TypeString:
			key, _ := l.ToString(-2)
			entries[key] = value
			sequential = false
		default:
			sequential = false
		}
		count++
		l.Pop(1)
	}

	if sequential {
		slice := make([]any, 0, count)
		for i := 1; i <= count; i++ {
			value, ok := entries[strconv.Itoa(i)]
			if !ok {
				return entries
			}
			slice = append(slice, value)
		}
		return slice
	}
	return entries
}

// asMap casts a converted Lua value to a settings map. Empty Lua tables
// convert to []any, which counts as an empty map.
func asMap(value any) map[string]any {
	switch cast := value.(type) {
	case map[string]any:
		return cast
	case []any:
		if len(cast) == 0 {
			return map[string]any{}
		}
		return nil
	default:
		return nil
	}
}
