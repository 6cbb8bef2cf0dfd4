package hooks

import (
	"fmt"

	"github.com/Shopify/go-lua"
	"github.com/Shopify/goluago/util"

	"showrunner/domain"
	"showrunner/experiment"
)

// Overrides is the mutable override set handed to on_launch hooks. Hooks see
// and edit the same list the launcher will flatten into the driver argv, so
// an edit here changes the launch.
type Overrides struct {
	items []experiment.Override
}

// NewOverrides wraps an override list for hook access. The slice is copied so
// a hook error leaves the caller's list untouched.
func NewOverrides(items []experiment.Override) *Overrides {
	copied := make([]experiment.Override, len(items))
	copy(copied, items)
	return &Overrides{items: copied}
}

// Items returns the current override list in order.
func (o *Overrides) Items() []experiment.Override {
	return o.items
}

// Get returns the raw value for a key and whether the key is present.
func (o *Overrides) Get(key string) (string, bool) {
	for _, override := range o.items {
		if override.Key == key {
			return override.Value, true
		}
	}
	return "", false
}

// Set replaces the value of an existing key or appends a new override.
func (o *Overrides) Set(key, value string) {
	for index, override := range o.items {
		if override.Key == key {
			o.items[index].Value = value
			return
		}
	}
	o.items = append(o.items, experiment.Override{Key: key, Value: value})
}

// Remove drops a key from the set. It reports whether the key was present.
func (o *Overrides) Remove(key string) bool {
	for index, override := range o.items {
		if override.Key == key {
			o.items = append(o.items[:index], o.items[index+1:]...)
			return true
		}
	}
	return false
}

// RegisterType creates a new metatable in the Lua state and associates it with a name.
// It registers a set of functions as methods for the type and a `__tostring` metamethod.
// This is a generic helper for exposing Go types to Lua.
func RegisterType(l *lua.State, name string, functions map[string]lua.Function, toString func(l *lua.State) int) {
	lua.NewMetaTable(l, name)
	l.PushGoFunction(FunctionIndex(functions))
	l.SetField(-2, "__index")
	l.PushGoFunction(toString)
	l.SetField(-2, "__tostring")
	l.Pop(1)
}

// FunctionIndex returns a Lua function that acts as an `__index` metamethod.
// It looks up a field name in the provided functions map and pushes the corresponding
// function onto the stack if found.
func FunctionIndex(functions map[string]lua.Function) func(l *lua.State) int {
	return func(l *lua.State) int {
		field := lua.CheckString(l, 2)
		if function, ok := functions[field]; ok {
			l.PushGoFunction(function)
		} else {
			l.PushNil()
		}
		return 1
	}
}

// RegisterRunType registers the run type and its accessors with the Lua
// state. Runs are read-only from Lua; only the override set is mutable.
func RegisterRunType(runtime *Runtime) {
	funcs := make(map[string]lua.Function)
	funcs["ID"] = func(l *lua.State) int {
		if run, ok := l.ToUserData(1).(*domain.Run); ok {
			l.PushString(run.ID.String())
			return 1
		}
		return 0
	}
	funcs["Name"] = func(l *lua.State) int {
		if run, ok := l.ToUserData(1).(*domain.Run); ok {
			l.PushString(run.Name)
			return 1
		}
		return 0
	}
	funcs["Mode"] = func(l *lua.State) int {
		if run, ok := l.ToUserData(1).(*domain.Run); ok {
			l.PushString(string(run.Mode))
			return 1
		}
		return 0
	}
	funcs["Recipe"] = func(l *lua.State) int {
		if run, ok := l.ToUserData(1).(*domain.Run); ok {
			l.PushString(run.Recipe)
			return 1
		}
		return 0
	}
	funcs["Status"] = func(l *lua.State) int {
		if run, ok := l.ToUserData(1).(*domain.Run); ok {
			l.PushString(string(run.Status))
			return 1
		}
		return 0
	}
	funcs["Seed"] = func(l *lua.State) int {
		if run, ok := l.ToUserData(1).(*domain.Run); ok {
			l.PushInteger(run.Seed)
			return 1
		}
		return 0
	}
	funcs["InitMethod"] = func(l *lua.State) int {
		if run, ok := l.ToUserData(1).(*domain.Run); ok {
			l.PushString(run.InitMethod)
			return 1
		}
		return 0
	}
	funcs["OutputDir"] = func(l *lua.State) int {
		if run, ok := l.ToUserData(1).(*domain.Run); ok {
			l.PushString(run.OutputDir)
			return 1
		}
		return 0
	}
	funcs["ExitCode"] = func(l *lua.State) int {
		if run, ok := l.ToUserData(1).(*domain.Run); ok {
			if run.ExitCode == nil {
				l.PushNil()
				return 1
			}
			l.PushInteger(*run.ExitCode)
			return 1
		}
		return 0
	}
	funcs["Env"] = func(l *lua.State) int {
		if run, ok := l.ToUserData(1).(*domain.Run); ok {
			util.DeepPush(l, run.Env)
			return 1
		}
		return 0
	}

	RegisterType(runtime.LuaState, "run", funcs, func(l *lua.State) int {
		run, ok := l.ToUserData(1).(*domain.Run)
		if !ok {
			l.PushString("Invalid Run")
			return 1
		}
		result := fmt.Sprintf("Run { ID: %s, Name: %s, Mode: %s, Status: %s }",
			run.ID, run.Name, run.Mode, run.Status)
		l.PushString(result)
		return 1
	})
}

// RegisterOverridesType registers the overrides type and its methods with the
// Lua state.
func RegisterOverridesType(runtime *Runtime) {
	funcs := make(map[string]lua.Function)
	funcs["get"] = func(l *lua.State) int {
		if overrides, ok := l.ToUserData(1).(*Overrides); ok {
			key := lua.CheckString(l, 2)
			if value, found := overrides.Get(key); found {
				l.PushString(value)
				return 1
			}
			l.PushNil()
			return 1
		}
		return 0
	}
	funcs["set"] = func(l *lua.State) int {
		if overrides, ok := l.ToUserData(1).(*Overrides); ok {
			key := lua.CheckString(l, 2)
			value := lua.CheckString(l, 3)
			overrides.Set(key, value)
		}
		return 0
	}
	funcs["remove"] = func(l *lua.State) int {
		if overrides, ok := l.ToUserData(1).(*Overrides); ok {
			key := lua.CheckString(l, 2)
			l.PushBoolean(overrides.Remove(key))
			return 1
		}
		return 0
	}
	funcs["has"] = func(l *lua.State) int {
		if overrides, ok := l.ToUserData(1).(*Overrides); ok {
			key := lua.CheckString(l, 2)
			_, found := overrides.Get(key)
			l.PushBoolean(found)
			return 1
		}
		return 0
	}
	funcs["len"] = func(l *lua.State) int {
		if overrides, ok := l.ToUserData(1).(*Overrides); ok {
			l.PushInteger(len(overrides.items))
			return 1
		}
		return 0
	}
	funcs["all"] = func(l *lua.State) int {
		if overrides, ok := l.ToUserData(1).(*Overrides); ok {
			table := make(map[string]string, len(overrides.items))
			for _, override := range overrides.items {
				table[override.Key] = override.Value
			}
			util.DeepPush(l, table)
			return 1
		}
		return 0
	}

	RegisterType(runtime.LuaState, "overrides", funcs, func(l *lua.State) int {
		overrides, ok := l.ToUserData(1).(*Overrides)
		if !ok {
			l.PushString("Invalid Overrides")
			return 1
		}
		result := fmt.Sprintf("Overrides { Keys: %d }", len(overrides.items))
		l.PushString(result)
		return 1
	})
}
