package hooks

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Shopify/go-lua"
)

func TestRuntime_Sandbox(t *testing.T) {
	restrictedGlobals := []string{
		"os",
		"io",
		"dofile",
		"loadfile",
		"load",
		"loadstring",
		"require",
		"package",
		"debug",
		"collectgarbage",
		"string",
	}

	for _, global := range restrictedGlobals {
		t.Run(fmt.Sprintf("%s should be nil", global), func(t *testing.T) {
			hook, _ := setupTestHook(t, "")

			luaCode := fmt.Sprintf(`
				if %s == nil then return "nil" end
				return "exists"
			`, global)

			err := hook.ExecuteLua(luaCode)
			if err != nil {
				t.Fatalf("executing lua code %s : %v", luaCode, err)
			}

			val := goValue(hook.LuaState, -1)
			if val != "nil" {
				t.Errorf("\nwanted:\nnil\ngot:\n%v", val)
			}
		})
	}
}

func TestRuntime_LuaStandardLibraries(t *testing.T) {
	tests := []struct {
		name    string
		luaCode string
		want    any
	}{
		{
			name:    "math library should be available",
			luaCode: `return math.abs(-10)`,
			want:    10.0,
		},
		{
			name:    "table library should be available",
			luaCode: `local t = {1, 2, 3}; return table.concat(t, "-")`,
			want:    "1-2-3",
		},
		{
			name:    "bit32 library should be available",
			luaCode: `return bit32.band(10, 2)`,
			want:    2.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook, _ := setupTestHook(t, "")

			err := hook.ExecuteLua(tt.luaCode)
			if err != nil {
				t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
			}

			got := goValue(hook.LuaState, -1)
			if got != tt.want {
				t.Errorf("\nwanted:\n%v\ngot:\n%v", tt.want, got)
			}
		})
	}
}

func TestRuntime_ExecuteLua(t *testing.T) {
	t.Run("should execute valid lua code", func(t *testing.T) {
		hook, _ := setupTestHook(t, "")
		err := hook.ExecuteLua(`print("hello")`)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
	})

	t.Run("should return error on invalid lua code", func(t *testing.T) {
		hook, _ := setupTestHook(t, "")
		err := hook.ExecuteLua(`invalid syntax`)
		if err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}
	})

	t.Run("should return error for a hook source that fails to load", func(t *testing.T) {
		runtime := &Runtime{Data: testHookData(t, `this is not lua`)}
		err := runtime.PrepareState(&mockLauncherService{}, nil)
		if err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}
	})
}

func TestRuntime_CallLaunchHandler(t *testing.T) {
	t.Run("should let the hook rewrite the override set", func(t *testing.T) {
		luaCode := `
			function on_launch(run, overrides)
				overrides:set("RNG_SEED", "6666")
				overrides:remove("TRAIN.AUTO_RESUME")
			end
		`
		hook, _ := setupTestHook(t, luaCode)

		overrides := NewOverrides(parseTestOverrides(t,
			"TRAIN.BATCH_SIZE", "128",
			"TRAIN.AUTO_RESUME", "True",
		))

		err := hook.CallLaunchHandler(testRun(t), overrides)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		if value, ok := overrides.Get("RNG_SEED"); !ok || value != "6666" {
			t.Errorf("\nwanted:\n6666\ngot:\n%q", value)
		}
		if _, ok := overrides.Get("TRAIN.AUTO_RESUME"); ok {
			t.Errorf("\nwanted:\nkey removed\ngot:\nstill present")
		}
		if value, ok := overrides.Get("TRAIN.BATCH_SIZE"); !ok || value != "128" {
			t.Errorf("\nwanted:\n128\ngot:\n%q", value)
		}
	})

	t.Run("should expose run fields to the hook", func(t *testing.T) {
		luaCode := `
			function on_launch(run, overrides)
				print(run:Name(), run:Mode(), run:Seed())
			end
		`
		hook, _ := setupTestHook(t, luaCode)

		err := hook.CallLaunchHandler(testRun(t), NewOverrides(nil))
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		if len(hook.Logs) != 1 {
			t.Fatalf("\nwanted:\n1 log\ngot:\n%d", len(hook.Logs))
		}
		want := "k400-b16-f8\ttrain\t6666"
		if hook.Logs[0].Text != want {
			t.Errorf("\nwanted:\n%q\ngot:\n%q", want, hook.Logs[0].Text)
		}
	})

	t.Run("should treat a missing on_launch as a no-op", func(t *testing.T) {
		hook, _ := setupTestHook(t, "")

		err := hook.CallLaunchHandler(testRun(t), NewOverrides(nil))
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
	})

	t.Run("should return error if on_launch fails", func(t *testing.T) {
		luaCode := `
			function on_launch(run, overrides)
				error("forced error")
			end
		`
		hook, _ := setupTestHook(t, luaCode)

		err := hook.CallLaunchHandler(testRun(t), NewOverrides(nil))
		if err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}
	})
}

func TestRuntime_CallFinishHandler(t *testing.T) {
	t.Run("should expose the exit code to the hook", func(t *testing.T) {
		luaCode := `
			function on_finish(run)
				print(run:Status(), run:ExitCode())
			end
		`
		hook, _ := setupTestHook(t, luaCode)

		run := testRun(t)
		exitCode := 137
		run.Status = "failed"
		run.ExitCode = &exitCode

		err := hook.CallFinishHandler(run)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		if len(hook.Logs) != 1 {
			t.Fatalf("\nwanted:\n1 log\ngot:\n%d", len(hook.Logs))
		}
		want := "failed\t137"
		if hook.Logs[0].Text != want {
			t.Errorf("\nwanted:\n%q\ngot:\n%q", want, hook.Logs[0].Text)
		}
	})

	t.Run("should return error if on_finish fails", func(t *testing.T) {
		luaCode := `
			function on_finish(run)
				error("forced error")
			end
		`
		hook, _ := setupTestHook(t, luaCode)

		err := hook.CallFinishHandler(testRun(t))
		if err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}
	})
}

func TestRuntime_GlobalFunctions(t *testing.T) {
	luaCode := `
		my_bool_true = true
		my_bool_false = false
		my_string = "hello world"
		my_number = 123
		function my_func() return true end
	`
	hook, _ := setupTestHook(t, luaCode)

	t.Run("CheckGlobalFlag should only return true for boolean values", func(t *testing.T) {
		tests := []struct {
			globalName string
			want       bool
		}{
			{"my_bool_true", true},
			{"my_bool_false", false},
			{"my_string", false},
			{"non_existent", false},
			{"my_func", false},
		}

		for _, tt := range tests {
			got := hook.CheckGlobalFlag(tt.globalName)
			if got != tt.want {
				t.Errorf("\nwanted:\n%v = %t\ngot:\n%v", tt.globalName, tt.want, got)
			}
		}
	})

	t.Run("GetGlobalString should return string globals and error for non-strings", func(t *testing.T) {
		got, err := hook.GetGlobalString("my_string")
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if got != "hello world" {
			t.Errorf("\nwanted:\nhello world\ngot:\n%q", got)
		}

		if _, err := hook.GetGlobalString("my_bool_true"); err == nil {
			t.Errorf("\nwanted:\nerror\ngot:\nnil")
		}
		if _, err := hook.GetGlobalString("non_existent"); err == nil {
			t.Errorf("\nwanted:\nerror\ngot:\nnil")
		}
	})

	t.Run("CheckGlobalFunction should only return true for functions", func(t *testing.T) {
		tests := []struct {
			globalName string
			want       bool
		}{
			{"my_bool_true", false},
			{"my_string", false},
			{"non_existent", false},
			{"my_func", true},
		}

		for _, tt := range tests {
			got := hook.CheckGlobalFunction(tt.globalName)
			if got != tt.want {
				t.Errorf("\nwanted:\n%v = %t\ngot:\n%v", tt.globalName, tt.want, got)
			}
		}
	})
}

func TestRuntime_ShowrunnerModules(t *testing.T) {
	modules := []string{
		"showrunner.log",
		"showrunner.workspace",
		"showrunner.settings",
		"showrunner.strings",
		"showrunner.random",
	}

	for _, module := range modules {
		t.Run(fmt.Sprintf("%s should not be nil", module), func(t *testing.T) {
			hook, _ := setupTestHook(t, "")

			luaCode := fmt.Sprintf(`
				if %s == nil then return "nil" end
				return "exists"
			`, module)

			err := hook.ExecuteLua(luaCode)
			if err != nil {
				t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
			}

			val := goValue(hook.LuaState, -1)
			if val != "exists" {
				t.Errorf("\nwanted:\nexists\ngot:\n%v", val)
			}
		})
	}
}

func TestRuntime_CustomPrint(t *testing.T) {
	tests := []struct {
		name          string
		luaCode       string
		validatorFunc func(t *testing.T, got []HookLog)
	}{
		{
			name:    "basic strings and numbers should log with tabs",
			luaCode: `print("hello", "showrunner", 1234)`,
			validatorFunc: func(t *testing.T, got []HookLog) {
				want := "hello\tshowrunner\t1234"
				if len(got) != 1 {
					t.Fatalf("\nwanted:\n1 log\ngot:\n%d", len(got))
				}
				if want != got[0].Text {
					t.Errorf("\nwanted:\n%q\ngot:\n%q", want, got[0].Text)
				}
			},
		},
		{
			name:    "printing nil and boolean values should print their string forms",
			luaCode: `print(nil,true)`,
			validatorFunc: func(t *testing.T, got []HookLog) {
				want := "nil\ttrue"
				if len(got) != 1 {
					t.Fatalf("\nwanted:\n1 log\ngot:\n%d", len(got))
				}
				if want != got[0].Text {
					t.Errorf("\nwanted:\n%q\ngot:\n%q", want, got[0].Text)
				}
			},
		},
		{
			name: "calling print multiple times should append to the log slice",
			luaCode: `
				print("test-showrunner")
				print("test-2-showrunner")
			`,
			validatorFunc: func(t *testing.T, got []HookLog) {
				if len(got) != 2 {
					t.Fatalf("\nwanted:\n2 logs\ngot:\n%d", len(got))
				}
				if got[0].Text != "test-showrunner" {
					t.Errorf("\nwanted:\n%q\ngot:\n%q", "test-showrunner", got[0].Text)
				}
				if got[1].Text != "test-2-showrunner" {
					t.Errorf("\nwanted:\n%q\ngot:\n%q", "test-2-showrunner", got[1].Text)
				}
			},
		},
		{
			name: "print should add the correct timestamp",
			luaCode: `
				print("test-showrunner")
			`,
			validatorFunc: func(t *testing.T, got []HookLog) {
				if len(got) != 1 {
					t.Fatalf("\nwanted:\n1 log\ngot:\n%d", len(got))
				}

				diff := time.Now().Sub(got[0].Time)
				if diff < 0 || diff > 50*time.Millisecond {
					t.Fatalf("\nwanted:\nrecent timestamp\ngot:\n%v", got[0].Time)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook, _ := setupTestHook(t, "")
			onLogCalled := []HookLog{}

			hook.OnLog = func(entry HookLog) error {
				onLogCalled = append(onLogCalled, entry)
				return nil
			}
			err := hook.ExecuteLua(tt.luaCode)
			if err != nil {
				t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
			}

			if tt.validatorFunc != nil {
				tt.validatorFunc(t, hook.Logs)
			}
			if len(onLogCalled) != len(hook.Logs) {
				t.Fatalf("\nwanted:\n%d onLog calls\ngot:\n%d onLog calls", len(hook.Logs), len(onLogCalled))
			}
		})
	}
}

func TestRuntime_HelperFunctions(t *testing.T) {
	t.Run("goValue should convert primitive lua types correctly", func(t *testing.T) {
		hook, _ := setupTestHook(t, "")

		hook.LuaState.PushString("showrunner")
		hook.LuaState.PushNumber(123.45)
		hook.LuaState.PushBoolean(true)
		hook.LuaState.PushNil()
		hook.LuaState.PushGoFunction(func(l *lua.State) int {
			return 0
		})

		if val := goValue(hook.LuaState, -5); val != "showrunner" {
			t.Errorf("\nwanted:\nshowrunner\ngot:\n%v", val)
		}
		if val := goValue(hook.LuaState, -4); val != 123.45 {
			t.Errorf("\nwanted:\n123.45\ngot:\n%v", val)
		}
		if val := goValue(hook.LuaState, -3); val != true {
			t.Errorf("\nwanted:\ntrue\ngot:\n%v", val)
		}
		if val := goValue(hook.LuaState, -2); val != nil {
			t.Errorf("\nwanted:\nnil\ngot:\n%v", val)
		}
		if val := goValue(hook.LuaState, -1); val != nil {
			t.Errorf("\nwanted:\nnil\ngot:\n%v", val)
		}
	})

	t.Run("parseTable should return a slice for a lua array", func(t *testing.T) {
		hook, _ := setupTestHook(t, "")

		err := hook.ExecuteLua(`return {10, 20, 30}`)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		got := goValue(hook.LuaState, -1)
		want := []any{10.0, 20.0, 30.0}

		if !reflect.DeepEqual(want, got) {
			t.Errorf("\nwanted:\n%v\ngot:\n%v", want, got)
		}
	})

	t.Run("parseTable should return a map[string]any for a lua table", func(t *testing.T) {
		hook, _ := setupTestHook(t, "")

		err := hook.ExecuteLua(`return {key = "showrunner", ver = 1}`)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		got := goValue(hook.LuaState, -1)
		want := map[string]any{
			"key": "showrunner",
			"ver": 1.0,
		}

		if !reflect.DeepEqual(want, got) {
			t.Errorf("\nwanted:\n%v\ngot:\n%v", want, got)
		}
	})

	t.Run("parseTable should return a map for mixed tables", func(t *testing.T) {
		hook, _ := setupTestHook(t, "")

		err := hook.ExecuteLua(`return {10, key="showrunner"}`)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		got := goValue(hook.LuaState, -1)
		want := map[string]any{
			"1":   10.0,
			"key": "showrunner",
		}

		if !reflect.DeepEqual(want, got) {
			t.Errorf("\nwanted:\n%v\ngot:\n%v", want, got)
		}
	})

	t.Run("asMap should cast map[string]any to map[string]any", func(t *testing.T) {
		want := map[string]any{"a": 1}
		got := asMap(want)

		if !reflect.DeepEqual(want, got) {
			t.Errorf("\nwanted:\n%v\ngot:\n%v", want, got)
		}
	})

	t.Run("asMap should cast an empty slice to an empty map", func(t *testing.T) {
		got := asMap([]any{})

		if got == nil {
			t.Fatalf("\nwanted:\nempty map\ngot:\nnil")
		}
		if len(got) != 0 {
			t.Errorf("\nwanted:\n0\ngot:\n%d", len(got))
		}
	})

	t.Run("asMap should return nil for non empty slices", func(t *testing.T) {
		got := asMap([]any{1})

		if got != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%#v", got)
		}
	})

	t.Run("asMap should return nil for invalid types", func(t *testing.T) {
		got := asMap("showrunner-test")

		if got != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%#v", got)
		}
	})

	t.Run("getHookID should return correct UUID", func(t *testing.T) {
		hook, _ := setupTestHook(t, "")
		want := hook.Data.ID

		got := getHookID(hook.LuaState)

		if want != got {
			t.Errorf("\nwanted:\n%v\ngot:\n%v", want, got)
		}
	})
}

func TestHookWithLogHandler(t *testing.T) {
	t.Run("should set the log handler", func(t *testing.T) {
		handler := func(log HookLog) error { return nil }
		option := HookWithLogHandler(handler)
		hook := &Runtime{}
		err := option(hook)

		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if hook.OnLog == nil {
			t.Errorf("\nwanted:\nhandler set\ngot:\nnil")
		}
	})

	t.Run("should return error if log handler is already set", func(t *testing.T) {
		handler := func(log HookLog) error { return nil }
		option := HookWithLogHandler(handler)
		hook := &Runtime{
			OnLog: handler,
		}
		err := option(hook)
		if err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}
		if !strings.Contains(err.Error(), "already has a log handler") {
			t.Errorf("\nwanted:\nerror containing 'already has a log handler'\ngot:\n%v", err)
		}
	})
}
