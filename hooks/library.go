package hooks

import (
	"github.com/Shopify/go-lua"
	"github.com/google/uuid"

	"showrunner/core"
)

// registerShowrunnerLibrary registers the `showrunner` global library and its
// sub-libraries into the Lua state. This is the main entry point for exposing
// the launcher's functionality to hook scripts.
func registerShowrunnerLibrary(l *lua.State, service LauncherService) {
	funcs := []lua.RegistryFunction{
		// log writes a message to the launcher's log, attributed to the hook.
		//
		// @param message string The message to log.
		// @param level string (optional) The log level (e.g., "INFO", "WARN", "ERROR").
		// Defaults to "INFO".
		{Name: "log", Function: func(l *lua.State) int {
			message := lua.CheckString(l, 2)
			level := lua.OptString(l, 3, "INFO")
			if hookID := getHookID(l); hookID != uuid.Nil {
				if err := service.WriteLog(level, message, core.LogWithHookID(hookID)); err != nil {
					lua.Errorf(l, "writing log : %s", err.Error())
					return 0
				}
			} else {
				if err := service.WriteLog(level, message); err != nil {
					lua.Errorf(l, "writing log : %s", err.Error())
					return 0
				}
			}
			return 0
		}},
		// workspace returns the path to the launcher's workspace directory.
		//
		// @return string The workspace directory path.
		{Name: "workspace", Function: func(l *lua.State) int {
			workspace, err := service.GetWorkspaceDir()
			if err != nil {
				l.PushString("")
				return 1
			}
			l.PushString(workspace)
			return 1
		}},
	}

	lua.NewLibrary(l, funcs)
	l.SetGlobal("showrunner")

	registerSettingsLibrary(l, service)
	registerStringsLibrary(l)
	registerRandomLibrary(l)
	registerUtilsLibrary(l)
	registerJSONLibrary(l)
}
