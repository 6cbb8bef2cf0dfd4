// Package hooks provides the Lua-based launch hook system for showrunner.
// It includes the sandboxed runtime for executing hook scripts and defines
// the Go functions and types exposed to the Lua environment, allowing hooks
// to inspect runs and rewrite the override set before the driver starts.
package hooks
