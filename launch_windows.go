//go:build windows

package showrunner

import "os/exec"

// configureDriverCommand is a no-op on Windows, where process groups work
// differently; cancellation falls back to killing the direct child.
func configureDriverCommand(cmd *exec.Cmd) {}
