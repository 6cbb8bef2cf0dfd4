//go:build unix

package showrunner

import (
	"os/exec"
	"syscall"
)

// configureDriverCommand puts the driver in its own process group and makes
// cancellation signal the whole group. The driver forks data-loader workers
// and per-GPU ranks; killing only the direct child would leave them running
// and holding the output pipes open.
func configureDriverCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
