//go:build !windows && !linux

package supervisor

import (
	"os/exec"
	"syscall"
)

// applyProcessIsolation isolates the child into its own process group so
// the supervisor can signal it as a unit. Pdeathsig has no portable
// equivalent outside Linux, so it is omitted here.
func applyProcessIsolation(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
