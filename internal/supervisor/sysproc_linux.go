//go:build linux

package supervisor

import (
	"os/exec"
	"syscall"
)

// applyProcessIsolation isolates the child into its own process group
// (Setpgid) so the supervisor can signal it as a unit, and arranges for
// Pdeathsig to kill the child if the supervisor itself dies — the same
// pair of attributes as the teacher's processmgr/process.go newProcess().
func applyProcessIsolation(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
}
