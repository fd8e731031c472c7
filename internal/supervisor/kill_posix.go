//go:build !windows

package supervisor

import (
	"os/exec"
	"syscall"
)

// pgroupKiller signals the entire process group the supervisor placed the
// child in (applyProcessIsolation set Setpgid), so a shell's grandchildren
// are reaped along with it — mirroring the teacher's terminate() in
// processmgr/process.go, which does the same group-wide kill(-pid, sig).
type pgroupKiller struct {
	pid int
}

func newPgroupKiller(cmd *exec.Cmd) killer {
	return &pgroupKiller{pid: cmd.Process.Pid}
}

func (k *pgroupKiller) terminate() error {
	return syscall.Kill(-k.pid, syscall.SIGTERM)
}

func (k *pgroupKiller) kill() error {
	return syscall.Kill(-k.pid, syscall.SIGKILL)
}
