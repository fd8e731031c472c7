//go:build windows

package supervisor

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/shellrunner/shellrunner-server/internal/env"
)

// controllingShell resolves the Windows controlling shell: COMSPEC, then
// cfg.Comspec, then cmd.exe, invoked with /c (spec.md §E.2).
func controllingShell(cfg *env.Config) (shell string, args []string) {
	if cs := os.Getenv("COMSPEC"); cs != "" {
		return cs, []string{"/c"}
	}
	if cfg.Comspec != "" {
		return cfg.Comspec, []string{"/c"}
	}
	return "cmd.exe", []string{"/c"}
}

// applyProcessIsolation places the child in its own process group via
// CREATE_NEW_PROCESS_GROUP, the Windows analog of Setpgid: it lets the
// supervisor deliver CTRL_BREAK_EVENT to the child without affecting
// itself.
func applyProcessIsolation(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
