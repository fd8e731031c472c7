package supervisor

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/shellrunner/shellrunner-server/internal/env"
)

// renderShellInvocation builds the full argv used to launch shellCmd under
// the controlling shell, per spec.md §E.2: on Windows, COMSPEC or cmd.exe,
// invoked with /c; on POSIX, the login shell or $SHELL or /bin/sh, invoked
// with -i -c and the rendered string.
func renderShellInvocation(cfg *env.Config, shellCmd string) []string {
	shell, args := controllingShell(cfg)
	return append(append([]string{shell}, args...), shellCmd)
}

// spawnPipes prepares stdin/stdout/stderr pipes for an *exec.Cmd built from
// argv, sets the working directory and environment overlay, and applies
// platform process-isolation attributes (see sysproc_*.go). It performs
// atomic pipe allocation: if any pipe fails, all previously-created pipes
// are closed — the same discipline as the teacher's processmgr.pipes().
func spawnPipes(argv []string, directory string, envs []string) (cmd *exec.Cmd, stdout, stderr io.ReadCloser, stdin io.WriteCloser, err error) {
	cmd = exec.Command(argv[0], argv[1:]...)
	cmd.Dir = directory
	cmd.Env = append(os.Environ(), envs...)
	applyProcessIsolation(cmd)

	stdout, err = cmd.StdoutPipe()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err = cmd.StderrPipe()
	if err != nil {
		_ = stdout.Close()
		return nil, nil, nil, nil, fmt.Errorf("stderr pipe: %w", err)
	}
	stdin, err = cmd.StdinPipe()
	if err != nil {
		_ = stdout.Close()
		_ = stderr.Close()
		return nil, nil, nil, nil, fmt.Errorf("stdin pipe: %w", err)
	}

	return cmd, stdout, stderr, stdin, nil
}
