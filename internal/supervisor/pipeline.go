package supervisor

import (
	"bytes"
	"context"
	"os/exec"

	"golang.org/x/sync/errgroup"
)

// ExecutePipeline runs a chain of commands connected stdout→stdin, the
// way a shell pipeline would, without invoking a shell at all: each
// command's argv has already been allow-list validated independently
// (internal/allowlist.ValidatePipeline). The returned stdout is the last
// command's stdout; the returned stderr is every stage's stderr joined in
// stage order. The exit code is the last command's, or, when the last
// command succeeds, that of the first earlier stage that failed.
//
// Grounded on the teacher's channel_summary.go's use of
// golang.org/x/sync/errgroup to coordinate concurrent work and propagate
// the first error.
func ExecutePipeline(ctx context.Context, commands [][]string, directory string, stdin []byte) (stdout, stderr string, exitCode int, err error) {
	if len(commands) == 0 {
		return "", "", -1, nil
	}

	cmds := make([]*exec.Cmd, len(commands))
	for i, argv := range commands {
		c := exec.CommandContext(ctx, argv[0], argv[1:]...)
		c.Dir = directory
		cmds[i] = c
	}

	var stderrBufs = make([]bytes.Buffer, len(cmds))
	for i, c := range cmds {
		c.Stderr = &stderrBufs[i]
	}

	for i := 0; i < len(cmds)-1; i++ {
		pipe, perr := cmds[i].StdoutPipe()
		if perr != nil {
			return "", "", -1, perr
		}
		cmds[i+1].Stdin = pipe
	}

	var outBuf bytes.Buffer
	cmds[len(cmds)-1].Stdout = &outBuf
	if len(stdin) > 0 {
		cmds[0].Stdin = bytes.NewReader(stdin)
	}

	g, _ := errgroup.WithContext(ctx)
	for i := range cmds {
		c := cmds[i]
		if serr := c.Start(); serr != nil {
			return "", "", -1, serr
		}
		if i < len(cmds)-1 {
			g.Go(c.Wait)
		}
	}

	lastErr := cmds[len(cmds)-1].Wait()
	stageErr := g.Wait()

	for i := range stderrBufs {
		stderr += stderrBufs[i].String()
	}
	stdout = outBuf.String()

	if lastErr == nil {
		lastErr = stageErr
	}
	if lastErr == nil {
		return stdout, stderr, 0, nil
	}
	if exitErr, ok := lastErr.(*exec.ExitError); ok {
		return stdout, stderr, exitErr.ExitCode(), nil
	}
	return stdout, stderr, -1, lastErr
}
