// Package foreground implements the one-shot executor (spec.md §4.G): a
// thin specialization of the same allow-list/spawn machinery that never
// touches the log store, used by shell_execute's synchronous request/
// response contract.
package foreground

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shellrunner/shellrunner-server/internal/allowlist"
	"github.com/shellrunner/shellrunner-server/internal/env"
	"github.com/shellrunner/shellrunner-server/internal/shellcmd"
	"github.com/shellrunner/shellrunner-server/internal/shellerr"
	"github.com/shellrunner/shellrunner-server/internal/supervisor"
)

// Response is the ShellCommandResponse of spec.md §4.G.
type Response struct {
	Status        int
	Stdout        string
	Stderr        string
	Error         string
	ExecutionTime float64
	ReturnCode    int
	Directory     string
}

// Executor runs validated commands synchronously, bypassing the
// supervisor's drain/monitor pipeline in favor of direct pipe capture
// bounded by context.WithTimeout, per spec.md §4.G step 4.
type Executor struct {
	log  *zap.Logger
	cfg  *env.Config
	list *allowlist.List
}

func New(log *zap.Logger, cfg *env.Config) *Executor {
	return &Executor{log: log.Named("foreground"), cfg: cfg, list: allowlist.New(cfg.AllowCommands)}
}

// Params mirrors spec.md §4.G's execute(argv, directory, {...}) signature.
type Params struct {
	Argv           []string
	Directory      string
	Stdin          []byte
	Envs           []string
	Encoding       string
	TimeoutSeconds *float64
}

// Execute validates directory and argv, then runs the command (or
// pipeline) to completion or timeout, returning a fully populated
// Response. It never returns an error for an ordinary command failure —
// failure is reported through Response.Status/Error, matching the Python
// original's "always produce a report" contract; it only returns an error
// for caller misuse (e.g. a relative directory).
func (e *Executor) Execute(ctx context.Context, p Params) (Response, error) {
	resp := Response{Directory: p.Directory}

	if !filepath.IsAbs(p.Directory) {
		return resp, shellerr.Directory("directory must be an absolute path: %s", p.Directory)
	}
	if info, err := os.Stat(p.Directory); err != nil || !info.IsDir() {
		return resp, shellerr.Directory("directory does not exist: %s", p.Directory)
	}

	argv := shellcmd.CleanArgv(p.Argv)
	if len(argv) == 0 {
		return resp, shellerr.EmptyCommand("command is empty")
	}

	timeout, err := resolveTimeout(p.TimeoutSeconds)
	if err != nil {
		return resp, err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	out, rerr := e.run(ctx, argv, p, timeout)
	out.ExecutionTime = time.Since(start).Seconds()
	return out, rerr
}

// run dispatches to the pipeline path or the single-command (possibly
// redirected) path.
func (e *Executor) run(ctx context.Context, argv []string, p Params, timeout time.Duration) (Response, error) {
	resp := Response{Directory: p.Directory}

	if shellcmd.HasPipe(argv) {
		if err := e.list.ValidatePipeline(argv); err != nil {
			resp.Status = 1
			resp.Error = err.Error()
			return resp, nil
		}
		segments := shellcmd.SplitPipeCommands(argv)
		stdout, stderr, code, err := supervisor.ExecutePipeline(ctx, segments, p.Directory, p.Stdin)
		if ctx.Err() == context.DeadlineExceeded {
			return e.timedOut(p.Directory), nil
		}
		if err != nil {
			resp.Status = -1
			resp.Error = err.Error()
			return resp, nil
		}
		resp.Status = code
		resp.ReturnCode = code
		resp.Stdout = strings.TrimRight(stdout, "\n")
		resp.Stderr = strings.TrimRight(stderr, "\n")
		return resp, nil
	}

	bare, redirs, err := shellcmd.ParseRedirections(argv)
	if err != nil {
		resp.Status = 1
		resp.Error = err.Error()
		return resp, nil
	}
	for _, tok := range bare {
		if oerr := e.list.ValidateNoShellOperators(tok); oerr != nil {
			resp.Status = 1
			resp.Error = oerr.Error()
			return resp, nil
		}
	}
	if err := e.list.ValidateCommand(bare); err != nil {
		resp.Status = 1
		resp.Error = err.Error()
		return resp, nil
	}

	cmd := exec.CommandContext(ctx, bare[0], bare[1:]...)
	cmd.Dir = p.Directory
	cmd.Env = append(os.Environ(), p.Envs...)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	if len(p.Stdin) > 0 {
		cmd.Stdin = bytes.NewReader(p.Stdin)
	}

	files, ferr := openRedirections(p.Directory, redirs)
	if ferr != nil {
		resp.Status = 1
		resp.Error = ferr.Error()
		return resp, nil
	}
	defer closeAll(files)
	if len(files) > 0 {
		applyRedirections(cmd, redirs, files)
	}

	runErr := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return e.timedOut(p.Directory), nil
	}

	resp.Stdout = strings.TrimRight(outBuf.String(), "\n")
	resp.Stderr = strings.TrimRight(errBuf.String(), "\n")
	if runErr == nil {
		resp.Status = 0
		resp.ReturnCode = 0
		return resp, nil
	}
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		resp.Status = exitErr.ExitCode()
		resp.ReturnCode = exitErr.ExitCode()
		return resp, nil
	}
	resp.Status = -1
	resp.Error = runErr.Error()
	return resp, nil
}

func (e *Executor) timedOut(directory string) Response {
	return Response{Status: -1, Error: "timed out", Directory: directory}
}

func resolveTimeout(secs *float64) (time.Duration, error) {
	if secs == nil {
		return 0, nil
	}
	if *secs == 0 {
		return 0, shellerr.CommandValidation("timeout must not be zero")
	}
	if *secs < 0 {
		return 0, shellerr.CommandValidation("timeout must not be negative")
	}
	return time.Duration(*secs * float64(time.Second)), nil
}
