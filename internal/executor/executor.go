// Package executor is the public façade (spec.md §4.F) wrapping
// internal/allowlist, internal/supervisor, and internal/logstore behind a
// single validated entry point, the way the teacher's service layer
// (services.ChannelService) sits in front of its repositories: validate
// inputs, delegate, translate errors into the stable taxonomy.
package executor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shellrunner/shellrunner-server/internal/allowlist"
	"github.com/shellrunner/shellrunner-server/internal/env"
	"github.com/shellrunner/shellrunner-server/internal/logstore"
	"github.com/shellrunner/shellrunner-server/internal/procrec"
	"github.com/shellrunner/shellrunner-server/internal/shellcmd"
	"github.com/shellrunner/shellrunner-server/internal/shellerr"
	"github.com/shellrunner/shellrunner-server/internal/supervisor"
)

// Executor is the single entry point callers outside this module use to
// start, inspect, and manage supervised shell commands.
type Executor struct {
	log  *zap.Logger
	cfg  *env.Config
	list *allowlist.List
	sup  *supervisor.Supervisor
}

// New wires an Executor from a resolved Config around the given
// Supervisor instance. internal/foreground does not use this instance; it
// only calls the package-level supervisor.ExecutePipeline.
func New(log *zap.Logger, cfg *env.Config, sup *supervisor.Supervisor) *Executor {
	return &Executor{
		log:  log.Named("executor"),
		cfg:  cfg,
		list: allowlist.New(cfg.AllowCommands),
		sup:  sup,
	}
}

// StartParams mirrors spec.md §6's shell_bg_start tool input. TimeoutSeconds
// is a pointer so the façade can distinguish "not provided" (nil, no
// timeout) from "explicitly zero" (rejected — spec.md §9).
type StartParams struct {
	Command        []string
	Directory      string
	Description    string
	Labels         []string
	Stdin          []byte
	Envs           []string
	Encoding       string
	TimeoutSeconds *float64
}

// AsyncExecute validates and spawns a background process, returning its
// pid immediately; the caller queries status/output via Get/GetOutput.
func (e *Executor) AsyncExecute(p StartParams) (int, error) {
	if p.Description == "" {
		return 0, shellerr.CommandValidation("description is required")
	}
	if err := e.validateDirectory(p.Directory); err != nil {
		return 0, err
	}
	argv, err := e.preprocess(p.Command)
	if err != nil {
		return 0, err
	}
	timeout, err := resolveTimeout(p.TimeoutSeconds)
	if err != nil {
		return 0, err
	}

	shellCmd := shellcmd.RenderShellString(argv)
	return e.sup.Start(supervisor.CreateParams{
		ShellCmd:    shellCmd,
		Directory:   p.Directory,
		Stdin:       p.Stdin,
		Envs:        p.Envs,
		Encoding:    e.resolveEncoding(p.Encoding),
		Timeout:     timeout,
		Description: p.Description,
		Labels:      p.Labels,
	})
}

// Execute is a blocking convenience over AsyncExecute + polling Get until
// the record reaches a terminal status, bounded by timeoutSeconds when
// given. Most callers wanting a one-shot run should prefer
// internal/foreground instead, which never touches the log store.
func (e *Executor) Execute(ctx context.Context, p StartParams) (procrec.Info, error) {
	pid, err := e.AsyncExecute(p)
	if err != nil {
		return procrec.Info{}, err
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		rec, ok := e.sup.Get(pid)
		if !ok {
			return procrec.Info{}, shellerr.NotFound("no such process: %d", pid)
		}
		if !rec.IsRunning() {
			return rec.Snapshot(), nil
		}
		select {
		case <-ctx.Done():
			return rec.Snapshot(), ctx.Err()
		case <-ticker.C:
		}
	}
}

// List, Get, Stop, GetOutput, FollowOutput, Clean are thin passthroughs to
// the Supervisor, kept on this façade so external callers never import
// internal/supervisor directly.

func (e *Executor) List(labels []string, status *procrec.Status) []procrec.Info {
	return e.sup.List(labels, status)
}

func (e *Executor) Get(pid int) (procrec.Info, error) {
	rec, ok := e.sup.Get(pid)
	if !ok {
		return procrec.Info{}, shellerr.NotFound("no such process: %d", pid)
	}
	return rec.Snapshot(), nil
}

func (e *Executor) Stop(pid int, force bool) (bool, error) {
	return e.sup.Stop(pid, force)
}

func (e *Executor) GetOutput(pid int, opts logstore.QueryOptions, stderr bool) ([]logstore.Entry, error) {
	return e.sup.GetOutput(pid, opts, stderr)
}

func (e *Executor) FollowOutput(ctx context.Context, pid int, opts logstore.QueryOptions, stderr bool, emit func(logstore.Entry)) error {
	return e.sup.FollowOutput(ctx, pid, opts, stderr, emit)
}

func (e *Executor) Clean(pid int) (bool, error) {
	return e.sup.CleanCompleted(pid)
}

// preprocess cleans argv and validates it against the allow-list, as a
// plain command or a pipeline depending on whether it contains "|".
func (e *Executor) preprocess(raw []string) ([]string, error) {
	argv := shellcmd.CleanArgv(raw)
	if len(argv) == 0 {
		return nil, shellerr.EmptyCommand("command is empty")
	}
	if shellcmd.HasPipe(argv) {
		if err := e.list.ValidatePipeline(argv); err != nil {
			return nil, err
		}
		return argv, nil
	}
	for _, tok := range argv {
		if err := e.list.ValidateNoShellOperators(tok); err != nil {
			return nil, err
		}
	}
	if err := e.list.ValidateCommand(argv); err != nil {
		return nil, err
	}
	return argv, nil
}

func (e *Executor) validateDirectory(dir string) error {
	if !filepath.IsAbs(dir) {
		return shellerr.Directory("directory must be an absolute path: %s", dir)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return shellerr.Directory("directory does not exist: %s", dir)
	}
	if !info.IsDir() {
		return shellerr.Directory("not a directory: %s", dir)
	}
	return nil
}

// resolveTimeout rejects an explicit zero (spec.md §9) while treating an
// absent value as "no timeout".
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

// resolveEncoding implements spec.md §4.F's three-step fallback: an
// explicit request, else DEFAULT_ENCODING, else a locale-derived guess
// from LANG/LC_ALL, else utf-8.
func (e *Executor) resolveEncoding(requested string) string {
	if requested != "" {
		return requested
	}
	if e.cfg.DefaultEncoding != "" && e.cfg.DefaultEncoding != "utf-8" {
		return e.cfg.DefaultEncoding
	}
	if loc := localeEncoding(); loc != "" {
		return loc
	}
	return "utf-8"
}

// localeEncoding extracts the encoding suffix from LC_ALL/LANG (e.g.
// "en_US.UTF-8" → "utf-8"), mirroring locale.getpreferredencoding() in
// the original Python implementation.
func localeEncoding() string {
	for _, key := range []string{"LC_ALL", "LANG"} {
		v := os.Getenv(key)
		if idx := strings.Index(v, "."); idx >= 0 && idx+1 < len(v) {
			return strings.ToLower(v[idx+1:])
		}
	}
	return ""
}
