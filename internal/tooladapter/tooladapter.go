// Package tooladapter exposes the executor/foreground façades as a table
// of named tool handlers, the shape an RPC/tool-dispatch layer external to
// this module expects (spec.md §6, §9's explicit move away from
// inheritance-based handler classes toward a flat table of
// {Name, Schema, Handler}).
package tooladapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shellrunner/shellrunner-server/internal/executor"
	"github.com/shellrunner/shellrunner-server/internal/foreground"
	"github.com/shellrunner/shellrunner-server/internal/logstore"
	"github.com/shellrunner/shellrunner-server/internal/procrec"
	"github.com/shellrunner/shellrunner-server/internal/shellerr"
)

// Handler processes one call's argument bag and returns the report text
// the caller surfaces verbatim.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// ToolSpec is one entry of the tool table.
type ToolSpec struct {
	Name    string
	Schema  map[string]any
	Handler Handler
}

// Adapter wires the tool table against one executor/foreground pair.
type Adapter struct {
	exec *executor.Executor
	fg   *foreground.Executor
}

func New(exec *executor.Executor, fg *foreground.Executor) *Adapter {
	return &Adapter{exec: exec, fg: fg}
}

// Tools returns the full table, ready to register with an external
// dispatcher.
func (a *Adapter) Tools() []ToolSpec {
	return []ToolSpec{
		{Name: "shell_execute", Schema: shellExecuteSchema, Handler: a.shellExecute},
		{Name: "shell_bg_start", Schema: shellBgStartSchema, Handler: a.shellBgStart},
		{Name: "shell_bg_list", Schema: shellBgListSchema, Handler: a.shellBgList},
		{Name: "shell_bg_stop", Schema: shellBgStopSchema, Handler: a.shellBgStop},
		{Name: "shell_bg_logs", Schema: shellBgLogsSchema, Handler: a.shellBgLogs},
		{Name: "shell_bg_clean", Schema: shellBgCleanSchema, Handler: a.shellBgClean},
		{Name: "shell_bg_detail", Schema: shellBgDetailSchema, Handler: a.shellBgDetail},
	}
}

func (a *Adapter) shellExecute(ctx context.Context, args map[string]any) (string, error) {
	p := foreground.Params{
		Argv:           stringSlice(args["command"]),
		Directory:      stringArg(args, "directory"),
		Stdin:          []byte(stringArg(args, "stdin")),
		Envs:           stringSlice(args["envs"]),
		Encoding:       stringArg(args, "encoding"),
		TimeoutSeconds: floatPtrArg(args, "timeout"),
	}
	resp, err := a.fg.Execute(ctx, p)
	if err != nil {
		return "", err
	}

	limit := intArg(args, "limit_lines", 0)
	var b strings.Builder
	fmt.Fprintf(&b, "exit status: %d\n", resp.Status)
	if resp.Error != "" {
		fmt.Fprintf(&b, "error: %s\n", resp.Error)
	}
	fmt.Fprintf(&b, "execution time: %.3fs\n", resp.ExecutionTime)
	b.WriteString("--- stdout ---\n")
	b.WriteString(truncate(resp.Stdout, limit))
	b.WriteString("\n--- stderr ---\n")
	b.WriteString(truncate(resp.Stderr, limit))
	return b.String(), nil
}

func (a *Adapter) shellBgStart(_ context.Context, args map[string]any) (string, error) {
	p := executor.StartParams{
		Command:        stringSlice(args["command"]),
		Directory:      stringArg(args, "directory"),
		Description:    stringArg(args, "description"),
		Labels:         stringSlice(args["labels"]),
		Stdin:          []byte(stringArg(args, "stdin")),
		Envs:           stringSlice(args["envs"]),
		Encoding:       stringArg(args, "encoding"),
		TimeoutSeconds: floatPtrArg(args, "timeout"),
	}
	pid, err := a.exec.AsyncExecute(p)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("started pid %d", pid), nil
}

func (a *Adapter) shellBgList(_ context.Context, args map[string]any) (string, error) {
	labels := stringSlice(args["labels"])
	var status *procrec.Status
	if s := stringArg(args, "status"); s != "" {
		st := procrec.Status(s)
		status = &st
	}
	infos := a.exec.List(labels, status)
	if len(infos) == 0 {
		return "no processes", nil
	}
	var b strings.Builder
	for _, info := range infos {
		fmt.Fprintf(&b, "pid=%d status=%s description=%q\n", info.Pid, info.Status, info.Description)
	}
	return b.String(), nil
}

func (a *Adapter) shellBgStop(_ context.Context, args map[string]any) (string, error) {
	pid := intArg(args, "pid", 0)
	force := boolArg(args, "force")
	ok, err := a.exec.Stop(pid, force)
	if err != nil {
		return "", err
	}
	if ok {
		return fmt.Sprintf("stopped pid %d", pid), nil
	}
	return fmt.Sprintf("pid %d survived the stop escalation and is still running", pid), nil
}

// shellBgLogs does not honor time_prefix_format: the original's strftime
// pattern has no direct Go time.Format equivalent, so prefixed lines
// always use RFC3339Nano regardless of what the caller passes.
func (a *Adapter) shellBgLogs(ctx context.Context, args map[string]any) (string, error) {
	pid := intArg(args, "pid", 0)
	opts := queryOptions(args)
	limit := intArg(args, "limit_lines", 0)
	followSeconds := floatArg(args, "follow_seconds", 0)
	timePrefix := boolArgDefault(args, "add_time_prefix", true)

	var b strings.Builder
	if boolArg(args, "with_stdout") || !boolArg(args, "with_stderr") {
		entries, err := a.fetchLogs(ctx, pid, opts, false, followSeconds)
		if err != nil {
			return "", err
		}
		b.WriteString("--- stdout ---\n")
		b.WriteString(renderEntries(entries, limit, timePrefix))
	}
	if boolArg(args, "with_stderr") {
		entries, err := a.fetchLogs(ctx, pid, opts, true, followSeconds)
		if err != nil {
			return "", err
		}
		b.WriteString("\n--- stderr ---\n")
		b.WriteString(renderEntries(entries, limit, timePrefix))
	}
	return b.String(), nil
}

// fetchLogs returns the matching backlog, or, when followSeconds is
// positive, subscribes via FollowOutput for that long and returns
// whatever arrives (backlog first, then live) — spec.md §6's
// follow_seconds parameter.
func (a *Adapter) fetchLogs(ctx context.Context, pid int, opts logstore.QueryOptions, stderr bool, followSeconds float64) ([]logstore.Entry, error) {
	if followSeconds <= 0 {
		return a.exec.GetOutput(pid, opts, stderr)
	}

	fctx, cancel := context.WithTimeout(ctx, time.Duration(followSeconds*float64(time.Second)))
	defer cancel()

	var entries []logstore.Entry
	err := a.exec.FollowOutput(fctx, pid, opts, stderr, func(e logstore.Entry) {
		entries = append(entries, e)
	})
	if err != nil && fctx.Err() == nil {
		return nil, err
	}
	return entries, nil
}

// shellBgClean reports a per-pid outcome line rather than failing the
// whole call on the first error, since a batch of pids will often mix
// cleanable, still-running, and unknown ones (spec.md §6).
func (a *Adapter) shellBgClean(_ context.Context, args map[string]any) (string, error) {
	pids := intSlice(args["pids"])
	if len(pids) == 0 {
		return "", shellerr.CommandValidation("pids is required")
	}

	var b strings.Builder
	for _, pid := range pids {
		ok, err := a.exec.Clean(pid)
		switch {
		case err == nil && ok:
			fmt.Fprintf(&b, "pid %d: cleaned\n", pid)
		case shellerr.Is(err, shellerr.KindNotFound):
			fmt.Fprintf(&b, "pid %d: not found\n", pid)
		case shellerr.Is(err, shellerr.KindIllegalState):
			fmt.Fprintf(&b, "pid %d: still running\n", pid)
		case err != nil:
			fmt.Fprintf(&b, "pid %d: error: %s\n", pid, err)
		default:
			fmt.Fprintf(&b, "pid %d: not cleaned\n", pid)
		}
	}
	return b.String(), nil
}

// shellBgDetail is the supplemented tool (spec.md §6 names it but gives
// no dedicated schema): a single-pid snapshot of ProcessInfo plus a
// bounded tail of both log streams, formatted the way shell_bg_logs
// formats its sections.
func (a *Adapter) shellBgDetail(_ context.Context, args map[string]any) (string, error) {
	pid := intArg(args, "pid", 0)
	info, err := a.exec.Get(pid)
	if err != nil {
		return "", err
	}

	limit := intArg(args, "limit_lines", 50)
	opts := logstore.QueryOptions{Tail: limit}

	stdout, err := a.exec.GetOutput(pid, opts, false)
	if err != nil {
		return "", err
	}
	stderr, err := a.exec.GetOutput(pid, opts, true)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "pid=%d status=%s description=%q exit_code=%d\n", info.Pid, info.Status, info.Description, info.ExitCode)
	fmt.Fprintf(&b, "directory=%s shell_cmd=%s\n", info.Directory, info.ShellCmd)
	b.WriteString("--- stdout (tail) ---\n")
	b.WriteString(renderEntries(stdout, 0, false))
	b.WriteString("\n--- stderr (tail) ---\n")
	b.WriteString(renderEntries(stderr, 0, false))
	return b.String(), nil
}

// renderEntries formats log entries one per line, optionally prefixing
// each with its RFC3339 timestamp (spec.md §6's add_time_prefix), then
// applying a limit-lines truncation notice identical to shellExecute's.
func renderEntries(entries []logstore.Entry, limit int, timePrefix bool) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		if timePrefix {
			lines[i] = fmt.Sprintf("[%s] %s", e.Timestamp.Format(time.RFC3339Nano), e.Text)
		} else {
			lines[i] = e.Text
		}
	}
	return truncate(strings.Join(lines, "\n"), limit)
}

// truncate caps text to limit lines (0 = unbounded), appending an
// explicit marker naming how many lines were dropped — spec.md §6's
// "explicit truncation notice" requirement.
func truncate(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) <= limit {
		return text
	}
	dropped := len(lines) - limit
	kept := strings.Join(lines[:limit], "\n")
	return fmt.Sprintf("%s\n... %d more lines truncated ...", kept, dropped)
}

// queryOptions wires tail/since/until straight through to the log
// store's query window (spec.md §6's shell_bg_logs argument schema).
// since/until are accepted as RFC3339 timestamps, the same format the
// HTTP dashboard's output endpoint uses.
func queryOptions(args map[string]any) logstore.QueryOptions {
	opts := logstore.QueryOptions{Tail: intArg(args, "tail", 0)}
	if s := stringArg(args, "since"); s != "" {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			opts.Since = &t
		}
	}
	if s := stringArg(args, "until"); s != "" {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			opts.Until = &t
		}
	}
	return opts
}
