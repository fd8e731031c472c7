package tooladapter

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shellrunner/shellrunner-server/internal/env"
	"github.com/shellrunner/shellrunner-server/internal/executor"
	"github.com/shellrunner/shellrunner-server/internal/foreground"
	"github.com/shellrunner/shellrunner-server/internal/logstore"
	"github.com/shellrunner/shellrunner-server/internal/supervisor"
)

// extractPid pulls the numeric value out of a "pid=<N> ..." line from
// shell_bg_list's rendered output.
func extractPid(line string) (int, bool) {
	idx := strings.Index(line, "pid=")
	if idx < 0 {
		return 0, false
	}
	rest := line[idx+len("pid="):]
	end := strings.IndexAny(rest, " \n")
	if end < 0 {
		end = len(rest)
	}
	n, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

func testAdapter(t *testing.T, allow ...string) *Adapter {
	t.Helper()
	cfg := &env.Config{AllowCommands: allow, Shell: "/bin/sh"}
	logs := logstore.NewManager(zap.NewNop(), t.TempDir(), "test")
	sup := supervisor.New(zap.NewNop(), cfg, logs)
	exec := executor.New(zap.NewNop(), cfg, sup)
	fg := foreground.New(zap.NewNop(), cfg)
	return New(exec, fg)
}

func TestToolsListsAllSevenHandlers(t *testing.T) {
	a := testAdapter(t)
	tools := a.Tools()
	require.Len(t, tools, 7)

	names := make(map[string]bool)
	for _, tl := range tools {
		names[tl.Name] = true
		assert.NotNil(t, tl.Schema)
		assert.NotNil(t, tl.Handler)
	}
	for _, want := range []string{
		"shell_execute", "shell_bg_start", "shell_bg_list",
		"shell_bg_stop", "shell_bg_logs", "shell_bg_clean", "shell_bg_detail",
	} {
		assert.True(t, names[want], "missing tool %s", want)
	}
}

func TestShellExecuteHandlerReportsOutput(t *testing.T) {
	a := testAdapter(t, "echo")
	out, err := a.shellExecute(context.Background(), map[string]any{
		"command":   []any{"echo", "hi"},
		"directory": t.TempDir(),
	})
	require.NoError(t, err)
	assert.Contains(t, out, "exit status: 0")
	assert.Contains(t, out, "hi")
}

func TestShellBgStartAndListAndDetail(t *testing.T) {
	a := testAdapter(t, "echo")
	dir := t.TempDir()

	startOut, err := a.shellBgStart(context.Background(), map[string]any{
		"command":     []any{"echo", "bg hello"},
		"directory":   dir,
		"description": "bg test",
	})
	require.NoError(t, err)
	assert.Contains(t, startOut, "started pid")

	// allow drain/monitor to settle
	var pid int
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		listOut, lerr := a.shellBgList(context.Background(), map[string]any{})
		require.NoError(t, lerr)
		if listOut != "no processes" {
			if n, ok := extractPid(listOut); ok && n > 0 {
				pid = n
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.Greater(t, pid, 0)

	detailOut, err := a.shellBgDetail(context.Background(), map[string]any{"pid": pid})
	require.NoError(t, err)
	assert.Contains(t, detailOut, "bg hello")
}

func TestShellBgStopAndClean(t *testing.T) {
	a := testAdapter(t, "sleep")
	pid, err := a.exec.AsyncExecute(asyncParams("sleep", t.TempDir()))
	require.NoError(t, err)

	stopOut, err := a.shellBgStop(context.Background(), map[string]any{"pid": float64(pid), "force": true})
	require.NoError(t, err)
	assert.Contains(t, stopOut, "stopped pid")

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		info, gerr := a.exec.Get(pid)
		require.NoError(t, gerr)
		if info.Status.IsTerminal() {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	cleanOut, err := a.shellBgClean(context.Background(), map[string]any{"pids": []any{float64(pid)}})
	require.NoError(t, err)
	assert.Contains(t, cleanOut, "cleaned")
}

func TestShellBgCleanReportsPerPidOutcomes(t *testing.T) {
	a := testAdapter(t, "sleep")

	runningPid, err := a.exec.AsyncExecute(asyncParams("sleep", t.TempDir()))
	require.NoError(t, err)

	out, err := a.shellBgClean(context.Background(), map[string]any{
		"pids": []any{float64(runningPid), float64(999999)},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "still running")
	assert.Contains(t, out, "not found")

	_, _ = a.exec.Stop(runningPid, true)
}

func TestShellBgCleanRequiresPids(t *testing.T) {
	a := testAdapter(t)
	_, err := a.shellBgClean(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestShellBgLogsHonorsSinceUntil(t *testing.T) {
	a := testAdapter(t, "echo")
	dir := t.TempDir()

	pid, err := a.exec.AsyncExecute(executor.StartParams{
		Command: []string{"echo", "logged line"}, Directory: dir, Description: "logs test",
	})
	require.NoError(t, err)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		info, gerr := a.exec.Get(pid)
		require.NoError(t, gerr)
		if info.Status.IsTerminal() {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	future := time.Now().Add(time.Hour).Format(time.RFC3339Nano)
	out, err := a.shellBgLogs(context.Background(), map[string]any{
		"pid": float64(pid), "with_stdout": true, "since": future,
	})
	require.NoError(t, err)
	assert.NotContains(t, out, "logged line")

	past := time.Now().Add(-time.Hour).Format(time.RFC3339Nano)
	out, err = a.shellBgLogs(context.Background(), map[string]any{
		"pid": float64(pid), "with_stdout": true, "since": past,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "logged line")
}

func TestShellBgLogsFollowSecondsDeliversLiveEntries(t *testing.T) {
	a := testAdapter(t, "sh")
	dir := t.TempDir()

	pid, err := a.exec.AsyncExecute(executor.StartParams{
		Command:     []string{"sh", "-c", "sleep 0.2; echo late"},
		Directory:   dir,
		Description: "follow test",
	})
	require.NoError(t, err)

	out, err := a.shellBgLogs(context.Background(), map[string]any{
		"pid": float64(pid), "with_stdout": true, "follow_seconds": float64(1),
	})
	require.NoError(t, err)
	assert.Contains(t, out, "late")
}

func TestTruncateAddsNotice(t *testing.T) {
	text := "a\nb\nc\nd"
	out := truncate(text, 2)
	assert.Contains(t, out, "a\nb")
	assert.Contains(t, out, "2 more lines truncated")
}

func TestTruncateNoOpWhenUnderLimit(t *testing.T) {
	assert.Equal(t, "a\nb", truncate("a\nb", 5))
	assert.Equal(t, "a\nb", truncate("a\nb", 0))
}

func asyncParams(cmd, dir string) executor.StartParams {
	return executor.StartParams{
		Command:     []string{cmd, "30"},
		Directory:   dir,
		Description: "test",
	}
}
