// Package procrec implements the Process Record (spec.md §3/§4.D): the
// central entity binding a child process to its logs, status, timing, and
// labels. Record is a data container; spawning, draining, and monitoring
// are the Process Supervisor's job (internal/supervisor).
package procrec

import (
	"sync"
	"time"

	"github.com/shellrunner/shellrunner-server/internal/logstore"
)

// Params configures a new Record at creation time.
type Params struct {
	Pid         int
	ShellCmd    string
	Directory   string
	Envs        []string
	Encoding    string
	Description string
	Labels      []string
	Timeout     time.Duration // 0 = no timeout
}

// Record is the central entity of spec.md §3. All mutable fields are
// guarded by mu; Snapshot takes an RLock to produce an immutable
// ProcessInfo projection.
type Record struct {
	mu sync.RWMutex

	pid         int
	shellCmd    string
	directory   string
	envs        []string
	encoding    string
	description string
	labels      map[string]struct{}
	timeout     time.Duration

	startTime time.Time
	endTime   time.Time
	exitCode  int
	status    Status

	stdoutLog *logstore.Stream
	stderrLog *logstore.Stream

	cleanupScheduled bool
}

// New constructs a Record in the running state with start_time = now().
func New(p Params, logs *logstore.Pair) *Record {
	labels := make(map[string]struct{}, len(p.Labels))
	for _, l := range p.Labels {
		labels[l] = struct{}{}
	}
	return &Record{
		pid:         p.Pid,
		shellCmd:    p.ShellCmd,
		directory:   p.Directory,
		envs:        p.Envs,
		encoding:    p.Encoding,
		description: p.Description,
		labels:      labels,
		timeout:     p.Timeout,
		startTime:   time.Now(),
		exitCode:    0,
		status:      StatusRunning,
		stdoutLog:   logs.Stdout,
		stderrLog:   logs.Stderr,
	}
}

func (r *Record) Pid() int { return r.pid }

// AddOutput appends a stdout line.
func (r *Record) AddOutput(line string) error { return r.stdoutLog.Append(line) }

// AddError appends a stderr line.
func (r *Record) AddError(line string) error { return r.stderrLog.Append(line) }

// AddOutputBatch appends a batch of stdout lines sharing one timestamp.
func (r *Record) AddOutputBatch(lines []string) error { return r.stdoutLog.AppendBatch(lines) }

// AddErrorBatch appends a batch of stderr lines sharing one timestamp.
func (r *Record) AddErrorBatch(lines []string) error { return r.stderrLog.AppendBatch(lines) }

// StdoutLog/StderrLog expose the underlying streams for querying.
func (r *Record) StdoutLog() *logstore.Stream {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stdoutLog
}
func (r *Record) StderrLog() *logstore.Stream {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stderrLog
}

// IsRunning reports whether status is still "running".
func (r *Record) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status == StatusRunning
}

// Status returns the current status.
func (r *Record) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// HasLabel reports whether the record carries the given label.
func (r *Record) HasLabel(label string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.labels[label]
	return ok
}

// HasAnyLabel reports whether the record shares at least one label with
// filter (spec.md §4.E List's matching rule). An empty filter always
// matches.
func (r *Record) HasAnyLabel(filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, f := range filter {
		if _, ok := r.labels[f]; ok {
			return true
		}
	}
	return false
}

// Transition moves the record to a terminal status with the given exit
// code, setting end_time exactly once. It is a no-op if already terminal.
func (r *Record) Transition(status Status, exitCode int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.IsTerminal() {
		return
	}
	r.status = status
	r.exitCode = exitCode
	r.endTime = time.Now()
}

// MarkCleanupScheduled reports and records whether a cleanup timer is
// already pending, atomically: it sets the flag and returns its previous
// value, so it returns false only for the call that transitions
// false→true.
func (r *Record) MarkCleanupScheduled() (alreadyScheduled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	alreadyScheduled = r.cleanupScheduled
	r.cleanupScheduled = true
	return alreadyScheduled
}

// ClearCleanupScheduled resets the scheduled flag (used when a pending
// timer is cancelled and replaced).
func (r *Record) ClearCleanupScheduled() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanupScheduled = false
}

// Info is the immutable snapshot projection of a Record (ProcessInfo in
// spec.md §3), safe to serialize and hand to callers outside the
// supervisor.
type Info struct {
	Pid         int           `json:"pid"`
	ShellCmd    string        `json:"shell_cmd"`
	Directory   string        `json:"directory"`
	Description string        `json:"description"`
	Labels      []string      `json:"labels"`
	Timeout     time.Duration `json:"timeout_ns,omitempty"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     *time.Time    `json:"end_time,omitempty"`
	ExitCode    int           `json:"exit_code"`
	Status      Status        `json:"status"`
}

// Snapshot produces an Info projection under RLock.
func (r *Record) Snapshot() Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	labels := make([]string, 0, len(r.labels))
	for l := range r.labels {
		labels = append(labels, l)
	}

	info := Info{
		Pid:         r.pid,
		ShellCmd:    r.shellCmd,
		Directory:   r.directory,
		Description: r.description,
		Labels:      labels,
		Timeout:     r.timeout,
		StartTime:   r.startTime,
		ExitCode:    r.exitCode,
		Status:      r.status,
	}
	if !r.endTime.IsZero() {
		et := r.endTime
		info.EndTime = &et
	}
	return info
}

// Envs/Encoding/Directory/Description are read-only accessors used by the
// supervisor at spawn/drain time.
func (r *Record) Envs() []string  { return r.envs }
func (r *Record) Encoding() string { return r.encoding }
func (r *Record) Directory() string { return r.directory }
func (r *Record) Timeout() time.Duration { return r.timeout }
