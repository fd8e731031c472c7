package supervisor

import (
	"errors"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/shellrunner/shellrunner-server/internal/procrec"
	"github.com/shellrunner/shellrunner-server/internal/shellerr"
)

// timeoutGrace and timeoutKill bound the escalation ladder applied when a
// process' own timeout fires: SIGTERM, wait timeoutGrace, SIGKILL, wait
// timeoutKill for the reap. This mirrors the teacher's Close() ladder
// (processmgr/process.go), shortened for the automatic-timeout path per
// spec.md §4.E's "2s then 1s" sizing versus Stop's "5s then 2s".
const (
	timeoutGrace = 2 * time.Second
	timeoutKill  = 1 * time.Second

	stopGrace = 5 * time.Second
	stopKill  = 2 * time.Second
)

// monitor awaits the child's natural exit, its configured timeout, or a
// manual Stop() request — whichever comes first — then reconciles status
// and schedules retention cleanup. It is the sole writer of rec's
// terminal status, and the sole owner of the one call to cmd.Wait() for
// this child, matching the teacher's single-Wait() discipline in
// supervise() (processmgr/process.go).
func (s *Supervisor) monitor(pid int, t *tracked, cmd *exec.Cmd) {
	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	var timeoutCh <-chan time.Time
	var timer *time.Timer
	if d := t.rec.Timeout(); d > 0 {
		timer = time.NewTimer(d)
		timeoutCh = timer.C
	}

	var pendingStop *stopRequest

wait:
	for {
		select {
		case err := <-waitErr:
			if timer != nil {
				timer.Stop()
			}
			s.finish(t, err)
			break wait

		case <-timeoutCh:
			timeoutErr := shellerr.Timeout("timeout exceeded, terminating process %d", pid)
			s.log.Warn("process exceeded timeout, terminating", zap.Int("pid", pid))
			_ = t.rec.AddErrorBatch([]string{"[supervisor] " + timeoutErr.Error()})
			s.escalate(t, waitErr, false, timeoutGrace, timeoutKill)
			t.rec.Transition(procrec.StatusTerminated, -1)
			break wait

		case req := <-t.stopReq:
			pendingStop = req
			if timer != nil {
				timer.Stop()
			}
			pendingStop.reaped = s.escalate(t, waitErr, req.force, stopGrace, stopKill)
			t.rec.Transition(procrec.StatusTerminated, -1)
			break wait
		}
	}

	if pendingStop != nil {
		close(pendingStop.done)
	}

	t.drainWG.Wait()
	s.notifyChange()
	s.scheduleCleanup(pid, t)
}

// finish classifies a natural (non-timeout, non-Stop) exit.
func (s *Supervisor) finish(t *tracked, waitErr error) {
	if waitErr == nil {
		t.rec.Transition(procrec.StatusCompleted, 0)
		return
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		t.rec.Transition(procrec.StatusFailed, exitErr.ExitCode())
		return
	}
	internalErr := shellerr.Internal("supervisory error waiting for process %d: %v", t.rec.Pid(), waitErr)
	s.log.Error("supervisory error waiting for process", zap.Int("pid", t.rec.Pid()), zap.Error(internalErr))
	_ = t.killer.kill()
	t.rec.Transition(procrec.StatusError, -1)
}

// escalate runs the terminate→grace→SIGKILL ladder (or starts straight at
// SIGKILL when force is set) and blocks until the child is reaped or
// killTimeout elapses past the kill. It reports whether the child was
// actually reaped, so a caller can tell a clean stop from a survivor
// (spec.md §4.E: "if the child survives all escalation, return false").
func (s *Supervisor) escalate(t *tracked, waitErr <-chan error, force bool, grace, killTimeout time.Duration) bool {
	if force {
		if err := t.killer.kill(); err != nil {
			s.log.Warn("kill failed", zap.Int("pid", t.rec.Pid()), zap.Error(err))
		}
	} else {
		if err := t.killer.terminate(); err != nil {
			s.log.Warn("terminate failed", zap.Int("pid", t.rec.Pid()), zap.Error(err))
		}

		select {
		case <-waitErr:
			return true
		case <-time.After(grace):
		}

		if err := t.killer.kill(); err != nil {
			s.log.Warn("kill failed", zap.Int("pid", t.rec.Pid()), zap.Error(err))
		}
	}

	select {
	case <-waitErr:
		return true
	case <-time.After(killTimeout):
		s.log.Error("process did not reap after SIGKILL", zap.Int("pid", t.rec.Pid()))
		return false
	}
}
