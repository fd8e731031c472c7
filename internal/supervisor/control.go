package supervisor

import (
	"github.com/shellrunner/shellrunner-server/internal/shellerr"
)

// Stop terminates the process identified by pid. If force is true the
// ladder starts at SIGKILL; otherwise it runs terminate→5s grace→SIGKILL
// (stopGrace/stopKill in monitor.go). Stopping an already-terminal
// process is a no-op that reports success, per spec.md's idempotency
// requirement. Otherwise the return value reflects whether the child was
// actually reaped: false means it survived the full escalation ladder.
// The actual ladder and status transition run on the process' monitor
// goroutine, which is the sole writer of its status; Stop only files the
// request and waits for it to be honored.
func (s *Supervisor) Stop(pid int, force bool) (bool, error) {
	t, ok := s.lookup(pid)
	if !ok {
		return false, shellerr.NotFound("no such process: %d", pid)
	}

	if !t.rec.IsRunning() {
		return true, nil
	}

	req := &stopRequest{force: force, done: make(chan struct{})}
	select {
	case t.stopReq <- req:
	default:
		// A stop (or timeout-triggered termination) is already in flight;
		// the process is no longer running by the time this returns.
		return true, nil
	}
	<-req.done
	return req.reaped, nil
}
