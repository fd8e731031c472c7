package supervisor

import (
	"time"

	"go.uber.org/zap"

	"github.com/shellrunner/shellrunner-server/internal/procrec"
	"github.com/shellrunner/shellrunner-server/internal/shellerr"
)

// scheduleCleanup arms the retention timer for a process that just
// reached a terminal status. cfg.Retention <= 0 means "never auto-clean":
// the record is kept until an explicit Clean call removes it, per
// spec.md §9's Open Question resolution (see DESIGN.md).
func (s *Supervisor) scheduleCleanup(pid int, t *tracked) {
	if t.rec.MarkCleanupScheduled() {
		return
	}
	if s.cfg.Retention <= 0 {
		return
	}
	t.cleanupTimer = time.AfterFunc(s.cfg.Retention, func() {
		if _, err := s.CleanCompleted(pid); err != nil {
			s.log.Debug("scheduled cleanup skipped", zap.Int("pid", pid), zap.Error(err))
		}
	})
}

// CleanCompleted removes a terminated process' record and log store. It
// fails if the process is still running — callers must Stop it first.
func (s *Supervisor) CleanCompleted(pid int) (bool, error) {
	s.mu.Lock()
	t, ok := s.procs[pid]
	if !ok {
		s.mu.Unlock()
		return false, shellerr.NotFound("no such process: %d", pid)
	}
	if t.rec.IsRunning() {
		s.mu.Unlock()
		return false, shellerr.IllegalState("process %d is still running", pid)
	}
	delete(s.procs, pid)
	s.mu.Unlock()

	if t.cleanupTimer != nil {
		t.cleanupTimer.Stop()
	}
	if err := s.logs.Remove(pid); err != nil {
		s.log.Warn("failed to remove log store", zap.Int("pid", pid), zap.Error(err))
	}
	s.log.Info("process record cleaned", zap.Int("pid", pid))
	s.notifyChange()
	return true, nil
}

// CleanupAll force-terminates every running process and removes every
// record, used at shutdown (see signals.go).
func (s *Supervisor) CleanupAll() {
	s.mu.RLock()
	pids := make([]int, 0, len(s.procs))
	for pid := range s.procs {
		pids = append(pids, pid)
	}
	s.mu.RUnlock()

	for _, pid := range pids {
		if rec, ok := s.Get(pid); ok && rec.IsRunning() {
			_, _ = s.Stop(pid, true)
		}
	}
	for _, pid := range pids {
		if rec, ok := s.Get(pid); ok && rec.Status() != procrec.StatusRunning {
			_, _ = s.CleanCompleted(pid)
		}
	}
}
